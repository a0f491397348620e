package viera

import "telly/internal/device"

var keyMap = map[device.Command]string{
	device.CommandPower:       "NRC_POWER",
	device.CommandInput:       "NRC_CHG_INPUT",
	device.CommandUp:          "NRC_UP",
	device.CommandDown:        "NRC_DOWN",
	device.CommandLeft:        "NRC_LEFT",
	device.CommandRight:       "NRC_RIGHT",
	device.CommandOK:          "NRC_ENTER",
	device.CommandBack:        "NRC_RETURN",
	device.CommandHome:        "NRC_HOME",
	device.CommandSettings:    "NRC_MENU",
	device.CommandVolumeUp:    "NRC_VOLUP",
	device.CommandVolumeDown:  "NRC_VOLDOWN",
	device.CommandChannelUp:   "NRC_CH_UP",
	device.CommandChannelDown: "NRC_CH_DOWN",
	device.CommandMute:        "NRC_MUTE",
	device.CommandRewind:      "NRC_REW",
	device.CommandPlayPause:   "NRC_PLAY",
	device.CommandFastForward: "NRC_FF",
	device.CommandDigit0:      "NRC_D0",
	device.CommandDigit1:      "NRC_D1",
	device.CommandDigit2:      "NRC_D2",
	device.CommandDigit3:      "NRC_D3",
	device.CommandDigit4:      "NRC_D4",
	device.CommandDigit5:      "NRC_D5",
	device.CommandDigit6:      "NRC_D6",
	device.CommandDigit7:      "NRC_D7",
	device.CommandDigit8:      "NRC_D8",
	device.CommandDigit9:      "NRC_D9",
	device.CommandNumpadEnter: "NRC_ENTER",
}
