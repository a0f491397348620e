package samsung

import "telly/internal/device"

// keyMap translates commands to Tizen remote key names
var keyMap = map[device.Command]string{
	device.CommandPower:       "KEY_POWER",
	device.CommandInput:       "KEY_SOURCE",
	device.CommandUp:          "KEY_UP",
	device.CommandDown:        "KEY_DOWN",
	device.CommandLeft:        "KEY_LEFT",
	device.CommandRight:       "KEY_RIGHT",
	device.CommandOK:          "KEY_ENTER",
	device.CommandBack:        "KEY_RETURN",
	device.CommandHome:        "KEY_HOME",
	device.CommandSettings:    "KEY_MENU",
	device.CommandVolumeUp:    "KEY_VOLUP",
	device.CommandVolumeDown:  "KEY_VOLDOWN",
	device.CommandChannelUp:   "KEY_CHUP",
	device.CommandChannelDown: "KEY_CHDOWN",
	device.CommandMute:        "KEY_MUTE",
	device.CommandRewind:      "KEY_REWIND",
	device.CommandPlayPause:   "KEY_PLAY",
	device.CommandFastForward: "KEY_FF",
	device.CommandDigit0:      "KEY_0",
	device.CommandDigit1:      "KEY_1",
	device.CommandDigit2:      "KEY_2",
	device.CommandDigit3:      "KEY_3",
	device.CommandDigit4:      "KEY_4",
	device.CommandDigit5:      "KEY_5",
	device.CommandDigit6:      "KEY_6",
	device.CommandDigit7:      "KEY_7",
	device.CommandDigit8:      "KEY_8",
	device.CommandDigit9:      "KEY_9",
	device.CommandNumpadEnter: "KEY_ENTER",
}
