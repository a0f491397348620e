package roku

import "telly/internal/device"

// ECP key names
var keyMap = map[device.Command]string{
	device.CommandPower:           "Power",
	device.CommandInput:           "InputHDMI1",
	device.CommandUp:              "Up",
	device.CommandDown:            "Down",
	device.CommandLeft:            "Left",
	device.CommandRight:           "Right",
	device.CommandOK:              "Select",
	device.CommandBack:            "Back",
	device.CommandHome:            "Home",
	device.CommandSettings:        "Info",
	device.CommandVolumeUp:        "VolumeUp",
	device.CommandVolumeDown:      "VolumeDown",
	device.CommandChannelUp:       "ChannelUp",
	device.CommandChannelDown:     "ChannelDown",
	device.CommandMute:            "VolumeMute",
	device.CommandRewind:          "Rev",
	device.CommandPlayPause:       "Play",
	device.CommandFastForward:     "Fwd",
	device.CommandNumpadBackspace: "Backspace",
	device.CommandNumpadEnter:     "Enter",
}

func init() {
	// digits are sent as literal characters
	for d := 0; d <= 9; d++ {
		c := string(rune('0' + d))
		keyMap[device.Command("digit"+c)] = "Lit_" + c
	}
}
