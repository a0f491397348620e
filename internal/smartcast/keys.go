package smartcast

import "telly/internal/device"

type keyCode struct {
	codeset int
	code    int
}

var keyMap = map[device.Command]keyCode{
	device.CommandPower:       {11, 2},
	device.CommandInput:       {7, 1},
	device.CommandUp:          {3, 8},
	device.CommandDown:        {3, 0},
	device.CommandLeft:        {3, 1},
	device.CommandRight:       {3, 7},
	device.CommandOK:          {3, 2},
	device.CommandBack:        {4, 0},
	device.CommandHome:        {4, 15},
	device.CommandSettings:    {4, 8},
	device.CommandVolumeUp:    {5, 1},
	device.CommandVolumeDown:  {5, 0},
	device.CommandMute:        {5, 4},
	device.CommandChannelUp:   {8, 1},
	device.CommandChannelDown: {8, 0},
	device.CommandRewind:      {2, 1},
	device.CommandPlayPause:   {2, 3},
	device.CommandFastForward: {2, 0},
}

func init() {
	// digit keys are ASCII codes in codeset 0
	for d := 0; d <= 9; d++ {
		keyMap[device.Command("digit"+string(rune('0'+d)))] = keyCode{0, '0' + d}
	}
}

// pairing/auth statuses that mean the stored token is no longer accepted
var rejectedResults = map[string]bool{
	"REQUIRES_PAIRING":   true,
	"BLOCKED":            true,
	"INVALID_AUTH_TOKEN": true,
}
