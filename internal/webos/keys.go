package webos

import "telly/internal/device"

// action is either an ssap request or a pointer-socket button
type action struct {
	uri     string
	payload map[string]interface{}
	button  string
}

var keyMap = map[device.Command]action{
	device.CommandPower:       {uri: "ssap://system/turnOff"},
	device.CommandInput:       {uri: "ssap://system.launcher/launch", payload: map[string]interface{}{"id": "com.webos.app.inputpicker"}},
	device.CommandVolumeUp:    {uri: "ssap://audio/volumeUp"},
	device.CommandVolumeDown:  {uri: "ssap://audio/volumeDown"},
	device.CommandMute:        {uri: "ssap://audio/setMute", payload: map[string]interface{}{"mute": true}},
	device.CommandChannelUp:   {uri: "ssap://tv/channelUp"},
	device.CommandChannelDown: {uri: "ssap://tv/channelDown"},
	device.CommandRewind:      {uri: "ssap://media.controls/rewind"},
	device.CommandPlayPause:   {uri: "ssap://media.controls/play"},
	device.CommandFastForward: {uri: "ssap://media.controls/fastForward"},

	device.CommandUp:          {button: "UP"},
	device.CommandDown:        {button: "DOWN"},
	device.CommandLeft:        {button: "LEFT"},
	device.CommandRight:       {button: "RIGHT"},
	device.CommandOK:          {button: "ENTER"},
	device.CommandBack:        {button: "BACK"},
	device.CommandHome:        {button: "HOME"},
	device.CommandSettings:    {button: "MENU"},
	device.CommandNumpadEnter: {button: "ENTER"},
	device.CommandDigit0:      {button: "0"},
	device.CommandDigit1:      {button: "1"},
	device.CommandDigit2:      {button: "2"},
	device.CommandDigit3:      {button: "3"},
	device.CommandDigit4:      {button: "4"},
	device.CommandDigit5:      {button: "5"},
	device.CommandDigit6:      {button: "6"},
	device.CommandDigit7:      {button: "7"},
	device.CommandDigit8:      {button: "8"},
	device.CommandDigit9:      {button: "9"},
}

var permissions = []string{
	"LAUNCH",
	"CONTROL_AUDIO",
	"CONTROL_DISPLAY",
	"CONTROL_INPUT_MEDIA_PLAYBACK",
	"CONTROL_INPUT_TV",
	"CONTROL_MOUSE_AND_KEYBOARD",
	"CONTROL_POWER",
	"READ_INSTALLED_APPS",
	"READ_INPUT_DEVICE_LIST",
	"READ_CURRENT_CHANNEL",
	"READ_POWER_STATE",
}
