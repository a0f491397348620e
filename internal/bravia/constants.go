package bravia

import "telly/internal/device"

// Remote Control Codes for Sony Bravia TVs
const (
	// Power Controls
	PowerButton BraviaRemoteCode = "AAAAAQAAAAEAAAAVAw=="
	PowerOn     BraviaRemoteCode = "AAAAAQAAAAEAAAAuAw=="
	PowerOff    BraviaRemoteCode = "AAAAAQAAAAEAAAAvAw=="

	// Volume Controls
	VolumeUp   BraviaRemoteCode = "AAAAAQAAAAEAAAASAw=="
	VolumeDown BraviaRemoteCode = "AAAAAQAAAAEAAAATAw=="
	Mute       BraviaRemoteCode = "AAAAAQAAAAEAAAAUAw=="

	// Channel Controls
	ChannelUp   BraviaRemoteCode = "AAAAAQAAAAEAAAAQAw=="
	ChannelDown BraviaRemoteCode = "AAAAAQAAAAEAAAARAw=="

	// Navigation Controls
	Up      BraviaRemoteCode = "AAAAAQAAAAEAAAB0Aw=="
	Down    BraviaRemoteCode = "AAAAAQAAAAEAAAB1Aw=="
	Left    BraviaRemoteCode = "AAAAAQAAAAEAAAA0Aw=="
	Right   BraviaRemoteCode = "AAAAAQAAAAEAAAAzAw=="
	Confirm BraviaRemoteCode = "AAAAAQAAAAEAAABlAw=="

	// Menu Controls
	Home    BraviaRemoteCode = "AAAAAQAAAAEAAABgAw=="
	Options BraviaRemoteCode = "AAAAAgAAAJcAAAA2Aw=="
	Return  BraviaRemoteCode = "AAAAAgAAAJcAAAAjAw=="

	// Input Controls
	Input BraviaRemoteCode = "AAAAAQAAAAEAAAAlAw=="

	// Playback Controls
	Play        BraviaRemoteCode = "AAAAAgAAAJcAAAAaAw=="
	Pause       BraviaRemoteCode = "AAAAAgAAAJcAAAAZAw=="
	Rewind      BraviaRemoteCode = "AAAAAgAAAJcAAAAbAw=="
	FastForward BraviaRemoteCode = "AAAAAgAAAJcAAAAcAw=="

	// Number Keys
	Num0  BraviaRemoteCode = "AAAAAQAAAAEAAAAJAw=="
	Num1  BraviaRemoteCode = "AAAAAQAAAAEAAAAAAw=="
	Num2  BraviaRemoteCode = "AAAAAQAAAAEAAAABAw=="
	Num3  BraviaRemoteCode = "AAAAAQAAAAEAAAACAw=="
	Num4  BraviaRemoteCode = "AAAAAQAAAAEAAAADAw=="
	Num5  BraviaRemoteCode = "AAAAAQAAAAEAAAAEAw=="
	Num6  BraviaRemoteCode = "AAAAAQAAAAEAAAAFAw=="
	Num7  BraviaRemoteCode = "AAAAAQAAAAEAAAAGAw=="
	Num8  BraviaRemoteCode = "AAAAAQAAAAEAAAAHAw=="
	Num9  BraviaRemoteCode = "AAAAAQAAAAEAAAAIAw=="
	Enter BraviaRemoteCode = "AAAAAQAAAAEAAAALAw=="
)

// API Endpoints for Sony Bravia Control
const (
	SystemEndpoint BraviaEndpoint = "/sony/system"
	IRCCEndpoint   BraviaEndpoint = "/sony/IRCC"
)

// API Methods for Sony Bravia Control
const (
	GetRemoteControllerInfo BraviaMethod = "getRemoteControllerInfo"
	GetInterfaceInformation BraviaMethod = "getInterfaceInformation"
)

// builtinCodes is used when the TV's own table cannot be fetched
var builtinCodes = []RemoteCode{
	{"Power", PowerButton},
	{"TvPower", PowerButton},
	{"PowerOff", PowerOff},
	{"WakeUp", PowerOn},
	{"VolumeUp", VolumeUp},
	{"VolumeDown", VolumeDown},
	{"Mute", Mute},
	{"ChannelUp", ChannelUp},
	{"ChannelDown", ChannelDown},
	{"Up", Up},
	{"Down", Down},
	{"Left", Left},
	{"Right", Right},
	{"Confirm", Confirm},
	{"Home", Home},
	{"Options", Options},
	{"Return", Return},
	{"Input", Input},
	{"Play", Play},
	{"Pause", Pause},
	{"Rewind", Rewind},
	{"Forward", FastForward},
	{"Num0", Num0},
	{"Num1", Num1},
	{"Num2", Num2},
	{"Num3", Num3},
	{"Num4", Num4},
	{"Num5", Num5},
	{"Num6", Num6},
	{"Num7", Num7},
	{"Num8", Num8},
	{"Num9", Num9},
	{"Enter", Enter},
}

// nameVariants lists acceptable code-table names per command, most preferred first
var nameVariants = map[device.Command][]string{
	device.CommandPower:       {"Power", "TvPower", "PowerOff"},
	device.CommandInput:       {"Input", "TvInput"},
	device.CommandUp:          {"Up"},
	device.CommandDown:        {"Down"},
	device.CommandLeft:        {"Left"},
	device.CommandRight:       {"Right"},
	device.CommandOK:          {"Confirm", "Enter"},
	device.CommandBack:        {"Return", "Back"},
	device.CommandHome:        {"Home"},
	device.CommandSettings:    {"ActionMenu", "Options", "SyncMenu"},
	device.CommandVolumeUp:    {"VolumeUp"},
	device.CommandVolumeDown:  {"VolumeDown"},
	device.CommandChannelUp:   {"ChannelUp"},
	device.CommandChannelDown: {"ChannelDown"},
	device.CommandMute:        {"Mute"},
	device.CommandRewind:      {"Rewind"},
	device.CommandPlayPause:   {"Play", "Pause"},
	device.CommandFastForward: {"Forward", "FastForward"},
	device.CommandDigit0:      {"Num0"},
	device.CommandDigit1:      {"Num1"},
	device.CommandDigit2:      {"Num2"},
	device.CommandDigit3:      {"Num3"},
	device.CommandDigit4:      {"Num4"},
	device.CommandDigit5:      {"Num5"},
	device.CommandDigit6:      {"Num6"},
	device.CommandDigit7:      {"Num7"},
	device.CommandDigit8:      {"Num8"},
	device.CommandDigit9:      {"Num9"},
	device.CommandNumpadEnter: {"Enter", "DOT"},
}
