package device

import (
	"fmt"
	"strings"
)

// Command is an abstract remote-control action
type Command string

const (
	CommandPower           Command = "power"
	CommandInput           Command = "input"
	CommandUp              Command = "up"
	CommandDown            Command = "down"
	CommandLeft            Command = "left"
	CommandRight           Command = "right"
	CommandOK              Command = "ok"
	CommandBack            Command = "back"
	CommandHome            Command = "home"
	CommandSettings        Command = "settings"
	CommandVolumeUp        Command = "volumeUp"
	CommandVolumeDown      Command = "volumeDown"
	CommandChannelUp       Command = "channelUp"
	CommandChannelDown     Command = "channelDown"
	CommandMute            Command = "mute"
	CommandRewind          Command = "rewind"
	CommandPlayPause       Command = "playPause"
	CommandFastForward     Command = "fastForward"
	CommandNumpadOpen      Command = "numpadOpen"
	CommandDigit0          Command = "digit0"
	CommandDigit1          Command = "digit1"
	CommandDigit2          Command = "digit2"
	CommandDigit3          Command = "digit3"
	CommandDigit4          Command = "digit4"
	CommandDigit5          Command = "digit5"
	CommandDigit6          Command = "digit6"
	CommandDigit7          Command = "digit7"
	CommandDigit8          Command = "digit8"
	CommandDigit9          Command = "digit9"
	CommandNumpadBackspace Command = "numpadBackspace"
	CommandNumpadEnter     Command = "numpadEnter"
)

var allCommands = []Command{
	CommandPower, CommandInput,
	CommandUp, CommandDown, CommandLeft, CommandRight, CommandOK,
	CommandBack, CommandHome, CommandSettings,
	CommandVolumeUp, CommandVolumeDown, CommandChannelUp, CommandChannelDown, CommandMute,
	CommandRewind, CommandPlayPause, CommandFastForward,
	CommandNumpadOpen,
	CommandDigit0, CommandDigit1, CommandDigit2, CommandDigit3, CommandDigit4,
	CommandDigit5, CommandDigit6, CommandDigit7, CommandDigit8, CommandDigit9,
	CommandNumpadBackspace, CommandNumpadEnter,
}

// lookup key is the lowercased name with separators removed
var commandIndex = func() map[string]Command {
	idx := make(map[string]Command, len(allCommands))
	for _, c := range allCommands {
		idx[strings.ToLower(string(c))] = c
	}
	return idx
}()

// Commands returns every command in declaration order
func Commands() []Command {
	out := make([]Command, len(allCommands))
	copy(out, allCommands)
	return out
}

// ParseCommand accepts camelCase names in any case plus kebab and snake variants
func ParseCommand(s string) (Command, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "", "_", "", " ", "").Replace(norm)
	if c, ok := commandIndex[norm]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown command %q", s)
}

// Digit returns the numeric value of a digit command
func (c Command) Digit() (int, bool) {
	s := string(c)
	if len(s) == len("digit0") && strings.HasPrefix(s, "digit") {
		d := s[len(s)-1]
		if d >= '0' && d <= '9' {
			return int(d - '0'), true
		}
	}
	return 0, false
}

func (c Command) String() string {
	return string(c)
}
