// Package protocol defines the command vocabulary understood by the rover.
//
// Each command is a single small integer sent as its decimal ASCII string in
// one WebSocket text frame. Values are bit-flag shaped but are never combined.
package protocol

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Command is one discrete control action.
type Command uint8

// Drive commands run while held; the client follows each with Stop on release.
const (
	Stop     Command = 0
	Forward  Command = 1
	Backward Command = 2
	Left     Command = 4
	Right    Command = 8
)

// Actuator commands run for a fixed duration on the device. There is no
// matching stop.
const (
	ActuatorARaise Command = 16
	ActuatorALower Command = 32
	ActuatorBRaise Command = 64
	ActuatorBLower Command = 128
)

// ErrUnknownCommand is returned by Parse for values outside the vocabulary.
var ErrUnknownCommand = errors.New("unknown command")

var names = map[Command]string{
	Stop:           "stop",
	Forward:        "forward",
	Backward:       "backward",
	Left:           "left",
	Right:          "right",
	ActuatorARaise: "actuator-a-raise",
	ActuatorALower: "actuator-a-lower",
	ActuatorBRaise: "actuator-b-raise",
	ActuatorBLower: "actuator-b-lower",
}

// All returns the full vocabulary in ascending order.
func All() []Command {
	return []Command{
		Stop, Forward, Backward, Left, Right,
		ActuatorARaise, ActuatorALower, ActuatorBRaise, ActuatorBLower,
	}
}

// Valid reports whether c is one of the defined commands.
func (c Command) Valid() bool {
	_, ok := names[c]
	return ok
}

// IsDrive reports whether c is a hold-to-run direction (not Stop).
func (c Command) IsDrive() bool {
	switch c {
	case Forward, Backward, Left, Right:
		return true
	}
	return false
}

// IsActuator reports whether c is a click-to-run actuator command.
func (c Command) IsActuator() bool {
	switch c {
	case ActuatorARaise, ActuatorALower, ActuatorBRaise, ActuatorBLower:
		return true
	}
	return false
}

// String returns the wire encoding: the decimal value.
func (c Command) String() string {
	return strconv.FormatUint(uint64(c), 10)
}

// Name returns a human-readable name for logs.
func (c Command) Name() string {
	if n, ok := names[c]; ok {
		return n
	}
	return "unknown(" + c.String() + ")"
}

// Parse decodes a wire value or a command name.
func Parse(s string) (Command, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.ParseUint(s, 10, 8); err == nil {
		c := Command(n)
		if !c.Valid() {
			return 0, errors.Wrapf(ErrUnknownCommand, "%q", s)
		}
		return c, nil
	}
	for c, n := range names {
		if n == s {
			return c, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownCommand, "%q", s)
}
