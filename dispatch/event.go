// Package dispatch turns operator input into rover commands.
//
// Drive commands are hold-to-run: a press emits the direction and the
// matching release emits Stop. Actuator commands are click-to-run: one
// activation emits one command and nothing follows it. Keyboard presses are
// edge-triggered through an ActiveKeySet so auto-repeat and overlapping keys
// never produce duplicate or premature stops.
package dispatch

import (
	"fmt"

	"rover-remote/protocol"
)

// Source is where an input event came from.
type Source uint8

// Input sources.
const (
	Pointer Source = iota
	Touch
	Keyboard
)

func (s Source) String() string {
	switch s {
	case Pointer:
		return "pointer"
	case Touch:
		return "touch"
	case Keyboard:
		return "keyboard"
	}
	return fmt.Sprintf("source(%d)", uint8(s))
}

// Kind discriminates Event.
type Kind uint8

// Event kinds.
const (
	PressStart Kind = iota
	PressEnd
	Activate
	GlobalStop
)

func (k Kind) String() string {
	switch k {
	case PressStart:
		return "press-start"
	case PressEnd:
		return "press-end"
	case Activate:
		return "activate"
	case GlobalStop:
		return "global-stop"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Event is one operator input.
//
// Keyboard press events identify the physical key by Key; the command is
// looked up from the key binding. Pointer and touch press events and
// activations carry Command directly, the way a control carries its code.
type Event struct {
	Kind    Kind
	Source  Source
	Key     string
	Command protocol.Command
}

// Press returns a pointer or touch press-start on a control.
func Press(src Source, cmd protocol.Command) Event {
	return Event{Kind: PressStart, Source: src, Command: cmd}
}

// Release returns a pointer or touch press-end on a control. Touch-end,
// touch-cancel and a long-press context menu all map here.
func Release(src Source, cmd protocol.Command) Event {
	return Event{Kind: PressEnd, Source: src, Command: cmd}
}

// KeyDown returns a keyboard press-start. Auto-repeat is a repeated KeyDown.
func KeyDown(key string) Event {
	return Event{Kind: PressStart, Source: Keyboard, Key: key}
}

// KeyUp returns a keyboard press-end.
func KeyUp(key string) Event {
	return Event{Kind: PressEnd, Source: Keyboard, Key: key}
}

// Click returns a discrete activation of a control.
func Click(cmd protocol.Command) Event {
	return Event{Kind: Activate, Source: Pointer, Command: cmd}
}

// Stop returns a global stop from src.
func Stop(src Source) Event {
	return Event{Kind: GlobalStop, Source: src}
}

func (e Event) String() string {
	if e.Source == Keyboard && e.Key != "" {
		return fmt.Sprintf("%s/%s key=%q", e.Source, e.Kind, e.Key)
	}
	return fmt.Sprintf("%s/%s cmd=%s", e.Source, e.Kind, e.Command.Name())
}
