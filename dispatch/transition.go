package dispatch

import (
	"sort"

	"github.com/samber/lo"

	"rover-remote/protocol"
)

// ActiveKeySet records which direction keys are physically held.
// A key is present iff its key-down was seen and neither its key-up nor a
// global stop has been seen since.
type ActiveKeySet map[string]bool

// Held returns the held keys, sorted.
func (s ActiveKeySet) Held() []string {
	keys := lo.Keys(map[string]bool(s))
	sort.Strings(keys)
	return keys
}

// Len returns the number of held keys.
func (s ActiveKeySet) Len() int { return len(s) }

func (s ActiveKeySet) clone() ActiveKeySet {
	out := make(ActiveKeySet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Transition applies ev to keys and reports the command to emit, if any.
// keys is never modified; the returned set is the state after ev.
func Transition(keys ActiveKeySet, ev Event) (ActiveKeySet, protocol.Command, bool) {
	switch ev.Kind {
	case GlobalStop:
		return ActiveKeySet{}, protocol.Stop, true

	case Activate:
		switch {
		case ev.Command == protocol.Stop:
			// The stop control is a click.
			return ActiveKeySet{}, protocol.Stop, true
		case ev.Command.IsActuator():
			return keys, ev.Command, true
		}
		return keys, 0, false

	case PressStart:
		if ev.Source == Keyboard {
			return keyDown(keys, ev.Key)
		}
		if ev.Command.IsDrive() {
			return keys, ev.Command, true
		}
		return keys, 0, false

	case PressEnd:
		if ev.Source == Keyboard {
			return keyUp(keys, ev.Key)
		}
		if ev.Command.IsDrive() {
			return keys, protocol.Stop, true
		}
		return keys, 0, false
	}
	return keys, 0, false
}

func keyDown(keys ActiveKeySet, key string) (ActiveKeySet, protocol.Command, bool) {
	if protocol.IsStopKey(key) {
		return ActiveKeySet{}, protocol.Stop, true
	}
	cmd, ok := protocol.DriveKey(key)
	if !ok || keys[key] {
		return keys, 0, false
	}
	next := keys.clone()
	next[key] = true
	return next, cmd, true
}

func keyUp(keys ActiveKeySet, key string) (ActiveKeySet, protocol.Command, bool) {
	if _, ok := protocol.DriveKey(key); !ok || !keys[key] {
		return keys, 0, false
	}
	next := keys.clone()
	delete(next, key)
	// Remaining held directions are not re-sent.
	if len(next) == 0 {
		return next, protocol.Stop, true
	}
	return next, 0, false
}
