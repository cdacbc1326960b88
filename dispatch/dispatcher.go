package dispatch

import (
	"go.uber.org/zap"

	"rover-remote/protocol"
)

// Sender transmits a command to the rover. Delivery is best effort.
type Sender interface {
	Send(cmd protocol.Command) bool
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(cmd protocol.Command) bool

// Send calls f(cmd).
func (f SenderFunc) Send(cmd protocol.Command) bool { return f(cmd) }

// Dispatcher owns the held-key state and forwards emitted commands.
// It is not safe for concurrent use; feed it from a single goroutine.
type Dispatcher struct {
	sender Sender
	logger *zap.SugaredLogger
	keys   ActiveKeySet
	moving bool
}

// New returns a Dispatcher that emits through sender.
func New(sender Sender, logger *zap.SugaredLogger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Dispatcher{sender: sender, logger: logger, keys: ActiveKeySet{}}
}

// Handle processes one event and returns the emitted command, if any.
func (d *Dispatcher) Handle(ev Event) (protocol.Command, bool) {
	next, cmd, emit := Transition(d.keys, ev)
	d.keys = next
	if !emit {
		d.logger.Debugw("no command", "event", ev.String(), "held", d.keys.Held())
		return 0, false
	}
	switch {
	case cmd == protocol.Stop:
		d.moving = false
	case cmd.IsDrive():
		d.moving = true
	}
	sent := d.sender.Send(cmd)
	d.logger.Debugw("command", "event", ev.String(), "cmd", cmd.Name(), "sent", sent, "held", d.keys.Held())
	return cmd, true
}

// Moving reports whether the last drive-class command emitted was not yet
// followed by a stop. Pointer and touch presses count as well as held keys.
func (d *Dispatcher) Moving() bool {
	return d.moving
}

// Held returns the currently held keys, sorted.
func (d *Dispatcher) Held() []string {
	return d.keys.Held()
}
