// Package input produces operator events for the dispatcher.
//
// Two sources exist: a Linux evdev keyboard, which reports real press and
// release edges (and autorepeat), and a line-oriented event script standing
// in for the on-screen pointer and touch controls.
package input

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"rover-remote/dispatch"
	"rover-remote/protocol"
)

// Source feeds events into out until ctx is done or the source is exhausted.
type Source interface {
	Run(ctx context.Context, out chan<- dispatch.Event) error
}

var keyNames = map[uint16]string{
	keyUp:    protocol.KeyArrowUp,
	keyDown:  protocol.KeyArrowDown,
	keyLeft:  protocol.KeyArrowLeft,
	keyRight: protocol.KeyArrowRight,
	keySpace: protocol.KeySpace,
}

// keyEvent maps one EV_KEY report to a dispatcher event. Autorepeat becomes a
// repeated key-down, which the dispatcher suppresses.
func keyEvent(code uint16, value int32) (dispatch.Event, bool) {
	name, ok := keyNames[code]
	if !ok {
		return dispatch.Event{}, false
	}
	switch value {
	case keyPressed, keyRepeated:
		return dispatch.KeyDown(name), true
	case keyReleased:
		return dispatch.KeyUp(name), true
	}
	return dispatch.Event{}, false
}

// grabFile grabs f without f.Fd(), which would switch it to blocking mode
// and stop Close from interrupting a pending Read.
func grabFile(f *os.File) error {
	rc, err := f.SyscallConn()
	if err != nil {
		return err
	}
	var grabErr error
	if err := rc.Control(func(fd uintptr) { grabErr = tryGrab(int(fd)) }); err != nil {
		return err
	}
	return grabErr
}

// Keyboard reads an evdev keyboard node.
type Keyboard struct {
	Path       string
	Grab       bool
	DumpEvents bool
	Logger     *zap.SugaredLogger
}

// Run implements Source.
func (k *Keyboard) Run(ctx context.Context, out chan<- dispatch.Event) error {
	f, err := os.Open(k.Path)
	if err != nil {
		return errors.Wrapf(err, "open keyboard %s", k.Path)
	}
	return k.run(ctx, f, out)
}

func (k *Keyboard) run(ctx context.Context, f *os.File, out chan<- dispatch.Event) error {
	logger := k.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	if k.Grab {
		if err := grabFile(f); err != nil {
			logger.Warnw("grab failed; other programs still see key presses", "path", k.Path, "error", err)
		}
	}

	// Closing the file unblocks the pending Read.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = f.Close()
		case <-stop:
			_ = f.Close()
		}
	}()

	parser := &inputParser{}
	chunk := make([]byte, 4096)
	for {
		n, err := f.Read(chunk)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrapf(err, "read keyboard %s", k.Path)
		}

		var events []dispatch.Event
		parser.feed(chunk[:n], func(etype uint16, code uint16, value int32) {
			if k.DumpEvents && etype != evSyn {
				logger.Infof("[ev] type=%d code=%d value=%d", etype, code, value)
			}
			if etype != evKey {
				return
			}
			if ev, ok := keyEvent(code, value); ok {
				events = append(events, ev)
			}
		})

		for _, ev := range events {
			select {
			case out <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
