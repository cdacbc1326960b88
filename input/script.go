package input

import (
	"bufio"
	"context"
	"io"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"rover-remote/dispatch"
	"rover-remote/protocol"
)

// Script replays operator events from text, one per line:
//
//	pointerdown <cmd>   pointerup <cmd>
//	touchstart <cmd>    touchend <cmd>   touchcancel <cmd>   contextmenu <cmd>
//	click <cmd>         stop
//	keydown <key>       keyup <key>
//	sleep <duration>
//
// <cmd> is a wire value or command name; <key> is a key name such as ArrowUp
// or Space. Blank lines and # comments are skipped, as are malformed lines.
type Script struct {
	Name   string
	Reader io.Reader
	Clock  clock.Clock
	Logger *zap.SugaredLogger
}

// ErrSyntax marks a malformed script line.
var ErrSyntax = errors.New("script syntax")

type step struct {
	event dispatch.Event
	sleep time.Duration
}

// Run implements Source. It returns nil once the script is exhausted.
func (s *Script) Run(ctx context.Context, out chan<- dispatch.Event) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	clk := s.Clock
	if clk == nil {
		clk = clock.New()
	}

	sc := bufio.NewScanner(s.Reader)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		st, ok, err := parseLine(sc.Text())
		if err != nil {
			logger.Warnw("skipping script line", "script", s.Name, "line", lineNo, "error", err)
			continue
		}
		if !ok {
			continue
		}

		if st.sleep > 0 {
			t := clk.Timer(st.sleep)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			}
			continue
		}

		select {
		case out <- st.event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return errors.Wrapf(sc.Err(), "read script %s", s.Name)
}

// parseLine decodes one script line. ok is false for blank and comment lines.
func parseLine(line string) (step, bool, error) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return step{}, false, nil
	}
	verb := strings.ToLower(fields[0])
	args := fields[1:]

	if verb == "stop" {
		if len(args) != 0 {
			return step{}, false, errors.Wrapf(ErrSyntax, "stop takes no argument")
		}
		return step{event: dispatch.Stop(dispatch.Pointer)}, true, nil
	}
	if len(args) != 1 {
		return step{}, false, errors.Wrapf(ErrSyntax, "%s needs exactly one argument", verb)
	}
	arg := args[0]

	switch verb {
	case "keydown":
		return step{event: dispatch.KeyDown(keyName(arg))}, true, nil
	case "keyup":
		return step{event: dispatch.KeyUp(keyName(arg))}, true, nil
	case "sleep":
		d, err := time.ParseDuration(arg)
		if err != nil || d <= 0 {
			return step{}, false, errors.Wrapf(ErrSyntax, "bad duration %q", arg)
		}
		return step{sleep: d}, true, nil
	}

	cmd, err := protocol.Parse(arg)
	if err != nil {
		return step{}, false, err
	}
	switch verb {
	case "pointerdown", "mousedown":
		return step{event: dispatch.Press(dispatch.Pointer, cmd)}, true, nil
	case "pointerup", "mouseup":
		return step{event: dispatch.Release(dispatch.Pointer, cmd)}, true, nil
	case "touchstart":
		return step{event: dispatch.Press(dispatch.Touch, cmd)}, true, nil
	case "touchend", "touchcancel", "contextmenu":
		return step{event: dispatch.Release(dispatch.Touch, cmd)}, true, nil
	case "click", "tap":
		return step{event: dispatch.Click(cmd)}, true, nil
	}
	return step{}, false, errors.Wrapf(ErrSyntax, "unknown event %q", verb)
}

func keyName(s string) string {
	if strings.EqualFold(s, "space") {
		return protocol.KeySpace
	}
	return s
}
