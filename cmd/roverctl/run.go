package main

// Run loop.
//
// Every input source pushes into one channel and a single goroutine feeds the
// dispatcher, so held-key state is only ever touched from one place. The
// connection manager runs alongside and keeps reconnecting until shutdown.

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"rover-remote/conn"
	"rover-remote/dispatch"
	"rover-remote/input"
	"rover-remote/protocol"
)

// gated holds a source back until ready closes.
type gated struct {
	ready <-chan struct{}
	src   input.Source
}

func (g gated) Run(ctx context.Context, out chan<- dispatch.Event) error {
	select {
	case <-g.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	return g.src.Run(ctx, out)
}

// readyOnce closes a channel the first time the connection is healthy.
type readyOnce struct {
	once sync.Once
	ch   chan struct{}
}

func newReadyOnce() *readyOnce { return &readyOnce{ch: make(chan struct{})} }

func (r *readyOnce) observe(s conn.Status) {
	if s.Healthy {
		r.once.Do(func() { close(r.ch) })
	}
}

func run(ctx context.Context, cfg Config, logger *zap.SugaredLogger) error {
	display := newTerminalDisplay()
	ready := newReadyOnce()

	mgr := conn.NewManager(cfg.Endpoint(),
		conn.WSDialer{PingEvery: cfg.pingEvery(), PongWait: cfg.pongWait()},
		conn.WithLogger(logger.Named("conn")),
		conn.WithStatusFunc(func(s conn.Status) {
			display.Show(s)
			ready.observe(s)
		}),
	)

	sources, closers, err := buildSources(cfg, ready.ch, logger.Named("input"))
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	// The manager outlives the input loop so a final stop can still go out.
	mgrCtx, cancelMgr := context.WithCancel(context.Background())
	mgrDone := make(chan error, 1)
	go func() { mgrDone <- mgr.Run(mgrCtx) }()

	logger.Infow("roverctl started", "url", mgr.URL(), "sources", len(sources))
	d := dispatch.New(mgr, logger.Named("dispatch"))
	loopErr := runLoop(ctx, d, sources, logger)

	// Quitting mid-press would leave the rover moving.
	if d.Moving() && mgr.Send(protocol.Stop) {
		logger.Infow("sent stop on exit", "held", d.Held())
	}
	cancelMgr()
	<-mgrDone
	return loopErr
}

func buildSources(cfg Config, ready <-chan struct{}, logger *zap.SugaredLogger) ([]input.Source, []io.Closer, error) {
	var (
		sources []input.Source
		closers []io.Closer
	)

	if !cfg.NoKeyboard {
		path, err := input.FindKeyboard(cfg.InputDevice, cfg.probeDuration(), logger)
		if err != nil {
			return nil, nil, errors.Wrap(err, "find keyboard")
		}
		logger.Infow("using keyboard", "path", path)
		sources = append(sources, &input.Keyboard{
			Path:       path,
			Grab:       cfg.Grab,
			DumpEvents: cfg.DumpEvents,
			Logger:     logger,
		})
	}

	if cfg.Script != "" {
		var r io.Reader = os.Stdin
		name := "stdin"
		if cfg.Script != "-" {
			f, err := os.Open(cfg.Script)
			if err != nil {
				return nil, nil, errors.Wrap(err, "open script")
			}
			r, name = f, cfg.Script
			closers = append(closers, f)
		}
		sources = append(sources, gated{
			ready: ready,
			src:   &input.Script{Name: name, Reader: r, Logger: logger},
		})
	}
	return sources, closers, nil
}

// runLoop feeds every source's events to d until ctx is done or all sources
// have finished, and returns their combined errors.
func runLoop(ctx context.Context, d *dispatch.Dispatcher, sources []input.Source, logger *zap.SugaredLogger) error {
	events := make(chan dispatch.Event, 64)
	errs := make([]error, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src input.Source) {
			defer wg.Done()
			errs[i] = src.Run(ctx, events)
			if errs[i] != nil && ctx.Err() == nil {
				logger.Warnw("input source stopped", "error", errs[i])
			}
		}(i, src)
	}
	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	for {
		select {
		case ev := <-events:
			d.Handle(ev)
		case <-finished:
			// Sources are done writing; drain what they left behind.
			for {
				select {
				case ev := <-events:
					d.Handle(ev)
				default:
					return combine(ctx, errs)
				}
			}
		case <-ctx.Done():
			// A script on stdin may still be blocked in Read; failures
			// were already logged by the source goroutine.
			return nil
		}
	}
}

func combine(ctx context.Context, errs []error) error {
	var out error
	for _, err := range errs {
		if err == nil || (ctx.Err() != nil && errors.Is(err, ctx.Err())) {
			continue
		}
		out = multierr.Append(out, err)
	}
	return out
}
