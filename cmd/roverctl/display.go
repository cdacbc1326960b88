package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"

	"rover-remote/conn"
)

// statusDisplay prints connection health with a coloured dot: green when
// healthy, grey while connecting, red otherwise.
type statusDisplay struct {
	out  io.Writer
	ok   *color.Color
	bad  *color.Color
	idle *color.Color
}

func newStatusDisplay(out io.Writer, colorize bool) *statusDisplay {
	d := &statusDisplay{
		out:  out,
		ok:   color.New(color.FgGreen, color.Bold),
		bad:  color.New(color.FgRed, color.Bold),
		idle: color.New(color.FgHiBlack),
	}
	for _, c := range []*color.Color{d.ok, d.bad, d.idle} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return d
}

func newTerminalDisplay() *statusDisplay {
	return newStatusDisplay(os.Stdout, term.IsTerminal(int(os.Stdout.Fd())))
}

func (d *statusDisplay) dot(s conn.Status) *color.Color {
	switch {
	case s.Healthy:
		return d.ok
	case s.Text == conn.TextConnecting:
		return d.idle
	}
	return d.bad
}

// Show renders one status line.
func (d *statusDisplay) Show(s conn.Status) {
	fmt.Fprintf(d.out, "%s %s\n", d.dot(s).Sprint("●"), s.Text)
}
