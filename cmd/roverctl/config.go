package main

// Configuration: env-var defaults, overridden by flags.

import (
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"rover-remote/conn"
)

// Config is everything roverctl needs to run.
type Config struct {
	Host  string
	WsURL string

	InputDevice  string
	NoKeyboard   bool
	Grab         bool
	Script       string
	ProbeSeconds float64

	PingSeconds        float64
	PongTimeoutSeconds float64

	Debug       bool
	DumpEvents  bool
	ListDevices bool
}

func defaultConfig() Config {
	return Config{
		Host:               getenvDefault("ROVER_HOST", "192.168.4.1"),
		WsURL:              os.Getenv("ROVER_WS"),
		InputDevice:        os.Getenv("INPUT_DEVICE"),
		NoKeyboard:         getenvBoolDefault("NO_KEYBOARD", false),
		Grab:               getenvBoolDefault("GRAB", false),
		Script:             os.Getenv("EVENT_SCRIPT"),
		ProbeSeconds:       getenvFloatDefault("PROBE_SECONDS", 1.5),
		PingSeconds:        getenvFloatDefault("PING_SECONDS", 2),
		PongTimeoutSeconds: getenvFloatDefault("PONG_TIMEOUT_SECONDS", 8),
		Debug:              getenvBoolDefault("DEBUG", false),
		DumpEvents:         getenvBoolDefault("DUMP_EVENTS", false),
	}
}

func parseFlags(args []string) (Config, error) {
	cfg := defaultConfig()

	fs := pflag.NewFlagSet("roverctl", pflag.ContinueOnError)
	fs.StringVar(&cfg.Host, "host", cfg.Host, "Rover host; the endpoint is ws://<host>:81/")
	fs.StringVar(&cfg.WsURL, "url", cfg.WsURL, "Full WebSocket URL (overrides --host)")
	fs.StringVar(&cfg.InputDevice, "input", cfg.InputDevice, "Keyboard device (e.g. /dev/input/event3). If empty, auto-detect.")
	fs.BoolVar(&cfg.NoKeyboard, "no-keyboard", cfg.NoKeyboard, "Do not read a keyboard device")
	fs.BoolVar(&cfg.Grab, "grab", cfg.Grab, "EVIOCGRAB the keyboard so arrow keys don't reach other programs")
	fs.StringVar(&cfg.Script, "script", cfg.Script, "Event script to replay once connected (- for stdin)")
	fs.Float64Var(&cfg.ProbeSeconds, "probe-seconds", cfg.ProbeSeconds, "Seconds to probe each keyboard when auto-detecting (press arrows during this!)")
	fs.Float64Var(&cfg.PingSeconds, "ping-seconds", cfg.PingSeconds, "WebSocket ping interval (seconds)")
	fs.Float64Var(&cfg.PongTimeoutSeconds, "pong-timeout-seconds", cfg.PongTimeoutSeconds, "Drop the connection if no pong arrives in this window")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Debug logging (every event and command)")
	fs.BoolVar(&cfg.DumpEvents, "dump-events", cfg.DumpEvents, "Print raw input events (type/code/value). Noisy.")
	fs.BoolVar(&cfg.ListDevices, "list-devices", false, "Print /proc/bus/input/devices names/handlers and exit")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.WsURL == "" && strings.TrimSpace(c.Host) == "" {
		return errors.New("either --host or --url is required")
	}
	if c.NoKeyboard && c.Script == "" && !c.ListDevices {
		return errors.New("nothing to read: --no-keyboard needs --script")
	}
	return nil
}

// Endpoint returns the WebSocket URL to dial.
func (c Config) Endpoint() string {
	if c.WsURL != "" {
		return c.WsURL
	}
	return conn.EndpointURL(strings.TrimSpace(c.Host))
}

func (c Config) pingEvery() time.Duration {
	return seconds(math.Max(0.5, c.PingSeconds))
}

func (c Config) pongWait() time.Duration {
	return seconds(math.Max(1, c.PongTimeoutSeconds))
}

func (c Config) probeDuration() time.Duration {
	return seconds(math.Max(0.1, c.ProbeSeconds))
}

func seconds(s float64) time.Duration {
	return time.Duration(float64(time.Second) * s)
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	out, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(out) || math.IsInf(out, 0) {
		return def
	}
	return out
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "1" || v == "true" || v == "yes" || v == "y" {
		return true
	}
	if v == "0" || v == "false" || v == "no" || v == "n" {
		return false
	}
	return def
}
