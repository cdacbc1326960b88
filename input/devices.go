package input

// Keyboard selection helpers.
//
// Keyboards appear as /dev/input/eventX with a "kbd" handler. We support:
// - printing /proc/bus/input/devices (for debugging)
// - filtering event nodes that advertise the arrow keys
// - "probing" candidates for short activity to pick the one in use

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const procDevices = "/proc/bus/input/devices"

// DeviceInfo is one block of /proc/bus/input/devices.
type DeviceInfo struct {
	Name     string
	Handlers []string
}

// EventPath returns the /dev/input node for the device, if it has one.
func (d DeviceInfo) EventPath() string {
	for _, h := range d.Handlers {
		if strings.HasPrefix(h, "event") {
			return "/dev/input/" + h
		}
	}
	return ""
}

// IsKeyboard reports whether the kernel bound the keyboard handler.
func (d DeviceInfo) IsKeyboard() bool {
	for _, h := range d.Handlers {
		if h == "kbd" {
			return true
		}
	}
	return false
}

// ListDevices reads /proc/bus/input/devices.
func ListDevices() []DeviceInfo {
	b, err := os.ReadFile(procDevices)
	if err != nil {
		return nil
	}
	return parseProcDevices(string(b))
}

func parseProcDevices(s string) []DeviceInfo {
	blocks := strings.Split(s, "\n\n")
	var out []DeviceInfo
	for _, blk := range blocks {
		info := DeviceInfo{}
		for _, line := range strings.Split(blk, "\n") {
			if strings.HasPrefix(line, "N: Name=") {
				parts := strings.SplitN(line, "=", 2)
				if len(parts) == 2 {
					info.Name = strings.Trim(parts[1], " \"")
				}
			}
			if strings.HasPrefix(line, "H: Handlers=") {
				parts := strings.SplitN(line, "=", 2)
				if len(parts) == 2 {
					info.Handlers = strings.Fields(parts[1])
				}
			}
		}
		if info.Name != "" || len(info.Handlers) > 0 {
			out = append(out, info)
		}
	}
	return out
}

// keyboardCandidates returns event nodes of keyboard devices, most
// keyboard-like name first, then by path.
func keyboardCandidates(devs []DeviceInfo) []string {
	type cand struct {
		path  string
		score int
	}
	var cands []cand
	for _, d := range devs {
		path := d.EventPath()
		if path == "" || !d.IsKeyboard() {
			continue
		}
		score := 0
		ln := strings.ToLower(d.Name)
		if strings.Contains(ln, "keyboard") {
			score += 10
		}
		if strings.Contains(ln, "button") || strings.Contains(ln, "video bus") || strings.Contains(ln, "hotkey") {
			score -= 5
		}
		cands = append(cands, cand{path: path, score: score})
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].path < cands[j].path
	})
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.path)
	}
	return out
}

type devProbe struct {
	path   string
	arrows int
	space  int
	keys   int
	any    int
}

func (p devProbe) score() int {
	// Arrow presses beat any other key; any activity beats none.
	return p.any + 2*p.keys + 10*p.arrows + 5*p.space
}

func (p *devProbe) count(etype uint16, code uint16) {
	p.any++
	if etype != evKey {
		return
	}
	p.keys++
	switch code {
	case keyUp, keyDown, keyLeft, keyRight:
		p.arrows++
	case keySpace:
		p.space++
	}
}

func probeDevice(path string, dur time.Duration) (devProbe, error) {
	out := devProbe{path: path}
	f, err := os.Open(path)
	if err != nil {
		return out, err
	}
	defer f.Close()
	fd := int(f.Fd())

	if bits, err := keyBits(fd); err == nil && !hasDriveKeys(bits) {
		return out, errors.Errorf("%s has no arrow keys", path)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return out, err
	}

	reader := bufio.NewReaderSize(f, 4096)
	parser := &inputParser{}
	deadline := time.Now().Add(dur)

	for time.Now().Before(deadline) {
		pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		_, _ = unix.Poll(pfd, 50)
		if pfd[0].Revents&unix.POLLIN == 0 {
			continue
		}
		buf := make([]byte, 4096)
		n, err := reader.Read(buf)
		if err != nil || n == 0 {
			continue
		}
		parser.feed(buf[:n], func(etype uint16, code uint16, _ int32) {
			out.count(etype, code)
		})
	}
	return out, nil
}

// FindKeyboard picks the keyboard to read. An explicit path wins. With one
// candidate it is used directly; with several, each is probed for dur and the
// busiest wins (press arrow keys during this!).
func FindKeyboard(explicit string, probeDur time.Duration, logger *zap.SugaredLogger) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	cands := keyboardCandidates(ListDevices())
	if len(cands) == 0 {
		matches, _ := filepath.Glob("/dev/input/event*")
		sort.Strings(matches)
		cands = matches
	}
	if len(cands) == 0 {
		return "", errors.New("no /dev/input/event* devices found")
	}
	if len(cands) == 1 {
		return cands[0], nil
	}

	bestScore := -1
	best := ""
	for _, p := range cands {
		pr, err := probeDevice(p, probeDur)
		if err != nil {
			logger.Debugw("skipping device", "path", p, "error", err)
			continue
		}
		s := pr.score()
		logger.Debugw("probe", "path", p, "score", s, "any", pr.any, "keys", pr.keys, "arrows", pr.arrows, "space", pr.space)
		if s > bestScore {
			bestScore = s
			best = pr.path
		}
	}
	if best == "" {
		return "", errors.Errorf("no usable keyboard among %d candidates", len(cands))
	}
	logger.Debugw("selected keyboard", "path", best, "score", bestScore)
	return best, nil
}
