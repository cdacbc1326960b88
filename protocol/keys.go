package protocol

import (
	"sort"

	"github.com/samber/lo"
)

// Key names as reported by keyboard sources.
const (
	KeyArrowUp    = "ArrowUp"
	KeyArrowDown  = "ArrowDown"
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
	KeySpace      = " "
)

var driveKeys = map[string]Command{
	KeyArrowUp:    Forward,
	KeyArrowDown:  Backward,
	KeyArrowLeft:  Left,
	KeyArrowRight: Right,
}

// DriveKey returns the drive command bound to key, if any.
func DriveKey(key string) (Command, bool) {
	c, ok := driveKeys[key]
	return c, ok
}

// IsStopKey reports whether key triggers a global stop.
func IsStopKey(key string) bool {
	return key == KeySpace || key == "Space"
}

// DriveKeys lists the bound direction keys, sorted.
func DriveKeys() []string {
	keys := lo.Keys(driveKeys)
	sort.Strings(keys)
	return keys
}
