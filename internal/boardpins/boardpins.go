// Package boardpins resolves a default (SDA, SCL) GPIO pin pair for the
// running board, the way the teacher's distro.DTModel() identifies a board
// from the device tree to pick board-specific behavior. Detection is a
// convenience only: the original project hardcoded its pin numbers
// (original_source/src/emulation/hw_thread.rs: PIN_SCL=24, PIN_SDA=25); this
// package exists so a user doesn't have to know those numbers, not to
// replace the ability to pass -sda/-scl explicitly.
package boardpins

import (
	"os"
	"strings"
)

// Pins is a board's default SDA/SCL line numbers.
type Pins struct {
	SDA, SCL int
}

// modelPins maps a substring of /proc/device-tree/model to a default pin
// pair. Entries are checked in order; the first match wins.
var modelPins = []struct {
	substr string
	pins   Pins
}{
	{"Raspberry Pi", Pins{SDA: 2, SCL: 3}},
	{"OrangePi", Pins{SDA: 12, SCL: 11}},
	{"NanoPi", Pins{SDA: 12, SCL: 11}},
}

// Detect reads /proc/device-tree/model and returns the matching default pin
// pair. ok is false if the file couldn't be read or no entry matched, in
// which case the caller should fall back to explicit -sda/-scl flags.
func Detect() (p Pins, ok bool) {
	model, err := readDTModel()
	if err != nil {
		return Pins{}, false
	}
	return match(model)
}

func match(model string) (p Pins, ok bool) {
	for _, m := range modelPins {
		if strings.Contains(model, m.substr) {
			return m.pins, true
		}
	}
	return Pins{}, false
}

// readDTModel is a variable so tests can substitute a fixed board model
// string without touching the filesystem.
var readDTModel = func() (string, error) {
	b, err := os.ReadFile("/proc/device-tree/model")
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\x00\n"), nil
}
