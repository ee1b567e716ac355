package fanout

import (
	"fmt"
	"strings"
)

// Mode selects how a cycle dispatches its items.
type Mode string

const (
	// ModeSerial transforms items one after another without the executor.
	ModeSerial Mode = "serial"

	// ModeParallel dispatches one unit per item.
	ModeParallel Mode = "parallel"

	// ModeBatched dispatches one unit per fixed-size batch.
	ModeBatched Mode = "batched"

	// ModeAuto picks parallel or batched based on the executor's ceiling.
	ModeAuto Mode = "auto"
)

// Modes lists every mode in display order.
var Modes = []Mode{ModeSerial, ModeParallel, ModeBatched, ModeAuto}

// ParseMode parses a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown dispatch mode %q (want one of serial, parallel, batched, auto)", s)
}
