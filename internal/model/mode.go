package model

import (
	"fmt"
	"strings"

	"github.com/san-kum/preisach/internal/preisach"
)

// Mode selects what Forward computes.
type Mode int

const (
	// Fitting replays the stored history; the input must equal HistoryH.
	Fitting Mode = iota
	// Regression replays the input from negative saturation.
	Regression
	// Next predicts each input independently as the next applied field.
	Next
	// Future continues the stored history with the input sequence.
	Future
	// Current returns the output at the last stored field.
	Current
)

var modeNames = map[Mode]string{
	Fitting:    "fitting",
	Regression: "regression",
	Next:       "next",
	Future:     "future",
	Current:    "current",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Valid reports whether m is one of the declared modes.
func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

// ParseMode accepts mode names case-insensitively.
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for m, n := range modeNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", preisach.ErrUnknownMode, s)
}
