package model

import (
	"errors"
	"testing"

	"github.com/san-kum/preisach/internal/preisach"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"fitting", Fitting},
		{"REGRESSION", Regression},
		{" next ", Next},
		{"Future", Future},
		{"current", Current},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if err != nil {
			t.Errorf("ParseMode(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if back, _ := ParseMode(got.String()); back != got {
			t.Errorf("String round trip failed for %v", got)
		}
	}

	if _, err := ParseMode("backwards"); !errors.Is(err, preisach.ErrUnknownMode) {
		t.Errorf("expected ErrUnknownMode, got %v", err)
	}
	if Mode(9).String() != "mode(9)" {
		t.Errorf("unexpected name for unknown mode: %s", Mode(9))
	}
}
