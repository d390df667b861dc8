package errors

import (
	stderrors "errors"
	"fmt"
	"math"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := New(ErrCodeInvalidRange, "z_min (%g) must not exceed z_max (%g)", 2.0, 1.0)

	want := "INVALID_RANGE: z_min (2) must not exceed z_max (1)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if UserMessage(err) != "z_min (2) must not exceed z_max (1)" {
		t.Errorf("UserMessage() = %q", UserMessage(err))
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(ErrCodeIO, cause, "write map.pgm")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error lost its cause")
	}
	if got := err.Error(); got != "IO_ERROR: write map.pgm: disk full" {
		t.Errorf("Error() = %q", got)
	}
}

func TestIsMatchesThroughWrapping(t *testing.T) {
	inner := New(ErrCodeInvalidResolution, "resolution must be > 0")
	outer := fmt.Errorf("validating options: %w", inner)

	if !Is(outer, ErrCodeInvalidResolution) {
		t.Error("Is should match through fmt.Errorf wrapping")
	}
	if Is(outer, ErrCodeInvalidRange) {
		t.Error("Is matched the wrong code")
	}
	if Is(stderrors.New("plain"), ErrCodeInvalidRange) {
		t.Error("Is matched a plain error")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodeFileNotFound, "missing")); got != ErrCodeFileNotFound {
		t.Errorf("GetCode = %v", got)
	}
	if got := GetCode(stderrors.New("plain")); got != "" {
		t.Errorf("GetCode on plain error = %q, want empty", got)
	}
}

func TestValidateHeightBand(t *testing.T) {
	tests := []struct {
		name       string
		zMin, zMax float64
		ok         bool
	}{
		{"ordered", 0, 1, true},
		{"equal", 1, 1, true},
		{"negative range", -5, -2, true},
		{"inverted", 2, 1, false},
		{"nan min", math.NaN(), 1, false},
		{"nan max", 0, math.NaN(), false},
		{"inf", 0, math.Inf(1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHeightBand(tt.zMin, tt.zMax)
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !Is(err, ErrCodeInvalidRange) {
				t.Errorf("error = %v, want %v", err, ErrCodeInvalidRange)
			}
		})
	}
}

func TestValidateResolution(t *testing.T) {
	if err := ValidateResolution(0.05); err != nil {
		t.Errorf("0.05 rejected: %v", err)
	}
	for _, v := range []float64{0, -0.1, math.NaN(), math.Inf(1)} {
		if !Is(ValidateResolution(v), ErrCodeInvalidResolution) {
			t.Errorf("resolution %g accepted", v)
		}
	}
}

func TestValidateMinOccupiedPoints(t *testing.T) {
	if err := ValidateMinOccupiedPoints(1); err != nil {
		t.Errorf("1 rejected: %v", err)
	}
	for _, n := range []int{0, -5} {
		if !Is(ValidateMinOccupiedPoints(n), ErrCodeInvalidThreshold) {
			t.Errorf("threshold %d accepted", n)
		}
	}
}

func TestValidateMapName(t *testing.T) {
	for _, name := range []string{"map", "floor2.pgm", "site-a_v2"} {
		if err := ValidateMapName(name); err != nil {
			t.Errorf("name %q rejected: %v", name, err)
		}
	}
	for _, name := range []string{"", "a/b", `a\b`, "../up", "x..y", "bad\x00name"} {
		if !Is(ValidateMapName(name), ErrCodeInvalidName) {
			t.Errorf("name %q accepted", name)
		}
	}
}
