package nn

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch is returned when an input, target or parameter block
// does not have the length a layer or loss expects.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// DimensionError describes a rejected length.
type DimensionError struct {
	Op   string
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: %v: want %d, got %d", e.Op, ErrDimensionMismatch, e.Want, e.Got)
}

// Unwrap makes errors.Is(err, ErrDimensionMismatch) hold.
func (e *DimensionError) Unwrap() error { return ErrDimensionMismatch }

func checkLen(op string, want, got int) error {
	if want != got {
		return &DimensionError{Op: op, Want: want, Got: got}
	}
	return nil
}
