package kelly

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyInput      = errors.New("kelly: not enough observations")
	ErrInvalidPrice    = errors.New("kelly: invalid price")
	ErrUndefinedBin    = errors.New("kelly: bin has no samples")
	ErrInvalidRank     = errors.New("kelly: rank outside bin range")
	ErrInvalidBinCount = errors.New("kelly: bin count must be >= 1")
	// ErrDegenerateRange is returned when every normalized value is equal and the
	// bins would have zero width. It also matches ErrInvalidPrice.
	ErrDegenerateRange = fmt.Errorf("%w: flat price series", ErrInvalidPrice)
)

// PriceError reports the offending observation.
type PriceError struct {
	Index int
	Price float64
}

func (e *PriceError) Error() string {
	return fmt.Sprintf("kelly: invalid price %v at index %d", e.Price, e.Index)
}

func (e *PriceError) Unwrap() error { return ErrInvalidPrice }

// BinError reports a lookup into a bin without backing samples.
type BinError struct {
	Bin  int
	Step int
}

func (e *BinError) Error() string {
	if e.Step > 0 {
		return fmt.Sprintf("kelly: bin %d has no samples (step %d)", e.Bin, e.Step)
	}
	return fmt.Sprintf("kelly: bin %d has no samples", e.Bin)
}

func (e *BinError) Unwrap() error { return ErrUndefinedBin }
