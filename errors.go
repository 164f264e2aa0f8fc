package bingo

import (
	"errors"
	"fmt"
)

// ErrGenerationFailed is returned when every attempt within the attempt
// budget failed to produce a complete grid.
var ErrGenerationFailed = errors.New("failed to generate a bingo grid, please try again")

// ErrInvalidSize is returned when a grid size is below MinSize.
var ErrInvalidSize = fmt.Errorf("grid size must be at least %d", MinSize)

// InsufficientPoolError indicates that the filtered problem pool is smaller
// than the number of cells that need a problem. The message is meant to be
// shown to users as-is.
type InsufficientPoolError struct {
	Required int
	Actual   int
}

func (e *InsufficientPoolError) Error() string {
	return fmt.Sprintf("not enough problems to fill the grid (need: %d / available: %d)", e.Required, e.Actual)
}

// IsInsufficientPool reports whether err (or anything it wraps) is an
// InsufficientPoolError, and returns it if so.
func IsInsufficientPool(err error) (*InsufficientPoolError, bool) {
	var target *InsufficientPoolError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
