package calibrate

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrInvalidArgument is returned for out-of-range precision, magnitude or
	// index. It always indicates a bug in the caller.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmptySeries is returned when an operation needs at least one share.
	ErrEmptySeries = pkgerrors.Wrap(ErrInvalidArgument, "series is empty")
)

func validatePrecision(precision int) error {
	if precision < 0 || precision > MaxPrecision {
		return pkgerrors.Wrapf(ErrInvalidArgument, "precision must be between 0 and %d, got %d", MaxPrecision, precision)
	}
	return nil
}

func validateIndex(index, n int) error {
	if index < 0 || index >= n {
		return pkgerrors.Wrapf(ErrInvalidArgument, "index %d out of range [0, %d)", index, n)
	}
	return nil
}
