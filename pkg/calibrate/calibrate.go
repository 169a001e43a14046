package calibrate

import (
	"math"

	pkgerrors "github.com/pkg/errors"

	"github.com/charlie0129/apportion/pkg/series"
)

const (
	// StandardPrecision is the precision used by the CLI and daemon unless
	// configured otherwise: shares are whole within 0.0001.
	StandardPrecision = 4
	// StandardMagnitude is the step of a single increment or decrement.
	StandardMagnitude = 0.01
	// MaxPrecision is the largest accepted precision.
	MaxPrecision = 16
)

// Epsilon returns the tolerance 10^-precision.
func Epsilon(precision int) float64 {
	return math.Pow(10, -float64(precision))
}

// Sum adds up all shares in float64.
func Sum[F series.Float](s series.Series[F]) float64 {
	var sum float64
	for i := 0; i < s.Len(); i++ {
		sum += float64(s.At(i))
	}
	return sum
}

// Proportionate reports whether s sums to one within Epsilon(precision).
func Proportionate[F series.Float](s series.Series[F], precision int) bool {
	return math.Abs(Sum(s)-1) <= Epsilon(precision)
}

// Shift adds magnitude to the share at target and spreads the opposite amount
// over every other share, so that the series still sums to one within
// Epsilon(precision). All shares stay within [0, 1].
//
// When the target reaches 1, every other share becomes exactly 0. When the
// target would drop below 0, it stops at 0 and only what it actually gave up
// is redistributed.
//
// Shift returns false without touching s when magnitude is 0, s has fewer
// than two shares, or the target already sits at the limit it is being
// pushed towards.
func Shift[F series.Float](s series.Series[F], target int, magnitude float64, precision int) (bool, error) {
	if err := validatePrecision(precision); err != nil {
		return false, err
	}
	if math.IsNaN(magnitude) || magnitude > 1 || magnitude < -1 {
		return false, pkgerrors.Wrapf(ErrInvalidArgument, "magnitude must be between -1 and 1, got %v", magnitude)
	}

	n := s.Len()
	if magnitude == 0 || n < 2 {
		return false, nil
	}
	if err := validateIndex(target, n); err != nil {
		return false, err
	}

	current := float64(s.At(target))
	if (current <= 0 && magnitude < 0) || (current >= 1 && magnitude > 0) {
		return false, nil
	}

	next := current + magnitude
	if next >= 1 {
		s.Set(target, 1)
		for i := 0; i < n; i++ {
			if i != target {
				s.Set(i, 0)
			}
		}
		return true, nil
	}

	offset := -magnitude
	if next <= 0 {
		// The target can only give up what it had.
		offset += next
		next = 0
	}
	s.Set(target, F(next))

	redistribute(s, target, offset, magnitude > 0, Epsilon(precision))

	return true, nil
}

// redistribute spreads offset evenly over every share except target. A share
// that would cross 0 (shrinking) or 1 (growing) is clamped there and excluded
// for the rest of the call; the part it could not absorb goes to the others
// on the next pass. Each pass either absorbs the whole offset or excludes at
// least one share, so there are at most n passes.
func redistribute[F series.Float](s series.Series[F], target int, offset float64, shrinking bool, eps float64) {
	n := s.Len()

	excluded := make([]bool, n)
	excluded[target] = true
	count := 1

	// Shares already at the limit cannot absorb anything in this direction.
	for i := 0; i < n; i++ {
		if excluded[i] {
			continue
		}
		v := float64(s.At(i))
		if (shrinking && v <= 0) || (!shrinking && v >= 1) {
			excluded[i] = true
			count++
		}
	}

	for pass := 0; pass < n && math.Abs(offset) >= eps && count < n; pass++ {
		allocation := offset / float64(n-count)
		for i := 0; i < n; i++ {
			if excluded[i] {
				continue
			}

			v := float64(s.At(i))
			next := v + allocation
			switch {
			case next < 0:
				next = 0
				excluded[i] = true
				count++
			case next > 1:
				next = 1
				excluded[i] = true
				count++
			}

			s.Set(i, F(next))
			offset -= next - v
		}
	}
}

// Reset assigns 1/n to every share when force is set or when s does not sum
// to one within Epsilon(precision).
func Reset[F series.Float](s series.Series[F], force bool, precision int) (bool, error) {
	if err := validatePrecision(precision); err != nil {
		return false, err
	}

	n := s.Len()
	if n == 0 {
		return false, ErrEmptySeries
	}
	if !force && Proportionate(s, precision) {
		return false, nil
	}

	share := F(1) / F(n)
	for i := 0; i < n; i++ {
		s.Set(i, share)
	}

	return true, nil
}

// Recalibrate is the gentle form of Reset. Under the same condition it adds
// (1 - sum) / n to every share and clamps the result into [0, 1], keeping the
// shares' relative differences. It is meant to absorb floating point drift
// that builds up over many Shift calls.
func Recalibrate[F series.Float](s series.Series[F], force bool, precision int) (bool, error) {
	if err := validatePrecision(precision); err != nil {
		return false, err
	}

	n := s.Len()
	if n == 0 {
		return false, ErrEmptySeries
	}
	if !force && Proportionate(s, precision) {
		return false, nil
	}

	residual := (1 - Sum(s)) / float64(n)
	for i := 0; i < n; i++ {
		v := float64(s.At(i)) + residual
		s.Set(i, F(math.Min(1, math.Max(0, v))))
	}

	return true, nil
}

// Remove deletes the share at index and lets the remaining shares absorb its
// value through Recalibrate. It reports whether a redistribution took place.
// Removing the last share leaves an empty series and returns false.
func Remove[F series.Float](s series.Deleter[F], index int, precision int) (bool, error) {
	if err := validatePrecision(precision); err != nil {
		return false, err
	}
	if err := validateIndex(index, s.Len()); err != nil {
		return false, err
	}

	s.Delete(index)
	if s.Len() == 0 {
		return false, nil
	}

	return Recalibrate[F](s, false, precision)
}
