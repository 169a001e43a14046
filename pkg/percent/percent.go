// Package percent converts between free-text percentages and fractions.
package percent

import (
	"errors"
	"math"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var (
	// ErrEmpty is returned when there is nothing to parse.
	ErrEmpty = errors.New("empty percentage")
	// ErrOutOfRange is returned for values outside 0% to 100%.
	ErrOutOfRange = errors.New("percentage out of range")
)

// Parse reads a share from user input. "25%" and "25 %" are percentages,
// a bare number such as "0.25" is already a fraction. The result is always
// within [0, 1].
func Parse(text string) (float64, error) {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0, ErrEmpty
	}

	isPercent := strings.HasSuffix(t, "%")
	if isPercent {
		t = strings.TrimSpace(strings.TrimSuffix(t, "%"))
	}

	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "invalid percentage %q", text)
	}
	if isPercent {
		v /= 100
	}

	if math.IsNaN(v) || v < 0 || v > 1 {
		return 0, pkgerrors.Wrapf(ErrOutOfRange, "%q is not between 0%% and 100%%", text)
	}

	return v, nil
}

// Delta parses text as the desired value of a share currently at current and
// returns the magnitude that moves it there.
func Delta(current float64, text string) (float64, error) {
	v, err := Parse(text)
	if err != nil {
		return 0, err
	}
	return v - current, nil
}

// Format renders v as a percentage with at most decimals fraction digits.
func Format(v float64, decimals int) string {
	return FormatIn(language.English, v, decimals)
}

// FormatIn is Format for a specific locale.
func FormatIn(tag language.Tag, v float64, decimals int) string {
	p := message.NewPrinter(tag)
	return p.Sprint(number.Percent(v, number.MaxFractionDigits(decimals)))
}
