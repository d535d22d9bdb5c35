// Package sanitize converts free-text numeric fields into usable numbers.
//
// Every reader of latitude, longitude, price, size, price-per-unit and cap
// rate goes through this package, either directly via Parse or through the
// SQL expressions rendered by PostgresExpr and SQLiteExpr, so the filtering, binning and statistics
// paths cannot disagree about which values are usable.
package sanitize

import (
	"fmt"
	"regexp"
	"strconv"
)

// Pattern is the accepted numeric shape: optional sign, digits, optional
// fractional part. No whitespace, separators or exponents. Each digit run is
// capped at MaxDigits so every accepted value converts to a finite, normal
// double in Go and PostgreSQL alike; longer runs are unusable, not errors.
const Pattern = `^[-+]?[0-9]{1,255}(\.[0-9]{1,255})?$`

// MaxDigits bounds the integer and fractional digit runs Pattern accepts.
// 255 is also the largest bound PostgreSQL regular expressions allow.
const MaxDigits = 255

var numericRe = regexp.MustCompile(Pattern)

// Kind selects the validation rule for a field.
type Kind int

const (
	// Coordinate accepts any value matching Pattern, including negatives.
	Coordinate Kind = iota
	// Currency requires a value strictly greater than zero.
	Currency
	// Size requires a value strictly greater than zero.
	Size
	// Percent requires a value strictly greater than zero (cap rates).
	Percent
)

func (k Kind) String() string {
	switch k {
	case Coordinate:
		return "coordinate"
	case Currency:
		return "currency"
	case Size:
		return "size"
	case Percent:
		return "percent"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// positive reports whether the kind rejects zero and negative values.
func (k Kind) positive() bool {
	return k != Coordinate
}

// Parse returns the numeric value of raw and true, or 0 and false when raw is
// not usable for the given kind.
func Parse(raw string, kind Kind) (float64, bool) {
	if !numericRe.MatchString(raw) {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	if kind.positive() && v <= 0 {
		return 0, false
	}
	return v, true
}

// Ptr is Parse returning nil for unusable values.
func Ptr(raw string, kind Kind) *float64 {
	v, ok := Parse(raw, kind)
	if !ok {
		return nil
	}
	return &v
}
