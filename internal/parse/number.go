// Package parse converts raw CSV cell text into numbers, market caps, dates
// and times of day. Parsers never fail loudly: a cell that cannot be read
// yields an invalid Number (or a false ok flag) and the caller decides what
// exclusion that implies.
package parse

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultTolerance is the absolute tolerance of ApproxEqual
const DefaultTolerance = 1e-6

// Number is an optional parsed number. Valid is false for unreadable cells.
type Number struct {
	Value float64
	Valid bool
}

// Some wraps a finite value; non-finite values become None.
func Some(v float64) Number {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return None()
	}
	return Number{Value: v, Valid: true}
}

// None is the unreadable number
func None() Number {
	return Number{}
}

// Or returns the value, or def when invalid
func (n Number) Or(def float64) float64 {
	if !n.Valid {
		return def
	}
	return n.Value
}

// Float returns the value, or NaN when invalid
func (n Number) Float() float64 {
	return n.Or(math.NaN())
}

// String formats the number in the shortest form that reparses exactly
func (n Number) String() string {
	if !n.Valid {
		return "NaN"
	}
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

var numberToken = regexp.MustCompile(`(?i)[-+]?\d*\.?\d+(e[-+]?\d+)?`)

// Num extracts the first signed decimal token after dropping thousands
// separators, so "1,234.5", "₹ 980" and "12.5%" all read as numbers.
func Num(raw string) Number {
	s := strings.TrimSpace(raw)
	if s == "" {
		return None()
	}
	s = strings.ReplaceAll(s, ",", "")
	m := numberToken.FindString(s)
	if m == "" {
		return None()
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return None()
	}
	return Some(v)
}

// ApproxEqual reports |a-b| <= DefaultTolerance with both valid
func ApproxEqual(a, b Number) bool {
	return ApproxEqualWithin(a, b, DefaultTolerance)
}

// ApproxEqualWithin reports |a-b| <= tol; invalid numbers equal nothing
func ApproxEqualWithin(a, b Number, tol float64) bool {
	if !a.Valid || !b.Valid {
		return false
	}
	return math.Abs(a.Value-b.Value) <= tol
}
