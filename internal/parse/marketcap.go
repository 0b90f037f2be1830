package parse

import (
	"regexp"
	"strconv"
	"strings"
)

// crore multipliers by unit suffix.
// The million/billion/thousand factors follow the upload convention these
// screens were built against and are kept as-is.
var croreMultipliers = map[string]float64{
	"cr":       1,
	"crs":      1,
	"crore":    1,
	"crores":   1,
	"l":        0.01,
	"lakh":     0.01,
	"lakhs":    0.01,
	"lac":      0.01,
	"lacs":     0.01,
	"m":        0.1,
	"mn":       0.1,
	"million":  0.1,
	"millions": 0.1,
	"b":        100,
	"bn":       100,
	"billion":  100,
	"billions": 100,
	"k":        0.00001,
	"thousand": 0.00001,
}

var (
	plainNumeric = regexp.MustCompile(`^[\d,.]+$`)
	unitValue    = regexp.MustCompile(`([\d,.]*\d(?:\.\d+)?)\s*([a-zA-Z]+)`)
)

// MarketCapCrores reads a market cap in crores. Bare numbers are taken as
// crores already; "50 lakh", "2 bn", "1,200 Cr" are converted by suffix.
// Unknown suffixes are unreadable.
func MarketCapCrores(raw string) Number {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return None()
	}

	if plainNumeric.MatchString(strings.Join(strings.Fields(s), "")) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		if err != nil {
			return None()
		}
		return Some(v)
	}

	m := unitValue.FindStringSubmatch(s)
	if m == nil {
		return None()
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return None()
	}
	mult, ok := croreMultipliers[m[2]]
	if !ok {
		return None()
	}
	return Some(v * mult)
}
