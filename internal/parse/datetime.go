package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateKeyLayout formats a parsed date as its grouping key.
// Keys sort lexicographically in chronological order.
const DateKeyLayout = "2006-01-02"

// generalLayouts are tried first, in order. Numeric forms read month first
// ("05/01/2024" is 1 May); only dates that fail that reading reach the D/M/Y
// fallback ("13/01/2024").
var generalLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"2006/01/02 15:04:05",
	"2006.01.02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1-2-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"02-Jan-06",
	"Mon, 02 Jan 2006",
	"Mon Jan 2 2006",
	time.RFC1123,
	time.RFC1123Z,
}

var dmy = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})$`)

// Date reads a calendar date. It returns false when the text is neither a
// recognised general form nor a strict D/M/Y or D-M-Y date.
// "04/02/2024" is 2 April; "31/02/2024" rolls over to 2 March.
// Zoned timestamps keep their own offset so the wall date is preserved.
func Date(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range generalLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	m := dmy.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	d, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	y, _ := strconv.Atoi(m[3])
	// out-of-range day/month roll over the way calendar arithmetic does
	return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC), true
}

// DateKey returns the YYYY-MM-DD grouping key of a date cell
func DateKey(raw string) (string, bool) {
	t, ok := Date(raw)
	if !ok {
		return "", false
	}
	return t.Format(DateKeyLayout), true
}

var clock = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)

// TimeOfDay reads "H:MM" or "H:MM:SS" as minutes since midnight.
// Seconds are validated but ignored.
func TimeOfDay(raw string) Number {
	m := clock.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return None()
	}
	hh, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	if hh > 23 || mm > 59 {
		return None()
	}
	if m[3] != "" {
		if ss, _ := strconv.Atoi(m[3]); ss > 59 {
			return None()
		}
	}
	return Some(float64(hh*60 + mm))
}
