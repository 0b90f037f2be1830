package selection

import (
	"math"
	"strings"

	"github.com/wonny/openscreen/internal/contracts"
	"github.com/wonny/openscreen/internal/headers"
	"github.com/wonny/openscreen/internal/parse"
)

// undatedKey groups rows whose date cell does not parse
const undatedKey = "nodate"

// Selector implements P3: per-symbol representative candle and best-by-volume pick
// ⭐ SSOT: candidate selection logic lives here only
type Selector struct {
	tolerance float64
}

// NewSelector creates a selector comparing prices within tolerance
func NewSelector(tolerance float64) *Selector {
	if tolerance <= 0 {
		tolerance = parse.DefaultTolerance
	}
	return &Selector{tolerance: tolerance}
}

// symbolGroup keeps a symbol's rows in encounter order
type symbolGroup struct {
	symbol string
	rows   []contracts.Row
}

// Select returns the best long (open ≈ low) and best short (open ≈ high)
// candidates among rows. Either may be nil.
func (s *Selector) Select(rows []contracts.Row, roles headers.Roles) (long, short *contracts.Candidate) {
	longs := make([]contracts.Candidate, 0)
	shorts := make([]contracts.Candidate, 0)

	openHdr, _ := roles.Header(headers.RoleOpen)
	highHdr, _ := roles.Header(headers.RoleHigh)
	lowHdr, _ := roles.Header(headers.RoleLow)
	volHdr, _ := roles.Header(headers.RoleVolume)

	for _, g := range groupBySymbol(rows, roles) {
		candle, ok := s.representative(g.rows, roles)
		if !ok {
			continue
		}

		open := parse.Num(candle.Get(openHdr))
		high := parse.Num(candle.Get(highHdr))
		low := parse.Num(candle.Get(lowHdr))
		if !open.Valid || !high.Valid || !low.Valid {
			continue
		}

		c := contracts.Candidate{
			Symbol: g.symbol,
			Row:    candle,
			Volume: parse.Num(candle.Get(volHdr)).Or(0),
		}
		if parse.ApproxEqualWithin(open, low, s.tolerance) {
			longs = append(longs, c)
		}
		if parse.ApproxEqualWithin(open, high, s.tolerance) {
			shorts = append(shorts, c)
		}
	}

	return bestByVolume(longs), bestByVolume(shorts)
}

// groupBySymbol groups rows by trimmed symbol in first-seen order.
// Rows without a symbol are left out.
func groupBySymbol(rows []contracts.Row, roles headers.Roles) []symbolGroup {
	symHdr, ok := roles.Header(headers.RoleSymbol)
	if !ok {
		return nil
	}

	groups := make([]symbolGroup, 0)
	pos := make(map[string]int)
	for _, r := range rows {
		// padded cells join their trimmed symbol; raw-cell grouping would split " AAA" from "AAA"
		sym := strings.TrimSpace(r.Get(symHdr))
		if sym == "" {
			continue
		}
		i, seen := pos[sym]
		if !seen {
			i = len(groups)
			pos[sym] = i
			groups = append(groups, symbolGroup{symbol: sym})
		}
		groups[i].rows = append(groups[i].rows, r)
	}
	return groups
}

// representative picks a symbol's first candle of its latest date.
// Any undated row makes the undated set win over every dated group.
func (s *Selector) representative(rows []contracts.Row, roles headers.Roles) (contracts.Row, bool) {
	if len(rows) == 0 {
		return contracts.Row{}, false
	}

	dateHdr, _ := roles.Header(headers.RoleDate)
	byDate := make(map[string][]contracts.Row)
	latest := ""
	for _, r := range rows {
		key, ok := parse.DateKey(r.Get(dateHdr))
		if !ok {
			key = undatedKey
		} else if key > latest {
			latest = key
		}
		byDate[key] = append(byDate[key], r)
	}

	if undated, ok := byDate[undatedKey]; ok {
		return earliestByTime(undated, roles), true
	}
	return earliestByTime(byDate[latest], roles), true
}

// earliestByTime returns the row with the smallest valid time of day,
// or the first row when there is no time column or no valid time.
func earliestByTime(rows []contracts.Row, roles headers.Roles) contracts.Row {
	timeHdr, ok := roles.Header(headers.RoleTime)
	if !ok {
		return rows[0]
	}

	best := -1
	bestMin := math.Inf(1)
	for i, r := range rows {
		mins := parse.TimeOfDay(r.Get(timeHdr))
		if !mins.Valid {
			continue
		}
		if mins.Value < bestMin {
			bestMin = mins.Value
			best = i
		}
	}
	if best < 0 {
		return rows[0]
	}
	return rows[best]
}

// bestByVolume returns the strictly highest-volume candidate; first seen wins ties
func bestByVolume(cands []contracts.Candidate) *contracts.Candidate {
	if len(cands) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(cands); i++ {
		if cands[i].Volume > cands[best].Volume {
			best = i
		}
	}
	c := cands[best]
	return &c
}
