package contracts

import (
	"fmt"
	"time"

	"github.com/wonny/openscreen/internal/headers"
)

// Mode selects the row-level predicate of a screening run
type Mode string

const (
	ModeOpenHigh    Mode = "openHigh"    // open ≈ high
	ModeOpenLow     Mode = "openLow"     // open ≈ low
	ModeOpenHighLow Mode = "openHighLow" // open ≈ high AND open ≈ low
	ModeFull        Mode = "full"        // open ≈ high OR open ≈ low, plus volume/price/mcap/gain gates
)

// AllModes returns the supported screening modes
func AllModes() []Mode {
	return []Mode{ModeOpenHigh, ModeOpenLow, ModeOpenHighLow, ModeFull}
}

// IsValid checks if the mode is one of the supported modes
func (m Mode) IsValid() bool {
	for _, mode := range AllModes() {
		if m == mode {
			return true
		}
	}
	return false
}

// String returns the mode name
func (m Mode) String() string {
	return string(m)
}

// ScreenRequest carries the caller's choice for one screening run
type ScreenRequest struct {
	Mode       Mode    `json:"mode"`
	MinGainPct float64 `json:"min_gain_pct"` // percent, 0 disables the gain gate
}

// Candidate is a symbol's representative candle that passed classification
type Candidate struct {
	Symbol string  `json:"symbol"`
	Row    Row     `json:"row"`
	Volume float64 `json:"volume"`
}

// ScreenResult is the new filtered view produced by one screening run
// ⭐ SSOT: Screener → Session/API/CLI result handoff
type ScreenResult struct {
	RunID       string         `json:"run_id"`
	Mode        Mode           `json:"mode"`
	MinGainPct  float64        `json:"min_gain_pct"`
	Roles       headers.Roles  `json:"roles"`
	Rows        []LabeledRow   `json:"rows"`
	Long        *Candidate     `json:"long,omitempty"`
	Short       *Candidate     `json:"short,omitempty"`
	Plans       []TradePlan    `json:"plans"`
	Filtered    map[string]int `json:"filtered"` // exclusion reason -> row count
	InputCount  int            `json:"input_count"`
	OutputCount int            `json:"output_count"`
	ProfileHash string         `json:"profile_hash,omitempty"`
	Duration    time.Duration  `json:"duration"`
}

// LongSymbol returns the chosen BUY symbol or "None"
func (r *ScreenResult) LongSymbol() string {
	if r == nil || r.Long == nil {
		return "None"
	}
	return r.Long.Symbol
}

// ShortSymbol returns the chosen SELL symbol or "None"
func (r *ScreenResult) ShortSymbol() string {
	if r == nil || r.Short == nil {
		return "None"
	}
	return r.Short.Symbol
}

// Summary renders the one-line run summary shown next to the table
func (r *ScreenResult) Summary() string {
	return fmt.Sprintf("Filter: %s — results %d. Selected BUY: %s | SELL: %s",
		r.Mode, len(r.Rows), r.LongSymbol(), r.ShortSymbol())
}

// CountLabel counts rows carrying the given label
func (r *ScreenResult) CountLabel(label Label) int {
	count := 0
	for _, row := range r.Rows {
		if row.Label == label {
			count++
		}
	}
	return count
}
