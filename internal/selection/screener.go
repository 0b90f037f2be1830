package selection

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/openscreen/internal/contracts"
	"github.com/wonny/openscreen/internal/headers"
	"github.com/wonny/openscreen/internal/parse"
	"github.com/wonny/openscreen/pkg/logger"
)

// Full-screener gates. These are fixed absolute thresholds.
const (
	VolumeSurgeFactor  = 1.5     // volume must exceed 1.5 × 5-day average
	MinClose           = 200.0   // close price floor
	MinMarketCapCrores = 10000.0 // market cap floor in crores
)

// Screener implements P2: opening-extreme screening and labeling
// ⭐ SSOT: screening logic lives here only
type Screener struct {
	config   ScreenerConfig
	selector *Selector
	logger   *logger.Logger
}

// ScreenerConfig defines screening parameters
// SSOT: profile screening section
type ScreenerConfig struct {
	Tolerance float64 // absolute tolerance of open ≈ high / open ≈ low
}

// NewScreener creates a new screener
func NewScreener(config ScreenerConfig, logger *logger.Logger) *Screener {
	if config.Tolerance <= 0 {
		config.Tolerance = parse.DefaultTolerance
	}
	return &Screener{
		config:   config,
		selector: NewSelector(config.Tolerance),
		logger:   logger,
	}
}

// DefaultScreenerConfig returns default configuration
func DefaultScreenerConfig() ScreenerConfig {
	return ScreenerConfig{
		Tolerance: parse.DefaultTolerance,
	}
}

// columns are the headers one run reads, resolved once up front
type columns struct {
	open, high, low   string
	volume, avgVolume string
	close, marketCap  string
}

// Screen filters the dataset for req.Mode and labels the chosen long/short rows.
// Precondition failures return before anything is built; per-row parse
// failures only exclude the row.
func (s *Screener) Screen(ctx context.Context, ds *contracts.Dataset, req contracts.ScreenRequest) (*contracts.ScreenResult, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ds.IsEmpty() {
		return nil, ErrEmptyDataset
	}

	roles := headers.Resolve(ds.Headers)
	if missing := roles.Missing(headers.RoleOpen, headers.RoleHigh, headers.RoleLow); len(missing) > 0 {
		return nil, &MissingColumnsError{Kind: ErrMissingColumns, Roles: missing}
	}
	if req.Mode == contracts.ModeFull {
		missing := roles.Missing(headers.RoleVolume, headers.RoleAvgVolume, headers.RoleClose, headers.RoleMarketCap)
		if len(missing) > 0 {
			return nil, &MissingColumnsError{Kind: ErrMissingFullColumns, Roles: missing}
		}
	}

	cols := resolveColumns(roles)
	filtered := make(map[string]int) // Filter name -> count

	// Stage 1: open/high/low pattern
	passed := make([]contracts.Row, 0)
	for _, row := range ds.Rows {
		if reason := s.checkPattern(row, cols, req.Mode); reason != "" {
			filtered[reason]++
			continue
		}
		passed = append(passed, row)
	}

	// Stage 2: volume / price / market cap / gain (full only)
	if req.Mode == contracts.ModeFull {
		minGain := req.MinGainPct / 100
		kept := make([]contracts.Row, 0, len(passed))
		for _, row := range passed {
			if reason := s.checkFull(row, cols, minGain); reason != "" {
				filtered[reason]++
				continue
			}
			kept = append(kept, row)
		}
		passed = kept
	}

	long, short := s.selector.Select(passed, roles)
	view := labelRows(passed, long, short)

	result := &contracts.ScreenResult{
		RunID:       uuid.NewString(),
		Mode:        req.Mode,
		MinGainPct:  req.MinGainPct,
		Roles:       roles,
		Rows:        view,
		Long:        long,
		Short:       short,
		Filtered:    filtered,
		InputCount:  ds.Len(),
		OutputCount: len(view),
		Duration:    time.Since(start),
	}

	s.logger.WithStage(contracts.StageScreen.String()).WithFields(map[string]interface{}{
		"run_id":       result.RunID,
		"mode":         req.Mode,
		"total_input":  result.InputCount,
		"passed":       result.OutputCount,
		"filtered_out": result.InputCount - result.OutputCount,
		"filters":      filtered,
		"buy":          result.LongSymbol(),
		"sell":         result.ShortSymbol(),
	}).Info("Screening completed")

	return result, nil
}

func resolveColumns(roles headers.Roles) columns {
	var c columns
	c.open, _ = roles.Header(headers.RoleOpen)
	c.high, _ = roles.Header(headers.RoleHigh)
	c.low, _ = roles.Header(headers.RoleLow)
	c.volume, _ = roles.Header(headers.RoleVolume)
	c.avgVolume, _ = roles.Header(headers.RoleAvgVolume)
	c.close, _ = roles.Header(headers.RoleClose)
	c.marketCap, _ = roles.Header(headers.RoleMarketCap)
	return c
}

// checkPattern applies the mode predicate.
// Returns empty string if passed, otherwise returns filter name
func (s *Screener) checkPattern(row contracts.Row, cols columns, mode contracts.Mode) string {
	open := parse.Num(row.Get(cols.open))
	high := parse.Num(row.Get(cols.high))
	low := parse.Num(row.Get(cols.low))
	if !open.Valid || !high.Valid || !low.Valid {
		return "ohl_parse"
	}

	atHigh := parse.ApproxEqualWithin(open, high, s.config.Tolerance)
	atLow := parse.ApproxEqualWithin(open, low, s.config.Tolerance)

	var ok bool
	switch mode {
	case contracts.ModeOpenHigh:
		ok = atHigh
	case contracts.ModeOpenLow:
		ok = atLow
	case contracts.ModeOpenHighLow:
		ok = atHigh && atLow
	case contracts.ModeFull:
		ok = atHigh || atLow
	default:
		// unknown modes screen everything out
		return "unknown_mode"
	}
	if !ok {
		return "pattern"
	}
	return ""
}

// checkFull applies the full-screener gates to a row that passed stage 1.
// minGain is a fraction (0.02 = 2%); zero or less disables the gain gate.
func (s *Screener) checkFull(row contracts.Row, cols columns, minGain float64) string {
	vol := parse.Num(row.Get(cols.volume))
	avgVol := parse.Num(row.Get(cols.avgVolume))
	closePx := parse.Num(row.Get(cols.close))
	if !vol.Valid || !avgVol.Valid || !closePx.Valid {
		return "volume_parse"
	}

	if !(vol.Value > VolumeSurgeFactor*avgVol.Value) {
		return "volume_surge"
	}

	if !(closePx.Value > MinClose) {
		return "min_close"
	}

	mcap := parse.MarketCapCrores(row.Get(cols.marketCap))
	if !mcap.Valid || !(mcap.Value > MinMarketCapCrores) {
		return "market_cap"
	}

	if minGain > 0 {
		open := parse.Num(row.Get(cols.open))
		atHigh := parse.ApproxEqualWithin(open, parse.Num(row.Get(cols.high)), s.config.Tolerance)
		atLow := parse.ApproxEqualWithin(open, parse.Num(row.Get(cols.low)), s.config.Tolerance)

		// open at low must close up by minGain; open at high must close down by it
		if atLow && !(closePx.Value >= open.Value*(1+minGain)) {
			return "min_gain"
		}
		if atHigh && !(closePx.Value <= open.Value*(1-minGain)) {
			return "min_gain"
		}
		if !atLow && !atHigh {
			return "min_gain"
		}
	}

	return ""
}

// labelRows builds the output view, marking the candidates' rows by index.
// When one row is both the best long and the best short, SELL wins.
func labelRows(rows []contracts.Row, long, short *contracts.Candidate) []contracts.LabeledRow {
	view := contracts.Unlabeled(rows)
	mark := func(c *contracts.Candidate, label contracts.Label) {
		if c == nil {
			return
		}
		for i := range view {
			if view[i].Index == c.Row.Index {
				view[i].Label = label
				return
			}
		}
	}
	mark(long, contracts.SideBuy.Label())
	mark(short, contracts.SideSell.Label())
	return view
}
