package execution

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/wonny/openscreen/internal/contracts"
	"github.com/wonny/openscreen/internal/headers"
	"github.com/wonny/openscreen/internal/parse"
	"github.com/wonny/openscreen/pkg/logger"
)

// Planner implements P4: trade planning from the chosen candles
// ⭐ SSOT: entry/stop/target math lives here only
type Planner struct {
	config PlannerConfig
	logger *logger.Logger
}

// PlannerConfig defines the percentage plan
// SSOT: profile plan section
type PlannerConfig struct {
	EntryRetracePct float64 // share of the candle range retraced for entry (0.40)
	RiskPct         float64 // stop distance as a share of entry (0.01)
	RewardPct       float64 // target distance as a share of entry (0.015)
}

// DefaultPlannerConfig returns default configuration
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		EntryRetracePct: 0.40,
		RiskPct:         0.01,
		RewardPct:       0.015,
	}
}

// NewPlanner creates a new trade planner
func NewPlanner(config PlannerConfig, logger *logger.Logger) *Planner {
	return &Planner{
		config: config,
		logger: logger,
	}
}

// PlanPair plans the BUY (long) and SELL (short) candidates of one run.
// ok is false when neither side yields a plan ("no plan available").
func (p *Planner) PlanPair(ctx context.Context, ds *contracts.Dataset, roles headers.Roles, long, short *contracts.Candidate) ([]contracts.TradePlan, bool) {
	plans := make([]contracts.TradePlan, 0, 2)
	var hdrs []string
	if ds != nil {
		hdrs = ds.Headers
	}

	if long != nil {
		if plan, ok := p.Plan(long.Row, contracts.SideBuy, roles, hdrs); ok {
			plans = append(plans, plan)
		}
	}
	if short != nil {
		if plan, ok := p.Plan(short.Row, contracts.SideSell, roles, hdrs); ok {
			plans = append(plans, plan)
		}
	}

	log := p.logger.WithStage(contracts.StagePlan.String())
	if len(plans) == 0 {
		log.Info("No BUY or SELL candidate selected by the screener")
		return plans, false
	}
	for _, plan := range plans {
		log.WithFields(map[string]interface{}{
			"symbol": plan.Symbol,
			"side":   plan.Side,
			"entry":  plan.Entry,
			"stop":   plan.Stop,
			"target": plan.Target,
			"rr":     plan.RiskReward.String(),
		}).Info("Trade plan created")
	}
	return plans, true
}

// Plan derives entry/stop/target for one candle. ok is false when O/H/L do
// not parse or the candle has no positive range.
func (p *Planner) Plan(row contracts.Row, side contracts.Side, roles headers.Roles, hdrs []string) (contracts.TradePlan, bool) {
	openHdr, _ := roles.Header(headers.RoleOpen)
	highHdr, _ := roles.Header(headers.RoleHigh)
	lowHdr, _ := roles.Header(headers.RoleLow)

	open := parse.Num(row.Get(openHdr))
	high := parse.Num(row.Get(highHdr))
	low := parse.Num(row.Get(lowHdr))
	if !open.Valid || !high.Valid || !low.Valid {
		return contracts.TradePlan{}, false
	}

	rng := high.Value - low.Value
	if rng <= 0 {
		return contracts.TradePlan{}, false
	}

	var entry, stop, target float64
	if side == contracts.SideBuy {
		entry = high.Value - p.config.EntryRetracePct*rng
		stop = entry - p.config.RiskPct*entry
		target = entry + p.config.RewardPct*entry
	} else {
		entry = low.Value + p.config.EntryRetracePct*rng
		stop = entry + p.config.RiskPct*entry
		target = entry - p.config.RewardPct*entry
	}

	riskPS := round2(decimal.NewFromFloat(entry).Sub(decimal.NewFromFloat(stop)).Abs())
	rewardPS := round2(decimal.NewFromFloat(target).Sub(decimal.NewFromFloat(entry)).Abs())
	entryR := round2(decimal.NewFromFloat(entry))

	ratio := contracts.Ratio{}
	if riskPS.IsPositive() {
		ratio = contracts.Ratio{Value: round2(rewardPS.Div(riskPS)).InexactFloat64(), Applicable: true}
	}

	plan := contracts.TradePlan{
		Symbol:         planSymbol(row, roles, hdrs),
		Side:           side,
		Entry:          entryR.InexactFloat64(),
		Stop:           round2(decimal.NewFromFloat(stop)).InexactFloat64(),
		Target:         round2(decimal.NewFromFloat(target)).InexactFloat64(),
		RiskPerShare:   riskPS.InexactFloat64(),
		RewardPerShare: rewardPS.InexactFloat64(),
		RiskReward:     ratio,
		RiskPct:        pct(riskPS, entryR),
		RewardPct:      pct(rewardPS, entryR),
	}
	return plan, true
}

// planSymbol reads the symbol via the resolved role, then any header
// containing "symbol", then the row's first column
func planSymbol(row contracts.Row, roles headers.Roles, hdrs []string) string {
	if h, ok := roles.Header(headers.RoleSymbol); ok {
		return row.Get(h)
	}
	if h, ok := headers.FindContaining(hdrs, "symbol"); ok {
		return row.Get(h)
	}
	if len(hdrs) > 0 {
		return row.Get(hdrs[0])
	}
	return ""
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// pct is 100 × part / whole rounded to 2 decimals; 0 when whole is 0
func pct(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return round2(part.Mul(decimal.NewFromInt(100)).Div(whole)).InexactFloat64()
}
