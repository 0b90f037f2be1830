package contracts

import (
	"encoding/json"
	"strconv"
)

// Side represents the direction of a trade plan
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Label returns the row label matching the side
func (s Side) Label() Label {
	if s == SideSell {
		return LabelSell
	}
	return LabelBuy
}

// NotApplicable is shown in place of a ratio that cannot be computed
const NotApplicable = "N/A"

// Ratio is a reward:risk ratio that may be not applicable (zero risk)
type Ratio struct {
	Value      float64
	Applicable bool
}

// String formats the ratio or returns "N/A"
func (r Ratio) String() string {
	if !r.Applicable {
		return NotApplicable
	}
	return strconv.FormatFloat(r.Value, 'f', -1, 64)
}

// MarshalJSON writes a number, or the string "N/A"
func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Applicable {
		return json.Marshal(NotApplicable)
	}
	return json.Marshal(r.Value)
}

// UnmarshalJSON accepts a number or "N/A"
func (r *Ratio) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = Ratio{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Ratio{Value: v, Applicable: true}
	return nil
}

// TradePlan is the entry/stop/target derived from a chosen candle.
// All prices are rounded to 2 decimals.
type TradePlan struct {
	Symbol         string  `json:"symbol"`
	Side           Side    `json:"side"`
	Entry          float64 `json:"entry"`
	Stop           float64 `json:"stop"`
	Target         float64 `json:"target"`
	RiskPerShare   float64 `json:"risk_per_share"`
	RewardPerShare float64 `json:"reward_per_share"`
	RiskReward     Ratio   `json:"risk_reward"`
	RiskPct        float64 `json:"risk_pct"`
	RewardPct      float64 `json:"reward_pct"`
}
