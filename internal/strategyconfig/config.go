package strategyconfig

import "time"

// Config is a screening profile: what to screen for and how to plan trades
type Config struct {
	Meta      Meta      `yaml:"meta" json:"meta"`
	Screening Screening `yaml:"screening" json:"screening"`
	Plan      Plan      `yaml:"plan" json:"plan"`
	Schedule  Schedule  `yaml:"schedule" json:"schedule"`
}

// Meta identifies the profile
type Meta struct {
	ProfileID string `yaml:"profile_id" json:"profile_id"`
	Version   string `yaml:"version" json:"version"`
	Timezone  string `yaml:"timezone" json:"timezone"` // IANA name, e.g. Asia/Kolkata
}

// Window is a time-of-day range in the profile timezone
type Window struct {
	Start string `yaml:"start" json:"start"` // HH:MM
	End   string `yaml:"end" json:"end"`     // HH:MM
}

// Screening P2: mode predicate and full-screener gain gate
type Screening struct {
	Mode       string  `yaml:"mode" json:"mode"`                 // openHigh | openLow | openHighLow | full
	MinGainPct float64 `yaml:"min_gain_pct" json:"min_gain_pct"` // percent, 0 disables
	Tolerance  float64 `yaml:"tolerance" json:"tolerance"`       // open ≈ high/low tolerance
}

// Plan P4: entry retracement and fixed percentage stop/target
type Plan struct {
	EntryRetracePct float64 `yaml:"entry_retrace_pct" json:"entry_retrace_pct"`
	RiskPct         float64 `yaml:"risk_pct" json:"risk_pct"`
	RewardPct       float64 `yaml:"reward_pct" json:"reward_pct"`
}

// RewardRisk returns the planned reward:risk multiple
func (p Plan) RewardRisk() float64 {
	if p.RiskPct == 0 {
		return 0
	}
	return p.RewardPct / p.RiskPct
}

// Schedule configures the cron drop-file job
type Schedule struct {
	Enable    bool   `yaml:"enable" json:"enable"`
	Cron      string `yaml:"cron" json:"cron"`             // standard 5-field spec
	Input     string `yaml:"input" json:"input"`           // CSV path re-read every run
	OutputDir string `yaml:"output_dir" json:"output_dir"` // where exports are written
	Window    Window `yaml:"window" json:"window"`         // runs outside the window are skipped
}

// Snapshot ties a run to the exact profile text it used
type Snapshot struct {
	ProfileHash string    `json:"profile_hash"`
	ProfileYAML string    `json:"profile_yaml"`
	ProfileID   string    `json:"profile_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Location returns the profile timezone, UTC when unset
func (c *Config) Location() (*time.Location, error) {
	if c.Meta.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Meta.Timezone)
}

// Default returns the built-in profile used when no profile file is given
func Default() *Config {
	return &Config{
		Meta: Meta{
			ProfileID: "nse_opening_extremes",
			Version:   "1.0.0",
			Timezone:  "Asia/Kolkata",
		},
		Screening: Screening{
			Mode:       "full",
			MinGainPct: 0,
			Tolerance:  1e-6,
		},
		Plan: Plan{
			EntryRetracePct: 0.40,
			RiskPct:         0.01,
			RewardPct:       0.015,
		},
		Schedule: Schedule{
			Enable: false,
			Cron:   "*/5 9-15 * * 1-5",
			Window: Window{Start: "09:15", End: "15:30"},
		},
	}
}
