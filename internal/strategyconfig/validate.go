package strategyconfig

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/openscreen/internal/contracts"
)

// ValidationError is a hard profile failure (the program stops)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning is a soft recommendation violation (logged only)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.ProfileID == "" {
		return ValidationError{"meta.profile_id", "required"}
	}
	if _, err := cfg.Location(); err != nil {
		return ValidationError{"meta.timezone", err.Error()}
	}

	// === Screening ===
	if !contracts.Mode(cfg.Screening.Mode).IsValid() {
		return ValidationError{"screening.mode", "must be one of openHigh, openLow, openHighLow, full"}
	}
	if err := validateNonNegative(cfg.Screening.MinGainPct, "screening.min_gain_pct"); err != nil {
		return err
	}
	if cfg.Screening.Tolerance <= 0 || math.IsNaN(cfg.Screening.Tolerance) {
		return ValidationError{"screening.tolerance", "must be > 0"}
	}

	// === Plan ===
	if err := validatePctRange(cfg.Plan.EntryRetracePct, "plan.entry_retrace_pct"); err != nil {
		return err
	}
	if cfg.Plan.RiskPct <= 0 || cfg.Plan.RiskPct >= 1 {
		return ValidationError{"plan.risk_pct", "must be in (0, 1)"}
	}
	if cfg.Plan.RewardPct <= 0 || cfg.Plan.RewardPct >= 1 {
		return ValidationError{"plan.reward_pct", "must be in (0, 1)"}
	}

	// === Schedule ===
	if cfg.Schedule.Enable {
		if _, err := cron.ParseStandard(cfg.Schedule.Cron); err != nil {
			return ValidationError{"schedule.cron", err.Error()}
		}
		if cfg.Schedule.Input == "" {
			return ValidationError{"schedule.input", "required when schedule is enabled"}
		}
	}
	if cfg.Schedule.Window != (Window{}) {
		if err := validateHHMM(cfg.Schedule.Window.Start); err != nil {
			return ValidationError{"schedule.window.start", err.Error()}
		}
		if err := validateHHMM(cfg.Schedule.Window.End); err != nil {
			return ValidationError{"schedule.window.end", err.Error()}
		}
		startTime, _ := time.Parse("15:04", cfg.Schedule.Window.Start)
		endTime, _ := time.Parse("15:04", cfg.Schedule.Window.End)
		if !startTime.Before(endTime) {
			return ValidationError{"schedule.window", "start must be before end"}
		}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Plan.RewardRisk() < 1 {
		warnings = append(warnings, Warning{
			Code:    "LOW_REWARD_RISK",
			Message: fmt.Sprintf("reward_pct/risk_pct = %.2f < 1: targets closer than stops", cfg.Plan.RewardRisk()),
		})
	}

	if cfg.Screening.MinGainPct > 10 {
		warnings = append(warnings, Warning{
			Code:    "HIGH_MIN_GAIN",
			Message: "min_gain_pct > 10: full screener will rarely return rows",
		})
	}

	if cfg.Screening.Tolerance > 0.05 {
		warnings = append(warnings, Warning{
			Code:    "LOOSE_TOLERANCE",
			Message: "tolerance > 0.05: open ≈ high/low matches candles that did not open at the extreme",
		})
	}

	if cfg.Screening.MinGainPct > 0 && cfg.Screening.Mode != string(contracts.ModeFull) {
		warnings = append(warnings, Warning{
			Code:    "UNUSED_MIN_GAIN",
			Message: "min_gain_pct only applies to mode full",
		})
	}

	return warnings
}

// === Helper Functions ===

var hhmm = regexp.MustCompile(`^\d{2}:\d{2}$`)

func validateHHMM(s string) error {
	if !hhmm.MatchString(s) {
		return errors.New("must be HH:MM format")
	}
	_, err := time.Parse("15:04", s)
	return err
}

// validatePctRange checks a fraction lies in [0, 1]
func validatePctRange(pct float64, field string) error {
	if pct < 0 || pct > 1 || math.IsNaN(pct) {
		return ValidationError{field, "must be in range [0, 1]"}
	}
	return nil
}

func validateNonNegative(v float64, field string) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return ValidationError{field, "must be >= 0"}
	}
	return nil
}
