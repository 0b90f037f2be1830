package strategyconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := "../../profiles/nse_opening_extremes.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("profile file not found")
	}

	cfg, yamlData, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, yamlData)

	assert.Equal(t, "nse_opening_extremes", cfg.Meta.ProfileID)
	assert.Equal(t, "full", cfg.Screening.Mode)
	assert.Equal(t, "./data/intraday.csv", cfg.Schedule.Input)

	hash, err := Hash(cfg)
	require.NoError(t, err)
	assert.Len(t, hash, 64)

	// 동일 설정 → 동일 해시
	hash2, _ := Hash(cfg)
	assert.Equal(t, hash, hash2)
}

func TestParse_KeepsDefaultsForOmittedSections(t *testing.T) {
	cfg, err := Parse([]byte("screening:\n  mode: openLow\n"))
	require.NoError(t, err)

	assert.Equal(t, "openLow", cfg.Screening.Mode)
	assert.Equal(t, 1e-6, cfg.Screening.Tolerance)
	assert.Equal(t, Default().Plan, cfg.Plan)
	assert.Equal(t, "nse_opening_extremes", cfg.Meta.ProfileID)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("screening:\n  mdoe: openLow\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mdoe")
}

func TestLoadOrDefault(t *testing.T) {
	cfg, data, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	// the rendered default must round-trip through Parse
	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)

	_, _, err = LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestHash_ChangesWithConfig(t *testing.T) {
	a := Default()
	b := Default()
	b.Screening.MinGainPct = 2

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"default ok", func(*Config) {}, ""},
		{"missing profile id", func(c *Config) { c.Meta.ProfileID = "" }, "meta.profile_id"},
		{"bad timezone", func(c *Config) { c.Meta.Timezone = "Mars/Olympus" }, "meta.timezone"},
		{"unknown mode", func(c *Config) { c.Screening.Mode = "openMiddle" }, "screening.mode"},
		{"negative min gain", func(c *Config) { c.Screening.MinGainPct = -1 }, "screening.min_gain_pct"},
		{"zero tolerance", func(c *Config) { c.Screening.Tolerance = 0 }, "screening.tolerance"},
		{"retrace above one", func(c *Config) { c.Plan.EntryRetracePct = 1.5 }, "plan.entry_retrace_pct"},
		{"zero risk", func(c *Config) { c.Plan.RiskPct = 0 }, "plan.risk_pct"},
		{"reward of one", func(c *Config) { c.Plan.RewardPct = 1 }, "plan.reward_pct"},
		{"enabled bad cron", func(c *Config) {
			c.Schedule.Enable = true
			c.Schedule.Input = "x.csv"
			c.Schedule.Cron = "every minute"
		}, "schedule.cron"},
		{"enabled without input", func(c *Config) { c.Schedule.Enable = true }, "schedule.input"},
		{"bad window start", func(c *Config) { c.Schedule.Window.Start = "9:15" }, "schedule.window.start"},
		{"bad window end", func(c *Config) { c.Schedule.Window.End = "25:00" }, "schedule.window.end"},
		{"inverted window", func(c *Config) {
			c.Schedule.Window = Window{Start: "15:30", End: "09:15"}
		}, "schedule.window"},
		{"empty window ok", func(c *Config) { c.Schedule.Window = Window{} }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestWarn(t *testing.T) {
	assert.Empty(t, Warn(Default()))

	cfg := Default()
	cfg.Plan.RewardPct = 0.005
	cfg.Screening.MinGainPct = 12
	cfg.Screening.Tolerance = 0.1

	codes := make([]string, 0)
	for _, w := range Warn(cfg) {
		codes = append(codes, w.Code)
	}
	assert.ElementsMatch(t, []string{"LOW_REWARD_RISK", "HIGH_MIN_GAIN", "LOOSE_TOLERANCE"}, codes)

	cfg = Default()
	cfg.Screening.Mode = "openHigh"
	cfg.Screening.MinGainPct = 1
	require.Len(t, Warn(cfg), 1)
	assert.Equal(t, "UNUSED_MIN_GAIN", Warn(cfg)[0].Code)
}

func TestNewSnapshot(t *testing.T) {
	cfg := Default()
	snap, err := NewSnapshot(cfg, []byte("meta: {}"))
	require.NoError(t, err)

	hash, _ := Hash(cfg)
	assert.Equal(t, hash, snap.ProfileHash)
	assert.Equal(t, "nse_opening_extremes", snap.ProfileID)
	assert.Equal(t, "meta: {}", snap.ProfileYAML)
	assert.False(t, snap.CreatedAt.IsZero())
}

func TestPlan_RewardRisk(t *testing.T) {
	assert.InDelta(t, 1.5, Default().Plan.RewardRisk(), 1e-9)
	assert.Equal(t, 0.0, Plan{}.RewardRisk())
}
