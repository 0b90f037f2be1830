package commands

import (
	"fmt"
	"io"

	"github.com/wonny/openscreen/internal/contracts"
	"github.com/wonny/openscreen/internal/csvio"
	"github.com/wonny/openscreen/internal/execution"
	"github.com/wonny/openscreen/internal/screening"
	"github.com/wonny/openscreen/internal/selection"
	"github.com/wonny/openscreen/internal/strategyconfig"
	"github.com/wonny/openscreen/pkg/config"
	"github.com/wonny/openscreen/pkg/logger"
)

// app is the wiring shared by every command
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	profile  *strategyconfig.Config
	snapshot *strategyconfig.Snapshot
	reader   *csvio.Reader
	engine   *screening.Engine
}

// bootstrap loads env config and the profile, then builds the pipeline.
// Logs go to logOut.
func bootstrap(logOut io.Writer) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if profilePath != "" {
		cfg.ProfilePath = profilePath
	}

	// 2. Initialize logger
	log := logger.NewWithWriter(cfg, logOut)

	// 3. Load profile
	profile, yamlData, err := strategyconfig.LoadOrDefault(cfg.ProfilePath)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	snapshot, err := strategyconfig.NewSnapshot(profile, yamlData)
	if err != nil {
		return nil, fmt.Errorf("hash profile: %w", err)
	}
	for _, w := range strategyconfig.Warn(profile) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	log.WithFields(map[string]interface{}{
		"profile_id":   snapshot.ProfileID,
		"profile_hash": snapshot.ProfileHash,
	}).Debug("Profile loaded")

	// 4. Build pipeline
	screener := selection.NewScreener(selection.ScreenerConfig{Tolerance: profile.Screening.Tolerance}, log)
	planner := execution.NewPlanner(execution.PlannerConfig{
		EntryRetracePct: profile.Plan.EntryRetracePct,
		RiskPct:         profile.Plan.RiskPct,
		RewardPct:       profile.Plan.RewardPct,
	}, log)

	return &app{
		cfg:      cfg,
		log:      log,
		profile:  profile,
		snapshot: snapshot,
		reader:   csvio.NewReader(log),
		engine:   screening.NewEngine(screener, planner, snapshot.ProfileHash, log),
	}, nil
}

// defaultRequest is the profile's screening choice
func (a *app) defaultRequest() contracts.ScreenRequest {
	return contracts.ScreenRequest{
		Mode:       contracts.Mode(a.profile.Screening.Mode),
		MinGainPct: a.profile.Screening.MinGainPct,
	}
}
