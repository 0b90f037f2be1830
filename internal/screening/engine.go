// Package screening runs the full pipeline (screen → select → plan) and owns
// per-upload state: the loaded dataset and its current filtered view.
package screening

import (
	"context"
	"fmt"

	"github.com/wonny/openscreen/internal/contracts"
	"github.com/wonny/openscreen/pkg/logger"
)

// Engine wires the screener and planner into one run
// ⭐ SSOT: every entry point (CLI, API, scheduler) screens through Engine.Run
type Engine struct {
	screener    contracts.Screener
	planner     contracts.TradePlanner
	profileHash string
	logger      *logger.Logger
}

// NewEngine creates a new pipeline engine.
// profileHash is stamped on every result so runs can be traced to a profile.
func NewEngine(screener contracts.Screener, planner contracts.TradePlanner, profileHash string, logger *logger.Logger) *Engine {
	return &Engine{
		screener:    screener,
		planner:     planner,
		profileHash: profileHash,
		logger:      logger,
	}
}

// Run screens ds and plans the chosen candidates
func (e *Engine) Run(ctx context.Context, ds *contracts.Dataset, req contracts.ScreenRequest) (*contracts.ScreenResult, error) {
	res, err := e.screener.Screen(ctx, ds, req)
	if err != nil {
		return nil, fmt.Errorf("screen %s: %w", req.Mode, err)
	}

	plans, _ := e.planner.PlanPair(ctx, ds, res.Roles, res.Long, res.Short)
	res.Plans = plans
	res.ProfileHash = e.profileHash

	return res, nil
}
