package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wonny/openscreen/internal/contracts"
	"github.com/wonny/openscreen/internal/csvio"
	"github.com/wonny/openscreen/internal/scheduler"
	"github.com/wonny/openscreen/internal/screening"
	"github.com/wonny/openscreen/internal/selection"
	"github.com/wonny/openscreen/pkg/logger"
)

// ScreenFileConfig configures a ScreenFileJob
type ScreenFileConfig struct {
	Schedule    string // 5-field cron
	Input       string // CSV re-read on every run
	OutputDir   string
	Request     contracts.ScreenRequest
	WindowStart string // HH:MM, empty disables the window
	WindowEnd   string // HH:MM
	Location    *time.Location
}

// ScreenFileJob screens a drop file on a schedule and writes the labeled view
// to a timestamped CSV in OutputDir
type ScreenFileJob struct {
	config ScreenFileConfig
	loader contracts.DatasetLoader
	engine *screening.Engine
	logger *logger.Logger
	now    func() time.Time
}

// NewScreenFileJob creates a new drop-file screening job
func NewScreenFileJob(cfg ScreenFileConfig, loader contracts.DatasetLoader, engine *screening.Engine, log *logger.Logger) *ScreenFileJob {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &ScreenFileJob{
		config: cfg,
		loader: loader,
		engine: engine,
		logger: log,
		now:    time.Now,
	}
}

// Name returns the job name
func (j *ScreenFileJob) Name() string {
	return "screen_file"
}

// Schedule returns the cron schedule
func (j *ScreenFileJob) Schedule() string {
	return j.config.Schedule
}

// Run executes one screening pass over the input file
func (j *ScreenFileJob) Run(ctx context.Context) error {
	now := j.now().In(j.config.Location)
	if !j.inWindow(now) {
		return scheduler.ErrSkipped
	}

	f, err := os.Open(j.config.Input)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	ds, err := j.loader.Load(ctx, f, filepath.Base(j.config.Input))
	if err != nil {
		return scheduler.Permanent(err)
	}

	res, err := screening.NewSession(j.engine, ds).Screen(ctx, j.config.Request)
	if err != nil {
		if selection.IsPrecondition(err) {
			return scheduler.Permanent(err)
		}
		return err
	}

	if len(res.Rows) == 0 {
		j.logger.WithField("summary", res.Summary()).Info("No rows to export")
		return nil
	}

	path, err := j.write(res, ds, now)
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"summary": res.Summary(),
		"output":  path,
		"plans":   len(res.Plans),
	}).Info("Scheduled screen exported")

	return nil
}

// inWindow reports whether now falls within [WindowStart, WindowEnd]
func (j *ScreenFileJob) inWindow(now time.Time) bool {
	if j.config.WindowStart == "" || j.config.WindowEnd == "" {
		return true
	}
	hhmm := now.Format("15:04")
	return hhmm >= j.config.WindowStart && hhmm <= j.config.WindowEnd
}

// write exports the view through a temp file so readers never see a partial CSV
func (j *ScreenFileJob) write(res *contracts.ScreenResult, ds *contracts.Dataset, now time.Time) (string, error) {
	if err := os.MkdirAll(j.config.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	base := strings.TrimSuffix(csvio.DefaultExportName, filepath.Ext(csvio.DefaultExportName))
	name := fmt.Sprintf("%s_%s_%s.csv", base, res.Mode, now.Format("20060102_150405"))
	path := filepath.Join(j.config.OutputDir, name)

	tmp, err := os.CreateTemp(j.config.OutputDir, ".screen-*.csv")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	cols := csvio.ExportHeaders(res.Roles, ds.Headers)
	if err := csvio.Write(tmp, cols, res.Rows); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move export into place: %w", err)
	}
	return path, nil
}
