package jobs

import (
	"context"
	"time"

	"github.com/wonny/openscreen/internal/screening"
	"github.com/wonny/openscreen/pkg/logger"
)

// SessionCleanupJob drops uploads nobody has touched within the TTL
type SessionCleanupJob struct {
	registry *screening.Registry
	ttl      time.Duration
	logger   *logger.Logger
}

// NewSessionCleanupJob creates a new session cleanup job
func NewSessionCleanupJob(registry *screening.Registry, ttl time.Duration, log *logger.Logger) *SessionCleanupJob {
	return &SessionCleanupJob{
		registry: registry,
		ttl:      ttl,
		logger:   log,
	}
}

// Name returns the job name
func (j *SessionCleanupJob) Name() string {
	return "session_cleanup"
}

// Schedule returns the cron schedule (every 5 minutes)
func (j *SessionCleanupJob) Schedule() string {
	return "*/5 * * * *"
}

// Run executes the session cleanup
func (j *SessionCleanupJob) Run(ctx context.Context) error {
	count := j.registry.CleanStale(j.ttl)

	if count > 0 {
		j.logger.WithFields(map[string]interface{}{
			"removed":   count,
			"remaining": j.registry.Len(),
		}).Info("Session cleanup completed")
	}

	return nil
}
