package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/tablewise/tablewise/internal/jobs"
)

// Sweeper closes console sessions idle for longer than ttl.
type Sweeper interface {
	Sweep(ttl time.Duration) int
}

// ConsoleSweepJob handles TaskConsoleSweep.
type ConsoleSweepJob struct {
	Sessions Sweeper
	IdleTTL  time.Duration
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewConsoleSweepJob wires dependencies for the sweep handler.
func NewConsoleSweepJob(sessions Sweeper, idleTTL time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *ConsoleSweepJob {
	return &ConsoleSweepJob{Sessions: sessions, IdleTTL: idleTTL, Logger: logger, Metrics: metrics}
}

// Handle processes console sweep tasks.
func (j *ConsoleSweepJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Sessions == nil {
		return errors.New("console sweep: handler not configured")
	}
	tracker := j.Metrics.Track(TaskConsoleSweep)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	ttl := j.IdleTTL
	if len(t.Payload()) > 0 {
		var payload ConsoleSweepPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return errors.Join(err, asynq.SkipRetry)
		}
		if payload.IdleTTL > 0 {
			ttl = payload.IdleTTL
		}
	}
	if ttl <= 0 {
		return errors.Join(errors.New("console sweep: idle ttl must be positive"), asynq.SkipRetry)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	closed := j.Sessions.Sweep(ttl)
	j.Metrics.AddSwept(closed)
	j.logger().Debug("console sweep finished", slog.Int("closed", closed), slog.Duration("idle_ttl", ttl))
	return nil
}

func (j *ConsoleSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
