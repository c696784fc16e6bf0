package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-ledger/internal/jobs"
	"github.com/odyssey-erp/odyssey-ledger/internal/pos/shifts"
)

// StaleShiftLister lists shifts that have been open longer than maxAge.
type StaleShiftLister interface {
	ListStaleShifts(ctx context.Context, maxAge time.Duration) ([]shifts.Shift, error)
}

// StaleShiftsJob flags cash drawers nobody closed.
type StaleShiftsJob struct {
	Shifts  StaleShiftLister
	MaxAge  time.Duration
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewStaleShiftsJob constructs the stale shift handler.
func NewStaleShiftsJob(lister StaleShiftLister, maxAge time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *StaleShiftsJob {
	return &StaleShiftsJob{Shifts: lister, MaxAge: maxAge, Logger: logger, Metrics: metrics}
}

// Handle executes the scan.
func (j *StaleShiftsJob) Handle(ctx context.Context, task *asynq.Task) (err error) {
	if j == nil || j.Shifts == nil {
		return errors.New("stale shifts: handler not configured")
	}
	var payload StaleShiftsPayload
	if body := task.Payload(); len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	maxAge := payload.MaxAge(j.MaxAge)
	if maxAge <= 0 {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskStaleShifts)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger().With(slog.Duration("max_age", maxAge))
	stale, err := j.Shifts.ListStaleShifts(ctx, maxAge)
	if err != nil {
		logger.Error("stale shift scan failed", slog.Any("error", err))
		return err
	}
	for _, shift := range stale {
		logger.Warn("shift left open",
			slog.Int64("shift_id", shift.ID),
			slog.Int64("company_id", shift.CompanyID),
			slog.Int64("branch_id", shift.BranchID),
			slog.Int64("user_id", shift.UserID),
			slog.Time("start_time", shift.StartTime),
		)
	}
	j.Metrics.SetStaleShifts(len(stale))
	logger.Info("stale shift scan executed", slog.Int("stale", len(stale)))
	return nil
}

func (j *StaleShiftsJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskStaleShifts))
	}
	return slog.Default().With(slog.String("job", TaskStaleShifts))
}
