package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	jobmetrics "github.com/odyssey-erp/odyssey-ledger/internal/jobs"
)

// UnbalancedFinder lists journal entries whose persisted lines do not balance.
type UnbalancedFinder interface {
	FindUnbalanced(ctx context.Context) ([]journals.UnbalancedEntry, error)
}

// GLIntegrityJob checks that every persisted journal entry still balances.
type GLIntegrityJob struct {
	Ledger  UnbalancedFinder
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewGLIntegrityJob constructs the integrity job handler.
func NewGLIntegrityJob(ledger UnbalancedFinder, logger *slog.Logger, metrics *jobmetrics.Metrics) *GLIntegrityJob {
	return &GLIntegrityJob{Ledger: ledger, Logger: logger, Metrics: metrics}
}

// Handle executes the scan. Unbalanced entries are reported, not repaired.
func (j *GLIntegrityJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Ledger == nil {
		return errors.New("gl integrity: handler not configured")
	}
	tracker := j.Metrics.Track(TaskGLIntegrity)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger()
	entries, err := j.Ledger.FindUnbalanced(ctx)
	if err != nil {
		logger.Error("gl integrity scan failed", slog.Any("error", err))
		return err
	}
	for _, entry := range entries {
		logger.Warn("unbalanced journal entry",
			slog.Int64("entry_id", entry.EntryID),
			slog.String("debit", entry.Debit.String()),
			slog.String("credit", entry.Credit.String()),
		)
	}
	j.Metrics.SetUnbalancedEntries(len(entries))
	logger.Info("gl integrity check executed", slog.Int("unbalanced", len(entries)))
	return nil
}

func (j *GLIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskGLIntegrity))
	}
	return slog.Default().With(slog.String("job", TaskGLIntegrity))
}
