package journals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// MetricsRecorder observes journal lifecycle events.
type MetricsRecorder interface {
	JournalTransition(status string)
}

// Config carries ledger policy knobs.
type Config struct {
	DefaultCurrency string
	EnforcePostable bool
}

// Service validates and creates balanced journal entries and drives their
// status transitions.
type Service struct {
	repo    Repository
	cfg     Config
	metrics MetricsRecorder
	now     func() time.Time
}

// NewService constructs the journal engine.
func NewService(repo Repository, cfg Config, metrics MetricsRecorder) *Service {
	return &Service{repo: repo, cfg: cfg, metrics: metrics, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateBalancedEntry validates the proposed lines and persists a Draft entry
// with all of its lines in one transaction.
func (s *Service) CreateBalancedEntry(ctx context.Context, input CreateEntryInput) (JournalEntry, error) {
	if s.cfg.DefaultCurrency == "" {
		return JournalEntry{}, errors.New("journals: default currency not configured")
	}
	input = input.Normalize(s.cfg.DefaultCurrency)
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		seen := make(map[int64]struct{}, len(input.Lines))
		for idx, line := range input.Lines {
			if _, ok := seen[line.AccountID]; ok {
				continue
			}
			seen[line.AccountID] = struct{}{}
			account, err := tx.GetAccount(ctx, line.AccountID)
			if err != nil {
				return err
			}
			if s.cfg.EnforcePostable && (!account.IsPostable || !account.IsActive) {
				return shared.NewValidation(fmt.Sprintf("lines[%d].account_id", idx),
					fmt.Sprintf("account %s is not postable", account.Code))
			}
		}
		inserted, err := tx.InsertEntry(ctx, input)
		if err != nil {
			return err
		}
		lines, err := tx.InsertLines(ctx, inserted.ID, input.Lines)
		if err != nil {
			return err
		}
		inserted.Lines = lines
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.observe(entry.Status)
	return entry, nil
}

// GetEntry returns an entry with its lines.
func (s *Service) GetEntry(ctx context.Context, id int64) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = getEntryWithLines(ctx, tx, id)
		return err
	})
	return entry, err
}

// ApproveEntry moves a Draft entry to Approved.
func (s *Service) ApproveEntry(ctx context.Context, input TransitionInput) (JournalEntry, error) {
	return s.transition(ctx, input, EntryStatusApproved, "approve", func(p *EntryPatch, at time.Time) {
		p.ApprovedBy = &input.ActorID
		p.ApprovedAt = &at
	})
}

// PostEntry moves an Approved entry to Posted.
func (s *Service) PostEntry(ctx context.Context, input TransitionInput) (JournalEntry, error) {
	return s.transition(ctx, input, EntryStatusPosted, "post", func(p *EntryPatch, at time.Time) {
		p.PostedBy = &input.ActorID
		p.PostedAt = &at
	})
}

// VoidEntry marks an entry Voided from any non-voided state.
func (s *Service) VoidEntry(ctx context.Context, input TransitionInput) (JournalEntry, error) {
	return s.transition(ctx, input, EntryStatusVoided, "void", func(p *EntryPatch, at time.Time) {
		p.VoidedBy = &input.ActorID
		p.VoidedAt = &at
		reason := input.Reason
		p.VoidReason = &reason
	})
}

func (s *Service) transition(ctx context.Context, input TransitionInput, next EntryStatus, op string, fill func(*EntryPatch, time.Time)) (JournalEntry, error) {
	if input.EntryID <= 0 {
		return JournalEntry{}, shared.NewValidation("entry_id", "required")
	}
	if input.ActorID <= 0 {
		return JournalEntry{}, shared.NewValidation("actor_id", "required")
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, input.EntryID)
		if err != nil {
			return err
		}
		if !current.Status.CanTransition(next) {
			return &shared.InvalidStateError{Entity: "journal entry", ID: current.ID, State: string(current.Status), Op: op}
		}
		patch := EntryPatch{ExpectedVersion: current.Version, Status: next}
		fill(&patch, s.now())
		updated, err := tx.UpdateEntry(ctx, current.ID, patch)
		if err != nil {
			return err
		}
		updated.Lines, err = tx.GetLines(ctx, current.ID)
		if err != nil {
			return err
		}
		entry = updated
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.observe(entry.Status)
	return entry, nil
}

// DeleteEntry removes a Draft entry together with its lines.
func (s *Service) DeleteEntry(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.NewValidation("entry_id", "required")
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != EntryStatusDraft {
			return &shared.InvalidStateError{Entity: "journal entry", ID: id, State: string(current.Status), Op: "delete"}
		}
		return tx.DeleteEntry(ctx, id)
	})
}

// FindUnbalanced lists persisted entries whose lines no longer balance.
func (s *Service) FindUnbalanced(ctx context.Context) ([]UnbalancedEntry, error) {
	return s.repo.ListUnbalancedEntries(ctx)
}

func (s *Service) observe(status EntryStatus) {
	if s.metrics != nil {
		s.metrics.JournalTransition(string(status))
	}
}

func getEntryWithLines(ctx context.Context, tx TxRepository, id int64) (JournalEntry, error) {
	entry, err := tx.GetEntry(ctx, id)
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines, err = tx.GetLines(ctx, id)
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}
