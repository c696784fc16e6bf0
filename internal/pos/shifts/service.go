package shifts

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

const (
	EventOpened           = "opened"
	EventMovement         = "movement_recorded"
	EventClosed           = "closed"
	EventReconciled       = "reconciled"
	EventCloseoutCacheHit = "closeout_cache_hit"
)

// MetricsRecorder observes shift lifecycle events.
type MetricsRecorder interface {
	ShiftEvent(event string)
	ShiftCashDifference(diff float64)
}

// ReportCache stores closeout reports of shifts that can no longer change.
type ReportCache interface {
	Key(parts ...string) string
	FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// Service drives the cash shift lifecycle.
type Service struct {
	repo    Repository
	cache   ReportCache
	metrics MetricsRecorder
	now     func() time.Time
}

// NewService constructs the shift engine. cache and metrics may be nil.
func NewService(repo Repository, cache ReportCache, metrics MetricsRecorder) *Service {
	return &Service{repo: repo, cache: cache, metrics: metrics, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// OpenShift starts a shift. An owner may only have one open shift.
func (s *Service) OpenShift(ctx context.Context, input OpenShiftInput) (Shift, error) {
	if err := input.Validate(); err != nil {
		return Shift{}, err
	}
	var shift Shift
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		_, found, err := tx.FindOpenShift(ctx, input.CompanyID, input.BranchID, input.UserID)
		if err != nil {
			return err
		}
		if found {
			return &shared.ConflictError{Entity: "shift", Reason: openShiftExistsReason}
		}
		shift, err = tx.InsertShift(ctx, input, s.now().UTC())
		return err
	})
	if err != nil {
		return Shift{}, err
	}
	s.observe(EventOpened)
	return shift, nil
}

// RecordMovement appends a drawer movement to an open shift. Shift totals are
// left untouched until close.
func (s *Service) RecordMovement(ctx context.Context, input RecordMovementInput) (Movement, error) {
	if err := input.Validate(); err != nil {
		return Movement{}, err
	}
	var movement Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		shift, err := tx.GetShiftForUpdate(ctx, input.ShiftID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return movementRejected(input.ShiftID, "")
			}
			return err
		}
		if shift.Status != StatusOpen {
			return movementRejected(shift.ID, shift.Status)
		}
		movement, err = tx.InsertMovement(ctx, input)
		return err
	})
	if err != nil {
		return Movement{}, err
	}
	s.observe(EventMovement)
	return movement, nil
}

func movementRejected(id int64, state Status) error {
	return &shared.InvalidStateError{
		Entity: "shift",
		ID:     id,
		State:  string(state),
		Op:     "record movement",
		Reason: "cannot record a movement on a missing or closed shift",
	}
}

// CloseShift aggregates the movements of an open shift and closes it with the
// counted ending cash.
func (s *Service) CloseShift(ctx context.Context, input CloseShiftInput) (Shift, error) {
	if err := input.Validate(); err != nil {
		return Shift{}, err
	}
	var (
		shift    Shift
		expected decimal.Decimal
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetShiftForUpdate(ctx, input.ShiftID)
		if err != nil {
			return err
		}
		if current.Status != StatusOpen {
			return &shared.InvalidStateError{
				Entity: "shift", ID: current.ID, State: string(current.Status), Op: "close",
				Reason: "cannot close a non-open shift",
			}
		}
		movements, err := tx.ListMovements(ctx, current.ID)
		if err != nil {
			return err
		}
		totals := Aggregate(movements)
		expected = ExpectedCash(current.StartingCash, totals)
		endTime := s.now().UTC()
		ending := input.EndingCash
		net := CloseNetCash(current.StartingCash, totals.Sales, totals.Returns, ending)
		shift, err = tx.UpdateShift(ctx, current.ID, ShiftPatch{
			Status:       StatusClosed,
			EndTime:      &endTime,
			EndingCash:   &ending,
			TotalSales:   &totals.Sales,
			TotalReturns: &totals.Returns,
			NetCash:      &net,
		})
		return err
	})
	if err != nil {
		return Shift{}, err
	}
	s.observe(EventClosed)
	if s.metrics != nil {
		s.metrics.ShiftCashDifference(input.EndingCash.Sub(expected).InexactFloat64())
	}
	return shift, nil
}

// ReconcileShift signs off a closed shift.
func (s *Service) ReconcileShift(ctx context.Context, input ReconcileShiftInput) (Shift, error) {
	if input.ShiftID <= 0 {
		return Shift{}, shared.NewValidation("shift_id", "required")
	}
	if input.ReconciledBy <= 0 {
		return Shift{}, shared.NewValidation("reconciled_by", "required")
	}
	var shift Shift
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetShiftForUpdate(ctx, input.ShiftID)
		if err != nil {
			return err
		}
		if !current.Status.CanTransition(StatusReconciled) {
			return &shared.InvalidStateError{Entity: "shift", ID: current.ID, State: string(current.Status), Op: "reconcile"}
		}
		at := s.now().UTC()
		notes := input.Notes
		shift, err = tx.UpdateShift(ctx, current.ID, ShiftPatch{
			Status:         StatusReconciled,
			ReconciledBy:   &input.ReconciledBy,
			ReconciledAt:   &at,
			ReconcileNotes: &notes,
		})
		return err
	})
	if err != nil {
		return Shift{}, err
	}
	if s.cache != nil {
		// The closed-state report is superseded.
		_ = s.cache.Delete(ctx, s.closeoutKey(shift.ID, StatusClosed))
	}
	s.observe(EventReconciled)
	return shift, nil
}

// DeleteShift removes a shift opened by mistake together with its movements.
// Closed and reconciled shifts are kept for the cash audit trail.
func (s *Service) DeleteShift(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.NewValidation("shift_id", "required")
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetShiftForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusOpen {
			return &shared.InvalidStateError{Entity: "shift", ID: id, State: string(current.Status), Op: "delete"}
		}
		return tx.DeleteShift(ctx, id)
	})
}

// GetCloseoutReport aggregates a shift for the drawer count. Reports of
// closed and reconciled shifts are served from cache when available.
func (s *Service) GetCloseoutReport(ctx context.Context, shiftID int64) (CloseoutReport, error) {
	if shiftID <= 0 {
		return CloseoutReport{}, shared.NewValidation("shift_id", "required")
	}
	var (
		report CloseoutReport
		status Status
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		shift, err := tx.GetShift(ctx, shiftID)
		if err != nil {
			return err
		}
		status = shift.Status
		if status != StatusOpen && s.cache != nil {
			return nil
		}
		movements, err := tx.ListMovements(ctx, shift.ID)
		if err != nil {
			return err
		}
		report = BuildCloseoutReport(shift, movements)
		return nil
	})
	if err != nil {
		return CloseoutReport{}, err
	}
	if status == StatusOpen || s.cache == nil {
		return report, nil
	}
	hit, err := s.cache.FetchJSON(ctx, s.closeoutKey(shiftID, status), &report, func(ctx context.Context) (any, error) {
		return s.loadCloseoutReport(ctx, shiftID)
	})
	if err != nil {
		return CloseoutReport{}, err
	}
	if hit {
		s.observe(EventCloseoutCacheHit)
	}
	return report, nil
}

func (s *Service) loadCloseoutReport(ctx context.Context, shiftID int64) (CloseoutReport, error) {
	var report CloseoutReport
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		shift, err := tx.GetShift(ctx, shiftID)
		if err != nil {
			return err
		}
		movements, err := tx.ListMovements(ctx, shift.ID)
		if err != nil {
			return err
		}
		report = BuildCloseoutReport(shift, movements)
		return nil
	})
	return report, err
}

func (s *Service) closeoutKey(shiftID int64, status Status) string {
	return s.cache.Key("closeout", strconv.FormatInt(shiftID, 10), string(status))
}

// GetShift returns one shift.
func (s *Service) GetShift(ctx context.Context, id int64) (Shift, error) {
	if id <= 0 {
		return Shift{}, shared.NewValidation("shift_id", "required")
	}
	var shift Shift
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		shift, err = tx.GetShift(ctx, id)
		return err
	})
	return shift, err
}

// ListMovements returns the movements of a shift in creation order.
func (s *Service) ListMovements(ctx context.Context, shiftID int64) ([]Movement, error) {
	if shiftID <= 0 {
		return nil, shared.NewValidation("shift_id", "required")
	}
	var movements []Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetShift(ctx, shiftID); err != nil {
			return err
		}
		var err error
		movements, err = tx.ListMovements(ctx, shiftID)
		return err
	})
	return movements, err
}

// ListStaleShifts returns shifts left open for longer than maxAge.
func (s *Service) ListStaleShifts(ctx context.Context, maxAge time.Duration) ([]Shift, error) {
	return s.repo.ListStaleOpenShifts(ctx, s.now().Add(-maxAge))
}

func (s *Service) observe(event string) {
	if s.metrics != nil {
		s.metrics.ShiftEvent(event)
	}
}
