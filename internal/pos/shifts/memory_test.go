package shifts

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// memoryShifts mirrors the PostgreSQL store, including the partial unique
// index on open owners. WithTx commits the working copy only on success.
type memoryShifts struct {
	state        shiftState
	failMovement bool
	skipOpenScan bool // simulates a racing writer that missed the open check
	now          time.Time
}

type shiftState struct {
	shifts       map[int64]Shift
	movements    map[int64][]Movement
	nextShift    int64
	nextMovement int64
}

func newMemoryShifts() *memoryShifts {
	return &memoryShifts{
		state: shiftState{
			shifts:    make(map[int64]Shift),
			movements: make(map[int64][]Movement),
		},
		now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
	}
}

func (s shiftState) clone() shiftState {
	out := shiftState{
		shifts:       make(map[int64]Shift, len(s.shifts)),
		movements:    make(map[int64][]Movement, len(s.movements)),
		nextShift:    s.nextShift,
		nextMovement: s.nextMovement,
	}
	for k, v := range s.shifts {
		out.shifts[k] = v
	}
	for k, v := range s.movements {
		out.movements[k] = append([]Movement(nil), v...)
	}
	return out
}

func (r *memoryShifts) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	work := r.state.clone()
	if err := fn(ctx, &memoryShiftsTx{repo: r, state: &work}); err != nil {
		return err
	}
	r.state = work
	return nil
}

func (r *memoryShifts) ListStaleOpenShifts(ctx context.Context, startedBefore time.Time) ([]Shift, error) {
	var out []Shift
	for id := int64(1); id <= r.state.nextShift; id++ {
		s, ok := r.state.shifts[id]
		if ok && s.Status == StatusOpen && s.StartTime.Before(startedBefore) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memoryShifts) movementCount(shiftID int64) int { return len(r.state.movements[shiftID]) }

type memoryShiftsTx struct {
	repo  *memoryShifts
	state *shiftState
}

func (tx *memoryShiftsTx) FindOpenShift(ctx context.Context, companyID, branchID, userID int64) (Shift, bool, error) {
	if tx.repo.skipOpenScan {
		return Shift{}, false, nil
	}
	for _, s := range tx.state.shifts {
		if s.CompanyID == companyID && s.BranchID == branchID && s.UserID == userID && s.Status == StatusOpen {
			return s, true, nil
		}
	}
	return Shift{}, false, nil
}

func (tx *memoryShiftsTx) InsertShift(ctx context.Context, in OpenShiftInput, startTime time.Time) (Shift, error) {
	for _, s := range tx.state.shifts {
		if s.CompanyID == in.CompanyID && s.BranchID == in.BranchID && s.UserID == in.UserID && s.Status == StatusOpen {
			return Shift{}, &shared.ConflictError{Entity: "shift", Reason: openShiftExistsReason}
		}
	}
	tx.state.nextShift++
	shift := Shift{
		ID:           tx.state.nextShift,
		CompanyID:    in.CompanyID,
		BranchID:     in.BranchID,
		UserID:       in.UserID,
		StartTime:    startTime,
		StartingCash: in.StartingCash,
		TotalSales:   decimal.Zero,
		TotalReturns: decimal.Zero,
		NetCash:      decimal.Zero,
		Status:       StatusOpen,
		CreatedAt:    tx.repo.now,
		UpdatedAt:    tx.repo.now,
	}
	tx.state.shifts[shift.ID] = shift
	return shift, nil
}

func (tx *memoryShiftsTx) GetShift(ctx context.Context, id int64) (Shift, error) {
	s, ok := tx.state.shifts[id]
	if !ok {
		return Shift{}, shared.NewNotFound("shift", id)
	}
	return s, nil
}

func (tx *memoryShiftsTx) GetShiftForUpdate(ctx context.Context, id int64) (Shift, error) {
	return tx.GetShift(ctx, id)
}

func (tx *memoryShiftsTx) UpdateShift(ctx context.Context, id int64, patch ShiftPatch) (Shift, error) {
	s, ok := tx.state.shifts[id]
	if !ok {
		return Shift{}, shared.NewNotFound("shift", id)
	}
	s = applyShiftPatch(s, patch, tx.repo.now)
	tx.state.shifts[id] = s
	return s, nil
}

func (tx *memoryShiftsTx) InsertMovement(ctx context.Context, in RecordMovementInput) (Movement, error) {
	if tx.repo.failMovement {
		return Movement{}, shared.WrapStorage("shifts.insert_movement", errors.New("connection reset"))
	}
	tx.state.nextMovement++
	m := Movement{
		ID:              tx.state.nextMovement,
		ShiftID:         in.ShiftID,
		Type:            in.Type,
		Amount:          in.Amount,
		Notes:           in.Notes,
		SalesInvoiceID:  in.SalesInvoiceID,
		ReturnInvoiceID: in.ReturnInvoiceID,
		CreatedAt:       tx.repo.now,
	}
	tx.state.movements[in.ShiftID] = append(tx.state.movements[in.ShiftID], m)
	return m, nil
}

func (tx *memoryShiftsTx) ListMovements(ctx context.Context, shiftID int64) ([]Movement, error) {
	return append([]Movement(nil), tx.state.movements[shiftID]...), nil
}

func (tx *memoryShiftsTx) DeleteShift(ctx context.Context, id int64) error {
	if _, ok := tx.state.shifts[id]; !ok {
		return shared.NewNotFound("shift", id)
	}
	delete(tx.state.movements, id)
	delete(tx.state.shifts, id)
	return nil
}

// applyShiftPatch mirrors the COALESCE merge of the SQL update.
func applyShiftPatch(shift Shift, p ShiftPatch, at time.Time) Shift {
	if p.Status != "" {
		shift.Status = p.Status
	}
	if p.EndTime != nil {
		shift.EndTime = p.EndTime
	}
	if p.EndingCash != nil {
		shift.EndingCash = decimal.NewNullDecimal(*p.EndingCash)
	}
	if p.TotalSales != nil {
		shift.TotalSales = *p.TotalSales
	}
	if p.TotalReturns != nil {
		shift.TotalReturns = *p.TotalReturns
	}
	if p.NetCash != nil {
		shift.NetCash = *p.NetCash
	}
	if p.ReconciledBy != nil {
		shift.ReconciledBy = p.ReconciledBy
	}
	if p.ReconciledAt != nil {
		shift.ReconciledAt = p.ReconciledAt
	}
	if p.ReconcileNotes != nil {
		shift.ReconcileNotes = *p.ReconcileNotes
	}
	shift.UpdatedAt = at
	return shift
}
