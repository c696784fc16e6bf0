package shifts

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

const openOwnerConstraint = "uq_shifts_open_owner"

// openShiftExistsReason is reported when an owner already has an open shift.
const openShiftExistsReason = "an open shift already exists for this user/branch/company"

// Repository encapsulates DB operations for shifts.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListStaleOpenShifts(ctx context.Context, startedBefore time.Time) ([]Shift, error)
}

// TxRepository exposes the shift store contract inside one transaction.
type TxRepository interface {
	FindOpenShift(ctx context.Context, companyID, branchID, userID int64) (Shift, bool, error)
	InsertShift(ctx context.Context, in OpenShiftInput, startTime time.Time) (Shift, error)
	GetShift(ctx context.Context, id int64) (Shift, error)
	GetShiftForUpdate(ctx context.Context, id int64) (Shift, error)
	UpdateShift(ctx context.Context, id int64, patch ShiftPatch) (Shift, error)
	InsertMovement(ctx context.Context, in RecordMovementInput) (Movement, error)
	ListMovements(ctx context.Context, shiftID int64) ([]Movement, error)
	DeleteShift(ctx context.Context, id int64) error
}

const shiftColumns = `id, company_id, branch_id, user_id, start_time, end_time, starting_cash, ending_cash,
total_sales, total_returns, net_cash, status, reconciled_by, reconciled_at, reconcile_notes, created_at, updated_at`

const movementColumns = `id, shift_id, movement_type, amount, notes, sales_invoice_id, return_invoice_id, created_at`

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL shift store.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *repository) ListStaleOpenShifts(ctx context.Context, startedBefore time.Time) ([]Shift, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+shiftColumns+` FROM shifts
WHERE status = $1 AND start_time < $2 ORDER BY start_time ASC`, StatusOpen, startedBefore)
	if err != nil {
		return nil, shared.WrapStorage("shifts.list_stale", err)
	}
	defer rows.Close()
	var out []Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, shared.WrapStorage("shifts.list_stale", err)
		}
		out = append(out, s)
	}
	return out, shared.WrapStorage("shifts.list_stale", rows.Err())
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) FindOpenShift(ctx context.Context, companyID, branchID, userID int64) (Shift, bool, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts
WHERE company_id=$1 AND branch_id=$2 AND user_id=$3 AND status=$4 LIMIT 1`, companyID, branchID, userID, StatusOpen)
	s, err := scanShift(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Shift{}, false, nil
		}
		return Shift{}, false, shared.WrapStorage("shifts.find_open", err)
	}
	return s, true, nil
}

func (r *txRepository) InsertShift(ctx context.Context, in OpenShiftInput, startTime time.Time) (Shift, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO shifts (company_id, branch_id, user_id, start_time, starting_cash, total_sales, total_returns, net_cash, status)
VALUES ($1,$2,$3,$4,$5,0,0,0,$6) RETURNING `+shiftColumns,
		in.CompanyID, in.BranchID, in.UserID, startTime, in.StartingCash, StatusOpen)
	s, err := scanShift(row)
	if err != nil {
		if shared.IsUniqueViolation(err, openOwnerConstraint) {
			return Shift{}, &shared.ConflictError{Entity: "shift", Reason: openShiftExistsReason}
		}
		return Shift{}, shared.WrapStorage("shifts.insert", err)
	}
	return s, nil
}

func (r *txRepository) GetShift(ctx context.Context, id int64) (Shift, error) {
	return r.getShift(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id=$1`, id)
}

func (r *txRepository) GetShiftForUpdate(ctx context.Context, id int64) (Shift, error) {
	return r.getShift(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id=$1 FOR UPDATE`, id)
}

func (r *txRepository) getShift(ctx context.Context, query string, id int64) (Shift, error) {
	s, err := scanShift(r.tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Shift{}, shared.NewNotFound("shift", id)
		}
		return Shift{}, shared.WrapStorage("shifts.get", err)
	}
	return s, nil
}

func (r *txRepository) UpdateShift(ctx context.Context, id int64, patch ShiftPatch) (Shift, error) {
	row := r.tx.QueryRow(ctx, `UPDATE shifts SET
    status = COALESCE(NULLIF($2, ''), status),
    end_time = COALESCE($3, end_time),
    ending_cash = COALESCE($4, ending_cash),
    total_sales = COALESCE($5, total_sales),
    total_returns = COALESCE($6, total_returns),
    net_cash = COALESCE($7, net_cash),
    reconciled_by = COALESCE($8, reconciled_by),
    reconciled_at = COALESCE($9, reconciled_at),
    reconcile_notes = COALESCE($10, reconcile_notes),
    updated_at = NOW()
WHERE id=$1
RETURNING `+shiftColumns,
		id, string(patch.Status), patch.EndTime, patch.EndingCash, patch.TotalSales, patch.TotalReturns, patch.NetCash,
		patch.ReconciledBy, patch.ReconciledAt, patch.ReconcileNotes)
	s, err := scanShift(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Shift{}, shared.NewNotFound("shift", id)
		}
		return Shift{}, shared.WrapStorage("shifts.update", err)
	}
	return s, nil
}

func (r *txRepository) InsertMovement(ctx context.Context, in RecordMovementInput) (Movement, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO shift_movements (shift_id, movement_type, amount, notes, sales_invoice_id, return_invoice_id)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING `+movementColumns,
		in.ShiftID, in.Type, in.Amount, in.Notes, in.SalesInvoiceID, in.ReturnInvoiceID)
	m, err := scanMovement(row)
	if err != nil {
		return Movement{}, shared.WrapStorage("shifts.insert_movement", err)
	}
	return m, nil
}

func (r *txRepository) ListMovements(ctx context.Context, shiftID int64) ([]Movement, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+movementColumns+` FROM shift_movements WHERE shift_id=$1 ORDER BY id ASC`, shiftID)
	if err != nil {
		return nil, shared.WrapStorage("shifts.list_movements", err)
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, shared.WrapStorage("shifts.list_movements", err)
		}
		out = append(out, m)
	}
	return out, shared.WrapStorage("shifts.list_movements", rows.Err())
}

func (r *txRepository) DeleteShift(ctx context.Context, id int64) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM shift_movements WHERE shift_id=$1`, id); err != nil {
		return shared.WrapStorage("shifts.delete_movements", err)
	}
	cmd, err := r.tx.Exec(ctx, `DELETE FROM shifts WHERE id=$1`, id)
	if err != nil {
		return shared.WrapStorage("shifts.delete", err)
	}
	if cmd.RowsAffected() == 0 {
		return shared.NewNotFound("shift", id)
	}
	return nil
}

func scanShift(row pgx.Row) (Shift, error) {
	var s Shift
	err := row.Scan(&s.ID, &s.CompanyID, &s.BranchID, &s.UserID, &s.StartTime, &s.EndTime, &s.StartingCash, &s.EndingCash,
		&s.TotalSales, &s.TotalReturns, &s.NetCash, &s.Status, &s.ReconciledBy, &s.ReconciledAt, &s.ReconcileNotes,
		&s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func scanMovement(row pgx.Row) (Movement, error) {
	var m Movement
	err := row.Scan(&m.ID, &m.ShiftID, &m.Type, &m.Amount, &m.Notes, &m.SalesInvoiceID, &m.ReturnInvoiceID, &m.CreatedAt)
	return m, err
}
