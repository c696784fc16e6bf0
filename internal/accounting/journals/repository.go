package journals

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// Repository encapsulates DB operations for journals.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListUnbalancedEntries(ctx context.Context) ([]UnbalancedEntry, error)
}

// TxRepository exposes the ledger store contract inside one transaction.
type TxRepository interface {
	GetAccount(ctx context.Context, id int64) (Account, error)
	InsertEntry(ctx context.Context, in CreateEntryInput) (JournalEntry, error)
	InsertLines(ctx context.Context, entryID int64, lines []LineInput) ([]JournalLine, error)
	GetEntry(ctx context.Context, id int64) (JournalEntry, error)
	GetEntryForUpdate(ctx context.Context, id int64) (JournalEntry, error)
	GetLines(ctx context.Context, entryID int64) ([]JournalLine, error)
	UpdateEntry(ctx context.Context, id int64, patch EntryPatch) (JournalEntry, error)
	DeleteEntry(ctx context.Context, id int64) error
}

const entryColumns = `id, company_id, branch_id, entry_date, period, ref_no, status, created_by,
approved_by, approved_at, posted_by, posted_at, voided_by, voided_at, void_reason, version, created_at, updated_at`

const lineColumns = `id, je_id, account_id, debit, credit, currency, fx_rate, cost_center_id, project_id, memo, created_at`

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL ledger store.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *repository) ListUnbalancedEntries(ctx context.Context) ([]UnbalancedEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT je_id, COALESCE(SUM(debit),0), COALESCE(SUM(credit),0)
FROM journal_lines GROUP BY je_id HAVING SUM(debit) <> SUM(credit) ORDER BY je_id`)
	if err != nil {
		return nil, shared.WrapStorage("journals.list_unbalanced", err)
	}
	defer rows.Close()
	var out []UnbalancedEntry
	for rows.Next() {
		var u UnbalancedEntry
		if err := rows.Scan(&u.EntryID, &u.Debit, &u.Credit); err != nil {
			return nil, shared.WrapStorage("journals.list_unbalanced", err)
		}
		out = append(out, u)
	}
	return out, shared.WrapStorage("journals.list_unbalanced", rows.Err())
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetAccount(ctx context.Context, id int64) (Account, error) {
	var a Account
	err := r.tx.QueryRow(ctx, `SELECT id, code, name, name_alt, type, level, parent_id, currency, is_postable, is_active, created_at, updated_at
FROM accounts WHERE id=$1`, id).
		Scan(&a.ID, &a.Code, &a.Name, &a.NameAlt, &a.Type, &a.Level, &a.ParentID, &a.Currency, &a.IsPostable, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.NewNotFound("account", id)
		}
		return Account{}, shared.WrapStorage("journals.get_account", err)
	}
	return a, nil
}

func (r *txRepository) InsertEntry(ctx context.Context, in CreateEntryInput) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (company_id, branch_id, entry_date, period, ref_no, status, created_by, version)
VALUES ($1,$2,$3,$4,$5,$6,$7,1) RETURNING `+entryColumns,
		in.CompanyID, in.BranchID, in.EntryDate, in.Period, in.RefNo, EntryStatusDraft, in.CreatedBy)
	entry, err := scanEntry(row)
	if err != nil {
		return JournalEntry{}, shared.WrapStorage("journals.insert_entry", err)
	}
	return entry, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []LineInput) ([]JournalLine, error) {
	out := make([]JournalLine, 0, len(lines))
	for _, line := range lines {
		row := r.tx.QueryRow(ctx, `INSERT INTO journal_lines (je_id, account_id, debit, credit, currency, fx_rate, cost_center_id, project_id, memo)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING `+lineColumns,
			entryID, line.AccountID, line.Debit, line.Credit, line.Currency, line.FxRate, line.CostCenterID, line.ProjectID, line.Memo)
		inserted, err := scanLine(row)
		if err != nil {
			return nil, shared.WrapStorage("journals.insert_lines", err)
		}
		out = append(out, inserted)
	}
	return out, nil
}

func (r *txRepository) GetEntry(ctx context.Context, id int64) (JournalEntry, error) {
	return r.getEntry(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1`, id)
}

func (r *txRepository) GetEntryForUpdate(ctx context.Context, id int64) (JournalEntry, error) {
	return r.getEntry(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1 FOR UPDATE`, id)
}

func (r *txRepository) getEntry(ctx context.Context, query string, id int64) (JournalEntry, error) {
	entry, err := scanEntry(r.tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.NewNotFound("journal entry", id)
		}
		return JournalEntry{}, shared.WrapStorage("journals.get_entry", err)
	}
	return entry, nil
}

func (r *txRepository) GetLines(ctx context.Context, entryID int64) ([]JournalLine, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+lineColumns+` FROM journal_lines WHERE je_id=$1 ORDER BY id ASC`, entryID)
	if err != nil {
		return nil, shared.WrapStorage("journals.get_lines", err)
	}
	defer rows.Close()
	var lines []JournalLine
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, shared.WrapStorage("journals.get_lines", err)
		}
		lines = append(lines, line)
	}
	return lines, shared.WrapStorage("journals.get_lines", rows.Err())
}

func (r *txRepository) UpdateEntry(ctx context.Context, id int64, patch EntryPatch) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `UPDATE journal_entries SET
    status = COALESCE(NULLIF($3, ''), status),
    approved_by = COALESCE($4, approved_by),
    approved_at = COALESCE($5, approved_at),
    posted_by = COALESCE($6, posted_by),
    posted_at = COALESCE($7, posted_at),
    voided_by = COALESCE($8, voided_by),
    voided_at = COALESCE($9, voided_at),
    void_reason = COALESCE($10, void_reason),
    version = version + 1,
    updated_at = NOW()
WHERE id=$1 AND version=$2
RETURNING `+entryColumns,
		id, patch.ExpectedVersion, string(patch.Status), patch.ApprovedBy, patch.ApprovedAt, patch.PostedBy, patch.PostedAt,
		patch.VoidedBy, patch.VoidedAt, patch.VoidReason)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, r.missingOrStale(ctx, id)
		}
		return JournalEntry{}, shared.WrapStorage("journals.update_entry", err)
	}
	return entry, nil
}

// missingOrStale distinguishes an absent row from a version mismatch.
func (r *txRepository) missingOrStale(ctx context.Context, id int64) error {
	var exists bool
	if err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM journal_entries WHERE id=$1)`, id).Scan(&exists); err != nil {
		return shared.WrapStorage("journals.update_entry", err)
	}
	if !exists {
		return shared.NewNotFound("journal entry", id)
	}
	return &shared.ConflictError{Entity: "journal entry", Reason: "modified concurrently"}
}

func (r *txRepository) DeleteEntry(ctx context.Context, id int64) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM journal_lines WHERE je_id=$1`, id); err != nil {
		return shared.WrapStorage("journals.delete_lines", err)
	}
	cmd, err := r.tx.Exec(ctx, `DELETE FROM journal_entries WHERE id=$1`, id)
	if err != nil {
		return shared.WrapStorage("journals.delete_entry", err)
	}
	if cmd.RowsAffected() == 0 {
		return shared.NewNotFound("journal entry", id)
	}
	return nil
}

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(&e.ID, &e.CompanyID, &e.BranchID, &e.EntryDate, &e.Period, &e.RefNo, &e.Status, &e.CreatedBy,
		&e.ApprovedBy, &e.ApprovedAt, &e.PostedBy, &e.PostedAt, &e.VoidedBy, &e.VoidedAt, &e.VoidReason,
		&e.Version, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func scanLine(row pgx.Row) (JournalLine, error) {
	var l JournalLine
	err := row.Scan(&l.ID, &l.JournalID, &l.AccountID, &l.Debit, &l.Credit, &l.Currency, &l.FxRate,
		&l.CostCenterID, &l.ProjectID, &l.Memo, &l.CreatedAt)
	return l, err
}
