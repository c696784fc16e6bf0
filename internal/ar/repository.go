package ar

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// RepositoryPort defines data access methods for settlement.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes invoice and payment access inside one transaction.
type TxRepository interface {
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error)
	InsertPayment(ctx context.Context, input RecordPaymentInput) (Payment, error)
	SumPayments(ctx context.Context, invoiceID int64) (decimal.Decimal, error)
	MarkPaid(ctx context.Context, invoiceID int64, at time.Time) (Invoice, error)
	ClaimIdempotencyKey(ctx context.Context, key string, at time.Time) error
}

const paymentIdempotencyModule = "ar.payment"

const invoiceColumns = `id, number, customer_id, currency, total_amount, status, paid_at, created_at, updated_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	return t.getInvoice(ctx, `SELECT `+invoiceColumns+` FROM ar_invoices WHERE id = $1`, id)
}

func (t *txRepo) GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error) {
	return t.getInvoice(ctx, `SELECT `+invoiceColumns+` FROM ar_invoices WHERE id = $1 FOR UPDATE`, id)
}

func (t *txRepo) getInvoice(ctx context.Context, query string, id int64) (Invoice, error) {
	inv, err := scanInvoice(t.tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, shared.NewNotFound("invoice", id)
		}
		return Invoice{}, shared.WrapStorage("ar.get_invoice", err)
	}
	return inv, nil
}

func (t *txRepo) InsertPayment(ctx context.Context, input RecordPaymentInput) (Payment, error) {
	query := `
		INSERT INTO ar_payments (ar_invoice_id, amount, paid_at, method, note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, ar_invoice_id, amount, paid_at, method, note, created_at`
	var p Payment
	err := t.tx.QueryRow(ctx, query, input.InvoiceID, input.Amount, input.PaidAt, input.Method, input.Note).
		Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.PaidAt, &p.Method, &p.Note, &p.CreatedAt)
	if err != nil {
		return Payment{}, shared.WrapStorage("ar.insert_payment", err)
	}
	return p, nil
}

func (t *txRepo) SumPayments(ctx context.Context, invoiceID int64) (decimal.Decimal, error) {
	var paid decimal.Decimal
	err := t.tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM ar_payments WHERE ar_invoice_id = $1`, invoiceID).Scan(&paid)
	if err != nil {
		return decimal.Zero, shared.WrapStorage("ar.sum_payments", err)
	}
	return paid, nil
}

func (t *txRepo) MarkPaid(ctx context.Context, invoiceID int64, at time.Time) (Invoice, error) {
	query := `
		UPDATE ar_invoices SET status = $2, paid_at = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + invoiceColumns
	inv, err := scanInvoice(t.tx.QueryRow(ctx, query, invoiceID, InvoiceStatusPaid, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, shared.NewNotFound("invoice", invoiceID)
		}
		return Invoice{}, shared.WrapStorage("ar.mark_paid", err)
	}
	return inv, nil
}

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.CustomerID, &inv.Currency, &inv.Total, &inv.Status, &inv.PaidAt,
		&inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}

func (t *txRepo) ClaimIdempotencyKey(ctx context.Context, key string, at time.Time) error {
	return shared.ClaimIdempotencyKey(ctx, t.tx, paymentIdempotencyModule, key, at)
}
