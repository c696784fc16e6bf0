package ar

import (
	"context"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// Service handles payment recording and invoice settlement.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// RecordPayment stores a payment against an invoice and settles the invoice
// in the same transaction.
func (s *Service) RecordPayment(ctx context.Context, input RecordPaymentInput) (PaymentResult, error) {
	if err := input.Validate(); err != nil {
		return PaymentResult{}, err
	}
	if input.PaidAt.IsZero() {
		input.PaidAt = s.now().UTC()
	}
	var result PaymentResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, input.InvoiceID)
		if err != nil {
			return err
		}
		if inv.Status == InvoiceStatusCancelled {
			return &shared.InvalidStateError{Entity: "invoice", ID: inv.ID, State: string(inv.Status), Op: "record payment"}
		}
		if err := tx.ClaimIdempotencyKey(ctx, input.IdempotencyKey, s.now().UTC()); err != nil {
			return err
		}
		payment, err := tx.InsertPayment(ctx, input)
		if err != nil {
			return err
		}
		settlement, err := s.settle(ctx, tx, inv)
		if err != nil {
			return err
		}
		result = PaymentResult{Payment: payment, Settlement: settlement}
		return nil
	})
	return result, err
}

// Settle marks the invoice paid once recorded payments reach its total.
func (s *Service) Settle(ctx context.Context, invoiceID int64) (Settlement, error) {
	if invoiceID <= 0 {
		return Settlement{}, shared.NewValidation("invoice_id", "required")
	}
	var settlement Settlement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		settlement, err = s.settle(ctx, tx, inv)
		return err
	})
	return settlement, err
}

func (s *Service) settle(ctx context.Context, tx TxRepository, inv Invoice) (Settlement, error) {
	paid, err := tx.SumPayments(ctx, inv.ID)
	if err != nil {
		return Settlement{}, err
	}
	markPaid := paid.GreaterThanOrEqual(inv.Total) &&
		inv.Status != InvoiceStatusPaid && inv.Status != InvoiceStatusCancelled
	if markPaid {
		inv, err = tx.MarkPaid(ctx, inv.ID, s.now().UTC())
		if err != nil {
			return Settlement{}, err
		}
	}
	settlement := newSettlement(inv, paid)
	settlement.MarkedPaid = markPaid
	return settlement, nil
}

// GetSettlement reports the paid position of an invoice without changing it.
func (s *Service) GetSettlement(ctx context.Context, invoiceID int64) (Settlement, error) {
	if invoiceID <= 0 {
		return Settlement{}, shared.NewValidation("invoice_id", "required")
	}
	var settlement Settlement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		paid, err := tx.SumPayments(ctx, inv.ID)
		if err != nil {
			return err
		}
		settlement = newSettlement(inv, paid)
		return nil
	})
	return settlement, err
}
