package ar

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// InvoiceStatus enumerates AR invoice statuses.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusIssued    InvoiceStatus = "ISSUED"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// Invoice is the receivable a payment settles. Invoices are created by the
// sales flow and only read here, except for the paid marker.
type Invoice struct {
	ID         int64           `json:"id"`
	Number     string          `json:"number"`
	CustomerID int64           `json:"customer_id"`
	Currency   string          `json:"currency"`
	Total      decimal.Decimal `json:"total"`
	Status     InvoiceStatus   `json:"status"`
	PaidAt     *time.Time      `json:"paid_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Payment records money received against one invoice.
type Payment struct {
	ID        int64           `json:"id"`
	InvoiceID int64           `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    time.Time       `json:"paid_at"`
	Method    string          `json:"method,omitempty"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// RecordPaymentInput describes an incoming payment.
type RecordPaymentInput struct {
	InvoiceID      int64
	Amount         decimal.Decimal
	PaidAt         time.Time
	Method         string
	Note           string
	IdempotencyKey string
}

// Validate checks the payment amount and target.
func (in RecordPaymentInput) Validate() error {
	if in.InvoiceID <= 0 {
		return shared.NewValidation("invoice_id", "required")
	}
	if !in.Amount.IsPositive() {
		return shared.NewValidation("amount", "must be positive")
	}
	if err := shared.ValidateMoney("amount", in.Amount); err != nil {
		return err
	}
	return shared.ValidateIdempotencyKey(in.IdempotencyKey)
}

// Settlement is the paid position of an invoice.
type Settlement struct {
	InvoiceID   int64           `json:"invoice_id"`
	Status      InvoiceStatus   `json:"status"`
	Total       decimal.Decimal `json:"total"`
	Paid        decimal.Decimal `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Overpayment decimal.Decimal `json:"overpayment"`
	// MarkedPaid is true when this settle call moved the invoice to PAID.
	MarkedPaid bool `json:"marked_paid"`
}

// PaymentResult pairs the stored payment with the resulting settlement.
type PaymentResult struct {
	Payment    Payment    `json:"payment"`
	Settlement Settlement `json:"settlement"`
}

func newSettlement(inv Invoice, paid decimal.Decimal) Settlement {
	s := Settlement{
		InvoiceID:   inv.ID,
		Status:      inv.Status,
		Total:       inv.Total,
		Paid:        paid,
		Outstanding: decimal.Zero,
		Overpayment: decimal.Zero,
	}
	diff := inv.Total.Sub(paid)
	if diff.IsPositive() {
		s.Outstanding = diff
	} else {
		s.Overpayment = diff.Neg()
	}
	return s
}
