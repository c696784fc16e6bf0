package shifts

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates the shift lifecycle.
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusClosed     Status = "CLOSED"
	StatusReconciled Status = "RECONCILED"
)

var statusTransitions = map[Status][]Status{
	StatusOpen:   {StatusClosed},
	StatusClosed: {StatusReconciled},
}

// CanTransition reports whether a shift may move from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// MovementType enumerates cash drawer movements.
type MovementType string

const (
	MovementCashIn  MovementType = "CASH_IN"
	MovementCashOut MovementType = "CASH_OUT"
	MovementSale    MovementType = "SALE"
	MovementReturn  MovementType = "RETURN"
)

// Valid reports whether t is a known movement type.
func (t MovementType) Valid() bool {
	switch t {
	case MovementCashIn, MovementCashOut, MovementSale, MovementReturn:
		return true
	}
	return false
}

// Shift is one cashier session on a register.
type Shift struct {
	ID             int64               `json:"id"`
	CompanyID      int64               `json:"company_id"`
	BranchID       int64               `json:"branch_id"`
	UserID         int64               `json:"user_id"`
	StartTime      time.Time           `json:"start_time"`
	EndTime        *time.Time          `json:"end_time,omitempty"`
	StartingCash   decimal.Decimal     `json:"starting_cash"`
	EndingCash     decimal.NullDecimal `json:"ending_cash"`
	TotalSales     decimal.Decimal     `json:"total_sales"`
	TotalReturns   decimal.Decimal     `json:"total_returns"`
	NetCash        decimal.Decimal     `json:"net_cash"`
	Status         Status              `json:"status"`
	ReconciledBy   *int64              `json:"reconciled_by,omitempty"`
	ReconciledAt   *time.Time          `json:"reconciled_at,omitempty"`
	ReconcileNotes string              `json:"reconcile_notes,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// Movement is an append-only drawer event belonging to a shift.
type Movement struct {
	ID              int64           `json:"id"`
	ShiftID         int64           `json:"shift_id"`
	Type            MovementType    `json:"movement_type"`
	Amount          decimal.Decimal `json:"amount"`
	Notes           string          `json:"notes,omitempty"`
	SalesInvoiceID  *int64          `json:"sales_invoice_id,omitempty"`
	ReturnInvoiceID *int64          `json:"return_invoice_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// CloseoutReport summarises a shift for the end-of-day drawer count.
type CloseoutReport struct {
	ShiftID             int64               `json:"shift_id"`
	CompanyID           int64               `json:"company_id"`
	BranchID            int64               `json:"branch_id"`
	UserID              int64               `json:"user_id"`
	StartTime           time.Time           `json:"start_time"`
	EndTime             *time.Time          `json:"end_time,omitempty"`
	Status              Status              `json:"status"`
	StartingCash        decimal.Decimal     `json:"starting_cash"`
	EndingCash          decimal.NullDecimal `json:"ending_cash"`
	TotalCashIn         decimal.Decimal     `json:"total_cash_in"`
	TotalCashOut        decimal.Decimal     `json:"total_cash_out"`
	TotalSales          decimal.Decimal     `json:"total_sales"`
	SalesCount          int                 `json:"sales_count"`
	TotalReturns        decimal.Decimal     `json:"total_returns"`
	ReturnsCount        int                 `json:"returns_count"`
	SalesInvoiceCount   int                 `json:"sales_invoice_count"`
	ReturnInvoiceCount  int                 `json:"return_invoice_count"`
	ExpectedCashAtClose decimal.Decimal     `json:"expected_cash_at_close"`
	CashDifference      decimal.Decimal     `json:"cash_difference"`
	NetCash             decimal.Decimal     `json:"net_cash"`
}
