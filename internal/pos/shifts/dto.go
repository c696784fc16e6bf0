package shifts

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// OpenShiftInput starts a shift for one cashier.
type OpenShiftInput struct {
	CompanyID    int64
	BranchID     int64
	UserID       int64
	StartingCash decimal.Decimal
}

// Validate checks ownership ids and the opening float.
func (in OpenShiftInput) Validate() error {
	if in.CompanyID <= 0 {
		return shared.NewValidation("company_id", "required")
	}
	if in.BranchID <= 0 {
		return shared.NewValidation("branch_id", "required")
	}
	if in.UserID <= 0 {
		return shared.NewValidation("user_id", "required")
	}
	if in.StartingCash.IsNegative() {
		return shared.NewValidation("starting_cash", "must not be negative")
	}
	return shared.ValidateMoney("starting_cash", in.StartingCash)
}

// RecordMovementInput appends a drawer movement to an open shift.
type RecordMovementInput struct {
	ShiftID         int64
	Type            MovementType
	Amount          decimal.Decimal
	Notes           string
	SalesInvoiceID  *int64
	ReturnInvoiceID *int64
}

// Validate checks the movement type and amount.
func (in RecordMovementInput) Validate() error {
	if in.ShiftID <= 0 {
		return shared.NewValidation("shift_id", "required")
	}
	if !in.Type.Valid() {
		return shared.NewValidation("movement_type", "unknown movement type")
	}
	if in.Amount.IsNegative() {
		return shared.NewValidation("amount", "must not be negative")
	}
	return shared.ValidateMoney("amount", in.Amount)
}

// CloseShiftInput closes a shift with the counted drawer amount.
type CloseShiftInput struct {
	ShiftID    int64
	EndingCash decimal.Decimal
}

// Validate checks the shift id and the counted cash.
func (in CloseShiftInput) Validate() error {
	if in.ShiftID <= 0 {
		return shared.NewValidation("shift_id", "required")
	}
	if in.EndingCash.IsNegative() {
		return shared.NewValidation("ending_cash", "must not be negative")
	}
	return shared.ValidateMoney("ending_cash", in.EndingCash)
}

// ReconcileShiftInput signs off a closed shift.
type ReconcileShiftInput struct {
	ShiftID      int64
	ReconciledBy int64
	Notes        string
}

// ShiftPatch lists the shift fields that close and reconcile may set. Owner,
// start time and starting cash are not patchable.
type ShiftPatch struct {
	Status         Status
	EndTime        *time.Time
	EndingCash     *decimal.Decimal
	TotalSales     *decimal.Decimal
	TotalReturns   *decimal.Decimal
	NetCash        *decimal.Decimal
	ReconciledBy   *int64
	ReconciledAt   *time.Time
	ReconcileNotes *string
}
