package journals

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// fx_rate is stored as NUMERIC(18,8).
const fxRateScale = 8

var maxFxRate = decimal.New(1, 10)

// LineInput describes a proposed journal line.
type LineInput struct {
	AccountID    int64
	Debit        decimal.Decimal
	Credit       decimal.Decimal
	Currency     string
	FxRate       decimal.Decimal
	CostCenterID *int64
	ProjectID    *int64
	Memo         string
}

// CreateEntryInput groups fields required to create a balanced journal entry.
type CreateEntryInput struct {
	CompanyID int64
	BranchID  int64
	EntryDate time.Time
	Period    string
	RefNo     string
	CreatedBy int64
	Lines     []LineInput
}

// Normalize fills line defaults. The receiver is not modified.
func (in CreateEntryInput) Normalize(defaultCurrency string) CreateEntryInput {
	out := in
	out.Period = strings.TrimSpace(in.Period)
	out.RefNo = strings.TrimSpace(in.RefNo)
	out.Lines = make([]LineInput, len(in.Lines))
	for idx, line := range in.Lines {
		if strings.TrimSpace(line.Currency) == "" {
			line.Currency = defaultCurrency
		}
		line.Currency = strings.ToUpper(strings.TrimSpace(line.Currency))
		if line.FxRate.IsZero() {
			line.FxRate = decimal.NewFromInt(1)
		}
		out.Lines[idx] = line
	}
	return out
}

// Validate ensures the (normalized) input is structurally sound and balanced.
func (in CreateEntryInput) Validate() error {
	if in.CompanyID <= 0 {
		return shared.NewValidation("company_id", "required")
	}
	if in.BranchID <= 0 {
		return shared.NewValidation("branch_id", "required")
	}
	if in.EntryDate.IsZero() {
		return shared.NewValidation("entry_date", "required")
	}
	if in.CreatedBy <= 0 {
		return shared.NewValidation("created_by", "required")
	}
	if len(in.Lines) == 0 {
		return shared.NewValidation("lines", "at least one line required")
	}
	var debit, credit decimal.Decimal
	for idx, line := range in.Lines {
		field := fmt.Sprintf("lines[%d]", idx)
		if line.AccountID <= 0 {
			return shared.NewValidation(field+".account_id", "required")
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return shared.NewValidation(field, "negative amount")
		}
		if err := shared.ValidateMoney(field+".debit", line.Debit); err != nil {
			return err
		}
		if err := shared.ValidateMoney(field+".credit", line.Credit); err != nil {
			return err
		}
		if !line.FxRate.IsPositive() {
			return shared.NewValidation(field+".fx_rate", "must be positive")
		}
		if !line.FxRate.Equal(line.FxRate.Round(fxRateScale)) || line.FxRate.GreaterThanOrEqual(maxFxRate) {
			return shared.NewValidation(field+".fx_rate", "at most 8 decimal places and below 10^10")
		}
		if _, err := currency.ParseISO(line.Currency); err != nil {
			return shared.NewValidation(field+".currency", fmt.Sprintf("unknown currency %q", line.Currency))
		}
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	if !debit.Equal(credit) {
		return shared.NewValidation("lines", "debit/credit mismatch")
	}
	return nil
}

// EntryPatch lists the header fields a status transition may change. Lines and
// amounts are deliberately absent.
type EntryPatch struct {
	ExpectedVersion int64
	Status          EntryStatus
	ApprovedBy      *int64
	ApprovedAt      *time.Time
	PostedBy        *int64
	PostedAt        *time.Time
	VoidedBy        *int64
	VoidedAt        *time.Time
	VoidReason      *string
}


// TransitionInput identifies an entry and the acting user.
type TransitionInput struct {
	EntryID int64
	ActorID int64
	Reason  string
}
