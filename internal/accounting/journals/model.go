package journals

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Account models a chart of accounts node. Accounts are maintained by master
// data and only read here.
type Account struct {
	ID         int64
	Code       string
	Name       string
	NameAlt    string
	Type       AccountType
	Level      int
	ParentID   *int64
	Currency   string
	IsPostable bool
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// EntryStatus enumerates journal lifecycle values.
type EntryStatus string

const (
	EntryStatusDraft    EntryStatus = "DRAFT"
	EntryStatusApproved EntryStatus = "APPROVED"
	EntryStatusPosted   EntryStatus = "POSTED"
	EntryStatusVoided   EntryStatus = "VOIDED"
)

// transitions lists the legal status moves.
var transitions = map[EntryStatus][]EntryStatus{
	EntryStatusDraft:    {EntryStatusApproved, EntryStatusVoided},
	EntryStatusApproved: {EntryStatusPosted, EntryStatusVoided},
	EntryStatusPosted:   {EntryStatusVoided},
}

// CanTransition reports whether an entry may move from s to next.
func (s EntryStatus) CanTransition(next EntryStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status.
func (s EntryStatus) Valid() bool {
	switch s {
	case EntryStatusDraft, EntryStatusApproved, EntryStatusPosted, EntryStatusVoided:
		return true
	}
	return false
}

// JournalEntry captures header metadata. The entry owns its lines.
type JournalEntry struct {
	ID         int64         `json:"id"`
	CompanyID  int64         `json:"company_id"`
	BranchID   int64         `json:"branch_id"`
	EntryDate  time.Time     `json:"entry_date"`
	Period     string        `json:"period"`
	RefNo      string        `json:"ref_no"`
	Status     EntryStatus   `json:"status"`
	CreatedBy  int64         `json:"created_by"`
	ApprovedBy *int64        `json:"approved_by,omitempty"`
	ApprovedAt *time.Time    `json:"approved_at,omitempty"`
	PostedBy   *int64        `json:"posted_by,omitempty"`
	PostedAt   *time.Time    `json:"posted_at,omitempty"`
	VoidedBy   *int64        `json:"voided_by,omitempty"`
	VoidedAt   *time.Time    `json:"voided_at,omitempty"`
	VoidReason string        `json:"void_reason,omitempty"`
	Version    int64         `json:"version"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	Lines      []JournalLine `json:"lines,omitempty"`
}

// Totals sums the debit and credit side of the entry lines.
func (e JournalEntry) Totals() (debit, credit decimal.Decimal) {
	return sumLines(e.Lines)
}

// JournalLine stores a debit or credit amount for an account.
type JournalLine struct {
	ID           int64           `json:"id"`
	JournalID    int64           `json:"journal_id"`
	AccountID    int64           `json:"account_id"`
	Debit        decimal.Decimal `json:"debit"`
	Credit       decimal.Decimal `json:"credit"`
	Currency     string          `json:"currency"`
	FxRate       decimal.Decimal `json:"fx_rate"`
	CostCenterID *int64          `json:"cost_center_id,omitempty"`
	ProjectID    *int64          `json:"project_id,omitempty"`
	Memo         string          `json:"memo,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// UnbalancedEntry is reported by the integrity scan.
type UnbalancedEntry struct {
	EntryID int64
	Debit   decimal.Decimal
	Credit  decimal.Decimal
}

func sumLines(lines []JournalLine) (debit, credit decimal.Decimal) {
	for _, line := range lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return debit, credit
}
