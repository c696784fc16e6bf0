package shifts

import "github.com/shopspring/decimal"

// Totals buckets the movements of a shift.
type Totals struct {
	CashIn             decimal.Decimal
	CashOut            decimal.Decimal
	Sales              decimal.Decimal
	SalesCount         int
	Returns            decimal.Decimal
	ReturnsCount       int
	SalesInvoiceCount  int
	ReturnInvoiceCount int
}

// Aggregate sums movements per type. Invoice counts are distinct ids.
func Aggregate(movements []Movement) Totals {
	var t Totals
	salesInvoices := make(map[int64]struct{})
	returnInvoices := make(map[int64]struct{})
	for _, m := range movements {
		switch m.Type {
		case MovementCashIn:
			t.CashIn = t.CashIn.Add(m.Amount)
		case MovementCashOut:
			t.CashOut = t.CashOut.Add(m.Amount)
		case MovementSale:
			t.Sales = t.Sales.Add(m.Amount)
			t.SalesCount++
		case MovementReturn:
			t.Returns = t.Returns.Add(m.Amount)
			t.ReturnsCount++
		}
		if m.SalesInvoiceID != nil {
			salesInvoices[*m.SalesInvoiceID] = struct{}{}
		}
		if m.ReturnInvoiceID != nil {
			returnInvoices[*m.ReturnInvoiceID] = struct{}{}
		}
	}
	t.SalesInvoiceCount = len(salesInvoices)
	t.ReturnInvoiceCount = len(returnInvoices)
	return t
}

// CloseNetCash is the value persisted on close:
// (starting + sales) - returns - ending. Cash-in and cash-out are ignored.
func CloseNetCash(starting, sales, returns, ending decimal.Decimal) decimal.Decimal {
	return starting.Add(sales).Sub(returns).Sub(ending)
}

// ExpectedCash is the drawer amount the closeout report expects:
// starting + cash in - cash out + sales - returns.
func ExpectedCash(starting decimal.Decimal, t Totals) decimal.Decimal {
	return starting.Add(t.CashIn).Sub(t.CashOut).Add(t.Sales).Sub(t.Returns)
}

// CashDifference is counted minus expected. Positive is an overage, negative a
// shortage. An uncounted drawer yields zero.
func CashDifference(ending decimal.NullDecimal, expected decimal.Decimal) decimal.Decimal {
	if !ending.Valid {
		return decimal.Zero
	}
	return ending.Decimal.Sub(expected)
}

// BuildCloseoutReport aggregates a shift and its movements without side effects.
func BuildCloseoutReport(shift Shift, movements []Movement) CloseoutReport {
	totals := Aggregate(movements)
	expected := ExpectedCash(shift.StartingCash, totals)
	return CloseoutReport{
		ShiftID:             shift.ID,
		CompanyID:           shift.CompanyID,
		BranchID:            shift.BranchID,
		UserID:              shift.UserID,
		StartTime:           shift.StartTime,
		EndTime:             shift.EndTime,
		Status:              shift.Status,
		StartingCash:        shift.StartingCash,
		EndingCash:          shift.EndingCash,
		TotalCashIn:         totals.CashIn,
		TotalCashOut:        totals.CashOut,
		TotalSales:          totals.Sales,
		SalesCount:          totals.SalesCount,
		TotalReturns:        totals.Returns,
		ReturnsCount:        totals.ReturnsCount,
		SalesInvoiceCount:   totals.SalesInvoiceCount,
		ReturnInvoiceCount:  totals.ReturnInvoiceCount,
		ExpectedCashAtClose: expected,
		CashDifference:      CashDifference(shift.EndingCash, expected),
		NetCash:             shift.NetCash,
	}
}
