package shared

import "github.com/shopspring/decimal"

// MoneyScale is the number of fractional digits stored for money columns.
const MoneyScale = 2

// maxMoney is the first value a NUMERIC(18,2) column cannot hold.
var maxMoney = decimal.New(1, 16)

// ValidateMoney rejects amounts the money columns would round or overflow.
// Sign rules stay with the caller.
func ValidateMoney(field string, amount decimal.Decimal) error {
	if !amount.Equal(amount.Round(MoneyScale)) {
		return NewValidation(field, "at most 2 decimal places")
	}
	if amount.Abs().GreaterThanOrEqual(maxMoney) {
		return NewValidation(field, "exceeds the maximum amount")
	}
	return nil
}
