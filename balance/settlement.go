package balance

import (
	"time"

	"papum-backend/models"

	"github.com/shopspring/decimal"
)

// BuildSettlement records a transfer of amount from the member, dated today.
func BuildSettlement(m Member, amount decimal.Decimal) models.Expense {
	return BuildSettlementAt(m, amount, time.Now())
}

// BuildSettlementAt is BuildSettlement with an explicit clock.
//
// The zero share keeps the payer's required contribution unchanged, so the
// whole amount counts as cash handed to the counterparty. The amount is not
// clamped; use ValidateSettlementAmount first.
func BuildSettlementAt(m Member, amount decimal.Decimal, at time.Time) models.Expense {
	zero := decimal.Zero
	return models.Expense{
		Name:            models.SettlementName,
		Category:        models.CategoryPayment,
		Date:            models.NewDate(at),
		Value:           amount,
		PaidBy:          m.Name,
		SharePercentage: &zero,
	}
}

// ValidateSettlementAmount checks 0 < amount <= |balance| for a member who owes.
// Both sides are compared at cent precision.
func ValidateSettlementAmount(amount, balance decimal.Decimal) error {
	owed := balance.Round(2)
	if !owed.IsNegative() {
		return ErrNothingOwed
	}
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if amount.GreaterThan(owed.Abs()) {
		return ErrAmountExceedsBalance
	}
	return nil
}

// SettleAll is the "pay everything" shortcut.
func SettleAll(balance decimal.Decimal) decimal.Decimal {
	return balance.Abs().Round(2)
}

// SettleHalf is the "pay half" shortcut.
func SettleHalf(balance decimal.Decimal) decimal.Decimal {
	return balance.Abs().Div(decimal.NewFromInt(2)).Round(2)
}
