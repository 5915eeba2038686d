package balance

import (
	"fmt"
	"strings"

	"papum-backend/models"
)

// Strategy names how required contributions are derived.
type Strategy string

const (
	// StrategyPercentage weighs every expense by the effective share.
	StrategyPercentage Strategy = "percentage"
	// StrategyEqual divides the total spend evenly across the roommates.
	StrategyEqual Strategy = "equal"
)

// ParseStrategy maps a query value to a Strategy; empty means percentage.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyPercentage:
		return StrategyPercentage, nil
	case StrategyEqual:
		return StrategyEqual, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// Compute runs the named strategy.
func Compute(strategy Strategy, expenses []models.Expense, m Member) (Summary, error) {
	switch strategy {
	case StrategyPercentage:
		return ComputeSummary(expenses, m), nil
	case StrategyEqual:
		return ComputeEqualSplitSummary(expenses, m), nil
	}
	return Summary{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
}
