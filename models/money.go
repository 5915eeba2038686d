package models

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// Clients read amounts as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

var (
	ErrInvalidAmount     = errors.New("amount must be a positive number")
	ErrInvalidPercentage = errors.New("share percentage must be between 0 and 100")
)

var hundred = decimal.NewFromInt(100)

// Percentage is a convenience constructor for optional share fields.
func Percentage(p float64) *decimal.Decimal {
	d := decimal.NewFromFloat(p)
	return &d
}

// ValidatePercentage accepts nil (use the default) or a value in [0, 100].
func ValidatePercentage(p *decimal.Decimal) error {
	if p == nil {
		return nil
	}
	if p.IsNegative() || p.GreaterThan(hundred) {
		return ErrInvalidPercentage
	}
	return nil
}

// AmountInput accepts a JSON number or a string using either "." or ","
// as decimal separator, e.g. 12.5, "12.50" or "12,50".
type AmountInput string

func (a *AmountInput) UnmarshalJSON(b []byte) error {
	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return ErrInvalidAmount
		}
		s = n.String()
	}
	*a = AmountInput(s)
	return nil
}

// Decimal parses the input and rounds it to cents. Zero and negatives are rejected.
func (a AmountInput) Decimal() (decimal.Decimal, error) {
	s := strings.TrimSpace(string(a))
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
