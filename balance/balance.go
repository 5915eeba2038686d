// Package balance computes who owes whom inside a house.
//
// Every function here is pure: it works on the expense list it is given,
// keeps no state and performs no I/O. Callers re-run it whenever the
// expense list changes.
package balance

import (
	"errors"
	"sort"

	"papum-backend/models"

	"github.com/shopspring/decimal"
)

// DefaultSharePercentage applies when neither the expense nor the member sets a share.
var DefaultSharePercentage = decimal.NewFromInt(50)

// PartnerPlaceholder is returned when no counterparty appears in the expenses.
const PartnerPlaceholder = "Parceiro(a)"

var hundred = decimal.NewFromInt(100)

var (
	ErrUnknownStrategy      = errors.New("unknown split strategy")
	ErrNonPositiveAmount    = errors.New("settlement amount must be greater than zero")
	ErrAmountExceedsBalance = errors.New("settlement amount exceeds the outstanding balance")
	ErrNothingOwed          = errors.New("there is nothing to settle")
)

// Member is the acting user as seen by the engine.
type Member struct {
	Name            string
	SharePercentage *decimal.Decimal // nil means DefaultSharePercentage
	Roommates       int              // only used by the equal split
}

// Summary is the member's position against the rest of the house.
type Summary struct {
	TotalGroupSpend        decimal.Decimal
	MyTotalPaid            decimal.Decimal
	MyRequiredContribution decimal.Decimal
	Balance                decimal.Decimal // positive: owed to the member, negative: the member owes
}

// Status classifies the balance once rounded to cents.
func (s Summary) Status() string {
	b := s.Balance.Round(2)
	switch {
	case b.IsPositive():
		return models.BalanceOwed
	case b.IsNegative():
		return models.BalanceOwes
	default:
		return models.BalanceSettled
	}
}

// EffectiveShare resolves expense override, then member default, then 50.
func EffectiveShare(e models.Expense, m Member) decimal.Decimal {
	if e.SharePercentage != nil {
		return *e.SharePercentage
	}
	return BaseShare(m)
}

// BaseShare is the member's default share of every expense.
func BaseShare(m Member) decimal.Decimal {
	if m.SharePercentage != nil {
		return *m.SharePercentage
	}
	return DefaultSharePercentage
}

// PartnerShare is the complement of the member's base share in a two-party split.
func PartnerShare(m Member) decimal.Decimal {
	return hundred.Sub(BaseShare(m))
}

// ComputeSummary runs the percentage split.
//
// Settlement rows are excluded from TotalGroupSpend but count towards
// MyTotalPaid and, weighted by their own share (zero for settlements built
// by BuildSettlement), towards MyRequiredContribution.
func ComputeSummary(expenses []models.Expense, m Member) Summary {
	s := Summary{
		TotalGroupSpend: totalSpend(expenses),
		MyTotalPaid:     totalPaidBy(expenses, m.Name),
	}
	required := decimal.Zero
	for _, e := range expenses {
		required = required.Add(e.Value.Mul(EffectiveShare(e, m)).Div(hundred))
	}
	s.MyRequiredContribution = required
	s.Balance = s.MyTotalPaid.Sub(required)
	return s
}

// ComputeEqualSplitSummary splits the total spend evenly across m.Roommates.
func ComputeEqualSplitSummary(expenses []models.Expense, m Member) Summary {
	roommates := m.Roommates
	if roommates < 1 {
		roommates = 1
	}
	s := Summary{
		TotalGroupSpend: totalSpend(expenses),
		MyTotalPaid:     totalPaidBy(expenses, m.Name),
	}
	s.MyRequiredContribution = s.TotalGroupSpend.Div(decimal.NewFromInt(int64(roommates)))
	s.Balance = s.MyTotalPaid.Sub(s.MyRequiredContribution)
	return s
}

// ResolvePartnerName returns the first payer other than the member, in list order.
func ResolvePartnerName(expenses []models.Expense, m Member) string {
	for _, e := range expenses {
		if e.PaidBy != m.Name {
			return e.PaidBy
		}
	}
	return PartnerPlaceholder
}

// SpendingByCategory totals each category in enumeration order, skipping
// settlements and categories without spend.
func SpendingByCategory(expenses []models.Expense) []models.CategoryTotal {
	totals := make(map[models.Category]decimal.Decimal)
	for _, e := range expenses {
		if e.IsSettlement() {
			continue
		}
		totals[e.Category] = totals[e.Category].Add(e.Value)
	}

	var out []models.CategoryTotal
	for _, c := range models.Categories {
		if t, ok := totals[c]; ok {
			out = append(out, models.CategoryTotal{Category: c, Total: t})
			delete(totals, c)
		}
	}
	// rows stored before the enumeration was closed
	rest := make([]models.Category, 0, len(totals))
	for c := range totals {
		rest = append(rest, c)
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	for _, c := range rest {
		out = append(out, models.CategoryTotal{Category: c, Total: totals[c]})
	}
	return out
}

func totalSpend(expenses []models.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		if !e.IsSettlement() {
			total = total.Add(e.Value)
		}
	}
	return total
}

func totalPaidBy(expenses []models.Expense, name string) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		if e.PaidBy == name {
			total = total.Add(e.Value)
		}
	}
	return total
}
