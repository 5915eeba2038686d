package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	BalanceOwed    = "owed"    // others owe the member
	BalanceOwes    = "owes"    // the member owes others
	BalanceSettled = "settled" // nobody owes anything
)

// SummaryResponse is returned for GET /api/houses/:id/summary
type SummaryResponse struct {
	HouseID                uuid.UUID       `json:"house_id"`
	Strategy               string          `json:"strategy"`
	TotalGroupSpend        decimal.Decimal `json:"total_group_spend"`
	MyTotalPaid            decimal.Decimal `json:"my_total_paid"`
	MyRequiredContribution decimal.Decimal `json:"my_required_contribution"`
	Balance                decimal.Decimal `json:"balance"`
	Status                 string          `json:"status"`
	PartnerName            string          `json:"partner_name"`
	PartnerPix             string          `json:"partner_pix,omitempty"`
	BaseShare              decimal.Decimal `json:"base_share"`
	PartnerShare           decimal.Decimal `json:"partner_share"`
	SettleHalf             decimal.Decimal `json:"settle_half"`
	SettleAll              decimal.Decimal `json:"settle_all"`
	ExpenseCount           int             `json:"expense_count"`
}

// CategoryTotal is the spend of one category, settlements excluded.
type CategoryTotal struct {
	Category Category        `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

type TipResponse struct {
	Tip        string          `json:"tip"`
	Categories []CategoryTotal `json:"categories"`
	Fallback   bool            `json:"fallback"`
}
