package models

import "github.com/shopspring/decimal"

const (
	SettlementName = "Acerto de Contas"

	IdempotencyHeader = "Idempotency-Key"
)

type SettleRequest struct {
	Amount AmountInput `json:"amount" binding:"required"`
}

type SettlementResponse struct {
	Settlement Expense         `json:"settlement"`
	Balance    decimal.Decimal `json:"balance"` // balance after the settlement
	Replayed   bool            `json:"replayed"`
}
