package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Expense struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	HouseID         uuid.UUID        `gorm:"type:uuid;index" json:"house_id"`
	Name            string           `gorm:"not null;size:255" json:"name"`
	Date            Date             `gorm:"index" json:"date"`
	Value           decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"value"`
	Category        Category         `gorm:"not null;size:20" json:"category"`
	PaidBy          string           `gorm:"not null;size:100" json:"paid_by"`                         // display name of the member who fronted the money
	SharePercentage *decimal.Decimal `gorm:"type:decimal(5,2)" json:"share_percentage,omitempty"`    // payer's share of this expense, overrides the member default
	CreatedBy       uuid.UUID        `gorm:"type:uuid" json:"created_by"`
	IdempotencyKey  *string          `gorm:"uniqueIndex;size:100" json:"-"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (e *Expense) BeforeCreate(tx *gorm.DB) error {
	e.EnsureID()
	return nil
}

// EnsureID assigns a fresh id to an expense that has none.
func (e *Expense) EnsureID() {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
}

func (e *Expense) IsSettlement() bool {
	return e.Category.IsPayment()
}

// Request structs
type CreateExpenseRequest struct {
	Name            string           `json:"name" binding:"required"`
	Value           AmountInput      `json:"value" binding:"required"`
	Date            string           `json:"date"` // YYYY-MM-DD, defaults to today
	Category        string           `json:"category"`
	PaidBy          string           `json:"paid_by"` // defaults to the caller
	SharePercentage *decimal.Decimal `json:"share_percentage"`
}

type UpdateExpenseRequest struct {
	Name                 *string          `json:"name"`
	Value                *AmountInput     `json:"value"`
	Date                 *string          `json:"date"`
	Category             *string          `json:"category"`
	PaidBy               *string          `json:"paid_by"`
	SharePercentage      *decimal.Decimal `json:"share_percentage"`
	ClearSharePercentage bool             `json:"clear_share_percentage"`
}

type ExpenseListQuery struct {
	Month string `form:"month"` // YYYY-MM
	Page  int    `form:"page,default=1"`
	Limit int    `form:"limit,default=50"`
}
