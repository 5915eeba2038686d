package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActivityHouseCreated   = "house_created"
	ActivityHouseUpdated   = "house_updated"
	ActivityExpenseAdded   = "expense_added"
	ActivityExpenseUpdated = "expense_updated"
	ActivityExpenseDeleted = "expense_deleted"
	ActivitySettlement     = "settlement"
	ActivityMemberJoined   = "member_joined"
	ActivityMemberLeft     = "member_left"
)

type Activity struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	HouseID     uuid.UUID `gorm:"type:uuid;index" json:"house_id"`
	UserID      uuid.UUID `gorm:"type:uuid" json:"user_id"`
	UserName    string    `gorm:"size:100" json:"user_name"`
	Type        string    `gorm:"not null;size:30" json:"type"`
	ReferenceID uuid.UUID `gorm:"type:uuid" json:"reference_id,omitempty"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
