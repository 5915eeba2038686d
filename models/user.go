package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type User struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Email           string           `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Phone           string           `gorm:"size:20" json:"phone,omitempty"`
	Name            string           `gorm:"not null;size:100" json:"name"`
	Pix             string           `gorm:"size:100" json:"pix"`
	SharePercentage *decimal.Decimal `gorm:"type:decimal(5,2)" json:"share_percentage,omitempty"` // default share of every expense, 50 when unset
	HouseID         *uuid.UUID       `gorm:"type:uuid;index" json:"house_id,omitempty"`
	PasswordHash    string           `gorm:"not null;size:255" json:"-"`
	FCMToken        string           `json:"-"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) InHouse(houseID uuid.UUID) bool {
	return u.HouseID != nil && *u.HouseID == houseID
}

// Response struct (what we return to clients)
type UserResponse struct {
	ID              uuid.UUID        `json:"id"`
	Email           string           `json:"email"`
	Phone           string           `json:"phone,omitempty"`
	Name            string           `json:"name"`
	Pix             string           `json:"pix"`
	SharePercentage *decimal.Decimal `json:"share_percentage,omitempty"`
	HouseID         *uuid.UUID       `json:"house_id,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:              u.ID,
		Email:           u.Email,
		Phone:           u.Phone,
		Name:            u.Name,
		Pix:             u.Pix,
		SharePercentage: u.SharePercentage,
		HouseID:         u.HouseID,
		CreatedAt:       u.CreatedAt,
	}
}
