package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const DefaultRoommates = 2

type House struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string    `gorm:"not null;size:100" json:"name"`
	InviteCode string    `gorm:"uniqueIndex;not null;size:16" json:"invite_code"`
	Roommates  int       `gorm:"not null;default:2" json:"roommates"`
	CreatedBy  uuid.UUID `gorm:"type:uuid" json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (h *House) BeforeCreate(tx *gorm.DB) error {
	h.EnsureIdentity()
	return nil
}

// EnsureIdentity fills in the id, invite code and roommate count when missing.
func (h *House) EnsureIdentity() {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.InviteCode == "" {
		h.InviteCode = NewInviteCode()
	}
	if h.Roommates < 1 {
		h.Roommates = DefaultRoommates
	}
}

// NewInviteCode returns an 8 character uppercase code for invite links.
func NewInviteCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// NormalizeInviteCode makes codes typed by hand comparable.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Request structs
type CreateHouseRequest struct {
	Name      string `json:"name" binding:"required"`
	Roommates int    `json:"roommates"`
}

type UpdateHouseRequest struct {
	Name            string           `json:"name"`
	Roommates       *int             `json:"roommates"`
	Pix             *string          `json:"pix"`
	SharePercentage *decimal.Decimal `json:"share_percentage"`
}

type JoinHouseRequest struct {
	InviteCode string `json:"invite_code" binding:"required"`
}

type InviteRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Response structs
type HouseResponse struct {
	ID         uuid.UUID        `json:"id"`
	Name       string           `json:"name"`
	InviteCode string           `json:"invite_code"`
	InviteLink string           `json:"invite_link"`
	Roommates  int              `json:"roommates"`
	CreatedBy  uuid.UUID        `json:"created_by"`
	Members    []MemberResponse `json:"members"`
	CreatedAt  time.Time        `json:"created_at"`
}

type MemberResponse struct {
	UserID          uuid.UUID        `json:"user_id"`
	Name            string           `json:"name"`
	Pix             string           `json:"pix"`
	Phone           string           `json:"phone,omitempty"`
	SharePercentage *decimal.Decimal `json:"share_percentage,omitempty"`
}
