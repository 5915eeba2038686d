package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"papum-backend/database"
	"papum-backend/models"
	"papum-backend/realtime"
	"papum-backend/services"
	"papum-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RegisterRequest struct {
	Name            string           `json:"name" binding:"required"`
	Email           string           `json:"email" binding:"required,email"`
	Phone           string           `json:"phone"`
	Pix             string           `json:"pix"`
	Password        string           `json:"password" binding:"required,min=6"`
	SharePercentage *decimal.Decimal `json:"share_percentage"`
	InviteCode      string           `json:"invite_code"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string              `json:"token"`
	User  models.UserResponse `json:"user"`
}

// POST /auth/register
func (h *Handler) RegisterUser(c *gin.Context) {
	ctx := c.Request.Context()

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	if err := models.ValidatePercentage(req.SharePercentage); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	// Resolve the invite link before creating anything
	var house *models.House
	if code := strings.TrimSpace(req.InviteCode); code != "" {
		found, err := h.store.GetHouseByInviteCode(ctx, code)
		if err != nil {
			h.storeError(c, err, "Invalid invite code")
			return
		}
		if err := h.checkNameFree(ctx, found.ID, strings.TrimSpace(req.Name), uuid.Nil); err != nil {
			h.storeError(c, err, "House not found")
			return
		}
		house = found
	}

	if _, err := h.store.GetUserByEmail(ctx, req.Email); err == nil {
		utils.Conflict(c, "Email already registered")
		return
	} else if !errors.Is(err, database.ErrNotFound) {
		h.storeError(c, err, "")
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.InternalError(c, "Failed to hash password")
		return
	}

	user := models.User{
		Name:            strings.TrimSpace(req.Name),
		Email:           req.Email,
		Phone:           req.Phone,
		Pix:             req.Pix,
		SharePercentage: req.SharePercentage,
		PasswordHash:    hashedPassword,
	}

	if err := h.store.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			utils.Conflict(c, "Email already registered")
			return
		}
		h.storeError(c, err, "")
		return
	}

	// An invite link wins over pending e-mail invitations
	if house == nil {
		accepted, err := h.invitations.AcceptPending(ctx, user.Email)
		if err != nil {
			h.log.Warn("⚠️  Could not accept pending invitations", "user_id", user.ID, "error", err)
		}
		house = accepted
	}
	if house != nil {
		if err := h.joinHouse(ctx, &user, house); err != nil {
			h.log.Warn("⚠️  Could not join invited house", "user_id", user.ID, "house_id", house.ID, "error", err)
		}
	}

	token, err := utils.GenerateToken(user.ID, user.Email, h.cfg.JWTSecret)
	if err != nil {
		utils.InternalError(c, "Failed to generate token")
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Registration successful", AuthResponse{
		Token: token,
		User:  user.ToResponse(),
	})
}

// POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	user, err := h.store.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.Unauthorized(c, "Invalid email or password")
			return
		}
		h.storeError(c, err, "")
		return
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Unauthorized(c, "Invalid email or password")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Email, h.cfg.JWTSecret)
	if err != nil {
		utils.InternalError(c, "Failed to generate token")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Login successful", AuthResponse{
		Token: token,
		User:  user.ToResponse(),
	})
}

// joinHouse moves the user into the house, growing the roommate count
// when the house fills up. It fails with errNameTaken when a housemate
// already goes by the user's name.
func (h *Handler) joinHouse(ctx context.Context, user *models.User, house *models.House) error {
	if err := h.checkNameFree(ctx, house.ID, user.Name, user.ID); err != nil {
		return err
	}

	houseID := house.ID
	user.HouseID = &houseID
	if err := h.store.UpdateUser(ctx, user); err != nil {
		return err
	}

	members, err := h.store.ListHouseMembers(ctx, house.ID)
	if err != nil {
		return err
	}
	if len(members) > house.Roommates {
		house.Roommates = len(members)
		if err := h.store.UpdateHouse(ctx, house); err != nil {
			return err
		}
	}

	h.logActivity(ctx, house.ID, user, models.ActivityMemberJoined, house.ID, user.Name+" entrou em "+house.Name)
	h.publish(ctx, house.ID, realtime.KindHouseChanged)

	joined, member := *house, *user
	h.notifyAsync(func(ns *services.NotificationService) { ns.NotifyMemberJoined(joined, member) })
	return nil
}
