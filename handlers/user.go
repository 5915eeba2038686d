package handlers

import (
	"net/http"
	"strings"

	"papum-backend/models"
	"papum-backend/realtime"
	"papum-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type UpdateProfileRequest struct {
	Name                 *string          `json:"name"`
	Phone                *string          `json:"phone"`
	Pix                  *string          `json:"pix"`
	SharePercentage      *decimal.Decimal `json:"share_percentage"`
	ClearSharePercentage bool             `json:"clear_share_percentage"`
}

type UpdateFCMTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// GET /api/users/me
func (h *Handler) GetProfile(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", user.ToResponse())
}

// PUT /api/users/me
//
// Renaming does not touch paid_by on past expenses.
func (h *Handler) UpdateProfile(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	if err := models.ValidatePercentage(req.SharePercentage); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			utils.BadRequest(c, "Name cannot be empty")
			return
		}
		if user.HouseID != nil {
			if err := h.checkNameFree(c.Request.Context(), *user.HouseID, name, user.ID); err != nil {
				h.storeError(c, err, "House not found")
				return
			}
		}
		user.Name = name
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Pix != nil {
		user.Pix = strings.TrimSpace(*req.Pix)
	}
	switch {
	case req.ClearSharePercentage:
		user.SharePercentage = nil
	case req.SharePercentage != nil:
		share := *req.SharePercentage
		user.SharePercentage = &share
	}

	if err := h.store.UpdateUser(c.Request.Context(), user); err != nil {
		h.storeError(c, err, "User not found")
		return
	}

	// Shares and names feed every summary of the house
	if user.HouseID != nil {
		h.publish(c.Request.Context(), *user.HouseID, realtime.KindHouseChanged)
	}

	utils.SuccessResponse(c, http.StatusOK, "Profile updated", user.ToResponse())
}

// PUT /api/users/me/fcm-token
func (h *Handler) UpdateFCMToken(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req UpdateFCMTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	user.FCMToken = req.Token
	if err := h.store.UpdateUser(c.Request.Context(), user); err != nil {
		h.storeError(c, err, "User not found")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "FCM token updated", nil)
}
