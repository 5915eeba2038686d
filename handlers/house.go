package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"papum-backend/models"
	"papum-backend/realtime"
	"papum-backend/services"
	"papum-backend/utils"

	"github.com/gin-gonic/gin"
)

// POST /api/houses
func (h *Handler) CreateHouse(c *gin.Context) {
	ctx := c.Request.Context()
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	if user.HouseID != nil {
		utils.Conflict(c, "You already belong to a house, leave it first")
		return
	}

	var req models.CreateHouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	if req.Roommates < 0 {
		utils.BadRequest(c, "Roommates must be at least 1")
		return
	}

	house := models.House{
		Name:      strings.TrimSpace(req.Name),
		Roommates: req.Roommates,
		CreatedBy: user.ID,
	}
	if err := h.store.CreateHouse(ctx, &house); err != nil {
		h.storeError(c, err, "")
		return
	}

	houseID := house.ID
	user.HouseID = &houseID
	if err := h.store.UpdateUser(ctx, user); err != nil {
		h.storeError(c, err, "User not found")
		return
	}

	h.logActivity(ctx, house.ID, user, models.ActivityHouseCreated, house.ID,
		fmt.Sprintf("%s criou a casa \"%s\"", user.Name, house.Name))

	response, err := h.buildHouseResponse(ctx, &house)
	if err != nil {
		h.storeError(c, err, "House not found")
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "House created", response)
}

// GET /api/houses/current
func (h *Handler) GetCurrentHouse(c *gin.Context) {
	ctx := c.Request.Context()
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	if user.HouseID == nil {
		utils.NotFound(c, "You are not in a house yet")
		return
	}

	house, err := h.store.GetHouse(ctx, *user.HouseID)
	if err != nil {
		h.storeError(c, err, "House not found")
		return
	}

	response, err := h.buildHouseResponse(ctx, house)
	if err != nil {
		h.storeError(c, err, "House not found")
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", response)
}

// PUT /api/houses/:id
//
// Besides the house itself, the caller may update their own pix key and
// default share in the same request.
func (h *Handler) UpdateHouse(c *gin.Context) {
	ctx := c.Request.Context()
	house, user, ok := h.houseForMember(c)
	if !ok {
		return
	}

	var req models.UpdateHouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	if req.Roommates != nil && *req.Roommates < 1 {
		utils.BadRequest(c, "Roommates must be at least 1")
		return
	}
	if err := models.ValidatePercentage(req.SharePercentage); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		house.Name = name
	}
	if req.Roommates != nil {
		house.Roommates = *req.Roommates
	}
	if err := h.store.UpdateHouse(ctx, house); err != nil {
		h.storeError(c, err, "House not found")
		return
	}

	if req.Pix != nil || req.SharePercentage != nil {
		if req.Pix != nil {
			user.Pix = strings.TrimSpace(*req.Pix)
		}
		if req.SharePercentage != nil {
			share := *req.SharePercentage
			user.SharePercentage = &share
		}
		if err := h.store.UpdateUser(ctx, user); err != nil {
			h.storeError(c, err, "User not found")
			return
		}
	}

	h.logActivity(ctx, house.ID, user, models.ActivityHouseUpdated, house.ID,
		fmt.Sprintf("%s atualizou os ajustes da casa", user.Name))
	h.publish(ctx, house.ID, realtime.KindHouseChanged)

	response, err := h.buildHouseResponse(ctx, house)
	if err != nil {
		h.storeError(c, err, "House not found")
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "House updated", response)
}

// POST /api/houses/join
func (h *Handler) JoinHouse(c *gin.Context) {
	ctx := c.Request.Context()
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req models.JoinHouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	house, err := h.store.GetHouseByInviteCode(ctx, req.InviteCode)
	if err != nil {
		h.storeError(c, err, "Invalid invite code")
		return
	}

	switch {
	case user.InHouse(house.ID):
		// Following the same link twice is harmless
	case user.HouseID != nil:
		utils.Conflict(c, "You already belong to a house, leave it first")
		return
	default:
		if err := h.joinHouse(ctx, user, house); err != nil {
			h.storeError(c, err, "House not found")
			return
		}
	}

	response, err := h.buildHouseResponse(ctx, house)
	if err != nil {
		h.storeError(c, err, "House not found")
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Joined house", response)
}

// POST /api/houses/:id/leave
func (h *Handler) LeaveHouse(c *gin.Context) {
	ctx := c.Request.Context()
	house, user, ok := h.houseForMember(c)
	if !ok {
		return
	}

	user.HouseID = nil
	if err := h.store.UpdateUser(ctx, user); err != nil {
		h.storeError(c, err, "User not found")
		return
	}

	h.logActivity(ctx, house.ID, user, models.ActivityMemberLeft, house.ID,
		fmt.Sprintf("%s saiu de %s", user.Name, house.Name))
	h.publish(ctx, house.ID, realtime.KindHouseChanged)

	utils.SuccessResponse(c, http.StatusOK, "Left house", nil)
}

// DELETE /api/houses/:id
//
// Any member may delete the house; expenses and history go with it.
func (h *Handler) DeleteHouse(c *gin.Context) {
	ctx := c.Request.Context()
	house, user, ok := h.houseForMember(c)
	if !ok {
		return
	}

	if err := h.store.DeleteHouse(ctx, house.ID); err != nil {
		h.storeError(c, err, "House not found")
		return
	}

	h.log.Info("🗑️  House deleted", "house_id", house.ID, "user_id", user.ID)
	h.publish(ctx, house.ID, realtime.KindHouseChanged)

	utils.SuccessResponse(c, http.StatusOK, "House deleted", nil)
}

// POST /api/houses/:id/invite
func (h *Handler) InviteToHouse(c *gin.Context) {
	house, user, ok := h.houseForMember(c)
	if !ok {
		return
	}

	var req models.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	invitation, err := h.invitations.InviteToHouse(c.Request.Context(), *house, *user, req.Email)
	switch {
	case errors.Is(err, services.ErrAlreadyMember):
		utils.Conflict(c, "This person already lives here")
		return
	case errors.Is(err, services.ErrMemberOfOtherHouse):
		utils.Conflict(c, "This person already belongs to another house")
		return
	case err != nil:
		h.storeError(c, err, "")
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Invitation sent", invitation)
}

// Helper: build full house response with members
func (h *Handler) buildHouseResponse(ctx context.Context, house *models.House) (models.HouseResponse, error) {
	members, err := h.store.ListHouseMembers(ctx, house.ID)
	if err != nil {
		return models.HouseResponse{}, fmt.Errorf("list members: %w", err)
	}

	memberResponses := make([]models.MemberResponse, 0, len(members))
	for _, m := range members {
		memberResponses = append(memberResponses, models.MemberResponse{
			UserID:          m.ID,
			Name:            m.Name,
			Pix:             m.Pix,
			Phone:           m.Phone,
			SharePercentage: m.SharePercentage,
		})
	}

	return models.HouseResponse{
		ID:         house.ID,
		Name:       house.Name,
		InviteCode: house.InviteCode,
		InviteLink: h.cfg.InviteLink(house.InviteCode),
		Roommates:  house.Roommates,
		CreatedBy:  house.CreatedBy,
		Members:    memberResponses,
		CreatedAt:  house.CreatedAt,
	}, nil
}

