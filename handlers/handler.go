package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"papum-backend/balance"
	"papum-backend/config"
	"papum-backend/database"
	"papum-backend/logger"
	"papum-backend/models"
	"papum-backend/realtime"
	"papum-backend/services"
	"papum-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const defaultKeepAlive = 25 * time.Second

// Balances match payers to members by name, so names are unique per house.
var errNameTaken = errors.New("name already used in this house")

// Handler carries the collaborators every route needs.
type Handler struct {
	cfg           *config.Config
	store         database.Store
	notifier      realtime.Notifier
	notifications *services.NotificationService
	invitations   *services.InvitationService
	advisor       *services.Advisor
	keepAlive     time.Duration
	log           *slog.Logger
}

type Deps struct {
	Config        *config.Config
	Store         database.Store
	Notifier      realtime.Notifier
	Notifications *services.NotificationService
	Invitations   *services.InvitationService
	Advisor       *services.Advisor
	// KeepAlive is the ping interval of the events stream.
	KeepAlive time.Duration
}

func New(d Deps) *Handler {
	keepAlive := d.KeepAlive
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	return &Handler{
		cfg:           d.Config,
		store:         d.Store,
		notifier:      d.Notifier,
		notifications: d.Notifications,
		invitations:   d.Invitations,
		advisor:       d.Advisor,
		keepAlive:     keepAlive,
		log:           logger.Component("handlers"),
	}
}

// currentUser loads the authenticated user or writes the error response.
func (h *Handler) currentUser(c *gin.Context) (*models.User, bool) {
	userID := utils.GetCurrentUserID(c)
	if userID == uuid.Nil {
		utils.Unauthorized(c, "Authentication required")
		return nil, false
	}
	user, err := h.store.GetUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.Unauthorized(c, "User no longer exists")
		} else {
			h.log.Error("❌ Failed to load user", "user_id", userID, "error", err)
			utils.InternalError(c, "Failed to load user")
		}
		return nil, false
	}
	return user, true
}

// houseForMember resolves the :id house and checks the caller lives there.
func (h *Handler) houseForMember(c *gin.Context) (*models.House, *models.User, bool) {
	houseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid house ID")
		return nil, nil, false
	}
	user, ok := h.currentUser(c)
	if !ok {
		return nil, nil, false
	}
	if !user.InHouse(houseID) {
		utils.Forbidden(c, "You are not a member of this house")
		return nil, nil, false
	}
	house, err := h.store.GetHouse(c.Request.Context(), houseID)
	if err != nil {
		h.storeError(c, err, "House not found")
		return nil, nil, false
	}
	return house, user, true
}

func (h *Handler) storeError(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		utils.NotFound(c, notFound)
	case errors.Is(err, database.ErrDuplicate):
		utils.Conflict(c, "Record already exists")
	case errors.Is(err, errNameTaken):
		utils.Conflict(c, "Someone in this house already uses this name")
	default:
		h.log.Error("❌ Store operation failed", "path", c.FullPath(), "error", err)
		utils.InternalError(c, "Something went wrong, please try again")
	}
}

// publish tells subscribers the house changed. Failures are logged only;
// the write has already succeeded.
func (h *Handler) publish(ctx context.Context, houseID uuid.UUID, kind string) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.Publish(ctx, realtime.NewEvent(houseID, kind)); err != nil {
		h.log.Warn("⚠️  Failed to publish change event", "house_id", houseID, "kind", kind, "error", err)
	}
}

func (h *Handler) logActivity(ctx context.Context, houseID uuid.UUID, user *models.User, kind string, ref uuid.UUID, description string) {
	err := h.store.LogActivity(ctx, &models.Activity{
		HouseID:     houseID,
		UserID:      user.ID,
		UserName:    user.Name,
		Type:        kind,
		ReferenceID: ref,
		Description: description,
	})
	if err != nil {
		h.log.Warn("⚠️  Failed to log activity", "house_id", houseID, "type", kind, "error", err)
	}
}

// memberNamed returns the house member going by name, ignoring case, or nil.
func (h *Handler) memberNamed(ctx context.Context, houseID uuid.UUID, name string) (*models.User, error) {
	members, err := h.store.ListHouseMembers(ctx, houseID)
	if err != nil {
		return nil, err
	}
	for i := range members {
		if strings.EqualFold(members[i].Name, name) {
			return &members[i], nil
		}
	}
	return nil, nil
}

// checkNameFree returns errNameTaken when a member other than self uses name.
func (h *Handler) checkNameFree(ctx context.Context, houseID uuid.UUID, name string, self uuid.UUID) error {
	member, err := h.memberNamed(ctx, houseID, name)
	if err != nil {
		return err
	}
	if member != nil && member.ID != self {
		return errNameTaken
	}
	return nil
}

// memberOf maps a user in a house onto the balance engine's member.
func memberOf(user *models.User, house *models.House) balance.Member {
	return balance.Member{
		Name:            user.Name,
		SharePercentage: user.SharePercentage,
		Roommates:       house.Roommates,
	}
}

// notifyAsync runs a notification off the request path.
func (h *Handler) notifyAsync(send func(ns *services.NotificationService)) {
	if h.notifications == nil {
		return
	}
	go send(h.notifications)
}
