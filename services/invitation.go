package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"papum-backend/database"
	"papum-backend/logger"
	"papum-backend/models"
)

var (
	ErrAlreadyMember      = errors.New("user is already a member of this house")
	ErrMemberOfOtherHouse = errors.New("user already belongs to another house")
)

// Inviter is the part of NotificationService the invitation flow needs.
type Inviter interface {
	NotifyInvitation(email, inviterName, houseName, link string)
}

// InvitationService records invitations and e-mails the invite link.
type InvitationService struct {
	store   database.Store
	notify  Inviter
	linkFor func(code string) string
	log     *slog.Logger
}

func NewInvitationService(store database.Store, notify Inviter, linkFor func(code string) string) *InvitationService {
	return &InvitationService{
		store:   store,
		notify:  notify,
		linkFor: linkFor,
		log:     logger.Component("invitations"),
	}
}

// InviteToHouse creates a pending invitation unless one exists already and
// sends the e-mail asynchronously. Registered users who live elsewhere
// cannot be invited.
func (s *InvitationService) InviteToHouse(ctx context.Context, house models.House, inviter models.User, email string) (*models.Invitation, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	existing, err := s.store.GetUserByEmail(ctx, email)
	switch {
	case err == nil && existing.InHouse(house.ID):
		return nil, ErrAlreadyMember
	case err == nil && existing.HouseID != nil:
		return nil, ErrMemberOfOtherHouse
	case err != nil && !errors.Is(err, database.ErrNotFound):
		return nil, fmt.Errorf("look up invitee: %w", err)
	}

	pending, err := s.store.PendingInvitations(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("load pending invitations: %w", err)
	}
	var invitation *models.Invitation
	for i := range pending {
		if pending[i].HouseID == house.ID {
			invitation = &pending[i]
			s.log.Info("⚠️  Invitation already exists, sending again", "email", email, "house_id", house.ID)
			break
		}
	}

	if invitation == nil {
		invitation = &models.Invitation{
			HouseID:   house.ID,
			InvitedBy: inviter.ID,
			Email:     email,
			Status:    models.InvitationPending,
		}
		if err := s.store.CreateInvitation(ctx, invitation); err != nil {
			return nil, fmt.Errorf("create invitation: %w", err)
		}
	}

	if s.notify != nil {
		go s.notify.NotifyInvitation(email, inviter.Name, house.Name, s.linkFor(house.InviteCode))
	}

	s.log.Info("✅ Invitation sent", "email", email, "house_id", house.ID)
	return invitation, nil
}

// AcceptPending returns the house of the oldest pending invitation for the
// e-mail, marking it accepted. Newer invitations stay pending.
func (s *InvitationService) AcceptPending(ctx context.Context, email string) (*models.House, error) {
	pending, err := s.store.PendingInvitations(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("load pending invitations: %w", err)
	}
	for _, inv := range pending {
		house, err := s.store.GetHouse(ctx, inv.HouseID)
		if errors.Is(err, database.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load invited house: %w", err)
		}
		if err := s.store.MarkInvitation(ctx, inv.ID, models.InvitationAccepted); err != nil {
			return nil, fmt.Errorf("accept invitation: %w", err)
		}
		return house, nil
	}
	return nil, nil
}
