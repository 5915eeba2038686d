package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"papum-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on top of Postgres.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// DB exposes the connection for collaborators that share it, like the
// Postgres realtime notifier.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// Users

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Create(u).Error, "create user")
}

func (s *GormStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get user")
	}
	return &u, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if err != nil {
		return nil, translate(err, "get user by email")
	}
	return &u, nil
}

func (s *GormStore) UpdateUser(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Save(u).Error, "update user")
}

func (s *GormStore) ListHouseMembers(ctx context.Context, houseID uuid.UUID) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Where("house_id = ?", houseID).Order("created_at ASC").Find(&users).Error
	return users, translate(err, "list house members")
}

// Houses

func (s *GormStore) CreateHouse(ctx context.Context, h *models.House) error {
	return translate(s.db.WithContext(ctx).Create(h).Error, "create house")
}

func (s *GormStore) GetHouse(ctx context.Context, id uuid.UUID) (*models.House, error) {
	var h models.House
	if err := s.db.WithContext(ctx).First(&h, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get house")
	}
	return &h, nil
}

func (s *GormStore) GetHouseByInviteCode(ctx context.Context, code string) (*models.House, error) {
	var h models.House
	err := s.db.WithContext(ctx).Where("invite_code = ?", models.NormalizeInviteCode(code)).First(&h).Error
	if err != nil {
		return nil, translate(err, "get house by invite code")
	}
	return &h, nil
}

func (s *GormStore) UpdateHouse(ctx context.Context, h *models.House) error {
	return translate(s.db.WithContext(ctx).Save(h).Error, "update house")
}

func (s *GormStore) DeleteHouse(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("house_id = ?", id).Delete(&models.Expense{}).Error; err != nil {
			return err
		}
		if err := tx.Where("house_id = ?", id).Delete(&models.Activity{}).Error; err != nil {
			return err
		}
		if err := tx.Where("house_id = ?", id).Delete(&models.Invitation{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("house_id = ?", id).Update("house_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.House{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return translate(err, "delete house")
}

// Expenses

func (s *GormStore) ListExpenses(ctx context.Context, houseID uuid.UUID) ([]models.Expense, error) {
	expenses, err := houseExpenses(s.db.WithContext(ctx), houseID)
	return expenses, translate(err, "list expenses")
}

func houseExpenses(db *gorm.DB, houseID uuid.UUID) ([]models.Expense, error) {
	var expenses []models.Expense
	err := db.Where("house_id = ?", houseID).
		Order("date DESC, created_at DESC").
		Find(&expenses).Error
	return expenses, err
}

func (s *GormStore) GetExpense(ctx context.Context, id uuid.UUID) (*models.Expense, error) {
	var e models.Expense
	if err := s.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get expense")
	}
	return &e, nil
}

func (s *GormStore) GetExpenseByIdempotencyKey(ctx context.Context, houseID uuid.UUID, key string) (*models.Expense, error) {
	var e models.Expense
	err := s.db.WithContext(ctx).Where("house_id = ? AND idempotency_key = ?", houseID, key).First(&e).Error
	if err != nil {
		return nil, translate(err, "get expense by idempotency key")
	}
	return &e, nil
}

func (s *GormStore) CreateExpense(ctx context.Context, e *models.Expense) error {
	return translate(s.db.WithContext(ctx).Create(e).Error, "create expense")
}

func (s *GormStore) UpdateExpense(ctx context.Context, e *models.Expense) error {
	return translate(s.db.WithContext(ctx).Save(e).Error, "update expense")
}

func (s *GormStore) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.Expense{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error, "delete expense")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete expense: %w", ErrNotFound)
	}
	return nil
}

// RecordSettlement holds the house row FOR UPDATE while it reads the
// expenses and inserts the settlement.
func (s *GormStore) RecordSettlement(ctx context.Context, houseID uuid.UUID, build SettlementBuilder) error {
	var buildErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var house models.House
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&house, "id = ?", houseID).Error; err != nil {
			return err
		}
		expenses, err := houseExpenses(tx, houseID)
		if err != nil {
			return err
		}
		settlement, err := build(expenses)
		if err != nil {
			buildErr = err
			return err
		}
		return tx.Create(settlement).Error
	})
	if buildErr != nil {
		return buildErr
	}
	return translate(err, "record settlement")
}

// Activity

func (s *GormStore) LogActivity(ctx context.Context, a *models.Activity) error {
	return translate(s.db.WithContext(ctx).Create(a).Error, "log activity")
}

func (s *GormStore) ListActivity(ctx context.Context, houseID uuid.UUID, offset, limit int) ([]models.Activity, error) {
	var activities []models.Activity
	err := s.db.WithContext(ctx).
		Where("house_id = ?", houseID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&activities).Error
	return activities, translate(err, "list activity")
}

// Invitations

func (s *GormStore) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	return translate(s.db.WithContext(ctx).Create(inv).Error, "create invitation")
}

func (s *GormStore) PendingInvitations(ctx context.Context, email string) ([]models.Invitation, error) {
	var invitations []models.Invitation
	err := s.db.WithContext(ctx).
		Where("email = ? AND status = ?", strings.ToLower(strings.TrimSpace(email)), models.InvitationPending).
		Order("created_at ASC").
		Find(&invitations).Error
	return invitations, translate(err, "pending invitations")
}

func (s *GormStore) MarkInvitation(ctx context.Context, id uuid.UUID, status string) error {
	res := s.db.WithContext(ctx).Model(&models.Invitation{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return translate(res.Error, "mark invitation")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("mark invitation: %w", ErrNotFound)
	}
	return nil
}
