package database

import (
	"context"
	"errors"
	"sort"

	"papum-backend/models"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	ListHouseMembers(ctx context.Context, houseID uuid.UUID) ([]models.User, error)
}

type HouseStore interface {
	CreateHouse(ctx context.Context, h *models.House) error
	GetHouse(ctx context.Context, id uuid.UUID) (*models.House, error)
	GetHouseByInviteCode(ctx context.Context, code string) (*models.House, error)
	UpdateHouse(ctx context.Context, h *models.House) error
	// DeleteHouse removes the house with its expenses, activity and
	// invitations, and detaches its members.
	DeleteHouse(ctx context.Context, id uuid.UUID) error
}

type ExpenseStore interface {
	// ListExpenses returns every expense of the house, newest date first.
	ListExpenses(ctx context.Context, houseID uuid.UUID) ([]models.Expense, error)
	GetExpense(ctx context.Context, id uuid.UUID) (*models.Expense, error)
	GetExpenseByIdempotencyKey(ctx context.Context, houseID uuid.UUID, key string) (*models.Expense, error)
	CreateExpense(ctx context.Context, e *models.Expense) error
	UpdateExpense(ctx context.Context, e *models.Expense) error
	DeleteExpense(ctx context.Context, id uuid.UUID) error
	// RecordSettlement hands the current expenses of the house to build and
	// inserts the expense it returns. Calls for the same house run one at a
	// time, so build always sees the settlements recorded before it. An
	// error from build is returned unchanged.
	RecordSettlement(ctx context.Context, houseID uuid.UUID, build SettlementBuilder) error
}

// SettlementBuilder decides on a settlement from the expenses of a house.
type SettlementBuilder func(expenses []models.Expense) (*models.Expense, error)

type ActivityStore interface {
	LogActivity(ctx context.Context, a *models.Activity) error
	ListActivity(ctx context.Context, houseID uuid.UUID, offset, limit int) ([]models.Activity, error)
}

type InvitationStore interface {
	CreateInvitation(ctx context.Context, inv *models.Invitation) error
	PendingInvitations(ctx context.Context, email string) ([]models.Invitation, error)
	MarkInvitation(ctx context.Context, id uuid.UUID, status string) error
}

// Store is the persistence collaborator used by the handlers.
type Store interface {
	UserStore
	HouseStore
	ExpenseStore
	ActivityStore
	InvitationStore
	Close() error
}

// SortExpenses orders expenses by date then creation time, newest first.
func SortExpenses(expenses []models.Expense) {
	sort.SliceStable(expenses, func(i, j int) bool {
		a, b := expenses[i], expenses[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.After(b.Date.Time)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}
