package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"papum-backend/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func newExpense(houseID uuid.UUID, date string, value int64) *models.Expense {
	d, _ := models.ParseDate(date)
	return &models.Expense{
		HouseID:  houseID,
		Name:     "expense " + date,
		Date:     d,
		Value:    decimal.NewFromInt(value),
		Category: models.CategoryOther,
		PaidBy:   "Ana",
	}
}

func TestMemoryStoreListExpensesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	house := uuid.New()

	for _, date := range []string{"2026-01-10", "2026-03-01", "2026-02-15"} {
		if err := s.CreateExpense(ctx, newExpense(house, date, 10)); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.CreateExpense(ctx, newExpense(uuid.New(), "2026-04-01", 10)); err != nil {
		t.Fatal(err)
	}

	got, err := s.ListExpenses(ctx, house)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 expenses, got %d", len(got))
	}
	want := []string{"2026-03-01", "2026-02-15", "2026-01-10"}
	for i, w := range want {
		if got[i].Date.String() != w {
			t.Errorf("[%d] = %s, want %s", i, got[i].Date, w)
		}
	}
}

func TestSortExpensesTieBreaksOnCreation(t *testing.T) {
	d, _ := models.ParseDate("2026-01-01")
	older := models.Expense{Name: "older", Date: d, CreatedAt: time.Unix(100, 0)}
	newer := models.Expense{Name: "newer", Date: d, CreatedAt: time.Unix(200, 0)}
	list := []models.Expense{older, newer}
	SortExpenses(list)
	if list[0].Name != "newer" {
		t.Errorf("expected newer first, got %s", list[0].Name)
	}
}

func TestMemoryStoreExpenseLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	e := newExpense(uuid.New(), "2026-01-10", 10)

	if err := s.CreateExpense(ctx, e); err != nil {
		t.Fatal(err)
	}
	if e.ID == uuid.Nil || e.CreatedAt.IsZero() {
		t.Fatal("create should assign id and timestamps")
	}

	e.Value = decimal.NewFromInt(99)
	if err := s.UpdateExpense(ctx, e); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetExpense(ctx, e.ID)
	if err != nil || !got.Value.Equal(decimal.NewFromInt(99)) {
		t.Fatalf("get after update = %+v, %v", got, err)
	}

	if err := s.DeleteExpense(ctx, e.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetExpense(ctx, e.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteExpense(ctx, e.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreIdempotencyKeyIsUnique(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	house := uuid.New()
	key := "settle-1"

	first := newExpense(house, "2026-01-10", 10)
	first.IdempotencyKey = &key
	if err := s.CreateExpense(ctx, first); err != nil {
		t.Fatal(err)
	}

	second := newExpense(house, "2026-01-10", 10)
	second.IdempotencyKey = &key
	if err := s.CreateExpense(ctx, second); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	found, err := s.GetExpenseByIdempotencyKey(ctx, house, key)
	if err != nil || found.ID != first.ID {
		t.Fatalf("lookup = %+v, %v", found, err)
	}
	if _, err := s.GetExpenseByIdempotencyKey(ctx, uuid.New(), key); !errors.Is(err, ErrNotFound) {
		t.Errorf("other house: expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreUsers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	u := &models.User{Email: " Ana@Example.com ", Name: "Ana"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateUser(ctx, &models.User{Email: "ana@example.com"}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	got, err := s.GetUserByEmail(ctx, "ANA@example.com")
	if err != nil || got.ID != u.ID {
		t.Fatalf("GetUserByEmail = %+v, %v", got, err)
	}
}

func TestMemoryStoreDeleteHouseCascades(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	h := &models.House{Name: "Casa"}
	if err := s.CreateHouse(ctx, h); err != nil {
		t.Fatal(err)
	}
	u := &models.User{Email: "ana@example.com", Name: "Ana", HouseID: &h.ID}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateExpense(ctx, newExpense(h.ID, "2026-01-01", 5)); err != nil {
		t.Fatal(err)
	}
	if err := s.LogActivity(ctx, &models.Activity{HouseID: h.ID, Type: models.ActivityHouseCreated}); err != nil {
		t.Fatal(err)
	}

	byCode, err := s.GetHouseByInviteCode(ctx, " "+h.InviteCode+" ")
	if err != nil || byCode.ID != h.ID {
		t.Fatalf("GetHouseByInviteCode = %+v, %v", byCode, err)
	}

	if err := s.DeleteHouse(ctx, h.ID); err != nil {
		t.Fatal(err)
	}

	expenses, _ := s.ListExpenses(ctx, h.ID)
	activity, _ := s.ListActivity(ctx, h.ID, 0, 10)
	member, _ := s.GetUser(ctx, u.ID)
	if len(expenses) != 0 || len(activity) != 0 || member.HouseID != nil {
		t.Errorf("cascade incomplete: %d expenses, %d activity, house %v", len(expenses), len(activity), member.HouseID)
	}
}

func TestMemoryStoreActivityPagination(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	house := uuid.New()

	for _, kind := range []string{"a", "b", "c"} {
		if err := s.LogActivity(ctx, &models.Activity{HouseID: house, Type: kind}); err != nil {
			t.Fatal(err)
		}
	}

	page, _ := s.ListActivity(ctx, house, 1, 1)
	if len(page) != 1 || page[0].Type != "b" {
		t.Errorf("page = %+v", page)
	}
	if rest, _ := s.ListActivity(ctx, house, 5, 10); len(rest) != 0 {
		t.Errorf("out of range page = %+v", rest)
	}
}

func TestMemoryStoreInvitations(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	inv := &models.Invitation{HouseID: uuid.New(), Email: "Bruno@Example.com"}
	if err := s.CreateInvitation(ctx, inv); err != nil {
		t.Fatal(err)
	}
	pending, _ := s.PendingInvitations(ctx, "bruno@example.com")
	if len(pending) != 1 {
		t.Fatalf("pending = %+v", pending)
	}
	if err := s.MarkInvitation(ctx, inv.ID, models.InvitationAccepted); err != nil {
		t.Fatal(err)
	}
	if pending, _ := s.PendingInvitations(ctx, "bruno@example.com"); len(pending) != 0 {
		t.Errorf("still pending: %+v", pending)
	}
}

func TestMemoryStoreRecordSettlement(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	h := &models.House{Name: "Casa"}
	if err := s.CreateHouse(ctx, h); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateExpense(ctx, newExpense(h.ID, "2026-01-01", 100)); err != nil {
		t.Fatal(err)
	}

	var seen int
	err := s.RecordSettlement(ctx, h.ID, func(expenses []models.Expense) (*models.Expense, error) {
		seen = len(expenses)
		return newExpense(h.ID, "2026-01-02", 50), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if seen != 1 {
		t.Errorf("build saw %d expenses, want 1", seen)
	}
	if list, _ := s.ListExpenses(ctx, h.ID); len(list) != 2 {
		t.Errorf("expenses after settle = %d, want 2", len(list))
	}

	refused := errors.New("nothing owed")
	err = s.RecordSettlement(ctx, h.ID, func([]models.Expense) (*models.Expense, error) {
		return nil, refused
	})
	if err != refused {
		t.Errorf("build error = %v, want it unchanged", err)
	}
	if list, _ := s.ListExpenses(ctx, h.ID); len(list) != 2 {
		t.Errorf("refused settle stored something: %d expenses", len(list))
	}

	err = s.RecordSettlement(ctx, uuid.New(), func([]models.Expense) (*models.Expense, error) {
		t.Error("build called for an unknown house")
		return nil, nil
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown house = %v, want ErrNotFound", err)
	}
}
