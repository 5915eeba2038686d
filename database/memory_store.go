package database

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"papum-backend/models"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process memory. It backs the test suite
// and STORE_BACKEND=memory; data is lost on restart.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[uuid.UUID]models.User
	houses      map[uuid.UUID]models.House
	expenses    map[uuid.UUID]models.Expense
	activities  []models.Activity
	invitations map[uuid.UUID]models.Invitation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[uuid.UUID]models.User),
		houses:      make(map[uuid.UUID]models.House),
		expenses:    make(map[uuid.UUID]models.Expense),
		invitations: make(map[uuid.UUID]models.Invitation),
	}
}

func (s *MemoryStore) Close() error { return nil }

func stamp(created, updated *time.Time) {
	now := time.Now()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

// Users

func (s *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return fmt.Errorf("create user: %w", ErrDuplicate)
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	stamp(&u.CreatedAt, &u.UpdatedAt)
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("get user: %w", ErrNotFound)
	}
	return &u, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("get user by email: %w", ErrNotFound)
}

func (s *MemoryStore) UpdateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; !ok {
		return fmt.Errorf("update user: %w", ErrNotFound)
	}
	stamp(&u.CreatedAt, &u.UpdatedAt)
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) ListHouseMembers(ctx context.Context, houseID uuid.UUID) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var members []models.User
	for _, u := range s.users {
		if u.InHouse(houseID) {
			members = append(members, u)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].CreatedAt.Before(members[j].CreatedAt) })
	return members, nil
}

// Houses

func (s *MemoryStore) CreateHouse(ctx context.Context, h *models.House) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h.EnsureIdentity()
	for _, existing := range s.houses {
		if existing.InviteCode == h.InviteCode {
			return fmt.Errorf("create house: %w", ErrDuplicate)
		}
	}
	stamp(&h.CreatedAt, &h.UpdatedAt)
	s.houses[h.ID] = *h
	return nil
}

func (s *MemoryStore) GetHouse(ctx context.Context, id uuid.UUID) (*models.House, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.houses[id]
	if !ok {
		return nil, fmt.Errorf("get house: %w", ErrNotFound)
	}
	return &h, nil
}

func (s *MemoryStore) GetHouseByInviteCode(ctx context.Context, code string) (*models.House, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	code = models.NormalizeInviteCode(code)
	for _, h := range s.houses {
		if h.InviteCode == code {
			return &h, nil
		}
	}
	return nil, fmt.Errorf("get house by invite code: %w", ErrNotFound)
}

func (s *MemoryStore) UpdateHouse(ctx context.Context, h *models.House) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.houses[h.ID]; !ok {
		return fmt.Errorf("update house: %w", ErrNotFound)
	}
	stamp(&h.CreatedAt, &h.UpdatedAt)
	s.houses[h.ID] = *h
	return nil
}

func (s *MemoryStore) DeleteHouse(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.houses[id]; !ok {
		return fmt.Errorf("delete house: %w", ErrNotFound)
	}
	delete(s.houses, id)

	for eid, e := range s.expenses {
		if e.HouseID == id {
			delete(s.expenses, eid)
		}
	}
	kept := s.activities[:0]
	for _, a := range s.activities {
		if a.HouseID != id {
			kept = append(kept, a)
		}
	}
	s.activities = kept
	for iid, inv := range s.invitations {
		if inv.HouseID == id {
			delete(s.invitations, iid)
		}
	}
	for uid, u := range s.users {
		if u.InHouse(id) {
			u.HouseID = nil
			s.users[uid] = u
		}
	}
	return nil
}

// Expenses

func (s *MemoryStore) ListExpenses(ctx context.Context, houseID uuid.UUID) ([]models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.houseExpenses(houseID), nil
}

func (s *MemoryStore) houseExpenses(houseID uuid.UUID) []models.Expense {
	var out []models.Expense
	for _, e := range s.expenses {
		if e.HouseID == houseID {
			out = append(out, e)
		}
	}
	SortExpenses(out)
	return out
}

func (s *MemoryStore) GetExpense(ctx context.Context, id uuid.UUID) (*models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.expenses[id]
	if !ok {
		return nil, fmt.Errorf("get expense: %w", ErrNotFound)
	}
	return &e, nil
}

func (s *MemoryStore) GetExpenseByIdempotencyKey(ctx context.Context, houseID uuid.UUID, key string) (*models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.expenses {
		if e.HouseID == houseID && e.IdempotencyKey != nil && *e.IdempotencyKey == key {
			return &e, nil
		}
	}
	return nil, fmt.Errorf("get expense by idempotency key: %w", ErrNotFound)
}

func (s *MemoryStore) CreateExpense(ctx context.Context, e *models.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertExpense(e)
}

// RecordSettlement keeps the store locked from the read to the insert.
func (s *MemoryStore) RecordSettlement(ctx context.Context, houseID uuid.UUID, build SettlementBuilder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.houses[houseID]; !ok {
		return fmt.Errorf("record settlement: %w", ErrNotFound)
	}
	settlement, err := build(s.houseExpenses(houseID))
	if err != nil {
		return err
	}
	return s.insertExpense(settlement)
}

func (s *MemoryStore) insertExpense(e *models.Expense) error {
	if e.IdempotencyKey != nil {
		for _, existing := range s.expenses {
			if existing.IdempotencyKey != nil && *existing.IdempotencyKey == *e.IdempotencyKey {
				return fmt.Errorf("create expense: %w", ErrDuplicate)
			}
		}
	}
	e.EnsureID()
	if _, taken := s.expenses[e.ID]; taken {
		return fmt.Errorf("create expense: %w", ErrDuplicate)
	}
	stamp(&e.CreatedAt, &e.UpdatedAt)
	s.expenses[e.ID] = *e
	return nil
}

func (s *MemoryStore) UpdateExpense(ctx context.Context, e *models.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.expenses[e.ID]; !ok {
		return fmt.Errorf("update expense: %w", ErrNotFound)
	}
	stamp(&e.CreatedAt, &e.UpdatedAt)
	s.expenses[e.ID] = *e
	return nil
}

func (s *MemoryStore) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.expenses[id]; !ok {
		return fmt.Errorf("delete expense: %w", ErrNotFound)
	}
	delete(s.expenses, id)
	return nil
}

// Activity

func (s *MemoryStore) LogActivity(ctx context.Context, a *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	s.activities = append(s.activities, *a)
	return nil
}

func (s *MemoryStore) ListActivity(ctx context.Context, houseID uuid.UUID, offset, limit int) ([]models.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matching []models.Activity
	for i := len(s.activities) - 1; i >= 0; i-- {
		if s.activities[i].HouseID == houseID {
			matching = append(matching, s.activities[i])
		}
	}
	if offset >= len(matching) {
		return nil, nil
	}
	matching = matching[offset:]
	if limit > 0 && limit < len(matching) {
		matching = matching[:limit]
	}
	return matching, nil
}

// Invitations

func (s *MemoryStore) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	if inv.Status == "" {
		inv.Status = models.InvitationPending
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now()
	}
	inv.Email = strings.ToLower(strings.TrimSpace(inv.Email))
	s.invitations[inv.ID] = *inv
	return nil
}

func (s *MemoryStore) PendingInvitations(ctx context.Context, email string) ([]models.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	var out []models.Invitation
	for _, inv := range s.invitations {
		if inv.Email == email && inv.Status == models.InvitationPending {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) MarkInvitation(ctx context.Context, id uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invitations[id]
	if !ok {
		return fmt.Errorf("mark invitation: %w", ErrNotFound)
	}
	inv.Status = status
	s.invitations[id] = inv
	return nil
}
