package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"papum-backend/config"
	"papum-backend/database"
	"papum-backend/middleware"
	"papum-backend/models"
	"papum-backend/realtime"
	"papum-backend/services"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeGenerator struct {
	text string
	err  error
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return f.text, f.err
}

type testEnv struct {
	t      *testing.T
	cfg    *config.Config
	store  *database.MemoryStore
	hub    *realtime.MemoryHub
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:   "handlers-test-secret-123",
		AppName:     "PaPum",
		AppURL:      "http://localhost:3000",
		TipCacheTTL: time.Hour,
	}
	store := database.NewMemoryStore()
	hub := realtime.NewMemoryHub()
	t.Cleanup(func() { hub.Close() })

	notifications := services.NewNotificationService(store, nil, nil, cfg.AppName)
	h := New(Deps{
		Config:        cfg,
		Store:         store,
		Notifier:      hub,
		Notifications: notifications,
		Invitations:   services.NewInvitationService(store, notifications, cfg.InviteLink),
		Advisor:       services.NewAdvisor(&fakeGenerator{text: "Cozinhem juntos para economizar no mercado."}, nil, cfg.TipCacheTTL),
		KeepAlive:     time.Hour,
	})

	r := gin.New()
	h.Register(r, Middleware{Auth: middleware.AuthRequired(cfg.JWTSecret)})

	return &testEnv{t: t, cfg: cfg, store: store, hub: hub, router: r}
}

func (e *testEnv) do(method, path, token string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			e.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return env
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d: %s", w.Code, want, w.Body.String())
	}
}

// register creates an account and returns its token and profile.
func (e *testEnv) register(name, email string, extra map[string]interface{}) (string, models.UserResponse) {
	e.t.Helper()
	body := map[string]interface{}{
		"name":     name,
		"email":    email,
		"password": "secret123",
		"pix":      email,
	}
	for k, v := range extra {
		body[k] = v
	}
	w := e.do(http.MethodPost, "/auth/register", "", body)
	expectStatus(e.t, w, http.StatusCreated)
	res := decode[AuthResponse](e.t, w)
	return res.Data.Token, res.Data.User
}

func (e *testEnv) createHouse(token, name string) models.HouseResponse {
	e.t.Helper()
	w := e.do(http.MethodPost, "/api/houses", token, map[string]interface{}{"name": name})
	expectStatus(e.t, w, http.StatusCreated)
	return decode[models.HouseResponse](e.t, w).Data
}

func (e *testEnv) currentHouse(token string) models.HouseResponse {
	e.t.Helper()
	w := e.do(http.MethodGet, "/api/houses/current", token, nil)
	expectStatus(e.t, w, http.StatusOK)
	return decode[models.HouseResponse](e.t, w).Data
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	token, user := env.register("Ana", "Ana@Example.com", nil)
	if token == "" || user.Email != "ana@example.com" {
		t.Fatalf("register = %q, %+v", token, user)
	}

	w := env.do(http.MethodPost, "/auth/register", "", map[string]interface{}{
		"name": "Ana 2", "email": "ana@example.com", "password": "secret123",
	})
	expectStatus(t, w, http.StatusConflict)

	w = env.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "ana@example.com", "password": "wrong"})
	expectStatus(t, w, http.StatusUnauthorized)

	w = env.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "ana@example.com", "password": "secret123"})
	expectStatus(t, w, http.StatusOK)
	login := decode[AuthResponse](t, w)

	w = env.do(http.MethodGet, "/api/users/me", login.Data.Token, nil)
	expectStatus(t, w, http.StatusOK)
	if me := decode[models.UserResponse](t, w).Data; me.ID != user.ID {
		t.Errorf("me = %+v", me)
	}

	w = env.do(http.MethodGet, "/api/users/me", "", nil)
	expectStatus(t, w, http.StatusUnauthorized)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]interface{}
		want int
	}{
		{"short password", map[string]interface{}{"name": "A", "email": "a@example.com", "password": "123"}, http.StatusBadRequest},
		{"bad email", map[string]interface{}{"name": "A", "email": "nope", "password": "secret123"}, http.StatusBadRequest},
		{"share out of range", map[string]interface{}{"name": "A", "email": "a@example.com", "password": "secret123", "share_percentage": 120}, http.StatusBadRequest},
		{"unknown invite code", map[string]interface{}{"name": "A", "email": "a@example.com", "password": "secret123", "invite_code": "NOPE1234"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/auth/register", "", tt.body)
			expectStatus(t, w, tt.want)
		})
	}
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register("Ana", "ana@example.com", nil)

	w := env.do(http.MethodPut, "/api/users/me", token, map[string]interface{}{"name": "Ana Paula", "share_percentage": 60})
	expectStatus(t, w, http.StatusOK)
	me := decode[models.UserResponse](t, w).Data
	if me.Name != "Ana Paula" || me.SharePercentage == nil || me.SharePercentage.String() != "60" {
		t.Errorf("profile = %+v", me)
	}

	w = env.do(http.MethodPut, "/api/users/me", token, map[string]interface{}{"share_percentage": -1})
	expectStatus(t, w, http.StatusBadRequest)

	w = env.do(http.MethodPut, "/api/users/me", token, map[string]interface{}{"clear_share_percentage": true})
	expectStatus(t, w, http.StatusOK)
	if me := decode[models.UserResponse](t, w).Data; me.SharePercentage != nil {
		t.Errorf("share not cleared: %v", me.SharePercentage)
	}

	w = env.do(http.MethodPut, "/api/users/me/fcm-token", token, map[string]string{"token": "device-1"})
	expectStatus(t, w, http.StatusOK)
}

func TestHouseLifecycle(t *testing.T) {
	env := newTestEnv(t)
	anaToken, _ := env.register("Ana", "ana@example.com", nil)

	house := env.createHouse(anaToken, "Casa Verde")
	if house.Roommates != models.DefaultRoommates || len(house.Members) != 1 {
		t.Fatalf("house = %+v", house)
	}
	if house.InviteLink != "http://localhost:3000/?invite="+house.InviteCode {
		t.Errorf("invite link = %q", house.InviteLink)
	}

	// A second house for the same user is refused
	w := env.do(http.MethodPost, "/api/houses", anaToken, map[string]string{"name": "Outra"})
	expectStatus(t, w, http.StatusConflict)

	// Registering through the invite link joins immediately
	brunoToken, _ := env.register("Bruno", "bruno@example.com", map[string]interface{}{"invite_code": house.InviteCode})
	if got := env.currentHouse(brunoToken); got.ID != house.ID || len(got.Members) != 2 {
		t.Fatalf("bruno's house = %+v", got)
	}

	// Joining by code once the house is full bumps the roommate count
	carlaToken, _ := env.register("Carla", "carla@example.com", nil)
	w = env.do(http.MethodPost, "/api/houses/join", carlaToken, map[string]string{"invite_code": " " + house.InviteCode + " "})
	expectStatus(t, w, http.StatusOK)
	if joined := decode[models.HouseResponse](t, w).Data; joined.Roommates != 3 || len(joined.Members) != 3 {
		t.Errorf("after join = %+v", joined)
	}

	// Joining twice is harmless
	w = env.do(http.MethodPost, "/api/houses/join", carlaToken, map[string]string{"invite_code": house.InviteCode})
	expectStatus(t, w, http.StatusOK)

	w = env.do(http.MethodPut, "/api/houses/"+house.ID.String(), anaToken, map[string]interface{}{
		"name": "Casa Azul", "roommates": 4, "pix": "ana-pix", "share_percentage": 40,
	})
	expectStatus(t, w, http.StatusOK)
	updated := decode[models.HouseResponse](t, w).Data
	if updated.Name != "Casa Azul" || updated.Roommates != 4 {
		t.Errorf("updated = %+v", updated)
	}
	if updated.Members[0].Pix != "ana-pix" || updated.Members[0].SharePercentage.String() != "40" {
		t.Errorf("caller settings not applied: %+v", updated.Members[0])
	}

	w = env.do(http.MethodPut, "/api/houses/"+house.ID.String(), anaToken, map[string]interface{}{"roommates": 0})
	expectStatus(t, w, http.StatusBadRequest)

	w = env.do(http.MethodPost, "/api/houses/"+house.ID.String()+"/leave", carlaToken, nil)
	expectStatus(t, w, http.StatusOK)
	w = env.do(http.MethodGet, "/api/houses/current", carlaToken, nil)
	expectStatus(t, w, http.StatusNotFound)

	w = env.do(http.MethodDelete, "/api/houses/"+house.ID.String(), brunoToken, nil)
	expectStatus(t, w, http.StatusOK)
	w = env.do(http.MethodGet, "/api/houses/current", anaToken, nil)
	expectStatus(t, w, http.StatusNotFound)
}

func TestNonMembersAreForbidden(t *testing.T) {
	env := newTestEnv(t)
	anaToken, _ := env.register("Ana", "ana@example.com", nil)
	house := env.createHouse(anaToken, "Casa Verde")
	strangerToken, _ := env.register("Zé", "ze@example.com", nil)

	w := env.do(http.MethodPost, "/api/houses/"+house.ID.String()+"/expenses", anaToken, map[string]interface{}{"name": "Luz", "value": 100})
	expectStatus(t, w, http.StatusCreated)
	expense := decode[models.Expense](t, w).Data

	base := "/api/houses/" + house.ID.String()
	routes := []struct{ method, path string }{
		{http.MethodGet, base + "/expenses"},
		{http.MethodPost, base + "/expenses"},
		{http.MethodGet, base + "/summary"},
		{http.MethodPost, base + "/settle"},
		{http.MethodGet, base + "/tip"},
		{http.MethodGet, base + "/activity"},
		{http.MethodGet, base + "/events"},
		{http.MethodPut, base},
		{http.MethodDelete, base},
		{http.MethodPost, base + "/invite"},
		{http.MethodGet, "/api/expenses/" + expense.ID.String()},
		{http.MethodPut, "/api/expenses/" + expense.ID.String()},
		{http.MethodDelete, "/api/expenses/" + expense.ID.String()},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := env.do(rt.method, rt.path, strangerToken, map[string]interface{}{})
			expectStatus(t, w, http.StatusForbidden)
		})
	}
}

func TestInvitationIsAcceptedOnRegister(t *testing.T) {
	env := newTestEnv(t)
	anaToken, _ := env.register("Ana", "ana@example.com", nil)
	house := env.createHouse(anaToken, "Casa Verde")

	w := env.do(http.MethodPost, "/api/houses/"+house.ID.String()+"/invite", anaToken, map[string]string{"email": "bruno@example.com"})
	expectStatus(t, w, http.StatusCreated)

	w = env.do(http.MethodPost, "/api/houses/"+house.ID.String()+"/invite", anaToken, map[string]string{"email": "ana@example.com"})
	expectStatus(t, w, http.StatusConflict)

	_, bruno := env.register("Bruno", "bruno@example.com", nil)
	if bruno.HouseID == nil || *bruno.HouseID != house.ID {
		t.Fatalf("bruno not placed in the inviting house: %+v", bruno)
	}
}

func TestMemberNamesAreUniquePerHouse(t *testing.T) {
	env := newTestEnv(t)
	anaToken, _ := env.register("Ana", "ana@example.com", nil)
	house := env.createHouse(anaToken, "Casa Verde")

	// A second Ana through the invite link is refused before the account exists
	w := env.do(http.MethodPost, "/auth/register", "", map[string]interface{}{
		"name": "ana", "email": "ana2@example.com", "password": "secret123", "invite_code": house.InviteCode,
	})
	expectStatus(t, w, http.StatusConflict)
	w = env.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "ana2@example.com", "password": "secret123"})
	expectStatus(t, w, http.StatusUnauthorized)

	// Same for joining by code with an existing account
	otherAnaToken, _ := env.register("Ana", "ana3@example.com", nil)
	w = env.do(http.MethodPost, "/api/houses/join", otherAnaToken, map[string]string{"invite_code": house.InviteCode})
	expectStatus(t, w, http.StatusConflict)
	w = env.do(http.MethodGet, "/api/houses/current", otherAnaToken, nil)
	expectStatus(t, w, http.StatusNotFound)

	brunoToken, _ := env.register("Bruno", "bruno@example.com", map[string]interface{}{"invite_code": house.InviteCode})

	tests := []struct {
		name  string
		token string
		to    string
		want  int
	}{
		{"rename onto a housemate", brunoToken, "ANA", http.StatusConflict},
		{"change own capitalisation", anaToken, "ANA", http.StatusOK},
		{"free name", brunoToken, "Bruno Lima", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPut, "/api/users/me", tt.token, map[string]string{"name": tt.to})
			expectStatus(t, w, tt.want)
		})
	}

	// Outside a house any name is fine
	w = env.do(http.MethodPut, "/api/users/me", otherAnaToken, map[string]string{"name": "Bruno Lima"})
	expectStatus(t, w, http.StatusOK)
}
