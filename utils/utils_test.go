package utils

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "a-test-secret-of-some-length"

func TestTokenRoundTrip(t *testing.T) {
	id := uuid.New()
	token, err := GenerateToken(id, "ana@example.com", testSecret)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != id || claims.Email != "ana@example.com" {
		t.Errorf("claims = %+v", claims)
	}
	if d := time.Until(claims.ExpiresAt.Time); d < TokenExpiry-time.Minute || d > TokenExpiry {
		t.Errorf("unexpected expiry in %v", d)
	}
}

func TestParseTokenRejects(t *testing.T) {
	valid, _ := GenerateToken(uuid.New(), "ana@example.com", testSecret)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	expiredToken, _ := expired.SignedString([]byte(testSecret))

	noUser := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Email: "x@example.com"})
	noUserToken, _ := noUser.SignedString([]byte(testSecret))

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"wrong secret", valid, "another-secret-entirely"},
		{"expired", expiredToken, testSecret},
		{"missing user id", noUserToken, testSecret},
		{"garbage", "not.a.token", testSecret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, tt.secret); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPassword(hash, "secret123") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name  string
		query PaginationQuery
		want  []int
		page  int
		limit int
	}{
		{"first page", PaginationQuery{Page: 1, Limit: 2}, []int{1, 2}, 1, 2},
		{"last partial page", PaginationQuery{Page: 3, Limit: 2}, []int{5}, 3, 2},
		{"past the end", PaginationQuery{Page: 9, Limit: 2}, []int{}, 9, 2},
		{"zero values normalized", PaginationQuery{}, []int{1, 2, 3, 4, 5}, 1, 20},
		{"limit capped", PaginationQuery{Page: 1, Limit: 1000}, []int{1, 2, 3, 4, 5}, 1, maxPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Paginate(items, tt.query)
			if got.Total != len(items) || got.Page != tt.page || got.Limit != tt.limit {
				t.Errorf("meta = %+v", got)
			}
			if len(got.Items) != len(tt.want) {
				t.Fatalf("items = %v, want %v", got.Items, tt.want)
			}
			for i := range tt.want {
				if got.Items[i] != tt.want[i] {
					t.Errorf("items = %v, want %v", got.Items, tt.want)
				}
			}
		})
	}
}

func TestGetCurrentUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if GetCurrentUserID(c) != uuid.Nil {
		t.Error("expected nil id without auth")
	}
	id := uuid.New()
	c.Set(ContextUserID, id)
	if GetCurrentUserID(c) != id {
		t.Error("id not read from context")
	}
}

func TestErrorResponseAborts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Forbidden(c, "nope")
	if w.Code != http.StatusForbidden || !c.IsAborted() {
		t.Errorf("code=%d aborted=%v", w.Code, c.IsAborted())
	}
}
