package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"chatrelay/api/internal/config"
	"chatrelay/api/internal/models"
	"chatrelay/api/internal/repository"
	"chatrelay/api/internal/service"
)

type memoryCredentialStore struct {
	users map[string]models.User
}

func (s *memoryCredentialStore) Create(_ context.Context, user models.User) (models.User, error) {
	if _, ok := s.users[user.Username]; ok {
		return models.User{}, repository.ErrDuplicateUser
	}
	user.CreatedAt = time.Now()
	s.users[user.Username] = user
	return user, nil
}

func (s *memoryCredentialStore) FindByUsername(_ context.Context, username string) (models.User, error) {
	user, ok := s.users[username]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func newAuthTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.AppConfig{
		Environment: "test",
		Security: config.SecurityConfig{
			JWTSecret:   "handler-test-secret",
			TokenTTL:    24 * time.Hour,
			MinPassword: 8,
		},
	}

	store := &memoryCredentialStore{users: make(map[string]models.User)}
	handlerSet := HandlerSet{
		log:         zerolog.Nop(),
		cfg:         cfg,
		authService: service.NewAuthService(store, cfg, zerolog.Nop()),
	}

	engine := gin.New()
	v1 := engine.Group("/api/v1")
	v1.POST("/auth/register", handlerSet.RegisterUser)
	v1.POST("/auth/login", handlerSet.Login)
	return engine
}

func postJSON(t *testing.T, router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterUser(t *testing.T) {
	router := newAuthTestRouter(t)

	rec := postJSON(t, router, "/api/v1/auth/register", `{"username":"alice","password":"password123"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		User struct {
			Username  string    `json:"username"`
			Role      string    `json:"role"`
			CreatedAt time.Time `json:"createdAt"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.User.Username != "alice" {
		t.Errorf("username = %q, want alice", resp.User.Username)
	}
	if resp.User.Role != "user" {
		t.Errorf("role = %q, want user", resp.User.Role)
	}
	if resp.User.CreatedAt.IsZero() {
		t.Error("createdAt should carry the store-assigned timestamp")
	}
}

func TestRegisterUser_Duplicate(t *testing.T) {
	router := newAuthTestRouter(t)

	body := `{"username":"alice","password":"password123"}`
	if rec := postJSON(t, router, "/api/v1/auth/register", body); rec.Code != http.StatusCreated {
		t.Fatalf("first register status = %d, want 201", rec.Code)
	}

	rec := postJSON(t, router, "/api/v1/auth/register", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate register status = %d, want 400", rec.Code)
	}
}

func TestLoginHandler(t *testing.T) {
	router := newAuthTestRouter(t)

	if rec := postJSON(t, router, "/api/v1/auth/register", `{"username":"bob","password":"password123"}`); rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", rec.Code)
	}

	rec := postJSON(t, router, "/api/v1/auth/login", `{"username":"bob","password":"password123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
		User  struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Token == "" {
		t.Error("login response has no token")
	}
	if resp.User.Username != "bob" {
		t.Errorf("username = %q, want bob", resp.User.Username)
	}
}

func TestLoginHandler_BadPassword(t *testing.T) {
	router := newAuthTestRouter(t)

	if rec := postJSON(t, router, "/api/v1/auth/register", `{"username":"bob","password":"password123"}`); rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", rec.Code)
	}

	rec := postJSON(t, router, "/api/v1/auth/login", `{"username":"bob","password":"wrongpass123"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("login status = %d, want 401", rec.Code)
	}
}
