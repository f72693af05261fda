package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chatrelay/api/internal/config"
	"chatrelay/api/internal/models"
	"chatrelay/api/internal/repository"
	"chatrelay/api/internal/security"
)

type fakeCredentialStore struct {
	users   map[string]models.User
	findErr error
}

func newFakeCredentialStore() *fakeCredentialStore {
	return &fakeCredentialStore{users: make(map[string]models.User)}
}

func (f *fakeCredentialStore) Create(_ context.Context, user models.User) (models.User, error) {
	if _, ok := f.users[user.Username]; ok {
		return models.User{}, repository.ErrDuplicateUser
	}
	user.CreatedAt = time.Now()
	f.users[user.Username] = user
	return user, nil
}

func (f *fakeCredentialStore) FindByUsername(_ context.Context, username string) (models.User, error) {
	if f.findErr != nil {
		return models.User{}, f.findErr
	}
	user, ok := f.users[username]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Security: config.SecurityConfig{
			JWTSecret:   "test-secret",
			TokenTTL:    24 * time.Hour,
			MinPassword: 8,
		},
	}
}

func TestAuthService_Register(t *testing.T) {
	svc := NewAuthService(newFakeCredentialStore(), testConfig(), zerolog.Nop())

	user, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if user.Username != "alice" {
		t.Errorf("user.Username = %v, want alice", user.Username)
	}
	if user.Role != models.UserRoleUser {
		t.Errorf("user.Role = %v, want user (default)", user.Role)
	}
	if user.ID == "" {
		t.Error("user.ID should be generated")
	}
	if user.CreatedAt.IsZero() {
		t.Error("user.CreatedAt should carry the store-assigned timestamp")
	}
}

func TestAuthService_RegisterDuplicate(t *testing.T) {
	svc := NewAuthService(newFakeCredentialStore(), testConfig(), zerolog.Nop())

	input := RegisterInput{Username: "alice", Password: "password123"}
	if _, err := svc.Register(context.Background(), input); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	_, err := svc.Register(context.Background(), input)
	if !errors.Is(err, repository.ErrDuplicateUser) {
		t.Errorf("expected ErrDuplicateUser, got %v", err)
	}
}

func TestAuthService_RegisterValidation(t *testing.T) {
	svc := NewAuthService(newFakeCredentialStore(), testConfig(), zerolog.Nop())

	tests := []struct {
		name  string
		input RegisterInput
	}{
		{name: "empty username", input: RegisterInput{Username: "  ", Password: "password123"}},
		{name: "short password", input: RegisterInput{Username: "bob", Password: "short"}},
		{name: "unknown role", input: RegisterInput{Username: "bob", Password: "password123", Role: "owner"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Register(context.Background(), tt.input); err == nil {
				t.Error("Register() should have failed")
			}
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	svc := NewAuthService(newFakeCredentialStore(), testConfig(), zerolog.Nop())

	if _, err := svc.Register(context.Background(), RegisterInput{
		Username: "bob",
		Password: "password123",
		Role:     "admin",
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	result, err := svc.Login(context.Background(), LoginInput{Username: "bob", Password: "password123"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.Token == "" {
		t.Fatal("Login() returned empty token")
	}

	claims, err := security.ParseSessionToken(result.Token, "test-secret")
	if err != nil {
		t.Fatalf("ParseSessionToken() error = %v", err)
	}
	if claims.Username != "bob" {
		t.Errorf("claims.Username = %v, want bob", claims.Username)
	}
	if claims.Role != "admin" {
		t.Errorf("claims.Role = %v, want admin", claims.Role)
	}
}

func TestAuthService_LoginStoreFailure(t *testing.T) {
	store := newFakeCredentialStore()
	store.findErr = errors.New("store down")
	svc := NewAuthService(store, testConfig(), zerolog.Nop())

	_, err := svc.Login(context.Background(), LoginInput{Username: "carol", Password: "password123"})
	if err == nil {
		t.Fatal("Login() should surface the store failure")
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Error("a store outage must not be reported as invalid credentials")
	}
}

func TestAuthService_LoginInvalidCredentials(t *testing.T) {
	svc := NewAuthService(newFakeCredentialStore(), testConfig(), zerolog.Nop())

	if _, err := svc.Register(context.Background(), RegisterInput{
		Username: "carol",
		Password: "password123",
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tests := []struct {
		name  string
		input LoginInput
	}{
		{name: "wrong password", input: LoginInput{Username: "carol", Password: "wrongpass123"}},
		{name: "unknown user", input: LoginInput{Username: "nobody", Password: "password123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.input)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}
