package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"chatrelay/api/internal/config"
	"chatrelay/api/internal/ids"
	"chatrelay/api/internal/models"
	"chatrelay/api/internal/repository"
	"chatrelay/api/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRole        = errors.New("invalid role")
)

// CredentialStore is the narrow contract the auth service consumes. The
// pgx-backed repository satisfies it in production. Create returns the
// persisted record with its server-assigned creation timestamp.
type CredentialStore interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
}

type AuthService struct {
	users CredentialStore
	cfg   *config.AppConfig
	log   zerolog.Logger
}

func NewAuthService(users CredentialStore, cfg *config.AppConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users: users,
		cfg:   cfg,
		log:   log,
	}
}

type RegisterInput struct {
	Username string
	Password string
	Role     string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (models.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	if input.Username == "" {
		return models.User{}, fmt.Errorf("username required")
	}
	if len(input.Password) < s.cfg.Security.MinPassword {
		return models.User{}, fmt.Errorf("password must be at least %d characters", s.cfg.Security.MinPassword)
	}

	role := models.UserRole(input.Role)
	if input.Role == "" {
		role = models.UserRoleUser
	}
	if !models.ValidRole(role) {
		return models.User{}, ErrInvalidRole
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Username:     input.Username,
		PasswordHash: passwordHash,
		Role:         role,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return models.User{}, err
	}

	s.log.Info().Str("username", created.Username).Str("role", string(created.Role)).Msg("user registered")
	return created, nil
}

type LoginInput struct {
	Username string
	Password string
}

type AuthResult struct {
	Token string
	User  models.User
}

// Login verifies the credentials and issues a session token carrying the
// user's role at issuance time.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(input.Username))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		return AuthResult{}, ErrInvalidCredentials
	}

	token, err := security.IssueSessionToken(
		s.cfg.Security.JWTSecret,
		user.ID,
		user.Username,
		string(user.Role),
		s.cfg.Security.TokenTTL,
	)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{Token: token, User: user}, nil
}
