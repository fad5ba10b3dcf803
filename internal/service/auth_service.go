package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/intranet-hub/portal-service/internal/auth"
	"github.com/intranet-hub/portal-service/internal/domain"
	"github.com/intranet-hub/portal-service/internal/repository"
	apperrors "github.com/intranet-hub/portal-service/pkg/util"
)

// AuthService issues sessions for local-credential users. Entra-provisioned
// accounts authenticate upstream and never carry a password hash here.
type AuthService struct {
	users  repository.UserRepository
	roles  repository.RoleAssignmentRepository
	tokens *auth.TokenManager
	logger *zap.Logger
}

// LoginResult carries the issued token and the caller's sector roles.
type LoginResult struct {
	Token       string
	ExpiresAt   time.Time
	User        *domain.User
	Assignments []domain.RoleAssignment
}

// NewAuthService constructs the service.
func NewAuthService(users repository.UserRepository, roles repository.RoleAssignmentRepository, tokens *auth.TokenManager, logger *zap.Logger) *AuthService {
	return &AuthService{users: users, roles: roles, tokens: tokens, logger: logger}
}

// Login verifies local credentials and issues a JWT. Failures are uniform so
// the response does not reveal whether the account exists.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if !user.Active || user.Provider != domain.AuthProviderLocal || user.PasswordHash == nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.ComparePassword(*user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Name, user.Email)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	assignments, err := s.roles.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID))
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user, Assignments: assignments}, nil
}
