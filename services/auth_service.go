package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/sports-competitions/models"
	"github.com/Dosada05/sports-competitions/repositories"
)

// VerificationTTL is how long an email confirmation token stays valid.
const VerificationTTL = 24 * time.Hour

type AuthService interface {
	Register(ctx context.Context, input models.CreateUserInput) (*models.User, *models.VerificationToken, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	ConfirmEmail(ctx context.Context, email, token string) (*models.User, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
}

type authService struct {
	users  repositories.UserRepository
	tokens repositories.VerificationTokenRepository
	logger *slog.Logger
}

func NewAuthService(users repositories.UserRepository, tokens repositories.VerificationTokenRepository, logger *slog.Logger) AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{users: users, tokens: tokens, logger: logger}
}

// Register creates the account and a confirmation token for its email.
// Administrators cannot be self-registered.
func (s *authService) Register(ctx context.Context, input models.CreateUserInput) (*models.User, *models.VerificationToken, error) {
	if input.Role == models.RoleAdmin {
		return nil, nil, ErrForbiddenOperation
	}
	user, err := s.users.CreateUser(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, fmt.Errorf("user was not stored")
	}

	token, err := s.tokens.Generate(ctx, user.Email, VerificationTTL)
	if err != nil {
		// Аккаунт уже создан; токен можно запросить повторно.
		s.logger.Warn("failed to issue verification token", slog.String("userId", user.ID), slog.Any("error", err))
		return user, nil, nil
	}
	return user, token, nil
}

// Login answers ErrAuthInvalidCredentials whether the email is unknown or the
// password is wrong.
func (s *authService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.VerifyPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrAuthInvalidCredentials
	}
	return user, nil
}

func (s *authService) ConfirmEmail(ctx context.Context, email, token string) (*models.User, error) {
	consumed, err := s.tokens.Consume(ctx, email, token)
	if err != nil {
		return nil, err
	}
	if consumed == nil {
		return nil, ErrInvalidVerification
	}
	user, err := s.users.FindByEmail(ctx, consumed.Identifier)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidVerification
	}
	return s.users.MarkEmailVerified(ctx, user.ID)
}

func (s *authService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrNotFound
	}
	verified, err := s.users.VerifyPassword(ctx, user.Email, current)
	if err != nil {
		return err
	}
	if verified == nil {
		return ErrAuthInvalidCredentials
	}
	return s.users.UpdatePassword(ctx, userID, next)
}
