package service

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"transparency-monitor/internal/auth"
	"transparency-monitor/internal/models"
	"transparency-monitor/internal/repository"
)

const (
	codeDigits   = 6
	codeLifetime = 30 * time.Minute
)

// AuthService handles login, first-access activation, and password
// recovery via one-time codes
type AuthService struct {
	userRepo *repository.UserRepository
	codeRepo *repository.VerificationCodeRepository
	authSvc  *auth.Service
	notifier Notifier
	now      func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo *repository.UserRepository,
	codeRepo *repository.VerificationCodeRepository,
	authSvc *auth.Service,
	notifier Notifier,
) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		codeRepo: codeRepo,
		authSvc:  authSvc,
		notifier: notifier,
		now:      time.Now,
	}
}

// Login authenticates a user and returns a signed JWT
func (s *AuthService) Login(email, password string) (string, *models.User, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return "", nil, err
	}
	if user == nil || user.PasswordHash == nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := s.authSvc.VerifyPassword(*user.PasswordHash, password); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", nil, fmt.Errorf("%w: account is inactive", ErrForbidden)
	}

	token, err := s.authSvc.GenerateToken(user.ID, user.Email, user.Role, user.OrganizationID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.userRepo.UpdateLastLogin(user.ID); err != nil {
		slog.Warn("Failed to update last login", "user_id", user.ID, "error", err)
	}

	return token, user, nil
}

// RequestFirstAccessCode emails a one-time code to a user who has never
// set a password. The response is the same whether or not the account
// exists.
func (s *AuthService) RequestFirstAccessCode(email string) error {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}
	if user.PasswordHash != nil {
		return fmt.Errorf("%w: account already activated", ErrValidation)
	}
	return s.issueCode(user, models.PurposeFirstAccess)
}

// RequestRecoveryCode emails a one-time password recovery code. The
// response is the same whether or not the account exists.
func (s *AuthService) RequestRecoveryCode(email string) error {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return err
	}
	if user == nil || user.PasswordHash == nil {
		return nil
	}
	return s.issueCode(user, models.PurposePasswordRecovery)
}

func (s *AuthService) issueCode(user *models.User, purpose string) error {
	if err := s.codeRepo.InvalidateForUser(user.ID, purpose); err != nil {
		return err
	}

	code, err := auth.GenerateNumericCode(codeDigits)
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}

	vc := &models.VerificationCode{
		UserID:    user.ID,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: s.now().Add(codeLifetime),
	}
	if err := s.codeRepo.Create(vc); err != nil {
		return err
	}

	if err := s.notifier.SendVerificationCode(user.Email, user.Name, code, codeLifetime); err != nil {
		slog.Error("Failed to send verification code",
			"user_id", user.ID,
			"purpose", purpose,
			"error", err,
		)
	}
	return nil
}

// VerifyCode checks a one-time code without consuming it, so the client
// can confirm it before asking for a new password
func (s *AuthService) VerifyCode(email, code, purpose string) error {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidCredentials
	}
	vc, err := s.codeRepo.GetActive(user.ID, code, purpose, s.now())
	if err != nil {
		return err
	}
	if vc == nil {
		return ErrInvalidCredentials
	}
	return nil
}

// SetPasswordWithCode consumes a one-time code and sets the user's
// password. Used by both first access and password recovery.
func (s *AuthService) SetPasswordWithCode(email, code, purpose, newPassword string) error {
	if len(strings.TrimSpace(newPassword)) < 8 {
		return fmt.Errorf("%w: password must have at least 8 characters", ErrValidation)
	}

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidCredentials
	}

	vc, err := s.codeRepo.GetActive(user.ID, code, purpose, s.now())
	if err != nil {
		return err
	}
	if vc == nil {
		return ErrInvalidCredentials
	}

	used, err := s.codeRepo.MarkUsed(vc.ID)
	if err != nil {
		return err
	}
	if !used {
		return ErrInvalidCredentials
	}

	hash, err := s.authSvc.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.userRepo.UpdatePassword(user.ID, hash)
}

// GetUserByID retrieves a user by their ID
func (s *AuthService) GetUserByID(userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	return user, nil
}

// CleanupExpiredCodes removes verification codes past their expiry,
// called by the scheduler
func (s *AuthService) CleanupExpiredCodes() {
	deleted, err := s.codeRepo.DeleteExpired(s.now())
	if err != nil {
		slog.Error("Failed to delete expired verification codes", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Deleted expired verification codes", "count", deleted)
	}
}
