package service

import (
	"context"

	"github.com/usethallo/thallo-api/internal/domain"
	"github.com/usethallo/thallo-api/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var settingsTracer = otel.Tracer("service/settings")

// SettingsService handles profile reads and account deletion.
type SettingsService struct {
	profiles port.ProfileStore
	accounts port.AccountStore
	logger   *zap.Logger
}

// NewSettingsService creates the settings service.
func NewSettingsService(profiles port.ProfileStore, accounts port.AccountStore, logger *zap.Logger) *SettingsService {
	return &SettingsService{
		profiles: profiles,
		accounts: accounts,
		logger:   logger,
	}
}

// GetProfile returns the user's settings row.
func (s *SettingsService) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	ctx, span := settingsTracer.Start(ctx, "SettingsService.GetProfile")
	defer span.End()

	return s.profiles.GetProfile(ctx, userID)
}

// DeleteAccount wipes the user's data after re-authenticating with their
// password. The confirm field must be the literal string "DELETE".
func (s *SettingsService) DeleteAccount(ctx context.Context, userID string, req *domain.DeleteAccountRequest) error {
	ctx, span := settingsTracer.Start(ctx, "SettingsService.DeleteAccount")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	if req.Confirm != "DELETE" {
		return &domain.ErrValidation{Field: "confirm", Message: `must be the literal "DELETE"`}
	}
	if req.Password == "" {
		return &domain.ErrValidation{Field: "password", Message: "required"}
	}

	hash, err := s.accounts.GetPasswordHash(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		s.logger.Warn("account deletion rejected: bad password", zap.String("user_id", userID))
		return &domain.ErrUnauthorized{Message: "password does not match"}
	}

	if err := s.accounts.DeleteAccountData(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("account deleted", zap.String("user_id", userID))
	return nil
}
