package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/librariumapp/librarium-server/internal/domain"
	domainerrors "github.com/librariumapp/librarium-server/internal/errors"
	"github.com/librariumapp/librarium-server/internal/store"
	"github.com/librariumapp/librarium-server/internal/validation"
)

// SettingsService manages per-user display preferences.
type SettingsService struct {
	settings  store.SettingsStore
	validator *validation.Validator
	logger    *slog.Logger
}

// NewSettingsService creates a new settings service.
func NewSettingsService(settings store.SettingsStore, logger *slog.Logger) *SettingsService {
	return &SettingsService{
		settings:  settings,
		validator: validation.New(),
		logger:    logger,
	}
}

// Get returns the user's preferences, falling back to defaults for
// users who never saved any.
func (s *SettingsService) Get(ctx context.Context, userID string) (*domain.UserSettings, error) {
	settings, err := s.settings.GetUserSettings(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NewUserSettings(userID), nil
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return settings, nil
}

// UpdateSettingsRequest carries preference changes. Nil fields are left
// unchanged.
type UpdateSettingsRequest struct {
	Theme     *domain.Theme  `json:"theme,omitempty"`
	Layout    *domain.Layout `json:"layout,omitempty"`
	FontScale *int           `json:"font_scale,omitempty"`
	Language  *string        `json:"language,omitempty" validate:"omitempty,bcp47_language_tag"`
}

// Update applies a partial preference change and returns the result.
func (s *SettingsService) Update(ctx context.Context, userID string, req UpdateSettingsRequest) (*domain.UserSettings, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	settings, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Theme != nil {
		if !domain.ValidTheme(*req.Theme) {
			return nil, domainerrors.Validation(fmt.Sprintf("unknown theme %q", *req.Theme))
		}
		settings.Theme = *req.Theme
	}
	if req.Layout != nil {
		if !domain.ValidLayout(*req.Layout) {
			return nil, domainerrors.Validation(fmt.Sprintf("unknown layout %q", *req.Layout))
		}
		settings.Layout = *req.Layout
	}
	if req.FontScale != nil {
		if *req.FontScale < 75 || *req.FontScale > 150 {
			return nil, domainerrors.Validation("font scale must be between 75 and 150")
		}
		settings.FontScale = *req.FontScale
	}
	if req.Language != nil {
		settings.Language = *req.Language
	}
	settings.UpdatedAt = time.Now()

	if err := s.settings.SaveUserSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}

	s.logger.Info("settings updated", "user_id", userID)
	return settings, nil
}
