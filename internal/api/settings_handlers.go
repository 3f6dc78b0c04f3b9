package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/librariumapp/librarium-server/internal/domain"
	"github.com/librariumapp/librarium-server/internal/service"
)

func (s *Server) registerSettingsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getSettings",
		Method:      http.MethodGet,
		Path:        "/api/v1/settings",
		Summary:     "Get display settings",
		Description: "Returns the user's display preferences, with defaults for users who never saved any.",
		Tags:        []string{"Settings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetSettings)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateSettings",
		Method:      http.MethodPatch,
		Path:        "/api/v1/settings",
		Summary:     "Update display settings",
		Description: "Applies a partial preference change. Omitted fields are left unchanged.",
		Tags:        []string{"Settings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateSettings)
}

// === DTOs ===

// SettingsResponse contains display preferences.
type SettingsResponse struct {
	Theme     string    `json:"theme" doc:"Color scheme (system, light, dark, sepia)"`
	Layout    string    `json:"layout" doc:"Catalog layout (grid, list)"`
	FontScale int       `json:"font_scale" doc:"Font scale percentage (75-150)"`
	Language  string    `json:"language" doc:"UI language tag"`
	UpdatedAt time.Time `json:"updated_at" doc:"Last change timestamp"`
}

// SettingsOutput wraps settings for Huma.
type SettingsOutput struct {
	Body SettingsResponse
}

// UpdateSettingsRequest carries preference changes. Omitted fields are
// left unchanged.
type UpdateSettingsRequest struct {
	Theme     *string `json:"theme,omitempty" doc:"Color scheme (system, light, dark, sepia)"`
	Layout    *string `json:"layout,omitempty" doc:"Catalog layout (grid, list)"`
	FontScale *int    `json:"font_scale,omitempty" doc:"Font scale percentage (75-150)"`
	Language  *string `json:"language,omitempty" doc:"UI language tag"`
}

// UpdateSettingsInput wraps the update request for Huma.
type UpdateSettingsInput struct {
	Body UpdateSettingsRequest
}

// === Handlers ===

func (s *Server) handleGetSettings(ctx context.Context, _ *struct{}) (*SettingsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	settings, err := s.services.Settings.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &SettingsOutput{Body: mapSettings(settings)}, nil
}

func (s *Server) handleUpdateSettings(ctx context.Context, input *UpdateSettingsInput) (*SettingsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	req := service.UpdateSettingsRequest{
		FontScale: input.Body.FontScale,
		Language:  input.Body.Language,
	}
	if input.Body.Theme != nil {
		theme := domain.Theme(*input.Body.Theme)
		req.Theme = &theme
	}
	if input.Body.Layout != nil {
		layout := domain.Layout(*input.Body.Layout)
		req.Layout = &layout
	}

	settings, err := s.services.Settings.Update(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	return &SettingsOutput{Body: mapSettings(settings)}, nil
}

func mapSettings(settings *domain.UserSettings) SettingsResponse {
	return SettingsResponse{
		Theme:     string(settings.Theme),
		Layout:    string(settings.Layout),
		FontScale: settings.FontScale,
		Language:  settings.Language,
		UpdatedAt: settings.UpdatedAt,
	}
}
