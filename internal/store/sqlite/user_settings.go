package sqlite

import (
	"context"
	"database/sql"

	"github.com/librariumapp/librarium-server/internal/domain"
	"github.com/librariumapp/librarium-server/internal/store"
)

// GetUserSettings retrieves a user's display preferences.
// Returns store.ErrNotFound if the user has never saved settings.
func (s *Store) GetUserSettings(ctx context.Context, userID string) (*domain.UserSettings, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, theme, layout, font_scale, language, updated_at
		FROM user_settings WHERE user_id = ?`, userID)

	var (
		settings  domain.UserSettings
		theme     string
		layout    string
		updatedAt string
	)
	err := row.Scan(
		&settings.UserID,
		&theme,
		&layout,
		&settings.FontScale,
		&settings.Language,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	settings.Theme = domain.Theme(theme)
	settings.Layout = domain.Layout(layout)
	settings.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// SaveUserSettings upserts a user's display preferences.
func (s *Store) SaveUserSettings(ctx context.Context, settings *domain.UserSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, theme, layout, font_scale, language, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			theme = excluded.theme,
			layout = excluded.layout,
			font_scale = excluded.font_scale,
			language = excluded.language,
			updated_at = excluded.updated_at`,
		settings.UserID,
		string(settings.Theme),
		string(settings.Layout),
		settings.FontScale,
		settings.Language,
		formatTime(settings.UpdatedAt),
	)
	return err
}
