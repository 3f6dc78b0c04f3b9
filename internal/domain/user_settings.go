package domain

import "time"

// Theme is a display color scheme.
type Theme string

const (
	ThemeSystem Theme = "system"
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSepia  Theme = "sepia"
)

// ValidTheme reports whether t is a known theme.
func ValidTheme(t Theme) bool {
	switch t {
	case ThemeSystem, ThemeLight, ThemeDark, ThemeSepia:
		return true
	}
	return false
}

// Layout is a catalog browsing layout.
type Layout string

const (
	LayoutGrid Layout = "grid"
	LayoutList Layout = "list"
)

// ValidLayout reports whether l is a known layout.
func ValidLayout(l Layout) bool {
	return l == LayoutGrid || l == LayoutList
}

// UserSettings contains a user's display preferences.
type UserSettings struct {
	UserID string `json:"user_id"`

	Theme     Theme  `json:"theme"`
	Layout    Layout `json:"layout"`
	FontScale int    `json:"font_scale"` // percentage, 75-150
	Language  string `json:"language"`   // BCP 47 tag for the UI

	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserSettings creates settings with sensible defaults.
func NewUserSettings(userID string) *UserSettings {
	return &UserSettings{
		UserID:    userID,
		Theme:     ThemeSystem,
		Layout:    LayoutGrid,
		FontScale: 100,
		Language:  "en",
		UpdatedAt: time.Now(),
	}
}
