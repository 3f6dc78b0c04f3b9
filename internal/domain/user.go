package domain

import "time"

// Role represents the user's permission level in the system.
type Role string

const (
	// RoleAdmin grants full administrative access, including ingestion
	// control and user management.
	RoleAdmin Role = "admin"
	// RolePremium grants reading plus PDF downloads.
	RolePremium Role = "premium"
	// RoleReader grants catalog browsing and the librarian assistant.
	RoleReader Role = "reader"
)

// ValidRole reports whether r is one of the defined roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RolePremium, RoleReader:
		return true
	}
	return false
}

// UserStatus represents the user's account status.
type UserStatus string

const (
	// UserStatusActive indicates the user can log in and use the system.
	UserStatusActive UserStatus = "active"
	// UserStatusDisabled indicates the account has been deactivated by an admin.
	UserStatusDisabled UserStatus = "disabled"
)

// User represents an authenticated user account in the system.
type User struct {
	Entity
	Email        string     `json:"email"`
	PasswordHash string     `json:"password_hash,omitempty"` // Stored hashed, filter from API responses
	IsRoot       bool       `json:"is_root"`
	Role         Role       `json:"role"`
	Status       UserStatus `json:"status,omitempty"` // empty = active
	DisplayName  string     `json:"display_name"`
	LastLoginAt  time.Time  `json:"last_login_at"`
}

// IsAdmin returns true if the user has administrative privileges.
// Root users are automatically admins, regardless of their role field.
func (u *User) IsAdmin() bool {
	return u.IsRoot || u.Role == RoleAdmin
}

// CanDownload returns true if the user may download stored PDFs.
// Downloads are a premium feature; admins always qualify.
func (u *User) CanDownload() bool {
	return u.IsAdmin() || u.Role == RolePremium
}

// IsActive returns true if the user can log in and use the system.
// Empty status is treated as active for backward compatibility.
func (u *User) IsActive() bool {
	return u.Status == "" || u.Status == UserStatusActive
}

// Session represents an active login session backing a refresh token.
type Session struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	RefreshTokenHash string    `json:"refresh_token_hash,omitempty"` // Stored hashed, filter from API responses
	ExpiresAt        time.Time `json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
	LastSeenAt       time.Time `json:"last_seen_at"`
	IPAddress        string    `json:"ip_address,omitempty"`
	UserAgent        string    `json:"user_agent,omitempty"`
}

// Touch updates the session's last seen timestamp.
func (s *Session) Touch() {
	s.LastSeenAt = time.Now()
}

// IsExpired reports whether the session is past its expiry.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
