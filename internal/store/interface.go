package store

import (
	"context"

	"github.com/librariumapp/librarium-server/internal/domain"
)

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	CountUsers(ctx context.Context) (int, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	DeleteUser(ctx context.Context, id string) error
}

// SessionStore persists login sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, sess *domain.Session) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	GetSessionByTokenHash(ctx context.Context, hash string) (*domain.Session, error)
	ListUserSessions(ctx context.Context, userID string) ([]*domain.Session, error)
	UpdateSession(ctx context.Context, sess *domain.Session) error
	DeleteSession(ctx context.Context, id string) error
	DeleteUserSessions(ctx context.Context, userID string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// SettingsStore persists user display preferences.
type SettingsStore interface {
	GetUserSettings(ctx context.Context, userID string) (*domain.UserSettings, error)
	SaveUserSettings(ctx context.Context, settings *domain.UserSettings) error
}

// BookFilter narrows ListBooks results. Zero values mean no filtering.
type BookFilter struct {
	// Genre matches books whose genres array contains the value.
	Genre string
	// Language matches the catalog language code exactly.
	Language string
	// Limit caps the number of rows; 0 means no cap.
	Limit int
	// Offset skips rows for pagination.
	Offset int
}

// BookStore persists catalog records.
type BookStore interface {
	CreateBook(ctx context.Context, book *domain.Book) error
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	GetBookBySourceID(ctx context.Context, sourceID string) (*domain.Book, error)
	ListBooks(ctx context.Context, filter BookFilter) ([]*domain.Book, error)
	CountBooks(ctx context.Context) (int, error)
	UpdateBook(ctx context.Context, book *domain.Book) error
	DeleteBook(ctx context.Context, id string) error
}

// ConversationStore persists librarian chat threads.
type ConversationStore interface {
	CreateConversation(ctx context.Context, c *domain.Conversation) error
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)
	ListUserConversations(ctx context.Context, userID string) ([]*domain.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
	CreateMessage(ctx context.Context, m *domain.ChatMessage) error
	ListMessages(ctx context.Context, conversationID string) ([]*domain.ChatMessage, error)
}
