package sqlite

import (
	"context"
	"database/sql"

	"github.com/librariumapp/librarium-server/internal/domain"
	"github.com/librariumapp/librarium-server/internal/store"
)

// conversationColumns is the ordered list of columns selected in
// conversation queries. Must match the scan order in scanConversation.
const conversationColumns = `id, created_at, updated_at, deleted_at, user_id, title`

// scanConversation scans a row into a domain.Conversation.
func scanConversation(scanner interface{ Scan(dest ...any) error }) (*domain.Conversation, error) {
	var c domain.Conversation

	var (
		createdAt string
		updatedAt string
		deletedAt sql.NullString
	)

	err := scanner.Scan(
		&c.ID,
		&createdAt,
		&updatedAt,
		&deletedAt,
		&c.UserID,
		&c.Title,
	)
	if err != nil {
		return nil, err
	}

	c.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	c.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	c.DeletedAt, err = parseNullableTime(deletedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// messageColumns is the ordered list of columns selected in message
// queries. Must match the scan order in scanMessage.
const messageColumns = `id, created_at, updated_at, deleted_at, conversation_id,
	role, content, book_ids`

// scanMessage scans a row into a domain.ChatMessage.
func scanMessage(scanner interface{ Scan(dest ...any) error }) (*domain.ChatMessage, error) {
	var m domain.ChatMessage

	var (
		createdAt string
		updatedAt string
		deletedAt sql.NullString
		role      string
		bookIDs   string
	)

	err := scanner.Scan(
		&m.ID,
		&createdAt,
		&updatedAt,
		&deletedAt,
		&m.ConversationID,
		&role,
		&m.Content,
		&bookIDs,
	)
	if err != nil {
		return nil, err
	}

	m.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	m.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	m.DeletedAt, err = parseNullableTime(deletedAt)
	if err != nil {
		return nil, err
	}

	m.Role = domain.MessageRole(role)
	m.BookIDs, err = unmarshalStrings(bookIDs)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateConversation inserts a new chat thread.
func (s *Store) CreateConversation(ctx context.Context, c *domain.Conversation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, created_at, updated_at, deleted_at, user_id, title)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID,
		formatTime(c.CreatedAt),
		formatTime(c.UpdatedAt),
		nullTimeString(c.DeletedAt),
		c.UserID,
		c.Title,
	)
	return err
}

// GetConversation retrieves a conversation by ID, excluding soft-deleted
// records. Returns store.ErrNotFound if it does not exist.
func (s *Store) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = ? AND deleted_at IS NULL`, id)

	c, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListUserConversations returns a user's conversations, newest first.
func (s *Store) ListUserConversations(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations
		WHERE user_id = ? AND deleted_at IS NULL ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []*domain.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return conversations, nil
}

// TouchConversation bumps a conversation's updated_at so it sorts to the
// top of the user's list after new messages.
func (s *Store) TouchConversation(ctx context.Context, id string, at string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`, at, id)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteConversation soft-deletes a conversation.
// Returns store.ErrNotFound if it does not exist or is already deleted.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	c, err := s.GetConversation(ctx, id)
	if err != nil {
		return err
	}
	c.MarkDeleted()

	result, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		nullTimeString(c.DeletedAt), formatTime(c.UpdatedAt), id)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// CreateMessage appends a message to a conversation.
func (s *Store) CreateMessage(ctx context.Context, m *domain.ChatMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (
			id, created_at, updated_at, deleted_at, conversation_id, role, content, book_ids
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID,
		formatTime(m.CreatedAt),
		formatTime(m.UpdatedAt),
		nullTimeString(m.DeletedAt),
		m.ConversationID,
		string(m.Role),
		m.Content,
		marshalStrings(m.BookIDs),
	)
	if err != nil {
		return err
	}

	return s.TouchConversation(ctx, m.ConversationID, formatTime(m.UpdatedAt))
}

// ListMessages returns a conversation's messages in chronological order.
func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]*domain.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages
		WHERE conversation_id = ? AND deleted_at IS NULL ORDER BY created_at ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.ChatMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}
