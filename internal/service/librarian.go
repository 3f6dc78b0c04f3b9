package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/librariumapp/librarium-server/internal/ai"
	"github.com/librariumapp/librarium-server/internal/domain"
	domainerrors "github.com/librariumapp/librarium-server/internal/errors"
	"github.com/librariumapp/librarium-server/internal/id"
	"github.com/librariumapp/librarium-server/internal/search"
	"github.com/librariumapp/librarium-server/internal/store"
	"github.com/librariumapp/librarium-server/internal/validation"
)

const (
	// How many catalog books the assistant may ground an answer on.
	librarianContextBooks = 5
	// How many prior turns are replayed into each completion.
	librarianHistoryTurns = 10
	// Conversation titles are clipped to this many characters.
	maxTitleLength = 80

	librarianSystemPrompt = `You are the librarian of a digital library of public-domain books.
Answer questions about the library's catalog and recommend books from it.
When catalog records are provided below, ground your recommendations in
them and mention titles and authors exactly as written. If the catalog
has nothing relevant, say so rather than inventing books. Keep answers
concise and friendly.`
)

// LibrarianService runs the AI reading assistant: each question is
// grounded on catalog search results before being sent to the model.
type LibrarianService struct {
	conversations store.ConversationStore
	index         *search.SearchIndex
	client        *ai.Client
	validator     *validation.Validator
	logger        *slog.Logger
}

// NewLibrarianService creates a new librarian service.
func NewLibrarianService(conversations store.ConversationStore, index *search.SearchIndex, client *ai.Client, logger *slog.Logger) *LibrarianService {
	return &LibrarianService{
		conversations: conversations,
		index:         index,
		client:        client,
		validator:     validation.New(),
		logger:        logger,
	}
}

// Enabled reports whether the assistant can answer (an API key is set).
func (s *LibrarianService) Enabled() bool {
	return s.client.Enabled()
}

// AskRequest is one user question for the librarian.
type AskRequest struct {
	// ConversationID continues an existing thread; empty starts a new one.
	ConversationID string `json:"conversation_id,omitempty"`
	Question       string `json:"question" validate:"required,max=2000"`
}

// AskResponse is the assistant's answer.
type AskResponse struct {
	ConversationID string         `json:"conversation_id"`
	Answer         string         `json:"answer"`
	// Books are the catalog records the answer was grounded on.
	Books []*domain.Book `json:"books,omitempty"`
}

// Ask answers one question, persisting both turns of the exchange.
func (s *LibrarianService) Ask(ctx context.Context, userID string, req AskRequest) (*AskResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if !s.Enabled() {
		return nil, domainerrors.Unavailable("the librarian assistant is not configured")
	}

	conversation, history, err := s.loadOrCreateConversation(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	books, err := s.retrieveBooks(ctx, req.Question)
	if err != nil {
		// Retrieval failure degrades the answer, it doesn't block it.
		s.logger.Warn("librarian retrieval failed", "error", err)
		books = nil
	}

	answer, err := s.client.Complete(ctx, ai.Request{
		Messages:    s.buildMessages(history, books, req.Question),
		Temperature: 0.7,
	})
	if err != nil {
		if errors.Is(err, ai.ErrDisabled) {
			return nil, domainerrors.Unavailable("the librarian assistant is not configured")
		}
		return nil, domainerrors.Unavailable("the librarian assistant is unavailable").WithCause(err)
	}

	bookIDs := make([]string, 0, len(books))
	for _, b := range books {
		bookIDs = append(bookIDs, b.ID)
	}
	if err := s.appendExchange(ctx, conversation.ID, req.Question, answer, bookIDs); err != nil {
		return nil, err
	}

	s.logger.Info("librarian answered", "conversation_id", conversation.ID, "context_books", len(books))

	return &AskResponse{
		ConversationID: conversation.ID,
		Answer:         answer,
		Books:          books,
	}, nil
}

// ConversationDetail is a thread with its messages.
type ConversationDetail struct {
	Conversation *domain.Conversation  `json:"conversation"`
	Messages     []*domain.ChatMessage `json:"messages"`
}

// ListConversations returns the user's threads, most recently active first.
func (s *LibrarianService) ListConversations(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	conversations, err := s.conversations.ListUserConversations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return conversations, nil
}

// GetConversation returns one thread with its full message history.
// Users can only read their own threads.
func (s *LibrarianService) GetConversation(ctx context.Context, userID, conversationID string) (*ConversationDetail, error) {
	conversation, err := s.ownedConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	messages, err := s.conversations.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return &ConversationDetail{Conversation: conversation, Messages: messages}, nil
}

// DeleteConversation removes one of the user's threads.
func (s *LibrarianService) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	if _, err := s.ownedConversation(ctx, userID, conversationID); err != nil {
		return err
	}
	if err := s.conversations.DeleteConversation(ctx, conversationID); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// ownedConversation fetches a conversation and checks it belongs to userID.
// Foreign threads return not-found, not forbidden, to avoid confirming
// their existence.
func (s *LibrarianService) ownedConversation(ctx context.Context, userID, conversationID string) (*domain.Conversation, error) {
	conversation, err := s.conversations.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("conversation not found")
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conversation.UserID != userID {
		return nil, domainerrors.NotFound("conversation not found")
	}
	return conversation, nil
}

// loadOrCreateConversation resolves the thread for a question, creating
// one titled after the question when none is given.
func (s *LibrarianService) loadOrCreateConversation(ctx context.Context, userID string, req AskRequest) (*domain.Conversation, []*domain.ChatMessage, error) {
	if req.ConversationID != "" {
		conversation, err := s.ownedConversation(ctx, userID, req.ConversationID)
		if err != nil {
			return nil, nil, err
		}
		messages, err := s.conversations.ListMessages(ctx, conversation.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("list messages: %w", err)
		}
		return conversation, messages, nil
	}

	conversationID, err := id.Generate("conv")
	if err != nil {
		return nil, nil, fmt.Errorf("generate conversation ID: %w", err)
	}
	conversation := &domain.Conversation{
		UserID: userID,
		Title:  titleFromQuestion(req.Question),
	}
	conversation.ID = conversationID
	conversation.InitTimestamps()
	if err := s.conversations.CreateConversation(ctx, conversation); err != nil {
		return nil, nil, fmt.Errorf("create conversation: %w", err)
	}
	return conversation, nil, nil
}

// retrieveBooks finds catalog records relevant to the question.
func (s *LibrarianService) retrieveBooks(ctx context.Context, question string) ([]*domain.Book, error) {
	params := search.DefaultParams()
	params.Query = question
	params.Limit = librarianContextBooks

	result, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, err
	}

	books := make([]*domain.Book, 0, len(result.Hits))
	for _, hit := range result.Hits {
		books = append(books, &domain.Book{
			Entity:   domain.Entity{ID: hit.ID},
			Title:    hit.Title,
			Authors:  splitAuthorLine(hit.Author),
			Year:     hit.Year,
			Genres:   hit.Genres,
			Subgenre: hit.Subgenre,
		})
	}
	return books, nil
}

// buildMessages assembles the completion transcript: system prompt,
// retrieved catalog context, bounded history, then the new question.
func (s *LibrarianService) buildMessages(history []*domain.ChatMessage, books []*domain.Book, question string) []ai.Message {
	messages := []ai.Message{{Role: "system", Content: librarianSystemPrompt}}

	if len(books) > 0 {
		var b strings.Builder
		b.WriteString("Relevant catalog records:\n")
		for _, book := range books {
			b.WriteString("- ")
			b.WriteString(book.Title)
			if line := book.AuthorLine(); line != "" {
				b.WriteString(" by ")
				b.WriteString(line)
			}
			if book.Year != 0 {
				fmt.Fprintf(&b, " (%d)", book.Year)
			}
			if len(book.Genres) > 0 {
				b.WriteString(" [" + strings.Join(book.Genres, ", ") + "]")
			}
			b.WriteString("\n")
		}
		messages = append(messages, ai.Message{Role: "system", Content: b.String()})
	}

	if len(history) > librarianHistoryTurns {
		history = history[len(history)-librarianHistoryTurns:]
	}
	for _, m := range history {
		messages = append(messages, ai.Message{Role: string(m.Role), Content: m.Content})
	}

	return append(messages, ai.Message{Role: "user", Content: question})
}

// appendExchange persists a question/answer pair in order.
func (s *LibrarianService) appendExchange(ctx context.Context, conversationID, question, answer string, bookIDs []string) error {
	for _, turn := range []struct {
		role    domain.MessageRole
		content string
		bookIDs []string
	}{
		{domain.MessageRoleUser, question, nil},
		{domain.MessageRoleAssistant, answer, bookIDs},
	} {
		messageID, err := id.Generate("msg")
		if err != nil {
			return fmt.Errorf("generate message ID: %w", err)
		}
		message := &domain.ChatMessage{
			ConversationID: conversationID,
			Role:           turn.role,
			Content:        turn.content,
			BookIDs:        turn.bookIDs,
		}
		message.ID = messageID
		message.InitTimestamps()
		if err := s.conversations.CreateMessage(ctx, message); err != nil {
			return fmt.Errorf("save message: %w", err)
		}
	}
	return nil
}

// titleFromQuestion derives a thread title from the opening question.
func titleFromQuestion(question string) string {
	title := strings.Join(strings.Fields(question), " ")
	if len(title) > maxTitleLength {
		title = strings.TrimSpace(title[:maxTitleLength-1]) + "…"
	}
	if title == "" {
		title = "New conversation"
	}
	return title
}

// splitAuthorLine undoes AuthorLine's comma join for display structs.
func splitAuthorLine(line string) []string {
	if line == "" {
		return nil
	}
	parts := strings.Split(line, ", ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
