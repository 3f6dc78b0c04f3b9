package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/librariumapp/librarium-server/internal/domain"
	"github.com/librariumapp/librarium-server/internal/service"
)

func (s *Server) registerLibrarianRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "askLibrarian",
		Method:      http.MethodPost,
		Path:        "/api/v1/librarian/ask",
		Summary:     "Ask the librarian",
		Description: "Sends a question to the AI librarian. Answers are grounded on catalog search results.",
		Tags:        []string{"Librarian"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAskLibrarian)

	huma.Register(s.api, huma.Operation{
		OperationID: "listConversations",
		Method:      http.MethodGet,
		Path:        "/api/v1/librarian/conversations",
		Summary:     "List conversations",
		Tags:        []string{"Librarian"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListConversations)

	huma.Register(s.api, huma.Operation{
		OperationID: "getConversation",
		Method:      http.MethodGet,
		Path:        "/api/v1/librarian/conversations/{id}",
		Summary:     "Get conversation",
		Description: "Returns one conversation with its full message history.",
		Tags:        []string{"Librarian"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetConversation)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteConversation",
		Method:      http.MethodDelete,
		Path:        "/api/v1/librarian/conversations/{id}",
		Summary:     "Delete conversation",
		Tags:        []string{"Librarian"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteConversation)
}

// === DTOs ===

// AskRequest is the request body for a librarian question.
type AskRequest struct {
	ConversationID string `json:"conversation_id,omitempty" doc:"Existing conversation to continue; empty starts a new one"`
	Question       string `json:"question" validate:"required,max=2000" doc:"The question"`
}

// AskInput wraps the ask request for Huma.
type AskInput struct {
	Body AskRequest
}

// AskResponse is the librarian's answer.
type AskResponse struct {
	ConversationID string         `json:"conversation_id" doc:"Conversation the answer belongs to"`
	Answer         string         `json:"answer" doc:"Assistant answer"`
	Books          []BookResponse `json:"books,omitempty" doc:"Catalog records the answer was grounded on"`
}

// AskOutput wraps the answer for Huma.
type AskOutput struct {
	Body AskResponse
}

// ConversationResponse is one chat thread.
type ConversationResponse struct {
	ID        string    `json:"id" doc:"Conversation ID"`
	Title     string    `json:"title" doc:"Thread title, derived from the first question"`
	CreatedAt time.Time `json:"created_at" doc:"Creation timestamp"`
	UpdatedAt time.Time `json:"updated_at" doc:"Last activity timestamp"`
}

// ConversationListOutput wraps the thread list for Huma.
type ConversationListOutput struct {
	Body struct {
		Conversations []ConversationResponse `json:"conversations" doc:"Threads, most recently active first"`
	}
}

// ChatMessageResponse is one turn in a conversation.
type ChatMessageResponse struct {
	ID        string    `json:"id" doc:"Message ID"`
	Role      string    `json:"role" doc:"Who produced the message (user, assistant)"`
	Content   string    `json:"content" doc:"Message text"`
	BookIDs   []string  `json:"book_ids,omitempty" doc:"Catalog records the assistant referenced"`
	CreatedAt time.Time `json:"created_at" doc:"Creation timestamp"`
}

// ConversationInput identifies one conversation.
type ConversationInput struct {
	ID string `path:"id" doc:"Conversation ID"`
}

// ConversationDetailOutput wraps a thread with messages for Huma.
type ConversationDetailOutput struct {
	Body struct {
		Conversation ConversationResponse  `json:"conversation" doc:"The thread"`
		Messages     []ChatMessageResponse `json:"messages" doc:"Messages in chronological order"`
	}
}

// === Handlers ===

func (s *Server) handleAskLibrarian(ctx context.Context, input *AskInput) (*AskOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := s.services.Librarian.Ask(ctx, userID, service.AskRequest{
		ConversationID: input.Body.ConversationID,
		Question:       input.Body.Question,
	})
	if err != nil {
		return nil, err
	}

	out := &AskOutput{}
	out.Body = AskResponse{
		ConversationID: resp.ConversationID,
		Answer:         resp.Answer,
	}
	for _, b := range resp.Books {
		out.Body.Books = append(out.Body.Books, mapBook(b))
	}
	return out, nil
}

func (s *Server) handleListConversations(ctx context.Context, _ *struct{}) (*ConversationListOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	conversations, err := s.services.Librarian.ListConversations(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &ConversationListOutput{}
	out.Body.Conversations = make([]ConversationResponse, 0, len(conversations))
	for _, c := range conversations {
		out.Body.Conversations = append(out.Body.Conversations, mapConversation(c))
	}
	return out, nil
}

func (s *Server) handleGetConversation(ctx context.Context, input *ConversationInput) (*ConversationDetailOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	detail, err := s.services.Librarian.GetConversation(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	out := &ConversationDetailOutput{}
	out.Body.Conversation = mapConversation(detail.Conversation)
	out.Body.Messages = make([]ChatMessageResponse, 0, len(detail.Messages))
	for _, m := range detail.Messages {
		out.Body.Messages = append(out.Body.Messages, ChatMessageResponse{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			BookIDs:   m.BookIDs,
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}

func (s *Server) handleDeleteConversation(ctx context.Context, input *ConversationInput) (*MessageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Librarian.DeleteConversation(ctx, userID, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Conversation deleted"}}, nil
}

func mapConversation(c *domain.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
