package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librariumapp/librarium-server/internal/ai"
	"github.com/librariumapp/librarium-server/internal/domain"
	domainerrors "github.com/librariumapp/librarium-server/internal/errors"
	"github.com/librariumapp/librarium-server/internal/store/sqlite"
)

// librarianEndpoint fakes the completions API, capturing the last
// request's messages.
func librarianEndpoint(t *testing.T, answer string, lastMessages *atomic.Value) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []ai.Message `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if lastMessages != nil {
			lastMessages.Store(req.Messages)
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": answer}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setupLibrarianTest(t *testing.T, answer string, lastMessages *atomic.Value) (*LibrarianService, *sqlite.Store) {
	t.Helper()
	db := newTestSQLite(t)
	idx := newTestSearchIndex(t)
	srv := librarianEndpoint(t, answer, lastMessages)
	client := ai.New("test-key", "test-model", discardLogger(), ai.WithEndpoint(srv.URL))
	svc := NewLibrarianService(db, idx, client, discardLogger())

	book := seedBook(t, db, "book-1", "Meditations", []string{"Philosophy"})
	require.NoError(t, idx.IndexBook(book))

	return svc, db
}

func TestLibrarianService_Ask_NewConversation(t *testing.T) {
	var captured atomic.Value
	svc, db := setupLibrarianTest(t, "Try Meditations by Marcus Aurelius.", &captured)
	ctx := context.Background()

	resp, err := svc.Ask(ctx, "user-1", AskRequest{Question: "What should I read about stoic philosophy and meditations?"})
	require.NoError(t, err)
	assert.Equal(t, "Try Meditations by Marcus Aurelius.", resp.Answer)
	assert.NotEmpty(t, resp.ConversationID)
	require.Len(t, resp.Books, 1)
	assert.Equal(t, "book-1", resp.Books[0].ID)

	// Both turns were persisted, assistant turn carrying the book refs.
	messages, err := db.ListMessages(ctx, resp.ConversationID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, domain.MessageRoleUser, messages[0].Role)
	assert.Equal(t, domain.MessageRoleAssistant, messages[1].Role)
	assert.Equal(t, []string{"book-1"}, messages[1].BookIDs)

	// The prompt was grounded on the retrieved record.
	sent := captured.Load().([]ai.Message)
	require.GreaterOrEqual(t, len(sent), 3)
	assert.Contains(t, sent[1].Content, "Meditations")

	// Title comes from the opening question.
	conversation, err := db.GetConversation(ctx, resp.ConversationID)
	require.NoError(t, err)
	assert.Contains(t, conversation.Title, "stoic philosophy")
}

func TestLibrarianService_Ask_ContinuesConversation(t *testing.T) {
	var captured atomic.Value
	svc, db := setupLibrarianTest(t, "An answer.", &captured)
	ctx := context.Background()

	first, err := svc.Ask(ctx, "user-1", AskRequest{Question: "Recommend a philosophy book"})
	require.NoError(t, err)

	second, err := svc.Ask(ctx, "user-1", AskRequest{
		ConversationID: first.ConversationID,
		Question:       "Anything shorter?",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ConversationID, second.ConversationID)

	messages, err := db.ListMessages(ctx, first.ConversationID)
	require.NoError(t, err)
	assert.Len(t, messages, 4)

	// The second completion replays the first exchange.
	sent := captured.Load().([]ai.Message)
	var sawHistory bool
	for _, m := range sent {
		if m.Role == "assistant" && m.Content == "An answer." {
			sawHistory = true
		}
	}
	assert.True(t, sawHistory, "prior assistant turn missing from prompt")
}

func TestLibrarianService_Ask_ForeignConversation(t *testing.T) {
	svc, _ := setupLibrarianTest(t, "An answer.", nil)
	ctx := context.Background()

	resp, err := svc.Ask(ctx, "user-1", AskRequest{Question: "Recommend a book"})
	require.NoError(t, err)

	_, err = svc.Ask(ctx, "user-2", AskRequest{
		ConversationID: resp.ConversationID,
		Question:       "And for me?",
	})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestLibrarianService_Ask_Disabled(t *testing.T) {
	db := newTestSQLite(t)
	svc := NewLibrarianService(db, newTestSearchIndex(t), ai.New("", "test-model", discardLogger()), discardLogger())

	assert.False(t, svc.Enabled())
	_, err := svc.Ask(context.Background(), "user-1", AskRequest{Question: "Hello?"})
	assert.ErrorIs(t, err, domainerrors.ErrUnavailable)
}

func TestLibrarianService_Ask_Validation(t *testing.T) {
	svc, _ := setupLibrarianTest(t, "An answer.", nil)

	_, err := svc.Ask(context.Background(), "user-1", AskRequest{Question: ""})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestLibrarianService_Conversations(t *testing.T) {
	svc, _ := setupLibrarianTest(t, "An answer.", nil)
	ctx := context.Background()

	resp, err := svc.Ask(ctx, "user-1", AskRequest{Question: "Recommend a book"})
	require.NoError(t, err)

	list, err := svc.ListConversations(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	detail, err := svc.GetConversation(ctx, "user-1", resp.ConversationID)
	require.NoError(t, err)
	assert.Len(t, detail.Messages, 2)

	// Other users can neither read nor delete the thread.
	_, err = svc.GetConversation(ctx, "user-2", resp.ConversationID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	err = svc.DeleteConversation(ctx, "user-2", resp.ConversationID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	require.NoError(t, svc.DeleteConversation(ctx, "user-1", resp.ConversationID))
	list, err = svc.ListConversations(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTitleFromQuestion(t *testing.T) {
	assert.Equal(t, "Short question", titleFromQuestion("Short  question"))
	assert.Equal(t, "New conversation", titleFromQuestion("   "))

	long := titleFromQuestion("aaaa bbbb cccc dddd eeee ffff gggg hhhh iiii jjjj kkkk llll mmmm nnnn oooo pppp qqqq")
	assert.LessOrEqual(t, len([]rune(long)), maxTitleLength)
}
