package domain

// MessageRole identifies who produced a chat message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Conversation is one user's chat thread with the librarian assistant.
type Conversation struct {
	Entity
	UserID string `json:"user_id"`
	Title  string `json:"title"` // derived from the first question
}

// ChatMessage is a single turn in a conversation.
type ChatMessage struct {
	Entity
	ConversationID string      `json:"conversation_id"`
	Role           MessageRole `json:"role"`
	Content        string      `json:"content"`
	// BookIDs are the catalog records the assistant referenced, if any.
	BookIDs []string `json:"book_ids,omitempty"`
}
