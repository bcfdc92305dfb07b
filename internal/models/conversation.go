package models

import "time"

// LastResults summarises the previous turn without carrying its payload.
type LastResults struct {
	Task    Task     `json:"task,omitempty"`
	Assets  []string `json:"assets,omitempty"`
	Success bool     `json:"success"`
}

// ConversationContext is the per-conversation state carried between turns.
type ConversationContext struct {
	ActiveAssets           []string    `json:"active_assets"`
	ActiveTimeRange        *TimeRange  `json:"active_time_range,omitempty"`
	LastOperation          string      `json:"last_operation,omitempty"`
	LastResults            LastResults `json:"last_results"`
	MentionedAssetsHistory []string    `json:"mentioned_assets_history"`
}

// NewConversationContext returns the empty state used on a conversation's first turn.
func NewConversationContext() *ConversationContext {
	return &ConversationContext{
		ActiveAssets:           []string{},
		MentionedAssetsHistory: []string{},
	}
}

// ContextRecord is the persisted form of a ConversationContext.
type ContextRecord struct {
	ConversationID string              `json:"conversation_id"`
	Context        ConversationContext `json:"context"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// Conversation is a chat thread owned by a user.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn entry in a conversation.
type Message struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	Role           string         `json:"role"`
	Content        string         `json:"content"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
