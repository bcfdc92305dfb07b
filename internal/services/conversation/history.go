package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/copilot/internal/models"
)

const maxTitleLength = 60

// StartConversation creates a conversation for the user, titled from the opening query.
func (m *Manager) StartConversation(ctx context.Context, userID, firstQuery string) (*models.Conversation, error) {
	if m.store == nil {
		return nil, fmt.Errorf("conversation store not configured")
	}
	conv := &models.Conversation{
		UserID: userID,
		Title:  titleFrom(firstQuery),
	}
	if err := m.store.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to start conversation: %w", err)
	}
	m.logger.Debug().Str("conversation_id", conv.ID).Str("user_id", userID).Msg("Conversation started")
	return conv, nil
}

// RecordMessage appends a message and returns its ID, or "" when the store
// fails. History is best effort.
func (m *Manager) RecordMessage(ctx context.Context, conversationID, role, content string, metadata map[string]any) string {
	if m.store == nil || conversationID == "" {
		return ""
	}
	msg := &models.Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Metadata:       metadata,
	}
	if err := m.store.AddMessage(ctx, msg); err != nil {
		m.logger.Warn().Err(err).Str("conversation_id", conversationID).Str("role", role).Msg("Failed to record message")
		return ""
	}
	return msg.ID
}

// History returns a conversation's messages, oldest first.
func (m *Manager) History(ctx context.Context, conversationID string) ([]models.Message, error) {
	if m.store == nil {
		return nil, fmt.Errorf("conversation store not configured")
	}
	return m.store.ListMessages(ctx, conversationID)
}

// Conversation returns a conversation by ID, or nil when unknown.
func (m *Manager) Conversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	if m.store == nil {
		return nil, fmt.Errorf("conversation store not configured")
	}
	return m.store.GetConversation(ctx, conversationID)
}

// ListConversations returns the user's conversations, most recent first.
func (m *Manager) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	if m.store == nil {
		return nil, fmt.Errorf("conversation store not configured")
	}
	return m.store.ListConversations(ctx, userID)
}

func titleFrom(query string) string {
	title := strings.Join(strings.Fields(query), " ")
	runes := []rune(title)
	if len(runes) > maxTitleLength {
		return string(runes[:maxTitleLength-3]) + "..."
	}
	return title
}
