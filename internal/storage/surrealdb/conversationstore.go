package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/copilot/internal/common"
	"github.com/bobmcallan/copilot/internal/interfaces"
	"github.com/bobmcallan/copilot/internal/models"
)

const (
	conversationSelectFields = "conversation_id as id, user_id, title, created_at, updated_at"
	messageSelectFields      = "message_id as id, conversation_id, role, content, metadata, created_at"
)

// ConversationStore implements interfaces.ConversationStore using SurrealDB.
type ConversationStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewConversationStore creates a new ConversationStore.
func NewConversationStore(db *surrealdb.DB, logger *common.Logger) *ConversationStore {
	return &ConversationStore{db: db, logger: logger}
}

// GetContext returns nil, nil when no context has been saved for the conversation.
func (s *ConversationStore) GetContext(ctx context.Context, conversationID string) (*models.ConversationContext, error) {
	rid := surrealmodels.NewRecordID("conversation_context", safeID(conversationID))
	sql := "SELECT conversation_id, context, updated_at FROM $rid"
	vars := map[string]any{"rid": rid}

	results, err := surrealdb.Query[[]models.ContextRecord](ctx, s.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get conversation context: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	cc := (*results)[0].Result[0].Context
	return &cc, nil
}

func (s *ConversationStore) SaveContext(ctx context.Context, conversationID string, cc *models.ConversationContext) error {
	if cc == nil {
		return fmt.Errorf("conversation context is nil")
	}
	record := models.ContextRecord{
		ConversationID: conversationID,
		Context:        *cc,
		UpdatedAt:      time.Now(),
	}
	sql := "UPSERT $rid CONTENT $record"
	vars := map[string]any{
		"rid":    surrealmodels.NewRecordID("conversation_context", safeID(conversationID)),
		"record": record,
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[any](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("failed to save conversation context after retries: %w", lastErr)
}

func (s *ConversationStore) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	now := time.Now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	conv.UpdatedAt = now

	sql := `UPSERT $rid SET
		conversation_id = $conversation_id, user_id = $user_id, title = $title,
		created_at = $created_at, updated_at = $updated_at`
	vars := map[string]any{
		"rid":             surrealmodels.NewRecordID("conversation", safeID(conv.ID)),
		"conversation_id": conv.ID,
		"user_id":         conv.UserID,
		"title":           conv.Title,
		"created_at":      conv.CreatedAt,
		"updated_at":      conv.UpdatedAt,
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

// GetConversation returns nil, nil for an unknown conversation.
func (s *ConversationStore) GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	sql := "SELECT " + conversationSelectFields + " FROM $rid"
	vars := map[string]any{"rid": surrealmodels.NewRecordID("conversation", safeID(conversationID))}

	results, err := surrealdb.Query[[]models.Conversation](ctx, s.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// ListConversations returns the user's conversations, most recently active first.
func (s *ConversationStore) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	sql := "SELECT " + conversationSelectFields + " FROM conversation WHERE user_id = $user_id ORDER BY updated_at DESC"
	vars := map[string]any{"user_id": userID}

	results, err := surrealdb.Query[[]models.Conversation](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	if results == nil || len(*results) == 0 || (*results)[0].Result == nil {
		return []models.Conversation{}, nil
	}
	return (*results)[0].Result, nil
}

// AddMessage stores a message and bumps the conversation's updated_at.
func (s *ConversationStore) AddMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	sql := `UPSERT $rid SET
		message_id = $message_id, conversation_id = $conversation_id, role = $role,
		content = $content, metadata = $metadata, created_at = $created_at;
		UPDATE $conv SET updated_at = $created_at`
	vars := map[string]any{
		"rid":             surrealmodels.NewRecordID("message", safeID(msg.ID)),
		"conv":            surrealmodels.NewRecordID("conversation", safeID(msg.ConversationID)),
		"message_id":      msg.ID,
		"conversation_id": msg.ConversationID,
		"role":            msg.Role,
		"content":         msg.Content,
		"metadata":        msg.Metadata,
		"created_at":      msg.CreatedAt,
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to add message: %w", err)
	}
	return nil
}

// ListMessages returns the conversation's messages, oldest first.
func (s *ConversationStore) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	sql := "SELECT " + messageSelectFields + " FROM message WHERE conversation_id = $conversation_id ORDER BY created_at ASC"
	vars := map[string]any{"conversation_id": conversationID}

	results, err := surrealdb.Query[[]models.Message](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	if results == nil || len(*results) == 0 || (*results)[0].Result == nil {
		return []models.Message{}, nil
	}
	return (*results)[0].Result, nil
}

// Compile-time check
var _ interfaces.ConversationStore = (*ConversationStore)(nil)
