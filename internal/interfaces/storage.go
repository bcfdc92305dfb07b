package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/copilot/internal/models"
)

// StorageManager coordinates all storage backends
type StorageManager interface {
	HoldingStore() HoldingStore
	ConversationStore() ConversationStore
	DocumentStore() DocumentStore

	// Lifecycle
	Close() error
}

// HoldingStore manages portfolio holdings per user
type HoldingStore interface {
	ListHoldings(ctx context.Context, userID string) ([]models.Holding, error)
	GetHolding(ctx context.Context, userID, symbol string) (*models.Holding, error)
	SaveHolding(ctx context.Context, holding *models.Holding) error
	DeleteHolding(ctx context.Context, userID, symbol string) error
}

// ConversationStore persists conversations, their messages and context state
type ConversationStore interface {
	// Context state, keyed by conversation ID
	GetContext(ctx context.Context, conversationID string) (*models.ConversationContext, error)
	SaveContext(ctx context.Context, conversationID string, cc *models.ConversationContext) error

	// Conversations
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]models.Conversation, error)

	// Messages, oldest first
	AddMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
}

// DocumentStore holds ingested document chunks for retrieval
type DocumentStore interface {
	SaveChunks(ctx context.Context, chunks []models.DocumentChunk) error
	ListChunks(ctx context.Context, userID string) ([]models.DocumentChunk, error)
	DeleteChunks(ctx context.Context, userID string) (int, error)
}

// PriceCache caches price series and current prices. A miss returns (nil, nil)
// or (0, false, nil).
type PriceCache interface {
	GetSeries(ctx context.Context, key string) ([]models.PriceBar, error)
	SetSeries(ctx context.Context, key string, bars []models.PriceBar, ttl time.Duration) error
	GetPrice(ctx context.Context, symbol string) (float64, bool, error)
	SetPrice(ctx context.Context, symbol string, price float64, ttl time.Duration) error
	Close() error
}
