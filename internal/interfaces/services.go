package interfaces

import (
	"context"

	"github.com/bobmcallan/copilot/internal/models"
)

// MarketService fetches price data by canonical ticker. Fetch failures are
// reported as absent data, never as errors.
type MarketService interface {
	// FetchSeries returns the price frame for a symbol over a time range
	FetchSeries(ctx context.Context, symbol string, tr models.TimeRange, aggregation string) (*models.PriceFrame, bool)

	// FetchCurrentPrice returns the latest price for a symbol
	FetchCurrentPrice(ctx context.Context, symbol string) (float64, bool)

	// FetchMany fetches several series concurrently, preserving symbol order and dropping misses
	FetchMany(ctx context.Context, symbols []string, tr models.TimeRange, aggregation string) []models.PriceFrame

	// CurrentPrices fetches several current prices concurrently, dropping misses
	CurrentPrices(ctx context.Context, symbols []string) map[string]float64
}

// Classifier turns a raw query into a structured intent. It never fails:
// any error becomes a clarification request.
type Classifier interface {
	Classify(ctx context.Context, query string, ownedTickers []string) *models.ClassifiedQuery
}

// AnalyticsExecutor runs analytics-pipeline tasks
type AnalyticsExecutor interface {
	Execute(ctx context.Context, userID string, q *models.ClassifiedQuery) *models.AnalyticsResult
}

// RetrievalService answers questions from the user's documents and holdings
type RetrievalService interface {
	Answer(ctx context.Context, userID, query string) *models.RetrievalResult
}

// ForecastService projects a symbol's price forward
type ForecastService interface {
	Forecast(ctx context.Context, userID string, q *models.ClassifiedQuery) *models.ForecastResult
}

// ChartRenderer renders chart data as a base64-encoded PNG
type ChartRenderer interface {
	Render(data *models.ChartData) (string, error)
}

// Dispatcher routes a classified query to its pipeline
type Dispatcher interface {
	Dispatch(ctx context.Context, userID, query string, q *models.ClassifiedQuery) *models.DispatchResponse
}

// ContextManager loads, saves and updates per-conversation state
type ContextManager interface {
	Load(ctx context.Context, conversationID string) *models.ConversationContext
	Save(ctx context.Context, conversationID string, cc *models.ConversationContext) bool
}

// Explainer turns a dispatch result into prose and a follow-up question
type Explainer interface {
	Explain(ctx context.Context, query string, resp *models.DispatchResponse) models.Explanation
}

// ConversationLog records conversations and their messages
type ConversationLog interface {
	StartConversation(ctx context.Context, userID, firstQuery string) (*models.Conversation, error)
	RecordMessage(ctx context.Context, conversationID, role, content string, metadata map[string]any) string
	History(ctx context.Context, conversationID string) ([]models.Message, error)
	Conversation(ctx context.Context, conversationID string) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]models.Conversation, error)
}

// ChatService runs a complete chat turn
type ChatService interface {
	Process(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
	History(ctx context.Context, userID, conversationID string) ([]models.Message, error)
	Conversations(ctx context.Context, userID string) ([]models.Conversation, error)
}

// DocumentService ingests documents for retrieval
type DocumentService interface {
	IngestText(ctx context.Context, userID, source, text string) (*models.IngestResult, error)
	IngestPDF(ctx context.Context, userID, source string, data []byte) (*models.IngestResult, error)
	Delete(ctx context.Context, userID string) (int, error)
}

// Exporter builds a markdown report from chat messages
type Exporter interface {
	Generate(ctx context.Context, req models.ExportRequest) (*models.ExportResponse, error)
}
