// Package chat runs a complete conversational turn: classify, validate,
// resolve references, dispatch, explain and persist.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bobmcallan/copilot/internal/common"
	"github.com/bobmcallan/copilot/internal/interfaces"
	"github.com/bobmcallan/copilot/internal/models"
	"github.com/bobmcallan/copilot/internal/services/conversation"
	"github.com/bobmcallan/copilot/internal/services/intent"
)

const marketDataSource = "EODHD"

var (
	// ErrEmptyQuery is returned for a blank query.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrConversationNotFound is returned when a conversation does not exist
	// or belongs to another user.
	ErrConversationNotFound = errors.New("conversation not found")
)

// Service implements interfaces.ChatService.
type Service struct {
	holdings   interfaces.HoldingStore
	contexts   interfaces.ContextManager
	log        interfaces.ConversationLog
	classifier interfaces.Classifier
	dispatcher interfaces.Dispatcher
	explainer  interfaces.Explainer
	logger     *common.Logger
}

// NewService creates a chat service from its collaborators
func NewService(
	holdings interfaces.HoldingStore,
	contexts interfaces.ContextManager,
	log interfaces.ConversationLog,
	classifier interfaces.Classifier,
	dispatcher interfaces.Dispatcher,
	explainer interfaces.Explainer,
	logger *common.Logger,
) *Service {
	return &Service{
		holdings:   holdings,
		contexts:   contexts,
		log:        log,
		classifier: classifier,
		dispatcher: dispatcher,
		explainer:  explainer,
		logger:     logger,
	}
}

// Process handles one user turn. Only a blank query, an unknown conversation
// or a failure to start a conversation are errors; everything else degrades
// into the response.
func (s *Service) Process(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	convID, err := s.conversationFor(ctx, req.UserID, req.ConversationID, query)
	if err != nil {
		return nil, err
	}

	s.log.RecordMessage(ctx, convID, models.RoleUser, query, nil)

	tickers := s.tickers(ctx, req.UserID)
	cc := s.contexts.Load(ctx, convID)

	q := s.classifier.Classify(ctx, query, tickers)
	q = intent.Validate(q, tickers)

	if q.Entities.Reference != "" {
		if resolved, ok := conversation.ResolveReference(q.Entities.Reference, cc); ok {
			q.Entities.Assets = resolved
		}
	}

	if q.Confidence.NeedsClarification {
		return s.clarify(ctx, convID, q.Confidence.ClarificationPrompt), nil
	}

	resp := s.dispatcher.Dispatch(ctx, req.UserID, query, q)
	explanation := s.explainer.Explain(ctx, query, resp)

	cc = conversation.Update(cc, q, resp.Success)
	if !s.contexts.Save(ctx, convID, cc) {
		s.logger.Warn().Str("conversation_id", convID).Msg("Conversation context not saved")
	}

	text := explanation.Text
	if !resp.Success && resp.Text != "" {
		text = resp.Text
	}

	messageID := s.log.RecordMessage(ctx, convID, models.RoleAssistant, text, map[string]any{
		"task":              string(resp.Task),
		"pipeline":          string(resp.Pipeline),
		"has_visualization": resp.Visualization != nil,
	})

	s.logger.Info().
		Str("conversation_id", convID).
		Str("pipeline", string(resp.Pipeline)).
		Str("task", string(resp.Task)).
		Bool("success", resp.Success).
		Msg("Chat turn completed")

	return &models.ChatResponse{
		ConversationID: convID,
		MessageID:      messageID,
		Response: models.ChatResponseBody{
			Text:             text,
			Data:             resp.Data,
			Visualization:    resp.Visualization,
			FollowUpQuestion: explanation.FollowUp,
		},
		Sources:      nonNilSources(resp.Sources),
		DataAccessed: dataAccessed(resp, q),
	}, nil
}

func (s *Service) conversationFor(ctx context.Context, userID, convID, query string) (string, error) {
	if convID == "" {
		conv, err := s.log.StartConversation(ctx, userID, query)
		if err != nil {
			return "", fmt.Errorf("failed to create conversation: %w", err)
		}
		return conv.ID, nil
	}

	conv, err := s.log.Conversation(ctx, convID)
	if err != nil {
		return "", fmt.Errorf("failed to load conversation: %w", err)
	}
	if conv == nil || conv.UserID != userID {
		return "", ErrConversationNotFound
	}
	return convID, nil
}

func (s *Service) tickers(ctx context.Context, userID string) []string {
	if s.holdings == nil {
		return []string{}
	}
	holdings, err := s.holdings.ListHoldings(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to list holdings for chat turn")
		return []string{}
	}
	return models.HoldingSymbols(holdings)
}

func (s *Service) clarify(ctx context.Context, convID, prompt string) *models.ChatResponse {
	if prompt == "" {
		prompt = intent.DefaultClarifyAsk
	}
	messageID := s.log.RecordMessage(ctx, convID, models.RoleAssistant, prompt, map[string]any{"type": "clarification"})
	return &models.ChatResponse{
		ConversationID: convID,
		MessageID:      messageID,
		Response: models.ChatResponseBody{
			Text: prompt,
			Data: map[string]any{},
		},
		Sources: []models.Source{},
	}
}

// dataAccessed describes the market data behind a successful response.
func dataAccessed(resp *models.DispatchResponse, q *models.ClassifiedQuery) *models.DataAccessed {
	if !resp.Success {
		return nil
	}

	var (
		symbols   []string
		records   int
		timeRange string
	)
	switch data := resp.Data.(type) {
	case *models.ForecastResult:
		symbols = []string{data.Metadata.Entity}
		records = data.Metadata.HistoricalRecords
		timeRange = fmt.Sprintf("%d days forecast", data.Metadata.HorizonDays)
	case models.Payload:
		symbols = data.Symbols()
		timeRange = q.Entities.TimeRange.Label()
	default:
		return nil
	}

	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if sym != "" {
			out = append(out, sym)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return &models.DataAccessed{
		Symbols:        out,
		TimeRange:      timeRange,
		DataSource:     marketDataSource,
		RecordsFetched: records,
	}
}

func nonNilSources(sources []models.Source) []models.Source {
	if sources == nil {
		return []models.Source{}
	}
	return sources
}

// History returns a conversation's messages when it belongs to userID.
func (s *Service) History(ctx context.Context, userID, conversationID string) ([]models.Message, error) {
	conv, err := s.log.Conversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if conv == nil || conv.UserID != userID {
		return nil, ErrConversationNotFound
	}
	return s.log.History(ctx, conversationID)
}

// Conversations lists the user's conversations, most recent first.
func (s *Service) Conversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	return s.log.ListConversations(ctx, userID)
}

// Compile-time check
var _ interfaces.ChatService = (*Service)(nil)
