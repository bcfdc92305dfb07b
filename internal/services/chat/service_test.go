package chat

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/copilot/internal/common"
	"github.com/bobmcallan/copilot/internal/models"
)

// --- collaborator fakes ---

type fakeHoldings struct {
	symbols []string
	err     error
}

func (f *fakeHoldings) ListHoldings(ctx context.Context, userID string) ([]models.Holding, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Holding, 0, len(f.symbols))
	for _, s := range f.symbols {
		out = append(out, models.Holding{UserID: userID, Symbol: s, Quantity: 1})
	}
	return out, nil
}
func (f *fakeHoldings) GetHolding(ctx context.Context, userID, symbol string) (*models.Holding, error) {
	return nil, nil
}
func (f *fakeHoldings) SaveHolding(ctx context.Context, h *models.Holding) error { return nil }
func (f *fakeHoldings) DeleteHolding(ctx context.Context, userID, symbol string) error {
	return nil
}

type fakeContexts struct {
	loaded *models.ConversationContext
	saved  *models.ConversationContext
	saves  int
}

func (f *fakeContexts) Load(ctx context.Context, conversationID string) *models.ConversationContext {
	if f.loaded == nil {
		return models.NewConversationContext()
	}
	return f.loaded
}

func (f *fakeContexts) Save(ctx context.Context, conversationID string, cc *models.ConversationContext) bool {
	f.saves++
	f.saved = cc
	return true
}

type fakeLog struct {
	conversations map[string]*models.Conversation
	messages      []models.Message
	startErr      error
	next          int
}

func newFakeLog() *fakeLog {
	return &fakeLog{conversations: map[string]*models.Conversation{}}
}

func (f *fakeLog) StartConversation(ctx context.Context, userID, firstQuery string) (*models.Conversation, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.next++
	conv := &models.Conversation{ID: fmt.Sprintf("conv-%d", f.next), UserID: userID, Title: firstQuery}
	f.conversations[conv.ID] = conv
	return conv, nil
}

func (f *fakeLog) RecordMessage(ctx context.Context, conversationID, role, content string, metadata map[string]any) string {
	id := fmt.Sprintf("msg-%d", len(f.messages)+1)
	f.messages = append(f.messages, models.Message{ID: id, ConversationID: conversationID, Role: role, Content: content, Metadata: metadata})
	return id
}

func (f *fakeLog) History(ctx context.Context, conversationID string) ([]models.Message, error) {
	var out []models.Message
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeLog) Conversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	return f.conversations[conversationID], nil
}

func (f *fakeLog) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	var out []models.Conversation
	for _, c := range f.conversations {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

type fakeClassifier struct {
	q       *models.ClassifiedQuery
	tickers []string
}

func (f *fakeClassifier) Classify(ctx context.Context, query string, ownedTickers []string) *models.ClassifiedQuery {
	f.tickers = ownedTickers
	return f.q
}

type fakeDispatcher struct {
	resp  *models.DispatchResponse
	got   *models.ClassifiedQuery
	calls int
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, userID, query string, q *models.ClassifiedQuery) *models.DispatchResponse {
	f.calls++
	f.got = q
	return f.resp
}

func trendQuery(assets ...string) *models.ClassifiedQuery {
	return &models.ClassifiedQuery{
		Intent: models.Intent{Pipeline: models.PipelineAnalytics, Task: models.TaskTrend},
		Entities: models.Entities{
			Assets:    assets,
			Metrics:   []string{"price"},
			TimeRange: models.TimeRange{Mode: models.RangeRelative, Value: 3, Unit: models.UnitMonths},
		},
		Visualization: models.Visualization{Required: true, Type: models.ChartLine},
	}
}

type harness struct {
	holdings   *fakeHoldings
	contexts   *fakeContexts
	log        *fakeLog
	classifier *fakeClassifier
	dispatcher *fakeDispatcher
	svc        *Service
}

func newHarness(tickers ...string) *harness {
	h := &harness{
		holdings:   &fakeHoldings{symbols: tickers},
		contexts:   &fakeContexts{},
		log:        newFakeLog(),
		classifier: &fakeClassifier{},
		dispatcher: &fakeDispatcher{},
	}
	explainer := NewExplainer(nil, common.NewSilentLogger(), nil, WithPicker(func(int) int { return 0 }))
	h.svc = NewService(h.holdings, h.contexts, h.log, h.classifier, h.dispatcher, explainer, common.NewSilentLogger())
	return h
}

func TestProcessAnalyticsTurn(t *testing.T) {
	h := newHarness("AAPL", "MSFT")
	h.classifier.q = trendQuery("aapl")
	h.dispatcher.resp = &models.DispatchResponse{
		Pipeline: models.PipelineAnalytics,
		Success:  true,
		Task:     models.TaskTrend,
		Data: models.TrendPayload{Trends: []models.TrendResult{
			{Symbol: "AAPL", ChangePercent: 5, TrendDirection: models.TrendUp},
		}},
		Sources: []models.Source{{Name: "EODHD - AAPL", Type: models.SourceMarketData}},
	}

	resp, err := h.svc.Process(context.Background(), models.ChatRequest{UserID: "u1", Query: "  How has Apple done?  "})
	require.NoError(t, err)

	assert.Equal(t, "conv-1", resp.ConversationID)
	assert.Equal(t, []string{"AAPL", "MSFT"}, h.classifier.tickers)
	assert.Equal(t, []string{"AAPL"}, h.dispatcher.got.Entities.Assets)

	assert.Equal(t, "AAPL has shown a up trend with a 5.00% change.", resp.Response.Text)
	assert.Equal(t, followUps[models.TaskTrend][0], resp.Response.FollowUpQuestion)
	assert.Equal(t, h.dispatcher.resp.Sources, resp.Sources)

	require.NotNil(t, resp.DataAccessed)
	assert.Equal(t, []string{"AAPL"}, resp.DataAccessed.Symbols)
	assert.Equal(t, "3 months", resp.DataAccessed.TimeRange)
	assert.Equal(t, marketDataSource, resp.DataAccessed.DataSource)

	require.Equal(t, 1, h.contexts.saves)
	assert.Equal(t, []string{"AAPL"}, h.contexts.saved.ActiveAssets)
	assert.Equal(t, models.TaskTrend, h.contexts.saved.LastResults.Task)
	assert.True(t, h.contexts.saved.LastResults.Success)

	require.Len(t, h.log.messages, 2)
	assert.Equal(t, models.RoleUser, h.log.messages[0].Role)
	assert.Equal(t, "How has Apple done?", h.log.messages[0].Content)
	assert.Equal(t, models.RoleAssistant, h.log.messages[1].Role)
	assert.Equal(t, resp.MessageID, h.log.messages[1].ID)
	assert.Equal(t, "analytics", h.log.messages[1].Metadata["pipeline"])
}

func TestProcessResolvesReference(t *testing.T) {
	h := newHarness("AAPL", "MSFT")
	h.log.conversations["c9"] = &models.Conversation{ID: "c9", UserID: "u1"}
	h.contexts.loaded = &models.ConversationContext{ActiveAssets: []string{"MSFT"}, MentionedAssetsHistory: []string{"MSFT"}}

	q := trendQuery()
	q.Entities.Reference = "that one"
	h.classifier.q = q
	h.dispatcher.resp = &models.DispatchResponse{Pipeline: models.PipelineAnalytics, Success: true, Task: models.TaskTrend, Data: models.TrendPayload{}}

	resp, err := h.svc.Process(context.Background(), models.ChatRequest{UserID: "u1", ConversationID: "c9", Query: "what about that one"})
	require.NoError(t, err)
	assert.Equal(t, "c9", resp.ConversationID)
	assert.Equal(t, []string{"MSFT"}, h.dispatcher.got.Entities.Assets)
	assert.Nil(t, resp.DataAccessed, "no symbols in the payload")
}

func TestProcessClarificationShortCircuits(t *testing.T) {
	tests := []struct {
		name   string
		q      *models.ClassifiedQuery
		prompt string
	}{
		{"classifier asks", models.NewClarification("Which stock do you mean?"), "Which stock do you mean?"},
		{"unknown assets", trendQuery("ZZZ"), "I couldn't find ZZZ in your portfolio. Your stocks are: AAPL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness("AAPL")
			h.classifier.q = tt.q

			resp, err := h.svc.Process(context.Background(), models.ChatRequest{UserID: "u1", Query: "how is it doing"})
			require.NoError(t, err)
			assert.Equal(t, tt.prompt, resp.Response.Text)
			assert.Equal(t, map[string]any{}, resp.Response.Data)
			assert.Empty(t, resp.Sources)
			assert.Zero(t, h.dispatcher.calls)
			assert.Zero(t, h.contexts.saves, "context untouched")

			require.Len(t, h.log.messages, 2)
			assert.Equal(t, "clarification", h.log.messages[1].Metadata["type"])
		})
	}
}

func TestProcessFailedDispatch(t *testing.T) {
	h := newHarness()
	h.classifier.q = &models.ClassifiedQuery{
		Intent:   models.Intent{Pipeline: models.PipelineAnalytics, Task: models.TaskPnL},
		Entities: models.Entities{Assets: []string{models.AllAssets}, TimeRange: models.DefaultTimeRange()},
	}
	h.dispatcher.resp = &models.DispatchResponse{
		Pipeline: models.PipelineAnalytics,
		Task:     models.TaskPnL,
		Success:  false,
		Text:     "No portfolio found. Please add assets first.",
		Data:     models.EmptyPayload{},
		Sources:  []models.Source{},
	}

	resp, err := h.svc.Process(context.Background(), models.ChatRequest{UserID: "u1", Query: "what's my pnl"})
	require.NoError(t, err)
	assert.Equal(t, "No portfolio found. Please add assets first.", resp.Response.Text)
	assert.Nil(t, resp.DataAccessed)
	assert.False(t, h.contexts.saved.LastResults.Success)
	assert.Equal(t, []string{models.AllAssets}, h.contexts.saved.ActiveAssets)
	assert.Empty(t, h.contexts.saved.MentionedAssetsHistory)
}

func TestProcessRetrievalFollowUp(t *testing.T) {
	h := newHarness()
	h.classifier.q = &models.ClassifiedQuery{
		Intent:   models.Intent{Pipeline: models.PipelineRetrieval, Task: models.TaskGeneralQuestion},
		Entities: models.Entities{Assets: []string{}, TimeRange: models.DefaultTimeRange()},
	}
	h.dispatcher.resp = &models.DispatchResponse{
		Pipeline: models.PipelineRetrieval,
		Task:     models.TaskGeneralQuestion,
		Success:  true,
		Text:     "Your notes favour dividends.\n" + FollowUpMarker + " Want the full note?",
		Data:     map[string]any{},
		Sources:  []models.Source{{Name: "notes.txt", Type: models.SourceDocument}},
	}

	resp, err := h.svc.Process(context.Background(), models.ChatRequest{UserID: "u1", Query: "what do my notes say"})
	require.NoError(t, err)
	assert.Equal(t, "Your notes favour dividends.", resp.Response.Text)
	assert.Equal(t, "Want the full note?", resp.Response.FollowUpQuestion)
	assert.Nil(t, resp.DataAccessed)
}

func TestProcessForecastDataAccessed(t *testing.T) {
	h := newHarness("AAPL")
	h.classifier.q = &models.ClassifiedQuery{
		Intent:   models.Intent{Pipeline: models.PipelineForecasting, Task: models.TaskForecast},
		Entities: models.Entities{Assets: []string{"AAPL"}, TimeRange: models.DefaultTimeRange()},
	}
	h.dispatcher.resp = &models.DispatchResponse{
		Pipeline: models.PipelineForecasting,
		Task:     models.TaskForecast,
		Success:  true,
		Data: &models.ForecastResult{
			Success:  true,
			Metadata: models.ForecastMetadata{Entity: "AAPL", HorizonDays: 30, HistoricalRecords: 250},
		},
	}

	resp, err := h.svc.Process(context.Background(), models.ChatRequest{UserID: "u1", Query: "forecast apple"})
	require.NoError(t, err)
	require.NotNil(t, resp.DataAccessed)
	assert.Equal(t, []string{"AAPL"}, resp.DataAccessed.Symbols)
	assert.Equal(t, 250, resp.DataAccessed.RecordsFetched)
	assert.Equal(t, "30 days forecast", resp.DataAccessed.TimeRange)
	assert.NotNil(t, resp.Sources)
}

func TestProcessErrors(t *testing.T) {
	h := newHarness("AAPL")
	h.log.conversations["theirs"] = &models.Conversation{ID: "theirs", UserID: "u2"}

	_, err := h.svc.Process(context.Background(), models.ChatRequest{UserID: "u1", Query: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = h.svc.Process(context.Background(), models.ChatRequest{UserID: "u1", ConversationID: "theirs", Query: "hi"})
	assert.ErrorIs(t, err, ErrConversationNotFound)

	_, err = h.svc.Process(context.Background(), models.ChatRequest{UserID: "u1", ConversationID: "missing", Query: "hi"})
	assert.ErrorIs(t, err, ErrConversationNotFound)

	h.log.startErr = fmt.Errorf("db down")
	_, err = h.svc.Process(context.Background(), models.ChatRequest{UserID: "u1", Query: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create conversation")

	assert.Zero(t, h.dispatcher.calls)
	assert.Empty(t, h.log.messages)
}

func TestHistoryOwnership(t *testing.T) {
	h := newHarness()
	h.log.conversations["c1"] = &models.Conversation{ID: "c1", UserID: "u1"}
	h.log.RecordMessage(context.Background(), "c1", models.RoleUser, "hello", nil)

	msgs, err := h.svc.History(context.Background(), "u1", "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Content)

	_, err = h.svc.History(context.Background(), "u2", "c1")
	assert.ErrorIs(t, err, ErrConversationNotFound)

	convs, err := h.svc.Conversations(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, convs, 1)
}
