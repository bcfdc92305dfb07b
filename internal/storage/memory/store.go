// Package memory implements copilot storage in process. Data is lost on
// restart; it backs local development and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/copilot/internal/common"
	"github.com/bobmcallan/copilot/internal/interfaces"
	"github.com/bobmcallan/copilot/internal/models"
)

// Manager implements interfaces.StorageManager in memory.
type Manager struct {
	holdings      *HoldingStore
	conversations *ConversationStore
	documents     *DocumentStore
}

// NewManager creates an empty in-memory storage manager.
func NewManager(logger *common.Logger) *Manager {
	logger.Info().Msg("In-memory storage manager initialized")
	return &Manager{
		holdings:      NewHoldingStore(),
		conversations: NewConversationStore(),
		documents:     NewDocumentStore(),
	}
}

func (m *Manager) HoldingStore() interfaces.HoldingStore           { return m.holdings }
func (m *Manager) ConversationStore() interfaces.ConversationStore { return m.conversations }
func (m *Manager) DocumentStore() interfaces.DocumentStore         { return m.documents }
func (m *Manager) Close() error                                    { return nil }

// HoldingStore keeps one holding per (user, symbol).
type HoldingStore struct {
	mu   sync.RWMutex
	data map[string]map[string]models.Holding
}

// NewHoldingStore creates an empty holding store.
func NewHoldingStore() *HoldingStore {
	return &HoldingStore{data: make(map[string]map[string]models.Holding)}
}

func (s *HoldingStore) ListHoldings(_ context.Context, userID string) ([]models.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	holdings := make([]models.Holding, 0, len(s.data[userID]))
	for _, h := range s.data[userID] {
		holdings = append(holdings, h)
	}
	sort.SliceStable(holdings, func(i, j int) bool {
		if holdings[i].CreatedAt.Equal(holdings[j].CreatedAt) {
			return holdings[i].Symbol < holdings[j].Symbol
		}
		return holdings[i].CreatedAt.Before(holdings[j].CreatedAt)
	})
	return holdings, nil
}

func (s *HoldingStore) GetHolding(_ context.Context, userID, symbol string) (*models.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.data[userID][strings.ToUpper(symbol)]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (s *HoldingStore) SaveHolding(_ context.Context, h *models.Holding) error {
	if h.UserID == "" || h.Symbol == "" {
		return fmt.Errorf("holding requires user_id and symbol")
	}
	h.Symbol = strings.ToUpper(strings.TrimSpace(h.Symbol))
	h.ApplyDefaults()
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[h.UserID] == nil {
		s.data[h.UserID] = make(map[string]models.Holding)
	}
	s.data[h.UserID][h.Symbol] = *h
	return nil
}

func (s *HoldingStore) DeleteHolding(_ context.Context, userID, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data[userID], strings.ToUpper(symbol))
	return nil
}

// ConversationStore keeps conversations, messages and context state.
type ConversationStore struct {
	mu            sync.RWMutex
	contexts      map[string]models.ConversationContext
	conversations map[string]models.Conversation
	messages      map[string][]models.Message
}

// NewConversationStore creates an empty conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		contexts:      make(map[string]models.ConversationContext),
		conversations: make(map[string]models.Conversation),
		messages:      make(map[string][]models.Message),
	}
}

func cloneContext(cc models.ConversationContext) models.ConversationContext {
	cc.ActiveAssets = slices.Clone(cc.ActiveAssets)
	cc.MentionedAssetsHistory = slices.Clone(cc.MentionedAssetsHistory)
	cc.LastResults.Assets = slices.Clone(cc.LastResults.Assets)
	if cc.ActiveTimeRange != nil {
		tr := *cc.ActiveTimeRange
		cc.ActiveTimeRange = &tr
	}
	return cc
}

func (s *ConversationStore) GetContext(_ context.Context, conversationID string) (*models.ConversationContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cc, ok := s.contexts[conversationID]
	if !ok {
		return nil, nil
	}
	out := cloneContext(cc)
	return &out, nil
}

func (s *ConversationStore) SaveContext(_ context.Context, conversationID string, cc *models.ConversationContext) error {
	if cc == nil {
		return fmt.Errorf("conversation context is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[conversationID] = cloneContext(*cc)
	return nil
}

func (s *ConversationStore) CreateConversation(_ context.Context, conv *models.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	now := time.Now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	conv.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conv.ID] = *conv
	return nil
}

func (s *ConversationStore) GetConversation(_ context.Context, conversationID string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, nil
	}
	return &conv, nil
}

func (s *ConversationStore) ListConversations(_ context.Context, userID string) ([]models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	convs := []models.Conversation{}
	for _, c := range s.conversations {
		if c.UserID == userID {
			convs = append(convs, c)
		}
	}
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})
	return convs, nil
}

func (s *ConversationStore) AddMessage(_ context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], *msg)
	if conv, ok := s.conversations[msg.ConversationID]; ok {
		conv.UpdatedAt = msg.CreatedAt
		s.conversations[msg.ConversationID] = conv
	}
	return nil
}

func (s *ConversationStore) ListMessages(_ context.Context, conversationID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Message{}, s.messages[conversationID]...), nil
}

// DocumentStore keeps chunks keyed by (user, source, index).
type DocumentStore struct {
	mu     sync.RWMutex
	chunks map[string]map[string]models.DocumentChunk
}

// NewDocumentStore creates an empty document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{chunks: make(map[string]map[string]models.DocumentChunk)}
}

func chunkKey(c models.DocumentChunk) string {
	return fmt.Sprintf("%s\x00%08d", c.Source, c.ChunkIndex)
}

func (s *DocumentStore) SaveChunks(_ context.Context, chunks []models.DocumentChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		if s.chunks[c.UserID] == nil {
			s.chunks[c.UserID] = make(map[string]models.DocumentChunk)
		}
		s.chunks[c.UserID][chunkKey(c)] = c
	}
	return nil
}

// ListChunks returns chunks ordered by source then index.
func (s *DocumentStore) ListChunks(_ context.Context, userID string) ([]models.DocumentChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.chunks[userID]))
	for k := range s.chunks[userID] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]models.DocumentChunk, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.chunks[userID][k])
	}
	return out, nil
}

func (s *DocumentStore) DeleteChunks(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.chunks[userID])
	delete(s.chunks, userID)
	return n, nil
}

// Compile-time checks
var (
	_ interfaces.StorageManager    = (*Manager)(nil)
	_ interfaces.HoldingStore      = (*HoldingStore)(nil)
	_ interfaces.ConversationStore = (*ConversationStore)(nil)
	_ interfaces.DocumentStore     = (*DocumentStore)(nil)
)
