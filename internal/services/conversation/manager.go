// Package conversation manages per-conversation state and chat history.
package conversation

import (
	"context"
	"strings"

	"github.com/bobmcallan/copilot/internal/common"
	"github.com/bobmcallan/copilot/internal/interfaces"
	"github.com/bobmcallan/copilot/internal/models"
)

// Manager implements interfaces.ContextManager over a ConversationStore.
// Storage failures never reach the caller.
type Manager struct {
	store  interfaces.ConversationStore
	logger *common.Logger
}

// NewManager creates a new context manager
func NewManager(store interfaces.ConversationStore, logger *common.Logger) *Manager {
	return &Manager{store: store, logger: logger}
}

// Load returns the saved context, or an empty one when none exists or the
// store fails.
func (m *Manager) Load(ctx context.Context, conversationID string) *models.ConversationContext {
	if m.store == nil || conversationID == "" {
		return models.NewConversationContext()
	}

	cc, err := m.store.GetContext(ctx, conversationID)
	if err != nil {
		m.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("Failed to load conversation context")
		return models.NewConversationContext()
	}
	if cc == nil {
		return models.NewConversationContext()
	}
	if cc.ActiveAssets == nil {
		cc.ActiveAssets = []string{}
	}
	if cc.MentionedAssetsHistory == nil {
		cc.MentionedAssetsHistory = []string{}
	}
	return cc
}

// Save upserts the context. Returns false on failure.
func (m *Manager) Save(ctx context.Context, conversationID string, cc *models.ConversationContext) bool {
	if m.store == nil || conversationID == "" || cc == nil {
		return false
	}
	if err := m.store.SaveContext(ctx, conversationID, cc); err != nil {
		m.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("Failed to save conversation context")
		return false
	}
	return true
}

// Update folds a completed turn into the context. A non-empty asset list
// replaces the active assets; time range, last operation and last results are
// always overwritten.
func Update(cc *models.ConversationContext, q *models.ClassifiedQuery, success bool) *models.ConversationContext {
	if cc == nil {
		cc = models.NewConversationContext()
	}
	if q == nil {
		return cc
	}

	assets := q.Entities.Assets
	if len(assets) > 0 {
		cc.ActiveAssets = append([]string(nil), assets...)
		for _, a := range assets {
			if a == models.AllAssets || contains(cc.MentionedAssetsHistory, a) {
				continue
			}
			cc.MentionedAssetsHistory = append(cc.MentionedAssetsHistory, a)
		}
	}

	tr := q.Entities.TimeRange
	cc.ActiveTimeRange = &tr
	cc.LastOperation = string(q.Intent.Task)
	cc.LastResults = models.LastResults{
		Task:    q.Intent.Task,
		Assets:  append([]string(nil), assets...),
		Success: success,
	}
	return cc
}

var (
	pronounKeywords = []string{"that", "it", "this", "the same"}
	extremeKeywords = []string{"worst", "bottom", "best", "top"}
)

// ResolveReference maps phrases like "that stock" or "the top performer" to
// assets from the context. After a rank turn both best and worst phrasing
// resolve to the first active asset.
func ResolveReference(reference string, cc *models.ConversationContext) ([]string, bool) {
	if reference == "" || cc == nil {
		return nil, false
	}
	text := strings.ToLower(reference)
	active := cc.ActiveAssets

	if containsAny(text, pronounKeywords) && len(active) > 0 {
		return append([]string(nil), active...), true
	}

	if containsAny(text, extremeKeywords) && cc.LastResults.Task == models.TaskRank {
		if len(active) == 0 {
			return nil, false
		}
		return []string{active[0]}, true
	}

	if len(active) > 0 {
		return append([]string(nil), active...), true
	}
	return nil, false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// Compile-time checks
var (
	_ interfaces.ContextManager  = (*Manager)(nil)
	_ interfaces.ConversationLog = (*Manager)(nil)
)
