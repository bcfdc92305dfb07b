// Package retrieval answers questions from the user's documents and holdings.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/bobmcallan/copilot/internal/common"
	"github.com/bobmcallan/copilot/internal/interfaces"
	"github.com/bobmcallan/copilot/internal/metrics"
	"github.com/bobmcallan/copilot/internal/models"
)

const (
	DefaultTopK        = 10
	portfolioSource    = "Portfolio Database"
	rawContextPreview  = 1000
	noDataText         = "I don't have any documents or portfolio data to search. Please upload some documents or add assets first."
	foundContextPrefix = "Found relevant information:\n\n"
)

const systemPrompt = `You are a personal financial document assistant. Answer the question using the provided context, which contains:
1. The user's personal documents and notes
2. The user's current holdings from the portfolio database

Instructions:
- Use the PORTFOLIO section for questions about specific holdings.
- Use the DOCUMENTS section for questions about notes and strategies.
- Quote exact numbers, dates and facts from the context and name the source.
- If the context does not contain the answer, say "I couldn't find that information."`

// Service implements interfaces.RetrievalService.
type Service struct {
	holdings  interfaces.HoldingStore
	documents interfaces.DocumentStore
	llm       interfaces.LLMClient
	logger    *common.Logger
	metrics   *metrics.Recorder
	topK      int
}

// NewService creates a retrieval service. A nil llm returns the raw context instead of an answer.
func NewService(holdings interfaces.HoldingStore, documents interfaces.DocumentStore, llm interfaces.LLMClient, logger *common.Logger, m *metrics.Recorder) *Service {
	return &Service{
		holdings:  holdings,
		documents: documents,
		llm:       llm,
		logger:    logger,
		metrics:   m,
		topK:      DefaultTopK,
	}
}

// Answer never fails outright; problems are reported in the result.
func (s *Service) Answer(ctx context.Context, userID, query string) *models.RetrievalResult {
	holdings := s.listHoldings(ctx, userID)
	matches := s.search(ctx, userID, query)

	sources := documentSources(matches)
	if len(holdings) > 0 {
		sources = append(sources, models.Source{Name: portfolioSource, Type: models.SourceDatabase})
	}

	knowledge := buildContext(holdings, matches)
	if strings.TrimSpace(knowledge) == "" {
		return &models.RetrievalResult{Success: true, Text: noDataText, Data: map[string]any{}, Sources: []models.Source{}}
	}

	if s.llm == nil {
		preview := knowledge
		if len(preview) > rawContextPreview {
			preview = preview[:rawContextPreview]
		}
		return &models.RetrievalResult{
			Success: true,
			Text:    foundContextPrefix + preview,
			Data:    map[string]any{"raw_context": knowledge, "user_portfolio": holdings},
			Sources: sources,
		}
	}

	prompt := fmt.Sprintf("Here is the context:\n\n%s\n\n---\n\nBased on the above context, answer this question: %s", knowledge, query)
	answer, err := s.llm.GenerateWithSystem(ctx, systemPrompt, prompt)
	s.metrics.RecordLLM("retrieval", err)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Retrieval answer failed")
		return &models.RetrievalResult{
			Success: false,
			Text:    fmt.Sprintf("Error generating answer: %v", err),
			Data:    map[string]any{},
			Sources: sources,
		}
	}

	return &models.RetrievalResult{
		Success: true,
		Text:    strings.TrimSpace(answer),
		Data: map[string]any{
			"context_used":   len(matches),
			"assets_used":    len(holdings),
			"user_portfolio": holdings,
		},
		Sources: sources,
	}
}

func (s *Service) listHoldings(ctx context.Context, userID string) []models.Holding {
	if s.holdings == nil {
		return nil
	}
	holdings, err := s.holdings.ListHoldings(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to list holdings for retrieval")
		return nil
	}
	return holdings
}

func (s *Service) search(ctx context.Context, userID, query string) []models.DocumentChunk {
	if s.documents == nil {
		return nil
	}
	chunks, err := s.documents.ListChunks(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to list document chunks")
		return nil
	}
	return Rank(query, chunks, s.topK)
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "was": true, "what": true,
	"did": true, "does": true, "how": true, "about": true, "with": true, "this": true,
	"that": true, "have": true, "from": true, "you": true, "your": true, "my": true,
	"which": true, "when": true, "where": true, "why": true, "who": true, "any": true,
	"tell": true, "show": true, "me": true, "i": true, "do": true, "is": true,
}

func terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 3 || stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// Rank scores chunks by how many query terms they contain, weighting rarer
// terms higher, and returns the best k with a positive score.
func Rank(query string, chunks []models.DocumentChunk, k int) []models.DocumentChunk {
	qterms := terms(query)
	if len(qterms) == 0 || len(chunks) == 0 {
		return nil
	}

	lowered := make([]string, len(chunks))
	df := make(map[string]int, len(qterms))
	for i, c := range chunks {
		lowered[i] = strings.ToLower(c.Content)
		for _, t := range qterms {
			if strings.Contains(lowered[i], t) {
				df[t]++
			}
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	var hits []scored
	for i := range chunks {
		score := 0.0
		for _, t := range qterms {
			if n := strings.Count(lowered[i], t); n > 0 {
				score += float64(n) / float64(df[t])
			}
		}
		if score > 0 {
			hits = append(hits, scored{idx: i, score: score})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].score > hits[b].score })
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}

	out := make([]models.DocumentChunk, 0, len(hits))
	for _, h := range hits {
		out = append(out, chunks[h.idx])
	}
	return out
}

func documentSources(matches []models.DocumentChunk) []models.Source {
	sources := []models.Source{}
	seen := map[string]bool{}
	for _, m := range matches {
		if seen[m.Source] {
			continue
		}
		seen[m.Source] = true
		sources = append(sources, models.Source{Name: m.Source, Type: models.SourceDocument})
	}
	return sources
}

func buildContext(holdings []models.Holding, matches []models.DocumentChunk) string {
	var parts []string
	if len(holdings) > 0 {
		var sb strings.Builder
		sb.WriteString("## PORTFOLIO\n")
		for _, h := range holdings {
			fmt.Fprintf(&sb, "- %s: %g units at average price %.2f %s", h.Symbol, h.Quantity, h.AvgBuyPrice, h.Currency)
			if h.PurchaseDate != nil {
				fmt.Fprintf(&sb, ", purchased %s", h.PurchaseDate.Format("2006-01-02"))
			}
			if h.PortfolioName != "" {
				fmt.Fprintf(&sb, ", portfolio %s", h.PortfolioName)
			}
			if h.Broker != "" {
				fmt.Fprintf(&sb, ", broker %s", h.Broker)
			}
			fmt.Fprintf(&sb, ", type %s\n", h.InvestmentType)
		}
		parts = append(parts, sb.String())
	}
	if len(matches) > 0 {
		var sb strings.Builder
		sb.WriteString("## DOCUMENTS\n")
		for _, m := range matches {
			fmt.Fprintf(&sb, "[Source: %s]\n%s\n\n", m.Source, m.Content)
		}
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, "\n")
}

// Compile-time check
var _ interfaces.RetrievalService = (*Service)(nil)
