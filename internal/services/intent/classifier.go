// Package intent classifies user queries into structured intents and
// validates them against the user's holdings.
package intent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/bobmcallan/copilot/internal/common"
	"github.com/bobmcallan/copilot/internal/interfaces"
	"github.com/bobmcallan/copilot/internal/metrics"
	"github.com/bobmcallan/copilot/internal/models"
)

// Clarification prompts used when classification cannot produce a usable intent
const (
	PromptUnavailable   = "AI service is not available. Please check configuration."
	PromptServiceError  = "AI service encountered an error. Please try again."
	PromptUnparseable   = "I couldn't understand your request. Could you please rephrase?"
	PromptUnexpected    = "Something went wrong. Please try again."
	DefaultClarifyAsk   = "Could you please clarify your question?"
	defaultAnalysisType = "trend"
)

// Classifier implements interfaces.Classifier on top of an LLM.
type Classifier struct {
	llm     interfaces.LLMClient
	logger  *common.Logger
	metrics *metrics.Recorder
}

// NewClassifier creates a classifier. A nil llm yields a clarification for every query.
func NewClassifier(llm interfaces.LLMClient, logger *common.Logger, m *metrics.Recorder) *Classifier {
	return &Classifier{llm: llm, logger: logger, metrics: m}
}

// Classify never fails: any error becomes a clarification request.
func (c *Classifier) Classify(ctx context.Context, query string, ownedTickers []string) *models.ClassifiedQuery {
	if c.llm == nil {
		c.logger.Warn().Msg("Classifier has no LLM client configured")
		return models.NewClarification(PromptUnavailable)
	}

	raw, err := c.llm.GenerateJSON(ctx, systemPrompt, userPrompt(query, ownedTickers))
	c.metrics.RecordLLM("classify", err)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Intent classification call failed")
		return models.NewClarification(PromptServiceError)
	}

	q, err := Parse(raw)
	if err != nil {
		c.logger.Warn().Err(err).Str("response", truncate(raw, 500)).Msg("Intent classification unparseable")
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return models.NewClarification(PromptUnparseable)
		}
		return models.NewClarification(PromptUnexpected)
	}

	c.logger.Debug().
		Str("pipeline", string(q.Intent.Pipeline)).
		Str("task", string(q.Intent.Task)).
		Strs("assets", q.Entities.Assets).
		Msg("Query classified")
	return q
}

// rawClassification mirrors the LLM's JSON. Nullable fields are pointers so
// defaults can be told apart from explicit values.
type rawClassification struct {
	Intent struct {
		Pipeline string `json:"pipeline"`
		Task     string `json:"task"`
	} `json:"intent"`
	Entities struct {
		Assets    []string `json:"assets"`
		Metrics   []string `json:"metrics"`
		TimeRange *struct {
			Type      string   `json:"type"`
			Value     *float64 `json:"value"`
			Unit      string   `json:"unit"`
			StartDate *string  `json:"start_date"`
			EndDate   *string  `json:"end_date"`
		} `json:"time_range"`
		Reference *string `json:"reference"`
	} `json:"entities"`
	Operations struct {
		AnalysisType *string  `json:"analysis_type"`
		Direction    *string  `json:"direction"`
		RankN        *float64 `json:"rank_n"`
		Aggregation  *string  `json:"aggregation"`
	} `json:"operations"`
	Visualization struct {
		Required *bool  `json:"required"`
		Type     string `json:"type"`
	} `json:"visualization"`
	Confidence struct {
		NeedsClarification  bool     `json:"needs_clarification"`
		MissingFields       []string `json:"missing_fields"`
		ClarificationPrompt *string  `json:"clarification_prompt"`
	} `json:"confidence"`
}

// stripFences removes a surrounding markdown code block.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[3:]
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Parse converts a classifier response into a ClassifiedQuery, filling safe
// defaults for anything missing.
func Parse(raw string) (*models.ClassifiedQuery, error) {
	var r rawClassification
	if err := json.Unmarshal([]byte(stripFences(raw)), &r); err != nil {
		return nil, err
	}

	q := &models.ClassifiedQuery{
		Intent: models.Intent{
			Pipeline: models.ParsePipeline(r.Intent.Pipeline),
			Task:     models.Task(r.Intent.Task),
		},
	}
	if q.Intent.Task == "" {
		q.Intent.Task = models.TaskAllocation
	}

	q.Entities.Assets = r.Entities.Assets
	if len(q.Entities.Assets) == 0 {
		q.Entities.Assets = []string{models.AllAssets}
	}
	q.Entities.Metrics = r.Entities.Metrics
	if len(q.Entities.Metrics) == 0 {
		q.Entities.Metrics = []string{"price"}
	}
	q.Entities.Reference = deref(r.Entities.Reference)

	tr := models.DefaultTimeRange()
	if rt := r.Entities.TimeRange; rt != nil {
		tr = models.TimeRange{
			Mode:      rt.Type,
			Unit:      rt.Unit,
			StartDate: deref(rt.StartDate),
			EndDate:   deref(rt.EndDate),
		}
		if rt.Value != nil {
			tr.Value = int(*rt.Value)
		}
	}
	tr.Normalize()
	q.Entities.TimeRange = tr

	q.Operations = models.Operations{
		AnalysisType: deref(r.Operations.AnalysisType),
		Direction:    deref(r.Operations.Direction),
		Aggregation:  deref(r.Operations.Aggregation),
	}
	if q.Operations.AnalysisType == "" {
		q.Operations.AnalysisType = defaultAnalysisType
	}
	if r.Operations.RankN != nil && *r.Operations.RankN > 0 {
		q.Operations.RankN = int(*r.Operations.RankN)
	}

	q.Visualization.Required = true
	if r.Visualization.Required != nil {
		q.Visualization.Required = *r.Visualization.Required
	}
	q.Visualization.Type = r.Visualization.Type
	if q.Visualization.Type == "" {
		q.Visualization.Type = models.ChartTable
	}

	q.Confidence = models.Confidence{
		NeedsClarification:  r.Confidence.NeedsClarification,
		MissingFields:       r.Confidence.MissingFields,
		ClarificationPrompt: deref(r.Confidence.ClarificationPrompt),
	}
	if q.Confidence.MissingFields == nil {
		q.Confidence.MissingFields = []string{}
	}

	return q, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Compile-time check
var _ interfaces.Classifier = (*Classifier)(nil)
