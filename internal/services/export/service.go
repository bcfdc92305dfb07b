// Package export turns chat messages into a markdown report.
package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/copilot/internal/common"
	"github.com/bobmcallan/copilot/internal/interfaces"
	"github.com/bobmcallan/copilot/internal/metrics"
	"github.com/bobmcallan/copilot/internal/models"
)

const (
	defaultTitle   = "Stock Analytics Report"
	defaultSummary = "Stock analytics conversation summary."
	reportFooter   = "*Report generated from AI analytics conversation*"
)

// ErrNoMessages is returned when there is nothing to export.
var ErrNoMessages = errors.New("no messages provided for export")

const systemPrompt = `You are a financial report generator. Take a conversation between a user and a stock analytics assistant and write a professional summary document.

Output format (markdown):

# [Title based on conversation topic]

## Executive Summary
[2-3 sentence overview of the key findings]

## Key Insights
- [Bullet points]

## Detailed Analysis
### [Section title]
[Content]

## Data Sources
[Sources mentioned]

## Recommendations
[Only if actionable insights were discussed]

---
` + reportFooter + `

Rules:
- Be professional and concise
- Include specific numbers and percentages from the conversation
- Group related information together`

// Service builds export reports. Without an LLM the assistant messages are
// concatenated under a fixed heading.
type Service struct {
	llm     interfaces.LLMClient
	logger  *common.Logger
	metrics *metrics.Recorder
	now     func() time.Time
}

// NewService creates an export service. llm may be nil.
func NewService(llm interfaces.LLMClient, logger *common.Logger, m *metrics.Recorder) *Service {
	return &Service{llm: llm, logger: logger, metrics: m, now: time.Now}
}

// Generate builds a report from the request's messages.
func (s *Service) Generate(ctx context.Context, req models.ExportRequest) (*models.ExportResponse, error) {
	if len(req.Messages) == 0 {
		return nil, ErrNoMessages
	}

	var images []models.ExportImage
	for i, msg := range req.Messages {
		if msg.ImageBase64 == "" {
			continue
		}
		kind := msg.VisualizationType
		if kind == "" {
			kind = "Analytics Chart"
		}
		images = append(images, models.ExportImage{
			Caption:     fmt.Sprintf("Chart %d: %s", i+1, kind),
			ImageBase64: msg.ImageBase64,
		})
	}

	content := s.summarise(ctx, req.Messages)

	title := req.Title
	if title == "" {
		title = extractTitle(content)
	}
	if title == "" {
		title = defaultTitle
	}

	return &models.ExportResponse{
		Title:             title,
		Summary:           executiveSummary(content),
		StructuredContent: content,
		Sections:          ParseSections(content),
		Visualizations:    nonNilImages(images),
		GeneratedAt:       s.now(),
	}, nil
}

func (s *Service) summarise(ctx context.Context, messages []models.ExportMessage) string {
	if s.llm == nil {
		return fallbackReport(messages)
	}
	prompt := "Generate a professional export document from this conversation:\n\n" + formatConversation(messages)
	out, err := s.llm.GenerateWithSystem(ctx, systemPrompt, prompt)
	s.metrics.RecordLLM("export", err)
	if err != nil || strings.TrimSpace(out) == "" {
		s.logger.Warn().Err(err).Msg("Export summary generation failed, using fallback")
		return fallbackReport(messages)
	}
	return strings.TrimSpace(out)
}

func formatConversation(messages []models.ExportMessage) string {
	parts := make([]string, 0, len(messages))
	for _, msg := range messages {
		role := "Assistant"
		if msg.Role == models.RoleUser {
			role = "User"
		}
		content := msg.Content
		if msg.HasVisualization {
			content += fmt.Sprintf("\n[Visualization: %s]", msg.VisualizationType)
		}
		parts = append(parts, role+": "+content)
	}
	return strings.Join(parts, "\n\n")
}

func fallbackReport(messages []models.ExportMessage) string {
	parts := []string{"# " + defaultTitle + "\n", "## Conversation Summary\n"}
	for _, msg := range messages {
		if msg.Role == models.RoleAssistant {
			parts = append(parts, msg.Content+"\n")
		}
	}
	parts = append(parts, "\n---\n"+reportFooter)
	return strings.Join(parts, "\n")
}

// ParseSections splits markdown into its level-2 and level-3 sections.
func ParseSections(content string) []models.ExportSection {
	sections := []models.ExportSection{}
	var (
		current string
		open    bool
		body    []string
	)
	flush := func() {
		if open {
			sections = append(sections, models.ExportSection{
				Title:   current,
				Content: strings.TrimSpace(strings.Join(body, "\n")),
				Level:   2,
			})
		}
	}

	for _, line := range strings.Split(content, "\n") {
		switch {
		case strings.HasPrefix(line, "## "):
			flush()
			current, open, body = strings.TrimSpace(line[3:]), true, nil
		case strings.HasPrefix(line, "### "):
			flush()
			current, open, body = strings.TrimSpace(line[4:]), true, nil
		case open:
			body = append(body, line)
		}
	}
	flush()
	return sections
}

func extractTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}

func executiveSummary(content string) string {
	var (
		in    bool
		lines []string
	)
	for _, line := range strings.Split(content, "\n") {
		switch {
		case strings.Contains(line, "## Executive Summary") || strings.Contains(line, "## Summary"):
			in = true
		case in && strings.HasPrefix(line, "##"):
			in = false
		case in && strings.TrimSpace(line) != "":
			lines = append(lines, strings.TrimSpace(line))
		}
		if !in && len(lines) > 0 {
			break
		}
	}
	if len(lines) == 0 {
		return defaultSummary
	}
	return strings.Join(lines, " ")
}

func nonNilImages(images []models.ExportImage) []models.ExportImage {
	if images == nil {
		return []models.ExportImage{}
	}
	return images
}

// Compile-time check
var _ interfaces.Exporter = (*Service)(nil)
