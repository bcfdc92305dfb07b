package models

import "time"

// ExportMessage is one chat message selected for export.
type ExportMessage struct {
	Role              string `json:"role" validate:"required,oneof=user assistant"`
	Content           string `json:"content"`
	Timestamp         string `json:"timestamp,omitempty"`
	HasVisualization  bool   `json:"has_visualization"`
	VisualizationType string `json:"visualization_type,omitempty"`
	ImageBase64       string `json:"image_base64,omitempty"`
}

// ExportRequest asks for a report built from chat messages. When Messages is
// empty the stored history of ConversationID is used.
type ExportRequest struct {
	ConversationID string          `json:"conversation_id,omitempty"`
	Messages       []ExportMessage `json:"messages" validate:"dive"`
	Title          string          `json:"title,omitempty" validate:"max=200"`
}

// ExportSection is one heading of a generated report.
type ExportSection struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Level   int    `json:"level"`
}

// ExportImage is a chart carried into a report.
type ExportImage struct {
	Caption     string `json:"caption"`
	ImageBase64 string `json:"image_base64"`
}

// ExportResponse is a markdown report of a conversation.
type ExportResponse struct {
	Title             string          `json:"title"`
	Summary           string          `json:"summary"`
	StructuredContent string          `json:"structured_content"`
	Sections          []ExportSection `json:"sections"`
	Visualizations    []ExportImage   `json:"visualizations"`
	GeneratedAt       time.Time       `json:"generated_at"`
}
