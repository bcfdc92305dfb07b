package models

// ChatRequest is a single user turn.
type ChatRequest struct {
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id,omitempty"`
	Query          string `json:"user_query" validate:"required,max=2000"`
}

// DataAccessed describes the market data a turn touched.
type DataAccessed struct {
	Symbols        []string `json:"symbols"`
	TimeRange      string   `json:"time_range,omitempty"`
	DataSource     string   `json:"data_source"`
	RecordsFetched int      `json:"records_fetched"`
}

// ChatResponseBody is the assistant's reply content.
type ChatResponseBody struct {
	Text             string             `json:"text"`
	Data             any                `json:"data"`
	Visualization    *VisualizationData `json:"visualization,omitempty"`
	FollowUpQuestion string             `json:"follow_up_question,omitempty"`
}

// ChatResponse is the full result of a chat turn.
type ChatResponse struct {
	ConversationID string           `json:"conversation_id"`
	MessageID      string           `json:"message_id"`
	Response       ChatResponseBody `json:"response"`
	Sources        []Source         `json:"sources"`
	DataAccessed   *DataAccessed    `json:"data_accessed,omitempty"`
}

// Explanation is the prose answer for a dispatched query.
type Explanation struct {
	Text     string `json:"text"`
	FollowUp string `json:"follow_up_question,omitempty"`
}
