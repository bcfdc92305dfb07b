package models

// Source types
const (
	SourceMarketData = "market_data"
	SourceDocument   = "document"
	SourceDatabase   = "database"
	SourceModel      = "model"
)

// Source attributes where a response's data came from.
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
	Type string `json:"type"`
}

// VisualizationData is a chart attached to a response.
type VisualizationData struct {
	Type        string     `json:"type"`
	ChartData   *ChartData `json:"chart_data,omitempty"`
	ImageBase64 string     `json:"image_base64,omitempty"`
}

// DispatchResponse is the normalised output of every pipeline.
type DispatchResponse struct {
	Pipeline      Pipeline           `json:"pipeline"`
	Success       bool               `json:"success"`
	Task          Task               `json:"task,omitempty"`
	Text          string             `json:"text,omitempty"`
	Data          any                `json:"data"`
	Visualization *VisualizationData `json:"visualization,omitempty"`
	Sources       []Source           `json:"sources"`
	Error         string             `json:"error,omitempty"`
}

// RetrievalResult is returned by the document retrieval collaborator.
type RetrievalResult struct {
	Success bool           `json:"success"`
	Text    string         `json:"text"`
	Data    map[string]any `json:"data"`
	Sources []Source       `json:"sources"`
}

// ForecastPoint is one projected value.
type ForecastPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// ForecastMetadata describes what a forecast was built from.
type ForecastMetadata struct {
	Entity            string `json:"entity"`
	HorizonDays       int    `json:"horizon_days"`
	HistoricalRecords int    `json:"historical_records"`
	Model             string `json:"model"`
}

// ForecastResult is returned by the forecasting collaborator.
type ForecastResult struct {
	Success   bool             `json:"success"`
	Text      string           `json:"text"`
	Forecast  []ForecastPoint  `json:"forecast"`
	Metadata  ForecastMetadata `json:"metadata"`
	Technical TechnicalSummary `json:"technical"`
	ChartData *ChartData       `json:"chart_data,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// TechnicalSummary is momentum context reported alongside a forecast.
type TechnicalSummary struct {
	SMA20           float64 `json:"sma_20"`
	SMA50           float64 `json:"sma_50"`
	RSI14           float64 `json:"rsi_14"`
	RSIState        string  `json:"rsi_state"`
	Crossover       string  `json:"crossover"`
	DistanceToSMA20 float64 `json:"distance_to_sma_20"`
}
