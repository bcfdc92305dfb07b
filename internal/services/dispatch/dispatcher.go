// Package dispatch routes classified queries to their pipelines and
// normalises every pipeline's output into a DispatchResponse.
package dispatch

import (
	"context"

	"github.com/bobmcallan/copilot/internal/common"
	"github.com/bobmcallan/copilot/internal/interfaces"
	"github.com/bobmcallan/copilot/internal/metrics"
	"github.com/bobmcallan/copilot/internal/models"
	"github.com/bobmcallan/copilot/internal/services/analytics"
	"github.com/bobmcallan/copilot/internal/services/forecast"
)

const (
	defaultClarification = "Could you please clarify your question?"
	unknownPipeline      = "Unknown pipeline type."
	retrievalUnavailable = "Document search is not available."
	forecastUnavailable  = "Forecasting is not available."
)

// Dispatcher selects a pipeline for a query. It never fetches or computes
// anything itself.
type Dispatcher struct {
	analytics interfaces.AnalyticsExecutor
	retrieval interfaces.RetrievalService
	forecast  interfaces.ForecastService
	renderer  interfaces.ChartRenderer
	metrics   *metrics.Recorder
	logger    *common.Logger
}

// Option configures the dispatcher
type Option func(*Dispatcher)

// WithRenderer attaches PNG images to chart-bearing responses
func WithRenderer(r interfaces.ChartRenderer) Option {
	return func(d *Dispatcher) {
		d.renderer = r
	}
}

// WithMetrics counts dispatches by pipeline, task and outcome
func WithMetrics(m *metrics.Recorder) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// NewDispatcher creates a dispatcher over the three executing pipelines
func NewDispatcher(executor interfaces.AnalyticsExecutor, retrieval interfaces.RetrievalService, forecaster interfaces.ForecastService, logger *common.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		analytics: executor,
		retrieval: retrieval,
		forecast:  forecaster,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch routes q. A query needing clarification is answered without
// calling any collaborator.
func (d *Dispatcher) Dispatch(ctx context.Context, userID, query string, q *models.ClassifiedQuery) *models.DispatchResponse {
	if q == nil {
		q = models.NewClarification(defaultClarification)
	}

	var resp *models.DispatchResponse
	switch {
	case q.Confidence.NeedsClarification:
		resp = clarification(q.Confidence.ClarificationPrompt)
	case q.Intent.Pipeline == models.PipelineAnalytics:
		resp = d.dispatchAnalytics(ctx, userID, q)
	case q.Intent.Pipeline == models.PipelineRetrieval:
		resp = d.dispatchRetrieval(ctx, userID, query)
	case q.Intent.Pipeline == models.PipelineForecasting:
		resp = d.dispatchForecast(ctx, userID, q)
	default:
		resp = &models.DispatchResponse{
			Pipeline: q.Intent.Pipeline,
			Success:  false,
			Text:     unknownPipeline,
			Data:     map[string]any{},
			Sources:  []models.Source{},
		}
	}

	d.metrics.RecordDispatch(string(resp.Pipeline), string(resp.Task), resp.Success)
	d.logger.Debug().
		Str("pipeline", string(resp.Pipeline)).
		Str("task", string(resp.Task)).
		Bool("success", resp.Success).
		Msg("Query dispatched")
	return resp
}

func clarification(prompt string) *models.DispatchResponse {
	if prompt == "" {
		prompt = defaultClarification
	}
	return &models.DispatchResponse{
		Pipeline: models.PipelineClarification,
		Success:  false,
		Text:     prompt,
		Data:     map[string]any{},
		Sources:  []models.Source{},
	}
}

func (d *Dispatcher) dispatchAnalytics(ctx context.Context, userID string, q *models.ClassifiedQuery) *models.DispatchResponse {
	result := d.analytics.Execute(ctx, userID, q)

	resp := &models.DispatchResponse{
		Pipeline: models.PipelineAnalytics,
		Success:  result.Success,
		Task:     result.Task,
		Data:     result.Data,
		Sources:  []models.Source{},
	}
	if !result.Success {
		resp.Text = result.Error
		resp.Error = result.Error
	}
	resp.Visualization = d.visualize(result.ChartData)

	if result.Success && result.Data != nil {
		for _, symbol := range result.Data.Symbols() {
			resp.Sources = append(resp.Sources, analytics.MarketDataSource(symbol))
		}
	}
	return resp
}

func (d *Dispatcher) dispatchRetrieval(ctx context.Context, userID, query string) *models.DispatchResponse {
	resp := &models.DispatchResponse{
		Pipeline: models.PipelineRetrieval,
		Task:     models.TaskGeneralQuestion,
		Data:     map[string]any{},
		Sources:  []models.Source{},
	}
	if d.retrieval == nil {
		resp.Text = retrievalUnavailable
		return resp
	}

	result := d.retrieval.Answer(ctx, userID, query)
	resp.Success = result.Success
	resp.Text = result.Text
	if result.Data != nil {
		resp.Data = result.Data
	}
	if result.Sources != nil {
		resp.Sources = result.Sources
	}
	return resp
}

func (d *Dispatcher) dispatchForecast(ctx context.Context, userID string, q *models.ClassifiedQuery) *models.DispatchResponse {
	resp := &models.DispatchResponse{
		Pipeline: models.PipelineForecasting,
		Task:     models.TaskForecast,
		Data:     map[string]any{},
		Sources:  []models.Source{},
	}
	if d.forecast == nil {
		resp.Text = forecastUnavailable
		return resp
	}

	result := d.forecast.Forecast(ctx, userID, q)
	resp.Success = result.Success
	resp.Text = result.Text
	resp.Error = result.Error
	resp.Data = result
	resp.Visualization = d.visualize(result.ChartData)

	if entity := result.Metadata.Entity; entity != "" {
		resp.Sources = append(resp.Sources, analytics.MarketDataSource(entity))
	}
	resp.Sources = append(resp.Sources, models.Source{
		Name: forecast.ModelName,
		URL:  forecast.ModelURL,
		Type: models.SourceModel,
	})
	return resp
}

// visualize wraps chart data, rendering an image for drawable types.
func (d *Dispatcher) visualize(data *models.ChartData) *models.VisualizationData {
	if data == nil {
		return nil
	}
	chartType := data.Type
	if chartType == "" {
		chartType = models.ChartNone
	}
	vis := &models.VisualizationData{Type: chartType, ChartData: data}
	if chartType == models.ChartNone || d.renderer == nil {
		return vis
	}

	image, err := d.renderer.Render(data)
	if err != nil {
		d.logger.Debug().Err(err).Str("type", chartType).Msg("Chart not rendered")
		return vis
	}
	vis.ImageBase64 = image
	return vis
}

// Compile-time check
var _ interfaces.Dispatcher = (*Dispatcher)(nil)
