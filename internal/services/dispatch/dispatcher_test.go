package dispatch

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/copilot/internal/common"
	"github.com/bobmcallan/copilot/internal/interfaces"
	"github.com/bobmcallan/copilot/internal/metrics"
	"github.com/bobmcallan/copilot/internal/models"
	"github.com/bobmcallan/copilot/internal/services/forecast"
)

// --- collaborator fakes ---

type fakeExecutor struct {
	result *models.AnalyticsResult
	calls  int
}

func (f *fakeExecutor) Execute(ctx context.Context, userID string, q *models.ClassifiedQuery) *models.AnalyticsResult {
	f.calls++
	return f.result
}

type fakeRetrieval struct {
	result    *models.RetrievalResult
	calls     int
	lastQuery string
}

func (f *fakeRetrieval) Answer(ctx context.Context, userID, query string) *models.RetrievalResult {
	f.calls++
	f.lastQuery = query
	return f.result
}

type fakeForecast struct {
	result *models.ForecastResult
	calls  int
}

func (f *fakeForecast) Forecast(ctx context.Context, userID string, q *models.ClassifiedQuery) *models.ForecastResult {
	f.calls++
	return f.result
}

type fakeRenderer struct {
	err   error
	calls int
}

func (f *fakeRenderer) Render(data *models.ChartData) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "iVBORw0KGgo=", nil
}

func query(pipeline models.Pipeline, task models.Task) *models.ClassifiedQuery {
	return &models.ClassifiedQuery{
		Intent:        models.Intent{Pipeline: pipeline, Task: task},
		Entities:      models.Entities{Assets: []string{"AAPL"}, TimeRange: models.DefaultTimeRange()},
		Visualization: models.Visualization{Required: true, Type: models.ChartLine},
	}
}

func newTestDispatcher(exec interfaces.AnalyticsExecutor, ret interfaces.RetrievalService, fc interfaces.ForecastService, opts ...Option) *Dispatcher {
	opts = append(opts, WithMetrics(metrics.New()))
	return NewDispatcher(exec, ret, fc, common.NewSilentLogger(), opts...)
}

func TestDispatchClarificationCallsNothing(t *testing.T) {
	exec, ret, fc := &fakeExecutor{}, &fakeRetrieval{}, &fakeForecast{}
	d := newTestDispatcher(exec, ret, fc)

	q := query(models.PipelineAnalytics, models.TaskTrend)
	q.Confidence = models.Confidence{NeedsClarification: true, ClarificationPrompt: "Which stock?"}

	resp := d.Dispatch(context.Background(), "u1", "how is it doing", q)
	assert.Equal(t, models.PipelineClarification, resp.Pipeline)
	assert.False(t, resp.Success)
	assert.Equal(t, "Which stock?", resp.Text)
	assert.Zero(t, exec.calls+ret.calls+fc.calls)

	q.Confidence.ClarificationPrompt = ""
	resp = d.Dispatch(context.Background(), "u1", "?", q)
	assert.Equal(t, defaultClarification, resp.Text)
}

func TestDispatchAnalyticsSuccess(t *testing.T) {
	exec := &fakeExecutor{result: &models.AnalyticsResult{
		Task:    models.TaskTrend,
		Success: true,
		Data: models.TrendPayload{Trends: []models.TrendResult{
			{Symbol: "AAPL"}, {Symbol: "BTC-USD"},
		}},
		ChartData: &models.ChartData{Type: models.ChartLine},
	}}
	renderer := &fakeRenderer{}
	d := newTestDispatcher(exec, nil, nil, WithRenderer(renderer))

	resp := d.Dispatch(context.Background(), "u1", "trend", query(models.PipelineAnalytics, models.TaskTrend))
	require.True(t, resp.Success)
	assert.Equal(t, models.PipelineAnalytics, resp.Pipeline)
	assert.Equal(t, models.TaskTrend, resp.Task)
	assert.Empty(t, resp.Text)
	assert.Equal(t, exec.result.Data, resp.Data)

	require.NotNil(t, resp.Visualization)
	assert.Equal(t, models.ChartLine, resp.Visualization.Type)
	assert.Equal(t, "iVBORw0KGgo=", resp.Visualization.ImageBase64)

	assert.Equal(t, []models.Source{
		{Name: "EODHD - AAPL", URL: "https://eodhd.com/financial-summary/AAPL.US", Type: models.SourceMarketData},
		{Name: "EODHD - BTC-USD", URL: "https://eodhd.com/financial-summary/BTC-USD.CC", Type: models.SourceMarketData},
	}, resp.Sources)
}

func TestDispatchAnalyticsFailure(t *testing.T) {
	exec := &fakeExecutor{result: models.FailedResult(models.TaskPnL, "No portfolio found. Please add assets first.")}
	d := newTestDispatcher(exec, nil, nil)

	resp := d.Dispatch(context.Background(), "u1", "pnl", query(models.PipelineAnalytics, models.TaskPnL))
	assert.False(t, resp.Success)
	assert.Equal(t, "No portfolio found. Please add assets first.", resp.Text)
	assert.Equal(t, models.EmptyPayload{}, resp.Data)
	assert.Nil(t, resp.Visualization)
	assert.Empty(t, resp.Sources)
}

func TestVisualizationWithoutImage(t *testing.T) {
	tests := []struct {
		name     string
		chart    *models.ChartData
		renderer *fakeRenderer
		calls    int
	}{
		{"none type is not rendered", &models.ChartData{Type: models.ChartNone}, &fakeRenderer{}, 0},
		{"render failure leaves image empty", &models.ChartData{Type: models.ChartTable}, &fakeRenderer{err: fmt.Errorf("unsupported")}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecutor{result: &models.AnalyticsResult{
				Task:      models.TaskPnL,
				Success:   true,
				Data:      models.PnLPayload{},
				ChartData: tt.chart,
			}}
			d := newTestDispatcher(exec, nil, nil, WithRenderer(tt.renderer))

			resp := d.Dispatch(context.Background(), "u1", "q", query(models.PipelineAnalytics, models.TaskPnL))
			require.NotNil(t, resp.Visualization)
			assert.Equal(t, tt.chart.Type, resp.Visualization.Type)
			assert.Empty(t, resp.Visualization.ImageBase64)
			assert.Equal(t, tt.calls, tt.renderer.calls)
		})
	}
}

func TestDispatchRetrievalPassThrough(t *testing.T) {
	ret := &fakeRetrieval{result: &models.RetrievalResult{
		Success: true,
		Text:    "Your notes say hold.",
		Data:    map[string]any{"context_used": 1},
		Sources: []models.Source{{Name: "notes.txt", Type: models.SourceDocument}},
	}}
	d := newTestDispatcher(&fakeExecutor{}, ret, nil)

	resp := d.Dispatch(context.Background(), "u1", "what do my notes say?", query(models.PipelineRetrieval, models.TaskGeneralQuestion))
	assert.True(t, resp.Success)
	assert.Equal(t, models.PipelineRetrieval, resp.Pipeline)
	assert.Equal(t, "Your notes say hold.", resp.Text)
	assert.Equal(t, map[string]any{"context_used": 1}, resp.Data)
	assert.Equal(t, ret.result.Sources, resp.Sources)
	assert.Equal(t, "what do my notes say?", ret.lastQuery)
	assert.Nil(t, resp.Visualization)
}

func TestDispatchForecastAddsSources(t *testing.T) {
	fc := &fakeForecast{result: &models.ForecastResult{
		Success:   true,
		Text:      "AAPL is projected to rise.",
		Metadata:  models.ForecastMetadata{Entity: "AAPL", HorizonDays: 30},
		ChartData: &models.ChartData{Type: models.ChartLine},
	}}
	d := newTestDispatcher(&fakeExecutor{}, nil, fc, WithRenderer(&fakeRenderer{}))

	resp := d.Dispatch(context.Background(), "u1", "forecast AAPL", query(models.PipelineForecasting, models.TaskForecast))
	assert.True(t, resp.Success)
	assert.Equal(t, models.TaskForecast, resp.Task)
	assert.Equal(t, fc.result, resp.Data)
	require.NotNil(t, resp.Visualization)
	assert.NotEmpty(t, resp.Visualization.ImageBase64)
	assert.Equal(t, []models.Source{
		{Name: "EODHD - AAPL", URL: "https://eodhd.com/financial-summary/AAPL.US", Type: models.SourceMarketData},
		{Name: forecast.ModelName, URL: forecast.ModelURL, Type: models.SourceModel},
	}, resp.Sources)
}

func TestDispatchForecastFailureKeepsModelSource(t *testing.T) {
	fc := &fakeForecast{result: &models.ForecastResult{
		Success: false,
		Text:    "Please specify an asset to forecast.",
		Error:   "Please specify an asset to forecast.",
	}}
	d := newTestDispatcher(&fakeExecutor{}, nil, fc)

	resp := d.Dispatch(context.Background(), "u1", "forecast", query(models.PipelineForecasting, models.TaskForecast))
	assert.False(t, resp.Success)
	assert.Equal(t, "Please specify an asset to forecast.", resp.Text)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, models.SourceModel, resp.Sources[0].Type)
}

func TestDispatchUnknownPipeline(t *testing.T) {
	exec := &fakeExecutor{}
	d := newTestDispatcher(exec, nil, nil)

	resp := d.Dispatch(context.Background(), "u1", "q", query(models.Pipeline("sql"), models.TaskTrend))
	assert.False(t, resp.Success)
	assert.Equal(t, models.Pipeline("sql"), resp.Pipeline)
	assert.Equal(t, unknownPipeline, resp.Text)
	assert.Zero(t, exec.calls)
}

func TestDispatchMissingCollaborators(t *testing.T) {
	d := newTestDispatcher(&fakeExecutor{}, nil, nil)

	resp := d.Dispatch(context.Background(), "u1", "q", query(models.PipelineRetrieval, models.TaskGeneralQuestion))
	assert.False(t, resp.Success)
	assert.Equal(t, retrievalUnavailable, resp.Text)

	resp = d.Dispatch(context.Background(), "u1", "q", query(models.PipelineForecasting, models.TaskForecast))
	assert.False(t, resp.Success)
	assert.Equal(t, forecastUnavailable, resp.Text)
}
