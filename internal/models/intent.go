// Package models defines data structures for the copilot
package models

import (
	"strconv"
	"time"
)

// Pipeline selects which execution path handles a classified query.
type Pipeline string

const (
	PipelineAnalytics     Pipeline = "analytics"
	PipelineRetrieval     Pipeline = "retrieval"
	PipelineClarification Pipeline = "clarification"
	PipelineForecasting   Pipeline = "forecasting"
)

// ParsePipeline maps a classifier label onto a Pipeline. "rag" is accepted as
// an alias for retrieval. Unknown labels are returned as-is so the dispatcher
// can reject them.
func ParsePipeline(s string) Pipeline {
	switch s {
	case "rag":
		return PipelineRetrieval
	case "":
		return PipelineAnalytics
	}
	return Pipeline(s)
}

// Task identifies the computation requested within a pipeline.
type Task string

const (
	TaskTrend           Task = "trend"
	TaskRank            Task = "rank"
	TaskChange          Task = "change"
	TaskComparison      Task = "comparison"
	TaskPnL             Task = "pnl"
	TaskVolatility      Task = "volatility"
	TaskDrawdown        Task = "drawdown"
	TaskAllocation      Task = "allocation"
	TaskGeneralQuestion Task = "general_question"
	TaskForecast        Task = "forecast"
)

// AnalyticsTasks lists every task the analytics executor recognises.
var AnalyticsTasks = []Task{
	TaskTrend, TaskChange, TaskRank, TaskPnL,
	TaskComparison, TaskVolatility, TaskDrawdown, TaskAllocation,
}

// RequiresPortfolio reports whether the task only makes sense over owned positions.
func (t Task) RequiresPortfolio() bool {
	return t == TaskPnL || t == TaskAllocation || t == TaskRank
}

// AllAssets is the sentinel asset meaning "every holding".
const AllAssets = "__ALL__"

// Intent pairs a pipeline with a task.
type Intent struct {
	Pipeline Pipeline `json:"pipeline"`
	Task     Task     `json:"task"`
}

// TimeRange modes and units
const (
	RangeRelative = "relative"
	RangeAbsolute = "absolute"

	UnitDays   = "days"
	UnitWeeks  = "weeks"
	UnitMonths = "months"
	UnitYears  = "years"
)

// TimeRange is either N units back from now or an explicit date window.
type TimeRange struct {
	Mode      string `json:"type"`
	Value     int    `json:"value,omitempty"`
	Unit      string `json:"unit,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// DefaultTimeRange is one month back from now.
func DefaultTimeRange() TimeRange {
	return TimeRange{Mode: RangeRelative, Value: 1, Unit: UnitMonths}
}

// Normalize fills in defaults for missing or invalid fields.
func (tr *TimeRange) Normalize() {
	if tr.Mode != RangeRelative && tr.Mode != RangeAbsolute {
		tr.Mode = RangeRelative
	}
	if tr.Value <= 0 {
		tr.Value = 1
	}
	switch tr.Unit {
	case UnitDays, UnitWeeks, UnitMonths, UnitYears:
	default:
		tr.Unit = UnitMonths
	}
}

// Window resolves the range into concrete from/to dates relative to now.
// An absolute range with unparsable dates falls back to the relative window.
func (tr TimeRange) Window(now time.Time) (time.Time, time.Time) {
	if tr.Mode == RangeAbsolute {
		from, errFrom := time.Parse("2006-01-02", tr.StartDate)
		to, errTo := time.Parse("2006-01-02", tr.EndDate)
		if errFrom == nil && errTo == nil && !to.Before(from) {
			return from, to
		}
		if errFrom == nil && tr.EndDate == "" {
			return from, now
		}
	}

	value := tr.Value
	if value <= 0 {
		value = 1
	}
	switch tr.Unit {
	case UnitDays:
		return now.AddDate(0, 0, -value), now
	case UnitWeeks:
		return now.AddDate(0, 0, -7*value), now
	case UnitYears:
		return now.AddDate(-value, 0, 0), now
	default:
		return now.AddDate(0, -value, 0), now
	}
}

// Days returns the length of the resolved window in whole days.
func (tr TimeRange) Days(now time.Time) int {
	from, to := tr.Window(now)
	return int(to.Sub(from).Hours() / 24)
}

// Label renders the range for display, e.g. "3 months" or "2024-01-01 to 2024-06-30".
func (tr TimeRange) Label() string {
	if tr.Mode == RangeAbsolute && tr.StartDate != "" {
		end := tr.EndDate
		if end == "" {
			end = "today"
		}
		return tr.StartDate + " to " + end
	}
	value := tr.Value
	if value <= 0 {
		value = 1
	}
	unit := tr.Unit
	if unit == "" {
		unit = UnitMonths
	}
	if value == 1 {
		unit = unit[:len(unit)-1]
	}
	return strconv.Itoa(value) + " " + unit
}

// Entities are the things a query refers to.
type Entities struct {
	Assets    []string  `json:"assets"`
	Metrics   []string  `json:"metrics"`
	TimeRange TimeRange `json:"time_range"`
	Reference string    `json:"reference,omitempty"`
}

// HasAllAssets reports whether the asset list contains the "every holding" sentinel.
func (e Entities) HasAllAssets() bool {
	for _, a := range e.Assets {
		if a == AllAssets {
			return true
		}
	}
	return false
}

// Operations tune how a task is computed.
type Operations struct {
	AnalysisType string `json:"analysis_type"`
	Direction    string `json:"direction,omitempty"`
	RankN        int    `json:"rank_n,omitempty"`
	Aggregation  string `json:"aggregation,omitempty"`
}

// Visualization chart types
const (
	ChartLine  = "line_chart"
	ChartBar   = "bar_chart"
	ChartTable = "table"
	ChartPie   = "pie_chart"
	ChartNone  = "none"
)

// Visualization describes the chart the caller would like to see.
type Visualization struct {
	Required bool   `json:"required"`
	Type     string `json:"type"`
}

// Confidence carries the classifier's request for more input, if any.
type Confidence struct {
	NeedsClarification  bool     `json:"needs_clarification"`
	MissingFields       []string `json:"missing_fields"`
	ClarificationPrompt string   `json:"clarification_prompt,omitempty"`
}

// ClassifiedQuery is the structured intent produced for a user query.
type ClassifiedQuery struct {
	Intent        Intent        `json:"intent"`
	Entities      Entities      `json:"entities"`
	Operations    Operations    `json:"operations"`
	Visualization Visualization `json:"visualization"`
	Confidence    Confidence    `json:"confidence"`
}

// NewClarification returns a query that asks the user to rephrase.
func NewClarification(prompt string) *ClassifiedQuery {
	return &ClassifiedQuery{
		Intent: Intent{Pipeline: PipelineClarification, Task: TaskGeneralQuestion},
		Entities: Entities{
			Assets:    []string{},
			Metrics:   []string{},
			TimeRange: DefaultTimeRange(),
		},
		Visualization: Visualization{Type: ChartNone},
		Confidence: Confidence{
			NeedsClarification:  true,
			MissingFields:       []string{},
			ClarificationPrompt: prompt,
		},
	}
}

// Clone returns a deep copy so validation and reference resolution never mutate the caller's value.
func (q *ClassifiedQuery) Clone() *ClassifiedQuery {
	if q == nil {
		return nil
	}
	c := *q
	c.Entities.Assets = append([]string(nil), q.Entities.Assets...)
	c.Entities.Metrics = append([]string(nil), q.Entities.Metrics...)
	c.Confidence.MissingFields = append([]string(nil), q.Confidence.MissingFields...)
	return &c
}
