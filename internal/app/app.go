// Package app wires the copilot's clients, storage and services.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/copilot/internal/clients/eodhd"
	"github.com/bobmcallan/copilot/internal/clients/gemini"
	"github.com/bobmcallan/copilot/internal/common"
	"github.com/bobmcallan/copilot/internal/interfaces"
	"github.com/bobmcallan/copilot/internal/metrics"
	"github.com/bobmcallan/copilot/internal/services/analytics"
	"github.com/bobmcallan/copilot/internal/services/chart"
	"github.com/bobmcallan/copilot/internal/services/chat"
	"github.com/bobmcallan/copilot/internal/services/conversation"
	"github.com/bobmcallan/copilot/internal/services/dispatch"
	"github.com/bobmcallan/copilot/internal/services/documents"
	"github.com/bobmcallan/copilot/internal/services/export"
	"github.com/bobmcallan/copilot/internal/services/forecast"
	"github.com/bobmcallan/copilot/internal/services/intent"
	"github.com/bobmcallan/copilot/internal/services/market"
	"github.com/bobmcallan/copilot/internal/services/retrieval"
	"github.com/bobmcallan/copilot/internal/storage"
	"github.com/bobmcallan/copilot/internal/storage/pricecache"
)

// Chart image size in pixels
const (
	chartWidth  = 800
	chartHeight = 400
)

// App holds all initialized clients, storage and services.
type App struct {
	Config  *common.Config
	Logger  *common.Logger
	Metrics *metrics.Recorder
	Storage interfaces.StorageManager

	PriceCache   interfaces.PriceCache
	MarketClient interfaces.MarketDataClient
	// LLM is nil when no Gemini key is configured
	LLM interfaces.LLMClient

	MarketService   interfaces.MarketService
	Classifier      interfaces.Classifier
	Analytics       interfaces.AnalyticsExecutor
	Retrieval       interfaces.RetrievalService
	Forecast        interfaces.ForecastService
	Dispatcher      interfaces.Dispatcher
	Explainer       interfaces.Explainer
	Conversations   *conversation.Manager
	ChatService     interfaces.ChatService
	DocumentService interfaces.DocumentService
	Exporter        interfaces.Exporter

	StartupTime time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp loads configuration, connects storage and builds every service.
// configPath may be empty, in which case COPILOT_CONFIG, the binary
// directory and config/copilot.toml are tried in turn.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	common.LoadVersionFromFile()
	binDir := getBinaryDir()

	if configPath == "" {
		configPath = os.Getenv("COPILOT_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "copilot.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/copilot.toml"
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(binDir, config.Logging.FilePath)
	}

	logger := common.NewLoggerFromConfig(config.Logging)
	for _, missing := range config.ValidateRequired() {
		logger.Warn().Str("setting", missing).Msg("Required setting not configured")
	}

	storageManager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	cache := pricecache.New(config.Cache, logger)

	a := Build(config, logger, storageManager, cache, nil, nil)
	a.StartupTime = startupStart

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")
	return a, nil
}

// Build wires services over already-open storage. A nil client is replaced
// by one built from config; the LLM is only built when a Gemini key resolves.
func Build(config *common.Config, logger *common.Logger, stores interfaces.StorageManager, cache interfaces.PriceCache, client interfaces.MarketDataClient, llm interfaces.LLMClient) *App {
	ctx := context.Background()
	recorder := metrics.New()

	if client == nil {
		client = newMarketClient(config, logger)
	}
	if llm == nil {
		llm = newLLM(ctx, config, logger)
	}

	holdings := stores.HoldingStore()

	marketService := market.NewService(client, cache, logger,
		market.WithMaxConcurrency(config.Clients.EODHD.MaxConcurrency),
		market.WithTTL(config.Cache.GetSeriesTTL(), config.Cache.GetPriceTTL()),
		market.WithMetrics(recorder),
	)
	classifier := intent.NewClassifier(llm, logger, recorder)
	executor := analytics.NewExecutor(holdings, marketService, logger,
		analytics.WithDefaultRankN(config.Analytics.DefaultRankN),
	)
	retrievalService := retrieval.NewService(holdings, stores.DocumentStore(), llm, logger, recorder)
	forecastService := forecast.NewService(holdings, marketService, logger,
		forecast.WithDefaultHorizon(config.Analytics.ForecastHorizon),
	)

	dispatchOpts := []dispatch.Option{dispatch.WithMetrics(recorder)}
	if config.Analytics.RenderChartImage {
		dispatchOpts = append(dispatchOpts, dispatch.WithRenderer(chart.NewRenderer(chartWidth, chartHeight)))
	}
	dispatcher := dispatch.NewDispatcher(executor, retrievalService, forecastService, logger, dispatchOpts...)

	explainer := chat.NewExplainer(llm, logger, recorder)
	conversations := conversation.NewManager(stores.ConversationStore(), logger)
	chatService := chat.NewService(holdings, conversations, conversations, classifier, dispatcher, explainer, logger)

	return &App{
		Config:          config,
		Logger:          logger,
		Metrics:         recorder,
		Storage:         stores,
		PriceCache:      cache,
		MarketClient:    client,
		LLM:             llm,
		MarketService:   marketService,
		Classifier:      classifier,
		Analytics:       executor,
		Retrieval:       retrievalService,
		Forecast:        forecastService,
		Dispatcher:      dispatcher,
		Explainer:       explainer,
		Conversations:   conversations,
		ChatService:     chatService,
		DocumentService: documents.NewService(stores.DocumentStore(), logger),
		Exporter:        export.NewService(llm, logger, recorder),
		StartupTime:     time.Now(),
	}
}

func newMarketClient(config *common.Config, logger *common.Logger) interfaces.MarketDataClient {
	key, err := common.ResolveAPIKey("eodhd_api_key", config.Clients.EODHD.APIKey)
	if err != nil {
		logger.Warn().Msg("EODHD API key not configured - market data requests will fail")
	}
	opts := []eodhd.ClientOption{
		eodhd.WithLogger(logger),
		eodhd.WithRateLimit(config.Clients.EODHD.RateLimit),
		eodhd.WithTimeout(config.Clients.EODHD.GetTimeout()),
	}
	if config.Clients.EODHD.BaseURL != "" {
		opts = append(opts, eodhd.WithBaseURL(config.Clients.EODHD.BaseURL))
	}
	return eodhd.NewClient(key, opts...)
}

// newLLM returns a nil interface, not a typed nil, when Gemini is unavailable.
func newLLM(ctx context.Context, config *common.Config, logger *common.Logger) interfaces.LLMClient {
	key, err := common.ResolveAPIKey("gemini_api_key", config.Clients.Gemini.APIKey)
	if err != nil {
		logger.Warn().Msg("Gemini API key not configured - classification and explanations will be unavailable")
		return nil
	}
	client, err := gemini.NewClient(ctx, key,
		gemini.WithLogger(logger),
		gemini.WithModel(config.Clients.Gemini.Model),
	)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize Gemini client")
		return nil
	}
	return client
}

// Close releases all resources held by the App.
func (a *App) Close() {
	if a.PriceCache != nil {
		if err := a.PriceCache.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close price cache")
		}
		a.PriceCache = nil
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
		a.Storage = nil
	}
}
