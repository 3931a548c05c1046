package cli

import (
	"fmt"

	"github.com/attune-oss/attune/internal/chat"
	"github.com/attune-oss/attune/internal/config"
	"github.com/attune-oss/attune/internal/embedder"
	attuneErrors "github.com/attune-oss/attune/internal/errors"
	"github.com/attune-oss/attune/internal/memory"
	"github.com/attune-oss/attune/internal/provider"
	"github.com/attune-oss/attune/internal/provider/anthropic"
	"github.com/attune-oss/attune/internal/store"
	"github.com/attune-oss/attune/internal/telemetry"
)

// runtime bundles the wired application services for the CLI commands.
type runtime struct {
	cfg     *config.Config
	logger  *telemetry.Logger
	metrics *telemetry.Metrics
	store   *store.Store
	memory  *memory.Manager
	orch    *chat.Orchestrator

	memStore memory.Store
}

func (rt *runtime) close() {
	if rt.memStore != nil {
		rt.memStore.Close()
	}
	if rt.store != nil {
		rt.store.Close()
	}
	if rt.logger != nil {
		rt.logger.Close()
	}
}

// buildRuntime loads config from the working directory and wires every
// service the server needs. Callers must close() the result.
func buildRuntime() (*runtime, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := buildLogger(cfg)

	metrics := telemetry.NewMetrics()
	if cfg.Metrics.Enabled {
		exporter, err := telemetry.NewJSONFileExporter(cfg.Metrics.Path)
		if err != nil {
			logger.Warn("metrics exporter disabled", "error", err)
		} else {
			metrics.SetExporter(exporter)
		}
	}

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	rt := &runtime{cfg: cfg, logger: logger, metrics: metrics, store: st}

	p, err := buildProvider(cfg)
	if err != nil {
		rt.close()
		return nil, err
	}

	emb, err := buildEmbedder(cfg)
	if err != nil {
		rt.close()
		return nil, err
	}

	memStore, err := buildMemoryStore(cfg)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.memStore = memStore

	categories := make([]memory.Category, 0, len(cfg.Memory.PersistentCategories))
	for _, c := range cfg.Memory.PersistentCategories {
		categories = append(categories, memory.Category(c))
	}

	classifier := memory.NewClassifier(p, cfg.Provider.Model)
	rt.memory = memory.NewManager(memStore, emb, classifier, logger, metrics, memory.ManagerConfig{
		PersistentCategories: categories,
		TopK:                 cfg.Memory.TopK,
		CaptureRate:          cfg.Memory.CaptureRate,
	})

	heartbeat, err := cfg.Server.ParsedHeartbeat()
	if err != nil {
		rt.close()
		return nil, err
	}

	rt.orch = chat.NewOrchestrator(st, p, rt.memory, logger, metrics, chat.Options{
		Model:         cfg.Provider.Model,
		MaxTokens:     cfg.Provider.MaxTokens,
		Temperature:   cfg.Provider.Temperature,
		Heartbeat:     heartbeat,
		CaptureWindow: cfg.Memory.CaptureWindow,
	})

	return rt, nil
}

func buildLogger(cfg *config.Config) *telemetry.Logger {
	logger := telemetry.New(cfg.Logging.Level, cfg.Logging.Format)
	if verbose {
		logger = telemetry.NewLogger(true)
	}
	if cfg.Logging.File != "" {
		if err := logger.WithFile(cfg.Logging.File); err != nil {
			logger.Warn("log file disabled", "path", cfg.Logging.File, "error", err)
		}
	}
	return logger
}

func buildProvider(cfg *config.Config) (provider.Provider, error) {
	switch cfg.Provider.Name {
	case "anthropic", "":
		p := anthropic.NewClient(cfg.Provider.APIKey, cfg.Provider.Model)
		retryCfg := provider.DefaultRetryConfig()
		if cfg.Defaults.MaxRetries > 0 {
			retryCfg.MaxRetries = cfg.Defaults.MaxRetries
		}
		return provider.NewRetryProvider(p, retryCfg), nil
	default:
		return nil, attuneErrors.New(attuneErrors.CodeConfigInvalid,
			"provider not available outside tests: "+cfg.Provider.Name).
			WithSuggestion("Set provider.name to \"anthropic\" in attune.yaml")
	}
}

func buildEmbedder(cfg *config.Config) (embedder.Embedder, error) {
	switch cfg.Embedder.Provider {
	case "openai", "":
		client := embedder.NewOpenAIClient(cfg.Embedder.APIKey, cfg.Embedder.Model, cfg.Embedder.Dimensions)
		return embedder.NewCachingEmbedder(client, cfg.Embedder.CacheSize)
	default:
		return nil, attuneErrors.New(attuneErrors.CodeConfigInvalid,
			"embedder not available outside tests: "+cfg.Embedder.Provider).
			WithSuggestion("Set embedder.provider to \"openai\" in attune.yaml")
	}
}

func buildMemoryStore(cfg *config.Config) (memory.Store, error) {
	switch cfg.Memory.Driver {
	case "chromem":
		return memory.NewChromemStore(), nil
	default: // sqlite
		return memory.NewSQLiteStore(cfg.Memory.Path)
	}
}
