// Package server wires the banking database, conversation history, speech
// providers and agent together and serves them over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/finvox/finvox-go/internal/config"
	"github.com/finvox/finvox-go/internal/history"
	"github.com/finvox/finvox-go/internal/session"
	"github.com/finvox/finvox-go/pkg/agent"
	"github.com/finvox/finvox-go/pkg/ai/llm"
	"github.com/finvox/finvox-go/pkg/ai/stt"
	"github.com/finvox/finvox-go/pkg/ai/tts"
	"github.com/finvox/finvox-go/pkg/bank"
	"github.com/finvox/finvox-go/pkg/plugin"
	"github.com/finvox/finvox-go/pkg/speech"
	"github.com/finvox/finvox-go/pkg/tools"
	"github.com/finvox/finvox-go/prompts"
)

// SchemeCacheSize bounds the per-bank scheme cache.
const SchemeCacheSize = 32

// App is the shared server state. Every websocket session uses the same
// providers, agent and stores.
type App struct {
	Config  *config.Config
	Bank    *bank.Store
	History history.Store
	STT     stt.STT
	TTS     tts.TTS
	LLM     llm.LLM
	Tools   *tools.Registry
	Agent   *agent.Agent

	Registry *prometheus.Registry
	Metrics  *session.Metrics

	logger   *slog.Logger
	sessions *session.Config
	closers  []func() error
}

// NewApp opens every dependency described by cfg. On error, whatever was
// already opened is closed.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, logger: logger}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	app.Bank, err = bank.Open(cfg.Bank.Path, bank.Options{
		Logger:          logger.With(slog.String("component", "bank")),
		SchemeCacheSize: SchemeCacheSize,
		SchemeCacheTTL:  cfg.Bank.SchemeCacheTTL,
	})
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, app.Bank.Close)
	logger.Info("Opened banking database", slog.String("path", cfg.Bank.Path))

	app.History, err = history.Open(ctx, cfg.History.DSN, logger.With(slog.String("component", "history")))
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, app.History.Close)
	if err = app.History.Init(ctx); err != nil {
		return nil, fmt.Errorf("init history: %w", err)
	}

	if err = app.buildProviders(); err != nil {
		return nil, err
	}

	systemPrompt, err := prompts.SystemPrompt(cfg.Agent.SystemPromptPath)
	if err != nil {
		return nil, err
	}

	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.Metrics = session.NewMetrics(app.Registry)

	toolLogger := logger.With(slog.String("component", "tools"))
	app.Tools, err = tools.NewRegistry(toolLogger, tools.Banking(app.Bank, toolLogger)...)
	if err != nil {
		return nil, err
	}

	app.Agent, err = agent.New(agent.Config{
		LLM:           app.LLM,
		Tools:         app.Tools,
		SystemPrompt:  systemPrompt,
		Model:         cfg.Providers.LLM.Model,
		MaxToolRounds: cfg.Agent.MaxToolRounds,
		Temperature:   cfg.Agent.Temperature,
		MaxTokens:     cfg.Agent.MaxTokens,
		Logger:        logger.With(slog.String("component", "agent")),
		OnToolCall:    app.Metrics.ObserveTool,
	})
	if err != nil {
		return nil, err
	}

	app.sessions = &session.Config{
		STT:     app.STT,
		Agent:   app.Agent,
		History: app.History,
		Speech: speech.Config{
			TTS:             app.TTS,
			Voice:           cfg.Providers.TTS.Voice,
			Language:        cfg.Providers.TTS.Language,
			Format:          cfg.Providers.TTS.Format,
			Speed:           float32(cfg.Speech.Speed),
			BufferSize:      cfg.Speech.BufferSize,
			SentenceEndings: cfg.Speech.SentenceEndings,
			ChunkSize:       cfg.Speech.ChunkSize,
		},
		InputFormat:   cfg.Server.InputFormat,
		AudioFilename: cfg.Speech.AudioFilename,
		Language:      cfg.Providers.STT.Language,
		HistoryLimit:  cfg.Agent.HistoryLimit,
		GreetingName:  cfg.Agent.GreetingName,
		Metrics:       app.Metrics,
		Logger:        logger.With(slog.String("component", "session")),
	}

	logger.Info("App ready",
		slog.String("stt", cfg.Providers.STT.Plugin),
		slog.String("llm", cfg.Providers.LLM.Plugin),
		slog.String("tts", cfg.Providers.TTS.Plugin),
		slog.Any("tools", app.Tools.Names()))
	return app, nil
}

func (a *App) buildProviders() error {
	p := a.Config.Providers
	var err error

	if a.STT, err = plugin.Build[stt.STT](plugin.KindSTT, p.STT.Plugin, a.Config.PluginConfig(p.STT)); err != nil {
		return err
	}
	if a.LLM, err = plugin.Build[llm.LLM](plugin.KindLLM, p.LLM.Plugin, a.Config.PluginConfig(p.LLM)); err != nil {
		return err
	}
	if a.TTS, err = plugin.Build[tts.TTS](plugin.KindTTS, p.TTS.Plugin, a.Config.PluginConfig(p.TTS)); err != nil {
		return err
	}
	return nil
}

// Close releases dependencies in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
