// Command aiush-gateway is the main entry point for the Aiush health
// assistant gateway.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/aiushlabs/aiush-gateway/internal/auth"
	"github.com/aiushlabs/aiush-gateway/internal/config"
	"github.com/aiushlabs/aiush-gateway/internal/health"
	"github.com/aiushlabs/aiush-gateway/internal/history"
	"github.com/aiushlabs/aiush-gateway/internal/observe"
	"github.com/aiushlabs/aiush-gateway/internal/server"
	"github.com/aiushlabs/aiush-gateway/internal/turn"
	"github.com/aiushlabs/aiush-gateway/pkg/provider"
	"github.com/aiushlabs/aiush-gateway/pkg/provider/llm/gemini"
	"github.com/aiushlabs/aiush-gateway/pkg/provider/stt"
	"github.com/aiushlabs/aiush-gateway/pkg/provider/stt/deepgram"
	"github.com/aiushlabs/aiush-gateway/pkg/provider/tts"
	"github.com/aiushlabs/aiush-gateway/pkg/provider/tts/murf"
)

// disabledTranscriber stands in when no Deepgram key is configured.
type disabledTranscriber struct{}

func (disabledTranscriber) Transcribe(context.Context, []byte) (string, error) {
	return "", fmt.Errorf("deepgram: not configured: %w", provider.ErrUnavailable)
}

// disabledSynthesizer stands in when no Murf key is configured.
type disabledSynthesizer struct{}

func (disabledSynthesizer) Synthesize(context.Context, string) (string, error) {
	return "", fmt.Errorf("murf: not configured: %w", provider.ErrUnavailable)
}

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "aiush-gateway: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "aiush-gateway: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("aiush-gateway starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return 1
	}

	// ── Upstream providers ────────────────────────────────────────────────────
	generator, err := gemini.New(ctx, cfg.Providers.Gemini.APIKey, geminiOptions(cfg.Providers.Gemini)...)
	if err != nil {
		slog.Error("failed to create LLM provider", "err", err)
		return 1
	}

	// Voice and TTS are optional: with no key configured the endpoint
	// answers 502 instead of failing startup.
	var transcriber stt.Transcriber = disabledTranscriber{}
	if cfg.Providers.Deepgram.APIKey != "" {
		transcriber, err = deepgram.New(cfg.Providers.Deepgram.APIKey, deepgramOptions(cfg.Providers.Deepgram)...)
		if err != nil {
			slog.Error("failed to create STT provider", "err", err)
			return 1
		}
	}

	var synthesizer tts.Synthesizer = disabledSynthesizer{}
	if cfg.Providers.Murf.APIKey != "" {
		synthesizer, err = murf.New(cfg.Providers.Murf.APIKey, murfOptions(cfg.Providers.Murf)...)
		if err != nil {
			slog.Error("failed to create TTS provider", "err", err)
			return 1
		}
	}

	// ── Credential verifier ───────────────────────────────────────────────────
	verifier, err := buildVerifier(cfg.Auth)
	if err != nil {
		slog.Error("failed to create credential verifier", "err", err)
		return 1
	}

	// ── History store + background sink ───────────────────────────────────────
	store, err := history.NewStore(ctx, cfg.History.PostgresDSN)
	if err != nil {
		slog.Error("failed to connect to history store", "err", err)
		return 1
	}
	defer store.Close()

	sink := history.NewSink(store, sinkOptions(ctx, cfg.History, metrics)...)

	// ── Orchestrator + HTTP server ────────────────────────────────────────────
	orch := turn.New(generator, transcriber, synthesizer, sink, metrics)

	srv := server.New(orch, verifier, store, metrics, health.Checker{
		Name:  "postgres",
		Check: store.Ping,
	})

	slog.Info("server ready — press Ctrl+C to shut down")

	var certFile, keyFile string
	if cfg.Server.TLS != nil {
		certFile, keyFile = cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile
	}
	if err := srv.ListenAndServe(ctx, cfg.Server.ListenAddr, certFile, keyFile); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}

	// Let in-flight history writes land before closing the pool.
	sink.Drain()

	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

func geminiOptions(entry config.ProviderEntry) []gemini.Option {
	var opts []gemini.Option
	if entry.Model != "" {
		opts = append(opts, gemini.WithModel(entry.Model))
	}
	if entry.BaseURL != "" {
		opts = append(opts, gemini.WithBaseURL(entry.BaseURL))
	}
	if entry.TimeoutSeconds > 0 {
		opts = append(opts, gemini.WithTimeout(time.Duration(entry.TimeoutSeconds)*time.Second))
	}
	return opts
}

func deepgramOptions(entry config.ProviderEntry) []deepgram.Option {
	var opts []deepgram.Option
	if entry.Model != "" {
		opts = append(opts, deepgram.WithModel(entry.Model))
	}
	if entry.BaseURL != "" {
		opts = append(opts, deepgram.WithBaseURL(entry.BaseURL))
	}
	if entry.TimeoutSeconds > 0 {
		opts = append(opts, deepgram.WithTimeout(time.Duration(entry.TimeoutSeconds)*time.Second))
	}
	return opts
}

func murfOptions(entry config.ProviderEntry) []murf.Option {
	var opts []murf.Option
	if entry.VoiceID != "" {
		opts = append(opts, murf.WithVoiceID(entry.VoiceID))
	}
	if entry.BaseURL != "" {
		opts = append(opts, murf.WithBaseURL(entry.BaseURL))
	}
	if entry.TimeoutSeconds > 0 {
		opts = append(opts, murf.WithTimeout(time.Duration(entry.TimeoutSeconds)*time.Second))
	}
	return opts
}

func buildVerifier(cfg config.AuthConfig) (auth.Verifier, error) {
	if len(cfg.DevTokens) > 0 {
		slog.Warn("using static dev tokens for credential verification")
		return &auth.StaticVerifier{Tokens: cfg.DevTokens}, nil
	}

	var opts []auth.TokenVerifierOption
	if cfg.Endpoint != "" {
		opts = append(opts, auth.WithEndpoint(cfg.Endpoint))
	}
	return auth.NewTokenVerifier(cfg.APIKey, opts...)
}

func sinkOptions(ctx context.Context, cfg config.HistoryConfig, m *observe.Metrics) []history.SinkOption {
	opts := []history.SinkOption{
		history.WithResultObserver(func(err error) {
			status := "ok"
			switch {
			case errors.Is(err, history.ErrDropped):
				status = "dropped"
			case err != nil:
				status = "error"
			}
			m.HistoryWrites.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
		}),
	}
	if cfg.MaxInflightWrites > 0 {
		opts = append(opts, history.WithMaxInflight(int64(cfg.MaxInflightWrites)))
	}
	if cfg.WriteTimeoutSeconds > 0 {
		opts = append(opts, history.WithWriteTimeout(time.Duration(cfg.WriteTimeoutSeconds)*time.Second))
	}
	return opts
}

// ── Logger ────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var l slog.Level
	switch level {
	case config.LogDebug:
		l = slog.LevelDebug
	case config.LogWarn:
		l = slog.LevelWarn
	case config.LogError:
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
