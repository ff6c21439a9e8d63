package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path, applies environment
// fallbacks for secrets, and returns a validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies environment
// fallbacks, and validates the result. Useful in tests where configs
// are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyEnv(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv fills secret fields from the environment when the YAML left
// them empty, so keys can stay out of config files.
func applyEnv(cfg *Config) {
	fallback(&cfg.Providers.Gemini.APIKey, "GEMINI_API_KEY")
	fallback(&cfg.Providers.Deepgram.APIKey, "DEEPGRAM_API_KEY")
	fallback(&cfg.Providers.Murf.APIKey, "MURF_API_KEY")
	fallback(&cfg.Auth.APIKey, "AIUSH_AUTH_API_KEY")
	fallback(&cfg.History.PostgresDSN, "AIUSH_POSTGRES_DSN")
}

func fallback(dst *string, env string) {
	if *dst == "" {
		*dst = os.Getenv(env)
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	if cfg.Providers.Gemini.APIKey == "" {
		errs = append(errs, errors.New("providers.gemini.api_key is required (or set GEMINI_API_KEY)"))
	}
	if cfg.Providers.Deepgram.APIKey == "" {
		slog.Warn("providers.deepgram.api_key is empty; the voice endpoint will be unavailable")
	}
	if cfg.Providers.Murf.APIKey == "" {
		slog.Warn("providers.murf.api_key is empty; the tts endpoint will be unavailable")
	}

	if cfg.Auth.APIKey == "" && len(cfg.Auth.DevTokens) == 0 {
		errs = append(errs, errors.New("auth requires api_key (or AIUSH_AUTH_API_KEY) or dev_tokens"))
	}
	if len(cfg.Auth.DevTokens) > 0 {
		slog.Warn("auth.dev_tokens is set; static tokens must never be used in production")
	}

	if cfg.History.PostgresDSN == "" {
		errs = append(errs, errors.New("history.postgres_dsn is required (or set AIUSH_POSTGRES_DSN)"))
	}
	if cfg.History.MaxInflightWrites < 0 {
		errs = append(errs, fmt.Errorf("history.max_inflight_writes %d must not be negative", cfg.History.MaxInflightWrites))
	}

	for name, entry := range map[string]ProviderEntry{
		"gemini":   cfg.Providers.Gemini,
		"deepgram": cfg.Providers.Deepgram,
		"murf":     cfg.Providers.Murf,
	} {
		if entry.TimeoutSeconds < 0 {
			errs = append(errs, fmt.Errorf("providers.%s.timeout_seconds %d must not be negative", name, entry.TimeoutSeconds))
		}
	}

	return errors.Join(errs...)
}
