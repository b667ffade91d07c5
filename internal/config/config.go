package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/eugenenazirov/envyaml"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
)

// Config aggregates runtime settings of the HTTP server.
// Precedence: CLI flags > Environment variables > YAML settings file > Defaults
type Config struct {
	Port                 string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	CORSOrigin           string
	RateLimitRPS         float64
	RateLimitBurst       int
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	CORSOrigin     *string
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// Load resolves the server settings. The settings file is itself read with
// envyaml, so it may refer to environment variables. Dotenv files belong to
// the served configuration and are not consulted here.
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	if overrides != nil && overrides.ConfigFile != "" {
		settings, err := envyaml.Load(
			envyaml.WithYAMLFile(overrides.ConfigFile),
			envyaml.WithoutEnvFile(),
		)
		if err != nil {
			return Config{}, fmt.Errorf("load settings file: %w", err)
		}
		if err := applyFileConfig(&cfg, settings); err != nil {
			return Config{}, fmt.Errorf("settings file %s: %w", overrides.ConfigFile, err)
		}
	}

	applyEnvConfig(&cfg)

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
	}
}

// applyFileConfig copies the known keys of settings into cfg. Missing keys
// keep their current value.
func applyFileConfig(cfg *Config, settings *envyaml.Config) error {
	if v, ok := lookup(settings, "port"); ok {
		cfg.Port = strings.TrimSpace(fmt.Sprint(v))
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"shutdown_grace_period", &cfg.ShutdownGracePeriod},
		{"read_header_timeout", &cfg.ReadHeaderTimeout},
		{"write_timeout", &cfg.WriteTimeout},
		{"idle_timeout", &cfg.IdleTimeout},
	}
	for _, d := range durations {
		v, ok := lookup(settings, d.key)
		if !ok {
			continue
		}
		parsed, err := toDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if v, ok := lookup(settings, "enable_request_logging"); ok {
		enabled, err := toBool(v)
		if err != nil {
			return fmt.Errorf("enable_request_logging: %w", err)
		}
		cfg.EnableRequestLogging = enabled
	}

	if v, ok := lookup(settings, "cors_origin"); ok {
		cfg.CORSOrigin = strings.TrimSpace(fmt.Sprint(v))
	}

	if v, ok := lookup(settings, "rate_limit.rps"); ok {
		rps, err := toFloat(v)
		if err != nil {
			return fmt.Errorf("rate_limit.rps: %w", err)
		}
		cfg.RateLimitRPS = rps
	}

	if v, ok := lookup(settings, "rate_limit.burst"); ok {
		burst, err := toInt(v)
		if err != nil {
			return fmt.Errorf("rate_limit.burst: %w", err)
		}
		cfg.RateLimitBurst = burst
	}

	return nil
}

// lookup treats a key holding null the same as an absent key.
func lookup(settings *envyaml.Config, key string) (any, bool) {
	v, err := settings.Lookup(key)
	if err != nil || v == nil {
		return nil, false
	}
	return v, true
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Port = port
	}

	if origin := strings.TrimSpace(os.Getenv("CORS_ORIGIN")); origin != "" {
		cfg.CORSOrigin = origin
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.CORSOrigin != nil && *overrides.CORSOrigin != "" {
		cfg.CORSOrigin = *overrides.CORSOrigin
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.Port == "" {
		return errors.New("port must not be empty")
	}
	if cfg.RateLimitRPS < 0 {
		return errors.New("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return errors.New("RATE_LIMIT_BURST must be >= 0")
	}
	if cfg.ShutdownGracePeriod < 0 {
		return errors.New("shutdown grace period must be >= 0")
	}
	return nil
}

// toDuration accepts Go duration strings ("15s") and plain numbers of seconds.
func toDuration(v any) (time.Duration, error) {
	switch typed := v.(type) {
	case string:
		d, err := time.ParseDuration(strings.TrimSpace(typed))
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", typed)
		}
		return d, nil
	case int:
		return time.Duration(typed) * time.Second, nil
	case float64:
		return time.Duration(typed * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("invalid duration %v", v)
	}
}

func toBool(v any) (bool, error) {
	switch typed := v.(type) {
	case bool:
		return typed, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(typed))
		if err != nil {
			return false, fmt.Errorf("invalid boolean %q", typed)
		}
		return b, nil
	default:
		return false, fmt.Errorf("invalid boolean %v", v)
	}
}

func toFloat(v any) (float64, error) {
	switch typed := v.(type) {
	case int:
		return float64(typed), nil
	case float64:
		return typed, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", typed)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("invalid number %v", v)
	}
}

func toInt(v any) (int, error) {
	switch typed := v.(type) {
	case int:
		return typed, nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(typed))
		if err != nil {
			return 0, fmt.Errorf("invalid integer %q", typed)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("invalid integer %v", v)
	}
}
