package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config captures configuration for the scheduler service. Values come from
// an optional TOML file overlaid by SCHEDULER_* environment variables.
type Config struct {
	HTTPPort     int
	SQLiteDSN    string
	APIKeyDigest string
	LogLevel     string
	SolveTimeout time.Duration

	// Scheduling values read from the file and environment. Nothing outside
	// this package reads them: HTTP requests that omit a value fall back to
	// engine.DefaultConfig().
	DayStart        string
	DayEnd          string
	Strategy        string
	PenaltyWeight   float64
	WindowTolerance float64
}

func defaults() Config {
	return Config{
		HTTPPort:        8080,
		SQLiteDSN:       "file:scheduler.db?_pragma=foreign_keys(1)",
		LogLevel:        "info",
		SolveTimeout:    30 * time.Second,
		DayStart:        "08:00",
		DayEnd:          "22:00",
		Strategy:        "earliest",
		PenaltyWeight:   0.3,
		WindowTolerance: 0,
	}
}

// Load resolves configuration from the optional file named by
// SCHEDULER_CONFIG_FILE and the process environment, with the environment
// winning. Invalid environment values are accumulated and reported together;
// an invalid or unknown file value fails the load at once.
func Load() (Config, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("SCHEDULER_CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("SCHEDULER_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "SCHEDULER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("SCHEDULER_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if digest := strings.TrimSpace(os.Getenv("SCHEDULER_API_KEY_DIGEST")); digest != "" {
		cfg.APIKeyDigest = digest
	}

	if level := strings.TrimSpace(os.Getenv("SCHEDULER_LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}

	if timeoutValue := strings.TrimSpace(os.Getenv("SCHEDULER_SOLVE_TIMEOUT")); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout < 0 {
			invalid = append(invalid, "SCHEDULER_SOLVE_TIMEOUT")
		} else {
			cfg.SolveTimeout = timeout
		}
	}

	if dayStart := strings.TrimSpace(os.Getenv("SCHEDULER_DAY_START")); dayStart != "" {
		cfg.DayStart = dayStart
	}
	if dayEnd := strings.TrimSpace(os.Getenv("SCHEDULER_DAY_END")); dayEnd != "" {
		cfg.DayEnd = dayEnd
	}
	if strategy := strings.TrimSpace(os.Getenv("SCHEDULER_STRATEGY")); strategy != "" {
		cfg.Strategy = strategy
	}

	if weightValue := strings.TrimSpace(os.Getenv("SCHEDULER_PENALTY_WEIGHT")); weightValue != "" {
		weight, err := strconv.ParseFloat(weightValue, 64)
		if err != nil || weight < 0 {
			invalid = append(invalid, "SCHEDULER_PENALTY_WEIGHT")
		} else {
			cfg.PenaltyWeight = weight
		}
	}

	if toleranceValue := strings.TrimSpace(os.Getenv("SCHEDULER_WINDOW_TOLERANCE")); toleranceValue != "" {
		tolerance, err := strconv.ParseFloat(toleranceValue, 64)
		if err != nil || tolerance < 0 {
			invalid = append(invalid, "SCHEDULER_WINDOW_TOLERANCE")
		} else {
			cfg.WindowTolerance = tolerance
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// fileConfig mirrors Config for TOML decoding. Pointer fields distinguish
// absent keys from zero values; durations are duration strings.
type fileConfig struct {
	HTTPPort        *int     `toml:"http_port"`
	SQLiteDSN       *string  `toml:"sqlite_dsn"`
	APIKeyDigest    *string  `toml:"api_key_digest"`
	LogLevel        *string  `toml:"log_level"`
	SolveTimeout    *string  `toml:"solve_timeout"`
	DayStart        *string  `toml:"day_start"`
	DayEnd          *string  `toml:"day_end"`
	Strategy        *string  `toml:"strategy"`
	PenaltyWeight   *float64 `toml:"penalty_weight"`
	WindowTolerance *float64 `toml:"window_tolerance"`
}

func loadFile(path string, cfg *Config) error {
	var file fileConfig
	meta, err := toml.DecodeFile(path, &file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config: file %s does not exist", path)
		}
		return fmt.Errorf("config: cannot parse %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	if file.HTTPPort != nil {
		if *file.HTTPPort <= 0 {
			return fmt.Errorf("config: %s: http_port must be positive", path)
		}
		cfg.HTTPPort = *file.HTTPPort
	}
	if file.SQLiteDSN != nil {
		cfg.SQLiteDSN = *file.SQLiteDSN
	}
	if file.APIKeyDigest != nil {
		cfg.APIKeyDigest = *file.APIKeyDigest
	}
	if file.LogLevel != nil {
		cfg.LogLevel = *file.LogLevel
	}
	if file.SolveTimeout != nil {
		timeout, err := time.ParseDuration(*file.SolveTimeout)
		if err != nil || timeout < 0 {
			return fmt.Errorf("config: %s: invalid solve_timeout %q", path, *file.SolveTimeout)
		}
		cfg.SolveTimeout = timeout
	}
	if file.DayStart != nil {
		cfg.DayStart = *file.DayStart
	}
	if file.DayEnd != nil {
		cfg.DayEnd = *file.DayEnd
	}
	if file.Strategy != nil {
		cfg.Strategy = *file.Strategy
	}
	if file.PenaltyWeight != nil {
		if *file.PenaltyWeight < 0 {
			return fmt.Errorf("config: %s: penalty_weight must not be negative", path)
		}
		cfg.PenaltyWeight = *file.PenaltyWeight
	}
	if file.WindowTolerance != nil {
		if *file.WindowTolerance < 0 {
			return fmt.Errorf("config: %s: window_tolerance must not be negative", path)
		}
		cfg.WindowTolerance = *file.WindowTolerance
	}
	return nil
}
