package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// NBA stats provider
	ProviderBaseURL      string        `envconfig:"PROVIDER_BASE_URL" default:"https://stats.nba.com/stats"`
	ProviderTimeout      time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"10s"`
	ProviderMaxAttempts  int           `envconfig:"PROVIDER_MAX_ATTEMPTS" default:"4"`
	ProviderRetryBackoff time.Duration `envconfig:"PROVIDER_RETRY_BACKOFF" default:"2s"`
	ProviderMaxBackoff   time.Duration `envconfig:"PROVIDER_MAX_BACKOFF" default:"30s"`
	// Minimum spacing between provider calls; part of the ingestion
	// contract, not incidental.
	ProviderRequestDelay time.Duration `envconfig:"PROVIDER_REQUEST_DELAY" default:"700ms"`
	ProviderUserAgent    string        `envconfig:"PROVIDER_USER_AGENT" default:"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_5) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"`
	ProviderReferer      string        `envconfig:"PROVIDER_REFERER" default:"https://www.nba.com/"`

	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"nba_forecasting"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"nba_user"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" required:"true"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Redis (boxscore payload cache; optional at runtime)
	RedisHost     string        `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int           `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	BoxscoreTTL   time.Duration `envconfig:"BOXSCORE_CACHE_TTL" default:"168h"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Feature engine
	TeamLocationsPath string `envconfig:"TEAM_LOCATIONS_PATH" default:"data/team_locations.json"`
	RollingWindows    []int  `envconfig:"ROLLING_WINDOWS" default:"5,10,20"`
	// Rest and travel can follow either the player's or the team's
	// previous game; the source was inconsistent, so it is explicit here.
	RestSubject string `envconfig:"REST_SUBJECT" default:"player"`

	// Dataset partitioner
	OutputDir      string  `envconfig:"OUTPUT_DIR" default:"outputs"`
	MinMinutes     float64 `envconfig:"MIN_MINUTES" default:"5"`
	TrainSplitFrac float64 `envconfig:"TRAIN_SPLIT_FRAC" default:"0.80"`

	// Scheduler
	EnableScheduler   bool   `envconfig:"ENABLE_SCHEDULER" default:"false"`
	DailyPipelineCron string `envconfig:"DAILY_PIPELINE_CRON" default:"0 9 * * *"`
	// Pre-game runs set this so provider flakiness on yesterday's
	// boxscores cannot block feature and dataset builds.
	SkipIngest bool `envconfig:"SKIP_INGEST" default:"false"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required")
	}

	if c.ProviderRequestDelay <= 0 {
		return fmt.Errorf("PROVIDER_REQUEST_DELAY must be positive")
	}

	if c.ProviderMaxAttempts < 1 {
		return fmt.Errorf("PROVIDER_MAX_ATTEMPTS must be at least 1")
	}

	if len(c.RollingWindows) == 0 {
		return fmt.Errorf("ROLLING_WINDOWS must name at least one window")
	}
	for _, w := range c.RollingWindows {
		if w < 1 {
			return fmt.Errorf("rolling window sizes must be positive, got %d", w)
		}
	}

	if c.RestSubject != "player" && c.RestSubject != "team" {
		return fmt.Errorf("REST_SUBJECT must be \"player\" or \"team\", got %q", c.RestSubject)
	}

	if c.TrainSplitFrac <= 0 || c.TrainSplitFrac >= 1 {
		return fmt.Errorf("TRAIN_SPLIT_FRAC must be in (0, 1), got %v", c.TrainSplitFrac)
	}

	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost,
		c.DatabasePort,
		c.DatabaseUser,
		c.DatabasePassword,
		c.DatabaseName,
		c.DatabaseSSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or panics on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
