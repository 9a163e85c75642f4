// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	TasteAPI      TasteAPIConfig     `mapstructure:"taste_api"`
	Providers     []ProviderConfig   `mapstructure:"providers"`
	RateLimit     RateLimitConfig    `mapstructure:"rate_limit"`
	Scoring       ScoringConfig      `mapstructure:"scoring"`
	Pipeline      PipelineConfig     `mapstructure:"pipeline"`
	Scheduler     SchedulerConfig    `mapstructure:"scheduler"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ShutdownTimeout int `mapstructure:"shutdown_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// TasteAPIConfig holds taste-graph service settings. All calls go through
// the shared rate-limited client.
type TasteAPIConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	MinRating   float64 `mapstructure:"min_rating"`
	SnapshotTTL int     `mapstructure:"snapshot_ttl"` // seconds
}

// ProviderConfig describes one generative-text backend. Order in the list is
// the fallback order.
type ProviderConfig struct {
	Name        string  `mapstructure:"name"`
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
}

// RateLimitConfig governs the process-wide outbound request budget.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
	MaxInFlight       int     `mapstructure:"max_in_flight"`
	MaxRetries        int     `mapstructure:"max_retries"`
	RetryBaseDelay    int     `mapstructure:"retry_base_delay"` // milliseconds
	CallTimeout       int     `mapstructure:"call_timeout"`     // milliseconds
}

// ScoringConfig exposes the tunable weight tables. The profitability formula
// and demographic-affinity weighting are policy, not law.
type ScoringConfig struct {
	PriceVsMedianWeight       float64 `mapstructure:"price_vs_median_weight"`
	IngredientCostWeight      float64 `mapstructure:"ingredient_cost_weight"`
	PopularityWeight          float64 `mapstructure:"popularity_weight"`
	ProfitabilityWeight       float64 `mapstructure:"profitability_weight"`
	DemographicAffinityWeight float64 `mapstructure:"demographic_affinity_weight"`
	DominantShareCutoff       float64 `mapstructure:"dominant_share_cutoff"`
}

// PipelineConfig bounds pipeline fan-out.
type PipelineConfig struct {
	Concurrency      int `mapstructure:"concurrency"`
	SuggestionCount  int `mapstructure:"suggestion_count"`
	OperationTimeout int `mapstructure:"operation_timeout"` // milliseconds
}

// SchedulerConfig drives the periodic score recompute.
type SchedulerConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RecomputeInterval int  `mapstructure:"recompute_interval"` // seconds
}

// NotificationConfig holds reviewer-notification settings.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
		ToEmail   string `mapstructure:"to_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled     bool   `mapstructure:"enabled"`
		PhoneNumber string `mapstructure:"phone_number"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
