// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like TASTE_API_API_KEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment overlay, ignored when absent
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig()

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// overrideEmptyConfig applies direct env fallbacks for secrets that may not
// appear in the YAML at all.
func overrideEmptyConfig(cfg *Config) {
	if cfg.TasteAPI.APIKey == "" {
		if val := os.Getenv("TASTE_API_KEY"); val != "" {
			cfg.TasteAPI.APIKey = val
		}
	}

	for i := range cfg.Providers {
		if cfg.Providers[i].APIKey == "" {
			envName := fmt.Sprintf("PROVIDER_%s_API_KEY", strings.ToUpper(strings.ReplaceAll(cfg.Providers[i].Name, "-", "_")))
			if val := os.Getenv(envName); val != "" {
				cfg.Providers[i].APIKey = val
			}
		}
	}

	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}

	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.TasteAPI.MinRating == 0 {
		cfg.TasteAPI.MinRating = 4.0
	}
	if cfg.TasteAPI.SnapshotTTL == 0 {
		cfg.TasteAPI.SnapshotTTL = 3600
	}

	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 5
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = int(cfg.RateLimit.RequestsPerSecond)
		if cfg.RateLimit.Burst < 1 {
			cfg.RateLimit.Burst = 1
		}
	}
	if cfg.RateLimit.MaxInFlight == 0 {
		cfg.RateLimit.MaxInFlight = 5
	}
	if cfg.RateLimit.MaxRetries == 0 {
		cfg.RateLimit.MaxRetries = 3
	}
	if cfg.RateLimit.RetryBaseDelay == 0 {
		cfg.RateLimit.RetryBaseDelay = 100
	}
	if cfg.RateLimit.CallTimeout == 0 {
		cfg.RateLimit.CallTimeout = 10000
	}

	if cfg.Scoring.PriceVsMedianWeight == 0 {
		cfg.Scoring.PriceVsMedianWeight = 0.6
	}
	if cfg.Scoring.IngredientCostWeight == 0 {
		cfg.Scoring.IngredientCostWeight = 0.4
	}
	if cfg.Scoring.PopularityWeight == 0 {
		cfg.Scoring.PopularityWeight = 0.4
	}
	if cfg.Scoring.ProfitabilityWeight == 0 {
		cfg.Scoring.ProfitabilityWeight = 0.35
	}
	if cfg.Scoring.DemographicAffinityWeight == 0 {
		cfg.Scoring.DemographicAffinityWeight = 0.25
	}
	if cfg.Scoring.DominantShareCutoff == 0 {
		cfg.Scoring.DominantShareCutoff = 0.2
	}

	if cfg.Pipeline.Concurrency == 0 {
		cfg.Pipeline.Concurrency = 5
	}
	if cfg.Pipeline.SuggestionCount == 0 {
		cfg.Pipeline.SuggestionCount = 5
	}
	if cfg.Pipeline.OperationTimeout == 0 {
		cfg.Pipeline.OperationTimeout = 120000
	}

	if cfg.Scheduler.RecomputeInterval == 0 {
		cfg.Scheduler.RecomputeInterval = 86400
	}

	for i := range cfg.Providers {
		if cfg.Providers[i].MaxTokens == 0 {
			cfg.Providers[i].MaxTokens = 1024
		}
		if cfg.Providers[i].Temperature == 0 {
			cfg.Providers[i].Temperature = 0.7
		}
		if cfg.Providers[i].Timeout == 0 {
			cfg.Providers[i].Timeout = 30000
		}
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	if cfg.TasteAPI.BaseURL == "" {
		return fmt.Errorf("taste_api.base_url is required")
	}

	if len(cfg.Providers) == 0 {
		return fmt.Errorf("at least one provider is required")
	}
	seen := make(map[string]bool, len(cfg.Providers))
	for _, p := range cfg.Providers {
		if p.Name == "" {
			return fmt.Errorf("provider name is required")
		}
		if p.BaseURL == "" {
			return fmt.Errorf("provider %q base_url is required", p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate provider name %q", p.Name)
		}
		seen[p.Name] = true
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
