package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	AntiDetect   AntiDetectConfig   `mapstructure:"anti_detect"`
	Breaker      BreakerConfig      `mapstructure:"breaker"`
	Scoring      ScoringConfig      `mapstructure:"scoring"`
	Normalizer   NormalizerConfig   `mapstructure:"normalizer"`
	Security     SecurityConfig     `mapstructure:"security"`
	Backend      BackendConfig      `mapstructure:"backend"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	APIToken     string        `mapstructure:"api_token"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// OrchestratorConfig holds the main cycle configuration
type OrchestratorConfig struct {
	BaseInterval  time.Duration `mapstructure:"base_interval"`
	LowWaterMark  int           `mapstructure:"low_water_mark"`
	TopK          int           `mapstructure:"top_k"`
	SkipThreshold float64       `mapstructure:"skip_threshold"`
	HistoryCap    int           `mapstructure:"history_cap"`
}

// AntiDetectConfig holds the request governor budgets
type AntiDetectConfig struct {
	PerHourLimit   int           `mapstructure:"per_hour_limit"`
	PerMinuteLimit int           `mapstructure:"per_minute_limit"`
	BurstLimit     int           `mapstructure:"burst_limit"`
	Cooldown       time.Duration `mapstructure:"cooldown"`
	MinDelay       time.Duration `mapstructure:"min_delay"`
	MaxDelay       time.Duration `mapstructure:"max_delay"`
	JitterFraction float64       `mapstructure:"jitter_fraction"`
}

// BreakerConfig holds the per-source circuit breaker settings
type BreakerConfig struct {
	FailureThreshold    int           `mapstructure:"failure_threshold"`
	OpenTimeout         time.Duration `mapstructure:"open_timeout"`
	HalfOpenTrialBudget int           `mapstructure:"half_open_trial_budget"`
}

// ScoringConfig holds the scoring engine settings
type ScoringConfig struct {
	WeightSuccessRate   float64 `mapstructure:"weight_success_rate"`
	WeightProfitability float64 `mapstructure:"weight_profitability"`
	WeightAutomation    float64 `mapstructure:"weight_automation"`
	WeightEase          float64 `mapstructure:"weight_ease"`
	WeightReliability   float64 `mapstructure:"weight_reliability"`
	HistoryCap          int     `mapstructure:"history_cap"`
	MinCohortSize       int     `mapstructure:"min_cohort_size"`
	RewardThreshold     float64 `mapstructure:"reward_threshold"`
}

// NormalizerConfig holds candidate validation floors
type NormalizerConfig struct {
	MinReward       float64 `mapstructure:"min_reward"`
	DefaultReward   float64 `mapstructure:"default_reward"`
	MinDurationSec  int     `mapstructure:"min_duration_sec"`
	DefaultDuration int     `mapstructure:"default_duration"`
	MinTitleLen     int     `mapstructure:"min_title_len"`
}

// SecurityConfig holds the dispatch pre-check limits
type SecurityConfig struct {
	RewardCeiling float64       `mapstructure:"reward_ceiling"`
	MaxDuration   time.Duration `mapstructure:"max_duration"`
}

// BackendConfig holds the executor connection settings
type BackendConfig struct {
	ExecutorURL string `mapstructure:"executor_url"`
}

// DatabaseConfig holds the optional outcome-archive connection
type DatabaseConfig struct {
	URL       string        `mapstructure:"url"`
	Retention time.Duration `mapstructure:"retention"`
}

// RedisConfig holds the optional seen-store connection
type RedisConfig struct {
	URL     string        `mapstructure:"url"`
	SeenTTL time.Duration `mapstructure:"seen_ttl"`
}

var globalConfig *Config

// Load loads the configuration from file, .env, and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := loadEnvFile(); err != nil {
		// .env is optional, log but don't fail
		log.Debug().Err(err).Msg(".env file not loaded")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("HUNTER")
	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// loadEnvFile loads a .env file by setting KEY=VALUE lines as env variables
func loadEnvFile() error {
	for _, path := range []string{".", "./config"} {
		envFile := fmt.Sprintf("%s/.env", path)
		if _, err := os.Stat(envFile); err == nil {
			if err := loadDotEnvFile(envFile); err == nil {
				return nil
			}
		}
	}
	return fmt.Errorf("no .env file found")
}

func loadDotEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.Trim(strings.TrimSpace(parts[1]), "\"'")
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}

// bindEnvVars binds flat environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("redis.url", "REDIS_URL")
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.host", "HOST")
	v.BindEnv("server.api_token", "INTERNAL_API_TOKEN")
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("backend.executor_url", "EXECUTOR_URL")
}

// setDefaults sets default configuration values. The discovery, breaker, and
// scoring defaults are deliberate: they are the tuned values the engine ships
// with, surfaced here so operators can override them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3100)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.no_color", false)

	v.SetDefault("orchestrator.base_interval", 90*time.Second)
	v.SetDefault("orchestrator.low_water_mark", 5)
	v.SetDefault("orchestrator.top_k", 50)
	v.SetDefault("orchestrator.skip_threshold", 60.0)
	v.SetDefault("orchestrator.history_cap", 100)

	v.SetDefault("anti_detect.per_hour_limit", 40)
	v.SetDefault("anti_detect.per_minute_limit", 8)
	v.SetDefault("anti_detect.burst_limit", 3)
	v.SetDefault("anti_detect.cooldown", 45*time.Second)
	v.SetDefault("anti_detect.min_delay", 2*time.Second)
	v.SetDefault("anti_detect.max_delay", 8*time.Second)
	v.SetDefault("anti_detect.jitter_fraction", 0.25)

	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.open_timeout", 5*time.Minute)
	v.SetDefault("breaker.half_open_trial_budget", 3)

	v.SetDefault("scoring.weight_success_rate", 0.30)
	v.SetDefault("scoring.weight_profitability", 0.25)
	v.SetDefault("scoring.weight_automation", 0.20)
	v.SetDefault("scoring.weight_ease", 0.15)
	v.SetDefault("scoring.weight_reliability", 0.10)
	v.SetDefault("scoring.history_cap", 500)
	v.SetDefault("scoring.min_cohort_size", 3)
	v.SetDefault("scoring.reward_threshold", 0.5)

	v.SetDefault("normalizer.min_reward", 0.01)
	v.SetDefault("normalizer.default_reward", 0.05)
	v.SetDefault("normalizer.min_duration_sec", 60)
	v.SetDefault("normalizer.default_duration", 300)
	v.SetDefault("normalizer.min_title_len", 3)

	v.SetDefault("security.reward_ceiling", 100.0)
	v.SetDefault("security.max_duration", 24*time.Hour)

	v.SetDefault("database.retention", 30*24*time.Hour)
	v.SetDefault("redis.seen_ttl", 48*time.Hour)
}

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// APIConfig is the resolved credential for one marketplace source.
type APIConfig struct {
	APIKey     string
	Configured bool
}

// GetAPIConfig resolves the API key for a source from the environment
// (HUNTER_<SOURCE>_API_KEY).
func GetAPIConfig(sourceName string) APIConfig {
	envKey := "HUNTER_" + strings.ToUpper(strings.ReplaceAll(sourceName, "-", "_")) + "_API_KEY"
	key := os.Getenv(envKey)
	return APIConfig{APIKey: key, Configured: key != ""}
}
