package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Bandit     BanditConfig     `mapstructure:"bandit"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Training   TrainingConfig   `mapstructure:"training"`
	ABTesting  ABTestingConfig  `mapstructure:"ab_testing"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Security   SecurityConfig   `mapstructure:"security"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxIdleTime    time.Duration `mapstructure:"max_idle_time"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BanditConfig carries the fixed, not-tunable-per-request parameters the
// bandit policy and store operate under.
type BanditConfig struct {
	AlphaPrior       float64 `mapstructure:"alpha_prior"`
	BetaPrior        float64 `mapstructure:"beta_prior"`
	SimilarityWeight float64 `mapstructure:"similarity_weight"`
	BanditWeight     float64 `mapstructure:"bandit_weight"`
	ExplorationRate  float64 `mapstructure:"exploration_rate"`
	OverfetchFactor  int     `mapstructure:"overfetch_factor"`
}

type PipelineConfig struct {
	SimilarityCacheTTL time.Duration `mapstructure:"similarity_cache_ttl"`
	RLCacheTTL         time.Duration `mapstructure:"rl_cache_ttl"`
	EmbeddingDim       int           `mapstructure:"embedding_dim"`
}

type TrainingConfig struct {
	DefaultDays          int     `mapstructure:"default_days"`
	SmoothedLearningRate float64 `mapstructure:"smoothed_learning_rate"`
}

type ABTestingConfig struct {
	MinSampleSize     int     `mapstructure:"min_sample_size"`
	SignificanceLevel float64 `mapstructure:"significance_level"`
	MinRelativeEffect float64 `mapstructure:"min_relative_effect"`
}

type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Port        string `mapstructure:"port"`
	MetricsPath string `mapstructure:"metrics_path"`
}

type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	// Set defaults
	setDefaults()

	// Environment variable overrides
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "development")

	// Database defaults
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.max_idle_time", "15m")
	viper.SetDefault("database.max_lifetime", "1h")
	viper.SetDefault("database.connect_timeout", "10s")

	// Redis defaults
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.timeout", "5s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	// Bandit defaults: priors start every item at an even coin flip;
	// weights blend similarity and learned quality; epsilon adds pure
	// exploration on top of the Thompson draw.
	viper.SetDefault("bandit.alpha_prior", 2.0)
	viper.SetDefault("bandit.beta_prior", 2.0)
	viper.SetDefault("bandit.similarity_weight", 0.6)
	viper.SetDefault("bandit.bandit_weight", 0.4)
	viper.SetDefault("bandit.exploration_rate", 0.15)
	viper.SetDefault("bandit.overfetch_factor", 3)

	// Pipeline defaults
	viper.SetDefault("pipeline.similarity_cache_ttl", "24h")
	viper.SetDefault("pipeline.rl_cache_ttl", "10m")
	viper.SetDefault("pipeline.embedding_dim", 384)

	// Training defaults
	viper.SetDefault("training.default_days", 7)
	viper.SetDefault("training.smoothed_learning_rate", 0.5)

	// A/B testing defaults
	viper.SetDefault("ab_testing.min_sample_size", 100)
	viper.SetDefault("ab_testing.significance_level", 0.05)
	viper.SetDefault("ab_testing.min_relative_effect", 0.05)

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.port", "9090")
	viper.SetDefault("monitoring.metrics_path", "/metrics")

	// Security defaults
	viper.SetDefault("security.cors.allowed_origins", []string{"*"})
	viper.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("security.cors.allowed_headers", []string{"*"})
}
