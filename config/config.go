package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Search    SearchConfig    `mapstructure:"search"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Decision  DecisionConfig  `mapstructure:"decision"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Store     StoreConfig     `mapstructure:"store"`
	Purchase  PurchaseConfig  `mapstructure:"purchase"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// PlatformConfig describes one marketplace API
type PlatformConfig struct {
	Name    string `mapstructure:"name"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// SearchConfig holds platform search configuration. CatalogPath points at an
// offline YAML catalog used instead of (or next to) the platform APIs.
type SearchConfig struct {
	Timeout     time.Duration    `mapstructure:"timeout"`
	CatalogPath string           `mapstructure:"catalog_path"`
	Platforms   []PlatformConfig `mapstructure:"platforms"`
	Debug       bool             `mapstructure:"debug"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type string        `mapstructure:"type"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration: requests per minute per
// client IP, and requests per second per platform.
type RateLimitConfig struct {
	PerIP    int `mapstructure:"per_ip"`
	Platform int `mapstructure:"platform"`
}

// DecisionConfig holds decision policy configuration
type DecisionConfig struct {
	KnownPlatforms     []string `mapstructure:"known_platforms"`
	ElderlyProtection  bool     `mapstructure:"elderly_protection"`
	HighValueThreshold float64  `mapstructure:"high_value_threshold"`
}

// LLMConfig holds the optional narrator configuration
type LLMConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StoreConfig holds order store configuration
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// PurchaseConfig holds purchase configuration
type PurchaseConfig struct {
	Mode   string `mapstructure:"mode"`
	UserID string `mapstructure:"user_id"`
}

// Purchase modes
const (
	PurchaseModeDryRun = "dry_run"
	PurchaseModeLive   = "live"
)

// Load loads configuration from .env, environment variables and an optional config.yaml
func Load() (*Config, error) {
	return load("")
}

// LoadFile loads configuration from an explicit config file plus the environment
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(path string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/gangu/")
	}

	// GANGU_SERVER_PORT -> server.port
	v.SetEnvPrefix("GANGU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional unless given explicitly
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads .env from the working directory when present.
// Variables already set in the environment win.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(".env")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})

	// Search defaults
	v.SetDefault("search.timeout", "10s")
	v.SetDefault("search.catalog_path", "")
	v.SetDefault("search.debug", false)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "15m")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 60)
	v.SetDefault("ratelimit.platform", 5)

	// Decision defaults
	v.SetDefault("decision.known_platforms", []string{
		"zepto", "amazon", "blinkit", "bigbasket", "swiggy instamart", "jiomart", "flipkart",
	})
	v.SetDefault("decision.elderly_protection", true)
	v.SetDefault("decision.high_value_threshold", 500.0)

	// LLM defaults
	v.SetDefault("llm.enabled", false)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1/")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.timeout", "30s")

	// Store defaults
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.dsn", "")

	// Purchase defaults
	v.SetDefault("purchase.mode", PurchaseModeDryRun)
	v.SetDefault("purchase.user_id", "default_user")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Cache.Type != "memory" {
		return fmt.Errorf("cache type must be 'memory', got: %s", config.Cache.Type)
	}

	switch config.Store.Driver {
	case "memory":
	case "sqlite3", "postgres":
		if config.Store.DSN == "" {
			return fmt.Errorf("store DSN is required for driver %s (set GANGU_STORE_DSN)", config.Store.Driver)
		}
	default:
		return fmt.Errorf("store driver must be 'memory', 'sqlite3' or 'postgres', got: %s", config.Store.Driver)
	}

	if config.Purchase.Mode != PurchaseModeDryRun && config.Purchase.Mode != PurchaseModeLive {
		return fmt.Errorf("purchase mode must be '%s' or '%s', got: %s", PurchaseModeDryRun, PurchaseModeLive, config.Purchase.Mode)
	}

	if config.Purchase.Mode == PurchaseModeLive && len(config.Search.Platforms) == 0 {
		return fmt.Errorf("live purchase mode requires at least one platform in search.platforms")
	}

	for i, p := range config.Search.Platforms {
		if p.Name == "" || p.BaseURL == "" {
			return fmt.Errorf("search.platforms[%d] needs a name and base_url", i)
		}
	}

	if config.LLM.Enabled && config.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key is required when llm is enabled (set GANGU_LLM_API_KEY)")
	}

	return nil
}
