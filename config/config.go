package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Model      ModelConfig      `mapstructure:"model"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes"`
}

// ModelConfig holds model service configuration
type ModelConfig struct {
	URL               string        `mapstructure:"url"`
	Name              string        `mapstructure:"name"`
	Timeout           time.Duration `mapstructure:"timeout"`
	ProbeTimeout      time.Duration `mapstructure:"probe_timeout"`
	ProbeAttempts     int           `mapstructure:"probe_attempts"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	Temperature       float64       `mapstructure:"temperature"`
	TopP              float64       `mapstructure:"top_p"`
	NumPredict        int           `mapstructure:"num_predict"`
	Stop              []string      `mapstructure:"stop"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

// ExtractionConfig holds segmentation and grounding parameters
type ExtractionConfig struct {
	SegmentThreshold       int      `mapstructure:"segment_threshold"`
	SegmentMaxLength       int      `mapstructure:"segment_max_length"`
	SegmentOverlap         int      `mapstructure:"segment_overlap"`
	MinGroundLength        int      `mapstructure:"min_ground_length"`
	GroundingRatio         float64  `mapstructure:"grounding_ratio"`
	SuspiciousPhrases      []string `mapstructure:"suspicious_phrases"`
	ForeignMarkers         []string `mapstructure:"foreign_markers"`
	PromptTemplate         string   `mapstructure:"prompt_template"`
	FallbackPromptTemplate string   `mapstructure:"fallback_prompt_template"`
}

// StorageConfig holds on-disk locations
type StorageConfig struct {
	UploadDir   string `mapstructure:"upload_dir"`
	OutputDir   string `mapstructure:"output_dir"`
	Diagnostics bool   `mapstructure:"diagnostics"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type string        `mapstructure:"type"` // "memory" or "none"
	TTL  time.Duration `mapstructure:"ttl"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DefaultSuspiciousPhrases are placeholder values models have produced
// without any basis in the document.
var DefaultSuspiciousPhrases = []string{
	"lorem ipsum",
	"produit exemple",
	"exemple de produit",
	"nom du produit",
	"marque exemple",
	"sample product",
	"example brand",
	"product name",
	"non spécifié",
	"non disponible",
	"not specified",
	"not available",
	"n/a",
}

// DefaultForeignMarkers are English terms that show a value was not written
// in French.
var DefaultForeignMarkers = []string{
	"the",
	"with",
	"without",
	"and",
	"for",
	"stainless steel",
	"energy saving",
	"refrigerator",
	"washing machine",
	"dishwasher",
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/productsheet/")

	// Environment variable settings: PRODUCTSHEET_MODEL_URL -> model.url
	v.SetEnvPrefix("PRODUCTSHEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
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

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})
	v.SetDefault("server.max_upload_bytes", 10<<20)

	// Model defaults
	v.SetDefault("model.url", "http://localhost:11434")
	v.SetDefault("model.name", "llama3")
	v.SetDefault("model.timeout", "180s")
	v.SetDefault("model.probe_timeout", "5s")
	v.SetDefault("model.probe_attempts", 3)
	v.SetDefault("model.max_retries", 3)
	v.SetDefault("model.retry_delay", "2s")
	v.SetDefault("model.temperature", 0.1)
	v.SetDefault("model.top_p", 0.9)
	v.SetDefault("model.num_predict", 2048)
	v.SetDefault("model.stop", []string{"```\n\n"})
	v.SetDefault("model.requests_per_second", 2)

	// Extraction defaults
	v.SetDefault("extraction.segment_threshold", 4000)
	v.SetDefault("extraction.segment_max_length", 3000)
	v.SetDefault("extraction.segment_overlap", 200)
	v.SetDefault("extraction.min_ground_length", 3)
	v.SetDefault("extraction.grounding_ratio", 0.7)
	v.SetDefault("extraction.suspicious_phrases", DefaultSuspiciousPhrases)
	v.SetDefault("extraction.foreign_markers", DefaultForeignMarkers)
	v.SetDefault("extraction.prompt_template", "")
	v.SetDefault("extraction.fallback_prompt_template", "")

	// Storage defaults
	v.SetDefault("storage.upload_dir", "uploads")
	v.SetDefault("storage.output_dir", "outputs")
	v.SetDefault("storage.diagnostics", true)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "24h")

	v.SetDefault("log.level", "info")
}

// loadEnvFile exports the variables of ./.env that are not already set.
// A missing file is not an error. Keys are exported upper-cased.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	ev := viper.New()
	ev.SetConfigFile(".env")
	ev.SetConfigType("env")
	if err := ev.ReadInConfig(); err != nil {
		return err
	}

	for _, key := range ev.AllKeys() {
		name := strings.ToUpper(key)
		if _, exists := os.LookupEnv(name); exists {
			continue
		}
		if err := os.Setenv(name, ev.GetString(key)); err != nil {
			return err
		}
	}
	return nil
}

// validate validates the configuration
func validate(config *Config) error {
	u, err := url.Parse(config.Model.URL)
	if config.Model.URL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("model URL must be an absolute http(s) URL (set PRODUCTSHEET_MODEL_URL), got: %q", config.Model.URL)
	}

	if config.Model.Name == "" {
		return fmt.Errorf("model name is required (set PRODUCTSHEET_MODEL_NAME)")
	}

	if config.Model.MaxRetries < 1 {
		return fmt.Errorf("model max_retries must be at least 1, got: %d", config.Model.MaxRetries)
	}

	if config.Extraction.SegmentMaxLength < 1 {
		return fmt.Errorf("segment_max_length must be positive, got: %d", config.Extraction.SegmentMaxLength)
	}

	if config.Extraction.SegmentOverlap < 0 || config.Extraction.SegmentOverlap >= config.Extraction.SegmentMaxLength {
		return fmt.Errorf("segment_overlap must be in [0, segment_max_length), got: %d", config.Extraction.SegmentOverlap)
	}

	if config.Extraction.GroundingRatio <= 0 || config.Extraction.GroundingRatio > 1 {
		return fmt.Errorf("grounding_ratio must be in (0, 1], got: %v", config.Extraction.GroundingRatio)
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "none" {
		return fmt.Errorf("cache type must be 'memory' or 'none', got: %s", config.Cache.Type)
	}

	return nil
}
