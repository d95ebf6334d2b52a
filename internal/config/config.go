package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP API
	HTTPAddr    string `validate:"required"`
	CorsOrigins []string
	HTTPTimeout time.Duration `validate:"gt=0"`

	// Storage
	DatabaseURL        string
	MemorySnapshotPath string        // used only when DatabaseURL is empty
	ArticleTTL         time.Duration `validate:"gt=0"`

	// Shared lookup cache (optional)
	RedisAddr     string
	RedisPassword string
	RedisDB       int `validate:"gte=0"`

	// Ingestion
	FeedsConfigPath    string
	PollSchedule       string        `validate:"required"`
	MaxPerSource       int           `validate:"gt=0"`
	SourcePause        time.Duration `validate:"gte=0"`
	FeedTimeout        time.Duration `validate:"gt=0"`
	ImageLookupTimeout time.Duration `validate:"gt=0"`

	// Discovery
	PageSizeMax   int `validate:"gt=0"`
	MaxCollection int `validate:"gt=0"`

	// Translation
	BreakerCooldown      time.Duration `validate:"gt=0"`
	TranslateChunkSize   int           `validate:"gt=0"`
	TranslateTimeout     time.Duration `validate:"gt=0"`
	LibreTranslateURL    string
	LibreTranslateAPIKey string

	// Analysis
	PageExtractTimeout time.Duration `validate:"gt=0"`
	GeocoderURL        string
	GeocodeTimeout     time.Duration `validate:"gt=0"`

	// AI providers
	GeminiAPIKey         string
	MaxGeminiRequests    int // daily cap, 0 = unlimited
	OpenAIAPIKey         string
	MaxOpenAIRequests    int
	AnthropicAPIKey      string
	MaxAnthropicRequests int

	// App settings
	Debug     bool
	LogFormat string `validate:"omitempty,oneof=text json"`
}

// Load reads the environment, after merging ENV_FILE (default ".env") when
// it exists. Variables already set in the environment win over the file.
func Load() (*Config, error) {
	if err := loadEnvFile(getEnvOrDefault("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{
		// Default values
		HTTPAddr:           ":8080",
		HTTPTimeout:        60 * time.Second,
		ArticleTTL:         24 * time.Hour,
		PollSchedule:       "@every 5m",
		MaxPerSource:       10,
		SourcePause:        2 * time.Second,
		FeedTimeout:        20 * time.Second,
		ImageLookupTimeout: 8 * time.Second,
		PageSizeMax:        50,
		MaxCollection:      300,
		BreakerCooldown:    5 * time.Minute,
		TranslateChunkSize: 4000,
		TranslateTimeout:   10 * time.Second,
		PageExtractTimeout: 15 * time.Second,
		GeocoderURL:        "https://nominatim.openstreetmap.org",
		GeocodeTimeout:     5 * time.Second,
		MaxGeminiRequests:  200,
		MaxOpenAIRequests:  200,

		MaxAnthropicRequests: 200,
	}

	cfg.HTTPAddr = getEnvOrDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.CorsOrigins = getEnvSliceOrDefault("CORS_ORIGINS", []string{"*"})
	cfg.HTTPTimeout = getEnvDurationOrDefault("HTTP_TIMEOUT", cfg.HTTPTimeout)

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.MemorySnapshotPath = os.Getenv("MEMORY_SNAPSHOT_PATH")
	cfg.ArticleTTL = getEnvDurationOrDefault("ARTICLE_TTL", cfg.ArticleTTL)

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = getEnvIntOrDefault("REDIS_DB", 0)

	cfg.FeedsConfigPath = os.Getenv("FEEDS_CONFIG_PATH")
	// POLL_INTERVAL is shorthand for an "@every" schedule.
	if interval := os.Getenv("POLL_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil && d > 0 {
			cfg.PollSchedule = "@every " + d.String()
		}
	}
	cfg.PollSchedule = getEnvOrDefault("POLL_SCHEDULE", cfg.PollSchedule)
	cfg.MaxPerSource = getEnvIntOrDefault("MAX_PER_SOURCE", cfg.MaxPerSource)
	cfg.SourcePause = getEnvDurationOrDefault("SOURCE_PAUSE", cfg.SourcePause)
	cfg.FeedTimeout = getEnvDurationOrDefault("FEED_TIMEOUT", cfg.FeedTimeout)
	cfg.ImageLookupTimeout = getEnvDurationOrDefault("IMAGE_LOOKUP_TIMEOUT", cfg.ImageLookupTimeout)

	cfg.PageSizeMax = getEnvIntOrDefault("PAGE_SIZE_MAX", cfg.PageSizeMax)
	cfg.MaxCollection = getEnvIntOrDefault("MAX_COLLECTION", cfg.MaxCollection)

	cfg.BreakerCooldown = getEnvDurationOrDefault("TRANSLATE_BREAKER_COOLDOWN", cfg.BreakerCooldown)
	cfg.TranslateChunkSize = getEnvIntOrDefault("TRANSLATE_CHUNK_SIZE", cfg.TranslateChunkSize)
	cfg.TranslateTimeout = getEnvDurationOrDefault("TRANSLATE_TIMEOUT", cfg.TranslateTimeout)
	cfg.LibreTranslateURL = os.Getenv("LIBRETRANSLATE_URL")
	cfg.LibreTranslateAPIKey = os.Getenv("LIBRETRANSLATE_API_KEY")

	cfg.PageExtractTimeout = getEnvDurationOrDefault("PAGE_EXTRACT_TIMEOUT", cfg.PageExtractTimeout)
	cfg.GeocoderURL = getEnvOrDefault("GEOCODER_URL", cfg.GeocoderURL)
	cfg.GeocodeTimeout = getEnvDurationOrDefault("GEOCODE_TIMEOUT", cfg.GeocodeTimeout)

	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.MaxGeminiRequests = getEnvIntOrDefault("MAX_GEMINI_REQUESTS", cfg.MaxGeminiRequests)
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.MaxOpenAIRequests = getEnvIntOrDefault("MAX_OPENAI_REQUESTS", cfg.MaxOpenAIRequests)
	cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	cfg.MaxAnthropicRequests = getEnvIntOrDefault("MAX_ANTHROPIC_REQUESTS", cfg.MaxAnthropicRequests)

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}
	cfg.LogFormat = os.Getenv("LOG_FORMAT")

	return cfg, cfg.Validate()
}

func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSliceOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.MaxCollection < c.PageSizeMax+1 {
		return fmt.Errorf("MAX_COLLECTION (%d) must exceed PAGE_SIZE_MAX (%d)", c.MaxCollection, c.PageSizeMax)
	}
	if c.MemorySnapshotPath != "" && c.DatabaseURL != "" {
		return fmt.Errorf("MEMORY_SNAPSHOT_PATH and DATABASE_URL are mutually exclusive")
	}
	return nil
}
