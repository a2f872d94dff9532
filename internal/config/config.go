package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// MaxImageBytesLimit bounds MAX_IMAGE_BYTES; uploads are read into memory.
const MaxImageBytesLimit = 64 << 20

type Config struct {
	// DotEnvLoaded reports whether a .env file was found and applied.
	DotEnvLoaded bool

	Env    string
	Server ServerConfig
	LLM    LLMConfig
	Limits LimitsConfig
	CORS   CORSConfig
}

type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
}

type LLMConfig struct {
	Provider        string
	OpenAIKey       string
	GeminiKey       string
	APIKeyParam     string
	BaseURL         string
	Model           string
	Persona         string
	UpstreamTimeout time.Duration
}

type LimitsConfig struct {
	MaxImageBytes    int64
	MaxCaptionChars  int
	ChatMaxTokens    int
	AnalyzeMaxTokens int
	WebsiteMaxTokens int
	AppMaxTokens     int
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() (*Config, error) {
	dotEnvLoaded := godotenv.Load() == nil

	cfg := &Config{
		DotEnvLoaded: dotEnvLoaded,
		Env: getEnv("ENV", "production"),
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getDuration("WRITE_TIMEOUT", 150*time.Second),
			RequestTimeout: getDuration("REQUEST_TIMEOUT", 120*time.Second),
		},
		LLM: LLMConfig{
			Provider:        strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", ProviderOpenAI))),
			OpenAIKey:       strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			GeminiKey:       strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			APIKeyParam:     strings.TrimSpace(os.Getenv("API_KEY_PARAM")),
			BaseURL:         strings.TrimSpace(getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1")),
			Model:           strings.TrimSpace(os.Getenv("LLM_MODEL")),
			Persona:         getEnv("SYSTEM_PERSONA", "You are a helpful AI assistant."),
			UpstreamTimeout: getDuration("UPSTREAM_TIMEOUT", 90*time.Second),
		},
		Limits: LimitsConfig{
			MaxImageBytes:    getEnvAsInt64("MAX_IMAGE_BYTES", 1_000_000),
			MaxCaptionChars:  getEnvAsInt("MAX_CAPTION_CHARS", 500),
			ChatMaxTokens:    getEnvAsInt("CHAT_MAX_TOKENS", 300),
			AnalyzeMaxTokens: getEnvAsInt("ANALYZE_MAX_TOKENS", 400),
			WebsiteMaxTokens: getEnvAsInt("WEBSITE_MAX_TOKENS", 3000),
			AppMaxTokens:     getEnvAsInt("APP_MAX_TOKENS", 1200),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("config: unknown LLM_PROVIDER %q", c.LLM.Provider))
	}
	if c.Limits.MaxImageBytes <= 0 {
		errs = append(errs, errors.New("config: MAX_IMAGE_BYTES must be positive"))
	}
	if c.Limits.MaxImageBytes > MaxImageBytesLimit {
		errs = append(errs, fmt.Errorf("config: MAX_IMAGE_BYTES must not exceed %d", MaxImageBytesLimit))
	}
	if c.Limits.MaxCaptionChars <= 0 {
		errs = append(errs, errors.New("config: MAX_CAPTION_CHARS must be positive"))
	}
	for name, v := range map[string]int{
		"CHAT_MAX_TOKENS":    c.Limits.ChatMaxTokens,
		"ANALYZE_MAX_TOKENS": c.Limits.AnalyzeMaxTokens,
		"WEBSITE_MAX_TOKENS": c.Limits.WebsiteMaxTokens,
		"APP_MAX_TOKENS":     c.Limits.AppMaxTokens,
	} {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("config: %s must be positive", name))
		}
	}
	if c.Server.RequestTimeout <= 0 || c.LLM.UpstreamTimeout <= 0 {
		errs = append(errs, errors.New("config: timeouts must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// APIKey returns the directly configured credential for the selected provider.
// It is empty when the key must be read from the parameter store.
func (c *Config) APIKey() string {
	if c.LLM.Provider == ProviderGemini {
		return c.LLM.GeminiKey
	}
	return c.LLM.OpenAIKey
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsList(key string, defaultVal []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
