package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server ServerConfig
	Vision VisionConfig
	Sheets SheetsConfig
	OAuth  OAuthConfig
	Queue  QueueConfig
}

// ServerConfig holds HTTP/gRPC listener configuration
type ServerConfig struct {
	HTTPAddr       string
	GRPCHealthAddr string
	MaxUploadBytes int64
	CORSOrigins    []string
}

// VisionConfig holds vision-model configuration
type VisionConfig struct {
	Provider     string // gemini | openai
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string
	Temperature  float32
	Timeout      time.Duration // 0 leaves the transport default in place
}

// SheetsConfig holds the spreadsheet destination and client tuning
type SheetsConfig struct {
	SpreadsheetID string
	BaseURL       string
	RateLimit     float64
	AccessToken   string // optional pre-issued bearer token (CLI)
}

// OAuthConfig holds the OAuth application identity
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// QueueConfig holds extraction worker settings
type QueueConfig struct {
	Workers int
	Size    int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
			GRPCHealthAddr: getEnv("GRPC_HEALTH_ADDR", ":9090"),
			MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_MB", 20)) * 1024 * 1024,
			CORSOrigins:    getEnvAsList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:8080"}),
		},
		Vision: VisionConfig{
			Provider:     strings.ToLower(getEnv("VISION_PROVIDER", "gemini")),
			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
			GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Temperature:  getEnvAsFloat32("VISION_TEMPERATURE", 0.0),
			Timeout:      getEnvAsDuration("VISION_TIMEOUT", 0),
		},
		Sheets: SheetsConfig{
			SpreadsheetID: getEnv("SHEETS_SPREADSHEET_ID", ""),
			BaseURL:       getEnv("SHEETS_BASE_URL", "https://sheets.googleapis.com/v4/spreadsheets"),
			RateLimit:     getEnvAsFloat64("SHEETS_RATE_LIMIT", 5),
			AccessToken:   getEnv("SHEETS_ACCESS_TOKEN", ""),
		},
		OAuth: OAuthConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("OAUTH_REDIRECT_URL", "http://localhost:8080/api/auth/callback"),
		},
		Queue: QueueConfig{
			Workers: getEnvAsInt("EXTRACT_WORKERS", 4),
			Size:    getEnvAsInt("EXTRACT_QUEUE_SIZE", 64),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Vision.Provider {
	case "gemini":
		if c.Vision.GeminiAPIKey == "" {
			return NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is required", ErrInvalidInput)
		}
	case "openai":
		if c.Vision.OpenAIAPIKey == "" {
			return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "VISION_PROVIDER must be gemini or openai", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Sheets.BaseURL == "" {
		return NewAppError("CONFIG_ERROR", "SHEETS_BASE_URL is required", ErrInvalidInput)
	}
	return nil
}
