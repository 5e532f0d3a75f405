package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Keys    APIKeys
	Ai      AIConfig
	Tutor   TutorConfig
	Tracing TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	DiagnosticsLogPath string
	CorsAllowedOrigins string
	BodyLimitMB        int
	NatsURL            string // empty disables event forwarding
	RedisURL           string // empty disables cross-instance fan-out
}

type APIKeys struct {
	GoogleGemini string
}

type AIConfig struct {
	LLMProvider   string // "gemini" or "ollama"
	LLMModel      string
	OllamaBaseURL string
}

type TutorConfig struct {
	CourseName   string
	QueryTimeout time.Duration
	SessionTTL   time.Duration
}

type TracingConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			DiagnosticsLogPath: getEnv("DIAGNOSTICS_LOG_PATH", "logs/tutor_diagnostics.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			BodyLimitMB:        getEnvAsInt("BODY_LIMIT_MB", 50),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Keys: APIKeys{
			GoogleGemini: firstEnv("GOOGLE_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"),
		},
		Ai: AIConfig{
			LLMProvider:   getEnv("LLM_PROVIDER", "gemini"),
			LLMModel:      getEnv("LLM_MODEL", "gemini-2.5-flash"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		},
		Tutor: TutorConfig{
			CourseName:   getEnv("COURSE_NAME", "Hydraulics"),
			QueryTimeout: getEnvAsDuration("QUERY_TIMEOUT", 120*time.Second),
			SessionTTL:   getEnvAsDuration("SESSION_TTL", 2*time.Hour),
		},
		Tracing: TracingConfig{
			Enabled:      getEnv("OTEL_ENABLED", "") == "true",
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "course-tutor-backend"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// firstEnv returns the first non-empty value among keys.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil && value > 0 {
		return value
	}
	return fallback
}
