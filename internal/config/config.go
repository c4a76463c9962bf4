package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// It is loaded once at startup and passed explicitly into component
// constructors; nothing reads configuration from ambient globals.
type Config struct {
	LLMBaseURL         string
	LLMModelName       string
	ExpertModelName    string
	LLMAPIKey          string
	EmbeddingBaseURL   string
	EmbeddingModelName string
	DBPath             string
	RawDataPath        string
	QdrantURL          string
	QdrantCollection   string
	QdrantVectorSize   int
	APIPort            string
	VisionBaseURL      string
	QueryTimeout       time.Duration
	DedupeThreshold    float64
	RetrievalTopK      int
	RetrievalLanguage  string
	LogLevel           slog.Level
	LogFormat          string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	// Check current directory first, then walk up to find project root (where go.mod is)
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break // Reached filesystem root
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMBaseURL:         getEnv("LLM_BASE_URL", "https://api.openai.com"),
		LLMModelName:       getEnv("LLM_MODEL", "gpt-4-turbo"),
		ExpertModelName:    getEnv("EXPERT_MODEL", ""),
		LLMAPIKey:          getEnv("LLM_API_KEY", ""),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "https://api.openai.com"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "text-embedding-3-small"),
		DBPath:             getEnv("DB_PATH", "./data/rasoi-ai.db"),
		RawDataPath:        getEnv("RAW_DATA_PATH", "./data/raw"),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "cooking-assistant-rag"),
		APIPort:            getEnv("API_PORT", "8000"),
		VisionBaseURL:      getEnv("VISION_BASE_URL", ""),
		RetrievalLanguage:  getEnv("RETRIEVAL_LANGUAGE", ""),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	// The API key is required: the process must refuse to start without it
	// rather than run with every completion call failing.
	if cfg.LLMAPIKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required")
	}

	// Parse QDRANT_VECTOR_SIZE.
	// This must match the output vector size of the embeddings model
	// (1536 for text-embedding-3-small). If the vector size changes, the
	// Qdrant collection must be recreated.
	vectorSizeStr := getEnv("QDRANT_VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be greater than 0")
	}
	cfg.QdrantVectorSize = vectorSize

	// Per-query timeout applied to every outbound model/store call.
	timeoutStr := getEnv("QUERY_TIMEOUT_SECONDS", "30")
	timeoutSec, err := strconv.Atoi(timeoutStr)
	if err != nil || timeoutSec <= 0 {
		return nil, fmt.Errorf("QUERY_TIMEOUT_SECONDS must be a positive integer")
	}
	cfg.QueryTimeout = time.Duration(timeoutSec) * time.Second

	thresholdStr := getEnv("DEDUPE_SIMILARITY_THRESHOLD", "0.85")
	threshold, err := strconv.ParseFloat(thresholdStr, 64)
	if err != nil || threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("DEDUPE_SIMILARITY_THRESHOLD must be in (0, 1]")
	}
	cfg.DedupeThreshold = threshold

	topKStr := getEnv("RETRIEVAL_TOP_K", "3")
	topK, err := strconv.Atoi(topKStr)
	if err != nil || topK <= 0 {
		return nil, fmt.Errorf("RETRIEVAL_TOP_K must be a positive integer")
	}
	cfg.RetrievalTopK = topK

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	// Create the data directory if it doesn't exist (for the DB file)
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// parseLogLevel converts a level name to a slog.Level.
func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid LOG_LEVEL: %q", s)
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
