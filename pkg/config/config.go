package config

import (
	"os"
	"strconv"
)

type Config struct {
	GoogleAPIKey   string
	TavilyAPIKey   string
	DatabaseURL    string
	GeminiModel    string
	ChatModel      string
	EmbeddingModel string
	CollectionName string
	SearchProvider string
	Port           string
	ChunkSize      int
	ChunkOverlap   int
}

func Load() *Config {
	return &Config{
		GoogleAPIKey:   googleKey(),
		TavilyAPIKey:   getEnv("TAVILY_API_KEY", ""),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.0-flash-lite"),
		ChatModel:      getEnv("CHAT_MODEL", "gemini-2.0-flash"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "gemini-embedding-001"),
		CollectionName: getEnv("COLLECTION_NAME", "research_archive"),
		SearchProvider: getEnv("SEARCH_PROVIDER", "tavily"),
		Port:           getEnv("PORT", "8000"),
		ChunkSize:      getEnvAsInt("CHUNK_SIZE", 1000),
		ChunkOverlap:   getEnvAsInt("CHUNK_OVERLAP", 200),
	}
}

// googleKey prefers GEMINI_API_KEY and falls back to GOOGLE_API_KEY.
func googleKey() string {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		return v
	}
	return os.Getenv("GOOGLE_API_KEY")
}

// MissingKeyError reports a required credential that was not set.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return "Missing " + e.Key
}

// Validate checks that the credentials needed to run research are present.
// It returns a *MissingKeyError naming the first absent one.
func (c *Config) Validate() error {
	if c.GoogleAPIKey == "" {
		return &MissingKeyError{Key: "GEMINI_API_KEY or GOOGLE_API_KEY"}
	}
	if c.TavilyAPIKey == "" {
		return &MissingKeyError{Key: "TAVILY_API_KEY"}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
