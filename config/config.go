package config

import (
	"os"
	"strconv"
	"strings"
)

// Config carries the environment-driven settings for the service.
// Zero values mean "not configured" and components fall back to their
// in-process defaults (in-memory store, inline queues).
type Config struct {
	Port string

	CohereAPIKey string
	ChatModel    string
	EmbedModel   string
	Dimensions   int

	// Backend selects the persistence store: "memory", "redis" or "chroma".
	Backend string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ChromaHost       string
	ChromaPort       int
	ChromaCollection string

	KafkaBrokers []string
	KafkaGroupID string

	// Raw-content archive (optional)
	S3Bucket string
	S3Region string
}

// Load reads configuration from the environment. godotenv is expected to
// have been loaded by the caller.
func Load() Config {
	cfg := Config{
		Port:             getEnv("PORT", "8080"),
		CohereAPIKey:     os.Getenv("COHERE_API_KEY"),
		ChatModel:        getEnv("COHERE_CHAT_MODEL", ChatModel),
		EmbedModel:       getEnv("COHERE_EMBED_MODEL", EmbeddingModel),
		Dimensions:       getEnvInt("EMBEDDING_DIMENSIONS", EmbeddingDimensions),
		Backend:          getEnv("STORE_BACKEND", "memory"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		ChromaHost:       getEnv("CHROMA_HOST", "localhost"),
		ChromaPort:       getEnvInt("CHROMA_PORT", 8000),
		ChromaCollection: getEnv("CHROMA_COLLECTION", "insighthub_content"),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", "insighthub"),
		S3Bucket:         os.Getenv("ARCHIVE_S3_BUCKET"),
		S3Region:         os.Getenv("AWS_REGION"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
