package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL  string
	RedisURL     string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string
	AIAPIKey     string
	EmbedModel   string
	EmbedDim     int
	GenModel     string
	KeySealSecret string
	Port         string

	ChunkSize         int
	ChunkOverlap      int
	EmbedBatchSize    int
	WorkerConcurrency int
	JobRatePerMinute  int
	MaxJobAttempts    int
	CacheTTLDays      int
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisURL:      getEnv("REDIS_URL", ""),
		AwsAccessKey:  getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:  getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:     getEnv("AWS_REGION", "us-east-2"),
		BucketName:    getEnv("BUCKET_NAME", "vectorpipe-docs"),
		AIAPIKey:      getEnv("GEMINI_API_KEY", ""),
		EmbedModel:    getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:      getEnvInt("EMBED_DIM", 768),
		GenModel:      getEnv("GEN_MODEL", "gemini-1.5-flash"),
		KeySealSecret: getEnv("KEY_SEAL_SECRET", ""),
		Port:          getEnv("PORT", "8080"),

		ChunkSize:         getEnvInt("CHUNK_SIZE", 500),
		ChunkOverlap:      getEnvInt("CHUNK_OVERLAP", 50),
		EmbedBatchSize:    getEnvInt("EMBED_BATCH_SIZE", 100),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 3),
		JobRatePerMinute:  getEnvInt("JOB_RATE_PER_MINUTE", 10),
		MaxJobAttempts:    getEnvInt("MAX_JOB_ATTEMPTS", 3),
		CacheTTLDays:      getEnvInt("CONVERSION_CACHE_TTL_DAYS", 30),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}
