package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	defaultCheckinQueueSize  = 200
	defaultNumCheckinWorkers = 4
	defaultPresignExpiry     = 300
	defaultHumeRPS           = 5
)

const (
	DefaultHumeBaseURL  = "https://api.hume.ai/v0"
	DefaultOpenAIModel  = "gpt-4o-2024-08-06"
	DefaultPollInterval = 2 * time.Second
	DefaultPollTimeout  = 30 * time.Second
	DefaultGenTimeout   = 30 * time.Second
)

type Config struct {
	Port         string
	DatabasePath string

	AllowedOrigins []string

	// secret used to verify identity-provider access tokens (HS256)
	JWTSecret string

	// object storage (S3 compatible, e.g. R2)
	StorageEndpoint  string
	StorageRegion    string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	PresignExpiry    time.Duration

	// emotion analysis provider
	HumeAPIKey            string
	HumeBaseURL           string
	HumePollInterval      time.Duration
	HumePollTimeout       time.Duration
	HumeRequestsPerSecond int

	// narrative provider
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	GenerationTimeout time.Duration

	// worker settings
	CheckinQueueSize  int
	NumCheckinWorkers int
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Warnf("Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvDurationOrDefault(envVar string, defaultVal time.Duration) time.Duration {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := time.ParseDuration(valStr)
	if err != nil || val <= 0 {
		log.Warnf("Invalid %s '%s'. Using default %s. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func LoadConfig() (Config, error) {
	cfg := Config{
		Port:           getEnvOrDefault("PORT", "8080"),
		DatabasePath:   getEnvOrDefault("DATABASE_PATH", "echo.db"),
		AllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		JWTSecret:      os.Getenv("JWT_SECRET"),

		StorageEndpoint:  os.Getenv("R2_ENDPOINT"),
		StorageRegion:    getEnvOrDefault("R2_REGION", "auto"),
		StorageAccessKey: os.Getenv("R2_ACCESS_KEY_ID"),
		StorageSecretKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		StorageBucket:    os.Getenv("R2_BUCKET_NAME"),
		PresignExpiry:    time.Duration(getEnvIntOrDefault("PRESIGN_EXPIRY_SECONDS", defaultPresignExpiry)) * time.Second,

		HumeAPIKey:            os.Getenv("HUME_API_KEY"),
		HumeBaseURL:           strings.TrimRight(getEnvOrDefault("HUME_BASE_URL", DefaultHumeBaseURL), "/"),
		HumePollInterval:      getEnvDurationOrDefault("HUME_POLL_INTERVAL", DefaultPollInterval),
		HumePollTimeout:       getEnvDurationOrDefault("HUME_POLL_TIMEOUT", DefaultPollTimeout),
		HumeRequestsPerSecond: getEnvIntOrDefault("HUME_REQUESTS_PER_SECOND", defaultHumeRPS),

		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:       getEnvOrDefault("OPENAI_MODEL", DefaultOpenAIModel),
		GenerationTimeout: getEnvDurationOrDefault("GENERATION_TIMEOUT", DefaultGenTimeout),

		CheckinQueueSize:  getEnvIntOrDefault("CHECKIN_QUEUE_SIZE", defaultCheckinQueueSize),
		NumCheckinWorkers: getEnvIntOrDefault("NUM_CHECKIN_WORKERS", defaultNumCheckinWorkers),
	}

	if cfg.HumePollInterval > cfg.HumePollTimeout {
		return Config{}, fmt.Errorf("HUME_POLL_INTERVAL (%s) must not exceed HUME_POLL_TIMEOUT (%s)", cfg.HumePollInterval, cfg.HumePollTimeout)
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}
