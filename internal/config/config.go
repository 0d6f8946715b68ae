package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings for the server and worker binaries.
// Values come from the environment, optionally seeded from a .env file.
type Config struct {
	Port          string
	MaxUploadSize int64
	LogLevel      string
	Development   bool

	DBType     string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	SQLitePath string

	MigrationsPath string

	BlobDir     string
	BlobBaseURL string

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	DetectorURL     string
	DetectorTimeout time.Duration

	FetchTimeout time.Duration
	SessionTTL   time.Duration
}

func Load() (*Config, error) {
	// Missing .env is fine, the environment may be set directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getenv("PORT", "8080"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		Development:    getenv("APP_ENV", "development") != "production",
		DBType:         getenv("DB_TYPE", "sqlite"),
		DBHost:         getenv("DB_HOST", "localhost"),
		DBUser:         getenv("DB_USER", "vidobj"),
		DBPassword:     getenv("DB_PASSWORD", ""),
		DBName:         getenv("DB_NAME", "vidobj"),
		SQLitePath:     getenv("DB_PATH", "./vidobj.db"),
		MigrationsPath: getenv("MIGRATIONS_PATH", "./internal/database/migrations"),
		BlobDir:        getenv("BLOB_DIR", "./blobs"),
		BlobBaseURL:    getenv("BLOB_BASE_URL", "http://localhost:8080"),
		KafkaTopic:     getenv("KAFKA_TOPIC", "process_video"),
		KafkaGroupID:   getenv("KAFKA_GROUP_ID", "vidobj-workers"),
		DetectorURL:    getenv("DETECTOR_URL", "http://localhost:9090"),
	}

	cfg.KafkaBrokers = strings.Split(getenv("KAFKA_BROKERS", "localhost:9092"), ",")

	var err error
	if cfg.MaxUploadSize, err = getenvInt64("MAX_UPLOAD_SIZE", 104857600); err != nil {
		return nil, err
	}
	if cfg.DBPort, err = getenvInt("DB_PORT", 5432); err != nil {
		return nil, err
	}
	if cfg.DetectorTimeout, err = getenvDuration("DETECTOR_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = getenvDuration("FETCH_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getenvDuration("SESSION_TTL", 5*time.Minute); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvInt64(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
