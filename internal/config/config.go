package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"epicdash/internal/storage"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// envPaths are tried in order; the first .env found wins
var envPaths = []string{".env", "../.env", "../../.env"}

// Config holds every setting the binaries read from the environment
type Config struct {
	DataDir  string
	Password string
	TempDir  string

	Port               string
	CORSAllowedOrigins []string
	RateLimitPerSec    float64
	RateLimitBurst     int

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Prefix    string

	ExportSQLitePath string
	TursoURL         string
	TursoToken       string
	DatabaseURL      string
	ExportWorkers    int

	DiscordWebhookURL string
	LogLevel          string
}

// LoadEnv loads the first .env file found. A missing file is not an error.
func LoadEnv() {
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			log.Infof("Loaded .env from: %s", path)
			return
		}
	}
	log.Info("No .env file found, using environment variables")
}

// Load reads the configuration from the environment
func Load() *Config {
	password := os.Getenv("ARTIFACT_PW")
	if password == "" {
		password = os.Getenv("PICKLE_PW")
	}

	return &Config{
		DataDir:  envOrDefault("DATA_DIR", "dsc_data"),
		Password: password,
		TempDir:  os.Getenv("TEMP_DIR"),

		Port:               envOrDefault("PORT", "8080"),
		CORSAllowedOrigins: splitList(envOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		RateLimitPerSec:    envOrDefaultFloat("RATE_LIMIT_REQUESTS_PER_SEC", 10),
		RateLimitBurst:     envOrDefaultInt("RATE_LIMIT_BURST", 20),

		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3Region:    envOrDefault("S3_REGION", "us-east-1"),
		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Prefix:    os.Getenv("S3_PREFIX"),

		ExportSQLitePath: envOrDefault("EXPORT_SQLITE_PATH", "export/epic.db"),
		TursoURL:         os.Getenv("TURSO_DATABASE_URL"),
		TursoToken:       os.Getenv("TURSO_AUTH_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		ExportWorkers:    envOrDefaultInt("EXPORT_WORKERS", 4),

		DiscordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),
		LogLevel:          envOrDefault("LOG_LEVEL", "info"),
	}
}

// Secret returns the artifact password or storage.ErrMissingSecret
func (c *Config) Secret() (string, error) {
	if c.Password == "" {
		return "", storage.ErrMissingSecret
	}
	return c.Password, nil
}

// Source returns the S3 bucket when one is configured, otherwise the local data directory
func (c *Config) Source(ctx context.Context) (storage.Source, error) {
	if c.S3Bucket == "" {
		return storage.NewLocalSource(c.DataDir), nil
	}
	src, err := storage.NewS3Source(ctx, c.S3Region, c.S3Endpoint, c.S3AccessKey, c.S3SecretKey, c.S3Bucket, c.S3Prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %s: %w", c.S3Bucket, err)
	}
	return src, nil
}

// Vault opens the configured source behind the artifact password
func (c *Config) Vault(ctx context.Context) (*storage.Vault, error) {
	password, err := c.Secret()
	if err != nil {
		return nil, err
	}
	src, err := c.Source(ctx)
	if err != nil {
		return nil, err
	}
	return storage.NewVault(src, password, c.TempDir)
}

// SetupLogging applies LogLevel to the global logger
func (c *Config) SetupLogging() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.Warnf("Unknown LOG_LEVEL %q, using info", c.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warnf("Invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func envOrDefaultFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warnf("Invalid %s=%q, using %g", key, v, def)
		return def
	}
	return f
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
