// Package config loads all service connection settings from environment
// variables, with sane defaults for local development. No secrets are ever
// hardcoded. Keys match spec.md §6.
package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	// PostgreSQL
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSchema   string
	DBPoolSize int

	// Redis — queue backend
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// Supervisor / worker cluster
	ClusterEnabled bool
	ClusterWorkers int

	// Shopee credentials and environment
	ShopeeAPIURL     string
	ShopeePartnerID  int64
	ShopeePartnerKey string
	ShopeeIsSandbox  bool

	// Scheduler cadence
	CronExpression string

	// Retry / batch / parallelism knobs
	MaxRetryCount  int
	OrderBatchSize int
	JobConcurrency int

	// Search projection (optional — empty disables Elasticsearch entirely)
	ElasticsearchURL string

	// Boundary only — out of scope for the ingestion core, kept here so a
	// single Load() populates the whole process.
	APIPort string
	APIHost string
	LogLevel string
	LogDir   string
}

// Load reads environment variables and returns a populated Config.
func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBName:     getEnv("DB_NAME", "shopee_ingest"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBSchema:   getEnv("DB_SCHEMA", "public"),
		DBPoolSize: getEnvInt("DB_POOL_SIZE", 10),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnvInt("REDIS_PORT", 6379),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		ClusterEnabled: getEnvBool("CLUSTER_ENABLED", false),
		ClusterWorkers: getEnvInt("CLUSTER_WORKERS", 0),

		ShopeeAPIURL:     getEnv("SHOPEE_API_URL", "https://partner.shopeemobile.com"),
		ShopeePartnerID:  getEnvInt64("SHOPEE_PARTNER_ID", 0),
		ShopeePartnerKey: getEnv("SHOPEE_PARTNER_KEY", ""),
		ShopeeIsSandbox:  getEnvBool("SHOPEE_IS_SANDBOX", false),

		CronExpression: getEnv("CRON_EXPRESSION", "*/10 * * * *"),

		MaxRetryCount:  getEnvInt("MAX_RETRY_COUNT", 3),
		OrderBatchSize: getEnvInt("ORDER_BATCH_SIZE", 50),
		JobConcurrency: getEnvInt("JOB_CONCURRENCY", 5),

		ElasticsearchURL: getEnv("ELASTICSEARCH_URL", ""),

		APIPort:  getEnv("API_PORT", "8080"),
		APIHost:  getEnv("API_HOST", "0.0.0.0"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogDir:   getEnv("LOG_DIR", "./logs"),
	}
}

// PostgresDSN builds a lib/pq-compatible connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=disable search_path=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSchema,
	)
}

// RedisAddr builds a host:port address for go-redis.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// ShopeeBaseURL resolves the production vs sandbox host per spec.md §6.
// The callers pass the process-level SHOPEE_IS_SANDBOX flag; no per-company
// sandbox override is applied to the base URL.
func (c *Config) ShopeeBaseURL(sandbox bool) string {
	if sandbox {
		return "https://partner.test-stable.shopeemobile.com"
	}
	return c.ShopeeAPIURL
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
