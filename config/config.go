package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string

	CloudConvertAPIKey  string
	CloudConvertBaseURL string

	MuxTokenID     string
	MuxTokenSecret string
	MuxBaseURL     string

	SupabaseURL       string
	StorageBucket     string
	VideoBucket       string
	SignedURLExpires  int
	S3Region          string
	S3AccessKey       string
	S3SecretKey       string
	S3Endpoint        string
	S3UsePathStyle    bool
	DatabaseURL       string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	RedisPrefix       string
	AlgoliaAppID      string
	AlgoliaAdminKey   string
	AlgoliaIndexName  string
	ConversionTimeout int
	PollIntervalMS    int
	AllowedHosts      []string
}

// Load reads .env.local and .env (existing environment wins) and then the
// process environment.
func Load() *Config {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	supabaseURL := strings.TrimRight(getEnvWithFallback("SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL", ""), "/")
	storageBucket := getEnv("SUPABASE_STORAGE_BUCKET", "")

	// Supabase exposes an S3-compatible endpoint per project.
	s3Endpoint := getEnv("S3_ENDPOINT", "")
	if s3Endpoint == "" && supabaseURL != "" {
		s3Endpoint = supabaseURL + "/storage/v1/s3"
	}

	return &Config{
		Port:     getEnv("SERVICE_PORT", "8080"),
		Env:      getEnv("ENV", "production"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		CloudConvertAPIKey:  getEnv("CLOUDCONVERT_API_KEY", ""),
		CloudConvertBaseURL: getEnv("CLOUDCONVERT_BASE_URL", "https://api.cloudconvert.com/v2"),

		MuxTokenID:     getEnv("MUX_TOKEN_ID", ""),
		MuxTokenSecret: getEnv("MUX_TOKEN_SECRET", ""),
		MuxBaseURL:     getEnv("MUX_BASE_URL", "https://api.mux.com"),

		SupabaseURL:      supabaseURL,
		StorageBucket:    storageBucket,
		VideoBucket:      getEnv("SUPABASE_VIDEO_BUCKET", storageBucket),
		SignedURLExpires: getEnvInt("SUPABASE_SIGNED_URL_EXPIRES", 3600),
		S3Region:         getEnvWithFallback("S3_REGION", "AWS_DEFAULT_REGION", "us-east-1"),
		S3AccessKey:      getEnvWithFallback("S3_KEY", "AWS_ACCESS_KEY_ID", ""),
		S3SecretKey:      getEnvWithFallback("S3_SECRET", "AWS_SECRET_ACCESS_KEY", ""),
		S3Endpoint:       s3Endpoint,
		S3UsePathStyle:   getEnvBool("S3_USE_PATH_STYLE_ENDPOINT", true),
		DatabaseURL:      databaseURL(),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		RedisPrefix:      getEnv("REDIS_PREFIX", ""),
		AlgoliaAppID:     getEnvWithFallback("ALGOLIA_APP_ID", "NEXT_PUBLIC_ALGOLIA_APP_ID", ""),
		AlgoliaAdminKey:  getEnv("ALGOLIA_ADMIN_KEY", ""),
		AlgoliaIndexName: getEnv("ALGOLIA_INDEX_NAME", "mediaondemand_content"),

		ConversionTimeout: getEnvInt("CONVERSION_TIMEOUT", 120),
		PollIntervalMS:    getEnvInt("CONVERSION_POLL_INTERVAL_MS", 1500),
		AllowedHosts:      getEnvList("ALLOWED_DOCUMENT_HOSTS", []string{"gutenberg.org", "www.gutenberg.org"}),
	}
}

// databaseURL prefers DATABASE_URL and otherwise builds a lib/pq key=value
// string from DB_* variables. An empty result disables the event table.
func databaseURL() string {
	if url := getEnv("DATABASE_URL", ""); url != "" {
		return url
	}

	dbHost := getEnv("DB_HOST", "")
	if dbHost == "" {
		return ""
	}
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_DATABASE", "postgres")
	dbUser := getEnv("DB_USERNAME", "postgres")
	dbPassword := getEnv("DB_PASSWORD", "")
	dbSSLMode := getEnv("DB_SSLMODE", "require")

	// key=value form avoids URI escaping issues for special characters in passwords.
	dbURL := fmt.Sprintf("host=%s port=%s dbname=%s user=%s sslmode=%s", dbHost, dbPort, dbName, dbUser, dbSSLMode)
	if dbPassword != "" {
		dbURL += fmt.Sprintf(" password=%s", dbPassword)
	}
	if rootCert := getEnv("DB_SSLROOTCERT", ""); rootCert != "" {
		dbURL += fmt.Sprintf(" sslrootcert=%s", rootCert)
	}
	return dbURL
}

func (c *Config) ConversionBudget() time.Duration {
	return time.Duration(c.ConversionTimeout) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

func (c *Config) SignedURLExpiry() time.Duration {
	return time.Duration(c.SignedURLExpires) * time.Second
}

func (c *Config) StorageConfigured() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != "" && c.StorageBucket != ""
}

func (c *Config) VideoStorageConfigured() bool {
	return c.StorageConfigured() && c.VideoBucket != ""
}

func (c *Config) CloudConvertConfigured() bool {
	return c.CloudConvertAPIKey != ""
}

func (c *Config) MuxConfigured() bool {
	return c.MuxTokenID != "" && c.MuxTokenSecret != ""
}

func (c *Config) AlgoliaConfigured() bool {
	return c.AlgoliaAppID != "" && c.AlgoliaAdminKey != ""
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvWithFallback(primaryKey, secondaryKey, fallback string) string {
	if value := os.Getenv(primaryKey); value != "" {
		return value
	}
	if value := os.Getenv(secondaryKey); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// ApplyPrefix namespaces a shared-store key.
func ApplyPrefix(key string, prefix string) string {
	if prefix == "" {
		return key
	}
	return prefix + key
}
