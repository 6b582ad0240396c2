package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the planner API and supporting services.
type Config struct {
	Env             string
	MySQLDSN        string
	HTTPListenAddr  string
	LogLevel        string
	RequestTimeout  time.Duration
	SessionSecret   string
	SessionTTL      time.Duration
	CookieSecure    bool
	OwnerOpenID     string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	SentryDSN       string
	S3Endpoint      string
	S3Region        string
	S3AccessKey     string
	S3SecretKey     string
	S3Bucket        string
	S3PublicBaseURL string
	S3UsePathStyle  bool
	S3Prefix        string
	BankAccountName string
	BankAccountNo   string
	BankName        string
	BankSwiftCode   string
}

// Load reads configuration from environment variables, applying sane defaults.
// The store is optional so the API can boot without one during local
// development; commands check what they need with Require.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Env:             getEnv("ENV", "development"),
		HTTPListenAddr:  getEnv("HTTP_LISTEN_ADDR", ":8080"),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		RequestTimeout:  time.Second * time.Duration(getInt("HTTP_TIMEOUT_SECONDS", 15)),
		SessionTTL:      time.Hour * time.Duration(getInt("SESSION_TTL_HOURS", 24*365)),
		CookieSecure:    getBool("COOKIE_SECURE", false),
		OwnerOpenID:     strings.TrimSpace(os.Getenv("OWNER_OPEN_ID")),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         getInt("REDIS_DB", 0),
		SentryDSN:       os.Getenv("SENTRY_DSN"),
		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		S3Region:        os.Getenv("S3_REGION"),
		S3AccessKey:     os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:     os.Getenv("S3_SECRET_KEY"),
		S3Bucket:        os.Getenv("S3_BUCKET"),
		S3PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
		S3UsePathStyle:  getBool("S3_USE_PATH_STYLE", false),
		S3Prefix:        getEnv("S3_PREFIX", "payment-proofs"),
		BankAccountName: getEnv("BANK_ACCOUNT_NAME", "Content Calendar Lite"),
		BankAccountNo:   getEnv("BANK_ACCOUNT_NUMBER", "1234567890"),
		BankName:        getEnv("BANK_NAME", "Example Bank"),
		BankSwiftCode:   getEnv("BANK_SWIFT", "EXBLUS33"),
	}

	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")
	if cfg.MySQLDSN == "" {
		cfg.MySQLDSN = os.Getenv("DATABASE_URL")
	}
	cfg.SessionSecret = os.Getenv("SESSION_SECRET")

	return cfg, nil
}

// Require fails when any of the named environment-backed settings is empty.
// Supported names are SESSION_SECRET and MYSQL_DSN.
func (c Config) Require(keys ...string) error {
	var missing []string
	for _, key := range keys {
		switch key {
		case "SESSION_SECRET":
			if c.SessionSecret == "" {
				missing = append(missing, key)
			}
		case "MYSQL_DSN":
			if c.MySQLDSN == "" {
				missing = append(missing, key)
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}
	return nil
}

// StorageEnabled reports whether every setting needed for proof uploads is present.
func (c Config) StorageEnabled() bool {
	return c.S3Region != "" && c.S3AccessKey != "" && c.S3SecretKey != "" && c.S3Bucket != "" && c.S3PublicBaseURL != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
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

func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	// Environment variables alone are enough.
	return nil
}
