package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "storefront.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "STOREFRONT_PORT")
	setString(&cfg.Server.CORSOrigin, "STOREFRONT_CORS_ORIGIN")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "STOREFRONT_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "STOREFRONT_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "STOREFRONT_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "STOREFRONT_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "STOREFRONT_PG_HEALTH_CHECK")
	setDuration(&cfg.Postgres.TxTimeout, "STOREFRONT_PG_TX_TIMEOUT")
	setDuration(&cfg.Postgres.LockTimeout, "STOREFRONT_PG_LOCK_TIMEOUT")

	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")
	setDuration(&cfg.Redis.OpTimeout, "STOREFRONT_CACHE_OP_TIMEOUT")

	setString(&cfg.NATS.URL, "NATS_URL")
	setInt(&cfg.NATS.MaxDeliver, "STOREFRONT_JOB_MAX_DELIVER")
	setDuration(&cfg.NATS.RetryDelay, "STOREFRONT_JOB_RETRY_DELAY")

	setInt64(&cfg.Cache.L1MaxSizeMB, "STOREFRONT_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.SingleTTL, "STOREFRONT_CACHE_SINGLE_TTL")
	setDuration(&cfg.Cache.ListingTTL, "STOREFRONT_CACHE_LISTING_TTL")

	setString(&cfg.SMTP.Host, "SMTP_HOST")
	setInt(&cfg.SMTP.Port, "SMTP_PORT")
	setString(&cfg.SMTP.From, "SMTP_FROM")
	setString(&cfg.SMTP.Password, "SMTP_PASSWORD")

	setString(&cfg.Uploads.CloudURL, "STOREFRONT_UPLOAD_URL")
	setString(&cfg.Uploads.UploadPreset, "STOREFRONT_UPLOAD_PRESET")
	setString(&cfg.Uploads.Folder, "STOREFRONT_UPLOAD_FOLDER")
	setString(&cfg.Uploads.TempDir, "STOREFRONT_UPLOAD_TEMP_DIR")

	setString(&cfg.Auth.TokenSecret, "STOREFRONT_TOKEN_SECRET")
	setDuration(&cfg.Auth.TokenTTL, "STOREFRONT_TOKEN_TTL")
	setInt(&cfg.Auth.BcryptCost, "STOREFRONT_BCRYPT_COST")

	setString(&cfg.Logging.Level, "STOREFRONT_LOG_LEVEL")
	setString(&cfg.Logging.Service, "STOREFRONT_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "STOREFRONT_LOG_ASYNC")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Redis.Addr == "" {
		return errors.New("redis.addr is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.NATS.MaxDeliver < 1 {
		return errors.New("nats.max_deliver must be >= 1")
	}
	if cfg.Cache.SingleTTL <= 0 || cfg.Cache.ListingTTL <= 0 {
		return errors.New("cache TTLs must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
