package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Keepa    ProviderConfig `mapstructure:"keepa"`
	Identity ProviderConfig `mapstructure:"identity"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	Path            string        `mapstructure:"path"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN builds the driver-specific connection string.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	}
	return c.Path
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

// ProviderConfig configures one external enrichment provider, including the
// cross-worker requests-per-second ceiling enforced by the rate limiter.
type ProviderConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestsPerSec int           `mapstructure:"requests_per_sec"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type TelegramConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	BotToken     string        `mapstructure:"bot_token"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type IngestConfig struct {
	BatchSize    int `mapstructure:"batch_size"`
	Workers      int `mapstructure:"workers"`
	MaxRowErrors int `mapstructure:"max_row_errors"`
}

type WorkerConfig struct {
	Concurrency    int           `mapstructure:"concurrency"`
	MaxRetry       int           `mapstructure:"max_retry"`
	RetryBase      time.Duration `mapstructure:"retry_base"`
	RepriceEvery   time.Duration `mapstructure:"reprice_every"`
	RepricePerUser int           `mapstructure:"reprice_per_user"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	File        string `mapstructure:"file"`
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
	ServiceName string `mapstructure:"service_name"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/habexa.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.bucket", "catalogs")
	v.SetDefault("keepa.base_url", "https://api.keepa.com")
	v.SetDefault("keepa.requests_per_sec", 5)
	v.SetDefault("keepa.timeout", 30*time.Second)
	v.SetDefault("identity.base_url", "https://api.upcitemdb.com/prod/trial")
	v.SetDefault("identity.requests_per_sec", 5)
	v.SetDefault("identity.timeout", 30*time.Second)
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.poll_interval", 30*time.Second)
	v.SetDefault("ingest.batch_size", 100)
	v.SetDefault("ingest.workers", 4)
	v.SetDefault("ingest.max_row_errors", 500)
	v.SetDefault("worker.concurrency", 5)
	v.SetDefault("worker.max_retry", 3)
	v.SetDefault("worker.retry_base", 60*time.Second)
	v.SetDefault("worker.reprice_every", 6*time.Hour)
	v.SetDefault("worker.reprice_per_user", 500)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 14)
	v.SetDefault("log.service_name", "habexa")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("keepa.api_key", "KEEPA_API_KEY")
	v.BindEnv("identity.api_key", "IDENTITY_API_KEY")
	v.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
