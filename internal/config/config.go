package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Feed    FeedConfig    `yaml:"feed" mapstructure:"feed"`
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// FeedConfig configures the upstream product feed.
type FeedConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	Format      string `yaml:"format" mapstructure:"format"` // auto, xlsx or csv
	Charset     string `yaml:"charset" mapstructure:"charset"`
	Sheet       string `yaml:"sheet" mapstructure:"sheet"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	MaxBytes    int64  `yaml:"max_bytes" mapstructure:"max_bytes"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
}

// CatalogConfig configures caching, refresh cadence and search defaults.
type CatalogConfig struct {
	MaxAge          time.Duration `yaml:"max_age" mapstructure:"max_age"`
	RefreshInterval time.Duration `yaml:"refresh_interval" mapstructure:"refresh_interval"`
	CheckInterval   time.Duration `yaml:"check_interval" mapstructure:"check_interval"`
	VocabularyPath  string        `yaml:"vocabulary_path" mapstructure:"vocabulary_path"`
	StoreBaseURL    string        `yaml:"store_base_url" mapstructure:"store_base_url"`
	DefaultLimit    int           `yaml:"default_limit" mapstructure:"default_limit"`
}

// StoreConfig configures where the catalog snapshot is persisted.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // file, sqlite or postgres
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the search API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RefreshToken   string   `yaml:"refresh_token" mapstructure:"refresh_token"` // empty disables POST /api/catalog/refresh
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. With an empty path an
// optional config.yaml in the working directory is used; an explicit path must
// exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("ASSISTANT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("feed.url", "https://dveri-ekat.ru/marketplace/2629822.xls")
	v.SetDefault("feed.format", "auto")
	v.SetDefault("feed.charset", "utf-8")
	v.SetDefault("feed.sheet", "")
	v.SetDefault("feed.timeout_secs", 60)
	v.SetDefault("feed.max_retries", 3)
	v.SetDefault("feed.max_bytes", 64<<20)
	v.SetDefault("feed.user_agent", "door-assistant/1.0")
	v.SetDefault("catalog.max_age", "24h")
	v.SetDefault("catalog.refresh_interval", "168h")
	v.SetDefault("catalog.check_interval", "1h")
	v.SetDefault("catalog.vocabulary_path", "")
	v.SetDefault("catalog.store_base_url", "https://dveri-ekat.ru")
	v.SetDefault("catalog.default_limit", 7)
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.path", "catalog-cache.json")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.allowed_origins", []string{"https://dveri-ekat.ru", "http://localhost:3000"})
	v.SetDefault("server.refresh_token", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Mode is one of
// "serve", "refresh" or "search".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve", "refresh", "search":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if mode != "search" && strings.TrimSpace(c.Feed.URL) == "" {
		errs = append(errs, "feed.url is required")
	}
	switch c.Feed.Format {
	case "", "auto", "xlsx", "csv":
	default:
		errs = append(errs, "feed.format must be one of auto, xlsx, csv")
	}

	switch c.Store.Driver {
	case "file", "sqlite":
		if c.Store.Path == "" {
			errs = append(errs, "store.path is required for the "+c.Store.Driver+" driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the postgres driver")
		}
	default:
		errs = append(errs, "store.driver must be one of file, sqlite, postgres")
	}

	if c.Catalog.DefaultLimit < 1 || c.Catalog.DefaultLimit > 100 {
		errs = append(errs, "catalog.default_limit must be between 1 and 100")
	}
	if c.Catalog.MaxAge < 0 {
		errs = append(errs, "catalog.max_age must be >= 0")
	}

	if mode == "serve" {
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Catalog.RefreshInterval <= 0 {
			errs = append(errs, "catalog.refresh_interval must be > 0")
		}
		if c.Catalog.CheckInterval <= 0 {
			errs = append(errs, "catalog.check_interval must be > 0")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
