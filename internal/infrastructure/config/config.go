package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App           AppConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Log           LogConfig
	HTTP          HTTPConfig
	Telemetry     TelemetryConfig
	Marketplace   MarketplaceConfig
	ProductStatus ProductStatusConfig
	Cache         CacheConfig
	Supply        SupplyConfig
	Labels        LabelsConfig
	Storage       StorageConfig
	Backfill      BackfillConfig
}

// AppConfig holds application-level configuration
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	AutoMigrate     bool
}

// RedisConfig holds Redis connection configuration.
// An empty Host disables the Redis tier of the product cache.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port, or an empty string when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
	Output string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	TrustedProxies   []string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
	MetricsEnabled    bool // Expose Prometheus metrics on /metrics
}

// StoreConfig is one seller account.
type StoreConfig struct {
	ID           string `mapstructure:"id"`
	Name         string `mapstructure:"name"`
	Token        string `mapstructure:"token"`
	ClientSecret string `mapstructure:"client_secret"`
}

// MarketplaceConfig holds remote marketplace endpoints and the registered stores.
type MarketplaceConfig struct {
	APIBaseURL     string
	ContentBaseURL string
	Timeout        time.Duration
	UserAgent      string
	ListInterval   time.Duration // pause between catalog listing pages
	TrashInterval  time.Duration // pause between catalog archive pages
	Stores         []StoreConfig
}

// ProductStatusConfig configures the product-status source used by the scan step.
// An empty Token disables it.
type ProductStatusConfig struct {
	BaseURL    string
	Token      string
	CacheTTL   time.Duration
	RetryDelay time.Duration
}

// CacheConfig holds freshness windows of the per-store caches.
type CacheConfig struct {
	NewOrdersTTL   time.Duration
	OrdersTTL      time.Duration
	SuppliesTTL    time.Duration
	ProductTTL     time.Duration
	ProductMissTTL time.Duration
	CatalogTTL     time.Duration
	CacheDir       string
}

// SupplyConfig holds supply creation and synchronization limits.
type SupplyConfig struct {
	OrderBatchSize int
	MaxCreateCount int // 0 means unlimited
	ResolveBatch   int
	SyncInterval   time.Duration
	RateBackoff    time.Duration
}

// LabelsConfig holds label rendering parameters.
type LabelsConfig struct {
	Type      string
	Width     int
	Height    int
	BatchSize int
}

// StorageConfig holds object storage configuration for label documents.
type StorageConfig struct {
	Endpoint       string
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
	PublicEndpoint string // base URL used to build public links; defaults to Endpoint
	PublicBucket   string // bucket name used in public links; defaults to Bucket
}

// Enabled reports whether uploads can be performed.
func (s StorageConfig) Enabled() bool {
	return s.Bucket != "" && s.AccessKey != "" && s.SecretKey != ""
}

// BackfillConfig holds the product name backfill worker settings.
type BackfillConfig struct {
	Enabled      bool
	BatchSize    int
	Interval     time.Duration
	InitialDelay time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SKLAD_ prefix (e.g., SKLAD_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("SKLAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("backfill.enabled", true)
	v.SetDefault("telemetry.metrics_enabled", true)
	v.SetDefault("s3.force_path_style", true)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
		},
		Marketplace: MarketplaceConfig{
			APIBaseURL:     v.GetString("marketplace.api_base_url"),
			ContentBaseURL: v.GetString("marketplace.content_base_url"),
			Timeout:        v.GetDuration("marketplace.timeout"),
			UserAgent:      v.GetString("marketplace.user_agent"),
			ListInterval:   v.GetDuration("marketplace.list_interval"),
			TrashInterval:  v.GetDuration("marketplace.trash_interval"),
			Stores:         loadStores(v),
		},
		ProductStatus: ProductStatusConfig{
			BaseURL:    v.GetString("product_status.base_url"),
			Token:      v.GetString("product_status.token"),
			CacheTTL:   v.GetDuration("product_status.cache_ttl"),
			RetryDelay: v.GetDuration("product_status.retry_delay"),
		},
		Cache: CacheConfig{
			NewOrdersTTL:   v.GetDuration("cache.new_orders_ttl"),
			OrdersTTL:      v.GetDuration("cache.orders_ttl"),
			SuppliesTTL:    v.GetDuration("cache.supplies_ttl"),
			ProductTTL:     v.GetDuration("cache.product_ttl"),
			ProductMissTTL: v.GetDuration("cache.product_miss_ttl"),
			CatalogTTL:     v.GetDuration("cache.catalog_ttl"),
			CacheDir:       v.GetString("cache.cache_dir"),
		},
		Supply: SupplyConfig{
			OrderBatchSize: v.GetInt("supply.order_batch_size"),
			MaxCreateCount: v.GetInt("supply.max_create_count"),
			ResolveBatch:   v.GetInt("supply.resolve_batch"),
			SyncInterval:   v.GetDuration("supply.sync_interval"),
			RateBackoff:    v.GetDuration("supply.rate_backoff"),
		},
		Labels: LabelsConfig{
			Type:      v.GetString("labels.type"),
			Width:     v.GetInt("labels.width"),
			Height:    v.GetInt("labels.height"),
			BatchSize: v.GetInt("labels.batch_size"),
		},
		Storage: StorageConfig{
			Endpoint:       v.GetString("s3.endpoint"),
			Region:         v.GetString("s3.region"),
			Bucket:         v.GetString("s3.bucket"),
			AccessKey:      v.GetString("s3.access_key"),
			SecretKey:      v.GetString("s3.secret_key"),
			ForcePathStyle: v.GetBool("s3.force_path_style"),
			PublicEndpoint: v.GetString("s3.public_endpoint"),
			PublicBucket:   v.GetString("s3.public_bucket"),
		},
		Backfill: BackfillConfig{
			Enabled:      v.GetBool("backfill.enabled"),
			BatchSize:    v.GetInt("backfill.batch_size"),
			Interval:     v.GetDuration("backfill.interval"),
			InitialDelay: v.GetDuration("backfill.initial_delay"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadStores reads marketplace.stores from the config file and appends the
// two env-only slots SKLAD_STORE_1_* and SKLAD_STORE_2_*.
func loadStores(v *viper.Viper) []StoreConfig {
	var stores []StoreConfig
	_ = v.UnmarshalKey("marketplace.stores", &stores)

	for _, slot := range []string{"store_1", "store_2"} {
		s := StoreConfig{
			ID:           v.GetString(slot + ".id"),
			Name:         v.GetString(slot + ".name"),
			Token:        v.GetString(slot + ".token"),
			ClientSecret: v.GetString(slot + ".client_secret"),
		}
		if s.Token == "" {
			continue
		}
		if s.ID == "" {
			s.ID = slot
		}
		stores = append(stores, s)
	}
	return stores
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "sklad-fulfillment"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "sklad"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host != "" && cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	// WriteTimeout stays 0 unless configured: SSE streams are long-lived
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Marketplace.APIBaseURL == "" {
		cfg.Marketplace.APIBaseURL = "https://marketplace-api.wildberries.ru"
	}
	if cfg.Marketplace.ContentBaseURL == "" {
		cfg.Marketplace.ContentBaseURL = "https://content-api.wildberries.ru"
	}
	if cfg.Marketplace.Timeout == 0 {
		cfg.Marketplace.Timeout = 30 * time.Second
	}
	if cfg.Marketplace.UserAgent == "" {
		cfg.Marketplace.UserAgent = "sklad-fulfillment/1.0"
	}
	if cfg.Marketplace.ListInterval == 0 {
		cfg.Marketplace.ListInterval = 200 * time.Millisecond
	}
	if cfg.Marketplace.TrashInterval == 0 {
		cfg.Marketplace.TrashInterval = 650 * time.Millisecond
	}
	if cfg.ProductStatus.BaseURL == "" {
		cfg.ProductStatus.BaseURL = "https://api.moysklad.ru/api/remap/1.2"
	}
	if cfg.ProductStatus.CacheTTL == 0 {
		cfg.ProductStatus.CacheTTL = 10 * time.Minute
	}
	if cfg.ProductStatus.RetryDelay == 0 {
		cfg.ProductStatus.RetryDelay = 300 * time.Millisecond
	}
	if cfg.Cache.NewOrdersTTL == 0 {
		cfg.Cache.NewOrdersTTL = 15 * time.Second
	}
	if cfg.Cache.OrdersTTL == 0 {
		cfg.Cache.OrdersTTL = 12 * time.Second
	}
	if cfg.Cache.SuppliesTTL == 0 {
		cfg.Cache.SuppliesTTL = 5 * time.Second
	}
	if cfg.Cache.ProductTTL == 0 {
		cfg.Cache.ProductTTL = 6 * time.Hour
	}
	if cfg.Cache.ProductMissTTL == 0 {
		cfg.Cache.ProductMissTTL = 15 * time.Minute
	}
	if cfg.Cache.CatalogTTL == 0 {
		cfg.Cache.CatalogTTL = 12 * time.Hour
	}
	if cfg.Cache.CacheDir == "" {
		cfg.Cache.CacheDir = "./cache"
	}
	if cfg.Supply.OrderBatchSize == 0 {
		cfg.Supply.OrderBatchSize = 100
	}
	if cfg.Supply.ResolveBatch == 0 {
		cfg.Supply.ResolveBatch = 30
	}
	if cfg.Supply.SyncInterval == 0 {
		cfg.Supply.SyncInterval = 60 * time.Second
	}
	if cfg.Supply.RateBackoff == 0 {
		cfg.Supply.RateBackoff = 60 * time.Second
	}
	if cfg.Labels.Type == "" {
		cfg.Labels.Type = "png"
	}
	if cfg.Labels.Width == 0 {
		cfg.Labels.Width = 58
	}
	if cfg.Labels.Height == 0 {
		cfg.Labels.Height = 40
	}
	if cfg.Labels.BatchSize == 0 {
		cfg.Labels.BatchSize = 100
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "ru-1"
	}
	if cfg.Storage.PublicEndpoint == "" {
		cfg.Storage.PublicEndpoint = cfg.Storage.Endpoint
	}
	if cfg.Storage.PublicBucket == "" {
		cfg.Storage.PublicBucket = cfg.Storage.Bucket
	}
	if cfg.Backfill.BatchSize == 0 {
		cfg.Backfill.BatchSize = 30
	}
	if cfg.Backfill.Interval == 0 {
		cfg.Backfill.Interval = 10 * time.Minute
	}
	if cfg.Backfill.InitialDelay == 0 {
		cfg.Backfill.InitialDelay = 8 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Supply.OrderBatchSize < 1 {
		return fmt.Errorf("supply.order_batch_size must be positive")
	}
	if c.Supply.MaxCreateCount < 0 {
		return fmt.Errorf("supply.max_create_count cannot be negative")
	}
	if c.Labels.BatchSize < 1 || c.Labels.BatchSize > 100 {
		return fmt.Errorf("labels.batch_size must be between 1 and 100, got %d", c.Labels.BatchSize)
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if len(c.Marketplace.Stores) == 0 {
			return fmt.Errorf("at least one marketplace store is required in production")
		}
		if !c.Storage.Enabled() {
			return fmt.Errorf("s3 bucket and credentials are required in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
