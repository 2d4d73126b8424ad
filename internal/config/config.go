package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	JWT       JWTConfig
	S3        S3Config
	Store     StoreConfig
	Review    ReviewConfig
	Log       LogConfig
	Extractor ExtractorConfig
	CORS      CORSConfig
	Queue     QueueConfig
	Email     EmailConfig
}

// EmailConfig holds reviewer notification settings.
type EmailConfig struct {
	Provider        string `mapstructure:"provider"`
	Region          string `mapstructure:"region"`
	FromAddress     string `mapstructure:"from_address"`
	FromName        string `mapstructure:"from_name"`
	ReviewerAddress string `mapstructure:"reviewer_address"`
	DashboardURL    string `mapstructure:"dashboard_url"`
}

// QueueConfig holds batch runner settings.
type QueueConfig struct {
	PollIntervalSecs int  `mapstructure:"poll_interval_secs"`
	BatchSize        int  `mapstructure:"batch_size"`
	Concurrency      int  `mapstructure:"concurrency"`
	RunnerEnabled    bool `mapstructure:"runner_enabled"`
	// DocumentTimeout bounds the work on one document, including extraction.
	DocumentTimeout time.Duration `mapstructure:"document_timeout"`
}

// PollInterval returns the pause between batch cycles.
func (q *QueueConfig) PollInterval() time.Duration {
	return time.Duration(q.PollIntervalSecs) * time.Second
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// StoreConfig selects and configures the document store.
type StoreConfig struct {
	Backend         string `mapstructure:"backend"` // fs | s3
	BaseDir         string `mapstructure:"base_dir"`
	SourceBucket    string `mapstructure:"source_bucket"`
	ProcessedBucket string `mapstructure:"processed_bucket"`
	Processor       string `mapstructure:"processor"`
	Watch           bool   `mapstructure:"watch"`
}

// ReviewConfig selects where extraction results wait for review.
type ReviewConfig struct {
	Backend string `mapstructure:"backend"` // fs | postgres
	Dir     string `mapstructure:"dir"`
}

// ExtractorProviderConfig holds settings for a single LLM extraction provider.
type ExtractorProviderConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	MaxRetries   int    `mapstructure:"max_retries"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
}

// ExtractorConfig holds LLM row extraction settings with multi-provider support.
type ExtractorConfig struct {
	// Legacy flat fields (backwards-compatible)
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	MaxRetries   int    `mapstructure:"max_retries"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`

	// Multi-provider fields
	Primary   ExtractorProviderConfig `mapstructure:"primary"`
	Secondary ExtractorProviderConfig `mapstructure:"secondary"`
	Tertiary  ExtractorProviderConfig `mapstructure:"tertiary"`

	// RequestsPerMinute caps calls across all providers. 0 disables throttling.
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

// PrimaryConfig returns the primary provider config, falling back to legacy flat fields.
func (p *ExtractorConfig) PrimaryConfig() *ExtractorProviderConfig {
	if p.Primary.Provider != "" {
		return &p.Primary
	}
	return &ExtractorProviderConfig{
		Provider:     p.Provider,
		APIKey:       p.APIKey,
		DefaultModel: p.DefaultModel,
		MaxRetries:   p.MaxRetries,
		TimeoutSecs:  p.TimeoutSecs,
	}
}

// SecondaryConfig returns the secondary provider config, or nil if not configured.
func (p *ExtractorConfig) SecondaryConfig() *ExtractorProviderConfig {
	if p.Secondary.Provider != "" {
		return &p.Secondary
	}
	return nil
}

// TertiaryConfig returns the tertiary provider config, or nil if not configured.
func (p *ExtractorConfig) TertiaryConfig() *ExtractorProviderConfig {
	if p.Tertiary.Provider != "" {
		return &p.Tertiary
	}
	return nil
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// JWTConfig holds reviewer token settings.
type JWTConfig struct {
	Secret              string        `mapstructure:"secret"`
	ReviewerTokenExpiry time.Duration `mapstructure:"reviewer_expiry"`
	Issuer              string        `mapstructure:"issuer"`
}

// S3Config holds AWS S3 settings. Bucket names live in StoreConfig.
type S3Config struct {
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from environment variables with the WASTERESCUE_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WASTERESCUE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "wasterescue")
	v.SetDefault("db.password", "wasterescue_secret")
	v.SetDefault("db.name", "wasterescue_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 10)
	v.SetDefault("db.max_idle", 5)

	// JWT defaults
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.reviewer_expiry", "12h")
	v.SetDefault("jwt.issuer", "wasterescue")

	// S3 defaults
	v.SetDefault("s3.region", "eu-north-1")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.use_path_style", false)

	// Store defaults
	v.SetDefault("store.backend", "fs")
	v.SetDefault("store.base_dir", "./mock_storage")
	v.SetDefault("store.source_bucket", "failed-files")
	v.SetDefault("store.processed_bucket", "processed-files")
	v.SetDefault("store.processor", "frost-night-factory")
	v.SetDefault("store.watch", false)

	// Review queue defaults
	v.SetDefault("review.backend", "fs")
	v.SetDefault("review.dir", "./review_queue")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Queue defaults
	v.SetDefault("queue.poll_interval_secs", 300)
	v.SetDefault("queue.batch_size", 10)
	v.SetDefault("queue.concurrency", 1)
	v.SetDefault("queue.runner_enabled", true)
	v.SetDefault("queue.document_timeout", "5m")

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "eu-north-1")
	v.SetDefault("email.from_address", "noreply@wasterescue.local")
	v.SetDefault("email.from_name", "Waste Rescue")
	v.SetDefault("email.reviewer_address", "")
	v.SetDefault("email.dashboard_url", "http://localhost:3000")

	// Extractor defaults (legacy flat)
	v.SetDefault("extractor.provider", "claude")
	v.SetDefault("extractor.api_key", "")
	v.SetDefault("extractor.default_model", "claude-sonnet-4-20250514")
	v.SetDefault("extractor.max_retries", 2)
	v.SetDefault("extractor.timeout_secs", 120)
	v.SetDefault("extractor.requests_per_minute", 0)

	// Extractor primary/secondary/tertiary defaults
	for _, tier := range []string{"primary", "secondary", "tertiary"} {
		v.SetDefault("extractor."+tier+".provider", "")
		v.SetDefault("extractor."+tier+".api_key", "")
		v.SetDefault("extractor."+tier+".default_model", "")
		v.SetDefault("extractor."+tier+".max_retries", 2)
		v.SetDefault("extractor."+tier+".timeout_secs", 120)
	}

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                       "WASTERESCUE_SERVER_PORT",
		"server.read_timeout":               "WASTERESCUE_SERVER_READ_TIMEOUT",
		"server.write_timeout":              "WASTERESCUE_SERVER_WRITE_TIMEOUT",
		"server.environment":                "WASTERESCUE_SERVER_ENVIRONMENT",
		"db.host":                           "WASTERESCUE_DB_HOST",
		"db.port":                           "WASTERESCUE_DB_PORT",
		"db.user":                           "WASTERESCUE_DB_USER",
		"db.password":                       "WASTERESCUE_DB_PASSWORD",
		"db.name":                           "WASTERESCUE_DB_NAME",
		"db.sslmode":                        "WASTERESCUE_DB_SSLMODE",
		"db.max_open":                       "WASTERESCUE_DB_MAX_OPEN",
		"db.max_idle":                       "WASTERESCUE_DB_MAX_IDLE",
		"jwt.secret":                        "WASTERESCUE_JWT_SECRET",
		"jwt.reviewer_expiry":               "WASTERESCUE_JWT_REVIEWER_EXPIRY",
		"jwt.issuer":                        "WASTERESCUE_JWT_ISSUER",
		"s3.region":                         "WASTERESCUE_S3_REGION",
		"s3.endpoint":                       "WASTERESCUE_S3_ENDPOINT",
		"s3.access_key":                     "WASTERESCUE_S3_ACCESS_KEY",
		"s3.secret_key":                     "WASTERESCUE_S3_SECRET_KEY",
		"s3.use_path_style":                 "WASTERESCUE_S3_USE_PATH_STYLE",
		"store.backend":                     "WASTERESCUE_STORE_BACKEND",
		"store.base_dir":                    "WASTERESCUE_STORE_BASE_DIR",
		"store.source_bucket":               "WASTERESCUE_STORE_SOURCE_BUCKET",
		"store.processed_bucket":            "WASTERESCUE_STORE_PROCESSED_BUCKET",
		"store.processor":                   "WASTERESCUE_STORE_PROCESSOR",
		"store.watch":                       "WASTERESCUE_STORE_WATCH",
		"review.backend":                    "WASTERESCUE_REVIEW_BACKEND",
		"review.dir":                        "WASTERESCUE_REVIEW_DIR",
		"log.level":                         "WASTERESCUE_LOG_LEVEL",
		"log.format":                        "WASTERESCUE_LOG_FORMAT",
		"cors.allowed_origins":              "WASTERESCUE_CORS_ALLOWED_ORIGINS",
		"queue.poll_interval_secs":          "WASTERESCUE_QUEUE_POLL_INTERVAL_SECS",
		"queue.batch_size":                  "WASTERESCUE_QUEUE_BATCH_SIZE",
		"queue.concurrency":                 "WASTERESCUE_QUEUE_CONCURRENCY",
		"queue.runner_enabled":              "WASTERESCUE_QUEUE_RUNNER_ENABLED",
		"queue.document_timeout":            "WASTERESCUE_QUEUE_DOCUMENT_TIMEOUT",
		"extractor.provider":                "WASTERESCUE_EXTRACTOR_PROVIDER",
		"extractor.api_key":                 "WASTERESCUE_EXTRACTOR_API_KEY",
		"extractor.default_model":           "WASTERESCUE_EXTRACTOR_DEFAULT_MODEL",
		"extractor.max_retries":             "WASTERESCUE_EXTRACTOR_MAX_RETRIES",
		"extractor.timeout_secs":            "WASTERESCUE_EXTRACTOR_TIMEOUT_SECS",
		"extractor.requests_per_minute":     "WASTERESCUE_EXTRACTOR_REQUESTS_PER_MINUTE",
		"extractor.primary.provider":        "WASTERESCUE_EXTRACTOR_PRIMARY_PROVIDER",
		"extractor.primary.api_key":         "WASTERESCUE_EXTRACTOR_PRIMARY_API_KEY",
		"extractor.primary.default_model":   "WASTERESCUE_EXTRACTOR_PRIMARY_DEFAULT_MODEL",
		"extractor.primary.max_retries":     "WASTERESCUE_EXTRACTOR_PRIMARY_MAX_RETRIES",
		"extractor.primary.timeout_secs":    "WASTERESCUE_EXTRACTOR_PRIMARY_TIMEOUT_SECS",
		"extractor.secondary.provider":      "WASTERESCUE_EXTRACTOR_SECONDARY_PROVIDER",
		"extractor.secondary.api_key":       "WASTERESCUE_EXTRACTOR_SECONDARY_API_KEY",
		"extractor.secondary.default_model": "WASTERESCUE_EXTRACTOR_SECONDARY_DEFAULT_MODEL",
		"extractor.secondary.max_retries":   "WASTERESCUE_EXTRACTOR_SECONDARY_MAX_RETRIES",
		"extractor.secondary.timeout_secs":  "WASTERESCUE_EXTRACTOR_SECONDARY_TIMEOUT_SECS",
		"extractor.tertiary.provider":       "WASTERESCUE_EXTRACTOR_TERTIARY_PROVIDER",
		"extractor.tertiary.api_key":        "WASTERESCUE_EXTRACTOR_TERTIARY_API_KEY",
		"extractor.tertiary.default_model":  "WASTERESCUE_EXTRACTOR_TERTIARY_DEFAULT_MODEL",
		"extractor.tertiary.max_retries":    "WASTERESCUE_EXTRACTOR_TERTIARY_MAX_RETRIES",
		"extractor.tertiary.timeout_secs":   "WASTERESCUE_EXTRACTOR_TERTIARY_TIMEOUT_SECS",
		"email.provider":                    "WASTERESCUE_EMAIL_PROVIDER",
		"email.region":                      "WASTERESCUE_EMAIL_REGION",
		"email.from_address":                "WASTERESCUE_EMAIL_FROM_ADDRESS",
		"email.from_name":                   "WASTERESCUE_EMAIL_FROM_NAME",
		"email.reviewer_address":            "WASTERESCUE_EMAIL_REVIEWER_ADDRESS",
		"email.dashboard_url":               "WASTERESCUE_EMAIL_DASHBOARD_URL",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Container platforms set PORT. Use it if WASTERESCUE_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("WASTERESCUE_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.JWT = JWTConfig{
		Secret:              v.GetString("jwt.secret"),
		ReviewerTokenExpiry: v.GetDuration("jwt.reviewer_expiry"),
		Issuer:              v.GetString("jwt.issuer"),
	}
	cfg.S3 = S3Config{
		Region:       v.GetString("s3.region"),
		Endpoint:     v.GetString("s3.endpoint"),
		AccessKey:    v.GetString("s3.access_key"),
		SecretKey:    v.GetString("s3.secret_key"),
		UsePathStyle: v.GetBool("s3.use_path_style"),
	}
	cfg.Store = StoreConfig{
		Backend:         strings.ToLower(v.GetString("store.backend")),
		BaseDir:         v.GetString("store.base_dir"),
		SourceBucket:    v.GetString("store.source_bucket"),
		ProcessedBucket: v.GetString("store.processed_bucket"),
		Processor:       v.GetString("store.processor"),
		Watch:           v.GetBool("store.watch"),
	}
	cfg.Review = ReviewConfig{
		Backend: strings.ToLower(v.GetString("review.backend")),
		Dir:     v.GetString("review.dir"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	cfg.Extractor = ExtractorConfig{
		Provider:          v.GetString("extractor.provider"),
		APIKey:            v.GetString("extractor.api_key"),
		DefaultModel:      v.GetString("extractor.default_model"),
		MaxRetries:        v.GetInt("extractor.max_retries"),
		TimeoutSecs:       v.GetInt("extractor.timeout_secs"),
		Primary:           providerConfig(v, "primary"),
		Secondary:         providerConfig(v, "secondary"),
		Tertiary:          providerConfig(v, "tertiary"),
		RequestsPerMinute: v.GetInt("extractor.requests_per_minute"),
	}

	cfg.Queue = QueueConfig{
		PollIntervalSecs: v.GetInt("queue.poll_interval_secs"),
		BatchSize:        v.GetInt("queue.batch_size"),
		Concurrency:      v.GetInt("queue.concurrency"),
		RunnerEnabled:    v.GetBool("queue.runner_enabled"),
		DocumentTimeout:  v.GetDuration("queue.document_timeout"),
	}

	cfg.Email = EmailConfig{
		Provider:        v.GetString("email.provider"),
		Region:          v.GetString("email.region"),
		FromAddress:     v.GetString("email.from_address"),
		FromName:        v.GetString("email.from_name"),
		ReviewerAddress: v.GetString("email.reviewer_address"),
		DashboardURL:    v.GetString("email.dashboard_url"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func providerConfig(v *viper.Viper, tier string) ExtractorProviderConfig {
	prefix := "extractor." + tier + "."
	return ExtractorProviderConfig{
		Provider:     v.GetString(prefix + "provider"),
		APIKey:       v.GetString(prefix + "api_key"),
		DefaultModel: v.GetString(prefix + "default_model"),
		MaxRetries:   v.GetInt(prefix + "max_retries"),
		TimeoutSecs:  v.GetInt(prefix + "timeout_secs"),
	}
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case "fs", "s3":
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	switch c.Review.Backend {
	case "fs", "postgres":
	default:
		return fmt.Errorf("config: unknown review backend %q", c.Review.Backend)
	}
	if c.Queue.BatchSize <= 0 {
		return fmt.Errorf("config: queue batch size must be positive, got %d", c.Queue.BatchSize)
	}
	if c.Queue.PollIntervalSecs <= 0 {
		return fmt.Errorf("config: queue poll interval must be positive, got %d", c.Queue.PollIntervalSecs)
	}
	if c.Queue.Concurrency <= 0 {
		c.Queue.Concurrency = 1
	}
	return nil
}
