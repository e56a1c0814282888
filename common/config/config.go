package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/LexiconIndonesia/crypto-news-crawler/common"
	"github.com/go-playground/validator/v10"
)

func getEnv(key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	return value
}

func loadEnvString(key string, result *string) {
	s, ok := os.LookupEnv(key)

	if !ok {
		return
	}
	*result = s
}

func loadEnvUint(key string, result *uint) {
	s, ok := os.LookupEnv(key)

	if !ok {
		return
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return
	}
	*result = uint(n)
}

func loadEnvBool(key string, result *bool) {
	s, ok := os.LookupEnv(key)

	if !ok {
		return
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return
	}
	*result = b
}

// loadEnvDuration accepts Go durations ("15s", "2m") or a bare number of seconds.
func loadEnvDuration(key string, result *time.Duration) {
	s, ok := os.LookupEnv(key)

	if !ok {
		return
	}
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		*result = d
		return
	}
	if n, err := strconv.Atoi(s); err == nil {
		*result = time.Duration(n) * time.Second
	}
}

/* Configuration */

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

/* App Configuration */
type appConfig struct {
	Env string `json:"env" validate:"oneof=development production"`
}

func (a appConfig) IsProduction() bool {
	return a.Env == EnvProduction
}

func defaultAppConfig() appConfig {
	return appConfig{
		Env: EnvDevelopment,
	}
}

func (a *appConfig) loadFromEnv() {
	loadEnvString("APP_ENV", &a.Env)
	a.Env = strings.ToLower(strings.TrimSpace(a.Env))

	// Railway deployments do not set APP_ENV
	if getEnv("RAILWAY_ENVIRONMENT", "") != "" || getEnv("RAILWAY_PROJECT_ID", "") != "" {
		a.Env = EnvProduction
	}
}

/* PgSQL Configuration */
type pgSqlConfig struct {
	URL      string `json:"-"`
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     uint   `json:"port"`
	Database string `json:"database"`
	SslMode  string `json:"ssl_mode"`
	User     string `json:"user"`
	Password string `json:"-"`
}

// Configured reports whether a relational store should be used at all.
// Without one the pipeline runs in fallback-only mode.
func (p pgSqlConfig) Configured() bool {
	return p.URL != "" || p.Enabled
}

func (p pgSqlConfig) ConnStr() string {
	if p.URL != "" {
		return p.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s", p.Host, p.Port, p.User, p.Password, p.Database, p.SslMode)
}

func defaultPgSql() pgSqlConfig {
	return pgSqlConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "crypto_news",
		User:     "",
		Password: "",
		SslMode:  "disable",
	}
}

func (p *pgSqlConfig) loadFromEnv() {
	loadEnvString("DATABASE_URL", &p.URL)
	loadEnvBool("POSTGRES_ENABLED", &p.Enabled)
	loadEnvString("POSTGRES_HOST", &p.Host)
	loadEnvUint("POSTGRES_PORT", &p.Port)
	loadEnvString("POSTGRES_DB_NAME", &p.Database)
	loadEnvString("POSTGRES_SSLMODE", &p.SslMode)
	loadEnvString("POSTGRES_USERNAME", &p.User)
	loadEnvString("POSTGRES_PASSWORD", &p.Password)
	p.URL = strings.TrimSpace(p.URL)
}

/* Browser Configuration */

type browserConfig struct {
	RemoteURL         string        `json:"remote_url"`
	Engine            string        `json:"engine" validate:"oneof=chrome chromium"`
	Headless          bool          `json:"headless"`
	Bin               string        `json:"bin"`
	PageLoadTimeout   time.Duration `json:"page_load_timeout" validate:"min=1s,max=2m"`
	ScrollMaxAttempts uint          `json:"scroll_max_attempts" validate:"max=50"`
	ScrollPause       time.Duration `json:"scroll_pause" validate:"max=10s"`
	UserAgent         string        `json:"user_agent"`
}

func defaultBrowserConfig() browserConfig {
	return browserConfig{
		Engine:            "chrome",
		Headless:          true,
		PageLoadTimeout:   15 * time.Second,
		ScrollMaxAttempts: 10,
		ScrollPause:       1500 * time.Millisecond,
		UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	}
}

func (b *browserConfig) loadFromEnv() {
	// SELENIUM_* names are still exported by older deployments
	loadEnvString("SELENIUM_REMOTE_URL", &b.RemoteURL)
	loadEnvString("BROWSER_REMOTE_URL", &b.RemoteURL)
	loadEnvString("SELENIUM_BROWSER", &b.Engine)
	loadEnvString("BROWSER_ENGINE", &b.Engine)
	loadEnvBool("BROWSER_HEADLESS", &b.Headless)
	loadEnvString("BROWSER_BIN", &b.Bin)
	loadEnvDuration("PAGE_LOAD_TIMEOUT", &b.PageLoadTimeout)
	loadEnvUint("SCROLL_MAX_ATTEMPTS", &b.ScrollMaxAttempts)
	loadEnvDuration("SCROLL_PAUSE", &b.ScrollPause)
	loadEnvString("USER_AGENT", &b.UserAgent)
	b.Engine = strings.ToLower(strings.TrimSpace(b.Engine))
}

/* Log Configuration */

type logConfig struct {
	Level string `json:"level" validate:"oneof=DEBUG INFO WARNING WARN ERROR CRITICAL"`
}

func defaultLogConfig() logConfig {
	return logConfig{
		Level: "INFO",
	}
}

func (l *logConfig) loadFromEnv() {
	loadEnvString("LOG_LEVEL", &l.Level)
	l.Level = strings.ToUpper(strings.TrimSpace(l.Level))
}

/* Pipeline Configuration */

type pipelineConfig struct {
	Site       string            `json:"site" validate:"required"`
	RecordType common.RecordType `json:"record_type" validate:"required"`
	ReportsDir string            `json:"reports_dir" validate:"required"`
	RunTimeout time.Duration     `json:"run_timeout" validate:"min=1m"`
}

func defaultPipelineConfig() pipelineConfig {
	return pipelineConfig{
		Site:       "cryptopanic",
		RecordType: common.RecordTypeNews,
		ReportsDir: "reports",
		RunTimeout: 10 * time.Minute,
	}
}

func (p *pipelineConfig) loadFromEnv() {
	loadEnvString("SCRAPER_SITE", &p.Site)
	recordType := string(p.RecordType)
	loadEnvString("RECORD_TYPE", &recordType)
	p.RecordType = common.RecordType(strings.TrimSpace(recordType))
	loadEnvString("REPORTS_DIR", &p.ReportsDir)
	loadEnvDuration("RUN_TIMEOUT", &p.RunTimeout)
}

/* Listen Configuration */

type listenConfig struct {
	Host string `json:"host"`
	Port uint   `json:"port" validate:"min=1,max=65535"`
}

func (l listenConfig) Addr() string {
	return fmt.Sprintf("%s:%d", l.Host, l.Port)
}

func defaultListenConfig() listenConfig {
	return listenConfig{
		Host: "127.0.0.1",
		Port: 8080,
	}
}

func (l *listenConfig) loadFromEnv() {
	loadEnvString("LISTEN_HOST", &l.Host)
	loadEnvUint("LISTEN_PORT", &l.Port)
}

type securityConfig struct {
	BackendApiKey string `json:"-"`
}

func (s *securityConfig) loadFromEnv() {
	s.BackendApiKey = getEnv("BACKEND_API_KEY", "")
}

func defaultSecurityConfig() securityConfig {
	return securityConfig{
		BackendApiKey: "",
	}
}

type natsConfig struct {
	Enabled  bool
	Host     string
	Port     uint
	Username string
	Password string `json:"-"`
	Subject  string `validate:"required_if=Enabled true"`
}

func (c *natsConfig) loadFromEnv() {
	loadEnvBool("NATS_ENABLED", &c.Enabled)
	c.Host = getEnv("NATS_HOST", c.Host)
	loadEnvUint("NATS_PORT", &c.Port)
	c.Username = getEnv("NATS_USER", "")
	c.Password = getEnv("NATS_PASSWORD", "")
	loadEnvString("NATS_SUBJECT", &c.Subject)
}

func (c *natsConfig) URL() string {
	return fmt.Sprintf("nats://%s:%d", c.Host, c.Port)
}

func defaultNatsConfig() natsConfig {
	return natsConfig{
		Enabled:  false,
		Host:     "localhost",
		Port:     4222,
		Username: "",
		Password: "",
		Subject:  "crypto_news.ingested",
	}
}

type redisConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     uint   `json:"port"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

func (r *redisConfig) loadFromEnv() {
	loadEnvBool("REDIS_ENABLED", &r.Enabled)
	loadEnvString("REDIS_HOST", &r.Host)
	loadEnvUint("REDIS_PORT", &r.Port)
	loadEnvString("REDIS_PASSWORD", &r.Password)

	if dbStr := getEnv("REDIS_DB", ""); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			r.DB = db
		}
	}
}

func (r redisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func defaultRedisConfig() redisConfig {
	return redisConfig{
		Host:     "localhost",
		Port:     6379,
		Password: "",
		DB:       0,
	}
}

type GCSConfig struct {
	Enabled         bool
	ProjectID       string
	CredentialsFile string
	Bucket          string `validate:"required_if=Enabled true"`
}

func (g *GCSConfig) loadFromEnv() {
	loadEnvBool("GCS_ENABLED", &g.Enabled)
	g.ProjectID = getEnv("GCS_PROJECT_ID", "")
	g.CredentialsFile = getEnv("GCS_CREDENTIALS_FILE", "")
	g.Bucket = getEnv("GCS_STORAGE_BUCKET", "")
}

func defaultGcsConfig() GCSConfig {
	return GCSConfig{
		ProjectID:       "",
		CredentialsFile: "",
		Bucket:          "",
	}
}

type Config struct {
	App      appConfig
	PgSql    pgSqlConfig
	Browser  browserConfig
	Log      logConfig
	Pipeline pipelineConfig
	Listen   listenConfig
	Security securityConfig
	Nats     natsConfig
	Redis    redisConfig
	GCS      GCSConfig
}

func (c *Config) LoadFromEnv() {
	c.App.loadFromEnv()
	c.PgSql.loadFromEnv()
	c.Browser.loadFromEnv()
	c.Log.loadFromEnv()
	c.Pipeline.loadFromEnv()
	c.Listen.loadFromEnv()
	c.Security.loadFromEnv()
	c.Nats.loadFromEnv()
	c.Redis.loadFromEnv()
	c.GCS.loadFromEnv()
}

// Validate checks field constraints and the cross-section rules the struct tags cannot express.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	if c.App.IsProduction() && !c.PgSql.Configured() {
		return fmt.Errorf("%w: DATABASE_URL is required in production", common.ErrInvalidConfig)
	}

	if c.Browser.RemoteURL != "" && !strings.Contains(c.Browser.RemoteURL, "://") {
		return fmt.Errorf("%w: BROWSER_REMOTE_URL must include a scheme, got %q", common.ErrInvalidConfig, c.Browser.RemoteURL)
	}

	return nil
}

func DefaultConfig() Config {
	return Config{
		App:      defaultAppConfig(),
		PgSql:    defaultPgSql(),
		Browser:  defaultBrowserConfig(),
		Log:      defaultLogConfig(),
		Pipeline: defaultPipelineConfig(),
		Listen:   defaultListenConfig(),
		Security: defaultSecurityConfig(),
		Nats:     defaultNatsConfig(),
		Redis:    defaultRedisConfig(),
		GCS:      defaultGcsConfig(),
	}
}
