package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/maltedev/avvo-profile-scraper/internal/browser"
	"github.com/maltedev/avvo-profile-scraper/internal/database"
	"github.com/maltedev/avvo-profile-scraper/internal/ratelimit"
	"github.com/maltedev/avvo-profile-scraper/internal/scraper"
)

type Config struct {
	Server   ServerConfig
	Scraper  ScraperConfig
	Browser  BrowserConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Queue    QueueConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type ScraperConfig struct {
	// DaysBack is a day count or "none".
	DaysBack      string
	URLsFile      string
	OutputCSV     string
	ProgressFile  string
	PageDelayMin  time.Duration
	PageDelayMax  time.Duration
	RateLimitMode string
	MaxRetries    int
	MaxEmptyPages int
	MaxPages      int
}

type BrowserConfig struct {
	Headless         bool
	Timeout          time.Duration
	ChallengeTimeout time.Duration
	ViewportWidth    int
	ViewportHeight   int
	AcceptLanguage   string
	TimezoneID       string
	Locale           string
	ProxyServer      string
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

type RedisConfig struct {
	Enabled       bool
	Addr          string
	Password      string
	DB            int
	RelayInterval time.Duration
}

type QueueConfig struct {
	MaxSize int
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 10*time.Minute),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Scraper: ScraperConfig{
			DaysBack:      getEnvOrDefault("SCRAPER_DAYS_BACK", strconv.Itoa(scraper.DefaultDaysBack)),
			URLsFile:      getEnvOrDefault("SCRAPER_URLS_FILE", "avvo_urls.txt"),
			OutputCSV:     getEnvOrDefault("SCRAPER_OUTPUT_CSV", "avvo_profiles.csv"),
			ProgressFile:  getEnvOrDefault("SCRAPER_PROGRESS_FILE", "avvo_progress.json"),
			PageDelayMin:  getDurationOrDefault("SCRAPER_PAGE_DELAY_MIN", time.Second),
			PageDelayMax:  getDurationOrDefault("SCRAPER_PAGE_DELAY_MAX", 3*time.Second),
			RateLimitMode: getEnvOrDefault("SCRAPER_RATE_LIMIT_MODE", ratelimit.ModeAdaptive),
			MaxRetries:    getIntOrDefault("SCRAPER_MAX_RETRIES", 3),
			MaxEmptyPages: getIntOrDefault("SCRAPER_MAX_EMPTY_PAGES", 2),
			MaxPages:      getIntOrDefault("SCRAPER_MAX_PAGES", 500),
		},
		Browser: BrowserConfig{
			Headless:         getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:          getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ChallengeTimeout: getDurationOrDefault("BROWSER_CHALLENGE_TIMEOUT", 20*time.Second),
			ViewportWidth:    getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight:   getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage:   getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "en-US,en;q=0.9"),
			TimezoneID:       getEnvOrDefault("BROWSER_TIMEZONE", "America/Los_Angeles"),
			Locale:           getEnvOrDefault("BROWSER_LOCALE", "en-US"),
			ProxyServer:      getEnvOrDefault("BROWSER_PROXY", ""),
		},
		Database: DatabaseConfig{
			Enabled:  getBoolOrDefault("DB_ENABLED", false),
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "avvo_scraper"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Enabled:       getBoolOrDefault("REDIS_ENABLED", false),
			Addr:          getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password:      getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:            getIntOrDefault("REDIS_DB", 0),
			RelayInterval: getDurationOrDefault("REDIS_RELAY_INTERVAL", 5*time.Second),
		},
		Queue: QueueConfig{
			MaxSize: getIntOrDefault("QUEUE_MAX_SIZE", 1000),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if _, err := c.Scraper.Filter(); err != nil {
		errs = append(errs, fmt.Errorf("SCRAPER_DAYS_BACK: %w", err))
	}

	if c.Scraper.PageDelayMin > c.Scraper.PageDelayMax {
		errs = append(errs, fmt.Errorf("SCRAPER_PAGE_DELAY_MIN cannot be greater than SCRAPER_PAGE_DELAY_MAX"))
	}

	switch c.Scraper.RateLimitMode {
	case ratelimit.ModeSimple, ratelimit.ModeAdaptive, ratelimit.ModeToken:
	default:
		errs = append(errs, fmt.Errorf("SCRAPER_RATE_LIMIT_MODE must be one of simple, adaptive, token"))
	}

	if c.Scraper.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("SCRAPER_MAX_RETRIES must be at least 1"))
	}

	if c.Scraper.MaxEmptyPages < 1 {
		errs = append(errs, fmt.Errorf("SCRAPER_MAX_EMPTY_PAGES must be at least 1"))
	}

	if c.Queue.MaxSize < 1 {
		errs = append(errs, fmt.Errorf("QUEUE_MAX_SIZE must be at least 1"))
	}

	if c.Database.Enabled && c.Database.DBName == "" {
		errs = append(errs, fmt.Errorf("DB_NAME is required when the database is enabled"))
	}

	if c.Redis.Enabled && !c.Database.Enabled {
		errs = append(errs, fmt.Errorf("REDIS_ENABLED requires DB_ENABLED, the relay reads the outbox"))
	}

	return errors.Join(errs...)
}

// Filter is the review recency filter configured by SCRAPER_DAYS_BACK.
func (c ScraperConfig) Filter() (scraper.RecencyFilter, error) {
	return scraper.ParseRecencyFilter(c.DaysBack)
}

func (c ScraperConfig) Options() *scraper.Options {
	return &scraper.Options{
		MaxEmptyPages: c.MaxEmptyPages,
		MaxPages:      c.MaxPages,
	}
}

func (c ScraperConfig) RateLimiter() (ratelimit.RateLimiter, error) {
	return ratelimit.New(c.RateLimitMode, c.PageDelayMin, c.PageDelayMax)
}

// BrowserOptions overlays the configured values on the browser defaults.
func (c *Config) BrowserOptions() *browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = c.Browser.Headless
	opts.Timeout = c.Browser.Timeout
	opts.ChallengeTimeout = c.Browser.ChallengeTimeout
	opts.MaxRetries = c.Scraper.MaxRetries
	opts.ViewportWidth = c.Browser.ViewportWidth
	opts.ViewportHeight = c.Browser.ViewportHeight
	opts.AcceptLanguage = c.Browser.AcceptLanguage
	opts.TimezoneID = c.Browser.TimezoneID
	opts.Locale = c.Browser.Locale
	opts.ProxyServer = c.Browser.ProxyServer
	return opts
}

func (c DatabaseConfig) Options() database.Config {
	return database.Config{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		Database: c.DBName,
		SSLMode:  c.SSLMode,
		MaxConns: c.MaxConns,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
