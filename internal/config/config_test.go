package config

import (
	"testing"
	"time"

	"github.com/maltedev/avvo-profile-scraper/internal/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "365", cfg.Scraper.DaysBack)
	assert.Equal(t, 2, cfg.Scraper.MaxEmptyPages)
	assert.Equal(t, "adaptive", cfg.Scraper.RateLimitMode)
	assert.False(t, cfg.Database.Enabled)

	filter, err := cfg.Scraper.Filter()
	require.NoError(t, err)
	assert.Equal(t, scraper.DaysBack(365), filter)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SCRAPER_DAYS_BACK", "none")
	t.Setenv("SCRAPER_PAGE_DELAY_MIN", "2s")
	t.Setenv("SCRAPER_PAGE_DELAY_MAX", "4s")
	t.Setenv("SCRAPER_MAX_PAGES", "20")
	t.Setenv("DB_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	filter, err := cfg.Scraper.Filter()
	require.NoError(t, err)
	assert.False(t, filter.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Scraper.PageDelayMin)
	assert.Equal(t, 20, cfg.Scraper.Options().MaxPages)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{
			name:   "bad days back",
			modify: func(c *Config) { c.Scraper.DaysBack = "forever" },
			errMsg: "SCRAPER_DAYS_BACK",
		},
		{
			name: "inverted delays",
			modify: func(c *Config) {
				c.Scraper.PageDelayMin = 5 * time.Second
				c.Scraper.PageDelayMax = time.Second
			},
			errMsg: "SCRAPER_PAGE_DELAY_MIN",
		},
		{
			name:   "unknown rate limit mode",
			modify: func(c *Config) { c.Scraper.RateLimitMode = "turbo" },
			errMsg: "SCRAPER_RATE_LIMIT_MODE",
		},
		{
			name:   "redis without database",
			modify: func(c *Config) { c.Redis.Enabled = true },
			errMsg: "REDIS_ENABLED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.modify(cfg)

			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestBrowserAndDatabaseOptions(t *testing.T) {
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("BROWSER_PROXY", "http://proxy:3128")
	t.Setenv("SCRAPER_MAX_RETRIES", "5")
	t.Setenv("DB_NAME", "attorneys")

	cfg, err := Load()
	require.NoError(t, err)

	opts := cfg.BrowserOptions()
	assert.False(t, opts.Headless)
	assert.Equal(t, "http://proxy:3128", opts.ProxyServer)
	assert.Equal(t, 5, opts.MaxRetries)
	assert.Equal(t, "h1.profile-name", opts.ReadySelector)
	assert.Equal(t, 20*time.Second, opts.ChallengeTimeout)

	db := cfg.Database.Options()
	assert.Equal(t, "attorneys", db.Database)
	assert.Equal(t, "postgres://postgres:@localhost:5432/attorneys?sslmode=disable", db.DSN())
}
