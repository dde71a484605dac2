// Package config loads the bot settings from config.json, .env and the
// environment, in increasing priority.
package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	TelegramBotToken string
	RSSLink          string
	// Seconds between two feed polls.
	RSSRefresh int
	// Cron spec of the catalog refresh.
	RefreshSpec string
	SiteURL     string
	ScheduleURL string
	MagnetBase  string

	DBAddress    string
	DBUser       string
	DBPassword   string
	DB           string
	RedisAddress string

	// Empty disables the HTTP API.
	HTTPAddress string
	// Seconds before an outgoing request is abandoned.
	HTTPTimeout int
	// Seconds between two scrapes of a catalog refresh.
	ScrapeDelay int

	Debug    bool
	LogLevel string
}

var (
	ErrMissingToken = errors.New("telegram bot token is not set")
	ErrMissingFeed  = errors.New("rss link is not set")
)

func Default() Config {
	return Config{
		RSSLink:     DefaultRSSLink,
		RSSRefresh:  DefaultRSSRefresh,
		RefreshSpec: DefaultRefreshSpec,
		SiteURL:     DefaultSiteURL,
		ScheduleURL: DefaultScheduleURL,
		MagnetBase:  DefaultMagnetBase,
		DBAddress:   DefaultDBAddress,
		DBUser:      DefaultDBUser,
		DB:          DefaultDB,
		HTTPTimeout: DefaultHTTPTimeout,
		ScrapeDelay: DefaultScrapeDelay,
		LogLevel:    DefaultLogLevel,
	}
}

// Load reads the JSON file at path when it exists, then applies .env and
// environment overrides.
func Load(path string) (Config, error) {
	c := Default()
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found")
	}
	file, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return Config{}, errors.Wrapf(err, "unable to read config file %v", path)
	}
	if err == nil {
		err = json.Unmarshal(file, &c)
		if err != nil {
			return Config{}, errors.Wrapf(err, "unable to unmarshal config file %v", path)
		}
	}
	c.applyEnv()
	return c, nil
}

func (c *Config) applyEnv() {
	c.TelegramBotToken = envString("TELEGRAM_BOT_TOKEN", c.TelegramBotToken)
	c.RSSLink = envString("RSS_LINK", c.RSSLink)
	c.RSSRefresh = envInt("RSS_REFRESH", c.RSSRefresh)
	c.RefreshSpec = envString("REFRESH_SPEC", c.RefreshSpec)
	c.SiteURL = envString("SITE_URL", c.SiteURL)
	c.ScheduleURL = envString("SCHEDULE_URL", c.ScheduleURL)
	c.MagnetBase = envString("MAGNET_BASE", c.MagnetBase)
	c.DBAddress = envString("DB_ADDRESS", c.DBAddress)
	c.DBUser = envString("DB_USER", c.DBUser)
	c.DBPassword = envString("DB_PASSWORD", c.DBPassword)
	c.DB = envString("DB_NAME", c.DB)
	c.RedisAddress = envString("REDIS_ADDRESS", c.RedisAddress)
	c.HTTPAddress = envString("HTTP_ADDRESS", c.HTTPAddress)
	c.HTTPTimeout = envInt("HTTP_TIMEOUT", c.HTTPTimeout)
	c.ScrapeDelay = envInt("SCRAPE_DELAY", c.ScrapeDelay)
	c.Debug = envBool("DEBUG", c.Debug)
	c.LogLevel = envString("LOG_LEVEL", c.LogLevel)
}

// Validate checks the settings the bot can't start without.
func (c Config) Validate() error {
	if len(c.TelegramBotToken) == 0 {
		return ErrMissingToken
	}
	if len(c.RSSLink) == 0 {
		return ErrMissingFeed
	}
	if c.RSSRefresh <= 0 {
		return errors.Errorf("rss refresh must be positive, got %v", c.RSSRefresh)
	}
	return nil
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.RSSRefresh) * time.Second
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTPTimeout) * time.Second
}

func (c Config) ScrapeInterval() time.Duration {
	return time.Duration(c.ScrapeDelay) * time.Second
}

// Level falls back to info for unknown level names.
func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || len(c.LogLevel) == 0 {
		return zerolog.InfoLevel
	}
	return level
}
