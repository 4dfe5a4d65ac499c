package commands

import (
	"fmt"
	"os"
	"time"

	"lyricsync/internal/notion"
	"lyricsync/internal/notionsync"
	"lyricsync/lib/configutil"
)

const (
	envNotionToken      = "NOTION_TOKEN"
	envNotionDatabaseID = "NOTION_DATABASE_ID"
)

const defaultPolitenessDelay = time.Second

type ScraperConfig struct {
	// BaseUrl defaults to the scheme and host of the artist url.
	BaseUrl          string `json:"base_url"`
	PolitenessDelay  string `json:"politeness_delay"`
	CloudflareBypass bool   `json:"cloudflare_bypass"`
}

type SyncConfig struct {
	BatchSize int    `json:"batch_size"`
	Delay     string `json:"delay"`
}

type Config struct {
	Scraper ScraperConfig `json:"scraper"`
	Notion  notion.Config `json:"notion"`
	Sync    SyncConfig    `json:"sync"`
}

// loadConfig reads the json5 config, a missing file is the zero config.
func loadConfig(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if os.IsNotExist(err) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return cfg, nil
}

func parseDuration(name, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %s", name, value)
	}
	return d, nil
}

func (c Config) politenessDelay() (time.Duration, error) {
	return parseDuration("scraper.politeness_delay", c.Scraper.PolitenessDelay, defaultPolitenessDelay)
}

// notionConfig prefers the environment over the config file for credentials.
func (c Config) notionConfig() notion.Config {
	out := c.Notion
	out.Token = configutil.Getenv(envNotionToken, c.Notion.Token)
	out.DatabaseID = configutil.Getenv(envNotionDatabaseID, c.Notion.DatabaseID)
	return out
}

// syncOptions layers the config file over the defaults, flags are applied by the caller.
func (c Config) syncOptions() (notionsync.Options, error) {
	opts := notionsync.DefaultOptions()
	if c.Sync.BatchSize > 0 {
		opts.BatchSize = c.Sync.BatchSize
	}
	delay, err := parseDuration("sync.delay", c.Sync.Delay, opts.Delay)
	if err != nil {
		return opts, err
	}
	opts.Delay = delay
	return opts, nil
}
