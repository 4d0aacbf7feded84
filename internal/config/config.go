package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	geminiAPIKeyEnv      = "GEMINI_API_KEY"
	openAIAPIKeyEnv      = "OPENAI_API_KEY"
	openAIBaseURLEnv     = "OPENAI_BASE_URL"
	supabaseURLEnv       = "SUPABASE_URL"
	supabaseKeyEnv       = "SUPABASE_SERVICE_KEY"
	databaseURLEnv       = "DATABASE_URL"
	mongoURIEnv          = "MONGO_URI"
	redisURLEnv          = "REDIS_URL"
	discordWebhookURLEnv = "DISCORD_WEBHOOK_URL"
)

const (
	DefaultQuery      = "AI OR ChatGPT OR Gemini OR Claude"
	DefaultTable      = "ai_news_articles"
	DefaultHistoryCap = 10
	DefaultTopN       = 3
)

type Config struct {
	Bot      BotConfig      `toml:"bot" yaml:"bot"`
	Log      LogConfig      `toml:"log" yaml:"log"`
	Storage  StorageConfig  `toml:"storage" yaml:"storage"`
	Platform PlatformConfig `toml:"platform" yaml:"platform"`
	Sources  []SourceConfig `toml:"sources" yaml:"sources"`
	Curator  CuratorConfig  `toml:"curator" yaml:"curator"`
	Pipeline PipelineConfig `toml:"pipeline" yaml:"pipeline"`
	Targets  TargetsConfig  `toml:"targets" yaml:"targets"`
}

type BotConfig struct {
	Name     string `toml:"name" yaml:"name"`
	Interval string `toml:"interval" yaml:"interval"`
	RunOnce  bool   `toml:"run_once" yaml:"run_once"`
}

type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

type StorageConfig struct {
	Type     string `toml:"type" yaml:"type"`
	Path     string `toml:"path" yaml:"path"`
	DSN      string `toml:"dsn" yaml:"dsn"`
	URL      string `toml:"url" yaml:"url"`
	Key      string `toml:"key" yaml:"key"`
	Table    string `toml:"table" yaml:"table"`
	Database string `toml:"database" yaml:"database"`
	Timeout  string `toml:"timeout" yaml:"timeout"`
}

// PlatformConfig selects the oracle provider.
type PlatformConfig struct {
	Type    string `toml:"type" yaml:"type"`
	Model   string `toml:"model" yaml:"model"`
	APIKey  string `toml:"api_key" yaml:"api_key"`
	BaseURL string `toml:"base_url" yaml:"base_url"`
	Timeout string `toml:"timeout" yaml:"timeout"`
}

type SourceConfig struct {
	Name     string `toml:"name" yaml:"name"`
	Type     string `toml:"type" yaml:"type"`
	Enabled  bool   `toml:"enabled" yaml:"enabled"`
	FeedURL  string `toml:"feed_url" yaml:"feed_url"`
	Query    string `toml:"query" yaml:"query"`
	Language string `toml:"language" yaml:"language"`
	Region   string `toml:"region" yaml:"region"`
	MaxItems int    `toml:"max_items" yaml:"max_items"`
}

type CuratorConfig struct {
	Strategy     string `toml:"strategy" yaml:"strategy"`
	TopN         int    `toml:"top_n" yaml:"top_n"`
	Delay        string `toml:"delay" yaml:"delay"`
	Language     string `toml:"language" yaml:"language"`
	PromptFile   string `toml:"prompt_file" yaml:"prompt_file"`
	ExtractText  bool   `toml:"extract_text" yaml:"extract_text"`
	ExtractLimit int    `toml:"extract_limit" yaml:"extract_limit"`
}

type PipelineConfig struct {
	HistoryCap        int   `toml:"history_cap" yaml:"history_cap"`
	RecordWhenSkipped *bool `toml:"record_when_skipped" yaml:"record_when_skipped"`
}

// ShouldRecordWhenSkipped defaults to true: a skipped publish still marks items processed.
func (p PipelineConfig) ShouldRecordWhenSkipped() bool {
	if p.RecordWhenSkipped == nil {
		return true
	}
	return *p.RecordWhenSkipped
}

type TargetsConfig struct {
	Discord DiscordTargetConfig `toml:"discord" yaml:"discord"`
	Feed    FeedTargetConfig    `toml:"feed" yaml:"feed"`
}

type DiscordTargetConfig struct {
	WebhookURL string `toml:"webhook_url" yaml:"webhook_url"`
	Header     string `toml:"header" yaml:"header"`
	Footer     string `toml:"footer" yaml:"footer"`
	Timeout    string `toml:"timeout" yaml:"timeout"`
}

type FeedTargetConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Path    string `toml:"path" yaml:"path"`
	Format  string `toml:"format" yaml:"format"`
	Title   string `toml:"title" yaml:"title"`
	Link    string `toml:"link" yaml:"link"`
}

// Load reads the configuration file, applies environment overrides and defaults.
// A missing file is not an error: the defaults plus environment are used.
func Load(path string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config.applyEnvOverrides()

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func decode(path string, data []byte, config *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	default:
		return toml.Unmarshal(data, config)
	}
}

func (c *Config) applyEnvOverrides() {
	switch c.Platform.Type {
	case "openai":
		if v := os.Getenv(openAIAPIKeyEnv); v != "" {
			c.Platform.APIKey = v
		}
		if v := os.Getenv(openAIBaseURLEnv); v != "" {
			c.Platform.BaseURL = v
		}
	case "", "gemini":
		if v := os.Getenv(geminiAPIKeyEnv); v != "" {
			c.Platform.APIKey = v
		}
	}

	switch c.Storage.Type {
	case "supabase":
		if v := os.Getenv(supabaseURLEnv); v != "" {
			c.Storage.URL = v
		}
		if v := os.Getenv(supabaseKeyEnv); v != "" {
			c.Storage.Key = v
		}
	case "postgres":
		if v := os.Getenv(databaseURLEnv); v != "" {
			c.Storage.DSN = v
		}
	case "mongo":
		if v := os.Getenv(mongoURIEnv); v != "" {
			c.Storage.DSN = v
		}
	case "redis":
		if v := os.Getenv(redisURLEnv); v != "" {
			c.Storage.DSN = v
		}
	}

	if v := strings.TrimSpace(os.Getenv(discordWebhookURLEnv)); v != "" {
		c.Targets.Discord.WebhookURL = v
	}
}

func validateConfig(config *Config) error {
	if config.Bot.Name == "" {
		config.Bot.Name = "newsdigest"
	}

	if config.Bot.Interval == "" {
		config.Bot.Interval = "24h"
	}

	if _, err := time.ParseDuration(config.Bot.Interval); err != nil {
		return fmt.Errorf("invalid interval: %w", err)
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}

	if config.Log.Format == "" {
		config.Log.Format = "text"
	}

	if config.Storage.Type == "" {
		config.Storage.Type = "sqlite"
	}

	if config.Storage.Type == "sqlite" && config.Storage.Path == "" {
		config.Storage.Path = "./newsdigest.db"
	}

	if config.Storage.Table == "" {
		config.Storage.Table = DefaultTable
	}

	if config.Platform.Type == "" {
		config.Platform.Type = "gemini"
	}

	if config.Platform.Model == "" {
		switch config.Platform.Type {
		case "gemini":
			config.Platform.Model = "gemini-2.0-flash-lite"
		case "openai":
			config.Platform.Model = "gpt-4o-mini"
		case "ollama":
			config.Platform.Model = "qwen2.5:0.5b"
		}
	}

	switch config.Platform.Type {
	case "gemini", "openai", "ollama":
	default:
		return fmt.Errorf("unsupported platform type: %s", config.Platform.Type)
	}

	if len(config.Sources) == 0 {
		config.Sources = []SourceConfig{{
			Name:    "google_news",
			Type:    "google_news",
			Enabled: true,
		}}
	}

	enabledSources := 0
	for i := range config.Sources {
		src := &config.Sources[i]
		if !src.Enabled {
			continue
		}
		enabledSources++

		if src.Name == "" {
			src.Name = fmt.Sprintf("%s_%d", src.Type, i)
		}

		switch src.Type {
		case "rss", "opml":
			if src.FeedURL == "" {
				return fmt.Errorf("feed_url is required for %s source %s", src.Type, src.Name)
			}
		case "google_news":
			if src.Query == "" {
				src.Query = DefaultQuery
			}
			if src.Language == "" {
				src.Language = "ja"
			}
			if src.Region == "" {
				src.Region = "JP"
			}
		default:
			return fmt.Errorf("unsupported source type: %s", src.Type)
		}

		if src.MaxItems <= 0 {
			src.MaxItems = 100
		}
	}
	if enabledSources == 0 {
		return fmt.Errorf("at least one source must be enabled")
	}

	if config.Curator.Strategy == "" {
		config.Curator.Strategy = "per_item"
	}

	if config.Curator.Strategy != "per_item" && config.Curator.Strategy != "batch" {
		return fmt.Errorf("unsupported curator strategy: %s", config.Curator.Strategy)
	}

	if config.Curator.TopN <= 0 {
		config.Curator.TopN = DefaultTopN
	}

	if config.Curator.Delay == "" {
		config.Curator.Delay = "3s"
	}

	if _, err := time.ParseDuration(config.Curator.Delay); err != nil {
		return fmt.Errorf("invalid curator delay: %w", err)
	}

	if config.Curator.Language == "" {
		config.Curator.Language = "Japanese"
	}

	if config.Curator.ExtractLimit <= 0 {
		config.Curator.ExtractLimit = 2000
	}

	if config.Pipeline.HistoryCap <= 0 {
		config.Pipeline.HistoryCap = DefaultHistoryCap
	}

	if config.Targets.Discord.Header == "" {
		config.Targets.Discord.Header = "✨ **本日の重要AIニュース** ✨"
	}

	if config.Targets.Feed.Enabled {
		if config.Targets.Feed.Path == "" {
			config.Targets.Feed.Path = "./digest.xml"
		}
		switch config.Targets.Feed.Format {
		case "":
			config.Targets.Feed.Format = "rss"
		case "rss", "atom", "json":
		default:
			return fmt.Errorf("unsupported feed format: %s", config.Targets.Feed.Format)
		}
	}

	return nil
}

func ParseDuration(value string, defaultValue time.Duration) time.Duration {
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
