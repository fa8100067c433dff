package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"

	configPathEnv       = "FEEDINGEST_CONFIG"
	feedURLEnv          = "FEEDINGEST_FEED_URL"
	statePathEnv        = "FEEDINGEST_STATE_PATH"
	stateSQLiteDSNEnv   = "FEEDINGEST_STATE_SQLITE_DSN"
	summarizerAPIKeyEnv = "FEEDINGEST_SUMMARIZER_API_KEY"
	summarizerModelEnv  = "FEEDINGEST_SUMMARIZER_MODEL"
	indexAPIKeyEnv      = "FEEDINGEST_INDEX_API_KEY"
	indexCorpusEnv      = "FEEDINGEST_INDEX_CORPUS_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Feed       FeedConfig       `yaml:"feed"`
	State      StateConfig      `yaml:"state"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Index      IndexConfig      `yaml:"index"`
	Retry      RetryConfig      `yaml:"retry"`
	History    HistoryConfig    `yaml:"history"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// FeedConfig describes the feed to scan.
type FeedConfig struct {
	URL    string `yaml:"url"`
	Source string `yaml:"source"`
}

// StateConfig selects the state backend: a local JSON file by default, or a
// SQLite database when a DSN is set.
type StateConfig struct {
	Path      string `yaml:"path"`
	SQLiteDSN string `yaml:"sqliteDsn"`
}

// SchedulerConfig defines when recurring runs execute.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// SummarizerConfig defines how to contact the summarization model API.
type SummarizerConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// IndexConfig defines the retrieval index ingestion endpoint.
type IndexConfig struct {
	BaseURL  string `yaml:"baseUrl"`
	CorpusID string `yaml:"corpusId"`
	APIKey   string `yaml:"apiKey"`
}

// RetryConfig tunes the shared fetch/ingest retry policy.
type RetryConfig struct {
	MaxAttempts    int     `yaml:"maxAttempts"`
	InitialDelayMs int     `yaml:"initialDelayMs"`
	MaxDelayMs     int     `yaml:"maxDelayMs"`
	Multiplier     float64 `yaml:"multiplier"`
}

// HistoryConfig bounds the persisted run history.
type HistoryConfig struct {
	MaxEntries int `yaml:"maxEntries"`
}

// LoggingConfig selects log verbosity and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides. An explicit path wins over the FEEDINGEST_CONFIG variable.
func Load(path string) Config {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(feedURLEnv); v != "" {
		c.Feed.URL = v
	}
	if v := os.Getenv(statePathEnv); v != "" {
		c.State.Path = v
	}
	if v := os.Getenv(stateSQLiteDSNEnv); v != "" {
		c.State.SQLiteDSN = v
	}
	if v := os.Getenv(summarizerAPIKeyEnv); v != "" {
		c.Summarizer.APIKey = v
	}
	if v := os.Getenv(summarizerModelEnv); v != "" {
		c.Summarizer.Model = v
	}
	if v := os.Getenv(indexAPIKeyEnv); v != "" {
		c.Index.APIKey = v
	}
	if v := os.Getenv(indexCorpusEnv); v != "" {
		c.Index.CorpusID = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Feed.URL != "" {
		base.Feed.URL = override.Feed.URL
	}
	if override.Feed.Source != "" {
		base.Feed.Source = override.Feed.Source
	}

	if override.State.Path != "" {
		base.State.Path = override.State.Path
	}
	if override.State.SQLiteDSN != "" {
		base.State.SQLiteDSN = override.State.SQLiteDSN
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Summarizer.Endpoint != "" {
		base.Summarizer.Endpoint = override.Summarizer.Endpoint
	}
	if override.Summarizer.Model != "" {
		base.Summarizer.Model = override.Summarizer.Model
	}
	if override.Summarizer.APIKey != "" {
		base.Summarizer.APIKey = override.Summarizer.APIKey
	}
	if override.Summarizer.SystemPrompt != "" {
		base.Summarizer.SystemPrompt = override.Summarizer.SystemPrompt
	}

	if override.Index.BaseURL != "" {
		base.Index.BaseURL = override.Index.BaseURL
	}
	if override.Index.CorpusID != "" {
		base.Index.CorpusID = override.Index.CorpusID
	}
	if override.Index.APIKey != "" {
		base.Index.APIKey = override.Index.APIKey
	}

	if override.Retry.MaxAttempts > 0 {
		base.Retry.MaxAttempts = override.Retry.MaxAttempts
	}
	if override.Retry.InitialDelayMs > 0 {
		base.Retry.InitialDelayMs = override.Retry.InitialDelayMs
	}
	if override.Retry.MaxDelayMs > 0 {
		base.Retry.MaxDelayMs = override.Retry.MaxDelayMs
	}
	if override.Retry.Multiplier > 0 {
		base.Retry.Multiplier = override.Retry.Multiplier
	}

	if override.History.MaxEntries > 0 {
		base.History.MaxEntries = override.History.MaxEntries
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Feed: FeedConfig{
			URL:    "https://developer.nvidia.com/blog/feed",
			Source: "nvidia_tech_blog",
		},
		State:     StateConfig{Path: "state/feedingest.json"},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone, location: tz},
		Summarizer: SummarizerConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You summarize technical blog articles into structured JSON.",
		},
		Index: IndexConfig{
			BaseURL: "https://rag.example.org",
		},
		Retry: RetryConfig{
			MaxAttempts:    4,
			InitialDelayMs: 1000,
			MaxDelayMs:     60000,
			Multiplier:     2,
		},
		History: HistoryConfig{MaxEntries: 10},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}
