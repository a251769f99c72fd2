package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./trendline.db" description:"Path to the SQLite database file"`

	// Application configuration
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	ChannelsFile      string `long:"channels-file" env:"CHANNELS_FILE" default:"./channels.yml" description:"YAML file with seed channels, used when the channel table is empty"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of background workers, bounds fetch concurrency"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"900" description:"Interval between ingestion cycles in seconds"`

	// Fetch configuration
	SourceBaseURL  string `long:"source-base-url" env:"SOURCE_BASE_URL" default:"https://weibo.com" description:"Base URL of the feed source"`
	SinceVariants  int    `long:"since-variants" env:"SINCE_VARIANTS" default:"3" description:"Number of overlapping since-window variants per channel"`
	PollCount      int    `long:"poll-count" env:"POLL_COUNT" default:"8" description:"Polls per feed URL within one cycle"`
	FirstPollCount int    `long:"first-poll-count" env:"FIRST_POLL_COUNT" default:"50" description:"Polls per feed URL for the first since-window variant"`
	FetchTimeout   int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Per-poll timeout in seconds"`
	RecencyHours   int    `long:"recency-hours" env:"RECENCY_HOURS" default:"72" description:"Posts older than this many hours are not ingested"`

	// Analysis service configuration
	AnalysisURL string `long:"analysis-url" env:"ANALYSIS_URL" default:"http://localhost:9090" description:"Base URL of the keyword/sentiment analysis service"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Trendline/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Shanghai)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		Port:              raw.Port,
		APIAccessKey:      raw.APIAccessKey,
		ChannelsFile:      raw.ChannelsFile,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		SourceBaseURL:     raw.SourceBaseURL,
		SinceVariants:     raw.SinceVariants,
		PollCount:         raw.PollCount,
		FirstPollCount:    raw.FirstPollCount,
		FetchTimeout:      raw.FetchTimeout,
		RecencyHours:      raw.RecencyHours,
		AnalysisURL:       raw.AnalysisURL,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Set replaces the global configuration, used by tests
func Set(c *Cfg) {
	globalCfg = c
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
