// Package config provides configuration management for the crawler.
// It defines configuration structures and default values for crawling parameters.
package config

import (
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// AppName names the config file and the XDG config directory
const AppName = "linkspider"

// Traversal strategies
const (
	StrategyDFS = "dfs"
	StrategyBFS = "bfs"
)

const (
	// DefaultMaxDepth is used when no depth is given on the command line
	DefaultMaxDepth = 100
	// MaxDepthLimit is the upper clamp applied to MaxDepth
	MaxDepthLimit = 100
)

// CrawlConfig holds crawler configuration
type CrawlConfig struct {
	// Basic crawling parameters
	SeedURL         string  `mapstructure:"seed_url" yaml:"seed_url"`                 // Starting URL for crawling
	MaxDepth        int     `mapstructure:"max_depth" yaml:"max_depth"`               // Maximum number of pages to visit
	AllowDuplicates bool    `mapstructure:"allow_duplicates" yaml:"allow_duplicates"` // Keep repeated links on a page
	Strategy        string  `mapstructure:"strategy" yaml:"strategy"`                 // Traversal order: dfs or bfs
	Concurrency     int     `mapstructure:"concurrency" yaml:"concurrency"`           // Number of concurrent fetches (bfs only)
	RequestDelay    float64 `mapstructure:"request_delay" yaml:"request_delay"`       // Delay between requests in seconds

	// HTTP
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"` // HTTP request timeout
	UserAgent      string        `mapstructure:"user_agent" yaml:"user_agent"`           // HTTP User-Agent header
	Headers        []string      `mapstructure:"headers" yaml:"headers"`                 // Extra headers in "Name: Value" form

	// Policy and resolution
	IgnoreRobots  bool `mapstructure:"ignore_robots" yaml:"ignore_robots"`   // Skip robots.txt (site scope still applies)
	StrictResolve bool `mapstructure:"strict_resolve" yaml:"strict_resolve"` // RFC 3986 link resolution

	// Output
	OutputDir    string `mapstructure:"output_dir" yaml:"output_dir"`       // Directory for crawl.txt and results.txt
	MarkdownPath string `mapstructure:"markdown_path" yaml:"markdown_path"` // Optional Markdown summary
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"` // Optional SQLite export

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"` // json or text
	LogFile   string `mapstructure:"log_file" yaml:"log_file"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *CrawlConfig {
	return &CrawlConfig{
		MaxDepth:        DefaultMaxDepth,
		AllowDuplicates: false,
		Strategy:        StrategyDFS,
		Concurrency:     1,
		RequestDelay:    0,
		RequestTimeout:  30 * time.Second,
		UserAgent:       "LinkSpider/1.0",
		OutputDir:       ".",
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// ConfigDir returns the per-user config directory searched for
// linkspider.yml, e.g. ~/.config/linkspider on Linux.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// SuppressDuplicates reports whether repeated links on one page are dropped.
func (c *CrawlConfig) SuppressDuplicates() bool {
	return !c.AllowDuplicates
}

// Validate checks if the configuration is valid.
// MaxDepth is clamped to MaxDepthLimit and a negative delay is reset to 0.
func (c *CrawlConfig) Validate() error {
	if c.SeedURL == "" {
		return ErrNoSeedURL
	}

	u, err := url.Parse(c.SeedURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidSeedURL
	}

	if c.MaxDepth <= 0 {
		return ErrInvalidMaxDepth
	}
	if c.MaxDepth > MaxDepthLimit {
		c.MaxDepth = MaxDepthLimit
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	c.Strategy = strings.ToLower(strings.TrimSpace(c.Strategy))
	switch c.Strategy {
	case StrategyDFS:
		if c.Concurrency > 1 {
			return ErrConcurrencyNeedsBFS
		}
	case StrategyBFS:
	default:
		return ErrInvalidStrategy
	}

	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.RequestDelay < 0 {
		c.RequestDelay = 0
	}

	if c.OutputDir == "" {
		return ErrEmptyOutputDir
	}

	return nil
}

// Delay returns the request delay as a duration
func (c *CrawlConfig) Delay() time.Duration {
	return time.Duration(c.RequestDelay * float64(time.Second))
}

// HeaderMap parses Headers ("Name: Value") into a map.
// Malformed entries are skipped with a warning.
func (c *CrawlConfig) HeaderMap() map[string]string {
	headerMap := make(map[string]string)
	for _, header := range c.Headers {
		colonIndex := strings.Index(header, ":")
		if colonIndex <= 0 {
			slog.Warn("Skipping invalid header format", "header", header)
			continue
		}

		key := strings.TrimSpace(header[:colonIndex])
		value := strings.TrimSpace(header[colonIndex+1:])
		if key == "" || value == "" {
			slog.Warn("Skipping header with empty key or value", "header", header)
			continue
		}

		headerMap[key] = value
	}
	return headerMap
}
