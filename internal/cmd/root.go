// Package cmd provides the command-line interface for LinkSpider.
// It handles command parsing, configuration loading, crawler execution and
// report output.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/masahif/linkspider/internal/config"
	"github.com/masahif/linkspider/internal/crawler"
	"github.com/masahif/linkspider/internal/logging"
	"github.com/masahif/linkspider/internal/report"
	"github.com/masahif/linkspider/internal/storage"
)

// envPrefix prefixes environment overrides, e.g. LS_MAX_DEPTH
const envPrefix = "LS"

const defaultUserAgent = "LinkSpider/1.0"

var (
	version   = "dev"
	buildTime = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = NewRootCmd()

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets version information for the CLI
func SetVersionInfo(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

// NewRootCmd builds the crawl command with its own viper instance
func NewRootCmd() *cobra.Command {
	return newRootCmd(runCrawler)
}

func newRootCmd(run func(*cobra.Command, *viper.Viper, []string) error) *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "crawl <seed_url> [max_depth] [suppress_duplicates]",
		Short: "Crawl a site within robots.txt rules and report its links",
		Long: `LinkSpider crawls a single site from a seed URL, honouring robots.txt,
and records every visited page together with the links found on it.

It writes crawl.txt (visited pages and their links) and results.txt (links
to visited pages per page), and optionally a Markdown summary and a SQLite
export of the run.`,
		Version:       fmt.Sprintf("%s (built %s)", version, buildTime),
		Args:          cobra.MaximumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd, v, cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, args)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		fmt.Sprintf("config file (default is ./%s.yml or %s/%s.yml)", config.AppName, config.ConfigDir(), config.AppName))

	cmd.Flags().Bool("show-config", false, "Display current configuration in YAML format and exit")

	// Traversal
	cmd.Flags().IntP("max-depth", "m", config.DefaultMaxDepth, "Maximum number of pages to visit (1-100)")
	cmd.Flags().Bool("allow-duplicates", false, "Record repeated links on the same page")
	cmd.Flags().String("strategy", config.StrategyDFS, "Traversal order: 'dfs' or 'bfs'")
	cmd.Flags().IntP("concurrency", "c", 1, "Number of concurrent fetches (bfs only)")
	cmd.Flags().Float64P("delay", "r", 0, "Delay between requests to the same host in seconds")

	// HTTP
	cmd.Flags().DurationP("timeout", "t", 30*time.Second, "HTTP request timeout")
	cmd.Flags().StringP("user-agent", "u", defaultUserAgent, "HTTP User-Agent header")
	cmd.Flags().StringSliceP("header", "H", []string{}, "Custom HTTP headers in 'Name: Value' format (use multiple times for multiple headers)")

	// Policy and resolution
	cmd.Flags().Bool("ignore-robots", false, "Ignore robots.txt rules (links must still stay on the site)")
	cmd.Flags().Bool("strict-resolve", false, "Resolve every relative link against the page it was found on")

	// Output
	cmd.Flags().StringP("output-dir", "o", ".", "Directory for crawl.txt and results.txt")
	cmd.Flags().String("markdown", "", "Also write a Markdown summary to this path")
	cmd.Flags().StringP("database", "d", "", "Also export the crawl to this SQLite database")

	// Logging
	cmd.Flags().String("log-level", "info", "Log level: debug, info, warn, error")
	cmd.Flags().String("log-format", logging.FormatJSON, "Log format: json or text")
	cmd.Flags().String("log-file", "", "Also write logs to this file (rotated at 100MB)")

	bindFlags := []struct {
		viperKey string
		flagName string
	}{
		{"max_depth", "max-depth"},
		{"allow_duplicates", "allow-duplicates"},
		{"strategy", "strategy"},
		{"concurrency", "concurrency"},
		{"request_delay", "delay"},
		{"request_timeout", "timeout"},
		{"user_agent", "user-agent"},
		{"headers", "header"},
		{"ignore_robots", "ignore-robots"},
		{"strict_resolve", "strict-resolve"},
		{"output_dir", "output-dir"},
		{"markdown_path", "markdown"},
		{"database_path", "database"},
		{"log_level", "log-level"},
		{"log_format", "log-format"},
		{"log_file", "log-file"},
	}

	for _, bind := range bindFlags {
		if err := v.BindPFlag(bind.viperKey, cmd.Flags().Lookup(bind.flagName)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind flag %s: %v\n", bind.flagName, err)
		}
	}

	// seed_url has no flag; it comes from the first argument, the config
	// file or LS_SEED_URL
	v.SetDefault("seed_url", "")

	return cmd
}

// initConfig reads in config file and ENV variables if set.
func initConfig(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(config.ConfigDir())
		v.SetConfigType("yaml")
		v.SetConfigName(config.AppName)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		return nil
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", v.ConfigFileUsed())
	return nil
}

func generateUserAgent() string {
	if version != "" && version != "dev" {
		return fmt.Sprintf("LinkSpider/%s", version)
	}
	return "LinkSpider/dev"
}

// loadConfig merges defaults, config file, environment, flags and positional
// arguments, in increasing priority
func loadConfig(cmd *cobra.Command, v *viper.Viper, args []string) (*config.CrawlConfig, error) {
	cfg := config.DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(args) > 0 {
		cfg.SeedURL = args[0]
	}
	if len(args) > 1 {
		depth, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("%w: %q", config.ErrInvalidMaxDepth, args[1])
		}
		cfg.MaxDepth = depth
	}
	if len(args) > 2 {
		suppress, err := strconv.ParseBool(args[2])
		if err != nil {
			return nil, fmt.Errorf("invalid suppress_duplicates %q: %w", args[2], err)
		}
		cfg.AllowDuplicates = !suppress
	}

	if !cmd.Flags().Changed("user-agent") && cfg.UserAgent == defaultUserAgent {
		cfg.UserAgent = generateUserAgent()
	}

	return cfg, nil
}

func showCurrentConfig(w io.Writer, cfg *config.CrawlConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Configuration validation failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "Displaying configuration anyway...\n\n")
	}

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}

	fmt.Fprintf(w, "# Current LinkSpider Configuration\n")
	fmt.Fprintf(w, "# Generated at: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "# Configuration file search paths: ./%s.yml, %s/%s.yml\n", config.AppName, config.ConfigDir(), config.AppName)
	fmt.Fprintf(w, "# Environment variables prefix: %s_\n\n", envPrefix)

	fmt.Fprint(w, string(yamlData))

	fmt.Fprintf(w, "\n# Configuration source priority:\n")
	fmt.Fprintf(w, "# 1. Positional arguments and command-line flags (highest priority)\n")
	fmt.Fprintf(w, "# 2. Environment variables (%s_ prefix)\n", envPrefix)
	fmt.Fprintf(w, "# 3. Configuration file (%s.yml)\n", config.AppName)
	fmt.Fprintf(w, "# 4. Default values (lowest priority)\n")

	return nil
}

func setupLogging(cmd *cobra.Command, cfg *config.CrawlConfig) (io.Closer, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = level
	logCfg.Format = cfg.LogFormat
	logCfg.FilePath = cfg.LogFile
	logCfg.Output = cmd.ErrOrStderr()

	return logging.SetDefault(*logCfg)
}

func runCrawler(cmd *cobra.Command, v *viper.Viper, args []string) error {
	cfg, err := loadConfig(cmd, v, args)
	if err != nil {
		return err
	}

	if showConfig, _ := cmd.Flags().GetBool("show-config"); showConfig {
		return showCurrentConfig(cmd.OutOrStdout(), cfg)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logCloser, err := setupLogging(cmd, cfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer func() { _ = logCloser.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := crawler.NewCrawler(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize crawler: %w", err)
	}
	defer func() { _ = c.Stop() }()

	result, runErr := c.Run(ctx)
	if result == nil {
		return fmt.Errorf("crawl failed: %w", runErr)
	}

	if err := writeOutputs(cfg, result); err != nil {
		return errors.Join(runErr, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Visited %d pages (%d failed, %d links skipped) in %s\n",
		result.Stats.PagesCrawled, result.Stats.PagesFailed, result.Stats.Skipped,
		result.Stats.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "Reports written to %s\n", cfg.OutputDir)

	if runErr != nil {
		return fmt.Errorf("crawl stopped early, partial reports written: %w", runErr)
	}
	return nil
}

// writeOutputs writes every configured report for result
func writeOutputs(cfg *config.CrawlConfig, result *crawler.Result) error {
	if err := report.SaveFiles(cfg.OutputDir, result); err != nil {
		return err
	}
	slog.Info("Wrote reports", "dir", cfg.OutputDir)

	if cfg.MarkdownPath != "" {
		if err := report.SaveMarkdown(cfg.MarkdownPath, result); err != nil {
			return err
		}
		slog.Info("Wrote markdown summary", "path", cfg.MarkdownPath)
	}

	if cfg.DatabasePath != "" {
		if err := exportDatabase(cfg.DatabasePath, result); err != nil {
			return err
		}
		slog.Info("Exported crawl to database", "path", cfg.DatabasePath)
	}

	return nil
}

func exportDatabase(path string, result *crawler.Result) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close storage: %w", cerr)
		}
	}()

	if err := store.SaveResult(result); err != nil {
		return fmt.Errorf("failed to export crawl: %w", err)
	}
	return nil
}
