package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/masahif/linkspider/internal/config"
	"github.com/masahif/linkspider/internal/crawler"
	"github.com/masahif/linkspider/internal/storage"
)

// execute runs a fresh root command with args and returns its stdout
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), err
}

// loadFrom parses args into a config without running the crawl
func loadFrom(t *testing.T, args ...string) (*config.CrawlConfig, error) {
	t.Helper()

	var cfg *config.CrawlConfig
	cmd := newRootCmd(func(c *cobra.Command, v *viper.Viper, a []string) error {
		var err error
		cfg, err = loadConfig(c, v, a)
		return err
	})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func TestSetVersionInfo(t *testing.T) {
	origVersion, origBuildTime := version, buildTime
	defer SetVersionInfo(origVersion, origBuildTime)

	SetVersionInfo("1.2.3", "2023-12-01T10:00:00Z")

	expected := "1.2.3 (built 2023-12-01T10:00:00Z)"
	if rootCmd.Version != expected {
		t.Errorf("Expected version %s, got %s", expected, rootCmd.Version)
	}
	if ua := generateUserAgent(); ua != "LinkSpider/1.2.3" {
		t.Errorf("generateUserAgent() = %q, want LinkSpider/1.2.3", ua)
	}
}

func TestRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	if !strings.HasPrefix(cmd.Use, "crawl <seed_url>") {
		t.Errorf("Unexpected use: %s", cmd.Use)
	}
	if cmd.RunE == nil {
		t.Error("RunE should be set")
	}

	expectedFlags := []string{
		"show-config", "max-depth", "allow-duplicates", "strategy", "concurrency",
		"delay", "timeout", "user-agent", "header", "ignore-robots", "strict-resolve",
		"output-dir", "markdown", "database", "log-level", "log-format", "log-file",
	}
	for _, name := range expectedFlags {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("Expected flag %s to be defined", name)
		}
	}
	if cmd.PersistentFlags().Lookup("config") == nil {
		t.Error("Expected persistent flag 'config' to be defined")
	}
}

func TestTooManyArgs(t *testing.T) {
	_, err := execute(t, "http://example.com/", "3", "true", "extra")
	if err == nil {
		t.Fatal("Expected error for a fourth positional argument")
	}
}

func TestPositionalArgs(t *testing.T) {
	t.Run("all three", func(t *testing.T) {
		cfg, err := loadFrom(t, "--max-depth", "50", "http://example.com/", "7", "false")
		if err != nil {
			t.Fatalf("loadConfig failed: %v", err)
		}
		if cfg.SeedURL != "http://example.com/" {
			t.Errorf("SeedURL = %q", cfg.SeedURL)
		}
		if cfg.MaxDepth != 7 {
			t.Errorf("MaxDepth = %d, want 7 (positional wins over flag)", cfg.MaxDepth)
		}
		if !cfg.AllowDuplicates {
			t.Error("suppress_duplicates=false should allow duplicates")
		}
	})

	t.Run("seed only", func(t *testing.T) {
		cfg, err := loadFrom(t, "http://example.com/")
		if err != nil {
			t.Fatalf("loadConfig failed: %v", err)
		}
		if cfg.MaxDepth != config.DefaultMaxDepth {
			t.Errorf("MaxDepth = %d, want %d", cfg.MaxDepth, config.DefaultMaxDepth)
		}
		if !cfg.SuppressDuplicates() {
			t.Error("Duplicates should be suppressed by default")
		}
	})

	t.Run("invalid max_depth", func(t *testing.T) {
		_, err := loadFrom(t, "http://example.com/", "deep")
		if !errors.Is(err, config.ErrInvalidMaxDepth) {
			t.Errorf("Expected ErrInvalidMaxDepth, got %v", err)
		}
	})

	t.Run("invalid suppress_duplicates", func(t *testing.T) {
		_, err := loadFrom(t, "http://example.com/", "3", "maybe")
		if err == nil || !strings.Contains(err.Error(), "suppress_duplicates") {
			t.Errorf("Expected suppress_duplicates error, got %v", err)
		}
	})
}

func TestUserAgentFlag(t *testing.T) {
	cfg, err := loadFrom(t, "-u", "TestAgent/1.0", "http://example.com/")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.UserAgent != "TestAgent/1.0" {
		t.Errorf("UserAgent = %q, want TestAgent/1.0", cfg.UserAgent)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("LS_MAX_DEPTH", "12")
	t.Setenv("LS_SEED_URL", "http://env.example.com/")

	cfg, err := loadFrom(t)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.MaxDepth != 12 {
		t.Errorf("MaxDepth = %d, want 12 from LS_MAX_DEPTH", cfg.MaxDepth)
	}
	if cfg.SeedURL != "http://env.example.com/" {
		t.Errorf("SeedURL = %q, want value from LS_SEED_URL", cfg.SeedURL)
	}
}

func TestShowConfig(t *testing.T) {
	out, err := execute(t, "--show-config", "--strategy", "bfs", "-c", "4", "http://example.com/", "5")
	if err != nil {
		t.Fatalf("show-config failed: %v", err)
	}

	for _, want := range []string{
		"# Current LinkSpider Configuration",
		"seed_url: http://example.com/",
		"max_depth: 5",
		"strategy: bfs",
		"concurrency: 4",
		"LS_",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("show-config output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "linkspider.yml")
	content := `
seed_url: http://file.example.com/
max_depth: 9
strategy: bfs
concurrency: 3
headers:
  - "Authorization: Bearer token"
`
	if err := os.WriteFile(configFile, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	out, err := execute(t, "--config", configFile, "--show-config")
	if err != nil {
		t.Fatalf("show-config with config file failed: %v", err)
	}
	for _, want := range []string{
		"seed_url: http://file.example.com/",
		"max_depth: 9",
		"concurrency: 3",
		"Authorization: Bearer token",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := execute(t, "--config", filepath.Join(dir, "absent.yml"), "http://example.com/")
		if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
			t.Errorf("Expected config read error, got %v", err)
		}
	})
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"no seed", nil, config.ErrNoSeedURL},
		{"relative seed", []string{"/index.html"}, config.ErrInvalidSeedURL},
		{"zero depth", []string{"http://example.com/", "0"}, config.ErrInvalidMaxDepth},
		{"dfs with concurrency", []string{"-c", "2", "http://example.com/"}, config.ErrConcurrencyNeedsBFS},
		{"unknown strategy", []string{"--strategy", "random", "http://example.com/"}, config.ErrInvalidStrategy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append([]string{"-o", t.TempDir()}, tt.args...)...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestUnknownLogLevel(t *testing.T) {
	_, err := execute(t, "-o", t.TempDir(), "--log-level", "verbose", "http://example.com/")
	if err == nil || !strings.Contains(err.Error(), "failed to set up logging") {
		t.Errorf("Expected logging setup error, got %v", err)
	}
}

func newSite(t *testing.T, robots string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			if robots == "" {
				http.NotFound(w, r)
				return
			}
			fmt.Fprint(w, robots)
		case "/":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><a href="a">A</a><a href="b">B</a><a href="a">A again</a></body></html>`)
		case "/a":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><a href="/">Home</a></body></html>`)
		case "/b":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRunCrawlerWritesReports(t *testing.T) {
	server := newSite(t, "")
	outDir := filepath.Join(t.TempDir(), "out")
	mdPath := filepath.Join(outDir, "report.md")
	dbPath := filepath.Join(t.TempDir(), "db", "crawl.db")
	seed := server.URL + "/"

	out, err := execute(t,
		"-o", outDir,
		"--markdown", mdPath,
		"-d", dbPath,
		"--log-level", "error",
		seed, "3", "true",
	)
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	if !strings.Contains(out, "Visited 2 pages (1 failed") {
		t.Errorf("Unexpected summary: %q", out)
	}

	crawl, err := os.ReadFile(filepath.Join(outDir, "crawl.txt"))
	if err != nil {
		t.Fatalf("crawl.txt not written: %v", err)
	}
	expectedCrawl := fmt.Sprintf(
		"<Visited %[1]s>\n\t<Link %[1]sa>\n\t<Link %[1]sb>\n<Visited %[1]sa>\n\t<Link %[1]s>\n<Failed %[1]sb>\n",
		seed)
	if !strings.HasPrefix(string(crawl), expectedCrawl) {
		t.Errorf("crawl.txt = %q, want prefix %q", string(crawl), expectedCrawl)
	}

	results, err := os.ReadFile(filepath.Join(outDir, "results.txt"))
	if err != nil {
		t.Fatalf("results.txt not written: %v", err)
	}
	expectedResults := fmt.Sprintf(
		"<Visited %[1]s>\n\t<No of links to Visited pages: 1>\n<Visited %[1]sa>\n\t<No of links to Visited pages: 1>\n",
		seed)
	if !strings.HasPrefix(string(results), expectedResults) {
		t.Errorf("results.txt = %q, want prefix %q", string(results), expectedResults)
	}

	md, err := os.ReadFile(mdPath)
	if err != nil {
		t.Fatalf("markdown not written: %v", err)
	}
	if !strings.Contains(string(md), "# Crawl Report") {
		t.Errorf("markdown missing title: %q", string(md))
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to open exported database: %v", err)
	}
	defer store.Close()

	visited, err := store.VisitedURLs()
	if err != nil {
		t.Fatalf("VisitedURLs failed: %v", err)
	}
	if len(visited) != 2 || visited[0] != seed {
		t.Errorf("visited = %v, want seed and /a", visited)
	}
}

func TestRunCrawlerSeedDisallowed(t *testing.T) {
	server := newSite(t, "User-agent: *\nDisallow: /\n")
	outDir := t.TempDir()

	_, err := execute(t, "-o", outDir, "--log-level", "error", server.URL+"/")
	if !errors.Is(err, crawler.ErrSeedDisallowed) {
		t.Fatalf("Expected ErrSeedDisallowed, got %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "crawl.txt")); !os.IsNotExist(err) {
		t.Error("No reports should be written when the crawl cannot start")
	}
}
