package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/masahif/linkspider/internal/crawler"
)

// WriteMarkdown writes a Markdown summary of the crawl: run properties, one
// row per visited page and the failed pages.
func WriteMarkdown(w io.Writer, result *crawler.Result) error {
	md := markdown.NewMarkdown(w)

	md.H1("Crawl Report")
	md.PlainText("")

	stats := result.Stats
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed URL", "`" + result.SeedURL + "`"},
			{"Site", "`" + result.SiteBase + "`"},
			{"Started", formatTime(stats.StartTime)},
			{"Duration", stats.Duration.Round(time.Millisecond).String()},
			{"Pages Crawled", strconv.Itoa(stats.PagesCrawled)},
			{"Pages Failed", strconv.Itoa(stats.PagesFailed)},
			{"Links Recorded", strconv.Itoa(stats.LinksFound)},
			{"Links Skipped", strconv.Itoa(stats.Skipped)},
		},
	})
	md.PlainText("")

	md.H2("Visited Pages")
	md.PlainText("")
	if len(result.Levels) == 0 {
		md.PlainText("No pages were visited.")
	} else {
		rows := make([][]string, 0, len(result.Levels))
		for _, level := range result.Levels {
			toVisited := strconv.Itoa(result.LinksToVisited(level))
			for _, visited := range level.Visited {
				rows = append(rows, []string{
					strconv.Itoa(level.Number),
					visited,
					strconv.Itoa(len(level.Links)),
					toVisited,
				})
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Level", "URL", "Links", "Links to Visited"},
			Rows:   rows,
		})
	}
	md.PlainText("")

	md.H2("Failures")
	md.PlainText("")
	if len(result.Failures) == 0 {
		md.Tip("Every admitted page was fetched.")
	} else {
		items := make([]string, len(result.Failures))
		for i, failure := range result.Failures {
			items[i] = fmt.Sprintf("`%s`: %s", failure.URL, failure.Reason)
		}
		md.Warningf("%d page(s) could not be fetched.", len(result.Failures))
		md.PlainText("")
		md.BulletList(items...)
	}
	md.PlainText("")

	md.HorizontalRule()

	return md.Build()
}

// SaveMarkdown writes the Markdown summary to path
func SaveMarkdown(path string, result *crawler.Result) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
	}
	return writeFile(path, result, WriteMarkdown)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05 MST")
}
