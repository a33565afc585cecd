// Package report renders a finished crawl as the crawl.txt link trace, the
// results.txt link-count summary and an optional Markdown summary.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/masahif/linkspider/internal/crawler"
)

// Output file names written by SaveFiles
const (
	CrawlFile   = "crawl.txt"
	ResultsFile = "results.txt"
)

// WriteCrawl writes every visited URL followed by the links recorded on it:
//
//	<Visited http://site/>
//		<Link http://site/a>
func WriteCrawl(w io.Writer, result *crawler.Result) error {
	bw := bufio.NewWriter(w)

	for _, level := range result.Levels {
		for _, visited := range level.Visited {
			fmt.Fprintf(bw, "<Visited %s>\n", visited)
			for _, link := range level.Links {
				fmt.Fprintf(bw, "\t<Link %s>\n", link)
			}
		}
	}
	writeFailures(bw, result)

	return bw.Flush()
}

// WriteResults writes every visited URL with the number of its links that
// point at visited pages:
//
//	<Visited http://site/>
//		<No of links to Visited pages: 1>
func WriteResults(w io.Writer, result *crawler.Result) error {
	bw := bufio.NewWriter(w)

	for _, level := range result.Levels {
		count := result.LinksToVisited(level)
		for _, visited := range level.Visited {
			fmt.Fprintf(bw, "<Visited %s>\n", visited)
			fmt.Fprintf(bw, "\t<No of links to Visited pages: %d>\n", count)
		}
	}
	writeFailures(bw, result)

	return bw.Flush()
}

func writeFailures(w io.Writer, result *crawler.Result) {
	for _, failure := range result.Failures {
		fmt.Fprintf(w, "<Failed %s>\n", failure.URL)
		fmt.Fprintf(w, "\t<Error: %s>\n", failure.Reason)
	}
}

// SaveFiles writes crawl.txt and results.txt into dir, creating it if needed
func SaveFiles(dir string, result *crawler.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	files := []struct {
		name  string
		write func(io.Writer, *crawler.Result) error
	}{
		{CrawlFile, WriteCrawl},
		{ResultsFile, WriteResults},
	}

	for _, f := range files {
		if err := writeFile(filepath.Join(dir, f.name), result, f.write); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, result *crawler.Result, write func(io.Writer, *crawler.Result) error) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	if err := write(file, result); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
