package config

import "errors"

var (
	// ErrNoSeedURL is returned when no seed URL is provided
	ErrNoSeedURL = errors.New("no seed URL provided")
	// ErrInvalidSeedURL is returned when the seed URL is not an absolute http(s) URL
	ErrInvalidSeedURL = errors.New("seed URL must be an absolute http or https URL")
	// ErrInvalidMaxDepth is returned when max depth is not greater than 0
	ErrInvalidMaxDepth = errors.New("max_depth must be greater than 0")
	// ErrInvalidConcurrency is returned when concurrency is not greater than 0
	ErrInvalidConcurrency = errors.New("concurrency must be greater than 0")
	// ErrInvalidTimeout is returned when request timeout is not greater than 0
	ErrInvalidTimeout = errors.New("request_timeout must be greater than 0")
	// ErrInvalidStrategy is returned when the traversal strategy is unknown
	ErrInvalidStrategy = errors.New("strategy must be 'dfs' or 'bfs'")
	// ErrConcurrencyNeedsBFS is returned when concurrent fetching is requested with depth-first order
	ErrConcurrencyNeedsBFS = errors.New("concurrency greater than 1 requires the 'bfs' strategy")
	// ErrEmptyOutputDir is returned when output directory is empty
	ErrEmptyOutputDir = errors.New("output_dir cannot be empty")
)
