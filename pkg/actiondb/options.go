package actiondb

import (
	"fmt"
	"log/slog"
)

// WatchOption configures a Watcher using the functional options pattern.
type WatchOption func(*watchConfig)

// ReplayMode specifies how a Watcher handles lines already in the file.
type ReplayMode int

const (
	// ReplayNone only delivers lines appended after Watch (default, tail -f).
	ReplayNone ReplayMode = iota
	// ReplayFromStart reads the whole file before following it.
	ReplayFromStart
	// ReplayLastN reads the last N non-empty lines before following.
	ReplayLastN
)

// ReplayConfig configures replay behavior.
type ReplayConfig struct {
	Mode  ReplayMode
	LastN int // for ReplayLastN
}

// DefaultMaxReplayLastN is the default cap on ReplayLastN.
const DefaultMaxReplayLastN = 10000

type watchConfig struct {
	replay             ReplayConfig
	maxReplayLines     int
	maxReplayBytes     int // 0 = unlimited
	maxReplayLineBytes int // 0 = unlimited
	includeUnmatched   bool
	poll               bool
	logger             *slog.Logger
}

func defaultWatchConfig() *watchConfig {
	return &watchConfig{
		maxReplayLines:     DefaultMaxReplayLastN,
		maxReplayBytes:     10 * 1024 * 1024,
		maxReplayLineBytes: 512 * 1024,
	}
}

func applyWatchOptions(opts []WatchOption) *watchConfig {
	cfg := defaultWatchConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

func (c *watchConfig) validate() error {
	if c.replay.Mode == ReplayLastN {
		if c.replay.LastN < 0 {
			return fmt.Errorf("replay LastN must be non-negative, got %d", c.replay.LastN)
		}
		if c.maxReplayLines > 0 && c.replay.LastN > c.maxReplayLines {
			return fmt.Errorf("replay LastN (%d) exceeds maximum of %d", c.replay.LastN, c.maxReplayLines)
		}
	}
	if c.maxReplayBytes < 0 {
		return fmt.Errorf("maxReplayBytes must be non-negative, got %d", c.maxReplayBytes)
	}
	if c.maxReplayLineBytes < 0 {
		return fmt.Errorf("maxReplayLineBytes must be non-negative, got %d", c.maxReplayLineBytes)
	}
	return nil
}

// WithReplay configures replay of existing lines. Default: ReplayNone.
func WithReplay(config ReplayConfig) WatchOption {
	return func(c *watchConfig) {
		c.replay = config
	}
}

// WithReplayFromStart reads the file from the beginning.
func WithReplayFromStart() WatchOption {
	return WithReplay(ReplayConfig{Mode: ReplayFromStart})
}

// WithReplayLastN reads the last n non-empty lines before following.
func WithReplayLastN(n int) WatchOption {
	return WithReplay(ReplayConfig{Mode: ReplayLastN, LastN: n})
}

// WithMaxReplayLines caps ReplayLastN. A negative value removes the cap.
func WithMaxReplayLines(max int) WatchOption {
	return func(c *watchConfig) {
		c.maxReplayLines = max
	}
}

// WithMaxReplayBytes limits how much of the file ReplayLastN may read.
// Default 10MB; 0 means unlimited.
func WithMaxReplayBytes(max int) WatchOption {
	return func(c *watchConfig) {
		c.maxReplayBytes = max
	}
}

// WithMaxReplayLineBytes limits the length of a replayed line.
// Default 512KB; 0 means unlimited.
func WithMaxReplayLineBytes(max int) WatchOption {
	return func(c *watchConfig) {
		c.maxReplayLineBytes = max
	}
}

// WithIncludeUnmatched also emits records for lines no pattern matched.
func WithIncludeUnmatched(include bool) WatchOption {
	return func(c *watchConfig) {
		c.includeUnmatched = include
	}
}

// WithPoll follows the file by polling instead of filesystem events.
// Useful on network filesystems.
func WithPoll(poll bool) WatchOption {
	return func(c *watchConfig) {
		c.poll = poll
	}
}

// WithLogger sets a logger for debug output. Nil disables logging.
func WithLogger(logger *slog.Logger) WatchOption {
	return func(c *watchConfig) {
		c.logger = logger
	}
}

// ParseOption configures Parse.
type ParseOption func(*parseConfig)

type parseConfig struct {
	workers          int
	batchSize        int
	maxLineBytes     int
	includeUnmatched bool
}

func defaultParseConfig() *parseConfig {
	return &parseConfig{
		batchSize:        4096,
		maxLineBytes:     1024 * 1024,
		includeUnmatched: true,
	}
}

func applyParseOptions(opts []ParseOption) *parseConfig {
	cfg := defaultParseConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.batchSize <= 0 {
		cfg.batchSize = 1
	}
	if cfg.maxLineBytes <= 0 {
		cfg.maxLineBytes = defaultParseConfig().maxLineBytes
	}
	return cfg
}

// WithParseWorkers sets the number of matching goroutines. 0 uses
// GOMAXPROCS.
func WithParseWorkers(n int) ParseOption {
	return func(c *parseConfig) {
		c.workers = n
	}
}

// WithParseBatchSize sets how many lines are read before they are matched
// together. Default 4096.
func WithParseBatchSize(n int) ParseOption {
	return func(c *parseConfig) {
		c.batchSize = n
	}
}

// WithParseMaxLineBytes sets the longest accepted input line. Default 1MB.
func WithParseMaxLineBytes(n int) ParseOption {
	return func(c *parseConfig) {
		c.maxLineBytes = n
	}
}

// WithParseIncludeUnmatched controls whether lines no pattern matched are
// yielded. Default true.
func WithParseIncludeUnmatched(include bool) ParseOption {
	return func(c *parseConfig) {
		c.includeUnmatched = include
	}
}
