package actiondb

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/actiondb/actiondb-go/internal/safefile"
	"github.com/actiondb/actiondb-go/internal/tailer"
	"github.com/actiondb/actiondb-go/pkg/actiondb/matcher"
)

// watcherErrBuffer is the buffer size for the error channel.
const watcherErrBuffer = 16

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Watcher follows a text file and matches every line appended to it.
type Watcher struct {
	m   *matcher.Matcher
	cfg watchConfig
	log *slog.Logger

	mu       sync.Mutex
	closed   bool
	watching bool
	cancel   context.CancelFunc
	doneCh   chan struct{}
}

// NewWatcher validates the options and returns a Watcher. It does not
// start any goroutine.
//
// Example:
//
//	w, err := actiondb.NewWatcher(m, actiondb.WithReplayLastN(100))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//	records, errs, err := w.Watch(ctx, "/var/log/syslog")
func NewWatcher(m *matcher.Matcher, opts ...WatchOption) (*Watcher, error) {
	if m == nil {
		return nil, fmt.Errorf("invalid options: matcher is nil")
	}
	cfg := applyWatchOptions(opts)
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	log := cfg.logger
	if log == nil {
		log = discardLogger
	}
	return &Watcher{m: m, cfg: *cfg, log: log}, nil
}

// Watch starts following path and returns the record and error channels.
// Both channels are closed when ctx is cancelled, Close is called, or the
// file can no longer be followed. Watch can only be called once.
func (w *Watcher) Watch(ctx context.Context, path string) (<-chan Record, <-chan error, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, nil, ErrWatcherClosed
	}
	if w.watching {
		return nil, nil, ErrAlreadyWatching
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("input file: %w", err)
	}
	if info.IsDir() {
		return nil, nil, fmt.Errorf("input file: %s is a directory", path)
	}
	w.watching = true

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.doneCh = make(chan struct{})

	recCh := make(chan Record)
	errCh := make(chan error, watcherErrBuffer)
	go w.run(ctx, path, recCh, errCh)

	return recCh, errCh, nil
}

// Close stops the watcher and waits for its goroutine to exit.
// Safe to call multiple times.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.cancel != nil {
		w.cancel()
	}
	doneCh := w.doneCh
	w.mu.Unlock()

	if doneCh != nil {
		<-doneCh
	}
	return nil
}

func (w *Watcher) run(ctx context.Context, path string, recCh chan<- Record, errCh chan<- error) {
	defer close(w.doneCh)
	defer close(recCh)
	defer close(errCh)

	lineNo := 0
	emit := func(line string) bool {
		lineNo++
		return w.processLine(ctx, lineNo, line, recCh)
	}

	cfg := tailer.DefaultConfig()
	cfg.Poll = w.cfg.poll
	cfg.FromStart = w.cfg.replay.Mode == ReplayFromStart

	if w.cfg.replay.Mode == ReplayLastN && w.cfg.replay.LastN > 0 {
		w.log.Debug("replaying last lines", "n", w.cfg.replay.LastN, "path", path)
		lines, err := readLastLines(path, w.cfg.replay.LastN, w.cfg.maxReplayBytes, w.cfg.maxReplayLineBytes)
		if err != nil {
			sendError(ctx, errCh, &WatchError{Op: WatchOpReplay, Path: path, Err: err})
		}
		for _, line := range lines {
			if !emit(line) {
				return
			}
		}
	}

	t, err := tailer.New(ctx, path, cfg)
	if err != nil {
		sendError(ctx, errCh, &WatchError{Op: WatchOpTail, Path: path, Err: err})
		return
	}
	defer func() { _ = t.Stop() }()
	w.log.Debug("started tailing", "path", path, "from_start", cfg.FromStart, "poll", cfg.Poll)

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-t.Lines():
			if !ok {
				return
			}
			if !emit(line) {
				return
			}
		case err, ok := <-t.Errors():
			if !ok {
				return
			}
			sendError(ctx, errCh, &WatchError{Op: WatchOpTail, Path: path, Err: err})
		}
	}
}

// processLine matches line and sends the record. It returns false once ctx
// is done.
func (w *Watcher) processLine(ctx context.Context, lineNo int, line string, recCh chan<- Record) bool {
	res, ok := w.m.MatchLine(line)
	if !ok && !w.cfg.includeUnmatched {
		return ctx.Err() == nil
	}
	select {
	case recCh <- Record{LineNumber: lineNo, Line: line, Matched: ok, Result: res}:
		return true
	case <-ctx.Done():
		return false
	}
}

// readLastLines returns the last n non-empty lines of path, oldest first.
// It reads backwards in growing chunks so that only the tail of a large
// file is loaded. maxBytes and maxLineBytes of 0 disable the limits.
func readLastLines(path string, n, maxBytes, maxLineBytes int) ([]string, error) {
	f, info, err := safefile.OpenRegular(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var (
		buf    []byte
		offset = info.Size()
		step   = int64(4096)
		lines  []string
	)
	for offset > 0 {
		step = min(step, offset)
		if maxBytes > 0 && len(buf)+int(step) > maxBytes {
			return nil, ErrReplayLimitExceeded
		}
		offset -= step

		chunk := make([]byte, step, int(step)+len(buf))
		if _, err := f.ReadAt(chunk, offset); err != nil {
			return nil, err
		}
		buf = append(chunk, buf...)

		lines = splitLines(buf, offset > 0)
		if len(lines) >= n {
			break
		}
		step *= 2
	}
	if offset == 0 {
		lines = splitLines(buf, false)
	}

	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for _, line := range lines {
		if maxLineBytes > 0 && len(line) > maxLineBytes {
			return nil, ErrReplayLimitExceeded
		}
	}
	return lines, nil
}

// splitLines splits buf into non-empty lines. When partial is set the text
// before the first newline is an incomplete line and is dropped.
func splitLines(buf []byte, partial bool) []string {
	if partial {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			return nil
		}
		buf = buf[i+1:]
	}
	var out []string
	for _, line := range strings.Split(string(buf), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// sendError sends err without blocking. Errors are dropped when the buffer
// is full or the watcher is shutting down.
func sendError(ctx context.Context, errCh chan<- error, err error) {
	if err == nil {
		return
	}
	select {
	case errCh <- err:
	case <-ctx.Done():
	default:
	}
}
