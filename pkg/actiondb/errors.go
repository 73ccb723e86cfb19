package actiondb

import (
	"errors"
	"fmt"
)

var (
	// ErrWatcherClosed is returned by Watch after Close.
	ErrWatcherClosed = errors.New("watcher closed")

	// ErrAlreadyWatching is returned when Watch is called a second time.
	ErrAlreadyWatching = errors.New("watch already called")

	// ErrReplayLimitExceeded is returned when replaying the last lines of
	// a file would read more than the configured byte limits.
	ErrReplayLimitExceeded = errors.New("replay limit exceeded")
)

// WatchOp identifies the step of a Watcher that failed.
type WatchOp string

const (
	WatchOpReplay WatchOp = "replay"
	WatchOpTail   WatchOp = "tail"
)

// WatchError is sent on a Watcher's error channel.
type WatchError struct {
	Op   WatchOp
	Path string
	Err  error
}

func (e *WatchError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("watch %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("watch %s: %v", e.Op, e.Err)
}

func (e *WatchError) Unwrap() error { return e.Err }

// LineTooLongError is returned by Parse when a line exceeds the scanner
// buffer.
type LineTooLongError struct {
	LineNumber int
	Limit      int
}

func (e *LineTooLongError) Error() string {
	return fmt.Sprintf("line %d: longer than %d bytes", e.LineNumber, e.Limit)
}
