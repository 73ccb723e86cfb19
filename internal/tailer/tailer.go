// Package tailer follows a growing text file line by line.
package tailer

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/nxadm/tail"
)

// errBuffer is the capacity of the error channel.
const errBuffer = 8

// Config controls how a file is followed.
type Config struct {
	// FromStart reads the existing content before following. Otherwise
	// only lines appended after New are delivered.
	FromStart bool
	// Poll uses stat polling instead of inotify/kqueue.
	Poll bool
	// ReOpen reopens the file when it is truncated, moved or recreated.
	ReOpen bool
	// MustExist fails New when the file does not exist yet.
	MustExist bool
}

// DefaultConfig follows a file that must exist, from its current end,
// reopening it across rotation.
func DefaultConfig() Config {
	return Config{ReOpen: true, MustExist: true}
}

// Tailer delivers the lines appended to a file. Stop must be called to
// release the underlying watcher.
type Tailer struct {
	t     *tail.Tail
	lines chan string
	errs  chan error

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
	stopErr  error
}

// New starts following path. Lines are delivered without the trailing
// newline or carriage return. The Lines and Errors channels close when ctx
// is cancelled or Stop is called.
func New(ctx context.Context, path string, cfg Config) (*Tailer, error) {
	whence := io.SeekEnd
	if cfg.FromStart {
		whence = io.SeekStart
	}
	t, err := tail.TailFile(path, tail.Config{
		Location:  &tail.SeekInfo{Offset: 0, Whence: whence},
		ReOpen:    cfg.ReOpen,
		MustExist: cfg.MustExist,
		Poll:      cfg.Poll,
		Follow:    true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, err
	}

	tl := &Tailer{
		t:      t,
		lines:  make(chan string),
		errs:   make(chan error, errBuffer),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go tl.run(ctx)
	return tl, nil
}

// Lines returns the channel of new lines.
func (t *Tailer) Lines() <-chan string { return t.lines }

// Errors returns the channel of read errors. Errors are dropped when the
// buffer is full.
func (t *Tailer) Errors() <-chan error { return t.errs }

// Stop stops following the file and waits for the delivery goroutine.
// It is safe to call more than once.
func (t *Tailer) Stop() error {
	t.stopOnce.Do(func() {
		close(t.stopCh)
		<-t.done
		// The tail goroutine may be blocked sending a line nobody reads.
		go func() {
			for range t.t.Lines {
			}
		}()
		t.stopErr = t.t.Stop()
		t.t.Cleanup()
	})
	return t.stopErr
}

func (t *Tailer) run(ctx context.Context) {
	defer close(t.done)
	defer close(t.lines)
	defer close(t.errs)

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopCh:
			return
		case line, ok := <-t.t.Lines:
			if !ok {
				return
			}
			if line.Err != nil {
				select {
				case t.errs <- line.Err:
				default:
				}
				continue
			}
			select {
			case t.lines <- strings.TrimSuffix(line.Text, "\r"):
			case <-ctx.Done():
				return
			case <-t.stopCh:
				return
			}
		}
	}
}
