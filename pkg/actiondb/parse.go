package actiondb

import (
	"bufio"
	"context"
	"errors"
	"io"
	"iter"
	"strings"

	"github.com/actiondb/actiondb-go/pkg/actiondb/matcher"
)

// Record is one input line and its match outcome.
type Record struct {
	// LineNumber is 1-based. For a Watcher it counts the lines the watcher
	// has seen, not the position in the file.
	LineNumber int
	Line       string
	Matched    bool
	Result     matcher.Result
}

// Parse matches every line of r and yields the records in input order.
// Lines are read in batches and each batch is matched concurrently.
// A read error or ctx cancellation is yielded once as the final element.
//
// Example:
//
//	for rec, err := range actiondb.Parse(ctx, m, f, actiondb.WithParseIncludeUnmatched(false)) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Printf("%d: %s %v\n", rec.LineNumber, rec.Result.Name, rec.Result.Values)
//	}
func Parse(ctx context.Context, m *matcher.Matcher, r io.Reader, opts ...ParseOption) iter.Seq2[Record, error] {
	cfg := applyParseOptions(opts)

	return func(yield func(Record, error) bool) {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, min(64*1024, cfg.maxLineBytes)), cfg.maxLineBytes)

		var (
			lineNo int
			batch  = make([]string, 0, cfg.batchSize)
		)
		flush := func() bool {
			if len(batch) == 0 {
				return true
			}
			results, err := matcher.MatchLines(ctx, m, batch, cfg.workers)
			if err != nil {
				yield(Record{}, err)
				return false
			}
			first := lineNo - len(batch) + 1
			batch = batch[:0]
			for _, lr := range results {
				if !lr.Matched && !cfg.includeUnmatched {
					continue
				}
				rec := Record{LineNumber: first + lr.Index, Line: lr.Line, Matched: lr.Matched, Result: lr.Result}
				if !yield(rec, nil) {
					return false
				}
			}
			return true
		}

		for sc.Scan() {
			lineNo++
			batch = append(batch, strings.TrimSuffix(sc.Text(), "\r"))
			if len(batch) == cfg.batchSize && !flush() {
				return
			}
		}
		if !flush() {
			return
		}
		if err := sc.Err(); err != nil {
			if errors.Is(err, bufio.ErrTooLong) {
				err = &LineTooLongError{LineNumber: lineNo + 1, Limit: cfg.maxLineBytes}
			}
			yield(Record{}, err)
		}
	}
}
