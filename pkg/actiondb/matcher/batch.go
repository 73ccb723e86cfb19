package matcher

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// chunkSize is the number of lines a worker matches between context checks.
const chunkSize = 256

// LineResult is the outcome for one line of a batch.
type LineResult struct {
	Index   int // 0-based position in the input
	Line    string
	Matched bool
	Result  Result
}

// MatchLines matches lines concurrently on at most workers goroutines and
// returns the results in input order. workers <= 0 uses GOMAXPROCS.
// If ctx is cancelled the batch stops and ctx's error is returned.
func MatchLines(ctx context.Context, m *Matcher, lines []string, workers int) ([]LineResult, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	out := make([]LineResult, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(lines); start += chunkSize {
		if gctx.Err() != nil {
			break
		}
		end := min(start+chunkSize, len(lines))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				res, ok := m.MatchLine(lines[i])
				out[i] = LineResult{Index: i, Line: lines[i], Matched: ok, Result: res}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
