package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/actiondb/actiondb-go/internal/config"
	"github.com/actiondb/actiondb-go/pkg/actiondb"
	"github.com/actiondb/actiondb-go/pkg/actiondb/matcher"
)

// stdio names standard input or output in place of a file.
const stdio = "-"

type parseOptions struct {
	format      string
	workers     int
	includeRaw  bool
	onlyMatched bool
	follow      bool
	poll        bool
	replayLast  int
}

func newParseCmd(root *rootOptions) *cobra.Command {
	po := &parseOptions{}

	cmd := &cobra.Command{
		Use:   "parse <pattern file> <input> <output>",
		Short: "Match every line of a file and output the extracted fields",
		Long: `Match every line of the input against the pattern file and write one
record per line to the output.

Records are written as JSON Lines by default (one JSON object per line),
which makes it easy to process with tools like jq. Use "-" as input or
output for standard input or output.

Flags that are not given fall back to the parse.* settings of the
configuration.

Examples:
  # Parse a log file to stdout
  adbtool parse patterns.yaml /var/log/auth.log -

  # Human-readable output, matched lines only
  adbtool parse patterns.yaml app.log - --format pretty --only-matched

  # Follow a growing file after replaying its last 100 lines
  adbtool parse patterns.yaml /var/log/syslog - --follow --replay-last 100

  # Pipe to jq for filtering
  adbtool parse patterns.yaml app.log - | jq 'select(.name == "ssh_login")'`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			po.applyConfig(cmd.Flags(), root.cfg)
			return runParse(cmd, root, po, args[0], args[1], args[2])
		},
	}

	cmd.Flags().StringVarP(&po.format, "format", "f", config.FormatJSONL,
		"Output format: jsonl, pretty")
	cmd.Flags().IntVarP(&po.workers, "workers", "w", 0,
		"Matching goroutines (0 = number of CPUs)")
	cmd.Flags().BoolVar(&po.includeRaw, "raw", false,
		"Include the input line in output")
	cmd.Flags().BoolVar(&po.onlyMatched, "only-matched", false,
		"Skip lines no pattern matched")

	// Follow options
	cmd.Flags().BoolVar(&po.follow, "follow", false,
		"Keep reading lines appended to the input file until interrupted")
	cmd.Flags().BoolVar(&po.poll, "poll", false,
		"With --follow, poll the file instead of using filesystem events")
	cmd.Flags().IntVar(&po.replayLast, "replay-last", -1,
		"With --follow, replay last N lines before tailing (-1 = disabled, 0 = from start)")

	return cmd
}

// applyConfig fills the flags the user did not set from cfg.
func (po *parseOptions) applyConfig(flags *pflag.FlagSet, cfg *config.Config) {
	if !flags.Changed("format") {
		po.format = cfg.Parse.Format
	}
	if !flags.Changed("workers") {
		po.workers = cfg.Parse.Workers
	}
	if !flags.Changed("raw") {
		po.includeRaw = cfg.Parse.IncludeRaw
	}
	if !flags.Changed("only-matched") {
		po.onlyMatched = !cfg.Parse.IncludeUnmatched
	}
}

func (po *parseOptions) validate(input string) error {
	if !ValidFormats[po.format] {
		return fmt.Errorf("invalid format %q (want %s or %s)", po.format, config.FormatJSONL, config.FormatPretty)
	}
	if po.workers < 0 {
		return fmt.Errorf("--workers must be non-negative, got %d", po.workers)
	}
	if po.follow && input == stdio {
		return fmt.Errorf("--follow needs an input file, not standard input")
	}
	if !po.follow && (po.poll || po.replayLast >= 0) {
		return fmt.Errorf("--poll and --replay-last require --follow")
	}
	return nil
}

func runParse(cmd *cobra.Command, root *rootOptions, po *parseOptions, patternArg, input, output string) (err error) {
	if err := po.validate(input); err != nil {
		return &ExitError{Code: exitUsage, Err: err}
	}

	path, err := root.patternFile(patternArg)
	if err != nil {
		return err
	}
	m, diags, err := actiondb.Open(path)
	if err != nil {
		return &ExitError{Code: exitFailure, Err: err}
	}
	for _, d := range diags {
		root.logger.Warn("pattern file diagnostic", "excluded", d.Excluded(), "err", d.Error())
	}
	root.logger.Debug("loaded pattern file", "file", path, "patterns", m.Len())

	out, closeOut, err := openOutput(cmd.OutOrStdout(), output)
	if err != nil {
		return &ExitError{Code: exitUsage, Err: err}
	}
	defer func() {
		if cerr := closeOut(); cerr != nil && err == nil {
			err = &ExitError{Code: exitFailure, Err: cerr}
		}
	}()

	bw := bufio.NewWriter(out)
	if po.follow {
		err = followInput(cmd.Context(), root, po, m, input, bw)
	} else {
		err = parseInput(cmd.Context(), cmd.InOrStdin(), po, m, input, bw)
	}
	if ferr := bw.Flush(); err == nil && ferr != nil {
		err = fmt.Errorf("output error: %w", ferr)
	}
	if err != nil {
		return &ExitError{Code: exitFailure, Err: err}
	}
	return nil
}

func parseInput(ctx context.Context, stdin io.Reader, po *parseOptions, m *matcher.Matcher, input string, out io.Writer) error {
	in := stdin
	if input != stdio {
		f, err := os.Open(input)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	records := actiondb.Parse(ctx, m, in,
		actiondb.WithParseWorkers(po.workers),
		actiondb.WithParseIncludeUnmatched(!po.onlyMatched),
	)
	for rec, err := range records {
		if err != nil {
			return err
		}
		if err := OutputRecord(po.format, rec, po.includeRaw, out); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}
	return nil
}

// flusher is satisfied by the buffered output so followed records show up
// as soon as they are matched.
type flusher interface {
	Flush() error
}

func followInput(ctx context.Context, root *rootOptions, po *parseOptions, m *matcher.Matcher, input string, out io.Writer) error {
	opts := []actiondb.WatchOption{
		actiondb.WithIncludeUnmatched(!po.onlyMatched),
		actiondb.WithPoll(po.poll),
		actiondb.WithLogger(root.logger),
	}
	switch {
	case po.replayLast == 0:
		opts = append(opts, actiondb.WithReplayFromStart())
	case po.replayLast > 0:
		opts = append(opts, actiondb.WithReplayLastN(po.replayLast))
	}

	w, err := actiondb.NewWatcher(m, opts...)
	if err != nil {
		return err
	}
	defer w.Close()

	records, errs, err := w.Watch(ctx, input)
	if err != nil {
		return err
	}

	for {
		select {
		case rec, ok := <-records:
			if !ok {
				return nil
			}
			if err := OutputRecord(po.format, rec, po.includeRaw, out); err != nil {
				return fmt.Errorf("output error: %w", err)
			}
			if f, ok := out.(flusher); ok && len(records) == 0 {
				if err := f.Flush(); err != nil {
					return fmt.Errorf("output error: %w", err)
				}
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			root.logger.Warn("follow error", "err", err)

		case <-ctx.Done():
			return nil
		}
	}
}

// openOutput returns the writer for output and a function that closes it.
func openOutput(stdout io.Writer, output string) (io.Writer, func() error, error) {
	if output == stdio {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(output)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output: %w", err)
	}
	return f, f.Close, nil
}
