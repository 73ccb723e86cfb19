package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/actiondb/actiondb-go/pkg/actiondb"
	"github.com/actiondb/actiondb-go/pkg/actiondb/pattern"
	"github.com/actiondb/actiondb-go/pkg/actiondb/selftest"
)

var errValidationFailed = errors.New("validation failed")

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [pattern file]",
		Short: "Check a pattern file against its test messages",
		Long: `Load a pattern file and match every test message against the pattern
that declares it.

The command succeeds only when the file loads without diagnostics and
every test message yields exactly its expected values.

Without an argument the pattern file is taken from patterns.file in the
configuration, or patterns.{yaml,yml,json,toml} in the working directory
or in $XDG_CONFIG_HOME/adbtool.

Examples:
  adbtool validate patterns.yaml
  adbtool validate -v`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var arg string
			if len(args) == 1 {
				arg = args[0]
			}
			return runValidate(cmd.OutOrStdout(), opts, arg)
		},
	}
}

func runValidate(out io.Writer, opts *rootOptions, arg string) error {
	path, err := opts.patternFile(arg)
	if err != nil {
		return err
	}

	m, diags, err := actiondb.Open(path)
	if err != nil {
		return &ExitError{Code: exitFailure, Err: err}
	}
	opts.logger.Debug("loaded pattern file", "file", path, "patterns", m.Len(), "diagnostics", len(diags))

	report := selftest.Run(m.Repository())
	if err := writeReport(out, path, diags, report); err != nil {
		return err
	}
	if !selftest.Succeeded(report, diags) {
		return &ExitError{Code: exitFailure, Err: errValidationFailed}
	}
	return nil
}

func writeReport(out io.Writer, path string, diags []pattern.Diagnostic, report *selftest.Report) error {
	w := &errWriter{w: out}

	w.println(titleStyle.Render("Validating " + path))
	for _, d := range diags {
		line := "  ! " + d.Error()
		if d.Excluded() {
			line += " (excluded)"
		}
		w.println(warningStyle.Render(line))
	}

	for _, res := range report.Failures() {
		mark := "✗"
		if res.Outcome == selftest.NoMatch {
			mark = "?"
		}
		w.println(errorStyle.Render(fmt.Sprintf("  %s %s #%d %s:", mark, res.PatternName, res.TestIndex+1, res.Outcome)) +
			" " + quoteIfNeeded(res.Message))
		for _, mm := range res.Mismatches {
			w.println(detailStyle.Render(mm.String()))
		}
	}

	c := report.Counts()
	w.println("")
	w.println(mutedStyle.Render(fmt.Sprintf("%d test messages: %d passed, %d failed, %d did not match; %d load diagnostics",
		c.Total(), c.Pass, c.Fail, c.NoMatch, len(diags))))
	if selftest.Succeeded(report, diags) {
		w.println(successStyle.Render("OK"))
	} else {
		w.println(errorStyle.Render("FAIL"))
	}
	return w.err
}

// errWriter keeps the first write error so the report can be written
// without checking every line.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) println(s string) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintln(e.w, s)
}
