// Package selftest checks every pattern against the test messages attached
// to it.
package selftest

import (
	"fmt"
	"slices"
	"sort"

	"github.com/actiondb/actiondb-go/pkg/actiondb/matcher"
	"github.com/actiondb/actiondb-go/pkg/actiondb/pattern"
)

// Outcome is the verdict for one test message.
type Outcome int

const (
	// Pass: the pattern matched and extracted exactly the expected values.
	Pass Outcome = iota + 1
	// Fail: the pattern matched but a field was missing, extra or different.
	Fail
	// NoMatch: the pattern did not consume the whole message.
	NoMatch
)

func (o Outcome) String() string {
	switch o {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	case NoMatch:
		return "no match"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Mismatch is one field whose extracted value differs from the expected one.
type Mismatch struct {
	Key         string
	Expected    string
	Actual      string
	HasExpected bool
	HasActual   bool
}

func (m Mismatch) String() string {
	switch {
	case !m.HasActual:
		return fmt.Sprintf("%s: expected %q, not extracted", m.Key, m.Expected)
	case !m.HasExpected:
		return fmt.Sprintf("%s: unexpected value %q", m.Key, m.Actual)
	}
	return fmt.Sprintf("%s: expected %q, got %q", m.Key, m.Expected, m.Actual)
}

// Result is the outcome of one test message.
type Result struct {
	PatternUUID string
	PatternName string
	TestIndex   int
	Message     string
	Outcome     Outcome
	Expected    map[string]string
	Actual      map[string]string // nil on NoMatch
	Mismatches  []Mismatch        // sorted by key, only on Fail
}

// Report collects the results of a run in repository order.
type Report struct {
	Results []Result
}

// Counts holds the totals per outcome.
type Counts struct {
	Pass, Fail, NoMatch int
}

// Total returns the number of checked test messages.
func (c Counts) Total() int { return c.Pass + c.Fail + c.NoMatch }

// Run checks every test message of every pattern in repo.
func Run(repo *pattern.Repository) *Report {
	r := &Report{}
	for _, p := range repo.Patterns() {
		r.Results = append(r.Results, RunPattern(p)...)
	}
	return r
}

// RunPattern checks the test messages of a single pattern. Each message is
// matched only against p, so other patterns cannot shadow it.
func RunPattern(p *pattern.Pattern) []Result {
	msgs := p.TestMessages()
	results := make([]Result, 0, len(msgs))
	for i, tm := range msgs {
		res := Result{
			PatternUUID: p.UUID(),
			PatternName: p.Name(),
			TestIndex:   i,
			Message:     tm.Message,
			Expected:    tm.Values,
		}
		if res.Expected == nil {
			res.Expected = map[string]string{}
		}

		m, ok := matcher.MatchPattern(p, tm.Message)
		if !ok {
			res.Outcome = NoMatch
			results = append(results, res)
			continue
		}
		res.Actual = m.Fields
		res.Mismatches = compare(res.Expected, res.Actual)
		res.Outcome = Pass
		if len(res.Mismatches) > 0 {
			res.Outcome = Fail
		}
		results = append(results, res)
	}
	return results
}

func compare(expected, actual map[string]string) []Mismatch {
	var out []Mismatch
	for k, want := range expected {
		got, ok := actual[k]
		if !ok || got != want {
			out = append(out, Mismatch{Key: k, Expected: want, Actual: got, HasExpected: true, HasActual: ok})
		}
	}
	for k, got := range actual {
		if _, ok := expected[k]; !ok {
			out = append(out, Mismatch{Key: k, Actual: got, HasActual: true})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// OK reports whether every result passed. An empty report is OK.
func (r *Report) OK() bool {
	return !slices.ContainsFunc(r.Results, func(res Result) bool { return res.Outcome != Pass })
}

// Counts returns the totals per outcome.
func (r *Report) Counts() Counts {
	var c Counts
	for _, res := range r.Results {
		switch res.Outcome {
		case Pass:
			c.Pass++
		case Fail:
			c.Fail++
		case NoMatch:
			c.NoMatch++
		}
	}
	return c
}

// Failures returns the results that did not pass.
func (r *Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Outcome != Pass {
			out = append(out, res)
		}
	}
	return out
}

// Succeeded is the overall verdict of a validation: every test message
// passed and the loader reported nothing.
func Succeeded(r *Report, diags []pattern.Diagnostic) bool {
	return len(diags) == 0 && r.OK()
}
