package selftest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actiondb/actiondb-go/pkg/actiondb/pattern"
	"github.com/actiondb/actiondb-go/pkg/actiondb/selftest"
)

func loginPattern(t *testing.T, msgs ...pattern.TestMessage) *pattern.Pattern {
	t.Helper()
	p, err := pattern.New(pattern.Definition{
		Name:         "login",
		UUID:         "9a49c47d-29e9-4072-be84-3b76c6814743",
		Pattern:      "user @STRING:user@ logged in from @IPv4:ip@",
		Values:       map[string]string{"service": "ssh"},
		TestMessages: msgs,
	})
	require.NoError(t, err)
	return p
}

func TestRunPattern(t *testing.T) {
	p := loginPattern(t,
		pattern.TestMessage{
			Message: "user alice logged in from 10.0.0.5",
			Values:  map[string]string{"user": "alice", "ip": "10.0.0.5"},
		},
		pattern.TestMessage{
			Message: "user bob logged in from 10.0.0.6",
			Values:  map[string]string{"user": "alice", "ip": "10.0.0.6", "port": "22"},
		},
		pattern.TestMessage{
			Message: "user carol logged in from 10.0.0.7",
			Values:  map[string]string{"user": "carol"},
		},
		pattern.TestMessage{
			Message: "user logged in",
			Values:  map[string]string{"user": "dave"},
		},
	)

	results := selftest.RunPattern(p)
	require.Len(t, results, 4)

	assert.Equal(t, selftest.Pass, results[0].Outcome)
	assert.Empty(t, results[0].Mismatches)

	assert.Equal(t, selftest.Fail, results[1].Outcome)
	assert.Equal(t, []selftest.Mismatch{
		{Key: "port", Expected: "22", HasExpected: true},
		{Key: "user", Expected: "alice", Actual: "bob", HasExpected: true, HasActual: true},
	}, results[1].Mismatches)

	// Extracted but not expected is a failure too.
	assert.Equal(t, selftest.Fail, results[2].Outcome)
	require.Len(t, results[2].Mismatches, 1)
	assert.Equal(t, `ip: unexpected value "10.0.0.7"`, results[2].Mismatches[0].String())

	assert.Equal(t, selftest.NoMatch, results[3].Outcome)
	assert.Nil(t, results[3].Actual)

	for i, r := range results {
		assert.Equal(t, i, r.TestIndex)
		assert.Equal(t, "login", r.PatternName)
		assert.Equal(t, "9a49c47d-29e9-4072-be84-3b76c6814743", r.PatternUUID)
	}
}

// Default values are not part of the comparison: only extracted fields are.
func TestRunPattern_IgnoresDefaults(t *testing.T) {
	p := loginPattern(t, pattern.TestMessage{
		Message: "user alice logged in from 10.0.0.5",
		Values:  map[string]string{"user": "alice", "ip": "10.0.0.5"},
	})
	results := selftest.RunPattern(p)
	require.Len(t, results, 1)
	assert.Equal(t, selftest.Pass, results[0].Outcome)
	assert.NotContains(t, results[0].Actual, "service")
}

func TestRun_Report(t *testing.T) {
	repo, diags, err := pattern.Load("testdata/patterns.yaml")
	require.NoError(t, err)
	require.Empty(t, diags)

	report := selftest.Run(repo)
	assert.Equal(t, selftest.Counts{Pass: 3, Fail: 1, NoMatch: 1}, report.Counts())
	assert.Equal(t, 5, report.Counts().Total())
	assert.False(t, report.OK())
	assert.False(t, selftest.Succeeded(report, diags))

	failures := report.Failures()
	require.Len(t, failures, 2)
	assert.Equal(t, "disk_usage", failures[0].PatternName)
	assert.Equal(t, selftest.Fail, failures[0].Outcome)
	assert.Equal(t, "disk_usage", failures[1].PatternName)
	assert.Equal(t, selftest.NoMatch, failures[1].Outcome)
}

// Every pattern whose test messages agree with it validates on its own.
func TestRun_SelfConsistent(t *testing.T) {
	repo, _, err := pattern.Load("../pattern/testdata/valid.yaml")
	require.NoError(t, err)

	report := selftest.Run(repo)
	assert.True(t, report.OK())
	assert.True(t, selftest.Succeeded(report, nil))
	assert.Equal(t, 1, report.Counts().Pass)
}

func TestSucceeded_WithDiagnostics(t *testing.T) {
	report := &selftest.Report{}
	assert.True(t, report.OK())
	assert.True(t, selftest.Succeeded(report, nil))
	assert.False(t, selftest.Succeeded(report, []pattern.Diagnostic{{Err: &pattern.LoadError{Kind: pattern.TypeMismatch, Field: "tags"}}}))
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "pass", selftest.Pass.String())
	assert.Equal(t, "fail", selftest.Fail.String())
	assert.Equal(t, "no match", selftest.NoMatch.String())
}
