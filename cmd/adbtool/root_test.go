package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// packageDir is the working directory the test binary started in, before
// any test changed it.
var packageDir, _ = os.Getwd()

// testdataPath returns the absolute path of a fixture, usable after the
// test changed directory.
func testdataPath(t *testing.T, name string) string {
	t.Helper()
	require.NotEmpty(t, packageDir)
	return filepath.Join(packageDir, "testdata", name)
}

// isolate runs the test in an empty working and config directory and
// returns the working directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	return dir
}

type result struct {
	stdout string
	stderr string
	err    error
}

func execute(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return exitFailure
}

func TestExitError(t *testing.T) {
	cause := errors.New("boom")
	err := &ExitError{Code: 3, Err: cause}
	assert.Equal(t, "boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "exit status 2", (&ExitError{Code: 2}).Error())
}

func TestRoot_InvalidConfig(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "adbtool.cue"), []byte(`parse: format: "xml"`), 0o644))

	r := execute(t, "", "validate", testdataPath(t, "patterns.yaml"))
	require.Error(t, r.err)
	assert.Equal(t, exitUsage, exitCode(r.err))
}

func TestRoot_MissingConfigFlag(t *testing.T) {
	isolate(t)
	r := execute(t, "", "--config", "missing.cue", "validate", testdataPath(t, "patterns.yaml"))
	assert.Equal(t, exitUsage, exitCode(r.err))
}

func TestRoot_VerboseLogsToStderr(t *testing.T) {
	isolate(t)
	r := execute(t, "", "-v", "validate", testdataPath(t, "patterns.yaml"))
	require.NoError(t, r.err)
	assert.Contains(t, r.stderr, "loaded pattern file")
	assert.NotContains(t, r.stdout, "loaded pattern file")
}

func TestCompletion(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			r := execute(t, "", "completion", shell)
			require.NoError(t, r.err)
			assert.Contains(t, r.stdout, "adbtool")
		})
	}

	r := execute(t, "", "completion", "tcsh")
	assert.Error(t, r.err)
}

func TestGetVersionString(t *testing.T) {
	assert.Equal(t, "dev (built from source)", getVersionString())

	old := Version
	t.Cleanup(func() { Version = old })
	Version = "1.2.3"
	assert.Equal(t, "1.2.3 (commit: none, built: unknown)", getVersionString())
}
