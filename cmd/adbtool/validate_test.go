package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Success(t *testing.T) {
	isolate(t)

	r := execute(t, "", "validate", testdataPath(t, "patterns.yaml"))
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "2 test messages: 2 passed, 0 failed, 0 did not match; 0 load diagnostics")
	assert.Contains(t, r.stdout, "OK")
}

func TestValidate_Failures(t *testing.T) {
	isolate(t)

	r := execute(t, "", "validate", testdataPath(t, "failing.yaml"))
	require.Error(t, r.err)
	assert.ErrorIs(t, r.err, errValidationFailed)
	assert.Equal(t, exitFailure, exitCode(r.err))

	assert.Contains(t, r.stdout, `pattern "broken": uuid: invalid uuid "not-a-uuid"`)
	assert.Contains(t, r.stdout, "(excluded)")
	assert.Contains(t, r.stdout, "ssh_login #1 fail:")
	assert.Contains(t, r.stdout, `user: expected "bob", got "alice"`)
	assert.Contains(t, r.stdout, "ssh_login #2 no match:")
	assert.Contains(t, r.stdout, "2 test messages: 0 passed, 1 failed, 1 did not match; 1 load diagnostics")
	assert.Contains(t, r.stdout, "FAIL")
}

func TestValidate_DiagnosticsAloneFail(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "patterns.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- name: good
  uuid: 9a49c47d-29e9-4072-be84-3b76c6814743
  pattern: 'ping @NUMBER:n@'
- name: bad
  uuid: 5f0c2e0a-8d7b-4c51-9e0b-2e1d6c4b7a90
  pattern: 'pong @BOGUS:n@'
`), 0o644))

	r := execute(t, "", "validate", path)
	assert.Equal(t, exitFailure, exitCode(r.err))
	assert.Contains(t, r.stdout, `pattern "bad": pattern:`)
}

func TestValidate_DiscoversPatternFile(t *testing.T) {
	dir := isolate(t)
	data, err := os.ReadFile(testdataPath(t, "patterns.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "patterns.yaml"), data, 0o644))

	r := execute(t, "", "validate")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "patterns.yaml")
}

func TestValidate_PatternFileFromConfig(t *testing.T) {
	dir := isolate(t)
	cfg := `patterns: file: "` + filepath.ToSlash(testdataPath(t, "failing.yaml")) + `"`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "adbtool.cue"), []byte(cfg), 0o644))

	r := execute(t, "", "validate")
	assert.Equal(t, exitFailure, exitCode(r.err))
	assert.Contains(t, r.stdout, "failing.yaml")
}

func TestValidate_NoPatternFile(t *testing.T) {
	isolate(t)
	r := execute(t, "", "validate")
	assert.Equal(t, exitUsage, exitCode(r.err))
}

func TestValidate_UnreadableDocument(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "patterns.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 2\npatterns: []\n"), 0o644))

	r := execute(t, "", "validate", path)
	assert.Equal(t, exitFailure, exitCode(r.err))
}
