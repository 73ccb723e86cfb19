package actiondb_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actiondb/actiondb-go/pkg/actiondb"
	"github.com/actiondb/actiondb-go/pkg/actiondb/pattern"
)

func TestOpen(t *testing.T) {
	m, diags, err := actiondb.Open("testdata/patterns.yaml")
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.Equal(t, 2, m.Len())

	res, ok := m.MatchLine("disk /var/log at 93%")
	require.True(t, ok)
	assert.Equal(t, "disk_usage", res.Name)
	assert.Equal(t, map[string]string{"mount": "/var/log", "pct": "93"}, res.Values)
}

func TestOpen_Missing(t *testing.T) {
	_, _, err := actiondb.Open("testdata/missing.yaml")
	assert.Error(t, err)
}

func TestOpenBytes_Diagnostics(t *testing.T) {
	data := []byte(`[
  {"name": "ok", "uuid": "9a49c47d-29e9-4072-be84-3b76c6814743", "pattern": "ok @NUMBER:n@"},
  {"name": "bad", "uuid": "not-a-uuid", "pattern": "bad @NUMBER:n@"}
]`)
	m, diags, err := actiondb.OpenBytes(data, pattern.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())
	require.Len(t, diags, 1)
	assert.ErrorIs(t, diags[0], pattern.ErrMissingField)
	assert.Equal(t, "uuid", diags[0].Err.Field)
}
