package matcher_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actiondb/actiondb-go/pkg/actiondb/matcher"
	"github.com/actiondb/actiondb-go/pkg/actiondb/pattern"
)

func newRepo(t testing.TB, defs ...pattern.Definition) *pattern.Repository {
	t.Helper()
	patterns := make([]*pattern.Pattern, 0, len(defs))
	for _, def := range defs {
		p, err := pattern.New(def)
		require.NoError(t, err)
		patterns = append(patterns, p)
	}
	repo, err := pattern.NewRepository(patterns...)
	require.NoError(t, err)
	return repo
}

func TestMatchLine_Login(t *testing.T) {
	m := matcher.New(newRepo(t, pattern.Definition{
		Name:    "login",
		UUID:    "9a49c47d-29e9-4072-be84-3b76c6814743",
		Pattern: "user @STRING:user@ logged in from @IPv4:ip@",
		Values:  map[string]string{"service": "ssh", "user": "nobody"},
		Tags:    []string{"auth"},
	}))

	res, ok := m.MatchLine("user alice logged in from 10.0.0.5")
	require.True(t, ok)
	assert.Equal(t, "login", res.Name)
	assert.Equal(t, "9a49c47d-29e9-4072-be84-3b76c6814743", res.UUID)
	assert.Equal(t, []string{"auth"}, res.Tags)
	assert.Equal(t, map[string]string{"user": "alice", "ip": "10.0.0.5"}, res.Fields)
	assert.Equal(t, map[string]string{"service": "ssh", "user": "alice", "ip": "10.0.0.5"}, res.Values)

	for _, line := range []string{
		"user logged in",
		"user alice logged in from 10.0.0.5 ",
		"user alice logged in from 10.0.0.",
		"user alice logged in from 999.0.0.5",
		"",
	} {
		_, ok := m.MatchLine(line)
		assert.False(t, ok, "line %q", line)
	}
}

func TestMatchLine_TieBreak(t *testing.T) {
	repo := newRepo(t,
		pattern.Definition{Name: "generic", UUID: "00000000-0000-4000-8000-000000000001", Pattern: "user @STRING:user@ @ANY:action@"},
		pattern.Definition{Name: "specific", UUID: "00000000-0000-4000-8000-000000000002", Pattern: "user @STRING:user@ logged out"},
		pattern.Definition{Name: "twin_b", UUID: "bbbbbbbb-0000-4000-8000-000000000000", Pattern: "disk @NUMBER:pct@%"},
		pattern.Definition{Name: "twin_a", UUID: "aaaaaaaa-0000-4000-8000-000000000000", Pattern: "disk @NUMBER:used@%"},
		pattern.Definition{Name: "floating", UUID: "cccccccc-0000-4000-8000-000000000000", Pattern: "@STRING:word@ @ANY:rest@"},
	)
	m := matcher.New(repo)

	tests := []struct {
		line string
		want string
	}{
		{line: "user bob logged out", want: "specific"},
		{line: "user bob rebooted the box", want: "generic"},
		{line: "disk 93%", want: "twin_a"},
		{line: "kernel panic now", want: "floating"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			// Deterministic across repeated runs.
			for range 5 {
				res, ok := m.MatchLine(tt.line)
				require.True(t, ok)
				assert.Equal(t, tt.want, res.Name)
			}
		})
	}
}

func TestMatchLine_PrefixClosure(t *testing.T) {
	// Both leading literals prefix the line; the longer one must not hide
	// the shorter one.
	m := matcher.New(newRepo(t,
		pattern.Definition{Name: "short", UUID: "00000000-0000-4000-8000-000000000001", Pattern: "GET @ANY:path@ HTTP/1.1"},
		pattern.Definition{Name: "long", UUID: "00000000-0000-4000-8000-000000000002", Pattern: "GET /api/@STRING:endpoint@ HTTP/2"},
	))

	res, ok := m.MatchLine("GET /api/users HTTP/1.1")
	require.True(t, ok)
	assert.Equal(t, "short", res.Name)
	assert.Equal(t, "/api/users", res.Values["path"])

	res, ok = m.MatchLine("GET /api/users HTTP/2")
	require.True(t, ok)
	assert.Equal(t, "long", res.Name)
}

func TestMatchLine_EmptyRepository(t *testing.T) {
	m := matcher.New(nil)
	assert.Equal(t, 0, m.Len())
	_, ok := m.MatchLine("anything")
	assert.False(t, ok)
}

// A line rebuilt from a pattern's literals and valid field values matches
// that pattern with exactly those values.
func TestMatchLine_ReconstructedLine(t *testing.T) {
	m := matcher.New(newRepo(t, pattern.Definition{
		Name:    "conn",
		UUID:    "9a49c47d-29e9-4072-be84-3b76c6814743",
		Pattern: "conn from @IPv6:src@ port @NUMBER(min=1,max=65535):port@ user=@STRING(extra_chars=._-):user@ msg=@ANY:msg@",
	}))

	fields := map[string]string{"src": "fe80::1", "port": "22", "user": "j.doe", "msg": "hello there, world"}
	line := fmt.Sprintf("conn from %s port %s user=%s msg=%s", fields["src"], fields["port"], fields["user"], fields["msg"])

	res, ok := m.MatchLine(line)
	require.True(t, ok)
	assert.Equal(t, fields, res.Fields)
}

func TestMatchPattern(t *testing.T) {
	p := pattern.MustNew(pattern.Definition{
		Name:    "svc",
		UUID:    "9a49c47d-29e9-4072-be84-3b76c6814743",
		Pattern: "service @STRING:svc@ started",
		Values:  map[string]string{"level": "info"},
	})

	res, ok := matcher.MatchPattern(p, "service nginx started")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"svc": "nginx"}, res.Fields)
	assert.Equal(t, map[string]string{"svc": "nginx", "level": "info"}, res.Values)

	_, ok = matcher.MatchPattern(p, "service nginx stopped")
	assert.False(t, ok)
}

func TestMatchLines(t *testing.T) {
	m := matcher.New(newRepo(t,
		pattern.Definition{Name: "n", UUID: "00000000-0000-4000-8000-000000000001", Pattern: "n=@NUMBER:n@"},
	))

	lines := make([]string, 1000)
	for i := range lines {
		if i%3 == 0 {
			lines[i] = "noise"
		} else {
			lines[i] = fmt.Sprintf("n=%d", i)
		}
	}

	got, err := matcher.MatchLines(context.Background(), m, lines, 4)
	require.NoError(t, err)
	require.Len(t, got, len(lines))
	for i, r := range got {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, lines[i], r.Line)
		assert.Equal(t, i%3 != 0, r.Matched, "line %d", i)
		if r.Matched {
			assert.Equal(t, fmt.Sprint(i), r.Result.Values["n"])
		}
	}
}

func TestMatchLines_Cancelled(t *testing.T) {
	m := matcher.New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := matcher.MatchLines(ctx, m, strings.Split(strings.Repeat("x\n", 2000), "\n"), 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMatchLines_Empty(t *testing.T) {
	got, err := matcher.MatchLines(context.Background(), matcher.New(nil), nil, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
