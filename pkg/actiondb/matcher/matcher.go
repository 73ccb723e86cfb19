// Package matcher selects the best pattern for a line of text and extracts
// its fields.
//
// A Matcher is built once from a loaded pattern.Repository and is safe for
// concurrent use. When several patterns match the same line, the pattern
// with the most literal text wins; remaining ties go to the smallest UUID.
package matcher

import (
	"maps"

	"github.com/actiondb/actiondb-go/pkg/actiondb/pattern"
)

// Result is a successful match.
type Result struct {
	UUID string
	Name string
	Tags []string

	// Values holds the pattern's default values overridden by the
	// extracted fields.
	Values map[string]string

	// Fields holds only the values extracted from the line.
	Fields map[string]string
}

// Matcher matches lines against every pattern of a Repository.
type Matcher struct {
	repo     *pattern.Repository
	patterns []*pattern.Pattern
	index    prefixIndex
}

// New builds a Matcher over repo. A nil or empty repository yields a
// Matcher that never matches.
func New(repo *pattern.Repository) *Matcher {
	patterns := repo.Patterns()
	return &Matcher{
		repo:     repo,
		patterns: patterns,
		index:    newPrefixIndex(patterns),
	}
}

// Repository returns the repository the matcher was built from.
func (m *Matcher) Repository() *pattern.Repository { return m.repo }

// Len returns the number of patterns.
func (m *Matcher) Len() int { return len(m.patterns) }

// MatchLine returns the best matching pattern for line. A line that no
// pattern matches returns false; this is not an error.
func (m *Matcher) MatchLine(line string) (Result, bool) {
	var (
		best   *pattern.Pattern
		fields map[string]string
	)
	m.index.each(line, func(i int) {
		p := m.patterns[i]
		if best != nil && !outranks(p, best) {
			return
		}
		if got, ok := p.Program().Match(line); ok {
			best, fields = p, got
		}
	})
	if best == nil {
		return Result{}, false
	}
	return newResult(best, fields), true
}

// MatchPattern runs a single pattern against line, without consulting any
// other pattern.
func MatchPattern(p *pattern.Pattern, line string) (Result, bool) {
	fields, ok := p.Program().Match(line)
	if !ok {
		return Result{}, false
	}
	return newResult(p, fields), true
}

// outranks reports whether a beats b when both match.
func outranks(a, b *pattern.Pattern) bool {
	la, lb := a.Program().LiteralLen(), b.Program().LiteralLen()
	if la != lb {
		return la > lb
	}
	return a.UUID() < b.UUID()
}

func newResult(p *pattern.Pattern, fields map[string]string) Result {
	values := p.Values()
	if values == nil {
		values = make(map[string]string, len(fields))
	}
	maps.Copy(values, fields)
	return Result{
		UUID:   p.UUID(),
		Name:   p.Name(),
		Tags:   p.Tags(),
		Values: values,
		Fields: fields,
	}
}
