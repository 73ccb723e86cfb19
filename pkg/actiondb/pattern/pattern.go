// Package pattern provides the pattern data model and the pattern file
// loader.
//
// A pattern file is a list of records, in YAML, JSON or TOML:
//
//	patterns:
//	  - name: ssh_login
//	    uuid: 9a49c47d-29e9-4072-be84-3b76c6814743
//	    pattern: 'user @STRING:user@ logged in from @IPv4:ip@'
//	    values:
//	      service: ssh
//	    tags: [auth, login]
//	    test_messages:
//	      - message: user alice logged in from 10.0.0.5
//	        values:
//	          user: alice
//	          ip: 10.0.0.5
//
// Each record is validated on its own; a broken record is reported as a
// Diagnostic and skipped without affecting the rest of the file.
package pattern

import (
	"fmt"
	"maps"
	"slices"

	"github.com/actiondb/actiondb-go/pkg/actiondb/grammar"
)

// TestMessage is a worked example attached to a pattern: a raw line and
// the field values the pattern is expected to extract from it.
type TestMessage struct {
	Message string
	Values  map[string]string
	Tags    []string
}

func (tm TestMessage) clone() TestMessage {
	return TestMessage{
		Message: tm.Message,
		Values:  maps.Clone(tm.Values),
		Tags:    slices.Clone(tm.Tags),
	}
}

// Pattern is a named, UUID-identified compiled template. A Pattern is
// immutable once created; accessors return copies.
type Pattern struct {
	name     string
	uuid     string
	program  *grammar.Program
	values   map[string]string
	tags     []string
	messages []TestMessage
}

// Name returns the pattern name.
func (p *Pattern) Name() string { return p.name }

// UUID returns the pattern UUID in canonical lowercase form.
func (p *Pattern) UUID() string { return p.uuid }

// Program returns the compiled matcher program.
func (p *Pattern) Program() *grammar.Program { return p.program }

// Values returns a copy of the default values.
func (p *Pattern) Values() map[string]string { return maps.Clone(p.values) }

// Value returns a single default value.
func (p *Pattern) Value(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Tags returns a copy of the tags in file order.
func (p *Pattern) Tags() []string { return slices.Clone(p.tags) }

// HasTag reports whether the pattern carries tag.
func (p *Pattern) HasTag(tag string) bool { return slices.Contains(p.tags, tag) }

// TestMessages returns a copy of the attached test messages.
func (p *Pattern) TestMessages() []TestMessage {
	out := make([]TestMessage, len(p.messages))
	for i, tm := range p.messages {
		out[i] = tm.clone()
	}
	return out
}

func (p *Pattern) String() string {
	return fmt.Sprintf("%s (%s)", p.name, p.uuid)
}

// Definition is the typed form of one pattern record, used to build
// patterns programmatically.
type Definition struct {
	Name         string
	UUID         string
	Pattern      string
	Values       map[string]string
	Tags         []string
	TestMessages []TestMessage
}

// New builds a Pattern from a Definition. It applies the same rules as the
// file loader and returns the first failure as a Diagnostic.
func New(def Definition) (*Pattern, error) {
	rec := map[string]any{
		"name":    def.Name,
		"uuid":    def.UUID,
		"pattern": def.Pattern,
	}
	b := foldRecord(0, rec)
	if len(b.diags) > 0 {
		return nil, b.diags[0]
	}
	b.values = maps.Clone(def.Values)
	b.tags = uniqueStrings(def.Tags)
	for _, tm := range def.TestMessages {
		b.messages = append(b.messages, tm.clone())
	}
	return b.pattern(), nil
}

// MustNew is like New but panics on error.
func MustNew(def Definition) *Pattern {
	p, err := New(def)
	if err != nil {
		panic("pattern: New: " + err.Error())
	}
	return p
}

func uniqueStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
