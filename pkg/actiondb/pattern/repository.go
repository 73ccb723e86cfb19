package pattern

import (
	"fmt"
	"slices"
	"strings"
)

// Repository is the loaded, immutable set of patterns indexed by UUID.
// Patterns keep their file order. A Repository is safe for concurrent use
// by multiple goroutines.
type Repository struct {
	patterns []*Pattern
	byUUID   map[string]int
}

// NewRepository builds a Repository from already constructed patterns.
// It fails if two patterns share a UUID.
func NewRepository(patterns ...*Pattern) (*Repository, error) {
	r := &Repository{byUUID: make(map[string]int, len(patterns))}
	for _, p := range patterns {
		if prev, dup := r.byUUID[p.uuid]; dup {
			return nil, fmt.Errorf("%w: %s (pattern %q and %q)", ErrDuplicateUUID, p.uuid, r.patterns[prev].name, p.name)
		}
		r.add(p)
	}
	return r, nil
}

func (r *Repository) add(p *Pattern) {
	r.byUUID[p.uuid] = len(r.patterns)
	r.patterns = append(r.patterns, p)
}

func (r *Repository) indexOf(uuid string) (int, bool) {
	i, ok := r.byUUID[strings.ToLower(uuid)]
	return i, ok
}

// Len returns the number of patterns.
func (r *Repository) Len() int {
	if r == nil {
		return 0
	}
	return len(r.patterns)
}

// Get returns the pattern with the given UUID. The lookup is
// case-insensitive.
func (r *Repository) Get(uuid string) (*Pattern, bool) {
	if r == nil {
		return nil, false
	}
	i, ok := r.indexOf(uuid)
	if !ok {
		return nil, false
	}
	return r.patterns[i], true
}

// Patterns returns the patterns in insertion order. The slice is a copy;
// the patterns themselves are shared and immutable.
func (r *Repository) Patterns() []*Pattern {
	if r == nil {
		return nil
	}
	return slices.Clone(r.patterns)
}
