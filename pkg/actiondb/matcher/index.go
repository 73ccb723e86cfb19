package matcher

import (
	"slices"

	ac "github.com/petar-dambovaliev/aho-corasick"

	"github.com/actiondb/actiondb-go/pkg/actiondb/pattern"
)

// prefixIndex narrows a line down to the patterns whose leading literal is
// a prefix of it.
//
// The distinct leading literals are compiled into a leftmost-longest
// Aho-Corasick automaton. Scanning the start of a line, the first match
// (if it begins at offset 0) is the longest leading literal that prefixes
// the line. Every shorter leading literal that also prefixes the line is
// a prefix of that one, so the full candidate set for each literal is
// computed once at build time.
type prefixIndex struct {
	automaton *ac.AhoCorasick
	maxLen    int

	// closure[id] lists the pattern indices whose leading literal is a
	// prefix of (or equal to) literal id.
	closure [][]int

	// floating holds patterns that start with an extractor. They are
	// candidates for every line.
	floating []int
}

func newPrefixIndex(patterns []*pattern.Pattern) prefixIndex {
	var (
		ix       prefixIndex
		literals []string
		ids      = make(map[string]int)
		owners   [][]int
	)

	for i, p := range patterns {
		prefix, ok := p.Program().Prefix()
		if !ok {
			ix.floating = append(ix.floating, i)
			continue
		}
		id, seen := ids[prefix]
		if !seen {
			id = len(literals)
			ids[prefix] = id
			literals = append(literals, prefix)
			owners = append(owners, nil)
			ix.maxLen = max(ix.maxLen, len(prefix))
		}
		owners[id] = append(owners[id], i)
	}
	if len(literals) == 0 {
		return ix
	}

	lengths := make([]int, 0, len(literals))
	for _, lit := range literals {
		if !slices.Contains(lengths, len(lit)) {
			lengths = append(lengths, len(lit))
		}
	}
	slices.Sort(lengths)

	ix.closure = make([][]int, len(literals))
	for id, lit := range literals {
		var set []int
		for _, n := range lengths {
			if n > len(lit) {
				break
			}
			if sub, ok := ids[lit[:n]]; ok {
				set = append(set, owners[sub]...)
			}
		}
		ix.closure[id] = set
	}

	builder := ac.NewAhoCorasickBuilder(ac.Opts{MatchKind: ac.LeftMostLongestMatch})
	automaton := builder.Build(literals)
	ix.automaton = &automaton
	return ix
}

// each calls fn with every candidate pattern index for line. Patterns
// starting with an extractor come first, followed by the prefix matches.
func (ix *prefixIndex) each(line string, fn func(int)) {
	for _, i := range ix.floating {
		fn(i)
	}
	if ix.automaton == nil {
		return
	}

	head := line
	if len(head) > ix.maxLen {
		head = head[:ix.maxLen]
	}
	matches := ix.automaton.FindAll(head)
	if len(matches) == 0 || matches[0].Start() != 0 {
		return
	}
	for _, i := range ix.closure[matches[0].Pattern()] {
		fn(i)
	}
}
