package grammar

import (
	"net/netip"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind identifies a field extractor. The set of kinds is closed; every
// switch over Kind in this package is exhaustive.
type Kind int

const (
	// KindNumber matches an optional '-' followed by decimal digits.
	KindNumber Kind = iota + 1
	// KindString matches letters and digits plus configured extra characters.
	KindString
	// KindIPv4 matches a dotted-quad IPv4 address.
	KindIPv4
	// KindIPv6 matches an IPv6 address.
	KindIPv6
	// KindAny matches everything up to the next literal.
	KindAny
)

var kindNames = map[string]Kind{
	"NUMBER": KindNumber,
	"STRING": KindString,
	"IPv4":   KindIPv4,
	"IPv6":   KindIPv6,
	"ANY":    KindAny,
}

// Kinds returns every field kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindNumber, KindString, KindIPv4, KindIPv6, KindAny}
}

// ParseKind looks up a kind by its template name (e.g. "NUMBER").
// Names are case-sensitive.
func ParseKind(name string) (Kind, bool) {
	k, ok := kindNames[name]
	return k, ok
}

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "NUMBER"
	case KindString:
		return "STRING"
	case KindIPv4:
		return "IPv4"
	case KindIPv6:
		return "IPv6"
	case KindAny:
		return "ANY"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Constraints holds the kind-specific parameters of an extractor.
// Only the fields relevant to the extractor's kind are ever set.
type Constraints struct {
	// NUMBER
	Min, Max       int64
	HasMin, HasMax bool

	// STRING. MaxLen == 0 means unbounded.
	MinLen, MaxLen int
	ExtraChars     string
}

// IsZero reports whether no constraint is set.
func (c Constraints) IsZero() bool {
	return c == Constraints{}
}

// params renders the constraints back into template parameter syntax.
func (c Constraints) params() string {
	var parts []string
	if c.HasMin {
		parts = append(parts, "min="+strconv.FormatInt(c.Min, 10))
	}
	if c.HasMax {
		parts = append(parts, "max="+strconv.FormatInt(c.Max, 10))
	}
	if c.MinLen > 0 {
		parts = append(parts, "min_len="+strconv.Itoa(c.MinLen))
	}
	if c.MaxLen > 0 {
		parts = append(parts, "max_len="+strconv.Itoa(c.MaxLen))
	}
	if c.ExtraChars != "" {
		parts = append(parts, "extra_chars="+c.ExtraChars)
	}
	return strings.Join(parts, ",")
}

// scan returns the number of bytes of s the extractor consumes greedily.
// Zero means the extractor cannot match at this position. term is the
// first byte of the following literal and is only meaningful when hasTerm
// is true.
func (k Kind) scan(s string, c *Constraints, term byte, hasTerm bool) int {
	switch k {
	case KindNumber:
		i := 0
		if len(s) > 0 && s[0] == '-' {
			i = 1
		}
		j := i
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		if j == i {
			return 0
		}
		return j
	case KindString:
		n := 0
		for n < len(s) {
			r, size := utf8.DecodeRuneInString(s[n:])
			if r == utf8.RuneError && size <= 1 {
				break
			}
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !strings.ContainsRune(c.ExtraChars, r) {
				break
			}
			n += size
		}
		return n
	case KindIPv4:
		return scanIPv4(s)
	case KindIPv6:
		return scanIPv6(s)
	case KindAny:
		if !hasTerm {
			return len(s)
		}
		if i := strings.IndexByte(s, term); i >= 0 {
			return i
		}
		return 0
	}
	return 0
}

// accept reports whether a scanned value satisfies the kind's grammar and
// the extractor's constraints.
func (k Kind) accept(v string, c *Constraints) bool {
	switch k {
	case KindNumber:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return false
		}
		if c.HasMin && n < c.Min {
			return false
		}
		if c.HasMax && n > c.Max {
			return false
		}
		return true
	case KindString:
		l := utf8.RuneCountInString(v)
		if l < c.MinLen {
			return false
		}
		return c.MaxLen == 0 || l <= c.MaxLen
	case KindIPv4:
		addr, err := netip.ParseAddr(v)
		return err == nil && addr.Is4()
	case KindIPv6:
		addr, err := netip.ParseAddr(v)
		return err == nil && addr.Is6()
	case KindAny:
		return true
	}
	return false
}

// scanIPv4 consumes up to four dot-separated runs of one to three digits.
// A dot is taken only when a digit follows it, so trailing punctuation is
// left for the next token.
func scanIPv4(s string) int {
	n := 0
	for octet := 0; octet < 4; octet++ {
		if octet > 0 {
			if n+1 >= len(s) || s[n] != '.' || !isDigit(s[n+1]) {
				break
			}
			n++
		}
		start := n
		for n < len(s) && n-start < 3 && isDigit(s[n]) {
			n++
		}
		if n == start {
			break
		}
	}
	return n
}

// maxIPv6Len is the longest textual IPv6 address, an IPv4-mapped form
// with every group written out.
const maxIPv6Len = len("ffff:ffff:ffff:ffff:ffff:ffff:255.255.255.255")

// scanIPv6 returns the longest prefix of the hex/colon/dot run that parses
// as an IPv6 address, or 0 when no prefix does.
func scanIPv6(s string) int {
	n := 0
	for n < len(s) && n < maxIPv6Len && (isHex(s[n]) || s[n] == ':' || s[n] == '.') {
		n++
	}
	for ; n > 0; n-- {
		if addr, err := netip.ParseAddr(s[:n]); err == nil && addr.Is6() {
			return n
		}
	}
	return 0
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isHex(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
