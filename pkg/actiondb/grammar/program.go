package grammar

import (
	"strings"
)

// TokenType distinguishes literal text from field extractors.
type TokenType int

const (
	// TokenLiteral must match the input exactly.
	TokenLiteral TokenType = iota + 1
	// TokenExtractor captures a typed field.
	TokenExtractor
)

// Token is one step of a Program: either a Literal (Text set) or an
// Extractor (Kind, Name and Constraints set).
type Token struct {
	Type        TokenType
	Text        string
	Kind        Kind
	Name        string
	Constraints Constraints
}

// Literal returns a literal token.
func Literal(text string) Token {
	return Token{Type: TokenLiteral, Text: text}
}

// Extractor returns an extractor token.
func Extractor(kind Kind, name string, c Constraints) Token {
	return Token{Type: TokenExtractor, Kind: kind, Name: name, Constraints: c}
}

// IsLiteral reports whether t is a literal token.
func (t Token) IsLiteral() bool { return t.Type == TokenLiteral }

// String renders the token in template syntax.
func (t Token) String() string {
	if t.IsLiteral() {
		return strings.ReplaceAll(t.Text, "@", "@@")
	}
	var sb strings.Builder
	sb.WriteByte('@')
	sb.WriteString(t.Kind.String())
	if !t.Constraints.IsZero() {
		sb.WriteByte('(')
		sb.WriteString(t.Constraints.params())
		sb.WriteByte(')')
	}
	sb.WriteByte(':')
	sb.WriteString(t.Name)
	sb.WriteByte('@')
	return sb.String()
}

// Program is a compiled template. It is immutable and safe for concurrent
// use by multiple goroutines.
type Program struct {
	template   string
	tokens     []Token
	literalLen int
	fields     int
}

func newProgram(template string, tokens []Token) *Program {
	p := &Program{template: template, tokens: tokens}
	for _, t := range tokens {
		if t.IsLiteral() {
			p.literalLen += len(t.Text)
		} else {
			p.fields++
		}
	}
	return p
}

// Template returns the source text the program was compiled from.
func (p *Program) Template() string { return p.template }

func (p *Program) String() string { return p.template }

// Tokens returns a copy of the program's tokens.
func (p *Program) Tokens() []Token {
	out := make([]Token, len(p.tokens))
	copy(out, p.tokens)
	return out
}

// FieldNames returns the extractor names in template order.
func (p *Program) FieldNames() []string {
	names := make([]string, 0, p.fields)
	for _, t := range p.tokens {
		if !t.IsLiteral() {
			names = append(names, t.Name)
		}
	}
	return names
}

// LiteralLen is the total number of literal bytes in the program.
// A larger value means a more specific pattern.
func (p *Program) LiteralLen() int { return p.literalLen }

// Prefix returns the text of the first token if it is a literal.
func (p *Program) Prefix() (string, bool) {
	if len(p.tokens) == 0 || !p.tokens[0].IsLiteral() {
		return "", false
	}
	return p.tokens[0].Text, true
}

// Match runs the program against line. It succeeds only when every token
// matches in order and the whole line is consumed. Extractors are greedy
// and never backtrack, so the cost is bounded by the length of line.
//
// The returned map holds one entry per extractor and is owned by the caller.
func (p *Program) Match(line string) (map[string]string, bool) {
	values := make(map[string]string, p.fields)
	pos := 0
	for i := range p.tokens {
		t := &p.tokens[i]
		rest := line[pos:]
		if t.IsLiteral() {
			if !strings.HasPrefix(rest, t.Text) {
				return nil, false
			}
			pos += len(t.Text)
			continue
		}

		var term byte
		hasTerm := false
		if i+1 < len(p.tokens) && p.tokens[i+1].IsLiteral() {
			term, hasTerm = p.tokens[i+1].Text[0], true
		}
		n := t.Kind.scan(rest, &t.Constraints, term, hasTerm)
		if n == 0 {
			return nil, false
		}
		v := rest[:n]
		if !t.Kind.accept(v, &t.Constraints) {
			return nil, false
		}
		values[t.Name] = v
		pos += n
	}
	if pos != len(line) {
		return nil, false
	}
	return values, true
}
