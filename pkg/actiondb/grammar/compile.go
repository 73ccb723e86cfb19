// Package grammar compiles pattern templates into matcher programs.
//
// A template is literal text with embedded field extractors:
//
//	user @STRING:user@ logged in from @IPv4:ip@
//	port @NUMBER(min=1,max=65535):port@ closed
//
// An extractor has the form @KIND:name@ or @KIND(params):name@. A literal
// '@' is written as "@@". The field kinds are NUMBER, STRING, IPv4, IPv6
// and ANY.
package grammar

import (
	"fmt"
	"strconv"
	"strings"
)

// Compile parses template into a Program. It returns a *CompileError of
// kind Syntax or DuplicateField on failure. Compile is pure and
// deterministic.
func Compile(template string) (*Program, error) {
	if template == "" {
		return nil, syntaxError(0, "empty template")
	}

	var (
		tokens []Token
		lit    strings.Builder
		seen   = make(map[string]int)
	)
	flush := func() {
		if lit.Len() > 0 {
			tokens = append(tokens, Literal(lit.String()))
			lit.Reset()
		}
	}

	for i := 0; i < len(template); {
		c := template[i]
		if c != '@' {
			lit.WriteByte(c)
			i++
			continue
		}
		if i+1 < len(template) && template[i+1] == '@' {
			lit.WriteByte('@')
			i += 2
			continue
		}

		end := strings.IndexByte(template[i+1:], '@')
		if end < 0 {
			return nil, syntaxError(i, "unterminated field, missing closing '@'")
		}
		tok, err := parseExtractor(template[i+1:i+1+end], i)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[tok.Name]; dup {
			return nil, &CompileError{
				Kind: DuplicateField,
				Pos:  i,
				Msg:  fmt.Sprintf("field %q already bound at offset %d", tok.Name, prev),
			}
		}
		seen[tok.Name] = i

		if lit.Len() == 0 && len(tokens) > 0 {
			if last := tokens[len(tokens)-1]; !last.IsLiteral() && last.Kind == KindAny {
				return nil, syntaxError(i, "field %q: ANY must be followed by literal text or end the template", last.Name)
			}
		}
		flush()
		tokens = append(tokens, tok)
		i += end + 2
	}
	flush()

	return newProgram(template, tokens), nil
}

// MustCompile is like Compile but panics on error. It is intended for
// package-level patterns in tests and examples.
func MustCompile(template string) *Program {
	p, err := Compile(template)
	if err != nil {
		panic("grammar: Compile(" + strconv.Quote(template) + "): " + err.Error())
	}
	return p
}

// parseExtractor parses the body between the '@' delimiters. pos is the
// offset of the opening '@' and is used for error reporting.
func parseExtractor(body string, pos int) (Token, error) {
	sep := strings.LastIndexByte(body, ':')
	if sep < 0 {
		return Token{}, syntaxError(pos, "field %q: missing ':' between kind and name", body)
	}
	head, name := body[:sep], body[sep+1:]
	if err := checkName(name); err != nil {
		return Token{}, syntaxError(pos, "%v", err)
	}

	kindName, params, hasParams := head, "", false
	if open := strings.IndexByte(head, '('); open >= 0 {
		if !strings.HasSuffix(head, ")") {
			return Token{}, syntaxError(pos, "field %q: unterminated parameter list", name)
		}
		kindName, params, hasParams = head[:open], head[open+1:len(head)-1], true
		if strings.ContainsRune(params, ')') {
			return Token{}, syntaxError(pos, "field %q: ')' is not allowed inside a parameter list", name)
		}
	}

	kind, ok := ParseKind(kindName)
	if !ok {
		return Token{}, syntaxError(pos, "field %q: unknown field kind %q", name, kindName)
	}

	var c Constraints
	if hasParams {
		var err error
		if c, err = parseParams(kind, params); err != nil {
			return Token{}, syntaxError(pos, "field %q: %v", name, err)
		}
	}
	return Extractor(kind, name, c), nil
}

func checkName(name string) error {
	if name == "" {
		return fmt.Errorf("empty field name")
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '.', r == '-':
		default:
			return fmt.Errorf("invalid character %q in field name %q", r, name)
		}
	}
	return nil
}

func parseParams(kind Kind, params string) (Constraints, error) {
	var c Constraints
	if strings.TrimSpace(params) == "" {
		return c, nil
	}
	for _, kv := range strings.Split(params, ",") {
		key, val, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return c, fmt.Errorf("malformed parameter %q, want key=value", kv)
		}

		var err error
		switch kind {
		case KindNumber:
			switch key {
			case "min":
				c.Min, err = strconv.ParseInt(strings.TrimSpace(val), 10, 64)
				c.HasMin = true
			case "max":
				c.Max, err = strconv.ParseInt(strings.TrimSpace(val), 10, 64)
				c.HasMax = true
			default:
				return c, fmt.Errorf("unknown parameter %q for %s", key, kind)
			}
		case KindString:
			switch key {
			case "min_len":
				c.MinLen, err = parseLength(val)
			case "max_len":
				c.MaxLen, err = parseLength(val)
				if err == nil && c.MaxLen == 0 {
					err = fmt.Errorf("must be at least 1")
				}
			case "extra_chars":
				c.ExtraChars = val
			default:
				return c, fmt.Errorf("unknown parameter %q for %s", key, kind)
			}
		case KindIPv4, KindIPv6, KindAny:
			return c, fmt.Errorf("%s takes no parameters", kind)
		}
		if err != nil {
			return c, fmt.Errorf("parameter %q: %w", key, err)
		}
	}

	if c.HasMin && c.HasMax && c.Min > c.Max {
		return c, fmt.Errorf("min %d is greater than max %d", c.Min, c.Max)
	}
	if c.MaxLen > 0 && c.MinLen > c.MaxLen {
		return c, fmt.Errorf("min_len %d is greater than max_len %d", c.MinLen, c.MaxLen)
	}
	return c, nil
}

func parseLength(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return n, nil
}
