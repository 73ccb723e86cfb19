package grammar_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actiondb/actiondb-go/pkg/actiondb/grammar"
)

func TestCompile_Tokens(t *testing.T) {
	prog, err := grammar.Compile("user @STRING:user@ logged in from @IPv4:ip@")
	require.NoError(t, err)

	want := []grammar.Token{
		grammar.Literal("user "),
		grammar.Extractor(grammar.KindString, "user", grammar.Constraints{}),
		grammar.Literal(" logged in from "),
		grammar.Extractor(grammar.KindIPv4, "ip", grammar.Constraints{}),
	}
	assert.Equal(t, want, prog.Tokens())
	assert.Equal(t, []string{"user", "ip"}, prog.FieldNames())
	assert.Equal(t, len("user ")+len(" logged in from "), prog.LiteralLen())

	prefix, ok := prog.Prefix()
	assert.True(t, ok)
	assert.Equal(t, "user ", prefix)
}

func TestCompile_EscapedAt(t *testing.T) {
	prog, err := grammar.Compile("mail @@ @STRING(extra_chars=.-):host@@@")
	require.NoError(t, err)

	toks := prog.Tokens()
	require.Len(t, toks, 3)
	assert.Equal(t, "mail @ ", toks[0].Text)
	assert.Equal(t, ".-", toks[1].Constraints.ExtraChars)
	assert.Equal(t, "@", toks[2].Text)
}

func TestCompile_LeadingExtractorHasNoPrefix(t *testing.T) {
	prog, err := grammar.Compile("@NUMBER:pid@ exited")
	require.NoError(t, err)

	_, ok := prog.Prefix()
	assert.False(t, ok)
}

func TestCompile_Params(t *testing.T) {
	prog, err := grammar.Compile("@NUMBER(min=1, max=65535):port@ @STRING(min_len=2,max_len=8):user@")
	require.NoError(t, err)

	toks := prog.Tokens()
	require.Len(t, toks, 3)
	assert.Equal(t, grammar.Constraints{Min: 1, Max: 65535, HasMin: true, HasMax: true}, toks[0].Constraints)
	assert.Equal(t, grammar.Constraints{MinLen: 2, MaxLen: 8}, toks[2].Constraints)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name     string
		template string
		kind     grammar.ErrorKind
		contains string
	}{
		{"empty", "", grammar.Syntax, "empty template"},
		{"unterminated", "user @STRING:user", grammar.Syntax, "unterminated field"},
		{"missing colon", "user @STRING@", grammar.Syntax, "missing ':'"},
		{"unknown kind", "user @WORD:user@", grammar.Syntax, "unknown field kind"},
		{"lowercase kind", "user @string:user@", grammar.Syntax, "unknown field kind"},
		{"empty name", "user @STRING:@", grammar.Syntax, "empty field name"},
		{"bad name", "user @STRING:us er@", grammar.Syntax, "invalid character"},
		{"unterminated params", "@NUMBER(min=1:port@", grammar.Syntax, "unterminated parameter list"},
		{"malformed param", "@NUMBER(min):port@", grammar.Syntax, "malformed parameter"},
		{"unknown param", "@NUMBER(len=1):port@", grammar.Syntax, "unknown parameter"},
		{"bad number", "@NUMBER(min=x):port@", grammar.Syntax, "parameter \"min\""},
		{"min over max", "@NUMBER(min=10,max=1):port@", grammar.Syntax, "greater than max"},
		{"negative length", "@STRING(min_len=-1):s@", grammar.Syntax, "must not be negative"},
		{"zero max_len", "@STRING(max_len=0):s@", grammar.Syntax, "must be at least 1"},
		{"params on ip", "@IPv4(strict=1):ip@", grammar.Syntax, "takes no parameters"},
		{"paren in extra_chars", "@STRING(extra_chars=)):x@", grammar.Syntax, "not allowed inside a parameter list"},
		{"any then field", "@ANY:a@@NUMBER:n@", grammar.Syntax, "ANY must be followed"},
		{"duplicate", "@STRING:a@ and @NUMBER:a@", grammar.DuplicateField, "already bound"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := grammar.Compile(tt.template)
			require.Error(t, err)

			var cerr *grammar.CompileError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.kind, cerr.Kind)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestCompileError_Is(t *testing.T) {
	_, err := grammar.Compile("@STRING:a@ @STRING:a@")
	assert.ErrorIs(t, err, grammar.ErrDuplicateField)
	assert.NotErrorIs(t, err, grammar.ErrSyntax)

	_, err = grammar.Compile("@FOO:a@")
	assert.ErrorIs(t, err, grammar.ErrSyntax)
}

func TestCompileError_Pos(t *testing.T) {
	_, err := grammar.Compile("abc @FOO:a@")
	var cerr *grammar.CompileError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, 4, cerr.Pos)
}

func TestCompile_Deterministic(t *testing.T) {
	const tmpl = "a @NUMBER(min=1):n@ b @ANY:rest@"
	p1 := grammar.MustCompile(tmpl)
	p2 := grammar.MustCompile(tmpl)
	assert.Equal(t, p1.Tokens(), p2.Tokens())
}

func TestToken_StringRoundTrip(t *testing.T) {
	templates := []string{
		"user @STRING:user@ logged in from @IPv4:ip@",
		"@NUMBER(min=1,max=65535):port@/tcp",
		"rcpt @@ @STRING(min_len=1,extra_chars=.-_):domain@",
		"addr=@IPv6:addr@ msg=@ANY:msg@",
	}
	for _, tmpl := range templates {
		prog := grammar.MustCompile(tmpl)
		var rendered string
		for _, tok := range prog.Tokens() {
			rendered += tok.String()
		}
		again := grammar.MustCompile(rendered)
		assert.Equal(t, prog.Tokens(), again.Tokens(), tmpl)
	}
}

func TestToken_StringOmitsEmptyParams(t *testing.T) {
	toks := grammar.MustCompile("@NUMBER():n@ @STRING(extra_chars=/):path@").Tokens()
	require.Len(t, toks, 3)

	assert.True(t, toks[0].Constraints.IsZero())
	assert.Equal(t, "@NUMBER:n@", toks[0].String())

	assert.False(t, toks[2].Constraints.IsZero())
	assert.Equal(t, "@STRING(extra_chars=/):path@", toks[2].String())
}

func TestMustCompile_Panics(t *testing.T) {
	assert.Panics(t, func() { grammar.MustCompile("@BAD:x@") })
}
