package pattern

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/actiondb/actiondb-go/pkg/actiondb/grammar"
)

// fieldRule declares how one record key is decoded. Rules run in order, so
// diagnostics for later fields can name the record. A decode failure on a
// required field is a MissingField; on an optional field it is a
// TypeMismatch and the field stays empty.
type fieldRule struct {
	key      string
	required bool
	decode   func(b *recordBuilder, v any) error
}

var recordSchema = []fieldRule{
	{key: "name", required: true, decode: decodeName},
	{key: "uuid", required: true, decode: decodeUUID},
	{key: "pattern", required: true, decode: decodePattern},
	{key: "values", decode: decodeValues},
	{key: "tags", decode: decodeTags},
	{key: "test_messages", decode: decodeTestMessages},
}

// recordBuilder accumulates the decoded fields and every failure of one
// record.
type recordBuilder struct {
	index    int
	name     string
	uuid     string
	rawUUID  string
	program  *grammar.Program
	values   map[string]string
	tags     []string
	messages []TestMessage
	diags    []Diagnostic
}

// foldRecord runs the schema over rec. Unknown keys are ignored.
func foldRecord(index int, rec map[string]any) *recordBuilder {
	b := &recordBuilder{index: index}
	for _, rule := range recordSchema {
		v, ok := rec[rule.key]
		if !ok || v == nil {
			if rule.required {
				b.fail(MissingField, rule.key, "field is required", nil)
			}
			continue
		}
		if err := rule.decode(b, v); err != nil {
			kind := TypeMismatch
			if rule.required {
				kind = MissingField
			}
			b.fail(kind, rule.key, err.Error(), err)
		}
	}
	b.stamp()
	return b
}

func (b *recordBuilder) fail(kind LoadErrorKind, field, detail string, cause error) {
	b.diags = append(b.diags, Diagnostic{
		Index:  b.index,
		Err:    &LoadError{Kind: kind, Field: field},
		Detail: detail,
		Cause:  errors.Unwrap(cause),
	})
}

// stamp fills in the record identity on diagnostics raised before the
// name and uuid were known.
func (b *recordBuilder) stamp() {
	for i := range b.diags {
		b.diags[i].Name = b.name
		b.diags[i].UUID = b.rawUUID
	}
}

func (b *recordBuilder) excluded() bool {
	for _, d := range b.diags {
		if d.Excluded() {
			return true
		}
	}
	return false
}

func (b *recordBuilder) pattern() *Pattern {
	return &Pattern{
		name:     b.name,
		uuid:     b.uuid,
		program:  b.program,
		values:   b.values,
		tags:     b.tags,
		messages: b.messages,
	}
}

// fieldError keeps the cause reachable for Diagnostic.Cause while the
// message stays readable.
type fieldError struct {
	msg   string
	cause error
}

func (e *fieldError) Error() string { return e.msg }
func (e *fieldError) Unwrap() error { return e.cause }

func causeErrorf(cause error, format string, args ...any) error {
	return &fieldError{msg: fmt.Sprintf(format, args...), cause: cause}
}

func decodeName(b *recordBuilder, v any) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", v)
	}
	if strings.TrimSpace(s) == "" {
		return errors.New("name is empty")
	}
	b.name = s
	return nil
}

func decodeUUID(b *recordBuilder, v any) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", v)
	}
	b.rawUUID = s
	id, err := uuid.Parse(s)
	if err != nil {
		return causeErrorf(err, "invalid uuid %q: %v", s, err)
	}
	// uuid.Parse also accepts the urn, braced and unhyphenated forms.
	if !strings.EqualFold(id.String(), s) {
		return fmt.Errorf("invalid uuid %q: not in canonical form", s)
	}
	b.uuid = id.String()
	return nil
}

func decodePattern(b *recordBuilder, v any) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", v)
	}
	prog, err := grammar.Compile(s)
	if err != nil {
		return causeErrorf(err, "invalid pattern: %v", err)
	}
	b.program = prog
	return nil
}

func decodeValues(b *recordBuilder, v any) error {
	m, err := stringMap(v)
	if err != nil {
		return err
	}
	b.values = m
	return nil
}

func decodeTags(b *recordBuilder, v any) error {
	tags, err := stringList(v)
	if err != nil {
		return err
	}
	b.tags = uniqueStrings(tags)
	return nil
}

func decodeTestMessages(b *recordBuilder, v any) error {
	items, ok := v.([]any)
	if !ok {
		return fmt.Errorf("expected sequence, got %T", v)
	}
	messages := make([]TestMessage, 0, len(items))
	for i, item := range items {
		rec, err := recordMap(item)
		if err != nil {
			return fmt.Errorf("test_messages[%d]: %w", i, err)
		}
		msg, ok := rec["message"].(string)
		if !ok {
			return fmt.Errorf("test_messages[%d]: message must be a string", i)
		}
		tm := TestMessage{Message: msg}
		if raw, ok := rec["values"]; ok && raw != nil {
			if tm.Values, err = stringMap(raw); err != nil {
				return fmt.Errorf("test_messages[%d]: values: %w", i, err)
			}
		}
		if raw, ok := rec["tags"]; ok && raw != nil {
			if tm.Tags, err = stringList(raw); err != nil {
				return fmt.Errorf("test_messages[%d]: tags: %w", i, err)
			}
		}
		messages = append(messages, tm)
	}
	b.messages = messages
	return nil
}

// recordMap accepts the mapping types produced by the YAML, JSON and TOML
// decoders.
func recordMap(v any) (map[string]any, error) {
	switch m := v.(type) {
	case map[string]any:
		return m, nil
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string key %v", k)
			}
			out[ks] = val
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected mapping, got %T", v)
}

func stringMap(v any) (map[string]string, error) {
	m, err := recordMap(v)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		s, ok := scalarString(val)
		if !ok {
			return nil, fmt.Errorf("value of %q must be a scalar, got %T", k, val)
		}
		out[k] = s
	}
	return out, nil
}

func stringList(v any) ([]string, error) {
	switch l := v.(type) {
	case []string:
		return l, nil
	case []any:
		out := make([]string, 0, len(l))
		for i, item := range l {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("item %d must be a string, got %T", i, item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected sequence of strings, got %T", v)
}

// scalarString formats the scalar types the decoders produce. Numbers and
// booleans in a values mapping are common in hand-written YAML.
func scalarString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case bool:
		return strconv.FormatBool(s), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case uint64:
		return strconv.FormatUint(s, 10), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case json.Number:
		return s.String(), true
	case fmt.Stringer:
		return s.String(), true
	}
	return "", false
}
