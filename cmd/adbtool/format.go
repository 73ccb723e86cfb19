package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/actiondb/actiondb-go/internal/config"
	"github.com/actiondb/actiondb-go/pkg/actiondb"
)

// ValidFormats lists all valid output formats.
var ValidFormats = map[string]bool{
	config.FormatJSONL:  true,
	config.FormatPretty: true,
}

// outputRecord is the JSON Lines shape of one input line.
type outputRecord struct {
	Line    int               `json:"line"`
	Matched bool              `json:"matched"`
	UUID    string            `json:"uuid,omitempty"`
	Name    string            `json:"name,omitempty"`
	Tags    []string          `json:"tags,omitempty"`
	Values  map[string]string `json:"values,omitempty"`
	Raw     *string           `json:"raw,omitempty"`
}

// OutputRecord writes a record in the specified format to the writer.
func OutputRecord(format string, rec actiondb.Record, includeRaw bool, out io.Writer) error {
	switch format {
	case config.FormatJSONL:
		return OutputJSON(rec, includeRaw, out)
	case config.FormatPretty:
		return OutputPretty(rec, includeRaw, out)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// OutputJSON writes a record as JSON Lines format.
func OutputJSON(rec actiondb.Record, includeRaw bool, out io.Writer) error {
	o := outputRecord{Line: rec.LineNumber, Matched: rec.Matched}
	if rec.Matched {
		o.UUID = rec.Result.UUID
		o.Name = rec.Result.Name
		o.Tags = rec.Result.Tags
		o.Values = rec.Result.Values
	}
	if includeRaw {
		o.Raw = &rec.Line
	}
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// OutputPretty writes a record in human-readable format.
func OutputPretty(rec actiondb.Record, includeRaw bool, out io.Writer) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%5d] ", rec.LineNumber)
	if rec.Matched {
		sb.WriteString("* ")
		sb.WriteString(rec.Result.Name)
		if data := formatData(rec.Result.Values); data != "" {
			sb.WriteString(": ")
			sb.WriteString(data)
		}
		if len(rec.Result.Tags) > 0 {
			fmt.Fprintf(&sb, " [%s]", strings.Join(rec.Result.Tags, ","))
		}
	} else {
		sb.WriteString("- no match")
	}
	if includeRaw {
		sb.WriteString(" | ")
		sb.WriteString(quoteIfNeeded(rec.Line))
	}
	_, err := fmt.Fprintln(out, sb.String())
	return err
}

// formatData formats a map as sorted key=value pairs.
// Values are quoted if they contain spaces, equals signs, quotes, or control characters.
func formatData(data map[string]string) string {
	if len(data) == 0 {
		return ""
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(data))
	for _, k := range keys {
		parts = append(parts, quoteIfNeeded(k)+"="+quoteIfNeeded(data[k]))
	}
	return strings.Join(parts, " ")
}

// quoteIfNeeded quotes a value if it contains special characters or control characters.
// Returns the value unchanged if no quoting is needed.
func quoteIfNeeded(v string) string {
	if v == "" {
		return `""`
	}
	if !strings.ContainsFunc(v, needsQuote) {
		return v
	}

	var sb strings.Builder
	sb.WriteByte('"')
	for _, c := range v {
		switch {
		case c == '\\':
			sb.WriteString(`\\`)
		case c == '"':
			sb.WriteString(`\"`)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\r':
			sb.WriteString(`\r`)
		case c == '\t':
			sb.WriteString(`\t`)
		case c < 0x20 || c == 0x7F:
			fmt.Fprintf(&sb, `\x%02x`, c)
		default:
			sb.WriteRune(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func needsQuote(c rune) bool {
	return c == ' ' || c == '=' || c == '"' || c == '\\' || c < 0x20 || c == 0x7F
}
