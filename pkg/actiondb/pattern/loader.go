package pattern

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/actiondb/actiondb-go/internal/safefile"
)

const (
	// MaxPatternFileSize is the maximum allowed size for a pattern file (8MB).
	MaxPatternFileSize = 8 * 1024 * 1024

	// MaxPatternCount is the maximum number of records in a pattern file.
	MaxPatternCount = 10000

	// SupportedVersion is the pattern file format version accepted in the
	// optional top-level "version" key.
	SupportedVersion = 1
)

// Format is the serialization of a pattern file.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
	FormatTOML
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatTOML:
		return "toml"
	default:
		return "yaml"
	}
}

// FormatFromPath picks the format from the file extension. Unknown
// extensions are read as YAML, which also accepts most JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".toml":
		return FormatTOML
	default:
		return FormatYAML
	}
}

// sanitizePathError removes the path from os.PathError to prevent information leakage.
func sanitizePathError(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return fmt.Errorf("%s: %w", pathErr.Op, pathErr.Err)
	}
	return err
}

// Load reads a pattern file and builds a Repository from it.
//
// The returned error is non-nil only when the file as a whole is unusable
// (unreadable, too large, undecodable, wrong top-level shape). Problems with
// individual records are returned as diagnostics and the affected records
// are skipped.
//
// Example:
//
//	repo, diags, err := pattern.Load("patterns.yaml")
//	if err != nil {
//	    log.Fatalf("failed to load pattern file: %v", err)
//	}
//	for _, d := range diags {
//	    log.Printf("warning: %v", d)
//	}
func Load(path string) (*Repository, []Diagnostic, error) {
	data, err := safefile.ReadRegular(path, MaxPatternFileSize)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read pattern file: %w", sanitizePathError(err))
	}
	return LoadBytes(data, FormatFromPath(path))
}

// LoadBytes builds a Repository from an in-memory pattern file.
func LoadBytes(data []byte, format Format) (*Repository, []Diagnostic, error) {
	if len(data) == 0 {
		return nil, nil, errors.New("pattern file is empty")
	}
	if len(data) > MaxPatternFileSize {
		return nil, nil, fmt.Errorf("pattern file too large: %d bytes (max %d)", len(data), MaxPatternFileSize)
	}

	doc, err := decodeDocument(data, format)
	if err != nil {
		return nil, nil, err
	}
	items, err := documentRecords(doc)
	if err != nil {
		return nil, nil, err
	}

	repo, diags := loadItems(items)
	return repo, diags, nil
}

// LoadRecords builds a Repository from weakly-typed records. Every record
// is validated independently: a failure removes only that record and is
// reported as a Diagnostic. Diagnostics are ordered by record, then by
// field.
func LoadRecords(records []map[string]any) (*Repository, []Diagnostic) {
	items := make([]any, len(records))
	for i, r := range records {
		items[i] = r
	}
	return loadItems(items)
}

func loadItems(items []any) (*Repository, []Diagnostic) {
	repo := &Repository{byUUID: make(map[string]int, len(items))}
	loadedAt := make(map[string]int, len(items))
	var diags []Diagnostic

	for i, item := range items {
		rec, err := recordMap(item)
		if err != nil {
			diags = append(diags, Diagnostic{
				Index:  i,
				Err:    &LoadError{Kind: TypeMismatch, Field: recordField},
				Detail: err.Error(),
			})
			continue
		}

		b := foldRecord(i, rec)
		if prev, dup := loadedAt[b.uuid]; dup && b.uuid != "" {
			b.fail(DuplicateUUID, "uuid", fmt.Sprintf("duplicate uuid (previously defined at pattern[%d])", prev), nil)
			b.stamp()
		}
		diags = append(diags, b.diags...)
		if b.excluded() {
			continue
		}
		loadedAt[b.uuid] = i
		repo.add(b.pattern())
	}
	return repo, diags
}

func decodeDocument(data []byte, format Format) (any, error) {
	var doc any
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return nil, errors.New("failed to parse JSON: trailing data after document")
		}
	case FormatTOML:
		var table map[string]any
		if err := toml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
		doc = table
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}
	return doc, nil
}

// documentRecords accepts either a bare sequence of records or a mapping
// with a "patterns" sequence and an optional "version".
func documentRecords(doc any) ([]any, error) {
	items, ok := doc.([]any)
	if !ok {
		m, err := recordMap(doc)
		if err != nil {
			return nil, &ValidationError{
				Field:   "document",
				Message: "expected a sequence of patterns or a mapping with a patterns key",
			}
		}
		if v, ok := m["version"]; ok {
			if n, ok := asInt(v); !ok || n != SupportedVersion {
				return nil, &ValidationError{
					Field:   "version",
					Message: fmt.Sprintf("unsupported version %v (only version %d is supported)", v, SupportedVersion),
				}
			}
		}
		raw := m["patterns"]
		if raw == nil {
			return nil, &ValidationError{Field: "patterns", Message: "at least one pattern is required"}
		}
		if items, ok = raw.([]any); !ok {
			return nil, &ValidationError{Field: "patterns", Message: fmt.Sprintf("expected a sequence, got %T", raw)}
		}
	}

	if len(items) == 0 {
		return nil, &ValidationError{Field: "patterns", Message: "at least one pattern is required"}
	}
	if len(items) > MaxPatternCount {
		return nil, &ValidationError{
			Field:   "patterns",
			Message: fmt.Sprintf("too many patterns (%d), maximum allowed is %d", len(items), MaxPatternCount),
		}
	}
	return items, nil
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), n == float64(int64(n))
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}
