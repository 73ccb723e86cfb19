package actiondb

import (
	"github.com/actiondb/actiondb-go/pkg/actiondb/matcher"
	"github.com/actiondb/actiondb-go/pkg/actiondb/pattern"
)

// Open loads a pattern file and builds a Matcher over the patterns that
// loaded cleanly. Records that failed to load are reported as diagnostics;
// the error is non-nil only when the file as a whole is unusable.
func Open(path string) (*matcher.Matcher, []pattern.Diagnostic, error) {
	repo, diags, err := pattern.Load(path)
	if err != nil {
		return nil, nil, err
	}
	return matcher.New(repo), diags, nil
}

// OpenBytes is like Open for an in-memory pattern file.
func OpenBytes(data []byte, format pattern.Format) (*matcher.Matcher, []pattern.Diagnostic, error) {
	repo, diags, err := pattern.LoadBytes(data, format)
	if err != nil {
		return nil, nil, err
	}
	return matcher.New(repo), diags, nil
}
