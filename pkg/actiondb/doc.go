// Package actiondb extracts structured fields from free-form text lines
// using a library of UUID-identified patterns.
//
// A pattern is literal text with typed field extractors:
//
//	user @STRING:user@ logged in from @IPv4:ip@
//
// Patterns live in a YAML, JSON or TOML pattern file (see the [pattern]
// package for the format). Open loads the file and builds a
// [matcher.Matcher]:
//
//	m, diags, err := actiondb.Open("patterns.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, d := range diags {
//	    log.Printf("skipped: %v", d)
//	}
//
//	if res, ok := m.MatchLine("user alice logged in from 10.0.0.5"); ok {
//	    fmt.Println(res.Name, res.Values["user"], res.Values["ip"])
//	}
//
// # Streaming
//
// [Parse] matches every line of an io.Reader and yields one [Record] per
// line, in order:
//
//	for rec, err := range actiondb.Parse(ctx, m, os.Stdin) {
//	    if err != nil {
//	        return err
//	    }
//	    if rec.Matched {
//	        fmt.Println(rec.LineNumber, rec.Result.Name)
//	    }
//	}
//
// A [Watcher] follows a growing file the way tail -f does and emits a
// Record for every matched line appended to it.
//
// # Validation
//
// Test messages attached to patterns are checked by the [selftest]
// package.
package actiondb
