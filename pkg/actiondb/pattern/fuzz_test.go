package pattern

import (
	"testing"
)

// FuzzLoadBytes feeds arbitrary YAML to the loader to make sure malformed
// records are reported rather than panicking.
func FuzzLoadBytes(f *testing.F) {
	f.Add("patterns:\n  - name: a\n    uuid: 9a49c47d-29e9-4072-be84-3b76c6814743\n    pattern: 'a @NUMBER:n@'\n")
	f.Add("- name: a\n  uuid: 1\n  pattern: [x]\n  values: {k: [1]}\n")
	f.Add("- 1\n- [2]\n- {name: {}}\n")
	f.Add("version: x\npatterns: {}\n")
	f.Add("- {name: a, uuid: 9a49c47d-29e9-4072-be84-3b76c6814743, pattern: '@ANY:a@@ANY:b@'}\n")
	f.Add("")

	f.Fuzz(func(t *testing.T, data string) {
		repo, diags, err := LoadBytes([]byte(data), FormatYAML)
		if err != nil {
			if repo != nil || diags != nil {
				t.Fatalf("LoadBytes returned results alongside error %v", err)
			}
			return
		}
		for _, d := range diags {
			if d.Err == nil {
				t.Fatalf("diagnostic without error kind: %+v", d)
			}
		}
		if repo.Len() > MaxPatternCount {
			t.Fatalf("loaded %d patterns", repo.Len())
		}
		for _, p := range repo.Patterns() {
			if p.Program() == nil || p.Name() == "" || p.UUID() == "" {
				t.Fatalf("incomplete pattern loaded: %+v", p)
			}
		}
	})
}
