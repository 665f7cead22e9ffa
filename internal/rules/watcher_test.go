package rules

import (
	"path/filepath"
	"testing"
)

func TestMarkDirtyExactRootOnly(t *testing.T) {
	roots := []string{
		filepath.Join("policy", "rules"),
		filepath.Join("policy", "rules-v2"),
	}
	w := NewWatcher(NewStore(), roots)

	cases := []struct {
		name  string
		event string
		want  []string
	}{
		{"first_root", filepath.Join("policy", "rules", "a.json"), []string{roots[0]}},
		{"sibling_with_prefix", filepath.Join("policy", "rules-v2", "a.json"), []string{roots[1]}},
		{"nested_subdir", filepath.Join("policy", "rules", "sub", "a.json"), nil},
		{"unrelated", filepath.Join("elsewhere", "a.json"), nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dirty := make(map[string]bool)
			w.markDirty(dirty, tc.event)

			if len(dirty) != len(tc.want) {
				t.Fatalf("dirty = %v, want roots %v", dirty, tc.want)
			}
			for _, root := range tc.want {
				if !dirty[root] {
					t.Errorf("root %q not marked; dirty = %v", root, dirty)
				}
			}
		})
	}
}

func TestMarkDirtyNormalizesRoot(t *testing.T) {
	// A root configured with a trailing separator still matches its files.
	root := "packs" + string(filepath.Separator)
	w := NewWatcher(NewStore(), []string{root})

	dirty := make(map[string]bool)
	w.markDirty(dirty, filepath.Join("packs", "gdpr.json"))

	if !dirty[root] {
		t.Errorf("trailing-separator root not matched; dirty = %v", dirty)
	}
}
