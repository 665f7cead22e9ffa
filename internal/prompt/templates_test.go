package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultsWithoutRoot(t *testing.T) {
	repo := NewRepository("")

	if got := repo.SystemPrompt("action-plan"); !strings.Contains(got, "actions") {
		t.Errorf("action-plan default should mention the actions key: %q", got)
	}
	if got := repo.SystemPrompt("dpia-draft"); !strings.Contains(got, "sections") {
		t.Errorf("dpia-draft default should mention the sections key: %q", got)
	}
	if got := repo.SystemPrompt("unknown-key"); got == "" {
		t.Error("unknown key must still yield a non-empty default")
	}
	if got := repo.UserPrompt("action-plan"); got != InputPlaceholder {
		t.Errorf("UserPrompt default = %q, want the input placeholder", got)
	}
}

func TestFileOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	custom := "Custom system prompt.\n"
	if err := os.WriteFile(filepath.Join(dir, "action-plan.system.txt"), []byte(custom), 0o644); err != nil {
		t.Fatal(err)
	}

	repo := NewRepository(dir)
	if got := repo.SystemPrompt("action-plan"); got != custom {
		t.Errorf("SystemPrompt = %q, want file content", got)
	}
	// No user override on disk: still the default.
	if got := repo.UserPrompt("action-plan"); got != InputPlaceholder {
		t.Errorf("UserPrompt = %q, want default placeholder", got)
	}
}

func TestMissingRootFallsBack(t *testing.T) {
	repo := NewRepository(filepath.Join(t.TempDir(), "nope"))
	if got := repo.SystemPrompt("dpia-draft"); got == "" {
		t.Error("nonexistent root must fall back to the built-in default")
	}
}
