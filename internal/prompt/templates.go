// Package prompt resolves system/user prompt templates for draft generation.
// Templates live as {key}.system.txt / {key}.user.txt files under a prompt
// root; every key has a built-in default so an empty root still works.
package prompt

import (
	"os"
	"path/filepath"
)

// InputPlaceholder is replaced with the serialized model input when the user
// prompt is rendered.
const InputPlaceholder = "{{INPUT_JSON}}"

// Repository is a pure template lookup over one directory.
type Repository struct {
	root string
}

// NewRepository creates a repository rooted at dir. An empty or nonexistent
// dir means all lookups fall back to built-in defaults.
func NewRepository(dir string) *Repository {
	return &Repository{root: dir}
}

// SystemPrompt returns the system prompt for a template key.
func (r *Repository) SystemPrompt(key string) string {
	return r.read(key, "system", defaultSystemPrompt(key))
}

// UserPrompt returns the user prompt for a template key. The default is the
// bare input placeholder.
func (r *Repository) UserPrompt(key string) string {
	return r.read(key, "user", InputPlaceholder)
}

func (r *Repository) read(key, kind, fallback string) string {
	if r.root == "" {
		return fallback
	}
	data, err := os.ReadFile(filepath.Join(r.root, key+"."+kind+".txt"))
	if err != nil {
		return fallback
	}
	return string(data)
}

func defaultSystemPrompt(key string) string {
	switch key {
	case "action-plan":
		return "You are a compliance assistant. Return strict JSON with top-level 'actions'."
	case "dpia-draft":
		return "You are a compliance assistant. Return strict JSON with top-level 'sections'."
	default:
		return "Return strict JSON only."
	}
}
