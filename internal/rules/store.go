package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/evigdal/assayer/internal/model"
)

// Store loads rule-set files and caches the parsed result per directory,
// keyed by a content snapshot (path, mtime, size of every file). Repeated
// loads of an unchanged directory never touch the rule files again.
//
// A Store is an explicit object, not a package-level singleton, so tests can
// run against isolated instances and assert invalidation directly.
type Store struct {
	mu    sync.Mutex // guards roots map only
	roots map[string]*rootCache
}

// rootCache holds the parsed rules for one directory. Its own mutex scopes
// the read-or-populate critical section to that directory, so loading one
// rule root never blocks loads of another.
type rootCache struct {
	mu       sync.Mutex
	snapshot string
	rules    []Rule
}

// NewStore creates an empty rule store.
func NewStore() *Store {
	return &Store{roots: make(map[string]*rootCache)}
}

// Load returns the rules under rootPath, parsing only when the directory
// snapshot changed since the last call. Files are read in lexicographic
// order; only *.json directly under rootPath is considered. A missing
// rootPath is a valid empty corpus, not an error. A malformed rule file is
// a fatal error for the whole load: rules are configuration, and silently
// dropping one would hide a compliance-evaluation gap.
func (s *Store) Load(rootPath string) ([]Rule, error) {
	files, err := listRuleFiles(rootPath)
	if err != nil {
		return nil, err
	}

	snapshot, err := snapshotOf(files)
	if err != nil {
		return nil, err
	}

	rc := s.root(rootPath)

	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.snapshot == snapshot && rc.rules != nil {
		return rc.rules, nil
	}

	parsed, err := parseFiles(files)
	if err != nil {
		return nil, err
	}

	rc.snapshot = snapshot
	rc.rules = parsed
	return parsed, nil
}

// Snapshot returns the current directory snapshot string for rootPath,
// without loading or caching anything. Exposed for diagnostics.
func (s *Store) Snapshot(rootPath string) (string, error) {
	files, err := listRuleFiles(rootPath)
	if err != nil {
		return "", err
	}
	return snapshotOf(files)
}

func (s *Store) root(rootPath string) *rootCache {
	s.mu.Lock()
	defer s.mu.Unlock()

	rc, ok := s.roots[rootPath]
	if !ok {
		rc = &rootCache{}
		s.roots[rootPath] = rc
	}
	return rc
}

// listRuleFiles returns the sorted *.json paths directly under rootPath.
// A nonexistent rootPath yields an empty list.
func listRuleFiles(rootPath string) ([]string, error) {
	entries, err := os.ReadDir(rootPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read rule directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		files = append(files, filepath.Join(rootPath, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// snapshotOf builds the deterministic change-detection string: every file's
// path, mtime, and size in stable order. Any add, remove, or modify changes
// the snapshot.
func snapshotOf(files []string) (string, error) {
	if len(files) == 0 {
		return "empty", nil
	}

	var b strings.Builder
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			return "", fmt.Errorf("stat rule file: %w", err)
		}
		b.WriteString(f)
		b.WriteByte('|')
		b.WriteString(strconv.FormatInt(info.ModTime().UnixNano(), 10))
		b.WriteByte('|')
		b.WriteString(strconv.FormatInt(info.Size(), 10))
		b.WriteByte(';')
	}
	return b.String(), nil
}

// ruleFile is the on-disk shape of a rule-set file. Required rule fields are
// pointers so a missing field is distinguishable from a zero value.
type ruleFile struct {
	Rules []ruleJSON `json:"rules"`
}

type ruleJSON struct {
	RuleKey           *string    `json:"ruleKey"`
	Description       *string    `json:"description"`
	Severity          *string    `json:"severity"`
	Condition         *Condition `json:"condition"`
	OutputControlKeys []string   `json:"outputControlKeys"`
}

func parseFiles(files []string) ([]Rule, error) {
	var out []Rule
	for _, file := range files {
		parsed, err := parseFile(file)
		if err != nil {
			return nil, err
		}
		out = append(out, parsed...)
	}
	return out, nil
}

func parseFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file %s: %w", path, err)
	}

	var doc ruleFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rule file %s: %w", path, err)
	}

	// A file without a rules array contributes nothing.
	if doc.Rules == nil {
		return nil, nil
	}

	rules := make([]Rule, 0, len(doc.Rules))
	for i, r := range doc.Rules {
		if r.RuleKey == nil || r.Description == nil || r.Severity == nil || r.Condition == nil {
			return nil, fmt.Errorf("rule file %s: rules[%d] is missing a required field (ruleKey, description, severity, condition)", path, i)
		}
		if err := r.Condition.validate(); err != nil {
			return nil, fmt.Errorf("rule file %s: rules[%d] (%s): %w", path, i, *r.RuleKey, err)
		}

		keys := make([]string, 0, len(r.OutputControlKeys))
		for _, k := range r.OutputControlKeys {
			if strings.TrimSpace(k) != "" {
				keys = append(keys, k)
			}
		}

		rules = append(rules, Rule{
			Key:               *r.RuleKey,
			Description:       *r.Description,
			Severity:          model.ParseSeverity(*r.Severity),
			Condition:         r.Condition,
			OutputControlKeys: keys,
		})
	}
	return rules, nil
}
