// Package audit keeps an append-only, hash-chained JSONL record of
// assessment runs. Each entry's prev_hash is the SHA-256 of the previous
// line, making after-the-fact edits to the run history detectable.
package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// GenesisHash is the prev_hash of the first entry in a new log.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

const timestampLayout = "2006-01-02T15:04:05.000Z"

// Entry is one assessment run in the log. All fields are plain values
// (no maps) so json.Marshal field order is deterministic and hashing is
// reproducible.
type Entry struct {
	Timestamp       string `json:"ts"`
	TenantID        string `json:"tenant_id"`
	VersionID       string `json:"version_id"`
	AssessmentID    string `json:"assessment_id"`
	RiskClass       string `json:"risk_class"`
	ComplianceScore int    `json:"compliance_score"`
	Findings        int    `json:"findings"`
	Actions         int    `json:"actions"`
	PrevHash        string `json:"prev_hash"`
}

// Log is an open audit log file. The chain tail is recovered on open and
// advanced on every append.
type Log struct {
	mu   sync.Mutex
	file *os.File
	tail string
}

// Open opens (or creates) an audit log for appending. An existing file is
// scanned to recover the chain tail, so appends from successive processes
// form one continuous chain.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}

	tail, err := chainTail(path)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("audit: open file: %w", err)
	}
	return &Log{file: file, tail: tail}, nil
}

// Record appends an entry, filling in the timestamp (if empty) and chain
// hash, and syncs to disk before returning.
func (l *Log) Record(entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(timestampLayout)
	}
	entry.PrevHash = l.tail

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("audit: write entry: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("audit: sync: %w", err)
	}

	l.tail = HashLine(line)
	return nil
}

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// HashLine returns "sha256:<hex>" of the given bytes.
func HashLine(line []byte) string {
	h := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(h[:])
}

// chainTail returns the hash the next entry must chain onto: the hash of the
// file's last non-empty line, or the genesis hash for a missing or empty
// file.
func chainTail(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return GenesisHash, nil
		}
		return "", fmt.Errorf("audit: read existing log: %w", err)
	}
	defer func() { _ = f.Close() }()

	tail := GenesisHash
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			tail = HashLine(scanner.Bytes())
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("audit: scan existing log: %w", err)
	}
	return tail, nil
}
