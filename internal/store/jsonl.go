// Package store persists intermediate crawl results as JSON Lines on the
// local filesystem, one product result per line.
package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"pricescout/internal/pricing"
)

// JSONL is an append-only result log for one run. Appends are serialized by
// a mutex and flushed to disk per line, so a crash mid-run loses at most the
// line being written.
type JSONL struct {
	mu   sync.Mutex
	path string
}

// NewJSONL creates the log file's parent directory and returns a store
// writing to path. The file itself is created lazily on first append.
func NewJSONL(path string) (*JSONL, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("result log path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create result log directory: %w", err)
		}
	}
	return &JSONL{path: path}, nil
}

// Path returns the log file location.
func (s *JSONL) Path() string { return s.path }

// Append serializes one result and writes it as a single line.
func (s *JSONL) Append(result pricing.ProductResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result %s: %w", result.ProductID, err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open result log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append result %s: %w", result.ProductID, err)
	}
	return nil
}

// ReadAll loads every result in file order. A missing file reads as an empty
// run rather than an error.
func (s *JSONL) ReadAll() ([]pricing.ProductResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open result log: %w", err)
	}
	defer f.Close()

	var results []pricing.ProductResult
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var r pricing.ProductResult
		if err := json.Unmarshal([]byte(text), &r); err != nil {
			return nil, fmt.Errorf("result log line %d: %w", lineNo, err)
		}
		results = append(results, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read result log: %w", err)
	}
	return results, nil
}

// Remove deletes the log file. Removing an already-absent file is not an
// error, so cleanup after report generation is idempotent.
func (s *JSONL) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove result log: %w", err)
	}
	return nil
}
