// Package sink keeps the most recently uploaded MP3 at a fixed path.
package sink

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Sink writes every upload to the same file. The last write wins. Writes
// are serialized and land by rename, so a reader sees either the previous
// file or the new one.
type Sink struct {
	path string
	mu   sync.Mutex
}

func New(path string) *Sink {
	return &Sink{path: path}
}

func (s *Sink) Path() string { return s.path }

// Store copies r to the sink path and returns that path.
func (s *Sink) Store(r io.Reader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".incoming-*.mp3")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write mp3: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return "", fmt.Errorf("replace %s: %w", s.path, err)
	}
	return s.path, nil
}
