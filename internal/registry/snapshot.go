// Package registry answers "which installed applications can handle this
// URL". The installed-handler set is consumed as a snapshot file exported
// by the platform integration, loaded at startup and refreshed by the
// reloader; queries run against the in-memory copy.
package registry

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Handler is one installed application as reported by the platform's
// package registry export.
type Handler struct {
	Package       string   `yaml:"package"`
	Label         string   `yaml:"label"`
	Component     string   `yaml:"component"`
	Icon          string   `yaml:"icon,omitempty"`
	Browser       bool     `yaml:"browser,omitempty"`
	Schemes       []string `yaml:"schemes"`
	Hosts         []string `yaml:"hosts,omitempty"`
	VerifiedHosts []string `yaml:"verified_hosts,omitempty"`
}

type snapshotFile struct {
	Handlers []Handler `yaml:"handlers"`
}

// LoadFile reads and parses a handler snapshot file.
func LoadFile(path string) ([]Handler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read handler snapshot: %w", err)
	}
	var file snapshotFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse handler snapshot yaml: %w", err)
	}
	return file.Handlers, nil
}

// Snapshot holds the current handler set. Queries take a read lock; the
// reloader swaps the whole set under the write lock.
type Snapshot struct {
	mu         sync.RWMutex
	handlers   []Handler
	lastReload time.Time
}

func NewSnapshot() *Snapshot {
	return &Snapshot{}
}

// Update replaces the handler set.
func (s *Snapshot) Update(handlers []Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = handlers
	s.lastReload = time.Now()
}

// Count returns the number of known handlers.
func (s *Snapshot) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers)
}

// LastReload returns when the snapshot was last replaced.
func (s *Snapshot) LastReload() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReload
}

func (s *Snapshot) all() []Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handlers
}
