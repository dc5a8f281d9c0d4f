// Package libredirect rewrites URLs of known tracked services to
// user-preferred alternative frontends. The service/instance directory is
// bundled with the application and loaded once at startup; a secondary
// rules table can be swapped in live for frontends whose redirect logic
// changes faster than releases ship.
package libredirect

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// InstanceRandom is the sentinel instance choice meaning "pick a random
// instance from the frontend's host pool on every substitution".
const InstanceRandom = "random"

// Service is one tracked service in the bundled directory.
type Service struct {
	Key             string   `yaml:"key"`
	Name            string   `yaml:"name,omitempty"`
	Hosts           []string `yaml:"hosts"`
	DefaultFrontend string   `yaml:"default_frontend"`
}

// Frontend is one alternative frontend with its instance host pool.
type Frontend struct {
	Key       string   `yaml:"key"`
	Service   string   `yaml:"service"`
	Instances []string `yaml:"instances"`
}

type directoryFile struct {
	Services  []Service  `yaml:"services"`
	Frontends []Frontend `yaml:"frontends"`
}

// Directory is the immutable, process-wide service/instance directory.
// Loaded once, read-only thereafter; safe to share without locking.
type Directory struct {
	services  []Service
	frontends map[string]Frontend
}

// LoadDirectory reads and validates the bundled directory file.
func LoadDirectory(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory file: %w", err)
	}

	var file directoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse directory yaml: %w", err)
	}

	return NewDirectory(file.Services, file.Frontends)
}

// NewDirectory builds a directory from already-parsed entries. Exposed so
// tests and embedders can construct one without a file.
func NewDirectory(services []Service, frontends []Frontend) (*Directory, error) {
	byKey := make(map[string]Frontend, len(frontends))
	for _, f := range frontends {
		if f.Key == "" {
			return nil, fmt.Errorf("frontend with empty key (service %q)", f.Service)
		}
		if _, dup := byKey[f.Key]; dup {
			return nil, fmt.Errorf("duplicate frontend key %q", f.Key)
		}
		byKey[f.Key] = f
	}

	for _, s := range services {
		if s.Key == "" {
			return nil, fmt.Errorf("service with empty key")
		}
		if s.DefaultFrontend != "" {
			if _, ok := byKey[s.DefaultFrontend]; !ok {
				return nil, fmt.Errorf("service %q references unknown frontend %q", s.Key, s.DefaultFrontend)
			}
		}
	}

	return &Directory{services: services, frontends: byKey}, nil
}

// ServiceCount reports the number of directory entries, for the infra
// endpoint.
func (d *Directory) ServiceCount() int { return len(d.services) }

// ServiceKeys lists every service key in the directory.
func (d *Directory) ServiceKeys() []string {
	keys := make([]string, 0, len(d.services))
	for _, s := range d.services {
		keys = append(keys, s.Key)
	}
	return keys
}

// Frontend returns the frontend for a key.
func (d *Directory) Frontend(key string) (Frontend, bool) {
	f, ok := d.frontends[key]
	return f, ok
}

// Match finds the service whose host pattern covers host, preferring the
// most specific (longest) matching pattern. Patterns are exact hosts or
// "*." wildcards covering subdomains.
func (d *Directory) Match(host string) (Service, bool) {
	host = strings.ToLower(strings.TrimSuffix(host, "."))

	var (
		best    Service
		bestLen = -1
	)
	for _, s := range d.services {
		for _, pattern := range s.Hosts {
			p := strings.ToLower(pattern)
			if !hostMatches(host, p) {
				continue
			}
			if len(p) > bestLen {
				best = s
				bestLen = len(p)
			}
		}
	}
	return best, bestLen >= 0
}

func hostMatches(host, pattern string) bool {
	if rest, ok := strings.CutPrefix(pattern, "*."); ok {
		return host == rest || strings.HasSuffix(host, "."+rest)
	}
	return host == pattern
}

// Preferences is the user's substitution state: which services are enabled
// and which frontend/instance each enabled service should use. Absent
// choices fall back to the service's built-in default frontend and its
// first instance.
type Preferences struct {
	Enabled []string          `yaml:"enabled"`
	Choices map[string]Choice `yaml:"choices"`
}

// Choice is one saved per-service selection. Instance may be the
// InstanceRandom sentinel.
type Choice struct {
	Frontend string `yaml:"frontend"`
	Instance string `yaml:"instance"`
}

// LoadPreferences reads the user preferences file. A missing path yields
// empty preferences (everything disabled), not an error.
func LoadPreferences(path string) (Preferences, error) {
	if path == "" {
		return Preferences{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Preferences{}, fmt.Errorf("failed to read preferences file: %w", err)
	}
	var prefs Preferences
	if err := yaml.Unmarshal(data, &prefs); err != nil {
		return Preferences{}, fmt.Errorf("failed to parse preferences yaml: %w", err)
	}
	return prefs, nil
}

func (p Preferences) enabled(serviceKey string) bool {
	for _, key := range p.Enabled {
		if key == serviceKey {
			return true
		}
	}
	return false
}
