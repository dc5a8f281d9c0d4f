package libredirect

import (
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/linksift/linksift/internal/domain"
)

// DynamicRule overrides the substitution for one service: requests hit the
// named instance regardless of the static directory's choice. Rules ship
// separately from the binary and can be reloaded while the process runs.
type DynamicRule struct {
	Service  string `yaml:"service"`
	Frontend string `yaml:"frontend"`
	Instance string `yaml:"instance"`
}

type dynamicFile struct {
	Rules []DynamicRule `yaml:"rules"`
}

// LoadDynamicRules reads the live rules file. An empty path yields no rules.
func LoadDynamicRules(path string) ([]DynamicRule, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dynamic rules file: %w", err)
	}
	var file dynamicFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse dynamic rules yaml: %w", err)
	}
	return file.Rules, nil
}

// Engine performs frontend substitution. The directory and preferences are
// immutable after construction; only the dynamic rules table mutates, under
// its own lock, when the reloader swaps it.
type Engine struct {
	dir   *Directory
	prefs Preferences

	mu      sync.RWMutex
	dynamic map[string]DynamicRule // service key -> rule

	// intn picks the random instance; injectable for deterministic tests.
	intn func(n int) int
}

func NewEngine(dir *Directory, prefs Preferences) *Engine {
	return &Engine{
		dir:     dir,
		prefs:   prefs,
		dynamic: map[string]DynamicRule{},
		intn:    rand.Intn,
	}
}

// SetDynamicRules replaces the live rules table. Called by the reloader.
func (e *Engine) SetDynamicRules(rules []DynamicRule) {
	next := make(map[string]DynamicRule, len(rules))
	for _, r := range rules {
		next[r.Service] = r
	}
	e.mu.Lock()
	e.dynamic = next
	e.mu.Unlock()
}

// DynamicRuleCount reports the live table size, for the infra endpoint.
func (e *Engine) DynamicRuleCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.dynamic)
}

// Resolve rewrites rawURL to the user's preferred frontend, when the URL
// belongs to a known service the user has substitution enabled for.
// No match, a disabled service and an empty substitution all yield
// NotRedirected; none of them are errors.
func (e *Engine) Resolve(rawURL string, useDynamic bool) domain.SubstitutionResult {
	notRedirected := domain.SubstitutionResult{Original: rawURL}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return notRedirected
	}

	service, ok := e.dir.Match(u.Hostname())
	if !ok || !e.prefs.enabled(service.Key) {
		return notRedirected
	}

	if useDynamic {
		if instance, ok := e.dynamicInstance(service.Key); ok {
			return e.substitute(rawURL, u, instance)
		}
	}

	instance := e.chooseInstance(service)
	if instance == "" {
		return notRedirected
	}
	return e.substitute(rawURL, u, instance)
}

func (e *Engine) dynamicInstance(serviceKey string) (string, bool) {
	e.mu.RLock()
	rule, ok := e.dynamic[serviceKey]
	e.mu.RUnlock()
	if !ok || rule.Instance == "" {
		return "", false
	}
	return rule.Instance, true
}

// chooseInstance resolves the target instance host for a service: the
// user's saved frontend+instance (with the random sentinel drawing from the
// frontend's pool), else the service's default frontend and its first
// instance.
func (e *Engine) chooseInstance(service Service) string {
	frontendKey := service.DefaultFrontend
	instance := ""

	if choice, ok := e.prefs.Choices[service.Key]; ok {
		if choice.Frontend != "" {
			frontendKey = choice.Frontend
		}
		instance = choice.Instance
	}

	frontend, ok := e.dir.Frontend(frontendKey)
	if !ok || len(frontend.Instances) == 0 {
		return ""
	}

	switch instance {
	case "":
		return frontend.Instances[0]
	case InstanceRandom:
		return frontend.Instances[e.intn(len(frontend.Instances))]
	default:
		return instance
	}
}

// substitute swaps the host for the instance host, preserving scheme, path,
// query and fragment. A substitution that changes nothing is NotRedirected.
func (e *Engine) substitute(rawURL string, u *url.URL, instance string) domain.SubstitutionResult {
	replaced := *u
	replaced.Host = instance
	if replaced.Scheme == "http" {
		// Alternative frontends are public instances; never downgrade them.
		replaced.Scheme = "https"
	}

	replacement := replaced.String()
	if replacement == rawURL {
		return domain.SubstitutionResult{Original: rawURL}
	}
	return domain.SubstitutionResult{
		Redirected:  true,
		Original:    rawURL,
		Replacement: replacement,
	}
}
