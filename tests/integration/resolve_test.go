package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/linksift/linksift/internal/cache"
	"github.com/linksift/linksift/internal/domain"
	"github.com/linksift/linksift/internal/libredirect"
	"github.com/linksift/linksift/internal/logger"
	"github.com/linksift/linksift/internal/resolver"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (m *memStore) Get(_ context.Context, url string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[url]
	return v, ok, nil
}

func (m *memStore) Insert(_ context.Context, url, resolved string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[url] = resolved
	return nil
}

type stubConnectivity struct{ online bool }

func (s stubConnectivity) CanAccessInternet(context.Context) bool { return s.online }

// newRedirector serves /short with a 302 to /final and counts every hit.
func newRedirector(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/short", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	return httptest.NewServer(mux)
}

func newTestEngine(t *testing.T, serviceHost string) *libredirect.Engine {
	t.Helper()
	directory, err := libredirect.NewDirectory(
		[]libredirect.Service{
			{Key: "tracked", Hosts: []string{serviceHost}, DefaultFrontend: "frontend"},
		},
		[]libredirect.Frontend{
			{Key: "frontend", Service: "tracked", Instances: []string{"frontend.example"}},
		},
	)
	if err != nil {
		t.Fatalf("failed to build directory: %v", err)
	}
	return libredirect.NewEngine(directory, libredirect.Preferences{Enabled: []string{"tracked"}})
}

func newTestPipeline(store *memStore, engine *libredirect.Engine, online bool) *resolver.Pipeline {
	log := logger.Nop()
	orchestrator := resolver.NewOrchestrator(
		cache.New(store, nil),
		resolver.NewLocal("integration-test", 1<<20),
		nil,
		stubConnectivity{online: online},
		"",
		log,
	)
	var substituter resolver.Substituter
	if engine != nil {
		substituter = engine
	}
	return resolver.NewPipeline(orchestrator, substituter, false, log)
}

func request(rawURL string) domain.ResolveRequest {
	return domain.ResolveRequest{
		URL:            rawURL,
		ConnectTimeout: 5 * time.Second,
		UseLocalCache:  true,
	}
}

func TestResolveSubstituteEndToEnd(t *testing.T) {
	var hits atomic.Int64
	server := newRedirector(t, &hits)
	defer server.Close()

	serverURL, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("failed to parse server url: %v", err)
	}

	store := newMemStore()
	pipeline := newTestPipeline(store, newTestEngine(t, serverURL.Host), true)

	shortURL := server.URL + "/short"
	finalURL := server.URL + "/final"

	outcome := pipeline.Run(context.Background(), request(shortURL))

	if outcome.Result == nil {
		t.Fatal("expected a resolution result, got nil")
	}
	if outcome.Result.Type != domain.ResolvedFresh {
		t.Fatalf("result type = %v, want %v", outcome.Result.Type, domain.ResolvedFresh)
	}
	resolved, ok := outcome.Result.ResolvedURL()
	if !ok || resolved != finalURL {
		t.Fatalf("resolved url = %q (ok=%v), want %q", resolved, ok, finalURL)
	}

	if outcome.Substitution == nil || !outcome.Substitution.Redirected {
		t.Fatalf("expected substitution to fire, got %+v", outcome.Substitution)
	}
	if !strings.HasPrefix(outcome.FinalURL, "https://frontend.example/") {
		t.Errorf("final url = %q, want frontend host with https upgrade", outcome.FinalURL)
	}

	// The fresh resolution must have been learned.
	if stored, found, _ := store.Get(context.Background(), shortURL); !found || stored != finalURL {
		t.Errorf("cache entry = %q (found=%v), want %q", stored, found, finalURL)
	}
}

func TestResolveSecondRunServedFromCache(t *testing.T) {
	var hits atomic.Int64
	server := newRedirector(t, &hits)
	defer server.Close()

	store := newMemStore()
	pipeline := newTestPipeline(store, nil, true)

	shortURL := server.URL + "/short"

	first := pipeline.Run(context.Background(), request(shortURL))
	if first.Result == nil || first.Result.Type != domain.ResolvedFresh {
		t.Fatalf("first run result = %+v, want fresh resolution", first.Result)
	}
	networkHits := hits.Load()

	second := pipeline.Run(context.Background(), request(shortURL))
	if second.Result == nil || second.Result.Type != domain.ResolvedLocalCache {
		t.Fatalf("second run result = %+v, want local cache hit", second.Result)
	}
	if hits.Load() != networkHits {
		t.Errorf("cache hit reached the network: %d extra hits", hits.Load()-networkHits)
	}
	if second.FinalURL != first.FinalURL {
		t.Errorf("cached final url = %q, want %q", second.FinalURL, first.FinalURL)
	}
}

func TestResolveOfflineCacheStillWorks(t *testing.T) {
	store := newMemStore()
	if err := store.Insert(context.Background(), "https://short.example/x", "https://long.example/y"); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	pipeline := newTestPipeline(store, nil, false)

	outcome := pipeline.Run(context.Background(), request("https://short.example/x"))
	if outcome.Result == nil || outcome.Result.Type != domain.ResolvedLocalCache {
		t.Fatalf("result = %+v, want local cache hit while offline", outcome.Result)
	}
	if outcome.FinalURL != "https://long.example/y" {
		t.Errorf("final url = %q, want cached mapping", outcome.FinalURL)
	}
}

func TestResolveOfflineWithoutCacheReportsNoInternet(t *testing.T) {
	pipeline := newTestPipeline(newMemStore(), nil, false)

	outcome := pipeline.Run(context.Background(), request("https://short.example/x"))
	if outcome.Result == nil || outcome.Result.Type != domain.NoInternetConnection {
		t.Fatalf("result = %+v, want no-internet", outcome.Result)
	}
	if outcome.FinalURL != "https://short.example/x" {
		t.Errorf("final url = %q, want raw input", outcome.FinalURL)
	}
}

func TestResolveDarknetVetoLeavesURLUntouched(t *testing.T) {
	var hits atomic.Int64
	server := newRedirector(t, &hits)
	defer server.Close()

	pipeline := newTestPipeline(newMemStore(), nil, true)

	outcome := pipeline.Run(context.Background(), request("http://example.onion/page"))
	if outcome.Result != nil {
		t.Fatalf("result = %+v, want nil for a vetoed darknet URL", outcome.Result)
	}
	if outcome.FinalURL != "http://example.onion/page" {
		t.Errorf("final url = %q, want raw input", outcome.FinalURL)
	}
	if hits.Load() != 0 {
		t.Errorf("darknet veto still reached the network: %d hits", hits.Load())
	}
}
