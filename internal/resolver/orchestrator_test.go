package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/linksift/linksift/internal/cache"
	"github.com/linksift/linksift/internal/domain"
	"github.com/linksift/linksift/internal/logger"
)

type memStore struct {
	entries map[string]string
}

func newMemStore(entries map[string]string) *memStore {
	if entries == nil {
		entries = map[string]string{}
	}
	return &memStore{entries: entries}
}

func (m *memStore) Get(_ context.Context, url string) (string, bool, error) {
	v, ok := m.entries[url]
	return v, ok, nil
}

func (m *memStore) Insert(_ context.Context, url, resolved string) error {
	m.entries[url] = resolved
	return nil
}

type stubLocal struct {
	calls   int
	outcome *domain.RedirectOutcome
	err     error
}

func (s *stubLocal) Resolve(_ context.Context, _ string, _ time.Duration) (*domain.RedirectOutcome, error) {
	s.calls++
	return s.outcome, s.err
}

type stubRemote struct {
	calls    int
	resolved string
	err      error
}

func (s *stubRemote) Resolve(_ context.Context, _ string, _ time.Duration, _ string) (string, error) {
	s.calls++
	return s.resolved, s.err
}

type stubConnectivity struct{ online bool }

func (s stubConnectivity) CanAccessInternet(context.Context) bool { return s.online }

func newTestOrchestrator(local *memStore, builtin *memStore, lr *stubLocal, rr *stubRemote, online bool) *Orchestrator {
	var b cache.BuiltInStore
	if builtin != nil {
		b = builtin
	}
	var l cache.LocalStore
	if local != nil {
		l = local
	}
	var remote RemoteResolver
	if rr != nil {
		remote = rr
	}
	return NewOrchestrator(cache.New(l, b), lr, remote, stubConnectivity{online: online}, "resolvedUrl", logger.Nop())
}

func baseRequest() domain.ResolveRequest {
	return domain.ResolveRequest{
		URL:             "https://t.co/abc",
		ConnectTimeout:  time.Second,
		UseLocalCache:   true,
		UseBuiltInCache: true,
	}
}

func TestResolve_LocalCacheHitMakesZeroNetworkCalls(t *testing.T) {
	lr := &stubLocal{outcome: &domain.RedirectOutcome{URL: "https://network.example.com"}}
	rr := &stubRemote{resolved: "https://network.example.com"}
	o := newTestOrchestrator(
		newMemStore(map[string]string{"https://t.co/abc": "https://cached.example.com"}),
		newMemStore(nil), lr, rr, true,
	)

	result := o.Resolve(context.Background(), baseRequest())
	if result == nil || result.Type != domain.ResolvedLocalCache {
		t.Fatalf("result = %+v, want local cache hit", result)
	}
	if result.URL != "https://cached.example.com" {
		t.Errorf("URL = %q", result.URL)
	}
	if lr.calls != 0 || rr.calls != 0 {
		t.Errorf("cache hit made network calls: local=%d remote=%d", lr.calls, rr.calls)
	}
}

func TestResolve_BuiltInCacheAfterLocalMiss(t *testing.T) {
	lr := &stubLocal{}
	o := newTestOrchestrator(
		newMemStore(nil),
		newMemStore(map[string]string{"https://t.co/abc": "https://shipped.example.com"}),
		lr, nil, true,
	)

	result := o.Resolve(context.Background(), baseRequest())
	if result == nil || result.Type != domain.ResolvedBuiltInCache {
		t.Fatalf("result = %+v, want builtin cache hit", result)
	}
	if lr.calls != 0 {
		t.Errorf("builtin hit made %d network calls", lr.calls)
	}
}

func TestResolve_LocalCacheWinsOverBuiltIn(t *testing.T) {
	o := newTestOrchestrator(
		newMemStore(map[string]string{"https://t.co/abc": "https://learned.example.com"}),
		newMemStore(map[string]string{"https://t.co/abc": "https://shipped.example.com"}),
		&stubLocal{}, nil, true,
	)

	result := o.Resolve(context.Background(), baseRequest())
	if result.Type != domain.ResolvedLocalCache || result.URL != "https://learned.example.com" {
		t.Fatalf("result = %+v, want learned mapping to win", result)
	}
}

func TestResolve_DisabledTiersAreSkipped(t *testing.T) {
	lr := &stubLocal{outcome: &domain.RedirectOutcome{URL: "https://fresh.example.com"}}
	o := newTestOrchestrator(
		newMemStore(map[string]string{"https://t.co/abc": "https://learned.example.com"}),
		newMemStore(map[string]string{"https://t.co/abc": "https://shipped.example.com"}),
		lr, nil, true,
	)

	req := baseRequest()
	req.UseLocalCache = false
	req.UseBuiltInCache = false

	result := o.Resolve(context.Background(), req)
	if result.Type != domain.ResolvedFresh || result.URL != "https://fresh.example.com" {
		t.Fatalf("result = %+v, want fresh resolution", result)
	}
}

func TestResolve_NoInternetAfterCacheMiss(t *testing.T) {
	lr := &stubLocal{}
	o := newTestOrchestrator(newMemStore(nil), newMemStore(nil), lr, nil, false)

	result := o.Resolve(context.Background(), baseRequest())
	if result == nil || result.Type != domain.NoInternetConnection {
		t.Fatalf("result = %+v, want no-internet variant", result)
	}
	if lr.calls != 0 {
		t.Error("offline resolution must not hit the network")
	}
}

func TestResolve_OfflineCacheHitStillWorks(t *testing.T) {
	o := newTestOrchestrator(
		newMemStore(map[string]string{"https://t.co/abc": "https://cached.example.com"}),
		newMemStore(nil), &stubLocal{}, nil, false,
	)

	result := o.Resolve(context.Background(), baseRequest())
	if result == nil || result.Type != domain.ResolvedLocalCache {
		t.Fatalf("result = %+v, cache tiers must be consulted before connectivity", result)
	}
}

func TestResolve_PredicateVetoYieldsNothing(t *testing.T) {
	o := newTestOrchestrator(newMemStore(nil), newMemStore(nil), &stubLocal{}, nil, true)

	req := baseRequest()
	req.Predicate = func(string) bool { return false }

	if result := o.Resolve(context.Background(), req); result != nil {
		t.Fatalf("result = %+v, want absence on predicate veto", result)
	}
}

func TestResolve_DarknetRejectedWhenDisallowed(t *testing.T) {
	lr := &stubLocal{}
	o := newTestOrchestrator(newMemStore(nil), newMemStore(nil), lr, nil, true)

	req := baseRequest()
	req.URL = "http://example.onion/page"

	if result := o.Resolve(context.Background(), req); result != nil {
		t.Fatalf("result = %+v, want absence for darknet host", result)
	}
	if lr.calls != 0 {
		t.Error("rejected darknet URL must not be probed")
	}
}

func TestResolve_DarknetAllowedResolvesLocally(t *testing.T) {
	lr := &stubLocal{outcome: &domain.RedirectOutcome{URL: "http://resolved.onion/"}}
	rr := &stubRemote{resolved: "https://never.example.com"}
	o := newTestOrchestrator(newMemStore(nil), newMemStore(nil), lr, rr, true)

	req := baseRequest()
	req.URL = "http://example.onion/page"
	req.AllowDarknets = true
	req.AllowExternalService = true

	result := o.Resolve(context.Background(), req)
	if result == nil || result.Type != domain.ResolvedFresh {
		t.Fatalf("result = %+v", result)
	}
	if rr.calls != 0 {
		t.Error("darknet host must never be sent to the remote service")
	}
	if lr.calls != 1 {
		t.Errorf("local resolver calls = %d, want 1", lr.calls)
	}
}

func TestResolve_RemoteDispatchWhenAllowed(t *testing.T) {
	lr := &stubLocal{}
	rr := &stubRemote{resolved: "https://resolved.example.com"}
	o := newTestOrchestrator(newMemStore(nil), newMemStore(nil), lr, rr, true)

	req := baseRequest()
	req.AllowExternalService = true

	result := o.Resolve(context.Background(), req)
	if result.Type != domain.ResolvedFresh || result.URL != "https://resolved.example.com" {
		t.Fatalf("result = %+v", result)
	}
	if rr.calls != 1 || lr.calls != 0 {
		t.Errorf("calls: remote=%d local=%d, want remote only", rr.calls, lr.calls)
	}
}

func TestResolve_RemoteFailureFallsBackToLocal(t *testing.T) {
	lr := &stubLocal{outcome: &domain.RedirectOutcome{URL: "https://fallback.example.com"}}
	rr := &stubRemote{err: errors.New("service unavailable")}
	o := newTestOrchestrator(newMemStore(nil), newMemStore(nil), lr, rr, true)

	req := baseRequest()
	req.AllowExternalService = true

	result := o.Resolve(context.Background(), req)
	if result.Type != domain.ResolvedFresh || result.URL != "https://fallback.example.com" {
		t.Fatalf("result = %+v, want local fallback", result)
	}
	if rr.calls != 1 || lr.calls != 1 {
		t.Errorf("calls: remote=%d local=%d", rr.calls, lr.calls)
	}
}

func TestResolve_FreshSuccessPersistsMapping(t *testing.T) {
	store := newMemStore(nil)
	lr := &stubLocal{outcome: &domain.RedirectOutcome{URL: "https://fresh.example.com"}}
	o := newTestOrchestrator(store, newMemStore(nil), lr, nil, true)

	result := o.Resolve(context.Background(), baseRequest())
	if result.Type != domain.ResolvedFresh {
		t.Fatalf("result = %+v", result)
	}
	if got := store.entries["https://t.co/abc"]; got != "https://fresh.example.com" {
		t.Errorf("persisted mapping = %q", got)
	}
}

func TestResolve_FailureDoesNotWriteCache(t *testing.T) {
	store := newMemStore(nil)
	lr := &stubLocal{err: errors.New("connection refused")}
	o := newTestOrchestrator(store, newMemStore(nil), lr, nil, true)

	result := o.Resolve(context.Background(), baseRequest())
	if result == nil || result.Type != domain.ResolveFailure || result.Err == nil {
		t.Fatalf("result = %+v, want typed failure carrying the error", result)
	}
	if len(store.entries) != 0 {
		t.Error("failed resolution must not leave partial cache writes")
	}
}

func TestResolve_CacheDisabledSkipsPersist(t *testing.T) {
	store := newMemStore(nil)
	lr := &stubLocal{outcome: &domain.RedirectOutcome{URL: "https://fresh.example.com"}}
	o := newTestOrchestrator(store, newMemStore(nil), lr, nil, true)

	req := baseRequest()
	req.UseLocalCache = false

	_ = o.Resolve(context.Background(), req)
	if len(store.entries) != 0 {
		t.Error("disabled local cache must not be written")
	}
}
