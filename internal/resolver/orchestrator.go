package resolver

import (
	"context"
	"net/url"
	"time"

	"github.com/linksift/linksift/internal/cache"
	"github.com/linksift/linksift/internal/domain"
	"github.com/linksift/linksift/internal/logger"
)

// LocalResolver is the on-device unwrapping path.
type LocalResolver interface {
	Resolve(ctx context.Context, rawURL string, timeout time.Duration) (*domain.RedirectOutcome, error)
}

// RemoteResolver is the delegated unwrapping path.
type RemoteResolver interface {
	Resolve(ctx context.Context, rawURL string, timeout time.Duration, resolvedField string) (string, error)
}

// ConnectivityChecker is a point-in-time internet check, consulted once per
// call at the orchestrator boundary.
type ConnectivityChecker interface {
	CanAccessInternet(ctx context.Context) bool
}

// Orchestrator composes cache lookup, darknet gating, connectivity check
// and resolver dispatch into the resolve-one-URL operation. Stateless per
// call; the cache is the only shared mutable collaborator.
type Orchestrator struct {
	cache         *cache.Resolved
	local         LocalResolver
	remote        RemoteResolver // nil when no remote service is configured
	connectivity  ConnectivityChecker
	resolvedField string
	log           logger.Logger
}

func NewOrchestrator(
	resolved *cache.Resolved,
	local LocalResolver,
	remote RemoteResolver,
	connectivity ConnectivityChecker,
	resolvedField string,
	log logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		cache:         resolved,
		local:         local,
		remote:        remote,
		connectivity:  connectivity,
		resolvedField: resolvedField,
		log:           log,
	}
}

// Resolve runs the pipeline with strict, short-circuiting precedence:
// predicate veto -> darknet gate -> local cache -> builtin cache ->
// connectivity -> dispatch -> cache write. A nil return is absence (policy
// said no), never a failure; failures travel inside the result.
//
// Cache tiers come before the connectivity check on purpose: offline cached
// lookups still work. The darknet gate comes before any network dispatch so
// no request leaks onto the wrong transport.
func (o *Orchestrator) Resolve(ctx context.Context, req domain.ResolveRequest) *domain.ResolveResult {
	if req.Predicate != nil && !req.Predicate(req.URL) {
		return nil
	}

	host := hostOf(req.URL)
	darknet := domain.Classify(host)
	if darknet != domain.DarknetNone && !req.AllowDarknets {
		o.log.Debug("darknet host rejected",
			logger.String("host", host),
			logger.String("darknet", darknet.String()))
		return nil
	}

	if req.UseLocalCache {
		if resolved, ok := o.lookupLocal(ctx, req.URL); ok {
			return &domain.ResolveResult{Type: domain.ResolvedLocalCache, URL: resolved}
		}
	}

	if req.UseBuiltInCache {
		if resolved, ok := o.lookupBuiltIn(ctx, req.URL); ok {
			return &domain.ResolveResult{Type: domain.ResolvedBuiltInCache, URL: resolved}
		}
	}

	if !o.connectivity.CanAccessInternet(ctx) {
		return &domain.ResolveResult{Type: domain.NoInternetConnection}
	}

	// Dispatch decision is computed once, as a tagged choice.
	route := domain.ChooseRoute(host, req.AllowExternalService && o.remote != nil)

	result := o.dispatch(ctx, req, route)
	if resolved, ok := result.ResolvedURL(); ok && req.UseLocalCache {
		// Best effort; a failed write never fails the resolution.
		if err := o.cache.Insert(ctx, req.URL, resolved); err != nil {
			o.log.Warn("failed to persist resolution",
				logger.String("url", req.URL),
				logger.Error(err))
		}
	}
	return result
}

func (o *Orchestrator) dispatch(ctx context.Context, req domain.ResolveRequest, route domain.ResolveRoute) *domain.ResolveResult {
	if route == domain.RouteRemote {
		resolved, err := o.remote.Resolve(ctx, req.URL, req.ConnectTimeout, o.resolvedField)
		if err == nil && domain.ValidURL(resolved) {
			return &domain.ResolveResult{Type: domain.ResolvedFresh, URL: resolved}
		}
		// Remote down or answering garbage: fall back to on-device probing.
		o.log.Warn("remote resolution failed, falling back to local",
			logger.String("url", req.URL),
			logger.Error(err))
	}

	outcome, err := o.local.Resolve(ctx, req.URL, req.ConnectTimeout)
	if err != nil {
		o.log.Debug("local resolution failed",
			logger.String("url", req.URL),
			logger.Error(err))
		return &domain.ResolveResult{Type: domain.ResolveFailure, Err: err}
	}
	return &domain.ResolveResult{
		Type: domain.ResolvedFresh,
		URL:  outcome.URL,
		HTML: outcome.HTML,
	}
}

func (o *Orchestrator) lookupLocal(ctx context.Context, rawURL string) (string, bool) {
	resolved, ok, err := o.cache.LookupLocal(ctx, rawURL)
	if err != nil {
		// A broken cache degrades to a miss.
		o.log.Warn("local cache lookup failed",
			logger.String("url", rawURL),
			logger.Error(err))
		return "", false
	}
	return resolved, ok
}

func (o *Orchestrator) lookupBuiltIn(ctx context.Context, rawURL string) (string, bool) {
	resolved, ok, err := o.cache.LookupBuiltIn(ctx, rawURL)
	if err != nil {
		o.log.Warn("builtin cache lookup failed",
			logger.String("url", rawURL),
			logger.Error(err))
		return "", false
	}
	return resolved, ok
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
