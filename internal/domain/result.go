package domain

import (
	"net/url"
	"time"
)

// ResolveRequest carries everything one resolution call needs.
// It is immutable for the duration of the call and never persisted.
type ResolveRequest struct {
	// URL is the raw shared/clicked URL.
	URL string

	// ConnectTimeout bounds each network probe made on behalf of this call.
	ConnectTimeout time.Duration

	// UseLocalCache consults (and, on fresh success, records) the learned
	// input->resolved mappings.
	UseLocalCache bool

	// UseBuiltInCache consults the read-only shipped redirector table.
	UseBuiltInCache bool

	// AllowExternalService permits dispatching to the remote resolution
	// service. A darknet or non-public host forces local resolution
	// regardless of this flag.
	AllowExternalService bool

	// AllowDarknets permits resolving onion/i2p/lokinet hosts at all.
	// When false, a darknet URL yields no result (absence, not an error).
	AllowDarknets bool

	// Predicate, when set, can veto resolution of this URL entirely.
	// A veto yields no result, not an error.
	Predicate func(url string) bool
}

// ResolveResultType discriminates the outcome of one resolution call.
type ResolveResultType int

const (
	// ResolvedLocalCache means the learned mapping answered; no network.
	ResolvedLocalCache ResolveResultType = iota
	// ResolvedBuiltInCache means the shipped table answered; no network.
	ResolvedBuiltInCache
	// ResolvedFresh means the URL was unwrapped over the network this call.
	ResolvedFresh
	// NoInternetConnection means resolution was skipped for lack of
	// connectivity. Distinct from failure: there was nothing to try.
	NoInternetConnection
	// ResolveFailure means the network path was attempted and failed.
	ResolveFailure
)

func (t ResolveResultType) String() string {
	switch t {
	case ResolvedLocalCache:
		return "resolved_local_cache"
	case ResolvedBuiltInCache:
		return "resolved_builtin_cache"
	case ResolvedFresh:
		return "resolved_fresh"
	case NoInternetConnection:
		return "no_internet_connection"
	case ResolveFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// ResolveResult is a closed tagged union: exactly one variant is populated.
// Resolved* variants carry a syntactically valid URL in URL; ResolveFailure
// carries the underlying I/O error in Err; NoInternetConnection carries
// neither. HTML is only set for fresh resolutions that escalated to a GET
// whose response body was HTML.
type ResolveResult struct {
	Type ResolveResultType
	URL  string
	HTML string
	Err  error
}

// ResolvedURL returns the carried URL for Resolved* variants and false
// otherwise.
func (r *ResolveResult) ResolvedURL() (string, bool) {
	switch r.Type {
	case ResolvedLocalCache, ResolvedBuiltInCache, ResolvedFresh:
		return r.URL, true
	default:
		return "", false
	}
}

// ResolveRoute is the dispatch decision for a fresh resolution, computed
// once per call so the choice is testable in isolation from I/O.
type ResolveRoute int

const (
	RouteLocal ResolveRoute = iota
	RouteRemote
)

// ChooseRoute decides local vs remote dispatch. Remote is only eligible when
// the external service is allowed AND the host is not a darknet AND the host
// is publicly accessible; anything else must be unwrapped on-device.
func ChooseRoute(host string, externalServiceAllowed bool) ResolveRoute {
	if !externalServiceAllowed {
		return RouteLocal
	}
	if Classify(host) != DarknetNone {
		return RouteLocal
	}
	if !PubliclyAccessible(host) {
		return RouteLocal
	}
	return RouteRemote
}

// RedirectMechanism records how a redirect target was discovered.
type RedirectMechanism int

const (
	// MechanismLocationHeader: the HTTP client's own redirect following
	// arrived at the final URL.
	MechanismLocationHeader RedirectMechanism = iota
	// MechanismRefreshHeader: a zero-delay Refresh header named the target.
	MechanismRefreshHeader
	// MechanismGetBody: a GET escalation produced the final URL, with the
	// body captured when it was HTML.
	MechanismGetBody
)

// RedirectOutcome is the result of one local unwrapping. HTML is only
// populated for MechanismGetBody when the response was HTML, so downstream
// metadata unfurling knows whether it has anything to work with.
type RedirectOutcome struct {
	Mechanism RedirectMechanism
	URL       string
	HTML      string
}

// SubstitutionResult is the outcome of a frontend-substitution attempt.
// NotRedirected (Redirected == false) covers no-match, disabled service and
// empty substitution alike; none of those are errors.
type SubstitutionResult struct {
	Redirected  bool
	Original    string
	Replacement string
}

// ValidURL reports whether s parses as an absolute URL with a host.
func ValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}
