package registry

import (
	"net/url"
	"sort"
	"strings"

	"github.com/linksift/linksift/internal/domain"
)

// QueryBrowsers returns every installed browser keyed by package name.
// Two separate scheme queries run (http, then https) because some browsers
// register only for https; the merge de-duplicates by package, and an
// https-only browser still counts as a full browser.
func (s *Snapshot) QueryBrowsers() map[string]domain.Candidate {
	merged := make(map[string]domain.Candidate)
	for _, scheme := range []string{"http", "https"} {
		for _, h := range s.queryScheme(scheme) {
			if !h.Browser {
				continue
			}
			if _, seen := merged[h.Package]; seen {
				continue
			}
			merged[h.Package] = candidateOf(h, "")
		}
	}
	return merged
}

// QueryApps returns the non-browser applications registered for the URL,
// ordered by package name. Verified-domain state is computed against the
// URL's host.
func (s *Snapshot) QueryApps(rawURL string) []domain.Candidate {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil
	}
	host := strings.ToLower(u.Hostname())

	var apps []domain.Candidate
	for _, h := range s.queryScheme(u.Scheme) {
		if h.Browser {
			continue
		}
		if !matchesAny(host, h.Hosts) {
			continue
		}
		apps = append(apps, candidateOf(h, host))
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].Package < apps[j].Package })
	return apps
}

func (s *Snapshot) queryScheme(scheme string) []Handler {
	var out []Handler
	for _, h := range s.all() {
		for _, registered := range h.Schemes {
			if strings.EqualFold(registered, scheme) {
				out = append(out, h)
				break
			}
		}
	}
	return out
}

func candidateOf(h Handler, host string) domain.Candidate {
	return domain.Candidate{
		Package:      h.Package,
		Label:        h.Label,
		Component:    h.Component,
		Icon:         h.Icon,
		Browser:      h.Browser,
		HostVerified: host != "" && matchesAny(host, h.VerifiedHosts),
	}
}

func matchesAny(host string, patterns []string) bool {
	for _, pattern := range patterns {
		p := strings.ToLower(pattern)
		if rest, ok := strings.CutPrefix(p, "*."); ok {
			if host == rest || strings.HasSuffix(host, "."+rest) {
				return true
			}
			continue
		}
		if host == p {
			return true
		}
	}
	return false
}
