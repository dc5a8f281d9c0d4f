// Package resolver unwraps shortened/tracking URLs. The local resolver
// probes the URL from this process; the remote resolver delegates to a
// configured resolution service; the orchestrator decides which one runs
// and in what order the cache and gating checks happen.
package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/linksift/linksift/internal/domain"
	"github.com/linksift/linksift/internal/utils"
)

const maxRedirects = 10

// Local unwraps URLs by probing them directly over HTTP.
type Local struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
}

// NewLocal builds a local resolver around a redirect-following client.
// The client keeps at most one hop of history: redirected requests carry
// only the standard hop headers, never a copy of the original beyond that.
func NewLocal(userAgent string, maxBodyBytes int64) *Local {
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 << 20
	}
	return &Local{client: client, userAgent: userAgent, maxBodyBytes: maxBodyBytes}
}

// Resolve runs the local unwrapping algorithm:
//
//  1. HEAD the URL. A zero-delay Refresh header with a parsable target wins
//     immediately, over whatever the redirect following arrived at.
//  2. Otherwise a non-4xx HEAD answers with its final URL.
//  3. A 4xx HEAD escalates to a GET on the original URL, re-checking the
//     refresh header, then falling back to the GET's final URL. The body is
//     captured only when the GET response is HTML.
//
// Network errors propagate untouched; retries belong to the caller.
func (l *Local) Resolve(ctx context.Context, rawURL string, timeout time.Duration) (*domain.RedirectOutcome, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := l.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		return nil, fmt.Errorf("head %s: %w", rawURL, err)
	}
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // HEAD body is empty
	utils.Close(resp.Body)

	if target, ok := refreshTarget(resp.Header.Get("Refresh")); ok {
		return &domain.RedirectOutcome{Mechanism: domain.MechanismRefreshHeader, URL: target}, nil
	}

	if !isClientError(resp.StatusCode) {
		return &domain.RedirectOutcome{
			Mechanism: domain.MechanismLocationHeader,
			URL:       resp.Request.URL.String(),
		}, nil
	}

	// HEAD not supported or rejected: escalate to GET on the original URL.
	resp, err = l.do(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer utils.Close(resp.Body)

	if target, ok := refreshTarget(resp.Header.Get("Refresh")); ok {
		return &domain.RedirectOutcome{Mechanism: domain.MechanismRefreshHeader, URL: target}, nil
	}

	outcome := &domain.RedirectOutcome{
		Mechanism: domain.MechanismGetBody,
		URL:       resp.Request.URL.String(),
	}
	if isHTML(resp.Header.Get("Content-Type")) {
		body, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBodyBytes))
		if err == nil {
			outcome.HTML = string(body)
		}
	}
	return outcome, nil
}

func (l *Local) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "*/*")
	return l.client.Do(req)
}

func isClientError(status int) bool {
	return status >= 400 && status <= 499
}

func isHTML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

// refreshTarget parses a Refresh header value. Only a delay of exactly 0
// redirects; the target must parse as an absolute URL. Accepted forms:
// "0;url=https://x", "0; URL='https://x'", "0,https://x". A malformed value
// is simply not a refresh redirect.
func refreshTarget(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}

	sep := strings.IndexAny(value, ";,")
	if sep < 0 {
		return "", false
	}
	if strings.TrimSpace(value[:sep]) != "0" {
		return "", false
	}

	rest := strings.TrimSpace(value[sep+1:])
	if eq := strings.Index(strings.ToLower(rest), "url="); eq >= 0 {
		rest = strings.TrimSpace(rest[eq+len("url="):])
	}
	rest = strings.Trim(rest, `"'`)

	u, err := url.Parse(rest)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return u.String(), true
}
