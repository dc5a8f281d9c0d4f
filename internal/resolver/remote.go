package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/linksift/linksift/internal/utils"
)

// Remote delegates unwrapping to a configured resolution service: the
// endpoint performs the HEAD/GET logic server-side and returns the resolved
// URL in a caller-named response field. Endpoint and token come from
// configuration, never hard-coded.
type Remote struct {
	endpoint string
	token    string
	client   *http.Client
}

func NewRemote(endpoint, token string) *Remote {
	return &Remote{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{},
	}
}

type remoteRequest struct {
	URL string `json:"url"`
}

// Resolve posts the URL to the resolution service. resolvedField names the
// response field carrying the resolved URL.
func (r *Remote) Resolve(ctx context.Context, rawURL string, timeout time.Duration, resolvedField string) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	body, err := json.Marshal(remoteRequest{URL: rawURL})
	if err != nil {
		return "", fmt.Errorf("failed to encode remote request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create remote request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("remote resolution failed: %w", err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("remote resolution returned status %d", resp.StatusCode)
	}

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&fields); err != nil {
		return "", fmt.Errorf("failed to decode remote response: %w", err)
	}

	raw, ok := fields[resolvedField]
	if !ok {
		return "", fmt.Errorf("remote response missing field %q", resolvedField)
	}
	var resolved string
	if err := json.Unmarshal(raw, &resolved); err != nil {
		return "", fmt.Errorf("remote field %q is not a string: %w", resolvedField, err)
	}
	if resolved == "" {
		return "", fmt.Errorf("remote field %q is empty", resolvedField)
	}
	return resolved, nil
}
