package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/linksift/linksift/internal/httpserver/deps"
	"github.com/linksift/linksift/internal/logger"
	"github.com/linksift/linksift/internal/resolver"
	"github.com/linksift/linksift/internal/unfurl"
)

type substitutionResponse struct {
	Redirected  bool   `json:"redirected"`
	Original    string `json:"original,omitempty"`
	Replacement string `json:"replacement,omitempty"`
}

type resolveResponse struct {
	Input        string                `json:"input"`
	FinalURL     string                `json:"final_url"`
	Result       string                `json:"result"`
	ResolvedURL  string                `json:"resolved_url,omitempty"`
	Error        string                `json:"error,omitempty"`
	Substitution *substitutionResponse `json:"substitution,omitempty"`
	Unfurl       *unfurl.Metadata      `json:"unfurl,omitempty"`
}

// Resolve runs the full pipeline on one URL and reports every stage's
// outcome. Policy vetoes (darknet, predicate) come back as result
// "skipped" with the raw URL as final_url, matching the degradation
// contract: the caller can always launch something.
func Resolve(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawURL := strings.TrimSpace(r.URL.Query().Get("url"))
		if rawURL == "" {
			http.Error(w, "missing url parameter", http.StatusBadRequest)
			return
		}

		d.Logger.Info("resolve request", logger.String("url", rawURL))

		outcome := d.Pipeline.Run(r.Context(), d.Defaults.Request(rawURL))
		writeResolveResponse(w, rawURL, outcome)
	}
}

func writeResolveResponse(w http.ResponseWriter, rawURL string, outcome resolver.Outcome) {
	resp := resolveResponse{
		Input:    rawURL,
		FinalURL: outcome.FinalURL,
		Result:   "skipped",
	}

	if result := outcome.Result; result != nil {
		resp.Result = result.Type.String()
		if resolved, ok := result.ResolvedURL(); ok {
			resp.ResolvedURL = resolved
		}
		if result.Err != nil {
			resp.Error = result.Err.Error()
		}
		if result.HTML != "" {
			if meta := unfurl.Extract(result.HTML); meta != (unfurl.Metadata{}) {
				resp.Unfurl = &meta
			}
		}
	}

	if sub := outcome.Substitution; sub != nil {
		resp.Substitution = &substitutionResponse{
			Redirected:  sub.Redirected,
			Original:    sub.Original,
			Replacement: sub.Replacement,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
