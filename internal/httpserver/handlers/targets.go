package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/linksift/linksift/internal/domain"
	"github.com/linksift/linksift/internal/httpserver/deps"
	"github.com/linksift/linksift/internal/logger"
)

type candidateResponse struct {
	Package      string `json:"package"`
	Label        string `json:"label"`
	Component    string `json:"component,omitempty"`
	Icon         string `json:"icon,omitempty"`
	Browser      bool   `json:"browser"`
	HostVerified bool   `json:"host_verified"`
}

type targetsResponse struct {
	Input                   string              `json:"input"`
	FinalURL                string              `json:"final_url"`
	Mode                    string              `json:"mode"`
	Browsers                []candidateResponse `json:"browsers"`
	Apps                    []candidateResponse `json:"apps"`
	SingleOption            bool                `json:"single_option"`
	NoBrowsersOnlySingleApp bool                `json:"no_browsers_only_single_app"`
}

// Targets resolves a URL and computes its launchable-target list under the
// configured browser policy. When resolution fails the raw URL feeds
// target selection instead: a dead shortener never blocks the chooser.
func Targets(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawURL := strings.TrimSpace(r.URL.Query().Get("url"))
		if rawURL == "" {
			http.Error(w, "missing url parameter", http.StatusBadRequest)
			return
		}

		outcome := d.Pipeline.Run(r.Context(), d.Defaults.Request(rawURL))

		browsers := d.Snapshot.QueryBrowsers()
		apps := d.Snapshot.QueryApps(outcome.FinalURL)

		all := make([]domain.Candidate, 0, len(apps)+len(browsers))
		all = append(all, apps...)
		for _, b := range browsers {
			all = append(all, b)
		}

		list := domain.FilterBrowsers(d.Filter, browsers, all)

		d.Logger.Info("targets computed",
			logger.String("url", rawURL),
			logger.String("final_url", outcome.FinalURL),
			logger.Int("browsers", len(list.Browsers)),
			logger.Int("apps", len(list.Apps)))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(targetsResponse{
			Input:                   rawURL,
			FinalURL:                outcome.FinalURL,
			Mode:                    list.Mode.String(),
			Browsers:                candidatesOf(list.Browsers),
			Apps:                    candidatesOf(list.Apps),
			SingleOption:            list.SingleOption,
			NoBrowsersOnlySingleApp: list.NoBrowsersOnlySingleApp,
		})
	}
}

func candidatesOf(cs []domain.Candidate) []candidateResponse {
	out := make([]candidateResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, candidateResponse{
			Package:      c.Package,
			Label:        c.Label,
			Component:    c.Component,
			Icon:         c.Icon,
			Browser:      c.Browser,
			HostVerified: c.HostVerified,
		})
	}
	return out
}
