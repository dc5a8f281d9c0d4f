package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/linksift/linksift/internal/httpserver/deps"
)

type componentStatus struct {
	OK         bool   `json:"ok"`
	Loaded     *int   `json:"loaded,omitempty"`
	LastReload string `json:"last_reload,omitempty"`
	Mode       string `json:"mode,omitempty"`
	Impact     string `json:"impact,omitempty"`
	Error      string `json:"error,omitempty"`
}

type infraResponse struct {
	PipelineMode string                     `json:"pipeline_mode"`
	Components   map[string]componentStatus `json:"components"`
}

// Infra reports per-component health: the handler snapshot, the
// substitution directory, both cache tiers and the dynamic rules table.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		handlers := d.Snapshot.Count()
		lastReload := "never"
		if t := d.Snapshot.LastReload(); !t.IsZero() {
			lastReload = t.Format("2006-01-02 15:04:05")
		}

		services := d.Directory.ServiceCount()
		rules := d.Engine.DynamicRuleCount()

		components := map[string]componentStatus{
			"handler_snapshot": {
				OK:         handlers > 0,
				Loaded:     &handlers,
				LastReload: lastReload,
			},
			"substitution_directory": {
				OK:     services > 0,
				Loaded: &services,
			},
			"dynamic_rules": {
				OK:     true,
				Loaded: &rules,
			},
			"local_cache":   checkLocalCache(d),
			"builtin_cache": checkBuiltinCache(r.Context(), d),
		}

		_ = json.NewEncoder(w).Encode(infraResponse{
			PipelineMode: pipelineMode(components),
			Components:   components,
		})
	}
}

// pipelineMode summarizes: no handlers = critical (nothing to launch),
// a dead cache tier = degraded (resolution still works, just slower).
func pipelineMode(components map[string]componentStatus) string {
	if snapshot, exists := components["handler_snapshot"]; exists && !snapshot.OK {
		return "critical"
	}
	for _, name := range []string{"local_cache", "builtin_cache"} {
		if c, exists := components[name]; exists && !c.OK {
			return "degraded"
		}
	}
	return "full"
}

func checkLocalCache(d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{
			OK:     true,
			Mode:   "disabled",
			Impact: "no learned resolutions",
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "every resolution goes to the network",
			Error:  err.Error(),
		}
	}
	return componentStatus{OK: true, Mode: "optimal"}
}

func checkBuiltinCache(ctx context.Context, d deps.Deps) componentStatus {
	if d.BuiltinStore == nil {
		return componentStatus{
			OK:     true,
			Mode:   "disabled",
			Impact: "well-known redirectors resolved over the network",
		}
	}

	n, err := d.BuiltinStore.Count(ctx)
	if err != nil {
		return componentStatus{OK: false, Error: err.Error()}
	}
	return componentStatus{OK: true, Loaded: &n}
}
