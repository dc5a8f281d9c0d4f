package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/linksift/linksift/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready bool `json:"ready"`
}

// Readyz is ready once the handler snapshot is loaded and the local cache
// store (when configured) answers a ping.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ready := d.Snapshot.Count() > 0

		if ready && d.RedisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			ready = d.RedisClient.Ping(ctx).Err() == nil
			cancel()
		}

		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(readyzResponse{Ready: ready})
	}
}
