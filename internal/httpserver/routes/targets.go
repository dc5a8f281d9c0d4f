package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/linksift/linksift/internal/httpserver/deps"
	"github.com/linksift/linksift/internal/httpserver/handlers"
	"github.com/linksift/linksift/internal/httpserver/mw"
)

func init() { Register(registerTargets) }

func registerTargets(r chi.Router, d deps.Deps) {
	r.With(
		mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger),
		mw.EnforceHost(d.AllowedHosts, d.Logger),
		mw.RateLimit(mw.RateLimitConfig{
			Burst:             d.RateBurst,
			RefillPerIPPerMin: d.RateRefillMin,
			TrustProxy:        d.TrustProxy,
		}),
	).Get("/api/targets", handlers.Targets(d))
}
