package deps

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linksift/linksift/internal/domain"
	"github.com/linksift/linksift/internal/libredirect"
	"github.com/linksift/linksift/internal/logger"
	"github.com/linksift/linksift/internal/registry"
	"github.com/linksift/linksift/internal/resolver"
	"github.com/linksift/linksift/internal/store/builtin"
)

// ResolveDefaults are the config-derived flags applied to every resolution
// started over the API.
type ResolveDefaults struct {
	ConnectTimeout       time.Duration
	UseLocalCache        bool
	UseBuiltInCache      bool
	AllowExternalService bool
	AllowDarknets        bool
}

// Request builds one resolution request for a URL.
func (d ResolveDefaults) Request(url string) domain.ResolveRequest {
	return domain.ResolveRequest{
		URL:                  url,
		ConnectTimeout:       d.ConnectTimeout,
		UseLocalCache:        d.UseLocalCache,
		UseBuiltInCache:      d.UseBuiltInCache,
		AllowExternalService: d.AllowExternalService,
		AllowDarknets:        d.AllowDarknets,
	}
}

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	AllowedHosts []string // Host headers allowed to access the server
	AllowedCIDRS []string // IPs allowed to access the server
	TrustProxy   bool     // true if running behind a trusted reverse proxy

	RateBurst     int // per-IP burst on the resolution endpoints
	RateRefillMin int // per-IP tokens refilled per minute

	Pipeline  *resolver.Pipeline     // the full resolve+substitute chain
	Defaults  ResolveDefaults        // per-request resolution flags
	Snapshot  *registry.Snapshot     // installed-handler snapshot
	Directory *libredirect.Directory // static substitution directory
	Engine    *libredirect.Engine    // substitution engine (dynamic rule count)
	Filter    domain.FilterConfig    // browser-handling policy

	RedisClient  *redis.Client  // nil when the local cache is disabled
	BuiltinStore *builtin.Store // nil when the shipped cache is disabled

	ReloadTrigger chan struct{} // Channel to trigger a manual bundle reload
}
