package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/linksift/linksift/internal/cache"
	"github.com/linksift/linksift/internal/config"
	"github.com/linksift/linksift/internal/connectivity"
	"github.com/linksift/linksift/internal/domain"
	"github.com/linksift/linksift/internal/httpserver"
	"github.com/linksift/linksift/internal/httpserver/deps"
	"github.com/linksift/linksift/internal/libredirect"
	"github.com/linksift/linksift/internal/logger"
	"github.com/linksift/linksift/internal/redis"
	"github.com/linksift/linksift/internal/registry"
	"github.com/linksift/linksift/internal/resolver"
	"github.com/linksift/linksift/internal/scheduler"
	"github.com/linksift/linksift/internal/store/builtin"
	redisstore "github.com/linksift/linksift/internal/store/redis"
	"github.com/linksift/linksift/internal/version"
)

type App struct {
	cfg          *config.Config
	logger       logger.Logger
	server       *httpserver.Server
	redisClient  *goredis.Client
	builtinStore *builtin.Store
	snapshot     *registry.Snapshot
	reloader     *scheduler.BundleReloader
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Local cache tier: Redis, connected early - fail fast if unavailable.
	var redisClient *goredis.Client
	var localStore cache.LocalStore
	if cfg.UseLocalCache {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.New(redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			loggerClient.Errorf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		loggerClient.Info("Redis initialized successfully")
		redisClient = client
		localStore = redisstore.NewStore(client)
	} else {
		loggerClient.Info("local resolution cache disabled")
	}

	// Built-in cache tier: the shipped redirector table (read-only sqlite).
	var builtinStore *builtin.Store
	var builtinTier cache.BuiltInStore
	if cfg.UseBuiltInCache && cfg.BuiltinCachePath != "" {
		store, err := builtin.Open(cfg.BuiltinCachePath)
		if err != nil {
			loggerClient.Errorf("Failed to open built-in cache: %v", err)
			os.Exit(1)
		}
		builtinStore = store
		builtinTier = store
		loggerClient.Info("built-in cache opened",
			logger.String("path", cfg.BuiltinCachePath))
	} else {
		loggerClient.Info("built-in resolution cache disabled")
	}

	// Substitution directory + user preferences.
	directory, err := libredirect.LoadDirectory(cfg.DirectoryFile)
	if err != nil {
		loggerClient.Errorf("Failed to load substitution directory: %v", err)
		os.Exit(1)
	}
	prefs, err := libredirect.LoadPreferences(cfg.PreferencesFile)
	if err != nil {
		loggerClient.Errorf("Failed to load substitution preferences: %v", err)
		os.Exit(1)
	}
	engine := libredirect.NewEngine(directory, prefs)

	// Installed-handler snapshot, filled by the bundle reloader.
	snapshot := registry.NewSnapshot()

	// Create manual reload trigger channel
	reloadTrigger := make(chan struct{}, 1)

	reloader := scheduler.NewBundleReloader(
		cfg.DynamicRulesFile,
		cfg.SnapshotFile,
		engine,
		snapshot,
		loggerClient,
		cfg.ReloadInterval,
		reloadTrigger,
	)

	// Resolution chain: cache facade, local prober, optional remote
	// delegate, connectivity check.
	resolved := cache.New(localStore, builtinTier)
	localResolver := resolver.NewLocal(cfg.UserAgent, cfg.MaxBodyBytes)

	var remote resolver.RemoteResolver
	if cfg.AllowExternalService {
		remote = resolver.NewRemote(cfg.RemoteEndpoint, cfg.RemoteToken)
		loggerClient.Info("remote resolution service enabled",
			logger.String("endpoint", cfg.RemoteEndpoint))
	}

	checker := connectivity.NewChecker(cfg.ProbeHost, cfg.ProbeTimeout, loggerClient)

	orchestrator := resolver.NewOrchestrator(
		resolved,
		localResolver,
		remote,
		checker,
		cfg.RemoteResolvedField,
		loggerClient,
	)
	pipeline := resolver.NewPipeline(orchestrator, engine, cfg.DynamicRulesFile != "", loggerClient)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:        loggerClient,
		StartTime:     time.Now(),
		Version:       version.Version,
		Commit:        version.Commit,
		BuildDate:     version.BuildDate,
		GoVersion:     version.GoVersion,
		AllowedHosts:  cfg.AllowedHosts,
		AllowedCIDRS:  cfg.AllowedCIDRS,
		TrustProxy:    cfg.TrustProxy,
		RateBurst:     cfg.RateBurst,
		RateRefillMin: cfg.RateRefillMin,

		Pipeline: pipeline,
		Defaults: deps.ResolveDefaults{
			ConnectTimeout:       cfg.ConnectTimeout,
			UseLocalCache:        cfg.UseLocalCache,
			UseBuiltInCache:      cfg.UseBuiltInCache,
			AllowExternalService: cfg.AllowExternalService,
			AllowDarknets:        cfg.AllowDarknets,
		},
		Snapshot:  snapshot,
		Directory: directory,
		Engine:    engine,
		Filter: domain.FilterConfig{
			Mode: domain.ParseBrowserMode(cfg.BrowserMode, cfg.SelectedBrowser, cfg.BrowserWhitelist),
		},

		RedisClient:  redisClient,
		BuiltinStore: builtinStore,

		ReloadTrigger: reloadTrigger,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:          cfg,
		logger:       loggerClient,
		server:       server,
		redisClient:  redisClient,
		builtinStore: builtinStore,
		snapshot:     snapshot,
		reloader:     reloader,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting linksift v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("linksift %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start bundle reloader (loads the handler snapshot and dynamic rules,
	// then refreshes them periodically).
	if err := a.reloader.Start(ctx); err != nil {
		return fmt.Errorf("failed to start bundle reloader: %w", err)
	}
	a.logger.Info("bundle reloader started",
		logger.Duration("interval", a.cfg.ReloadInterval),
		logger.Int("handlers", a.snapshot.Count()))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.reloader.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.builtinStore != nil {
		if err := a.builtinStore.Close(); err != nil {
			a.logger.Warnf("failed to close built-in cache: %v", err)
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ linksift stopped cleanly")
	return nil
}
