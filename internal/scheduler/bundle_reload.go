package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/linksift/linksift/internal/libredirect"
	"github.com/linksift/linksift/internal/logger"
	"github.com/linksift/linksift/internal/registry"
)

// BundleReloader periodically refreshes the two live-updatable bundles:
// the dynamic substitution rules and the installed-handler snapshot. The
// static directory itself is immutable for the process lifetime and is
// deliberately not reloaded here.
type BundleReloader struct {
	rulesFile     string // "" = dynamic rules disabled
	snapshotFile  string
	engine        *libredirect.Engine
	snapshot      *registry.Snapshot
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

func NewBundleReloader(
	rulesFile string,
	snapshotFile string,
	engine *libredirect.Engine,
	snapshot *registry.Snapshot,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *BundleReloader {
	return &BundleReloader{
		rulesFile:     rulesFile,
		snapshotFile:  snapshotFile,
		engine:        engine,
		snapshot:      snapshot,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start loads both bundles immediately, then refreshes them on the
// interval and whenever the manual trigger fires.
func (br *BundleReloader) Start(ctx context.Context) error {
	if err := br.Reload(); err != nil {
		return fmt.Errorf("initial bundle load failed: %w", err)
	}

	ticker := time.NewTicker(br.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := br.Reload(); err != nil {
					br.logger.Error("failed to reload bundles", logger.Error(err))
				}
			case <-br.manualTrigger:
				br.logger.Info("manual bundle reload triggered")
				if err := br.Reload(); err != nil {
					br.logger.Error("failed to reload bundles", logger.Error(err))
				}
			case <-br.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader.
func (br *BundleReloader) Stop() {
	close(br.stopCh)
}

// Reload refreshes whichever bundles are configured. The handler snapshot
// is required; dynamic rules are best effort so a broken rules file never
// takes substitution down with it.
func (br *BundleReloader) Reload() error {
	handlers, err := registry.LoadFile(br.snapshotFile)
	if err != nil {
		return fmt.Errorf("failed to load handler snapshot: %w", err)
	}
	br.snapshot.Update(handlers)
	br.logger.Info("handler snapshot loaded",
		logger.Int("handlers", len(handlers)))

	if br.rulesFile == "" {
		return nil
	}
	rules, err := libredirect.LoadDynamicRules(br.rulesFile)
	if err != nil {
		br.logger.Warn("failed to load dynamic rules, keeping previous table",
			logger.Error(err))
		return nil
	}
	br.engine.SetDynamicRules(rules)
	br.logger.Info("dynamic substitution rules loaded",
		logger.Int("rules", len(rules)))
	return nil
}
