package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/linksift/linksift/internal/libredirect"
	"github.com/linksift/linksift/internal/logger"
	"github.com/linksift/linksift/internal/registry"
)

const testSnapshot = `
handlers:
  - package: org.example.browser
    label: Example Browser
    component: .Main
    browser: true
    schemes: [http, https]
  - package: org.example.app
    label: Example App
    component: .Main
    schemes: [https]
    hosts: [app.example]
`

const testRules = `
rules:
  - service: tracked
    frontend: frontend
    instance: pinned.example
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func newReloaderFixture(t *testing.T, rulesFile, snapshotFile string) (*BundleReloader, *registry.Snapshot, *libredirect.Engine) {
	t.Helper()
	directory, err := libredirect.NewDirectory(
		[]libredirect.Service{
			{Key: "tracked", Hosts: []string{"tracked.example"}, DefaultFrontend: "frontend"},
		},
		[]libredirect.Frontend{
			{Key: "frontend", Service: "tracked", Instances: []string{"frontend.example"}},
		},
	)
	if err != nil {
		t.Fatalf("failed to build directory: %v", err)
	}
	engine := libredirect.NewEngine(directory, libredirect.Preferences{Enabled: []string{"tracked"}})
	snapshot := registry.NewSnapshot()
	reloader := NewBundleReloader(rulesFile, snapshotFile, engine, snapshot, logger.Nop(), time.Hour, make(chan struct{}, 1))
	return reloader, snapshot, engine
}

func TestReloadLoadsBothBundles(t *testing.T) {
	dir := t.TempDir()
	snapshotFile := writeFile(t, dir, "handlers.yaml", testSnapshot)
	rulesFile := writeFile(t, dir, "rules.yaml", testRules)

	reloader, snapshot, engine := newReloaderFixture(t, rulesFile, snapshotFile)

	if err := reloader.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got := snapshot.Count(); got != 2 {
		t.Errorf("snapshot.Count() = %d, want 2", got)
	}
	if got := engine.DynamicRuleCount(); got != 1 {
		t.Errorf("engine.DynamicRuleCount() = %d, want 1", got)
	}
	if snapshot.LastReload().IsZero() {
		t.Error("LastReload() should be set after a reload")
	}
}

func TestReloadFailsWithoutSnapshotFile(t *testing.T) {
	reloader, snapshot, _ := newReloaderFixture(t, "", filepath.Join(t.TempDir(), "missing.yaml"))

	if err := reloader.Reload(); err == nil {
		t.Fatal("Reload() should fail when the snapshot file is missing")
	}
	if got := snapshot.Count(); got != 0 {
		t.Errorf("snapshot.Count() = %d, want 0 after failed reload", got)
	}
}

func TestReloadKeepsRulesOnBrokenRulesFile(t *testing.T) {
	dir := t.TempDir()
	snapshotFile := writeFile(t, dir, "handlers.yaml", testSnapshot)
	rulesFile := writeFile(t, dir, "rules.yaml", testRules)

	reloader, _, engine := newReloaderFixture(t, rulesFile, snapshotFile)
	if err := reloader.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	// Corrupt the rules file; the next reload must keep the previous table.
	writeFile(t, dir, "rules.yaml", "rules: [broken")
	if err := reloader.Reload(); err != nil {
		t.Fatalf("Reload() error = %v, broken rules should not fail the reload", err)
	}
	if got := engine.DynamicRuleCount(); got != 1 {
		t.Errorf("engine.DynamicRuleCount() = %d, want previous table kept (1)", got)
	}
}

func TestManualTriggerReloads(t *testing.T) {
	dir := t.TempDir()
	snapshotFile := writeFile(t, dir, "handlers.yaml", testSnapshot)

	trigger := make(chan struct{}, 1)
	directory, err := libredirect.NewDirectory(nil, nil)
	if err != nil {
		t.Fatalf("failed to build directory: %v", err)
	}
	engine := libredirect.NewEngine(directory, libredirect.Preferences{})
	snapshot := registry.NewSnapshot()
	reloader := NewBundleReloader("", snapshotFile, engine, snapshot, logger.Nop(), time.Hour, trigger)

	if err := reloader.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer reloader.Stop()

	first := snapshot.LastReload()

	trigger <- struct{}{}
	deadline := time.Now().Add(2 * time.Second)
	for snapshot.LastReload().Equal(first) {
		if time.Now().After(deadline) {
			t.Fatal("manual trigger did not cause a reload")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
