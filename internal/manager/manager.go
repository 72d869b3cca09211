// Package manager composes the activation engine: ledger, activator,
// registry and add-queue, wired once per game installation. It is an
// explicitly constructed context with a single teardown path, never a
// process-wide singleton, so tests can run several engines side by side.
package manager

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/quantmind-br/modctl/internal/activator"
	"github.com/quantmind-br/modctl/internal/config"
	"github.com/quantmind-br/modctl/internal/core"
	"github.com/quantmind-br/modctl/internal/db"
	"github.com/quantmind-br/modctl/internal/fsops"
	"github.com/quantmind-br/modctl/internal/installog"
	"github.com/quantmind-br/modctl/internal/logging"
	"github.com/quantmind-br/modctl/internal/paths"
	"github.com/quantmind-br/modctl/internal/queue"
	"github.com/quantmind-br/modctl/internal/registry"
	"github.com/quantmind-br/modctl/internal/task"
)

// Options configures a Manager. The filesystem is abstracted so tests run
// against an in-memory tree; the ledger database always lives on the real
// filesystem at DBPath.
type Options struct {
	Fs       afero.Fs
	GameDir  string
	StoreDir string
	DBPath   string
}

// Manager is the engine facade for one game installation.
type Manager struct {
	fs        afero.Fs
	gameDir   string
	store     *db.DB
	ledger    *installog.Log
	registry  *registry.Registry
	activator *activator.Activator
	queue     *queue.Queue
	logger    zerolog.Logger

	runCtx context.Context
	cancel context.CancelFunc
}

// New builds a Manager from the loaded configuration.
func New(ctx context.Context, cfg *config.Config, log *zerolog.Logger) (*Manager, error) {
	if cfg.Game.Dir == "" {
		return nil, fmt.Errorf("no game directory configured (set game.dir or MODCTL_GAME_DIR)")
	}
	resolver := paths.NewResolver(cfg)
	return NewWithOptions(ctx, Options{
		Fs:       afero.NewOsFs(),
		GameDir:  resolver.GameDir(),
		StoreDir: resolver.StoreDir(),
		DBPath:   resolver.DBFile(),
	}, log)
}

// NewWithOptions builds a Manager from explicit options.
func NewWithOptions(ctx context.Context, opts Options, log *zerolog.Logger) (*Manager, error) {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	if err := fsops.EnsureDir(fs, opts.StoreDir, 0755); err != nil {
		return nil, fmt.Errorf("prepare store dir: %w", err)
	}
	if err := fsops.EnsureDir(fs, opts.GameDir, 0755); err != nil {
		return nil, fmt.Errorf("prepare game dir: %w", err)
	}

	store, err := db.New(ctx, opts.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}

	ledger, err := installog.Open(ctx, store, logging.Component(log, "installog"))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open install log: %w", err)
	}

	reg, err := registry.Open(ctx, store, fs, opts.StoreDir, logging.Component(log, "registry"))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open registry: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		fs:       fs,
		gameDir:  opts.GameDir,
		store:    store,
		ledger:   ledger,
		registry: reg,
		logger:   logging.Component(log, "manager"),
		runCtx:   runCtx,
		cancel:   cancel,
	}
	m.activator = activator.New(fs, ledger, reg, opts.GameDir, logging.Component(log, "activator"))
	m.queue = queue.New(store, m.registerPackage, logging.Component(log, "queue"))

	if err := m.queue.LoadPending(ctx); err != nil {
		cancel()
		store.Close()
		return nil, err
	}
	m.queue.Start(runCtx)

	return m, nil
}

// Close is the single teardown path: it stops the add-queue worker, cancels
// outstanding background work and closes the database.
func (m *Manager) Close() error {
	m.queue.Close()
	m.cancel()
	return m.store.Close()
}

// Find resolves a mod reference (key, exact name, fuzzy name).
func (m *Manager) Find(ref string) (*core.Mod, error) {
	return m.registry.Find(ref)
}

// List returns every registered mod.
func (m *Manager) List() []*core.Mod {
	return m.registry.List()
}

// IsActive reports whether a mod is active by ledger.
func (m *Manager) IsActive(mod *core.Mod) bool {
	return m.ledger.IsActive(mod.Key)
}

// ActiveMods returns the keys of the active set.
func (m *Manager) ActiveMods() []string {
	return m.ledger.ActiveMods()
}

// OwnedPaths returns the destinations a mod currently owns.
func (m *Manager) OwnedPaths(mod *core.Mod) []string {
	return m.ledger.OwnedPaths(mod.Key)
}

// Stack returns the precedence stack recorded for a destination path.
func (m *Manager) Stack(destination string) []installog.Entry {
	return m.ledger.Stack(destination)
}

// SetCategory overrides a mod's custom category id.
func (m *Manager) SetCategory(ctx context.Context, ref string, categoryID int) error {
	mod, err := m.registry.Find(ref)
	if err != nil {
		return err
	}
	updated := *mod
	updated.CustomCategoryID = categoryID
	return m.registry.Update(ctx, &updated)
}

// Mismatch is one disagreement between the ledger and the file system,
// normally the trace of an external modification of the game directory.
type Mismatch struct {
	Destination string
	ModKey      string
	Problem     string
}

// Verify cross-checks every ledger-owned path against the disk and the
// package store. The engine assumes it is the sole writer to the game
// directory; this is the detection pass for when that assumption broke.
func (m *Manager) Verify(ctx context.Context) ([]Mismatch, error) {
	var mismatches []Mismatch
	for _, mod := range m.registry.List() {
		for _, dest := range m.ledger.OwnedPaths(mod.Key) {
			if err := ctx.Err(); err != nil {
				return mismatches, err
			}
			stack := m.ledger.Stack(dest)
			top := stack[len(stack)-1]

			abs := filepath.Join(m.gameDir, filepath.FromSlash(dest))
			if !fsops.Exists(m.fs, abs) {
				mismatches = append(mismatches, Mismatch{
					Destination: dest, ModKey: top.ModKey,
					Problem: "ledger-owned file missing from game directory",
				})
			}
			if !fsops.Exists(m.fs, m.registry.SourcePath(top.ModKey, top.Source)) {
				mismatches = append(mismatches, Mismatch{
					Destination: dest, ModKey: top.ModKey,
					Problem: "payload source missing from package store",
				})
			}
		}
	}
	return mismatches, nil
}

// AddMod enqueues a package directory for registration. Duplicate requests
// for the same location share one task.
func (m *Manager) AddMod(ctx context.Context, location string, resolve core.DestinationResolver) (*task.Task, error) {
	return m.queue.Add(ctx, location, resolve)
}

// registerPackage is the queue handler: it derives the mod's display name
// from the package directory, resolves name collisions through the
// caller's destination resolver, and registers the package.
func (m *Manager) registerPackage(ctx context.Context, location string, resolve core.DestinationResolver) (*core.Mod, error) {
	name := filepath.Base(location)

	if _, taken := m.registry.FindByName(name); taken {
		if resolve == nil {
			return nil, fmt.Errorf("mod %q is already registered", name)
		}
		proceed, ok := resolve(location)
		if !ok {
			return nil, fmt.Errorf("add declined for %q: %w", name, core.ErrCancelled)
		}
		name = filepath.Base(proceed)
	}

	return m.registry.Register(ctx, location, registry.Metadata{Name: name})
}
