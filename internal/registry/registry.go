// Package registry owns the set of known mods and their package store: the
// directory tree under the data dir that keeps every registered mod's
// payload files, keyed by the mod's engine key. The activation engine only
// reads from the store; the registry is the sole writer.
package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/quantmind-br/modctl/internal/core"
	"github.com/quantmind-br/modctl/internal/db"
	"github.com/quantmind-br/modctl/internal/fsops"
	"github.com/quantmind-br/modctl/internal/security"
	"github.com/quantmind-br/modctl/internal/transaction"
)

// Metadata describes a package being registered. ID may be empty for local
// packages never matched to a repository entry.
type Metadata struct {
	ID         string
	Name       string
	Version    string
	CategoryID int
}

// Registry is the mod registry for one game installation.
type Registry struct {
	mu       sync.Mutex
	fs       afero.Fs
	store    *db.DB
	storeDir string
	logger   zerolog.Logger
	mods     map[string]*core.Mod
}

// Open loads the persisted registry.
func Open(ctx context.Context, store *db.DB, fs afero.Fs, storeDir string, logger zerolog.Logger) (*Registry, error) {
	r := &Registry{
		fs:       fs,
		store:    store,
		storeDir: storeDir,
		logger:   logger,
		mods:     make(map[string]*core.Mod),
	}

	mods, err := store.ListMods(ctx)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	for _, m := range mods {
		r.mods[m.Key] = m
	}

	return r, nil
}

// SourcePath returns the absolute store path of a mod's payload source.
// Satisfies the activator's source locator.
func (r *Registry) SourcePath(modKey, source string) string {
	return filepath.Join(r.storeDir, modKey, filepath.FromSlash(source))
}

// Register enumerates the payload under stagingDir, validates it, copies it
// into the package store and persists the mod record. A failure at any step
// unwinds the store copy so no half-registered package is left behind.
func (r *Registry) Register(ctx context.Context, stagingDir string, meta Metadata) (*core.Mod, error) {
	if err := security.ValidateModName(meta.Name); err != nil {
		return nil, err
	}
	if err := security.ValidateVersion(meta.Version); err != nil {
		return nil, err
	}

	payload, err := r.enumeratePayload(stagingDir)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		r.logger.Warn().Str("staging", stagingDir).Msg("registering package with empty payload")
	}

	mod := &core.Mod{
		Key:              uuid.NewString(),
		ID:               meta.ID,
		Name:             meta.Name,
		Version:          meta.Version,
		CategoryID:       meta.CategoryID,
		CustomCategoryID: -1,
		Payload:          payload,
	}

	undo := transaction.NewStack(r.logger)
	defer undo.Unwind()

	modDir := filepath.Join(r.storeDir, mod.Key)
	if err := fsops.CopyTree(r.fs, stagingDir, modDir); err != nil {
		return nil, fmt.Errorf("copy package into store: %w", err)
	}
	undo.Push("store copy", func() error {
		return r.fs.RemoveAll(modDir)
	})

	if err := r.store.SaveMod(ctx, mod); err != nil {
		return nil, fmt.Errorf("persist mod record: %w", err)
	}
	undo.Commit()

	r.mu.Lock()
	r.mods[mod.Key] = mod
	r.mu.Unlock()

	r.logger.Info().
		Str("mod", mod.Name).
		Str("key", mod.Key).
		Int("files", len(payload)).
		Msg("mod registered")

	return mod, nil
}

// enumeratePayload walks stagingDir and builds the ordered payload listing:
// one (source, destination) pair per regular file, lexicographic order,
// destination mirroring the relative path.
func (r *Registry) enumeratePayload(stagingDir string) ([]core.PayloadEntry, error) {
	if !fsops.IsDir(r.fs, stagingDir) {
		return nil, fmt.Errorf("package location is not a directory: %s", stagingDir)
	}

	var payload []core.PayloadEntry
	err := afero.Walk(r.fs, stagingDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(stagingDir, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}
		rel = filepath.ToSlash(rel)
		if err := security.ValidateDestination(rel); err != nil {
			return fmt.Errorf("payload entry rejected: %w", err)
		}
		payload = append(payload, core.PayloadEntry{Source: rel, Destination: rel})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate payload: %w", err)
	}

	sort.Slice(payload, func(i, j int) bool {
		return payload[i].Destination < payload[j].Destination
	})
	return payload, nil
}

// Get retrieves a mod by key.
func (r *Registry) Get(key string) (*core.Mod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mod, ok := r.mods[key]
	if !ok {
		return nil, core.ErrNotFound
	}
	return mod, nil
}

// FindByName returns the mod with an exactly matching display name
// (case-insensitive).
func (r *Registry) FindByName(name string) (*core.Mod, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, mod := range r.mods {
		if strings.EqualFold(mod.Name, name) {
			return mod, true
		}
	}
	return nil, false
}

// Find resolves a user-supplied reference: exact key, then exact name
// (case-insensitive), then best fuzzy name match.
func (r *Registry) Find(ref string) (*core.Mod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if mod, ok := r.mods[ref]; ok {
		return mod, nil
	}

	var names []string
	byName := make(map[string]*core.Mod, len(r.mods))
	for _, mod := range r.mods {
		if strings.EqualFold(mod.Name, ref) {
			return mod, nil
		}
		names = append(names, mod.Name)
		byName[mod.Name] = mod
	}

	ranks := fuzzy.RankFindNormalizedFold(ref, names)
	if len(ranks) == 0 {
		return nil, core.ErrNotFound
	}
	sort.Sort(ranks)
	return byName[ranks[0].Target], nil
}

// List returns every registered mod, name order.
func (r *Registry) List() []*core.Mod {
	r.mu.Lock()
	defer r.mu.Unlock()

	mods := make([]*core.Mod, 0, len(r.mods))
	for _, mod := range r.mods {
		mods = append(mods, mod)
	}
	sort.Slice(mods, func(i, j int) bool {
		return strings.ToLower(mods[i].Name) < strings.ToLower(mods[j].Name)
	})
	return mods
}

// Update persists in-place changes to a mod's mutable fields (name,
// category ids, install date).
func (r *Registry) Update(ctx context.Context, mod *core.Mod) error {
	r.mu.Lock()
	_, ok := r.mods[mod.Key]
	r.mu.Unlock()
	if !ok {
		return core.ErrNotFound
	}

	if err := r.store.SaveMod(ctx, mod); err != nil {
		return fmt.Errorf("persist mod update: %w", err)
	}

	r.mu.Lock()
	r.mods[mod.Key] = mod
	r.mu.Unlock()
	return nil
}

// Unregister removes a mod's record and its package store directory. Called
// after a successful delete task; the engine guarantees the mod is inactive
// by then.
func (r *Registry) Unregister(ctx context.Context, key string) error {
	r.mu.Lock()
	_, ok := r.mods[key]
	r.mu.Unlock()
	if !ok {
		return core.ErrNotFound
	}

	if err := r.store.DeleteMod(ctx, key); err != nil {
		return fmt.Errorf("delete mod record: %w", err)
	}
	if err := r.fs.RemoveAll(filepath.Join(r.storeDir, key)); err != nil {
		return fmt.Errorf("remove package store dir: %w", err)
	}

	r.mu.Lock()
	delete(r.mods, key)
	r.mu.Unlock()

	r.logger.Info().Str("key", key).Msg("mod unregistered")
	return nil
}
