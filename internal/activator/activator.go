// Package activator implements the mod activation state machine: applying
// a mod's payload files onto the game directory, layering over other mods
// through the install log, and reversing the layering exactly on
// deactivation. All disk access goes through afero; all ownership decisions
// go through the install log.
package activator

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/quantmind-br/modctl/internal/core"
	"github.com/quantmind-br/modctl/internal/fsops"
	"github.com/quantmind-br/modctl/internal/installog"
)

// ModSource resolves mod records and payload source files. Implemented by
// the registry.
type ModSource interface {
	// Get returns the mod record for an engine key.
	Get(key string) (*core.Mod, error)
	// SourcePath returns the absolute store path of a payload source.
	SourcePath(modKey, source string) string
}

// ProgressFunc receives per-file progress during a pass. May be nil.
type ProgressFunc func(message string, ratio float64)

// FileError is a non-fatal per-file failure within a pass.
type FileError struct {
	Destination string
	Err         error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Destination, e.Err)
}

// Report summarizes one activation/deactivation pass. A pass that was
// cancelled mid-way still reports the files it already applied; those stay
// installed and logged.
type Report struct {
	Installed []string
	Restored  []string
	Removed   []string
	Skipped   []string
	Failures  []FileError
	Cancelled bool
}

// Activator drives file layering for one game directory. A single mutex
// serializes whole passes: concurrent calls touching overlapping
// destinations run strictly one after the other, never interleaved at
// file granularity, so the owner a pass observes is the owner it layers
// over.
type Activator struct {
	mu      sync.Mutex
	fs      afero.Fs
	ledger  *installog.Log
	mods    ModSource
	gameDir string
	logger  zerolog.Logger
}

// New creates an Activator over fs, writing under gameDir.
func New(fs afero.Fs, ledger *installog.Log, mods ModSource, gameDir string, logger zerolog.Logger) *Activator {
	return &Activator{
		fs:      fs,
		ledger:  ledger,
		mods:    mods,
		gameDir: gameDir,
		logger:  logger,
	}
}

// passState carries the effective overwrite default a Yes-to-All/No-to-All
// answer establishes for the remainder of one pass.
type passState struct {
	defaultOverwrite *core.OverwriteDecision
}

// Activate applies mod's payload in order, resolving collisions through
// res. On completion the mod is pinned active with now as its install-date
// marker. A conflict-dialog Cancel stops the pass: files already written
// stay installed and logged, the mod is not marked active, and
// core.ErrCancelled is returned alongside the partial report.
func (a *Activator) Activate(ctx context.Context, mod *core.Mod, res core.ConflictResolver, progress ProgressFunc) (*Report, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ledger.IsActive(mod.Key) {
		return nil, core.ErrAlreadyActive
	}

	report := &Report{}
	state := &passState{}

	for i, entry := range mod.Payload {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		reportProgress(progress, entry.Destination, i, len(mod.Payload))

		if err := a.applyEntry(ctx, mod, entry, res, state, report); err != nil {
			return report, err
		}
		if report.Cancelled {
			return report, core.ErrCancelled
		}
	}

	if err := a.ledger.Pin(ctx, mod.Key, time.Now()); err != nil {
		return report, fmt.Errorf("mark mod active: %w", err)
	}

	a.logger.Info().
		Str("mod", mod.Name).
		Int("installed", len(report.Installed)).
		Int("skipped", len(report.Skipped)).
		Int("failed", len(report.Failures)).
		Msg("mod activated")

	return report, nil
}

// Reactivate re-applies mod's payload without disturbing layering order:
// paths the mod already has a ledger entry for are refreshed in place (the
// file is rewritten only where the mod is the current owner); paths the mod
// has no entry for go through the normal activation logic.
func (a *Activator) Reactivate(ctx context.Context, mod *core.Mod, res core.ConflictResolver, progress ProgressFunc) (*Report, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.ledger.IsActive(mod.Key) {
		return nil, core.ErrNotActive
	}

	report := &Report{}
	state := &passState{}

	for i, entry := range mod.Payload {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		reportProgress(progress, entry.Destination, i, len(mod.Payload))

		refreshed, err := a.ledger.RefreshEntry(ctx, entry.Destination, mod.Key, entry.Source)
		if err != nil {
			return report, fmt.Errorf("refresh ledger entry: %w", err)
		}
		if refreshed {
			owner, _ := a.ledger.CurrentOwner(entry.Destination)
			if owner == mod.Key {
				if err := a.writeEntry(mod, entry); err != nil {
					report.Failures = append(report.Failures, FileError{Destination: entry.Destination, Err: err})
					continue
				}
			}
			report.Installed = append(report.Installed, entry.Destination)
			continue
		}

		if err := a.applyEntry(ctx, mod, entry, res, state, report); err != nil {
			return report, err
		}
		if report.Cancelled {
			return report, core.ErrCancelled
		}
	}

	return report, nil
}

// Deactivate removes mod's ledger entries and undoes its disk presence:
// where the mod is the current owner the previous layer's content is
// restored (or the file deleted when no layer remains); buried entries are
// dropped without touching disk. The disk operation runs before the ledger
// entry is released, so a failed restore leaves the mod's claim on the
// path intact and the whole pass fails. Only a fully clean pass removes
// the mod from the active set.
func (a *Activator) Deactivate(ctx context.Context, mod *core.Mod, progress ProgressFunc) (*Report, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.ledger.IsActive(mod.Key) {
		return nil, core.ErrNotActive
	}

	report := &Report{}
	claimed := a.ledger.PathsContaining(mod.Key)

	for i, dest := range claimed {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		reportProgress(progress, dest, i, len(claimed))

		owner, _ := a.ledger.CurrentOwner(dest)
		if owner != mod.Key {
			// Buried entry: another mod's content is on disk, nothing to
			// undo physically.
			if _, _, err := a.ledger.RecordUninstall(ctx, dest, mod.Key); err != nil {
				return report, fmt.Errorf("record uninstall: %w", err)
			}
			continue
		}

		stack := a.ledger.Stack(dest)
		abs := a.destPath(dest)
		if len(stack) > 1 {
			next := stack[len(stack)-2]
			src := a.mods.SourcePath(next.ModKey, next.Source)
			if err := fsops.CopyFile(a.fs, src, abs); err != nil {
				a.logger.Warn().Err(err).Str("path", dest).Str("owner", next.ModKey).
					Msg("could not restore previous layer")
				report.Failures = append(report.Failures, FileError{Destination: dest, Err: err})
				continue
			}
			report.Restored = append(report.Restored, dest)
		} else {
			if err := fsops.RemoveAndPrune(a.fs, abs, a.gameDir); err != nil {
				a.logger.Warn().Err(err).Str("path", dest).Msg("could not remove deactivated file")
				report.Failures = append(report.Failures, FileError{Destination: dest, Err: err})
				continue
			}
			report.Removed = append(report.Removed, dest)
		}

		if _, _, err := a.ledger.RecordUninstall(ctx, dest, mod.Key); err != nil {
			return report, fmt.Errorf("record uninstall: %w", err)
		}
	}

	if len(report.Failures) > 0 {
		// The mod still owns the failed paths and stays active.
		return report, fmt.Errorf("deactivate %s: %d file(s) could not be undone", mod.Name, len(report.Failures))
	}

	if err := a.ledger.Unpin(ctx, mod.Key); err != nil {
		return report, fmt.Errorf("mark mod inactive: %w", err)
	}

	a.logger.Info().
		Str("mod", mod.Name).
		Int("restored", len(report.Restored)).
		Int("removed", len(report.Removed)).
		Msg("mod deactivated")

	return report, nil
}

// ForceUpgrade transfers every path oldMod claims to newMod, keeping stack
// positions: where newMod carries a source for the path its content is
// written, otherwise only the ledger entry changes hands. Payload paths of
// newMod that oldMod never claimed go through the normal activation logic.
// No relatedness check is performed; the caller vouches for the upgrade.
func (a *Activator) ForceUpgrade(ctx context.Context, oldMod, newMod *core.Mod, res core.ConflictResolver, progress ProgressFunc) (*Report, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	report := &Report{}
	state := &passState{}

	claimed := a.ledger.PathsContaining(oldMod.Key)
	transferred := make(map[string]struct{}, len(claimed))

	for i, dest := range claimed {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		reportProgress(progress, dest, i, len(claimed))

		owner, _ := a.ledger.CurrentOwner(dest)
		wasTop := owner == oldMod.Key

		src, hasSrc := newMod.SourceFor(dest)
		stack := a.ledger.Stack(dest)
		if !hasSrc {
			// Ownership transfers but content stays whatever oldMod had
			// recorded there.
			for _, e := range stack {
				if e.ModKey == oldMod.Key {
					src = e.Source
					break
				}
			}
		}

		if stackContains(stack, newMod.Key) {
			// newMod already has its own layer here; drop oldMod's instead
			// of creating a duplicate entry.
			if _, _, err := a.ledger.RecordUninstall(ctx, dest, oldMod.Key); err != nil {
				return report, fmt.Errorf("record uninstall: %w", err)
			}
		} else {
			if _, err := a.ledger.ReplaceOwner(ctx, dest, oldMod.Key, newMod.Key, src); err != nil {
				return report, fmt.Errorf("transfer ledger entry: %w", err)
			}
		}
		transferred[dest] = struct{}{}

		if wasTop && hasSrc {
			entry := core.PayloadEntry{Source: src, Destination: dest}
			if err := a.writeEntry(newMod, entry); err != nil {
				report.Failures = append(report.Failures, FileError{Destination: dest, Err: err})
				continue
			}
			report.Installed = append(report.Installed, dest)
		}
	}

	for _, entry := range newMod.Payload {
		if _, done := transferred[entry.Destination]; done {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := a.applyEntry(ctx, newMod, entry, res, state, report); err != nil {
			return report, err
		}
		if report.Cancelled {
			return report, core.ErrCancelled
		}
	}

	if err := a.ledger.Unpin(ctx, oldMod.Key); err != nil {
		return report, fmt.Errorf("retire old mod: %w", err)
	}
	if err := a.ledger.Pin(ctx, newMod.Key, time.Now()); err != nil {
		return report, fmt.Errorf("mark upgrade active: %w", err)
	}

	a.logger.Info().
		Str("from", oldMod.Name).
		Str("to", newMod.Name).
		Int("transferred", len(transferred)).
		Msg("force upgrade applied")

	return report, nil
}

// applyEntry runs the per-file install logic for one payload entry: claim
// unowned paths, refresh self-owned ones, and resolve collisions with other
// owners through the upgrade/overwrite protocol. A returned error is fatal
// to the pass; per-file problems land in report.Failures.
func (a *Activator) applyEntry(ctx context.Context, mod *core.Mod, entry core.PayloadEntry, res core.ConflictResolver, state *passState, report *Report) error {
	ownerKey, owned := a.ledger.CurrentOwner(entry.Destination)

	if !owned || ownerKey == mod.Key {
		return a.installEntry(ctx, mod, entry, report)
	}

	ownerMod, err := a.mods.Get(ownerKey)
	if err != nil {
		// Ledger references a mod the registry no longer knows. Bad entry,
		// not a fatal fault: resolve the conflict with an anonymous owner.
		a.logger.Warn().Str("owner", ownerKey).Str("path", entry.Destination).
			Msg("ledger owner missing from registry")
		ownerMod = nil
	}

	decision := core.OverwriteNo
	switch {
	case state.defaultOverwrite != nil:
		decision = *state.defaultOverwrite
	default:
		if ownerMod != nil && mod.IsUpgradeOf(ownerMod) {
			switch res.ConfirmUpgrade(ownerMod, mod, entry.Destination) {
			case core.UpgradeOverwrite:
				return a.upgradeEntry(ctx, mod, ownerKey, entry, report)
			case core.UpgradeCancel:
				report.Skipped = append(report.Skipped, entry.Destination)
				return nil
			case core.UpgradeIgnore:
				// Treated as unrelated mods; fall through to the overwrite
				// confirmation.
			}
		}

		switch res.ConfirmOverwrite(ownerMod, mod, entry.Destination) {
		case core.OverwriteYes:
			decision = core.OverwriteYes
		case core.OverwriteNo:
			decision = core.OverwriteNo
		case core.OverwriteYesToAll:
			yes := core.OverwriteYes
			state.defaultOverwrite = &yes
			decision = core.OverwriteYes
		case core.OverwriteNoToAll:
			no := core.OverwriteNo
			state.defaultOverwrite = &no
			decision = core.OverwriteNo
		case core.OverwriteCancel:
			report.Cancelled = true
			return nil
		}
	}

	if decision == core.OverwriteYes {
		return a.installEntry(ctx, mod, entry, report)
	}

	report.Skipped = append(report.Skipped, entry.Destination)
	return nil
}

// installEntry writes the file and pushes the mod on top of the path's
// stack. Write failures are per-file; a ledger write failure is fatal and
// the destination is put back the way the ledger still records it.
func (a *Activator) installEntry(ctx context.Context, mod *core.Mod, entry core.PayloadEntry, report *Report) error {
	prev := a.ledger.Stack(entry.Destination)

	if err := a.writeEntry(mod, entry); err != nil {
		report.Failures = append(report.Failures, FileError{Destination: entry.Destination, Err: err})
		return nil
	}
	if err := a.ledger.RecordInstall(ctx, entry.Destination, mod.Key, entry.Source); err != nil {
		a.undoWrite(entry.Destination, prev)
		return fmt.Errorf("record install: %w", err)
	}
	report.Installed = append(report.Installed, entry.Destination)
	return nil
}

// undoWrite reconciles a destination with the ledger after a failed ledger
// write: the recorded owner's content is restored from the store, or the
// file is removed when the ledger records no owner. When the restore
// itself fails the new bytes stay on disk so the ledger never names a file
// that does not exist; the content mismatch is logged.
func (a *Activator) undoWrite(dest string, prev []installog.Entry) {
	abs := a.destPath(dest)
	if len(prev) == 0 {
		a.fs.Remove(abs)
		return
	}
	top := prev[len(prev)-1]
	if err := fsops.CopyFile(a.fs, a.mods.SourcePath(top.ModKey, top.Source), abs); err != nil {
		a.logger.Warn().Err(err).Str("path", dest).Str("owner", top.ModKey).
			Msg("could not restore recorded owner after ledger failure")
	}
}

// upgradeEntry replaces the current owner's ledger entry in place with the
// incoming mod, keeping the stack position, and writes the new content.
func (a *Activator) upgradeEntry(ctx context.Context, mod *core.Mod, ownerKey string, entry core.PayloadEntry, report *Report) error {
	prev := a.ledger.Stack(entry.Destination)

	if err := a.writeEntry(mod, entry); err != nil {
		report.Failures = append(report.Failures, FileError{Destination: entry.Destination, Err: err})
		return nil
	}
	replaced, err := a.ledger.ReplaceOwner(ctx, entry.Destination, ownerKey, mod.Key, entry.Source)
	if err != nil {
		a.undoWrite(entry.Destination, prev)
		return fmt.Errorf("replace owner: %w", err)
	}
	if !replaced {
		// Owner vanished between the decision and the write; fall back to a
		// plain push.
		if err := a.ledger.RecordInstall(ctx, entry.Destination, mod.Key, entry.Source); err != nil {
			a.undoWrite(entry.Destination, prev)
			return fmt.Errorf("record install: %w", err)
		}
	}
	report.Installed = append(report.Installed, entry.Destination)
	return nil
}

func (a *Activator) writeEntry(mod *core.Mod, entry core.PayloadEntry) error {
	src := a.mods.SourcePath(mod.Key, entry.Source)
	if !fsops.Exists(a.fs, src) {
		return fmt.Errorf("payload source missing: %s", entry.Source)
	}
	return fsops.CopyFile(a.fs, src, a.destPath(entry.Destination))
}

func (a *Activator) destPath(destination string) string {
	return filepath.Join(a.gameDir, filepath.FromSlash(destination))
}

func reportProgress(progress ProgressFunc, dest string, i, total int) {
	if progress == nil {
		return
	}
	ratio := -1.0
	if total > 0 {
		ratio = float64(i) / float64(total)
	}
	progress(dest, ratio)
}

func stackContains(stack []installog.Entry, modKey string) bool {
	for _, e := range stack {
		if e.ModKey == modKey {
			return true
		}
	}
	return false
}
