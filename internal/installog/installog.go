// Package installog keeps the file-ownership ledger: for every destination
// path under the game directory, an ordered stack of (mod, source) entries
// recording which mods have layered content there. The top of a stack is
// the mod whose bytes are physically on disk. The ledger is the single
// source of truth for what activation has done, so every mutation is
// persisted before the call returns.
package installog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantmind-br/modctl/internal/db"
)

// Entry is one layer of a destination path's precedence stack.
type Entry struct {
	ModKey string
	Source string
}

// Log is the install log for one game installation. All methods are safe
// for concurrent use; a single mutex serializes every read and mutation.
// Ordering across whole activation passes is the activator's job.
type Log struct {
	mu     sync.Mutex
	store  *db.DB
	stacks map[string][]Entry    // destination -> oldest-first
	owners map[string]int        // mod key -> number of paths it tops
	pinned map[string]time.Time  // explicitly-active mods and their install date
	logger zerolog.Logger
}

// Open loads the persisted ledger and active set from store.
func Open(ctx context.Context, store *db.DB, logger zerolog.Logger) (*Log, error) {
	l := &Log{
		store:  store,
		stacks: make(map[string][]Entry),
		owners: make(map[string]int),
		pinned: make(map[string]time.Time),
		logger: logger,
	}

	ledger, err := store.LoadLedger(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	for dest, rows := range ledger {
		stack := make([]Entry, len(rows))
		for i, r := range rows {
			stack[i] = Entry{ModKey: r.ModKey, Source: r.Source}
		}
		l.stacks[dest] = stack
		l.owners[stack[len(stack)-1].ModKey]++
	}

	active, err := store.LoadActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active mods: %w", err)
	}
	for _, a := range active {
		l.pinned[a.ModKey] = a.ActivatedAt
	}

	return l, nil
}

// RecordInstall pushes modKey on top of destination's stack. If the mod
// already has an entry anywhere in the stack it is moved to the top rather
// than duplicated.
func (l *Log) RecordInstall(ctx context.Context, destination, modKey, source string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	stack := l.removeEntryLocked(destination, modKey)
	stack = append(stack, Entry{ModKey: modKey, Source: source})
	return l.commitStackLocked(ctx, destination, stack)
}

// RecordUninstall removes modKey's entry from destination's stack wherever
// it occurs. It returns the entry now on top, if any. Recording an
// uninstall for a mod with no entry at the path is not an error; the
// ledger tolerates stale claims and the caller logs them.
func (l *Log) RecordUninstall(ctx context.Context, destination, modKey string) (Entry, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	stack := l.removeEntryLocked(destination, modKey)
	if err := l.commitStackLocked(ctx, destination, stack); err != nil {
		return Entry{}, false, err
	}
	if len(stack) == 0 {
		return Entry{}, false, nil
	}
	return stack[len(stack)-1], true, nil
}

// RefreshEntry updates the source recorded for modKey at destination
// without changing its position in the stack. Reports whether an entry was
// present.
func (l *Log) RefreshEntry(ctx context.Context, destination, modKey, source string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	stack, ok := l.stacks[destination]
	if !ok {
		return false, nil
	}
	for i := range stack {
		if stack[i].ModKey == modKey {
			updated := make([]Entry, len(stack))
			copy(updated, stack)
			updated[i].Source = source
			return true, l.commitStackLocked(ctx, destination, updated)
		}
	}
	return false, nil
}

// ReplaceOwner rewrites oldKey's entry at destination to newKey, keeping
// its stack position. Used by force-upgrade. Reports whether an entry was
// replaced.
func (l *Log) ReplaceOwner(ctx context.Context, destination, oldKey, newKey, source string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	stack, ok := l.stacks[destination]
	if !ok {
		return false, nil
	}
	for i := range stack {
		if stack[i].ModKey == oldKey {
			updated := make([]Entry, len(stack))
			copy(updated, stack)
			updated[i] = Entry{ModKey: newKey, Source: source}
			return true, l.commitStackLocked(ctx, destination, updated)
		}
	}
	return false, nil
}

// CurrentOwner returns the mod on top of destination's stack.
func (l *Log) CurrentOwner(destination string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	stack := l.stacks[destination]
	if len(stack) == 0 {
		return "", false
	}
	return stack[len(stack)-1].ModKey, true
}

// Stack returns a copy of destination's precedence stack, oldest first.
func (l *Log) Stack(destination string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	stack := l.stacks[destination]
	out := make([]Entry, len(stack))
	copy(out, stack)
	return out
}

// IsActive reports whether modKey is active: explicitly pinned, or the
// current owner of at least one path.
func (l *Log) IsActive(modKey string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isActiveLocked(modKey)
}

func (l *Log) isActiveLocked(modKey string) bool {
	if _, ok := l.pinned[modKey]; ok {
		return true
	}
	return l.owners[modKey] > 0
}

// Pin marks modKey explicitly active as of at, keeping it in the active set
// even while it owns zero files. The pin is durable.
func (l *Log) Pin(ctx context.Context, modKey string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.UpsertActive(ctx, db.ActiveMod{ModKey: modKey, Pinned: true, ActivatedAt: at}); err != nil {
		return fmt.Errorf("pin active: %w", err)
	}
	l.pinned[modKey] = at
	return nil
}

// Unpin removes modKey's explicit-active mark. The mod stays in the derived
// active set while it still owns paths.
func (l *Log) Unpin(ctx context.Context, modKey string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.DeleteActive(ctx, modKey); err != nil {
		return fmt.Errorf("unpin active: %w", err)
	}
	delete(l.pinned, modKey)
	return nil
}

// PinnedAt returns the install-date marker recorded when modKey was pinned.
func (l *Log) PinnedAt(modKey string) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	at, ok := l.pinned[modKey]
	return at, ok
}

// OwnedPaths returns the destinations modKey currently tops, sorted.
func (l *Log) OwnedPaths(modKey string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var paths []string
	for dest, stack := range l.stacks {
		if len(stack) > 0 && stack[len(stack)-1].ModKey == modKey {
			paths = append(paths, dest)
		}
	}
	sort.Strings(paths)
	return paths
}

// PathsContaining returns every destination whose stack references modKey
// at any position, sorted.
func (l *Log) PathsContaining(modKey string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var paths []string
	for dest, stack := range l.stacks {
		for _, e := range stack {
			if e.ModKey == modKey {
				paths = append(paths, dest)
				break
			}
		}
	}
	sort.Strings(paths)
	return paths
}

// ActiveMods returns the active set: pinned mods plus current owners,
// sorted and de-duplicated.
func (l *Log) ActiveMods() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	set := make(map[string]struct{}, len(l.pinned)+len(l.owners))
	for key := range l.pinned {
		set[key] = struct{}{}
	}
	for key, n := range l.owners {
		if n > 0 {
			set[key] = struct{}{}
		}
	}

	mods := make([]string, 0, len(set))
	for key := range set {
		mods = append(mods, key)
	}
	sort.Strings(mods)
	return mods
}

// removeEntryLocked drops modKey from destination's stack and returns the
// new stack without persisting it.
func (l *Log) removeEntryLocked(destination, modKey string) []Entry {
	stack := l.stacks[destination]
	out := stack[:0:0]
	for _, e := range stack {
		if e.ModKey != modKey {
			out = append(out, e)
		}
	}
	return out
}

// commitStackLocked persists destination's stack, then swaps it into memory
// and recounts ownership. Memory is only updated after the write succeeds,
// so the ledger never claims files that were not durably recorded.
func (l *Log) commitStackLocked(ctx context.Context, destination string, stack []Entry) error {
	rows := make([]db.LedgerEntry, len(stack))
	for i, e := range stack {
		rows[i] = db.LedgerEntry{ModKey: e.ModKey, Source: e.Source}
	}
	if err := l.store.ReplacePathEntries(ctx, destination, rows); err != nil {
		return fmt.Errorf("persist ledger path %s: %w", destination, err)
	}

	old := l.stacks[destination]
	if len(old) > 0 {
		l.owners[old[len(old)-1].ModKey]--
	}
	if len(stack) == 0 {
		delete(l.stacks, destination)
	} else {
		l.stacks[destination] = stack
		l.owners[stack[len(stack)-1].ModKey]++
	}
	return nil
}
