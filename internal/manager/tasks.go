package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/quantmind-br/modctl/internal/activator"
	"github.com/quantmind-br/modctl/internal/core"
	"github.com/quantmind-br/modctl/internal/task"
)

// Activate starts the activation of a mod as a background task. Activating
// an already-active mod is rejected here, synchronously, before any task
// exists. The task's value is the pass *activator.Report.
func (m *Manager) Activate(ref string, res core.ConflictResolver) (*task.Task, error) {
	mod, err := m.registry.Find(ref)
	if err != nil {
		return nil, err
	}
	if m.ledger.IsActive(mod.Key) {
		return nil, fmt.Errorf("%s: %w", mod.Name, core.ErrAlreadyActive)
	}

	t := m.newInstallTask(mod, res)
	t.Start(m.runCtx)
	return t, nil
}

// Deactivate starts the deactivation of a mod as a background task.
func (m *Manager) Deactivate(ref string) (*task.Task, error) {
	mod, err := m.registry.Find(ref)
	if err != nil {
		return nil, err
	}
	if !m.ledger.IsActive(mod.Key) {
		return nil, fmt.Errorf("%s: %w", mod.Name, core.ErrNotActive)
	}

	t := m.newUninstallTask(mod)
	t.Start(m.runCtx)
	return t, nil
}

// Reactivate refreshes an active mod's files without changing its layering
// position anywhere.
func (m *Manager) Reactivate(ref string, res core.ConflictResolver) (*task.Task, error) {
	mod, err := m.registry.Find(ref)
	if err != nil {
		return nil, err
	}
	if !m.ledger.IsActive(mod.Key) {
		return nil, fmt.Errorf("%s: %w", mod.Name, core.ErrNotActive)
	}

	t := task.New(fmt.Sprintf("reactivate %s", mod.Name), func(ctx context.Context, t *task.Task) (any, error) {
		report, err := m.activator.Reactivate(ctx, mod, res, taskProgress(t))
		if err != nil {
			return report, err
		}
		return report, nil
	})
	t.Start(m.runCtx)
	return t, nil
}

// Upgrade transfers oldRef's layered files to newRef and activates the
// rest of newRef's payload. No relatedness check is performed; the caller
// vouches that the upgrade makes sense.
func (m *Manager) Upgrade(oldRef, newRef string, res core.ConflictResolver) (*task.Task, error) {
	oldMod, err := m.registry.Find(oldRef)
	if err != nil {
		return nil, err
	}
	newMod, err := m.registry.Find(newRef)
	if err != nil {
		return nil, err
	}
	if oldMod.Key == newMod.Key {
		return nil, fmt.Errorf("cannot upgrade %s onto itself", oldMod.Name)
	}
	if m.ledger.IsActive(newMod.Key) {
		return nil, fmt.Errorf("%s: %w", newMod.Name, core.ErrAlreadyActive)
	}

	t := task.New(fmt.Sprintf("upgrade %s -> %s", oldMod.Name, newMod.Name), func(ctx context.Context, t *task.Task) (any, error) {
		report, err := m.activator.ForceUpgrade(ctx, oldMod, newMod, res, taskProgress(t))
		if err != nil {
			return report, err
		}
		m.clearInstallDate(ctx, oldMod)
		m.stampInstallDate(ctx, newMod)
		return report, nil
	})
	t.Start(m.runCtx)
	return t, nil
}

// Delete removes a mod from the managed store: deactivate first when the
// mod is active, then unregister. The two steps compose as a task set that
// fails fast, so the package is never removed while the ledger still
// claims its files. The set's value is the deleted *core.Mod.
func (m *Manager) Delete(ref string, confirm core.DeleteConfirmer) (*task.Set, error) {
	mod, err := m.registry.Find(ref)
	if err != nil {
		return nil, err
	}
	if confirm != nil && !confirm(mod) {
		return nil, fmt.Errorf("delete %s: %w", mod.Name, core.ErrCancelled)
	}

	var members []*task.Task
	if m.ledger.IsActive(mod.Key) {
		members = append(members, m.newUninstallTask(mod))
	}
	members = append(members, m.newDeleteTask(mod))

	set := task.NewSet(fmt.Sprintf("delete %s", mod.Name), members...)
	set.Start(m.runCtx)
	return set, nil
}

// newInstallTask wraps one Activate pass plus install-date stamping.
func (m *Manager) newInstallTask(mod *core.Mod, res core.ConflictResolver) *task.Task {
	return task.New(fmt.Sprintf("activate %s", mod.Name), func(ctx context.Context, t *task.Task) (any, error) {
		report, err := m.activator.Activate(ctx, mod, res, taskProgress(t))
		if err != nil {
			return report, err
		}
		m.stampInstallDate(ctx, mod)
		return report, nil
	})
}

// newUninstallTask wraps one Deactivate pass plus install-date clearing.
func (m *Manager) newUninstallTask(mod *core.Mod) *task.Task {
	return task.New(fmt.Sprintf("deactivate %s", mod.Name), func(ctx context.Context, t *task.Task) (any, error) {
		report, err := m.activator.Deactivate(ctx, mod, taskProgress(t))
		if err != nil {
			return report, err
		}
		m.clearInstallDate(ctx, mod)
		return report, nil
	})
}

// newDeleteTask removes the mod's package from the store and registry. The
// deleted mod is the task's return value so completion observers can drop
// their references to it.
func (m *Manager) newDeleteTask(mod *core.Mod) *task.Task {
	return task.New(fmt.Sprintf("remove %s", mod.Name), func(ctx context.Context, t *task.Task) (any, error) {
		if m.ledger.IsActive(mod.Key) {
			return nil, fmt.Errorf("refusing to remove %s: still active by ledger", mod.Name)
		}
		t.SetProgress(fmt.Sprintf("removing %s from store", mod.Name), -1)
		if err := m.registry.Unregister(ctx, mod.Key); err != nil {
			return nil, err
		}
		return mod, nil
	})
}

// stampInstallDate sets the mod's install-date marker after a successful
// activation. Persistence failure here is logged, not fatal: the ledger,
// not the marker, is the source of truth.
func (m *Manager) stampInstallDate(ctx context.Context, mod *core.Mod) {
	now := time.Now()
	updated := *mod
	updated.InstallDate = &now
	if err := m.registry.Update(ctx, &updated); err != nil {
		m.logger.Warn().Err(err).Str("mod", mod.Name).Msg("could not record install date")
	}
}

func (m *Manager) clearInstallDate(ctx context.Context, mod *core.Mod) {
	updated := *mod
	updated.InstallDate = nil
	if err := m.registry.Update(ctx, &updated); err != nil {
		m.logger.Warn().Err(err).Str("mod", mod.Name).Msg("could not clear install date")
	}
}

// taskProgress adapts a task handle to the activator's progress callback.
func taskProgress(t *task.Task) activator.ProgressFunc {
	return func(message string, ratio float64) {
		t.SetProgress(message, ratio)
	}
}
