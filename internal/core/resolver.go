package core

// OverwriteDecision is the answer to "another mod already owns this file".
type OverwriteDecision int

const (
	// OverwriteYes installs this file, pushing the new mod on top of the
	// current owner.
	OverwriteYes OverwriteDecision = iota
	// OverwriteNo skips this file, leaving the current owner untouched.
	OverwriteNo
	// OverwriteYesToAll answers Yes for this and every remaining conflict
	// in the pass.
	OverwriteYesToAll
	// OverwriteNoToAll answers No for this and every remaining conflict in
	// the pass.
	OverwriteNoToAll
	// OverwriteCancel aborts the whole activation pass. Files already
	// written stay installed and logged.
	OverwriteCancel
)

// UpgradeDecision is the answer to "the incoming mod looks like an upgrade
// of the file's current owner".
type UpgradeDecision int

const (
	// UpgradeOverwrite replaces the old owner's ledger entry in place
	// instead of stacking on top of it.
	UpgradeOverwrite UpgradeDecision = iota
	// UpgradeIgnore treats the mods as unrelated; the normal overwrite
	// confirmation runs next.
	UpgradeIgnore
	// UpgradeCancel skips this file.
	UpgradeCancel
)

// ConflictResolver supplies the per-file decisions the activator needs
// mid-pass. Implementations may block (prompting a user); the engine calls
// them synchronously and the pass does not proceed until they return.
type ConflictResolver interface {
	// ConfirmOverwrite is asked when destination is owned by owner and
	// incoming wants to claim it.
	ConfirmOverwrite(owner, incoming *Mod, destination string) OverwriteDecision

	// ConfirmUpgrade is asked first when incoming is recognized as an
	// upgrade of owner.
	ConfirmUpgrade(owner, incoming *Mod, destination string) UpgradeDecision
}

// DeleteConfirmer gates whether a mod deletion proceeds at all.
type DeleteConfirmer func(mod *Mod) bool

// DestinationResolver lets the caller redirect or decline a package being
// added when its staging location already exists. Returning ok=false
// declines the add.
type DestinationResolver func(existingPath string) (proceedPath string, ok bool)

// StaticResolver answers every conflict with fixed decisions. Used by the
// CLI's non-interactive flags and by tests.
type StaticResolver struct {
	Overwrite OverwriteDecision
	Upgrade   UpgradeDecision
}

func (s StaticResolver) ConfirmOverwrite(owner, incoming *Mod, destination string) OverwriteDecision {
	return s.Overwrite
}

func (s StaticResolver) ConfirmUpgrade(owner, incoming *Mod, destination string) UpgradeDecision {
	return s.Upgrade
}
