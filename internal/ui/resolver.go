package ui

import (
	"fmt"

	"github.com/quantmind-br/modctl/internal/core"
)

// PromptResolver implements the engine's conflict protocol over terminal
// prompts. The engine calls it synchronously mid-pass; the pass is blocked
// until the user answers, which is exactly the contract.
type PromptResolver struct{}

func modLabel(mod *core.Mod) string {
	if mod == nil {
		return "an untracked mod"
	}
	if mod.Version != "" {
		return fmt.Sprintf("%s %s", mod.Name, mod.Version)
	}
	return mod.Name
}

// ConfirmOverwrite asks what to do with a file another mod already owns.
func (PromptResolver) ConfirmOverwrite(owner, incoming *core.Mod, destination string) core.OverwriteDecision {
	PrintWarning("%s is already provided by %s", destination, modLabel(owner))

	items := []string{
		"Overwrite",
		"Skip this file",
		"Overwrite all remaining",
		"Skip all remaining",
		"Cancel activation",
	}
	index, _, err := SelectPrompt(fmt.Sprintf("Install %s from %s?", destination, modLabel(incoming)), items)
	if err != nil {
		return core.OverwriteCancel
	}

	switch index {
	case 0:
		return core.OverwriteYes
	case 1:
		return core.OverwriteNo
	case 2:
		return core.OverwriteYesToAll
	case 3:
		return core.OverwriteNoToAll
	default:
		return core.OverwriteCancel
	}
}

// ConfirmUpgrade asks whether an apparent upgrade should replace the old
// mod's layer in place.
func (PromptResolver) ConfirmUpgrade(owner, incoming *core.Mod, destination string) core.UpgradeDecision {
	PrintInfo("%s looks like an upgrade of %s (conflict on %s)", modLabel(incoming), modLabel(owner), destination)

	items := []string{
		"Replace the old version's file",
		"Treat as unrelated mods",
		"Skip this file",
	}
	index, _, err := SelectPrompt("Apply as upgrade?", items)
	if err != nil {
		return core.UpgradeCancel
	}

	switch index {
	case 0:
		return core.UpgradeOverwrite
	case 1:
		return core.UpgradeIgnore
	default:
		return core.UpgradeCancel
	}
}

// ConfirmDelete gates mod deletion.
func ConfirmDelete(mod *core.Mod) bool {
	ok, err := ConfirmPrompt(fmt.Sprintf("Delete %s and its package files", modLabel(mod)))
	if err != nil {
		return false
	}
	return ok
}

// RenameOnCollision returns a destination resolver that declines
// collisions unless the user supplies an alternate name.
func RenameOnCollision() core.DestinationResolver {
	return func(existingPath string) (string, bool) {
		PrintWarning("a mod with this name already exists: %s", existingPath)
		ok, err := ConfirmPrompt("Register it alongside under a suffixed name")
		if err != nil || !ok {
			return "", false
		}
		return existingPath + " (copy)", true
	}
}
