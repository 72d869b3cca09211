package core

import (
	"errors"
	"time"
)

// PayloadEntry is one (source, destination) pair of a mod's payload.
// Source is relative to the mod's package store directory, Destination is
// relative to the managed game directory. Both use forward slashes.
type PayloadEntry struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// Mod is an immutable mod record handed to the engine by the registry.
// Key is assigned at registration and is the identity the install log
// tracks; ID is the repository identifier and may be empty for mods added
// locally that were never matched to a repository entry.
type Mod struct {
	Key              string         `json:"key"`
	ID               string         `json:"id,omitempty"`
	Name             string         `json:"name"`
	Version          string         `json:"version,omitempty"`
	CategoryID       int            `json:"category_id"`
	CustomCategoryID int            `json:"custom_category_id"` // -1 when unset
	InstallDate      *time.Time     `json:"install_date,omitempty"`
	Payload          []PayloadEntry `json:"payload"`
}

// SourceFor returns the payload source for a destination path, if the mod
// carries one.
func (m *Mod) SourceFor(destination string) (string, bool) {
	for _, e := range m.Payload {
		if e.Destination == destination {
			return e.Source, true
		}
	}
	return "", false
}

// IsUpgradeOf reports whether m looks like a newer release of other:
// matching non-empty repository IDs, or matching names with differing
// versions. The engine only uses this to pick which confirmation to ask
// first; it never upgrades without being told to.
func (m *Mod) IsUpgradeOf(other *Mod) bool {
	if m == nil || other == nil || m.Key == other.Key {
		return false
	}
	if m.ID != "" && m.ID == other.ID {
		return true
	}
	return m.Name == other.Name && m.Version != other.Version
}

// Precondition rejections. These are surfaced synchronously before any
// background task is created, never as a failed task.
var (
	ErrAlreadyActive = errors.New("mod is already active")
	ErrNotActive     = errors.New("mod is not active")
	ErrNotFound      = errors.New("mod not found")
	ErrCancelled     = errors.New("operation cancelled")
)

// Exit codes for the CLI.
const (
	ExitSuccess          = 0
	ExitGeneral          = 1
	ExitInvalidArgs      = 2
	ExitActivateFailed   = 3
	ExitDeactivateFailed = 4
	ExitDatabase         = 5
	ExitInterrupted      = 130
)
