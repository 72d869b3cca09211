package paths

import (
	"os"
	"path/filepath"

	"github.com/quantmind-br/modctl/internal/config"
)

// Resolver centralizes the directories modctl works with: the managed game
// tree, the data dir, the package store and the ledger database.
type Resolver struct {
	homeDir string
	cfg     *config.Config
}

// NewResolver creates a Resolver using the current user's HOME.
func NewResolver(cfg *config.Config) *Resolver {
	homeDir, _ := os.UserHomeDir()
	return &Resolver{homeDir: homeDir, cfg: cfg}
}

// NewResolverWithHome creates a Resolver with an explicit homeDir (useful
// for tests).
func NewResolverWithHome(cfg *config.Config, homeDir string) *Resolver {
	return &Resolver{homeDir: homeDir, cfg: cfg}
}

// HomeDir returns the resolved HOME directory.
func (r *Resolver) HomeDir() string {
	return r.homeDir
}

// GameDir returns the managed game installation directory.
func (r *Resolver) GameDir() string {
	if r.cfg != nil && r.cfg.Game.Dir != "" {
		return r.cfg.Game.Dir
	}
	return ""
}

// DataDir returns the modctl data directory, ~/.local/share/modctl by
// default.
func (r *Resolver) DataDir() string {
	if r.cfg != nil && r.cfg.Paths.DataDir != "" {
		return r.cfg.Paths.DataDir
	}
	return filepath.Join(r.homeDir, ".local", "share", "modctl")
}

// StoreDir returns the managed package store root.
func (r *Resolver) StoreDir() string {
	if r.cfg != nil && r.cfg.Paths.StoreDir != "" {
		return r.cfg.Paths.StoreDir
	}
	return filepath.Join(r.DataDir(), "store")
}

// DBFile returns the ledger database path.
func (r *Resolver) DBFile() string {
	if r.cfg != nil && r.cfg.Paths.DBFile != "" {
		return r.cfg.Paths.DBFile
	}
	return filepath.Join(r.DataDir(), "installog.db")
}

// LogFile returns the rotating log file path.
func (r *Resolver) LogFile() string {
	if r.cfg != nil && r.cfg.Paths.LogFile != "" {
		return r.cfg.Paths.LogFile
	}
	return filepath.Join(r.DataDir(), "modctl.log")
}
