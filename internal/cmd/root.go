package cmd

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/quantmind-br/modctl/internal/config"
)

// NewRootCmd creates the root command
func NewRootCmd(cfg *config.Config, log *zerolog.Logger, version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "modctl",
		Short:        "Game mod activation manager",
		Long:         `Manages third-party mod packages layered onto a game's file tree: activation, deactivation, conflict resolution and exact reversal.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewAddCmd(cfg, log))
	cmd.AddCommand(NewActivateCmd(cfg, log))
	cmd.AddCommand(NewDeactivateCmd(cfg, log))
	cmd.AddCommand(NewReactivateCmd(cfg, log))
	cmd.AddCommand(NewUpgradeCmd(cfg, log))
	cmd.AddCommand(NewRemoveCmd(cfg, log))
	cmd.AddCommand(NewListCmd(cfg, log))
	cmd.AddCommand(NewStatusCmd(cfg, log))
	cmd.AddCommand(NewVerifyCmd(cfg, log))
	cmd.AddCommand(NewVersionCmd(version))

	return cmd
}
