package cmd

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/quantmind-br/modctl/internal/config"
	"github.com/quantmind-br/modctl/internal/core"
	"github.com/quantmind-br/modctl/internal/ui"
)

// NewDeactivateCmd creates the deactivate command
func NewDeactivateCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deactivate [mod]",
		Short: "Deactivate a mod",
		Long:  `Remove a mod's layered files from the game directory, restoring whatever layer sat beneath each of them.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			m, err := openManager(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer m.Close()

			mod, err := m.Find(args[0])
			if err != nil {
				ui.PrintError("no mod matching %q", args[0])
				return err
			}

			log.Info().Str("mod", mod.Name).Msg("starting deactivation")
			t, err := m.Deactivate(mod.Key)
			if err != nil {
				if errors.Is(err, core.ErrNotActive) {
					ui.PrintWarning("%s is not active", mod.Name)
					return nil
				}
				ui.PrintError("%v", err)
				return err
			}

			if err := waitAndReport(ctx, t); err != nil {
				ui.PrintError("deactivation failed: %v", err)
				return err
			}

			ui.PrintSuccess("Deactivated %s", mod.Name)
			return nil
		},
	}

	return cmd
}
