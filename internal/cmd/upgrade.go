package cmd

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/quantmind-br/modctl/internal/config"
	"github.com/quantmind-br/modctl/internal/ui"
)

// NewUpgradeCmd creates the upgrade command
func NewUpgradeCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	var overwrite string

	cmd := &cobra.Command{
		Use:   "upgrade [old-mod] [new-mod]",
		Short: "Replace one mod's layers with another",
		Long: `Transfer every file the old mod owns to the new mod, keeping layering
positions, then activate the remainder of the new mod's payload. No check
is made that the two mods are actually related.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := resolverFromFlag(overwrite)
			if err != nil {
				return err
			}

			ctx := context.Background()
			m, err := openManager(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer m.Close()

			oldMod, err := m.Find(args[0])
			if err != nil {
				ui.PrintError("no mod matching %q", args[0])
				return err
			}
			newMod, err := m.Find(args[1])
			if err != nil {
				ui.PrintError("no mod matching %q", args[1])
				return err
			}

			log.Info().Str("from", oldMod.Name).Str("to", newMod.Name).Msg("starting force upgrade")
			t, err := m.Upgrade(oldMod.Key, newMod.Key, res)
			if err != nil {
				ui.PrintError("%v", err)
				return err
			}

			if err := waitAndReport(ctx, t); err != nil {
				ui.PrintError("upgrade failed: %v", err)
				return err
			}

			ui.PrintSuccess("Upgraded %s -> %s", oldMod.Name, newMod.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&overwrite, "overwrite", "ask", "conflict handling for newly claimed files: ask, yes or no")

	return cmd
}
