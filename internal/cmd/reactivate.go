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

// NewReactivateCmd creates the reactivate command
func NewReactivateCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	var overwrite string

	cmd := &cobra.Command{
		Use:   "reactivate [mod]",
		Short: "Re-apply an active mod's files",
		Long:  `Rewrite an active mod's files without changing its layering position, e.g. after the package contents were refreshed.`,
		Args:  cobra.ExactArgs(1),
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

			mod, err := m.Find(args[0])
			if err != nil {
				ui.PrintError("no mod matching %q", args[0])
				return err
			}

			t, err := m.Reactivate(mod.Key, res)
			if err != nil {
				if errors.Is(err, core.ErrNotActive) {
					ui.PrintWarning("%s is not active; use activate", mod.Name)
					return nil
				}
				ui.PrintError("%v", err)
				return err
			}

			if err := waitAndReport(ctx, t); err != nil {
				ui.PrintError("reactivation failed: %v", err)
				return err
			}

			ui.PrintSuccess("Reactivated %s", mod.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&overwrite, "overwrite", "ask", "conflict handling for newly claimed files: ask, yes or no")

	return cmd
}
