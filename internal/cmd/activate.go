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

// NewActivateCmd creates the activate command
func NewActivateCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	var overwrite string

	cmd := &cobra.Command{
		Use:   "activate [mod]",
		Short: "Activate a mod",
		Long:  `Apply a registered mod's payload onto the game directory, layering over any mods that already own the same files.`,
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

			log.Info().Str("mod", mod.Name).Msg("starting activation")
			t, err := m.Activate(mod.Key, res)
			if err != nil {
				if errors.Is(err, core.ErrAlreadyActive) {
					ui.PrintWarning("%s is already active", mod.Name)
					return nil
				}
				ui.PrintError("%v", err)
				return err
			}

			if err := waitAndReport(ctx, t); err != nil {
				ui.PrintError("activation failed: %v", err)
				return err
			}

			ui.PrintSuccess("Activated %s", mod.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&overwrite, "overwrite", "ask", "conflict handling: ask, yes or no")

	return cmd
}
