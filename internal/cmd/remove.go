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

// NewRemoveCmd creates the remove command
func NewRemoveCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "remove [mod]",
		Aliases: []string{"rm", "delete"},
		Short:   "Delete a mod and its package files",
		Long: `Delete a mod from the managed store. An active mod is deactivated first;
if deactivation fails the package is left in place and registered.`,
		Args: cobra.ExactArgs(1),
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

			confirm := core.DeleteConfirmer(ui.ConfirmDelete)
			if yes {
				confirm = func(*core.Mod) bool { return true }
			}

			set, err := m.Delete(mod.Key, confirm)
			if err != nil {
				if errors.Is(err, core.ErrCancelled) {
					ui.PrintInfo("delete cancelled")
					return nil
				}
				ui.PrintError("%v", err)
				return err
			}

			ui.WatchTask(set)
			out, err := set.Wait(ctx)
			if err != nil {
				return err
			}
			if !out.Success {
				ui.PrintError("delete failed: %v", out.Err)
				ui.PrintWarning("%s remains registered", mod.Name)
				return out.Err
			}

			deleted := out.Value.(*core.Mod)
			ui.PrintSuccess("Deleted %s", deleted.Name)

			log.Info().Str("mod", deleted.Name).Str("key", deleted.Key).Msg("mod deleted")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without confirmation")

	return cmd
}
