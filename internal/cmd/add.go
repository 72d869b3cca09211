package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/quantmind-br/modctl/internal/config"
	"github.com/quantmind-br/modctl/internal/core"
	"github.com/quantmind-br/modctl/internal/ui"
)

// NewAddCmd creates the add command
func NewAddCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	var noPrompt bool

	cmd := &cobra.Command{
		Use:   "add [package-dir]",
		Short: "Register a mod package",
		Long:  `Register an extracted mod package directory with the managed store. The package's file tree becomes the mod's payload.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			location := args[0]

			if info, err := os.Stat(location); err != nil || !info.IsDir() {
				ui.PrintError("package directory not found: %s", location)
				return fmt.Errorf("package not found: %s", location)
			}

			ctx := context.Background()
			m, err := openManager(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer m.Close()

			var resolve core.DestinationResolver
			if !noPrompt {
				resolve = ui.RenameOnCollision()
			}

			log.Info().Str("package", location).Msg("queueing package registration")
			t, err := m.AddMod(ctx, location, resolve)
			if err != nil {
				ui.PrintError("%v", err)
				return err
			}

			ui.WatchTask(t)
			out, err := t.Wait(ctx)
			if err != nil {
				return err
			}
			if !out.Success {
				ui.PrintError("registration failed: %v", out.Err)
				return out.Err
			}

			mod := out.Value.(*core.Mod)
			ui.PrintSuccess("Registered %s (%d payload files)", mod.Name, len(mod.Payload))
			ui.PrintKeyValue("Key", mod.Key)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "fail instead of prompting when a mod with the same name exists")

	return cmd
}
