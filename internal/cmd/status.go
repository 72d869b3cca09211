package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/quantmind-br/modctl/internal/config"
	"github.com/quantmind-br/modctl/internal/ui"
)

// NewStatusCmd creates the status command
func NewStatusCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [mod]",
		Short: "Show a mod's per-file ownership",
		Long:  `Show, for each payload file of a mod, whether the mod currently owns the destination, is shadowed by another mod, or has no layer there.`,
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

			ui.PrintKeyValue("Name", mod.Name)
			if mod.Version != "" {
				ui.PrintKeyValue("Version", mod.Version)
			}
			ui.PrintKeyValue("State", ui.ColorizeState(m.IsActive(mod)))
			if mod.InstallDate != nil {
				ui.PrintKeyValue("Installed", mod.InstallDate.Format("2006-01-02 15:04:05"))
			}
			fmt.Println()

			for _, entry := range mod.Payload {
				stack := m.Stack(entry.Destination)
				switch {
				case len(stack) == 0:
					fmt.Printf("  %s %s (not layered)\n", ui.Muted.Sprint("·"), entry.Destination)
				case stack[len(stack)-1].ModKey == mod.Key:
					fmt.Printf("  %s %s\n", ui.CheckMark, entry.Destination)
				default:
					depth := -1
					for i, e := range stack {
						if e.ModKey == mod.Key {
							depth = len(stack) - 1 - i
							break
						}
					}
					if depth < 0 {
						fmt.Printf("  %s %s (owned by another mod)\n", ui.CrossMark, entry.Destination)
					} else {
						fmt.Printf("  %s %s (shadowed, %d layer(s) above)\n", ui.CrossMark, entry.Destination, depth)
					}
				}
			}

			return nil
		},
	}

	return cmd
}
