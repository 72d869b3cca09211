package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/quantmind-br/modctl/internal/config"
	"github.com/quantmind-br/modctl/internal/core"
	"github.com/quantmind-br/modctl/internal/ui"
)

// NewListCmd creates the list command
func NewListCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	var (
		jsonOutput bool
		activeOnly bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered mods",
		Long:  `List registered mods with their activation state and layered file counts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			m, err := openManager(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer m.Close()

			mods := m.List()
			if activeOnly {
				var filtered []*core.Mod
				for _, mod := range mods {
					if m.IsActive(mod) {
						filtered = append(filtered, mod)
					}
				}
				mods = filtered
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(mods)
			}

			if len(mods) == 0 {
				ui.PrintInfo("no mods registered")
				return nil
			}

			table := tablewriter.NewTable(cmd.OutOrStdout(),
				tablewriter.WithHeader([]string{"Name", "Version", "Category", "State", "Files", "Installed"}),
				tablewriter.WithAlignment(tw.MakeAlign(6, tw.AlignLeft)),
				tablewriter.WithSymbols(tw.NewSymbols(tw.StyleNone)),
			)

			for _, mod := range mods {
				installed := "-"
				if mod.InstallDate != nil {
					installed = mod.InstallDate.Format("2006-01-02 15:04")
				}
				category := strconv.Itoa(mod.CategoryID)
				if mod.CustomCategoryID >= 0 {
					category = fmt.Sprintf("%d*", mod.CustomCategoryID)
				}
				table.Append([]string{
					mod.Name,
					mod.Version,
					category,
					ui.ColorizeState(m.IsActive(mod)),
					strconv.Itoa(len(m.OwnedPaths(mod))),
					installed,
				})
			}

			table.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only show active mods")

	return cmd
}
