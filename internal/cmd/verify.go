package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/quantmind-br/modctl/internal/config"
	"github.com/quantmind-br/modctl/internal/ui"
)

var errVerifyFailed = errors.New("verification failed")

// NewVerifyCmd creates the verify command
func NewVerifyCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Cross-check the ledger against the game directory",
		Long: `Check every ledger-owned file against the disk and the package store. The
engine assumes nothing else writes to the game directory; this detects when
that assumption has been violated.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			m, err := openManager(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer m.Close()

			mismatches, err := m.Verify(ctx)
			if err != nil {
				ui.PrintError("%v", err)
				return fmt.Errorf("verify: %w", err)
			}

			if len(mismatches) == 0 {
				ui.PrintSuccess("ledger and game directory agree")
				return nil
			}

			for _, mm := range mismatches {
				ui.PrintWarning("%s: %s", mm.Destination, mm.Problem)
				log.Warn().
					Str("path", mm.Destination).
					Str("mod_key", mm.ModKey).
					Str("problem", mm.Problem).
					Msg("ledger mismatch")
			}
			ui.PrintError("%d mismatch(es) found", len(mismatches))
			return fmt.Errorf("ledger out of sync: %d mismatch(es): %w", len(mismatches), errVerifyFailed)
		},
	}

	return cmd
}
