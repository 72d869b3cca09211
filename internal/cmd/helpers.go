package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/quantmind-br/modctl/internal/activator"
	"github.com/quantmind-br/modctl/internal/config"
	"github.com/quantmind-br/modctl/internal/core"
	"github.com/quantmind-br/modctl/internal/manager"
	"github.com/quantmind-br/modctl/internal/task"
	"github.com/quantmind-br/modctl/internal/ui"
)

// openManager builds the engine for the configured game installation.
func openManager(ctx context.Context, cfg *config.Config, log *zerolog.Logger) (*manager.Manager, error) {
	m, err := manager.New(ctx, cfg, log)
	if err != nil {
		ui.PrintError("%v", err)
		return nil, err
	}
	return m, nil
}

// resolverFromFlag maps the --overwrite flag to a conflict resolver:
// "ask" prompts per file, "yes"/"no" answer every conflict without
// prompting.
func resolverFromFlag(mode string) (core.ConflictResolver, error) {
	switch mode {
	case "ask":
		return ui.PromptResolver{}, nil
	case "yes":
		return core.StaticResolver{Overwrite: core.OverwriteYesToAll, Upgrade: core.UpgradeIgnore}, nil
	case "no":
		return core.StaticResolver{Overwrite: core.OverwriteNoToAll, Upgrade: core.UpgradeIgnore}, nil
	default:
		return nil, fmt.Errorf("invalid --overwrite value %q (want ask, yes or no)", mode)
	}
}

// waitAndReport watches a task until completion and prints its pass report.
func waitAndReport(ctx context.Context, t *task.Task) error {
	ui.WatchTask(t)

	out, err := t.Wait(ctx)
	if err != nil {
		return err
	}

	if report, ok := out.Value.(*activator.Report); ok && report != nil {
		printReport(report)
	}

	if !out.Success {
		return out.Err
	}
	return nil
}

func printReport(report *activator.Report) {
	if n := len(report.Installed); n > 0 {
		ui.PrintInfo("%d file(s) written", n)
	}
	if n := len(report.Restored); n > 0 {
		ui.PrintInfo("%d file(s) restored from lower layers", n)
	}
	if n := len(report.Removed); n > 0 {
		ui.PrintInfo("%d file(s) removed", n)
	}
	if n := len(report.Skipped); n > 0 {
		ui.PrintWarning("%d file(s) skipped by conflict decisions", n)
	}
	for _, f := range report.Failures {
		ui.PrintWarning("failed: %s (%v)", f.Destination, f.Err)
	}
	if report.Cancelled {
		ui.PrintWarning("activation cancelled; files already written remain installed")
	}
}
