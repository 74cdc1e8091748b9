package cli

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/PaulYuuu/guisu/pkg/apply"
)

// ApplySubcommand commits every pending change to the destination
// (spec.md §4.5): sequential by default, --parallel switches to the
// two-phase worker-pool commit, --force auto-overrides local
// modifications instead of prompting, --dry-run reports without
// writing.
func ApplySubcommand(globalParams *GlobalParams) []*cobra.Command {
	var filters []string
	var force, dryRun, parallel bool

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "apply pending changes to the destination",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := LoadRuntime(globalParams)
			if err != nil {
				return err
			}
			defer rt.Close()

			_, target, dest, err := rt.BuildStates()
			if err != nil {
				return err
			}

			plan, err := apply.Build(target, dest, rt.Store, apply.Options{PathFilters: filters, CreateOnce: rt.CreateOnce})
			if err != nil {
				return err
			}

			writer := apply.NewAferoWriter(afero.NewOsFs())

			var prompter apply.Prompter
			if force {
				prompter = AutoPrompter{Decision: apply.DecisionOverride}
			} else {
				prompter = NewInteractivePrompter(os.Stdin, cmd.OutOrStdout())
			}

			var stats *apply.Stats
			if parallel && !dryRun {
				stats, err = apply.CommitParallel(rt.DestDir, plan, writer, dest, rt.Processor, rt.Store, prompter, rt.Logger)
			} else {
				stats, err = apply.CommitSequential(rt.DestDir, plan, writer, dest, rt.Processor, rt.Store, prompter, dryRun, rt.Logger)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d written, %d skipped, %d errors\n", len(stats.Written), len(stats.Skipped), len(stats.Errors))
			if len(stats.Errors) > 0 {
				return fmt.Errorf("apply: %d entries failed", len(stats.Errors))
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&filters, "path", nil, "restrict to target paths under this prefix (repeatable)")
	cmd.Flags().BoolVar(&force, "force", false, "override local modifications without prompting")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "use the worker-pool commit instead of the sequential one")

	return []*cobra.Command{cmd}
}
