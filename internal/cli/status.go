package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PaulYuuu/guisu/pkg/apply"
	"github.com/PaulYuuu/guisu/pkg/diffengine"
)

// StatusSubcommand lists every managed target path with its status
// label (Steady, Latent, Ahead, Behind or Conflict; spec.md §6.3), the
// teacher-style thin command body that
// just opens a Runtime, builds a plan, and prints.
func StatusSubcommand(globalParams *GlobalParams) []*cobra.Command {
	var filters []string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "show the status label of every managed path",
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

			for _, pe := range plan {
				status := diffengine.StatusFor(pe.Classification)
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", status.String(), pe.Target.TargetPath.String())
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&filters, "path", nil, "restrict to target paths under this prefix (repeatable)")

	return []*cobra.Command{cmd}
}
