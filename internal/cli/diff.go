package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PaulYuuu/guisu/pkg/apply"
	"github.com/PaulYuuu/guisu/pkg/diffengine"
	"github.com/PaulYuuu/guisu/pkg/entry"
)

// DiffSubcommand previews every pending file change as a unified diff
// (spec.md §4.4.4), falling back to a one-line binary summary when
// either side has a NUL byte in its first 8000 bytes
// (diffengine.IsBinary).
func DiffSubcommand(globalParams *GlobalParams) []*cobra.Command {
	var filters []string
	var contextLines int

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "preview pending changes as a unified diff",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := LoadRuntime(globalParams)
			if err != nil {
				return err
			}
			defer rt.Close()

			if contextLines <= 0 {
				contextLines = rt.Config.UI.EffectiveContextLines()
			}

			_, target, dest, err := rt.BuildStates()
			if err != nil {
				return err
			}

			plan, err := apply.Build(target, dest, rt.Store, apply.Options{PathFilters: filters, CreateOnce: rt.CreateOnce})
			if err != nil {
				return err
			}

			for _, pe := range plan {
				if diffengine.StatusFor(pe.Classification) == diffengine.StatusSteady {
					continue
				}
				printEntryDiff(cmd, pe, contextLines)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&filters, "path", nil, "restrict to target paths under this prefix (repeatable)")
	cmd.Flags().IntVar(&contextLines, "context", 0, "lines of context around each change (defaults to [ui].contextLines)")

	return []*cobra.Command{cmd}
}

func printEntryDiff(cmd *cobra.Command, pe apply.PlanEntry, contextLines int) {
	out := cmd.OutOrStdout()
	path := pe.Target.TargetPath.String()

	if pe.Target.Kind != entry.KindFile || pe.Dest.Kind == entry.DestDirectory || pe.Dest.Kind == entry.DestSymlink {
		fmt.Fprintf(out, "%s (%s -> %s)\n", path, pe.Dest.Kind.String(), pe.Target.Kind.String())
		return
	}

	if diffengine.IsBinary(pe.Target.Content) || diffengine.IsBinary(pe.Dest.Content) {
		fmt.Fprintf(out, "%s: %s\n", path, diffengine.BinarySummary(pe.Target.Content))
		return
	}

	fmt.Fprintf(out, "--- %s\n", path)
	fmt.Fprint(out, diffengine.UnifiedDiff(string(pe.Dest.Content), string(pe.Target.Content), contextLines))
}
