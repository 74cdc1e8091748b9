package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PaulYuuu/guisu/pkg/addflow"
)

// AddSubcommand imports one or more destination paths into the source
// tree (spec.md §4.5.6).
func AddSubcommand(globalParams *GlobalParams) []*cobra.Command {
	var template, autotemplate, encrypt, force bool
	var secretsFlag string

	cmd := &cobra.Command{
		Use:   "add <path>...",
		Short: "import a file, symlink, or directory into the source tree",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secretsMode, err := addflow.ParseSecretsMode(secretsFlag)
			if err != nil {
				return err
			}

			rt, err := LoadRuntime(globalParams)
			if err != nil {
				return err
			}
			defer rt.Close()

			opts := addflow.Options{
				Template:     template,
				Autotemplate: autotemplate,
				Encrypt:      encrypt,
				Force:        force,
				Secrets:      secretsMode,
			}

			for _, path := range args {
				res, err := addflow.AddFile(rt.SourceDir.String(), rt.DestDir.String(), rt.RootEntry, path, opts, rt.Variables, rt, rt.Logger)
				if err != nil {
					return fmt.Errorf("add %s: %w", path, err)
				}
				for _, added := range res.Added {
					fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", added)
				}
				for _, warning := range res.Warnings {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", warning)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&template, "template", false, "mark the added file as a template (.j2)")
	cmd.Flags().BoolVar(&autotemplate, "autotemplate", false, "replace known variable values with template references")
	cmd.Flags().BoolVar(&encrypt, "encrypt", false, "encrypt the added file with the configured age recipients")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an already-managed entry")
	cmd.Flags().StringVar(&secretsFlag, "secrets", string(addflow.SecretsWarning), "secret-scan mode: ignore|warning|error")

	return []*cobra.Command{cmd}
}
