package cli

import (
	"fmt"
	"os"

	"filippo.io/age"
	"github.com/spf13/cobra"
)

// AgeSubcommand groups the identity-management helpers spec.md §7's
// decryption-failure help block points users at: `guisu age generate`
// to create a new identity, `guisu age recipient` to print the public
// recipient line for an existing identity file.
func AgeSubcommand(globalParams *GlobalParams) []*cobra.Command {
	root := &cobra.Command{
		Use:   "age",
		Short: "manage age identities used for encrypted source entries",
	}

	root.AddCommand(ageGenerateCommand(), ageRecipientCommand())

	return []*cobra.Command{root}
}

func ageGenerateCommand() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "generate a new age identity and write it to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, err := age.GenerateX25519Identity()
			if err != nil {
				return fmt.Errorf("age generate: %w", err)
			}

			contents := fmt.Sprintf("# created by guisu age generate\n# public key: %s\n%s\n", identity.Recipient().String(), identity.String())

			if outPath == "" {
				fmt.Fprint(cmd.OutOrStdout(), contents)
				return nil
			}
			if err := os.WriteFile(outPath, []byte(contents), 0o600); err != nil {
				return fmt.Errorf("age generate: writing %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote identity to %s (recipient: %s)\n", outPath, identity.Recipient().String())
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "output", "", "write the identity to this file instead of stdout")

	return cmd
}

func ageRecipientCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "recipient <identity-file>",
		Short: "print the public recipient line for an identity file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("age recipient: %w", err)
			}
			defer f.Close()

			identities, err := age.ParseIdentities(f)
			if err != nil {
				return fmt.Errorf("age recipient: parsing %s: %w", args[0], err)
			}

			for _, id := range identities {
				x25519, ok := id.(*age.X25519Identity)
				if !ok {
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), x25519.Recipient().String())
			}
			return nil
		},
	}
}
