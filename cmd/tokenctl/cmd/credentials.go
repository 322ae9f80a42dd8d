package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/congo-pay/feetoken/internal/identity"
)

func newCredentialsCmd() *cobra.Command {
	credentialsCmd := &cobra.Command{
		Use:   "credentials",
		Short: "API credential helpers",
		RunE:  missingSubcommand,
	}
	hashCmd := &cobra.Command{
		Use:   "hash [secret]",
		Short: "Print the bcrypt hash stored for a secret",
		PreRunE: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return ErrInvalidArgs
			}
			return nil
		},
		RunE: func(c *cobra.Command, args []string) error {
			if len(args[0]) < identity.MinSecretLength {
				return fmt.Errorf("%w: secret must be at least %d characters", ErrInvalidArgs, identity.MinSecretLength)
			}
			hash, err := identity.HashSecret(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), string(hash))
			return nil
		},
	}
	credentialsCmd.AddCommand(hashCmd)
	return credentialsCmd
}
