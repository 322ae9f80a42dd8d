package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

const requestTimeout = 30 * time.Second

// NewRootCmd assembles the command tree. Each call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tokenctl",
		Short:         "Fee token operator CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newFeeCmd(),
		newTokenCmd(),
		newMigrateCmd(),
		newCredentialsCmd(),
	)
	return root
}

func Execute() error {
	return NewRootCmd().Execute()
}

func missingSubcommand(*cobra.Command, []string) error {
	return ErrMissingSubcommand
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
