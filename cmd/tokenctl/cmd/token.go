package cmd

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/congo-pay/feetoken/internal/auth"
)

func newTokenCmd() *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "API access tokens",
		RunE:  missingSubcommand,
	}

	var (
		address string
		version int
		ttl     time.Duration
		secret  string
	)
	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign an access token for an address",
		RunE: func(c *cobra.Command, _ []string) error {
			if !common.IsHexAddress(address) {
				return fmt.Errorf("%w: address %q", ErrInvalidArgs, address)
			}
			if secret == "" {
				return ErrMissingSecret
			}
			signed, exp, err := auth.Sign(common.HexToAddress(address), version, []byte(secret), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), signed)
			fmt.Fprintf(c.ErrOrStderr(), "expires at %s\n", exp.Format(time.RFC3339))
			return nil
		},
	}
	issueCmd.Flags().StringVar(&address, "address", "", "address the token speaks for")
	issueCmd.Flags().IntVar(&version, "version", 0, "credential token version")
	issueCmd.Flags().DurationVar(&ttl, "ttl", 15*time.Minute, "token lifetime")
	issueCmd.Flags().StringVar(&secret, "secret", envOr("JWT_SECRET", ""), "access token secret (JWT_SECRET)")
	_ = issueCmd.MarkFlagRequired("address")

	tokenCmd.AddCommand(issueCmd)
	return tokenCmd
}
