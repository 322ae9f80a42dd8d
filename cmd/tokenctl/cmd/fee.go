package cmd

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/congo-pay/feetoken/internal/fee"
)

func newFeeCmd() *cobra.Command {
	feeCmd := &cobra.Command{
		Use:   "fee",
		Short: "Fee calculations",
		RunE:  missingSubcommand,
	}

	var (
		amount string
		rate   uint64
	)
	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Split an amount into fee and net at a rate",
		RunE: func(c *cobra.Command, _ []string) error {
			value, err := uint256.FromDecimal(amount)
			if err != nil {
				return fmt.Errorf("%w: amount %q: %v", ErrInvalidArgs, amount, err)
			}
			engine, err := fee.NewEngine(rate)
			if err != nil {
				return err
			}
			feeAmount, net := engine.Split(value)
			fmt.Fprintf(c.OutOrStdout(), "amount: %s\nfee:    %s\nnet:    %s\nrate:   %d/%d\n",
				value.Dec(), feeAmount.Dec(), net.Dec(), rate, fee.BasisDenominator)
			return nil
		},
	}
	quoteCmd.Flags().StringVar(&amount, "amount", "", "amount in base units")
	quoteCmd.Flags().Uint64Var(&rate, "rate", 300, "fee rate in basis points")
	_ = quoteCmd.MarkFlagRequired("amount")

	feeCmd.AddCommand(quoteCmd)
	return feeCmd
}
