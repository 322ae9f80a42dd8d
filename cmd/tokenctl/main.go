// "tokenctl" is the operator toolbox for the fee token service.
package main

import (
	"fmt"
	"os"

	"github.com/congo-pay/feetoken/cmd/tokenctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tokenctl failed: %v\n", err)
		os.Exit(1)
	}
}
