// Command bayesctl is a reference embedder: it loads an on-wire JSON
// network file (§6) straight into an inference snapshot, then drives
// compute_marginals or compute_sensitivity and prints the result. It
// exists to exercise the kernel end to end; persistence, auth, and the UI
// are genuinely out of scope (§1) and this CLI does not attempt them.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bayesctl",
		Short: "bayesctl loads a Bayesian network and runs kernel inference against it",
	}
	root.AddCommand(newMarginalsCmd())
	root.AddCommand(newSensitivityCmd())
	return root
}
