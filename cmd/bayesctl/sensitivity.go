package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bayesnet/kernel/pkg/cpt"
	"github.com/bayesnet/kernel/pkg/inference"
)

func newSensitivityCmd() *cobra.Command {
	var samplesPerSide int

	cmd := &cobra.Command{
		Use:   "sensitivity <network.json> <target-node-id>",
		Short: "stream P(target|do(a=T)) - P(target|do(a=F)) for every ancestor a of target",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			vars, err := loadNetwork(args[0])
			if err != nil {
				return err
			}
			target, err := cpt.ParseNodeID(args[1])
			if err != nil {
				return fmt.Errorf("parsing target node id: %w", err)
			}

			svc := inference.New()
			results, errs := svc.ComputeSensitivity(vars, target, samplesPerSide)
			for r := range results {
				fmt.Printf("  %s: %+.4f\n", r.Ancestor, r.Sensitivity)
			}
			if err := <-errs; err != nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&samplesPerSide, "samples", 75_000, "per-side sample count for each do() intervention")
	return cmd
}
