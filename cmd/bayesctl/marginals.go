package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/bayesnet/kernel/pkg/cpt"
	"github.com/bayesnet/kernel/pkg/inference"
)

func newMarginalsCmd() *cobra.Command {
	var samples int
	var interventionID string

	cmd := &cobra.Command{
		Use:   "marginals <network.json>",
		Short: "compute P(v=TRUE) for every variable, optionally under a single do() intervention",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vars, err := loadNetwork(args[0])
			if err != nil {
				return err
			}

			svc := inference.New()

			if interventionID == "" {
				m, err := svc.ComputeMarginals(vars, samples)
				if err != nil {
					return err
				}
				printMarginals(m)
				return nil
			}

			node, err := cpt.ParseNodeID(interventionID)
			if err != nil {
				return fmt.Errorf("parsing --do node id: %w", err)
			}
			trueCase, falseCase, err := svc.ComputeMarginalsWithIntervention(vars, samples, node)
			if err != nil {
				return err
			}
			fmt.Println("do(node=TRUE):")
			printMarginals(trueCase)
			fmt.Println("do(node=FALSE):")
			printMarginals(falseCase)
			return nil
		},
	}

	cmd.Flags().IntVar(&samples, "samples", sampling1M, "forward-sampling pass count")
	cmd.Flags().StringVar(&interventionID, "do", "", "node id to pin via do(·); omit for plain marginals")
	return cmd
}

const sampling1M = 1_000_000

func printMarginals(m map[cpt.NodeID]float64) {
	ids := make([]cpt.NodeID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	for _, id := range ids {
		fmt.Printf("  %s: %.4f\n", id, m[id])
	}
}
