package main

import (
	"github.com/spf13/cobra"

	"github.com/sawpanic/dealscore/internal/aggregation"
)

func pipelineCmd(cfgPath *string) *cobra.Command {
	var rep string
	var bucket string

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Show active deals with bucket placement and pipeline aggregates",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := newApp(*cfgPath)
			if err != nil {
				return err
			}
			defer cleanup()

			data, err := a.aggregator.Data(cmd.Context(), aggregation.Filters{Rep: rep, Bucket: bucket})
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}

	cmd.Flags().StringVar(&rep, "rep", "", "only list deals owned by this rep")
	cmd.Flags().StringVar(&bucket, "bucket", "", "only list deals in this bucket (closing_soon, in_pipeline, at_risk, on_hold)")

	cmd.AddCommand(pipelineRevenueCmd(cfgPath))
	return cmd
}

func pipelineRevenueCmd(cfgPath *string) *cobra.Command {
	var currentMRR float64
	var activeClients int

	cmd := &cobra.Command{
		Use:   "revenue",
		Short: "Project near-term MRR growth from the current pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := newApp(*cfgPath)
			if err != nil {
				return err
			}
			defer cleanup()

			summary, err := a.aggregator.Revenue(cmd.Context(), currentMRR, activeClients)
			if err != nil {
				return err
			}
			return printJSON(summary)
		},
	}

	cmd.Flags().Float64Var(&currentMRR, "current-mrr", 0, "current monthly recurring revenue")
	cmd.Flags().IntVar(&activeClients, "active-clients", 0, "current active client count")

	return cmd
}
