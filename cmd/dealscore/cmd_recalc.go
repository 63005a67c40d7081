package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sawpanic/dealscore/internal/orchestrator"
)

func recalcCmd(cfgPath *string) *cobra.Command {
	var dealID int64
	var triggerSource string

	cmd := &cobra.Command{
		Use:   "recalc",
		Short: "Recalculate a single deal's confidence score",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := newApp(*cfgPath)
			if err != nil {
				return err
			}
			defer cleanup()

			result := a.orchestrator.Recalculate(cmd.Context(), dealID, triggerSource, orchestrator.DefaultOptions())
			if result == nil {
				return fmt.Errorf("deal %d not found or in a terminal status", dealID)
			}

			return printJSON(result)
		},
	}

	cmd.Flags().Int64Var(&dealID, "deal-id", 0, "deal id to recalculate (required)")
	cmd.Flags().StringVar(&triggerSource, "trigger-source", "manual_refresh", "trigger source recorded in history")
	_ = cmd.MarkFlagRequired("deal-id")

	return cmd
}

func printJSON(v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(raw))
	return nil
}
