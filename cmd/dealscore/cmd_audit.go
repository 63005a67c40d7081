package main

import (
	"github.com/spf13/cobra"
)

func auditCmd(cfgPath *string) *cobra.Command {
	var dealID int64

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the score delta trail for a deal",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := newApp(*cfgPath)
			if err != nil {
				return err
			}
			defer cleanup()

			events, err := a.auditor.Get(cmd.Context(), dealID)
			if err != nil {
				return err
			}

			return printJSON(map[string]interface{}{"events": events})
		},
	}

	cmd.Flags().Int64Var(&dealID, "deal-id", 0, "deal id to audit (required)")
	_ = cmd.MarkFlagRequired("deal-id")

	return cmd
}
