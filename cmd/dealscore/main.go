package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	root := &cobra.Command{
		Use:     "dealscore",
		Short:   "Deal confidence scoring engine",
		Version: "v0.1.0",
	}

	var cfgPath string
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a YAML configuration file")

	root.AddCommand(recalcCmd(&cfgPath))
	root.AddCommand(batchCmd(&cfgPath))
	root.AddCommand(auditCmd(&cfgPath))
	root.AddCommand(pipelineCmd(&cfgPath))
	root.AddCommand(monitorCmd(&cfgPath))

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
