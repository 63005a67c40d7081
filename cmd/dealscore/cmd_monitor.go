package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	dealshttp "github.com/sawpanic/dealscore/internal/interfaces/http"
)

func monitorCmd(cfgPath *string) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Start the admin HTTP server (/healthz, /metrics, /pipeline, ...)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := newApp(*cfgPath)
			if err != nil {
				return err
			}
			defer cleanup()

			serverCfg := dealshttp.DefaultServerConfig()
			if a.cfg.HTTPPort != 0 {
				serverCfg.Port = a.cfg.HTTPPort
			}
			if port != 0 {
				serverCfg.Port = port
			}

			handlers := a.httpHandlers()
			server, err := dealshttp.NewServer(serverCfg, handlers, handlers.Metrics())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				log.Info().Msg("monitor: shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override the admin server port (default from HTTP_PORT/8090)")

	return cmd
}
