package main

import (
	"github.com/spf13/cobra"

	"github.com/brandon/mailsync/internal/mcp"
	"github.com/brandon/mailsync/internal/tools"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the mail tools over MCP on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		registry := tools.NewRegistry(cfg, manager, st, logger)
		server := mcp.NewServer(registry, logger).WithIO(cmd.InOrStdin(), cmd.OutOrStdout())

		errChan := make(chan error, 1)
		go func() {
			errChan <- server.Run(ctx)
		}()

		select {
		case <-ctx.Done():
		case err := <-errChan:
			if err != nil {
				logger.WithError(err).Error("Server error")
				return err
			}
		}

		logger.Info("Shutting down mailsync server")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
