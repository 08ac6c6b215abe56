package main

import "github.com/spf13/cobra"

// buildServeCmd creates the "serve" command that starts the webhook server.
// This is the primary command for running wa-relay in production.
func buildServeCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook server",
		Long: `Start the webhook server.

The server will:
1. Load the .env file and configuration
2. Connect to the OpenAI Assistants API and the WhatsApp Cloud API
3. Serve the webhook (verification GET and delivery POST), /healthz and /metrics

Graceful shutdown is handled on SIGINT/SIGTERM signals.`,
		Example: `  # Start with settings from .env
  wa-relay serve

  # Start with a config file and debug logging
  wa-relay serve --config /etc/wa-relay/production.yaml --debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
	return cmd
}
