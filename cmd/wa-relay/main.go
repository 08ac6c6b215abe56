// Package main provides the CLI entry point for wa-relay, a bridge between
// the WhatsApp Cloud API and an OpenAI assistant.
//
// # Basic Usage
//
// Start the webhook server:
//
//	wa-relay serve --config wa-relay.yaml
//
// Try the assistant from a terminal:
//
//	wa-relay ask "What are your opening hours?"
//
// # Environment Variables
//
// Settings can come from the environment or a .env file:
//
//   - WA_RELAY_CONFIG: Path to the configuration file
//   - ACCESS_TOKEN, VERSION, PHONE_NUMBER_ID: WhatsApp Cloud API credentials
//   - VERIFY_TOKEN, APP_SECRET: webhook verification and signature secret
//   - OPENAI_API_KEY, OPENAI_ASSISTANT_ID: assistant credentials
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information - populated by ldflags during build.
//
// Example build command:
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD) -X main.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version = "dev"     // Semantic version (e.g., "v1.0.0")
	commit  = "none"    // Git commit SHA
	date    = "unknown" // Build timestamp
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	envFile    string
	debug      bool
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// This is separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "wa-relay",
		Short: "wa-relay - WhatsApp to OpenAI assistant relay",
		Long: `wa-relay receives WhatsApp Cloud API webhooks, forwards each text message
to an OpenAI assistant (one thread per sender) and sends the reply back to
the same chat.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "",
		"Path to YAML or JSON5 configuration file (or set WA_RELAY_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env",
		"Path to a .env file loaded before the configuration")
	rootCmd.PersistentFlags().BoolVarP(&flags.debug, "debug", "d", false,
		"Enable debug logging (verbose output)")

	rootCmd.AddCommand(
		buildServeCmd(flags),
		buildAskCmd(flags),
		buildSendCmd(flags),
		buildConfigCmd(flags),
	)

	return rootCmd
}
