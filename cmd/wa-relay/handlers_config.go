package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/wa-relay/internal/config"
)

// runConfigValidate loads the configuration like serve does and prints a
// summary with secrets masked.
func runConfigValidate(cmd *cobra.Command, flags *globalFlags) error {
	cfg, err := loadConfig(flags, config.NeedAll)
	var invalid *config.ValidationError
	if errors.As(err, &invalid) {
		out := cmd.OutOrStdout()
		for _, issue := range invalid.Issues {
			fmt.Fprintf(out, "  - %s\n", issue)
		}
		return fmt.Errorf("configuration has %d problem(s)", len(invalid.Issues))
	}
	if err != nil {
		return err
	}

	path := resolveConfigPath(flags.configPath)
	if path == "" {
		path = "(environment only)"
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"config", path},
		{"listen", cfg.Server.Addr()},
		{"webhook path", cfg.Server.WebhookPath},
		{"graph api", cfg.WhatsApp.BaseURL + "/" + cfg.WhatsApp.APIVersion},
		{"phone number id", cfg.WhatsApp.PhoneNumberID},
		{"access token", mask(cfg.WhatsApp.AccessToken)},
		{"verify token", mask(cfg.WhatsApp.VerifyToken)},
		{"app secret", mask(cfg.WhatsApp.AppSecret)},
		{"assistant id", cfg.Assistant.AssistantID},
		{"openai api key", mask(cfg.Assistant.APIKey)},
		{"run timeout", cfg.Assistant.RunTimeout.String()},
		{"dedupe", fmt.Sprintf("%t (ttl %s)", cfg.Dedupe.IsEnabled(), cfg.Dedupe.TTL)},
		{"tracing", fmt.Sprintf("%t", cfg.Observability.Tracing.Enabled)},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(out, "Configuration OK")
	return nil
}

func runConfigSchema(cmd *cobra.Command) error {
	schema, err := config.JSONSchema()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(schema))
	return err
}

func mask(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	return "set"
}
