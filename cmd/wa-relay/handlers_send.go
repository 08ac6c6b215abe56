package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/wa-relay/internal/config"
	"github.com/haasonsaas/wa-relay/internal/markdown"
)

// runSend implements the send command.
func runSend(cmd *cobra.Command, flags *globalFlags, to string, args []string, format bool) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("--to is required")
	}
	text := strings.Join(args, " ")
	if format {
		text = markdown.NormalizeWhatsApp(text)
	}

	cfg, err := loadConfig(flags, config.NeedWhatsApp)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging, cmd.ErrOrStderr())

	client, err := newSender(cfg, logger)
	if err != nil {
		return err
	}
	if err := client.Send(cmd.Context(), to, text); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Sent %d characters to %s\n", len(text), to)
	return nil
}
