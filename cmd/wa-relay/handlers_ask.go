package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/wa-relay/internal/config"
	"github.com/haasonsaas/wa-relay/internal/markdown"
)

type askOptions struct {
	sender      string
	raw         bool
	interactive bool
	args        []string
}

// runAsk implements the ask command.
func runAsk(cmd *cobra.Command, flags *globalFlags, opts askOptions) error {
	message := strings.TrimSpace(strings.Join(opts.args, " "))
	if message == "" && !opts.interactive {
		return errors.New("a message is required (or use --interactive)")
	}

	cfg, err := loadConfig(flags, config.NeedAssistant)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging, cmd.ErrOrStderr())

	tracer, shutdownTracer := newTracer(cfg.Observability.Tracing)
	defer func() { _ = shutdownTracer(cmd.Context()) }()

	bridge, err := newBridge(cfg, logger, nil, tracer)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	tables := markdown.ParseTableMode(cfg.Markdown.Tables, markdown.TableModeBullets)
	format := func(reply string) string {
		if opts.raw {
			return reply
		}
		return markdown.NormalizeWhatsApp(markdown.ConvertTables(reply, tables))
	}

	if message != "" {
		fmt.Fprintln(out, format(bridge.Reply(cmd.Context(), opts.sender, message)))
	}
	if !opts.interactive {
		return nil
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fmt.Fprintln(out, format(bridge.Reply(cmd.Context(), opts.sender, line)))
	}
}
