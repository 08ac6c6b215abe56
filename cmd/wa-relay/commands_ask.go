package main

import "github.com/spf13/cobra"

// buildAskCmd creates the "ask" command that runs assistant turns from the
// terminal, without WhatsApp.
func buildAskCmd(flags *globalFlags) *cobra.Command {
	var (
		sender      string
		raw         bool
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Send a message to the assistant and print the reply",
		Long: `Run one assistant turn the same way the webhook does and print the reply
as it would be sent to WhatsApp.

With --interactive, every line read from stdin is a new turn on the same
thread until EOF.`,
		Example: `  wa-relay ask "What are your opening hours?"
  wa-relay ask --interactive --sender 15551234567`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, flags, askOptions{
				sender:      sender,
				raw:         raw,
				interactive: interactive,
				args:        args,
			})
		},
	}

	cmd.Flags().StringVar(&sender, "sender", "cli", "Sender id used to pick the assistant thread")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the assistant reply without WhatsApp formatting")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Read messages from stdin, one per line")
	return cmd
}
