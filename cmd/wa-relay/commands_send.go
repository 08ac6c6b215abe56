package main

import "github.com/spf13/cobra"

// buildSendCmd creates the "send" command that delivers one text message
// through the WhatsApp Cloud API.
func buildSendCmd(flags *globalFlags) *cobra.Command {
	var (
		to     string
		format bool
	)

	cmd := &cobra.Command{
		Use:   "send --to <phone> <message>",
		Short: "Send a WhatsApp text message",
		Example: `  wa-relay send --to 15551234567 "Hello from wa-relay"
  wa-relay send --to 15551234567 --format "**bold** text"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, flags, to, args, format)
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Recipient phone number in international format")
	cmd.Flags().BoolVar(&format, "format", false, "Apply WhatsApp markdown normalization before sending")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
