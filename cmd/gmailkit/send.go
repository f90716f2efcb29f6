package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gmailkit/gmailkit/gmail"
)

func newSendCmd(rf *rootFlags) *cobra.Command {
	var c gmail.Compose
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Compose and send a message",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = args
			if c.From == "" || len(c.To) == 0 {
				return fmt.Errorf("--from and --to are required")
			}
			cfg, err := rf.resolve()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			svc, stop, err := connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer stop()

			msg, err := svc.Send(ctx, c)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "sent message %s\n", msg.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&c.From, "from", "", "sender address")
	cmd.Flags().StringSliceVar(&c.To, "to", nil, "recipient address (repeatable)")
	cmd.Flags().StringSliceVar(&c.Cc, "cc", nil, "cc address (repeatable)")
	cmd.Flags().StringSliceVar(&c.Bcc, "bcc", nil, "bcc address (repeatable)")
	cmd.Flags().StringVar(&c.Subject, "subject", "", "message subject")
	cmd.Flags().StringVar(&c.Plain, "body", "", "plain text body")
	cmd.Flags().StringVar(&c.HTML, "html", "", "HTML body")
	cmd.Flags().StringSliceVar(&c.Attachments, "attach", nil, "attachment file path (repeatable)")
	cmd.Flags().BoolVar(&c.Signature, "signature", false, "append the account's send-as signature")
	return cmd
}
