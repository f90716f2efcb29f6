package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gmailkit/gmailkit/gmail"
)

func newFetchCmd(rf *rootFlags) *cobra.Command {
	sf := &searchFlags{}
	var (
		dir       string
		overwrite bool
		manifest  string
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download matching messages and their attachments",
		Long: `Fetch downloads every attachment of the matching messages into a
directory and writes a CSV manifest of the message metadata alongside
them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = args
			cfg, err := rf.resolve()
			if err != nil {
				return err
			}
			q, err := sf.buildQuery()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			svc, stop, err := connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer stop()

			msgs, err := svc.Messages(ctx, gmail.SearchOptions{
				Query:            q,
				IncludeSpamTrash: sf.spamTrash,
				Attachments:      gmail.AttachmentsReference,
				PageSize:         cfg.PageSize,
			})
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("create %s: %w", dir, err)
			}

			saved := 0
			for _, m := range msgs {
				for i := range m.Attachments {
					att := &m.Attachments[i]
					path := filepath.Join(dir, attachmentName(m.ID, i+1, att.Filename))
					if err := svc.SaveAttachment(ctx, att, path, overwrite); err != nil {
						return err
					}
					saved++
				}
			}

			if manifest != "" {
				if err := writeManifest(filepath.Join(dir, manifest), msgs); err != nil {
					return err
				}
			}
			fmt.Fprintf(os.Stdout, "fetched %d messages, %d attachments into %s\n", len(msgs), saved, dir)
			return nil
		},
	}
	sf.register(cmd)
	cmd.Flags().StringVar(&dir, "dir", "attachments", "output directory")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "overwrite existing files")
	cmd.Flags().StringVar(&manifest, "manifest", "manifest.csv", "manifest file name, empty to skip")
	return cmd
}

// attachmentName builds a collision-free file name from the message ID, the
// attachment's position and its cleaned original name.
func attachmentName(id gmail.MessageID, n int, filename string) string {
	return fmt.Sprintf("%s_%d_%s", id, n, cleanString(filename))
}

// cleanString replaces characters that make awkward file names.
func cleanString(s string) string {
	r := strings.NewReplacer("_", "-", " ", "-", "/", "-")
	return r.Replace(s)
}

func writeManifest(path string, msgs []gmail.Message) error {
	f, err := os.Create(path) // #nosec G304 - destination is caller input
	if err != nil {
		return fmt.Errorf("create manifest %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "sender", "recipient", "subject", "plain", "html", "date"}); err != nil {
		return fmt.Errorf("write manifest header: %w", err)
	}
	for _, m := range msgs {
		row := []string{
			string(m.ID), m.Sender, m.Recipient, m.Subject,
			m.Plain, m.HTML, m.Date.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write manifest row for %s: %w", m.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush manifest: %w", err)
	}
	return nil
}
