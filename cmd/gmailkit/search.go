package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gmailkit/gmailkit/gmail"
	"github.com/gmailkit/gmailkit/query"
)

// searchFlags collects the criteria flags shared by search and fetch.
type searchFlags struct {
	raw       string
	from      []string
	to        []string
	subject   []string
	labels    []string
	newerThan string
	olderThan string
	exact     string
	unread    bool
	starred   bool
	important bool
	hasAttach bool
	spamTrash bool
}

func (sf *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&sf.raw, "query", "", "raw Gmail query (overrides the other criteria flags)")
	cmd.Flags().StringSliceVar(&sf.from, "from", nil, "sender address (repeatable, matches any)")
	cmd.Flags().StringSliceVar(&sf.to, "to", nil, "recipient address (repeatable, matches any)")
	cmd.Flags().StringSliceVar(&sf.subject, "subject", nil, "subject words (repeatable, matches any)")
	cmd.Flags().StringSliceVar(&sf.labels, "label", nil, "label name (repeatable, matches all)")
	cmd.Flags().StringVar(&sf.newerThan, "newer-than", "", "age window like 3d, 2m or 1y")
	cmd.Flags().StringVar(&sf.olderThan, "older-than", "", "age window like 3d, 2m or 1y")
	cmd.Flags().StringVar(&sf.exact, "exact", "", "exact phrase")
	cmd.Flags().BoolVar(&sf.unread, "unread", false, "only unread messages")
	cmd.Flags().BoolVar(&sf.starred, "starred", false, "only starred messages")
	cmd.Flags().BoolVar(&sf.important, "important", false, "only important messages")
	cmd.Flags().BoolVar(&sf.hasAttach, "has-attachment", false, "only messages with attachments")
	cmd.Flags().BoolVar(&sf.spamTrash, "include-spam-trash", false, "also search spam and trash")
}

func (sf *searchFlags) buildQuery() (string, error) {
	if sf.raw != "" {
		return sf.raw, nil
	}
	c := query.Criteria{}
	c = withAny(c, "sender", sf.from)
	c = withAny(c, "recipient", sf.to)
	c = withAny(c, "subject", sf.subject)
	if len(sf.labels) > 0 {
		c = c.With("labels", query.AllOf(sf.labels...))
	}
	if sf.newerThan != "" {
		n, unit, err := parseWindow(sf.newerThan)
		if err != nil {
			return "", fmt.Errorf("--newer-than: %w", err)
		}
		c = c.With("newer_than", query.Period(n, unit))
	}
	if sf.olderThan != "" {
		n, unit, err := parseWindow(sf.olderThan)
		if err != nil {
			return "", fmt.Errorf("--older-than: %w", err)
		}
		c = c.With("older_than", query.Period(n, unit))
	}
	if sf.exact != "" {
		c = c.With("exact_phrase", query.Scalar(sf.exact))
	}
	if sf.unread {
		c = c.With("unread", query.Flag())
	}
	if sf.starred {
		c = c.With("starred", query.Flag())
	}
	if sf.important {
		c = c.With("important", query.Flag())
	}
	if sf.hasAttach {
		c = c.With("attachment", query.Flag())
	}
	if len(c) == 0 {
		return "", nil
	}
	return query.Build(c)
}

func withAny(c query.Criteria, key string, values []string) query.Criteria {
	switch len(values) {
	case 0:
		return c
	case 1:
		return c.With(key, query.Scalar(values[0]))
	}
	return c.With(key, query.AnyOf(values...))
}

// parseWindow splits an age window like "3d" into its count and unit name.
func parseWindow(s string) (int, string, error) {
	units := map[byte]string{'d': "day", 'm': "month", 'y': "year"}
	if len(s) < 2 {
		return 0, "", fmt.Errorf("malformed window %q", s)
	}
	unit, ok := units[s[len(s)-1]]
	if !ok {
		return 0, "", fmt.Errorf("window %q must end in d, m or y", s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 0, "", fmt.Errorf("malformed window %q", s)
	}
	return n, unit, nil
}

func newSearchCmd(rf *rootFlags) *cobra.Command {
	sf := &searchFlags{}
	cmd := &cobra.Command{
		Use:   "search",
		Short: "List messages matching the given criteria",
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
				Attachments:      gmail.AttachmentsIgnore,
				PageSize:         cfg.PageSize,
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tFROM\tSUBJECT")
			for _, m := range msgs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					m.ID, m.Date.Format("2006-01-02 15:04"), m.Sender, oneLine(m.Subject))
			}
			return w.Flush()
		},
	}
	sf.register(cmd)
	return cmd
}

func oneLine(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "\t", " ")
}
