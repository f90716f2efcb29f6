package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gmailkit/gmailkit/gmail"
)

func newLabelsCmd(rf *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Manage labels",
	}
	cmd.AddCommand(newLabelsListCmd(rf))
	cmd.AddCommand(newLabelsCreateCmd(rf))
	cmd.AddCommand(newLabelsDeleteCmd(rf))
	return cmd
}

func newLabelsListCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the account's labels",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = args
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

			labels, err := svc.Labels(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tNAME")
			for _, l := range labels {
				fmt.Fprintf(w, "%s\t%s\t%s\n", l.ID, l.Type, l.Name)
			}
			return w.Flush()
		},
	}
}

func newLabelsCreateCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create a label if it does not exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			lbl, err := svc.EnsureLabel(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "label %s (%s)\n", lbl.Name, lbl.ID)
			return nil
		},
	}
}

func newLabelsDeleteCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a label by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			if err := svc.DeleteLabel(ctx, gmail.LabelID(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "deleted label %s\n", args[0])
			return nil
		},
	}
}
