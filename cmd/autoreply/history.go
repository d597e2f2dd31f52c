package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajramos/gmail-autoreply/internal/db"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the most recent replies recorded in the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			path := journalPath(cfg)
			if !fileExists(path) {
				fmt.Fprintf(cmd.OutOrStdout(), "No reply journal at %s (enable journal.enabled to record replies)\n", path)
				return nil
			}

			store, err := db.Open(cmd.Context(), path)
			if err != nil {
				return err
			}
			defer store.Close()

			schema, err := store.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Journal: %s (schema v%d)\n", path, schema)

			rows, err := db.NewReplyStore(store).Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No replies recorded yet")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SENT AT\tTO\tSUBJECT\tMESSAGE\tREPLY")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Time().Format(time.RFC3339), r.Recipient, r.Subject, r.MessageID, r.SentID)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	return cmd
}
