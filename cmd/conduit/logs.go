package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/conduit-labs/conduit/internal/requestlog"
)

func newLogsCmd() *cobra.Command {
	var (
		dsn   string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent call records from a request-logger sqlite sink",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := requestlog.NewSQLiteWriter(dsn)
			if err != nil {
				return err
			}
			defer func() { _ = w.Close() }()

			entries, err := w.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tCALL\tMETHOD\tURL\tSTATUS\tLATENCY\tERROR")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%dms\t%s\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"),
					short(e.CallID),
					e.Method,
					e.URL,
					e.Status,
					e.LatencyMS,
					e.ErrorMessage,
				)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&dsn, "db", "conduit-calls.db", "sqlite call log path")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries to show")
	return cmd
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
