// Command conduit is the developer tool for the conduit data-access layer:
// a local test-bench server plus one-shot call and stream clients that run
// through the full plugin pipeline.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conduit-labs/conduit/internal/version"

	// Register config-driven plugins.
	_ "github.com/conduit-labs/conduit/plugins/auth"
	_ "github.com/conduit-labs/conduit/plugins/cache"
	_ "github.com/conduit-labs/conduit/plugins/logger"
)

func main() {
	root := &cobra.Command{
		Use:           "conduit",
		Short:         "Pluggable protocol engine for typed service calls",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newCallCmd())
	root.AddCommand(newStreamCmd())
	root.AddCommand(newLogsCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
