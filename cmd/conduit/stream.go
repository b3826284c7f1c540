package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conduit-labs/conduit/plugin"
)

func newStreamCmd() *cobra.Command {
	var (
		configPath string
		baseURL    string
	)

	cmd := &cobra.Command{
		Use:   "stream <path>",
		Short: "Follow an event stream through the plugin pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, svc, err := buildRegistry(configPath, baseURL)
			if err != nil {
				return err
			}
			defer reg.Reset()

			done := make(chan struct{})
			id, err := svc.Stream().Connect(cmd.Context(), args[0],
				func(ev plugin.StreamEvent) {
					fmt.Fprintln(cmd.OutOrStdout(), ev.Data)
				},
				func() {
					close(done)
				},
			)
			if err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-done:
			case <-stop:
				svc.Stream().Disconnect(id)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "registry config file (.yaml or .json)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "base URL override")
	return cmd
}
