package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	conduit "github.com/conduit-labs/conduit"
	"github.com/conduit-labs/conduit/plugin"
	"github.com/conduit-labs/conduit/rest"
)

// cliService is the ad-hoc service the CLI registers for one-shot calls.
type cliService struct {
	conduit.BaseService
}

func (s *cliService) Key() conduit.ServiceKey { return "cli" }

// buildRegistry creates a registry from an optional config file and the
// --base-url override, and registers the CLI service.
func buildRegistry(configPath, baseURL string) (*conduit.Registry, *cliService, error) {
	reg := conduit.New()

	cfg := conduit.Config{}
	if configPath != "" {
		loaded, err := conduit.LoadConfig(configPath)
		if err != nil {
			return nil, nil, err
		}
		cfg = *loaded
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if err := reg.Initialize(cfg); err != nil {
		return nil, nil, err
	}

	svc := &cliService{}
	if err := reg.Register(svc); err != nil {
		return nil, nil, err
	}
	return reg, svc, nil
}

func newCallCmd() *cobra.Command {
	var (
		configPath string
		baseURL    string
		method     string
		data       string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "call <path>",
		Short: "Execute one request through the plugin pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, svc, err := buildRegistry(configPath, baseURL)
			if err != nil {
				return err
			}
			defer reg.Reset()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			var body []byte
			if data != "" {
				body = []byte(data)
			}
			res, err := svc.REST().Execute(ctx, plugin.Method(strings.ToUpper(method)), args[0], body, nil)
			if err != nil {
				var se *rest.StatusError
				if errors.As(err, &se) {
					fmt.Fprintf(cmd.ErrOrStderr(), "status %d\n%s\n", se.Status, se.Body)
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", res.Data)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "registry config file (.yaml or .json)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "base URL override")
	cmd.Flags().StringVarP(&method, "method", "X", "GET", "request method")
	cmd.Flags().StringVarP(&data, "data", "d", "", "request body")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall call timeout")
	return cmd
}
