package main

import (
	"github.com/spf13/cobra"

	"pytrace/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tracer over HTTP",
		Long: `serve accepts POST /run and POST /trace with {"language": "python", "code": "..."}
and answers {"trace": [...]}. GET /health, /version and /metrics are also available.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			f := cmd.Flags()
			if f.Changed("addr") {
				cfg.Serve.Addr, _ = f.GetString("addr")
			}
			if f.Changed("max-concurrent") {
				cfg.Serve.MaxConcurrent, _ = f.GetInt("max-concurrent")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			opts, err := cfg.RunOptions()
			if err != nil {
				return err
			}
			srv := server.New(server.Config{
				Addr:           cfg.Serve.Addr,
				MaxConcurrent:  cfg.Serve.MaxConcurrent,
				RequestTimeout: cfg.Serve.RequestTimeout.Std(),
				MaxBodyBytes:   cfg.Serve.MaxBodyBytes,
				Run:            opts,
				Logger:         a.log,
			})
			return srv.ListenAndServe(cmd.Context())
		},
	}
	cmd.Flags().String("addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().Int("max-concurrent", 4, "runs executing at the same time")
	return cmd
}
