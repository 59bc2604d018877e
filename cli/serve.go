package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"library-lending/api"
)

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the library over HTTP until interrupted",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, _ []string) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			opts := api.Options{
				Addr:            a.cfg.HTTPAddr,
				RateLimitRPS:    a.cfg.RateLimitRPS,
				RateLimitBurst:  a.cfg.RateLimitBurst,
				ShutdownTimeout: a.cfg.ShutdownTimeout,
			}
			if addr != "" {
				opts.Addr = addr
			}
			return api.NewServer(a.lm, opts, a.log).Run(ctx)
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides LIBRARY_HTTP_ADDR)")
	return cmd
}
