package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stackload/internal/metrics"
	"github.com/matzehuels/stackload/internal/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve program assembly over HTTP",
		Long: `Serve starts an HTTP server with the endpoints:

  GET  /healthz       liveness probe
  GET  /metrics       Prometheus metrics
  POST /v1/assemble   {"uri": "...", "add": [locator, ...]}
  POST /v1/provision  {"url": "...", "assemble": true}

Each assemble request runs in its own sandbox; downloads are shared.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, closer, err := c.newAssembler(ctx)
			if err != nil {
				return err
			}
			defer closer.Close()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			m := metrics.New(reg)
			m.Install()

			srv := server.New(a, server.Options{Metrics: m.Handler(), Logger: c.Logger})
			return srv.ListenAndServe(ctx, c.cfg.Serve.Addr)
		},
	}

	cmd.Flags().String("addr", c.cfg.Serve.Addr, "listen address")
	_ = c.viper.BindPFlag("serve.addr", cmd.Flags().Lookup("addr"))

	return cmd
}
