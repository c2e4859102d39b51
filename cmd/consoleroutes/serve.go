package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/consoleroutes/pkg/historyserver"
	"github.com/vango-dev/consoleroutes/pkg/manifest"
	"github.com/vango-dev/consoleroutes/pkg/middleware"
	"github.com/vango-dev/consoleroutes/pkg/views"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the console in history mode",
		Long: `Serve the console's shell for every path the route table resolves.

Examples:
  consoleroutes serve
  consoleroutes serve --port=9000
  consoleroutes serve -c deploy/consoleroutes.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reg := views.Console()
			table, err := buildTable(ctx, cfg, reg)
			if err != nil {
				return err
			}

			readTimeout, err := cfg.ReadTimeout()
			if err != nil {
				return err
			}
			opts := []historyserver.Option{
				historyserver.WithShell(cfg.ShellPath()),
				historyserver.WithStatic(cfg.StaticPath()),
				historyserver.WithReadTimeout(readTimeout),
			}
			if len(cfg.Server.AllowedOrigins) > 0 {
				opts = append(opts, historyserver.WithCheckOrigin(historyserver.AllowOrigins(cfg.Server.AllowedOrigins...)))
			}
			if cfg.Metrics.Enabled {
				promReg := prometheus.NewRegistry()
				promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
				m := middleware.NewMetrics(
					middleware.WithRegistry(promReg),
					middleware.WithNamespace(cfg.Metrics.Namespace),
				)
				opts = append(opts, historyserver.WithMetrics(m, promReg, cfg.Metrics.Path))
			}
			if cfg.Tracing.Enabled {
				opts = append(opts, historyserver.WithTracing())
			}
			srv := historyserver.New(table, opts...)

			out := cmd.OutOrStdout()
			success(out, "Loaded %d routes", table.Len())
			info(out, "http://%s", cfg.Address())

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.ListenAndServe(ctx, cfg.Address())
			})

			_, manifestPath, _ := cfg.ManifestLocation()
			if cfg.Routes.Watch && cfg.Routes.Manifest != "" {
				w, err := manifest.NewWatcher(manifestPath, table, reg)
				if err != nil {
					return err
				}
				w.OnReload(srv.TableChanged)
				if err := w.Start(); err != nil {
					return err
				}
				info(out, "Watching %s", manifestPath)
				g.Go(func() error {
					return w.Run(ctx)
				})
			} else if cfg.Routes.Watch {
				warn(out, "routes.watch is set but no manifest is configured")
			}

			return g.Wait()
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from consoleroutes.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from consoleroutes.json)")

	return cmd
}
