package main

import (
	"context"
	"time"

	"github.com/aretw0/sessiontable"
	httpAdapter "github.com/aretw0/sessiontable/internal/adapters/http"
	"github.com/aretw0/sessiontable/internal/cli"
	"github.com/aretw0/sessiontable/internal/presentation/tui"
	"github.com/aretw0/sessiontable/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func newReapCmd(a *app) *cobra.Command {
	var (
		interval    time.Duration
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "reap",
		Short: "Remove expired sessions on a fixed interval until interrupted",
		Long: `Runs cleanup immediately and then every --interval until SIGINT or SIGTERM.
With --metrics-addr, /metrics (Prometheus) and /healthz are served on that address.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("interval") {
				interval = a.cfg.CleanupInterval
			}
			if !cmd.Flags().Changed("metrics-addr") {
				metricsAddr = a.cfg.MetricsAddr
			}

			sigCtx := cli.NewSignalContext(cmd.Context())
			defer sigCtx.Cancel()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			store, err := a.open(cmd, reg)
			if err != nil {
				return err
			}
			defer store.Close()

			if a.out.Styled() {
				tui.PrintBanner(cmd.OutOrStdout(), sessiontable.Version)
			}

			serverErrors := make(chan error, 1)
			if metricsAddr != "" {
				handler := httpAdapter.NewHandler(store, reg, a.logger)
				go func() {
					serverErrors <- httpAdapter.Serve(sigCtx, metricsAddr, handler, a.logger)
				}()
			}

			reaperCtx, stopReaper := context.WithCancel(sigCtx)
			defer stopReaper()

			reaperDone := make(chan error, 1)
			reaper := session.NewReaper(store, interval, session.WithLogger(a.logger))
			go func() { reaperDone <- reaper.Run(reaperCtx) }()

			select {
			case err := <-reaperDone:
				sigCtx.Cancel()
				return err
			case err := <-serverErrors:
				stopReaper()
				<-reaperDone
				return err
			case <-sigCtx.Done():
				err := <-reaperDone
				if sig := sigCtx.Signal(); sig != nil {
					a.logger.Info("shutting down", "signal", sig.String())
				}
				if metricsAddr != "" {
					if serr := <-serverErrors; serr != nil && err == nil {
						err = serr
					}
				}
				return err
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Time between sweeps (default from config, 15m)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve /metrics and /healthz on this address, e.g. :9090")
	return cmd
}
