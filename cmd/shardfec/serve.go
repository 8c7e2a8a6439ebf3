package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shardfec/shardfec/frame"
	"github.com/shardfec/shardfec/videoquic"
)

func newServeCmd(o *options) *cobra.Command {
	var listen, metricsAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Receive frames over QUIC and report what arrives",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&listen, "listen", "", "UDP listen address (defaults to the config)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this HTTP address")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg := o.cfg
		if listen != "" {
			cfg.Listen = listen
		}
		if metricsAddr != "" {
			cfg.MetricsAddr = metricsAddr
		}
		tlsConf, err := videoquic.GenerateServerTLSConfig(cfg.ALPN)
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m := videoquic.NewMetrics(reg)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		g, ctx := errgroup.WithContext(ctx)

		if cfg.MetricsAddr != "" {
			srv := &http.Server{
				Addr:              cfg.MetricsAddr,
				Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
				ReadHeaderTimeout: 5 * time.Second,
			}
			g.Go(func() error {
				log.Infow("serving metrics", "addr", cfg.MetricsAddr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return errors.Wrap(err, "metrics server")
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
		}
		g.Go(func() error {
			return videoquic.Serve(ctx, cfg, tlsConf, m, func(f frame.Frame) {
				latency := time.Duration(time.Now().UnixMicro()-int64(f.SentTimeUs)) * time.Microsecond
				log.Infow("frame", "index", f.VideoFrameIndex, "size", len(f.Data), "latency", latency)
			})
		})
		return g.Wait()
	}
	return cmd
}
