package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/TrishulMallur/EchoKey/internal/logging"
	"github.com/TrishulMallur/EchoKey/internal/metrics"
	"github.com/TrishulMallur/EchoKey/internal/tui"
)

// NewTryCommand creates the try command.
func NewTryCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		metricsAddr string
		logFile     string
	)
	cmd := &cobra.Command{
		Use:   "try",
		Short: "Open the interactive playground",
		Long: `Open a terminal playground with a plain field and a rich region, both
watched by an expansion session on the configured store. Expansions count
towards the usage statistics.

Logs would corrupt the screen, so they go to --log-file or nowhere. With
--metrics-addr (or metrics.addr) the session's counters are served at
/metrics while the playground runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withStore(cmd, func(ctx context.Context, e *env) error {
				var logOut io.Writer = io.Discard
				if logFile != "" {
					f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
					if err != nil {
						return e.out.Fail(ExitCommandError, ErrCodeConfig, "open log file", err)
					}
					defer f.Close()
					logOut = f
				}
				level := e.cfg.Log.Level
				if rootOpts.Verbose {
					level = "debug"
				}
				logger, err := logging.Setup(level, e.cfg.Log.Format, logOut)
				if err != nil {
					return e.out.Fail(ExitCommandError, ErrCodeConfig, "configure logging", err)
				}

				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				reg := prometheus.NewRegistry()
				reg.MustRegister(collectors.NewGoCollector())
				m := metrics.New(reg)

				if metricsAddr == "" {
					metricsAddr = e.cfg.Metrics.Addr
				}
				if metricsAddr != "" {
					srv, err := serveMetrics(metricsAddr, reg)
					if err != nil {
						return e.out.Fail(ExitCommandError, ErrCodeConfig, "serve metrics", err)
					}
					defer func() {
						shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
						defer cancel()
						if err := srv.Shutdown(shutdownCtx); err != nil {
							slog.Warn("Failed to stop metrics server", "error", err)
						}
					}()
				}

				return tui.Run(ctx, tui.Options{
					Store:          e.store,
					Metrics:        m,
					Logger:         logger,
					Prefix:         e.cfg.Engine.Prefix,
					MaxBuffer:      e.cfg.Engine.MaxBuffer,
					MaxSuggestions: e.cfg.Engine.MaxSuggestions,
					Debounce:       e.cfg.Engine.Debounce.Duration(),
					FlushInterval:  e.cfg.Stats.FlushInterval.Duration(),
				})
			})
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&logFile, "log-file", "", "append logs to this file")
	return cmd
}

// serveMetrics starts an HTTP server exposing reg at /metrics. The listener
// is bound before returning so address errors surface immediately.
func serveMetrics(addr string, reg *prometheus.Registry) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{\"status\":\"ok\"}"))
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "error", err)
		}
	}()
	slog.Info("Serving metrics", "addr", ln.Addr().String())
	return srv, nil
}
