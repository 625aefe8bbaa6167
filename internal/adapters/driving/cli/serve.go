package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
	"github.com/InfinityXone/construct-iq/internal/logger"
)

const shutdownTimeout = 10 * time.Second

var (
	serveInterval    time.Duration
	serveMetricsAddr string
	serveWatchFields bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Harvest on a schedule until interrupted",
	Long: `Runs the rate-harvest task on its interval. A failed cycle is logged and
retried after the failure backoff; the process keeps running.

With --metrics-addr, Prometheus metrics are served at /metrics and a
liveness probe at /healthz.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().DurationVar(&serveInterval, "interval", 0, "harvest interval (overrides schedule.interval)")
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", "", "listen address for /metrics (overrides metrics.addr)")
	serveCmd.Flags().BoolVar(&serveWatchFields, "watch-fields", false, "reload the field table when its file changes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if newScheduler == nil || settingsService == nil {
		return fmt.Errorf("serve: %w", errNotConfigured)
	}
	ctx := cmd.Context()

	warnInvalidSettings()
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	schedule := settings.Schedule
	if serveInterval > 0 {
		schedule.Interval = serveInterval
	}
	addr := settings.MetricsAddr
	if serveMetricsAddr != "" {
		addr = serveMetricsAddr
	}

	if serveWatchFields {
		if watchFields == nil {
			return fmt.Errorf("watch fields: %w", errNotConfigured)
		}
		go func() {
			if err := watchFields(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warnw("field table watch stopped", "error", err)
			}
		}()
	}

	var srv *http.Server
	if addr != "" {
		srv, err = startMetricsServer(addr)
		if err != nil {
			return err
		}
	}

	sched := newScheduler(schedule.SchedulerConfig())
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	logger.Infow("serving", "interval", schedule.Interval.String(), "metrics_addr", addr)

	<-ctx.Done()
	logger.Info("shutting down")

	if err := sched.Stop(); err != nil {
		logger.Warnw("scheduler stop failed", "error", err)
	}
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warnw("metrics server shutdown failed", "error", err)
		}
	}
	return nil
}

func startMetricsServer(addr string) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           newServeMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("metrics server failed", "error", err)
		}
	}()
	logger.Infow("metrics listening", "addr", ln.Addr().String())
	return srv, nil
}

func newServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		status := domain.CycleStatus{}
		if harvestController != nil {
			status = harvestController.Status()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":     "ok",
			"harvesting": status.Running,
			"cycle_id":   status.CycleID,
		})
	})
	return mux
}
