package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/shahar-caura/gitnl/internal/intent"
	"github.com/shahar-caura/gitnl/internal/metrics"
	"github.com/shahar-caura/gitnl/internal/router"
	"github.com/shahar-caura/gitnl/internal/watch"
)

// watchRecord is one JSON line of watch output.
type watchRecord struct {
	ID      string          `json:"id"`
	Text    string          `json:"text"`
	Results []intent.Result `json:"results"`
}

func newWatchCmd(logger *slog.Logger, root *rootOptions) *cobra.Command {
	var metricsAddr string
	var noLLM bool

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Classify every line appended to a request file",
		Long: `Follow a file of requests, one per line, and print one JSON record per line:

  {"id": "...", "text": "...", "results": [...]}

Existing lines are classified first. Stop with Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			r, err := wireRouter(cfg, logger, metrics.New(reg), noLLM)
			if err != nil {
				return fmt.Errorf("building router: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			if metricsAddr != "" {
				shutdown := serveMetrics(metricsAddr, reg, logger)
				defer shutdown()
			}

			return runWatch(ctx, args[0], r, cmd.OutOrStdout(), logger)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().BoolVar(&noLLM, "no-llm", false, "disable the LLM fallback")

	return cmd
}

func runWatch(ctx context.Context, path string, r *router.Router, w io.Writer, logger *slog.Logger) error {
	enc := json.NewEncoder(w)

	logger.Info("watching request file", "path", path)
	return watch.Tail(ctx, path, func(line string) error {
		rec := watchRecord{
			ID:      uuid.NewString(),
			Text:    line,
			Results: r.RouteMany(ctx, line),
		}
		logger.Debug("classified request", "id", rec.ID, "clauses", len(rec.Results))

		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
		return nil
	}, logger)
}

// serveMetrics exposes reg on addr and returns a function that stops the
// server.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
