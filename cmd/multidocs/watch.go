package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	derrors "git.home.luguber.info/inful/multidocs/internal/foundation/errors"
	"git.home.luguber.info/inful/multidocs/internal/host"
	"git.home.luguber.info/inful/multidocs/internal/logfields"
	"git.home.luguber.info/inful/multidocs/internal/metrics"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Output      string        `short:"o" help:"Override site.out_dir"`
	Debounce    time.Duration `help:"Quiet period before rebuilding" default:"500ms"`
	MetricsAddr string        `name:"metrics-addr" help:"Serve Prometheus metrics on this address (e.g. :9090)"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := g.load(root)
	if err != nil {
		return err
	}
	applyOutput(cfg, w.Output)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if w.MetricsAddr != "" {
		reg := prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
		shutdown, err := serveMetrics(g, w.MetricsAddr, reg)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	pipeline := newPipeline(g, recorder, false)
	res, err := pipeline.Build(ctx, cfg)
	if err != nil {
		return err
	}

	watcher, err := host.NewWatcher(res.PathsToWatch, w.Debounce, g.logger)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryFileSystem, "start file watcher").Build()
	}
	g.logger.Info("Watching for changes", slog.Int("paths", len(res.PathsToWatch)))

	return watcher.Run(ctx, func(ctx context.Context) error {
		_, err := pipeline.Build(ctx, cfg)
		return err
	})
}

func serveMetrics(g *Global, addr string, reg *prom.Registry) (func(), error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	select {
	case err := <-errCh:
		return nil, derrors.WrapError(err, derrors.CategoryConfig, "serve metrics").
			WithContext("addr", addr).
			Build()
	case <-time.After(50 * time.Millisecond):
	}
	g.logger.Info("Serving metrics", slog.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			g.logger.Warn("Metrics server shutdown failed", logfields.Error(err))
		}
	}, nil
}
