// Command skyviewd serves visibility reports over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/owlpinetech/skyview/internal/config"
	"github.com/owlpinetech/skyview/internal/logging"
	"github.com/owlpinetech/skyview/internal/observability"
	"github.com/owlpinetech/skyview/internal/observe"
	"github.com/owlpinetech/skyview/internal/server"
)

func main() {
	cfg, err := config.Load()
	log := logging.NewFromEnv()
	ctx := context.Background()
	if err != nil {
		log.Error(ctx, "failed to load configuration", logging.Err(err))
		os.Exit(1)
	}

	appAddr := flag.String("addr", cfg.AppAddr, "HTTP address the visibility API listens on")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "HTTP address for Prometheus /metrics, empty to serve it on the API address only")
	flag.Parse()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.TracingEnabled,
		ServiceName: "skyviewd",
		Exporter:    cfg.TracingExporter,
		Endpoint:    cfg.TracingEndpoint,
	}, log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.Err(err))
		os.Exit(1)
	}

	obs, err := observe.NewFromConfig(cfg, log, collector)
	if err != nil {
		log.Error(ctx, "invalid configuration", logging.Err(err))
		os.Exit(1)
	}

	metricsSrv := serveMetrics(*metricsAddr, collector, log)

	srv := &http.Server{
		Addr:         *appAddr,
		Handler:      server.NewRouter(server.NewHandlers(obs, collector, log)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.GeocodeTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info(ctx, "starting visibility server",
			logging.String("addr", *appAddr),
			logging.Float("aperture_deg", cfg.ApertureDegrees),
			logging.String("scheme", cfg.Scheme),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "visibility server exited", logging.Err(err))
			os.Exit(1)
		}
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-stopCtx.Done()

	log.Info(ctx, "shutting down visibility server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn(ctx, "server forced to shut down", logging.Err(err))
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}

func serveMetrics(addr string, collector *observability.Collector, log logging.Logger) *http.Server {
	if collector == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
