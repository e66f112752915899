package main

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/owlpinetech/skyview/internal/logging"
	"github.com/owlpinetech/skyview/internal/observability"
)

func TestServeMetricsDisabled(t *testing.T) {
	collector, err := observability.NewCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	if srv := serveMetrics("", collector, logging.Noop()); srv != nil {
		t.Fatalf("expected no metrics server for an empty address")
	}
	if srv := serveMetrics(":0", nil, logging.Noop()); srv != nil {
		t.Fatalf("expected no metrics server without a collector")
	}
}

func TestServeMetricsStartsAndStops(t *testing.T) {
	collector, err := observability.NewCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	srv := serveMetrics("127.0.0.1:0", collector, logging.Noop())
	if srv == nil {
		t.Fatalf("expected a metrics server")
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
