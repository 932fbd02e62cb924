// Command loadmanager wires the adaptive query load manager library to a
// Prometheus /metrics endpoint and a /healthz probe. It does not execute
// queries, parse query text, or proxy traffic — those stay external
// collaborators, referenced by this subsystem only through its contracts.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mixaill76/adaptive-load-manager/internal/config"
	"github.com/mixaill76/adaptive-load-manager/internal/loadmanager"
	"github.com/mixaill76/adaptive-load-manager/internal/logger"
	"github.com/mixaill76/adaptive-load-manager/internal/monitoring"
)

func main() {
	cfgPath := os.Getenv("LOAD_MANAGER_CONFIG")

	var cfg *config.LoadManagerConfig
	var err error
	if cfgPath != "" {
		cfg, err = config.Load(cfgPath)
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LoggingLevel).With("deployment_id", cfg.DeploymentID)

	registerer := prometheus.NewRegistry()
	registry := monitoring.NewPrometheusRegistry(registerer, cfg.MetricsEnabled)

	lm, err := loadmanager.New(cfg, log, registry)
	if err != nil {
		log.Error("constructing load manager", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registerer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok jailed_shapes=%d\n", lm.JailedCount())
	})

	addr := os.Getenv("LOAD_MANAGER_LISTEN_ADDR")
	if addr == "" {
		addr = ":9090"
	}

	log.Info("load manager listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("http server exited", "error", err)
		os.Exit(1)
	}
}
