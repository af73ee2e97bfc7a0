// Package main provides the analyzer service:
// - HTTP API: on-demand analyses, saved analyses, live monitors
// - Scheduler (optional): periodic re-analysis of saved addresses
// - Prometheus metrics on /metrics
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/SprengerV/volume-analyzer/internal/api"
	"github.com/SprengerV/volume-analyzer/internal/app"
	"github.com/SprengerV/volume-analyzer/internal/config"
	"github.com/SprengerV/volume-analyzer/internal/scheduler"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	addr := flag.String("addr", "", "HTTP listen address (empty uses the configured default)")
	monitors := flag.String("monitor", "", "Comma-separated addresses to monitor from startup")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing: %v\n", err)
		os.Exit(1)
	}
	logger := a.Logger

	opts := api.Options{
		RPC:      a.RPC,
		Store:    a.Store,
		Analyzer: a.Analyzer,
		Registry: a.Registry,
		Logger:   logger.WithField("component", "api"),
	}

	var sched *scheduler.Scheduler
	if cfg.Analysis.Schedule != "" {
		sched, err = scheduler.New(ctx, scheduler.Options{
			Spec:     cfg.Analysis.Schedule,
			Store:    a.Store,
			Analyzer: a.Analyzer,
			Lookback: cfg.Analysis.Lookback,
			Logger:   logger,
		})
		if err != nil {
			a.Close()
			logger.Fatalf("Scheduler: %v", err)
		}
		opts.Reanalyzer = sched
		sched.Start()
	}

	for _, address := range strings.Split(*monitors, ",") {
		if address = strings.TrimSpace(address); address == "" {
			continue
		}
		if _, err := a.Registry.Start(address); err != nil {
			logger.WithError(err).WithField("address", address).Warn("start monitor")
		}
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.New(opts).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Infof("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-serveErr:
		if err != nil {
			logger.WithError(err).Error("HTTP server failed")
		}
	}

	// A second signal forces exit.
	go func() {
		sig := <-sigCh
		logger.Warnf("Received second signal %v, forcing immediate shutdown", sig)
		os.Exit(1)
	}()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP shutdown")
	}
	if sched != nil {
		sched.Stop()
	}
	cancel()
	if err := a.Close(); err != nil {
		logger.WithError(err).Warn("close")
	}
	logger.Info("Shutdown complete")
}
