// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command buildgraphd starts the versioned build-graph API server.
//
// The server maintains one in-memory versioned build-graph index per
// repository: commits apply atomically, each gets a monotonically
// increasing generation, and every query reads the graph as of a named
// commit regardless of later ingestion.
//
// Usage:
//
//	go run ./cmd/buildgraphd
//	go run ./cmd/buildgraphd -port 9090
//	go run ./cmd/buildgraphd -config /etc/buildgraph/config.yaml
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/v1/graph/health
//
//	# Ingest a commit
//	curl -X POST http://localhost:8080/v1/graph/repos/myrepo/commits \
//	  -H "Content-Type: application/json" \
//	  -d '{"delta": {"commit_id": "abc123", "added_targets": ["//lib:core"]}}'
//
//	# List targets as of that commit
//	curl http://localhost:8080/v1/graph/repos/myrepo/commits/abc123/targets
//
//	# Resolve transitive dependencies
//	curl -X POST http://localhost:8080/v1/graph/repos/myrepo/commits/abc123/deps \
//	  -H "Content-Type: application/json" \
//	  -d '{"targets": ["//app:main"], "transitive": true}'
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/buildgraph/pkg/logging"
	graphsvc "github.com/AleutianAI/buildgraph/services/graph"
	"github.com/AleutianAI/buildgraph/services/graph/config"
	"github.com/AleutianAI/buildgraph/services/graph/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	port := flag.Int("port", 0, "Port to listen on (overrides config)")
	configPath := flag.String("config", "", "Path to YAML config file")
	debug := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "buildgraphd: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *debug {
		cfg.Logging.Level = "debug"
	}

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Logging.Level),
		LogDir:  cfg.Logging.Dir,
		Service: "buildgraphd",
	})
	defer logger.Close()

	// Telemetry
	telCfg := telemetry.DefaultConfig()
	telCfg.TraceExporter = cfg.Telemetry.TraceExporter
	telCfg.MetricExporter = cfg.Telemetry.MetricExporter
	if cfg.Telemetry.OTLPEndpoint != "" {
		telCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	}
	shutdownTelemetry, err := telemetry.Init(context.Background(), telCfg)
	if err != nil {
		logger.Error("Failed to initialize telemetry", "error", err)
		os.Exit(1)
	}

	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	svcCfg := graphsvc.DefaultServiceConfig()
	svcCfg.MaxTargets = cfg.Limits.MaxTargets
	svcCfg.MaxDepsPerTarget = cfg.Limits.MaxDepsPerTarget
	svcCfg.KeepGenerations = cfg.Compaction.KeepGenerations
	svc := graphsvc.NewService(svcCfg, logger)
	handlers := graphsvc.NewHandlers(svc)

	router := gin.New()
	router.Use(gin.Recovery())
	if *debug {
		router.Use(gin.Logger())
	}
	router.Use(otelgin.Middleware(telCfg.ServiceName))
	router.Use(graphsvc.RequestIDMiddleware())
	if cfg.Server.RateLimitRPS > 0 {
		router.Use(graphsvc.RateLimitMiddleware(
			cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))
	}

	v1 := router.Group("/v1")
	graphsvc.RegisterRoutes(v1, handlers)

	if mh := telemetry.MetricsHandler(); mh != nil {
		router.GET("/metrics", gin.WrapH(mh))
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("Starting build-graph server", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	logger.Info("Shutting down build-graph server")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
	if err := shutdownTelemetry(ctx); err != nil {
		logger.Error("Telemetry shutdown failed", "error", err)
	}
}

// loadConfig loads the YAML config. An empty path yields the defaults
// with environment overrides applied.
func loadConfig(path string) (config.Config, error) {
	return config.Load(path)
}
