package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"infinite-experiment/plp/internal/api"
	"infinite-experiment/plp/internal/common"
	"infinite-experiment/plp/internal/config"
	"infinite-experiment/plp/internal/db"
	"infinite-experiment/plp/internal/host"
	"infinite-experiment/plp/internal/logging"
	"infinite-experiment/plp/internal/metrics"
	"infinite-experiment/plp/internal/routes"
	"infinite-experiment/plp/internal/workers"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	if err := logging.Init(cfg.App.Env); err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	logging.Info("PLP service starting up",
		"environment", cfg.App.Env,
		"timestamp", time.Now().Format(time.RFC3339),
	)

	// Connect to DB with sqlx
	if err := db.InitPostgres(cfg.DB); err != nil {
		logging.Fatal("Failed to connect to platform database (sqlx)", "error", err.Error())
	}
	logging.Info("Connected to platform database (sqlx)", "driver", cfg.DB.Driver)

	// Connect to DB with GORM
	gdb, err := db.InitPostgresORM(cfg.DB)
	if err != nil {
		logging.Fatal("Failed to connect to record store (GORM)", "error", err.Error())
	}

	cache, err := common.NewCache(cfg)
	if err != nil {
		logging.Fatal("Failed to initialize cache", "error", err.Error())
	}

	var files host.FileStore
	if cfg.Storage.Endpoint != "" {
		client, err := host.NewMinioClient(cfg.Storage)
		if err != nil {
			logging.Fatal("Failed to initialize object storage", "error", err.Error())
		}
		files = host.NewMinioFileStore(client, cfg.Storage.Bucket, gdb)
	} else {
		logging.Warn("No object storage configured, file fields will reject uploads")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metricsReg := metrics.NewMetricsRegistry(reg)

	deps, err := api.InitDependencies(cfg, gdb, db.DB, files, cache, metricsReg)
	if err != nil {
		logging.Fatal("Failed to initialize dependencies", "error", err.Error())
	}

	bgCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	if cfg.MIS.MonitorInterval > 0 {
		monitor := workers.NewMISMonitor(deps.Services.MIS, metricsReg, cfg.MIS.ProbeTimeout)
		go monitor.Start(bgCtx, cfg.MIS.MonitorInterval)
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           routes.RegisterRoutes(cfg, deps, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info("Server starting", "addr", cfg.HTTP.Addr, "environment", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("Server stopped", "error", err.Error())
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Graceful shutdown failed", "error", err.Error())
	}
	logging.Info("Server stopped")
}
