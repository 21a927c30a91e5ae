package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"graphbench/benchmark"
	"graphbench/caching"
	"graphbench/controller"
	"graphbench/controller/benchmark_api"
	"graphbench/controller/catalog_api"
	"graphbench/controller/graph_api"
	"graphbench/controller/run_api"
	models "graphbench/db_models"
	"graphbench/etcd"
	"graphbench/goroutine_pool"
	"graphbench/middleware"
	"graphbench/structs"

	log "github.com/sirupsen/logrus"
)

func main() {
	// Create a cancellable root context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	go func() {
		<-shutdownSignal
		log.Infof("Received shutdown signal. Initiating graceful shutdown...")
		cancel()
	}()

	configPath := os.Getenv("GRAPHBENCH_CONFIG")
	if configPath == "" {
		configPath = "graphbench_config.toml"
	}

	cfg, err := middleware.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration from %s: %v", configPath, err)
	}
	middleware.InitLogging(cfg.Log.Dir, "graphbench.log", cfg.Log.Level)
	log.Infof("Configuration loaded from %s", configPath)

	db, err := middleware.ConnectToDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.EnsureSchema(ctx, db, cfg.Database.Driver); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}
	if err := models.SeedAlgorithms(ctx, db, cfg.Algorithms); err != nil {
		log.Errorf("Error during algorithm catalogue seeding: %v", err)
	} else {
		log.Infof("Algorithm catalogue processing completed.")
	}

	cache := caching.NewGraphCache(cfg.Redis)
	defer cache.Close()

	// Sweeps run locally unless etcd dispatch is enabled.
	var publisher benchmark.Publisher
	if cfg.Etcd.Enabled {
		p, err := etcd.NewTaskPublisher(cfg.Etcd)
		if err != nil {
			log.Fatalf("Failed to create etcd task publisher: %v", err)
		}
		defer p.Close()
		publisher = p
		log.Infof("Benchmark jobs will be dispatched through etcd %v", cfg.Etcd.Endpoints)

		if cfg.Etcd.RunWorker {
			worker, err := etcd.NewTaskWorker(cfg.Etcd, cfg.Benchmark.PoolSize)
			if err != nil {
				log.Fatalf("Failed to create etcd task worker: %v", err)
			}
			worker.RegisterProcessor(etcd.TaskTypeBenchmark, benchmark.TaskProcessor(db, cfg.Benchmark))

			wg.Add(1)
			go func() {
				defer wg.Done()
				defer worker.Close()
				if err := worker.Start(ctx); err != nil {
					log.Errorf("etcd task worker stopped: %v", err)
				}
			}()
		}
	}

	benchCfg := cfg.Benchmark
	jobs := benchmark.NewManager(ctx, func(ctx context.Context, algorithmID int64) (benchmark.Summary, error) {
		return benchmark.RunAndStore(ctx, db, benchCfg, algorithmID)
	}, publisher)
	if err := jobs.Start(cfg.Benchmark.PoolSize); err != nil {
		log.Fatalf("Failed to start benchmark job pool: %v", err)
	}

	store := graph_api.NewStore(db, cache)
	handlers := []controller.RouteRegistrar{
		catalog_api.NewHandler(db),
		graph_api.NewHandler(store, cfg.Server.MaxGraphSize),
		run_api.NewHandler(store, 0),
		benchmark_api.NewHandler(jobs, func(ctx context.Context, id int64) (*structs.Algorithm, error) {
			return models.GetAlgorithm(ctx, db, id)
		}),
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := controller.StartServer(ctx, cfg.Server, handlers...); err != nil {
			log.Errorf("API server failed: %v", err)
			cancel()
		}
		log.Infof("API server shutdown complete.")
	}()

	log.Infof("Application started. Press Ctrl+C to exit gracefully.")

	<-ctx.Done()
	log.Infof("Context canceled. Waiting for all services to stop...")

	shutdownTimeout := time.NewTimer(10 * time.Second)
	done := make(chan struct{})

	go func() {
		wg.Wait()
		jobs.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Infof("All services stopped gracefully.")
	case <-shutdownTimeout.C:
		log.Infof("Shutdown timeout reached. Some services may not have stopped gracefully.")
	}

	goroutine_pool.ReleaseAllPools()
	middleware.CloseDB()
	log.Infof("Shutdown complete. Exiting.")
}
