// Command benchmark runs the measurement sweep for catalogue algorithms and
// stores the results. With no arguments every catalogue entry is measured;
// otherwise the arguments are the algorithm ids to measure.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"graphbench/benchmark"
	"graphbench/collector"
	models "graphbench/db_models"
	"graphbench/middleware"

	log "github.com/sirupsen/logrus"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	configPath := os.Getenv("GRAPHBENCH_CONFIG")
	if configPath == "" {
		configPath = "graphbench_config.toml"
	}
	cfg, err := middleware.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration from %s: %v", configPath, err)
	}
	middleware.InitLogging(cfg.Log.Dir, "benchmark.log", cfg.Log.Level)

	ids, err := parseIDs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "usage: %s [algorithm-id ...]\n%v\n", os.Args[0], err)
		os.Exit(2)
	}

	db, err := middleware.ConnectToDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer middleware.CloseDB()

	if err := models.EnsureSchema(ctx, db, cfg.Database.Driver); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}
	if err := models.SeedAlgorithms(ctx, db, cfg.Algorithms); err != nil {
		log.Fatalf("Failed to seed algorithm catalogue: %v", err)
	}

	if len(ids) == 0 {
		all, err := models.ListAlgorithms(ctx, db, "", "")
		if err != nil {
			log.Fatalf("Failed to list algorithms: %v", err)
		}
		for _, a := range all {
			ids = append(ids, a.ID)
		}
	}

	host, _ := collector.Collect()
	log.WithFields(log.Fields{
		"cpu":        host.CPUInfo.ModelName,
		"cpus":       host.CPUInfo.LogicalCPUs,
		"gomaxprocs": host.GoMaxProcs,
		"sizes":      cfg.Benchmark.GraphSizes,
		"processors": cfg.Benchmark.ProcessorCounts,
	}).Infof("Benchmarking %d algorithms", len(ids))

	failed := 0
	for _, id := range ids {
		summary, err := benchmark.RunAndStore(ctx, db, cfg.Benchmark, id)
		if err != nil {
			failed++
			log.Errorf("Algorithm %d: %v", id, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		log.Infof("Algorithm %d: stored %d performance and %d speedup rows",
			id, summary.PerformanceRows, summary.SpeedupRows)
	}

	if failed > 0 {
		middleware.CloseDB()
		os.Exit(1)
	}
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id < 1 {
			return nil, fmt.Errorf("invalid algorithm id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
