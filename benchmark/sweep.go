package benchmark

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"graphbench/algorithms"
	"graphbench/db_models"
	"graphbench/etcd"
	"graphbench/graph"
	"graphbench/structs"

	log "github.com/sirupsen/logrus"
)

var ErrNothingToMeasure = errors.New("benchmark needs at least one graph size and processor count")

// Summary is what a finished sweep reports back to jobs and etcd tasks.
type Summary struct {
	AlgorithmID     int64 `json:"algorithm_id"`
	PerformanceRows int   `json:"performance_rows"`
	SpeedupRows     int   `json:"speedup_rows"`
}

// Sweep measures one catalogue algorithm. Each configured graph size gives a
// PerformanceData row comparing the sequential kernel with the algorithm's
// implementation at the highest processor count; each processor count gives
// a SpeedupData row measured on the largest graph. Graphs come from a fixed
// seed so repeated sweeps time the same inputs.
func Sweep(ctx context.Context, cfg structs.BenchmarkConfig, a structs.Algorithm) ([]structs.PerformanceData, []structs.SpeedupData, error) {
	if len(cfg.GraphSizes) == 0 || len(cfg.ProcessorCounts) == 0 {
		return nil, nil, ErrNothingToMeasure
	}
	sizes := append([]int(nil), cfg.GraphSizes...)
	sort.Ints(sizes)
	maxProcs := 1
	for _, p := range cfg.ProcessorCounts {
		if p > maxProcs {
			maxProcs = p
		}
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	perf := make([]structs.PerformanceData, 0, len(sizes))
	var (
		largest    *graph.Matrix
		largestSeq time.Duration
	)
	for _, size := range sizes {
		g, err := graph.GenerateRandom(size, cfg.Density, rng)
		if err != nil {
			return nil, nil, fmt.Errorf("generate graph of size %d: %w", size, err)
		}

		seq, err := best(ctx, cfg.Repeats, algorithms.Request{
			Algorithm: a.AlgorithmType, Implementation: structs.Sequential, Graph: g,
		})
		if err != nil {
			return nil, nil, err
		}
		par, err := best(ctx, cfg.Repeats, algorithms.Request{
			Algorithm: a.AlgorithmType, Implementation: a.ImplementationType, Graph: g, Workers: maxProcs,
		})
		if err != nil {
			return nil, nil, err
		}

		perf = append(perf, structs.PerformanceData{
			GraphSize:      size,
			SequentialTime: seq.Seconds(),
			ParallelTime:   par.Seconds(),
			Speedup:        structs.ComputeSpeedup(seq.Seconds(), par.Seconds()),
		})
		largest, largestSeq = g, seq
		log.WithFields(log.Fields{
			"algorithm": a.Name,
			"size":      size,
			"seq":       seq,
			"par":       par,
		}).Debug("size measured")
	}

	speedup := make([]structs.SpeedupData, 0, len(cfg.ProcessorCounts))
	for _, p := range cfg.ProcessorCounts {
		tp, err := best(ctx, cfg.Repeats, algorithms.Request{
			Algorithm: a.AlgorithmType, Implementation: a.ImplementationType, Graph: largest, Workers: p,
		})
		if err != nil {
			return nil, nil, err
		}
		speedup = append(speedup, structs.SpeedupData{
			ProcessorCount: p,
			SpeedupFactor:  structs.ComputeSpeedup(largestSeq.Seconds(), tp.Seconds()),
		})
	}
	return perf, speedup, nil
}

// best returns the fastest of repeats runs.
func best(ctx context.Context, repeats int, req algorithms.Request) (time.Duration, error) {
	if repeats < 1 {
		repeats = 1
	}
	var fastest time.Duration
	for i := 0; i < repeats; i++ {
		res, err := algorithms.Run(ctx, req)
		if err != nil {
			return 0, fmt.Errorf("%s/%s on size %d: %w", req.Implementation, req.Algorithm, req.Graph.Size(), err)
		}
		if i == 0 || res.Elapsed < fastest {
			fastest = res.Elapsed
		}
	}
	return fastest, nil
}

// RunAndStore sweeps the catalogue algorithm algorithmID and replaces its
// stored measurements.
func RunAndStore(ctx context.Context, db *sql.DB, cfg structs.BenchmarkConfig, algorithmID int64) (Summary, error) {
	a, err := db_models.GetAlgorithm(ctx, db, algorithmID)
	if err != nil {
		return Summary{}, err
	}

	start := time.Now()
	perf, speedup, err := Sweep(ctx, cfg, *a)
	if err != nil {
		return Summary{}, fmt.Errorf("sweep %s: %w", a.Name, err)
	}
	if err := db_models.ReplaceBenchmarkResults(ctx, db, a.ID, perf, speedup); err != nil {
		return Summary{}, err
	}

	log.Infof("Benchmark of %s finished in %s", a.Name, time.Since(start).Round(time.Millisecond))
	return Summary{AlgorithmID: a.ID, PerformanceRows: len(perf), SpeedupRows: len(speedup)}, nil
}

// TaskProcessor runs benchmark tasks handed out by the etcd worker.
func TaskProcessor(db *sql.DB, cfg structs.BenchmarkConfig) etcd.TaskProcessor {
	return func(ctx context.Context, task etcd.Task) (string, error) {
		var payload etcd.BenchmarkPayload
		if err := json.Unmarshal([]byte(task.Payload), &payload); err != nil {
			return "", fmt.Errorf("invalid payload: %w", err)
		}
		summary, err := RunAndStore(ctx, db, cfg, payload.AlgorithmID)
		if err != nil {
			return "", err
		}
		out, err := json.Marshal(summary)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}
