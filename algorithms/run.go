package algorithms

import (
	"context"
	"fmt"
	"time"

	"graphbench/graph"
	"graphbench/structs"

	log "github.com/sirupsen/logrus"
)

// Request selects one kernel run.
type Request struct {
	Algorithm      string
	Implementation string
	Graph          *graph.Matrix
	Source         int
	Workers        int
}

// Result holds the output of a run. Distances is set for single-source
// algorithms, AllPairs for Floyd-Warshall.
type Result struct {
	Algorithm      string
	Implementation string
	Workers        int
	Distances      []float64
	AllPairs       *graph.Matrix
	Elapsed        time.Duration
}

// Timeit measures fn's wall time.
func Timeit(fn func() error) (time.Duration, error) {
	start := time.Now()
	err := fn()
	return time.Since(start), err
}

// Run validates req, dispatches it to the matching kernel and times it.
// Sequential runs always report one worker.
func Run(ctx context.Context, req Request) (*Result, error) {
	if !structs.IsAlgorithmType(req.Algorithm) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, req.Algorithm)
	}
	if !structs.IsImplementationType(req.Implementation) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownImplementation, req.Implementation)
	}

	workers := clampWorkers(req.Workers)
	if req.Implementation == structs.Sequential {
		workers = 1
	}
	res := &Result{
		Algorithm:      req.Algorithm,
		Implementation: req.Implementation,
		Workers:        workers,
	}

	var err error
	res.Elapsed, err = Timeit(func() error {
		var kerr error
		switch req.Algorithm {
		case structs.Dijkstra:
			res.Distances, kerr = singleSource(ctx, req, workers, DijkstraSequential, DijkstraMPI, DijkstraCUDA)
		case structs.BellmanFord:
			res.Distances, kerr = singleSource(ctx, req, workers, BellmanFordSequential, BellmanFordMPI, BellmanFordCUDA)
		case structs.FloydWarshall:
			res.AllPairs, kerr = allPairs(ctx, req, workers)
		}
		return kerr
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"algorithm":      req.Algorithm,
		"implementation": req.Implementation,
		"size":           req.Graph.Size(),
		"workers":        workers,
		"elapsed":        res.Elapsed,
	}).Debug("kernel finished")
	return res, nil
}

type sequentialFn func(context.Context, *graph.Matrix, int) ([]float64, error)
type parallelFn func(context.Context, *graph.Matrix, int, int) ([]float64, error)

func singleSource(ctx context.Context, req Request, workers int, seq sequentialFn, mpi, cuda parallelFn) ([]float64, error) {
	switch req.Implementation {
	case structs.MPI:
		return mpi(ctx, req.Graph, req.Source, workers)
	case structs.CUDA:
		return cuda(ctx, req.Graph, req.Source, workers)
	default:
		return seq(ctx, req.Graph, req.Source)
	}
}

func allPairs(ctx context.Context, req Request, workers int) (*graph.Matrix, error) {
	switch req.Implementation {
	case structs.MPI:
		return FloydWarshallMPI(ctx, req.Graph, workers)
	case structs.CUDA:
		return FloydWarshallCUDA(ctx, req.Graph, workers)
	default:
		return FloydWarshallSequential(ctx, req.Graph)
	}
}
