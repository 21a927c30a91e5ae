// Package algorithms implements Dijkstra, Bellman-Ford and Floyd-Warshall
// over dense adjacency matrices in three flavours:
//
//   - sequential: a single goroutine.
//   - mpi: p ranks that own vertices (or rows) v with v mod p == rank and
//     exchange data only through a Comm (barrier, all-reduce, broadcast,
//     allgather).
//   - cuda: grid kernels split into fixed-size blocks; the host launches one
//     kernel per iteration and waits for every block before the next.
//
// Every parallel flavour returns exactly the sequential result for the same
// input. Weights are integers in practice, so the sums involved are exact.
package algorithms

import (
	"errors"
	"fmt"

	"graphbench/graph"
)

// Sentinel errors returned by the kernels.
var (
	ErrInvalidGraph          = errors.New("algorithms: graph is nil or empty")
	ErrSourceOutOfRange      = errors.New("algorithms: source vertex out of range")
	ErrNegativeWeight        = errors.New("algorithms: negative edge weight")
	ErrNegativeCycle         = errors.New("algorithms: negative cycle")
	ErrUnknownAlgorithm      = errors.New("algorithms: unknown algorithm")
	ErrUnknownImplementation = errors.New("algorithms: unknown implementation")
)

// DefaultBlockSize is the number of threads per block in grid kernels.
const DefaultBlockSize = 256

func checkGraph(g *graph.Matrix) error {
	if g == nil || g.Size() == 0 {
		return ErrInvalidGraph
	}
	return nil
}

func checkSource(g *graph.Matrix, source int) error {
	if err := checkGraph(g); err != nil {
		return err
	}
	if source < 0 || source >= g.Size() {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrSourceOutOfRange, source, g.Size())
	}
	return nil
}

func checkNonNegative(g *graph.Matrix) error {
	n := g.Size()
	for i := 0; i < n; i++ {
		for j, w := range g.Row(i) {
			if w < 0 {
				return fmt.Errorf("%w: edge %d->%d weight=%v", ErrNegativeWeight, i, j, w)
			}
		}
	}
	return nil
}

// checkDiagonal rejects an all-pairs result whose diagonal went negative,
// which happens exactly when the graph has a negative cycle.
func checkDiagonal(d *graph.Matrix) error {
	for i := 0; i < d.Size(); i++ {
		if d.At(i, i) < 0 {
			return fmt.Errorf("%w: through vertex %d", ErrNegativeCycle, i)
		}
	}
	return nil
}

func initDistances(n, source int) []float64 {
	dist := make([]float64, n)
	for i := range dist {
		dist[i] = graph.Inf
	}
	dist[source] = 0
	return dist
}

func clampWorkers(workers int) int {
	if workers < 1 {
		return 1
	}
	return workers
}
