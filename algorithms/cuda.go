package algorithms

import (
	"context"
	"fmt"
	"math"
	"sync"

	"graphbench/goroutine_pool"
	"graphbench/graph"

	"github.com/panjf2000/ants/v2"
)

// grid executes kernels as independent blocks on a worker pool.
type grid struct {
	pool      *ants.Pool
	blockSize int
}

func newGrid(workers, blockSize int) (*grid, error) {
	pool, err := goroutine_pool.NewPool(goroutine_pool.PoolConfig{MaxWorkers: workers})
	if err != nil {
		return nil, err
	}
	if blockSize < 1 {
		blockSize = DefaultBlockSize
	}
	return &grid{pool: pool, blockSize: blockSize}, nil
}

func (gr *grid) release() { gr.pool.Release() }

func (gr *grid) blocks(threads int) int {
	return (threads + gr.blockSize - 1) / gr.blockSize
}

// launch runs kernel for every block covering [0, threads) and returns once
// all blocks have finished. Blocks must only write state they own.
func (gr *grid) launch(threads int, kernel func(block, lo, hi int)) error {
	var wg sync.WaitGroup
	for b := 0; b < gr.blocks(threads); b++ {
		block := b
		lo := block * gr.blockSize
		hi := min(lo+gr.blockSize, threads)
		wg.Add(1)
		if err := gr.pool.Submit(func() {
			defer wg.Done()
			kernel(block, lo, hi)
		}); err != nil {
			wg.Done()
			wg.Wait()
			return fmt.Errorf("launch block %d: %w", block, err)
		}
	}
	wg.Wait()
	return nil
}

// DijkstraCUDA runs one argmin kernel and one relaxation kernel per
// iteration. The host reduces per-block minima between the two launches.
func DijkstraCUDA(ctx context.Context, g *graph.Matrix, source, workers int) ([]float64, error) {
	if err := checkSource(g, source); err != nil {
		return nil, err
	}
	if err := checkNonNegative(g); err != nil {
		return nil, err
	}

	gr, err := newGrid(clampWorkers(workers), DefaultBlockSize)
	if err != nil {
		return nil, err
	}
	defer gr.release()

	n := g.Size()
	dist := initDistances(n, source)
	visited := make([]bool, n)
	blockMin := make([]minLoc, gr.blocks(n))

	for iter := 0; iter < n; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := gr.launch(n, func(b, lo, hi int) {
			best := minLoc{val: graph.Inf, idx: -1}
			for v := lo; v < hi; v++ {
				if !visited[v] && dist[v] < best.val {
					best = minLoc{val: dist[v], idx: v}
				}
			}
			blockMin[b] = best
		}); err != nil {
			return nil, err
		}

		u := -1
		du := graph.Inf
		for _, m := range blockMin {
			if m.idx >= 0 && m.val < du {
				du, u = m.val, m.idx
			}
		}
		if u < 0 {
			break
		}
		visited[u] = true

		row := g.Row(u)
		if err := gr.launch(n, func(_, lo, hi int) {
			for v := lo; v < hi; v++ {
				w := row[v]
				if visited[v] || math.IsInf(w, 1) {
					continue
				}
				if nd := du + w; nd < dist[v] {
					dist[v] = nd
				}
			}
		}); err != nil {
			return nil, err
		}
	}
	return dist, nil
}

// BellmanFordCUDA launches one relaxation kernel per round, one thread per
// destination vertex, reading the previous round's vector only.
func BellmanFordCUDA(ctx context.Context, g *graph.Matrix, source, workers int) ([]float64, error) {
	if err := checkSource(g, source); err != nil {
		return nil, err
	}

	gr, err := newGrid(clampWorkers(workers), DefaultBlockSize)
	if err != nil {
		return nil, err
	}
	defer gr.release()

	n := g.Size()
	prev := initDistances(n, source)
	next := make([]float64, n)
	blockChanged := make([]bool, gr.blocks(n))

	relax := func() (bool, error) {
		err := gr.launch(n, func(b, lo, hi int) {
			changed := false
			for v := lo; v < hi; v++ {
				best := prev[v]
				for u := 0; u < n; u++ {
					du := prev[u]
					if math.IsInf(du, 1) {
						continue
					}
					w := g.At(u, v)
					if math.IsInf(w, 1) {
						continue
					}
					if du+w < best {
						best = du + w
					}
				}
				next[v] = best
				if best < prev[v] {
					changed = true
				}
			}
			blockChanged[b] = changed
		})
		if err != nil {
			return false, err
		}
		prev, next = next, prev
		for _, c := range blockChanged {
			if c {
				return true, nil
			}
		}
		return false, nil
	}

	for round := 0; round < n-1; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		changed, err := relax()
		if err != nil {
			return nil, err
		}
		if !changed {
			return prev, nil
		}
	}
	changed, err := relax()
	if err != nil {
		return nil, err
	}
	if changed {
		return nil, ErrNegativeCycle
	}
	return prev, nil
}

// FloydWarshallCUDA launches one kernel over all n*n cells per k. Row k and
// column k are staged before each launch, as a kernel would load them into
// shared memory.
func FloydWarshallCUDA(ctx context.Context, g *graph.Matrix, workers int) (*graph.Matrix, error) {
	if err := checkGraph(g); err != nil {
		return nil, err
	}

	gr, err := newGrid(clampWorkers(workers), DefaultBlockSize)
	if err != nil {
		return nil, err
	}
	defer gr.release()

	d := g.Clone()
	n := d.Size()
	rowK := make([]float64, n)
	colK := make([]float64, n)

	for k := 0; k < n; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		copy(rowK, d.Row(k))
		for i := 0; i < n; i++ {
			colK[i] = d.At(i, k)
		}

		if err := gr.launch(n*n, func(_, lo, hi int) {
			for idx := lo; idx < hi; idx++ {
				i, j := idx/n, idx%n
				if cand := colK[i] + rowK[j]; cand < d.At(i, j) {
					d.Set(i, j, cand)
				}
			}
		}); err != nil {
			return nil, err
		}
	}
	if err := checkDiagonal(d); err != nil {
		return nil, err
	}
	return d, nil
}
