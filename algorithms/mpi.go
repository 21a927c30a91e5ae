package algorithms

import (
	"context"
	"math"

	"graphbench/graph"
)

func clampRanks(ranks, n int) int {
	ranks = clampWorkers(ranks)
	if ranks > n {
		return n
	}
	return ranks
}

// DijkstraMPI runs Dijkstra with vertices distributed round-robin over ranks.
// Each iteration every rank proposes its closest unvisited vertex, an
// all-reduce picks the global minimum, and each rank relaxes the edges
// from it into the vertices it owns.
func DijkstraMPI(ctx context.Context, g *graph.Matrix, source, ranks int) ([]float64, error) {
	if err := checkSource(g, source); err != nil {
		return nil, err
	}
	if err := checkNonNegative(g); err != nil {
		return nil, err
	}

	n := g.Size()
	ranks = clampRanks(ranks, n)
	comm := NewComm(ranks, n)
	out := make([]float64, n)
	cancelled := false

	err := spawn(ranks, func(rank int) {
		// only entries owned by this rank are read or written
		dist := initDistances(n, source)
		visited := make([]bool, n)

		for iter := 0; iter < n; iter++ {
			if comm.AllReduceOr(rank, ctx.Err() != nil) {
				if rank == 0 {
					cancelled = true
				}
				return
			}

			localVal, localIdx := graph.Inf, -1
			for v := rank; v < n; v += ranks {
				if !visited[v] && dist[v] < localVal {
					localVal, localIdx = dist[v], v
				}
			}
			du, u := comm.AllReduceMinLoc(rank, localVal, localIdx)
			if u < 0 {
				break
			}
			if comm.Owner(u) == rank {
				visited[u] = true
			}

			row := g.Row(u)
			for v := rank; v < n; v += ranks {
				w := row[v]
				if visited[v] || math.IsInf(w, 1) {
					continue
				}
				if nd := du + w; nd < dist[v] {
					dist[v] = nd
				}
			}
		}

		// gather: owned entries are disjoint across ranks
		for v := rank; v < n; v += ranks {
			out[v] = dist[v]
		}
	})
	if err != nil {
		return nil, err
	}
	if cancelled {
		return nil, ctx.Err()
	}
	return out, nil
}

// BellmanFordMPI runs synchronous Bellman-Ford rounds. In every round each
// rank recomputes the vertices it owns from the previous round's vector,
// then an allgather rebuilds the full vector on every rank.
func BellmanFordMPI(ctx context.Context, g *graph.Matrix, source, ranks int) ([]float64, error) {
	if err := checkSource(g, source); err != nil {
		return nil, err
	}

	n := g.Size()
	ranks = clampRanks(ranks, n)
	comm := NewComm(ranks, n)
	out := make([]float64, n)
	cancelled, negativeCycle := false, false

	err := spawn(ranks, func(rank int) {
		prev := initDistances(n, source)
		next := make([]float64, n)

		relaxOwned := func() bool {
			changed := false
			for v := rank; v < n; v += ranks {
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
			return changed
		}

		converged := false
		for round := 0; round < n-1; round++ {
			if comm.AllReduceOr(rank, ctx.Err() != nil) {
				if rank == 0 {
					cancelled = true
				}
				return
			}
			changed := relaxOwned()
			comm.Allgather(rank, next, prev)
			if !comm.AllReduceOr(rank, changed) {
				converged = true
				break
			}
		}
		if !converged && comm.AllReduceOr(rank, relaxOwned()) {
			if rank == 0 {
				negativeCycle = true
			}
			return
		}

		for v := rank; v < n; v += ranks {
			out[v] = prev[v]
		}
	})
	if err != nil {
		return nil, err
	}
	if cancelled {
		return nil, ctx.Err()
	}
	if negativeCycle {
		return nil, ErrNegativeCycle
	}
	return out, nil
}

// FloydWarshallMPI distributes rows round-robin. For each k the owner of
// row k broadcasts it and every rank updates the rows it owns.
func FloydWarshallMPI(ctx context.Context, g *graph.Matrix, ranks int) (*graph.Matrix, error) {
	if err := checkGraph(g); err != nil {
		return nil, err
	}

	d := g.Clone()
	n := d.Size()
	ranks = clampRanks(ranks, n)
	comm := NewComm(ranks, n)
	cancelled := false

	err := spawn(ranks, func(rank int) {
		rowK := make([]float64, n)
		for k := 0; k < n; k++ {
			if comm.AllReduceOr(rank, ctx.Err() != nil) {
				if rank == 0 {
					cancelled = true
				}
				return
			}
			comm.Bcast(rank, comm.Owner(k), d.Row(k), rowK)

			for i := rank; i < n; i += ranks {
				rowI := d.Row(i)
				ik := rowI[k]
				if math.IsInf(ik, 1) {
					continue
				}
				for j := 0; j < n; j++ {
					if cand := ik + rowK[j]; cand < rowI[j] {
						rowI[j] = cand
					}
				}
			}
		}
	})
	if err != nil {
		return nil, err
	}
	if cancelled {
		return nil, ctx.Err()
	}
	if err := checkDiagonal(d); err != nil {
		return nil, err
	}
	return d, nil
}
