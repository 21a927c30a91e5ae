package algorithms

import (
	"container/heap"
	"context"
	"math"

	"graphbench/graph"
)

type nodeItem struct {
	v    int
	dist float64
}

// nodePQ is a min-heap on dist, ties broken by vertex index.
type nodePQ []nodeItem

func (pq nodePQ) Len() int { return len(pq) }
func (pq nodePQ) Less(i, j int) bool {
	if pq[i].dist == pq[j].dist {
		return pq[i].v < pq[j].v
	}
	return pq[i].dist < pq[j].dist
}
func (pq nodePQ) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *nodePQ) Push(x interface{}) { *pq = append(*pq, x.(nodeItem)) }
func (pq *nodePQ) Pop() interface{} {
	old := *pq
	item := old[len(old)-1]
	*pq = old[:len(old)-1]
	return item
}

// DijkstraSequential computes single-source distances with a lazy binary heap.
func DijkstraSequential(ctx context.Context, g *graph.Matrix, source int) ([]float64, error) {
	if err := checkSource(g, source); err != nil {
		return nil, err
	}
	if err := checkNonNegative(g); err != nil {
		return nil, err
	}

	n := g.Size()
	dist := initDistances(n, source)
	visited := make([]bool, n)
	pq := nodePQ{{v: source, dist: 0}}

	for pq.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := heap.Pop(&pq).(nodeItem)
		u := item.v
		if visited[u] {
			continue
		}
		visited[u] = true

		row := g.Row(u)
		for v := 0; v < n; v++ {
			w := row[v]
			if visited[v] || math.IsInf(w, 1) {
				continue
			}
			if nd := dist[u] + w; nd < dist[v] {
				dist[v] = nd
				heap.Push(&pq, nodeItem{v: v, dist: nd})
			}
		}
	}
	return dist, nil
}

// BellmanFordSequential relaxes every edge up to n-1 times, stopping early
// once a full pass changes nothing. A further improvable edge afterwards
// means a negative cycle is reachable from source.
func BellmanFordSequential(ctx context.Context, g *graph.Matrix, source int) ([]float64, error) {
	if err := checkSource(g, source); err != nil {
		return nil, err
	}

	n := g.Size()
	dist := initDistances(n, source)

	relax := func() bool {
		changed := false
		for u := 0; u < n; u++ {
			du := dist[u]
			if math.IsInf(du, 1) {
				continue
			}
			row := g.Row(u)
			for v := 0; v < n; v++ {
				w := row[v]
				if math.IsInf(w, 1) {
					continue
				}
				if du+w < dist[v] {
					dist[v] = du + w
					changed = true
				}
			}
		}
		return changed
	}

	for round := 0; round < n-1; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !relax() {
			return dist, nil
		}
	}
	if relax() {
		return nil, ErrNegativeCycle
	}
	return dist, nil
}

// FloydWarshallSequential returns the all-pairs distance matrix. Loop order is k → i → j.
func FloydWarshallSequential(ctx context.Context, g *graph.Matrix) (*graph.Matrix, error) {
	if err := checkGraph(g); err != nil {
		return nil, err
	}

	d := g.Clone()
	n := d.Size()
	for k := 0; k < n; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rowK := d.Row(k)
		for i := 0; i < n; i++ {
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
	if err := checkDiagonal(d); err != nil {
		return nil, err
	}
	return d, nil
}
