package algorithms

import (
	"fmt"
	"sync"

	"graphbench/goroutine_pool"
	"graphbench/graph"

	"github.com/panjf2000/ants/v2"
)

// barrier is a reusable cyclic barrier for a fixed number of parties.
type barrier struct {
	mu    sync.Mutex
	cond  *sync.Cond
	n     int
	count int
	gen   int
}

func newBarrier(n int) *barrier {
	b := &barrier{n: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *barrier) Wait() {
	b.mu.Lock()
	gen := b.gen
	b.count++
	if b.count == b.n {
		b.count = 0
		b.gen++
		b.cond.Broadcast()
		b.mu.Unlock()
		return
	}
	for gen == b.gen {
		b.cond.Wait()
	}
	b.mu.Unlock()
}

type minLoc struct {
	val float64
	idx int
}

// Comm is an in-process communicator shared by the ranks of one run.
// All collective calls must be made by every rank in the same order.
// Each collective starts with a barrier so that its buffers are never
// overwritten while a slower rank is still reading the previous result.
type Comm struct {
	size   int
	bar    *barrier
	locs   []minLoc
	flags  []bool
	vecBuf []float64
}

func NewComm(size, vectorLen int) *Comm {
	return &Comm{
		size:   size,
		bar:    newBarrier(size),
		locs:   make([]minLoc, size),
		flags:  make([]bool, size),
		vecBuf: make([]float64, vectorLen),
	}
}

func (c *Comm) Size() int { return c.size }

// Owner returns the rank owning vertex (or row) v.
func (c *Comm) Owner(v int) int { return v % c.size }

func (c *Comm) Barrier() { c.bar.Wait() }

// AllReduceMinLoc returns the smallest (val, idx) pair over all ranks,
// ties broken by the lower index. idx < 0 means "no candidate".
func (c *Comm) AllReduceMinLoc(rank int, val float64, idx int) (float64, int) {
	c.bar.Wait()
	c.locs[rank] = minLoc{val: val, idx: idx}
	c.bar.Wait()

	best := minLoc{val: graph.Inf, idx: -1}
	for _, l := range c.locs {
		if l.idx < 0 {
			continue
		}
		if best.idx < 0 || l.val < best.val || (l.val == best.val && l.idx < best.idx) {
			best = l
		}
	}
	return best.val, best.idx
}

// AllReduceOr returns true on every rank when any rank passed true.
func (c *Comm) AllReduceOr(rank int, flag bool) bool {
	c.bar.Wait()
	c.flags[rank] = flag
	c.bar.Wait()

	for _, f := range c.flags {
		if f {
			return true
		}
	}
	return false
}

// Bcast copies root's data into dst on every rank.
func (c *Comm) Bcast(rank, root int, data, dst []float64) {
	c.bar.Wait()
	if rank == root {
		copy(c.vecBuf, data)
	}
	c.bar.Wait()
	copy(dst, c.vecBuf)
}

// Allgather assembles a full vector from the entries each rank owns:
// entry v of dst comes from local[v] on rank Owner(v).
func (c *Comm) Allgather(rank int, local, dst []float64) {
	c.bar.Wait()
	for v := rank; v < len(c.vecBuf); v += c.size {
		c.vecBuf[v] = local[v]
	}
	c.bar.Wait()
	copy(dst, c.vecBuf)
}

// rankPool builds the pool spawn runs ranks on.
var rankPool = func(ranks int) (*ants.Pool, error) {
	return goroutine_pool.NewPool(goroutine_pool.PoolConfig{MaxWorkers: ranks})
}

// spawn runs fn once per rank concurrently on a dedicated pool and waits
// for all ranks. Every rank holds a worker for the whole run, so the pool
// is sized to the rank count. No rank starts until all are submitted: a
// partial start would leave the submitted ranks stuck at their first
// collective.
func spawn(ranks int, fn func(rank int)) error {
	pool, err := rankPool(ranks)
	if err != nil {
		return err
	}
	defer pool.Release()

	var (
		wg      sync.WaitGroup
		aborted bool
	)
	start := make(chan struct{})
	for r := 0; r < ranks; r++ {
		rank := r
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			<-start
			if !aborted {
				fn(rank)
			}
		}); err != nil {
			wg.Done()
			aborted = true
			close(start)
			wg.Wait()
			return fmt.Errorf("submit rank %d of %d: %w", rank, ranks, err)
		}
	}
	close(start)
	wg.Wait()
	return nil
}
