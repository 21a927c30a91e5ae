// Package goroutine_pool keeps process-wide ants pools addressed by name,
// plus a constructor for short-lived pools owned by a single kernel run.
package goroutine_pool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	log "github.com/sirupsen/logrus"
)

// Named pools.
const (
	BenchmarkJobsPool = "benchmark_jobs"
	EtcdBenchmarkPool = "etcd_benchmark"
)

var ErrPoolNotFound = errors.New("goroutine pool not initialized")

var (
	registry   = make(map[string]*ants.PoolWithFunc)
	registryMu sync.RWMutex
)

// InitPool creates the pool name, releasing any pool previously registered
// under it. handler runs once per Invoke.
func InitPool(name string, size int, handler func(interface{})) error {
	pool, err := ants.NewPoolWithFunc(size, handler)
	if err != nil {
		log.Errorf("Creating pool %s with %d workers failed: %v", name, size, err)
		return fmt.Errorf("create pool %s: %w", name, err)
	}

	registryMu.Lock()
	old := registry[name]
	registry[name] = pool
	registryMu.Unlock()

	if old != nil {
		old.Release()
	}
	log.Debugf("Pool %s ready with %d workers", name, size)
	return nil
}

func GetPool(name string) *ants.PoolWithFunc {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[name]
}

// Invoke hands arg to the pool name. It blocks while every worker is busy.
func Invoke(name string, arg interface{}) error {
	pool := GetPool(name)
	if pool == nil {
		return fmt.Errorf("%s: %w", name, ErrPoolNotFound)
	}
	return pool.Invoke(arg)
}

func ReleasePool(name string) {
	registryMu.Lock()
	pool, ok := registry[name]
	delete(registry, name)
	registryMu.Unlock()

	if ok {
		pool.Release()
	}
}

func ReleaseAllPools() {
	registryMu.Lock()
	pools := registry
	registry = make(map[string]*ants.PoolWithFunc)
	registryMu.Unlock()

	for name, pool := range pools {
		pool.Release()
		log.Debugf("Pool %s released", name)
	}
}

type PoolConfig struct {
	MaxWorkers int
}

// NewPool returns an unnamed pool; the caller releases it.
func NewPool(config PoolConfig) (*ants.Pool, error) {
	workers := config.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create ants pool of %d workers: %w", workers, err)
	}
	return pool, nil
}
