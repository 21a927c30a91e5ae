package goroutine_pool

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvokeNamedPool(t *testing.T) {
	var sum int64
	var wg sync.WaitGroup
	require.NoError(t, InitPool("test_sum", 2, func(arg interface{}) {
		defer wg.Done()
		atomic.AddInt64(&sum, int64(arg.(int)))
	}))
	defer ReleasePool("test_sum")

	for i := 1; i <= 10; i++ {
		wg.Add(1)
		require.NoError(t, Invoke("test_sum", i))
	}
	wg.Wait()
	assert.Equal(t, int64(55), atomic.LoadInt64(&sum))
}

func TestInvokeMissingPool(t *testing.T) {
	err := Invoke("does_not_exist", 1)
	assert.ErrorIs(t, err, ErrPoolNotFound)
}

func TestReleaseAllPools(t *testing.T) {
	require.NoError(t, InitPool("a", 1, func(interface{}) {}))
	require.NoError(t, InitPool("b", 1, func(interface{}) {}))
	ReleaseAllPools()
	assert.Nil(t, GetPool("a"))
	assert.Nil(t, GetPool("b"))
}

func TestNewPoolClampsWorkers(t *testing.T) {
	p, err := NewPool(PoolConfig{MaxWorkers: 0})
	require.NoError(t, err)
	defer p.Release()
	assert.Equal(t, 1, p.Cap())
}
