package benchmark

import (
	"context"
	"errors"
	"testing"
	"time"

	"graphbench/collector"
	"graphbench/etcd"
	"graphbench/goroutine_pool"
	"graphbench/structs"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig() structs.BenchmarkConfig {
	return structs.BenchmarkConfig{
		GraphSizes:      []int{24, 12},
		ProcessorCounts: []int{1, 2, 4},
		Density:         0.4,
		Repeats:         2,
		Seed:            7,
	}
}

func TestSweepShapes(t *testing.T) {
	for _, a := range []structs.Algorithm{
		{Name: "Dijkstra MPI", AlgorithmType: structs.Dijkstra, ImplementationType: structs.MPI},
		{Name: "Bellman-Ford CUDA", AlgorithmType: structs.BellmanFord, ImplementationType: structs.CUDA},
		{Name: "Floyd-Warshall MPI", AlgorithmType: structs.FloydWarshall, ImplementationType: structs.MPI},
	} {
		t.Run(a.Name, func(t *testing.T) {
			perf, speedup, err := Sweep(context.Background(), smallConfig(), a)
			require.NoError(t, err)

			require.Len(t, perf, 2)
			assert.Equal(t, 12, perf[0].GraphSize, "sizes are measured in ascending order")
			assert.Equal(t, 24, perf[1].GraphSize)
			for _, p := range perf {
				assert.Greater(t, p.SequentialTime, 0.0)
				assert.Greater(t, p.ParallelTime, 0.0)
				assert.InDelta(t, p.SequentialTime/p.ParallelTime, p.Speedup, 1e-9)
			}

			require.Len(t, speedup, 3)
			for i, p := range []int{1, 2, 4} {
				assert.Equal(t, p, speedup[i].ProcessorCount)
				assert.Greater(t, speedup[i].SpeedupFactor, 0.0)
			}
		})
	}
}

func TestSweepRejectsEmptyConfig(t *testing.T) {
	cfg := smallConfig()
	cfg.ProcessorCounts = nil
	_, _, err := Sweep(context.Background(), cfg, structs.Algorithm{AlgorithmType: structs.Dijkstra, ImplementationType: structs.MPI})
	assert.ErrorIs(t, err, ErrNothingToMeasure)
}

func TestSweepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Sweep(ctx, smallConfig(), structs.Algorithm{AlgorithmType: structs.FloydWarshall, ImplementationType: structs.CUDA})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunAndStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM algorithms WHERE id = \?`).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "algorithm_type", "implementation_type", "description", "code"}).
			AddRow(5, "Dijkstra CUDA", "dijkstra", "cuda", "", ""))
	mock.ExpectQuery(`FROM performance_data`).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "algorithm_id", "graph_size", "sequential_time", "parallel_time"}))
	mock.ExpectQuery(`FROM speedup_data`).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "algorithm_id", "processor_count", "speedup_factor"}))
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM performance_data`).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM speedup_data`).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))
	perf := mock.ExpectPrepare(`INSERT INTO performance_data`)
	perf.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	perf.ExpectExec().WillReturnResult(sqlmock.NewResult(2, 1))
	speedup := mock.ExpectPrepare(`INSERT INTO speedup_data`)
	for i := 0; i < 3; i++ {
		speedup.ExpectExec().WillReturnResult(sqlmock.NewResult(int64(i+1), 1))
	}
	mock.ExpectCommit()

	summary, err := RunAndStore(context.Background(), db, smallConfig(), 5)
	require.NoError(t, err)
	assert.Equal(t, Summary{AlgorithmID: 5, PerformanceRows: 2, SpeedupRows: 3}, summary)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func newTestManager(t *testing.T, run Runner, pub Publisher) *Manager {
	t.Helper()
	return newSizedManager(t, context.Background(), 2, run, pub)
}

func newSizedManager(t *testing.T, ctx context.Context, poolSize int, run Runner, pub Publisher) *Manager {
	t.Helper()
	m := NewManager(ctx, run, pub)
	m.snapshot = func() (collector.Snapshot, error) {
		return collector.Snapshot{GoMaxProcs: 3}, nil
	}
	require.NoError(t, m.Start(poolSize))
	t.Cleanup(func() { goroutine_pool.ReleasePool(goroutine_pool.BenchmarkJobsPool) })
	return m
}

func TestManagerCompletesJob(t *testing.T) {
	m := newTestManager(t, func(_ context.Context, id int64) (Summary, error) {
		return Summary{AlgorithmID: id, PerformanceRows: 4, SpeedupRows: 4}, nil
	}, nil)

	job, err := m.Submit(9)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, job.Status)
	assert.Len(t, job.ID, 36)

	m.Wait()
	got, err := m.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 4, got.PerformanceRows)
	require.NotNil(t, got.Host)
	assert.Equal(t, 3, got.Host.GoMaxProcs)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.FinishedAt)
}

func TestManagerRecordsFailure(t *testing.T) {
	m := newTestManager(t, func(context.Context, int64) (Summary, error) {
		return Summary{}, errors.New("algorithm not found")
	}, nil)

	job, err := m.Submit(1)
	require.NoError(t, err)
	m.Wait()

	got, err := m.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "algorithm not found", got.Error)
}

func TestManagerSubmitDoesNotWaitForBusyPool(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	m := newSizedManager(t, context.Background(), 1, func(_ context.Context, id int64) (Summary, error) {
		if id == 1 {
			close(started)
			<-release
		}
		return Summary{AlgorithmID: id}, nil
	}, nil)

	first, err := m.Submit(1)
	require.NoError(t, err)
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first sweep never started")
	}

	submitted := make(chan Job, 1)
	go func() {
		job, err := m.Submit(2)
		assert.NoError(t, err)
		submitted <- job
	}()

	var second Job
	select {
	case second = <-submitted:
	case <-time.After(500 * time.Millisecond):
		close(release)
		t.Fatal("Submit blocked while the only worker was busy")
	}
	assert.Equal(t, StatusPending, second.Status)

	got, err := m.Get(second.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)

	close(release)
	m.Wait()
	for _, id := range []string{first.ID, second.ID} {
		got, err := m.Get(id)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, got.Status)
	}
}

func TestManagerCancelFailsQueuedJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	m := newSizedManager(t, ctx, 1, func(ctx context.Context, id int64) (Summary, error) {
		if id == 1 {
			close(started)
		}
		<-ctx.Done()
		return Summary{}, ctx.Err()
	}, nil)

	first, err := m.Submit(1)
	require.NoError(t, err)
	<-started
	queued, err := m.Submit(2)
	require.NoError(t, err)

	cancel()
	m.Wait()

	for _, id := range []string{first.ID, queued.ID} {
		got, err := m.Get(id)
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, got.Status)
		assert.Contains(t, got.Error, context.Canceled.Error())
	}

	_, err = m.Submit(3)
	assert.ErrorIs(t, err, ErrManagerStopped)
}

func TestManagerUnknownJob(t *testing.T) {
	m := NewManager(context.Background(), nil, nil)
	_, err := m.Get("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

type fakePublisher struct {
	result *etcd.TaskResult
	err    error
}

func (f *fakePublisher) PublishBenchmark(_ context.Context, jobID string, _ int64) (string, error) {
	return "task-" + jobID, nil
}

func (f *fakePublisher) WaitForResult(context.Context, string, time.Duration) (*etcd.TaskResult, error) {
	return f.result, f.err
}

func TestManagerDispatchesThroughPublisher(t *testing.T) {
	localRun := func(context.Context, int64) (Summary, error) {
		t.Error("local runner must not be used when a publisher is set")
		return Summary{}, nil
	}

	tests := []struct {
		name       string
		pub        *fakePublisher
		wantStatus string
		wantRows   int
	}{
		{"remote success", &fakePublisher{result: &etcd.TaskResult{Result: `{"algorithm_id":2,"performance_rows":5,"speedup_rows":3}`}}, StatusCompleted, 5},
		{"remote failure", &fakePublisher{result: &etcd.TaskResult{Error: "boom"}}, StatusFailed, 0},
		{"timeout", &fakePublisher{err: errors.New("timeout waiting for result")}, StatusFailed, 0},
		{"bad result", &fakePublisher{result: &etcd.TaskResult{Result: "{"}}, StatusFailed, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t, localRun, tt.pub)
			job, err := m.Submit(2)
			require.NoError(t, err)
			m.Wait()

			got, err := m.Get(job.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantRows, got.PerformanceRows)
			assert.Equal(t, "task-"+job.ID, got.TaskID)
		})
	}
}

func TestTaskProcessorRejectsBadPayload(t *testing.T) {
	proc := TaskProcessor(nil, smallConfig())
	_, err := proc(context.Background(), etcd.Task{Payload: "nope"})
	assert.Error(t, err)
}
