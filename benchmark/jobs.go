package benchmark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"graphbench/collector"
	"graphbench/etcd"
	"graphbench/goroutine_pool"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var (
	ErrJobNotFound    = errors.New("benchmark job not found")
	ErrManagerStopped = errors.New("benchmark manager stopped")
)

// Job is the externally visible state of one asynchronous sweep.
type Job struct {
	ID              string              `json:"job_id"`
	AlgorithmID     int64               `json:"algorithm_id"`
	Status          string              `json:"status"`
	Error           string              `json:"error,omitempty"`
	TaskID          string              `json:"task_id,omitempty"`
	PerformanceRows int                 `json:"performance_rows"`
	SpeedupRows     int                 `json:"speedup_rows"`
	Host            *collector.Snapshot `json:"host,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	StartedAt       *time.Time          `json:"started_at,omitempty"`
	FinishedAt      *time.Time          `json:"finished_at,omitempty"`
}

// Runner performs a sweep in-process.
type Runner func(ctx context.Context, algorithmID int64) (Summary, error)

// Publisher hands sweeps to remote workers.
type Publisher interface {
	PublishBenchmark(ctx context.Context, jobID string, algorithmID int64) (string, error)
	WaitForResult(ctx context.Context, taskID string, timeout time.Duration) (*etcd.TaskResult, error)
}

// Manager tracks benchmark jobs and runs them on the benchmark_jobs pool.
type Manager struct {
	ctx       context.Context
	run       Runner
	publisher Publisher
	timeout   time.Duration
	snapshot  func() (collector.Snapshot, error)

	mu      sync.RWMutex
	jobs    map[string]*Job
	pending []string
	closed  bool
	wake    chan struct{}
	wg      sync.WaitGroup
}

// NewManager returns a manager whose jobs run under ctx. With a non-nil
// publisher jobs are dispatched through etcd instead of run locally.
func NewManager(ctx context.Context, run Runner, publisher Publisher) *Manager {
	return &Manager{
		ctx:       ctx,
		run:       run,
		publisher: publisher,
		timeout:   30 * time.Minute,
		snapshot:  collector.Collect,
		jobs:      make(map[string]*Job),
		wake:      make(chan struct{}, 1),
	}
}

// Start creates the job pool and the goroutine feeding it; poolSize bounds
// concurrent sweeps.
func (m *Manager) Start(poolSize int) error {
	if poolSize < 1 {
		poolSize = 1
	}
	err := goroutine_pool.InitPool(goroutine_pool.BenchmarkJobsPool, poolSize, func(arg interface{}) {
		defer m.wg.Done()
		m.execute(arg.(string))
	})
	if err != nil {
		return err
	}
	go m.feed()
	return nil
}

// Wait blocks until every submitted job has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Submit registers a pending job and queues it. It never waits for a free
// pool worker.
func (m *Manager) Submit(algorithmID int64) (Job, error) {
	if err := m.ctx.Err(); err != nil {
		return Job{}, fmt.Errorf("%w: %w", ErrManagerStopped, err)
	}
	job := &Job{
		ID:          uuid.NewString(),
		AlgorithmID: algorithmID,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Job{}, ErrManagerStopped
	}
	m.wg.Add(1)
	m.jobs[job.ID] = job
	m.pending = append(m.pending, job.ID)
	snapshot := *job
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
	log.Infof("Benchmark job %s queued for algorithm %d", job.ID, algorithmID)
	return snapshot, nil
}

// feed hands queued jobs to the pool in submission order, blocking here
// rather than in Submit while every worker is busy. Jobs still queued when
// the manager's context ends are failed.
func (m *Manager) feed() {
	for {
		id, ok := m.nextPending()
		if !ok {
			select {
			case <-m.wake:
				continue
			case <-m.ctx.Done():
				m.mu.Lock()
				m.closed = true
				left := m.pending
				m.pending = nil
				m.mu.Unlock()
				for _, id := range left {
					m.abandon(id, m.ctx.Err())
				}
				return
			}
		}
		if err := m.ctx.Err(); err != nil {
			m.abandon(id, err)
			continue
		}
		if err := goroutine_pool.Invoke(goroutine_pool.BenchmarkJobsPool, id); err != nil {
			m.abandon(id, fmt.Errorf("failed to queue job: %w", err))
		}
	}
}

func (m *Manager) nextPending() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return "", false
	}
	id := m.pending[0]
	m.pending = m.pending[1:]
	return id, true
}

// abandon fails a job that never reached a pool worker.
func (m *Manager) abandon(id string, err error) {
	m.finish(id, Summary{}, err)
	m.wg.Done()
}

// Get returns a copy of the job with the given id.
func (m *Manager) Get(id string) (Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("%s: %w", id, ErrJobNotFound)
	}
	return *job, nil
}

func (m *Manager) execute(id string) {
	host, err := m.snapshot()
	if err != nil {
		log.Debugf("Job %s host snapshot partial: %v", id, err)
	}

	now := time.Now().UTC()
	m.mu.Lock()
	job := m.jobs[id]
	job.Status = StatusRunning
	job.StartedAt = &now
	job.Host = &host
	algorithmID := job.AlgorithmID
	m.mu.Unlock()

	var summary Summary
	if m.publisher != nil {
		summary, err = m.dispatch(id, algorithmID)
	} else {
		summary, err = m.run(m.ctx, algorithmID)
	}
	m.finish(id, summary, err)
}

func (m *Manager) dispatch(id string, algorithmID int64) (Summary, error) {
	taskID, err := m.publisher.PublishBenchmark(m.ctx, id, algorithmID)
	if err != nil {
		return Summary{}, err
	}
	m.mu.Lock()
	m.jobs[id].TaskID = taskID
	m.mu.Unlock()

	result, err := m.publisher.WaitForResult(m.ctx, taskID, m.timeout)
	if err != nil {
		return Summary{}, err
	}
	if result.Error != "" {
		return Summary{}, errors.New(result.Error)
	}

	var summary Summary
	if err := json.Unmarshal([]byte(result.Result), &summary); err != nil {
		return Summary{}, fmt.Errorf("bad result from worker %s: %w", result.WorkerID, err)
	}
	return summary, nil
}

func (m *Manager) finish(id string, summary Summary, err error) {
	now := time.Now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()

	job := m.jobs[id]
	job.FinishedAt = &now
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
		log.Errorf("Benchmark job %s failed: %v", id, err)
		return
	}
	job.Status = StatusCompleted
	job.PerformanceRows = summary.PerformanceRows
	job.SpeedupRows = summary.SpeedupRows
	log.Infof("Benchmark job %s completed", id)
}
