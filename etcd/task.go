package etcd

import (
	"encoding/json"
	"fmt"
	"time"

	"graphbench/structs"

	"github.com/google/uuid"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const (
	TaskPrefix   = "/benchmark_tasks/"
	ResultPrefix = "/benchmark_results/"

	// TaskTypeBenchmark runs the measurement sweep for one catalogue algorithm.
	TaskTypeBenchmark = "benchmark.sweep"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

type Task struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
	Status    string    `json:"status"`
	ClaimedBy string    `json:"claimed_by,omitempty"`
}

type TaskResult struct {
	TaskID      string    `json:"task_id"`
	WorkerID    string    `json:"worker_id"`
	Result      string    `json:"result"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// BenchmarkPayload is the payload of a TaskTypeBenchmark task.
type BenchmarkPayload struct {
	JobID       string `json:"job_id"`
	AlgorithmID int64  `json:"algorithm_id"`
}

// NewTask builds a pending task with a fresh id.
func NewTask(taskType string, payload interface{}) (Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Task{}, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return Task{
		ID:        uuid.NewString(),
		Type:      taskType,
		Payload:   string(body),
		CreatedAt: time.Now().UTC(),
		Status:    StatusPending,
	}, nil
}

func TaskKey(id string) string   { return TaskPrefix + id }
func ResultKey(id string) string { return ResultPrefix + id }

func newClient(cfg structs.EtcdConfig) (*clientv3.Client, error) {
	endpoints := cfg.Endpoints
	if len(endpoints) == 0 {
		endpoints = []string{"localhost:2379"}
	}
	timeout := time.Duration(cfg.DialTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}
	return client, nil
}
