package etcd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"graphbench/structs"

	log "github.com/sirupsen/logrus"
	clientv3 "go.etcd.io/etcd/client/v3"
)

var ErrNoResult = errors.New("no result for task")

// TaskPublisher writes tasks under TaskPrefix and reads their results back
// from ResultPrefix.
type TaskPublisher struct {
	client *clientv3.Client
	id     string
}

func NewTaskPublisher(cfg structs.EtcdConfig) (*TaskPublisher, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &TaskPublisher{
		client: client,
		id:     fmt.Sprintf("publisher-%d", time.Now().Unix()),
	}, nil
}

func (p *TaskPublisher) Close() {
	if p.client != nil {
		p.client.Close()
	}
}

// PublishBenchmark queues a sweep of algorithmID on behalf of job jobID and
// returns the task id.
func (p *TaskPublisher) PublishBenchmark(ctx context.Context, jobID string, algorithmID int64) (string, error) {
	task, err := NewTask(TaskTypeBenchmark, BenchmarkPayload{JobID: jobID, AlgorithmID: algorithmID})
	if err != nil {
		return "", err
	}
	if err := p.PublishTask(ctx, task); err != nil {
		return "", err
	}
	return task.ID, nil
}

func (p *TaskPublisher) PublishTask(ctx context.Context, task Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}
	if _, err := p.client.Put(ctx, TaskKey(task.ID), string(body)); err != nil {
		return fmt.Errorf("failed to publish task %s: %w", task.ID, err)
	}

	log.WithFields(log.Fields{"publisher": p.id, "task": task.ID, "type": task.Type}).Info("Task published")
	return nil
}

// GetTaskResult returns the stored result or ErrNoResult.
func (p *TaskPublisher) GetTaskResult(ctx context.Context, taskID string) (*TaskResult, error) {
	result, _, err := p.lookupResult(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("%s: %w", taskID, ErrNoResult)
	}
	return result, nil
}

// WaitForResult returns the stored result if there is one, otherwise waits
// for the worker to write it or for timeout.
func (p *TaskPublisher) WaitForResult(ctx context.Context, taskID string, timeout time.Duration) (*TaskResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, rev, err := p.lookupResult(ctx, taskID)
	if err != nil || result != nil {
		return result, err
	}

	// Watching from the revision after the lookup closes the gap between
	// the two calls.
	events := p.client.Watch(ctx, ResultKey(taskID), clientv3.WithRev(rev+1))
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("timeout waiting for result of %s", taskID)
			}
			return nil, ctx.Err()
		case wr, ok := <-events:
			if !ok {
				return nil, fmt.Errorf("watch on %s closed", ResultKey(taskID))
			}
			for _, ev := range wr.Events {
				if ev.Type != clientv3.EventTypePut {
					continue
				}
				result, err := decodeResult(ev.Kv.Value)
				if err != nil {
					log.Warnf("[%s] %v", p.id, err)
					continue
				}
				return result, nil
			}
		}
	}
}

// lookupResult reads the result key once. A nil result with a nil error
// means the worker has not written it yet; rev is the store revision read.
func (p *TaskPublisher) lookupResult(ctx context.Context, taskID string) (*TaskResult, int64, error) {
	resp, err := p.client.Get(ctx, ResultKey(taskID))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get task result: %w", err)
	}
	if len(resp.Kvs) == 0 {
		return nil, resp.Header.Revision, nil
	}
	result, err := decodeResult(resp.Kvs[0].Value)
	return result, resp.Header.Revision, err
}

func decodeResult(value []byte) (*TaskResult, error) {
	var result TaskResult
	if err := json.Unmarshal(value, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task result: %w", err)
	}
	return &result, nil
}
