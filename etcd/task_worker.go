package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"graphbench/goroutine_pool"
	"graphbench/structs"

	log "github.com/sirupsen/logrus"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// TaskProcessor runs one task and returns its textual result.
type TaskProcessor func(ctx context.Context, task Task) (string, error)

type TaskWorker struct {
	client     *clientv3.Client
	workerID   string
	processors map[string]TaskProcessor
	poolSize   int
	wg         sync.WaitGroup
}

func NewTaskWorker(cfg structs.EtcdConfig, poolSize int) (*TaskWorker, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return newTaskWorker(client, poolSize), nil
}

func newTaskWorker(client *clientv3.Client, poolSize int) *TaskWorker {
	if poolSize < 1 {
		poolSize = 1
	}
	return &TaskWorker{
		client:     client,
		workerID:   fmt.Sprintf("worker-%d", time.Now().UnixNano()),
		processors: make(map[string]TaskProcessor),
		poolSize:   poolSize,
	}
}

// Close waits for in-flight tasks before closing the client.
func (w *TaskWorker) Close() {
	w.wg.Wait()
	goroutine_pool.ReleasePool(goroutine_pool.EtcdBenchmarkPool)
	if w.client != nil {
		w.client.Close()
	}
}

func (w *TaskWorker) RegisterProcessor(taskType string, processor TaskProcessor) {
	w.processors[taskType] = processor
}

// Start handles tasks left pending under TaskPrefix, then watches for new
// ones until ctx is done.
func (w *TaskWorker) Start(ctx context.Context) error {
	log.Infof("[%s] Worker starting, task types=%d", w.workerID, len(w.processors))

	err := goroutine_pool.InitPool(goroutine_pool.EtcdBenchmarkPool, w.poolSize, func(arg interface{}) {
		defer w.wg.Done()
		w.handleTask(ctx, arg.(*mvccpb.KeyValue))
	})
	if err != nil {
		return err
	}

	resp, err := w.client.Get(ctx, TaskPrefix, clientv3.WithPrefix())
	if err != nil {
		return fmt.Errorf("failed to list pending tasks: %w", err)
	}
	for _, kv := range resp.Kvs {
		w.dispatch(kv)
	}

	watchChan := w.client.Watch(ctx, TaskPrefix, clientv3.WithPrefix(), clientv3.WithRev(resp.Header.Revision+1))
	for {
		select {
		case <-ctx.Done():
			log.Infof("[%s] Worker shutting down...", w.workerID)
			return nil

		case wr, ok := <-watchChan:
			if !ok {
				return fmt.Errorf("watch channel closed")
			}
			if err := wr.Err(); err != nil {
				return fmt.Errorf("watch failed: %w", err)
			}
			for _, event := range wr.Events {
				if event.Type == clientv3.EventTypePut {
					w.dispatch(event.Kv)
				}
			}
		}
	}
}

func (w *TaskWorker) dispatch(kv *mvccpb.KeyValue) {
	w.wg.Add(1)
	if err := goroutine_pool.Invoke(goroutine_pool.EtcdBenchmarkPool, kv); err != nil {
		w.wg.Done()
		log.Errorf("[%s] Failed to dispatch task %s: %v", w.workerID, kv.Key, err)
	}
}

// claimable decodes a task value and reports whether this worker should run it.
func (w *TaskWorker) claimable(value []byte) (Task, bool) {
	var task Task
	if err := json.Unmarshal(value, &task); err != nil {
		log.Errorf("[%s] Failed to unmarshal task: %v", w.workerID, err)
		return task, false
	}
	if task.Status != StatusPending {
		return task, false
	}
	if _, ok := w.processors[task.Type]; !ok {
		log.Warnf("[%s] No processor registered for task type: %s", w.workerID, task.Type)
		return task, false
	}
	return task, true
}

// process runs the registered processor and builds the result record.
func (w *TaskWorker) process(ctx context.Context, task Task) (Task, TaskResult) {
	taskResult := TaskResult{TaskID: task.ID, WorkerID: w.workerID}

	result, err := w.processors[task.Type](ctx, task)
	taskResult.CompletedAt = time.Now().UTC()
	if err != nil {
		task.Status = StatusFailed
		taskResult.Error = err.Error()
		log.Errorf("[%s] Task processing failed: %s - %v", w.workerID, task.ID, err)
	} else {
		task.Status = StatusCompleted
		taskResult.Result = result
		log.Infof("[%s] Task completed: %s", w.workerID, task.ID)
	}
	return task, taskResult
}

func (w *TaskWorker) handleTask(ctx context.Context, kv *mvccpb.KeyValue) {
	task, ok := w.claimable(kv.Value)
	if !ok {
		return
	}

	key := string(kv.Key)
	task.Status = StatusProcessing
	task.ClaimedBy = w.workerID
	claimed, _ := json.Marshal(task)

	// Only one worker wins the compare on the revision it saw.
	txnResp, err := w.client.Txn(ctx).
		If(clientv3.Compare(clientv3.ModRevision(key), "=", kv.ModRevision)).
		Then(clientv3.OpPut(key, string(claimed))).
		Commit()
	if err != nil {
		log.Errorf("[%s] Failed to claim task %s: %v", w.workerID, task.ID, err)
		return
	}
	if !txnResp.Succeeded {
		log.Debugf("[%s] Task %s claimed elsewhere", w.workerID, task.ID)
		return
	}

	log.Infof("[%s] Processing task: %s (Type: %s)", w.workerID, task.ID, task.Type)
	task, taskResult := w.process(ctx, task)

	resultJSON, _ := json.Marshal(taskResult)
	if _, err := w.client.Put(ctx, ResultKey(task.ID), string(resultJSON)); err != nil {
		log.Errorf("[%s] Failed to store task result: %v", w.workerID, err)
		return
	}

	taskJSON, _ := json.Marshal(task)
	if _, err := w.client.Put(ctx, key, string(taskJSON)); err != nil {
		log.Errorf("[%s] Failed to update task status after completion: %v", w.workerID, err)
	}
}
