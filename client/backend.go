package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

type GraphCreated struct {
	Message string  `json:"message"`
	GraphID int64   `json:"graph_id"`
	Size    int     `json:"size"`
	Density float64 `json:"density"`
}

// Graph is a stored graph; nil entries in GraphData mean no edge.
type Graph struct {
	GraphID   int64        `json:"graph_id"`
	Size      int          `json:"size"`
	Density   float64      `json:"density"`
	GraphData [][]*float64 `json:"graph_data"`
}

// RunResult is the answer of a run endpoint. Result is a vector for
// single-source algorithms and a matrix for floyd_warshall.
type RunResult struct {
	Algorithm      string          `json:"algorithm"`
	Implementation string          `json:"implementation"`
	GraphID        int64           `json:"graph_id"`
	Source         *int            `json:"source"`
	Workers        int             `json:"workers"`
	Result         json.RawMessage `json:"result"`
	TimeSeconds    float64         `json:"time_seconds"`
}

// Distances decodes a single-source result.
func (r *RunResult) Distances() ([]*float64, error) {
	var out []*float64
	if err := json.Unmarshal(r.Result, &out); err != nil {
		return nil, fmt.Errorf("result is not a distance vector: %w", err)
	}
	return out, nil
}

// Matrix decodes an all-pairs result.
func (r *RunResult) Matrix() ([][]*float64, error) {
	var out [][]*float64
	if err := json.Unmarshal(r.Result, &out); err != nil {
		return nil, fmt.Errorf("result is not a distance matrix: %w", err)
	}
	return out, nil
}

type BenchmarkJob struct {
	JobID           string          `json:"job_id"`
	AlgorithmID     int64           `json:"algorithm_id"`
	Status          string          `json:"status"`
	Error           string          `json:"error,omitempty"`
	PerformanceRows int             `json:"performance_rows"`
	SpeedupRows     int             `json:"speedup_rows"`
	Host            json.RawMessage `json:"host,omitempty"`
}

// CreateGraph asks the server to generate and store a random graph.
// POST {baseURL}/graph/
func (c *APIClient) CreateGraph(ctx context.Context, size int, density float64) (*GraphCreated, error) {
	body := map[string]interface{}{"size": size, "density": density}
	var out GraphCreated
	if err := c.do(ctx, http.MethodPost, "/graph/", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchGraph returns a stored graph.
// GET {baseURL}/graph/{id}/
func (c *APIClient) FetchGraph(ctx context.Context, id int64) (*Graph, error) {
	var out Graph
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/graph/%d/", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RunAlgorithm runs algorithm with implementation on a stored graph.
// Zero workers leaves the choice to the server.
// GET {baseURL}/{implementation}/{algorithm}/{graph_id}/?source=..&workers=..
func (c *APIClient) RunAlgorithm(ctx context.Context, implementation, algorithm string, graphID int64, source, workers int) (*RunResult, error) {
	q := url.Values{}
	q.Set("source", strconv.Itoa(source))
	if workers > 0 {
		q.Set("workers", strconv.Itoa(workers))
	}
	path := fmt.Sprintf("/%s/%s/%d/", url.PathEscape(implementation), url.PathEscape(algorithm), graphID)

	var out RunResult
	if err := c.do(ctx, http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartBenchmark queues a measurement sweep for a catalogue algorithm.
// POST {baseURL}/benchmarks/
func (c *APIClient) StartBenchmark(ctx context.Context, algorithmID int64) (*BenchmarkJob, error) {
	var out BenchmarkJob
	if err := c.do(ctx, http.MethodPost, "/benchmarks/", nil, map[string]int64{"algorithm_id": algorithmID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchBenchmark reports the state of a benchmark job.
// GET {baseURL}/benchmarks/{job_id}/
func (c *APIClient) FetchBenchmark(ctx context.Context, jobID string) (*BenchmarkJob, error) {
	var out BenchmarkJob
	if err := c.do(ctx, http.MethodGet, "/benchmarks/"+url.PathEscape(jobID)+"/", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
