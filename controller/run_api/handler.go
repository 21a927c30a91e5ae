package run_api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strconv"

	"graphbench/algorithms"
	"graphbench/controller/response"
	"graphbench/db_models"
	"graphbench/graph"
	"graphbench/structs"

	log "github.com/sirupsen/logrus"
)

// GraphLoader resolves a stored graph id to its matrix.
type GraphLoader interface {
	LoadMatrix(ctx context.Context, id int64) (*graph.Matrix, error)
}

// RunResponse is returned by every run endpoint. Result holds a distance
// vector for single-source algorithms and a matrix for Floyd-Warshall,
// with null for unreachable vertices.
type RunResponse struct {
	Status         string      `json:"status"`
	Algorithm      string      `json:"algorithm"`
	Implementation string      `json:"implementation"`
	GraphID        int64       `json:"graph_id"`
	Source         *int        `json:"source,omitempty"`
	Workers        int         `json:"workers"`
	Result         interface{} `json:"result"`
	TimeSeconds    float64     `json:"time_seconds"`
}

// workersPerCPU bounds parallel runs together with the graph size.
const workersPerCPU = 4

// maxWorkers is the largest worker count accepted for a graph of n vertices.
func maxWorkers(n int) int {
	return max(n, runtime.NumCPU()*workersPerCPU)
}

type Handler struct {
	graphs         GraphLoader
	defaultWorkers int
}

// NewHandler returns a handler whose parallel runs default to defaultWorkers,
// or the number of CPUs when that is not positive.
func NewHandler(graphs GraphLoader, defaultWorkers int) *Handler {
	if defaultWorkers < 1 {
		defaultWorkers = runtime.NumCPU()
	}
	return &Handler{graphs: graphs, defaultWorkers: defaultWorkers}
}

// RegisterRoutes sets up the routing for the API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/{implementation}/{algorithm}/{graph_id}/{$}", h.handleRun)
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	impl, alg := r.PathValue("implementation"), r.PathValue("algorithm")
	if !structs.IsImplementationType(impl) {
		response.RespondError(w, http.StatusBadRequest, "Unknown implementation: "+impl)
		return
	}
	if !structs.IsAlgorithmType(alg) {
		response.RespondError(w, http.StatusBadRequest, "Unknown algorithm: "+alg)
		return
	}
	graphID, ok := response.PathID(r, "graph_id")
	if !ok {
		response.RespondError(w, http.StatusBadRequest, "Invalid graph id")
		return
	}

	source, ok := intParam(r, "source", 0)
	if !ok || source < 0 {
		response.RespondError(w, http.StatusBadRequest, "source must be a non-negative integer")
		return
	}
	workers, ok := intParam(r, "workers", h.defaultWorkers)
	if !ok || workers < 1 {
		response.RespondError(w, http.StatusBadRequest, "workers must be a positive integer")
		return
	}

	m, err := h.graphs.LoadMatrix(r.Context(), graphID)
	if err != nil {
		if errors.Is(err, db_models.ErrGraphNotFound) {
			response.RespondError(w, http.StatusNotFound, "Graph not found")
			return
		}
		log.WithField("graph_id", graphID).Errorf("Failed to load graph: %v", err)
		response.RespondError(w, http.StatusInternalServerError, "Failed to load graph")
		return
	}
	if limit := maxWorkers(m.Size()); workers > limit {
		response.RespondError(w, http.StatusBadRequest, fmt.Sprintf("workers must not exceed %d for this graph", limit))
		return
	}

	res, err := algorithms.Run(r.Context(), algorithms.Request{
		Algorithm:      alg,
		Implementation: impl,
		Graph:          m,
		Source:         source,
		Workers:        workers,
	})
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			log.WithFields(log.Fields{"graph_id": graphID, "algorithm": alg, "implementation": impl}).
				Errorf("Run failed: %v", err)
		}
		response.RespondError(w, status, err.Error())
		return
	}

	out := RunResponse{
		Status:         "success",
		Algorithm:      alg,
		Implementation: impl,
		GraphID:        graphID,
		Workers:        res.Workers,
		TimeSeconds:    res.Elapsed.Seconds(),
	}
	if res.AllPairs != nil {
		out.Result = res.AllPairs
	} else {
		out.Source = &source
		out.Result = graph.Vector(res.Distances)
	}
	response.RespondJSON(w, http.StatusOK, out)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, algorithms.ErrNegativeCycle), errors.Is(err, algorithms.ErrNegativeWeight):
		return http.StatusUnprocessableEntity
	case errors.Is(err, algorithms.ErrSourceOutOfRange), errors.Is(err, algorithms.ErrInvalidGraph),
		errors.Is(err, algorithms.ErrUnknownAlgorithm), errors.Is(err, algorithms.ErrUnknownImplementation):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func intParam(r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
