package benchmark_api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"graphbench/benchmark"
	"graphbench/collector"
	"graphbench/controller/response"
	"graphbench/db_models"
	"graphbench/structs"

	log "github.com/sirupsen/logrus"
)

// JobService queues and reports benchmark jobs.
type JobService interface {
	Submit(algorithmID int64) (benchmark.Job, error)
	Get(id string) (benchmark.Job, error)
}

// AlgorithmLookup resolves a catalogue id, failing with db_models.ErrAlgorithmNotFound.
type AlgorithmLookup func(ctx context.Context, id int64) (*structs.Algorithm, error)

type StartRequest struct {
	AlgorithmID int64 `json:"algorithm_id"`
}

type StartResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type Handler struct {
	jobs     JobService
	lookup   AlgorithmLookup
	snapshot func() (collector.Snapshot, error)
}

func NewHandler(jobs JobService, lookup AlgorithmLookup) *Handler {
	return &Handler{jobs: jobs, lookup: lookup, snapshot: collector.Collect}
}

// RegisterRoutes sets up the routing for the API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/benchmarks/{$}", h.handleStartBenchmark)
	mux.HandleFunc("GET /api/benchmarks/{job_id}/{$}", h.handleGetBenchmark)
	mux.HandleFunc("GET /api/system/{$}", h.handleSystem)
}

func (h *Handler) handleStartBenchmark(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	defer r.Body.Close()

	if req.AlgorithmID < 1 {
		response.RespondError(w, http.StatusBadRequest, "algorithm_id must be a positive integer")
		return
	}
	if _, err := h.lookup(r.Context(), req.AlgorithmID); err != nil {
		if errors.Is(err, db_models.ErrAlgorithmNotFound) {
			response.RespondError(w, http.StatusNotFound, "Algorithm not found")
			return
		}
		log.Errorf("Failed to look up algorithm %d: %v", req.AlgorithmID, err)
		response.RespondError(w, http.StatusInternalServerError, "Failed to look up algorithm")
		return
	}

	job, err := h.jobs.Submit(req.AlgorithmID)
	if err != nil {
		log.Errorf("Failed to submit benchmark for algorithm %d: %v", req.AlgorithmID, err)
		response.RespondError(w, http.StatusServiceUnavailable, "Failed to queue benchmark")
		return
	}
	response.RespondJSON(w, http.StatusAccepted, StartResponse{JobID: job.ID, Status: job.Status})
}

func (h *Handler) handleGetBenchmark(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Get(r.PathValue("job_id"))
	if err != nil {
		if errors.Is(err, benchmark.ErrJobNotFound) {
			response.RespondError(w, http.StatusNotFound, "Benchmark job not found")
			return
		}
		response.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.RespondJSON(w, http.StatusOK, job)
}

// handleSystem reports the host the service runs on. A partial snapshot is
// still returned.
func (h *Handler) handleSystem(w http.ResponseWriter, r *http.Request) {
	s, err := h.snapshot()
	if err != nil {
		log.Debugf("System snapshot partial: %v", err)
	}
	response.RespondJSON(w, http.StatusOK, s)
}
