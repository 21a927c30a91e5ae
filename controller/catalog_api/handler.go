package catalog_api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"graphbench/controller/response"
	"graphbench/db_models"

	log "github.com/sirupsen/logrus"
)

// Handler serves the read-only algorithm catalogue.
type Handler struct {
	db *sql.DB
}

func NewHandler(db *sql.DB) *Handler {
	return &Handler{db: db}
}

// RegisterRoutes sets up the routing for the API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/algorithms/{$}", h.handleListAlgorithms)
	mux.HandleFunc("GET /api/algorithms/{id}/{$}", h.handleGetAlgorithm)
	mux.HandleFunc("GET /api/performance/{$}", h.handleListPerformance)
	mux.HandleFunc("GET /api/speedup/{$}", h.handleListSpeedup)
}

// handleListAlgorithms applies the algorithm_type and implementation_type
// filters when present; unknown values simply match nothing.
func (h *Handler) handleListAlgorithms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	algorithms, err := db_models.ListAlgorithms(r.Context(), h.db, q.Get("algorithm_type"), q.Get("implementation_type"))
	if err != nil {
		log.Errorf("Failed to list algorithms: %v", err)
		response.RespondError(w, http.StatusInternalServerError, "Failed to list algorithms")
		return
	}
	response.RespondJSON(w, http.StatusOK, algorithms)
}

func (h *Handler) handleGetAlgorithm(w http.ResponseWriter, r *http.Request) {
	id, ok := response.PathID(r, "id")
	if !ok {
		response.RespondError(w, http.StatusBadRequest, "Invalid algorithm id")
		return
	}

	a, err := db_models.GetAlgorithm(r.Context(), h.db, id)
	if err != nil {
		if errors.Is(err, db_models.ErrAlgorithmNotFound) {
			response.RespondError(w, http.StatusNotFound, "Algorithm not found")
			return
		}
		log.WithField("id", id).Errorf("Failed to get algorithm: %v", err)
		response.RespondError(w, http.StatusInternalServerError, "Failed to get algorithm")
		return
	}
	response.RespondJSON(w, http.StatusOK, a)
}

func (h *Handler) handleListPerformance(w http.ResponseWriter, r *http.Request) {
	filter, ok := algorithmFilter(r)
	if !ok {
		response.RespondError(w, http.StatusBadRequest, "Invalid algorithm filter")
		return
	}
	rows, err := db_models.ListPerformanceData(r.Context(), h.db, filter)
	if err != nil {
		log.Errorf("Failed to list performance data: %v", err)
		response.RespondError(w, http.StatusInternalServerError, "Failed to list performance data")
		return
	}
	response.RespondJSON(w, http.StatusOK, rows)
}

func (h *Handler) handleListSpeedup(w http.ResponseWriter, r *http.Request) {
	filter, ok := algorithmFilter(r)
	if !ok {
		response.RespondError(w, http.StatusBadRequest, "Invalid algorithm filter")
		return
	}
	rows, err := db_models.ListSpeedupData(r.Context(), h.db, filter)
	if err != nil {
		log.Errorf("Failed to list speedup data: %v", err)
		response.RespondError(w, http.StatusInternalServerError, "Failed to list speedup data")
		return
	}
	response.RespondJSON(w, http.StatusOK, rows)
}

// algorithmFilter reads ?algorithm=; nil means no filter.
func algorithmFilter(r *http.Request) (*int64, bool) {
	raw := r.URL.Query().Get("algorithm")
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, false
	}
	return &id, true
}
