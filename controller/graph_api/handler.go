package graph_api

import (
	"encoding/json"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"time"

	"graphbench/controller/response"
	"graphbench/db_models"
	"graphbench/graph"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultSize    = 10
	DefaultDensity = 0.3
)

// GenerateRequest is the body of POST /api/graph/. Missing fields take defaults.
type GenerateRequest struct {
	Size    *int     `json:"size"`
	Density *float64 `json:"density"`
}

type GenerateResponse struct {
	Message string  `json:"message"`
	GraphID int64   `json:"graph_id"`
	Size    int     `json:"size"`
	Density float64 `json:"density"`
}

type GraphResponse struct {
	GraphID   int64           `json:"graph_id"`
	Size      int             `json:"size"`
	Density   float64         `json:"density"`
	GraphData json.RawMessage `json:"graph_data"`
}

type Handler struct {
	store   *Store
	maxSize int
	newRand func() *rand.Rand
}

func NewHandler(store *Store, maxSize int) *Handler {
	return &Handler{
		store:   store,
		maxSize: maxSize,
		newRand: func() *rand.Rand { return rand.New(rand.NewSource(time.Now().UnixNano())) },
	}
}

// RegisterRoutes sets up the routing for the API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/graph/{$}", h.handleGenerateGraph)
	mux.HandleFunc("GET /api/graph/{id}/{$}", h.handleGetGraph)
}

func (h *Handler) handleGenerateGraph(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	defer r.Body.Close()

	size, density := DefaultSize, DefaultDensity
	if req.Size != nil {
		size = *req.Size
	}
	if req.Density != nil {
		density = *req.Density
	}
	if size < 1 || (h.maxSize > 0 && size > h.maxSize) {
		response.RespondError(w, http.StatusBadRequest, "size must be between 1 and the configured maximum")
		return
	}

	m, err := graph.GenerateRandom(size, density, h.newRand())
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.store.Create(r.Context(), m, density)
	if err != nil {
		log.Errorf("Failed to store graph: %v", err)
		response.RespondError(w, http.StatusInternalServerError, "Failed to store graph")
		return
	}

	log.WithFields(log.Fields{"id": rec.ID, "size": size, "density": density}).Info("Graph generated")
	response.RespondJSON(w, http.StatusCreated, GenerateResponse{
		Message: "Graph generated and stored successfully",
		GraphID: rec.ID,
		Size:    rec.Size,
		Density: rec.Density,
	})
}

func (h *Handler) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	id, ok := response.PathID(r, "id")
	if !ok {
		response.RespondError(w, http.StatusBadRequest, "Invalid graph id")
		return
	}

	rec, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, db_models.ErrGraphNotFound) {
			response.RespondError(w, http.StatusNotFound, "Graph not found")
			return
		}
		log.WithField("id", id).Errorf("Failed to load graph: %v", err)
		response.RespondError(w, http.StatusInternalServerError, "Failed to load graph")
		return
	}

	response.RespondJSON(w, http.StatusOK, GraphResponse{
		GraphID:   rec.ID,
		Size:      rec.Size,
		Density:   rec.Density,
		GraphData: json.RawMessage(rec.Data),
	})
}
