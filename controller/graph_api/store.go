package graph_api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"graphbench/caching"
	"graphbench/db_models"
	"graphbench/graph"
	"graphbench/structs"

	log "github.com/sirupsen/logrus"
)

// Store persists generated graphs and reads them back through the cache.
// Stored graphs never change, so cached entries are never invalidated.
type Store struct {
	db    *sql.DB
	cache caching.GraphCache
}

func NewStore(db *sql.DB, cache caching.GraphCache) *Store {
	if cache == nil {
		cache = caching.NewMemoryCache(caching.DefaultMemoryEntries, 0)
	}
	return &Store{db: db, cache: cache}
}

// Create stores m and returns the new record.
func (s *Store) Create(ctx context.Context, m *graph.Matrix, density float64) (*structs.GraphRecord, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode graph: %w", err)
	}
	id, err := db_models.InsertGraph(ctx, s.db, m.Size(), density, string(data))
	if err != nil {
		return nil, err
	}

	rec := &structs.GraphRecord{ID: id, Size: m.Size(), Density: density, Data: string(data)}
	if err := s.cache.Set(rec); err != nil {
		log.Warnf("Failed to cache graph %d: %v", id, err)
	}
	return rec, nil
}

// Get returns the stored record, consulting the cache first.
func (s *Store) Get(ctx context.Context, id int64) (*structs.GraphRecord, error) {
	if rec, ok := s.cache.Get(id); ok {
		return rec, nil
	}
	rec, err := db_models.GetGraph(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(rec); err != nil {
		log.Warnf("Failed to cache graph %d: %v", id, err)
	}
	return rec, nil
}

// LoadMatrix returns the decoded adjacency matrix of graph id.
func (s *Store) LoadMatrix(ctx context.Context, id int64) (*graph.Matrix, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var m graph.Matrix
	if err := json.Unmarshal([]byte(rec.Data), &m); err != nil {
		return nil, fmt.Errorf("graph %d has corrupt data: %w", id, err)
	}
	return &m, nil
}
