package db_models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"graphbench/structs"
)

var (
	ErrAlgorithmNotFound = errors.New("algorithm not found")
	ErrGraphNotFound     = errors.New("graph not found")
)

const algorithmColumns = "id, name, algorithm_type, implementation_type, description, code"

// ListAlgorithms returns catalogue rows ordered by id with their measurement
// rows attached. Empty filters are not applied.
func ListAlgorithms(ctx context.Context, db *sql.DB, algorithmType, implementationType string) ([]structs.Algorithm, error) {
	var (
		where []string
		args  []interface{}
	)
	if algorithmType != "" {
		where = append(where, "algorithm_type = ?")
		args = append(args, algorithmType)
	}
	if implementationType != "" {
		where = append(where, "implementation_type = ?")
		args = append(args, implementationType)
	}

	query := "SELECT " + algorithmColumns + " FROM algorithms"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query algorithms: %w", err)
	}
	defer rows.Close()

	algorithms := make([]structs.Algorithm, 0)
	for rows.Next() {
		a, err := scanAlgorithm(rows)
		if err != nil {
			return nil, err
		}
		algorithms = append(algorithms, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("algorithms iteration error: %w", err)
	}
	if len(algorithms) == 0 {
		return algorithms, nil
	}

	ids := make([]int64, len(algorithms))
	for i := range algorithms {
		ids[i] = algorithms[i].ID
	}
	perf, err := performanceByAlgorithm(ctx, db, ids)
	if err != nil {
		return nil, err
	}
	speedup, err := speedupByAlgorithm(ctx, db, ids)
	if err != nil {
		return nil, err
	}
	for i := range algorithms {
		if p, ok := perf[algorithms[i].ID]; ok {
			algorithms[i].PerformanceData = p
		}
		if s, ok := speedup[algorithms[i].ID]; ok {
			algorithms[i].SpeedupData = s
		}
	}
	return algorithms, nil
}

// GetAlgorithm returns one catalogue row with its measurement rows.
func GetAlgorithm(ctx context.Context, db *sql.DB, id int64) (*structs.Algorithm, error) {
	row := db.QueryRowContext(ctx, "SELECT "+algorithmColumns+" FROM algorithms WHERE id = ?", id)
	a, err := scanAlgorithm(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("id %d: %w", id, ErrAlgorithmNotFound)
		}
		return nil, err
	}

	if a.PerformanceData, err = ListPerformanceData(ctx, db, &id); err != nil {
		return nil, err
	}
	if a.SpeedupData, err = ListSpeedupData(ctx, db, &id); err != nil {
		return nil, err
	}
	return &a, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlgorithm(s rowScanner) (structs.Algorithm, error) {
	a := structs.Algorithm{
		PerformanceData: []structs.PerformanceData{},
		SpeedupData:     []structs.SpeedupData{},
	}
	err := s.Scan(&a.ID, &a.Name, &a.AlgorithmType, &a.ImplementationType, &a.Description, &a.Code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, err
		}
		return a, fmt.Errorf("failed to scan algorithm: %w", err)
	}
	return a, nil
}

// ListPerformanceData returns measurement rows, all of them when algorithmID is nil.
func ListPerformanceData(ctx context.Context, db *sql.DB, algorithmID *int64) ([]structs.PerformanceData, error) {
	query := "SELECT id, algorithm_id, graph_size, sequential_time, parallel_time FROM performance_data"
	var args []interface{}
	if algorithmID != nil {
		query += " WHERE algorithm_id = ?"
		args = append(args, *algorithmID)
	}
	query += " ORDER BY id"

	_, ordered, err := queryPerformance(ctx, db, query, args...)
	if err != nil {
		return nil, err
	}
	if ordered == nil {
		ordered = []structs.PerformanceData{}
	}
	return ordered, nil
}

func performanceByAlgorithm(ctx context.Context, db *sql.DB, ids []int64) (map[int64][]structs.PerformanceData, error) {
	query := "SELECT id, algorithm_id, graph_size, sequential_time, parallel_time FROM performance_data" +
		" WHERE algorithm_id IN (" + placeholders(len(ids)) + ") ORDER BY id"
	grouped, _, err := queryPerformance(ctx, db, query, int64Args(ids)...)
	return grouped, err
}

func queryPerformance(ctx context.Context, db *sql.DB, query string, args ...interface{}) (map[int64][]structs.PerformanceData, []structs.PerformanceData, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query performance data: %w", err)
	}
	defer rows.Close()

	grouped := make(map[int64][]structs.PerformanceData)
	var ordered []structs.PerformanceData
	for rows.Next() {
		var (
			p           structs.PerformanceData
			algorithmID int64
		)
		if err := rows.Scan(&p.ID, &algorithmID, &p.GraphSize, &p.SequentialTime, &p.ParallelTime); err != nil {
			return nil, nil, fmt.Errorf("failed to scan performance data: %w", err)
		}
		p.Speedup = structs.ComputeSpeedup(p.SequentialTime, p.ParallelTime)
		grouped[algorithmID] = append(grouped[algorithmID], p)
		ordered = append(ordered, p)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("performance data iteration error: %w", err)
	}
	return grouped, ordered, nil
}

// ListSpeedupData returns speedup rows, all of them when algorithmID is nil.
func ListSpeedupData(ctx context.Context, db *sql.DB, algorithmID *int64) ([]structs.SpeedupData, error) {
	query := "SELECT id, algorithm_id, processor_count, speedup_factor FROM speedup_data"
	var args []interface{}
	if algorithmID != nil {
		query += " WHERE algorithm_id = ?"
		args = append(args, *algorithmID)
	}
	query += " ORDER BY id"

	_, ordered, err := querySpeedup(ctx, db, query, args...)
	if err != nil {
		return nil, err
	}
	if ordered == nil {
		ordered = []structs.SpeedupData{}
	}
	return ordered, nil
}

func speedupByAlgorithm(ctx context.Context, db *sql.DB, ids []int64) (map[int64][]structs.SpeedupData, error) {
	query := "SELECT id, algorithm_id, processor_count, speedup_factor FROM speedup_data" +
		" WHERE algorithm_id IN (" + placeholders(len(ids)) + ") ORDER BY id"
	grouped, _, err := querySpeedup(ctx, db, query, int64Args(ids)...)
	return grouped, err
}

func querySpeedup(ctx context.Context, db *sql.DB, query string, args ...interface{}) (map[int64][]structs.SpeedupData, []structs.SpeedupData, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query speedup data: %w", err)
	}
	defer rows.Close()

	grouped := make(map[int64][]structs.SpeedupData)
	var ordered []structs.SpeedupData
	for rows.Next() {
		var (
			s           structs.SpeedupData
			algorithmID int64
		)
		if err := rows.Scan(&s.ID, &algorithmID, &s.ProcessorCount, &s.SpeedupFactor); err != nil {
			return nil, nil, fmt.Errorf("failed to scan speedup data: %w", err)
		}
		grouped[algorithmID] = append(grouped[algorithmID], s)
		ordered = append(ordered, s)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("speedup data iteration error: %w", err)
	}
	return grouped, ordered, nil
}

// GetGraph loads a stored graph row.
func GetGraph(ctx context.Context, db *sql.DB, id int64) (*structs.GraphRecord, error) {
	var g structs.GraphRecord
	err := db.QueryRowContext(ctx, "SELECT id, size, density, data FROM graphs WHERE id = ?", id).
		Scan(&g.ID, &g.Size, &g.Density, &g.Data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("id %d: %w", id, ErrGraphNotFound)
		}
		return nil, fmt.Errorf("failed to query graph %d: %w", id, err)
	}
	return &g, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
