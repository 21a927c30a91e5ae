package db_models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"graphbench/structs"

	log "github.com/sirupsen/logrus"
)

// SeedAlgorithms inserts or refreshes the catalogue rows listed in the
// configuration. Rows are keyed by (algorithm_type, implementation_type);
// invalid entries are logged and skipped.
func SeedAlgorithms(ctx context.Context, db *sql.DB, seeds []structs.AlgorithmSeed) error {
	if len(seeds) == 0 {
		log.Infof("No algorithm seeds to insert.")
		return nil
	}

	for _, s := range seeds {
		if !structs.IsAlgorithmType(s.AlgorithmType) ||
			(s.ImplementationType != structs.MPI && s.ImplementationType != structs.CUDA) {
			log.Warnf("Skipping algorithm seed %q: bad type %q/%q", s.Name, s.AlgorithmType, s.ImplementationType)
			continue
		}

		var id int64
		err := db.QueryRowContext(ctx,
			"SELECT id FROM algorithms WHERE algorithm_type = ? AND implementation_type = ?",
			s.AlgorithmType, s.ImplementationType).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			res, err := db.ExecContext(ctx,
				"INSERT INTO algorithms (name, algorithm_type, implementation_type, description, code) VALUES (?, ?, ?, ?, ?)",
				s.Name, s.AlgorithmType, s.ImplementationType, s.Description, s.Code)
			if err != nil {
				return fmt.Errorf("error inserting algorithm %s: %w", s.Name, err)
			}
			id, _ = res.LastInsertId()
			log.Infof("Inserted algorithm %s (%s/%s) id=%d", s.Name, s.AlgorithmType, s.ImplementationType, id)
		case err != nil:
			return fmt.Errorf("error looking up algorithm %s: %w", s.Name, err)
		default:
			if _, err := db.ExecContext(ctx,
				"UPDATE algorithms SET name = ?, description = ?, code = ? WHERE id = ?",
				s.Name, s.Description, s.Code, id); err != nil {
				return fmt.Errorf("error updating algorithm %s: %w", s.Name, err)
			}
			log.Infof("Refreshed algorithm %s id=%d", s.Name, id)
		}
	}
	return nil
}

// InsertGraph stores a generated graph and returns its id.
func InsertGraph(ctx context.Context, db *sql.DB, size int, density float64, data string) (int64, error) {
	res, err := db.ExecContext(ctx, "INSERT INTO graphs (size, density, data) VALUES (?, ?, ?)", size, density, data)
	if err != nil {
		return 0, fmt.Errorf("failed to insert graph: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read graph id: %w", err)
	}
	return id, nil
}

// ReplaceBenchmarkResults swaps an algorithm's measurement rows for new ones
// in a single transaction.
func ReplaceBenchmarkResults(ctx context.Context, db *sql.DB, algorithmID int64, perf []structs.PerformanceData, speedup []structs.SpeedupData) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// no-op once committed
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM performance_data WHERE algorithm_id = ?", algorithmID); err != nil {
		return fmt.Errorf("failed to clear performance data: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM speedup_data WHERE algorithm_id = ?", algorithmID); err != nil {
		return fmt.Errorf("failed to clear speedup data: %w", err)
	}

	perfStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO performance_data (algorithm_id, graph_size, sequential_time, parallel_time) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare performance insert: %w", err)
	}
	defer perfStmt.Close()
	for _, p := range perf {
		if _, err := perfStmt.ExecContext(ctx, algorithmID, p.GraphSize, p.SequentialTime, p.ParallelTime); err != nil {
			return fmt.Errorf("failed to insert performance row for size %d: %w", p.GraphSize, err)
		}
	}

	speedupStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO speedup_data (algorithm_id, processor_count, speedup_factor) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare speedup insert: %w", err)
	}
	defer speedupStmt.Close()
	for _, s := range speedup {
		if _, err := speedupStmt.ExecContext(ctx, algorithmID, s.ProcessorCount, s.SpeedupFactor); err != nil {
			return fmt.Errorf("failed to insert speedup row for %d processors: %w", s.ProcessorCount, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"algorithmID": algorithmID,
		"performance": len(perf),
		"speedup":     len(speedup),
	}).Info("Benchmark results stored.")
	return nil
}
