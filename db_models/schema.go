package db_models

import (
	"context"
	"database/sql"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// mysqlSchema is executed statement by statement; the MySQL driver rejects
// multi-statement Exec unless multiStatements is set in the DSN.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS algorithms (
		id                  BIGINT AUTO_INCREMENT PRIMARY KEY,
		name                VARCHAR(100) NOT NULL,
		algorithm_type      VARCHAR(20) NOT NULL,
		implementation_type VARCHAR(20) NOT NULL,
		description         TEXT NOT NULL,
		code                MEDIUMTEXT NOT NULL,
		UNIQUE KEY uniq_algorithm_impl (algorithm_type, implementation_type)
	)`,
	`CREATE TABLE IF NOT EXISTS performance_data (
		id              BIGINT AUTO_INCREMENT PRIMARY KEY,
		algorithm_id    BIGINT NOT NULL,
		graph_size      INT NOT NULL,
		sequential_time DOUBLE NOT NULL,
		parallel_time   DOUBLE NOT NULL,
		KEY idx_performance_algorithm (algorithm_id),
		FOREIGN KEY (algorithm_id) REFERENCES algorithms(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS speedup_data (
		id              BIGINT AUTO_INCREMENT PRIMARY KEY,
		algorithm_id    BIGINT NOT NULL,
		processor_count INT NOT NULL,
		speedup_factor  DOUBLE NOT NULL,
		KEY idx_speedup_algorithm (algorithm_id),
		FOREIGN KEY (algorithm_id) REFERENCES algorithms(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS graphs (
		id         BIGINT AUTO_INCREMENT PRIMARY KEY,
		size       INT NOT NULL,
		density    DOUBLE NOT NULL,
		data       LONGTEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS algorithms (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		name                TEXT NOT NULL,
		algorithm_type      TEXT NOT NULL,
		implementation_type TEXT NOT NULL,
		description         TEXT NOT NULL,
		code                TEXT NOT NULL,
		UNIQUE (algorithm_type, implementation_type)
	)`,
	`CREATE TABLE IF NOT EXISTS performance_data (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		algorithm_id    INTEGER NOT NULL REFERENCES algorithms(id) ON DELETE CASCADE,
		graph_size      INTEGER NOT NULL,
		sequential_time REAL NOT NULL,
		parallel_time   REAL NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_performance_algorithm ON performance_data(algorithm_id)`,
	`CREATE TABLE IF NOT EXISTS speedup_data (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		algorithm_id    INTEGER NOT NULL REFERENCES algorithms(id) ON DELETE CASCADE,
		processor_count INTEGER NOT NULL,
		speedup_factor  REAL NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_speedup_algorithm ON speedup_data(algorithm_id)`,
	`CREATE TABLE IF NOT EXISTS graphs (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		size       INTEGER NOT NULL,
		density    REAL NOT NULL,
		data       TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`,
}

// EnsureSchema creates the tables used by the service if they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB, driver string) error {
	statements := mysqlSchema
	if driver == "sqlite3" {
		statements = sqliteSchema
	}
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d failed: %w", i, err)
		}
	}
	log.Infof("Database schema ensured, driver=%s, statements=%d", driver, len(statements))
	return nil
}
