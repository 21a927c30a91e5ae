package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"graphbench/structs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name       string
		cfg        structs.DatabaseConfig
		wantDriver string
		wantDSN    string
		wantErr    bool
	}{
		{
			name:       "mysql default host",
			cfg:        structs.DatabaseConfig{Username: "u", Password: "p", DBName: "bench"},
			wantDriver: DriverMySQL,
			wantDSN:    "u:p@tcp(127.0.0.1:3306)/bench?charset=utf8mb4&parseTime=True&loc=Local",
		},
		{
			name:       "mysql explicit host",
			cfg:        structs.DatabaseConfig{Driver: "mysql", Username: "u", Host: "db:3307", DBName: "bench"},
			wantDriver: DriverMySQL,
			wantDSN:    "u:@tcp(db:3307)/bench?charset=utf8mb4&parseTime=True&loc=Local",
		},
		{
			name:       "sqlite path",
			cfg:        structs.DatabaseConfig{Driver: "sqlite3", Path: "/tmp/x.db"},
			wantDriver: DriverSQLite,
			wantDSN:    "file:/tmp/x.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)",
		},
		{
			name:    "unknown driver",
			cfg:     structs.DatabaseConfig{Driver: "postgres"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, dsn, err := BuildDSN(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDriver, driver)
			assert.Equal(t, tt.wantDSN, dsn)
		})
	}
}

func TestBuildDSNSQLiteDefaultPath(t *testing.T) {
	_, dsn, err := BuildDSN(structs.DatabaseConfig{Driver: DriverSQLite})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dsn, "file:graphbench.db?"))
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graphbench_config.toml")
	content := `
[server]
addr = ":9000"

[database]
driver = "sqlite3"
path = "bench.db"

[benchmark]
graph_sizes = [10, 20]
repeats = 5

[[algorithm]]
name = "Dijkstra (MPI)"
algorithm_type = "dijkstra"
implementation_type = "mpi"
description = "partitioned"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 2000, cfg.Server.MaxGraphSize)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "bench.db", cfg.Database.Path)
	assert.Equal(t, []int{10, 20}, cfg.Benchmark.GraphSizes)
	assert.Equal(t, []int{1, 2, 4, 8}, cfg.Benchmark.ProcessorCounts)
	assert.Equal(t, 5, cfg.Benchmark.Repeats)
	assert.Equal(t, 0.3, cfg.Benchmark.Density)
	assert.Equal(t, []string{"localhost:2379"}, cfg.Etcd.Endpoints)
	assert.Equal(t, "info", cfg.Log.Level)

	require.Len(t, cfg.Algorithms, 1)
	assert.Equal(t, structs.AlgorithmSeed{
		Name:               "Dijkstra (MPI)",
		AlgorithmType:      "dijkstra",
		ImplementationType: "mpi",
		Description:        "partitioned",
	}, cfg.Algorithms[0])
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[server\naddr = 1"), 0644))
	_, err = LoadConfig(bad)
	assert.Error(t, err)
}

func TestApplyDefaultsKeepsValidValues(t *testing.T) {
	cfg := structs.Config{
		Database:  structs.DatabaseConfig{Driver: DriverSQLite},
		Benchmark: structs.BenchmarkConfig{Density: 0.8, Seed: 7, PoolSize: 3},
	}
	ApplyDefaults(&cfg)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 0.8, cfg.Benchmark.Density)
	assert.Equal(t, int64(7), cfg.Benchmark.Seed)
	assert.Equal(t, 3, cfg.Benchmark.PoolSize)

	cfg.Benchmark.Density = 1.5
	ApplyDefaults(&cfg)
	assert.Equal(t, 0.3, cfg.Benchmark.Density)
}

func TestLoggingMiddlewareRecordsStatus(t *testing.T) {
	var seen int
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner.ServeHTTP(w, r)
		if rec, ok := w.(*statusRecorder); ok {
			seen = rec.status
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/algorithms/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, http.StatusTeapot, seen)
}

func TestInitLoggingCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	InitLogging(dir, "test.log", "debug")
	_, err := os.Stat(dir)
	assert.NoError(t, err)
}
