package graph_api

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"graphbench/caching"
	"graphbench/db_models"
	"graphbench/graph"
	"graphbench/structs"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	mux   *http.ServeMux
	mock  sqlmock.Sqlmock
	cache *caching.MemoryCache
	store *Store
}

func setup(t *testing.T) fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cache := caching.NewMemoryCache(8, 0)
	store := NewStore(db, cache)
	h := NewHandler(store, 50)
	h.newRand = func() *rand.Rand { return rand.New(rand.NewSource(1)) }

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return fixture{mux: mux, mock: mock, cache: cache, store: store}
}

func (f fixture) do(method, target, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rr
}

func TestGenerateGraph(t *testing.T) {
	f := setup(t)

	f.mock.ExpectExec(`INSERT INTO graphs`).
		WithArgs(4, 0.5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(12, 1))

	rr := f.do(http.MethodPost, "/api/graph/", `{"size": 4, "density": 0.5}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"message":"Graph generated and stored successfully","graph_id":12,"size":4,"density":0.5}`, rr.Body.String())
	assert.NoError(t, f.mock.ExpectationsWereMet())

	rec, ok := f.cache.Get(12)
	require.True(t, ok, "new graphs are cached")
	var m graph.Matrix
	require.NoError(t, json.Unmarshal([]byte(rec.Data), &m))
	assert.Equal(t, 4, m.Size())
	for i := 0; i < 4; i++ {
		assert.Equal(t, 0.0, m.At(i, i))
	}
}

func TestGenerateGraphDefaults(t *testing.T) {
	f := setup(t)

	f.mock.ExpectExec(`INSERT INTO graphs`).
		WithArgs(DefaultSize, DefaultDensity, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rr := f.do(http.MethodPost, "/api/graph/", "")
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGenerateGraphValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero size", `{"size": 0}`},
		{"negative size", `{"size": -3}`},
		{"above configured maximum", `{"size": 51}`},
		{"density above one", `{"size": 5, "density": 1.5}`},
		{"negative density", `{"density": -0.1}`},
		{"malformed json", `{"size":`},
		{"wrong type", `{"size": "ten"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			rr := f.do(http.MethodPost, "/api/graph/", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.NoError(t, f.mock.ExpectationsWereMet())
		})
	}
}

func TestGetGraph(t *testing.T) {
	f := setup(t)
	data := `[[0,3],[null,0]]`

	f.mock.ExpectQuery(`SELECT id, size, density, data FROM graphs WHERE id = \?`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "size", "density", "data"}).AddRow(5, 2, 0.5, data))

	rr := f.do(http.MethodGet, "/api/graph/5/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"graph_id":5,"size":2,"density":0.5,"graph_data":[[0,3],[null,0]]}`, rr.Body.String())

	// second read is served by the cache, no further query expected
	rr = f.do(http.MethodGet, "/api/graph/5/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGetGraphNotFound(t *testing.T) {
	f := setup(t)

	f.mock.ExpectQuery(`FROM graphs WHERE id = \?`).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "size", "density", "data"}))

	rr := f.do(http.MethodGet, "/api/graph/404/", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"status":"error","message":"Graph not found"}`, rr.Body.String())

	rr = f.do(http.MethodGet, "/api/graph/x/", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestStoreLoadMatrix(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.cache.Set(&structs.GraphRecord{ID: 1, Size: 2, Density: 1, Data: `[[0,7],[2,0]]`}))
	require.NoError(t, f.cache.Set(&structs.GraphRecord{ID: 2, Size: 2, Density: 1, Data: `[[0,7]]`}))

	m, err := f.store.LoadMatrix(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 7.0, m.At(0, 1))
	assert.Equal(t, 2.0, m.At(1, 0))

	_, err = f.store.LoadMatrix(context.Background(), 2)
	assert.ErrorIs(t, err, graph.ErrNotSquare)

	f.mock.ExpectQuery(`FROM graphs`).WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "size", "density", "data"}))
	_, err = f.store.LoadMatrix(context.Background(), 3)
	assert.ErrorIs(t, err, db_models.ErrGraphNotFound)
}
