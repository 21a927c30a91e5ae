// Package graph holds the dense adjacency matrices every algorithm runs on.
//
// A Matrix is square and row-major. +Inf marks a missing edge and the
// diagonal is 0. In JSON a missing edge is written as null.
package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
)

var (
	ErrBadSize    = errors.New("graph: size must be positive")
	ErrBadDensity = errors.New("graph: density must be within [0, 1]")
	ErrNotSquare  = errors.New("graph: matrix is not square")
)

// MaxWeight is the exclusive upper bound of generated edge weights.
const MaxWeight = 100

var Inf = math.Inf(1)

type Matrix struct {
	n    int
	data []float64
}

// New returns an n×n matrix with a zero diagonal and no edges.
func New(n int) (*Matrix, error) {
	if n <= 0 {
		return nil, ErrBadSize
	}
	m := &Matrix{n: n, data: make([]float64, n*n)}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				m.data[i*n+j] = Inf
			}
		}
	}
	return m, nil
}

// FromRows copies rows into a Matrix. Rows must form a square.
func FromRows(rows [][]float64) (*Matrix, error) {
	n := len(rows)
	if n == 0 {
		return nil, ErrBadSize
	}
	m := &Matrix{n: n, data: make([]float64, n*n)}
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("row %d has %d columns, want %d: %w", i, len(row), n, ErrNotSquare)
		}
		copy(m.data[i*n:], row)
	}
	return m, nil
}

func (m *Matrix) Size() int { return m.n }

func (m *Matrix) At(i, j int) float64 { return m.data[i*m.n+j] }

func (m *Matrix) Set(i, j int, w float64) { m.data[i*m.n+j] = w }

// Row returns row i without copying.
func (m *Matrix) Row(i int) []float64 { return m.data[i*m.n : (i+1)*m.n] }

func (m *Matrix) Clone() *Matrix {
	c := &Matrix{n: m.n, data: make([]float64, len(m.data))}
	copy(c.data, m.data)
	return c
}

// Rows returns a copy of the matrix as a slice of rows.
func (m *Matrix) Rows() [][]float64 {
	out := make([][]float64, m.n)
	for i := range out {
		out[i] = append([]float64(nil), m.Row(i)...)
	}
	return out
}

// HasNegativeEdge reports whether any finite edge weight is below zero.
func (m *Matrix) HasNegativeEdge() bool {
	for _, w := range m.data {
		if w < 0 {
			return true
		}
	}
	return false
}

// GenerateRandom builds a directed graph where each ordered pair (i, j), i != j,
// gets an integer weight in [1, MaxWeight) with probability density.
func GenerateRandom(size int, density float64, rng *rand.Rand) (*Matrix, error) {
	if density < 0 || density > 1 || math.IsNaN(density) {
		return nil, ErrBadDensity
	}
	m, err := New(size)
	if err != nil {
		return nil, err
	}
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			if i != j && rng.Float64() < density {
				m.data[i*size+j] = float64(rng.Intn(MaxWeight-1) + 1)
			}
		}
	}
	return m, nil
}

// Vector converts a distance vector to its JSON form, nil for +Inf.
func Vector(dist []float64) []*float64 {
	out := make([]*float64, len(dist))
	for i := range dist {
		if !math.IsInf(dist[i], 1) {
			v := dist[i]
			out[i] = &v
		}
	}
	return out
}

func (m *Matrix) MarshalJSON() ([]byte, error) {
	rows := make([][]*float64, m.n)
	for i := range rows {
		rows[i] = Vector(m.Row(i))
	}
	return json.Marshal(rows)
}

func (m *Matrix) UnmarshalJSON(b []byte) error {
	var rows [][]*float64
	if err := json.Unmarshal(b, &rows); err != nil {
		return err
	}
	n := len(rows)
	if n == 0 {
		return ErrBadSize
	}
	data := make([]float64, n*n)
	for i, row := range rows {
		if len(row) != n {
			return fmt.Errorf("row %d has %d columns, want %d: %w", i, len(row), n, ErrNotSquare)
		}
		for j, v := range row {
			if v == nil {
				data[i*n+j] = Inf
			} else {
				data[i*n+j] = *v
			}
		}
	}
	m.n, m.data = n, data
	return nil
}
