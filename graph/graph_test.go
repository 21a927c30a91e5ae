package graph

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	m, err := New(3)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if i == j {
				assert.Equal(t, 0.0, m.At(i, j))
			} else {
				assert.True(t, math.IsInf(m.At(i, j), 1))
			}
		}
	}

	_, err = New(0)
	assert.ErrorIs(t, err, ErrBadSize)
}

func TestFromRowsRejectsRagged(t *testing.T) {
	_, err := FromRows([][]float64{{0, 1}, {1}})
	assert.ErrorIs(t, err, ErrNotSquare)

	_, err = FromRows(nil)
	assert.ErrorIs(t, err, ErrBadSize)
}

func TestGenerateRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	m, err := GenerateRandom(50, 0.3, rng)
	require.NoError(t, err)
	assert.Equal(t, 50, m.Size())

	edges := 0
	for i := 0; i < 50; i++ {
		assert.Equal(t, 0.0, m.At(i, i))
		for j := 0; j < 50; j++ {
			w := m.At(i, j)
			if i == j || math.IsInf(w, 1) {
				continue
			}
			edges++
			assert.GreaterOrEqual(t, w, 1.0)
			assert.Less(t, w, float64(MaxWeight))
			assert.Equal(t, math.Trunc(w), w, "weights are integers")
		}
	}
	// 2450 candidate pairs at 0.3 density
	assert.InDelta(t, 735, edges, 150)
}

func TestGenerateRandomDensityBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	empty, err := GenerateRandom(5, 0, rng)
	require.NoError(t, err)
	full, err := GenerateRandom(5, 1, rng)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			if i == j {
				continue
			}
			assert.True(t, math.IsInf(empty.At(i, j), 1))
			assert.False(t, math.IsInf(full.At(i, j), 1))
		}
	}

	_, err = GenerateRandom(5, 1.5, rng)
	assert.ErrorIs(t, err, ErrBadDensity)
	_, err = GenerateRandom(5, -0.1, rng)
	assert.ErrorIs(t, err, ErrBadDensity)
	_, err = GenerateRandom(0, 0.5, rng)
	assert.ErrorIs(t, err, ErrBadSize)
}

func TestMatrixJSONUsesNullForMissingEdges(t *testing.T) {
	m, err := FromRows([][]float64{{0, 4}, {math.Inf(1), 0}})
	require.NoError(t, err)

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `[[0,4],[null,0]]`, string(b))

	var back Matrix
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, m.Rows(), back.Rows())
}

func TestMatrixUnmarshalRejectsRagged(t *testing.T) {
	var m Matrix
	err := json.Unmarshal([]byte(`[[0,1],[2]]`), &m)
	assert.ErrorIs(t, err, ErrNotSquare)
}

func TestClone(t *testing.T) {
	m, _ := New(2)
	c := m.Clone()
	c.Set(0, 1, 3)
	assert.True(t, math.IsInf(m.At(0, 1), 1))
	assert.Equal(t, 3.0, c.At(0, 1))
}
