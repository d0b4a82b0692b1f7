package correlation

import (
	"math"
	"testing"

	"tfbpdash/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func position(labels []string, l string) int {
	for i, x := range labels {
		if x == l {
			return i
		}
	}
	return -1
}

func TestClusteredMatrix(t *testing.T) {
	labels := []string{"CBF1", "PHO4", "GCN4", "MET4"}
	columns := [][]float64{
		{1, 2, 3, 4, 5, 6},
		{6, 5, 4, 3, 2, 1},
		{1.1, 2.0, 3.2, 3.9, 5.1, 6.0},
		{5.9, 5.2, 3.9, 3.1, 2.2, 0.8},
	}

	m, err := ClusteredMatrix(labels, columns)
	require.NoError(t, err)
	require.Len(t, m.Labels, 4)
	assert.ElementsMatch(t, labels, m.Labels)

	for i := range m.Values {
		assert.Equal(t, 1.0, m.Values[i][i])
		for j := range m.Values {
			assert.InDelta(t, m.Values[i][j], m.Values[j][i], 1e-12)
		}
	}

	r, ok := m.At("CBF1", "PHO4")
	require.True(t, ok)
	assert.InDelta(t, -1, r, 1e-12)

	// the two positively correlated pairs end up adjacent
	assert.Equal(t, 1, abs(position(m.Labels, "CBF1")-position(m.Labels, "GCN4")))
	assert.Equal(t, 1, abs(position(m.Labels, "PHO4")-position(m.Labels, "MET4")))
}

func TestClusteredMatrix_ConstantColumn(t *testing.T) {
	m, err := ClusteredMatrix([]string{"a", "b", "flat"}, [][]float64{
		{1, 2, 3},
		{3, 1, 2},
		{4, 4, 4},
	})
	require.NoError(t, err)
	r, ok := m.At("a", "flat")
	require.True(t, ok)
	assert.True(t, math.IsNaN(r))
}

func TestPearson_Errors(t *testing.T) {
	_, err := Pearson([]string{"a"}, [][]float64{{1, 2}})
	assert.ErrorIs(t, err, core.ErrInsufficientData)

	_, err = Pearson([]string{"a", "b"}, [][]float64{{1}, {2}})
	assert.ErrorIs(t, err, core.ErrInsufficientData)

	_, err = Pearson([]string{"a", "b"}, [][]float64{{1, 2, 3}, {1, 2}})
	assert.True(t, core.IsInvalidInputError(err))

	_, err = Pearson([]string{"a"}, [][]float64{{1, 2}, {1, 2}})
	assert.True(t, core.IsInvalidInputError(err))
}

func TestAverageLinkageOrder(t *testing.T) {
	order := averageLinkageOrder([][]float64{{0}, {10}, {0.5}, {10.2}})
	require.Len(t, order, 4)
	assert.Equal(t, 1, abs(position(names(order), "0")-position(names(order), "2")))
	assert.Equal(t, 1, abs(position(names(order), "1")-position(names(order), "3")))
}

func names(order []int) []string {
	out := make([]string, len(order))
	for i, o := range order {
		out[i] = string(rune('0' + o))
	}
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
