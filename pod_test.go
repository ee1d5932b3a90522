package fattree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExactDiv(t *testing.T) {
	q, err := exactDiv(16, 2)
	require.NoError(t, err)
	assert.Equal(t, 8, q)

	_, err = exactDiv(15, 2)
	assert.ErrorIs(t, err, ErrConfig)

	_, err = exactDiv(4, 0)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestCoreHalf(t *testing.T) {
	tests := []struct {
		aggrPos, coreCount int
		want               []int
	}{
		{0, 4, []int{0, 1}},
		{1, 4, []int{2, 3}},
		{6, 4, []int{0, 1}},
		{7, 4, []int{2, 3}},
		{3, 8, []int{4, 5, 6, 7}},
	}
	for _, tt := range tests {
		got, err := coreHalf(tt.aggrPos, tt.coreCount)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "aggregation position %d of %d core", tt.aggrPos, tt.coreCount)
	}

	_, err := coreHalf(0, 3)
	assert.ErrorIs(t, err, ErrConfig)

	_, err = coreHalf(-1, 4)
	assert.ErrorIs(t, err, ErrInternal)
}

func TestPodBaseAndAggrPair(t *testing.T) {
	assert.Equal(t, 0, podBase(0))
	assert.Equal(t, 0, podBase(1))
	assert.Equal(t, 2, podBase(2))
	assert.Equal(t, 2, podBase(3))

	pair, err := aggrPair(3, 8)
	require.NoError(t, err)
	assert.Equal(t, [2]int{2, 3}, pair)

	pair, err = aggrPair(6, 8)
	require.NoError(t, err)
	assert.Equal(t, [2]int{6, 7}, pair)

	// a pod whose second aggregation switch does not exist is never clamped
	_, err = aggrPair(8, 8)
	assert.ErrorIs(t, err, ErrInternal)
	_, err = aggrPair(7, 7)
	assert.ErrorIs(t, err, ErrInternal)
	_, err = aggrPair(-1, 8)
	assert.ErrorIs(t, err, ErrInternal)
}

// hostEdge must floor for odd positions as well as even ones
func TestHostEdge_FloorDivision(t *testing.T) {
	want := []int{0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7}
	for pos, edge := range want {
		got, err := hostEdge(pos, 2, 8)
		require.NoError(t, err)
		assert.Equal(t, edge, got, "host position %d", pos)
	}

	for pos, edge := range []int{0, 0, 0, 1, 1, 1, 2, 2, 2} {
		got, err := hostEdge(pos, 3, 3)
		require.NoError(t, err)
		assert.Equal(t, edge, got, "host position %d, 3 per edge", pos)
	}
}

func TestHostEdge_Errors(t *testing.T) {
	_, err := hostEdge(16, 2, 8)
	assert.ErrorIs(t, err, ErrInternal)

	_, err = hostEdge(-1, 2, 8)
	assert.ErrorIs(t, err, ErrInternal)

	_, err = hostEdge(3, 0, 8)
	assert.ErrorIs(t, err, ErrConfig)
}
