package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryRanksByCosineDistance(t *testing.T) {
	s := New("test", 3)
	ctx := context.Background()

	err := s.Add(ctx,
		[]string{"a", "b", "c"},
		[]string{"alpha", "beta", "gamma"},
		[][]float32{
			{1, 0, 0},
			{0, 1, 0},
			{0.9, 0.1, 0},
		},
	)
	require.NoError(t, err)

	hits, err := s.Query(ctx, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "a", hits[0].ID)
	assert.Equal(t, "c", hits[1].ID)
	assert.Equal(t, "b", hits[2].ID)

	require.NotNil(t, hits[0].Distance)
	assert.InDelta(t, 0.0, *hits[0].Distance, 1e-9)
	assert.Less(t, *hits[1].Distance, *hits[2].Distance)
}

func TestQueryCapsAtTopK(t *testing.T) {
	s := New("test", 2)
	ctx := context.Background()

	err := s.Add(ctx,
		[]string{"a", "b", "c", "d"},
		[]string{"1", "2", "3", "4"},
		[][]float32{{1, 0}, {0, 1}, {1, 1}, {0.5, 0.5}},
	)
	require.NoError(t, err)

	hits, err := s.Query(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestAddRejectsDimensionMismatch(t *testing.T) {
	s := New("test", 3)

	err := s.Add(context.Background(),
		[]string{"a"},
		[]string{"alpha"},
		[][]float32{{1, 0}},
	)
	assert.Error(t, err)
}

func TestAddRejectsMismatchedLengths(t *testing.T) {
	s := New("test", 2)

	err := s.Add(context.Background(),
		[]string{"a", "b"},
		[]string{"alpha"},
		[][]float32{{1, 0}},
	)
	assert.Error(t, err)
}

func TestDroppedStoreRefusesQueries(t *testing.T) {
	s := New("test", 2)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []string{"a"}, []string{"alpha"}, [][]float32{{1, 0}}))
	require.NoError(t, s.Drop(ctx))

	_, err := s.Query(ctx, []float32{1, 0}, 1)
	assert.Error(t, err)

	err = s.Add(ctx, []string{"b"}, []string{"beta"}, [][]float32{{0, 1}})
	assert.Error(t, err)
}

func TestZeroVectorIsMaximallyDistant(t *testing.T) {
	s := New("test", 2)
	ctx := context.Background()

	err := s.Add(ctx,
		[]string{"zero", "close"},
		[]string{"zero", "close"},
		[][]float32{{0, 0}, {1, 0}},
	)
	require.NoError(t, err)

	hits, err := s.Query(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "close", hits[0].ID)
	assert.InDelta(t, 1.0, *hits[1].Distance, 1e-9)
}

func TestFactoryProducesFreshStores(t *testing.T) {
	factory := Factory("kb", 2)
	ctx := context.Background()

	first, err := factory(ctx)
	require.NoError(t, err)
	second, err := factory(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, first.Name(), second.Name())

	require.NoError(t, first.Add(ctx, []string{"a"}, []string{"alpha"}, [][]float32{{1, 0}}))
	hits, err := second.Query(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
