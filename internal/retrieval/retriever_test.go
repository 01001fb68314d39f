package retrieval

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdesk/backend/internal/domain"
	"github.com/askdesk/backend/internal/index"
	"github.com/askdesk/backend/internal/vector"
	"github.com/askdesk/backend/internal/vector/memory"
)

const testDim = 16

func wordEmbed(text string) []float32 {
	vec := make([]float32, testDim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%testDim]++
	}
	return vec
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return wordEmbed(text), nil
}

// hookedEmbedder runs a callback before embedding, to interleave index
// activity with an in-flight retrieval.
type hookedEmbedder struct {
	onEmbed func()
}

func (h *hookedEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if h.onEmbed != nil {
		h.onEmbed()
	}
	return wordEmbed(text), nil
}

func seedManager(t *testing.T, texts []string) *index.Manager {
	t.Helper()

	store := memory.New("test", testDim)
	ids := make([]string, len(texts))
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		ids[i] = "doc.md-" + string(rune('0'+i))
		embeddings[i] = wordEmbed(text)
	}
	require.NoError(t, store.Add(context.Background(), ids, texts, embeddings))

	manager := index.NewManager()
	manager.Swap(context.Background(), store)
	return manager
}

func TestNewValidatesParameters(t *testing.T) {
	manager := index.NewManager()
	embedder := &fakeEmbedder{}

	tests := []struct {
		name          string
		mode          Mode
		topK          int
		minSimilarity float64
	}{
		{"unknown mode", "fuzzy", 4, 0.7},
		{"non-positive topK", ModeThreshold, 0, 0.7},
		{"similarity above one", ModeThreshold, 4, 1.5},
		{"negative similarity", ModeThreshold, 4, -0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(embedder, manager, tt.mode, tt.topK, tt.minSimilarity)
			require.Error(t, err)
			assert.True(t, domain.IsConfiguration(err))
		})
	}
}

func TestExactMatchRanksFirstAboveDefaultThreshold(t *testing.T) {
	corpus := []string{
		"# Refunds full refund within 30 days of purchase",
		"# Shipping standard shipping is free and takes five days",
		"# Accounts password reset links are valid for 60 minutes",
	}
	manager := seedManager(t, corpus)

	r, err := New(&fakeEmbedder{}, manager, ModeTopK, 3, DefaultMinSimilarity)
	require.NoError(t, err)

	results, err := r.Retrieve(context.Background(), corpus[0])
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, corpus[0], results[0].Text)
	require.NotNil(t, results[0].Similarity)
	assert.InDelta(t, 1.0, *results[0].Similarity, 1e-9)
	assert.Greater(t, *results[0].Similarity, DefaultMinSimilarity)
}

func TestResultsRankedByDescendingSimilarity(t *testing.T) {
	manager := seedManager(t, []string{
		"refund policy thirty day window",
		"shipping options and tracking",
		"refund policy",
	})

	r, err := New(&fakeEmbedder{}, manager, ModeTopK, 3, DefaultMinSimilarity)
	require.NoError(t, err)

	results, err := r.Retrieve(context.Background(), "refund policy thirty day window")
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i := 1; i < len(results); i++ {
		require.NotNil(t, results[i-1].Similarity)
		require.NotNil(t, results[i].Similarity)
		assert.GreaterOrEqual(t, *results[i-1].Similarity, *results[i].Similarity)
	}
}

func TestThresholdFilteringIsMonotonic(t *testing.T) {
	manager := seedManager(t, []string{
		"refund policy thirty day window",
		"refund policy details",
		"shipping options and carrier tracking",
		"password reset and account settings",
	})

	r, err := New(&fakeEmbedder{}, manager, ModeThreshold, 4, DefaultMinSimilarity)
	require.NoError(t, err)

	query := "refund policy thirty day window"
	prevLen := -1

	for _, threshold := range []float64{0.0, 0.3, 0.5, 0.7, 0.9, 1.0} {
		results, err := r.Filtered(context.Background(), query, 4, threshold)
		require.NoError(t, err)

		if prevLen >= 0 {
			assert.LessOrEqual(t, len(results), prevLen,
				"raising threshold to %v grew the result set", threshold)
		}
		prevLen = len(results)
	}
}

func TestEmptyFilteredResultIsValidData(t *testing.T) {
	manager := seedManager(t, []string{
		"shipping options and carrier tracking",
	})

	r, err := New(&fakeEmbedder{}, manager, ModeThreshold, 4, 0.99)
	require.NoError(t, err)

	results, err := r.Retrieve(context.Background(), "entirely unrelated carry-on luggage question")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMissingSimilarityIsConservativelyRetained(t *testing.T) {
	store := &nilDistanceStore{texts: []string{"chunk without a reported distance"}}
	manager := index.NewManager()
	manager.Swap(context.Background(), store)

	r, err := New(&fakeEmbedder{}, manager, ModeThreshold, 4, DefaultMinSimilarity)
	require.NoError(t, err)

	results, err := r.Retrieve(context.Background(), "anything")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Nil(t, results[0].Similarity)
}

func TestRetrieveBeforeFirstBuildFails(t *testing.T) {
	r, err := New(&fakeEmbedder{}, index.NewManager(), ModeThreshold, 4, DefaultMinSimilarity)
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), "question")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIndexNotReady))
}

func TestRebuildDuringEmbeddingServesNewGeneration(t *testing.T) {
	ctx := context.Background()

	manager := seedManager(t, []string{"stale refund policy wording"})

	next := memory.New("test-2", testDim)
	text := "refund policy thirty day window"
	require.NoError(t, next.Add(ctx, []string{"doc.md-0"}, []string{text}, [][]float32{wordEmbed(text)}))

	// The swap lands while the query embedding is in flight, dropping the
	// generation that was active when the question arrived.
	embedder := &hookedEmbedder{onEmbed: func() {
		manager.Swap(ctx, next)
	}}

	r, err := New(embedder, manager, ModeTopK, 4, DefaultMinSimilarity)
	require.NoError(t, err)

	results, err := r.Retrieve(ctx, "refund policy")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, text, results[0].Text)
}

func TestEmbedderFailurePropagates(t *testing.T) {
	manager := seedManager(t, []string{"some chunk"})
	wantErr := errors.New("embedding service down")

	r, err := New(&fakeEmbedder{err: wantErr}, manager, ModeThreshold, 4, DefaultMinSimilarity)
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), "question")
	assert.ErrorIs(t, err, wantErr)
}

// nilDistanceStore returns hits without distances, imitating a backend
// that cannot report the metric.
type nilDistanceStore struct {
	texts []string
}

func (s *nilDistanceStore) Name() string { return "nil-distance" }

func (s *nilDistanceStore) Add(ctx context.Context, ids []string, texts []string, embeddings [][]float32) error {
	return nil
}

func (s *nilDistanceStore) Query(ctx context.Context, embedding []float32, topK int) ([]vector.Hit, error) {
	hits := make([]vector.Hit, 0, len(s.texts))
	for i, text := range s.texts {
		hits = append(hits, vector.Hit{ID: "x-" + string(rune('0'+i)), Text: text})
	}
	return hits, nil
}

func (s *nilDistanceStore) Drop(ctx context.Context) error { return nil }
func (s *nilDistanceStore) Close() error                   { return nil }
