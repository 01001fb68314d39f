package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/askdesk/backend/internal/vector"
)

// Store keeps chunks and embeddings in process memory. It is the default
// backend for local runs and tests; semantics match the milvus backend
// (cosine distance, ascending order).
type Store struct {
	name string
	dim  int

	mu      sync.RWMutex
	ids     []string
	texts   []string
	vectors [][]float32
	dropped bool
}

func New(name string, dim int) *Store {
	return &Store{
		name: name,
		dim:  dim,
	}
}

// Factory returns a vector.Factory producing fresh in-memory stores named
// baseName-<generation>.
func Factory(baseName string, dim int) vector.Factory {
	generation := 0
	var mu sync.Mutex
	return func(ctx context.Context) (vector.Store, error) {
		mu.Lock()
		generation++
		name := fmt.Sprintf("%s-%d", baseName, generation)
		mu.Unlock()
		return New(name, dim), nil
	}
}

func (s *Store) Name() string {
	return s.name
}

func (s *Store) Add(ctx context.Context, ids []string, texts []string, embeddings [][]float32) error {
	if len(ids) != len(texts) || len(ids) != len(embeddings) {
		return fmt.Errorf("mismatched input lengths: %d ids, %d texts, %d embeddings",
			len(ids), len(texts), len(embeddings))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dropped {
		return fmt.Errorf("store %s has been dropped", s.name)
	}

	for i, emb := range embeddings {
		if s.dim > 0 && len(emb) != s.dim {
			return fmt.Errorf("embedding %d has dimension %d, want %d", i, len(emb), s.dim)
		}
	}

	s.ids = append(s.ids, ids...)
	s.texts = append(s.texts, texts...)
	s.vectors = append(s.vectors, embeddings...)

	return nil
}

func (s *Store) Query(ctx context.Context, embedding []float32, topK int) ([]vector.Hit, error) {
	if topK <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dropped {
		return nil, fmt.Errorf("store %s has been dropped", s.name)
	}

	hits := make([]vector.Hit, 0, len(s.ids))
	for i := range s.ids {
		distance := cosineDistance(embedding, s.vectors[i])
		d := distance
		hits = append(hits, vector.Hit{
			ID:       s.ids[i],
			Text:     s.texts[i],
			Distance: &d,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return *hits[i].Distance < *hits[j].Distance
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}

	return hits, nil
}

func (s *Store) Drop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids = nil
	s.texts = nil
	s.vectors = nil
	s.dropped = true

	return nil
}

func (s *Store) Close() error {
	return nil
}

// cosineDistance is 1 - cosine similarity. Zero vectors are treated as
// maximally dissimilar to anything, distance 1.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return 1
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 1
	}

	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
