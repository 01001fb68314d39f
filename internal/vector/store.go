package vector

import "context"

// Hit is one nearest-neighbor result. Distance is the cosine distance to
// the query vector; it is nil when the backend did not report one, which
// callers must treat differently from a distance of zero.
type Hit struct {
	ID       string
	Text     string
	Distance *float64
}

// Store is one generation of the vector index. A rebuild creates a fresh
// Store via a Factory and the old one is dropped after the swap, so
// implementations never need in-place deletion of individual vectors.
type Store interface {
	Name() string
	Add(ctx context.Context, ids []string, texts []string, embeddings [][]float32) error
	Query(ctx context.Context, embedding []float32, topK int) ([]Hit, error)
	Drop(ctx context.Context) error
	Close() error
}

// Factory creates an empty Store for a new index generation.
type Factory func(ctx context.Context) (Store, error)
