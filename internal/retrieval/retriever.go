package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/askdesk/backend/internal/domain"
	"github.com/askdesk/backend/internal/index"
	"github.com/askdesk/backend/pkg/logger"
)

// Embedder embeds a single query text.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Mode selects how retrieved chunks are handed to the decision stage.
// ModeThreshold drops weakly similar chunks before the model sees them, so
// an empty result plainly signals "no relevant documentation". ModeTopK
// passes everything through and leaves the sufficiency judgment entirely
// to the model. Threshold filtering is the shipped default.
type Mode string

const (
	ModeThreshold Mode = "threshold"
	ModeTopK      Mode = "top_k"
)

const (
	DefaultTopK          = 4
	DefaultMinSimilarity = 0.7
)

// Result is one retrieved chunk. Similarity is 1 minus the cosine distance
// reported by the store; it is nil when the store did not report a
// distance, which is a distinguishable state, not a zero.
type Result struct {
	ID         string
	Text       string
	Similarity *float64
}

// Retriever embeds a question and runs a nearest-neighbor query against
// the active index generation. An empty result slice with a nil error is
// valid data, distinct from a query failure.
type Retriever struct {
	embedder      Embedder
	manager       *index.Manager
	mode          Mode
	topK          int
	minSimilarity float64
}

func New(embedder Embedder, manager *index.Manager, mode Mode, topK int, minSimilarity float64) (*Retriever, error) {
	switch mode {
	case ModeThreshold, ModeTopK:
	default:
		return nil, fmt.Errorf("%w: unknown retrieval mode %q", domain.ErrConfiguration, mode)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: retrieval topK must be positive, got %d", domain.ErrConfiguration, topK)
	}
	if minSimilarity < 0 || minSimilarity > 1 {
		return nil, fmt.Errorf("%w: min similarity %v must be within [0, 1]", domain.ErrConfiguration, minSimilarity)
	}

	return &Retriever{
		embedder:      embedder,
		manager:       manager,
		mode:          mode,
		topK:          topK,
		minSimilarity: minSimilarity,
	}, nil
}

// Retrieve runs the configured retrieval mode with the configured
// parameters.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]Result, error) {
	if r.mode == ModeTopK {
		return r.TopK(ctx, query, r.topK)
	}
	return r.Filtered(ctx, query, r.topK, r.minSimilarity)
}

// TopK returns up to k chunks ranked by descending similarity, however
// weak the matches are.
func (r *Retriever) TopK(ctx context.Context, query string, k int) ([]Result, error) {
	// Fail fast before spending an embedding call on a question the index
	// cannot serve.
	if _, err := r.manager.Active(); err != nil {
		return nil, err
	}

	embedding, err := r.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	// The handle is taken after the slow embedding round trip so a rebuild
	// completing meanwhile cannot hand us a dropped generation.
	store, err := r.manager.Active()
	if err != nil {
		return nil, err
	}

	hits, err := store.Query(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("%w: vector query failed: %v", domain.ErrUpstreamService, err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		res := Result{
			ID:   hit.ID,
			Text: hit.Text,
		}
		if hit.Distance != nil {
			similarity := 1 - *hit.Distance
			res.Similarity = &similarity
		}
		results = append(results, res)
	}

	logger.Debug("Chunks retrieved",
		zap.String("query", query),
		zap.Int("count", len(results)),
	)

	return results, nil
}

// Filtered returns the top-k chunks whose similarity reaches threshold.
// A chunk whose store reported no distance is retained: an availability
// gap must not turn into a false negative.
func (r *Retriever) Filtered(ctx context.Context, query string, k int, threshold float64) ([]Result, error) {
	results, err := r.TopK(ctx, query, k)
	if err != nil {
		return nil, err
	}

	filtered := results[:0]
	for _, res := range results {
		if res.Similarity == nil || *res.Similarity >= threshold {
			filtered = append(filtered, res)
		}
	}

	if len(filtered) < len(results) {
		logger.Debug("Weak chunks filtered out",
			zap.Int("kept", len(filtered)),
			zap.Int("dropped", len(results)-len(filtered)),
			zap.Float64("threshold", threshold),
		)
	}

	return filtered, nil
}
