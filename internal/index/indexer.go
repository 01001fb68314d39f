package index

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/askdesk/backend/internal/chunk"
	"github.com/askdesk/backend/internal/corpus"
	"github.com/askdesk/backend/internal/metrics"
	"github.com/askdesk/backend/internal/vector"
	"github.com/askdesk/backend/pkg/logger"
)

// Embedder produces one embedding vector per input text, in input order.
type Embedder interface {
	GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Indexer builds index generations from the corpus: load documents, chunk
// them, embed every chunk, fill a fresh store and swap it in through the
// Manager. Rebuilds are serialized; a failed rebuild leaves the previous
// generation untouched.
type Indexer struct {
	loader   *corpus.Loader
	chunker  *chunk.Chunker
	embedder Embedder
	factory  vector.Factory
	manager  *Manager

	mu sync.Mutex
}

// BuildResult reports what went into the new generation.
type BuildResult struct {
	Documents int
	Chunks    int
}

func NewIndexer(loader *corpus.Loader, chunker *chunk.Chunker, embedder Embedder, factory vector.Factory, manager *Manager) *Indexer {
	return &Indexer{
		loader:   loader,
		chunker:  chunker,
		embedder: embedder,
		factory:  factory,
		manager:  manager,
	}
}

// Rebuild creates a new index generation from the current corpus state.
// Chunk ids are "<documentName>-<runningIndex>" with the running index
// counting across all documents of the build, so ids are unique within a
// generation even when documents share chunks of identical text.
func (ix *Indexer) Rebuild(ctx context.Context) (*BuildResult, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	docs, err := ix.loader.Load()
	if err != nil {
		return nil, err
	}

	var ids, texts []string
	running := 0
	for _, doc := range docs {
		for _, c := range ix.chunker.Split(doc.Text) {
			ids = append(ids, fmt.Sprintf("%s-%d", doc.Name, running))
			texts = append(texts, c)
			running++
		}
	}

	logger.Info("Corpus chunked",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(texts)),
	)

	embeddings, err := ix.embedder.GenerateBatchEmbeddings(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, expected %d", len(embeddings), len(texts))
	}

	store, err := ix.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create index generation: %w", err)
	}

	if err := store.Add(ctx, ids, texts, embeddings); err != nil {
		// The half-built generation is discarded; the active one was
		// never touched.
		if dropErr := store.Drop(ctx); dropErr != nil {
			logger.Warn("Failed to drop aborted index generation", zap.Error(dropErr))
		}
		store.Close()
		return nil, fmt.Errorf("failed to fill index generation: %w", err)
	}

	ix.manager.Swap(ctx, store)

	metrics.IndexDocuments.Set(float64(len(docs)))
	metrics.IndexChunks.Set(float64(len(texts)))
	metrics.IndexRebuilds.Inc()

	logger.Info("Index rebuilt",
		zap.String("collection", store.Name()),
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(texts)),
	)

	return &BuildResult{
		Documents: len(docs),
		Chunks:    len(texts),
	}, nil
}
