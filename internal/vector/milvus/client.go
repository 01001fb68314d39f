package milvus

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/askdesk/backend/internal/vector"
	"github.com/askdesk/backend/pkg/logger"
)

// Store is one Milvus collection holding one index generation. Collections
// are named <base>_<unix-nanos> so a rebuild can load a fresh collection
// while the previous one keeps serving queries until the swap completes.
type Store struct {
	client     client.Client
	collection string
	dim        int
}

// Factory returns a vector.Factory that dials the Milvus endpoint and
// creates a fresh generation collection per call.
func Factory(endpoint, baseCollection string, dim int) vector.Factory {
	return func(ctx context.Context) (vector.Store, error) {
		name := fmt.Sprintf("%s_%d", baseCollection, time.Now().UnixNano())
		return NewStore(ctx, endpoint, name, dim)
	}
}

func NewStore(ctx context.Context, endpoint, collection string, dim int) (*Store, error) {
	c, err := client.NewGrpcClient(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	s := &Store{
		client:     c,
		collection: collection,
		dim:        dim,
	}

	if err := s.createCollection(ctx); err != nil {
		c.Close()
		return nil, err
	}

	logger.Info("Milvus collection ready",
		zap.String("endpoint", endpoint),
		zap.String("collection", collection),
	)

	return s, nil
}

func (s *Store) Name() string {
	return s.collection
}

func (s *Store) createCollection(ctx context.Context) error {
	has, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if has {
		return fmt.Errorf("collection %s already exists", s.collection)
	}

	schema := &entity.Schema{
		CollectionName: s.collection,
		Description:    "Support documentation chunk embeddings",
		Fields: []*entity.Field{
			{
				Name:       "chunk_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "128",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", s.dim),
				},
			},
			{
				Name:     "text",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "8192",
				},
			},
			{
				Name:     "document",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "256",
				},
			},
		},
	}

	err = s.client.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.COSINE, 1024)
	if err != nil {
		return fmt.Errorf("failed to build index params: %w", err)
	}
	err = s.client.CreateIndex(ctx, s.collection, "embedding", idx, false)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = s.client.LoadCollection(ctx, s.collection, false)
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	return nil
}

func (s *Store) Add(ctx context.Context, ids []string, texts []string, embeddings [][]float32) error {
	if len(ids) != len(texts) || len(ids) != len(embeddings) {
		return fmt.Errorf("mismatched input lengths: %d ids, %d texts, %d embeddings",
			len(ids), len(texts), len(embeddings))
	}
	if len(ids) == 0 {
		return nil
	}

	documents := make([]string, len(ids))
	for i, id := range ids {
		documents[i] = documentFromChunkID(id)
	}

	_, err := s.client.Insert(
		ctx,
		s.collection,
		"",
		entity.NewColumnVarChar("chunk_id", ids),
		entity.NewColumnFloatVector("embedding", s.dim, embeddings),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnVarChar("document", documents),
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunks: %w", err)
	}

	err = s.client.Flush(ctx, s.collection, false)
	if err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	logger.Info("Chunks inserted into vector store",
		zap.String("collection", s.collection),
		zap.Int("count", len(ids)),
	)

	return nil
}

func (s *Store) Query(ctx context.Context, embedding []float32, topK int) ([]vector.Hit, error) {
	if topK <= 0 {
		return nil, nil
	}

	sp, err := entity.NewIndexIvfFlatSearchParam(16)
	if err != nil {
		return nil, fmt.Errorf("failed to build search params: %w", err)
	}

	searchResult, err := s.client.Search(
		ctx,
		s.collection,
		[]string{},
		"",
		[]string{"chunk_id", "text"},
		[]entity.Vector{entity.FloatVector(embedding)},
		"embedding",
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	hits := make([]vector.Hit, 0, topK)
	for _, sr := range searchResult {
		chunkIDCol := sr.Fields.GetColumn("chunk_id")
		textCol := sr.Fields.GetColumn("text")

		for i := 0; i < sr.ResultCount; i++ {
			chunkID, err := chunkIDCol.Get(i)
			if err != nil {
				return nil, fmt.Errorf("failed to read chunk_id: %w", err)
			}
			text, err := textCol.Get(i)
			if err != nil {
				return nil, fmt.Errorf("failed to read text: %w", err)
			}

			// COSINE scores are similarities; callers work in distances.
			distance := 1 - float64(sr.Scores[i])
			hits = append(hits, vector.Hit{
				ID:       chunkID.(string),
				Text:     text.(string),
				Distance: &distance,
			})
		}
	}

	return hits, nil
}

func (s *Store) Drop(ctx context.Context) error {
	err := s.client.DropCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}

	logger.Info("Collection dropped", zap.String("collection", s.collection))
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// documentFromChunkID strips the trailing "-<index>" from a chunk id,
// leaving the source document name.
func documentFromChunkID(id string) string {
	for i := len(id) - 1; i >= 0; i-- {
		if id[i] == '-' {
			return id[:i]
		}
	}
	return id
}
