package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Birzhan20/neuro-search-core/internal/db"
	"github.com/Birzhan20/neuro-search-core/internal/models"
)

// Payload keys stored alongside each vector. The same keys are read back at
// query time to build citations.
const (
	payloadSource     = "source"
	payloadPage       = "page"
	payloadContent    = "page_content"
	payloadOrdinal    = "ordinal"
	payloadTokenCount = "token_count"
)

// unknownSource is substituted when a stored point is missing its source
// metadata, so a citation can always be rendered.
const unknownSource = "unknown"

// VectorRepository stores embedded chunks and retrieves the nearest ones for
// a query vector.
type VectorRepository interface {
	// EnsureCollection idempotently creates the backing collection.
	EnsureCollection(ctx context.Context, dimension int) error

	// UpsertChunks stores chunks with their embeddings as one logical batch.
	UpsertChunks(ctx context.Context, chunks []models.Chunk, embeddings [][]float32) error

	// Search returns up to limit matches for the vector, best first.
	Search(ctx context.Context, vector []float32, limit int) ([]models.RetrievalMatch, error)
}

// QdrantVectorRepository implements VectorRepository on a Qdrant collection.
type QdrantVectorRepository struct {
	client     *db.QdrantClient
	collection string
}

// NewQdrantVectorRepository creates a Qdrant-backed vector repository.
func NewQdrantVectorRepository(client *db.QdrantClient, collection string) *QdrantVectorRepository {
	return &QdrantVectorRepository{
		client:     client,
		collection: collection,
	}
}

// EnsureCollection creates the cosine-distance collection if missing.
func (r *QdrantVectorRepository) EnsureCollection(ctx context.Context, dimension int) error {
	if err := r.client.EnsureCollection(ctx, r.collection, dimension, "Cosine"); err != nil {
		return NewRepositoryError("ensure_collection", err)
	}
	return nil
}

// UpsertChunks stores the chunks as one batch. Points get fresh ids, so
// re-ingesting a file accumulates duplicates rather than overwriting.
func (r *QdrantVectorRepository) UpsertChunks(ctx context.Context, chunks []models.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return NewRepositoryError("upsert_chunks",
			fmt.Errorf("chunk/embedding count mismatch: %d != %d", len(chunks), len(embeddings)))
	}

	points := make([]db.Point, len(chunks))
	for i, chunk := range chunks {
		points[i] = db.Point{
			ID:     uuid.New().String(),
			Vector: embeddings[i],
			Payload: map[string]any{
				payloadSource:     chunk.SourceID,
				payloadPage:       chunk.Page,
				payloadContent:    chunk.Text,
				payloadOrdinal:    chunk.Ordinal,
				payloadTokenCount: chunk.TokenCount,
			},
		}
	}

	if err := r.client.UpsertPoints(ctx, r.collection, points); err != nil {
		return NewRepositoryError("upsert_chunks", err)
	}

	return nil
}

// Search maps Qdrant hits to retrieval matches. Missing payload fields fall
// back to defined sentinels and a missing score is coerced to 0, never
// propagated as absent.
func (r *QdrantVectorRepository) Search(ctx context.Context, vector []float32, limit int) ([]models.RetrievalMatch, error) {
	points, err := r.client.Search(ctx, r.collection, vector, limit)
	if err != nil {
		return nil, NewRepositoryError("search", err)
	}

	matches := make([]models.RetrievalMatch, 0, len(points))
	for _, p := range points {
		match := models.RetrievalMatch{
			SourceID: unknownSource,
		}

		if p.Payload != nil {
			if source, ok := p.Payload[payloadSource].(string); ok && source != "" {
				match.SourceID = source
			}
			if page, ok := p.Payload[payloadPage].(float64); ok {
				match.Page = int(page)
			}
			if text, ok := p.Payload[payloadContent].(string); ok {
				match.Text = text
			}
		}
		if p.Score != nil {
			match.Score = *p.Score
		}

		matches = append(matches, match)
	}

	return matches, nil
}
