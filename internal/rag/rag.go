package rag

import (
	"context"

	"constitution-rag/internal/models"
)

// VectorStore is the persisted collection both workflows share. Ingestion
// writes to it, the query workflow only reads.
type VectorStore interface {
	AddDocuments(ctx context.Context, entries []models.ChunkEmbedding) error
	Search(ctx context.Context, embedding []float32, k int) ([]models.SearchResult, error)
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
	Close() error
}
