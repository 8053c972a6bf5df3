package rag

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"constitution-rag/internal/config"
	"constitution-rag/internal/embedding"
	"constitution-rag/internal/models"
	"constitution-rag/internal/parser"
)

// IngestResult summarises one ingestion run.
type IngestResult struct {
	Source    string
	Documents int
	Chunks    int
	Stored    int
}

// Ingestor turns a source file into embedded entries of the vector store.
// Every step runs sequentially and the first error aborts the run.
type Ingestor struct {
	store    VectorStore
	embedder embeddings.Embedder
	cfg      *config.Config
}

func NewIngestor(store VectorStore, embedder embeddings.Embedder, cfg *config.Config) *Ingestor {
	return &Ingestor{store: store, embedder: embedder, cfg: cfg}
}

// LoadAndSplit loads filePath and splits it into chunks. It needs neither the
// store nor the embedder.
func (i *Ingestor) LoadAndSplit(ctx context.Context, filePath string) ([]models.Chunk, int, error) {
	docs, err := parser.Load(ctx, filePath)
	if err != nil {
		return nil, 0, err
	}
	log.Info().Str("file", filePath).Int("documents", len(docs)).Msg("Loaded documents")

	chunks, err := parser.Split(docs, i.cfg.RAG)
	if err != nil {
		return nil, 0, err
	}
	log.Info().Int("chunks", len(chunks)).Int("chunk_size", i.cfg.RAG.ChunkSize).Int("chunk_overlap", i.cfg.RAG.ChunkOverlap).Msg("Split documents")
	return chunks, len(docs), nil
}

// Ingest loads, splits, embeds and persists filePath. Running it twice on the
// same store stores the chunks twice.
func (i *Ingestor) Ingest(ctx context.Context, filePath string) (*IngestResult, error) {
	if filePath == "" {
		filePath = i.cfg.Source.Path
	}

	chunks, numDocs, err := i.LoadAndSplit(ctx, filePath)
	if err != nil {
		return nil, err
	}

	chunkEmbeddings, err := embedding.GenerateEmbedding(ctx, i.embedder, i.cfg.EmbedLLM.Model, chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	log.Info().Msgf("Adding %d documents to vector database", len(chunkEmbeddings))
	if err := i.store.AddDocuments(ctx, chunkEmbeddings); err != nil {
		return nil, fmt.Errorf("failed to persist embeddings: %w", err)
	}

	return &IngestResult{
		Source:    filePath,
		Documents: numDocs,
		Chunks:    len(chunks),
		Stored:    len(chunkEmbeddings),
	}, nil
}
