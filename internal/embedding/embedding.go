package embedding

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"constitution-rag/internal/config"
	"constitution-rag/internal/helper"
	"constitution-rag/internal/models"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewEmbedder creates the embedder for the configured provider. No request is
// made until the first embedding is asked for.
func NewEmbedder(llmConfig *config.LLMConfig) (embeddings.Embedder, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        llmConfig.Provider,
		"base_url":        llmConfig.BaseURL,
		"embedding_model": llmConfig.Model,
	}).Msg("Creating embedder")

	var client embeddings.EmbedderClient
	switch llmConfig.Provider {
	case config.ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(llmConfig.Model)}
		if llmConfig.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(llmConfig.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama embedder: %w", err)
		}
		client = llm
	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(helper.APIToken(llmConfig.Key)),
			openai.WithEmbeddingModel(llmConfig.Model),
		}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai embedder: %w", err)
		}
		client = llm
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", llmConfig.Provider)
	}

	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

// GenerateEmbedding embeds every chunk in one EmbedDocuments call and tags the
// results with a fresh ID and the embedding model name.
func GenerateEmbedding(ctx context.Context, embedder embeddings.Embedder, embeddingModel string, chunks []models.Chunk) ([]models.ChunkEmbedding, error) {
	if len(chunks) == 0 {
		log.Info().Msg("No chunks generated from content")
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	chunkEmbeddings := make([]models.ChunkEmbedding, 0, len(chunks))
	for i, chunk := range chunks {
		id, err := helper.GenerateUUID()
		if err != nil {
			return nil, err
		}
		chunkEmbeddings = append(chunkEmbeddings, models.ChunkEmbedding{
			ID:             id,
			Content:        chunk.Content,
			Embedding:      vectors[i],
			SourceFilename: chunk.Source,
			PageNumber:     chunk.PageNumber,
			TotalPages:     chunk.TotalPages,
			ChunkID:        chunk.ChunkID,
			EmbeddingModel: embeddingModel,
		})
	}

	return chunkEmbeddings, nil
}
