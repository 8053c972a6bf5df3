package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"constitution-rag/internal/config"
	"constitution-rag/internal/llmservice"
	"constitution-rag/internal/models"
)

var (
	ErrEmptyQuery             = errors.New("query is empty")
	ErrEmbeddingModelMismatch = errors.New("embedding model mismatch")
)

// Querier answers questions from the persisted collection.
type Querier struct {
	store    VectorStore
	embedder embeddings.Embedder
	llm      llmservice.Generator
	cfg      *config.Config
}

func NewQuerier(store VectorStore, embedder embeddings.Embedder, llm llmservice.Generator, cfg *config.Config) *Querier {
	return &Querier{store: store, embedder: embedder, llm: llm, cfg: cfg}
}

// Retrieve returns the top-k chunks for query, never more than rag.top_k.
func (q *Querier) Retrieve(ctx context.Context, query string) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	queryEmbedding, err := q.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := q.store.Search(ctx, queryEmbedding, q.cfg.RAG.TopK)
	if err != nil {
		return nil, err
	}
	if len(results) > q.cfg.RAG.TopK {
		results = results[:q.cfg.RAG.TopK]
	}

	if err := q.checkEmbeddingModel(results); err != nil {
		return nil, err
	}
	log.Debug().Int("results", len(results)).Msg("Retrieved context")
	return results, nil
}

// checkEmbeddingModel compares the model recorded at ingestion with the one
// used for the query.
func (q *Querier) checkEmbeddingModel(results []models.SearchResult) error {
	want := q.cfg.EmbedLLM.Model
	for _, r := range results {
		got := r.Metadata[models.MetaEmbeddingModel]
		if got == "" || got == want {
			continue
		}
		if q.cfg.RAG.EnforceEmbeddingModel {
			return fmt.Errorf("%w: entry %s was embedded with %q, query uses %q", ErrEmbeddingModelMismatch, r.ID, got, want)
		}
		log.Warn().Str("stored", got).Str("configured", want).Msg("Embedding model differs from the one used at ingestion, retrieval quality may degrade")
		return nil
	}
	return nil
}

// Query runs retrieve, prompt assembly and generation for one question.
func (q *Querier) Query(ctx context.Context, query string) (*models.PromptResponse, error) {
	results, err := q.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}

	prompt := BuildPrompt(BuildContext(results), query)
	log.Debug().Str("prompt", prompt).Msg("Generating answer")

	answer, err := llmservice.GenerateContent(ctx, q.llm, &q.cfg.InferenceLLM, prompt)
	if err != nil {
		return nil, err
	}

	return &models.PromptResponse{
		Query:   query,
		Source:  SourceSummary(results),
		Content: answer,
		Sources: results,
	}, nil
}
