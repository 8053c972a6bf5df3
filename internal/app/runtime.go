// Package app wires configuration, provider clients and the vector store into
// one value that is created explicitly and closed explicitly.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"constitution-rag/internal/chromemdb"
	"constitution-rag/internal/config"
	"constitution-rag/internal/db"
	"constitution-rag/internal/embedding"
	"constitution-rag/internal/llmservice"
	"constitution-rag/internal/rag"
)

type Mode int

const (
	// ModeIngest opens the store for writing and needs no language model.
	ModeIngest Mode = iota
	// ModeQuery opens the store read-only and creates the language model.
	ModeQuery
)

func (m Mode) String() string {
	if m == ModeQuery {
		return "query"
	}
	return "ingest"
}

type Runtime struct {
	Config   *config.Config
	Mode     Mode
	Embedder embeddings.Embedder
	LLM      llmservice.Generator
	Store    rag.VectorStore

	closed bool
}

// Option replaces a client New would otherwise build from the config.
type Option func(*Runtime)

func WithEmbedder(e embeddings.Embedder) Option {
	return func(r *Runtime) { r.Embedder = e }
}

func WithLLM(llm llmservice.Generator) Option {
	return func(r *Runtime) { r.LLM = llm }
}

func WithStore(s rag.VectorStore) Option {
	return func(r *Runtime) { r.Store = s }
}

// New validates cfg and builds whatever clients the options did not supply.
func New(ctx context.Context, cfg *config.Config, mode Mode, opts ...Option) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Runtime{Config: cfg, Mode: mode}
	for _, opt := range opts {
		opt(r)
	}

	if r.Embedder == nil {
		e, err := embedding.NewEmbedder(&cfg.EmbedLLM)
		if err != nil {
			return nil, err
		}
		r.Embedder = e
	}

	if mode == ModeQuery && r.LLM == nil {
		llm, err := llmservice.NewLLM(&cfg.InferenceLLM)
		if err != nil {
			return nil, err
		}
		r.LLM = llm
	}

	if r.Store == nil {
		s, err := OpenStore(ctx, cfg, mode == ModeQuery, r.Embedder)
		if err != nil {
			return nil, err
		}
		r.Store = s
	}

	log.Debug().Str("mode", mode.String()).Str("backend", cfg.Store.Backend).Msg("Runtime ready")
	return r, nil
}

// OpenStore opens the configured backend. Read-only stores never create
// anything.
func OpenStore(ctx context.Context, cfg *config.Config, readOnly bool, embedder embeddings.Embedder) (rag.VectorStore, error) {
	switch cfg.Store.Backend {
	case config.BackendChromem:
		var embed chromem.EmbeddingFunc
		if embedder != nil {
			embed = embedder.EmbedQuery
		}
		return chromemdb.NewVectorDBManager(cfg.Store.Path, cfg.Store.Collection, cfg.Store.Compress, readOnly, cfg.RAG.EncryptionKey, embed)
	case config.BackendPgvector:
		return db.NewStore(ctx, &cfg.Store, readOnly)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func (r *Runtime) Ingestor() *rag.Ingestor {
	return rag.NewIngestor(r.Store, r.Embedder, r.Config)
}

func (r *Runtime) Querier() (*rag.Querier, error) {
	if r.Mode != ModeQuery {
		return nil, errors.New("runtime was not opened for queries")
	}
	return rag.NewQuerier(r.Store, r.Embedder, r.LLM, r.Config), nil
}

// Close releases the store. Calling it again is a no-op.
func (r *Runtime) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.Store == nil {
		return nil
	}
	return r.Store.Close()
}
