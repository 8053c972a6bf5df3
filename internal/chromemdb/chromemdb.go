package chromemdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"constitution-rag/internal/helper"
	"constitution-rag/internal/models"
)

var ErrStoreNotFound = errors.New("vector store not found")

// persisting runs one document at a time
const addConcurrency = 1

// VectorDBManager encapsulates the chromem-go database operations
type VectorDBManager struct {
	db             *chromem.DB
	collection     *chromem.Collection
	collectionName string
	dbPath         string
	compress       bool
	encryptionKey  string
	embed          chromem.EmbeddingFunc
}

// NewVectorDBManager opens the persistent database in dbPath. A read-only
// manager never creates anything on disk: a missing directory is ErrStoreNotFound
// and a missing collection behaves as an empty one.
func NewVectorDBManager(dbPath, collectionName string, compress, readOnly bool, encryptionKey string, embed chromem.EmbeddingFunc) (*VectorDBManager, error) {
	if readOnly {
		if !helper.FolderExists(dbPath) {
			return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, dbPath)
		}
	} else if err := helper.CreateFolder(dbPath); err != nil {
		return nil, err
	}

	db, err := chromem.NewPersistentDB(dbPath, compress)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	m := &VectorDBManager{
		db:             db,
		collectionName: collectionName,
		dbPath:         dbPath,
		compress:       compress,
		encryptionKey:  encryptionKey,
		embed:          embed,
	}

	if readOnly {
		m.collection = db.GetCollection(collectionName, embed)
		if m.collection == nil {
			log.Warn().Str("collection", collectionName).Str("path", dbPath).Msg("Collection does not exist, searches return nothing")
		}
		return m, nil
	}

	if _, err := m.GetOrCreateCollection(); err != nil {
		return nil, err
	}
	return m, nil
}

// create or read collection
func (m *VectorDBManager) GetOrCreateCollection() (*chromem.Collection, error) {
	c, err := m.db.GetOrCreateCollection(m.collectionName, nil, m.embed)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	m.collection = c
	return c, nil
}

// AddDocuments writes the entries into the collection.
func (m *VectorDBManager) AddDocuments(ctx context.Context, entries []models.ChunkEmbedding) error {
	if m.collection == nil {
		return fmt.Errorf("collection %s is not open for writing", m.collectionName)
	}
	if len(entries) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, chromem.Document{
			ID:        e.ID,
			Content:   e.Content,
			Metadata:  e.Metadata(),
			Embedding: e.Embedding,
		})
	}

	if err := m.collection.AddDocuments(ctx, docs, addConcurrency); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Search returns at most k entries ordered by similarity to embedding.
func (m *VectorDBManager) Search(ctx context.Context, embedding []float32, k int) ([]models.SearchResult, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("query embedding must be provided")
	}
	if m.collection == nil || k <= 0 {
		return nil, nil
	}
	// chromem rejects nResults larger than the collection
	n := min(k, m.collection.Count())
	if n == 0 {
		return nil, nil
	}

	results, err := m.collection.QueryEmbedding(ctx, embedding, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	out := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, models.SearchResult{
			ID:         r.ID,
			Content:    r.Content,
			Metadata:   r.Metadata,
			Similarity: r.Similarity,
		})
	}
	return out, nil
}

func (m *VectorDBManager) Count(ctx context.Context) (int, error) {
	if m.collection == nil {
		return 0, nil
	}
	return m.collection.Count(), nil
}

// Reset drops the collection and recreates it empty.
func (m *VectorDBManager) Reset(ctx context.Context) error {
	if err := m.DeleteCollection(); err != nil {
		return err
	}
	_, err := m.GetOrCreateCollection()
	return err
}

// delete collection
func (m *VectorDBManager) DeleteCollection() error {
	if err := m.db.DeleteCollection(m.collectionName); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	m.collection = nil
	return nil
}

// Export writes the collection to a single file, gzip-compressed when the
// manager compresses and AES-encrypted when an encryption key is set.
func (m *VectorDBManager) Export(ctx context.Context, filePath string) error {
	if m.collection == nil {
		return fmt.Errorf("collection is required")
	}
	if filePath == "" {
		return fmt.Errorf("export path is required")
	}

	log.Debug().Msgf("Collection name: %s", m.collection.Name)
	log.Debug().Msgf("File path: %s", filePath)
	log.Debug().Msgf("Compress: %t", m.compress)
	log.Debug().Msgf("DB path: %s", m.dbPath)

	if err := m.db.ExportToFile(filePath, m.compress, m.encryptionKey, m.collectionName); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// Import loads the collection from a file written by Export.
func (m *VectorDBManager) Import(ctx context.Context, filePath string) error {
	if err := m.db.ImportFromFile(filePath, m.encryptionKey, m.collectionName); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	m.collection = m.db.GetCollection(m.collectionName, m.embed)
	return nil
}

// Close releases the collection handle. chromem persists every write
// immediately, so there is nothing to flush.
func (m *VectorDBManager) Close() error {
	m.collection = nil
	return nil
}
