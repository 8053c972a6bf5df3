package models

import (
	"fmt"
	"strconv"
)

// Chunk represents a split piece of a source document
type Chunk struct {
	Content    string
	Source     string
	PageNumber int
	TotalPages int
	ChunkID    int
}

// ChunkEmbedding is a chunk ready to be written to the vector store
type ChunkEmbedding struct {
	ID             string
	Content        string
	Embedding      []float32
	SourceFilename string
	PageNumber     int
	TotalPages     int
	ChunkID        int
	EmbeddingModel string
}

// SearchResult is one entry returned by a similarity search
type SearchResult struct {
	ID         string
	Content    string
	Metadata   map[string]string
	Similarity float32
}

type PromptResponse struct {
	Query   string
	Source  string
	Content string
	Sources []SearchResult
}

// Metadata flattens the chunk attributes into the string map the stores persist.
func (c ChunkEmbedding) Metadata() map[string]string {
	return map[string]string{
		MetaSource:         c.SourceFilename,
		MetaPage:           strconv.Itoa(c.PageNumber),
		MetaTotalPages:     strconv.Itoa(c.TotalPages),
		MetaChunkID:        strconv.Itoa(c.ChunkID),
		MetaEmbeddingModel: c.EmbeddingModel,
	}
}

// Label renders the origin of a result as "file p.N".
func (r SearchResult) Label() string {
	src := r.Metadata[MetaSource]
	if src == "" {
		src = r.ID
	}
	if page := r.Metadata[MetaPage]; page != "" && page != "0" {
		return fmt.Sprintf("%s p.%s", src, page)
	}
	return src
}
