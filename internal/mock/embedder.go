// Package mock holds test doubles for the embedding and language model clients.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"
)

const DefaultDimensions = 64

// Embedder is a test double for embeddings.Embedder. Texts sharing words get
// similar vectors, so similarity search behaves sensibly in tests.
type Embedder struct {
	// EmbedDocumentsFunc replaces the default behaviour when set.
	EmbedDocumentsFunc func(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQueryFunc replaces the default behaviour when set.
	EmbedQueryFunc func(ctx context.Context, text string) ([]float32, error)

	Dimensions int

	mu        sync.Mutex
	callCount int
	embedded  int
}

func NewEmbedder() *Embedder {
	return &Embedder{Dimensions: DefaultDimensions}
}

func (m *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.callCount++
	m.embedded += len(texts)
	m.mu.Unlock()

	if m.EmbedDocumentsFunc != nil {
		return m.EmbedDocumentsFunc(ctx, texts)
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = BagOfWords(text, m.dims())
	}
	return vectors, nil
}

func (m *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.EmbedQueryFunc != nil {
		return m.EmbedQueryFunc(ctx, text)
	}
	return BagOfWords(text, m.dims()), nil
}

// CallCount returns the number of times any method was called.
func (m *Embedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Embedded returns how many document texts were embedded.
func (m *Embedder) Embedded() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.embedded
}

func (m *Embedder) dims() int {
	if m.Dimensions <= 0 {
		return DefaultDimensions
	}
	return m.Dimensions
}

// BagOfWords hashes every lower-cased word into one of dim buckets and returns
// the unit-length count vector. Text without words maps to the first axis.
func BagOfWords(text string, dim int) []float32 {
	vector := make([]float32, dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		vector[h.Sum32()%uint32(dim)]++
	}

	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		vector[0] = 1
		return vector
	}
	norm := float32(math.Sqrt(sum))
	for i := range vector {
		vector[i] /= norm
	}
	return vector
}
