package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"constitution-rag/internal/config"
	"constitution-rag/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
)

var ErrInvalidChunkSize = errors.New("chunk size must be positive")

// DefaultSeparators are tried in order when looking for a place to cut.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " "}

// BoundarySplitter cuts text into pieces of at most ChunkSize characters. A piece
// ends right after the strongest separator found in its window (hard cut when
// there is none) and the next piece starts exactly ChunkOverlap characters before
// that end, so neighbours always share ChunkOverlap characters.
type BoundarySplitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

var _ textsplitter.TextSplitter = BoundarySplitter{}

func NewBoundarySplitter(chunkSize, chunkOverlap int) BoundarySplitter {
	return BoundarySplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separators:   DefaultSeparators,
	}
}

func (s BoundarySplitter) SplitText(text string) ([]string, error) {
	if s.ChunkSize <= 0 {
		return nil, ErrInvalidChunkSize
	}
	overlap := s.ChunkOverlap
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= s.ChunkSize {
		overlap = s.ChunkSize / 2
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	if len(runes) <= s.ChunkSize {
		return []string{text}, nil
	}

	var chunks []string
	start := 0
	for {
		end := start + s.ChunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		end = s.cutPoint(runes, start, end, overlap)
		chunks = append(chunks, string(runes[start:end]))
		start = end - overlap
	}
	return chunks, nil
}

// cutPoint returns the end of the piece starting at start. The result is in
// (start+overlap, limit] so every step makes progress.
func (s BoundarySplitter) cutPoint(runes []rune, start, limit, overlap int) int {
	for _, sep := range s.Separators {
		sepRunes := []rune(sep)
		if len(sepRunes) == 0 {
			continue
		}
		lo := max(start, start+overlap+1-len(sepRunes))
		if i := lastIndexRunes(runes, sepRunes, lo, limit); i >= 0 {
			return i + len(sepRunes)
		}
	}
	return limit
}

// lastIndexRunes finds the last i >= lo with runes[i:i+len(sep)] == sep and
// i+len(sep) <= hi.
func lastIndexRunes(runes, sep []rune, lo, hi int) int {
	for i := hi - len(sep); i >= lo; i-- {
		match := true
		for j, r := range sep {
			if runes[i+j] != r {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// NewSplitter builds the splitter selected by cfg.Splitter.
func NewSplitter(cfg config.RAGConfig) textsplitter.TextSplitter {
	if cfg.Splitter == config.SplitterRecursive {
		return textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		)
	}
	return NewBoundarySplitter(cfg.ChunkSize, cfg.ChunkOverlap)
}

// MergePages joins the page texts of docs into a single Document.
func MergePages(docs []schema.Document) []schema.Document {
	if len(docs) == 0 {
		return nil
	}
	var texts []string
	for _, d := range docs {
		if strings.TrimSpace(d.PageContent) != "" {
			texts = append(texts, d.PageContent)
		}
	}
	source, _ := docs[0].Metadata[models.MetaSource].(string)
	return []schema.Document{newDocument(strings.Join(texts, models.ContextSeparator), source, 0, len(docs))}
}

// Split breaks every document into chunks. Chunks never span two documents and
// are numbered from 1 within their document.
func Split(docs []schema.Document, cfg config.RAGConfig) ([]models.Chunk, error) {
	if cfg.MergePages {
		docs = MergePages(docs)
	}

	splitDocs, err := textsplitter.SplitDocuments(NewSplitter(cfg), docs)
	if err != nil {
		return nil, fmt.Errorf("failed to split documents: %w", err)
	}

	chunks := make([]models.Chunk, 0, len(splitDocs))
	seen := make(map[string]int)
	for _, d := range splitDocs {
		source, _ := d.Metadata[models.MetaSource].(string)
		page := metaInt(d.Metadata, models.MetaPage)
		key := source + "#" + strconv.Itoa(page)
		seen[key]++
		chunks = append(chunks, models.Chunk{
			Content:    d.PageContent,
			Source:     source,
			PageNumber: page,
			TotalPages: metaInt(d.Metadata, models.MetaTotalPages),
			ChunkID:    seen[key],
		})
	}
	log.Debug().Int("documents", len(docs)).Int("chunks", len(chunks)).Str("splitter", cfg.Splitter).Msg("Split documents")
	return chunks, nil
}

func metaInt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}
