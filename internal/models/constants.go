package models

// Metadata keys written on every stored entry.
const (
	MetaSource         = "source"
	MetaPage           = "page"
	MetaTotalPages     = "total_pages"
	MetaChunkID        = "chunk_id"
	MetaEmbeddingModel = "embedding_model"
)

const (
	ContextSeparator = "\n\n"
	ThinkTag         = `(?s)<think>.*?</think>`
)

var (
	// QueryPromptTemplate takes the retrieved context and the question, in that order.
	QueryPromptTemplate = `
Use the following context to answer the question.
If the context does not contain enough information, say so.

Context:
%s

Question: %s

Answer:
`
)
