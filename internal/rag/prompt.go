package rag

import (
	"fmt"
	"strings"

	"constitution-rag/internal/models"
)

// BuildContext joins the retrieved chunk texts with blank lines.
func BuildContext(results []models.SearchResult) string {
	texts := make([]string, 0, len(results))
	for _, r := range results {
		texts = append(texts, r.Content)
	}
	return strings.Join(texts, models.ContextSeparator)
}

// BuildPrompt fills the answer-from-context template.
func BuildPrompt(context, query string) string {
	return fmt.Sprintf(models.QueryPromptTemplate, context, query)
}

// SourceSummary lists where each retrieved chunk came from, one per line.
func SourceSummary(results []models.SearchResult) string {
	labels := make([]string, 0, len(results))
	for _, r := range results {
		labels = append(labels, r.Label())
	}
	return strings.Join(labels, "\n")
}
