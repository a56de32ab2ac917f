package rag

import (
	"strings"

	"github.com/upb/publication-rag/models"
)

// ContextSeparator sits between consecutive entries of an assembled context
const ContextSeparator = "\n\n"

// AssembleContext joins the context projection of each result in input order.
// Callers pass results in ascending distance, so the most relevant entry comes
// first. An empty slice yields an empty string.
func AssembleContext(results []models.RankedResult) string {
	if len(results) == 0 {
		return ""
	}

	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = ProjectForContext(r)
	}
	return strings.Join(blocks, ContextSeparator)
}
