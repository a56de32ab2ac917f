package rag

import (
	"fmt"
	"strings"

	"github.com/upb/publication-rag/models"
)

// ProjectForEmbedding renders the text that is embedded for a publication.
// Ingestion and any later re-embedding must go through this function so the
// field set and order stay identical.
func ProjectForEmbedding(f models.PublicationFields) string {
	parts := []string{
		f.Title,
		f.Description,
		f.Summary,
		f.CompanyDescription,
		f.Function,
		f.EmploymentLevel,
		f.City,
	}
	return strings.Join(parts, " ")
}

// ProjectForContext renders a ranked result as a grounding block for generation
func ProjectForContext(r models.RankedResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", r.Title)
	fmt.Fprintf(&b, "Company: %s\n", r.CompanyName)
	fmt.Fprintf(&b, "Location: %s\n", r.City)
	fmt.Fprintf(&b, "Description: %s\n", r.Description)
	fmt.Fprintf(&b, "Summary: %s", r.Summary)
	return b.String()
}
