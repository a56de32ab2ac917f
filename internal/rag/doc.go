// Package rag holds the text shaping steps of the publication pipeline.
//
// It provides:
//   - the projection of a publication into the text that gets embedded
//   - the projection of a ranked result into a grounding snippet
//   - assembly of ranked snippets into a single prompt context
//
// Every function here is pure; nothing performs I/O.
package rag
