// Package embedding hides the embedding provider behind a fixed-dimension,
// order-preserving batch contract.
package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/upb/publication-rag/services"
	"github.com/upb/publication-rag/services/providers"
	"go.uber.org/zap"
)

// Gateway turns texts into vectors with one provider call per batch
type Gateway struct {
	provider   providers.EmbeddingProvider
	model      string
	dimensions int
	logger     *zap.Logger
}

// NewGateway creates an embedding gateway for the given model and vector length
func NewGateway(provider providers.EmbeddingProvider, model string, dimensions int, logger *zap.Logger) *Gateway {
	return &Gateway{
		provider:   provider,
		model:      model,
		dimensions: dimensions,
		logger:     logger,
	}
}

// Dimensions returns the vector length every Embed result has
func (g *Gateway) Dimensions() int {
	return g.dimensions
}

// Embed returns one vector per text, in input order. Transport failures and
// malformed responses, including zero vectors, are returned as external
// errors; an empty result is never returned in place of an error.
func (g *Gateway) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "no texts to embed", nil)
	}

	start := time.Now()
	resp, err := g.provider.Embed(ctx, &providers.EmbeddingRequest{
		Model:      g.model,
		Input:      texts,
		Dimensions: g.dimensions,
	})
	if err != nil {
		return nil, services.WrapExternal("embedding request failed", err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, g.malformed(fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings)))
	}
	for i, vec := range resp.Embeddings {
		if len(vec) != g.dimensions {
			return nil, g.malformed(fmt.Sprintf("embedding %d has %d dimensions, expected %d", i, len(vec), g.dimensions))
		}
		if isZero(vec) {
			return nil, g.malformed(fmt.Sprintf("embedding %d is a zero vector", i))
		}
	}

	g.logger.Debug("texts embedded",
		zap.String("provider", g.provider.Name()),
		zap.String("model", g.model),
		zap.Int("count", len(texts)),
		zap.Duration("latency", time.Since(start)))

	return resp.Embeddings, nil
}

func (g *Gateway) malformed(msg string) error {
	cause := providers.NewProviderError(g.provider.Name(), "MALFORMED_RESPONSE", msg, 0, false, nil)
	return services.ErrMalformedResponse.WithCause(cause)
}

// zero vectors have no direction, so cosine distance to them is undefined
func isZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
