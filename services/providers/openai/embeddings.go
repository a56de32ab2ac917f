package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/upb/publication-rag/services/providers"
)

// Embed computes embeddings for every input in a single /embeddings call.
// Vectors are returned in input order regardless of the order OpenAI sends them.
func (a *OpenAIAdapter) Embed(ctx context.Context, req *providers.EmbeddingRequest) (*providers.EmbeddingResponse, error) {
	startTime := time.Now()

	if err := a.validateKind(req.Model, providers.ModelKindEmbedding); err != nil {
		return nil, providers.NewProviderError(a.Name(), "INVALID_MODEL", err.Error(), 400, false, err)
	}
	if len(req.Input) == 0 {
		return &providers.EmbeddingResponse{Model: req.Model, Provider: a.Name()}, nil
	}

	reqBody, err := json.Marshal(OpenAIEmbeddingRequest{
		Model:          req.Model,
		Input:          req.Input,
		Dimensions:     a.requestDimensions(req.Model, req.Dimensions),
		EncodingFormat: "float",
	})
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "MARSHAL_ERROR", "Failed to marshal request", 0, false, err)
	}

	respBody, err := a.post(ctx, "/embeddings", reqBody)
	if err != nil {
		return nil, err
	}

	var embResp OpenAIEmbeddingResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, providers.NewProviderError(a.Name(), "UNMARSHAL_ERROR", "Failed to unmarshal response", http.StatusOK, false, err)
	}

	if len(embResp.Data) != len(req.Input) {
		return nil, providers.NewProviderError(
			a.Name(),
			"MALFORMED_RESPONSE",
			fmt.Sprintf("expected %d embeddings, got %d", len(req.Input), len(embResp.Data)),
			http.StatusOK,
			false,
			nil,
		)
	}

	sort.SliceStable(embResp.Data, func(i, j int) bool {
		return embResp.Data[i].Index < embResp.Data[j].Index
	})

	embeddings := make([][]float32, len(embResp.Data))
	for i, d := range embResp.Data {
		if d.Index != i {
			return nil, providers.NewProviderError(
				a.Name(),
				"MALFORMED_RESPONSE",
				fmt.Sprintf("embedding index %d out of sequence", d.Index),
				http.StatusOK,
				false,
				nil,
			)
		}
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		embeddings[i] = vec
	}

	return &providers.EmbeddingResponse{
		Model:      embResp.Model,
		Embeddings: embeddings,
		Provider:   a.Name(),
		Usage: providers.Usage{
			PromptTokens: embResp.Usage.PromptTokens,
			TotalTokens:  embResp.Usage.TotalTokens,
		},
		Latency: time.Since(startTime),
	}, nil
}

type OpenAIEmbeddingRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	Dimensions     int      `json:"dimensions,omitempty"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
}

type OpenAIEmbeddingResponse struct {
	Object string                `json:"object"`
	Data   []OpenAIEmbeddingData `json:"data"`
	Model  string                `json:"model"`
	Usage  OpenAIUsage           `json:"usage"`
}

type OpenAIEmbeddingData struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// requestDimensions returns the dimensions parameter to send. It is omitted
// when it matches the model's native length, since older models such as
// text-embedding-ada-002 reject it outright.
func (a *OpenAIAdapter) requestDimensions(model string, want int) int {
	if info, ok := a.models[model]; ok && info.Dimensions == want {
		return 0
	}
	return want
}
