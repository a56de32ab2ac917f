// Package mock provides a deterministic in-process provider used by tests and
// by local runs without network access.
package mock

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/upb/publication-rag/services/providers"
)

const (
	// ProviderName is the registry name of the mock provider
	ProviderName = "mock"

	// ChatModel is the chat model served by the mock provider
	ChatModel = "mock-chat"

	// EmbeddingModel is the embedding model served by the mock provider
	EmbeddingModel = "mock-embedding"

	// NoContextAnswer is returned by the default responder when the context is empty
	NoContextAnswer = "The provided context does not contain any matching publications."
)

// Provider is a deterministic providers.Provider.
//
// Unless a vector is pinned with SetVector, texts are embedded as a hashed
// bag of lowercase words, normalised to unit length. Texts sharing more
// words therefore land closer in cosine distance.
type Provider struct {
	mu         sync.Mutex
	dimensions int
	vectors    map[string][]float32

	embedErr error
	chatErr  error

	answer      string
	fixedAnswer bool
	embedBatch  func(n int) int

	embedCalls int
	chatCalls  int
	lastChat   *providers.ChatRequest
	lastEmbed  *providers.EmbeddingRequest
}

var _ providers.Provider = (*Provider)(nil)

// New creates a mock provider producing vectors of the given length
func New(dimensions int) *Provider {
	if dimensions <= 0 {
		dimensions = 8
	}
	return &Provider{
		dimensions: dimensions,
		vectors:    make(map[string][]float32),
	}
}

// SetVector pins the embedding returned for an exact text
func (p *Provider) SetVector(text string, vec []float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]float32, len(vec))
	copy(cp, vec)
	p.vectors[text] = cp
}

// SetEmbedError makes every Embed call fail with err (nil restores success)
func (p *Provider) SetEmbedError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.embedErr = err
}

// SetChatError makes every ChatCompletion call fail with err (nil restores success)
func (p *Provider) SetChatError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chatErr = err
}

// SetAnswer fixes the completion text, including the empty string
func (p *Provider) SetAnswer(answer string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.answer = answer
	p.fixedAnswer = true
}

// SetEmbeddingCount overrides how many vectors are returned for n inputs.
// It exists to simulate malformed provider responses.
func (p *Provider) SetEmbeddingCount(fn func(n int) int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.embedBatch = fn
}

// EmbedCalls returns the number of Embed invocations
func (p *Provider) EmbedCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.embedCalls
}

// ChatCalls returns the number of ChatCompletion invocations
func (p *Provider) ChatCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chatCalls
}

// LastChatRequest returns the most recent chat request, or nil
func (p *Provider) LastChatRequest() *providers.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastChat
}

// LastEmbeddingRequest returns the most recent embedding request, or nil
func (p *Provider) LastEmbeddingRequest() *providers.EmbeddingRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastEmbed
}

// Name returns the provider name
func (p *Provider) Name() string {
	return ProviderName
}

// Embed returns one vector per input in input order
func (p *Provider) Embed(ctx context.Context, req *providers.EmbeddingRequest) (*providers.EmbeddingResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.embedCalls++
	p.lastEmbed = req

	if err := ctx.Err(); err != nil {
		return nil, providers.NewProviderError(ProviderName, "CANCELED", "request canceled", 0, true, err)
	}
	if p.embedErr != nil {
		return nil, p.embedErr
	}

	n := len(req.Input)
	if p.embedBatch != nil {
		n = p.embedBatch(n)
	}

	out := make([][]float32, 0, n)
	for i := 0; i < n; i++ {
		text := ""
		if i < len(req.Input) {
			text = req.Input[i]
		}
		out = append(out, p.vectorFor(text))
	}

	return &providers.EmbeddingResponse{
		Model:      req.Model,
		Embeddings: out,
		Provider:   ProviderName,
		Latency:    time.Microsecond,
	}, nil
}

// ChatCompletion answers from the fixed answer or a context-aware default
func (p *Provider) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.chatCalls++
	p.lastChat = req

	if err := ctx.Err(); err != nil {
		return nil, providers.NewProviderError(ProviderName, "CANCELED", "request canceled", 0, true, err)
	}
	if p.chatErr != nil {
		return nil, p.chatErr
	}

	answer := p.answer
	if !p.fixedAnswer {
		answer = defaultAnswer(req.Messages)
	}

	return &providers.ChatResponse{
		ID:       fmt.Sprintf("mock-%d", p.chatCalls),
		Model:    req.Model,
		Provider: ProviderName,
		Choices: []providers.Choice{{
			Message:      providers.Message{Role: providers.RoleAssistant, Content: answer},
			FinishReason: "stop",
		}},
	}, nil
}

// IsAvailable always reports true
func (p *Provider) IsAvailable(ctx context.Context) bool {
	return true
}

// GetModelInfo returns information about a specific model
func (p *Provider) GetModelInfo(model string) (*providers.ModelInfo, error) {
	switch model {
	case ChatModel:
		return &providers.ModelInfo{ID: ChatModel, Name: "Mock Chat", Provider: ProviderName, Kind: providers.ModelKindChat}, nil
	case EmbeddingModel:
		return &providers.ModelInfo{ID: EmbeddingModel, Name: "Mock Embedding", Provider: ProviderName, Kind: providers.ModelKindEmbedding, Dimensions: p.dimensions}, nil
	}
	return nil, fmt.Errorf("model %s not found", model)
}

// ListModels returns all available models
func (p *Provider) ListModels() []string {
	return []string{ChatModel, EmbeddingModel}
}

func (p *Provider) vectorFor(text string) []float32 {
	if v, ok := p.vectors[text]; ok {
		cp := make([]float32, len(v))
		copy(cp, v)
		return cp
	}
	return HashEmbedding(text, p.dimensions)
}

// HashEmbedding maps text to a unit vector by hashing each lowercase word into a bucket
func HashEmbedding(text string, dimensions int) []float32 {
	vec := make([]float32, dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[int(h.Sum32()%uint32(dimensions))]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

func defaultAnswer(messages []providers.Message) string {
	if len(messages) == 0 {
		return ""
	}
	user := messages[len(messages)-1].Content
	if strings.HasPrefix(user, "Context:\n\n") {
		return NoContextAnswer
	}
	entries := strings.Count(user, "Title: ")
	return fmt.Sprintf("Found %d relevant publication(s) in the provided context.", entries)
}
