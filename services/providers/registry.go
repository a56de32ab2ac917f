package providers

import (
	"errors"
	"sort"
	"sync"
)

var (
	// ErrProviderNotFound is returned when a provider is not registered
	ErrProviderNotFound = errors.New("provider not found")

	// ErrModelNotSupported is returned when a model is not supported by any provider
	ErrModelNotSupported = errors.New("model not supported")

	// ErrProviderAlreadyRegistered is returned when trying to register a duplicate provider
	ErrProviderAlreadyRegistered = errors.New("provider already registered")

	// ErrWrongModelKind is returned when a chat model is requested for embeddings or vice versa
	ErrWrongModelKind = errors.New("model kind mismatch")
)

// Registry manages provider instances and model mappings
type Registry struct {
	mu             sync.RWMutex
	providers      map[string]Provider
	modelProviders map[string]string // model -> provider name
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers:      make(map[string]Provider),
		modelProviders: make(map[string]string),
	}
}

// RegisterProvider registers a provider instance and all of its models
func (r *Registry) RegisterProvider(provider Provider) error {
	if provider == nil {
		return errors.New("provider cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := provider.Name()
	if name == "" {
		return errors.New("provider name cannot be empty")
	}

	if _, exists := r.providers[name]; exists {
		return ErrProviderAlreadyRegistered
	}

	r.providers[name] = provider
	for _, model := range provider.ListModels() {
		r.modelProviders[model] = name
	}

	return nil
}

// GetProvider retrieves a provider by name
func (r *Registry) GetProvider(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[name]
	if !exists {
		return nil, ErrProviderNotFound
	}

	return provider, nil
}

// ChatProviderFor returns the provider serving a chat model
func (r *Registry) ChatProviderFor(model string) (ChatProvider, error) {
	return r.providerFor(model, ModelKindChat)
}

// EmbeddingProviderFor returns the provider serving an embedding model
func (r *Registry) EmbeddingProviderFor(model string) (EmbeddingProvider, error) {
	return r.providerFor(model, ModelKindEmbedding)
}

func (r *Registry) providerFor(model string, kind ModelKind) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, exists := r.modelProviders[model]
	if !exists {
		return nil, ErrModelNotSupported
	}
	provider, ok := r.providers[name]
	if !ok {
		return nil, ErrProviderNotFound
	}

	info, err := provider.GetModelInfo(model)
	if err != nil {
		return nil, err
	}
	if info.Kind != kind {
		return nil, ErrWrongModelKind
	}

	return provider, nil
}

// ListProviders returns all registered provider names in sorted order
func (r *Registry) ListProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Count returns the number of registered providers
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.providers)
}
