package model

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Factory holds the registered Provider implementations and builds models on
// demand. Provider names are matched case-insensitively.
type Factory struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewFactory constructs a factory seeded with the provided providers.
func NewFactory(providers ...Provider) *Factory {
	f := &Factory{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if p == nil {
			continue
		}
		f.providers[normalizeProviderName(p.Name())] = p
	}
	return f
}

// Register attaches or replaces a Provider implementation.
func (f *Factory) Register(p Provider) {
	if p == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.providers == nil {
		f.providers = map[string]Provider{}
	}
	f.providers[normalizeProviderName(p.Name())] = p
}

// NewModel builds a model instance through the provider declared in cfg.
func (f *Factory) NewModel(ctx context.Context, cfg ModelConfig) (Model, error) {
	name := normalizeProviderName(cfg.Provider)
	if name == "" {
		return nil, fmt.Errorf("model config %q: provider not specified", cfg.Name)
	}

	f.mu.RLock()
	provider := f.providers[name]
	f.mu.RUnlock()
	if provider == nil {
		return nil, fmt.Errorf("model provider %q is not registered", cfg.Provider)
	}

	return provider.NewModel(ctx, cfg)
}

func normalizeProviderName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
