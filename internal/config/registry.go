package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/echoverse/echoverse/pkg/provider/rewrite"
	"github.com/echoverse/echoverse/pkg/provider/speech"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider kind. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	rewrite map[string]func(ProviderEntry) (rewrite.Provider, error)
	speech  map[string]func(ProviderEntry) (speech.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		rewrite: make(map[string]func(ProviderEntry) (rewrite.Provider, error)),
		speech:  make(map[string]func(ProviderEntry) (speech.Provider, error)),
	}
}

// RegisterRewrite registers a rewrite provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterRewrite(name string, factory func(ProviderEntry) (rewrite.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rewrite[name] = factory
}

// RegisterSpeech registers a speech provider factory under name.
func (r *Registry) RegisterSpeech(name string, factory func(ProviderEntry) (speech.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.speech[name] = factory
}

// CreateRewrite instantiates a rewrite provider using the factory registered
// under entry.Name. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateRewrite(entry ProviderEntry) (rewrite.Provider, error) {
	r.mu.RLock()
	factory, ok := r.rewrite[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: rewrite/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateSpeech instantiates a speech provider using the factory registered
// under entry.Name.
func (r *Registry) CreateSpeech(entry ProviderEntry) (speech.Provider, error) {
	r.mu.RLock()
	factory, ok := r.speech[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: speech/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
