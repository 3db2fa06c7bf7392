package engine

import (
	"fmt"
	"log/slog"
	"sync"
)

// Registry holds the configured OCR engines keyed by name. The server
// rebuilds it on config reload; readers always see a consistent set.
type Registry struct {
	mu          sync.RWMutex
	engines     map[string]Engine
	defaultName string
	logger      *slog.Logger
}

// NewRegistry creates an empty engine registry.
func NewRegistry() *Registry {
	return &Registry{
		engines: make(map[string]Engine),
		logger:  slog.Default(),
	}
}

// SetLogger sets the logger used for registry events.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if logger != nil {
		r.logger = logger
	}
}

// Register adds an engine. The first registered engine becomes the
// default.
func (r *Registry) Register(e Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[e.Name()] = e
	if r.defaultName == "" {
		r.defaultName = e.Name()
	}
	r.logger.Debug("registered OCR engine", "name", e.Name())
}

// SetDefault makes the named engine the default.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.engines[name]; !ok {
		return fmt.Errorf("unknown OCR engine: %s", name)
	}
	r.defaultName = name
	return nil
}

// Get returns the engine with the given name.
func (r *Registry) Get(name string) (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("unknown OCR engine: %s", name)
	}
	return e, nil
}

// Default returns the default engine.
func (r *Registry) Default() (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.defaultName == "" {
		return nil, fmt.Errorf("no OCR engine registered")
	}
	return r.engines[r.defaultName], nil
}

// Names returns the registered engine names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	return names
}
