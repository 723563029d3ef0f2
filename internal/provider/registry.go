package provider

import "sync"

// Registry manages transport plugins keyed by provider name.
type Registry struct {
	mu         sync.RWMutex
	transports map[string]Transport
}

// NewRegistry creates a new transport registry
func NewRegistry() *Registry {
	return &Registry{
		transports: make(map[string]Transport),
	}
}

// Register adds a transport to the registry
func (r *Registry) Register(t Transport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transports[t.Name()] = t
}

// Get retrieves a transport by name
func (r *Registry) Get(name string) (Transport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transports[name]
	return t, ok
}

// GetAll returns all registered transports
func (r *Registry) GetAll() []Transport {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Transport, 0, len(r.transports))
	for _, t := range r.transports {
		result = append(result, t)
	}
	return result
}
