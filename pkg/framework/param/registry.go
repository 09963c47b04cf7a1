package param

import (
	"fmt"
	"sync"
)

// Registry keeps a node's parameters in declaration order.
type Registry struct {
	params map[uint32]*Parameter
	order  []uint32
	mu     sync.RWMutex
}

// NewRegistry creates a new parameter registry
func NewRegistry() *Registry {
	return &Registry{
		params: make(map[uint32]*Parameter),
	}
}

// Add registers parameters. A duplicate ID is an error and leaves the
// registry unchanged from that parameter on.
func (r *Registry) Add(params ...*Parameter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range params {
		if _, exists := r.params[p.ID]; exists {
			return fmt.Errorf("duplicate parameter id %d (%s)", p.ID, p.Name)
		}
		r.params[p.ID] = p
		r.order = append(r.order, p.ID)
	}
	return nil
}

// Get retrieves a parameter by ID, or nil.
func (r *Registry) Get(id uint32) *Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.params[id]
}

// GetByName retrieves a parameter by its name or short name, or nil.
func (r *Registry) GetByName(name string) *Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		p := r.params[id]
		if p.Name == name || p.ShortName == name {
			return p
		}
	}
	return nil
}

// GetByIndex retrieves a parameter by index
func (r *Registry) GetByIndex(index int) *Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index < 0 || index >= len(r.order) {
		return nil
	}
	return r.params[r.order[index]]
}

// Count returns the number of parameters
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

// All returns all parameters in order
func (r *Registry) All() []*Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Parameter, len(r.order))
	for i, id := range r.order {
		result[i] = r.params[id]
	}
	return result
}

// ResetAll restores every parameter to its default.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.params {
		p.Reset()
	}
}
