// Package template holds the named execution templates used to parameterize
// simulations.
package template

import (
	"fmt"
	"sort"
	"sync"

	"github.com/alanyoungcy/perpspot/internal/config"
	"github.com/alanyoungcy/perpspot/internal/domain"
)

// Registry is a read-mostly collection of execution templates keyed by name.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]domain.ExecutionTemplate
}

// NewRegistry builds a registry from configuration.
func NewRegistry(cfgs []config.TemplateConfig) *Registry {
	r := &Registry{templates: make(map[string]domain.ExecutionTemplate, len(cfgs))}
	for _, c := range cfgs {
		r.templates[c.Name] = domain.ExecutionTemplate{
			Name:            c.Name,
			Token:           c.Token,
			SizeMin:         c.SizeMin,
			SizeMax:         c.SizeMax,
			TargetSpreadBps: c.TargetSpreadBps,
			Leverage:        c.Leverage,
			MaxLatencyMS:    c.MaxLatencyMS,
		}
	}
	return r
}

// Get returns the template with the given name.
func (r *Registry) Get(name string) (domain.ExecutionTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[name]
	if !ok {
		return domain.ExecutionTemplate{}, fmt.Errorf("template: %q: %w", name, domain.ErrTemplateNotFound)
	}
	return t, nil
}

// List returns all templates sorted by name.
func (r *Registry) List() []domain.ExecutionTemplate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ExecutionTemplate, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Put adds or replaces a template.
func (r *Registry) Put(t domain.ExecutionTemplate) {
	r.mu.Lock()
	r.templates[t.Name] = t
	r.mu.Unlock()
}
