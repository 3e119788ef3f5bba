// Package connection owns the set of configured connections: the in-memory
// registry used by every storage call and the manager that keeps it in sync
// with the record store and the secret store.
package connection

import (
	"sort"
	"sync"

	"github.com/arencloud/strata/internal/errs"
	"github.com/arencloud/strata/internal/models"
)

// Registry maps connection ids to records with their secrets. Reads hand out
// copies so a caller never holds the lock across network calls.
type Registry struct {
	mu    sync.Mutex
	conns map[string]models.ConnectionWithSecret
}

func NewRegistry() *Registry {
	return &Registry{conns: map[string]models.ConnectionWithSecret{}}
}

func (r *Registry) Get(id string) (models.ConnectionWithSecret, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	if !ok {
		return models.ConnectionWithSecret{}, errs.ConnectionNotFound(id)
	}
	return c, nil
}

func (r *Registry) Put(c models.ConnectionWithSecret) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.ID] = c
}

// Remove reports whether id was present.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.conns[id]
	delete(r.conns, id)
	return ok
}

// List returns copies ordered by creation time, then name.
func (r *Registry) List() []models.ConnectionWithSecret {
	r.mu.Lock()
	out := make([]models.ConnectionWithSecret, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
