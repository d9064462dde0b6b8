package browser

import (
	"context"
	"sync"

	"github.com/giannis84/character-browser/internal/characters"
	"github.com/giannis84/character-browser/internal/database"
)

// Registry keeps one Controller per user email.
type Registry struct {
	source characters.Source
	store  database.FavouritesStore

	mu          sync.Mutex
	controllers map[string]*Controller
}

func NewRegistry(source characters.Source, store database.FavouritesStore) *Registry {
	return &Registry{
		source:      source,
		store:       store,
		controllers: make(map[string]*Controller),
	}
}

// Get returns the controller for email, creating it and loading the stored
// favourites on first use.
func (r *Registry) Get(ctx context.Context, email string) *Controller {
	r.mu.Lock()
	c, ok := r.controllers[email]
	if !ok {
		c = NewController(r.source, r.store, email)
		r.controllers[email] = c
	}
	r.mu.Unlock()

	c.LoadFavourites(ctx)
	return c
}

// Store returns the favourites store shared by all controllers.
func (r *Registry) Store() database.FavouritesStore { return r.store }

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}
