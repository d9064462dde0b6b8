// Package browser holds the per-user character browser state: the filter,
// the current page of results, the detail selection and the favourites list.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/giannis84/character-browser/internal/characters"
	"github.com/giannis84/character-browser/internal/database"
	"github.com/giannis84/character-browser/internal/logging"
	"github.com/giannis84/character-browser/internal/models"
)

var (
	ErrNoSelection       = errors.New("no character selected")
	ErrCharacterNotFound = errors.New("character is not on the current page")
	ErrPageUnavailable   = errors.New("page change not available")
	ErrInvalidPage       = errors.New("page must be at least 1")
)

const (
	reconcileTimeout = 10 * time.Second
	hydrateTimeout   = 10 * time.Second
	fetchTimeout     = 30 * time.Second
)

// View is a snapshot of a controller for rendering.
type View struct {
	Characters        []models.Character  `json:"characters"`
	Page              int                 `json:"page"`
	TotalPages        int                 `json:"total_pages"`
	Status            models.StatusFilter `json:"status"`
	Name              string              `json:"name"`
	HasPrev           bool                `json:"has_prev"`
	HasNext           bool                `json:"has_next"`
	Selected          *models.Character   `json:"selected,omitempty"`
	SelectedFavourite bool                `json:"selected_favourite"`
	Favourites        []int               `json:"favourites"`
	Message           string              `json:"message,omitempty"`
}

// Controller is the browser of one user. Every change of (page, status, name)
// issues exactly one fetch; a response that arrives after a newer fetch was
// issued is dropped.
type Controller struct {
	source characters.Source
	store  database.FavouritesStore
	email  string

	hydrateMu sync.Mutex
	hydrated  bool

	mu         sync.Mutex
	filter     models.Filter
	loaded     bool
	seq        uint64
	results    []models.Character
	totalPages int
	selected   *models.Character
	favourites []int

	// toggleMu serializes favourite read-modify-write cycles.
	toggleMu sync.Mutex
}

func NewController(source characters.Source, store database.FavouritesStore, email string) *Controller {
	return &Controller{
		source:     source,
		store:      store,
		email:      email,
		filter:     models.DefaultFilter(),
		totalPages: 1,
		favourites: []int{},
	}
}

// Email returns the owner of the controller.
func (c *Controller) Email() string { return c.email }

// LoadFavourites reads the stored favourites into memory. It succeeds at most
// once per controller; a missing record counts as success, any other failure
// is logged and retried on the next call.
func (c *Controller) LoadFavourites(ctx context.Context) {
	c.hydrateMu.Lock()
	defer c.hydrateMu.Unlock()
	if c.hydrated {
		return
	}

	log := logging.Log(ctx).Layer("browser").Op("LoadFavourites").User(c.email)

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hydrateTimeout)
	defer cancel()

	var favs []int
	err := c.store.View(rctx, func(tx database.FavouritesTx) error {
		rec, err := tx.GetUserRecord(c.email)
		if err != nil {
			return err
		}
		favs = rec.Favourite
		return nil
	})
	switch {
	case errors.Is(err, database.ErrNotFound):
		log.Warn("no favourites record for user")
		c.hydrated = true
		return
	case err != nil:
		log.Err(err).Error("failed to load favourites, will retry")
		return
	}

	c.mu.Lock()
	c.favourites = slices.Clone(favs)
	c.mu.Unlock()
	c.hydrated = true
}

// Load fetches the current filter unconditionally.
func (c *Controller) Load(ctx context.Context) View {
	c.mu.Lock()
	seq, f := c.beginFetchLocked()
	c.mu.Unlock()

	c.fetch(ctx, seq, f)
	return c.View()
}

// Apply replaces the whole filter. It fetches only when the filter changed or
// nothing has been loaded yet.
func (c *Controller) Apply(ctx context.Context, f models.Filter) (View, error) {
	if f.Page < 1 {
		return c.View(), ErrInvalidPage
	}
	if f.Status == "" {
		f.Status = models.StatusAll
	}

	c.mu.Lock()
	if c.loaded && f == c.filter {
		v := c.viewLocked()
		c.mu.Unlock()
		return v, nil
	}
	c.filter = f
	seq, f := c.beginFetchLocked()
	c.mu.Unlock()

	c.fetch(ctx, seq, f)
	return c.View(), nil
}

func (c *Controller) SetStatus(ctx context.Context, status models.StatusFilter) (View, error) {
	f := c.Filter()
	f.Status = status
	return c.Apply(ctx, f)
}

func (c *Controller) SetName(ctx context.Context, name string) (View, error) {
	f := c.Filter()
	f.Name = name
	return c.Apply(ctx, f)
}

// SetPage jumps to page. It is not checked against the reported total.
func (c *Controller) SetPage(ctx context.Context, page int) (View, error) {
	f := c.Filter()
	f.Page = page
	return c.Apply(ctx, f)
}

// NextPage advances one page unless the last reported page is shown.
func (c *Controller) NextPage(ctx context.Context) (View, error) {
	c.mu.Lock()
	if !c.hasNextLocked() {
		v := c.viewLocked()
		c.mu.Unlock()
		return v, ErrPageUnavailable
	}
	f := c.filter
	c.mu.Unlock()

	f.Page++
	return c.Apply(ctx, f)
}

// PrevPage goes back one page unless on the first.
func (c *Controller) PrevPage(ctx context.Context) (View, error) {
	c.mu.Lock()
	if !c.hasPrevLocked() {
		v := c.viewLocked()
		c.mu.Unlock()
		return v, ErrPageUnavailable
	}
	f := c.filter
	c.mu.Unlock()

	f.Page--
	return c.Apply(ctx, f)
}

// Open selects a character from the displayed page.
func (c *Controller) Open(id int) (models.Character, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ch := range c.results {
		if ch.ID == id {
			selected := ch
			c.selected = &selected
			return selected, nil
		}
	}
	return models.Character{}, fmt.Errorf("%w: %d", ErrCharacterNotFound, id)
}

// Close clears the selection.
func (c *Controller) Close() {
	c.mu.Lock()
	c.selected = nil
	c.mu.Unlock()
}

// Toggle is the outcome of a favourite toggle.
type Toggle struct {
	CharacterID int
	Favourites  []int
	Favourite   bool
}

// ToggleFavourite flips the selected character in the in-memory favourites
// and then writes the list to the user's record if the stored list differs.
// Store failures are logged; the in-memory toggle is never rolled back.
func (c *Controller) ToggleFavourite(ctx context.Context) (Toggle, error) {
	c.toggleMu.Lock()
	defer c.toggleMu.Unlock()

	c.mu.Lock()
	if c.selected == nil {
		c.mu.Unlock()
		return Toggle{}, ErrNoSelection
	}
	id := c.selected.ID
	c.favourites = toggle(c.favourites, id)
	favs := slices.Clone(c.favourites)
	c.mu.Unlock()

	t := Toggle{CharacterID: id, Favourites: favs, Favourite: slices.Contains(favs, id)}
	logging.Log(ctx).Layer("browser").Op("ToggleFavourite").User(c.email).Character(id).
		Bool("favourite", t.Favourite).Info("favourite toggled")

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reconcileTimeout)
	defer cancel()
	c.reconcile(rctx, favs)

	return t, nil
}

// Favourites returns a copy of the in-memory list.
func (c *Controller) Favourites() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.favourites)
}

func (c *Controller) Filter() models.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) reconcile(ctx context.Context, favs []int) {
	written := false
	err := c.store.Update(ctx, func(tx database.FavouritesTx) error {
		rec, err := tx.GetUserRecord(c.email)
		if err != nil {
			return err
		}

		same, err := sameFavourites(rec.Favourite, favs)
		if err != nil || same {
			return err
		}

		rec.Favourite = favs
		rec.UpdatedAt = time.Now()
		if err := tx.PutUserRecord(rec); err != nil {
			return err
		}
		written = true
		return nil
	})

	log := logging.Log(ctx).Layer("browser").Op("reconcileFavourites").User(c.email)
	switch {
	case errors.Is(err, database.ErrNotFound):
		log.Warn("no favourites record for user, nothing persisted")
	case err != nil:
		log.Err(err).Error("failed to update favourites in the store")
	case written:
		log.Int("count", len(favs)).Info("favourites persisted")
	default:
		log.Debug("stored favourites already up to date")
	}
}

// beginFetchLocked issues a new sequence token for the current filter.
func (c *Controller) beginFetchLocked() (uint64, models.Filter) {
	c.seq++
	c.loaded = true
	return c.seq, c.filter
}

// fetch outlives the request that triggered it, so an aborted client never
// leaves a failed page behind for the filter.
func (c *Controller) fetch(ctx context.Context, seq uint64, f models.Filter) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
	defer cancel()
	page, err := c.source.FetchCharacters(fctx, f)

	c.mu.Lock()
	defer c.mu.Unlock()

	log := logging.Log(ctx).Layer("browser").Op("fetchCharacters").User(c.email).
		Filter(f.Page, string(f.Status), f.Name)

	if seq != c.seq {
		log.Debug("discarding superseded character response")
		return
	}

	switch {
	case err != nil:
		log.Err(err).Error("failed to fetch characters")
		c.results = nil
		c.totalPages = 1
	case len(page.Results) == 0:
		c.results = nil
		c.totalPages = 1
	default:
		c.results = page.Results
		c.totalPages = max(page.Info.Pages, 1)
	}
}

func (c *Controller) hasPrevLocked() bool {
	return c.filter.Page > 1
}

func (c *Controller) hasNextLocked() bool {
	return c.filter.Page < c.totalPages
}

func (c *Controller) viewLocked() View {
	v := View{
		Characters: slices.Clone(c.results),
		Page:       c.filter.Page,
		TotalPages: c.totalPages,
		Status:     c.filter.Status,
		Name:       c.filter.Name,
		HasPrev:    c.hasPrevLocked(),
		HasNext:    c.hasNextLocked(),
		Favourites: slices.Clone(c.favourites),
	}
	if v.Characters == nil {
		v.Characters = []models.Character{}
	}
	if len(v.Characters) == 0 && c.loaded {
		v.Message = EmptyMessage(c.filter.Name)
	}
	if c.selected != nil {
		selected := *c.selected
		v.Selected = &selected
		v.SelectedFavourite = slices.Contains(c.favourites, selected.ID)
	}
	return v
}

// EmptyMessage is shown when a query has no results or failed.
func EmptyMessage(name string) string {
	return fmt.Sprintf("No results found for %q.", name)
}

// toggle removes id if present, appending it otherwise.
func toggle(favs []int, id int) []int {
	if i := slices.Index(favs, id); i >= 0 {
		return slices.Delete(slices.Clone(favs), i, i+1)
	}
	return append(slices.Clone(favs), id)
}

// sameFavourites compares the serialized lists, so order matters.
func sameFavourites(a, b []int) (bool, error) {
	if a == nil {
		a = []int{}
	}
	if b == nil {
		b = []int{}
	}
	ja, err := json.Marshal(a)
	if err != nil {
		return false, err
	}
	jb, err := json.Marshal(b)
	if err != nil {
		return false, err
	}
	return string(ja) == string(jb), nil
}
