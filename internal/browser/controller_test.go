package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"

	"github.com/giannis84/character-browser/internal/database"
	"github.com/giannis84/character-browser/internal/logging"
	"github.com/giannis84/character-browser/internal/models"
)

const testEmail = "rick@citadel.com"

// testContext returns a context with a discarding logger for tests.
func testContext() context.Context {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return logging.NewContextWithLogger(context.Background(), logger)
}

// fakeSource records every fetch and answers through respond.
type fakeSource struct {
	mu      sync.Mutex
	calls   []models.Filter
	respond func(f models.Filter) (*models.Page, error)
}

func (s *fakeSource) FetchCharacters(_ context.Context, f models.Filter) (*models.Page, error) {
	s.mu.Lock()
	s.calls = append(s.calls, f)
	respond := s.respond
	s.mu.Unlock()
	return respond(f)
}

func (s *fakeSource) Calls() []models.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

func pageOf(pages int, ids ...int) *models.Page {
	p := &models.Page{Info: models.PageInfo{Pages: pages, Count: len(ids)}}
	for _, id := range ids {
		p.Results = append(p.Results, models.Character{ID: id, Name: fmt.Sprintf("Character %d", id)})
	}
	return p
}

func staticSource(page *models.Page) *fakeSource {
	return &fakeSource{respond: func(models.Filter) (*models.Page, error) { return page, nil }}
}

// --- fetching ---

func TestController_Load(t *testing.T) {
	src := staticSource(pageOf(42, 1, 2, 3))
	c := NewController(src, database.NewMockStore(), testEmail)

	v := c.Load(testContext())

	calls := src.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 fetch, got %d", len(calls))
	}
	if calls[0] != models.DefaultFilter() {
		t.Errorf("fetched with %+v, want default filter", calls[0])
	}
	if len(v.Characters) != 3 || v.TotalPages != 42 || v.Page != 1 {
		t.Errorf("unexpected view: %+v", v)
	}
	if v.Message != "" {
		t.Errorf("expected no empty message, got %q", v.Message)
	}
}

func TestController_FilterChangesFetchOnce(t *testing.T) {
	tests := []struct {
		name       string
		change     func(ctx context.Context, c *Controller) (View, error)
		wantFilter models.Filter
	}{
		{
			name:       "status change",
			change:     func(ctx context.Context, c *Controller) (View, error) { return c.SetStatus(ctx, models.StatusDead) },
			wantFilter: models.Filter{Status: models.StatusDead, Page: 1},
		},
		{
			name:       "name change",
			change:     func(ctx context.Context, c *Controller) (View, error) { return c.SetName(ctx, "Morty") },
			wantFilter: models.Filter{Status: models.StatusAll, Name: "Morty", Page: 1},
		},
		{
			name:       "page change",
			change:     func(ctx context.Context, c *Controller) (View, error) { return c.SetPage(ctx, 5) },
			wantFilter: models.Filter{Status: models.StatusAll, Page: 5},
		},
		{
			name: "whole filter",
			change: func(ctx context.Context, c *Controller) (View, error) {
				return c.Apply(ctx, models.Filter{Status: models.StatusAlive, Name: "Summer", Page: 2})
			},
			wantFilter: models.Filter{Status: models.StatusAlive, Name: "Summer", Page: 2},
		},
		{
			name:       "next page",
			change:     func(ctx context.Context, c *Controller) (View, error) { return c.NextPage(ctx) },
			wantFilter: models.Filter{Status: models.StatusAll, Page: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext()
			src := staticSource(pageOf(10, 1, 2))
			c := NewController(src, database.NewMockStore(), testEmail)
			c.Load(ctx)

			if _, err := tt.change(ctx, c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			calls := src.Calls()
			if len(calls) != 2 {
				t.Fatalf("expected exactly one fetch after load, got %d", len(calls)-1)
			}
			if calls[1] != tt.wantFilter {
				t.Errorf("fetched with %+v, want %+v", calls[1], tt.wantFilter)
			}
		})
	}
}

func TestController_UnchangedFilterDoesNotFetch(t *testing.T) {
	ctx := testContext()
	src := staticSource(pageOf(3, 1))
	c := NewController(src, database.NewMockStore(), testEmail)

	// First Apply loads even with the default filter.
	if _, err := c.Apply(ctx, models.DefaultFilter()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.Apply(ctx, models.DefaultFilter()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.SetStatus(ctx, models.StatusAll); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n := len(src.Calls()); n != 1 {
		t.Errorf("expected 1 fetch, got %d", n)
	}
}

func TestController_InvalidPage(t *testing.T) {
	src := staticSource(pageOf(3, 1))
	c := NewController(src, database.NewMockStore(), testEmail)

	if _, err := c.SetPage(testContext(), 0); !errors.Is(err, ErrInvalidPage) {
		t.Errorf("expected ErrInvalidPage, got: %v", err)
	}
	if n := len(src.Calls()); n != 0 {
		t.Errorf("expected no fetch, got %d", n)
	}
}

func TestController_EmptyAndFailedFetchReset(t *testing.T) {
	tests := []struct {
		name    string
		respond func(models.Filter) (*models.Page, error)
	}{
		{
			name:    "zero results",
			respond: func(models.Filter) (*models.Page, error) { return pageOf(0), nil },
		},
		{
			name:    "api error",
			respond: func(models.Filter) (*models.Page, error) { return nil, errors.New("status 500") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext()
			src := staticSource(pageOf(9, 1, 2, 3))
			c := NewController(src, database.NewMockStore(), testEmail)
			if v := c.Load(ctx); v.TotalPages != 9 {
				t.Fatalf("setup: total pages = %d, want 9", v.TotalPages)
			}

			src.mu.Lock()
			src.respond = tt.respond
			src.mu.Unlock()

			v, err := c.SetName(ctx, "Nobody")
			if err != nil {
				t.Fatalf("error must not propagate, got: %v", err)
			}
			if len(v.Characters) != 0 {
				t.Errorf("expected empty list, got %d", len(v.Characters))
			}
			if v.Characters == nil {
				t.Error("expected non-nil empty list")
			}
			if v.TotalPages != 1 {
				t.Errorf("total pages = %d, want 1", v.TotalPages)
			}
			if v.Message != `No results found for "Nobody".` {
				t.Errorf("unexpected message %q", v.Message)
			}
		})
	}
}

func TestController_StaleResponseDiscarded(t *testing.T) {
	ctx := testContext()
	release := make(chan struct{})
	started := make(chan struct{})

	src := &fakeSource{respond: func(f models.Filter) (*models.Page, error) {
		if f.Name == "slow" {
			close(started)
			<-release
			return pageOf(99, 100), nil
		}
		return pageOf(2, 1, 2), nil
	}}
	c := NewController(src, database.NewMockStore(), testEmail)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.SetName(ctx, "slow")
	}()
	<-started

	v, err := c.SetName(ctx, "fast")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.TotalPages != 2 {
		t.Fatalf("total pages = %d, want 2", v.TotalPages)
	}

	close(release)
	<-done

	v = c.View()
	if v.TotalPages != 2 || len(v.Characters) != 2 || v.Name != "fast" {
		t.Errorf("superseded response overwrote state: %+v", v)
	}
}

// ctxSource fails like a real client when its context is done.
type ctxSource struct {
	mu    sync.Mutex
	calls int
	page  *models.Page
}

func (s *ctxSource) FetchCharacters(ctx context.Context, _ models.Filter) (*models.Page, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.page, nil
}

func TestController_AbortedRequestStillLoads(t *testing.T) {
	src := &ctxSource{page: pageOf(3, 1, 2)}
	c := NewController(src, database.NewMockStore(), testEmail)

	aborted, cancel := context.WithCancel(testContext())
	cancel()
	if _, err := c.Apply(aborted, models.DefaultFilter()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, err := c.Apply(testContext(), models.DefaultFilter())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.Characters) != 2 || v.TotalPages != 3 || !v.HasNext {
		t.Errorf("expected page 1 of 3 with two characters, got %+v", v)
	}
	if v.Message != "" {
		t.Errorf("unexpected message %q", v.Message)
	}
	if src.calls != 1 {
		t.Errorf("calls = %d, want 1", src.calls)
	}
}

// --- pagination ---

func TestController_Pagination(t *testing.T) {
	ctx := testContext()
	src := staticSource(pageOf(3, 1))
	c := NewController(src, database.NewMockStore(), testEmail)

	v := c.Load(ctx)
	if v.HasPrev {
		t.Error("previous must be disabled on page 1")
	}
	if !v.HasNext {
		t.Error("next must be enabled on page 1 of 3")
	}
	if _, err := c.PrevPage(ctx); !errors.Is(err, ErrPageUnavailable) {
		t.Errorf("expected ErrPageUnavailable on page 1, got: %v", err)
	}

	c.NextPage(ctx)
	v, err := c.NextPage(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Page != 3 || v.HasNext || !v.HasPrev {
		t.Errorf("unexpected view on last page: %+v", v)
	}

	fetches := len(src.Calls())
	if _, err := c.NextPage(ctx); !errors.Is(err, ErrPageUnavailable) {
		t.Errorf("expected ErrPageUnavailable on last page, got: %v", err)
	}
	if n := len(src.Calls()); n != fetches {
		t.Errorf("disabled next must not fetch, got %d new fetches", n-fetches)
	}

	v, err = c.PrevPage(ctx)
	if err != nil || v.Page != 2 {
		t.Errorf("prev: page = %d, err = %v", v.Page, err)
	}
}

// --- modal ---

func TestController_OpenClose(t *testing.T) {
	ctx := testContext()
	c := NewController(staticSource(pageOf(1, 1, 2)), database.NewMockStore(), testEmail)
	c.Load(ctx)

	if _, err := c.Open(99); !errors.Is(err, ErrCharacterNotFound) {
		t.Errorf("expected ErrCharacterNotFound, got: %v", err)
	}

	ch, err := c.Open(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.ID != 2 {
		t.Errorf("opened %d, want 2", ch.ID)
	}
	if v := c.View(); v.Selected == nil || v.Selected.ID != 2 {
		t.Fatalf("expected selection 2, got %+v", v.Selected)
	}

	c.Close()
	if v := c.View(); v.Selected != nil {
		t.Errorf("expected no selection after close, got %+v", v.Selected)
	}
}

// --- favourites ---

func TestController_ToggleFavourite(t *testing.T) {
	t.Run("round trip restores list and persists each change", func(t *testing.T) {
		ctx := testContext()
		store := database.NewMockStore()
		store.Seed(testEmail, 5)
		c := NewController(staticSource(pageOf(1, 1, 2)), store, testEmail)
		c.LoadFavourites(ctx)
		c.Load(ctx)
		c.Open(2)

		got, err := c.ToggleFavourite(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.Favourite || got.CharacterID != 2 || !slices.Equal(got.Favourites, []int{5, 2}) {
			t.Errorf("after first toggle: %+v", got)
		}
		if stored, _ := store.Favourites(testEmail); !slices.Equal(stored, []int{5, 2}) {
			t.Errorf("stored = %v, want [5 2]", stored)
		}
		if v := c.View(); v.Selected == nil || !v.SelectedFavourite {
			t.Error("toggling must keep the modal open and mark the selection")
		}

		got, _ = c.ToggleFavourite(ctx)
		if got.Favourite || got.CharacterID != 2 || !slices.Equal(got.Favourites, []int{5}) {
			t.Errorf("after second toggle: %+v", got)
		}
		if stored, _ := store.Favourites(testEmail); !slices.Equal(stored, []int{5}) {
			t.Errorf("stored = %v, want [5]", stored)
		}
		if store.Puts != 2 {
			t.Errorf("puts = %d, want 2", store.Puts)
		}
	})

	t.Run("write skipped when stored list already matches", func(t *testing.T) {
		ctx := testContext()
		store := database.NewMockStore()
		store.Seed(testEmail, 1)
		// Not hydrated: memory starts empty and becomes [1].
		c := NewController(staticSource(pageOf(1, 1)), store, testEmail)
		c.Load(ctx)
		c.Open(1)

		got, err := c.ToggleFavourite(ctx)
		favs := got.Favourites
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(favs, []int{1}) {
			t.Errorf("favs = %v, want [1]", favs)
		}
		if store.Puts != 0 {
			t.Errorf("puts = %d, want 0", store.Puts)
		}
	})

	t.Run("missing record keeps in-memory toggle", func(t *testing.T) {
		ctx := testContext()
		store := database.NewMockStore()
		c := NewController(staticSource(pageOf(1, 3)), store, testEmail)
		c.Load(ctx)
		c.Open(3)

		got, err := c.ToggleFavourite(ctx)
		favs := got.Favourites
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(favs, []int{3}) || !slices.Equal(c.Favourites(), []int{3}) {
			t.Errorf("favs = %v, want [3]", favs)
		}
		if _, ok := store.Favourites(testEmail); ok {
			t.Error("no record must be created by a toggle")
		}
	})

	t.Run("store failure is not rolled back", func(t *testing.T) {
		ctx := testContext()
		store := database.NewMockStore()
		store.Seed(testEmail)
		store.PutErr = errors.New("disk full")
		c := NewController(staticSource(pageOf(1, 3)), store, testEmail)
		c.Load(ctx)
		c.Open(3)

		got, err := c.ToggleFavourite(ctx)
		favs := got.Favourites
		if err != nil {
			t.Fatalf("store error must not propagate, got: %v", err)
		}
		if !slices.Equal(favs, []int{3}) {
			t.Errorf("favs = %v, want [3]", favs)
		}
		if stored, _ := store.Favourites(testEmail); len(stored) != 0 {
			t.Errorf("stored = %v, want []", stored)
		}
	})

	t.Run("requires a selection", func(t *testing.T) {
		c := NewController(staticSource(pageOf(1, 3)), database.NewMockStore(), testEmail)
		if _, err := c.ToggleFavourite(testContext()); !errors.Is(err, ErrNoSelection) {
			t.Errorf("expected ErrNoSelection, got: %v", err)
		}
	})

	t.Run("concurrent toggles are serialized", func(t *testing.T) {
		ctx := testContext()
		store := database.NewMockStore()
		store.Seed(testEmail)
		c := NewController(staticSource(pageOf(1, 8)), store, testEmail)
		c.Load(ctx)
		c.Open(8)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.ToggleFavourite(ctx)
			}()
		}
		wg.Wait()

		if favs := c.Favourites(); len(favs) != 0 {
			t.Errorf("even number of toggles must restore the list, got %v", favs)
		}
		if stored, _ := store.Favourites(testEmail); len(stored) != 0 {
			t.Errorf("stored = %v, want []", stored)
		}
	})
}

func TestLoadFavourites_Failures(t *testing.T) {
	ctx := testContext()
	store := database.NewMockStore()
	store.Seed(testEmail, 5, 7)
	store.ViewErr = errors.New("store closed")
	c := NewController(staticSource(pageOf(1)), store, testEmail)

	c.LoadFavourites(ctx)
	if favs := c.Favourites(); len(favs) != 0 {
		t.Errorf("expected empty favourites, got %v", favs)
	}

	store.ViewErr = nil
	c.LoadFavourites(ctx)
	if favs := c.Favourites(); !slices.Equal(favs, []int{5, 7}) {
		t.Errorf("favourites = %v, want [5 7] after the store recovered", favs)
	}

	store.Seed(testEmail, 1)
	c.LoadFavourites(ctx)
	if favs := c.Favourites(); !slices.Equal(favs, []int{5, 7}) {
		t.Errorf("favourites = %v, a loaded controller must not reload", favs)
	}
}

func TestLoadFavourites_MissingRecordIsFinal(t *testing.T) {
	ctx := testContext()
	store := database.NewMockStore()
	c := NewController(staticSource(pageOf(1)), store, testEmail)

	c.LoadFavourites(ctx)
	store.Seed(testEmail, 3)
	c.LoadFavourites(ctx)

	if favs := c.Favourites(); len(favs) != 0 {
		t.Errorf("expected empty favourites, got %v", favs)
	}
}

func TestSameFavourites(t *testing.T) {
	tests := []struct {
		a, b []int
		want bool
	}{
		{nil, []int{}, true},
		{[]int{1, 2}, []int{1, 2}, true},
		{[]int{1, 2}, []int{2, 1}, false},
		{[]int{1}, []int{}, false},
	}
	for _, tt := range tests {
		got, err := sameFavourites(tt.a, tt.b)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tt.want {
			t.Errorf("sameFavourites(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

// --- registry ---

func TestRegistry_Get(t *testing.T) {
	ctx := testContext()
	store := database.NewMockStore()
	store.Seed(testEmail, 4, 9)
	r := NewRegistry(staticSource(pageOf(1)), store)

	c1 := r.Get(ctx, testEmail)
	c2 := r.Get(ctx, testEmail)
	if c1 != c2 {
		t.Error("expected the same controller for the same user")
	}
	if !slices.Equal(c1.Favourites(), []int{4, 9}) {
		t.Errorf("favourites = %v, want hydrated [4 9]", c1.Favourites())
	}

	other := r.Get(ctx, "morty@smith.com")
	if other == c1 {
		t.Error("expected a separate controller per user")
	}
	if r.Len() != 2 {
		t.Errorf("len = %d, want 2", r.Len())
	}
}

func TestRegistry_GetRetriesFailedHydration(t *testing.T) {
	ctx := testContext()
	store := database.NewMockStore()
	store.Seed(testEmail, 5, 7)
	r := NewRegistry(staticSource(pageOf(1, 1, 2)), store)

	store.ViewErr = errors.New("connection reset")
	r.Get(ctx, testEmail)
	store.ViewErr = nil

	c := r.Get(ctx, testEmail)
	c.Load(ctx)
	if _, err := c.Open(2); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := c.ToggleFavourite(ctx); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	if favs := c.Favourites(); !slices.Equal(favs, []int{5, 7, 2}) {
		t.Errorf("in-memory favourites = %v, want [5 7 2]", favs)
	}
	if stored, _ := store.Favourites(testEmail); !slices.Equal(stored, []int{5, 7, 2}) {
		t.Errorf("stored favourites = %v, want [5 7 2]", stored)
	}
}
