package database

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/giannis84/character-browser/internal/models"
)

// MockStore is a simple in-memory FavouritesStore intended for unit tests only.
// Writes made inside a failed transaction are discarded.
type MockStore struct {
	mu      sync.Mutex
	records map[string]*models.UserRecord

	// Injected failures, checked at the start of each call.
	UpdateErr error
	ViewErr   error
	PutErr    error
	PingErr   error

	// Puts counts successful PutUserRecord calls.
	Puts int
}

// NewMockStore returns a MockStore for testing.
func NewMockStore() *MockStore {
	return &MockStore{records: make(map[string]*models.UserRecord)}
}

// Seed stores a record for email with the given favourites.
func (m *MockStore) Seed(email string, favourites ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[email] = &models.UserRecord{
		Email:     email,
		Favourite: append([]int{}, favourites...),
		UpdatedAt: time.Now(),
	}
}

// Favourites returns the stored favourites for email and whether a record exists.
func (m *MockStore) Favourites(email string) ([]int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[email]
	if !ok {
		return nil, false
	}
	return slices.Clone(rec.Favourite), true
}

func (m *MockStore) Update(_ context.Context, fn func(tx FavouritesTx) error) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	return m.run(fn, true)
}

func (m *MockStore) View(_ context.Context, fn func(tx FavouritesTx) error) error {
	if m.ViewErr != nil {
		return m.ViewErr
	}
	return m.run(fn, false)
}

func (m *MockStore) CreateUserRecord(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[email]; !ok {
		m.records[email] = &models.UserRecord{Email: email, Favourite: []int{}, UpdatedAt: time.Now()}
	}
	return nil
}

func (m *MockStore) Ping(_ context.Context) error {
	return m.PingErr
}

func (m *MockStore) run(fn func(tx FavouritesTx) error, writable bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &mockTx{store: m, writable: writable, pending: map[string]*models.UserRecord{}}
	if err := fn(tx); err != nil {
		return err
	}
	for email, rec := range tx.pending {
		m.records[email] = rec
		m.Puts++
	}
	return nil
}

type mockTx struct {
	store    *MockStore
	writable bool
	pending  map[string]*models.UserRecord
}

func (t *mockTx) GetUserRecord(email string) (*models.UserRecord, error) {
	rec, ok := t.pending[email]
	if !ok {
		rec, ok = t.store.records[email]
	}
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	cp.Favourite = slices.Clone(rec.Favourite)
	return &cp, nil
}

func (t *mockTx) PutUserRecord(record *models.UserRecord) error {
	if !t.writable {
		return errors.New("put in read-only transaction")
	}
	if t.store.PutErr != nil {
		return t.store.PutErr
	}
	cp := *record
	cp.Favourite = slices.Clone(record.Favourite)
	t.pending[record.Email] = &cp
	return nil
}
