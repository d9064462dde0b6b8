package database

import (
	"context"
	"errors"

	"github.com/giannis84/character-browser/internal/models"
)

var (
	ErrNotFound         = errors.New("user record not found")
	ErrVersionDowngrade = errors.New("store version is lower than the stored schema version")
	ErrInvalidStoreName = errors.New("invalid object store name")
	ErrConflict         = errors.New("concurrent update conflict")
)

// FavouritesTx is the view of the object store inside one transaction.
type FavouritesTx interface {
	// GetUserRecord returns ErrNotFound when the user has no record.
	GetUserRecord(email string) (*models.UserRecord, error)
	PutUserRecord(record *models.UserRecord) error
}

// FavouritesStore persists one favourites record per user email.
//
// Update and View run fn inside a transaction that is committed when fn
// returns nil and rolled back otherwise, including when fn panics.
type FavouritesStore interface {
	Update(ctx context.Context, fn func(tx FavouritesTx) error) error
	View(ctx context.Context, fn func(tx FavouritesTx) error) error
	CreateUserRecord(ctx context.Context, email string) error
	Ping(ctx context.Context) error
}
