package handlers

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/giannis84/character-browser/internal/database"
	"github.com/giannis84/character-browser/internal/models"
)

// ParseFilter reads page, status and name from q. Parameters that are absent
// keep their value from current.
func ParseFilter(q url.Values, current models.Filter) (models.Filter, error) {
	f := current

	var checks []func() string
	if q.Has("page") {
		checks = append(checks, func() string { return checkPositiveInt("page", q.Get("page")) })
	}
	if q.Has("status") {
		checks = append(checks, func() string { return checkStatus("status", q.Get("status")) })
	}
	if q.Has("name") {
		checks = append(checks, func() string { return checkMaxLength("name", q.Get("name"), maxNameLength) })
	}
	if err := validate(checks...); err != nil {
		return current, err
	}

	if q.Has("page") {
		f.Page, _ = strconv.Atoi(strings.TrimSpace(q.Get("page")))
	}
	if q.Has("status") {
		f.Status, _ = models.ParseStatusFilter(q.Get("status"))
	}
	if q.Has("name") {
		f.Name = q.Get("name")
	}
	return f, nil
}

// ParseCharacterID validates a character id path parameter.
func ParseCharacterID(raw string) (int, error) {
	if err := validate(
		func() string { return requireNonEmpty("characterID", raw) },
		func() string {
			if strings.TrimSpace(raw) == "" {
				return ""
			}
			return checkPositiveInt("characterID", raw)
		},
	); err != nil {
		return 0, err
	}
	id, _ := strconv.Atoi(strings.TrimSpace(raw))
	return id, nil
}

// RegisterUser creates an empty favourites record for email if none exists.
func RegisterUser(ctx context.Context, store database.FavouritesStore, email string) error {
	if err := validate(
		func() string { return requireNonEmpty("email", email) },
		func() string { return checkEmail("email", email) },
	); err != nil {
		return err
	}
	return store.CreateUserRecord(ctx, email)
}
