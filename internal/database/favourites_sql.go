package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/giannis84/character-browser/internal/models"
	"github.com/lib/pq"
)

// SQLStore implements FavouritesStore on top of database/sql. One table (the
// object store) holds a row per user email with the favourites as JSON.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	table   string
	queries queries
}

type queries struct {
	get       string
	getLocked string
	put       string
	create    string
}

// NewSQLStore wraps an open *sql.DB. objectStore is the table name and must be
// a plain SQL identifier.
func NewSQLStore(db *sql.DB, driver, objectStore string) (*SQLStore, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	if err := validateStoreName(objectStore); err != nil {
		return nil, err
	}

	table := d.quote(objectStore)
	get := fmt.Sprintf(`SELECT email, favourite, updated_at FROM %s WHERE email = %s`, table, d.p(1))

	return &SQLStore{
		db:      db,
		dialect: d,
		table:   objectStore,
		queries: queries{
			get:       get,
			getLocked: get + d.forUpdate,
			put: fmt.Sprintf(`INSERT INTO %s (email, favourite, updated_at) VALUES (%s, %s, %s)
				ON CONFLICT (email) DO UPDATE SET favourite = excluded.favourite, updated_at = excluded.updated_at`,
				table, d.p(1), d.p(2), d.p(3)),
			create: fmt.Sprintf(`INSERT INTO %s (email, favourite, updated_at) VALUES (%s, %s, %s)
				ON CONFLICT (email) DO NOTHING`,
				table, d.p(1), d.p(2), d.p(3)),
		},
	}, nil
}

// DB exposes the underlying handle, mainly for Close.
func (s *SQLStore) DB() *sql.DB { return s.db }

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Update(ctx context.Context, fn func(tx FavouritesTx) error) error {
	return s.withTx(ctx, true, fn)
}

func (s *SQLStore) View(ctx context.Context, fn func(tx FavouritesTx) error) error {
	return s.withTx(ctx, false, fn)
}

func (s *SQLStore) CreateUserRecord(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx, s.queries.create, email, "[]", time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("creating user record: %w", err)
	}
	return nil
}

func (s *SQLStore) withTx(ctx context.Context, writable bool, fn func(tx FavouritesTx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, txOptions(writable))
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&sqlTx{ctx: ctx, tx: tx, store: s, writable: writable}); err != nil {
		err = markConflict(err)
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rolling back transaction: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return markConflict(fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

// txOptions marks View transactions read-only.
func txOptions(writable bool) *sql.TxOptions {
	return &sql.TxOptions{ReadOnly: !writable}
}

// markConflict tags PostgreSQL serialization failures (40001) and deadlocks
// (40P01) with ErrConflict.
func markConflict(err error) error {
	var pge *pq.Error
	if errors.As(err, &pge) && (pge.Code == "40001" || pge.Code == "40P01") {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}

type sqlTx struct {
	ctx      context.Context
	tx       *sql.Tx
	store    *SQLStore
	writable bool
}

func (t *sqlTx) GetUserRecord(email string) (*models.UserRecord, error) {
	query := t.store.queries.get
	if t.writable {
		query = t.store.queries.getLocked
	}

	var (
		record  models.UserRecord
		rawFavs []byte
		updated int64
	)
	err := t.tx.QueryRowContext(t.ctx, query, email).Scan(&record.Email, &rawFavs, &updated)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user record: %w", err)
	}

	favs, err := unmarshalFavourites(rawFavs)
	if err != nil {
		return nil, err
	}
	record.Favourite = favs
	record.UpdatedAt = time.UnixMilli(updated).UTC()
	return &record, nil
}

func (t *sqlTx) PutUserRecord(record *models.UserRecord) error {
	if !t.writable {
		return fmt.Errorf("put in read-only transaction")
	}

	favs := record.Favourite
	if favs == nil {
		favs = []int{}
	}
	data, err := json.Marshal(favs)
	if err != nil {
		return fmt.Errorf("marshalling favourites: %w", err)
	}

	updated := record.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	if _, err := t.tx.ExecContext(t.ctx, t.store.queries.put, record.Email, string(data), updated.UnixMilli()); err != nil {
		return fmt.Errorf("writing user record: %w", err)
	}
	return nil
}

func unmarshalFavourites(data []byte) ([]int, error) {
	favs := []int{}
	if len(data) == 0 {
		return favs, nil
	}
	if err := json.Unmarshal(data, &favs); err != nil {
		return nil, fmt.Errorf("unmarshalling favourites: %w", err)
	}
	if favs == nil {
		favs = []int{}
	}
	return favs, nil
}
