package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const metaTable = "store_meta"

// Config describes the favourites store. Name is the SQLite file path or the
// PostgreSQL database name; Version is the schema version of ObjectStore.
type Config struct {
	Driver      string
	Name        string
	Version     int
	ObjectStore string

	// PostgreSQL only.
	Host     string
	Port     string
	User     string
	Password string
}

// DSN returns the driver-specific data source name.
func (c Config) DSN() string {
	if c.Driver == DriverPostgres {
		return fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.User, c.Password, c.Name,
		)
	}
	return "file:" + c.Name + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Open connects to the configured store, verifies connectivity, creates the
// object store if needed and checks its schema version.
func Open(ctx context.Context, cfg Config) (*SQLStore, error) {
	if cfg.Version < 1 {
		return nil, fmt.Errorf("store version must be at least 1, got %d", cfg.Version)
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// A single writer avoids SQLITE_BUSY under concurrent toggles.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(5 * time.Minute)
		db.SetConnMaxIdleTime(1 * time.Minute)
	}

	store, err := NewSQLStore(db, cfg.Driver, cfg.ObjectStore)
	if err != nil {
		db.Close()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if err := store.migrate(ctx, cfg.Version); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// migrate creates the object store and records its version. Opening with a
// version lower than the stored one fails with ErrVersionDowngrade.
func (s *SQLStore) migrate(ctx context.Context, version int) error {
	d := s.dialect
	table := d.quote(s.table)
	meta := d.quote(metaTable)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning migration: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			object_store TEXT    NOT NULL PRIMARY KEY,
			version      INTEGER NOT NULL
		)`, meta),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			email      TEXT   NOT NULL PRIMARY KEY,
			favourite  %s     NOT NULL,
			updated_at BIGINT NOT NULL
		)`, table, d.jsonType),
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
	}

	var stored int
	err = tx.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT version FROM %s WHERE object_store = %s`, meta, d.p(1)),
		s.table,
	).Scan(&stored)

	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (object_store, version) VALUES (%s, %s)`, meta, d.p(1), d.p(2)),
			s.table, version,
		)
	case err != nil:
		return fmt.Errorf("reading store version: %w", err)
	case stored > version:
		return fmt.Errorf("%w: stored %d, requested %d", ErrVersionDowngrade, stored, version)
	case stored < version:
		_, err = tx.ExecContext(ctx,
			fmt.Sprintf(`UPDATE %s SET version = %s WHERE object_store = %s`, meta, d.p(1), d.p(2)),
			version, s.table,
		)
	}
	if err != nil {
		return fmt.Errorf("recording store version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration: %w", err)
	}
	return nil
}
