package database

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/lib/pq"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var storeNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// dialect holds the few places where SQLite and PostgreSQL disagree.
type dialect struct {
	driver       string
	jsonType     string
	forUpdate    string
	quote        func(string) string
	placeholders func(n int) string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite:
		return dialect{
			driver:       DriverSQLite,
			jsonType:     "TEXT",
			quote:        func(s string) string { return `"` + s + `"` },
			placeholders: func(int) string { return "?" },
		}, nil
	case DriverPostgres:
		return dialect{
			driver:       DriverPostgres,
			jsonType:     "JSONB",
			forUpdate:    " FOR UPDATE",
			quote:        pq.QuoteIdentifier,
			placeholders: func(n int) string { return "$" + strconv.Itoa(n) },
		}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// p returns the n-th (1-based) bind parameter.
func (d dialect) p(n int) string {
	return d.placeholders(n)
}

func validateStoreName(name string) error {
	if !storeNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidStoreName, name)
	}
	return nil
}
