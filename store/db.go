package store

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite3"
)

// DB wraps sqlx.DB with the driver it was opened with. The huddles and
// profiles tables are shared with the main application, so production points
// at its postgres while tests and local runs use a sqlite file.
type DB struct {
	*sqlx.DB
	Driver string
}

// OpenFromConfig opens the shared database. A non-empty dbURL selects
// postgres; otherwise a sqlite file at sqlitePath is used. driverOverride
// forces one or the other regardless of which settings are present.
func OpenFromConfig(dbURL, sqlitePath, driverOverride string) (*DB, error) {
	sqlx.NameMapper = toSnake

	driver, dsn, err := resolveDriver(dbURL, sqlitePath, driverOverride)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverPostgres {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	} else {
		// sqlite serializes writers anyway; a single connection avoids
		// SQLITE_BUSY churn under concurrent handlers.
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &DB{DB: db, Driver: driver}, nil
}

func resolveDriver(dbURL, sqlitePath, driverOverride string) (driver, dsn string, err error) {
	if sqlitePath == "" {
		sqlitePath = "huddle.db"
	}
	switch strings.ToLower(strings.TrimSpace(driverOverride)) {
	case "", "default":
		if dbURL != "" {
			return DriverPostgres, dbURL, nil
		}
		return DriverSQLite, sqlitePath, nil
	case "postgres", "pgx":
		if dbURL == "" {
			return "", "", fmt.Errorf("database url required for postgres driver")
		}
		return DriverPostgres, dbURL, nil
	case "sqlite", "sqlite3":
		return DriverSQLite, sqlitePath, nil
	default:
		return "", "", fmt.Errorf("unknown database driver %q", driverOverride)
	}
}

func toSnake(s string) string {
	var out strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := rune(s[i-1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) {
					out.WriteByte('_')
				}
			}
			out.WriteRune(unicode.ToLower(r))
		} else {
			out.WriteRune(r)
		}
	}
	return out.String()
}

func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	return db.DB.Close()
}
