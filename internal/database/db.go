package database

import (
	"fmt"
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"              // SQLite driver
)

// Options describes how to reach the database
type Options struct {
	Driver   string
	DSN      string
	Debug    bool
	MaxOpen  int
	MaxIdle  int
	Lifetime time.Duration
}

// Open connects to the configured database and applies pool settings.
// SQLite connections are limited to one so that ":memory:" databases are
// shared by every query.
func Open(opts Options) (*gorm.DB, error) {
	switch opts.Driver {
	case "sqlite3", "postgres":
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", opts.Driver)
	}

	db, err := gorm.Open(opts.Driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.LogMode(opts.Debug)

	maxOpen, maxIdle := opts.MaxOpen, opts.MaxIdle
	if opts.Driver == "sqlite3" {
		maxOpen, maxIdle = 1, 1
	}
	if maxOpen > 0 {
		db.DB().SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.DB().SetMaxIdleConns(maxIdle)
	}
	if opts.Lifetime > 0 {
		db.DB().SetConnMaxLifetime(opts.Lifetime)
	}

	return db, nil
}

// Close closes the database connection
func Close(db *gorm.DB) error {
	if db != nil {
		return db.Close()
	}
	return nil
}
