// Package bank is the customer banking database the assistant's tools read
// from: customers, their accounts, account transactions and the savings
// schemes each bank offers. It is a single-file SQLite database.
package bank

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	_ "modernc.org/sqlite"
)

// DateLayout is the storage format of transaction dates.
const DateLayout = "2006-01-02"

// Options configures a Store.
type Options struct {
	Logger *slog.Logger

	// Now returns the current time; periods such as "this week" are relative to it.
	Now func() time.Time

	// SchemeCacheSize and SchemeCacheTTL bound the scheme lookup cache.
	// A zero size disables caching.
	SchemeCacheSize int
	SchemeCacheTTL  time.Duration
}

// Store wraps the banking database handle.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	now     func() time.Time
	schemes *expirable.LRU[string, []Scheme]
}

// Open opens (creating if needed) the database at path. Use ":memory:" for a
// throwaway database.
func Open(path string, opts Options) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open bank db: %w", err)
	}
	// One connection: SQLite has a single writer and an in-memory database
	// exists per connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping bank db: %w", err)
	}

	s := &Store{
		db:     db,
		logger: opts.Logger,
		now:    opts.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.SchemeCacheSize > 0 {
		s.schemes = expirable.NewLRU[string, []Scheme](opts.SchemeCacheSize, nil, opts.SchemeCacheTTL)
	}
	return s, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) today() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func (s *Store) purgeCache() {
	if s.schemes != nil {
		s.schemes.Purge()
	}
}
