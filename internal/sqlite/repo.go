// Package sqlite is the embedded trend store.
package sqlite

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/dylantarre/trend-spotter/internal/trends"
)

// Ensure Repo implements the Repository interface
var _ trends.Repository = (*Repo)(nil)

type Repo struct {
	db  *sqlx.DB
	now func() time.Time
}

type Option func(*Repo)

// WithClock overrides the clock used to decide what "today" is.
func WithClock(now func() time.Time) Option {
	return func(r *Repo) {
		r.now = now
	}
}

func New(db *sqlx.DB, opts ...Option) Repo {
	r := Repo{db: db, now: time.Now}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// Open connects to the database file at path.
//
// Foreign keys are enforced and writers take the lock up front, so two
// concurrent upserts wait on each other instead of failing mid-transaction.
func Open(path string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate",
		path,
	)
	dbx, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %s", err)
	}

	return dbx, nil
}

// today is the calendar day new trends are filed under, in local time.
func (r Repo) today() string {
	return r.now().Local().Format(trends.DateLayout)
}
