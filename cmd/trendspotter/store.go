package main

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/dylantarre/trend-spotter/internal/migrations"
	"github.com/dylantarre/trend-spotter/internal/sqlite"
)

// openStore connects to the database and brings its schema up to date.
func openStore(cfg *config) (*sqlx.DB, sqlite.Repo, error) {
	dbx, err := sqlite.Open(cfg.Database)
	if err != nil {
		return nil, sqlite.Repo{}, err
	}

	// Run all migrations
	if err := migrations.Run(dbx); err != nil {
		dbx.Close()
		return nil, sqlite.Repo{}, fmt.Errorf("error running migrations: %w", err)
	}

	return dbx, sqlite.New(dbx), nil
}
