// Package postgres is the Postgres content store. It implements
// core.ContentStore and core.RunRecorder on a pgx connection pool, with
// posts, postmeta, terms and term_relationships tables.
//
// Every primitive commits on its own. A record whose later steps fail stays
// in place, stamped with the import run that created it, so an operator can
// remove a partial run with DeleteRun.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/ResourceImporter/internal/core"
	"github.com/JonMunkholm/ResourceImporter/internal/media"
)

//go:embed schema.sql
var schemaSQL string

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Store is a content store backed by Postgres.
type Store struct {
	pool  *pgxpool.Pool
	media media.Storage
	now   func() time.Time
}

var (
	_ core.ContentStore = (*Store)(nil)
	_ core.RunRecorder  = (*Store)(nil)
)

// New creates a Store. lib receives sideloaded attachment files.
func New(pool *pgxpool.Pool, lib media.Storage) *Store {
	return &Store{
		pool:  pool,
		media: lib,
		now:   time.Now,
	}
}

// Migrate creates the content tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// inTx runs fn in a transaction, committing when fn returns nil.
func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
