package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/freeeve/marchlands/internal/repository"
)

// Store implements repository.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Begin opens a transaction.
func (s *Store) Begin(ctx context.Context) (repository.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Tx implements repository.Tx over a single sql.Tx.
type Tx struct {
	tx *sql.Tx
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}
