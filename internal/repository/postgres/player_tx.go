package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/freeeve/marchlands/internal/model"
)

// GetPlayer returns a player by ID, or (nil, nil) if it does not exist.
func (t *Tx) GetPlayer(ctx context.Context, id string) (*model.Player, error) {
	var p model.Player
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, provider, provider_id, username, superuser, created_at
		 FROM players WHERE id = $1`, id,
	).Scan(&p.ID, &p.Provider, &p.ProviderID, &p.Username, &p.Superuser, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get player: %w", err)
	}
	return &p, nil
}

// UpsertPlayer creates or refreshes a player row keyed by the identity
// provider pair, updating the username on conflict.
func (t *Tx) UpsertPlayer(ctx context.Context, provider, providerID, username string) (*model.Player, error) {
	p := model.Player{Provider: provider, ProviderID: providerID}
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO players (provider, provider_id, username)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (provider, provider_id) DO UPDATE SET username = EXCLUDED.username
		 RETURNING id, username, superuser, created_at`,
		provider, providerID, username,
	).Scan(&p.ID, &p.Username, &p.Superuser, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert player: %w", err)
	}
	return &p, nil
}
