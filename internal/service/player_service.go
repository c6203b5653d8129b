package service

import (
	"context"

	"github.com/freeeve/marchlands/internal/model"
	"github.com/freeeve/marchlands/internal/repository"
)

// PlayerService handles player identity lookups and sign-in upserts.
type PlayerService struct {
	store repository.Store
}

// NewPlayerService creates a PlayerService.
func NewPlayerService(store repository.Store) *PlayerService {
	return &PlayerService{store: store}
}

// GetPlayer returns a player by ID.
func (s *PlayerService) GetPlayer(ctx context.Context, id string) (*model.Player, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	p, err := tx.GetPlayer(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	return p, tx.Commit()
}

// UpsertPlayer creates or refreshes a player from an identity provider
// sign-in.
func (s *PlayerService) UpsertPlayer(ctx context.Context, provider, providerID, username string) (*model.Player, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	p, err := tx.UpsertPlayer(ctx, provider, providerID, username)
	if err != nil {
		return nil, err
	}
	return p, tx.Commit()
}
