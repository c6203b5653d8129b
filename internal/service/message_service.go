package service

import (
	"context"

	"github.com/freeeve/marchlands/internal/model"
	"github.com/freeeve/marchlands/internal/repository"
)

// MessageService exposes the battle report inbox.
type MessageService struct {
	store repository.Store
}

// NewMessageService creates a MessageService.
func NewMessageService(store repository.Store) *MessageService {
	return &MessageService{store: store}
}

// ListMessages returns the player's most recent battle reports.
func (s *MessageService) ListMessages(ctx context.Context, playerID string, limit int) ([]model.BattleMessage, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	messages, err := tx.ListBattleMessages(ctx, playerID, limit)
	if err != nil {
		return nil, err
	}
	return messages, tx.Commit()
}

// MarkDisplayed flags one of the player's messages as read.
func (s *MessageService) MarkDisplayed(ctx context.Context, messageID int64, playerID string) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.MarkBattleMessageDisplayed(ctx, messageID, playerID); err != nil {
		return err
	}
	return tx.Commit()
}
