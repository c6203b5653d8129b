package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/freeeve/marchlands/internal/model"
)

// CreateBattleMessage appends a battle report to a player's inbox.
func (t *Tx) CreateBattleMessage(ctx context.Context, msg *model.BattleMessage) error {
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO battle_messages (from_player_id, to_player_id, message, battle_data)
		 VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		msg.FromPlayerID, msg.ToPlayerID, msg.Message, msg.BattleData,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("create battle message: %w", err)
	}
	return nil
}

// ListBattleMessages returns a player's most recent battle reports.
func (t *Tx) ListBattleMessages(ctx context.Context, playerID string, limit int) ([]model.BattleMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id, from_player_id, to_player_id, message, battle_data, created_at, displayed
		 FROM battle_messages WHERE to_player_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list battle messages: %w", err)
	}
	defer rows.Close()

	var messages []model.BattleMessage
	for rows.Next() {
		var m model.BattleMessage
		var from sql.NullString
		if err := rows.Scan(&m.ID, &from, &m.ToPlayerID, &m.Message, &m.BattleData, &m.CreatedAt, &m.Displayed); err != nil {
			return nil, fmt.Errorf("scan battle message: %w", err)
		}
		if from.Valid {
			m.FromPlayerID = &from.String
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// MarkBattleMessageDisplayed flags a message as read. Scoped to the
// recipient so a player cannot touch someone else's inbox.
func (t *Tx) MarkBattleMessageDisplayed(ctx context.Context, id int64, playerID string) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE battle_messages SET displayed = true WHERE id = $1 AND to_player_id = $2`,
		id, playerID)
	if err != nil {
		return fmt.Errorf("mark battle message displayed: %w", err)
	}
	return nil
}
