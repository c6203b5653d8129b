package postgres

import (
	"context"
	"fmt"

	"github.com/freeeve/marchlands/internal/model"
)

// ListOpenBuildingEvents returns a village's uncompleted building events
// in creation order. With forUpdate the rows are locked.
func (t *Tx) ListOpenBuildingEvents(ctx context.Context, villageID int64, forUpdate bool) ([]model.BuildingEvent, error) {
	query := `SELECT id, village_id, building_kind, created_at, complete_at, completed
	 FROM building_events WHERE village_id = $1 AND NOT completed ORDER BY created_at, id`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	rows, err := t.tx.QueryContext(ctx, query, villageID)
	if err != nil {
		return nil, fmt.Errorf("list building events: %w", err)
	}
	defer rows.Close()

	var events []model.BuildingEvent
	for rows.Next() {
		var ev model.BuildingEvent
		if err := rows.Scan(&ev.ID, &ev.VillageID, &ev.Kind, &ev.CreatedAt, &ev.CompleteAt, &ev.Completed); err != nil {
			return nil, fmt.Errorf("scan building event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// CreateBuildingEvent inserts a queued building upgrade.
func (t *Tx) CreateBuildingEvent(ctx context.Context, ev *model.BuildingEvent) error {
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO building_events (village_id, building_kind, complete_at)
		 VALUES ($1, $2, $3) RETURNING id, created_at`,
		ev.VillageID, ev.Kind, ev.CompleteAt,
	).Scan(&ev.ID, &ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("create building event: %w", err)
	}
	return nil
}

// UpdateBuildingEvent writes back completion state.
func (t *Tx) UpdateBuildingEvent(ctx context.Context, ev *model.BuildingEvent) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE building_events SET complete_at = $1, completed = $2 WHERE id = $3`,
		ev.CompleteAt, ev.Completed, ev.ID)
	if err != nil {
		return fmt.Errorf("update building event: %w", err)
	}
	return nil
}

// ListOpenTrainingEvents returns a village's uncompleted training events
// in creation order. With forUpdate the rows are locked.
func (t *Tx) ListOpenTrainingEvents(ctx context.Context, villageID int64, forUpdate bool) ([]model.UnitTrainingEvent, error) {
	query := `SELECT id, village_id, unit_kind, count, created_at, complete_at, completed
	 FROM unit_training_events WHERE village_id = $1 AND NOT completed ORDER BY created_at, id`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	rows, err := t.tx.QueryContext(ctx, query, villageID)
	if err != nil {
		return nil, fmt.Errorf("list training events: %w", err)
	}
	defer rows.Close()

	var events []model.UnitTrainingEvent
	for rows.Next() {
		var ev model.UnitTrainingEvent
		if err := rows.Scan(&ev.ID, &ev.VillageID, &ev.Kind, &ev.Count, &ev.CreatedAt, &ev.CompleteAt, &ev.Completed); err != nil {
			return nil, fmt.Errorf("scan training event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// CreateTrainingEvent inserts a queued training batch.
func (t *Tx) CreateTrainingEvent(ctx context.Context, ev *model.UnitTrainingEvent) error {
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO unit_training_events (village_id, unit_kind, count, complete_at)
		 VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		ev.VillageID, ev.Kind, ev.Count, ev.CompleteAt,
	).Scan(&ev.ID, &ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("create training event: %w", err)
	}
	return nil
}

// UpdateTrainingEvent writes back the remaining count and completion time.
func (t *Tx) UpdateTrainingEvent(ctx context.Context, ev *model.UnitTrainingEvent) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE unit_training_events SET count = $1, complete_at = $2, completed = $3 WHERE id = $4`,
		ev.Count, ev.CompleteAt, ev.Completed, ev.ID)
	if err != nil {
		return fmt.Errorf("update training event: %w", err)
	}
	return nil
}

// DeleteTrainingEvent removes a drained training event.
func (t *Tx) DeleteTrainingEvent(ctx context.Context, id int64) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM unit_training_events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete training event: %w", err)
	}
	return nil
}
