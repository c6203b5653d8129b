package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/freeeve/marchlands/internal/model"
	"github.com/freeeve/marchlands/internal/repository"
)

const movementCols = `id, village_id, target_village_id, created_at, arrival_at, return_at, completed,
	archers, swordsmen, knights, skirmishers, noblemen,
	return_wood, return_clay, return_iron, is_attack, is_support, is_spy`

func scanMovement(row interface{ Scan(...any) error }) (*model.UnitMovement, error) {
	var m model.UnitMovement
	err := row.Scan(&m.ID, &m.VillageID, &m.TargetVillageID, &m.CreatedAt, &m.ArrivalAt, &m.ReturnAt, &m.Completed,
		&m.Units.Archer, &m.Units.Swordsman, &m.Units.Knight, &m.Units.Skirmisher, &m.Units.Nobleman,
		&m.ReturnWood, &m.ReturnClay, &m.ReturnIron, &m.IsAttack, &m.IsSupport, &m.IsSpy)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMovement returns a movement by ID, or (nil, nil) if it does not exist.
func (t *Tx) GetMovement(ctx context.Context, id int64) (*model.UnitMovement, error) {
	m, err := scanMovement(t.tx.QueryRowContext(ctx,
		`SELECT `+movementCols+` FROM unit_movements WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return m, nil
}

// CreateMovement inserts a troop movement.
func (t *Tx) CreateMovement(ctx context.Context, m *model.UnitMovement) error {
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO unit_movements (village_id, target_village_id, arrival_at, return_at,
		    archers, swordsmen, knights, skirmishers, noblemen,
		    return_wood, return_clay, return_iron, is_attack, is_support, is_spy)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING id, created_at`,
		m.VillageID, m.TargetVillageID, m.ArrivalAt, m.ReturnAt,
		m.Units.Archer, m.Units.Swordsman, m.Units.Knight, m.Units.Skirmisher, m.Units.Nobleman,
		m.ReturnWood, m.ReturnClay, m.ReturnIron, m.IsAttack, m.IsSupport, m.IsSpy,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("create movement: %w", err)
	}
	return nil
}

// UpdateMovement writes back movement state after resolution.
func (t *Tx) UpdateMovement(ctx context.Context, m *model.UnitMovement) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE unit_movements SET return_at = $1, completed = $2,
		    archers = $3, swordsmen = $4, knights = $5, skirmishers = $6, noblemen = $7,
		    return_wood = $8, return_clay = $9, return_iron = $10
		 WHERE id = $11`,
		m.ReturnAt, m.Completed,
		m.Units.Archer, m.Units.Swordsman, m.Units.Knight, m.Units.Skirmisher, m.Units.Nobleman,
		m.ReturnWood, m.ReturnClay, m.ReturnIron, m.ID)
	if err != nil {
		return fmt.Errorf("update movement: %w", err)
	}
	return nil
}

// ListMovements returns all uncompleted movements touching a village.
func (t *Tx) ListMovements(ctx context.Context, villageID int64) ([]model.UnitMovement, error) {
	return t.listMovements(ctx,
		`SELECT `+movementCols+` FROM unit_movements
		 WHERE (village_id = $1 OR target_village_id = $1) AND NOT completed
		 ORDER BY arrival_at, id`, villageID)
}

// ListOutboundMovements returns a village's own uncompleted movements.
func (t *Tx) ListOutboundMovements(ctx context.Context, villageID int64) ([]model.UnitMovement, error) {
	return t.listMovements(ctx,
		`SELECT `+movementCols+` FROM unit_movements
		 WHERE village_id = $1 AND NOT completed
		 ORDER BY arrival_at, id`, villageID)
}

// ListReturningMovements returns outbound movements due back home by upto.
func (t *Tx) ListReturningMovements(ctx context.Context, villageID int64, upto time.Time) ([]model.UnitMovement, error) {
	return t.listMovements(ctx,
		`SELECT `+movementCols+` FROM unit_movements
		 WHERE village_id = $1 AND NOT completed AND return_at IS NOT NULL AND return_at <= $2
		 ORDER BY return_at, id`, villageID, upto)
}

// ListRipeMovements returns uncompleted, non-returning movements of the
// given kind that have reached the target, oldest first.
func (t *Tx) ListRipeMovements(ctx context.Context, targetID int64, kind repository.MovementKind, now time.Time) ([]model.UnitMovement, error) {
	var flag string
	switch kind {
	case repository.MovementAttack:
		flag = "is_attack"
	case repository.MovementSupport:
		flag = "is_support"
	case repository.MovementSpy:
		flag = "is_spy"
	default:
		return nil, fmt.Errorf("unknown movement kind %q", kind)
	}
	return t.listMovements(ctx,
		`SELECT `+movementCols+` FROM unit_movements
		 WHERE target_village_id = $1 AND `+flag+` AND NOT completed
		   AND return_at IS NULL AND arrival_at <= $2
		 ORDER BY id`, targetID, now)
}

// ListRipeAttackTargets returns the distinct targets of arrived attacks.
func (t *Tx) ListRipeAttackTargets(ctx context.Context, now time.Time) ([]int64, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT DISTINCT target_village_id FROM unit_movements
		 WHERE is_attack AND NOT completed AND return_at IS NULL AND arrival_at <= $1
		 ORDER BY target_village_id`, now)
	if err != nil {
		return nil, fmt.Errorf("list ripe attack targets: %w", err)
	}
	defer rows.Close()

	var targets []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}
		targets = append(targets, id)
	}
	return targets, rows.Err()
}

func (t *Tx) listMovements(ctx context.Context, query string, args ...any) ([]model.UnitMovement, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	var movements []model.UnitMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		movements = append(movements, *m)
	}
	return movements, rows.Err()
}
