package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/freeeve/marchlands/internal/model"
	"github.com/freeeve/marchlands/internal/repository"
)

const villageCols = `id, name, x, y, player_id,
	headquarters_lvl, woodcutter_lvl, clay_pit_lvl, iron_mine_lvl, farm_lvl, storage_lvl, barracks_lvl,
	archers, swordsmen, knights, skirmishers, noblemen,
	wood, clay, iron, last_wood_update, last_clay_update, last_iron_update,
	loyalty, created_at`

func scanVillage(row interface{ Scan(...any) error }) (*model.Village, error) {
	var v model.Village
	var playerID sql.NullString
	err := row.Scan(&v.ID, &v.Name, &v.X, &v.Y, &playerID,
		&v.HeadquartersLvl, &v.WoodcutterLvl, &v.ClayPitLvl, &v.IronMineLvl, &v.FarmLvl, &v.StorageLvl, &v.BarracksLvl,
		&v.Units.Archer, &v.Units.Swordsman, &v.Units.Knight, &v.Units.Skirmisher, &v.Units.Nobleman,
		&v.Wood, &v.Clay, &v.Iron, &v.LastWoodUpdate, &v.LastClayUpdate, &v.LastIronUpdate,
		&v.Loyalty, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	if playerID.Valid {
		v.PlayerID = &playerID.String
	}
	return &v, nil
}

// GetVillage returns a village by ID, or (nil, nil) if it does not exist.
func (t *Tx) GetVillage(ctx context.Context, id int64) (*model.Village, error) {
	return t.getVillage(ctx, id, false)
}

// GetVillageForUpdate returns a village by ID under a row lock held until
// the transaction ends.
func (t *Tx) GetVillageForUpdate(ctx context.Context, id int64) (*model.Village, error) {
	return t.getVillage(ctx, id, true)
}

func (t *Tx) getVillage(ctx context.Context, id int64, forUpdate bool) (*model.Village, error) {
	query := `SELECT ` + villageCols + ` FROM villages WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	v, err := scanVillage(t.tx.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get village: %w", err)
	}
	return v, nil
}

// CreateVillage inserts a new village.
func (t *Tx) CreateVillage(ctx context.Context, v *model.Village) error {
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO villages (name, x, y, player_id,
		    headquarters_lvl, woodcutter_lvl, clay_pit_lvl, iron_mine_lvl, farm_lvl, storage_lvl, barracks_lvl,
		    archers, swordsmen, knights, skirmishers, noblemen,
		    wood, clay, iron, last_wood_update, last_clay_update, last_iron_update, loyalty)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		 RETURNING id, created_at`,
		v.Name, v.X, v.Y, v.PlayerID,
		v.HeadquartersLvl, v.WoodcutterLvl, v.ClayPitLvl, v.IronMineLvl, v.FarmLvl, v.StorageLvl, v.BarracksLvl,
		v.Units.Archer, v.Units.Swordsman, v.Units.Knight, v.Units.Skirmisher, v.Units.Nobleman,
		v.Wood, v.Clay, v.Iron, v.LastWoodUpdate, v.LastClayUpdate, v.LastIronUpdate, v.Loyalty,
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return fmt.Errorf("create village: %w", err)
	}
	return nil
}

// UpdateVillage writes back all mutable village state.
func (t *Tx) UpdateVillage(ctx context.Context, v *model.Village) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE villages SET name = $1, player_id = $2,
		    headquarters_lvl = $3, woodcutter_lvl = $4, clay_pit_lvl = $5, iron_mine_lvl = $6,
		    farm_lvl = $7, storage_lvl = $8, barracks_lvl = $9,
		    archers = $10, swordsmen = $11, knights = $12, skirmishers = $13, noblemen = $14,
		    wood = $15, clay = $16, iron = $17,
		    last_wood_update = $18, last_clay_update = $19, last_iron_update = $20,
		    loyalty = $21
		 WHERE id = $22`,
		v.Name, v.PlayerID,
		v.HeadquartersLvl, v.WoodcutterLvl, v.ClayPitLvl, v.IronMineLvl,
		v.FarmLvl, v.StorageLvl, v.BarracksLvl,
		v.Units.Archer, v.Units.Swordsman, v.Units.Knight, v.Units.Skirmisher, v.Units.Nobleman,
		v.Wood, v.Clay, v.Iron,
		v.LastWoodUpdate, v.LastClayUpdate, v.LastIronUpdate,
		v.Loyalty, v.ID)
	if err != nil {
		return fmt.Errorf("update village: %w", err)
	}
	return nil
}

// ListVillages returns villages inside the window plus the total count of
// matching rows for pagination.
func (t *Tx) ListVillages(ctx context.Context, w repository.VillageWindow) ([]model.Village, int, error) {
	var conds []string
	var args []any
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if w.XMin != nil {
		add("x >= $%d", *w.XMin)
	}
	if w.XMax != nil {
		add("x <= $%d", *w.XMax)
	}
	if w.YMin != nil {
		add("y >= $%d", *w.YMin)
	}
	if w.YMax != nil {
		add("y <= $%d", *w.YMax)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM villages`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count villages: %w", err)
	}

	limit := w.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, w.Offset)
	query := fmt.Sprintf(`SELECT `+villageCols+` FROM villages%s ORDER BY id LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list villages: %w", err)
	}
	defer rows.Close()

	var villages []model.Village
	for rows.Next() {
		v, err := scanVillage(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan village: %w", err)
		}
		villages = append(villages, *v)
	}
	return villages, total, rows.Err()
}
