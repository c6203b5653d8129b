package model

import (
	"encoding/json"
	"time"

	"github.com/freeeve/marchlands/pkg/marchlands"
)

// Player represents a game participant. Accounts and credentials live
// in a separate system; the core only needs identity and privileges.
type Player struct {
	ID         string    `json:"id"`
	Provider   string    `json:"-"`
	ProviderID string    `json:"-"`
	Username   string    `json:"username"`
	Superuser  bool      `json:"superuser,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Village is the aggregate root of the simulation. A nil PlayerID marks
// a barbarian village.
type Village struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	X        int     `json:"x"`
	Y        int     `json:"y"`
	PlayerID *string `json:"player_id,omitempty"`

	HeadquartersLvl int `json:"headquarters_lvl"`
	WoodcutterLvl   int `json:"woodcutter_lvl"`
	ClayPitLvl      int `json:"clay_pit_lvl"`
	IronMineLvl     int `json:"iron_mine_lvl"`
	FarmLvl         int `json:"farm_lvl"`
	StorageLvl      int `json:"storage_lvl"`
	BarracksLvl     int `json:"barracks_lvl"`

	Units marchlands.Units `json:"units"`

	Wood int `json:"wood"`
	Clay int `json:"clay"`
	Iron int `json:"iron"`

	LastWoodUpdate time.Time `json:"last_wood_update"`
	LastClayUpdate time.Time `json:"last_clay_update"`
	LastIronUpdate time.Time `json:"last_iron_update"`

	Loyalty   float64   `json:"loyalty"`
	CreatedAt time.Time `json:"created_at"`
}

// VillagePublic is the map view of a village: position and ownership
// only, no stocks or garrison.
type VillagePublic struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	PlayerID  *string   `json:"player_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Public returns the externally visible view of the village.
func (v *Village) Public() VillagePublic {
	return VillagePublic{
		ID:        v.ID,
		Name:      v.Name,
		X:         v.X,
		Y:         v.Y,
		PlayerID:  v.PlayerID,
		CreatedAt: v.CreatedAt,
	}
}

// BuildingLevel returns the level of the given building kind.
func (v *Village) BuildingLevel(kind marchlands.BuildingKind) int {
	switch kind {
	case marchlands.Headquarters:
		return v.HeadquartersLvl
	case marchlands.Woodcutter:
		return v.WoodcutterLvl
	case marchlands.ClayPit:
		return v.ClayPitLvl
	case marchlands.IronMine:
		return v.IronMineLvl
	case marchlands.Farm:
		return v.FarmLvl
	case marchlands.Storage:
		return v.StorageLvl
	case marchlands.Barracks:
		return v.BarracksLvl
	}
	return 0
}

// SetBuildingLevel overwrites the level of the given building kind.
func (v *Village) SetBuildingLevel(kind marchlands.BuildingKind, level int) {
	switch kind {
	case marchlands.Headquarters:
		v.HeadquartersLvl = level
	case marchlands.Woodcutter:
		v.WoodcutterLvl = level
	case marchlands.ClayPit:
		v.ClayPitLvl = level
	case marchlands.IronMine:
		v.IronMineLvl = level
	case marchlands.Farm:
		v.FarmLvl = level
	case marchlands.Storage:
		v.StorageLvl = level
	case marchlands.Barracks:
		v.BarracksLvl = level
	}
}

// Resource returns the stock for a resource name ("wood", "clay", "iron").
func (v *Village) Resource(name string) int {
	switch name {
	case "wood":
		return v.Wood
	case "clay":
		return v.Clay
	case "iron":
		return v.Iron
	}
	return 0
}

// SetResource overwrites the stock for a resource name.
func (v *Village) SetResource(name string, amount int) {
	switch name {
	case "wood":
		v.Wood = amount
	case "clay":
		v.Clay = amount
	case "iron":
		v.Iron = amount
	}
}

// OwnedBy reports whether the village belongs to the given player.
func (v *Village) OwnedBy(playerID string) bool {
	return v.PlayerID != nil && *v.PlayerID == playerID
}

// BuildingEvent is a queued building upgrade. CompleteAt is nil while
// the event waits behind another one; at most one open event per
// village carries a completion time.
type BuildingEvent struct {
	ID         int64                   `json:"id"`
	VillageID  int64                   `json:"village_id"`
	Kind       marchlands.BuildingKind `json:"building_kind"`
	CreatedAt  time.Time               `json:"created_at"`
	CompleteAt *time.Time              `json:"complete_at,omitempty"`
	Completed  bool                    `json:"completed"`
}

// UnitTrainingEvent is a queued batch of unit training. Count shrinks
// as units finish one at a time; the row is deleted at zero.
type UnitTrainingEvent struct {
	ID         int64               `json:"id"`
	VillageID  int64               `json:"village_id"`
	Kind       marchlands.UnitKind `json:"unit_kind"`
	Count      int                 `json:"count"`
	CreatedAt  time.Time           `json:"created_at"`
	CompleteAt *time.Time          `json:"complete_at,omitempty"`
	Completed  bool                `json:"completed"`
}

// UnitMovement is a troop transfer between two villages. Exactly one of
// the three flags is set. ReturnAt is nil until the movement turns
// around; a completed movement is terminal.
type UnitMovement struct {
	ID              int64            `json:"id"`
	VillageID       int64            `json:"village_id"` // origin
	TargetVillageID int64            `json:"target_village_id"`
	CreatedAt       time.Time        `json:"created_at"`
	ArrivalAt       time.Time        `json:"arrival_at"`
	ReturnAt        *time.Time       `json:"return_at,omitempty"`
	Completed       bool             `json:"completed"`
	Units           marchlands.Units `json:"units"`
	ReturnWood      int              `json:"return_wood"`
	ReturnClay      int              `json:"return_clay"`
	ReturnIron      int              `json:"return_iron"`
	IsAttack        bool             `json:"is_attack"`
	IsSupport       bool             `json:"is_support"`
	IsSpy           bool             `json:"is_spy"`
}

// BattleMessage is an append-only inbox entry carrying a battle report.
type BattleMessage struct {
	ID           int64           `json:"id"`
	FromPlayerID *string         `json:"from_player_id,omitempty"`
	ToPlayerID   string          `json:"to_player_id"`
	Message      string          `json:"message"`
	BattleData   json.RawMessage `json:"battle_data,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	Displayed    bool            `json:"displayed"`
}
