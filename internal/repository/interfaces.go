package repository

import (
	"context"
	"time"

	"github.com/freeeve/marchlands/internal/model"
)

// MovementKind filters movement queries.
type MovementKind string

const (
	MovementAttack  MovementKind = "attack"
	MovementSupport MovementKind = "support"
	MovementSpy     MovementKind = "spy"
)

// VillageWindow bounds a map listing query. Nil limits are open.
type VillageWindow struct {
	XMin, YMin *int
	XMax, YMax *int
	Offset     int
	Limit      int
}

// Store opens transactions against the authoritative game state.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a transaction over the game state. The village row is the unit
// of locking: GetVillageForUpdate takes an exclusive row lock held until
// commit or rollback. Find-style methods return (nil, nil) when the row
// does not exist.
type Tx interface {
	Commit() error
	Rollback() error

	GetVillage(ctx context.Context, id int64) (*model.Village, error)
	GetVillageForUpdate(ctx context.Context, id int64) (*model.Village, error)
	UpdateVillage(ctx context.Context, v *model.Village) error
	CreateVillage(ctx context.Context, v *model.Village) error
	ListVillages(ctx context.Context, w VillageWindow) ([]model.Village, int, error)

	ListOpenBuildingEvents(ctx context.Context, villageID int64, forUpdate bool) ([]model.BuildingEvent, error)
	CreateBuildingEvent(ctx context.Context, ev *model.BuildingEvent) error
	UpdateBuildingEvent(ctx context.Context, ev *model.BuildingEvent) error

	ListOpenTrainingEvents(ctx context.Context, villageID int64, forUpdate bool) ([]model.UnitTrainingEvent, error)
	CreateTrainingEvent(ctx context.Context, ev *model.UnitTrainingEvent) error
	UpdateTrainingEvent(ctx context.Context, ev *model.UnitTrainingEvent) error
	DeleteTrainingEvent(ctx context.Context, id int64) error

	GetMovement(ctx context.Context, id int64) (*model.UnitMovement, error)
	CreateMovement(ctx context.Context, m *model.UnitMovement) error
	UpdateMovement(ctx context.Context, m *model.UnitMovement) error
	// ListMovements returns all uncompleted movements touching a
	// village, incoming and outgoing.
	ListMovements(ctx context.Context, villageID int64) ([]model.UnitMovement, error)
	// ListOutboundMovements returns a village's own uncompleted movements.
	ListOutboundMovements(ctx context.Context, villageID int64) ([]model.UnitMovement, error)
	// ListReturningMovements returns outbound movements due back home.
	ListReturningMovements(ctx context.Context, villageID int64, upto time.Time) ([]model.UnitMovement, error)
	// ListRipeMovements returns uncompleted, non-returning movements of
	// the given kind that have arrived at the target, in creation order.
	ListRipeMovements(ctx context.Context, targetID int64, kind MovementKind, now time.Time) ([]model.UnitMovement, error)
	// ListRipeAttackTargets returns the distinct targets of ripe attacks.
	ListRipeAttackTargets(ctx context.Context, now time.Time) ([]int64, error)

	GetPlayer(ctx context.Context, id string) (*model.Player, error)
	// UpsertPlayer creates or refreshes a player row keyed by the
	// identity provider pair.
	UpsertPlayer(ctx context.Context, provider, providerID, username string) (*model.Player, error)

	CreateBattleMessage(ctx context.Context, msg *model.BattleMessage) error
	ListBattleMessages(ctx context.Context, playerID string, limit int) ([]model.BattleMessage, error)
	MarkBattleMessageDisplayed(ctx context.Context, id int64, playerID string) error
}
