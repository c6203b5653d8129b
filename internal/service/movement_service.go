package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/marchlands/internal/model"
	"github.com/freeeve/marchlands/internal/repository"
	"github.com/freeeve/marchlands/pkg/marchlands"
)

// ArrivalTimers schedules combat wake-ups for movements in flight.
// Implemented by the Redis client; a no-op suffices for tests.
type ArrivalTimers interface {
	SetArrivalTimer(ctx context.Context, movementID int64, arrival time.Time) error
}

// NoopArrivalTimers disables arrival wake-ups; the combat poller still
// catches ripe attacks.
type NoopArrivalTimers struct{}

func (NoopArrivalTimers) SetArrivalTimer(context.Context, int64, time.Time) error { return nil }

// MovementService handles troop dispatch between villages.
type MovementService struct {
	store     repository.Store
	clock     Clock
	timers    ArrivalTimers
	gameSpeed float64
}

// NewMovementService creates a MovementService.
func NewMovementService(store repository.Store, clock Clock, timers ArrivalTimers, gameSpeed float64) *MovementService {
	return &MovementService{store: store, clock: clock, timers: timers, gameSpeed: gameSpeed}
}

// SendAttack dispatches an attack from one village to another.
func (s *MovementService) SendAttack(ctx context.Context, villageID, targetID int64, playerID string, units marchlands.Units) (*model.UnitMovement, error) {
	return s.sendUnits(ctx, villageID, targetID, playerID, units, repository.MovementAttack)
}

// SendSupport dispatches supporting units to another village.
func (s *MovementService) SendSupport(ctx context.Context, villageID, targetID int64, playerID string, units marchlands.Units) (*model.UnitMovement, error) {
	return s.sendUnits(ctx, villageID, targetID, playerID, units, repository.MovementSupport)
}

// SendSpy dispatches scouts to another village. Spies travel and return
// like any movement but never join an engagement.
func (s *MovementService) SendSpy(ctx context.Context, villageID, targetID int64, playerID string, units marchlands.Units) (*model.UnitMovement, error) {
	return s.sendUnits(ctx, villageID, targetID, playerID, units, repository.MovementSpy)
}

func (s *MovementService) sendUnits(ctx context.Context, villageID, targetID int64, playerID string, units marchlands.Units, kind repository.MovementKind) (*model.UnitMovement, error) {
	if targetID == villageID {
		return nil, ErrSelfTarget
	}
	if units.IsZero() {
		return nil, ErrNoUnits
	}
	now := s.clock.Now()

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	origin, err := tx.GetVillageForUpdate(ctx, villageID)
	if err != nil {
		return nil, err
	}
	if origin == nil {
		return nil, ErrVillageNotFound
	}
	if !origin.OwnedBy(playerID) {
		return nil, ErrForbidden
	}
	if err := advanceVillage(ctx, tx, origin, now, s.gameSpeed); err != nil {
		return nil, err
	}

	target, err := tx.GetVillage(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrTargetVillageNotFound
	}

	avail, err := availableUnits(ctx, tx, origin)
	if err != nil {
		return nil, err
	}
	for _, k := range marchlands.UnitKinds() {
		if units.Count(k) > avail.Count(k) {
			return nil, ErrInsufficientUnits
		}
	}

	distance := marchlands.Distance(origin.X, origin.Y, target.X, target.Y)
	travelMS := units.TravelTimeMS(distance, s.gameSpeed)
	movement := &model.UnitMovement{
		VillageID:       villageID,
		TargetVillageID: targetID,
		ArrivalAt:       now.Add(time.Duration(travelMS) * time.Millisecond),
		Units:           units,
		IsAttack:        kind == repository.MovementAttack,
		IsSupport:       kind == repository.MovementSupport,
		IsSpy:           kind == repository.MovementSpy,
	}
	if err := tx.CreateMovement(ctx, movement); err != nil {
		return nil, err
	}
	if err := tx.UpdateVillage(ctx, origin); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if movement.IsAttack {
		if err := s.timers.SetArrivalTimer(ctx, movement.ID, movement.ArrivalAt); err != nil {
			log.Warn().Err(err).Int64("movementId", movement.ID).
				Msg("Failed to set arrival timer, poller will pick it up")
		}
	}

	log.Info().Int64("movementId", movement.ID).Int64("villageId", villageID).
		Int64("targetId", targetID).Str("kind", string(kind)).
		Time("arrivalAt", movement.ArrivalAt).Msg("Movement dispatched")
	return movement, nil
}

// CancelSupport turns a support movement around. Cancelled before
// arrival, the return leg takes as long as the time already travelled.
func (s *MovementService) CancelSupport(ctx context.Context, villageID, movementID int64, playerID string) (*model.UnitMovement, error) {
	now := s.clock.Now()

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	origin, err := tx.GetVillageForUpdate(ctx, villageID)
	if err != nil {
		return nil, err
	}
	if origin == nil {
		return nil, ErrVillageNotFound
	}
	if !origin.OwnedBy(playerID) {
		return nil, ErrForbidden
	}
	if err := advanceVillage(ctx, tx, origin, now, s.gameSpeed); err != nil {
		return nil, err
	}

	movement, err := tx.GetMovement(ctx, movementID)
	if err != nil {
		return nil, err
	}
	if movement == nil || movement.VillageID != villageID {
		return nil, ErrMovementNotFound
	}
	if !movement.IsSupport {
		return nil, ErrNotSupport
	}
	if movement.Completed {
		return nil, ErrAlreadyCompleted
	}
	if movement.ReturnAt != nil {
		return nil, ErrAlreadyReturning
	}

	var returnAt time.Time
	if now.Before(movement.ArrivalAt) {
		returnAt = now.Add(now.Sub(movement.CreatedAt))
	} else {
		target, err := tx.GetVillage(ctx, movement.TargetVillageID)
		if err != nil {
			return nil, err
		}
		if target == nil {
			return nil, ErrTargetVillageNotFound
		}
		distance := marchlands.Distance(target.X, target.Y, origin.X, origin.Y)
		travelMS := movement.Units.TravelTimeMS(distance, s.gameSpeed)
		returnAt = now.Add(time.Duration(travelMS) * time.Millisecond)
	}
	movement.ReturnAt = &returnAt
	if err := tx.UpdateMovement(ctx, movement); err != nil {
		return nil, err
	}
	if err := tx.UpdateVillage(ctx, origin); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Info().Int64("movementId", movementID).Time("returnAt", returnAt).
		Msg("Support cancelled, units returning")
	return movement, nil
}

// ListMovements returns all active movements touching a village.
func (s *MovementService) ListMovements(ctx context.Context, villageID int64, playerID string) ([]model.UnitMovement, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	v, err := tx.GetVillage(ctx, villageID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrVillageNotFound
	}
	if !v.OwnedBy(playerID) {
		return nil, ErrForbidden
	}
	movements, err := tx.ListMovements(ctx, villageID)
	if err != nil {
		return nil, err
	}
	return movements, tx.Commit()
}
