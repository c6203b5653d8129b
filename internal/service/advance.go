package service

import (
	"context"
	"fmt"
	"time"

	"github.com/freeeve/marchlands/internal/model"
	"github.com/freeeve/marchlands/internal/repository"
	"github.com/freeeve/marchlands/pkg/marchlands"
)

// advanceVillage materialises a village's canonical state at now: trained
// units, promoted buildings, credited resources, and consumed returning
// movements. The caller must hold the village row lock; all changes to
// events and movements are persisted within the caller's transaction, the
// village itself is written back by the caller. Idempotent: advancing to
// the same or an earlier instant is a no-op.
func advanceVillage(ctx context.Context, tx repository.Tx, v *model.Village, now time.Time, gameSpeed float64) error {
	if err := sweepTraining(ctx, tx, v, now, gameSpeed); err != nil {
		return err
	}
	if err := sweepBuilds(ctx, tx, v, now, gameSpeed); err != nil {
		return err
	}
	if err := creditReturns(ctx, tx, v, now); err != nil {
		return err
	}
	tickResources(v, now, gameSpeed)
	return nil
}

// sweepTraining completes due unit training one unit at a time. Training
// duration is recomputed per unit from the current barracks level, so a
// barracks upgrade completed earlier speeds up the remainder of a batch
// from the next advance on.
func sweepTraining(ctx context.Context, tx repository.Tx, v *model.Village, now time.Time, gameSpeed float64) error {
	events, err := tx.ListOpenTrainingEvents(ctx, v.ID, true)
	if err != nil {
		return err
	}
	for len(events) > 0 {
		head := &events[0]
		if head.CompleteAt == nil {
			for i := 1; i < len(events); i++ {
				if events[i].CompleteAt != nil {
					return fmt.Errorf("village %d training queue: %w", v.ID, ErrEventAlreadyScheduled)
				}
			}
			due := now.Add(trainingDuration(head.Kind, v.BarracksLvl, gameSpeed))
			head.CompleteAt = &due
			if err := tx.UpdateTrainingEvent(ctx, head); err != nil {
				return err
			}
		}
		doneAt := *head.CompleteAt
		if doneAt.After(now) {
			return nil
		}

		v.Units.Add(head.Kind, 1)
		head.Count--
		if head.Count == 0 {
			if err := tx.DeleteTrainingEvent(ctx, head.ID); err != nil {
				return err
			}
			events = events[1:]
			if len(events) > 0 {
				next := &events[0]
				due := doneAt.Add(trainingDuration(next.Kind, v.BarracksLvl, gameSpeed))
				next.CompleteAt = &due
				if err := tx.UpdateTrainingEvent(ctx, next); err != nil {
					return err
				}
			}
		} else {
			due := doneAt.Add(trainingDuration(head.Kind, v.BarracksLvl, gameSpeed))
			head.CompleteAt = &due
			if err := tx.UpdateTrainingEvent(ctx, head); err != nil {
				return err
			}
		}
	}
	return nil
}

// sweepBuilds completes due building events in order. A resource tick
// runs up to each completion instant first so the pre-upgrade production
// rate applies to the pre-completion window.
func sweepBuilds(ctx context.Context, tx repository.Tx, v *model.Village, now time.Time, gameSpeed float64) error {
	events, err := tx.ListOpenBuildingEvents(ctx, v.ID, true)
	if err != nil {
		return err
	}
	for {
		idx := -1
		for i := range events {
			if events[i].CompleteAt != nil {
				idx = i
				break
			}
		}
		if idx == -1 {
			return scheduleNextBuild(ctx, tx, v, events, now, gameSpeed)
		}

		ev := &events[idx]
		doneAt := *ev.CompleteAt
		if doneAt.After(now) {
			return nil
		}

		tickResources(v, doneAt, gameSpeed)
		v.SetBuildingLevel(ev.Kind, v.BuildingLevel(ev.Kind)+1)
		ev.Completed = true
		if err := tx.UpdateBuildingEvent(ctx, ev); err != nil {
			return err
		}
		events = append(events[:idx], events[idx+1:]...)
		if err := scheduleNextBuild(ctx, tx, v, events, doneAt, gameSpeed); err != nil {
			return err
		}
	}
}

// scheduleNextBuild assigns a completion time to the oldest waiting
// building event, starting the clock at start. At most one open event per
// village may carry a completion time.
func scheduleNextBuild(ctx context.Context, tx repository.Tx, v *model.Village, events []model.BuildingEvent, start time.Time, gameSpeed float64) error {
	for i := range events {
		if events[i].CompleteAt != nil {
			return fmt.Errorf("village %d build queue: %w", v.ID, ErrEventAlreadyScheduled)
		}
	}
	if len(events) == 0 {
		return nil
	}
	next := &events[0]
	baseMS := marchlands.BuildTimeMS(next.Kind, v.BuildingLevel(next.Kind), gameSpeed)
	adjustedMS := int64(float64(baseMS) * marchlands.BuildTimeReductionFactor(v.HeadquartersLvl))
	due := start.Add(time.Duration(adjustedMS) * time.Millisecond)
	next.CompleteAt = &due
	return tx.UpdateBuildingEvent(ctx, next)
}

// creditReturns consumes outbound movements due back home: loot is
// credited (capped at storage) and the movement becomes terminal.
func creditReturns(ctx context.Context, tx repository.Tx, v *model.Village, now time.Time) error {
	movements, err := tx.ListReturningMovements(ctx, v.ID, now)
	if err != nil {
		return err
	}
	for i := range movements {
		m := &movements[i]
		capacity := marchlands.StorageCapacity(v.StorageLvl)
		v.Wood = minInt(v.Wood+m.ReturnWood, capacity)
		v.Clay = minInt(v.Clay+m.ReturnClay, capacity)
		v.Iron = minInt(v.Iron+m.ReturnIron, capacity)
		m.Completed = true
		if err := tx.UpdateMovement(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// tickResources credits production for each resource building up to
// until. The last-update timestamp advances by exact multiples of the
// production interval so fractional remainders are never lost.
func tickResources(v *model.Village, until time.Time, gameSpeed float64) {
	v.Wood, v.LastWoodUpdate = tickResource(v, v.WoodcutterLvl, v.Wood, v.LastWoodUpdate, until, gameSpeed)
	v.Clay, v.LastClayUpdate = tickResource(v, v.ClayPitLvl, v.Clay, v.LastClayUpdate, until, gameSpeed)
	v.Iron, v.LastIronUpdate = tickResource(v, v.IronMineLvl, v.Iron, v.LastIronUpdate, until, gameSpeed)
}

func tickResource(v *model.Village, level, stock int, lastUpdate, until time.Time, gameSpeed float64) (int, time.Time) {
	if level < 1 {
		return stock, lastUpdate
	}
	rateMS := marchlands.ProductionIntervalMS(level, gameSpeed)
	if rateMS <= 0 {
		return stock, lastUpdate
	}
	elapsedMS := until.Sub(lastUpdate).Milliseconds()
	produced := elapsedMS / rateMS
	if produced <= 0 {
		return stock, lastUpdate
	}
	stock = minInt(stock+int(produced), marchlands.StorageCapacity(v.StorageLvl))
	lastUpdate = lastUpdate.Add(time.Duration(produced*rateMS) * time.Millisecond)
	return stock, lastUpdate
}

// currentPopulation is the population used by all building levels plus
// the garrison. Units in transit are carried on the garrison counts, so
// they count too; queued training does not until units materialise.
func currentPopulation(v *model.Village) int {
	pop := 0
	for _, kind := range marchlands.BuildingKinds() {
		pop += marchlands.BuildingPopulation(kind, v.BuildingLevel(kind))
	}
	return pop + v.Units.Population()
}

// availableUnits is the garrison minus everything already marching.
func availableUnits(ctx context.Context, tx repository.Tx, v *model.Village) (marchlands.Units, error) {
	outbound, err := tx.ListOutboundMovements(ctx, v.ID)
	if err != nil {
		return marchlands.Units{}, err
	}
	avail := v.Units
	for _, m := range outbound {
		avail = avail.Minus(m.Units)
	}
	return avail, nil
}

func trainingDuration(kind marchlands.UnitKind, barracksLevel int, gameSpeed float64) time.Duration {
	return time.Duration(marchlands.TrainingTimeMS(kind, barracksLevel, gameSpeed)) * time.Millisecond
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
