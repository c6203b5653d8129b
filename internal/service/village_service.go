package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/marchlands/internal/model"
	"github.com/freeeve/marchlands/internal/repository"
	"github.com/freeeve/marchlands/pkg/marchlands"
)

// BuildingInfo describes one building kind's upgrade from the current level.
type BuildingInfo struct {
	Kind            marchlands.BuildingKind `json:"building_kind"`
	CurrentLevel    int                     `json:"current_level"`
	MaxLevel        int                     `json:"max_level"`
	MaxLevelReached bool                    `json:"max_level_reached"`
	WoodCost        int                     `json:"wood_cost"`
	ClayCost        int                     `json:"clay_cost"`
	IronCost        int                     `json:"iron_cost"`
	BuildTimeMS     int64                   `json:"build_time_ms"`
	Population      int                     `json:"population"`
}

// UnitInfo describes one unit kind's training cost and stats.
type UnitInfo struct {
	Kind           marchlands.UnitKind `json:"unit_kind"`
	WoodCost       int                 `json:"wood_cost"`
	ClayCost       int                 `json:"clay_cost"`
	IronCost       int                 `json:"iron_cost"`
	TrainingTimeMS int64               `json:"training_time_ms"`
	Population     int                 `json:"population"`
	Attack         int                 `json:"attack"`
	DefenseMelee   int                 `json:"defense_melee"`
	DefenseRanged  int                 `json:"defense_ranged"`
	LootCapacity   int                 `json:"loot_capacity"`
	SpeedMS        int64               `json:"speed_ms"`
	CanTrain       bool                `json:"can_train"`
}

// VillageService handles village reads and the operation gateway for
// builds and training.
type VillageService struct {
	store     repository.Store
	clock     Clock
	gameSpeed float64
}

// NewVillageService creates a VillageService.
func NewVillageService(store repository.Store, clock Clock, gameSpeed float64) *VillageService {
	return &VillageService{store: store, clock: clock, gameSpeed: gameSpeed}
}

// GetVillagePublic returns public village information by ID.
func (s *VillageService) GetVillagePublic(ctx context.Context, villageID int64) (*model.VillagePublic, error) {
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
	pub := v.Public()
	return &pub, tx.Commit()
}

// ListVillages returns the public view of villages inside a coordinate
// window plus the total matching count.
func (s *VillageService) ListVillages(ctx context.Context, w repository.VillageWindow) ([]model.VillagePublic, int, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback()

	villages, total, err := tx.ListVillages(ctx, w)
	if err != nil {
		return nil, 0, err
	}
	public := make([]model.VillagePublic, len(villages))
	for i := range villages {
		public[i] = villages[i].Public()
	}
	return public, total, tx.Commit()
}

// GetVillagePrivate returns the owner's view of a village, advanced to now.
func (s *VillageService) GetVillagePrivate(ctx context.Context, villageID int64, playerID string) (*model.Village, error) {
	now := s.clock.Now()

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	v, err := s.lockOwnedVillage(ctx, tx, villageID, playerID)
	if err != nil {
		return nil, err
	}
	if err := advanceVillage(ctx, tx, v, now, s.gameSpeed); err != nil {
		return nil, err
	}
	if err := tx.UpdateVillage(ctx, v); err != nil {
		return nil, err
	}
	return v, tx.Commit()
}

// RenameVillage updates the village name.
func (s *VillageService) RenameVillage(ctx context.Context, villageID int64, playerID, name string) (*model.Village, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	v, err := s.lockOwnedVillage(ctx, tx, villageID, playerID)
	if err != nil {
		return nil, err
	}
	v.Name = name
	if err := tx.UpdateVillage(ctx, v); err != nil {
		return nil, err
	}
	return v, tx.Commit()
}

// ScheduleBuild queues a building upgrade. Resources are deducted up
// front; the completion time is assigned by the advance pass when the
// event reaches the head of the queue.
func (s *VillageService) ScheduleBuild(ctx context.Context, villageID int64, playerID string, kind marchlands.BuildingKind) (*model.BuildingEvent, error) {
	if !marchlands.ValidBuildingKind(string(kind)) {
		return nil, ErrUnknownBuilding
	}
	now := s.clock.Now()

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	v, err := s.lockOwnedVillage(ctx, tx, villageID, playerID)
	if err != nil {
		return nil, err
	}
	if err := advanceVillage(ctx, tx, v, now, s.gameSpeed); err != nil {
		return nil, err
	}

	open, err := tx.ListOpenBuildingEvents(ctx, villageID, true)
	if err != nil {
		return nil, err
	}
	if len(open) >= MaxBuildQueue {
		return nil, ErrQueueFull
	}

	level := v.BuildingLevel(kind)
	if level >= marchlands.MaxBuildingLevel {
		return nil, ErrMaxLevelReached
	}

	// Farm upgrades are exempt: the farm is what raises the cap.
	if kind != marchlands.Farm {
		popDelta := marchlands.BuildingPopulation(kind, level+1) - marchlands.BuildingPopulation(kind, level)
		if currentPopulation(v)+popDelta > marchlands.MaxPopulation(v.FarmLvl) {
			return nil, ErrInsufficientPopulation
		}
	}

	wood, clay, iron := marchlands.BuildingCost(kind, level)
	if v.Wood < wood || v.Clay < clay || v.Iron < iron {
		return nil, ErrInsufficientResources
	}
	v.Wood -= wood
	v.Clay -= clay
	v.Iron -= iron

	ev := &model.BuildingEvent{VillageID: villageID, Kind: kind}
	if err := tx.CreateBuildingEvent(ctx, ev); err != nil {
		return nil, err
	}

	// Assigns complete_at to the new event if nothing else is in flight.
	if err := advanceVillage(ctx, tx, v, now, s.gameSpeed); err != nil {
		return nil, err
	}
	if err := tx.UpdateVillage(ctx, v); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Info().Int64("villageId", villageID).Str("building", string(kind)).
		Int("level", level+1).Msg("Building upgrade scheduled")
	return s.refreshBuildingEvent(ctx, ev)
}

// BuildingQueue returns the village's open building events.
func (s *VillageService) BuildingQueue(ctx context.Context, villageID int64, playerID string) ([]model.BuildingEvent, error) {
	now := s.clock.Now()

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	v, err := s.lockOwnedVillage(ctx, tx, villageID, playerID)
	if err != nil {
		return nil, err
	}
	if err := advanceVillage(ctx, tx, v, now, s.gameSpeed); err != nil {
		return nil, err
	}
	if err := tx.UpdateVillage(ctx, v); err != nil {
		return nil, err
	}
	events, err := tx.ListOpenBuildingEvents(ctx, villageID, false)
	if err != nil {
		return nil, err
	}
	return events, tx.Commit()
}

// ScheduleTrain queues a batch of unit training.
func (s *VillageService) ScheduleTrain(ctx context.Context, villageID int64, playerID string, kind marchlands.UnitKind, count int) (*model.UnitTrainingEvent, error) {
	if !marchlands.ValidUnitKind(string(kind)) {
		return nil, ErrUnknownUnit
	}
	if count <= 0 {
		return nil, ErrInvalidCount
	}
	now := s.clock.Now()

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	v, err := s.lockOwnedVillage(ctx, tx, villageID, playerID)
	if err != nil {
		return nil, err
	}
	if err := advanceVillage(ctx, tx, v, now, s.gameSpeed); err != nil {
		return nil, err
	}

	if v.BarracksLvl < 1 {
		return nil, ErrBarracksRequired
	}

	open, err := tx.ListOpenTrainingEvents(ctx, villageID, true)
	if err != nil {
		return nil, err
	}
	queued := 0
	queuedPop := 0
	for _, ev := range open {
		queued += ev.Count
		queuedPop += ev.Count * marchlands.UnitPopulation(ev.Kind)
	}
	if queued+count > marchlands.BarracksQueueCapacity(v.BarracksLvl) {
		return nil, ErrQueueFull
	}

	unitPop := marchlands.UnitPopulation(kind)
	if currentPopulation(v)+count*unitPop+queuedPop > marchlands.MaxPopulation(v.FarmLvl) {
		return nil, ErrInsufficientPopulation
	}

	wood, clay, iron := marchlands.UnitCost(kind)
	if v.Wood < count*wood || v.Clay < count*clay || v.Iron < count*iron {
		return nil, ErrInsufficientResources
	}
	v.Wood -= count * wood
	v.Clay -= count * clay
	v.Iron -= count * iron

	ev := &model.UnitTrainingEvent{VillageID: villageID, Kind: kind, Count: count}
	if err := tx.CreateTrainingEvent(ctx, ev); err != nil {
		return nil, err
	}
	if err := advanceVillage(ctx, tx, v, now, s.gameSpeed); err != nil {
		return nil, err
	}
	if err := tx.UpdateVillage(ctx, v); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Info().Int64("villageId", villageID).Str("unit", string(kind)).
		Int("count", count).Msg("Unit training scheduled")
	return s.refreshTrainingEvent(ctx, ev)
}

// TrainingQueue returns the village's open training events.
func (s *VillageService) TrainingQueue(ctx context.Context, villageID int64, playerID string) ([]model.UnitTrainingEvent, error) {
	now := s.clock.Now()

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	v, err := s.lockOwnedVillage(ctx, tx, villageID, playerID)
	if err != nil {
		return nil, err
	}
	if err := advanceVillage(ctx, tx, v, now, s.gameSpeed); err != nil {
		return nil, err
	}
	if err := tx.UpdateVillage(ctx, v); err != nil {
		return nil, err
	}
	events, err := tx.ListOpenTrainingEvents(ctx, villageID, false)
	if err != nil {
		return nil, err
	}
	return events, tx.Commit()
}

// AvailableBuildings returns upgrade costs and times for every building
// kind at the village's current levels.
func (s *VillageService) AvailableBuildings(ctx context.Context, villageID int64, playerID string) ([]BuildingInfo, error) {
	v, err := s.GetVillagePrivate(ctx, villageID, playerID)
	if err != nil {
		return nil, err
	}

	var infos []BuildingInfo
	for _, kind := range marchlands.BuildingKinds() {
		level := v.BuildingLevel(kind)
		maxed := level >= marchlands.MaxBuildingLevel
		info := BuildingInfo{
			Kind:            kind,
			CurrentLevel:    level,
			MaxLevel:        marchlands.MaxBuildingLevel,
			MaxLevelReached: maxed,
			Population:      marchlands.BuildingPopulation(kind, level+1),
		}
		if !maxed {
			info.WoodCost, info.ClayCost, info.IronCost = marchlands.BuildingCost(kind, level)
			info.BuildTimeMS = marchlands.BuildTimeMS(kind, level, s.gameSpeed)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// AvailableUnits returns training costs, times and stats for every unit
// kind. Training times are zero while the village has no barracks.
func (s *VillageService) AvailableUnits(ctx context.Context, villageID int64, playerID string) ([]UnitInfo, error) {
	v, err := s.GetVillagePrivate(ctx, villageID, playerID)
	if err != nil {
		return nil, err
	}

	canTrain := v.BarracksLvl > 0
	var infos []UnitInfo
	for _, kind := range marchlands.UnitKinds() {
		wood, clay, iron := marchlands.UnitCost(kind)
		info := UnitInfo{
			Kind:         kind,
			WoodCost:     wood,
			ClayCost:     clay,
			IronCost:     iron,
			Population:   marchlands.UnitPopulation(kind),
			Attack:       marchlands.UnitAttack(kind),
			LootCapacity: marchlands.UnitLootCapacity(kind),
			SpeedMS:      marchlands.UnitSpeedMS(kind, s.gameSpeed),
			CanTrain:     canTrain,
		}
		info.DefenseMelee, info.DefenseRanged = marchlands.UnitDefense(kind)
		if canTrain {
			info.TrainingTimeMS = marchlands.TrainingTimeMS(kind, v.BarracksLvl, s.gameSpeed)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// lockOwnedVillage loads a village under its row lock and verifies
// ownership.
func (s *VillageService) lockOwnedVillage(ctx context.Context, tx repository.Tx, villageID int64, playerID string) (*model.Village, error) {
	v, err := tx.GetVillageForUpdate(ctx, villageID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrVillageNotFound
	}
	if !v.OwnedBy(playerID) {
		return nil, ErrForbidden
	}
	return v, nil
}

// refreshBuildingEvent re-reads an event after commit so the response
// carries the completion time the advance pass assigned.
func (s *VillageService) refreshBuildingEvent(ctx context.Context, ev *model.BuildingEvent) (*model.BuildingEvent, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return ev, nil
	}
	defer tx.Rollback()
	events, err := tx.ListOpenBuildingEvents(ctx, ev.VillageID, false)
	if err != nil {
		return ev, nil
	}
	for i := range events {
		if events[i].ID == ev.ID {
			return &events[i], nil
		}
	}
	return ev, nil
}

func (s *VillageService) refreshTrainingEvent(ctx context.Context, ev *model.UnitTrainingEvent) (*model.UnitTrainingEvent, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return ev, nil
	}
	defer tx.Rollback()
	events, err := tx.ListOpenTrainingEvents(ctx, ev.VillageID, false)
	if err != nil {
		return ev, nil
	}
	for i := range events {
		if events[i].ID == ev.ID {
			return &events[i], nil
		}
	}
	return ev, nil
}

// MaxBuildQueue caps uncompleted building events per village.
const MaxBuildQueue = 2
