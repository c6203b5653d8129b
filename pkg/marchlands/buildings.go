// Package marchlands implements the game rules: building and unit
// catalogues, per-level formulas, and deterministic battle resolution.
// The package is pure — no clock, no store, no randomness beyond the
// luck value passed in by the caller.
package marchlands

import "math"

// BuildingKind identifies a building type.
type BuildingKind string

const (
	Headquarters BuildingKind = "headquarters"
	Woodcutter   BuildingKind = "woodcutter"
	ClayPit      BuildingKind = "clay_pit"
	IronMine     BuildingKind = "iron_mine"
	Farm         BuildingKind = "farm"
	Storage      BuildingKind = "storage"
	Barracks     BuildingKind = "barracks"
)

// MaxBuildingLevel applies to every building kind.
const MaxBuildingLevel = 30

const (
	costLevelMultiplier       = 1.25 // cost and build time per level
	popLevelMultiplier        = 1.17 // population usage per level
	productionMultiplier      = 1.17 // resource production per level
	baseProductionPerHour     = 30.0
	baseMaxPopulation         = 260
	baseStorageCapacity       = 1200
	storageCapacityMultiplier = 1.24
	speedFactorPerLevel       = 0.025 // headquarters/barracks reduction per level
	maxSpeedReduction         = 0.95  // factor floor 0.05
	barracksQueueBase         = 10
)

type buildingStats struct {
	BaseWood        int
	BaseClay        int
	BaseIron        int
	BaseBuildTimeMS int
	BasePopulation  int
}

var buildingTable = map[BuildingKind]buildingStats{
	Headquarters: {BaseWood: 95, BaseClay: 85, BaseIron: 75, BaseBuildTimeMS: 5 * 60 * 1000, BasePopulation: 5},
	Woodcutter:   {BaseWood: 60, BaseClay: 60, BaseIron: 45, BaseBuildTimeMS: 4 * 60 * 1000, BasePopulation: 3},
	ClayPit:      {BaseWood: 70, BaseClay: 50, BaseIron: 45, BaseBuildTimeMS: 4 * 60 * 1000, BasePopulation: 3},
	IronMine:     {BaseWood: 65, BaseClay: 60, BaseIron: 40, BaseBuildTimeMS: 5 * 60 * 1000, BasePopulation: 3},
	Farm:         {BaseWood: 45, BaseClay: 55, BaseIron: 35, BaseBuildTimeMS: 5 * 60 * 1000, BasePopulation: 0},
	Storage:      {BaseWood: 55, BaseClay: 65, BaseIron: 45, BaseBuildTimeMS: 4 * 60 * 1000, BasePopulation: 2},
	Barracks:     {BaseWood: 55, BaseClay: 65, BaseIron: 50, BaseBuildTimeMS: 6 * 60 * 1000, BasePopulation: 4},
}

// BuildingKinds lists all building kinds in a stable order.
func BuildingKinds() []BuildingKind {
	return []BuildingKind{Headquarters, Woodcutter, ClayPit, IronMine, Farm, Storage, Barracks}
}

// ValidBuildingKind reports whether s names a known building kind.
func ValidBuildingKind(s string) bool {
	_, ok := buildingTable[BuildingKind(s)]
	return ok
}

// BuildingCost returns the resource cost to upgrade kind from the given
// level to the next one.
func BuildingCost(kind BuildingKind, level int) (wood, clay, iron int) {
	st := buildingTable[kind]
	mult := math.Pow(costLevelMultiplier, float64(level))
	return int(float64(st.BaseWood) * mult), int(float64(st.BaseClay) * mult), int(float64(st.BaseIron) * mult)
}

// BuildTimeMS returns the time in milliseconds to upgrade kind from the
// given level, before any headquarters reduction. Game speed divides the
// base time before the per-level scaling, matching the cost formula.
func BuildTimeMS(kind BuildingKind, level int, gameSpeed float64) int64 {
	st := buildingTable[kind]
	base := int64(float64(st.BaseBuildTimeMS) / gameSpeed)
	return int64(float64(base) * math.Pow(costLevelMultiplier, float64(level)))
}

// BuildingPopulation returns the population a building consumes at the
// given level. Level 0 buildings consume nothing.
func BuildingPopulation(kind BuildingKind, level int) int {
	if level <= 0 {
		return 0
	}
	st := buildingTable[kind]
	return int(float64(st.BasePopulation) * math.Pow(popLevelMultiplier, float64(level-1)))
}

// ProductionRatePerHour returns the hourly resource output of a
// production building at the given level. Level 0 produces nothing.
func ProductionRatePerHour(level int, gameSpeed float64) float64 {
	if level <= 0 {
		return 0
	}
	return baseProductionPerHour * gameSpeed * math.Pow(productionMultiplier, float64(level-1))
}

// ProductionIntervalMS returns the milliseconds needed to produce one
// resource at the given level, or 0 when the building produces nothing.
func ProductionIntervalMS(level int, gameSpeed float64) int64 {
	rate := ProductionRatePerHour(level, gameSpeed)
	if rate <= 0 {
		return 0
	}
	return int64(3_600_000 / rate)
}

// MaxPopulation returns the population the farm supports at the given level.
func MaxPopulation(farmLevel int) int {
	if farmLevel < 1 {
		farmLevel = 1
	}
	return int(baseMaxPopulation * math.Pow(popLevelMultiplier, float64(farmLevel-1)))
}

// StorageCapacity returns the per-resource stock cap at the given level.
func StorageCapacity(storageLevel int) int {
	if storageLevel < 1 {
		storageLevel = 1
	}
	return int(baseStorageCapacity * math.Pow(storageCapacityMultiplier, float64(storageLevel-1)))
}

// BuildTimeReductionFactor returns the headquarters build-time factor:
// 2.5% off per level starting at level 2, floored at 0.05.
func BuildTimeReductionFactor(hqLevel int) float64 {
	if hqLevel <= 1 {
		return 1.0
	}
	reduction := float64(hqLevel-1) * speedFactorPerLevel
	if reduction > maxSpeedReduction {
		reduction = maxSpeedReduction
	}
	return 1.0 - reduction
}

// TrainingSpeedFactor returns the barracks training-time factor, same
// shape as the headquarters reduction.
func TrainingSpeedFactor(barracksLevel int) float64 {
	if barracksLevel <= 0 {
		return 1.0
	}
	reduction := float64(barracksLevel-1) * speedFactorPerLevel
	if reduction > maxSpeedReduction {
		reduction = maxSpeedReduction
	}
	return 1.0 - reduction
}

// BarracksQueueCapacity returns how many units may sit in the training
// queue at the given barracks level. Undefined at level 0; training is
// disallowed there before this is consulted.
func BarracksQueueCapacity(barracksLevel int) int {
	return barracksQueueBase + (barracksLevel - 1)
}

// TrainingTimeMS returns the per-unit training duration for a unit kind
// at the given barracks level.
func TrainingTimeMS(kind UnitKind, barracksLevel int, gameSpeed float64) int64 {
	st := unitTable[kind]
	base := int64(float64(st.BaseTrainTimeMS) / gameSpeed)
	return int64(float64(base) * TrainingSpeedFactor(barracksLevel))
}
