package marchlands

import "math"

// UnitKind identifies a unit type.
type UnitKind string

const (
	Archer     UnitKind = "archer"
	Swordsman  UnitKind = "swordsman"
	Knight     UnitKind = "knight"
	Skirmisher UnitKind = "skirmisher"
	Nobleman   UnitKind = "nobleman"
)

// UnitClass groups units for combat resolution.
type UnitClass string

const (
	ClassMelee  UnitClass = "melee"
	ClassRanged UnitClass = "ranged"
	ClassSpy    UnitClass = "spy"
)

type unitStats struct {
	Class           UnitClass
	Wood            int
	Clay            int
	Iron            int
	BaseTrainTimeMS int
	Attack          int
	DefenseMelee    int
	DefenseRanged   int
	SpeedMSPerTile  int // milliseconds per tile, before game speed
	LootCapacity    int
	Population      int
}

var unitTable = map[UnitKind]unitStats{
	Archer: {
		Class: ClassRanged, Wood: 75, Clay: 30, Iron: 45,
		BaseTrainTimeMS: int(6.5 * 60 * 1000), Attack: 23,
		DefenseMelee: 8, DefenseRanged: 7,
		SpeedMSPerTile: 18 * 60 * 1000, LootCapacity: 15, Population: 1,
	},
	Swordsman: {
		Class: ClassMelee, Wood: 45, Clay: 35, Iron: 65,
		BaseTrainTimeMS: 6 * 60 * 1000, Attack: 20,
		DefenseMelee: 9, DefenseRanged: 8,
		SpeedMSPerTile: 20 * 60 * 1000, LootCapacity: 20, Population: 1,
	},
	Knight: {
		Class: ClassMelee, Wood: 35, Clay: 35, Iron: 75,
		BaseTrainTimeMS: int(6.8 * 60 * 1000), Attack: 10,
		DefenseMelee: 28, DefenseRanged: 13,
		SpeedMSPerTile: 20 * 60 * 1000, LootCapacity: 25, Population: 1,
	},
	Skirmisher: {
		Class: ClassMelee, Wood: 75, Clay: 30, Iron: 40,
		BaseTrainTimeMS: int(6.2 * 60 * 1000), Attack: 8,
		DefenseMelee: 10, DefenseRanged: 30,
		SpeedMSPerTile: 18 * 60 * 1000, LootCapacity: 25, Population: 1,
	},
	Nobleman: {
		Class: ClassMelee, Wood: 50000, Clay: 50000, Iron: 50000,
		BaseTrainTimeMS: 60 * 60 * 1000, Attack: 50,
		DefenseMelee: 50, DefenseRanged: 50,
		SpeedMSPerTile: 30 * 60 * 1000, LootCapacity: 0, Population: 100,
	},
}

// UnitKinds lists all unit kinds in a stable order.
func UnitKinds() []UnitKind {
	return []UnitKind{Archer, Swordsman, Knight, Skirmisher, Nobleman}
}

// ValidUnitKind reports whether s names a known unit kind.
func ValidUnitKind(s string) bool {
	_, ok := unitTable[UnitKind(s)]
	return ok
}

// UnitClassOf returns the combat class of a unit kind.
func UnitClassOf(kind UnitKind) UnitClass { return unitTable[kind].Class }

// UnitCost returns the per-unit resource cost.
func UnitCost(kind UnitKind) (wood, clay, iron int) {
	st := unitTable[kind]
	return st.Wood, st.Clay, st.Iron
}

// UnitAttack returns the attack value of a unit kind.
func UnitAttack(kind UnitKind) int { return unitTable[kind].Attack }

// UnitDefense returns the melee and ranged defense values of a unit kind.
func UnitDefense(kind UnitKind) (melee, ranged int) {
	st := unitTable[kind]
	return st.DefenseMelee, st.DefenseRanged
}

// UnitPopulation returns the population one unit of this kind consumes.
func UnitPopulation(kind UnitKind) int { return unitTable[kind].Population }

// UnitLootCapacity returns the resources one unit of this kind can carry.
func UnitLootCapacity(kind UnitKind) int { return unitTable[kind].LootCapacity }

// UnitSpeedMS returns the travel time per tile in milliseconds,
// adjusted by game speed.
func UnitSpeedMS(kind UnitKind, gameSpeed float64) int64 {
	return int64(float64(unitTable[kind].SpeedMSPerTile) / gameSpeed)
}

// Units holds a count for every unit kind.
type Units struct {
	Archer     int `json:"archer"`
	Swordsman  int `json:"swordsman"`
	Knight     int `json:"knight"`
	Skirmisher int `json:"skirmisher"`
	Nobleman   int `json:"nobleman"`
}

// Count returns the count for a unit kind.
func (u Units) Count(kind UnitKind) int {
	switch kind {
	case Archer:
		return u.Archer
	case Swordsman:
		return u.Swordsman
	case Knight:
		return u.Knight
	case Skirmisher:
		return u.Skirmisher
	case Nobleman:
		return u.Nobleman
	}
	return 0
}

// Set overwrites the count for a unit kind.
func (u *Units) Set(kind UnitKind, n int) {
	switch kind {
	case Archer:
		u.Archer = n
	case Swordsman:
		u.Swordsman = n
	case Knight:
		u.Knight = n
	case Skirmisher:
		u.Skirmisher = n
	case Nobleman:
		u.Nobleman = n
	}
}

// Add increments the count for a unit kind.
func (u *Units) Add(kind UnitKind, n int) { u.Set(kind, u.Count(kind)+n) }

// Plus returns the element-wise sum of two unit sets.
func (u Units) Plus(v Units) Units {
	return Units{
		Archer:     u.Archer + v.Archer,
		Swordsman:  u.Swordsman + v.Swordsman,
		Knight:     u.Knight + v.Knight,
		Skirmisher: u.Skirmisher + v.Skirmisher,
		Nobleman:   u.Nobleman + v.Nobleman,
	}
}

// Minus returns the element-wise difference, clamped at zero.
func (u Units) Minus(v Units) Units {
	var out Units
	for _, k := range UnitKinds() {
		n := u.Count(k) - v.Count(k)
		if n < 0 {
			n = 0
		}
		out.Set(k, n)
	}
	return out
}

// Total returns the total unit count.
func (u Units) Total() int {
	return u.Archer + u.Swordsman + u.Knight + u.Skirmisher + u.Nobleman
}

// IsZero reports whether no units are present.
func (u Units) IsZero() bool { return u.Total() == 0 }

// Population returns the population the units consume.
func (u Units) Population() int {
	total := 0
	for _, k := range UnitKinds() {
		total += u.Count(k) * UnitPopulation(k)
	}
	return total
}

// LootCapacity returns the total resources the units can carry.
func (u Units) LootCapacity() int {
	total := 0
	for _, k := range UnitKinds() {
		total += u.Count(k) * UnitLootCapacity(k)
	}
	return total
}

// SlowestSpeedMS returns the per-tile travel time of the slowest unit
// present, adjusted by game speed. Zero when no units are present.
func (u Units) SlowestSpeedMS(gameSpeed float64) int64 {
	var slowest int64
	for _, k := range UnitKinds() {
		if u.Count(k) > 0 {
			if s := UnitSpeedMS(k, gameSpeed); s > slowest {
				slowest = s
			}
		}
	}
	return slowest
}

// Distance returns the Euclidean distance between two map coordinates.
func Distance(x1, y1, x2, y2 int) float64 {
	dx := float64(x1 - x2)
	dy := float64(y1 - y2)
	return math.Sqrt(dx*dx + dy*dy)
}

// TravelTimeMS returns how long the units take to cover the given
// distance, paced by the slowest unit present.
func (u Units) TravelTimeMS(distance float64, gameSpeed float64) int64 {
	return int64(float64(u.SlowestSpeedMS(gameSpeed)) * distance)
}
