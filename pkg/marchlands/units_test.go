package marchlands

import "testing"

func TestUnitsArithmetic(t *testing.T) {
	a := Units{Archer: 3, Swordsman: 2}
	b := Units{Archer: 1, Knight: 4}

	sum := a.Plus(b)
	if sum.Archer != 4 || sum.Swordsman != 2 || sum.Knight != 4 {
		t.Errorf("Plus = %+v", sum)
	}

	diff := a.Minus(b)
	if diff.Archer != 2 || diff.Swordsman != 2 || diff.Knight != 0 {
		t.Errorf("Minus should clamp at zero, got %+v", diff)
	}

	if sum.Total() != 10 {
		t.Errorf("Total = %d, want 10", sum.Total())
	}
	if !(Units{}).IsZero() {
		t.Error("empty Units should be zero")
	}
}

func TestUnitsCountSet(t *testing.T) {
	var u Units
	for _, k := range UnitKinds() {
		u.Set(k, 7)
		if u.Count(k) != 7 {
			t.Errorf("Count(%s) = %d after Set", k, u.Count(k))
		}
	}
	u.Add(Archer, 3)
	if u.Archer != 10 {
		t.Errorf("Add: archer = %d, want 10", u.Archer)
	}
}

func TestUnitsPopulation(t *testing.T) {
	u := Units{Archer: 10, Nobleman: 1}
	if got := u.Population(); got != 110 {
		t.Errorf("Population = %d, want 110", got)
	}
}

func TestUnitsLootCapacity(t *testing.T) {
	u := Units{Archer: 13, Swordsman: 13, Knight: 4, Skirmisher: 4}
	if got := u.LootCapacity(); got != 655 {
		t.Errorf("LootCapacity = %d, want 655", got)
	}
	if got := (Units{Nobleman: 5}).LootCapacity(); got != 0 {
		t.Errorf("noblemen carry no loot, got %d", got)
	}
}

func TestSlowestSpeedMS(t *testing.T) {
	if got := (Units{Archer: 5}).SlowestSpeedMS(1.0); got != 1080000 {
		t.Errorf("archer speed = %d, want 1080000", got)
	}
	if got := (Units{Archer: 5, Swordsman: 1}).SlowestSpeedMS(1.0); got != 1200000 {
		t.Errorf("mixed speed = %d, want 1200000 (swordsman paces)", got)
	}
	if got := (Units{}).SlowestSpeedMS(1.0); got != 0 {
		t.Errorf("empty speed = %d, want 0", got)
	}
	if got := (Units{Archer: 5}).SlowestSpeedMS(2.0); got != 540000 {
		t.Errorf("archer at double speed = %d, want 540000", got)
	}
}

func TestDistance(t *testing.T) {
	if got := Distance(0, 0, 3, 4); got != 5.0 {
		t.Errorf("Distance = %v, want 5", got)
	}
	if got := Distance(10, 10, 10, 10); got != 0 {
		t.Errorf("Distance to self = %v, want 0", got)
	}
}

func TestTravelTimeMS(t *testing.T) {
	u := Units{Archer: 10}
	if got := u.TravelTimeMS(2.0, 1.0); got != 2160000 {
		t.Errorf("TravelTimeMS = %d, want 2160000", got)
	}
}

func TestValidUnitKind(t *testing.T) {
	if !ValidUnitKind("nobleman") {
		t.Error("nobleman should be valid")
	}
	if ValidUnitKind("dragon") {
		t.Error("dragon should not be valid")
	}
}
