package marchlands

import "testing"

func TestBuildingCost(t *testing.T) {
	tests := []struct {
		kind             BuildingKind
		level            int
		wood, clay, iron int
	}{
		{Woodcutter, 0, 60, 60, 45},
		{Woodcutter, 1, 75, 75, 56},
		{Headquarters, 0, 95, 85, 75},
		{Headquarters, 2, 148, 132, 117},
		{Farm, 0, 45, 55, 35},
	}
	for _, tt := range tests {
		wood, clay, iron := BuildingCost(tt.kind, tt.level)
		if wood != tt.wood || clay != tt.clay || iron != tt.iron {
			t.Errorf("BuildingCost(%s, %d) = (%d, %d, %d), want (%d, %d, %d)",
				tt.kind, tt.level, wood, clay, iron, tt.wood, tt.clay, tt.iron)
		}
	}
}

func TestBuildTimeMS(t *testing.T) {
	if got := BuildTimeMS(Woodcutter, 0, 1.0); got != 240000 {
		t.Errorf("woodcutter level 0 build time = %d, want 240000", got)
	}
	if got := BuildTimeMS(Woodcutter, 1, 1.0); got != 300000 {
		t.Errorf("woodcutter level 1 build time = %d, want 300000", got)
	}
	if got := BuildTimeMS(Woodcutter, 0, 2.0); got != 120000 {
		t.Errorf("woodcutter at double speed = %d, want 120000", got)
	}
}

func TestBuildingPopulation(t *testing.T) {
	if got := BuildingPopulation(Headquarters, 0); got != 0 {
		t.Errorf("level 0 population = %d, want 0", got)
	}
	if got := BuildingPopulation(Headquarters, 1); got != 5 {
		t.Errorf("headquarters level 1 population = %d, want 5", got)
	}
	if got := BuildingPopulation(Farm, 10); got != 0 {
		t.Errorf("farm population = %d, want 0", got)
	}
}

func TestProductionIntervalMS(t *testing.T) {
	tests := []struct {
		level int
		speed float64
		want  int64
	}{
		{0, 1.0, 0},
		{1, 1.0, 120000},
		{2, 1.0, 102564},
		{1, 2.0, 60000},
	}
	for _, tt := range tests {
		if got := ProductionIntervalMS(tt.level, tt.speed); got != tt.want {
			t.Errorf("ProductionIntervalMS(%d, %v) = %d, want %d", tt.level, tt.speed, got, tt.want)
		}
	}
}

func TestStorageCapacity(t *testing.T) {
	if got := StorageCapacity(1); got != 1200 {
		t.Errorf("level 1 capacity = %d, want 1200", got)
	}
	if got := StorageCapacity(2); got != 1488 {
		t.Errorf("level 2 capacity = %d, want 1488", got)
	}
}

func TestMaxPopulation(t *testing.T) {
	if got := MaxPopulation(1); got != 260 {
		t.Errorf("level 1 max population = %d, want 260", got)
	}
	if got := MaxPopulation(5); got != 487 {
		t.Errorf("level 5 max population = %d, want 487", got)
	}
}

func TestBuildTimeReductionFactor(t *testing.T) {
	tests := []struct {
		level int
		want  float64
	}{
		{0, 1.0},
		{1, 1.0},
		{2, 0.975},
		{3, 0.95},
		{39, 0.05}, // reduction capped at 95%
		{100, 0.05},
	}
	for _, tt := range tests {
		if got := BuildTimeReductionFactor(tt.level); !closeTo(got, tt.want) {
			t.Errorf("BuildTimeReductionFactor(%d) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestTrainingSpeedFactor(t *testing.T) {
	if got := TrainingSpeedFactor(0); got != 1.0 {
		t.Errorf("level 0 factor = %v, want 1.0", got)
	}
	if got := TrainingSpeedFactor(3); !closeTo(got, 0.95) {
		t.Errorf("level 3 factor = %v, want 0.95", got)
	}
}

func TestBarracksQueueCapacity(t *testing.T) {
	if got := BarracksQueueCapacity(1); got != 10 {
		t.Errorf("level 1 queue capacity = %d, want 10", got)
	}
	if got := BarracksQueueCapacity(5); got != 14 {
		t.Errorf("level 5 queue capacity = %d, want 14", got)
	}
}

func TestTrainingTimeMS(t *testing.T) {
	if got := TrainingTimeMS(Swordsman, 1, 1.0); got != 360000 {
		t.Errorf("swordsman at barracks 1 = %d, want 360000", got)
	}
	if got := TrainingTimeMS(Swordsman, 3, 1.0); got != 342000 {
		t.Errorf("swordsman at barracks 3 = %d, want 342000", got)
	}
	if got := TrainingTimeMS(Nobleman, 1, 2.0); got != 1800000 {
		t.Errorf("nobleman at double speed = %d, want 1800000", got)
	}
}

func TestValidBuildingKind(t *testing.T) {
	if !ValidBuildingKind("woodcutter") {
		t.Error("woodcutter should be valid")
	}
	if ValidBuildingKind("castle") {
		t.Error("castle should not be valid")
	}
}
