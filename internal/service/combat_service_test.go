package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/freeeve/marchlands/internal/model"
	"github.com/freeeve/marchlands/pkg/marchlands"
)

// recordingBroadcaster captures per-player broadcast deliveries.
type recordingBroadcaster struct {
	players []string
}

func (b *recordingBroadcaster) BroadcastToPlayer(playerID string, eventType string, data any) {
	b.players = append(b.players, playerID)
}

func findMessage(t *testing.T, store *mockStore, playerID string) *model.BattleMessage {
	t.Helper()
	for _, msg := range store.messages {
		if msg.ToPlayerID == playerID {
			return msg
		}
	}
	t.Fatalf("no battle message for player %s", playerID)
	return nil
}

func decodeReport(t *testing.T, msg *model.BattleMessage) BattleReport {
	t.Helper()
	var report BattleReport
	if err := json.Unmarshal(msg.BattleData, &report); err != nil {
		t.Fatalf("decode battle data: %v", err)
	}
	return report
}

func TestProcessCombatTickLooting(t *testing.T) {
	store := newMockStore()
	origin := seedVillage(store, "alice", testT0)
	origin.Units = marchlands.Units{Archer: 15, Swordsman: 15, Knight: 5, Skirmisher: 5}
	target := seedVillage(store, "bob", testT0)
	target.X, target.Y = 3, 4
	target.Units = marchlands.Units{Archer: 5, Swordsman: 5, Knight: 2, Skirmisher: 2}
	target.Wood, target.Clay, target.Iron = 1000, 1000, 1000
	attack := store.addMovement(&model.UnitMovement{
		VillageID:       origin.ID,
		TargetVillageID: target.ID,
		CreatedAt:       testT0.Add(-2 * time.Hour),
		ArrivalAt:       testT0,
		Units:           origin.Units,
		IsAttack:        true,
	})
	bc := &recordingBroadcaster{}
	svc := NewCombatService(store, &fixedClock{now: testT0}, fixedRand{0}, bc, 1)

	if err := svc.ProcessCombatTick(context.Background()); err != nil {
		t.Fatal(err)
	}

	gotTarget := store.villages[target.ID]
	if !gotTarget.Units.IsZero() {
		t.Errorf("defender garrison = %+v, want wiped", gotTarget.Units)
	}
	if gotTarget.Wood != 782 || gotTarget.Clay != 782 || gotTarget.Iron != 782 {
		t.Errorf("target stocks = %d/%d/%d, want 782 each", gotTarget.Wood, gotTarget.Clay, gotTarget.Iron)
	}
	wantGarrison := marchlands.Units{Archer: 13, Swordsman: 13, Knight: 4, Skirmisher: 4}
	if got := store.villages[origin.ID].Units; got != wantGarrison {
		t.Errorf("origin garrison = %+v, want %+v", got, wantGarrison)
	}

	m := store.movements[attack.ID]
	if m.ReturnWood != 218 || m.ReturnClay != 218 || m.ReturnIron != 218 {
		t.Errorf("loot = %d/%d/%d, want 218 each", m.ReturnWood, m.ReturnClay, m.ReturnIron)
	}
	if m.Completed {
		t.Error("movement with survivors must not be terminal yet")
	}
	// Survivors pace the return at the swordsman's 20min per tile.
	wantReturn := testT0.Add(6_000_000 * time.Millisecond)
	if m.ReturnAt == nil || !m.ReturnAt.Equal(wantReturn) {
		t.Errorf("returnAt = %v, want %v", m.ReturnAt, wantReturn)
	}

	report := decodeReport(t, findMessage(t, store, "alice"))
	if !report.AttackerWon {
		t.Error("report should mark the attacker as winner")
	}
	wantLost := marchlands.Units{Archer: 2, Swordsman: 2, Knight: 1, Skirmisher: 1}
	if report.OwnUnitsLost != wantLost {
		t.Errorf("own losses = %+v, want %+v", report.OwnUnitsLost, wantLost)
	}
	if report.OwnLootedWood != 218 {
		t.Errorf("own looted wood = %d, want 218", report.OwnLootedWood)
	}
	findMessage(t, store, "bob")
	if len(bc.players) != 2 {
		t.Errorf("broadcasts = %v, want one for each side", bc.players)
	}
}

func TestProcessCombatTickConquest(t *testing.T) {
	store := newMockStore()
	origin := seedVillage(store, "alice", testT0)
	origin.Units = marchlands.Units{Archer: 20, Swordsman: 20, Knight: 10, Skirmisher: 10, Nobleman: 1}
	target := seedVillage(store, "bob", testT0)
	target.X, target.Y = 3, 4
	target.Loyalty = 15
	attack := store.addMovement(&model.UnitMovement{
		VillageID:       origin.ID,
		TargetVillageID: target.ID,
		CreatedAt:       testT0.Add(-3 * time.Hour),
		ArrivalAt:       testT0,
		Units:           origin.Units,
		IsAttack:        true,
	})
	svc := NewCombatService(store, &fixedClock{now: testT0}, fixedRand{0}, NoopBroadcaster{}, 1)

	if err := svc.ProcessCombatTick(context.Background()); err != nil {
		t.Fatal(err)
	}

	gotTarget := store.villages[target.ID]
	if gotTarget.PlayerID == nil || *gotTarget.PlayerID != "alice" {
		t.Errorf("target owner = %v, want alice", gotTarget.PlayerID)
	}
	if gotTarget.Loyalty != 100 {
		t.Errorf("loyalty = %v, want 100 after conquest", gotTarget.Loyalty)
	}

	conqueror := findMessage(t, store, "alice")
	if !strings.HasPrefix(conqueror.Message, "CONQUEST") {
		t.Errorf("conqueror message = %q, want a conquest marker", conqueror.Message)
	}
	report := decodeReport(t, conqueror)
	if !report.Conquered {
		t.Error("conqueror report should carry the conquest flag")
	}
	if report.LoyaltyDamage != 28 || report.OriginalLoyalty != 15 {
		t.Errorf("loyalty damage/original = %d/%v, want 28/15", report.LoyaltyDamage, report.OriginalLoyalty)
	}

	defender := decodeReport(t, findMessage(t, store, "bob"))
	if !defender.Conquered || defender.ConqueredByPlayer == nil || *defender.ConqueredByPlayer != "alice" {
		t.Errorf("defender report = %+v, want conquest by alice", defender)
	}

	if m := store.movements[attack.ID]; m.ReturnAt == nil {
		t.Error("conquering army should still march home")
	}
}

func TestProcessCombatTickDefenderHolds(t *testing.T) {
	store := newMockStore()
	origin := seedVillage(store, "alice", testT0)
	origin.Units = marchlands.Units{Archer: 5}
	target := seedVillage(store, "bob", testT0)
	target.X, target.Y = 3, 4
	target.Units = marchlands.Units{Swordsman: 100}
	attack := store.addMovement(&model.UnitMovement{
		VillageID:       origin.ID,
		TargetVillageID: target.ID,
		CreatedAt:       testT0.Add(-2 * time.Hour),
		ArrivalAt:       testT0,
		Units:           marchlands.Units{Archer: 5},
		IsAttack:        true,
	})
	svc := NewCombatService(store, &fixedClock{now: testT0}, fixedRand{0}, NoopBroadcaster{}, 1)

	if err := svc.ProcessCombatTick(context.Background()); err != nil {
		t.Fatal(err)
	}

	m := store.movements[attack.ID]
	if !m.Completed || !m.Units.IsZero() {
		t.Errorf("lost attack = completed:%v units:%+v, want terminal and empty", m.Completed, m.Units)
	}
	if got := store.villages[origin.ID].Units.Archer; got != 0 {
		t.Errorf("origin archers = %d, want 0 after the wipe", got)
	}
	if got := store.villages[target.ID].Units.Swordsman; got != 95 {
		t.Errorf("defender swordsmen = %d, want 95", got)
	}

	defender := findMessage(t, store, "bob")
	if !strings.Contains(defender.Message, "successfully defended") {
		t.Errorf("defender message = %q, want a defended notice", defender.Message)
	}
	report := decodeReport(t, findMessage(t, store, "alice"))
	if report.AttackerWon {
		t.Error("report should mark the defender as winner")
	}
}

func TestProcessCombatTickSupporterLosses(t *testing.T) {
	store := newMockStore()
	origin := seedVillage(store, "alice", testT0)
	origin.Units = marchlands.Units{Archer: 15}
	target := seedVillage(store, "bob", testT0)
	target.X, target.Y = 3, 4
	target.Units = marchlands.Units{Archer: 5, Swordsman: 5, Knight: 2, Skirmisher: 2}
	helper := seedVillage(store, "carol", testT0)
	helper.X, helper.Y = 6, 8
	helper.Units = marchlands.Units{Knight: 10}
	supportMv := store.addMovement(&model.UnitMovement{
		VillageID:       helper.ID,
		TargetVillageID: target.ID,
		CreatedAt:       testT0.Add(-2 * time.Hour),
		ArrivalAt:       testT0.Add(-time.Hour),
		Units:           marchlands.Units{Knight: 10},
		IsSupport:       true,
	})
	store.addMovement(&model.UnitMovement{
		VillageID:       origin.ID,
		TargetVillageID: target.ID,
		CreatedAt:       testT0.Add(-2 * time.Hour),
		ArrivalAt:       testT0,
		Units:           marchlands.Units{Archer: 15},
		IsAttack:        true,
	})
	svc := NewCombatService(store, &fixedClock{now: testT0}, fixedRand{0}, NoopBroadcaster{}, 1)

	if err := svc.ProcessCombatTick(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := store.villages[helper.ID].Units.Knight; got != 0 {
		t.Errorf("supporter garrison knights = %d, want 0", got)
	}
	support := store.movements[supportMv.ID]
	if !support.Completed || !support.Units.IsZero() {
		t.Errorf("wiped support = completed:%v units:%+v, want terminal and empty", support.Completed, support.Units)
	}
	helperMsg := findMessage(t, store, "carol")
	if !strings.Contains(helperMsg.Message, "supporting units") {
		t.Errorf("supporter message = %q, want a support report", helperMsg.Message)
	}
	report := decodeReport(t, helperMsg)
	if report.OwnUnitsLost.Knight != 10 {
		t.Errorf("supporter losses = %+v, want all 10 knights", report.OwnUnitsLost)
	}
}

func TestProcessCombatTickSupporterReportWithoutLosses(t *testing.T) {
	store := newMockStore()
	origin := seedVillage(store, "alice", testT0)
	origin.Units = marchlands.Units{Archer: 1}
	target := seedVillage(store, "bob", testT0)
	target.X, target.Y = 3, 4
	helper := seedVillage(store, "carol", testT0)
	helper.X, helper.Y = 6, 8
	helper.Units = marchlands.Units{Swordsman: 100}
	support := store.addMovement(&model.UnitMovement{
		VillageID:       helper.ID,
		TargetVillageID: target.ID,
		CreatedAt:       testT0.Add(-2 * time.Hour),
		ArrivalAt:       testT0.Add(-time.Hour),
		Units:           marchlands.Units{Swordsman: 100},
		IsSupport:       true,
	})
	store.addMovement(&model.UnitMovement{
		VillageID:       origin.ID,
		TargetVillageID: target.ID,
		CreatedAt:       testT0.Add(-2 * time.Hour),
		ArrivalAt:       testT0,
		Units:           marchlands.Units{Archer: 1},
		IsAttack:        true,
	})
	svc := NewCombatService(store, &fixedClock{now: testT0}, fixedRand{0}, NoopBroadcaster{}, 1)

	if err := svc.ProcessCombatTick(context.Background()); err != nil {
		t.Fatal(err)
	}

	report := decodeReport(t, findMessage(t, store, "carol"))
	if report.OwnUnitsLost.Total() != 0 {
		t.Errorf("supporter losses = %+v, want none", report.OwnUnitsLost)
	}
	if got := store.movements[support.ID].Units.Swordsman; got != 100 {
		t.Errorf("support contingent = %d swordsmen, want untouched 100", got)
	}
}

func TestProcessCombatTickNoRipeAttacks(t *testing.T) {
	store := newMockStore()
	origin := seedVillage(store, "alice", testT0)
	target := seedVillage(store, "bob", testT0)
	store.addMovement(&model.UnitMovement{
		VillageID:       origin.ID,
		TargetVillageID: target.ID,
		CreatedAt:       testT0,
		ArrivalAt:       testT0.Add(time.Hour),
		Units:           marchlands.Units{Archer: 1},
		IsAttack:        true,
	})
	bc := &recordingBroadcaster{}
	svc := NewCombatService(store, &fixedClock{now: testT0}, fixedRand{0}, bc, 1)

	if err := svc.ProcessCombatTick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(store.messages) != 0 || len(bc.players) != 0 {
		t.Errorf("tick with no ripe attacks produced %d messages, %d broadcasts",
			len(store.messages), len(bc.players))
	}
}

func TestProcessCombatTickRunsOnce(t *testing.T) {
	store := newMockStore()
	origin := seedVillage(store, "alice", testT0)
	origin.Units = marchlands.Units{Archer: 15, Swordsman: 15, Knight: 5, Skirmisher: 5}
	target := seedVillage(store, "bob", testT0)
	target.X, target.Y = 3, 4
	store.addMovement(&model.UnitMovement{
		VillageID:       origin.ID,
		TargetVillageID: target.ID,
		CreatedAt:       testT0.Add(-2 * time.Hour),
		ArrivalAt:       testT0,
		Units:           origin.Units,
		IsAttack:        true,
	})
	svc := NewCombatService(store, &fixedClock{now: testT0}, fixedRand{0}, NoopBroadcaster{}, 1)
	ctx := context.Background()

	if err := svc.ProcessCombatTick(ctx); err != nil {
		t.Fatal(err)
	}
	delivered := len(store.messages)
	if err := svc.ProcessCombatTick(ctx); err != nil {
		t.Fatal(err)
	}
	if len(store.messages) != delivered {
		t.Errorf("second tick resolved the same attack again: %d -> %d messages",
			delivered, len(store.messages))
	}
}
