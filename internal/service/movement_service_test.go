package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/freeeve/marchlands/internal/model"
	"github.com/freeeve/marchlands/pkg/marchlands"
)

// recordingTimers captures arrival timer registrations.
type recordingTimers struct {
	ids []int64
}

func (r *recordingTimers) SetArrivalTimer(_ context.Context, movementID int64, _ time.Time) error {
	r.ids = append(r.ids, movementID)
	return nil
}

func seedBattlefield(store *mockStore) (origin, target *model.Village) {
	origin = seedVillage(store, "alice", testT0)
	origin.Units = marchlands.Units{Archer: 10, Swordsman: 5}
	target = seedVillage(store, "bob", testT0)
	target.X, target.Y = 3, 4 // distance 5
	return origin, target
}

func TestSendAttack(t *testing.T) {
	store := newMockStore()
	origin, target := seedBattlefield(store)
	timers := &recordingTimers{}
	svc := NewMovementService(store, &fixedClock{now: testT0}, timers, 1)

	m, err := svc.SendAttack(context.Background(), origin.ID, target.ID, "alice", marchlands.Units{Archer: 5})
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsAttack || m.IsSupport {
		t.Errorf("movement flags = attack:%v support:%v, want attack only", m.IsAttack, m.IsSupport)
	}
	// 5 tiles at the archer's 18min pace.
	want := testT0.Add(5_400_000 * time.Millisecond)
	if !m.ArrivalAt.Equal(want) {
		t.Errorf("arrivalAt = %v, want %v", m.ArrivalAt, want)
	}
	if len(timers.ids) != 1 || timers.ids[0] != m.ID {
		t.Errorf("arrival timer registrations = %v, want [%d]", timers.ids, m.ID)
	}
	// Units stay on the garrison until losses are resolved.
	if got := store.villages[origin.ID].Units.Archer; got != 10 {
		t.Errorf("garrison archers = %d, want 10", got)
	}
}

func TestSendSupportSetsNoTimer(t *testing.T) {
	store := newMockStore()
	origin, target := seedBattlefield(store)
	timers := &recordingTimers{}
	svc := NewMovementService(store, &fixedClock{now: testT0}, timers, 1)

	m, err := svc.SendSupport(context.Background(), origin.ID, target.ID, "alice", marchlands.Units{Swordsman: 3})
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsSupport {
		t.Error("movement should be flagged as support")
	}
	if len(timers.ids) != 0 {
		t.Errorf("support should not register arrival timers, got %v", timers.ids)
	}
}

func TestSendSpySetsNoTimer(t *testing.T) {
	store := newMockStore()
	origin, target := seedBattlefield(store)
	timers := &recordingTimers{}
	svc := NewMovementService(store, &fixedClock{now: testT0}, timers, 1)

	m, err := svc.SendSpy(context.Background(), origin.ID, target.ID, "alice", marchlands.Units{Archer: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsSpy || m.IsAttack || m.IsSupport {
		t.Errorf("movement flags = attack:%v support:%v spy:%v, want spy only", m.IsAttack, m.IsSupport, m.IsSpy)
	}
	if len(timers.ids) != 0 {
		t.Errorf("spies should not register arrival timers, got %v", timers.ids)
	}
}

func TestSendUnitsErrors(t *testing.T) {
	store := newMockStore()
	origin, target := seedBattlefield(store)
	svc := NewMovementService(store, &fixedClock{now: testT0}, NoopArrivalTimers{}, 1)
	ctx := context.Background()
	some := marchlands.Units{Archer: 1}

	if _, err := svc.SendAttack(ctx, origin.ID, origin.ID, "alice", some); !errors.Is(err, ErrSelfTarget) {
		t.Errorf("self target err = %v, want ErrSelfTarget", err)
	}
	if _, err := svc.SendAttack(ctx, origin.ID, target.ID, "alice", marchlands.Units{}); !errors.Is(err, ErrNoUnits) {
		t.Errorf("empty army err = %v, want ErrNoUnits", err)
	}
	if _, err := svc.SendAttack(ctx, 404, target.ID, "alice", some); !errors.Is(err, ErrVillageNotFound) {
		t.Errorf("missing origin err = %v, want ErrVillageNotFound", err)
	}
	if _, err := svc.SendAttack(ctx, origin.ID, 404, "alice", some); !errors.Is(err, ErrTargetVillageNotFound) {
		t.Errorf("missing target err = %v, want ErrTargetVillageNotFound", err)
	}
	if _, err := svc.SendAttack(ctx, origin.ID, target.ID, "mallory", some); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-owner err = %v, want ErrForbidden", err)
	}
	if _, err := svc.SendAttack(ctx, origin.ID, target.ID, "alice", marchlands.Units{Archer: 11}); !errors.Is(err, ErrInsufficientUnits) {
		t.Errorf("oversized army err = %v, want ErrInsufficientUnits", err)
	}
}

func TestSendUnitsCountsOutbound(t *testing.T) {
	store := newMockStore()
	origin, target := seedBattlefield(store)
	store.addMovement(&model.UnitMovement{
		VillageID:       origin.ID,
		TargetVillageID: target.ID,
		CreatedAt:       testT0.Add(-time.Hour),
		ArrivalAt:       testT0.Add(time.Hour),
		Units:           marchlands.Units{Archer: 7},
		IsAttack:        true,
	})
	svc := NewMovementService(store, &fixedClock{now: testT0}, NoopArrivalTimers{}, 1)
	ctx := context.Background()

	if _, err := svc.SendAttack(ctx, origin.ID, target.ID, "alice", marchlands.Units{Archer: 4}); !errors.Is(err, ErrInsufficientUnits) {
		t.Errorf("err = %v, want ErrInsufficientUnits with 7 of 10 archers marching", err)
	}
	if _, err := svc.SendAttack(ctx, origin.ID, target.ID, "alice", marchlands.Units{Archer: 3}); err != nil {
		t.Errorf("sending the remaining 3 archers should succeed, got %v", err)
	}
}

func TestCancelSupportBeforeArrival(t *testing.T) {
	store := newMockStore()
	origin, target := seedBattlefield(store)
	m := store.addMovement(&model.UnitMovement{
		VillageID:       origin.ID,
		TargetVillageID: target.ID,
		CreatedAt:       testT0,
		ArrivalAt:       testT0.Add(5_400_000 * time.Millisecond),
		Units:           marchlands.Units{Archer: 5},
		IsSupport:       true,
	})
	now := testT0.Add(600_000 * time.Millisecond)
	svc := NewMovementService(store, &fixedClock{now: now}, NoopArrivalTimers{}, 1)

	got, err := svc.CancelSupport(context.Background(), origin.ID, m.ID, "alice")
	if err != nil {
		t.Fatal(err)
	}
	// The return leg takes as long as the distance already covered.
	want := testT0.Add(1_200_000 * time.Millisecond)
	if got.ReturnAt == nil || !got.ReturnAt.Equal(want) {
		t.Errorf("returnAt = %v, want %v", got.ReturnAt, want)
	}
}

func TestCancelSupportAfterArrival(t *testing.T) {
	store := newMockStore()
	origin, target := seedBattlefield(store)
	m := store.addMovement(&model.UnitMovement{
		VillageID:       origin.ID,
		TargetVillageID: target.ID,
		CreatedAt:       testT0,
		ArrivalAt:       testT0.Add(5_400_000 * time.Millisecond),
		Units:           marchlands.Units{Archer: 5},
		IsSupport:       true,
	})
	now := testT0.Add(6_000_000 * time.Millisecond)
	svc := NewMovementService(store, &fixedClock{now: now}, NoopArrivalTimers{}, 1)

	got, err := svc.CancelSupport(context.Background(), origin.ID, m.ID, "alice")
	if err != nil {
		t.Fatal(err)
	}
	want := now.Add(5_400_000 * time.Millisecond)
	if got.ReturnAt == nil || !got.ReturnAt.Equal(want) {
		t.Errorf("returnAt = %v, want %v", got.ReturnAt, want)
	}
}

func TestCancelSupportErrors(t *testing.T) {
	store := newMockStore()
	origin, target := seedBattlefield(store)
	returning := testT0.Add(time.Hour)
	attack := store.addMovement(&model.UnitMovement{
		VillageID: origin.ID, TargetVillageID: target.ID,
		CreatedAt: testT0, ArrivalAt: testT0.Add(time.Hour),
		Units: marchlands.Units{Archer: 1}, IsAttack: true,
	})
	done := store.addMovement(&model.UnitMovement{
		VillageID: origin.ID, TargetVillageID: target.ID,
		CreatedAt: testT0, ArrivalAt: testT0.Add(time.Hour),
		Units: marchlands.Units{Archer: 1}, IsSupport: true, Completed: true,
	})
	homeward := store.addMovement(&model.UnitMovement{
		VillageID: origin.ID, TargetVillageID: target.ID,
		CreatedAt: testT0, ArrivalAt: testT0.Add(time.Hour),
		Units: marchlands.Units{Archer: 1}, IsSupport: true, ReturnAt: &returning,
	})
	svc := NewMovementService(store, &fixedClock{now: testT0}, NoopArrivalTimers{}, 1)
	ctx := context.Background()

	if _, err := svc.CancelSupport(ctx, origin.ID, 404, "alice"); !errors.Is(err, ErrMovementNotFound) {
		t.Errorf("missing movement err = %v, want ErrMovementNotFound", err)
	}
	if _, err := svc.CancelSupport(ctx, origin.ID, attack.ID, "alice"); !errors.Is(err, ErrNotSupport) {
		t.Errorf("attack cancel err = %v, want ErrNotSupport", err)
	}
	if _, err := svc.CancelSupport(ctx, origin.ID, done.ID, "alice"); !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("completed cancel err = %v, want ErrAlreadyCompleted", err)
	}
	if _, err := svc.CancelSupport(ctx, origin.ID, homeward.ID, "alice"); !errors.Is(err, ErrAlreadyReturning) {
		t.Errorf("returning cancel err = %v, want ErrAlreadyReturning", err)
	}
}

func TestCancelSupportOfOtherVillage(t *testing.T) {
	store := newMockStore()
	origin, target := seedBattlefield(store)
	m := store.addMovement(&model.UnitMovement{
		VillageID: target.ID, TargetVillageID: origin.ID,
		CreatedAt: testT0, ArrivalAt: testT0.Add(time.Hour),
		Units: marchlands.Units{Archer: 1}, IsSupport: true,
	})
	svc := NewMovementService(store, &fixedClock{now: testT0}, NoopArrivalTimers{}, 1)

	if _, err := svc.CancelSupport(context.Background(), origin.ID, m.ID, "alice"); !errors.Is(err, ErrMovementNotFound) {
		t.Errorf("foreign movement err = %v, want ErrMovementNotFound", err)
	}
}

func TestListMovements(t *testing.T) {
	store := newMockStore()
	origin, target := seedBattlefield(store)
	store.addMovement(&model.UnitMovement{
		VillageID: origin.ID, TargetVillageID: target.ID,
		CreatedAt: testT0, ArrivalAt: testT0.Add(time.Hour),
		Units: marchlands.Units{Archer: 1}, IsAttack: true,
	})
	store.addMovement(&model.UnitMovement{
		VillageID: target.ID, TargetVillageID: origin.ID,
		CreatedAt: testT0, ArrivalAt: testT0.Add(time.Hour),
		Units: marchlands.Units{Swordsman: 1}, IsSupport: true,
	})
	store.addMovement(&model.UnitMovement{
		VillageID: origin.ID, TargetVillageID: target.ID,
		CreatedAt: testT0, ArrivalAt: testT0.Add(-time.Hour),
		Units: marchlands.Units{Archer: 1}, IsAttack: true, Completed: true,
	})
	svc := NewMovementService(store, &fixedClock{now: testT0}, NoopArrivalTimers{}, 1)
	ctx := context.Background()

	movements, err := svc.ListMovements(ctx, origin.ID, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(movements) != 2 {
		t.Errorf("got %d movements, want 2 active ones", len(movements))
	}
	if _, err := svc.ListMovements(ctx, origin.ID, "mallory"); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-owner err = %v, want ErrForbidden", err)
	}
}
