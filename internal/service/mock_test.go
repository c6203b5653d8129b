package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/freeeve/marchlands/internal/model"
	"github.com/freeeve/marchlands/internal/repository"
)

// mockStore is an in-memory repository.Store. Transactions are not
// isolated; tests are single-threaded and drive one operation at a time.
type mockStore struct {
	villages    map[int64]*model.Village
	buildEvents map[int64]*model.BuildingEvent
	trainEvents map[int64]*model.UnitTrainingEvent
	movements   map[int64]*model.UnitMovement
	players     map[string]*model.Player
	messages    []*model.BattleMessage
	nextID      int64
}

func newMockStore() *mockStore {
	return &mockStore{
		villages:    make(map[int64]*model.Village),
		buildEvents: make(map[int64]*model.BuildingEvent),
		trainEvents: make(map[int64]*model.UnitTrainingEvent),
		movements:   make(map[int64]*model.UnitMovement),
		players:     make(map[string]*model.Player),
	}
}

func (m *mockStore) Begin(context.Context) (repository.Tx, error) {
	return &mockTx{s: m}, nil
}

func (m *mockStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *mockStore) addVillage(v *model.Village) *model.Village {
	if v.ID == 0 {
		v.ID = m.id()
	}
	m.villages[v.ID] = v
	return v
}

func (m *mockStore) addBuildEvent(ev *model.BuildingEvent) *model.BuildingEvent {
	if ev.ID == 0 {
		ev.ID = m.id()
	}
	m.buildEvents[ev.ID] = ev
	return ev
}

func (m *mockStore) addTrainEvent(ev *model.UnitTrainingEvent) *model.UnitTrainingEvent {
	if ev.ID == 0 {
		ev.ID = m.id()
	}
	m.trainEvents[ev.ID] = ev
	return ev
}

func (m *mockStore) addMovement(mv *model.UnitMovement) *model.UnitMovement {
	if mv.ID == 0 {
		mv.ID = m.id()
	}
	m.movements[mv.ID] = mv
	return mv
}

type mockTx struct {
	s *mockStore
}

func (t *mockTx) Commit() error   { return nil }
func (t *mockTx) Rollback() error { return nil }

func (t *mockTx) GetVillage(_ context.Context, id int64) (*model.Village, error) {
	v, ok := t.s.villages[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (t *mockTx) GetVillageForUpdate(ctx context.Context, id int64) (*model.Village, error) {
	return t.GetVillage(ctx, id)
}

func (t *mockTx) CreateVillage(_ context.Context, v *model.Village) error {
	v.ID = t.s.id()
	v.CreatedAt = time.Now()
	cp := *v
	t.s.villages[v.ID] = &cp
	return nil
}

func (t *mockTx) UpdateVillage(_ context.Context, v *model.Village) error {
	cp := *v
	t.s.villages[v.ID] = &cp
	return nil
}

func (t *mockTx) ListVillages(_ context.Context, w repository.VillageWindow) ([]model.Village, int, error) {
	var all []model.Village
	for _, v := range t.s.villages {
		if w.XMin != nil && v.X < *w.XMin {
			continue
		}
		if w.XMax != nil && v.X > *w.XMax {
			continue
		}
		if w.YMin != nil && v.Y < *w.YMin {
			continue
		}
		if w.YMax != nil && v.Y > *w.YMax {
			continue
		}
		all = append(all, *v)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	if w.Offset > 0 {
		if w.Offset >= len(all) {
			all = nil
		} else {
			all = all[w.Offset:]
		}
	}
	if w.Limit > 0 && len(all) > w.Limit {
		all = all[:w.Limit]
	}
	return all, total, nil
}

func (t *mockTx) ListOpenBuildingEvents(_ context.Context, villageID int64, _ bool) ([]model.BuildingEvent, error) {
	var events []model.BuildingEvent
	for _, ev := range t.s.buildEvents {
		if ev.VillageID == villageID && !ev.Completed {
			events = append(events, *ev)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}

func (t *mockTx) CreateBuildingEvent(_ context.Context, ev *model.BuildingEvent) error {
	ev.ID = t.s.id()
	ev.CreatedAt = time.Now()
	cp := *ev
	t.s.buildEvents[ev.ID] = &cp
	return nil
}

func (t *mockTx) UpdateBuildingEvent(_ context.Context, ev *model.BuildingEvent) error {
	cp := *ev
	t.s.buildEvents[ev.ID] = &cp
	return nil
}

func (t *mockTx) ListOpenTrainingEvents(_ context.Context, villageID int64, _ bool) ([]model.UnitTrainingEvent, error) {
	var events []model.UnitTrainingEvent
	for _, ev := range t.s.trainEvents {
		if ev.VillageID == villageID && !ev.Completed {
			events = append(events, *ev)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}

func (t *mockTx) CreateTrainingEvent(_ context.Context, ev *model.UnitTrainingEvent) error {
	ev.ID = t.s.id()
	ev.CreatedAt = time.Now()
	cp := *ev
	t.s.trainEvents[ev.ID] = &cp
	return nil
}

func (t *mockTx) UpdateTrainingEvent(_ context.Context, ev *model.UnitTrainingEvent) error {
	cp := *ev
	t.s.trainEvents[ev.ID] = &cp
	return nil
}

func (t *mockTx) DeleteTrainingEvent(_ context.Context, id int64) error {
	delete(t.s.trainEvents, id)
	return nil
}

func (t *mockTx) GetMovement(_ context.Context, id int64) (*model.UnitMovement, error) {
	m, ok := t.s.movements[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (t *mockTx) CreateMovement(_ context.Context, m *model.UnitMovement) error {
	m.ID = t.s.id()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	cp := *m
	t.s.movements[m.ID] = &cp
	return nil
}

func (t *mockTx) UpdateMovement(_ context.Context, m *model.UnitMovement) error {
	cp := *m
	t.s.movements[m.ID] = &cp
	return nil
}

func (t *mockTx) ListMovements(_ context.Context, villageID int64) ([]model.UnitMovement, error) {
	return t.filterMovements(func(m *model.UnitMovement) bool {
		return (m.VillageID == villageID || m.TargetVillageID == villageID) && !m.Completed
	}), nil
}

func (t *mockTx) ListOutboundMovements(_ context.Context, villageID int64) ([]model.UnitMovement, error) {
	return t.filterMovements(func(m *model.UnitMovement) bool {
		return m.VillageID == villageID && !m.Completed
	}), nil
}

func (t *mockTx) ListReturningMovements(_ context.Context, villageID int64, upto time.Time) ([]model.UnitMovement, error) {
	return t.filterMovements(func(m *model.UnitMovement) bool {
		return m.VillageID == villageID && !m.Completed &&
			m.ReturnAt != nil && !m.ReturnAt.After(upto)
	}), nil
}

func (t *mockTx) ListRipeMovements(_ context.Context, targetID int64, kind repository.MovementKind, now time.Time) ([]model.UnitMovement, error) {
	return t.filterMovements(func(m *model.UnitMovement) bool {
		if m.TargetVillageID != targetID || m.Completed || m.ReturnAt != nil || m.ArrivalAt.After(now) {
			return false
		}
		switch kind {
		case repository.MovementAttack:
			return m.IsAttack
		case repository.MovementSupport:
			return m.IsSupport
		case repository.MovementSpy:
			return m.IsSpy
		}
		return false
	}), nil
}

func (t *mockTx) ListRipeAttackTargets(_ context.Context, now time.Time) ([]int64, error) {
	seen := make(map[int64]bool)
	var targets []int64
	for _, m := range t.s.movements {
		if m.IsAttack && !m.Completed && m.ReturnAt == nil && !m.ArrivalAt.After(now) && !seen[m.TargetVillageID] {
			seen[m.TargetVillageID] = true
			targets = append(targets, m.TargetVillageID)
		}
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	return targets, nil
}

func (t *mockTx) filterMovements(keep func(*model.UnitMovement) bool) []model.UnitMovement {
	var movements []model.UnitMovement
	for _, m := range t.s.movements {
		if keep(m) {
			movements = append(movements, *m)
		}
	}
	sort.Slice(movements, func(i, j int) bool { return movements[i].ID < movements[j].ID })
	return movements
}

func (t *mockTx) GetPlayer(_ context.Context, id string) (*model.Player, error) {
	p, ok := t.s.players[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (t *mockTx) UpsertPlayer(_ context.Context, provider, providerID, username string) (*model.Player, error) {
	for _, p := range t.s.players {
		if p.Provider == provider && p.ProviderID == providerID {
			p.Username = username
			cp := *p
			return &cp, nil
		}
	}
	p := &model.Player{
		ID:         fmt.Sprintf("player-%d", t.s.id()),
		Provider:   provider,
		ProviderID: providerID,
		Username:   username,
		CreatedAt:  time.Now(),
	}
	t.s.players[p.ID] = p
	cp := *p
	return &cp, nil
}

func (t *mockTx) CreateBattleMessage(_ context.Context, msg *model.BattleMessage) error {
	msg.ID = t.s.id()
	msg.CreatedAt = time.Now()
	cp := *msg
	t.s.messages = append(t.s.messages, &cp)
	return nil
}

func (t *mockTx) ListBattleMessages(_ context.Context, playerID string, limit int) ([]model.BattleMessage, error) {
	var messages []model.BattleMessage
	for i := len(t.s.messages) - 1; i >= 0; i-- {
		if t.s.messages[i].ToPlayerID == playerID {
			messages = append(messages, *t.s.messages[i])
		}
		if limit > 0 && len(messages) == limit {
			break
		}
	}
	return messages, nil
}

func (t *mockTx) MarkBattleMessageDisplayed(_ context.Context, id int64, playerID string) error {
	for _, msg := range t.s.messages {
		if msg.ID == id && msg.ToPlayerID == playerID {
			msg.Displayed = true
		}
	}
	return nil
}

// fixedClock pins time for deterministic advances.
type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

// fixedRand returns a constant luck draw.
type fixedRand struct {
	value float64
}

func (r fixedRand) Uniform(float64, float64) float64 { return r.value }

var testT0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// seedVillage adds a fresh level-1 village (no barracks) owned by the
// given player, with resource clocks pinned at t0.
func seedVillage(s *mockStore, owner string, t0 time.Time) *model.Village {
	pid := owner
	return s.addVillage(&model.Village{
		Name:            "Greenfield",
		PlayerID:        &pid,
		HeadquartersLvl: 1,
		WoodcutterLvl:   1,
		ClayPitLvl:      1,
		IronMineLvl:     1,
		FarmLvl:         1,
		StorageLvl:      1,
		Wood:            500,
		Clay:            500,
		Iron:            500,
		LastWoodUpdate:  t0,
		LastClayUpdate:  t0,
		LastIronUpdate:  t0,
		Loyalty:         100,
		CreatedAt:       t0,
	})
}
