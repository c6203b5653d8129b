package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/marchlands/internal/model"
	"github.com/freeeve/marchlands/internal/repository"
	"github.com/freeeve/marchlands/pkg/marchlands"
)

// BattleReport is the payload stored with each battle message. It carries
// the global engagement plus the recipient's own participation.
type BattleReport struct {
	AttackerWon        bool             `json:"attacker_won"`
	AttackingUnits     marchlands.Units `json:"attacking_units"`
	AttackingUnitsLost marchlands.Units `json:"attacking_units_lost"`
	DefendingUnits     marchlands.Units `json:"defending_units"`
	DefendingUnitsLost marchlands.Units `json:"defending_units_lost"`
	OriginalLoyalty    float64          `json:"original_loyalty"`
	LoyaltyDamage      int              `json:"loyalty_damage"`
	Luck               float64          `json:"luck"`
	Datetime           time.Time        `json:"datetime"`
	LootCapacity       int              `json:"loot_capacity"`
	LootedWood         int              `json:"looted_wood"`
	LootedClay         int              `json:"looted_clay"`
	LootedIron         int              `json:"looted_iron"`
	AttackingVillageID int64            `json:"attacking_village_id,omitempty"`
	DefendingVillageID int64            `json:"defending_village_id"`
	OwnUnits           marchlands.Units `json:"own_units"`
	OwnUnitsLost       marchlands.Units `json:"own_units_lost"`
	OwnLootCapacity    int              `json:"own_loot_capacity"`
	OwnLootedWood      int              `json:"own_looted_wood"`
	OwnLootedClay      int              `json:"own_looted_clay"`
	OwnLootedIron      int              `json:"own_looted_iron"`
	Conquered          bool             `json:"conquered,omitempty"`
	ConqueredByPlayer  *string          `json:"conquered_by_player_id,omitempty"`
}

// CombatService resolves ripened attacks against their targets.
type CombatService struct {
	store       repository.Store
	clock       Clock
	rng         Rand
	broadcaster Broadcaster
	gameSpeed   float64
}

// NewCombatService creates a CombatService.
func NewCombatService(store repository.Store, clock Clock, rng Rand, broadcaster Broadcaster, gameSpeed float64) *CombatService {
	return &CombatService{store: store, clock: clock, rng: rng, broadcaster: broadcaster, gameSpeed: gameSpeed}
}

// ProcessCombatTick resolves combat for every village with a ripened
// attack. Each target resolves in its own transaction; one failure does
// not block the rest.
func (s *CombatService) ProcessCombatTick(ctx context.Context) error {
	now := s.clock.Now()

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	targets, err := tx.ListRipeAttackTargets(ctx, now)
	tx.Rollback()
	if err != nil {
		return fmt.Errorf("list ripe attack targets: %w", err)
	}

	for _, targetID := range targets {
		if err := s.resolveTarget(ctx, targetID, now); err != nil {
			log.Error().Err(err).Int64("targetId", targetID).Msg("Combat resolution failed")
		}
	}
	return nil
}

// pendingReport is a battle message queued for delivery after commit.
type pendingReport struct {
	playerID string
	message  string
	report   BattleReport
}

// resolveTarget resolves all ripened attacks on one village under its
// row lock.
func (s *CombatService) resolveTarget(ctx context.Context, targetID int64, now time.Time) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	target, err := tx.GetVillageForUpdate(ctx, targetID)
	if err != nil {
		return err
	}
	if target == nil {
		return nil
	}
	if err := advanceVillage(ctx, tx, target, now, s.gameSpeed); err != nil {
		return err
	}

	attackers, err := tx.ListRipeMovements(ctx, targetID, repository.MovementAttack, now)
	if err != nil {
		return err
	}
	if len(attackers) == 0 {
		if err := tx.UpdateVillage(ctx, target); err != nil {
			return err
		}
		return tx.Commit()
	}
	supporters, err := tx.ListRipeMovements(ctx, targetID, repository.MovementSupport, now)
	if err != nil {
		return err
	}

	// Origin rows are locked in id order before any mutation so two
	// resolvers touching the same origins cannot deadlock.
	origins, err := lockOrigins(ctx, tx, attackers, supporters)
	if err != nil {
		return err
	}

	availDefenders, err := availableUnits(ctx, tx, target)
	if err != nil {
		return err
	}

	var totalAttacking, totalSupporting marchlands.Units
	for _, m := range attackers {
		totalAttacking = totalAttacking.Plus(m.Units)
	}
	for _, m := range supporters {
		totalSupporting = totalSupporting.Plus(m.Units)
	}
	totalDefending := availDefenders.Plus(totalSupporting)

	luck := s.rng.Uniform(-0.25, 0.25)
	result := marchlands.Simulate(totalAttacking, totalDefending, luck)

	attackerRatios := marchlands.LossRatios(totalAttacking, result.AttackersLost)
	defenderRatios := marchlands.LossRatios(totalDefending, result.DefendersLost)

	originalLoyalty := target.Loyalty
	defenderOwner := target.PlayerID

	// Loot.
	var lootedWood, lootedClay, lootedIron, totalLootCapacity int
	if result.AttackerWon {
		totalLootCapacity = result.Attackers.LootCapacity()
		lootedWood = lootShare(target.Wood, totalLootCapacity)
		lootedClay = lootShare(target.Clay, totalLootCapacity)
		lootedIron = lootShare(target.Iron, totalLootCapacity)
		target.Wood -= lootedWood
		target.Clay -= lootedClay
		target.Iron -= lootedIron
	}

	// Loyalty and conquest.
	loyaltyDamage := 0
	var conqueringID int64
	if result.AttackerWon && result.Attackers.Nobleman > 0 {
		loyaltyDamage = marchlands.LoyaltyDamage(luck)
		target.Loyalty -= float64(loyaltyDamage)
		if target.Loyalty <= 0 {
			target.Loyalty = 0
			for i := range attackers {
				m := &attackers[i]
				lost := marchlands.ApplyLossRatios(m.Units, attackerRatios)
				if m.Units.Nobleman-lost.Nobleman > 0 {
					conqueringID = m.ID
					origin := origins[m.VillageID]
					target.PlayerID = origin.PlayerID
					target.Loyalty = 100
					break
				}
			}
		}
	}

	base := BattleReport{
		AttackerWon:        result.AttackerWon,
		AttackingUnits:     result.Attackers,
		AttackingUnitsLost: result.AttackersLost,
		DefendingUnits:     result.Defenders,
		DefendingUnitsLost: result.DefendersLost,
		OriginalLoyalty:    originalLoyalty,
		LoyaltyDamage:      loyaltyDamage,
		Luck:               luck,
		Datetime:           now,
		LootCapacity:       totalLootCapacity,
		LootedWood:         lootedWood,
		LootedClay:         lootedClay,
		LootedIron:         lootedIron,
		DefendingVillageID: targetID,
	}

	var reports []pendingReport

	// Attacking movements.
	for i := range attackers {
		m := &attackers[i]
		lost := marchlands.ApplyLossRatios(m.Units, attackerRatios)
		survivors := m.Units.Minus(lost)

		origin := origins[m.VillageID]
		origin.Units = origin.Units.Minus(lost)

		report := base
		report.AttackingVillageID = m.VillageID
		report.OwnUnits = survivors
		report.OwnUnitsLost = lost
		message := "Battle Report: Attack on " + target.Name

		if result.AttackerWon {
			m.Units = survivors
			ownCapacity := survivors.LootCapacity()
			if totalLootCapacity > 0 {
				share := float64(ownCapacity) / float64(totalLootCapacity)
				m.ReturnWood = roundShare(lootedWood, share)
				m.ReturnClay = roundShare(lootedClay, share)
				m.ReturnIron = roundShare(lootedIron, share)
			}
			report.OwnLootCapacity = ownCapacity
			report.OwnLootedWood = m.ReturnWood
			report.OwnLootedClay = m.ReturnClay
			report.OwnLootedIron = m.ReturnIron

			if survivors.IsZero() {
				m.Completed = true
			} else {
				returnAt := s.returnTime(origin, target, survivors, now)
				m.ReturnAt = &returnAt
			}
			if m.ID == conqueringID {
				report.Conquered = true
				message = "CONQUEST: You have conquered " + target.Name + "!"
			}
		} else {
			m.Units = marchlands.Units{}
			m.Completed = true
		}
		if err := tx.UpdateMovement(ctx, m); err != nil {
			return err
		}
		if origin.PlayerID != nil {
			reports = append(reports, pendingReport{*origin.PlayerID, message, report})
		}
	}

	// Defending village garrison.
	if result.DefendersLost.Total() > 0 {
		lostOwn := marchlands.ApplyLossRatios(availDefenders, defenderRatios)
		target.Units = target.Units.Minus(lostOwn)
	}
	if defenderOwner != nil {
		report := base
		message := "Battle Report: Your village " + target.Name + " was attacked"
		if !result.AttackerWon {
			message = "Battle Report: Your village " + target.Name + " was successfully defended"
		}
		if conqueringID != 0 {
			message = "Your village " + target.Name + " was conquered!"
			report.Conquered = true
			report.ConqueredByPlayer = target.PlayerID
		}
		reports = append(reports, pendingReport{*defenderOwner, message, report})
	}

	// Supporting movements.
	for i := range supporters {
		m := &supporters[i]
		lost := marchlands.ApplyLossRatios(m.Units, defenderRatios)
		if lost.Total() > 0 {
			m.Units = m.Units.Minus(lost)
			origin := origins[m.VillageID]
			origin.Units = origin.Units.Minus(lost)
			if m.Units.IsZero() {
				m.Completed = true
			}
			if err := tx.UpdateMovement(ctx, m); err != nil {
				return err
			}
		}
		origin := origins[m.VillageID]
		if origin.PlayerID != nil {
			report := base
			report.OwnUnits = m.Units
			report.OwnUnitsLost = lost
			reports = append(reports, pendingReport{
				*origin.PlayerID,
				"Battle Report: Your supporting units in " + target.Name,
				report,
			})
		}
	}

	for _, origin := range origins {
		if err := tx.UpdateVillage(ctx, origin); err != nil {
			return err
		}
	}
	if err := tx.UpdateVillage(ctx, target); err != nil {
		return err
	}
	for _, r := range reports {
		payload, err := json.Marshal(r.report)
		if err != nil {
			return fmt.Errorf("marshal battle report: %w", err)
		}
		msg := &model.BattleMessage{
			ToPlayerID: r.playerID,
			Message:    r.message,
			BattleData: payload,
		}
		if err := tx.CreateBattleMessage(ctx, msg); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	for _, r := range reports {
		s.broadcaster.BroadcastToPlayer(r.playerID, "battle_report", r.report)
	}
	log.Info().Int64("targetId", targetID).Bool("attackerWon", result.AttackerWon).
		Int("attackers", len(attackers)).Int("supporters", len(supporters)).
		Float64("luck", luck).Msg("Battle resolved")
	return nil
}

// lockOrigins loads every distinct origin village under its row lock, in
// id order. The target's row is assumed already held.
func lockOrigins(ctx context.Context, tx repository.Tx, attackers, supporters []model.UnitMovement) (map[int64]*model.Village, error) {
	seen := map[int64]bool{}
	var ids []int64
	for _, m := range attackers {
		if !seen[m.VillageID] {
			seen[m.VillageID] = true
			ids = append(ids, m.VillageID)
		}
	}
	for _, m := range supporters {
		if !seen[m.VillageID] {
			seen[m.VillageID] = true
			ids = append(ids, m.VillageID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	origins := make(map[int64]*model.Village, len(ids))
	for _, id := range ids {
		v, err := tx.GetVillageForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, fmt.Errorf("origin village %d: %w", id, ErrVillageNotFound)
		}
		origins[id] = v
	}
	return origins, nil
}

// returnTime is the symmetric travel back home at the survivors' pace.
func (s *CombatService) returnTime(origin, target *model.Village, survivors marchlands.Units, now time.Time) time.Time {
	distance := marchlands.Distance(target.X, target.Y, origin.X, origin.Y)
	travelMS := survivors.TravelTimeMS(distance, s.gameSpeed)
	return now.Add(time.Duration(travelMS) * time.Millisecond)
}

// lootShare caps loot per resource at 80% of the stock and a third of
// the carrying capacity.
func lootShare(stock, capacity int) int {
	byStock := int(float64(stock) * 0.8)
	byCapacity := capacity / 3
	return minInt(byStock, byCapacity)
}

func roundShare(total int, share float64) int {
	return int(float64(total)*share + 0.5)
}
