package marchlands

import "math"

// BattleResult is the outcome of a single engagement.
type BattleResult struct {
	AttackerWon   bool    `json:"attacker_won"`
	Attackers     Units   `json:"attacking_units"`      // survivors
	AttackersLost Units   `json:"attacking_units_lost"` // casualties
	Defenders     Units   `json:"defending_units"`
	DefendersLost Units   `json:"defending_units_lost"`
	Luck          float64 `json:"luck"`
}

// Simulate resolves an engagement between the aggregate attacking and
// defending forces. Luck in [-0.25, 0.25] scales the attacker's power.
// The function is deterministic for a given input; all intermediate
// arithmetic is double precision with integer rounding only at count
// assignment.
func Simulate(attackers, defenders Units, luck float64) BattleResult {
	att := attackers
	def := defenders

	attackerAlive := !att.IsZero()
	defenderAlive := !def.IsZero()

	for attackerAlive && defenderAlive {
		// Offense split by class.
		var meleeAttack, rangedAttack float64
		for _, k := range UnitKinds() {
			n := att.Count(k)
			if n == 0 {
				continue
			}
			power := float64(n * UnitAttack(k))
			switch UnitClassOf(k) {
			case ClassMelee:
				meleeAttack += power
			case ClassRanged:
				rangedAttack += power
			}
		}
		meleeAttack *= 1 + luck
		rangedAttack *= 1 + luck

		totalAttack := meleeAttack + rangedAttack
		if totalAttack <= 0 {
			attackerAlive = false
			break
		}
		meleePct := meleeAttack / totalAttack
		rangedPct := rangedAttack / totalAttack

		// Defenders split proportionally against each attack class.
		var meleeDefense, rangedDefense float64
		type defSplit struct{ melee, ranged float64 }
		splits := make(map[UnitKind]defSplit)
		for _, k := range UnitKinds() {
			n := def.Count(k)
			if n == 0 {
				continue
			}
			dm, dr := UnitDefense(k)
			meleeUnits := float64(n) * meleePct
			rangedUnits := float64(n) * rangedPct
			meleeDefense += meleeUnits * float64(dm)
			rangedDefense += rangedUnits * float64(dr)
			splits[k] = defSplit{melee: meleeUnits, ranged: rangedUnits}
		}

		meleeAttLoss, meleeDefLoss := resolveClash(meleeAttack, meleeDefense)
		rangedAttLoss, rangedDefLoss := resolveClash(rangedAttack, rangedDefense)

		// Attacker casualties by class.
		for _, k := range UnitKinds() {
			n := att.Count(k)
			if n == 0 {
				continue
			}
			var ratio float64
			switch UnitClassOf(k) {
			case ClassMelee:
				ratio = meleeAttLoss
			case ClassRanged:
				ratio = rangedAttLoss
			}
			lost := int(math.Round(float64(n) * ratio))
			if lost > n {
				lost = n
			}
			att.Set(k, n-lost)
		}

		// Defender casualties from both clashes, clamped per kind.
		for k, split := range splits {
			n := def.Count(k)
			if n == 0 {
				continue
			}
			losses := split.melee*meleeDefLoss + split.ranged*rangedDefLoss
			if losses > float64(n) {
				losses = float64(n)
			}
			lost := int(math.Round(losses))
			def.Set(k, n-lost)
		}

		attackerAlive = !att.IsZero()
		defenderAlive = !def.IsZero()
	}

	return BattleResult{
		AttackerWon:   attackerAlive && !defenderAlive,
		Attackers:     att,
		AttackersLost: attackers.Minus(att),
		Defenders:     def,
		DefendersLost: defenders.Minus(def),
		Luck:          luck,
	}
}

// resolveClash resolves one attack-class engagement, returning the loss
// ratios for attacker and defender. The weaker side is wiped out; the
// stronger side loses (weaker/stronger)^1.5 of its engaged units.
func resolveClash(attack, defense float64) (attackerLoss, defenderLoss float64) {
	if attack <= 0 {
		return 0, 0
	}
	switch {
	case attack > defense:
		ratio := defense / attack
		return ratio * math.Sqrt(ratio), 1.0
	case defense > attack:
		ratio := attack / defense
		return 1.0, ratio * math.Sqrt(ratio)
	default:
		return 1.0, 1.0
	}
}

// LossRatios returns the per-kind loss ratio given the total and lost
// unit sets. Kinds absent from total have ratio zero.
func LossRatios(total, lost Units) map[UnitKind]float64 {
	ratios := make(map[UnitKind]float64, len(UnitKinds()))
	for _, k := range UnitKinds() {
		if n := total.Count(k); n > 0 {
			ratios[k] = float64(lost.Count(k)) / float64(n)
		} else {
			ratios[k] = 0
		}
	}
	return ratios
}

// ApplyLossRatios returns the units lost from a contingent given
// per-kind loss ratios, rounding each kind independently.
func ApplyLossRatios(contingent Units, ratios map[UnitKind]float64) Units {
	var lost Units
	for _, k := range UnitKinds() {
		n := contingent.Count(k)
		if n == 0 {
			continue
		}
		l := int(math.Round(float64(n) * ratios[k]))
		if l > n {
			l = n
		}
		lost.Set(k, l)
	}
	return lost
}

// LoyaltyDamage returns the loyalty points removed by a successful
// noble-bearing attack: 20 at worst luck, 35 at best.
func LoyaltyDamage(luck float64) int {
	return 20 + int(math.Round((luck+0.25)*2*15))
}
