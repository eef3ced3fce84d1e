package engine

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/pantheon/internal/civilization"
	"github.com/talgya/pantheon/internal/diplomacy"
	"github.com/talgya/pantheon/internal/social"
)

// CivilizationEffect says what disbanding a religion did to its civilization.
// It is one of NoCivilization, LeftCivilization or DissolvedCivilization.
type CivilizationEffect interface {
	civilizationEffect()
}

// NoCivilization means the religion belonged to no civilization.
type NoCivilization struct{}

// LeftCivilization means the religion was pruned and the civilization survives.
type LeftCivilization struct {
	Civilization social.Civilization
}

// DissolvedCivilization means the civilization was dissolved and its
// relations terminated.
type DissolvedCivilization struct {
	Civilization social.Civilization
	Reason       string
}

func (NoCivilization) civilizationEffect()        {}
func (LeftCivilization) civilizationEffect()      {}
func (DissolvedCivilization) civilizationEffect() {}

// ReligionDisbanded is the combined result of DisbandReligion.
type ReligionDisbanded struct {
	Religion     social.Religion
	Evicted      []social.PlayerID
	Civilization CivilizationEffect
	Notices      []social.Notice
}

// DisbandReligion disbands a religion and then, before returning, forgets its
// prestige, reconciles civilizations and ends the diplomacy of any civilization
// that dissolved as a result.
func (w *World) DisbandReligion(id social.ReligionID, actor social.PlayerID) (ReligionDisbanded, error) {
	civID, inCiv := w.Civilizations.CivilizationOf(id)

	d, err := w.Religions.Disband(id, actor)
	if err != nil {
		return ReligionDisbanded{}, err
	}
	w.Ledger.ForgetReligion(id)
	dissolved := w.Civilizations.ReconcileOrphans()

	out := ReligionDisbanded{
		Religion:     d.Religion,
		Evicted:      d.Evicted,
		Civilization: NoCivilization{},
		Notices:      d.Notices,
	}
	if inCiv {
		out.Civilization = w.civilizationEffect(civID, dissolved)
	}
	out.Notices = append(out.Notices, w.terminate(dissolved)...)

	w.Record("religion", fmt.Sprintf("%s disbanded", d.Religion.Name),
		"religion", id, "actor", actor, "evicted", len(d.Evicted))
	return out, nil
}

func (w *World) civilizationEffect(civID social.CivilizationID, dissolved []civilization.Disbanded) CivilizationEffect {
	for _, d := range dissolved {
		if d.Civilization.ID == civID {
			return DissolvedCivilization{Civilization: d.Civilization, Reason: d.Reason}
		}
	}
	if civ, ok := w.Civilizations.Get(civID); ok {
		return LeftCivilization{Civilization: civ}
	}
	err := social.Errorf(social.CodeInternalInconsistency, []string{"civilization", string(civID)},
		"civilization %s vanished outside reconciliation", civID)
	slog.Error("internal inconsistency", "error", err)
	return NoCivilization{}
}

// DisbandCivilization dissolves a civilization and ends its diplomacy.
func (w *World) DisbandCivilization(id social.CivilizationID, actor social.PlayerID) (civilization.Disbanded, error) {
	d, err := w.Civilizations.Disband(id, actor)
	if err != nil {
		return civilization.Disbanded{}, err
	}
	d.Notices = append(d.Notices, w.Diplomacy.TerminateCivilization(id)...)
	w.Record("civilization", fmt.Sprintf("%s disbanded", d.Civilization.Name), "civilization", id, "actor", actor)
	return d, nil
}

// Kill rewards before the war multiplier.
const (
	KillFavor    = 10
	KillPrestige = 5
)

// KillOutcome says how a PvP kill was settled. It is one of KillIgnored,
// KillRewarded or TreatyViolated.
type KillOutcome interface {
	killOutcome()
}

// KillIgnored means the kill earned nothing.
type KillIgnored struct {
	Reason string
}

// KillRewarded reports the favor and prestige credited to the killer.
type KillRewarded struct {
	Favor      int
	Prestige   int
	Multiplier float64
}

// TreatyViolated means the kill broke a pact or alliance and earned nothing.
type TreatyViolated struct {
	Violation diplomacy.Violation
	Notices   []social.Notice
}

func (KillIgnored) killOutcome()    {}
func (KillRewarded) killOutcome()   {}
func (TreatyViolated) killOutcome() {}

// RecordPvPKill settles rewards for killer. Kills between civilizations at war
// pay diplomacy.WarRewardMultiplier; kills under a pact or alliance count as
// treaty violations instead of paying.
func (w *World) RecordPvPKill(killer, victim social.PlayerID) (KillOutcome, error) {
	if killer == "" || victim == "" {
		return nil, social.Errorf(social.CodeInvalidInput, nil, "killer and victim are required")
	}
	if killer == victim {
		return KillIgnored{Reason: "self"}, nil
	}
	kRel, kOK := w.Religions.ReligionOf(killer)
	vRel, vOK := w.Religions.ReligionOf(victim)
	if kOK && vOK && kRel == vRel {
		return KillIgnored{Reason: "same religion"}, nil
	}

	multiplier := 1.0
	if kOK && vOK {
		kCiv, kIn := w.Civilizations.CivilizationOf(kRel)
		vCiv, vIn := w.Civilizations.CivilizationOf(vRel)
		if kIn && vIn {
			if kCiv == vCiv {
				return KillIgnored{Reason: "same civilization"}, nil
			}
			if w.Diplomacy.StatusOf(kCiv, vCiv).Treaty() {
				v, notices, err := w.Diplomacy.RecordViolation(kCiv, vCiv)
				if err != nil {
					return nil, err
				}
				w.Record("diplomacy", "treaty violated", "killer", killer, "victim", victim,
					"violations", v.Relation.Violations, "auto_broken", v.AutoBroken)
				return TreatyViolated{Violation: v, Notices: notices}, nil
			}
			multiplier = w.Diplomacy.RewardMultiplier(kCiv, vCiv)
		}
	}

	out := KillRewarded{
		Favor:      int(math.Round(KillFavor * multiplier)),
		Multiplier: multiplier,
	}
	if _, err := w.Ledger.AddFavor(killer, out.Favor); err != nil {
		return nil, err
	}
	if kOK {
		out.Prestige = int(math.Round(KillPrestige * multiplier))
		if _, err := w.Ledger.AddPrestige(kRel, out.Prestige); err != nil {
			return nil, err
		}
	}
	w.Record("progression", "pvp kill rewarded", "killer", killer, "victim", victim,
		"favor", out.Favor, "prestige", out.Prestige, "multiplier", multiplier)
	return out, nil
}

// SweepReport summarizes one sweep.
type SweepReport struct {
	Removed   int
	Dissolved []social.CivilizationID
	Notices   []social.Notice
}

// Sweep applies every time-based transition: expired invitations, bans and
// proposals are dropped, lapsed pacts and due breaks return to Neutral, and
// orphaned civilizations are reconciled.
func (w *World) Sweep() SweepReport {
	var r SweepReport
	r.Removed += w.Religions.Sweep()
	r.Removed += w.Civilizations.Sweep()
	removed, notices := w.Diplomacy.Sweep()
	r.Removed += removed
	r.Notices = append(r.Notices, notices...)

	dissolved := w.Civilizations.ReconcileOrphans()
	for _, d := range dissolved {
		r.Dissolved = append(r.Dissolved, d.Civilization.ID)
	}
	r.Notices = append(r.Notices, w.terminate(dissolved)...)

	if r.Removed > 0 || len(r.Dissolved) > 0 {
		slog.Info("sweep", "tick", w.LastTick, "removed", r.Removed, "dissolved", len(r.Dissolved))
		w.Record("sweep", fmt.Sprintf("swept %d expired records", r.Removed),
			"removed", r.Removed, "dissolved", len(r.Dissolved))
	}
	return r
}
