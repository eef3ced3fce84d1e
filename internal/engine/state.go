package engine

import (
	"slices"

	"github.com/talgya/pantheon/internal/civilization"
	"github.com/talgya/pantheon/internal/diplomacy"
	"github.com/talgya/pantheon/internal/progression"
	"github.com/talgya/pantheon/internal/religion"
	"github.com/talgya/pantheon/internal/roles"
)

// State is a plain, serializable copy of the whole world.
type State struct {
	Tick          uint64             `json:"tick"`
	Roles         roles.State        `json:"roles"`
	Religions     religion.State     `json:"religions"`
	Civilizations civilization.State `json:"civilizations"`
	Diplomacy     diplomacy.State    `json:"diplomacy"`
	Ledger        progression.State  `json:"ledger"`
	Events        []Event            `json:"events"`
}

// Snapshot copies the world.
func (w *World) Snapshot() State {
	return State{
		Tick:          w.LastTick,
		Roles:         w.Roles.Snapshot(),
		Religions:     w.Religions.Snapshot(),
		Civilizations: w.Civilizations.Snapshot(),
		Diplomacy:     w.Diplomacy.Snapshot(),
		Ledger:        w.Ledger.Snapshot(),
		Events:        slices.Clone(w.Events),
	}
}

// Restore replaces the world with s, then reconciles civilizations in case the
// saved state predates a religion deletion.
func (w *World) Restore(s State) {
	w.LastTick = s.Tick
	w.Roles.Restore(s.Roles)
	w.Religions.Restore(s.Religions)
	w.Civilizations.Restore(s.Civilizations)
	w.Diplomacy.Restore(s.Diplomacy)
	w.Ledger.Restore(s.Ledger)
	w.Events = slices.Clone(s.Events)
	w.terminate(w.Civilizations.ReconcileOrphans())
	w.Audit()
}
