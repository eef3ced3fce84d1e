// World ties the registries together and runs the cross-registry cascades.
package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/pantheon/internal/civilization"
	"github.com/talgya/pantheon/internal/diplomacy"
	"github.com/talgya/pantheon/internal/progression"
	"github.com/talgya/pantheon/internal/religion"
	"github.com/talgya/pantheon/internal/roles"
	"github.com/talgya/pantheon/internal/social"
)

// MaxEvents bounds the in-memory event log.
const MaxEvents = 1000

// World holds every registry. All access must happen on the engine goroutine.
type World struct {
	Roles         *roles.Registry
	Religions     *religion.Registry
	Civilizations *civilization.Registry
	Diplomacy     *diplomacy.Engine
	Ledger        *progression.Ledger

	Events   []Event // Recent events, oldest first
	LastTick uint64  // Most recent tick processed

	now func() time.Time
}

// Event is a notable committed change.
type Event struct {
	Tick        uint64         `json:"tick"`
	Time        time.Time      `json:"time"`
	Description string         `json:"description"`
	Category    string         `json:"category"` // "religion", "civilization", "diplomacy", "progression", "sweep"
	Meta        map[string]any `json:"meta,omitempty"`
}

// NewWorld wires empty registries together. Nil now or newID fall back to
// the wall clock and random ids.
func NewWorld(now func() time.Time, newID func() string) *World {
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = social.NewID
	}
	w := &World{
		Roles:  roles.NewRegistry(),
		Ledger: progression.NewLedger(),
		now:    now,
	}
	w.Religions = religion.NewRegistry(w.Roles, w.Ledger)
	w.Civilizations = civilization.NewRegistry(w.Religions)
	w.Diplomacy = diplomacy.NewEngine(w.Civilizations, w.Ledger)

	w.Roles.Now, w.Roles.NewID = now, newID
	w.Religions.Now, w.Religions.NewID = now, newID
	w.Civilizations.Now, w.Civilizations.NewID = now, newID
	w.Diplomacy.Now, w.Diplomacy.NewID = now, newID
	return w
}

// EmitEvent appends to the event log, dropping the oldest entries past MaxEvents.
func (w *World) EmitEvent(e Event) {
	if e.Tick == 0 {
		e.Tick = w.LastTick
	}
	if e.Time.IsZero() {
		e.Time = w.now().UTC()
	}
	w.Events = append(w.Events, e)
	if len(w.Events) > MaxEvents {
		w.Events = w.Events[len(w.Events)-MaxEvents:]
	}
}

// Record emits an event built from a category, description and key/value meta.
func (w *World) Record(category, description string, kv ...any) {
	var meta map[string]any
	if len(kv) > 1 {
		meta = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			meta[fmt.Sprint(kv[i])] = kv[i+1]
		}
	}
	w.EmitEvent(Event{Description: description, Category: category, Meta: meta})
}

// RecentEvents returns up to n of the newest events, newest last.
func (w *World) RecentEvents(n int) []Event {
	if n <= 0 || n > len(w.Events) {
		n = len(w.Events)
	}
	out := make([]Event, n)
	copy(out, w.Events[len(w.Events)-n:])
	return out
}

// terminate ends the diplomacy of dissolved civilizations.
func (w *World) terminate(dissolved []civilization.Disbanded) []social.Notice {
	var notices []social.Notice
	for _, d := range dissolved {
		notices = append(notices, d.Notices...)
		notices = append(notices, w.Diplomacy.TerminateCivilization(d.Civilization.ID)...)
		w.Record("civilization", fmt.Sprintf("%s dissolved (%s)", d.Civilization.Name, d.Reason),
			"civilization", d.Civilization.ID, "reason", d.Reason)
	}
	return notices
}

// Audit checks cross-registry invariants and logs every failure.
func (w *World) Audit() []error {
	var errs []error
	for _, rel := range w.Religions.List() {
		if err := w.Religions.Audit(rel.ID); err != nil {
			errs = append(errs, err)
		}
	}
	for _, civ := range w.Civilizations.List() {
		for _, m := range civ.Members {
			if _, ok := w.Religions.Lookup(m); !ok {
				errs = append(errs, social.Errorf(social.CodeInternalInconsistency, nil,
					"civilization %s lists missing religion %s", civ.ID, m))
			}
		}
	}
	for _, err := range errs {
		slog.Error("audit failed", "error", err)
	}
	return errs
}
