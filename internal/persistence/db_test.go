package persistence

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/pantheon/internal/civilization"
	"github.com/talgya/pantheon/internal/diplomacy"
	"github.com/talgya/pantheon/internal/engine"
	"github.com/talgya/pantheon/internal/religion"
	"github.com/talgya/pantheon/internal/social"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "pantheon.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// populatedWorld builds a world touching every table.
func populatedWorld(t *testing.T) *engine.World {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	w := engine.NewWorld(func() time.Time { return now }, func() string {
		n++
		return fmt.Sprintf("id-%03d", n)
	})

	r1, err := w.Religions.Create(religion.CreateInput{Name: "Emberkin", Domain: social.DomainCraft, Founder: "p1",
		Description: "keepers of the forge"})
	require.NoError(t, err)
	r2, err := w.Religions.Create(religion.CreateInput{Name: "Warborn", Domain: social.DomainWar, Founder: "p2",
		Visibility: social.Private})
	require.NoError(t, err)
	_, err = w.Religions.Join(r1.ID, "p3")
	require.NoError(t, err)
	_, err = w.Roles.CreateRole(r1.ID, "p1", "Elder")
	require.NoError(t, err)
	_, err = w.Religions.Ban(r1.ID, "p1", "p4", "griefing", 3)
	require.NoError(t, err)
	_, _, err = w.Religions.Invite(r2.ID, "p2", "p5")
	require.NoError(t, err)
	_, err = w.Religions.Leave(r1.ID, "p3")
	require.NoError(t, err)

	_, err = w.Ledger.AddFavor("p1", 120)
	require.NoError(t, err)
	_, err = w.Ledger.AddPrestige(r1.ID, 700)
	require.NoError(t, err)
	_, err = w.Ledger.AddPrestige(r2.ID, 700)
	require.NoError(t, err)

	c1, err := w.Civilizations.Create(civilization.CreateInput{Name: "Ironpact", FounderPlayer: "p1", FounderReligion: r1.ID})
	require.NoError(t, err)
	c2, err := w.Civilizations.Create(civilization.CreateInput{Name: "Bloodoath", FounderPlayer: "p2", FounderReligion: r2.ID})
	require.NoError(t, err)
	p, _, err := w.Diplomacy.Propose(c1.ID, c2.ID, diplomacy.NonAggressionPact, "p1")
	require.NoError(t, err)
	_, _, err = w.Diplomacy.Accept(p.ID, "p2")
	require.NoError(t, err)
	_, _, err = w.Diplomacy.ScheduleBreak(c1.ID, c2.ID, "p1")
	require.NoError(t, err)

	w.Record("religion", "Emberkin founded", "religion", "id-001")
	w.LastTick = 4242
	return w
}

func TestHasState(t *testing.T) {
	db := openTestDB(t)
	ok, err := db.HasState()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.SaveState(engine.NewWorld(nil, nil).Snapshot()))
	ok, err = db.HasState()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	db := openTestDB(t)
	w := populatedWorld(t)
	want := w.Snapshot()

	require.NoError(t, db.SaveState(want))
	got, err := db.LoadState()
	require.NoError(t, err)

	assert.Equal(t, want.Tick, got.Tick)
	assert.Equal(t, want.Roles, got.Roles)
	assert.Equal(t, want.Religions, got.Religions)
	assert.Equal(t, want.Civilizations, got.Civilizations)
	assert.Equal(t, want.Diplomacy, got.Diplomacy)
	assert.Equal(t, want.Ledger, got.Ledger)
	require.Len(t, got.Events, len(want.Events))
	assert.Equal(t, want.Events[0].Description, got.Events[0].Description)
	assert.Equal(t, "id-001", got.Events[0].Meta["religion"])

	restored := engine.NewWorld(nil, nil)
	restored.Restore(got)
	assert.Empty(t, restored.Audit())
}

func TestSaveReplacesPreviousSnapshot(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.SaveState(populatedWorld(t).Snapshot()))

	empty := engine.NewWorld(nil, nil).Snapshot()
	empty.Tick = 7
	require.NoError(t, db.SaveState(empty))

	got, err := db.LoadState()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got.Tick)
	assert.Empty(t, got.Religions.Religions)
	assert.Empty(t, got.Roles)
	assert.Empty(t, got.Diplomacy.Relations)
	assert.Empty(t, got.Ledger.Players)
}

func TestSaveStateRecordsTick(t *testing.T) {
	db := openTestDB(t)
	w := engine.NewWorld(nil, nil)
	w.LastTick = 41
	require.NoError(t, db.SaveState(w.Snapshot()))
	w.LastTick = 42
	require.NoError(t, db.SaveState(w.Snapshot()))

	v, err := db.GetMeta("tick")
	require.NoError(t, err)
	assert.Equal(t, "42", v)
	tick, err := db.SavedTick()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), tick)
}
