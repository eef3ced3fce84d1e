package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/talgya/pantheon/internal/diplomacy"
	"github.com/talgya/pantheon/internal/engine"
	"github.com/talgya/pantheon/internal/progression"
	"github.com/talgya/pantheon/internal/religion"
	"github.com/talgya/pantheon/internal/roles"
	"github.com/talgya/pantheon/internal/social"
)

// Times are stored as Unix nanoseconds; 0 is the zero time.
func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

type religionRow struct {
	ID          string `db:"id"`
	Name        string `db:"name"`
	Domain      string `db:"domain"`
	Visibility  string `db:"visibility"`
	FounderID   string `db:"founder_id"`
	Description string `db:"description"`
	CreatedAt   int64  `db:"created_at"`
	Members     string `db:"members_json"`
	Bans        string `db:"bans_json"`
}

type roleBookRow struct {
	ReligionID  string `db:"religion_id"`
	Roles       string `db:"roles_json"`
	Assignments string `db:"assignments_json"`
}

type inviteRow struct {
	ID        string `db:"id"`
	PlayerID  string `db:"player_id"`
	Religion  string `db:"religion_id"`
	InviterID string `db:"inviter_id"`
	IssuedAt  int64  `db:"issued_at"`
	ExpiresAt int64  `db:"expires_at"`
}

type civilizationRow struct {
	ID              string `db:"id"`
	Name            string `db:"name"`
	FounderReligion string `db:"founder_religion_id"`
	Description     string `db:"description"`
	CreatedAt       int64  `db:"created_at"`
	Members         string `db:"members_json"`
}

type civInviteRow struct {
	ID           string `db:"id"`
	Religion     string `db:"religion_id"`
	Civilization string `db:"civilization_id"`
	InviterID    string `db:"inviter_id"`
	IssuedAt     int64  `db:"issued_at"`
	ExpiresAt    int64  `db:"expires_at"`
}

type relationRow struct {
	A             string `db:"civ_a"`
	B             string `db:"civ_b"`
	Status        string `db:"status"`
	EstablishedAt int64  `db:"established_at"`
	ExpiresAt     int64  `db:"expires_at"`
	Violations    int    `db:"violations"`
	BreakAt       int64  `db:"break_at"`
	BreakBy       string `db:"break_by"`
}

type proposalRow struct {
	ID         string `db:"id"`
	From       string `db:"from_civ"`
	To         string `db:"to_civ"`
	Status     string `db:"status"`
	ProposerID string `db:"proposer_id"`
	IssuedAt   int64  `db:"issued_at"`
	ExpiresAt  int64  `db:"expires_at"`
}

type accountRow struct {
	ID     string `db:"id"`
	Amount int    `db:"amount"`
	Total  int    `db:"total"`
}

type eventRow struct {
	Tick        uint64 `db:"tick"`
	Time        int64  `db:"time"`
	Description string `db:"description"`
	Category    string `db:"category"`
	Meta        string `db:"meta_json"`
}

var snapshotTables = []string{
	"religions", "role_books", "religion_invites", "departed_players",
	"civilizations", "civilization_invites", "relations", "proposals",
	"favor", "prestige", "events",
}

// SaveState writes a full snapshot, replacing the previous one in a single
// transaction.
func (db *DB) SaveState(s engine.State) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range snapshotTables {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	steps := []struct {
		name string
		fn   func(*sqlx.Tx, engine.State) error
	}{
		{"religions", saveReligions},
		{"role books", saveRoleBooks},
		{"civilizations", saveCivilizations},
		{"diplomacy", saveDiplomacy},
		{"ledger", saveLedger},
		{"events", saveEvents},
	}
	for _, step := range steps {
		if err := step.fn(tx, s); err != nil {
			return fmt.Errorf("save %s: %w", step.name, err)
		}
	}

	if err := saveMeta(tx, "tick", strconv.FormatUint(s.Tick, 10)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	slog.Info("world state saved", "tick", s.Tick,
		"religions", len(s.Religions.Religions), "civilizations", len(s.Civilizations.Civilizations))
	return nil
}

func saveReligions(tx *sqlx.Tx, s engine.State) error {
	for _, r := range s.Religions.Religions {
		members, err := json.Marshal(r.Members)
		if err != nil {
			return err
		}
		bans, err := json.Marshal(r.Bans)
		if err != nil {
			return err
		}
		if _, err := tx.NamedExec(`INSERT INTO religions
			(id, name, domain, visibility, founder_id, description, created_at, members_json, bans_json)
			VALUES (:id, :name, :domain, :visibility, :founder_id, :description, :created_at, :members_json, :bans_json)`,
			religionRow{
				ID:          string(r.ID),
				Name:        r.Name,
				Domain:      r.Domain.String(),
				Visibility:  r.Visibility.String(),
				FounderID:   string(r.FounderID),
				Description: r.Description,
				CreatedAt:   toNanos(r.CreatedAt),
				Members:     string(members),
				Bans:        string(bans),
			}); err != nil {
			return err
		}
	}
	for _, inv := range s.Religions.Invites {
		if _, err := tx.NamedExec(`INSERT INTO religion_invites
			(id, player_id, religion_id, inviter_id, issued_at, expires_at)
			VALUES (:id, :player_id, :religion_id, :inviter_id, :issued_at, :expires_at)`,
			inviteRow{
				ID:        string(inv.ID),
				PlayerID:  string(inv.PlayerID),
				Religion:  string(inv.ReligionID),
				InviterID: string(inv.InviterID),
				IssuedAt:  toNanos(inv.IssuedAt),
				ExpiresAt: toNanos(inv.ExpiresAt),
			}); err != nil {
			return err
		}
	}
	for _, p := range s.Religions.Departed {
		if _, err := tx.Exec("INSERT INTO departed_players (player_id) VALUES (?)", string(p)); err != nil {
			return err
		}
	}
	return nil
}

func saveRoleBooks(tx *sqlx.Tx, s engine.State) error {
	for id, book := range s.Roles {
		rolesJSON, err := json.Marshal(book.Roles)
		if err != nil {
			return err
		}
		assignments, err := json.Marshal(book.Assignments)
		if err != nil {
			return err
		}
		if _, err := tx.Exec("INSERT INTO role_books (religion_id, roles_json, assignments_json) VALUES (?, ?, ?)",
			string(id), string(rolesJSON), string(assignments)); err != nil {
			return err
		}
	}
	return nil
}

func saveCivilizations(tx *sqlx.Tx, s engine.State) error {
	for _, c := range s.Civilizations.Civilizations {
		members, err := json.Marshal(c.Members)
		if err != nil {
			return err
		}
		if _, err := tx.NamedExec(`INSERT INTO civilizations
			(id, name, founder_religion_id, description, created_at, members_json)
			VALUES (:id, :name, :founder_religion_id, :description, :created_at, :members_json)`,
			civilizationRow{
				ID:              string(c.ID),
				Name:            c.Name,
				FounderReligion: string(c.FounderReligionID),
				Description:     c.Description,
				CreatedAt:       toNanos(c.CreatedAt),
				Members:         string(members),
			}); err != nil {
			return err
		}
	}
	for _, inv := range s.Civilizations.Invites {
		if _, err := tx.NamedExec(`INSERT INTO civilization_invites
			(id, religion_id, civilization_id, inviter_id, issued_at, expires_at)
			VALUES (:id, :religion_id, :civilization_id, :inviter_id, :issued_at, :expires_at)`,
			civInviteRow{
				ID:           string(inv.ID),
				Religion:     string(inv.ReligionID),
				Civilization: string(inv.CivilizationID),
				InviterID:    string(inv.InviterID),
				IssuedAt:     toNanos(inv.IssuedAt),
				ExpiresAt:    toNanos(inv.ExpiresAt),
			}); err != nil {
			return err
		}
	}
	return nil
}

func saveDiplomacy(tx *sqlx.Tx, s engine.State) error {
	for _, rel := range s.Diplomacy.Relations {
		if _, err := tx.NamedExec(`INSERT INTO relations
			(civ_a, civ_b, status, established_at, expires_at, violations, break_at, break_by)
			VALUES (:civ_a, :civ_b, :status, :established_at, :expires_at, :violations, :break_at, :break_by)`,
			relationRow{
				A:             string(rel.Pair.A),
				B:             string(rel.Pair.B),
				Status:        rel.Status.String(),
				EstablishedAt: toNanos(rel.EstablishedAt),
				ExpiresAt:     toNanos(rel.ExpiresAt),
				Violations:    rel.Violations,
				BreakAt:       toNanos(rel.BreakAt),
				BreakBy:       string(rel.BreakBy),
			}); err != nil {
			return err
		}
	}
	for _, p := range s.Diplomacy.Proposals {
		if _, err := tx.NamedExec(`INSERT INTO proposals
			(id, from_civ, to_civ, status, proposer_id, issued_at, expires_at)
			VALUES (:id, :from_civ, :to_civ, :status, :proposer_id, :issued_at, :expires_at)`,
			proposalRow{
				ID:         string(p.ID),
				From:       string(p.From),
				To:         string(p.To),
				Status:     p.Status.String(),
				ProposerID: string(p.ProposerID),
				IssuedAt:   toNanos(p.IssuedAt),
				ExpiresAt:  toNanos(p.ExpiresAt),
			}); err != nil {
			return err
		}
	}
	return nil
}

func saveLedger(tx *sqlx.Tx, s engine.State) error {
	for p, acct := range s.Ledger.Players {
		if _, err := tx.Exec("INSERT INTO favor (player_id, favor, total) VALUES (?, ?, ?)",
			string(p), acct.Favor, acct.Total); err != nil {
			return err
		}
	}
	for r, acct := range s.Ledger.Religions {
		if _, err := tx.Exec("INSERT INTO prestige (religion_id, prestige, total) VALUES (?, ?, ?)",
			string(r), acct.Prestige, acct.Total); err != nil {
			return err
		}
	}
	return nil
}

func saveEvents(tx *sqlx.Tx, s engine.State) error {
	for _, e := range s.Events {
		meta := ""
		if len(e.Meta) > 0 {
			b, err := json.Marshal(e.Meta)
			if err != nil {
				return err
			}
			meta = string(b)
		}
		if _, err := tx.Exec("INSERT INTO events (tick, time, description, category, meta_json) VALUES (?, ?, ?, ?, ?)",
			e.Tick, toNanos(e.Time), e.Description, e.Category, meta); err != nil {
			return err
		}
	}
	return nil
}

// LoadState reads the last saved snapshot.
func (db *DB) LoadState() (engine.State, error) {
	var s engine.State
	tick, err := db.SavedTick()
	if err != nil {
		return s, fmt.Errorf("load tick: %w", err)
	}
	s.Tick = tick

	steps := []struct {
		name string
		fn   func(*engine.State) error
	}{
		{"religions", db.loadReligions},
		{"role books", db.loadRoleBooks},
		{"civilizations", db.loadCivilizations},
		{"diplomacy", db.loadDiplomacy},
		{"ledger", db.loadLedger},
		{"events", db.loadEvents},
	}
	for _, step := range steps {
		if err := step.fn(&s); err != nil {
			return engine.State{}, fmt.Errorf("load %s: %w", step.name, err)
		}
	}

	slog.Info("world state loaded", "tick", s.Tick,
		"religions", len(s.Religions.Religions), "civilizations", len(s.Civilizations.Civilizations))
	return s, nil
}

func (db *DB) loadReligions(s *engine.State) error {
	var rows []religionRow
	if err := db.conn.Select(&rows, "SELECT * FROM religions ORDER BY id"); err != nil {
		return err
	}
	for _, row := range rows {
		rec := religion.Record{
			ID:          social.ReligionID(row.ID),
			Name:        row.Name,
			FounderID:   social.PlayerID(row.FounderID),
			Description: row.Description,
			CreatedAt:   fromNanos(row.CreatedAt),
		}
		if err := rec.Domain.UnmarshalText([]byte(row.Domain)); err != nil {
			return err
		}
		if err := rec.Visibility.UnmarshalText([]byte(row.Visibility)); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(row.Members), &rec.Members); err != nil {
			return fmt.Errorf("religion %s members: %w", row.ID, err)
		}
		if err := json.Unmarshal([]byte(row.Bans), &rec.Bans); err != nil {
			return fmt.Errorf("religion %s bans: %w", row.ID, err)
		}
		s.Religions.Religions = append(s.Religions.Religions, rec)
	}

	var invites []inviteRow
	if err := db.conn.Select(&invites, "SELECT * FROM religion_invites ORDER BY id"); err != nil {
		return err
	}
	for _, row := range invites {
		s.Religions.Invites = append(s.Religions.Invites, social.Invitation{
			ID:         social.InviteID(row.ID),
			PlayerID:   social.PlayerID(row.PlayerID),
			ReligionID: social.ReligionID(row.Religion),
			InviterID:  social.PlayerID(row.InviterID),
			IssuedAt:   fromNanos(row.IssuedAt),
			ExpiresAt:  fromNanos(row.ExpiresAt),
		})
	}

	var departed []string
	if err := db.conn.Select(&departed, "SELECT player_id FROM departed_players ORDER BY player_id"); err != nil {
		return err
	}
	for _, p := range departed {
		s.Religions.Departed = append(s.Religions.Departed, social.PlayerID(p))
	}
	return nil
}

func (db *DB) loadRoleBooks(s *engine.State) error {
	var rows []roleBookRow
	if err := db.conn.Select(&rows, "SELECT * FROM role_books"); err != nil {
		return err
	}
	s.Roles = make(roles.State, len(rows))
	for _, row := range rows {
		var book roles.Book
		if err := json.Unmarshal([]byte(row.Roles), &book.Roles); err != nil {
			return fmt.Errorf("roles of %s: %w", row.ReligionID, err)
		}
		if err := json.Unmarshal([]byte(row.Assignments), &book.Assignments); err != nil {
			return fmt.Errorf("assignments of %s: %w", row.ReligionID, err)
		}
		s.Roles[social.ReligionID(row.ReligionID)] = book
	}
	return nil
}

func (db *DB) loadCivilizations(s *engine.State) error {
	var rows []civilizationRow
	if err := db.conn.Select(&rows, "SELECT * FROM civilizations ORDER BY id"); err != nil {
		return err
	}
	for _, row := range rows {
		c := social.Civilization{
			ID:                social.CivilizationID(row.ID),
			Name:              row.Name,
			FounderReligionID: social.ReligionID(row.FounderReligion),
			Description:       row.Description,
			CreatedAt:         fromNanos(row.CreatedAt),
		}
		if err := json.Unmarshal([]byte(row.Members), &c.Members); err != nil {
			return fmt.Errorf("civilization %s members: %w", row.ID, err)
		}
		s.Civilizations.Civilizations = append(s.Civilizations.Civilizations, c)
	}

	var invites []civInviteRow
	if err := db.conn.Select(&invites, "SELECT * FROM civilization_invites ORDER BY id"); err != nil {
		return err
	}
	for _, row := range invites {
		s.Civilizations.Invites = append(s.Civilizations.Invites, social.CivilizationInvite{
			ID:             social.InviteID(row.ID),
			ReligionID:     social.ReligionID(row.Religion),
			CivilizationID: social.CivilizationID(row.Civilization),
			InviterID:      social.PlayerID(row.InviterID),
			IssuedAt:       fromNanos(row.IssuedAt),
			ExpiresAt:      fromNanos(row.ExpiresAt),
		})
	}
	return nil
}

func (db *DB) loadDiplomacy(s *engine.State) error {
	var rows []relationRow
	if err := db.conn.Select(&rows, "SELECT * FROM relations ORDER BY civ_a, civ_b"); err != nil {
		return err
	}
	for _, row := range rows {
		rel := diplomacy.Relation{
			Pair:          diplomacy.NewPair(social.CivilizationID(row.A), social.CivilizationID(row.B)),
			EstablishedAt: fromNanos(row.EstablishedAt),
			ExpiresAt:     fromNanos(row.ExpiresAt),
			Violations:    row.Violations,
			BreakAt:       fromNanos(row.BreakAt),
			BreakBy:       social.CivilizationID(row.BreakBy),
		}
		if err := rel.Status.UnmarshalText([]byte(row.Status)); err != nil {
			return err
		}
		s.Diplomacy.Relations = append(s.Diplomacy.Relations, rel)
	}

	var proposals []proposalRow
	if err := db.conn.Select(&proposals, "SELECT * FROM proposals ORDER BY id"); err != nil {
		return err
	}
	for _, row := range proposals {
		p := diplomacy.Proposal{
			ID:         diplomacy.ProposalID(row.ID),
			From:       social.CivilizationID(row.From),
			To:         social.CivilizationID(row.To),
			ProposerID: social.PlayerID(row.ProposerID),
			IssuedAt:   fromNanos(row.IssuedAt),
			ExpiresAt:  fromNanos(row.ExpiresAt),
		}
		if err := p.Status.UnmarshalText([]byte(row.Status)); err != nil {
			return err
		}
		s.Diplomacy.Proposals = append(s.Diplomacy.Proposals, p)
	}
	return nil
}

func (db *DB) loadLedger(s *engine.State) error {
	var favor []accountRow
	if err := db.conn.Select(&favor, "SELECT player_id AS id, favor AS amount, total FROM favor"); err != nil {
		return err
	}
	s.Ledger.Players = make(map[social.PlayerID]progression.FavorAccount, len(favor))
	for _, row := range favor {
		s.Ledger.Players[social.PlayerID(row.ID)] = progression.FavorAccount{Favor: row.Amount, Total: row.Total}
	}

	var prestige []accountRow
	if err := db.conn.Select(&prestige, "SELECT religion_id AS id, prestige AS amount, total FROM prestige"); err != nil {
		return err
	}
	s.Ledger.Religions = make(map[social.ReligionID]progression.PrestigeAccount, len(prestige))
	for _, row := range prestige {
		s.Ledger.Religions[social.ReligionID(row.ID)] = progression.PrestigeAccount{Prestige: row.Amount, Total: row.Total}
	}
	return nil
}

func (db *DB) loadEvents(s *engine.State) error {
	var rows []eventRow
	if err := db.conn.Select(&rows,
		"SELECT tick, time, description, category, meta_json FROM events ORDER BY id"); err != nil {
		return err
	}
	for _, row := range rows {
		e := engine.Event{
			Tick:        row.Tick,
			Time:        fromNanos(row.Time),
			Description: row.Description,
			Category:    row.Category,
		}
		if row.Meta != "" {
			if err := json.Unmarshal([]byte(row.Meta), &e.Meta); err != nil {
				return fmt.Errorf("event meta: %w", err)
			}
		}
		s.Events = append(s.Events, e)
	}
	return nil
}
