// Package religion owns religion identity, membership, bans and invitations.
// Role and permission state lives in the roles registry, which this package
// consults for every permission-gated operation.
package religion

import (
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/talgya/pantheon/internal/progression"
	"github.com/talgya/pantheon/internal/roles"
	"github.com/talgya/pantheon/internal/social"
)

// Ledger is the slice of the progression ledger this registry needs.
type Ledger interface {
	ApplySwitchPenalty(p social.PlayerID) int
	Prestige(r social.ReligionID) progression.PrestigeAccount
}

// Registry holds every religion plus membership and invitation indexes.
type Registry struct {
	Now   func() time.Time
	NewID func() string

	roles  *roles.Registry
	ledger Ledger

	religions map[social.ReligionID]*Record
	names     map[string]social.ReligionID          // folded name → id
	members   map[social.PlayerID]social.ReligionID // player → religion
	invites   map[inviteKey]social.Invitation
	departed  map[social.PlayerID]bool // left or kicked since their last join
}

// Record is the stored form of one religion. Roles live in the roles registry.
type Record struct {
	ID          social.ReligionID                    `json:"id"`
	Name        string                               `json:"name"`
	Domain      social.Domain                        `json:"domain"`
	Visibility  social.Visibility                    `json:"visibility"`
	FounderID   social.PlayerID                      `json:"founder_id"`
	Description string                               `json:"description"`
	Members     []social.PlayerID                    `json:"members"`
	Bans        map[social.PlayerID]social.BanRecord `json:"bans"`
	CreatedAt   time.Time                            `json:"created_at"`
}

type inviteKey struct {
	player   social.PlayerID
	religion social.ReligionID
}

// NewRegistry creates an empty registry backed by the given role registry and ledger.
func NewRegistry(roleRegistry *roles.Registry, ledger Ledger) *Registry {
	return &Registry{
		Now:       time.Now,
		NewID:     social.NewID,
		roles:     roleRegistry,
		ledger:    ledger,
		religions: make(map[social.ReligionID]*Record),
		names:     make(map[string]social.ReligionID),
		members:   make(map[social.PlayerID]social.ReligionID),
		invites:   make(map[inviteKey]social.Invitation),
		departed:  make(map[social.PlayerID]bool),
	}
}

func (r *Registry) now() time.Time {
	return r.Now().UTC()
}

func (r *Registry) get(id social.ReligionID) (*Record, error) {
	rec, ok := r.religions[id]
	if !ok {
		return nil, social.Errorf(social.CodeReligionNotFound, []string{"religion", string(id)}, "religion %s not found", id)
	}
	return rec, nil
}

// Get returns a snapshot of a religion.
func (r *Registry) Get(id social.ReligionID) (social.Religion, bool) {
	rec, ok := r.religions[id]
	if !ok {
		return social.Religion{}, false
	}
	return r.view(rec), true
}

// FindByName looks a religion up by case-insensitive name.
func (r *Registry) FindByName(name string) (social.Religion, bool) {
	id, ok := r.names[social.FoldName(name)]
	if !ok {
		return social.Religion{}, false
	}
	return r.Get(id)
}

// List returns snapshots of every religion, sorted by name.
func (r *Registry) List() []social.Religion {
	out := make([]social.Religion, 0, len(r.religions))
	for _, rec := range r.religions {
		out = append(out, r.view(rec))
	}
	slices.SortFunc(out, func(a, b social.Religion) int {
		return strings.Compare(social.FoldName(a.Name), social.FoldName(b.Name))
	})
	return out
}

func (r *Registry) view(rec *Record) social.Religion {
	rel := social.Religion{
		ID:          rec.ID,
		Name:        rec.Name,
		Domain:      rec.Domain,
		Visibility:  rec.Visibility,
		FounderID:   rec.FounderID,
		Description: rec.Description,
		Members:     slices.Clone(rec.Members),
		MemberRoles: r.roles.Assignments(rec.ID),
		Roles:       make(map[social.RoleID]social.Role),
		Bans:        maps.Clone(rec.Bans),
		CreatedAt:   rec.CreatedAt,
	}
	for _, role := range r.roles.Roles(rec.ID) {
		rel.Roles[role.ID] = role
	}
	if r.ledger != nil {
		acct := r.ledger.Prestige(rec.ID)
		rel.Prestige, rel.TotalPrestige = acct.Prestige, acct.Total
	}
	return rel
}

// Lookup returns the identity fields other registries depend on.
func (r *Registry) Lookup(id social.ReligionID) (social.ReligionInfo, bool) {
	rec, ok := r.religions[id]
	if !ok {
		return social.ReligionInfo{}, false
	}
	return social.ReligionInfo{ID: rec.ID, Name: rec.Name, Domain: rec.Domain, FounderID: rec.FounderID}, true
}

// ReligionOf returns the religion a player belongs to.
func (r *Registry) ReligionOf(p social.PlayerID) (social.ReligionID, bool) {
	id, ok := r.members[p]
	return id, ok
}

// MembersOf returns a religion's member ids in join order.
func (r *Registry) MembersOf(id social.ReligionID) []social.PlayerID {
	rec, ok := r.religions[id]
	if !ok {
		return nil
	}
	return slices.Clone(rec.Members)
}

// InvitesFor lists a player's live invitations.
func (r *Registry) InvitesFor(p social.PlayerID) []social.Invitation {
	now := r.now()
	var out []social.Invitation
	for key, inv := range r.invites {
		if key.player == p && inv.Live(now) {
			out = append(out, inv)
		}
	}
	slices.SortFunc(out, func(a, b social.Invitation) int { return a.IssuedAt.Compare(b.IssuedAt) })
	return out
}

// Audit checks the founder and role invariants of one religion.
func (r *Registry) Audit(id social.ReligionID) error {
	rec, err := r.get(id)
	if err != nil {
		return err
	}
	assignments := r.roles.Assignments(id)
	if len(assignments) != len(rec.Members) {
		return social.Errorf(social.CodeInternalInconsistency, nil,
			"religion %s has %d members but %d role assignments", id, len(rec.Members), len(assignments))
	}
	for _, p := range rec.Members {
		if _, err := r.roles.RoleOf(id, p); err != nil {
			return err
		}
	}
	if assignments[rec.FounderID] != social.FounderRoleID {
		return social.Errorf(social.CodeInternalInconsistency, nil,
			"founder %s of %s does not hold the founder role", rec.FounderID, id)
	}
	return nil
}

func (r *Registry) removeMember(rec *Record, p social.PlayerID) {
	rec.Members = slices.DeleteFunc(rec.Members, func(m social.PlayerID) bool { return m == p })
	delete(r.members, p)
}

func (r *Registry) dropInvitesFor(p social.PlayerID) {
	maps.DeleteFunc(r.invites, func(k inviteKey, _ social.Invitation) bool { return k.player == p })
}

func logCommitted(msg string, rec *Record, attrs ...any) {
	slog.Info(msg, append([]any{"religion", rec.ID, "name", rec.Name}, attrs...)...)
}
