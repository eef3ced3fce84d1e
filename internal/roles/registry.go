// Package roles owns per-religion role definitions, permission sets and the
// member-to-role assignments used for every authorization check.
package roles

import (
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/talgya/pantheon/internal/social"
)

// Registry holds one role book per religion.
type Registry struct {
	Now   func() time.Time
	NewID func() string

	books map[social.ReligionID]*book
}

type book struct {
	roles       map[social.RoleID]social.Role
	order       []social.RoleID
	assignments map[social.PlayerID]social.RoleID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		Now:   time.Now,
		NewID: social.NewID,
		books: make(map[social.ReligionID]*book),
	}
}

func (r *Registry) book(religion social.ReligionID) (*book, error) {
	b, ok := r.books[religion]
	if !ok {
		return nil, social.Errorf(social.CodeReligionNotFound, []string{"religion", string(religion)},
			"religion %s has no roles", religion)
	}
	return b, nil
}

func inconsistency(religion social.ReligionID, format string, args ...any) error {
	err := social.Errorf(social.CodeInternalInconsistency, []string{"religion", string(religion)}, format, args...)
	slog.Error("internal inconsistency", "religion", religion, "error", err)
	return err
}

// Seed creates the default roles of a new religion and gives founder the
// Founder role.
func (r *Registry) Seed(religion social.ReligionID, founder social.PlayerID) error {
	if _, exists := r.books[religion]; exists {
		return inconsistency(religion, "roles for religion %s already seeded", religion)
	}
	b := &book{
		roles:       make(map[social.RoleID]social.Role),
		assignments: map[social.PlayerID]social.RoleID{founder: social.FounderRoleID},
	}
	for _, role := range social.DefaultRoles(r.Now().UTC()) {
		b.roles[role.ID] = role
		b.order = append(b.order, role.ID)
	}
	r.books[religion] = b
	return nil
}

// Drop removes a religion's roles and assignments.
func (r *Registry) Drop(religion social.ReligionID) {
	delete(r.books, religion)
}

// AddMember assigns the default Member role to a new member.
func (r *Registry) AddMember(religion social.ReligionID, player social.PlayerID) error {
	b, err := r.book(religion)
	if err != nil {
		return err
	}
	if _, ok := b.assignments[player]; ok {
		return social.ErrAlreadyInReligion
	}
	if _, ok := b.roles[social.MemberRoleID]; !ok {
		return inconsistency(religion, "religion %s lost its member role", religion)
	}
	b.assignments[player] = social.MemberRoleID
	return nil
}

// RemoveMember clears a member's assignment. The founder cannot be removed.
func (r *Registry) RemoveMember(religion social.ReligionID, player social.PlayerID) error {
	b, err := r.book(religion)
	if err != nil {
		return err
	}
	roleID, ok := b.assignments[player]
	if !ok {
		return social.ErrNotAMember
	}
	if roleID == social.FounderRoleID {
		return social.ErrIsFounder
	}
	delete(b.assignments, player)
	return nil
}

// RoleOf returns the role held by player.
func (r *Registry) RoleOf(religion social.ReligionID, player social.PlayerID) (social.Role, error) {
	b, err := r.book(religion)
	if err != nil {
		return social.Role{}, err
	}
	return b.roleOf(religion, player)
}

func (b *book) roleOf(religion social.ReligionID, player social.PlayerID) (social.Role, error) {
	roleID, ok := b.assignments[player]
	if !ok {
		return social.Role{}, social.ErrNotAMember
	}
	role, ok := b.roles[roleID]
	if !ok {
		return social.Role{}, inconsistency(religion, "member %s holds missing role %s", player, roleID)
	}
	return role, nil
}

// Can reports whether actor is a member whose role holds perm.
func (r *Registry) Can(religion social.ReligionID, actor social.PlayerID, perm social.Permission) bool {
	return r.Authorize(religion, actor, perm) == nil
}

// Authorize is the single authorization predicate: actor must be a member of
// religion whose role holds perm.
func (r *Registry) Authorize(religion social.ReligionID, actor social.PlayerID, perm social.Permission) error {
	b, err := r.book(religion)
	if err != nil {
		return err
	}
	return b.authorize(religion, actor, perm)
}

func (b *book) authorize(religion social.ReligionID, actor social.PlayerID, perm social.Permission) error {
	role, err := b.roleOf(religion, actor)
	if err != nil {
		if social.CodeOf(err) == social.CodeNotAMember {
			return social.Errorf(social.CodeNotAuthorized, []string{"permission", string(perm)},
				"%s is not a member of %s", actor, religion)
		}
		return err
	}
	if !role.Permissions.Has(perm) {
		return social.Errorf(social.CodeNotAuthorized, []string{"permission", string(perm)},
			"role %s lacks %s", role.Name, perm)
	}
	return nil
}

// Roles returns the religion's roles in creation order.
func (r *Registry) Roles(religion social.ReligionID) []social.Role {
	b, ok := r.books[religion]
	if !ok {
		return nil
	}
	out := make([]social.Role, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.roles[id])
	}
	return out
}

// Assignments returns a copy of the member-to-role mapping.
func (r *Registry) Assignments(religion social.ReligionID) map[social.PlayerID]social.RoleID {
	b, ok := r.books[religion]
	if !ok {
		return nil
	}
	return maps.Clone(b.assignments)
}

// Holders lists the members holding roleID, sorted.
func (r *Registry) Holders(religion social.ReligionID, roleID social.RoleID) []social.PlayerID {
	b, ok := r.books[religion]
	if !ok {
		return nil
	}
	return b.holders(roleID)
}

func (b *book) holders(roleID social.RoleID) []social.PlayerID {
	var out []social.PlayerID
	for p, id := range b.assignments {
		if id == roleID {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out
}

func (b *book) nameTaken(name string, except social.RoleID) bool {
	key := social.FoldName(name)
	for id, role := range b.roles {
		if id != except && social.FoldName(role.Name) == key {
			return true
		}
	}
	return false
}
