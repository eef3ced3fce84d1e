package roles

import (
	"maps"
	"slices"

	"github.com/talgya/pantheon/internal/social"
)

// Book is the serializable role content of one religion.
type Book struct {
	Roles       []social.Role                     `json:"roles"`
	Assignments map[social.PlayerID]social.RoleID `json:"assignments"`
}

// State is the serializable registry content.
type State map[social.ReligionID]Book

// Snapshot copies every role book.
func (r *Registry) Snapshot() State {
	out := make(State, len(r.books))
	for id, b := range r.books {
		roles := make([]social.Role, 0, len(b.order))
		for _, rid := range b.order {
			roles = append(roles, b.roles[rid])
		}
		out[id] = Book{Roles: roles, Assignments: maps.Clone(b.assignments)}
	}
	return out
}

// Restore replaces the registry content.
func (r *Registry) Restore(s State) {
	r.books = make(map[social.ReligionID]*book, len(s))
	for id, sb := range s {
		b := &book{
			roles:       make(map[social.RoleID]social.Role, len(sb.Roles)),
			assignments: maps.Clone(sb.Assignments),
		}
		if b.assignments == nil {
			b.assignments = make(map[social.PlayerID]social.RoleID)
		}
		for _, role := range sb.Roles {
			b.roles[role.ID] = role
			b.order = append(b.order, role.ID)
		}
		r.books[id] = b
	}
}

// Religions lists the religions that have role books, sorted.
func (r *Registry) Religions() []social.ReligionID {
	return slices.Sorted(maps.Keys(r.books))
}
