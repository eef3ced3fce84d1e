package civilization

import (
	"slices"
	"strings"

	"github.com/talgya/pantheon/internal/social"
)

// State is the serializable registry content.
type State struct {
	Civilizations []social.Civilization       `json:"civilizations"`
	Invites       []social.CivilizationInvite `json:"invites"`
}

// Snapshot copies the registry content.
func (r *Registry) Snapshot() State {
	var s State
	for _, c := range r.civs {
		s.Civilizations = append(s.Civilizations, c.Clone())
	}
	slices.SortFunc(s.Civilizations, func(a, b social.Civilization) int { return strings.Compare(string(a.ID), string(b.ID)) })
	for _, inv := range r.invites {
		s.Invites = append(s.Invites, inv)
	}
	slices.SortFunc(s.Invites, func(a, b social.CivilizationInvite) int { return strings.Compare(string(a.ID), string(b.ID)) })
	return s
}

// Restore replaces the registry content and rebuilds its indexes.
func (r *Registry) Restore(s State) {
	r.civs = make(map[social.CivilizationID]*social.Civilization, len(s.Civilizations))
	r.names = make(map[string]social.CivilizationID, len(s.Civilizations))
	r.memberOf = make(map[social.ReligionID]social.CivilizationID)
	for _, c := range s.Civilizations {
		c = c.Clone()
		r.civs[c.ID] = &c
		r.names[social.FoldName(c.Name)] = c.ID
		for _, m := range c.Members {
			r.memberOf[m] = c.ID
		}
	}
	r.invites = make(map[social.InviteID]social.CivilizationInvite, len(s.Invites))
	for _, inv := range s.Invites {
		r.invites[inv.ID] = inv
	}
}
