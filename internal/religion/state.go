package religion

import (
	"maps"
	"slices"
	"strings"

	"github.com/talgya/pantheon/internal/social"
)

// State is the serializable registry content.
type State struct {
	Religions []Record            `json:"religions"`
	Invites   []social.Invitation `json:"invites"`
	Departed  []social.PlayerID   `json:"departed"`
}

// Snapshot copies the registry content.
func (r *Registry) Snapshot() State {
	var s State
	for _, rec := range r.religions {
		c := *rec
		c.Members = slices.Clone(rec.Members)
		c.Bans = maps.Clone(rec.Bans)
		s.Religions = append(s.Religions, c)
	}
	slices.SortFunc(s.Religions, func(a, b Record) int { return strings.Compare(string(a.ID), string(b.ID)) })
	for _, inv := range r.invites {
		s.Invites = append(s.Invites, inv)
	}
	slices.SortFunc(s.Invites, func(a, b social.Invitation) int { return strings.Compare(string(a.ID), string(b.ID)) })
	s.Departed = slices.Sorted(maps.Keys(r.departed))
	return s
}

// Restore replaces the registry content and rebuilds its indexes. Role books
// must be restored separately.
func (r *Registry) Restore(s State) {
	r.religions = make(map[social.ReligionID]*Record, len(s.Religions))
	r.names = make(map[string]social.ReligionID, len(s.Religions))
	r.members = make(map[social.PlayerID]social.ReligionID)
	for _, rec := range s.Religions {
		c := rec
		c.Members = slices.Clone(rec.Members)
		c.Bans = maps.Clone(rec.Bans)
		if c.Bans == nil {
			c.Bans = make(map[social.PlayerID]social.BanRecord)
		}
		r.religions[c.ID] = &c
		r.names[social.FoldName(c.Name)] = c.ID
		for _, p := range c.Members {
			r.members[p] = c.ID
		}
	}
	r.invites = make(map[inviteKey]social.Invitation, len(s.Invites))
	for _, inv := range s.Invites {
		r.invites[inviteKey{inv.PlayerID, inv.ReligionID}] = inv
	}
	r.departed = make(map[social.PlayerID]bool, len(s.Departed))
	for _, p := range s.Departed {
		r.departed[p] = true
	}
}
