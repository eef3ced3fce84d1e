// Package civilization manages alliances of religions with distinct domains,
// their invitations and orphan reconciliation after upstream deletions.
package civilization

import (
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/talgya/pantheon/internal/social"
)

// Religions is the read-only view of the religion registry used here.
type Religions interface {
	Lookup(id social.ReligionID) (social.ReligionInfo, bool)
}

// Registry holds every civilization and pending civilization invitation.
type Registry struct {
	Now   func() time.Time
	NewID func() string

	religions Religions

	civs     map[social.CivilizationID]*social.Civilization
	names    map[string]social.CivilizationID
	memberOf map[social.ReligionID]social.CivilizationID
	invites  map[social.InviteID]social.CivilizationInvite
}

// NewRegistry creates an empty registry that resolves religions through religions.
func NewRegistry(religions Religions) *Registry {
	return &Registry{
		Now:       time.Now,
		NewID:     social.NewID,
		religions: religions,
		civs:      make(map[social.CivilizationID]*social.Civilization),
		names:     make(map[string]social.CivilizationID),
		memberOf:  make(map[social.ReligionID]social.CivilizationID),
		invites:   make(map[social.InviteID]social.CivilizationInvite),
	}
}

func (r *Registry) now() time.Time {
	return r.Now().UTC()
}

func (r *Registry) get(id social.CivilizationID) (*social.Civilization, error) {
	c, ok := r.civs[id]
	if !ok {
		return nil, social.Errorf(social.CodeCivilizationNotFound, []string{"civilization", string(id)},
			"civilization %s not found", id)
	}
	return c, nil
}

// Get returns a copy of a civilization.
func (r *Registry) Get(id social.CivilizationID) (social.Civilization, bool) {
	c, ok := r.civs[id]
	if !ok {
		return social.Civilization{}, false
	}
	return c.Clone(), true
}

// FindByName looks a civilization up by case-insensitive name.
func (r *Registry) FindByName(name string) (social.Civilization, bool) {
	id, ok := r.names[social.FoldName(name)]
	if !ok {
		return social.Civilization{}, false
	}
	return r.Get(id)
}

// List returns every civilization sorted by name.
func (r *Registry) List() []social.Civilization {
	out := make([]social.Civilization, 0, len(r.civs))
	for _, c := range r.civs {
		out = append(out, c.Clone())
	}
	slices.SortFunc(out, func(a, b social.Civilization) int {
		return strings.Compare(social.FoldName(a.Name), social.FoldName(b.Name))
	})
	return out
}

// CivilizationOf returns the civilization a religion belongs to.
func (r *Registry) CivilizationOf(religion social.ReligionID) (social.CivilizationID, bool) {
	id, ok := r.memberOf[religion]
	return id, ok
}

// FounderPlayer returns the founder of the civilization's founder religion.
func (r *Registry) FounderPlayer(id social.CivilizationID) (social.PlayerID, bool) {
	c, ok := r.civs[id]
	if !ok {
		return "", false
	}
	info, ok := r.religions.Lookup(c.FounderReligionID)
	if !ok {
		return "", false
	}
	return info.FounderID, true
}

// InvitesFor lists the live invitations addressed to a religion.
func (r *Registry) InvitesFor(religion social.ReligionID) []social.CivilizationInvite {
	now := r.now()
	var out []social.CivilizationInvite
	for _, inv := range r.invites {
		if inv.ReligionID == religion && inv.Live(now) {
			out = append(out, inv)
		}
	}
	slices.SortFunc(out, func(a, b social.CivilizationInvite) int { return a.IssuedAt.Compare(b.IssuedAt) })
	return out
}

// authorizeFounder checks that actor founded the civilization's founder religion.
func (r *Registry) authorizeFounder(c *social.Civilization, actor social.PlayerID) error {
	info, ok := r.religions.Lookup(c.FounderReligionID)
	if !ok {
		err := social.Errorf(social.CodeInternalInconsistency, []string{"civilization", string(c.ID)},
			"founder religion %s of %s is missing", c.FounderReligionID, c.ID)
		slog.Error("internal inconsistency", "civilization", c.ID, "error", err)
		return err
	}
	if info.FounderID != actor {
		return social.Errorf(social.CodeNotAuthorized, []string{"civilization", c.Name},
			"%s is not the founder of %s", actor, c.Name)
	}
	return nil
}

// founders returns the founder players of the given religions, skipping unknown ones.
func (r *Registry) founders(religions []social.ReligionID) []social.PlayerID {
	out := make([]social.PlayerID, 0, len(religions))
	for _, id := range religions {
		if info, ok := r.religions.Lookup(id); ok {
			out = append(out, info.FounderID)
		}
	}
	return out
}

func (r *Registry) domainTaken(c *social.Civilization, domain social.Domain) bool {
	for _, id := range c.Members {
		if info, ok := r.religions.Lookup(id); ok && info.Domain == domain {
			return true
		}
	}
	return false
}

func (r *Registry) dropInvites(match func(social.CivilizationInvite) bool) int {
	n := len(r.invites)
	maps.DeleteFunc(r.invites, func(_ social.InviteID, inv social.CivilizationInvite) bool { return match(inv) })
	return n - len(r.invites)
}

func (r *Registry) pendingInvite(civ social.CivilizationID, religion social.ReligionID) (social.CivilizationInvite, bool) {
	now := r.now()
	for _, inv := range r.invites {
		if inv.CivilizationID == civ && inv.ReligionID == religion && inv.Live(now) {
			return inv, true
		}
	}
	return social.CivilizationInvite{}, false
}
