package civilization

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/talgya/pantheon/internal/social"
)

// CreateInput describes a new civilization.
type CreateInput struct {
	Name            string
	FounderPlayer   social.PlayerID
	FounderReligion social.ReligionID
	Description     string
}

// Create founds a civilization with the founder's religion as its first member.
func (r *Registry) Create(in CreateInput) (social.Civilization, error) {
	name, err := social.ValidateName(in.Name, social.MinNameLength, social.MaxNameLength)
	if err != nil {
		return social.Civilization{}, err
	}
	desc, err := social.ValidateDescription(in.Description)
	if err != nil {
		return social.Civilization{}, err
	}
	info, ok := r.religions.Lookup(in.FounderReligion)
	if !ok {
		return social.Civilization{}, social.ErrReligionNotFound
	}
	if info.FounderID != in.FounderPlayer {
		return social.Civilization{}, social.Errorf(social.CodeNotFounder, []string{"religion", info.Name},
			"%s is not the founder of %s", in.FounderPlayer, info.Name)
	}
	if _, ok := r.memberOf[in.FounderReligion]; ok {
		return social.Civilization{}, social.ErrAlreadyInCivilization
	}
	key := social.FoldName(name)
	if _, ok := r.names[key]; ok {
		return social.Civilization{}, social.Errorf(social.CodeNameTaken, []string{"name", name},
			"civilization name %q is taken", name)
	}

	c := &social.Civilization{
		ID:                social.CivilizationID(r.NewID()),
		Name:              name,
		FounderReligionID: in.FounderReligion,
		Members:           []social.ReligionID{in.FounderReligion},
		Description:       desc,
		CreatedAt:         r.now(),
	}
	r.civs[c.ID] = c
	r.names[key] = c.ID
	r.memberOf[in.FounderReligion] = c.ID
	r.dropInvites(func(inv social.CivilizationInvite) bool { return inv.ReligionID == in.FounderReligion })

	slog.Info("civilization created", "civilization", c.ID, "name", c.Name, "founder_religion", in.FounderReligion)
	return c.Clone(), nil
}

// InviteReligion offers membership to target. Capacity and domain diversity
// are checked now and again on acceptance.
func (r *Registry) InviteReligion(id social.CivilizationID, target social.ReligionID, actor social.PlayerID) (social.CivilizationInvite, []social.Notice, error) {
	c, err := r.get(id)
	if err != nil {
		return social.CivilizationInvite{}, nil, err
	}
	if err := r.authorizeFounder(c, actor); err != nil {
		return social.CivilizationInvite{}, nil, err
	}
	info, ok := r.religions.Lookup(target)
	if !ok {
		return social.CivilizationInvite{}, nil, social.ErrReligionNotFound
	}
	if _, ok := r.memberOf[target]; ok {
		return social.CivilizationInvite{}, nil, social.ErrAlreadyInCivilization
	}
	if err := r.checkRoom(c, info); err != nil {
		return social.CivilizationInvite{}, nil, err
	}
	if _, ok := r.pendingInvite(id, target); ok {
		return social.CivilizationInvite{}, nil, social.ErrAlreadyInvited
	}

	now := r.now()
	inv := social.CivilizationInvite{
		ID:             social.InviteID(r.NewID()),
		ReligionID:     target,
		CivilizationID: id,
		InviterID:      actor,
		IssuedAt:       now,
		ExpiresAt:      now.Add(social.CivilizationInviteTTL),
	}
	// Replaces any expired invitation for the same pair.
	r.dropInvites(func(old social.CivilizationInvite) bool {
		return old.CivilizationID == id && old.ReligionID == target
	})
	r.invites[inv.ID] = inv

	slog.Info("religion invited to civilization", "civilization", id, "religion", target, "actor", actor)
	return inv, []social.Notice{social.NewNotice(info.FounderID, social.NoticeCivilizationInvite,
		"civilization", string(id), "name", c.Name, "invite", string(inv.ID))}, nil
}

func (r *Registry) checkRoom(c *social.Civilization, info social.ReligionInfo) error {
	if len(c.Members) >= social.MaxCivilizationMembers {
		return social.Errorf(social.CodeFull, []string{"civilization", c.Name},
			"%s already has %d member religions", c.Name, len(c.Members))
	}
	if r.domainTaken(c, info.Domain) {
		return social.Errorf(social.CodeDuplicateDomain, []string{"domain", info.Domain.String()},
			"%s already has a %s religion", c.Name, info.Domain)
	}
	return nil
}

// AcceptInvite joins the invited religion to the civilization. Only the
// religion's founder may accept.
func (r *Registry) AcceptInvite(inviteID social.InviteID, actor social.PlayerID) ([]social.Notice, error) {
	inv, info, err := r.invitee(inviteID, actor)
	if err != nil {
		return nil, err
	}
	if !inv.Live(r.now()) {
		return nil, social.Errorf(social.CodeExpired, []string{"invite", string(inviteID)}, "invitation %s expired", inviteID)
	}
	c, err := r.get(inv.CivilizationID)
	if err != nil {
		return nil, err
	}
	if _, ok := r.memberOf[inv.ReligionID]; ok {
		return nil, social.ErrAlreadyInCivilization
	}
	if err := r.checkRoom(c, info); err != nil {
		return nil, err
	}

	notices := social.Broadcast(r.founders(c.Members), actor, social.NoticeCivilizationJoined,
		"civilization", string(c.ID), "religion", string(inv.ReligionID), "name", info.Name)
	c.Members = append(c.Members, inv.ReligionID)
	r.memberOf[inv.ReligionID] = c.ID
	r.dropInvites(func(other social.CivilizationInvite) bool { return other.ReligionID == inv.ReligionID })

	slog.Info("religion joined civilization", "civilization", c.ID, "religion", inv.ReligionID, "members", len(c.Members))
	return notices, nil
}

// DeclineInvite discards an invitation. Only the invited religion's founder may decline.
func (r *Registry) DeclineInvite(inviteID social.InviteID, actor social.PlayerID) error {
	if _, _, err := r.invitee(inviteID, actor); err != nil {
		return err
	}
	delete(r.invites, inviteID)
	return nil
}

func (r *Registry) invitee(inviteID social.InviteID, actor social.PlayerID) (social.CivilizationInvite, social.ReligionInfo, error) {
	inv, ok := r.invites[inviteID]
	if !ok {
		return inv, social.ReligionInfo{}, social.ErrInviteNotFound
	}
	info, ok := r.religions.Lookup(inv.ReligionID)
	if !ok {
		return inv, info, social.ErrReligionNotFound
	}
	if info.FounderID != actor {
		return inv, info, social.Errorf(social.CodeNotFounder, []string{"religion", info.Name},
			"%s is not the founder of %s", actor, info.Name)
	}
	return inv, info, nil
}

// KickReligion removes a member religion. The founder religion cannot be kicked.
func (r *Registry) KickReligion(id social.CivilizationID, target social.ReligionID, actor social.PlayerID) ([]social.Notice, error) {
	c, err := r.get(id)
	if err != nil {
		return nil, err
	}
	if err := r.authorizeFounder(c, actor); err != nil {
		return nil, err
	}
	if target == c.FounderReligionID {
		return nil, social.ErrCannotKickSelf
	}
	if !c.HasMember(target) {
		return nil, social.ErrNotAMember
	}
	r.removeMember(c, target)

	slog.Info("religion kicked from civilization", "civilization", id, "religion", target, "actor", actor)
	return social.Broadcast(r.founders(append(slices.Clone(c.Members), target)), actor, social.NoticeCivilizationKicked,
		"civilization", string(id), "religion", string(target)), nil
}

// Leave takes a religion out of its civilization. The founder religion must disband instead.
func (r *Registry) Leave(religion social.ReligionID, actor social.PlayerID) ([]social.Notice, error) {
	info, ok := r.religions.Lookup(religion)
	if !ok {
		return nil, social.ErrReligionNotFound
	}
	if info.FounderID != actor {
		return nil, social.Errorf(social.CodeNotFounder, []string{"religion", info.Name},
			"%s is not the founder of %s", actor, info.Name)
	}
	id, ok := r.memberOf[religion]
	if !ok {
		return nil, social.ErrNotInCivilization
	}
	c, err := r.get(id)
	if err != nil {
		return nil, err
	}
	if c.FounderReligionID == religion {
		return nil, social.ErrIsFounderReligion
	}
	r.removeMember(c, religion)

	slog.Info("religion left civilization", "civilization", id, "religion", religion)
	return social.Broadcast(r.founders(c.Members), actor, social.NoticeCivilizationLeft,
		"civilization", string(id), "religion", string(religion)), nil
}

func (r *Registry) removeMember(c *social.Civilization, religion social.ReligionID) {
	c.Members = slices.DeleteFunc(c.Members, func(m social.ReligionID) bool { return m == religion })
	delete(r.memberOf, religion)
}

// SetDescription replaces the civilization's description.
func (r *Registry) SetDescription(id social.CivilizationID, actor social.PlayerID, text string) error {
	c, err := r.get(id)
	if err != nil {
		return err
	}
	if err := r.authorizeFounder(c, actor); err != nil {
		return err
	}
	text, err = social.ValidateDescription(text)
	if err != nil {
		return err
	}
	c.Description = text
	return nil
}

// Disbanded reports a removed civilization. The caller must terminate its
// diplomatic relations.
type Disbanded struct {
	Civilization social.Civilization
	Reason       string
	Notices      []social.Notice
}

// Disband dissolves a civilization and cancels its invitations.
func (r *Registry) Disband(id social.CivilizationID, actor social.PlayerID) (Disbanded, error) {
	c, err := r.get(id)
	if err != nil {
		return Disbanded{}, err
	}
	if err := r.authorizeFounder(c, actor); err != nil {
		return Disbanded{}, err
	}
	out := r.dissolve(c, "disbanded")
	out.Notices = social.Broadcast(r.founders(out.Civilization.Members), actor, social.NoticeCivilizationDisbanded,
		"civilization", string(id), "name", c.Name)
	return out, nil
}

func (r *Registry) dissolve(c *social.Civilization, reason string) Disbanded {
	out := Disbanded{Civilization: c.Clone(), Reason: reason}
	for _, m := range c.Members {
		if r.memberOf[m] == c.ID {
			delete(r.memberOf, m)
		}
	}
	r.dropInvites(func(inv social.CivilizationInvite) bool { return inv.CivilizationID == c.ID })
	delete(r.names, social.FoldName(c.Name))
	delete(r.civs, c.ID)

	slog.Info("civilization dissolved", "civilization", c.ID, "name", c.Name, "reason", reason)
	return out
}

// ReconcileOrphans repairs state left behind by upstream religion deletions.
// Member religions that no longer exist are pruned. A civilization is
// dissolved when its founder religion is gone, it has no members, it exceeds
// the member cap or two members share a domain. Running it again on
// consistent state does nothing.
func (r *Registry) ReconcileOrphans() []Disbanded {
	ids := slices.Sorted(maps.Keys(r.civs))
	var out []Disbanded
	for _, id := range ids {
		c := r.civs[id]
		var gone []social.ReligionID
		for _, m := range c.Members {
			if _, ok := r.religions.Lookup(m); !ok {
				gone = append(gone, m)
			}
		}
		for _, m := range gone {
			r.removeMember(c, m)
			slog.Warn("pruned missing religion from civilization", "civilization", id, "religion", m)
		}

		if reason := r.violation(c); reason != "" {
			d := r.dissolve(c, reason)
			d.Notices = social.Broadcast(r.founders(d.Civilization.Members), "", social.NoticeCivilizationDisbanded,
				"civilization", string(id), "name", c.Name, "reason", reason)
			out = append(out, d)
		}
	}
	r.dropInvites(func(inv social.CivilizationInvite) bool {
		_, ok := r.religions.Lookup(inv.ReligionID)
		return !ok
	})
	return out
}

func (r *Registry) violation(c *social.Civilization) string {
	switch {
	case len(c.Members) == 0:
		return "no members"
	case !c.HasMember(c.FounderReligionID):
		return "founder religion missing"
	case len(c.Members) > social.MaxCivilizationMembers:
		return "over capacity"
	}
	seen := make(map[social.Domain]bool, len(c.Members))
	for _, m := range c.Members {
		info, _ := r.religions.Lookup(m)
		if seen[info.Domain] {
			return "duplicate domain"
		}
		seen[info.Domain] = true
	}
	return ""
}

// Sweep drops expired invitations and returns how many were removed.
func (r *Registry) Sweep() int {
	now := r.now()
	return r.dropInvites(func(inv social.CivilizationInvite) bool { return !inv.Live(now) })
}
