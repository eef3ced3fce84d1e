package religion

import (
	"slices"
	"strconv"

	"github.com/talgya/pantheon/internal/social"
)

// CreateInput describes a new religion.
type CreateInput struct {
	Name        string
	Domain      social.Domain
	Visibility  social.Visibility
	Description string
	Founder     social.PlayerID
}

// Create founds a religion with default roles and the founder as sole member.
func (r *Registry) Create(in CreateInput) (social.Religion, error) {
	name, err := social.ValidateName(in.Name, social.MinNameLength, social.MaxNameLength)
	if err != nil {
		return social.Religion{}, err
	}
	if !in.Domain.Valid() {
		return social.Religion{}, social.Errorf(social.CodeInvalidInput, []string{"domain", in.Domain.String()}, "invalid domain %s", in.Domain)
	}
	if in.Visibility != social.Public && in.Visibility != social.Private {
		return social.Religion{}, social.Errorf(social.CodeInvalidInput, nil, "invalid visibility %d", in.Visibility)
	}
	desc, err := social.ValidateDescription(in.Description)
	if err != nil {
		return social.Religion{}, err
	}
	if in.Founder == "" {
		return social.Religion{}, social.Errorf(social.CodeInvalidInput, nil, "founder is required")
	}
	if _, ok := r.members[in.Founder]; ok {
		return social.Religion{}, social.ErrAlreadyInReligion
	}
	key := social.FoldName(name)
	if _, ok := r.names[key]; ok {
		return social.Religion{}, social.Errorf(social.CodeNameTaken, []string{"name", name}, "religion name %q is taken", name)
	}

	id := social.ReligionID(r.NewID())
	if err := r.roles.Seed(id, in.Founder); err != nil {
		return social.Religion{}, err
	}
	rec := &Record{
		ID:          id,
		Name:        name,
		Domain:      in.Domain,
		Visibility:  in.Visibility,
		FounderID:   in.Founder,
		Description: desc,
		Members:     []social.PlayerID{in.Founder},
		Bans:        make(map[social.PlayerID]social.BanRecord),
		CreatedAt:   r.now(),
	}
	r.religions[id] = rec
	r.names[key] = id
	r.members[in.Founder] = id
	r.dropInvitesFor(in.Founder)

	logCommitted("religion created", rec, "domain", rec.Domain, "founder", in.Founder)
	return r.view(rec), nil
}

// Join adds player to a religion. Private religions need a live invitation,
// which joining consumes.
func (r *Registry) Join(id social.ReligionID, player social.PlayerID) ([]social.Notice, error) {
	rec, err := r.get(id)
	if err != nil {
		return nil, err
	}
	if err := r.checkCanJoin(rec, player); err != nil {
		return nil, err
	}
	if rec.Visibility == social.Private {
		inv, ok := r.invites[inviteKey{player, id}]
		if !ok || !inv.Live(r.now()) {
			return nil, social.Errorf(social.CodeNotInvited, []string{"religion", rec.Name}, "%s is not invited to %s", player, rec.Name)
		}
	}
	return r.commitJoin(rec, player)
}

// AcceptInvite joins the religion through a pending invitation.
func (r *Registry) AcceptInvite(id social.ReligionID, player social.PlayerID) ([]social.Notice, error) {
	rec, err := r.get(id)
	if err != nil {
		return nil, err
	}
	inv, ok := r.invites[inviteKey{player, id}]
	if !ok {
		return nil, social.ErrNotInvited
	}
	if !inv.Live(r.now()) {
		return nil, social.Errorf(social.CodeExpired, []string{"religion", rec.Name}, "invitation to %s expired", rec.Name)
	}
	if err := r.checkCanJoin(rec, player); err != nil {
		return nil, err
	}
	return r.commitJoin(rec, player)
}

// DeclineInvite discards a pending invitation.
func (r *Registry) DeclineInvite(id social.ReligionID, player social.PlayerID) error {
	key := inviteKey{player, id}
	if _, ok := r.invites[key]; !ok {
		return social.ErrInviteNotFound
	}
	delete(r.invites, key)
	return nil
}

func (r *Registry) checkCanJoin(rec *Record, player social.PlayerID) error {
	if _, ok := r.members[player]; ok {
		return social.ErrAlreadyInReligion
	}
	if ban, ok := rec.Bans[player]; ok && ban.Active(r.now()) {
		return social.Errorf(social.CodeBanned, []string{"religion", rec.Name}, "%s is banned from %s", player, rec.Name)
	}
	return nil
}

func (r *Registry) commitJoin(rec *Record, player social.PlayerID) ([]social.Notice, error) {
	if err := r.roles.AddMember(rec.ID, player); err != nil {
		return nil, err
	}
	notices := social.Broadcast(rec.Members, player, social.NoticeMemberJoined,
		"religion", string(rec.ID), "player", string(player))

	rec.Members = append(rec.Members, player)
	r.members[player] = rec.ID
	r.dropInvitesFor(player)

	penalty := 0
	if r.departed[player] {
		delete(r.departed, player)
		if r.ledger != nil {
			penalty = r.ledger.ApplySwitchPenalty(player)
		}
	}
	logCommitted("member joined", rec, "player", player, "switch_penalty", penalty)
	return notices, nil
}

// Leave removes player from the religion. The founder must transfer or disband first.
func (r *Registry) Leave(id social.ReligionID, player social.PlayerID) ([]social.Notice, error) {
	rec, err := r.get(id)
	if err != nil {
		return nil, err
	}
	if r.members[player] != id {
		return nil, social.ErrNotAMember
	}
	if rec.FounderID == player {
		return nil, social.Errorf(social.CodeIsFounder, []string{"religion", rec.Name}, "founder cannot leave %s", rec.Name)
	}
	if err := r.roles.RemoveMember(id, player); err != nil {
		return nil, err
	}
	r.removeMember(rec, player)
	r.departed[player] = true

	logCommitted("member left", rec, "player", player)
	return social.Broadcast(rec.Members, player, social.NoticeMemberLeft,
		"religion", string(id), "player", string(player)), nil
}

// Kick removes target from the religion.
func (r *Registry) Kick(id social.ReligionID, actor, target social.PlayerID) ([]social.Notice, error) {
	rec, err := r.get(id)
	if err != nil {
		return nil, err
	}
	if err := r.roles.Authorize(id, actor, social.PermKick); err != nil {
		return nil, err
	}
	if err := r.checkRemovable(rec, actor, target); err != nil {
		return nil, err
	}
	if r.members[target] != id {
		return nil, social.ErrNotAMember
	}
	if err := r.roles.RemoveMember(id, target); err != nil {
		return nil, err
	}
	r.removeMember(rec, target)
	r.departed[target] = true

	logCommitted("member kicked", rec, "player", target, "actor", actor)
	return []social.Notice{social.NewNotice(target, social.NoticeKicked, "religion", string(id), "by", string(actor))}, nil
}

func (r *Registry) checkRemovable(rec *Record, actor, target social.PlayerID) error {
	if actor == target {
		return social.ErrCannotTargetSelf
	}
	if rec.FounderID == target {
		return social.Errorf(social.CodeIsFounder, []string{"religion", rec.Name}, "founder of %s cannot be removed", rec.Name)
	}
	return nil
}

// Ban bars target from the religion, kicking them if they are a member.
// days == 0 makes the ban permanent.
func (r *Registry) Ban(id social.ReligionID, actor, target social.PlayerID, reason string, days int) ([]social.Notice, error) {
	rec, err := r.get(id)
	if err != nil {
		return nil, err
	}
	if err := r.roles.Authorize(id, actor, social.PermBan); err != nil {
		return nil, err
	}
	if err := r.checkRemovable(rec, actor, target); err != nil {
		return nil, err
	}
	reason, err = social.ValidateDescription(reason)
	if err != nil {
		return nil, err
	}
	if days < 0 || days > social.MaxBanDays {
		return nil, social.Errorf(social.CodeInvalidInput, nil, "ban length must be 0-%d days", social.MaxBanDays)
	}

	now := r.now()
	ban := social.BanRecord{PlayerID: target, BannedBy: actor, Reason: reason, IssuedAt: now}
	if days > 0 {
		ban.ExpiresAt = now.AddDate(0, 0, days)
	}
	if r.members[target] == id {
		if err := r.roles.RemoveMember(id, target); err != nil {
			return nil, err
		}
		r.removeMember(rec, target)
		r.departed[target] = true
	}
	rec.Bans[target] = ban
	delete(r.invites, inviteKey{target, id})

	logCommitted("player banned", rec, "player", target, "actor", actor, "days", days)
	return []social.Notice{social.NewNotice(target, social.NoticeBanned,
		"religion", string(id), "reason", reason, "days", strconv.Itoa(days))}, nil
}

// Unban lifts a ban.
func (r *Registry) Unban(id social.ReligionID, actor, target social.PlayerID) ([]social.Notice, error) {
	rec, err := r.get(id)
	if err != nil {
		return nil, err
	}
	if err := r.roles.Authorize(id, actor, social.PermBan); err != nil {
		return nil, err
	}
	if ban, ok := rec.Bans[target]; !ok || !ban.Active(r.now()) {
		return nil, social.ErrNotBanned
	}
	delete(rec.Bans, target)

	logCommitted("player unbanned", rec, "player", target, "actor", actor)
	return []social.Notice{social.NewNotice(target, social.NoticeUnbanned, "religion", string(id))}, nil
}

// BanList returns the active bans, oldest first.
func (r *Registry) BanList(id social.ReligionID, actor social.PlayerID) ([]social.BanRecord, error) {
	rec, err := r.get(id)
	if err != nil {
		return nil, err
	}
	if err := r.roles.Authorize(id, actor, social.PermViewBanList); err != nil {
		return nil, err
	}
	now := r.now()
	var out []social.BanRecord
	for _, ban := range rec.Bans {
		if ban.Active(now) {
			out = append(out, ban)
		}
	}
	slices.SortFunc(out, func(a, b social.BanRecord) int { return a.IssuedAt.Compare(b.IssuedAt) })
	return out, nil
}

// Member pairs a member with their role.
type Member struct {
	Player social.PlayerID `json:"player"`
	Role   social.Role     `json:"role"`
}

// Members lists members with their roles in join order.
func (r *Registry) Members(id social.ReligionID, actor social.PlayerID) ([]Member, error) {
	rec, err := r.get(id)
	if err != nil {
		return nil, err
	}
	if err := r.roles.Authorize(id, actor, social.PermViewMembers); err != nil {
		return nil, err
	}
	out := make([]Member, 0, len(rec.Members))
	for _, p := range rec.Members {
		role, err := r.roles.RoleOf(id, p)
		if err != nil {
			return nil, err
		}
		out = append(out, Member{Player: p, Role: role})
	}
	return out, nil
}

// Invite issues an invitation to target. One live invitation per player and religion.
func (r *Registry) Invite(id social.ReligionID, actor, target social.PlayerID) (social.Invitation, []social.Notice, error) {
	rec, err := r.get(id)
	if err != nil {
		return social.Invitation{}, nil, err
	}
	if err := r.roles.Authorize(id, actor, social.PermInvite); err != nil {
		return social.Invitation{}, nil, err
	}
	if target == "" {
		return social.Invitation{}, nil, social.Errorf(social.CodeInvalidInput, nil, "target is required")
	}
	if r.members[target] == id {
		return social.Invitation{}, nil, social.ErrAlreadyInReligion
	}
	now := r.now()
	if ban, ok := rec.Bans[target]; ok && ban.Active(now) {
		return social.Invitation{}, nil, social.ErrBanned
	}
	key := inviteKey{target, id}
	if inv, ok := r.invites[key]; ok && inv.Live(now) {
		return social.Invitation{}, nil, social.ErrAlreadyInvited
	}

	inv := social.Invitation{
		ID:         social.InviteID(r.NewID()),
		PlayerID:   target,
		ReligionID: id,
		InviterID:  actor,
		IssuedAt:   now,
		ExpiresAt:  now.Add(social.ReligionInviteTTL),
	}
	r.invites[key] = inv

	logCommitted("player invited", rec, "player", target, "actor", actor)
	return inv, []social.Notice{social.NewNotice(target, social.NoticeReligionInvite,
		"religion", string(id), "name", rec.Name, "by", string(actor))}, nil
}

// SetDescription replaces the religion's description.
func (r *Registry) SetDescription(id social.ReligionID, actor social.PlayerID, text string) error {
	rec, err := r.get(id)
	if err != nil {
		return err
	}
	if err := r.roles.Authorize(id, actor, social.PermEditDescription); err != nil {
		return err
	}
	text, err = social.ValidateDescription(text)
	if err != nil {
		return err
	}
	rec.Description = text
	logCommitted("description changed", rec, "actor", actor)
	return nil
}

// TransferFounder hands founder status to another member. The role swap and the
// recorded founder id change together.
func (r *Registry) TransferFounder(id social.ReligionID, actor, newFounder social.PlayerID) ([]social.Notice, error) {
	rec, err := r.get(id)
	if err != nil {
		return nil, err
	}
	if holders := r.roles.Holders(id, social.FounderRoleID); len(holders) != 1 || holders[0] != rec.FounderID {
		return nil, social.Errorf(social.CodeInternalInconsistency, []string{"religion", string(id)},
			"founder role holders %v disagree with founder %s", holders, rec.FounderID)
	}
	previous, err := r.roles.TransferFounder(id, actor, newFounder)
	if err != nil {
		return nil, err
	}
	rec.FounderID = newFounder

	logCommitted("founder transferred", rec, "from", previous, "to", newFounder)
	return social.Broadcast(rec.Members, actor, social.NoticeFounderTransferred,
		"religion", string(id), "from", string(previous), "to", string(newFounder)), nil
}

// Disbanded reports the effects of disbanding a religion. The caller must run
// civilization cleanup for Religion.ID.
type Disbanded struct {
	Religion social.Religion
	Evicted  []social.PlayerID
	Notices  []social.Notice
}

// Disband evicts every member and deletes the religion.
func (r *Registry) Disband(id social.ReligionID, actor social.PlayerID) (Disbanded, error) {
	rec, err := r.get(id)
	if err != nil {
		return Disbanded{}, err
	}
	if err := r.roles.Authorize(id, actor, social.PermDisband); err != nil {
		return Disbanded{}, err
	}

	out := Disbanded{
		Religion: r.view(rec),
		Evicted:  slices.Clone(rec.Members),
		Notices: social.Broadcast(rec.Members, actor, social.NoticeReligionDisbanded,
			"religion", string(id), "name", rec.Name),
	}
	for _, p := range rec.Members {
		delete(r.members, p)
	}
	for key := range r.invites {
		if key.religion == id {
			delete(r.invites, key)
		}
	}
	r.roles.Drop(id)
	delete(r.names, social.FoldName(rec.Name))
	delete(r.religions, id)

	logCommitted("religion disbanded", rec, "evicted", len(out.Evicted), "actor", actor)
	return out, nil
}

// Sweep drops expired invitations and bans. It returns how many records were removed.
func (r *Registry) Sweep() int {
	now := r.now()
	removed := 0
	for key, inv := range r.invites {
		if !inv.Live(now) {
			delete(r.invites, key)
			removed++
		}
	}
	for _, rec := range r.religions {
		for p, ban := range rec.Bans {
			if !ban.Active(now) {
				delete(rec.Bans, p)
				removed++
			}
		}
	}
	return removed
}
