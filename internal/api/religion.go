package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/talgya/pantheon/internal/engine"
	"github.com/talgya/pantheon/internal/progression"
	"github.com/talgya/pantheon/internal/religion"
	"github.com/talgya/pantheon/internal/social"
)

// religionSummary is the public view of a religion. Members, roles and bans
// stay behind their permissions.
type religionSummary struct {
	ID           social.ReligionID        `json:"id"`
	Name         string                   `json:"name"`
	Domain       social.Domain            `json:"domain"`
	Visibility   social.Visibility        `json:"visibility"`
	FounderID    social.PlayerID          `json:"founder_id"`
	Description  string                   `json:"description"`
	MemberCount  int                      `json:"member_count"`
	Prestige     int                      `json:"prestige"`
	Total        int                      `json:"total_prestige"`
	Rank         progression.PrestigeRank `json:"rank"`
	NextRankAt   int                      `json:"next_rank_at,omitempty"`
	Civilization social.CivilizationID    `json:"civilization,omitempty"`
}

func (s *Server) summarize(rel social.Religion) religionSummary {
	civ, _ := s.World.Civilizations.CivilizationOf(rel.ID)
	acct := s.World.Ledger.Prestige(rel.ID)
	return religionSummary{
		ID:           rel.ID,
		Name:         rel.Name,
		Domain:       rel.Domain,
		Visibility:   rel.Visibility,
		FounderID:    rel.FounderID,
		Description:  rel.Description,
		MemberCount:  len(rel.Members),
		Prestige:     acct.Prestige,
		Total:        acct.Total,
		Rank:         acct.Rank(),
		NextRankAt:   progression.NextPrestigeThreshold(acct.Rank()),
		Civilization: civ,
	}
}

func religionID(r *http.Request) social.ReligionID {
	return social.ReligionID(chi.URLParam(r, "id"))
}

func (s *Server) handleReligions(w http.ResponseWriter, r *http.Request) {
	s.read(w, r, func() (any, error) {
		list := s.World.Religions.List()
		out := make([]religionSummary, 0, len(list))
		for _, rel := range list {
			out = append(out, s.summarize(rel))
		}
		return out, nil
	})
}

func (s *Server) handleReligionDetail(w http.ResponseWriter, r *http.Request) {
	id := religionID(r)
	s.read(w, r, func() (any, error) {
		rel, ok := s.World.Religions.Get(id)
		if !ok {
			return nil, social.ErrReligionNotFound
		}
		return s.summarize(rel), nil
	})
}

func (s *Server) handleRoles(w http.ResponseWriter, r *http.Request) {
	id := religionID(r)
	s.read(w, r, func() (any, error) {
		if _, ok := s.World.Religions.Get(id); !ok {
			return nil, social.ErrReligionNotFound
		}
		return s.World.Roles.Roles(id), nil
	})
}

// handleCivilizationInvites lists the open civilization invitations addressed
// to a religion.
func (s *Server) handleCivilizationInvites(w http.ResponseWriter, r *http.Request) {
	id := religionID(r)
	s.read(w, r, func() (any, error) {
		if _, ok := s.World.Religions.Get(id); !ok {
			return nil, social.ErrReligionNotFound
		}
		invites := s.World.Civilizations.InvitesFor(id)
		if invites == nil {
			invites = []social.CivilizationInvite{}
		}
		return invites, nil
	})
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	id, actor := religionID(r), actorFrom(r)
	s.read(w, r, func() (any, error) {
		return s.World.Religions.Members(id, actor)
	})
}

func (s *Server) handleBanList(w http.ResponseWriter, r *http.Request) {
	id, actor := religionID(r), actorFrom(r)
	s.read(w, r, func() (any, error) {
		return s.World.Religions.BanList(id, actor)
	})
}

// playerView is the public view of one player.
type playerView struct {
	Player     social.PlayerID       `json:"player"`
	Favor      int                   `json:"favor"`
	Total      int                   `json:"total_favor"`
	Rank       progression.FavorRank `json:"rank"`
	NextRankAt int                   `json:"next_rank_at,omitempty"` // 0 at the top rank
	Religion   social.ReligionID     `json:"religion,omitempty"`
	Invites    []social.Invitation   `json:"invites"`
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	p := social.PlayerID(chi.URLParam(r, "player"))
	s.read(w, r, func() (any, error) {
		acct := s.World.Ledger.Favor(p)
		rel, _ := s.World.Religions.ReligionOf(p)
		invites := s.World.Religions.InvitesFor(p)
		if invites == nil {
			invites = []social.Invitation{}
		}
		return playerView{
			Player:     p,
			Favor:      acct.Favor,
			Total:      acct.Total,
			Rank:       acct.Rank(),
			NextRankAt: progression.NextFavorThreshold(acct.Rank()),
			Religion:   rel,
			Invites:    invites,
		}, nil
	})
}

type createReligionRequest struct {
	Name        string            `json:"name" validate:"required"`
	Domain      social.Domain     `json:"domain"`
	Visibility  social.Visibility `json:"visibility"`
	Description string            `json:"description"`
}

func (s *Server) handleCreateReligion(w http.ResponseWriter, r *http.Request) {
	var req createReligionRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	actor := actorFrom(r)
	s.exec(w, r, func() (any, []social.Notice, error) {
		rel, err := s.World.Religions.Create(religion.CreateInput{
			Name:        req.Name,
			Domain:      req.Domain,
			Visibility:  req.Visibility,
			Description: req.Description,
			Founder:     actor,
		})
		if err != nil {
			return nil, nil, err
		}
		s.World.Record("religion", fmt.Sprintf("%s founded %s (%s)", actor, rel.Name, rel.Domain),
			"religion", rel.ID, "player", actor)
		return s.summarize(rel), nil, nil
	})
}

// membership runs a join-style command that only needs the religion and actor.
func (s *Server) membership(w http.ResponseWriter, r *http.Request, verb string,
	op func(social.ReligionID, social.PlayerID) ([]social.Notice, error)) {
	id, actor := religionID(r), actorFrom(r)
	s.exec(w, r, func() (any, []social.Notice, error) {
		notices, err := op(id, actor)
		if err != nil {
			return nil, nil, err
		}
		s.World.Record("religion", fmt.Sprintf("%s %s %s", actor, verb, id), "religion", id, "player", actor)
		return nil, notices, nil
	})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	s.membership(w, r, "joined", s.World.Religions.Join)
}

func (s *Server) handleAcceptInvite(w http.ResponseWriter, r *http.Request) {
	s.membership(w, r, "accepted an invitation to", s.World.Religions.AcceptInvite)
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	s.membership(w, r, "left", s.World.Religions.Leave)
}

func (s *Server) handleDeclineInvite(w http.ResponseWriter, r *http.Request) {
	id, actor := religionID(r), actorFrom(r)
	s.exec(w, r, func() (any, []social.Notice, error) {
		return nil, nil, s.World.Religions.DeclineInvite(id, actor)
	})
}

type targetRequest struct {
	Target social.PlayerID `json:"target" validate:"required"`
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	id, actor := religionID(r), actorFrom(r)
	s.exec(w, r, func() (any, []social.Notice, error) {
		inv, notices, err := s.World.Religions.Invite(id, actor, req.Target)
		if err != nil {
			return nil, nil, err
		}
		return inv, notices, nil
	})
}

// moderate runs a command acting on a target member.
func (s *Server) moderate(w http.ResponseWriter, r *http.Request, verb string,
	op func(social.ReligionID, social.PlayerID, social.PlayerID) ([]social.Notice, error)) {
	var req targetRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	id, actor := religionID(r), actorFrom(r)
	s.exec(w, r, func() (any, []social.Notice, error) {
		notices, err := op(id, actor, req.Target)
		if err != nil {
			return nil, nil, err
		}
		s.World.Record("religion", fmt.Sprintf("%s %s %s from %s", actor, verb, req.Target, id),
			"religion", id, "player", req.Target, "actor", actor)
		return nil, notices, nil
	})
}

func (s *Server) handleKick(w http.ResponseWriter, r *http.Request) {
	s.moderate(w, r, "kicked", s.World.Religions.Kick)
}

func (s *Server) handleUnban(w http.ResponseWriter, r *http.Request) {
	s.moderate(w, r, "unbanned", s.World.Religions.Unban)
}

func (s *Server) handleTransferFounder(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	id, actor := religionID(r), actorFrom(r)
	s.exec(w, r, func() (any, []social.Notice, error) {
		notices, err := s.World.Religions.TransferFounder(id, actor, req.Target)
		if err != nil {
			return nil, nil, err
		}
		s.World.Record("religion", fmt.Sprintf("%s handed %s to %s", actor, id, req.Target),
			"religion", id, "player", req.Target, "actor", actor)
		return nil, notices, nil
	})
}

type banRequest struct {
	Target social.PlayerID `json:"target" validate:"required"`
	Reason string          `json:"reason" validate:"max=200"`
	Days   int             `json:"days" validate:"min=0,max=3650"` // 0 = permanent
}

func (s *Server) handleBan(w http.ResponseWriter, r *http.Request) {
	var req banRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	id, actor := religionID(r), actorFrom(r)
	s.exec(w, r, func() (any, []social.Notice, error) {
		notices, err := s.World.Religions.Ban(id, actor, req.Target, req.Reason, req.Days)
		if err != nil {
			return nil, nil, err
		}
		s.World.Record("religion", fmt.Sprintf("%s banned %s from %s", actor, req.Target, id),
			"religion", id, "player", req.Target, "actor", actor, "days", req.Days)
		return nil, notices, nil
	})
}

type descriptionRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleReligionDescription(w http.ResponseWriter, r *http.Request) {
	var req descriptionRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	id, actor := religionID(r), actorFrom(r)
	s.exec(w, r, func() (any, []social.Notice, error) {
		return nil, nil, s.World.Religions.SetDescription(id, actor, req.Text)
	})
}

func (s *Server) handleDisbandReligion(w http.ResponseWriter, r *http.Request) {
	id, actor := religionID(r), actorFrom(r)
	s.exec(w, r, func() (any, []social.Notice, error) {
		res, err := s.World.DisbandReligion(id, actor)
		if err != nil {
			return nil, nil, err
		}
		return map[string]any{
			"religion":     res.Religion.ID,
			"evicted":      res.Evicted,
			"civilization": effectView(res.Civilization),
		}, res.Notices, nil
	})
}

func effectView(e engine.CivilizationEffect) map[string]any {
	switch e := e.(type) {
	case engine.LeftCivilization:
		return map[string]any{"effect": "left", "civilization": e.Civilization.ID}
	case engine.DissolvedCivilization:
		return map[string]any{"effect": "dissolved", "civilization": e.Civilization.ID, "reason": e.Reason}
	}
	return map[string]any{"effect": "none"}
}

type roleNameRequest struct {
	Name string `json:"name" validate:"required"`
}

func (s *Server) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	var req roleNameRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	id, actor := religionID(r), actorFrom(r)
	s.exec(w, r, func() (any, []social.Notice, error) {
		role, err := s.World.Roles.CreateRole(id, actor, req.Name)
		if err != nil {
			return nil, nil, err
		}
		s.World.Record("religion", fmt.Sprintf("role %s created in %s", role.Name, id), "religion", id, "role", role.ID)
		return role, nil, nil
	})
}

func roleID(r *http.Request) social.RoleID {
	return social.RoleID(chi.URLParam(r, "role"))
}

func (s *Server) handleRenameRole(w http.ResponseWriter, r *http.Request) {
	var req roleNameRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	id, actor, role := religionID(r), actorFrom(r), roleID(r)
	s.exec(w, r, func() (any, []social.Notice, error) {
		out, err := s.World.Roles.RenameRole(id, actor, role, req.Name)
		if err != nil {
			return nil, nil, err
		}
		return out, nil, nil
	})
}

type permissionsRequest struct {
	Permissions []social.Permission `json:"permissions"`
}

func (s *Server) handleRolePermissions(w http.ResponseWriter, r *http.Request) {
	var req permissionsRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	id, actor, role := religionID(r), actorFrom(r), roleID(r)
	s.exec(w, r, func() (any, []social.Notice, error) {
		out, err := s.World.Roles.ModifyPermissions(id, actor, role, social.NewPermissionSet(req.Permissions...))
		if err != nil {
			return nil, nil, err
		}
		s.World.Record("religion", fmt.Sprintf("role %s permissions changed in %s", out.Name, id),
			"religion", id, "role", role, "actor", actor)
		return out, nil, nil
	})
}

func (s *Server) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	id, actor, role := religionID(r), actorFrom(r), roleID(r)
	s.exec(w, r, func() (any, []social.Notice, error) {
		notices, err := s.World.Roles.AssignRole(id, actor, req.Target, role)
		return nil, notices, err
	})
}

func (s *Server) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	id, actor, role := religionID(r), actorFrom(r), roleID(r)
	s.exec(w, r, func() (any, []social.Notice, error) {
		notices, err := s.World.Roles.DeleteRole(id, actor, role)
		if err != nil {
			return nil, nil, err
		}
		s.World.Record("religion", fmt.Sprintf("role %s deleted in %s", role, id), "religion", id, "role", role)
		return nil, notices, nil
	})
}
