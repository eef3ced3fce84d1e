package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/talgya/pantheon/internal/civilization"
	"github.com/talgya/pantheon/internal/diplomacy"
	"github.com/talgya/pantheon/internal/progression"
	"github.com/talgya/pantheon/internal/social"
)

type civilizationView struct {
	social.Civilization
	Rank      progression.PrestigeRank `json:"rank"`
	Relations []diplomacy.Relation     `json:"relations,omitempty"`
	Proposals []diplomacy.Proposal     `json:"proposals,omitempty"`
}

func civilizationID(r *http.Request) social.CivilizationID {
	return social.CivilizationID(chi.URLParam(r, "id"))
}

func (s *Server) handleCivilizations(w http.ResponseWriter, r *http.Request) {
	s.read(w, r, func() (any, error) {
		list := s.World.Civilizations.List()
		out := make([]civilizationView, 0, len(list))
		for _, c := range list {
			out = append(out, civilizationView{Civilization: c, Rank: s.World.Ledger.CombinedPrestigeRank(c.Members)})
		}
		return out, nil
	})
}

func (s *Server) handleCivilizationDetail(w http.ResponseWriter, r *http.Request) {
	id := civilizationID(r)
	s.read(w, r, func() (any, error) {
		c, ok := s.World.Civilizations.Get(id)
		if !ok {
			return nil, social.ErrCivilizationNotFound
		}
		return civilizationView{
			Civilization: c,
			Rank:         s.World.Ledger.CombinedPrestigeRank(c.Members),
			Relations:    s.World.Diplomacy.Relations(id),
			Proposals:    s.World.Diplomacy.Proposals(id),
		}, nil
	})
}

type createCivilizationRequest struct {
	Name        string            `json:"name" validate:"required"`
	Religion    social.ReligionID `json:"religion" validate:"required"`
	Description string            `json:"description"`
}

func (s *Server) handleCreateCivilization(w http.ResponseWriter, r *http.Request) {
	var req createCivilizationRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	actor := actorFrom(r)
	s.exec(w, r, func() (any, []social.Notice, error) {
		c, err := s.World.Civilizations.Create(civilization.CreateInput{
			Name:            req.Name,
			FounderPlayer:   actor,
			FounderReligion: req.Religion,
			Description:     req.Description,
		})
		if err != nil {
			return nil, nil, err
		}
		s.World.Record("civilization", fmt.Sprintf("%s founded", c.Name),
			"civilization", c.ID, "religion", req.Religion, "player", actor)
		return c, nil, nil
	})
}

type religionRequest struct {
	Religion social.ReligionID `json:"religion" validate:"required"`
}

func (s *Server) handleInviteReligion(w http.ResponseWriter, r *http.Request) {
	var req religionRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	id, actor := civilizationID(r), actorFrom(r)
	s.exec(w, r, func() (any, []social.Notice, error) {
		inv, notices, err := s.World.Civilizations.InviteReligion(id, req.Religion, actor)
		if err != nil {
			return nil, nil, err
		}
		return inv, notices, nil
	})
}

func inviteID(r *http.Request) social.InviteID {
	return social.InviteID(chi.URLParam(r, "invite"))
}

func (s *Server) handleAcceptCivInvite(w http.ResponseWriter, r *http.Request) {
	invite, actor := inviteID(r), actorFrom(r)
	s.exec(w, r, func() (any, []social.Notice, error) {
		notices, err := s.World.Civilizations.AcceptInvite(invite, actor)
		if err != nil {
			return nil, nil, err
		}
		s.World.Record("civilization", "religion joined a civilization", "invite", invite, "player", actor)
		return nil, notices, nil
	})
}

func (s *Server) handleDeclineCivInvite(w http.ResponseWriter, r *http.Request) {
	invite, actor := inviteID(r), actorFrom(r)
	s.exec(w, r, func() (any, []social.Notice, error) {
		return nil, nil, s.World.Civilizations.DeclineInvite(invite, actor)
	})
}

func (s *Server) handleKickReligion(w http.ResponseWriter, r *http.Request) {
	var req religionRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	id, actor := civilizationID(r), actorFrom(r)
	s.exec(w, r, func() (any, []social.Notice, error) {
		notices, err := s.World.Civilizations.KickReligion(id, req.Religion, actor)
		if err != nil {
			return nil, nil, err
		}
		s.World.Record("civilization", fmt.Sprintf("%s removed from %s", req.Religion, id),
			"civilization", id, "religion", req.Religion, "actor", actor)
		return nil, notices, nil
	})
}

func (s *Server) handleLeaveCivilization(w http.ResponseWriter, r *http.Request) {
	var req religionRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	actor := actorFrom(r)
	s.exec(w, r, func() (any, []social.Notice, error) {
		notices, err := s.World.Civilizations.Leave(req.Religion, actor)
		if err != nil {
			return nil, nil, err
		}
		s.World.Record("civilization", fmt.Sprintf("%s left its civilization", req.Religion),
			"religion", req.Religion, "actor", actor)
		return nil, notices, nil
	})
}

func (s *Server) handleCivilizationDescription(w http.ResponseWriter, r *http.Request) {
	var req descriptionRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	id, actor := civilizationID(r), actorFrom(r)
	s.exec(w, r, func() (any, []social.Notice, error) {
		return nil, nil, s.World.Civilizations.SetDescription(id, actor, req.Text)
	})
}

func (s *Server) handleDisbandCivilization(w http.ResponseWriter, r *http.Request) {
	id, actor := civilizationID(r), actorFrom(r)
	s.exec(w, r, func() (any, []social.Notice, error) {
		d, err := s.World.DisbandCivilization(id, actor)
		if err != nil {
			return nil, nil, err
		}
		return map[string]any{"civilization": d.Civilization.ID, "reason": d.Reason}, d.Notices, nil
	})
}
