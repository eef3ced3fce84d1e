package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/talgya/pantheon/internal/diplomacy"
	"github.com/talgya/pantheon/internal/social"
)

type proposeRequest struct {
	From   social.CivilizationID `json:"from" validate:"required"`
	To     social.CivilizationID `json:"to" validate:"required"`
	Status diplomacy.Status      `json:"status"`
}

func (s *Server) handlePropose(w http.ResponseWriter, r *http.Request) {
	var req proposeRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	actor := actorFrom(r)
	s.exec(w, r, func() (any, []social.Notice, error) {
		p, notices, err := s.World.Diplomacy.Propose(req.From, req.To, req.Status, actor)
		if err != nil {
			return nil, nil, err
		}
		s.World.Record("diplomacy", fmt.Sprintf("%s proposed %s to %s", req.From, req.Status, req.To),
			"from", req.From, "to", req.To, "status", req.Status.String())
		return p, notices, nil
	})
}

func proposalID(r *http.Request) diplomacy.ProposalID {
	return diplomacy.ProposalID(chi.URLParam(r, "proposal"))
}

func (s *Server) handleAcceptProposal(w http.ResponseWriter, r *http.Request) {
	id, actor := proposalID(r), actorFrom(r)
	s.exec(w, r, func() (any, []social.Notice, error) {
		rel, notices, err := s.World.Diplomacy.Accept(id, actor)
		if err != nil {
			return nil, nil, err
		}
		s.World.Record("diplomacy", fmt.Sprintf("%s and %s are now %s", rel.Pair.A, rel.Pair.B, rel.Status),
			"a", rel.Pair.A, "b", rel.Pair.B, "status", rel.Status.String())
		return rel, notices, nil
	})
}

func (s *Server) handleDeclineProposal(w http.ResponseWriter, r *http.Request) {
	id, actor := proposalID(r), actorFrom(r)
	s.exec(w, r, func() (any, []social.Notice, error) {
		notices, err := s.World.Diplomacy.Decline(id, actor)
		return nil, notices, err
	})
}

type pairRequest struct {
	From social.CivilizationID `json:"from" validate:"required"`
	To   social.CivilizationID `json:"to" validate:"required"`
}

func (s *Server) handleDeclareWar(w http.ResponseWriter, r *http.Request) {
	var req pairRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	actor := actorFrom(r)
	s.exec(w, r, func() (any, []social.Notice, error) {
		rel, notices, err := s.World.Diplomacy.DeclareWar(req.From, req.To, actor)
		if err != nil {
			return nil, nil, err
		}
		if len(notices) > 0 {
			s.World.Record("diplomacy", fmt.Sprintf("%s declared war on %s", req.From, req.To),
				"from", req.From, "to", req.To)
		}
		return rel, notices, nil
	})
}

// relationCommand runs a command on an existing relation from one side.
func (s *Server) relationCommand(w http.ResponseWriter, r *http.Request,
	op func(social.CivilizationID, social.CivilizationID, social.PlayerID) (diplomacy.Relation, []social.Notice, error)) {
	var req pairRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	actor := actorFrom(r)
	s.exec(w, r, func() (any, []social.Notice, error) {
		rel, notices, err := op(req.From, req.To, actor)
		if err != nil {
			return nil, nil, err
		}
		return rel, notices, nil
	})
}

func (s *Server) handleScheduleBreak(w http.ResponseWriter, r *http.Request) {
	s.relationCommand(w, r, s.World.Diplomacy.ScheduleBreak)
}

func (s *Server) handleCancelBreak(w http.ResponseWriter, r *http.Request) {
	s.relationCommand(w, r, s.World.Diplomacy.CancelBreak)
}
