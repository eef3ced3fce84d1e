package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/talgya/pantheon/internal/engine"
	"github.com/talgya/pantheon/internal/social"
)

type favorRequest struct {
	Player social.PlayerID `json:"player" validate:"required"`
	Value  int             `json:"value" validate:"min=0"`
}

type prestigeRequest struct {
	Religion social.ReligionID `json:"religion" validate:"required"`
	Value    int               `json:"value" validate:"min=0"`
}

func (s *Server) handleSetFavor(w http.ResponseWriter, r *http.Request) {
	var req favorRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	s.exec(w, r, func() (any, []social.Notice, error) {
		acct, err := s.World.Ledger.SetFavor(req.Player, req.Value)
		if err != nil {
			return nil, nil, err
		}
		s.World.Record("progression", fmt.Sprintf("admin set favor of %s to %d", req.Player, req.Value),
			"player", req.Player, "favor", req.Value)
		return acct, nil, nil
	})
}

func (s *Server) handleSetTotalFavor(w http.ResponseWriter, r *http.Request) {
	var req favorRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	s.exec(w, r, func() (any, []social.Notice, error) {
		acct, err := s.World.Ledger.SetTotalFavor(req.Player, req.Value)
		if err != nil {
			return nil, nil, err
		}
		s.World.Record("progression", fmt.Sprintf("admin set total favor of %s to %d", req.Player, req.Value),
			"player", req.Player, "total", req.Value, "rank", acct.Rank().String())
		return acct, nil, nil
	})
}

func (s *Server) handleSetPrestige(w http.ResponseWriter, r *http.Request) {
	var req prestigeRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	s.exec(w, r, func() (any, []social.Notice, error) {
		if _, ok := s.World.Religions.Lookup(req.Religion); !ok {
			return nil, nil, social.ErrReligionNotFound
		}
		acct, err := s.World.Ledger.SetPrestige(req.Religion, req.Value)
		if err != nil {
			return nil, nil, err
		}
		s.World.Record("progression", fmt.Sprintf("admin set prestige of %s to %d", req.Religion, req.Value),
			"religion", req.Religion, "prestige", req.Value)
		return acct, nil, nil
	})
}

func (s *Server) handleSetTotalPrestige(w http.ResponseWriter, r *http.Request) {
	var req prestigeRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	s.exec(w, r, func() (any, []social.Notice, error) {
		if _, ok := s.World.Religions.Lookup(req.Religion); !ok {
			return nil, nil, social.ErrReligionNotFound
		}
		acct, err := s.World.Ledger.SetTotalPrestige(req.Religion, req.Value)
		if err != nil {
			return nil, nil, err
		}
		s.World.Record("progression", fmt.Sprintf("admin set total prestige of %s to %d", req.Religion, req.Value),
			"religion", req.Religion, "total", req.Value, "rank", acct.Rank().String())
		return acct, nil, nil
	})
}

type killRequest struct {
	Killer social.PlayerID `json:"killer" validate:"required"`
	Victim social.PlayerID `json:"victim" validate:"required"`
}

// handlePvPKill is called by the game server when one player kills another.
func (s *Server) handlePvPKill(w http.ResponseWriter, r *http.Request) {
	var req killRequest
	if err := decode(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	s.exec(w, r, func() (any, []social.Notice, error) {
		outcome, err := s.World.RecordPvPKill(req.Killer, req.Victim)
		if err != nil {
			return nil, nil, err
		}
		switch o := outcome.(type) {
		case engine.KillIgnored:
			return map[string]any{"outcome": "ignored", "reason": o.Reason}, nil, nil
		case engine.KillRewarded:
			return map[string]any{"outcome": "rewarded", "favor": o.Favor, "prestige": o.Prestige, "multiplier": o.Multiplier}, nil, nil
		case engine.TreatyViolated:
			return map[string]any{
				"outcome":     "treaty_violated",
				"violations":  o.Violation.Relation.Violations,
				"auto_broken": o.Violation.AutoBroken,
			}, o.Notices, nil
		}
		return nil, nil, fmt.Errorf("unexpected kill outcome %T", outcome)
	})
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	s.exec(w, r, func() (any, []social.Notice, error) {
		report := s.World.Sweep()
		return map[string]any{"removed": report.Removed, "dissolved": report.Dissolved}, report.Notices, nil
	})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.Save == nil {
		writeError(w, http.StatusServiceUnavailable, "save_disabled", "no database configured", nil)
		return
	}
	if err := s.Save(r.Context()); err != nil {
		slog.Error("admin save failed", "error", err)
		writeError(w, http.StatusInternalServerError, "save_failed", err.Error(), nil)
		return
	}
	writeJSON(w, map[string]string{"status": "saved"})
}
