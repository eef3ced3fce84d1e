// Package api provides the HTTP adapter for the social engine.
// GET endpoints are public (read-only observation).
// Command endpoints (POST) act for the player named in the X-Player-ID header
// and are rate limited per player.
// Admin endpoints require a bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/talgya/pantheon/internal/engine"
	"github.com/talgya/pantheon/internal/social"
)

// ActorHeader carries the id of the player issuing a command.
const ActorHeader = "X-Player-ID"

// Server serves the world over HTTP. Every read and command runs on the
// engine goroutine through Eng.Do.
type Server struct {
	World    *engine.World
	Eng      *engine.Engine
	Limiter  *RateLimiter // Per-player command throttle. Nil = unlimited.
	Port     int
	AdminKey string // Bearer token for admin endpoints. Empty = admin disabled.
	// CORSOrigins are allowed in addition to the localhost dev servers.
	CORSOrigins []string

	// Save persists a snapshot (admin save endpoint). Nil = disabled.
	Save func(ctx context.Context) error
	// Deliver hands notices to the game's notification channel. Nil = LogNotices.
	Deliver func([]social.Notice)

	started time.Time
	srv     *http.Server
}

var validate = validator.New()

type actorKey struct{}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	if s.started.IsZero() {
		s.started = time.Now()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(corsMiddleware(s.CORSOrigins))

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (GET, read-only).
		r.Get("/status", s.handleStatus)
		r.Get("/events", s.handleEvents)
		r.Get("/religions", s.handleReligions)
		r.Get("/religions/{id}", s.handleReligionDetail)
		r.Get("/religions/{id}/roles", s.handleRoles)
		r.Get("/religions/{id}/civilization-invites", s.handleCivilizationInvites)
		r.Get("/civilizations", s.handleCivilizations)
		r.Get("/civilizations/{id}", s.handleCivilizationDetail)
		r.Get("/players/{player}", s.handlePlayer)

		// Player commands.
		r.Group(func(r chi.Router) {
			r.Use(requireActor)
			if s.Limiter != nil {
				r.Use(s.Limiter.Middleware)
			}
			r.Get("/religions/{id}/members", s.handleMembers)
			r.Get("/religions/{id}/bans", s.handleBanList)

			r.Post("/religions", s.handleCreateReligion)
			r.Post("/religions/{id}/join", s.handleJoin)
			r.Post("/religions/{id}/accept", s.handleAcceptInvite)
			r.Post("/religions/{id}/decline", s.handleDeclineInvite)
			r.Post("/religions/{id}/leave", s.handleLeave)
			r.Post("/religions/{id}/invite", s.handleInvite)
			r.Post("/religions/{id}/kick", s.handleKick)
			r.Post("/religions/{id}/ban", s.handleBan)
			r.Post("/religions/{id}/unban", s.handleUnban)
			r.Post("/religions/{id}/description", s.handleReligionDescription)
			r.Post("/religions/{id}/transfer", s.handleTransferFounder)
			r.Post("/religions/{id}/disband", s.handleDisbandReligion)

			r.Post("/religions/{id}/roles", s.handleCreateRole)
			r.Post("/religions/{id}/roles/{role}/rename", s.handleRenameRole)
			r.Post("/religions/{id}/roles/{role}/permissions", s.handleRolePermissions)
			r.Post("/religions/{id}/roles/{role}/assign", s.handleAssignRole)
			r.Post("/religions/{id}/roles/{role}/delete", s.handleDeleteRole)

			r.Post("/civilizations", s.handleCreateCivilization)
			r.Post("/civilizations/leave", s.handleLeaveCivilization)
			r.Post("/civilizations/invites/{invite}/accept", s.handleAcceptCivInvite)
			r.Post("/civilizations/invites/{invite}/decline", s.handleDeclineCivInvite)
			r.Post("/civilizations/{id}/invite", s.handleInviteReligion)
			r.Post("/civilizations/{id}/kick", s.handleKickReligion)
			r.Post("/civilizations/{id}/description", s.handleCivilizationDescription)
			r.Post("/civilizations/{id}/disband", s.handleDisbandCivilization)

			r.Post("/diplomacy/proposals", s.handlePropose)
			r.Post("/diplomacy/proposals/{proposal}/accept", s.handleAcceptProposal)
			r.Post("/diplomacy/proposals/{proposal}/decline", s.handleDeclineProposal)
			r.Post("/diplomacy/war", s.handleDeclareWar)
			r.Post("/diplomacy/break", s.handleScheduleBreak)
			r.Post("/diplomacy/break/cancel", s.handleCancelBreak)
		})

		// Admin endpoints (require bearer token).
		r.Group(func(r chi.Router) {
			r.Use(s.adminOnly)
			r.Post("/admin/favor", s.handleSetFavor)
			r.Post("/admin/favor/total", s.handleSetTotalFavor)
			r.Post("/admin/prestige", s.handleSetPrestige)
			r.Post("/admin/prestige/total", s.handleSetTotalPrestige)
			r.Post("/admin/kills", s.handlePvPKill)
			r.Post("/admin/sweep", s.handleSweep)
			r.Post("/admin/save", s.handleSave)
		})
	})
	return r
}

// Start begins serving the HTTP API in a goroutine. Idle rate limiter entries
// are pruned until ctx is done.
func (s *Server) Start(ctx context.Context) {
	addr := fmt.Sprintf(":%d", s.Port)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "rate_limited", s.Limiter != nil)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	if s.Limiter != nil {
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n := s.Limiter.Cleanup(); n > 0 {
						slog.Debug("rate limiter pruned", "entries", n)
					}
				}
			}
		}()
	}
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Localhost dev servers are always allowed.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range origins {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowed[origin] = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if allowed[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+ActorHeader)
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly requires the admin bearer token.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			writeError(w, http.StatusForbidden, "admin_disabled", "admin endpoints disabled (no PANTHEON_ADMIN_KEY set)", nil)
			return
		}
		if !s.checkBearerToken(r) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireActor rejects requests without a player id.
func requireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := strings.TrimSpace(r.Header.Get(ActorHeader))
		if actor == "" {
			writeError(w, http.StatusUnauthorized, "missing_actor", ActorHeader+" header required", nil)
			return
		}
		ctx := context.WithValue(r.Context(), actorKey{}, social.PlayerID(actor))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorFrom(r *http.Request) social.PlayerID {
	p, _ := r.Context().Value(actorKey{}).(social.PlayerID)
	return p
}

// commandResult is the body of a successful command.
type commandResult struct {
	Result  any             `json:"result,omitempty"`
	Notices []social.Notice `json:"notices,omitempty"`
}

// exec runs fn on the engine goroutine, delivers its notices and writes the result.
func (s *Server) exec(w http.ResponseWriter, r *http.Request, fn func() (any, []social.Notice, error)) {
	var (
		out     any
		notices []social.Notice
	)
	err := s.Eng.Do(r.Context(), func() error {
		var err error
		out, notices, err = fn()
		return err
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	s.deliver(notices)
	writeJSON(w, commandResult{Result: out, Notices: notices})
}

// read runs a query on the engine goroutine and writes its result.
func (s *Server) read(w http.ResponseWriter, r *http.Request, fn func() (any, error)) {
	var out any
	err := s.Eng.Do(r.Context(), func() error {
		var err error
		out, err = fn()
		return err
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, out)
}

func (s *Server) deliver(notices []social.Notice) {
	if len(notices) == 0 {
		return
	}
	if s.Deliver != nil {
		s.Deliver(notices)
		return
	}
	LogNotices(notices)
}

// LogNotices is the delivery hook used when the game has no notification
// channel attached.
func LogNotices(notices []social.Notice) {
	for _, n := range notices {
		slog.Info("notice", "player", n.Player, "kind", n.Kind)
	}
}

// DeliverSweep is the engine's sweep callback: it logs what the sweep removed
// and delivers its notices the same way command notices are delivered.
func (s *Server) DeliverSweep(r engine.SweepReport) {
	if r.Removed > 0 || len(r.Dissolved) > 0 {
		slog.Info("sweep", "removed", r.Removed, "dissolved", len(r.Dissolved), "notices", len(r.Notices))
	}
	s.deliver(r.Notices)
}

// decode reads a JSON body into dst and validates its tags.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return social.Errorf(social.CodeInvalidInput, nil, "invalid request body: %v", err)
	}
	if err := validate.Struct(dst); err != nil {
		return social.Errorf(social.CodeInvalidInput, nil, "invalid request: %v", err)
	}
	return nil
}

// statusFor maps a domain error code to an HTTP status.
func statusFor(code social.Code) int {
	switch code {
	case social.CodeNotAuthorized, social.CodeNotFounder, social.CodeBanned, social.CodeProtected,
		social.CodeInsufficientRank:
		return http.StatusForbidden
	case social.CodeReligionNotFound, social.CodeRoleNotFound, social.CodeInviteNotFound,
		social.CodeCivilizationNotFound, social.CodeProposalNotFound:
		return http.StatusNotFound
	case social.CodeInvalidName, social.CodeInvalidInput, social.CodeInvalidStatus,
		social.CodeUnknownPermission, social.CodeInvalidAmount, social.CodeSelfTarget,
		social.CodeCannotTargetSelf, social.CodeCannotKickSelf:
		return http.StatusBadRequest
	case social.CodeExpired:
		return http.StatusGone
	case social.CodeInternalInconsistency:
		return http.StatusInternalServerError
	}
	return http.StatusConflict
}

func writeFailure(w http.ResponseWriter, err error) {
	var de *social.Error
	if errors.As(err, &de) {
		writeError(w, statusFor(de.Code), string(de.Code), de.Message, de.Metadata)
		return
	}
	if errors.Is(err, engine.ErrStopped) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		writeError(w, http.StatusServiceUnavailable, "unavailable", err.Error(), nil)
		return
	}
	slog.Error("command failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal", "internal error", nil)
}

type errorBody struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, message string, meta map[string]string) {
	writeJSONStatus(w, status, map[string]errorBody{"error": {Code: code, Message: message, Metadata: meta}})
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.read(w, r, func() (any, error) {
		return map[string]any{
			"name":          "Pantheon",
			"tick":          s.World.LastTick,
			"religions":     len(s.World.Religions.List()),
			"civilizations": len(s.World.Civilizations.List()),
			"events":        len(s.World.Events),
			"started":       humanize.Time(s.started),
		}, nil
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= engine.MaxEvents {
			limit = n
		}
	}
	category := r.URL.Query().Get("category")

	s.read(w, r, func() (any, error) {
		events := s.World.RecentEvents(0)
		if category != "" {
			var filtered []engine.Event
			for _, e := range events {
				if e.Category == category {
					filtered = append(filtered, e)
				}
			}
			events = filtered
		}
		if len(events) > limit {
			events = events[len(events)-limit:]
		}
		if events == nil {
			events = []engine.Event{}
		}
		return events, nil
	})
}
