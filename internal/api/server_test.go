package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/pantheon/internal/engine"
	"github.com/talgya/pantheon/internal/social"
)

type harness struct {
	t     *testing.T
	srv   *httptest.Server
	world *engine.World
	api   *Server
}

func newHarness(t *testing.T, configure func(*Server)) *harness {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	w := engine.NewWorld(func() time.Time { return now }, func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})
	eng := engine.NewEngine()
	eng.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go eng.Run(ctx)
	t.Cleanup(cancel)

	s := &Server{World: w, Eng: eng, AdminKey: "secret"}
	if configure != nil {
		configure(s)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &harness{t: t, srv: srv, world: w, api: s}
}

// call issues a request and decodes the JSON response.
func (h *harness) call(method, path string, actor social.PlayerID, body any, header ...string) (int, map[string]any) {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, h.srv.URL+path, &buf)
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set(ActorHeader, string(actor))
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	var out any
	require.NoError(h.t, json.NewDecoder(resp.Body).Decode(&out))
	if m, ok := out.(map[string]any); ok {
		return resp.StatusCode, m
	}
	return resp.StatusCode, map[string]any{"list": out}
}

func (h *harness) createReligion(founder social.PlayerID, name, domain string) string {
	h.t.Helper()
	status, body := h.call(http.MethodPost, "/api/v1/religions", founder,
		map[string]string{"name": name, "domain": domain, "visibility": "public"})
	require.Equal(h.t, http.StatusOK, status, body)
	return body["result"].(map[string]any)["id"].(string)
}

func (h *harness) createCivilization(founder social.PlayerID, religion, name string) string {
	h.t.Helper()
	status, body := h.call(http.MethodPost, "/api/v1/civilizations", founder,
		map[string]string{"name": name, "religion": religion})
	require.Equal(h.t, http.StatusOK, status, body)
	return body["result"].(map[string]any)["id"].(string)
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestReligionCommands(t *testing.T) {
	h := newHarness(t, nil)
	id := h.createReligion("alice", "Emberkin", "craft")

	status, body := h.call(http.MethodPost, "/api/v1/religions/"+id+"/join", "bob", nil)
	require.Equal(t, http.StatusOK, status, body)
	notices := body["notices"].([]any)
	require.Len(t, notices, 1)
	assert.Equal(t, "alice", notices[0].(map[string]any)["player"])

	status, body = h.call(http.MethodGet, "/api/v1/religions/"+id, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Emberkin", body["name"])
	assert.Equal(t, "craft", body["domain"])
	assert.EqualValues(t, 2, body["member_count"])

	status, body = h.call(http.MethodGet, "/api/v1/religions/"+id+"/members", "alice", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["list"], 2)

	status, body = h.call(http.MethodPost, "/api/v1/religions/"+id+"/kick", "alice", map[string]string{"target": "bob"})
	require.Equal(t, http.StatusOK, status, body)

	status, body = h.call(http.MethodGet, "/api/v1/players/bob", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, body["religion"])

	status, body = h.call(http.MethodGet, "/api/v1/events?category=religion", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["list"], 3)
}

func TestErrorMapping(t *testing.T) {
	h := newHarness(t, nil)
	id := h.createReligion("alice", "Emberkin", "craft")
	h.call(http.MethodPost, "/api/v1/religions/"+id+"/join", "bob", nil)

	tests := []struct {
		name   string
		path   string
		actor  social.PlayerID
		body   any
		status int
		code   string
	}{
		{"missing actor", "/api/v1/religions/" + id + "/join", "", nil, http.StatusUnauthorized, "missing_actor"},
		{"unknown religion", "/api/v1/religions/nope/join", "carol", nil, http.StatusNotFound, "religion_not_found"},
		{"member lacks permission", "/api/v1/religions/" + id + "/kick", "bob", map[string]string{"target": "alice"}, http.StatusForbidden, "not_authorized"},
		{"already a member", "/api/v1/religions/" + id + "/join", "bob", nil, http.StatusConflict, "already_in_religion"},
		{"missing target", "/api/v1/religions/" + id + "/kick", "alice", map[string]string{}, http.StatusBadRequest, "invalid_input"},
		{"bad domain", "/api/v1/religions", "carol", map[string]string{"name": "Nope", "domain": "water"}, http.StatusBadRequest, "invalid_input"},
		{"name taken", "/api/v1/religions", "carol", map[string]string{"name": "EMBERKIN", "domain": "wild"}, http.StatusConflict, "name_taken"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, body := h.call(http.MethodPost, tc.path, tc.actor, tc.body)
			assert.Equal(t, tc.status, status, body)
			assert.Equal(t, tc.code, errorCode(body))
		})
	}
}

func TestAdminRequiresBearer(t *testing.T) {
	h := newHarness(t, nil)
	body := map[string]any{"player": "alice", "value": 700}

	status, resp := h.call(http.MethodPost, "/api/v1/admin/favor/total", "", body)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", errorCode(resp))

	status, resp = h.call(http.MethodPost, "/api/v1/admin/favor/total", "", body, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, resp = h.call(http.MethodPost, "/api/v1/admin/favor/total", "", body, "Authorization", "Bearer secret")
	require.Equal(t, http.StatusOK, status, resp)
	assert.EqualValues(t, 700, resp["result"].(map[string]any)["total"])

	disabled := newHarness(t, func(s *Server) { s.AdminKey = "" })
	status, resp = disabled.call(http.MethodPost, "/api/v1/admin/favor", "", body, "Authorization", "Bearer secret")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "admin_disabled", errorCode(resp))
}

func TestPvPKillEndpoint(t *testing.T) {
	h := newHarness(t, nil)
	h.createReligion("alice", "Emberkin", "craft")
	auth := []string{"Authorization", "Bearer secret"}

	status, body := h.call(http.MethodPost, "/api/v1/admin/kills", "", map[string]string{"killer": "alice", "victim": "bob"}, auth...)
	require.Equal(t, http.StatusOK, status, body)
	result := body["result"].(map[string]any)
	assert.Equal(t, "rewarded", result["outcome"])
	assert.EqualValues(t, 10, result["favor"])
	assert.EqualValues(t, 5, result["prestige"])

	status, body = h.call(http.MethodPost, "/api/v1/admin/kills", "", map[string]string{"killer": "alice", "victim": "alice"}, auth...)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ignored", body["result"].(map[string]any)["outcome"])
}

func TestDiplomacyEndpoints(t *testing.T) {
	h := newHarness(t, nil)
	auth := []string{"Authorization", "Bearer secret"}
	r1 := h.createReligion("alice", "Emberkin", "craft")
	r2 := h.createReligion("bob", "Wildheart", "wild")
	c1 := h.createCivilization("alice", r1, "Ironpact")
	c2 := h.createCivilization("bob", r2, "Greenhold")

	proposal := map[string]string{"from": c1, "to": c2, "status": "nap"}
	status, body := h.call(http.MethodPost, "/api/v1/diplomacy/proposals", "alice", proposal)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "insufficient_rank", errorCode(body))

	for _, r := range []string{r1, r2} {
		status, body = h.call(http.MethodPost, "/api/v1/admin/prestige/total", "",
			map[string]any{"religion": r, "value": 600}, auth...)
		require.Equal(t, http.StatusOK, status, body)
	}

	status, body = h.call(http.MethodPost, "/api/v1/diplomacy/proposals", "alice", proposal)
	require.Equal(t, http.StatusOK, status, body)
	pid := body["result"].(map[string]any)["id"].(string)

	status, body = h.call(http.MethodPost, "/api/v1/diplomacy/proposals/"+pid+"/accept", "alice", nil)
	assert.Equal(t, http.StatusForbidden, status, body)

	status, body = h.call(http.MethodPost, "/api/v1/diplomacy/proposals/"+pid+"/accept", "bob", nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "non_aggression_pact", body["result"].(map[string]any)["status"])

	status, body = h.call(http.MethodGet, "/api/v1/civilizations/"+c1, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Established", body["rank"])
	assert.Len(t, body["relations"], 1)

	status, body = h.call(http.MethodPost, "/api/v1/diplomacy/break", "bob", map[string]string{"from": c2, "to": c1})
	require.Equal(t, http.StatusOK, status, body)
	assert.NotEmpty(t, body["result"].(map[string]any)["break_at"])
}

func TestDisbandReligionEndpoint(t *testing.T) {
	h := newHarness(t, nil)
	r1 := h.createReligion("alice", "Emberkin", "craft")
	h.createCivilization("alice", r1, "Ironpact")

	status, body := h.call(http.MethodPost, "/api/v1/religions/"+r1+"/disband", "alice", nil)
	require.Equal(t, http.StatusOK, status, body)
	civ := body["result"].(map[string]any)["civilization"].(map[string]any)
	assert.Equal(t, "dissolved", civ["effect"])

	status, body = h.call(http.MethodGet, "/api/v1/civilizations", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["list"])
}

func TestCommandsAreRateLimited(t *testing.T) {
	h := newHarness(t, func(s *Server) { s.Limiter = NewRateLimiter(0.01, 2) })
	id := h.createReligion("alice", "Emberkin", "craft")

	status, _ := h.call(http.MethodPost, "/api/v1/religions/"+id+"/description", "alice", map[string]string{"text": "forge"})
	require.Equal(t, http.StatusOK, status)

	req, err := http.NewRequest(http.MethodPost, h.srv.URL+"/api/v1/religions/"+id+"/description",
		bytes.NewBufferString(`{"text":"anvil"}`))
	require.NoError(t, err)
	req.Header.Set(ActorHeader, "alice")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	// Other players have their own bucket; reads are never limited.
	status, _ = h.call(http.MethodPost, "/api/v1/religions/"+id+"/join", "bob", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = h.call(http.MethodGet, "/api/v1/religions", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestSaveEndpoint(t *testing.T) {
	var saved atomic.Int32
	h := newHarness(t, func(s *Server) {
		s.Save = func(context.Context) error {
			saved.Add(1)
			return nil
		}
	})
	status, _ := h.call(http.MethodPost, "/api/v1/admin/save", "", nil, "Authorization", "Bearer secret")
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, saved.Load())
}

func TestBanLengthIsBounded(t *testing.T) {
	h := newHarness(t, nil)
	id := h.createReligion("alice", "Emberkin", "craft")
	h.call(http.MethodPost, "/api/v1/religions/"+id+"/join", "bob", nil)

	status, body := h.call(http.MethodPost, "/api/v1/religions/"+id+"/ban", "alice",
		map[string]any{"target": "bob", "days": 200000})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_input", errorCode(body))

	status, body = h.call(http.MethodPost, "/api/v1/religions/"+id+"/ban", "alice",
		map[string]any{"target": "bob", "days": social.MaxBanDays})
	require.Equal(t, http.StatusOK, status, body)

	status, body = h.call(http.MethodPost, "/api/v1/religions/"+id+"/join", "bob", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "banned", errorCode(body))
}

func TestCivilizationInvitesEndpoint(t *testing.T) {
	h := newHarness(t, nil)
	r1 := h.createReligion("alice", "Emberkin", "craft")
	r2 := h.createReligion("bob", "Wildheart", "wild")
	c1 := h.createCivilization("alice", r1, "Ironpact")

	status, body := h.call(http.MethodGet, "/api/v1/religions/"+r2+"/civilization-invites", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["list"])

	status, body = h.call(http.MethodPost, "/api/v1/civilizations/"+c1+"/invite", "alice", map[string]string{"religion": r2})
	require.Equal(t, http.StatusOK, status, body)

	status, body = h.call(http.MethodGet, "/api/v1/religions/"+r2+"/civilization-invites", "", nil)
	require.Equal(t, http.StatusOK, status)
	invites := body["list"].([]any)
	require.Len(t, invites, 1)
	assert.Equal(t, c1, invites[0].(map[string]any)["civilization_id"])

	status, _ = h.call(http.MethodGet, "/api/v1/religions/nope/civilization-invites", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestNextRankThresholds(t *testing.T) {
	h := newHarness(t, nil)
	id := h.createReligion("alice", "Emberkin", "craft")

	status, body := h.call(http.MethodGet, "/api/v1/players/alice", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 500, body["next_rank_at"])

	status, body = h.call(http.MethodGet, "/api/v1/religions/"+id, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 500, body["next_rank_at"])

	status, body = h.call(http.MethodPost, "/api/v1/admin/favor/total", "",
		map[string]any{"player": "alice", "value": 10000}, "Authorization", "Bearer secret")
	require.Equal(t, http.StatusOK, status, body)
	_, body = h.call(http.MethodGet, "/api/v1/players/alice", "", nil)
	assert.NotContains(t, body, "next_rank_at", "top rank has no next threshold")
}

type deliveries struct {
	mu      sync.Mutex
	notices []social.Notice
}

func (d *deliveries) deliver(notices []social.Notice) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notices = append(d.notices, notices...)
}

func (d *deliveries) players() []social.PlayerID {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []social.PlayerID
	for _, n := range d.notices {
		out = append(out, n.Player)
	}
	return out
}

func TestNoticesReachDeliveryHook(t *testing.T) {
	var d deliveries
	h := newHarness(t, func(s *Server) { s.Deliver = d.deliver })
	id := h.createReligion("alice", "Emberkin", "craft")

	status, _ := h.call(http.MethodPost, "/api/v1/religions/"+id+"/join", "bob", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []social.PlayerID{"alice"}, d.players())

	h.api.DeliverSweep(engine.SweepReport{
		Removed: 1,
		Notices: []social.Notice{social.NewNotice("carol", social.NoticeBanned, "religion", id)},
	})
	assert.Equal(t, []social.PlayerID{"alice", "carol"}, d.players())

	h.api.DeliverSweep(engine.SweepReport{})
	assert.Len(t, d.players(), 2, "empty sweeps deliver nothing")
}

func TestCORSOrigins(t *testing.T) {
	h := newHarness(t, func(s *Server) { s.CORSOrigins = []string{" https://pantheon.example "} })

	preflight := func(origin string) *http.Response {
		req, err := http.NewRequest(http.MethodOptions, h.srv.URL+"/api/v1/religions", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", origin)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	resp := preflight("https://pantheon.example")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://pantheon.example", resp.Header.Get("Access-Control-Allow-Origin"))

	resp = preflight("http://localhost:5173")
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))

	resp = preflight("https://evil.example")
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
