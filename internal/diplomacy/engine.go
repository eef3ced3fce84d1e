package diplomacy

import (
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/pantheon/internal/progression"
	"github.com/talgya/pantheon/internal/social"
)

// Civilizations is the read-only view of the civilization registry used here.
type Civilizations interface {
	Get(id social.CivilizationID) (social.Civilization, bool)
	FounderPlayer(id social.CivilizationID) (social.PlayerID, bool)
}

// Prestige is the rank oracle and prestige sink used for rank gates and
// alliance bonuses.
type Prestige interface {
	CombinedPrestigeRank(religions []social.ReligionID) progression.PrestigeRank
	GrantPrestige(religions []social.ReligionID, amount int) error
}

// Engine owns every materialized relation and pending proposal. Pairs with no
// relation are Neutral.
type Engine struct {
	Now   func() time.Time
	NewID func() string

	civs     Civilizations
	prestige Prestige

	relations map[Pair]*Relation
	proposals map[ProposalID]Proposal
}

// NewEngine creates an engine with no relations.
func NewEngine(civs Civilizations, prestige Prestige) *Engine {
	return &Engine{
		Now:       time.Now,
		NewID:     social.NewID,
		civs:      civs,
		prestige:  prestige,
		relations: make(map[Pair]*Relation),
		proposals: make(map[ProposalID]Proposal),
	}
}

func (e *Engine) now() time.Time {
	return e.Now().UTC()
}

// Relation returns the relation in force between x and y. A lapsed pact or a
// due break reads as Neutral.
func (e *Engine) Relation(x, y social.CivilizationID) Relation {
	pair := NewPair(x, y)
	rel, ok := e.relations[pair]
	if !ok || rel.Lapsed(e.now()) {
		return Relation{Pair: pair, Status: Neutral}
	}
	return *rel
}

// StatusOf is shorthand for Relation(x, y).Status.
func (e *Engine) StatusOf(x, y social.CivilizationID) Status {
	return e.Relation(x, y).Status
}

// RewardMultiplier scales PvP kill rewards between members of x and y.
func (e *Engine) RewardMultiplier(x, y social.CivilizationID) float64 {
	if e.StatusOf(x, y) == War {
		return WarRewardMultiplier
	}
	return 1
}

// Relations lists the relations in force for civ.
func (e *Engine) Relations(civ social.CivilizationID) []Relation {
	now := e.now()
	var out []Relation
	for pair, rel := range e.relations {
		if pair.Has(civ) && !rel.Lapsed(now) {
			out = append(out, *rel)
		}
	}
	slices.SortFunc(out, func(a, b Relation) int {
		return strings.Compare(string(a.Pair.Other(civ)), string(b.Pair.Other(civ)))
	})
	return out
}

// Proposals lists live proposals sent by or to civ.
func (e *Engine) Proposals(civ social.CivilizationID) []Proposal {
	now := e.now()
	var out []Proposal
	for _, p := range e.proposals {
		if (p.From == civ || p.To == civ) && p.Live(now) {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b Proposal) int { return a.IssuedAt.Compare(b.IssuedAt) })
	return out
}

func (e *Engine) civilization(id social.CivilizationID) (social.Civilization, error) {
	c, ok := e.civs.Get(id)
	if !ok {
		return c, social.Errorf(social.CodeCivilizationNotFound, []string{"civilization", string(id)},
			"civilization %s not found", id)
	}
	return c, nil
}

// authorize checks that actor leads civ.
func (e *Engine) authorize(civ social.Civilization, actor social.PlayerID) error {
	founder, ok := e.civs.FounderPlayer(civ.ID)
	if !ok || founder != actor {
		return social.Errorf(social.CodeNotAuthorized, []string{"civilization", civ.Name},
			"%s does not lead %s", actor, civ.Name)
	}
	return nil
}

func (e *Engine) sides(from, to social.CivilizationID, actor social.PlayerID) (social.Civilization, social.Civilization, error) {
	if from == to {
		return social.Civilization{}, social.Civilization{}, social.ErrSelfTarget
	}
	a, err := e.civilization(from)
	if err != nil {
		return a, social.Civilization{}, err
	}
	b, err := e.civilization(to)
	if err != nil {
		return a, b, err
	}
	if err := e.authorize(a, actor); err != nil {
		return a, b, err
	}
	return a, b, nil
}

func (e *Engine) notifyLeader(civ social.CivilizationID, kind social.NoticeKind, kv ...string) []social.Notice {
	founder, ok := e.civs.FounderPlayer(civ)
	if !ok {
		return nil
	}
	return []social.Notice{social.NewNotice(founder, kind, kv...)}
}

func (e *Engine) notifyBoth(pair Pair, kind social.NoticeKind, kv ...string) []social.Notice {
	return append(e.notifyLeader(pair.A, kind, kv...), e.notifyLeader(pair.B, kind, kv...)...)
}

func (e *Engine) checkRank(c social.Civilization, status Status) error {
	need, ok := requiredRank(status)
	if !ok {
		return social.Errorf(social.CodeInvalidStatus, []string{"status", status.String()},
			"%s cannot be proposed", status)
	}
	if got := e.prestige.CombinedPrestigeRank(c.Members); got < need {
		return social.Errorf(social.CodeInsufficientRank, []string{"civilization", c.Name, "rank", got.String()},
			"%s is %s, %s needs %s", c.Name, got, status, need)
	}
	return nil
}

// Propose offers a pact or alliance from one civilization to another. Both
// civilizations must meet the status's prestige rank.
func (e *Engine) Propose(from, to social.CivilizationID, status Status, actor social.PlayerID) (Proposal, []social.Notice, error) {
	if status != NonAggressionPact && status != Alliance {
		return Proposal{}, nil, social.Errorf(social.CodeInvalidStatus, []string{"status", status.String()},
			"%s cannot be proposed", status)
	}
	a, b, err := e.sides(from, to, actor)
	if err != nil {
		return Proposal{}, nil, err
	}
	now := e.now()
	for _, p := range e.proposals {
		if p.From == from && p.To == to && p.Live(now) {
			return Proposal{}, nil, social.ErrAlreadyProposed
		}
	}
	if current := e.StatusOf(from, to); treatyLevel(current) >= treatyLevel(status) {
		return Proposal{}, nil, social.Errorf(social.CodeAlreadyAtOrAboveStatus, []string{"status", current.String()},
			"relation is already %s", current)
	}
	if err := e.checkRank(a, status); err != nil {
		return Proposal{}, nil, err
	}
	if err := e.checkRank(b, status); err != nil {
		return Proposal{}, nil, err
	}

	p := Proposal{
		ID:         ProposalID(e.NewID()),
		From:       from,
		To:         to,
		Status:     status,
		ProposerID: actor,
		IssuedAt:   now,
		ExpiresAt:  now.Add(ProposalTTL),
	}
	e.proposals[p.ID] = p

	slog.Info("treaty proposed", "from", from, "to", to, "status", status, "proposal", p.ID)
	return p, e.notifyLeader(to, social.NoticeProposalReceived,
		"proposal", string(p.ID), "from", string(from), "name", a.Name, "status", status.String()), nil
}

// Accept materializes the proposed relation. Pacts run for PactDuration;
// alliances grant AllianceBonus prestige to every member religion on both sides.
func (e *Engine) Accept(id ProposalID, actor social.PlayerID) (Relation, []social.Notice, error) {
	p, ok := e.proposals[id]
	if !ok {
		return Relation{}, nil, social.ErrProposalNotFound
	}
	now := e.now()
	if !p.Live(now) {
		return Relation{}, nil, social.Errorf(social.CodeExpired, []string{"proposal", string(id)}, "proposal %s expired", id)
	}
	b, a, err := e.sides(p.To, p.From, actor)
	if err != nil {
		return Relation{}, nil, err
	}
	if current := e.StatusOf(p.From, p.To); treatyLevel(current) >= treatyLevel(p.Status) {
		return Relation{}, nil, social.Errorf(social.CodeAlreadyAtOrAboveStatus, []string{"status", current.String()},
			"relation is already %s", current)
	}

	if err := e.checkRank(a, p.Status); err != nil {
		return Relation{}, nil, err
	}
	if err := e.checkRank(b, p.Status); err != nil {
		return Relation{}, nil, err
	}

	// The bonus is the only step that can fail, so it goes before the relation.
	if p.Status == Alliance {
		if err := e.prestige.GrantPrestige(append(slices.Clone(a.Members), b.Members...), AllianceBonus); err != nil {
			return Relation{}, nil, err
		}
	}

	pair := NewPair(p.From, p.To)
	rel := &Relation{Pair: pair, Status: p.Status, EstablishedAt: now}
	if p.Status == NonAggressionPact {
		rel.ExpiresAt = now.Add(PactDuration)
	}
	e.relations[pair] = rel
	maps.DeleteFunc(e.proposals, func(_ ProposalID, other Proposal) bool {
		return NewPair(other.From, other.To) == pair && treatyLevel(other.Status) <= treatyLevel(p.Status)
	})

	slog.Info("treaty accepted", "pair", pair, "status", rel.Status, "expires", expiryText(rel.ExpiresAt))
	return *rel, e.notifyLeader(p.From, social.NoticeProposalAccepted,
		"proposal", string(id), "with", string(p.To), "name", b.Name, "status", p.Status.String()), nil
}

// Decline discards a proposal. Either side may decline; the sender withdraws.
func (e *Engine) Decline(id ProposalID, actor social.PlayerID) ([]social.Notice, error) {
	p, ok := e.proposals[id]
	if !ok {
		return nil, social.ErrProposalNotFound
	}
	to, err := e.civilization(p.To)
	if err != nil {
		return nil, err
	}
	notify := p.From
	if err := e.authorize(to, actor); err != nil {
		from, ferr := e.civilization(p.From)
		if ferr != nil || e.authorize(from, actor) != nil {
			return nil, err
		}
		notify = p.To
	}
	delete(e.proposals, id)

	slog.Info("treaty proposal declined", "proposal", id, "from", p.From, "to", p.To)
	return e.notifyLeader(notify, social.NoticeProposalDeclined,
		"proposal", string(id), "status", p.Status.String()), nil
}

// DeclareWar sets the pair to War at once, dropping any treaty, violations
// and scheduled break. Declaring an existing war again changes nothing.
func (e *Engine) DeclareWar(from, to social.CivilizationID, actor social.PlayerID) (Relation, []social.Notice, error) {
	a, _, err := e.sides(from, to, actor)
	if err != nil {
		return Relation{}, nil, err
	}
	if current := e.Relation(from, to); current.Status == War {
		return current, nil, nil
	}
	pair := NewPair(from, to)
	rel := &Relation{Pair: pair, Status: War, EstablishedAt: e.now()}
	e.relations[pair] = rel

	slog.Info("war declared", "from", from, "to", to)
	return *rel, e.notifyLeader(to, social.NoticeWarDeclared, "from", string(from), "name", a.Name), nil
}

// ScheduleBreak returns the pair to Neutral after BreakWarning. Scheduling an
// already scheduled break keeps the original time.
func (e *Engine) ScheduleBreak(civ, other social.CivilizationID, actor social.PlayerID) (Relation, []social.Notice, error) {
	if _, _, err := e.sides(civ, other, actor); err != nil {
		return Relation{}, nil, err
	}
	rel, err := e.standing(civ, other)
	if err != nil {
		return Relation{}, nil, err
	}
	if !rel.BreakAt.IsZero() {
		return *rel, nil, nil
	}
	rel.BreakAt = e.now().Add(BreakWarning)
	rel.BreakBy = civ

	slog.Info("treaty break scheduled", "pair", rel.Pair, "status", rel.Status, "at", humanize.Time(rel.BreakAt))
	return *rel, e.notifyLeader(other, social.NoticeBreakScheduled,
		"from", string(civ), "status", rel.Status.String(), "at", rel.BreakAt.Format(time.RFC3339)), nil
}

// CancelBreak removes a scheduled break. Canceling when none is scheduled changes nothing.
func (e *Engine) CancelBreak(civ, other social.CivilizationID, actor social.PlayerID) (Relation, []social.Notice, error) {
	if _, _, err := e.sides(civ, other, actor); err != nil {
		return Relation{}, nil, err
	}
	rel, err := e.standing(civ, other)
	if err != nil {
		return Relation{}, nil, err
	}
	if rel.BreakAt.IsZero() {
		return *rel, nil, nil
	}
	rel.BreakAt, rel.BreakBy = time.Time{}, ""

	slog.Info("treaty break canceled", "pair", rel.Pair, "status", rel.Status)
	return *rel, e.notifyLeader(other, social.NoticeBreakCanceled, "from", string(civ)), nil
}

// standing returns the stored relation in force for the pair or NoTreaty.
func (e *Engine) standing(x, y social.CivilizationID) (*Relation, error) {
	rel, ok := e.relations[NewPair(x, y)]
	if !ok || rel.Lapsed(e.now()) {
		return nil, social.Errorf(social.CodeNoTreaty, []string{"a", string(x), "b", string(y)},
			"no relation between %s and %s", x, y)
	}
	return rel, nil
}

// Violation reports the outcome of a recorded treaty infraction.
type Violation struct {
	Relation   Relation
	AutoBroken bool
}

// RecordViolation counts a PvP infraction under a pact or alliance. The
// ViolationLimit-th infraction returns the pair to Neutral.
func (e *Engine) RecordViolation(x, y social.CivilizationID) (Violation, []social.Notice, error) {
	rel, err := e.standing(x, y)
	if err != nil {
		return Violation{}, nil, err
	}
	if !rel.Status.Treaty() {
		return Violation{}, nil, social.Errorf(social.CodeNoTreaty, []string{"status", rel.Status.String()},
			"relation is %s", rel.Status)
	}
	rel.Violations++
	if rel.Violations < ViolationLimit {
		slog.Info("treaty violation", "pair", rel.Pair, "violations", rel.Violations)
		return Violation{Relation: *rel}, e.notifyBoth(rel.Pair, social.NoticeTreatyViolation,
			"count", strconv.Itoa(rel.Violations), "limit", strconv.Itoa(ViolationLimit)), nil
	}

	ended := *rel
	delete(e.relations, rel.Pair)
	slog.Warn("treaty auto-broken", "pair", ended.Pair, "status", ended.Status, "violations", ended.Violations)
	return Violation{Relation: Relation{Pair: ended.Pair, Status: Neutral}, AutoBroken: true},
		e.notifyBoth(ended.Pair, social.NoticeTreatyEnded, "status", ended.Status.String(), "reason", "violations"), nil
}

// TerminateCivilization drops every relation and proposal involving civ. It
// must run after the civilization is dissolved.
func (e *Engine) TerminateCivilization(civ social.CivilizationID) []social.Notice {
	var notices []social.Notice
	for pair, rel := range e.relations {
		if !pair.Has(civ) {
			continue
		}
		if !rel.Lapsed(e.now()) {
			notices = append(notices, e.notifyLeader(pair.Other(civ), social.NoticeTreatyEnded,
				"with", string(civ), "status", rel.Status.String(), "reason", "dissolved")...)
		}
		delete(e.relations, pair)
	}
	maps.DeleteFunc(e.proposals, func(_ ProposalID, p Proposal) bool { return p.From == civ || p.To == civ })
	if len(notices) > 0 {
		slog.Info("relations terminated", "civilization", civ, "notified", len(notices))
	}
	return notices
}

// Sweep removes expired proposals, lapsed pacts and due breaks. It returns the
// number of removed records and the notices for ended relations.
func (e *Engine) Sweep() (int, []social.Notice) {
	now := e.now()
	removed := len(e.proposals)
	maps.DeleteFunc(e.proposals, func(_ ProposalID, p Proposal) bool { return !p.Live(now) })
	removed -= len(e.proposals)

	var notices []social.Notice
	for pair, rel := range e.relations {
		if !rel.Lapsed(now) {
			continue
		}
		reason := "expired"
		if !rel.BreakAt.IsZero() && !now.Before(rel.BreakAt) {
			reason = "break"
		}
		notices = append(notices, e.notifyBoth(pair, social.NoticeTreatyEnded,
			"status", rel.Status.String(), "reason", reason)...)
		delete(e.relations, pair)
		removed++
		slog.Info("relation lapsed", "pair", pair, "status", rel.Status, "reason", reason)
	}
	return removed, notices
}

func expiryText(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}
