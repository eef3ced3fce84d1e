// Package diplomacy tracks treaty and war relations between civilizations.
package diplomacy

import (
	"fmt"
	"strings"
	"time"

	"github.com/talgya/pantheon/internal/progression"
	"github.com/talgya/pantheon/internal/social"
)

const (
	ProposalTTL         = 7 * 24 * time.Hour
	PactDuration        = 3 * 24 * time.Hour
	BreakWarning        = 24 * time.Hour
	ViolationLimit      = 3
	WarRewardMultiplier = 1.5
	// AllianceBonus is the prestige granted to every member religion of both
	// civilizations when an alliance forms.
	AllianceBonus = 250
)

// Status is the treaty state between two civilizations.
type Status uint8

const (
	Neutral Status = iota
	NonAggressionPact
	Alliance
	War
)

func (s Status) String() string {
	switch s {
	case Neutral:
		return "neutral"
	case NonAggressionPact:
		return "non_aggression_pact"
	case Alliance:
		return "alliance"
	case War:
		return "war"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// ParseStatus converts a status name to a Status.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "neutral":
		return Neutral, true
	case "non_aggression_pact", "nap":
		return NonAggressionPact, true
	case "alliance":
		return Alliance, true
	case "war":
		return War, true
	}
	return Neutral, false
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	parsed, ok := ParseStatus(string(b))
	if !ok {
		return fmt.Errorf("unknown diplomatic status %q", string(b))
	}
	*s = parsed
	return nil
}

// Treaty reports whether the status is a pact or an alliance.
func (s Status) Treaty() bool {
	return s == NonAggressionPact || s == Alliance
}

// requiredRank is the aggregate prestige rank both sides need to propose s.
func requiredRank(s Status) (progression.PrestigeRank, bool) {
	switch s {
	case NonAggressionPact:
		return progression.Established, true
	case Alliance:
		return progression.Renowned, true
	}
	return 0, false
}

// treatyLevel orders the proposable statuses. War and Neutral sit below both
// treaties so a peace proposal can be made from either.
func treatyLevel(s Status) int {
	switch s {
	case NonAggressionPact:
		return 1
	case Alliance:
		return 2
	}
	return 0
}

// Pair is an unordered civilization pair, stored with A < B.
type Pair struct {
	A social.CivilizationID `json:"a"`
	B social.CivilizationID `json:"b"`
}

// NewPair normalizes x and y into a Pair.
func NewPair(x, y social.CivilizationID) Pair {
	if y < x {
		x, y = y, x
	}
	return Pair{A: x, B: y}
}

// Has reports whether civ is one side of the pair.
func (p Pair) Has(civ social.CivilizationID) bool {
	return p.A == civ || p.B == civ
}

// Other returns the side opposite civ.
func (p Pair) Other(civ social.CivilizationID) social.CivilizationID {
	if p.A == civ {
		return p.B
	}
	return p.A
}

// Relation is the materialized state of a non-neutral pair.
type Relation struct {
	Pair          Pair                  `json:"pair"`
	Status        Status                `json:"status"`
	EstablishedAt time.Time             `json:"established_at"`
	ExpiresAt     time.Time             `json:"expires_at,omitzero"`
	Violations    int                   `json:"violations"`
	BreakAt       time.Time             `json:"break_at,omitzero"`
	BreakBy       social.CivilizationID `json:"break_by,omitempty"`
}

// Lapsed reports whether the relation has reverted to Neutral at now, either
// because a pact ran out or a scheduled break came due.
func (r Relation) Lapsed(now time.Time) bool {
	if !social.Live(r.ExpiresAt, now) {
		return true
	}
	return !r.BreakAt.IsZero() && !now.Before(r.BreakAt)
}

// ProposalID identifies a pending proposal.
type ProposalID string

// Proposal offers a treaty from one civilization to another.
type Proposal struct {
	ID         ProposalID            `json:"id"`
	From       social.CivilizationID `json:"from"`
	To         social.CivilizationID `json:"to"`
	Status     Status                `json:"status"`
	ProposerID social.PlayerID       `json:"proposer_id"`
	IssuedAt   time.Time             `json:"issued_at"`
	ExpiresAt  time.Time             `json:"expires_at"`
}

// Live reports whether the proposal can still be accepted at now.
func (p Proposal) Live(now time.Time) bool {
	return social.Live(p.ExpiresAt, now)
}
