package diplomacy

import (
	"slices"
	"strings"
)

// State is the serializable engine content.
type State struct {
	Relations []Relation `json:"relations"`
	Proposals []Proposal `json:"proposals"`
}

// Snapshot copies the engine content.
func (e *Engine) Snapshot() State {
	var s State
	for _, rel := range e.relations {
		s.Relations = append(s.Relations, *rel)
	}
	slices.SortFunc(s.Relations, func(a, b Relation) int {
		if c := strings.Compare(string(a.Pair.A), string(b.Pair.A)); c != 0 {
			return c
		}
		return strings.Compare(string(a.Pair.B), string(b.Pair.B))
	})
	for _, p := range e.proposals {
		s.Proposals = append(s.Proposals, p)
	}
	slices.SortFunc(s.Proposals, func(a, b Proposal) int { return strings.Compare(string(a.ID), string(b.ID)) })
	return s
}

// Restore replaces the engine content. Pairs are renormalized.
func (e *Engine) Restore(s State) {
	e.relations = make(map[Pair]*Relation, len(s.Relations))
	for _, rel := range s.Relations {
		rel.Pair = NewPair(rel.Pair.A, rel.Pair.B)
		e.relations[rel.Pair] = &rel
	}
	e.proposals = make(map[ProposalID]Proposal, len(s.Proposals))
	for _, p := range s.Proposals {
		e.proposals[p.ID] = p
	}
}
