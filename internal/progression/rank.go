// Package progression tracks player favor and religion prestige and derives
// ranks from their cumulative totals.
package progression

import "fmt"

// FavorRank is a player's devotion tier.
type FavorRank uint8

const (
	Initiate FavorRank = iota
	Disciple
	Zealot
	Champion
	Avatar
)

// PrestigeRank is a religion's (or civilization's) standing tier.
type PrestigeRank uint8

const (
	Fledgling PrestigeRank = iota
	Established
	Renowned
	Legendary
	Mythic
)

// Thresholds on the cumulative total, indexed by rank.
var (
	favorThresholds    = [...]int{0, 500, 2000, 5000, 10000}
	prestigeThresholds = [...]int{0, 500, 2000, 5000, 10000}
)

// FavorRankFor returns the rank earned by a cumulative favor total.
func FavorRankFor(total int) FavorRank {
	return FavorRank(step(favorThresholds[:], total))
}

// PrestigeRankFor returns the rank earned by a cumulative prestige total.
func PrestigeRankFor(total int) PrestigeRank {
	return PrestigeRank(step(prestigeThresholds[:], total))
}

// NextFavorThreshold returns the total that earns the rank after r, or 0 at
// the top rank.
func NextFavorThreshold(r FavorRank) int {
	return next(favorThresholds[:], int(r))
}

// NextPrestigeThreshold returns the total that earns the rank after r, or 0 at
// the top rank.
func NextPrestigeThreshold(r PrestigeRank) int {
	return next(prestigeThresholds[:], int(r))
}

func next(thresholds []int, rank int) int {
	if rank+1 >= len(thresholds) {
		return 0
	}
	return thresholds[rank+1]
}

func step(thresholds []int, total int) int {
	rank := 0
	for i, t := range thresholds {
		if total >= t {
			rank = i
		}
	}
	return rank
}

func (r FavorRank) String() string {
	switch r {
	case Initiate:
		return "Initiate"
	case Disciple:
		return "Disciple"
	case Zealot:
		return "Zealot"
	case Champion:
		return "Champion"
	case Avatar:
		return "Avatar"
	}
	return fmt.Sprintf("FavorRank(%d)", uint8(r))
}

func (r PrestigeRank) String() string {
	switch r {
	case Fledgling:
		return "Fledgling"
	case Established:
		return "Established"
	case Renowned:
		return "Renowned"
	case Legendary:
		return "Legendary"
	case Mythic:
		return "Mythic"
	}
	return fmt.Sprintf("PrestigeRank(%d)", uint8(r))
}

func (r FavorRank) MarshalText() ([]byte, error)    { return []byte(r.String()), nil }
func (r PrestigeRank) MarshalText() ([]byte, error) { return []byte(r.String()), nil }
