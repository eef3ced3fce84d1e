package progression

import (
	"log/slog"
	"maps"

	"github.com/talgya/pantheon/internal/social"
)

// SwitchPenaltyFraction is the share of spendable favor a player forfeits when
// joining a religion after having left one.
const SwitchPenaltyFraction = 0.5

// FavorAccount is a player's favor balance.
type FavorAccount struct {
	Favor int `json:"favor"`
	Total int `json:"total"`
}

// Rank derives the account's favor rank.
func (a FavorAccount) Rank() FavorRank { return FavorRankFor(a.Total) }

// PrestigeAccount is a religion's prestige balance.
type PrestigeAccount struct {
	Prestige int `json:"prestige"`
	Total    int `json:"total"`
}

// Rank derives the account's prestige rank.
func (a PrestigeAccount) Rank() PrestigeRank { return PrestigeRankFor(a.Total) }

// Ledger owns favor and prestige balances. Totals only grow, except through
// the admin SetTotal operations.
type Ledger struct {
	players   map[social.PlayerID]FavorAccount
	religions map[social.ReligionID]PrestigeAccount
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		players:   make(map[social.PlayerID]FavorAccount),
		religions: make(map[social.ReligionID]PrestigeAccount),
	}
}

// Favor returns a player's account (zero if unknown).
func (l *Ledger) Favor(p social.PlayerID) FavorAccount {
	return l.players[p]
}

// Prestige returns a religion's account (zero if unknown).
func (l *Ledger) Prestige(r social.ReligionID) PrestigeAccount {
	return l.religions[r]
}

// AddFavor credits spendable favor and the cumulative total.
func (l *Ledger) AddFavor(p social.PlayerID, amount int) (FavorAccount, error) {
	if amount <= 0 {
		return FavorAccount{}, social.ErrInvalidAmount
	}
	acct := l.players[p]
	before := acct.Rank()
	acct.Favor += amount
	acct.Total += amount
	l.players[p] = acct
	if r := acct.Rank(); r != before {
		slog.Info("favor rank up", "player", p, "rank", r)
	}
	return acct, nil
}

// RemoveFavor debits spendable favor, flooring at zero. The total is untouched.
func (l *Ledger) RemoveFavor(p social.PlayerID, amount int) (FavorAccount, error) {
	if amount <= 0 {
		return FavorAccount{}, social.ErrInvalidAmount
	}
	acct := l.players[p]
	acct.Favor = max(acct.Favor-amount, 0)
	l.players[p] = acct
	return acct, nil
}

// SpendFavor debits spendable favor, failing if the balance is short.
func (l *Ledger) SpendFavor(p social.PlayerID, amount int) (FavorAccount, error) {
	if amount <= 0 {
		return FavorAccount{}, social.ErrInvalidAmount
	}
	acct := l.players[p]
	if acct.Favor < amount {
		return acct, social.ErrInsufficientFunds
	}
	acct.Favor -= amount
	l.players[p] = acct
	return acct, nil
}

// SetFavor overwrites spendable favor (admin).
func (l *Ledger) SetFavor(p social.PlayerID, favor int) (FavorAccount, error) {
	if favor < 0 {
		return FavorAccount{}, social.ErrInvalidAmount
	}
	acct := l.players[p]
	acct.Favor = favor
	l.players[p] = acct
	return acct, nil
}

// SetTotalFavor overwrites the cumulative total (admin correction). The rank
// is derived from the total, so it moves in the same step.
func (l *Ledger) SetTotalFavor(p social.PlayerID, total int) (FavorAccount, error) {
	if total < 0 {
		return FavorAccount{}, social.ErrInvalidAmount
	}
	acct := l.players[p]
	acct.Total = total
	l.players[p] = acct
	slog.Info("favor total set", "player", p, "total", total, "rank", acct.Rank())
	return acct, nil
}

// ApplySwitchPenalty forfeits SwitchPenaltyFraction of spendable favor and
// returns the amount taken.
func (l *Ledger) ApplySwitchPenalty(p social.PlayerID) int {
	acct := l.players[p]
	penalty := int(float64(acct.Favor) * SwitchPenaltyFraction)
	if penalty <= 0 {
		return 0
	}
	acct.Favor -= penalty
	l.players[p] = acct
	slog.Info("religion switch penalty", "player", p, "favor_lost", penalty)
	return penalty
}

// AddPrestige credits spendable prestige and the cumulative total.
func (l *Ledger) AddPrestige(r social.ReligionID, amount int) (PrestigeAccount, error) {
	if amount <= 0 {
		return PrestigeAccount{}, social.ErrInvalidAmount
	}
	acct := l.religions[r]
	before := acct.Rank()
	acct.Prestige += amount
	acct.Total += amount
	l.religions[r] = acct
	if rank := acct.Rank(); rank != before {
		slog.Info("prestige rank up", "religion", r, "rank", rank)
	}
	return acct, nil
}

// GrantPrestige credits amount to every religion in rs. An invalid amount
// credits none of them.
func (l *Ledger) GrantPrestige(rs []social.ReligionID, amount int) error {
	if amount <= 0 {
		return social.ErrInvalidAmount
	}
	for _, r := range rs {
		if _, err := l.AddPrestige(r, amount); err != nil {
			return err
		}
	}
	return nil
}

// RemovePrestige debits spendable prestige, flooring at zero.
func (l *Ledger) RemovePrestige(r social.ReligionID, amount int) (PrestigeAccount, error) {
	if amount <= 0 {
		return PrestigeAccount{}, social.ErrInvalidAmount
	}
	acct := l.religions[r]
	acct.Prestige = max(acct.Prestige-amount, 0)
	l.religions[r] = acct
	return acct, nil
}

// SetPrestige overwrites spendable prestige (admin).
func (l *Ledger) SetPrestige(r social.ReligionID, prestige int) (PrestigeAccount, error) {
	if prestige < 0 {
		return PrestigeAccount{}, social.ErrInvalidAmount
	}
	acct := l.religions[r]
	acct.Prestige = prestige
	l.religions[r] = acct
	return acct, nil
}

// SetTotalPrestige overwrites the cumulative total (admin correction).
func (l *Ledger) SetTotalPrestige(r social.ReligionID, total int) (PrestigeAccount, error) {
	if total < 0 {
		return PrestigeAccount{}, social.ErrInvalidAmount
	}
	acct := l.religions[r]
	acct.Total = total
	l.religions[r] = acct
	slog.Info("prestige total set", "religion", r, "total", total, "rank", acct.Rank())
	return acct, nil
}

// ForgetReligion drops a disbanded religion's account.
func (l *Ledger) ForgetReligion(r social.ReligionID) {
	delete(l.religions, r)
}

// CombinedPrestigeRank ranks a group of religions by the sum of their totals.
func (l *Ledger) CombinedPrestigeRank(religions []social.ReligionID) PrestigeRank {
	sum := 0
	for _, r := range religions {
		sum += l.religions[r].Total
	}
	return PrestigeRankFor(sum)
}

// State is the serializable ledger content.
type State struct {
	Players   map[social.PlayerID]FavorAccount      `json:"players"`
	Religions map[social.ReligionID]PrestigeAccount `json:"religions"`
}

// Snapshot copies the ledger content.
func (l *Ledger) Snapshot() State {
	return State{
		Players:   maps.Clone(l.players),
		Religions: maps.Clone(l.religions),
	}
}

// Restore replaces the ledger content.
func (l *Ledger) Restore(s State) {
	l.players = make(map[social.PlayerID]FavorAccount, len(s.Players))
	maps.Copy(l.players, s.Players)
	l.religions = make(map[social.ReligionID]PrestigeAccount, len(s.Religions))
	maps.Copy(l.religions, s.Religions)
}
