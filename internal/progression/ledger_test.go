package progression

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/pantheon/internal/social"
)

func TestFavorRankFor(t *testing.T) {
	tests := []struct {
		total int
		want  FavorRank
	}{
		{0, Initiate},
		{499, Initiate},
		{500, Disciple},
		{1999, Disciple},
		{2000, Zealot},
		{5000, Champion},
		{9999, Champion},
		{10000, Avatar},
		{1_000_000, Avatar},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, FavorRankFor(tt.total))
		})
	}
}

func TestPrestigeRankFor(t *testing.T) {
	assert.Equal(t, Fledgling, PrestigeRankFor(0))
	assert.Equal(t, Established, PrestigeRankFor(NextPrestigeThreshold(Fledgling)))
	assert.Equal(t, Renowned, PrestigeRankFor(2000))
	assert.Equal(t, Legendary, PrestigeRankFor(5000))
	assert.Equal(t, Mythic, PrestigeRankFor(10000))
}

func TestNextThreshold(t *testing.T) {
	assert.Equal(t, 500, NextFavorThreshold(Initiate))
	assert.Equal(t, 10000, NextFavorThreshold(Champion))
	assert.Zero(t, NextFavorThreshold(Avatar))
	assert.Equal(t, 5000, NextPrestigeThreshold(Renowned))
	assert.Zero(t, NextPrestigeThreshold(Mythic))
}

func TestTotalFavorNeverRegresses(t *testing.T) {
	l := NewLedger()
	rng := rand.New(rand.NewSource(7))
	prevTotal := 0

	for i := 0; i < 500; i++ {
		amount := rng.Intn(200) + 1
		switch rng.Intn(3) {
		case 0:
			_, err := l.AddFavor("p1", amount)
			require.NoError(t, err)
		case 1:
			_, err := l.RemoveFavor("p1", amount)
			require.NoError(t, err)
		case 2:
			_, _ = l.SpendFavor("p1", amount)
		}
		acct := l.Favor("p1")
		assert.GreaterOrEqual(t, acct.Total, prevTotal)
		assert.GreaterOrEqual(t, acct.Favor, 0)
		assert.Equal(t, FavorRankFor(acct.Total), acct.Rank())
		prevTotal = acct.Total
	}
}

func TestSpendFavorInsufficient(t *testing.T) {
	l := NewLedger()
	_, err := l.AddFavor("p1", 50)
	require.NoError(t, err)

	_, err = l.SpendFavor("p1", 51)
	assert.ErrorIs(t, err, social.ErrInsufficientFunds)

	acct, err := l.SpendFavor("p1", 50)
	require.NoError(t, err)
	assert.Equal(t, 0, acct.Favor)
	assert.Equal(t, 50, acct.Total)
}

func TestInvalidAmounts(t *testing.T) {
	l := NewLedger()
	_, err := l.AddFavor("p1", 0)
	assert.ErrorIs(t, err, social.ErrInvalidAmount)
	_, err = l.RemoveFavor("p1", -3)
	assert.ErrorIs(t, err, social.ErrInvalidAmount)
	_, err = l.AddPrestige("r1", -1)
	assert.ErrorIs(t, err, social.ErrInvalidAmount)
	_, err = l.SetTotalFavor("p1", -1)
	assert.ErrorIs(t, err, social.ErrInvalidAmount)
	assert.ErrorIs(t, l.GrantPrestige([]social.ReligionID{"r1", "r2"}, 0), social.ErrInvalidAmount)
	assert.Zero(t, l.Prestige("r1").Total)
}

func TestGrantPrestige(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.GrantPrestige([]social.ReligionID{"r1", "r2"}, 250))
	assert.Equal(t, 250, l.Prestige("r1").Total)
	assert.Equal(t, 250, l.Prestige("r2").Prestige)
}

func TestSetTotalFavorJumpsRank(t *testing.T) {
	l := NewLedger()
	_, err := l.AddFavor("p1", 120)
	require.NoError(t, err)
	require.Equal(t, Initiate, l.Favor("p1").Rank())

	acct, err := l.SetTotalFavor("p1", 10000)
	require.NoError(t, err)
	assert.Equal(t, Avatar, acct.Rank())
	assert.Equal(t, 120, acct.Favor, "spendable favor is unaffected")

	acct, err = l.SetTotalFavor("p1", 600)
	require.NoError(t, err)
	assert.Equal(t, Disciple, acct.Rank(), "admin correction may lower the total")
}

func TestApplySwitchPenalty(t *testing.T) {
	l := NewLedger()
	assert.Equal(t, 0, l.ApplySwitchPenalty("p1"))

	_, err := l.AddFavor("p1", 301)
	require.NoError(t, err)
	assert.Equal(t, 150, l.ApplySwitchPenalty("p1"))
	acct := l.Favor("p1")
	assert.Equal(t, 151, acct.Favor)
	assert.Equal(t, 301, acct.Total)
}

func TestPrestigeAccounts(t *testing.T) {
	l := NewLedger()
	_, err := l.AddPrestige("r1", 400)
	require.NoError(t, err)
	_, err = l.AddPrestige("r2", 150)
	require.NoError(t, err)

	assert.Equal(t, Fledgling, l.Prestige("r1").Rank())
	assert.Equal(t, Established, l.CombinedPrestigeRank([]social.ReligionID{"r1", "r2"}))

	acct, err := l.RemovePrestige("r1", 1000)
	require.NoError(t, err)
	assert.Equal(t, 0, acct.Prestige)
	assert.Equal(t, 400, acct.Total)

	acct, err = l.SetTotalPrestige("r1", 5000)
	require.NoError(t, err)
	assert.Equal(t, Legendary, acct.Rank())

	l.ForgetReligion("r1")
	assert.Equal(t, PrestigeAccount{}, l.Prestige("r1"))
}

func TestSnapshotRestoreIsolated(t *testing.T) {
	l := NewLedger()
	_, err := l.AddFavor("p1", 10)
	require.NoError(t, err)
	_, err = l.AddPrestige("r1", 20)
	require.NoError(t, err)

	snap := l.Snapshot()
	_, err = l.AddFavor("p1", 5)
	require.NoError(t, err)
	assert.Equal(t, 10, snap.Players["p1"].Total)

	other := NewLedger()
	other.Restore(snap)
	assert.Equal(t, 10, other.Favor("p1").Favor)
	assert.Equal(t, 20, other.Prestige("r1").Total)
}
