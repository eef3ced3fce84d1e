package social

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestLive(t *testing.T) {
	tests := []struct {
		name    string
		expires time.Time
		now     time.Time
		want    bool
	}{
		{"zero expiry never lapses", time.Time{}, fixedTime.Add(1000 * time.Hour), true},
		{"before expiry", fixedTime, fixedTime.Add(-time.Second), true},
		{"at expiry", fixedTime, fixedTime, false},
		{"after expiry", fixedTime, fixedTime.Add(time.Second), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Live(tt.expires, tt.now))
		})
	}
}

func TestBanRecordActive(t *testing.T) {
	permanent := BanRecord{IssuedAt: fixedTime}
	assert.True(t, permanent.Active(fixedTime.Add(24*365*time.Hour)))

	temp := BanRecord{IssuedAt: fixedTime, ExpiresAt: fixedTime.Add(24 * time.Hour)}
	assert.True(t, temp.Active(fixedTime.Add(time.Hour)))
	assert.False(t, temp.Active(fixedTime.Add(25*time.Hour)))
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"trims", "  Emberkin  ", "Emberkin", false},
		{"empty", "   ", "", true},
		{"too short", "ab", "", true},
		{"too long", strings.Repeat("x", MaxNameLength+1), "", true},
		{"unicode counted in runes", "Ærøå", "Ærøå", false},
		{"multibyte at max", strings.Repeat("é", MaxNameLength), strings.Repeat("é", MaxNameLength), false},
		{"multibyte over max", strings.Repeat("é", MaxNameLength+1), "", true},
		{"control chars", "Ember\nkin", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateName(tt.input, MinNameLength, MaxNameLength)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateRoleName(t *testing.T) {
	got, err := ValidateName(" X ", MinRoleNameLength, MaxNameLength)
	require.NoError(t, err)
	assert.Equal(t, "X", got)

	_, err = ValidateName("", MinRoleNameLength, MaxNameLength)
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestValidateDescription(t *testing.T) {
	got, err := ValidateDescription("  faith of the forge ")
	require.NoError(t, err)
	assert.Equal(t, "faith of the forge", got)

	_, err = ValidateDescription(strings.Repeat("a", MaxDescriptionLength+1))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFoldName(t *testing.T) {
	assert.Equal(t, FoldName("EMBERKIN"), FoldName(" emberkin"))
	assert.NotEqual(t, FoldName("Emberkin"), FoldName("Emberkith"))
}

func TestErrorIsMatchesByCode(t *testing.T) {
	err := Errorf(CodeFull, []string{"civilization", "c1"}, "civilization %s is full", "c1")
	assert.ErrorIs(t, err, ErrFull)
	assert.NotErrorIs(t, err, ErrDuplicateDomain)
	assert.Equal(t, "c1", err.Metadata["civilization"])

	wrapped := fmt.Errorf("accept: %w", err)
	assert.True(t, errors.Is(wrapped, ErrFull))
	assert.Equal(t, CodeFull, CodeOf(wrapped))
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
}

func TestDomainText(t *testing.T) {
	for _, d := range Domains() {
		b, err := d.MarshalText()
		require.NoError(t, err)
		var back Domain
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, d, back)
		assert.True(t, d.Valid())
	}
	assert.False(t, DomainUnknown.Valid())
	_, ok := ParseDomain("sky")
	assert.False(t, ok)
}

func TestBroadcastSkipsActor(t *testing.T) {
	notices := Broadcast([]PlayerID{"p1", "p2", "p3"}, "p2", NoticeMemberJoined, "player", "p4")
	require.Len(t, notices, 2)
	assert.Equal(t, PlayerID("p1"), notices[0].Player)
	assert.Equal(t, "p4", notices[1].Payload["player"])
}
