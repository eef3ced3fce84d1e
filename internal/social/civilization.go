package social

import (
	"slices"
	"time"
)

const (
	// MaxCivilizationMembers caps the number of religions in one civilization.
	MaxCivilizationMembers = 4
	// CivilizationInviteTTL is how long a civilization invitation stays open.
	CivilizationInviteTTL = 7 * 24 * time.Hour
)

// Civilization is an alliance of religions with mutually distinct domains.
// The founder religion is always Members[0].
type Civilization struct {
	ID                CivilizationID `json:"id"`
	Name              string         `json:"name"`
	FounderReligionID ReligionID     `json:"founder_religion_id"`
	Members           []ReligionID   `json:"members"`
	Description       string         `json:"description"`
	CreatedAt         time.Time      `json:"created_at"`
}

// HasMember reports whether r belongs to the civilization.
func (c Civilization) HasMember(r ReligionID) bool {
	return slices.Contains(c.Members, r)
}

// Clone returns a deep copy.
func (c Civilization) Clone() Civilization {
	c.Members = slices.Clone(c.Members)
	return c
}

// CivilizationInvite asks a religion to join a civilization.
type CivilizationInvite struct {
	ID             InviteID       `json:"id"`
	ReligionID     ReligionID     `json:"religion_id"`
	CivilizationID CivilizationID `json:"civilization_id"`
	InviterID      PlayerID       `json:"inviter_id"`
	IssuedAt       time.Time      `json:"issued_at"`
	ExpiresAt      time.Time      `json:"expires_at"`
}

// Live reports whether the invitation can still be accepted at now.
func (i CivilizationInvite) Live(now time.Time) bool {
	return Live(i.ExpiresAt, now)
}
