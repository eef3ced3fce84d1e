package social

import "time"

const (
	// ReligionInviteTTL is how long a religion invitation stays open.
	ReligionInviteTTL = 7 * 24 * time.Hour
	// MaxBanDays caps a timed ban.
	MaxBanDays = 3650
)

// Religion is a read-only snapshot of a player congregation.
type Religion struct {
	ID          ReligionID             `json:"id"`
	Name        string                 `json:"name"`
	Domain      Domain                 `json:"domain"`
	Visibility  Visibility             `json:"visibility"`
	FounderID   PlayerID               `json:"founder_id"`
	Description string                 `json:"description"`
	Members     []PlayerID             `json:"members"`
	MemberRoles map[PlayerID]RoleID    `json:"member_roles"`
	Roles       map[RoleID]Role        `json:"roles"`
	Bans        map[PlayerID]BanRecord `json:"bans"`
	CreatedAt   time.Time              `json:"created_at"`

	Prestige      int `json:"prestige"`
	TotalPrestige int `json:"total_prestige"`
}

// IsMember reports whether p belongs to the religion.
func (r Religion) IsMember(p PlayerID) bool {
	_, ok := r.MemberRoles[p]
	return ok
}

// ReligionInfo is the slice of religion state other registries depend on.
type ReligionInfo struct {
	ID        ReligionID
	Name      string
	Domain    Domain
	FounderID PlayerID
}

// BanRecord bars a player from joining or being invited to a religion.
type BanRecord struct {
	PlayerID  PlayerID  `json:"player_id"`
	BannedBy  PlayerID  `json:"banned_by"`
	Reason    string    `json:"reason"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at,omitzero"` // zero = permanent
}

// Active reports whether the ban is still in force at now.
func (b BanRecord) Active(now time.Time) bool {
	return Live(b.ExpiresAt, now)
}

// Invitation asks a player to join a religion.
type Invitation struct {
	ID         InviteID   `json:"id"`
	PlayerID   PlayerID   `json:"player_id"`
	ReligionID ReligionID `json:"religion_id"`
	InviterID  PlayerID   `json:"inviter_id"`
	IssuedAt   time.Time  `json:"issued_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
}

// Live reports whether the invitation can still be accepted at now.
func (i Invitation) Live(now time.Time) bool {
	return Live(i.ExpiresAt, now)
}
