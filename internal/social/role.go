package social

import "time"

// Well-known role ids seeded into every religion.
const (
	FounderRoleID RoleID = "founder"
	MemberRoleID  RoleID = "member"
)

// Default role display names.
const (
	FounderRoleName = "Founder"
	MemberRoleName  = "Member"
)

// Role is a named permission set within one religion.
type Role struct {
	ID          RoleID        `json:"id"`
	Name        string        `json:"name"`
	Permissions PermissionSet `json:"permissions"`
	IsDefault   bool          `json:"is_default"`
	IsProtected bool          `json:"is_protected"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Minimum returns the permissions this role must always hold.
func (r Role) Minimum() PermissionSet {
	if r.IsProtected {
		return FounderMinimum()
	}
	return PermissionSet{}
}

// DefaultRoles returns the Founder and Member roles every religion starts with.
func DefaultRoles(now time.Time) []Role {
	return []Role{
		{
			ID:          FounderRoleID,
			Name:        FounderRoleName,
			Permissions: FullPermissions(),
			IsDefault:   true,
			IsProtected: true,
			CreatedAt:   now,
		},
		{
			ID:          MemberRoleID,
			Name:        MemberRoleName,
			Permissions: NewPermissionSet(),
			IsDefault:   true,
			CreatedAt:   now,
		},
	}
}
