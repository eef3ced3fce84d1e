package social

import (
	"encoding/json"
	"slices"
)

// Permission is a capability flag a role may hold.
type Permission string

const (
	PermInvite          Permission = "invite"
	PermKick            Permission = "kick"
	PermBan             Permission = "ban"
	PermViewBanList     Permission = "view_ban_list"
	PermEditDescription Permission = "edit_description"
	PermDisband         Permission = "disband"
	PermViewMembers     Permission = "view_members"
	PermManageRoles     Permission = "manage_roles"
	PermTransferFounder Permission = "transfer_founder"
)

var catalog = []Permission{
	PermInvite,
	PermKick,
	PermBan,
	PermViewBanList,
	PermEditDescription,
	PermDisband,
	PermViewMembers,
	PermManageRoles,
	PermTransferFounder,
}

// Catalog returns every known permission.
func Catalog() []Permission {
	return slices.Clone(catalog)
}

// Valid reports whether p is part of the catalog.
func (p Permission) Valid() bool {
	return slices.Contains(catalog, p)
}

// Reserved reports whether p may only be held by protected roles.
func (p Permission) Reserved() bool {
	return p == PermTransferFounder
}

// PermissionSet is an immutable set of permissions. Operations return new sets.
type PermissionSet struct {
	perms []Permission // sorted, unique
}

// NewPermissionSet builds a set from the given permissions.
func NewPermissionSet(perms ...Permission) PermissionSet {
	if len(perms) == 0 {
		return PermissionSet{}
	}
	out := slices.Clone(perms)
	slices.Sort(out)
	return PermissionSet{perms: slices.Compact(out)}
}

// FullPermissions is the set holding every catalog permission.
func FullPermissions() PermissionSet {
	return NewPermissionSet(catalog...)
}

// FounderMinimum is the set the Founder role can never drop below.
func FounderMinimum() PermissionSet {
	return NewPermissionSet(PermDisband, PermManageRoles, PermTransferFounder)
}

// Has reports whether p is in the set.
func (s PermissionSet) Has(p Permission) bool {
	_, found := slices.BinarySearch(s.perms, p)
	return found
}

// ContainsAll reports whether every permission of other is in s.
func (s PermissionSet) ContainsAll(other PermissionSet) bool {
	for _, p := range other.perms {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// Len returns the number of permissions in the set.
func (s PermissionSet) Len() int {
	return len(s.perms)
}

// Slice returns a copy of the permissions in sorted order.
func (s PermissionSet) Slice() []Permission {
	return slices.Clone(s.perms)
}

// Equal reports whether both sets hold the same permissions.
func (s PermissionSet) Equal(other PermissionSet) bool {
	return slices.Equal(s.perms, other.perms)
}

// Unknown returns the permissions in s that are not part of the catalog.
func (s PermissionSet) Unknown() []Permission {
	var out []Permission
	for _, p := range s.perms {
		if !p.Valid() {
			out = append(out, p)
		}
	}
	return out
}

func (s PermissionSet) MarshalJSON() ([]byte, error) {
	if s.perms == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.perms)
}

func (s *PermissionSet) UnmarshalJSON(b []byte) error {
	var perms []Permission
	if err := json.Unmarshal(b, &perms); err != nil {
		return err
	}
	*s = NewPermissionSet(perms...)
	return nil
}
