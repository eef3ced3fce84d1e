package roles

import (
	"log/slog"
	"slices"

	"github.com/talgya/pantheon/internal/social"
)

// CreateRole adds a custom role with no permissions.
func (r *Registry) CreateRole(religion social.ReligionID, actor social.PlayerID, name string) (social.Role, error) {
	b, err := r.book(religion)
	if err != nil {
		return social.Role{}, err
	}
	if err := b.authorize(religion, actor, social.PermManageRoles); err != nil {
		return social.Role{}, err
	}
	name, err = social.ValidateName(name, social.MinRoleNameLength, social.MaxNameLength)
	if err != nil {
		return social.Role{}, err
	}
	if b.nameTaken(name, "") {
		return social.Role{}, social.Errorf(social.CodeDuplicateName, []string{"name", name}, "role %q already exists", name)
	}

	role := social.Role{
		ID:          social.RoleID(r.NewID()),
		Name:        name,
		Permissions: social.NewPermissionSet(),
		CreatedAt:   r.Now().UTC(),
	}
	b.roles[role.ID] = role
	b.order = append(b.order, role.ID)
	slog.Info("role created", "religion", religion, "role", role.ID, "name", name, "actor", actor)
	return role, nil
}

// RenameRole changes a role's display name. The Founder role cannot be renamed.
func (r *Registry) RenameRole(religion social.ReligionID, actor social.PlayerID, roleID social.RoleID, newName string) (social.Role, error) {
	b, err := r.book(religion)
	if err != nil {
		return social.Role{}, err
	}
	if err := b.authorize(religion, actor, social.PermManageRoles); err != nil {
		return social.Role{}, err
	}
	role, ok := b.roles[roleID]
	if !ok {
		return social.Role{}, social.ErrRoleNotFound
	}
	if role.IsProtected {
		return social.Role{}, social.Errorf(social.CodeProtected, []string{"role", role.Name}, "role %s cannot be renamed", role.Name)
	}
	newName, err = social.ValidateName(newName, social.MinRoleNameLength, social.MaxNameLength)
	if err != nil {
		return social.Role{}, err
	}
	if b.nameTaken(newName, roleID) {
		return social.Role{}, social.Errorf(social.CodeDuplicateName, []string{"name", newName}, "role %q already exists", newName)
	}

	role.Name = newName
	b.roles[roleID] = role
	slog.Info("role renamed", "religion", religion, "role", roleID, "name", newName, "actor", actor)
	return role, nil
}

// DeleteRole removes a custom role. Members holding it fall back to the
// default Member role, which itself cannot be deleted.
func (r *Registry) DeleteRole(religion social.ReligionID, actor social.PlayerID, roleID social.RoleID) ([]social.Notice, error) {
	b, err := r.book(religion)
	if err != nil {
		return nil, err
	}
	if err := b.authorize(religion, actor, social.PermManageRoles); err != nil {
		return nil, err
	}
	role, ok := b.roles[roleID]
	if !ok {
		return nil, social.ErrRoleNotFound
	}
	if role.IsProtected {
		return nil, social.Errorf(social.CodeProtected, []string{"role", role.Name}, "role %s cannot be deleted", role.Name)
	}
	if len(b.roles) <= 1 {
		return nil, social.ErrIsLastRole
	}
	if roleID == social.MemberRoleID {
		return nil, social.Errorf(social.CodeRoleInUse, []string{"role", role.Name},
			"role %s is the fallback for reassigned members", role.Name)
	}
	if _, ok := b.roles[social.MemberRoleID]; !ok {
		return nil, inconsistency(religion, "religion %s lost its member role", religion)
	}

	holders := b.holders(roleID)
	for _, p := range holders {
		b.assignments[p] = social.MemberRoleID
	}
	delete(b.roles, roleID)
	b.order = slices.DeleteFunc(b.order, func(id social.RoleID) bool { return id == roleID })

	slog.Info("role deleted", "religion", religion, "role", roleID, "reassigned", len(holders), "actor", actor)
	return social.Broadcast(holders, actor, social.NoticeRoleDeleted,
		"religion", string(religion), "role", role.Name, "new_role", string(social.MemberRoleID)), nil
}

// ModifyPermissions replaces a role's permission set. Protected roles must keep
// their minimum; reserved permissions stay on protected roles only.
func (r *Registry) ModifyPermissions(religion social.ReligionID, actor social.PlayerID, roleID social.RoleID, perms social.PermissionSet) (social.Role, error) {
	b, err := r.book(religion)
	if err != nil {
		return social.Role{}, err
	}
	if err := b.authorize(religion, actor, social.PermManageRoles); err != nil {
		return social.Role{}, err
	}
	role, ok := b.roles[roleID]
	if !ok {
		return social.Role{}, social.ErrRoleNotFound
	}
	if unknown := perms.Unknown(); len(unknown) > 0 {
		return social.Role{}, social.Errorf(social.CodeUnknownPermission, []string{"permission", string(unknown[0])},
			"unknown permission %q", unknown[0])
	}
	if !perms.ContainsAll(role.Minimum()) {
		return social.Role{}, social.Errorf(social.CodeProtected, []string{"role", role.Name},
			"role %s cannot drop below its minimum permissions", role.Name)
	}
	if !role.IsProtected {
		for _, p := range perms.Slice() {
			if p.Reserved() {
				return social.Role{}, social.Errorf(social.CodeProtected, []string{"permission", string(p)},
					"permission %s is reserved for the founder role", p)
			}
		}
	}

	role.Permissions = perms
	b.roles[roleID] = role
	slog.Info("role permissions changed", "religion", religion, "role", roleID, "permissions", perms.Len(), "actor", actor)
	return role, nil
}

// AssignRole gives target a role. The Founder role only moves via TransferFounder.
func (r *Registry) AssignRole(religion social.ReligionID, actor, target social.PlayerID, roleID social.RoleID) ([]social.Notice, error) {
	b, err := r.book(religion)
	if err != nil {
		return nil, err
	}
	if err := b.authorize(religion, actor, social.PermManageRoles); err != nil {
		return nil, err
	}
	current, ok := b.assignments[target]
	if !ok {
		return nil, social.ErrNotAMember
	}
	role, ok := b.roles[roleID]
	if !ok {
		return nil, social.ErrRoleNotFound
	}
	if role.IsProtected || current == social.FounderRoleID {
		return nil, social.Errorf(social.CodeProtected, []string{"role", role.Name}, "founder role only moves by transfer")
	}
	if current == roleID {
		return nil, nil
	}

	b.assignments[target] = roleID
	slog.Info("role assigned", "religion", religion, "player", target, "role", roleID, "actor", actor)
	return social.Broadcast([]social.PlayerID{target}, actor, social.NoticeRoleAssigned,
		"religion", string(religion), "role", role.Name), nil
}

// TransferFounder moves the Founder role from its holder to newFounder, who
// drops the previous founder to the Member role. It returns the previous founder.
func (r *Registry) TransferFounder(religion social.ReligionID, actor, newFounder social.PlayerID) (social.PlayerID, error) {
	b, err := r.book(religion)
	if err != nil {
		return "", err
	}
	if err := b.authorize(religion, actor, social.PermTransferFounder); err != nil {
		return "", err
	}
	if _, ok := b.assignments[newFounder]; !ok {
		return "", social.ErrNotAMember
	}
	holders := b.holders(social.FounderRoleID)
	if len(holders) != 1 {
		return "", inconsistency(religion, "religion %s has %d founder role holders", religion, len(holders))
	}
	previous := holders[0]
	if previous == newFounder {
		return "", social.ErrCannotTargetSelf
	}

	b.assignments[previous] = social.MemberRoleID
	b.assignments[newFounder] = social.FounderRoleID
	slog.Info("founder role transferred", "religion", religion, "from", previous, "to", newFounder)
	return previous, nil
}
