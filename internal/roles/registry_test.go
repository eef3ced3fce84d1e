package roles

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/pantheon/internal/social"
)

const (
	rel     social.ReligionID = "r1"
	founder social.PlayerID   = "p1"
	member  social.PlayerID   = "p2"
	other   social.PlayerID   = "p3"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	r.Now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	n := 0
	r.NewID = func() string {
		n++
		return fmt.Sprintf("role-%d", n)
	}
	require.NoError(t, r.Seed(rel, founder))
	require.NoError(t, r.AddMember(rel, member))
	return r
}

func TestSeedDefaults(t *testing.T) {
	r := newTestRegistry(t)

	roles := r.Roles(rel)
	require.Len(t, roles, 2)
	assert.Equal(t, social.FounderRoleID, roles[0].ID)
	assert.Equal(t, social.MemberRoleID, roles[1].ID)

	role, err := r.RoleOf(rel, founder)
	require.NoError(t, err)
	assert.True(t, role.IsProtected)

	role, err = r.RoleOf(rel, member)
	require.NoError(t, err)
	assert.Equal(t, social.MemberRoleID, role.ID)

	assert.Error(t, r.Seed(rel, founder), "seeding twice is an inconsistency")
}

func TestAuthorize(t *testing.T) {
	r := newTestRegistry(t)

	for _, p := range social.Catalog() {
		assert.NoError(t, r.Authorize(rel, founder, p), "founder role holds %s", p)
		assert.ErrorIs(t, r.Authorize(rel, member, p), social.ErrNotAuthorized)
	}
	assert.ErrorIs(t, r.Authorize(rel, other, social.PermInvite), social.ErrNotAuthorized)
	assert.ErrorIs(t, r.Authorize("missing", founder, social.PermInvite), social.ErrReligionNotFound)
	assert.False(t, r.Can(rel, member, social.PermKick))
}

func TestCreateRole(t *testing.T) {
	r := newTestRegistry(t)

	role, err := r.CreateRole(rel, founder, "  Elder ")
	require.NoError(t, err)
	assert.Equal(t, "Elder", role.Name)
	assert.Equal(t, 0, role.Permissions.Len())
	assert.False(t, role.IsDefault)

	_, err = r.CreateRole(rel, founder, "ELDER")
	assert.ErrorIs(t, err, social.ErrDuplicateName)
	_, err = r.CreateRole(rel, founder, "founder")
	assert.ErrorIs(t, err, social.ErrDuplicateName)
	_, err = r.CreateRole(rel, founder, "  ")
	assert.ErrorIs(t, err, social.ErrInvalidName)
	_, err = r.CreateRole(rel, member, "Acolyte")
	assert.ErrorIs(t, err, social.ErrNotAuthorized)
}

func TestRenameRole(t *testing.T) {
	r := newTestRegistry(t)
	elder, err := r.CreateRole(rel, founder, "Elder")
	require.NoError(t, err)

	_, err = r.RenameRole(rel, founder, social.FounderRoleID, "Prophet")
	assert.ErrorIs(t, err, social.ErrProtected)

	_, err = r.RenameRole(rel, founder, elder.ID, "member")
	assert.ErrorIs(t, err, social.ErrDuplicateName)

	renamed, err := r.RenameRole(rel, founder, elder.ID, "Sage")
	require.NoError(t, err)
	assert.Equal(t, "Sage", renamed.Name)

	_, err = r.RenameRole(rel, founder, "nope", "Sage")
	assert.ErrorIs(t, err, social.ErrRoleNotFound)
}

func TestDeleteRoleReassignsHolders(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.AddMember(rel, other))
	elder, err := r.CreateRole(rel, founder, "Elder")
	require.NoError(t, err)
	_, err = r.AssignRole(rel, founder, member, elder.ID)
	require.NoError(t, err)
	_, err = r.AssignRole(rel, founder, other, elder.ID)
	require.NoError(t, err)

	notices, err := r.DeleteRole(rel, founder, elder.ID)
	require.NoError(t, err)
	assert.Len(t, notices, 2)

	for _, p := range []social.PlayerID{member, other} {
		role, err := r.RoleOf(rel, p)
		require.NoError(t, err)
		assert.Equal(t, social.MemberRoleID, role.ID, "holders fall back to Member")
	}
	assert.Len(t, r.Roles(rel), 2)
}

func TestDeleteRoleRejections(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.DeleteRole(rel, founder, social.FounderRoleID)
	assert.ErrorIs(t, err, social.ErrProtected)
	_, err = r.DeleteRole(rel, founder, social.MemberRoleID)
	assert.ErrorIs(t, err, social.ErrRoleInUse)
	_, err = r.DeleteRole(rel, founder, "ghost")
	assert.ErrorIs(t, err, social.ErrRoleNotFound)
	_, err = r.DeleteRole(rel, member, social.MemberRoleID)
	assert.ErrorIs(t, err, social.ErrNotAuthorized)
}

func TestDeleteLastRole(t *testing.T) {
	r := NewRegistry()
	r.Restore(State{rel: Book{
		Roles:       []social.Role{{ID: "solo", Name: "Solo"}},
		Assignments: map[social.PlayerID]social.RoleID{},
	}})
	// Give the only role manage-roles so the actor passes authorization.
	r.books[rel].roles["solo"] = social.Role{ID: "solo", Name: "Solo", Permissions: social.NewPermissionSet(social.PermManageRoles)}
	r.books[rel].assignments[founder] = "solo"

	_, err := r.DeleteRole(rel, founder, "solo")
	assert.ErrorIs(t, err, social.ErrIsLastRole)
}

func TestModifyPermissions(t *testing.T) {
	r := newTestRegistry(t)

	t.Run("founder cannot drop below minimum", func(t *testing.T) {
		_, err := r.ModifyPermissions(rel, founder, social.FounderRoleID, social.NewPermissionSet(social.PermInvite))
		assert.ErrorIs(t, err, social.ErrProtected)
		_, err = r.ModifyPermissions(rel, founder, social.FounderRoleID, social.NewPermissionSet())
		assert.ErrorIs(t, err, social.ErrProtected)

		role, err := r.RoleOf(rel, founder)
		require.NoError(t, err)
		assert.True(t, role.Permissions.Equal(social.FullPermissions()), "rejected change leaves the set intact")
	})

	t.Run("founder may trim to minimum", func(t *testing.T) {
		role, err := r.ModifyPermissions(rel, founder, social.FounderRoleID, social.FounderMinimum())
		require.NoError(t, err)
		assert.True(t, role.Permissions.Equal(social.FounderMinimum()))
	})

	t.Run("member role gains permissions", func(t *testing.T) {
		set := social.NewPermissionSet(social.PermInvite, social.PermViewMembers)
		role, err := r.ModifyPermissions(rel, founder, social.MemberRoleID, set)
		require.NoError(t, err)
		assert.True(t, role.Permissions.Equal(set))
		assert.NoError(t, r.Authorize(rel, member, social.PermInvite))
	})

	t.Run("reserved permission stays on founder", func(t *testing.T) {
		_, err := r.ModifyPermissions(rel, founder, social.MemberRoleID, social.NewPermissionSet(social.PermTransferFounder))
		assert.ErrorIs(t, err, social.ErrProtected)
	})

	t.Run("unknown permission", func(t *testing.T) {
		_, err := r.ModifyPermissions(rel, founder, social.MemberRoleID, social.NewPermissionSet("summon"))
		assert.ErrorIs(t, err, social.ErrUnknownPermission)
	})
}

func TestAssignRole(t *testing.T) {
	r := newTestRegistry(t)
	elder, err := r.CreateRole(rel, founder, "Elder")
	require.NoError(t, err)

	_, err = r.AssignRole(rel, founder, other, elder.ID)
	assert.ErrorIs(t, err, social.ErrNotAMember)
	_, err = r.AssignRole(rel, founder, member, "ghost")
	assert.ErrorIs(t, err, social.ErrRoleNotFound)
	_, err = r.AssignRole(rel, founder, member, social.FounderRoleID)
	assert.ErrorIs(t, err, social.ErrProtected)
	_, err = r.AssignRole(rel, founder, founder, elder.ID)
	assert.ErrorIs(t, err, social.ErrProtected)
	_, err = r.AssignRole(rel, member, member, elder.ID)
	assert.ErrorIs(t, err, social.ErrNotAuthorized)

	notices, err := r.AssignRole(rel, founder, member, elder.ID)
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, member, notices[0].Player)

	notices, err = r.AssignRole(rel, founder, member, elder.ID)
	require.NoError(t, err)
	assert.Empty(t, notices, "reassigning the same role is a no-op")
}

func TestTransferFounder(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.TransferFounder(rel, member, member)
	assert.ErrorIs(t, err, social.ErrNotAuthorized)
	_, err = r.TransferFounder(rel, founder, other)
	assert.ErrorIs(t, err, social.ErrNotAMember)
	_, err = r.TransferFounder(rel, founder, founder)
	assert.ErrorIs(t, err, social.ErrCannotTargetSelf)

	prev, err := r.TransferFounder(rel, founder, member)
	require.NoError(t, err)
	assert.Equal(t, founder, prev)
	assert.Equal(t, []social.PlayerID{member}, r.Holders(rel, social.FounderRoleID))

	role, err := r.RoleOf(rel, founder)
	require.NoError(t, err)
	assert.Equal(t, social.MemberRoleID, role.ID)
	assert.ErrorIs(t, r.Authorize(rel, founder, social.PermDisband), social.ErrNotAuthorized)
}

func TestMembership(t *testing.T) {
	r := newTestRegistry(t)

	assert.ErrorIs(t, r.AddMember(rel, member), social.ErrAlreadyInReligion)
	assert.ErrorIs(t, r.RemoveMember(rel, founder), social.ErrIsFounder)
	assert.ErrorIs(t, r.RemoveMember(rel, other), social.ErrNotAMember)
	require.NoError(t, r.RemoveMember(rel, member))
	_, err := r.RoleOf(rel, member)
	assert.ErrorIs(t, err, social.ErrNotAMember)
}

func TestMissingRoleIsInconsistency(t *testing.T) {
	r := newTestRegistry(t)
	r.books[rel].assignments[member] = "vanished"

	_, err := r.RoleOf(rel, member)
	assert.ErrorIs(t, err, social.ErrInternalInconsistency)
	assert.ErrorIs(t, r.Authorize(rel, member, social.PermInvite), social.ErrInternalInconsistency)
}

func TestSnapshotRestore(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.CreateRole(rel, founder, "Elder")
	require.NoError(t, err)

	snap := r.Snapshot()
	restored := NewRegistry()
	restored.Restore(snap)

	assert.Equal(t, r.Roles(rel), restored.Roles(rel))
	assert.Equal(t, r.Assignments(rel), restored.Assignments(rel))
	assert.Equal(t, []social.ReligionID{rel}, restored.Religions())

	r.Drop(rel)
	assert.Nil(t, r.Roles(rel))
	assert.NotNil(t, restored.Roles(rel))
}
