package social

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionSetIsImmutableValue(t *testing.T) {
	input := []Permission{PermKick, PermInvite, PermKick}
	set := NewPermissionSet(input...)
	input[0] = PermDisband

	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Has(PermKick))
	assert.True(t, set.Has(PermInvite))
	assert.False(t, set.Has(PermDisband))

	out := set.Slice()
	out[0] = PermBan
	assert.False(t, set.Has(PermBan))
}

func TestPermissionSetContainsAll(t *testing.T) {
	full := FullPermissions()
	assert.True(t, full.ContainsAll(FounderMinimum()))
	assert.True(t, full.ContainsAll(NewPermissionSet()))
	assert.False(t, NewPermissionSet(PermDisband).ContainsAll(FounderMinimum()))
	assert.Equal(t, len(Catalog()), full.Len())
}

func TestPermissionSetUnknown(t *testing.T) {
	set := NewPermissionSet(PermBan, Permission("fly"))
	assert.Equal(t, []Permission{"fly"}, set.Unknown())
	assert.Empty(t, FullPermissions().Unknown())
}

func TestPermissionSetJSON(t *testing.T) {
	b, err := json.Marshal(NewPermissionSet(PermKick, PermBan))
	require.NoError(t, err)
	assert.JSONEq(t, `["ban","kick"]`, string(b))

	var back PermissionSet
	require.NoError(t, json.Unmarshal([]byte(`["kick","ban","kick"]`), &back))
	assert.True(t, back.Equal(NewPermissionSet(PermBan, PermKick)))

	empty, err := json.Marshal(PermissionSet{})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}

func TestDefaultRoles(t *testing.T) {
	roles := DefaultRoles(fixedTime)
	require.Len(t, roles, 2)

	founder, member := roles[0], roles[1]
	assert.Equal(t, FounderRoleID, founder.ID)
	assert.True(t, founder.IsProtected)
	assert.True(t, founder.Permissions.ContainsAll(founder.Minimum()))
	assert.Equal(t, MemberRoleID, member.ID)
	assert.False(t, member.IsProtected)
	assert.Equal(t, 0, member.Permissions.Len())
	assert.Equal(t, 0, member.Minimum().Len())
}
