package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		password string
		valid    bool
	}{
		{"Sup3rSecret", true},
		{"sh0rtA", false},        // too short
		{"alllowercase1", false}, // no uppercase
		{"ALLUPPERCASE1", false}, // no lowercase
		{"NoDigitsHere", false},
		{"G00dEnough", true},
	}
	for _, tc := range cases {
		err := ValidatePassword(tc.password)
		if tc.valid {
			assert.NoError(t, err, tc.password)
		} else {
			assert.Error(t, err, tc.password)
		}
	}
}

func TestCreateUserNormalizesEmail(t *testing.T) {
	database := newTestDB(t)
	password := "Sup3rSecret"
	user, err := CreateUser(database, "  MiXeD@Example.COM ", &password, false, true)
	require.NoError(t, err)
	assert.Equal(t, "mixed@example.com", user.Email)
	assert.False(t, user.RequirePasswordReset)

	found, err := GetUserByEmail(database, "MIXED@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
}

func TestCreateUserWithoutPasswordRequiresSetup(t *testing.T) {
	database := newTestDB(t)
	user, err := CreateUser(database, "setup@example.com", nil, false, true)
	require.NoError(t, err)
	assert.Nil(t, user.PasswordHash)
	assert.True(t, user.RequirePasswordReset)

	updated, err := UpdateUser(database, user.ID, UserUpdate{Password: strPtr("N3wPassword")})
	require.NoError(t, err)
	require.NotNil(t, updated.PasswordHash)
	assert.False(t, updated.RequirePasswordReset)
	assert.True(t, VerifyPassword("N3wPassword", *updated.PasswordHash))
}

func TestDeleteUserCascades(t *testing.T) {
	database := newTestDB(t)
	admin := newTestUser(t, database, "boss@example.com", true)
	user := newTestUser(t, database, "victim@example.com", false)
	require.NoError(t, CreateAdminRelationship(database, admin.ID, user.ID))
	require.NoError(t, SetDefaultQuotas(database, user.ID))
	_, err := CreateSession(database, user.ID, defaultTestTTL)
	require.NoError(t, err)
	require.NoError(t, AddUserTag(database, user.ID, "cohort-a"))

	require.NoError(t, DeleteUser(database, user.ID))

	_, err = GetUserByID(database, user.ID)
	require.Error(t, err)
	quotas, err := UserQuotas(database, user.ID)
	require.NoError(t, err)
	assert.Empty(t, quotas)
	var sessions int
	require.NoError(t, database.Get(&sessions, `SELECT COUNT(*) FROM user_sessions WHERE user_id = ?`, user.ID))
	assert.Zero(t, sessions)
	tags, err := UserTags(database, user.ID)
	require.NoError(t, err)
	assert.Empty(t, tags)
	allowed, err := CanAdminManage(database, admin.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAdminRelationshipIdempotent(t *testing.T) {
	database := newTestDB(t)
	admin := newTestUser(t, database, "a@example.com", true)
	user := newTestUser(t, database, "u@example.com", false)

	require.NoError(t, CreateAdminRelationship(database, admin.ID, user.ID))
	require.NoError(t, CreateAdminRelationship(database, admin.ID, user.ID))

	admins, err := UserAdmins(database, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{admin.ID}, admins)
}

func TestSharedUserVisibleToBothAdmins(t *testing.T) {
	database := newTestDB(t)
	adminA := newTestUser(t, database, "aa@example.com", true)
	adminB := newTestUser(t, database, "bb@example.com", true)
	user := newTestUser(t, database, "shared@example.com", false)
	require.NoError(t, CreateAdminRelationship(database, adminA.ID, user.ID))
	require.NoError(t, CreateAdminRelationship(database, adminB.ID, user.ID))

	for _, adminID := range []string{adminA.ID, adminB.ID} {
		users, err := AdminManagedUsers(database, adminID)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, user.ID, users[0].ID)
	}
}

func TestUserTags(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "tags@example.com", false)

	require.NoError(t, AddUserTag(database, user.ID, "  Cohort-A "))
	require.NoError(t, AddUserTag(database, user.ID, "cohort-a")) // duplicate after normalization
	require.NoError(t, AddUserTag(database, user.ID, "pilot"))

	tags, err := UserTags(database, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"cohort-a", "pilot"}, tags)

	require.NoError(t, SetUserTags(database, user.ID, []string{"Research", "research", "2026"}))
	tags, err = UserTags(database, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026", "research"}, tags)

	all, err := AllTags(database)
	require.NoError(t, err)
	assert.Contains(t, all, "research")
	assert.NotContains(t, all, "pilot")
}

func TestEnsureEnvAdmin(t *testing.T) {
	database := newTestDB(t)

	// No credentials configured is a no-op.
	admin, err := EnsureEnvAdmin(database, "", "")
	require.NoError(t, err)
	assert.Nil(t, admin)

	admin, err = EnsureEnvAdmin(database, "root@example.com", "R00tPassword")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.True(t, admin.IsAdmin)
	assert.True(t, admin.IsActive)

	// Existing account gets promoted and its password synced.
	admin, err = EnsureEnvAdmin(database, "root@example.com", "Chang3dPassword")
	require.NoError(t, err)
	require.NotNil(t, admin.PasswordHash)
	assert.True(t, VerifyPassword("Chang3dPassword", *admin.PasswordHash))

	// Unchanged credentials leave the row alone.
	again, err := EnsureEnvAdmin(database, "root@example.com", "Chang3dPassword")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)
}

func TestEnsureEnvAdminPromotesExistingUser(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "plain@example.com", false)
	require.False(t, user.IsAdmin)

	admin, err := EnsureEnvAdmin(database, "plain@example.com", "Sup3rSecret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, admin.ID)
	assert.True(t, admin.IsAdmin)
}
