package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRoundTrip(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "session@example.com", false)

	session, err := CreateSession(database, user.ID, defaultTestTTL)
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.True(t, session.ExpiresAt.After(time.Now()))

	resolved, err := SessionUser(database, session.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)
}

func TestSessionTokensAreUnique(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "unique@example.com", false)

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		session, err := CreateSession(database, user.ID, defaultTestTTL)
		require.NoError(t, err)
		assert.False(t, seen[session.Token])
		seen[session.Token] = true
	}
}

func TestExpiredSessionEvictedOnRead(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "expired@example.com", false)

	session, err := CreateSession(database, user.ID, -time.Minute)
	require.NoError(t, err)

	_, err = SessionUser(database, session.Token)
	var svcErr ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 401, svcErr.Status)

	// The expired row is deleted on sight.
	var count int
	require.NoError(t, database.Get(&count, `SELECT COUNT(*) FROM user_sessions WHERE token = ?`, session.Token))
	assert.Zero(t, count)
}

func TestSessionRefreshesActivity(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "activity@example.com", false)

	session, err := CreateSession(database, user.ID, defaultTestTTL)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	_, err = SessionUser(database, session.Token)
	require.NoError(t, err)

	var lastActivity time.Time
	require.NoError(t, database.Get(&lastActivity, `SELECT last_activity_at FROM user_sessions WHERE token = ?`, session.Token))
	assert.True(t, lastActivity.After(session.LastActivityAt))
}

func TestInactiveUserRejectedWithLiveToken(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "inactive@example.com", false)
	session, err := CreateSession(database, user.ID, defaultTestTTL)
	require.NoError(t, err)

	inactive := false
	_, err = UpdateUser(database, user.ID, UserUpdate{IsActive: &inactive})
	require.NoError(t, err)

	_, err = SessionUser(database, session.Token)
	var svcErr ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 401, svcErr.Status)
	assert.Contains(t, svcErr.Message, "deactivated")
}

func TestInvalidateSession(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "logout@example.com", false)
	session, err := CreateSession(database, user.ID, defaultTestTTL)
	require.NoError(t, err)

	require.NoError(t, InvalidateSession(database, session.Token))
	_, err = SessionUser(database, session.Token)
	require.Error(t, err)
}

func TestCleanupExpiredSessions(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "cleanup@example.com", false)

	_, err := CreateSession(database, user.ID, -time.Minute)
	require.NoError(t, err)
	_, err = CreateSession(database, user.ID, -time.Hour)
	require.NoError(t, err)
	live, err := CreateSession(database, user.ID, defaultTestTTL)
	require.NoError(t, err)

	removed, err := CleanupExpiredSessions(database)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	_, err = SessionUser(database, live.Token)
	require.NoError(t, err)
}
