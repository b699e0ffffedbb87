package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"genmedia-backend-go/internal/db"
	"genmedia-backend-go/internal/migrations"
	"genmedia-backend-go/internal/models"
)

const defaultTestTTL = 24 * time.Hour

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, migrations.Apply(database))
	return database
}

func newTestUser(t *testing.T, database *sqlx.DB, email string, admin bool) *models.User {
	t.Helper()
	password := "Sup3rSecret"
	user, err := CreateUser(database, email, &password, admin, true)
	require.NoError(t, err)
	return user
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }
