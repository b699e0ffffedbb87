package migrations

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genmedia-backend-go/internal/db"
)

func TestApplyIsIdempotent(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, Apply(database))
	require.NoError(t, Apply(database))

	var versions []int
	require.NoError(t, database.Select(&versions, `SELECT version FROM schema_migrations ORDER BY version`))
	assert.Len(t, versions, len(list))
	for i, mig := range list {
		assert.Equal(t, mig.Version, versions[i])
	}
}

func TestApplyCreatesAllTables(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, Apply(database))

	expected := []string{
		"users", "user_admins", "user_quotas", "user_sessions", "user_tags",
		"media", "video_jobs", "prompt_templates", "system_prompts",
		"text_generations", "chat_sessions", "chat_messages", "server_metric_samples",
	}
	for _, table := range expected {
		var name string
		err := database.Get(&name, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
		assert.NoError(t, err, table)
	}
}

func TestVersionsAreOrdered(t *testing.T) {
	for i := 1; i < len(list); i++ {
		assert.Greater(t, list[i].Version, list[i-1].Version)
	}
}
