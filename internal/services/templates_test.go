package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genmedia-backend-go/internal/models"
)

func TestPromptTemplateOwnerScoping(t *testing.T) {
	database := newTestDB(t)
	owner := newTestUser(t, database, "owner@example.com", false)
	other := newTestUser(t, database, "other@example.com", false)

	tpl, err := CreatePromptTemplate(database, owner.ID, "landscape", "image",
		"A {{scene}} at {{time}}", strPtr(`["scene","time"]`))
	require.NoError(t, err)

	_, err = GetPromptTemplate(database, other.ID, tpl.ID)
	var svcErr ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 404, svcErr.Status)

	err = DeletePromptTemplate(database, other.ID, tpl.ID)
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 404, svcErr.Status)

	updated, err := UpdatePromptTemplate(database, owner.ID, tpl.ID, strPtr("seascape"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "seascape", updated.Name)
	assert.Equal(t, tpl.TemplateText, updated.TemplateText)

	require.NoError(t, DeletePromptTemplate(database, owner.ID, tpl.ID))
}

func TestListPromptTemplatesByMediaType(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "tpls@example.com", false)

	_, err := CreatePromptTemplate(database, user.ID, "t1", "image", "x", nil)
	require.NoError(t, err)
	_, err = CreatePromptTemplate(database, user.ID, "t2", "text", "y", nil)
	require.NoError(t, err)

	all, err := ListPromptTemplates(database, user.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	images, err := ListPromptTemplates(database, user.ID, "image")
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "t1", images[0].Name)
}

func TestChatSessionHistoryOrder(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "chat@example.com", false)

	session, err := CreateChatSession(database, user.ID, strPtr("brainstorm"), strPtr("be brief"), nil)
	require.NoError(t, err)

	_, err = AppendChatMessage(database, session.ID, RoleUser, "hello")
	require.NoError(t, err)
	_, err = AppendChatMessage(database, session.ID, RoleModel, "hi there")
	require.NoError(t, err)
	_, err = AppendChatMessage(database, session.ID, RoleUser, "ideas?")
	require.NoError(t, err)

	history, err := ChatHistory(database, session.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, "ideas?", history[2].Content)

	// Deleting the session removes its messages through the cascade.
	require.NoError(t, DeleteChatSession(database, user.ID, session.ID))
	history, err = ChatHistory(database, session.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRecordTextGeneration(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "textgen@example.com", false)

	record, err := RecordTextGeneration(database, &models.TextGeneration{
		UserID:        user.ID,
		Mode:          "single",
		UserMessage:   strPtr("summarize this"),
		ModelResponse: strPtr("a summary"),
		Model:         strPtr("test-model"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)

	gens, err := ListTextGenerations(database, user.ID, 0)
	require.NoError(t, err)
	require.Len(t, gens, 1)
	assert.Equal(t, record.ID, gens[0].ID)
}
