package services

import (
	"testing"
	"time"

	"legal_marketplace_go/config"
	"legal_marketplace_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareSpecialties(t *testing.T) {
	db := setupTestDB(t)

	resolver, err := PrepareSpecialties(db, testFallback)
	require.NoError(t, err)

	fallbackID, err := resolver.FallbackID()
	require.NoError(t, err)
	assert.NotEmpty(t, fallbackID)

	var count int64
	require.NoError(t, db.Model(&models.Specialty{}).Count(&count).Error)
	assert.Equal(t, int64(len(DefaultSpecialties)+1), count)

	// Running again is a no-op
	_, err = PrepareSpecialties(db, testFallback)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Specialty{}).Count(&count).Error)
	assert.Equal(t, int64(len(DefaultSpecialties)+1), count)
}

func TestNewAssistantRunner(t *testing.T) {
	runner := NewAssistantRunner(&config.Config{
		AIModel:          "claude-test",
		AIMaxTokens:      1024,
		AIRequestTimeout: time.Second,
	})
	assert.NotNil(t, runner)
}

func TestModels(t *testing.T) {
	assert.Len(t, Models(), 3)
}
