package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"legal_marketplace_go/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testFallback = "Consulta General"

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Unique shared-memory name isolates tests while letting pipeline goroutines share the db
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, testDB.AutoMigrate(&models.Specialty{}, &models.ClientProfile{}, &models.Case{}))
	return testDB
}

func seedFallback(t *testing.T, db *gorm.DB) string {
	t.Helper()
	s, err := EnsureFallbackSpecialty(db, testFallback)
	require.NoError(t, err)
	return s.ID
}

func stringPtr(s string) *string {
	return &s
}

// scriptedGenerator answers assistant runs from a table and records the prompts it saw.
type scriptedGenerator struct {
	mu       sync.Mutex
	answers  map[string]string
	failures map[string]error
	prompts  map[string][]string
}

func newScriptedGenerator() *scriptedGenerator {
	return &scriptedGenerator{
		answers:  make(map[string]string),
		failures: make(map[string]error),
		prompts:  make(map[string][]string),
	}
}

func (g *scriptedGenerator) Run(ctx context.Context, assistantID, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts[assistantID] = append(g.prompts[assistantID], prompt)
	if err := g.failures[assistantID]; err != nil {
		return "", err
	}
	return g.answers[assistantID], nil
}

func (g *scriptedGenerator) calls(assistantID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts[assistantID])
}

// failingUploadStore is a local store whose writes always fail
type failingUploadStore struct {
	*LocalStorage
}

func (s *failingUploadStore) UploadReader(ctx context.Context, reader io.Reader, key string, contentType string, size int64) (*StorageResult, error) {
	return nil, errors.New("bucket unavailable")
}
