package jobs

import (
	"context"
	"testing"
	"time"

	"legal_marketplace_go/models"
	"legal_marketplace_go/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupJobsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:mem_"+uuid.New().String()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Specialty{}, &models.ClientProfile{}, &models.Case{}))
	return db
}

type collectingQueue struct {
	jobs  []services.ProcessingJob
	limit int
}

func (q *collectingQueue) Enqueue(job services.ProcessingJob) error {
	if q.limit > 0 && len(q.jobs) >= q.limit {
		return ErrQueueFull
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func createCase(t *testing.T, db *gorm.DB, estado, processing string, processingErr *string) *models.Case {
	t.Helper()
	text := "texto original"
	c := &models.Case{
		Estado:              estado,
		EstadoProcesamiento: processing,
		ErrorProcesamiento:  processingErr,
		TextoOriginal:       &text,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

func strPtr(s string) *string { return &s }

func TestSweeper_EnqueuesStalledCases(t *testing.T) {
	db := setupJobsTestDB(t)

	stalled := createCase(t, db, models.CaseStatusDraft, models.ProcessingGenerating, nil)
	rejected := createCase(t, db, models.CaseStatusDraft, models.ProcessingFailed, strPtr(services.EnqueueFailurePrefix+"processing queue is full"))
	createCase(t, db, models.CaseStatusDraft, models.ProcessingFailed, strPtr("classification: schema mismatch"))
	createCase(t, db, models.CaseStatusAvailable, models.ProcessingAvailable, nil)
	createCase(t, db, models.CaseStatusAssigned, models.ProcessingGenerating, nil)

	queue := &collectingQueue{}
	s := NewSweeper(db, queue, 15*time.Minute)
	s.now = func() time.Time { return time.Now().Add(time.Hour) }

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var ids []string
	for _, job := range queue.jobs {
		ids = append(ids, job.CaseID)
		assert.Equal(t, services.FlowManual, job.Flow)
		assert.Equal(t, "texto original", job.OriginalText)
	}
	assert.ElementsMatch(t, []string{stalled.ID, rejected.ID}, ids)
}

func TestSweeper_RestoresTriggerInputs(t *testing.T) {
	db := setupJobsTestDB(t)
	c := &models.Case{
		Estado:              models.CaseStatusDraft,
		EstadoProcesamiento: models.ProcessingPending,
		ResumenCaso:         strPtr("Reclamación de herencia"),
		Flujo:               strPtr(services.FlowManual),
		AdjuntosPendientes:  []string{"documentos/u1/testamento.pdf"},
		Documentos:          []models.Attachment{{Source: "u1/antiguo.pdf", Path: "case/x/client-documents/antiguo.pdf"}},
	}
	require.NoError(t, db.Create(c).Error)

	queue := &collectingQueue{}
	s := NewSweeper(db, queue, 15*time.Minute)
	s.now = func() time.Time { return time.Now().Add(time.Hour) }

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	job := queue.jobs[0]
	assert.Equal(t, services.FlowManual, job.Flow)
	assert.Equal(t, []string{"documentos/u1/testamento.pdf"}, job.Files)
	assert.Equal(t, "Reclamación de herencia", job.Summary)
}

func TestSweeper_IgnoresRecentRuns(t *testing.T) {
	db := setupJobsTestDB(t)
	createCase(t, db, models.CaseStatusDraft, models.ProcessingGenerating, nil)

	queue := &collectingQueue{}
	n, err := NewSweeper(db, queue, 15*time.Minute).Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, queue.jobs)
}

func TestSweeper_StopsWhenQueueIsFull(t *testing.T) {
	db := setupJobsTestDB(t)
	for i := 0; i < 3; i++ {
		createCase(t, db, models.CaseStatusDraft, models.ProcessingPending, nil)
	}

	queue := &collectingQueue{limit: 1}
	s := NewSweeper(db, queue, time.Minute)
	s.now = func() time.Time { return time.Now().Add(time.Hour) }

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStartScheduler(t *testing.T) {
	db := setupJobsTestDB(t)
	s := NewSweeper(db, &collectingQueue{}, time.Minute)

	c, err := StartScheduler("*/5 * * * *", s)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)
	<-c.Stop().Done()

	_, err = StartScheduler("not a schedule", s)
	assert.Error(t, err)
}
