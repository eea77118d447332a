package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"legal_marketplace_go/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrEmptyCaseText    = errors.New("case text is empty")
	ErrExtractionFailed = errors.New("could not extract case data")
)

// CaseIntake turns free-text manual submissions into draft cases and schedules
// their background processing.
type CaseIntake struct {
	db        *gorm.DB
	extractor *Extractor
	queue     JobEnqueuer
}

func NewCaseIntake(db *gorm.DB, extractor *Extractor, queue JobEnqueuer) *CaseIntake {
	return &CaseIntake{db: db, extractor: extractor, queue: queue}
}

// Intake extracts client data from text, stores the draft case and enqueues the
// manual processing flow. The draft is returned as soon as it is stored; a
// failure to enqueue is recorded on the case but does not fail the intake.
func (s *CaseIntake) Intake(ctx context.Context, text string) (*models.Case, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyCaseText
	}

	extraction, err := s.extractor.Extract(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	c, err := CreateDraftCase(s.db, DraftCaseInput{
		FirstName:    extraction.FirstName,
		LastName:     extraction.LastName,
		Email:        extraction.Email,
		Phone:        extraction.Phone,
		City:         extraction.City,
		Reason:       extraction.Reason,
		Summary:      extraction.Summary,
		OriginalText: &text,
		Flow:         FlowManual,
	})
	if err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("case_id", c.ID))
	log.Info("draft case created from manual intake")

	job := ProcessingJob{
		CaseID:       c.ID,
		Flow:         FlowManual,
		Summary:      deref(c.ResumenCaso),
		Reason:       deref(c.MotivoConsulta),
		OriginalText: text,
	}
	if err := s.queue.Enqueue(job); err != nil {
		log.Error("enqueue manual processing", zap.Error(err))
		if markErr := MarkEnqueueFailed(s.db, c.ID, err.Error()); markErr != nil {
			log.Error("record enqueue failure", zap.Error(markErr))
		} else {
			c.EstadoProcesamiento = models.ProcessingFailed
		}
	}

	return c, nil
}
