package services

import (
	"context"
	"errors"
	"testing"

	"legal_marketplace_go/config"
	"legal_marketplace_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailNotifier_CaseAvailable(t *testing.T) {
	useTemplateDir(t)
	cfg := &config.Config{NotifyEmail: "ops@example.com", AppURL: "https://app.example.com/"}

	var sent *Email
	n := NewEmailNotifier(cfg)
	n.send = func(_ *config.Config, email *Email) error {
		sent = email
		return nil
	}

	c := &models.Case{
		ID:             "case-1",
		Titulo:         stringPtr("Despido sin carta"),
		TipoLead:       stringPtr(models.LeadTierUrgent),
		CiudadBorrador: stringPtr("Sevilla"),
		Especialidad:   &models.Specialty{Nombre: "Derecho Laboral"},
	}
	require.NoError(t, n.CaseAvailable(context.Background(), c))

	require.NotNil(t, sent)
	assert.Equal(t, []string{"ops@example.com"}, sent.To)
	assert.Equal(t, "Nuevo caso disponible: Despido sin carta", sent.Subject)
	assert.Contains(t, sent.TextBody, "Derecho Laboral")
	assert.Contains(t, sent.TextBody, "https://app.example.com/casos/case-1")
}

func TestEmailNotifier_SkipsWithoutRecipient(t *testing.T) {
	n := NewEmailNotifier(&config.Config{})
	n.send = func(_ *config.Config, _ *Email) error {
		return errors.New("should not send")
	}
	assert.NoError(t, n.CaseAvailable(context.Background(), &models.Case{ID: "case-1"}))
}

func TestEmailNotifier_PropagatesSendError(t *testing.T) {
	useTemplateDir(t)
	n := NewEmailNotifier(&config.Config{NotifyEmail: "ops@example.com"})
	n.send = func(_ *config.Config, _ *Email) error {
		return errors.New("resend down")
	}
	assert.ErrorContains(t, n.CaseAvailable(context.Background(), &models.Case{ID: "case-1"}), "resend down")
}
