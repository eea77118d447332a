package services

import (
	"context"
	"fmt"
	"strings"

	"legal_marketplace_go/config"
	"legal_marketplace_go/models"

	"go.uber.org/zap"
)

// Notifier is told about cases that have just become available to lawyers
type Notifier interface {
	CaseAvailable(ctx context.Context, c *models.Case) error
}

// NoopNotifier drops every notification
type NoopNotifier struct{}

func (NoopNotifier) CaseAvailable(ctx context.Context, c *models.Case) error { return nil }

// EmailNotifier emails the operations inbox when a case is published
type EmailNotifier struct {
	cfg  *config.Config
	send func(cfg *config.Config, email *Email) error
}

func NewEmailNotifier(cfg *config.Config) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, send: SendEmail}
}

func (n *EmailNotifier) CaseAvailable(ctx context.Context, c *models.Case) error {
	if n.cfg.NotifyEmail == "" {
		zap.L().Debug("NOTIFY_EMAIL not set, skipping case notification", zap.String("case_id", c.ID))
		return nil
	}

	data := CaseAvailableEmailData{
		CaseID:     c.ID,
		Title:      deref(c.Titulo),
		LeadTier:   deref(c.TipoLead),
		ClientCity: c.ClientCity(),
		CaseURL:    fmt.Sprintf("%s/casos/%s", strings.TrimRight(n.cfg.AppURL, "/"), c.ID),
	}
	if c.Especialidad != nil {
		data.Specialty = c.Especialidad.Nombre
	}

	return n.send(n.cfg, BuildCaseAvailableEmail(n.cfg.NotifyEmail, data))
}
