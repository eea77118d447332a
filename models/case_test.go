package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string {
	return &s
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(CaseStatusDraft, CaseStatusAvailable))
	assert.True(t, CanTransition(CaseStatusAvailable, CaseStatusAssigned))
	assert.True(t, CanTransition(CaseStatusAvailable, CaseStatusAwaitingPayment))
	assert.True(t, CanTransition(CaseStatusInProgress, CaseStatusReadyForProposal))
	assert.True(t, CanTransition(CaseStatusReadyForProposal, CaseStatusClosed))

	// Backwards and skipping edges are rejected
	assert.False(t, CanTransition(CaseStatusAvailable, CaseStatusDraft))
	assert.False(t, CanTransition(CaseStatusDraft, CaseStatusClosed))
	assert.False(t, CanTransition(CaseStatusClosed, CaseStatusAvailable))
}

func TestCanPublish(t *testing.T) {
	assert.True(t, CanPublish(CaseStatusDraft))
	assert.True(t, CanPublish(CaseStatusAvailable))

	for _, s := range []string{CaseStatusAssigned, CaseStatusInProgress, CaseStatusReadyForProposal,
		CaseStatusAwaitingPayment, CaseStatusClosed, "archivado"} {
		assert.False(t, CanPublish(s), s)
	}
}

func TestCanRevertToDraft(t *testing.T) {
	assert.True(t, CanRevertToDraft(CaseStatusDraft))
	assert.True(t, CanRevertToDraft(CaseStatusAvailable))
	assert.False(t, CanRevertToDraft(CaseStatusAssigned))
	assert.False(t, CanRevertToDraft(CaseStatusClosed))
}

func TestIsValidLeadTier(t *testing.T) {
	assert.True(t, IsValidLeadTier(LeadTierStandard))
	assert.True(t, IsValidLeadTier(LeadTierPremium))
	assert.True(t, IsValidLeadTier(LeadTierUrgent))
	assert.False(t, IsValidLeadTier("Premium"))
	assert.False(t, IsValidLeadTier(""))
}

func TestClientFieldsPreferLinkedProfile(t *testing.T) {
	c := &Case{
		NombreBorrador:   strPtr("Juan"),
		ApellidoBorrador: strPtr("Pérez"),
		EmailBorrador:    strPtr("juan@borrador.com"),
		TelefonoBorrador: strPtr("+34 600 000 000"),
	}

	assert.Equal(t, "Juan Pérez", c.ClientName())
	assert.Equal(t, "juan@borrador.com", c.ClientEmail())
	assert.Equal(t, "+34 600 000 000", c.ClientPhone())
	assert.Equal(t, "", c.ClientCity())

	c.Cliente = &ClientProfile{Nombre: "Juan Carlos", Email: "jc@cuenta.com", Ciudad: "Madrid"}

	assert.Equal(t, "Juan Carlos", c.ClientName())
	assert.Equal(t, "jc@cuenta.com", c.ClientEmail())
	// Empty profile field falls back to the draft snapshot
	assert.Equal(t, "+34 600 000 000", c.ClientPhone())
	assert.Equal(t, "Madrid", c.ClientCity())
}

func TestBeforeCreateDefaults(t *testing.T) {
	c := &Case{}
	assert.NoError(t, c.BeforeCreate(nil))
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, CaseStatusDraft, c.Estado)
	assert.Equal(t, ProcessingPending, c.EstadoProcesamiento)
}
