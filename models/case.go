package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Case lifecycle states
const (
	CaseStatusDraft            = "borrador"
	CaseStatusAvailable        = "disponible"
	CaseStatusAssigned         = "asignado"
	CaseStatusInProgress       = "en_progreso"
	CaseStatusReadyForProposal = "listo_para_propuesta"
	CaseStatusAwaitingPayment  = "esperando_pago"
	CaseStatusClosed           = "cerrado"
)

// Processing run states
const (
	ProcessingPending    = "pending"
	ProcessingGenerating = "generating"
	ProcessingFinalizing = "finalizing"
	ProcessingAvailable  = "available"
	ProcessingFailed     = "failed"
)

// Lead tiers produced by classification
const (
	LeadTierStandard = "standard"
	LeadTierPremium  = "premium"
	LeadTierUrgent   = "urgent"
)

// caseTransitions lists the forward edges of the case lifecycle.
// Admin reopen is handled outside this package.
var caseTransitions = map[string][]string{
	CaseStatusDraft:            {CaseStatusAvailable},
	CaseStatusAvailable:        {CaseStatusAssigned, CaseStatusReadyForProposal, CaseStatusAwaitingPayment},
	CaseStatusAssigned:         {CaseStatusInProgress},
	CaseStatusInProgress:       {CaseStatusReadyForProposal},
	CaseStatusAwaitingPayment:  {CaseStatusReadyForProposal, CaseStatusAssigned},
	CaseStatusReadyForProposal: {CaseStatusClosed},
}

// Attachment maps a client document in the source store to its copy in the destination store
type Attachment struct {
	Source string `json:"origen"`
	Path   string `json:"ruta"`
}

// Proposal is the client-facing proposal content generated for manual cases
type Proposal struct {
	Label    string `json:"etiqueta"`
	Title    string `json:"titulo"`
	Subtitle string `json:"subtitulo"`
}

// Case represents a client consultation moving through the marketplace
type Case struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Estado string `gorm:"column:estado;size:30;not null;default:borrador;index" json:"estado"`

	// Draft client snapshot, captured before any account exists
	NombreBorrador   *string `gorm:"column:nombre_borrador" json:"nombre_borrador,omitempty"`
	ApellidoBorrador *string `gorm:"column:apellido_borrador" json:"apellido_borrador,omitempty"`
	EmailBorrador    *string `gorm:"column:email_borrador" json:"email_borrador,omitempty"`
	TelefonoBorrador *string `gorm:"column:telefono_borrador" json:"telefono_borrador,omitempty"`
	CiudadBorrador   *string `gorm:"column:ciudad_borrador" json:"ciudad_borrador,omitempty"`

	// Linked client account
	ClienteID *string        `gorm:"column:cliente_id;type:uuid;index" json:"cliente_id,omitempty"`
	Cliente   *ClientProfile `gorm:"foreignKey:ClienteID" json:"cliente,omitempty"`

	// Consultation input
	MotivoConsulta    *string `gorm:"column:motivo_consulta;type:text" json:"motivo_consulta,omitempty"`
	TranscripcionChat *string `gorm:"column:transcripcion_chat;type:text" json:"transcripcion_chat,omitempty"`
	TextoOriginal     *string `gorm:"column:texto_original;type:text" json:"texto_original,omitempty"`

	// Inputs of the latest trigger, kept until a run publishes the case so a
	// recovered run sees the same files and flow
	Flujo              *string  `gorm:"column:flujo;size:20" json:"flujo,omitempty"`
	AdjuntosPendientes []string `gorm:"column:adjuntos_pendientes;serializer:json" json:"adjuntos_pendientes,omitempty"`

	// AI-generated content
	ResumenCaso    *string                         `gorm:"column:resumen_caso;type:text" json:"resumen_caso,omitempty"`
	Titulo         *string                         `gorm:"column:titulo" json:"titulo,omitempty"`
	GuiaAbogado    *string                         `gorm:"column:guia_abogado" json:"guia_abogado,omitempty"` // storage key of the guide
	Propuesta      *Proposal                       `gorm:"column:propuesta;serializer:json" json:"propuesta,omitempty"`
	EspecialidadID *string                         `gorm:"column:especialidad_id;type:uuid;index" json:"especialidad_id,omitempty"`
	Especialidad   *Specialty                      `gorm:"foreignKey:EspecialidadID" json:"especialidad,omitempty"`
	TipoLead       *string                         `gorm:"column:tipo_lead;size:20" json:"tipo_lead,omitempty"`
	ValorEstimado  *string                         `gorm:"column:valor_estimado" json:"valor_estimado,omitempty"`
	Documentos     datatypes.JSONSlice[Attachment] `gorm:"column:documentos_adjuntos" json:"documentos_adjuntos"`

	// Processing bookkeeping. VersionProcesamiento increases on every run so
	// stale runs can be rejected at write time.
	EstadoProcesamiento  string     `gorm:"column:estado_procesamiento;size:20;not null;default:pending" json:"estado_procesamiento"`
	VersionProcesamiento int        `gorm:"column:version_procesamiento;not null;default:0" json:"version_procesamiento"`
	ErrorProcesamiento   *string    `gorm:"column:error_procesamiento;type:text" json:"error_procesamiento,omitempty"`
	ProcesadoEn          *time.Time `gorm:"column:procesado_en" json:"procesado_en,omitempty"`
}

// BeforeCreate hook to generate UUID and default state
func (c *Case) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Estado == "" {
		c.Estado = CaseStatusDraft
	}
	if c.EstadoProcesamiento == "" {
		c.EstadoProcesamiento = ProcessingPending
	}
	return nil
}

// TableName specifies the table name for Case model
func (Case) TableName() string {
	return "casos"
}

// ClientName returns the client's display name, preferring the linked profile
func (c *Case) ClientName() string {
	if c.Cliente != nil && c.Cliente.Nombre != "" {
		return joinName(c.Cliente.Nombre, c.Cliente.Apellido)
	}
	return joinName(deref(c.NombreBorrador), deref(c.ApellidoBorrador))
}

// ClientEmail returns the client's email, preferring the linked profile
func (c *Case) ClientEmail() string {
	if c.Cliente != nil && c.Cliente.Email != "" {
		return c.Cliente.Email
	}
	return deref(c.EmailBorrador)
}

// ClientPhone returns the client's phone, preferring the linked profile
func (c *Case) ClientPhone() string {
	if c.Cliente != nil && c.Cliente.Telefono != "" {
		return c.Cliente.Telefono
	}
	return deref(c.TelefonoBorrador)
}

// ClientCity returns the client's city, preferring the linked profile
func (c *Case) ClientCity() string {
	if c.Cliente != nil && c.Cliente.Ciudad != "" {
		return c.Cliente.Ciudad
	}
	return deref(c.CiudadBorrador)
}

// CanTransition reports whether moving from one lifecycle state to another is a valid forward edge
func CanTransition(from, to string) bool {
	for _, next := range caseTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanPublish reports whether a processing run may make a case in this state
// available. Republishing an already available case is allowed.
func CanPublish(from string) bool {
	return from == CaseStatusAvailable || CanTransition(from, CaseStatusAvailable)
}

// CanRevertToDraft reports whether a failed processing run may send the case back
// to draft. This is the only backward edge and it closes once a lawyer is involved.
func CanRevertToDraft(from string) bool {
	return from == CaseStatusDraft || from == CaseStatusAvailable
}

// IsValidLeadTier checks the lead tier against the three known tiers
func IsValidLeadTier(tier string) bool {
	return tier == LeadTierStandard || tier == LeadTierPremium || tier == LeadTierUrgent
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}
