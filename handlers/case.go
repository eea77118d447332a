package handlers

import (
	"errors"
	"net/http"
	"time"

	"legal_marketplace_go/models"
	"legal_marketplace_go/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GuideURLExpiry is how long a signed lawyer guide link stays valid
const GuideURLExpiry = 15 * time.Minute

// CaseHandler serves the case intake, processing and read endpoints
type CaseHandler struct {
	DB     *gorm.DB
	Intake *services.CaseIntake
	Queue  services.JobEnqueuer
	Guides services.StorageProvider
}

type clientView struct {
	Nombre   string `json:"nombre"`
	Email    string `json:"email"`
	Telefono string `json:"telefono"`
	Ciudad   string `json:"ciudad"`
}

type caseView struct {
	ID                  string              `json:"id"`
	Estado              string              `json:"estado"`
	Titulo              *string             `json:"titulo"`
	ResumenCaso         *string             `json:"resumen_caso"`
	MotivoConsulta      *string             `json:"motivo_consulta"`
	Especialidad        *string             `json:"especialidad"`
	TipoLead            *string             `json:"tipo_lead"`
	ValorEstimado       *string             `json:"valor_estimado"`
	Propuesta           *models.Proposal    `json:"propuesta"`
	GuiaURL             string              `json:"guia_url,omitempty"`
	Documentos          []models.Attachment `json:"documentos_adjuntos"`
	Cliente             clientView          `json:"cliente"`
	EstadoProcesamiento string              `json:"estado_procesamiento"`
	ErrorProcesamiento  *string             `json:"error_procesamiento,omitempty"`
	ProcesadoEn         *time.Time          `json:"procesado_en,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
}

// GetCase returns a case with client fields resolved against the linked profile
func (h *CaseHandler) GetCase(c echo.Context) error {
	caso, err := services.GetCase(h.DB, c.Param("id"))
	if errors.Is(err, services.ErrCaseNotFound) {
		return errorJSON(c, http.StatusNotFound, "Caso no encontrado")
	}
	if err != nil {
		zap.L().Error("load case", zap.String("case_id", c.Param("id")), zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "Error al obtener el caso")
	}

	view := caseView{
		ID:             caso.ID,
		Estado:         caso.Estado,
		Titulo:         caso.Titulo,
		ResumenCaso:    caso.ResumenCaso,
		MotivoConsulta: caso.MotivoConsulta,
		TipoLead:       caso.TipoLead,
		ValorEstimado:  caso.ValorEstimado,
		Documentos:     caso.Documentos,
		Cliente: clientView{
			Nombre:   caso.ClientName(),
			Email:    caso.ClientEmail(),
			Telefono: caso.ClientPhone(),
			Ciudad:   caso.ClientCity(),
		},
		EstadoProcesamiento: caso.EstadoProcesamiento,
		ErrorProcesamiento:  caso.ErrorProcesamiento,
		ProcesadoEn:         caso.ProcesadoEn,
		CreatedAt:           caso.CreatedAt,
	}
	if view.Documentos == nil {
		view.Documentos = []models.Attachment{}
	}
	if caso.Especialidad != nil {
		view.Especialidad = &caso.Especialidad.Nombre
	}
	if caso.Propuesta != nil {
		view.Propuesta = caso.Propuesta
	}
	if caso.GuiaAbogado != nil && h.Guides != nil {
		url, err := h.Guides.GetSignedURL(c.Request().Context(), *caso.GuiaAbogado, GuideURLExpiry)
		if err != nil {
			zap.L().Warn("sign guide url", zap.String("case_id", caso.ID), zap.Error(err))
		} else {
			view.GuiaURL = url
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"caso":    view,
	})
}
