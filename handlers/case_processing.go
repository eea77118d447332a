package handlers

import (
	"errors"
	"net/http"

	"legal_marketplace_go/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type processCaseRequest struct {
	CaseID         string   `json:"caso_id" validate:"required,uuid"`
	Summary        string   `json:"resumen_caso" validate:"required"`
	Transcript     string   `json:"transcripcion_chat"`
	Reason         string   `json:"motivo_consulta"`
	Files          []string `json:"files" validate:"omitempty,dive,required"`
	ManualProposal bool     `json:"generar_propuesta"`
}

// ProcessCase handles POST /api/cases/process: it stores the run inputs on the
// case and schedules the background pipeline, answering before any AI work.
func (h *CaseHandler) ProcessCase(c echo.Context) error {
	var req processCaseRequest
	if err := bindRequest(c, &req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	log := zap.L().With(zap.String("case_id", req.CaseID))

	flow := services.FlowChat
	if req.ManualProposal {
		flow = services.FlowManual
	}

	err := services.SaveProcessingContext(h.DB, req.CaseID, services.ProcessingRequest{
		Summary:    req.Summary,
		Transcript: req.Transcript,
		Reason:     req.Reason,
		Files:      req.Files,
		Flow:       flow,
	})
	if errors.Is(err, services.ErrCaseNotFound) {
		return errorJSON(c, http.StatusNotFound, "Caso no encontrado")
	}
	if err != nil {
		log.Error("save processing context", zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "Error al guardar el caso")
	}

	job := services.ProcessingJob{
		CaseID:     req.CaseID,
		Flow:       flow,
		Summary:    req.Summary,
		Transcript: req.Transcript,
		Reason:     req.Reason,
		Files:      req.Files,
	}
	if err := h.Queue.Enqueue(job); err != nil {
		log.Error("enqueue processing", zap.Error(err))
		if markErr := services.MarkEnqueueFailed(h.DB, req.CaseID, err.Error()); markErr != nil {
			log.Error("record enqueue failure", zap.Error(markErr))
		}
		return errorJSON(c, http.StatusServiceUnavailable, "El procesamiento no está disponible, se reintentará automáticamente")
	}

	log.Info("processing scheduled", zap.String("flow", flow), zap.Int("files", len(req.Files)))
	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"success": true,
		"message": "Procesamiento iniciado",
		"caso_id": req.CaseID,
	})
}
