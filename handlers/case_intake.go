package handlers

import (
	"errors"
	"net/http"

	"legal_marketplace_go/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type manualCaseRequest struct {
	CaseText string `json:"caseText"`
}

// CreateManualCase handles POST /api/cases/manual. The case is returned in draft
// state as soon as it is stored; AI processing continues in the background.
func (h *CaseHandler) CreateManualCase(c echo.Context) error {
	var req manualCaseRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, errInvalidBody.Error())
	}

	caso, err := h.Intake.Intake(c.Request().Context(), req.CaseText)
	switch {
	case errors.Is(err, services.ErrEmptyCaseText):
		return errorJSON(c, http.StatusBadRequest, "El texto del caso es obligatorio")
	case errors.Is(err, services.ErrExtractionFailed):
		zap.L().Warn("manual intake extraction failed", zap.Error(err))
		return errorJSON(c, http.StatusBadGateway, "No se pudieron extraer los datos del caso")
	case err != nil:
		zap.L().Error("manual intake failed", zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "Error al crear el caso")
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"caso": map[string]string{
			"id":     caso.ID,
			"estado": caso.Estado,
		},
	})
}
