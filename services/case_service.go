package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"legal_marketplace_go/models"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrorMarkerPrefix starts the summary of a case whose processing failed
const ErrorMarkerPrefix = "Error en el procesamiento del caso"

// EnqueueFailurePrefix marks processing errors caused by a rejected enqueue.
// The recovery sweep re-enqueues these cases.
const EnqueueFailurePrefix = "enqueue: "

var (
	ErrCaseNotFound       = errors.New("case not found")
	ErrStaleProcessingRun = errors.New("a newer processing run owns this case")
	ErrCaseNotProcessable = errors.New("case is past the processing stage")
	ErrInvalidLeadTier    = errors.New("invalid lead tier")
)

// DraftCaseInput holds what intake knows about a case before any AI processing
type DraftCaseInput struct {
	FirstName    *string
	LastName     *string
	Email        *string
	Phone        *string
	City         *string
	Reason       *string
	Summary      *string
	Transcript   *string
	OriginalText *string
	ClientID     *string
	Flow         string
}

// ProcessingRequest holds the inputs of a background trigger
type ProcessingRequest struct {
	Summary    string
	Transcript string
	Reason     string
	Files      []string
	Flow       string
}

// Classification is the resolved output of the classifier
type Classification struct {
	Title          string
	SpecialtyID    string
	LeadTier       string
	EstimatedValue string
}

// FinalizeInput carries every artifact of a successful processing run
type FinalizeInput struct {
	Summary        string
	Guide          string
	Classification Classification
	Proposal       *models.Proposal
	// Attachments is only written when UpdateAttachments is set, so runs
	// without files keep documents copied by earlier runs.
	Attachments       []models.Attachment
	UpdateAttachments bool
}

// GuidePath is the fixed storage path of a case's lawyer guide
func GuidePath(caseID string) string {
	return fmt.Sprintf("case/%s/lawyer-guide.md", caseID)
}

// ErrorMarker builds the summary placeholder stored on a failed case
func ErrorMarker(reason string) string {
	return fmt.Sprintf("%s: %s", ErrorMarkerPrefix, reason)
}

// CreateDraftCase inserts a new case in draft state with sanitized client fields
func CreateDraftCase(db *gorm.DB, input DraftCaseInput) (*models.Case, error) {
	c := &models.Case{
		Estado:              models.CaseStatusDraft,
		EstadoProcesamiento: models.ProcessingPending,
		NombreBorrador:      sanitizeOptional(input.FirstName),
		ApellidoBorrador:    sanitizeOptional(input.LastName),
		EmailBorrador:       sanitizeOptional(input.Email),
		TelefonoBorrador:    sanitizeOptional(input.Phone),
		CiudadBorrador:      sanitizeOptional(input.City),
		MotivoConsulta:      sanitizeOptional(input.Reason),
		ResumenCaso:         sanitizeOptional(input.Summary),
		TranscripcionChat:   input.Transcript,
		TextoOriginal:       input.OriginalText,
		ClienteID:           input.ClientID,
	}
	if input.Flow != "" {
		c.Flujo = &input.Flow
	}

	if err := db.Create(c).Error; err != nil {
		return nil, eris.Wrap(err, "create draft case")
	}
	return c, nil
}

// GetCase loads a case with its linked profile and specialty
func GetCase(db *gorm.DB, id string) (*models.Case, error) {
	var c models.Case
	err := db.Preload("Cliente").Preload("Especialidad").Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCaseNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "load case %s", id)
	}
	return &c, nil
}

// SaveProcessingContext stores the inputs of a background run on the case so a
// recovered or manual rerun sees the same request. Empty texts leave the stored
// ones untouched; the file list and flow always replace the previous trigger's.
func SaveProcessingContext(db *gorm.DB, id string, req ProcessingRequest) error {
	updates := map[string]interface{}{
		"adjuntos_pendientes": nil,
	}
	if s := strings.TrimSpace(req.Summary); s != "" {
		updates["resumen_caso"] = SanitizeText(s)
	}
	if s := strings.TrimSpace(req.Transcript); s != "" {
		updates["transcripcion_chat"] = s
	}
	if s := strings.TrimSpace(req.Reason); s != "" {
		updates["motivo_consulta"] = SanitizeText(s)
	}
	if len(req.Files) > 0 {
		updates["adjuntos_pendientes"] = datatypes.NewJSONSlice(req.Files)
	}
	if req.Flow != "" {
		updates["flujo"] = req.Flow
	}

	var count int64
	if err := db.Model(&models.Case{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return eris.Wrapf(err, "check case %s", id)
	}
	if count == 0 {
		return ErrCaseNotFound
	}

	if err := db.Model(&models.Case{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return eris.Wrapf(err, "save processing context for %s", id)
	}
	return nil
}

// BeginProcessingRun claims the case for a new run and returns the run's version.
// Any run holding an older version will have its writes rejected.
func BeginProcessingRun(db *gorm.DB, id string) (int, error) {
	var version int
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Case{}).Where("id = ?", id).Updates(map[string]interface{}{
			"version_procesamiento": gorm.Expr("version_procesamiento + 1"),
			"estado_procesamiento":  models.ProcessingGenerating,
			"error_procesamiento":   nil,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCaseNotFound
		}

		var c models.Case
		if err := tx.Select("version_procesamiento").Where("id = ?", id).First(&c).Error; err != nil {
			return err
		}
		version = c.VersionProcesamiento
		return nil
	})
	if errors.Is(err, ErrCaseNotFound) {
		return 0, ErrCaseNotFound
	}
	if err != nil {
		return 0, eris.Wrapf(err, "begin processing run for %s", id)
	}
	return version, nil
}

// checkCurrentRun fails with ErrStaleProcessingRun when version is not the latest
func checkCurrentRun(db *gorm.DB, id string, version int) (*models.Case, error) {
	var c models.Case
	err := db.Select("id", "estado", "version_procesamiento").Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCaseNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "load case %s", id)
	}
	if c.VersionProcesamiento != version {
		return nil, ErrStaleProcessingRun
	}
	return &c, nil
}

// MarkFinalizing records that generation finished and persistence started
func MarkFinalizing(db *gorm.DB, id string, version int) error {
	res := db.Model(&models.Case{}).
		Where("id = ? AND version_procesamiento = ?", id, version).
		Update("estado_procesamiento", models.ProcessingFinalizing)
	if res.Error != nil {
		return eris.Wrapf(res.Error, "mark case %s finalizing", id)
	}
	if res.RowsAffected == 0 {
		_, err := checkCurrentRun(db, id, version)
		if err != nil {
			return err
		}
	}
	return nil
}

// FinalizeCase moves the case to available with every structured field in one
// conditional update and writes the guide artifact inside the same transaction,
// so a superseded run can neither publish fields nor overwrite the guide.
// Re-running it with the same input overwrites the same guide object and yields
// the same fields.
func FinalizeCase(ctx context.Context, db *gorm.DB, store StorageProvider, id string, version int, in FinalizeInput) error {
	if !models.IsValidLeadTier(in.Classification.LeadTier) {
		return eris.Wrapf(ErrInvalidLeadTier, "case %s: %q", id, in.Classification.LeadTier)
	}

	guideKey := GuidePath(id)
	guide := SanitizeText(in.Guide)
	updates := map[string]interface{}{
		"estado":               models.CaseStatusAvailable,
		"resumen_caso":         SanitizeText(in.Summary),
		"titulo":               SanitizeText(in.Classification.Title),
		"guia_abogado":         guideKey,
		"especialidad_id":      in.Classification.SpecialtyID,
		"tipo_lead":            in.Classification.LeadTier,
		"valor_estimado":       SanitizeText(in.Classification.EstimatedValue),
		"adjuntos_pendientes":  nil,
		"estado_procesamiento": models.ProcessingAvailable,
		"error_procesamiento":  nil,
		"procesado_en":         time.Now().UTC(),
	}
	if in.Proposal != nil {
		updates["propuesta"] = datatypes.NewJSONType(*in.Proposal)
	}
	if in.UpdateAttachments {
		updates["documentos_adjuntos"] = datatypes.JSONSlice[models.Attachment](in.Attachments)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		current, err := checkCurrentRun(tx, id, version)
		if err != nil {
			return err
		}
		if !models.CanPublish(current.Estado) {
			return eris.Wrapf(ErrCaseNotProcessable, "case %s is %s", id, current.Estado)
		}

		res := tx.Model(&models.Case{}).
			Where("id = ? AND version_procesamiento = ? AND estado = ?", id, version, current.Estado).
			Updates(updates)
		if res.Error != nil {
			return eris.Wrapf(res.Error, "finalize case %s", id)
		}
		if res.RowsAffected == 0 {
			return ErrStaleProcessingRun
		}

		if _, err := store.UploadReader(ctx, strings.NewReader(guide), guideKey, "text/markdown; charset=utf-8", int64(len(guide))); err != nil {
			return eris.Wrapf(err, "write guide for %s", id)
		}
		return nil
	})
}

// RevertToDraft records a failed run: the case returns to draft with an error marker
// in its summary, every generated field cleared and its guide object removed.
// Cases already past the processing stage keep their lifecycle state and only
// record the failure.
func RevertToDraft(ctx context.Context, db *gorm.DB, store StorageProvider, id string, version int, reason string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		current, err := checkCurrentRun(tx, id, version)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{
			"estado_procesamiento": models.ProcessingFailed,
			"error_procesamiento":  reason,
		}
		revert := models.CanRevertToDraft(current.Estado)
		if revert {
			updates["estado"] = models.CaseStatusDraft
			updates["resumen_caso"] = ErrorMarker(reason)
			updates["titulo"] = nil
			updates["guia_abogado"] = nil
			updates["especialidad_id"] = nil
			updates["tipo_lead"] = nil
			updates["valor_estimado"] = nil
			updates["propuesta"] = nil
		}

		res := tx.Model(&models.Case{}).
			Where("id = ? AND version_procesamiento = ?", id, version).
			Updates(updates)
		if res.Error != nil {
			return eris.Wrapf(res.Error, "revert case %s", id)
		}
		if res.RowsAffected == 0 {
			return ErrStaleProcessingRun
		}

		if revert {
			if err := store.Delete(ctx, GuidePath(id)); err != nil {
				zap.L().Warn("remove guide of reverted case", zap.String("case_id", id), zap.Error(err))
			}
		}
		return nil
	})
}

// MarkEnqueueFailed records that a case could not be handed to the background queue
func MarkEnqueueFailed(db *gorm.DB, id string, reason string) error {
	err := db.Model(&models.Case{}).Where("id = ?", id).Updates(map[string]interface{}{
		"estado_procesamiento": models.ProcessingFailed,
		"error_procesamiento":  EnqueueFailurePrefix + reason,
	}).Error
	if err != nil {
		return eris.Wrapf(err, "mark case %s enqueue failure", id)
	}
	return nil
}
