package services

import (
	"context"
	"encoding/json"
	"strings"

	"legal_marketplace_go/services/ai"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
)

// Extraction holds the client and consultation fields pulled out of raw case text.
// Any field the model could not extract is nil.
type Extraction struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
	City      *string
	Reason    *string
	Summary   *string
}

type rawExtraction struct {
	Client       map[string]json.RawMessage `json:"cliente"`
	Consultation map[string]json.RawMessage `json:"consulta"`
}

// Extractor runs the extraction assistant over raw case text
type Extractor struct {
	gen      ai.Generator
	validate *validator.Validate
}

// NewExtractor creates an Extractor backed by gen
func NewExtractor(gen ai.Generator) *Extractor {
	return &Extractor{gen: gen, validate: validator.New()}
}

// Extract asks the model for the fixed extraction schema and parses its answer.
// A malformed answer is an error; a single unusable field becomes nil.
func (e *Extractor) Extract(ctx context.Context, text string) (*Extraction, error) {
	answer, err := e.gen.Run(ctx, ai.AssistantExtractor, "Texto del caso:\n"+text)
	if err != nil {
		return nil, eris.Wrap(err, "extract case fields")
	}

	var raw rawExtraction
	if err := ai.ParseJSON(answer, &raw); err != nil {
		return nil, eris.Wrap(err, "parse extraction")
	}

	out := &Extraction{
		FirstName: fieldString(raw.Client, "nombre"),
		LastName:  fieldString(raw.Client, "apellido"),
		Email:     fieldString(raw.Client, "email"),
		Phone:     fieldString(raw.Client, "telefono"),
		City:      fieldString(raw.Client, "ciudad"),
		Reason:    fieldString(raw.Consultation, "motivo_consulta"),
		Summary:   fieldString(raw.Consultation, "resumen_caso"),
	}
	if out.Email != nil && e.validate.Var(*out.Email, "email") != nil {
		out.Email = nil
	}
	return out, nil
}

// fieldString reads a string field, accepting bare numbers (phone numbers often
// come back unquoted) and mapping anything else to nil.
func fieldString(fields map[string]json.RawMessage, key string) *string {
	raw, ok := fields[key]
	if !ok {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil
		}
		s = n.String()
	}

	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	return &s
}
