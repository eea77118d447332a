package services

import (
	"context"
	"errors"
	"testing"

	"legal_marketplace_go/services/ai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractor_FencedAnswer(t *testing.T) {
	gen := newScriptedGenerator()
	gen.answers[ai.AssistantExtractor] = "Aquí tienes:\n```json\n" + `{
  "cliente": {"nombre": "Lucía", "apellido": "Martín", "email": "lucia@example.com", "telefono": "600123123", "ciudad": "Sevilla"},
  "consulta": {"motivo_consulta": "Despido", "resumen_caso": "Despido sin carta tras 8 años."}
}` + "\n```"

	out, err := NewExtractor(gen).Extract(context.Background(), "Me han despedido...")
	require.NoError(t, err)

	assert.Equal(t, "Lucía", *out.FirstName)
	assert.Equal(t, "Martín", *out.LastName)
	assert.Equal(t, "lucia@example.com", *out.Email)
	assert.Equal(t, "600123123", *out.Phone)
	assert.Equal(t, "Sevilla", *out.City)
	assert.Equal(t, "Despido", *out.Reason)
	assert.Equal(t, "Despido sin carta tras 8 años.", *out.Summary)

	require.Equal(t, 1, gen.calls(ai.AssistantExtractor))
	assert.Contains(t, gen.prompts[ai.AssistantExtractor][0], "Me han despedido...")
}

func TestExtractor_MissingAndOddFields(t *testing.T) {
	gen := newScriptedGenerator()
	gen.answers[ai.AssistantExtractor] = `{
  "cliente": {"nombre": null, "apellido": "", "email": "no-es-un-email", "telefono": 600123123, "ciudad": "null"},
  "consulta": {"resumen_caso": "Reclamación de herencia"}
}`

	out, err := NewExtractor(gen).Extract(context.Background(), "texto")
	require.NoError(t, err)

	assert.Nil(t, out.FirstName)
	assert.Nil(t, out.LastName)
	assert.Nil(t, out.Email)
	assert.Nil(t, out.City)
	assert.Nil(t, out.Reason)
	require.NotNil(t, out.Phone)
	assert.Equal(t, "600123123", *out.Phone)
	assert.Equal(t, "Reclamación de herencia", *out.Summary)
}

func TestExtractor_MissingSections(t *testing.T) {
	gen := newScriptedGenerator()
	gen.answers[ai.AssistantExtractor] = `{}`

	out, err := NewExtractor(gen).Extract(context.Background(), "texto")
	require.NoError(t, err)
	assert.Equal(t, &Extraction{}, out)
}

func TestExtractor_MalformedAnswer(t *testing.T) {
	gen := newScriptedGenerator()
	gen.answers[ai.AssistantExtractor] = "Lo siento, no puedo ayudar con eso."

	_, err := NewExtractor(gen).Extract(context.Background(), "texto")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ai.ErrMalformedJSON))
}

func TestExtractor_GeneratorError(t *testing.T) {
	gen := newScriptedGenerator()
	gen.failures[ai.AssistantExtractor] = ai.ErrEmptyResponse

	_, err := NewExtractor(gen).Extract(context.Background(), "texto")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ai.ErrEmptyResponse))
}
