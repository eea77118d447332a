package ai

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
)

var (
	ErrMalformedJSON  = errors.New("ai: response is not valid JSON")
	ErrSchemaMismatch = errors.New("ai: response does not match schema")
)

var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*\\s*\n?(.*?)\\s*```")

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func schemaValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// StripCodeFences removes a Markdown code fence around a model answer and trims
// any prose before the first JSON opening brace or after its closing brace.
func StripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	closing := "}"
	if s[start] == '[' {
		closing = "]"
	}
	end := strings.LastIndex(s, closing)
	if end < start {
		return s[start:]
	}
	return s[start : end+1]
}

// Normalizer is implemented by answer types that clean up model output
// (case, whitespace) before validation.
type Normalizer interface {
	Normalize()
}

// ParseJSON decodes a possibly fenced model answer into out and validates it
// against the struct's `validate` tags.
func ParseJSON[T any](raw string, out *T) error {
	body := StripCodeFences(raw)
	if body == "" {
		return eris.Wrap(ErrMalformedJSON, "empty body")
	}

	if err := json.Unmarshal([]byte(body), out); err != nil {
		return eris.Wrapf(ErrMalformedJSON, "%v", err)
	}

	if n, ok := any(out).(Normalizer); ok {
		n.Normalize()
	}

	if err := schemaValidator().Struct(out); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			// Non-struct targets have nothing to validate
			return nil
		}
		return eris.Wrapf(ErrSchemaMismatch, "%v", err)
	}
	return nil
}
