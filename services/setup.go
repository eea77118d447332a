package services

import (
	"legal_marketplace_go/config"
	"legal_marketplace_go/models"
	"legal_marketplace_go/services/ai"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Models lists every table this service migrates
func Models() []interface{} {
	return []interface{}{&models.Specialty{}, &models.ClientProfile{}, &models.Case{}}
}

// NewAssistantRunner builds the assistant runner from configuration
func NewAssistantRunner(cfg *config.Config) *ai.Runner {
	if cfg.AnthropicAPIKey == "" {
		zap.L().Warn("ANTHROPIC_API_KEY not set, assistant calls will fail")
	}
	return ai.NewRunner(ai.NewClient(cfg.AnthropicAPIKey), ai.RunnerConfig{
		Model:             cfg.AIModel,
		MaxTokens:         cfg.AIMaxTokens,
		RequestTimeout:    cfg.AIRequestTimeout,
		RequestsPerSecond: cfg.AIRequestsPerSecond,
	})
}

// PrepareSpecialties guarantees the fallback specialty exists and seeds the default
// catalog. The service must not start if this fails.
func PrepareSpecialties(db *gorm.DB, fallbackName string) (*SpecialtyResolver, error) {
	fallback, err := EnsureFallbackSpecialty(db, fallbackName)
	if err != nil {
		return nil, err
	}
	if err := SeedSpecialties(db, DefaultSpecialties); err != nil {
		return nil, eris.Wrap(err, "seed specialties")
	}

	resolver := NewSpecialtyResolver(db, fallbackName)
	if _, err := resolver.FallbackID(); err != nil {
		return nil, err
	}
	zap.L().Info("fallback specialty ready", zap.String("name", fallback.Nombre), zap.String("id", fallback.ID))
	return resolver, nil
}
