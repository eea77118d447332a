package services

import (
	"errors"
	"strings"

	"legal_marketplace_go/models"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrFallbackSpecialtyMissing means the catch-all specialty row does not exist.
// Startup refuses to run without it.
var ErrFallbackSpecialtyMissing = errors.New("fallback specialty is missing")

// DefaultSpecialties is the catalog seeded on an empty database
var DefaultSpecialties = []string{
	"Derecho Laboral",
	"Derecho de Familia",
	"Derecho Penal",
	"Derecho Civil",
	"Derecho Mercantil",
	"Derecho Administrativo",
	"Derecho Inmobiliario",
	"Derecho de Extranjería",
	"Derecho Fiscal",
	"Derecho del Consumidor",
	"Derecho Bancario",
	"Derecho Sucesorio",
}

// SpecialtyResolver maps free-text specialty names from the classifier to specialty ids
type SpecialtyResolver struct {
	db           *gorm.DB
	fallbackName string
}

// NewSpecialtyResolver creates a resolver that falls back to fallbackName
func NewSpecialtyResolver(db *gorm.DB, fallbackName string) *SpecialtyResolver {
	return &SpecialtyResolver{db: db, fallbackName: fallbackName}
}

// Resolve returns the id of the specialty whose name matches name (trimmed,
// case-insensitive). Unknown or empty names resolve to the fallback specialty.
func (r *SpecialtyResolver) Resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name != "" {
		var specialty models.Specialty
		err := r.db.Where("LOWER(nombre) = LOWER(?)", name).First(&specialty).Error
		if err == nil {
			return specialty.ID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", eris.Wrapf(err, "lookup specialty %q", name)
		}
		zap.L().Info("specialty not found, using fallback",
			zap.String("specialty", name), zap.String("fallback", r.fallbackName))
	}

	return r.FallbackID()
}

// FallbackID returns the id of the fallback specialty
func (r *SpecialtyResolver) FallbackID() (string, error) {
	var fallback models.Specialty
	err := r.db.Where("nombre = ?", r.fallbackName).First(&fallback).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", eris.Wrapf(ErrFallbackSpecialtyMissing, "%q", r.fallbackName)
	}
	if err != nil {
		return "", eris.Wrap(err, "lookup fallback specialty")
	}
	return fallback.ID, nil
}

// EnsureFallbackSpecialty creates the fallback specialty if needed and verifies it exists
func EnsureFallbackSpecialty(db *gorm.DB, name string) (*models.Specialty, error) {
	specialty := models.Specialty{Nombre: name}
	err := db.Where(models.Specialty{Nombre: name}).
		Attrs(models.Specialty{Descripcion: "Consultas que no encajan en ninguna especialidad concreta"}).
		FirstOrCreate(&specialty).Error
	if err != nil {
		return nil, eris.Wrapf(err, "ensure fallback specialty %q", name)
	}
	if specialty.ID == "" {
		return nil, eris.Wrapf(ErrFallbackSpecialtyMissing, "%q", name)
	}
	return &specialty, nil
}

// SeedSpecialties inserts the default catalog, skipping names that already exist
func SeedSpecialties(db *gorm.DB, names []string) error {
	created := 0
	for _, name := range names {
		specialty := models.Specialty{Nombre: name}
		result := db.Where(models.Specialty{Nombre: name}).FirstOrCreate(&specialty)
		if result.Error != nil {
			return eris.Wrapf(result.Error, "seed specialty %q", name)
		}
		if result.RowsAffected > 0 {
			created++
		}
	}

	zap.L().Info("specialties seeded", zap.Int("created", created), zap.Int("catalog", len(names)))
	return nil
}
