package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Specialty represents a canonical legal practice area (laboral, familia, penal, etc.)
type Specialty struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Nombre      string `gorm:"column:nombre;size:150;not null;uniqueIndex" json:"nombre"`
	Descripcion string `gorm:"column:descripcion;type:text" json:"descripcion,omitempty"`
}

// BeforeCreate hook to generate UUID
func (s *Specialty) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (Specialty) TableName() string {
	return "especialidades"
}
