package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClientProfile is the account-backed identity of a client once one is linked to a case
type ClientProfile struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Nombre   string `gorm:"column:nombre;not null" json:"nombre"`
	Apellido string `gorm:"column:apellido" json:"apellido"`
	Email    string `gorm:"column:email;index" json:"email"`
	Telefono string `gorm:"column:telefono" json:"telefono"`
	Ciudad   string `gorm:"column:ciudad" json:"ciudad"`
}

// BeforeCreate hook to generate UUID
func (p *ClientProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (ClientProfile) TableName() string {
	return "perfiles"
}
