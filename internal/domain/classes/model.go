package classes

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClassOffering struct {
	ID         string `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string `gorm:"size:255;not null" json:"name"`
	Program    string `gorm:"size:100" json:"program,omitempty"`
	Level      string `gorm:"size:100" json:"level,omitempty"`
	Instructor string `gorm:"size:255" json:"instructor,omitempty"`

	// Weekly slot, e.g. "Tuesday 17:30".
	Schedule string `gorm:"size:100" json:"schedule,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *ClassOffering) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
