package staff

import (
	"time"

	"studio-app/internal/domain/studios"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Member is a staff/admin account. Students never log in here.
type Member struct {
	ID        string  `gorm:"type:uuid;primaryKey" json:"id"`
	Username  string  `gorm:"size:100;not null;uniqueIndex:idx_staff_members_username" json:"username"`
	Email     string  `gorm:"size:255;not null;uniqueIndex:idx_staff_members_email" json:"email"`
	FirstName string  `gorm:"size:100" json:"firstName"`
	LastName  string  `gorm:"size:100" json:"lastName"`
	Password  *string `gorm:"size:255" json:"-"`

	AuthProvider string  `gorm:"type:varchar(20);not null;default:'local'" json:"-"`
	GoogleSub    *string `gorm:"uniqueIndex:idx_staff_members_google_sub" json:"-"`

	Role   string `gorm:"size:50;default:'admin'" json:"role"`
	Status string `gorm:"size:20;default:'active'" json:"status"`

	StudioID *string         `gorm:"type:uuid" json:"studioId,omitempty"`
	Studio   *studios.Studio `gorm:"foreignKey:StudioID" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (m *Member) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
