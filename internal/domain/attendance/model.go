package attendance

import (
	"time"

	"studio-app/internal/domain/classes"
	"studio-app/internal/domain/students"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusPresent   = "Present"
	StatusAbsent    = "Absent"
	StatusLate      = "Late"
	StatusJustified = "Justified"
)

// AttendanceRecord is unique per (student, class offering, class datetime);
// re-marking the same slot updates the existing row.
type AttendanceRecord struct {
	ID              string                 `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID       string                 `gorm:"type:uuid;index;not null" json:"studentId"`
	Student         *students.Student      `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	ClassOfferingID string                 `gorm:"type:uuid;index;not null" json:"classOfferingId"`
	ClassOffering   *classes.ClassOffering `gorm:"foreignKey:ClassOfferingID" json:"classOffering,omitempty"`

	// "YYYY-MM-DD HH:mm", kept as text so date-prefix queries stay simple.
	ClassDateTime string `gorm:"size:20;not null" json:"classDateTime"`

	Status    string  `gorm:"size:20;not null" json:"status"`
	Notes     string  `gorm:"type:text" json:"notes,omitempty"`
	AbsenceID *string `gorm:"type:uuid" json:"absenceId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (a *AttendanceRecord) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Absence is a student-reported absence notice, later linkable to an
// attendance record.
type Absence struct {
	ID            string `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID     string `gorm:"type:uuid;index;not null" json:"studentId"`
	StudentName   string `gorm:"size:255" json:"studentName"`
	ClassID       string `gorm:"type:uuid" json:"classId"`
	ClassName     string `gorm:"size:255" json:"className"`
	ClassDateTime string `gorm:"size:20" json:"classDateTime"`
	Reason        string `gorm:"size:255" json:"reason"`
	Notes         string `gorm:"type:text" json:"notes,omitempty"`
	Status        string `gorm:"size:20;default:'Pending'" json:"status"`

	CreatedAt time.Time `json:"createdAt"`
}

func (a *Absence) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
