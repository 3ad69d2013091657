package attendance

import (
	"net/http"

	"studio-app/internal/domain/attendance"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	DB *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{DB: db}
}

type markBody struct {
	StudentID       string  `json:"studentId" binding:"required"`
	ClassOfferingID string  `json:"classOfferingId" binding:"required"`
	ClassDateTime   string  `json:"classDateTime" binding:"required"`
	Status          string  `json:"status" binding:"required"`
	Notes           string  `json:"notes"`
	AbsenceID       *string `json:"absenceId"`
}

// Mark upserts the attendance row for (student, class, datetime): marking the
// same slot twice updates the status instead of piling up rows.
func (h *Handler) Mark(c *gin.Context) {
	var body markBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	record, err := h.upsert(body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save attendance"})
		return
	}
	c.JSON(http.StatusOK, record)
}

// MarkBulk saves a whole class roster in one call. Rows are applied
// independently; one bad row does not fail the rest.
func (h *Handler) MarkBulk(c *gin.Context) {
	var body struct {
		Records []markBody `json:"records" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	saved := []attendance.AttendanceRecord{}
	failed := 0
	for _, rb := range body.Records {
		if rb.StudentID == "" || rb.ClassOfferingID == "" || rb.ClassDateTime == "" || rb.Status == "" {
			failed++
			continue
		}
		record, err := h.upsert(rb)
		if err != nil {
			failed++
			continue
		}
		saved = append(saved, *record)
	}

	c.JSON(http.StatusOK, gin.H{"saved": saved, "failed": failed})
}

func (h *Handler) upsert(body markBody) (*attendance.AttendanceRecord, error) {
	var record attendance.AttendanceRecord
	err := h.DB.Where(
		"student_id = ? AND class_offering_id = ? AND class_date_time = ?",
		body.StudentID, body.ClassOfferingID, body.ClassDateTime,
	).First(&record).Error

	if err != nil {
		record = attendance.AttendanceRecord{
			StudentID:       body.StudentID,
			ClassOfferingID: body.ClassOfferingID,
			ClassDateTime:   body.ClassDateTime,
			Status:          body.Status,
			Notes:           body.Notes,
			AbsenceID:       body.AbsenceID,
		}
		if err := h.DB.Create(&record).Error; err != nil {
			return nil, err
		}
		return &record, nil
	}

	record.Status = body.Status
	record.Notes = body.Notes
	if body.AbsenceID != nil {
		record.AbsenceID = body.AbsenceID
	}
	if err := h.DB.Save(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// ByClassAndDate lists the records for one class on one day. The date is a
// "YYYY-MM-DD" prefix of the stored datetime.
func (h *Handler) ByClassAndDate(c *gin.Context) {
	classID := c.Query("classOfferingId")
	date := c.Query("date")
	if classID == "" || date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "classOfferingId and date are required"})
		return
	}

	records := []attendance.AttendanceRecord{}
	if err := h.DB.
		Preload("Student").
		Where("class_offering_id = ? AND class_date_time LIKE ?", classID, date+"%").
		Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load attendance"})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) ByStudent(c *gin.Context) {
	records := []attendance.AttendanceRecord{}
	if err := h.DB.
		Preload("ClassOffering").
		Where("student_id = ?", c.Param("id")).
		Order("class_date_time DESC").
		Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load attendance"})
		return
	}
	c.JSON(http.StatusOK, records)
}

type absenceBody struct {
	StudentID     string `json:"studentId" binding:"required"`
	StudentName   string `json:"studentName"`
	ClassID       string `json:"classId"`
	ClassName     string `json:"className"`
	ClassDateTime string `json:"classDateTime"`
	Reason        string `json:"reason" binding:"required"`
	Notes         string `json:"notes"`
}

func (h *Handler) ReportAbsence(c *gin.Context) {
	var body absenceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	absence := attendance.Absence{
		StudentID:     body.StudentID,
		StudentName:   body.StudentName,
		ClassID:       body.ClassID,
		ClassName:     body.ClassName,
		ClassDateTime: body.ClassDateTime,
		Reason:        body.Reason,
		Notes:         body.Notes,
	}
	if err := h.DB.Create(&absence).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save absence"})
		return
	}
	c.JSON(http.StatusCreated, absence)
}

func (h *Handler) ListAbsences(c *gin.Context) {
	absences := []attendance.Absence{}
	q := h.DB.Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&absences).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load absences"})
		return
	}
	c.JSON(http.StatusOK, absences)
}

// ReviewAbsence marks an absence Approved or Rejected. Approval also marks
// the matching attendance slot as justified when class info is present.
func (h *Handler) ReviewAbsence(c *gin.Context) {
	var absence attendance.Absence
	if err := h.DB.First(&absence, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Absence not found"})
		return
	}

	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || (body.Status != "Approved" && body.Status != "Rejected") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status must be Approved or Rejected"})
		return
	}

	absence.Status = body.Status
	if err := h.DB.Save(&absence).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update absence"})
		return
	}

	if body.Status == "Approved" && absence.ClassID != "" && absence.ClassDateTime != "" {
		if _, err := h.upsert(markBody{
			StudentID:       absence.StudentID,
			ClassOfferingID: absence.ClassID,
			ClassDateTime:   absence.ClassDateTime,
			Status:          attendance.StatusJustified,
			Notes:           absence.Reason,
			AbsenceID:       &absence.ID,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Absence approved but attendance could not be updated"})
			return
		}
	}

	c.JSON(http.StatusOK, absence)
}
