package students

import (
	"log"
	"net/http"
	"time"

	"studio-app/internal/domain/students"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Handler struct {
	DB *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{DB: db}
}

type studentBody struct {
	FirstName   string  `json:"firstName" binding:"required"`
	LastName    string  `json:"lastName" binding:"required"`
	Username    *string `json:"username"`
	Email       string  `json:"email" binding:"required,email"`
	Password    *string `json:"password"`
	Phone       string  `json:"phone"`
	DateOfBirth *string `json:"dateOfBirth"`
	Gender      string  `json:"gender"`

	EmergencyContact *students.EmergencyContact `json:"emergencyContact"`
	Address          *students.Address          `json:"address"`

	Program     *string `json:"program"`
	DancerLevel *string `json:"dancerLevel"`
	Status      string  `json:"status"`
	Notes       string  `json:"notes"`
}

func (h *Handler) Create(c *gin.Context) {
	var body studentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if taken, field := h.identityTaken(body.Email, body.Username, ""); taken {
		c.JSON(http.StatusConflict, gin.H{"error": field + " is already in use"})
		return
	}

	student := students.Student{
		FirstName:        body.FirstName,
		LastName:         body.LastName,
		Username:         body.Username,
		Email:            body.Email,
		Phone:            body.Phone,
		Gender:           body.Gender,
		EmergencyContact: body.EmergencyContact,
		Address:          body.Address,
		Program:          body.Program,
		DancerLevel:      body.DancerLevel,
		Notes:            body.Notes,
	}
	if body.Status != "" {
		student.Status = body.Status
	}
	if dob, ok := parseDay(body.DateOfBirth); ok {
		student.DateOfBirth = dob
	}
	if body.Password != nil && *body.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*body.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		hp := string(hashed)
		student.Password = &hp
	}

	if err := h.DB.Create(&student).Error; err != nil {
		log.Printf("⚠️ students: creating student: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create student"})
		return
	}

	c.JSON(http.StatusCreated, student)
}

func (h *Handler) List(c *gin.Context) {
	list := []students.Student{}
	q := h.DB.Order("last_name, first_name")

	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if program := c.Query("program"); program != "" {
		q = q.Where("program = ?", program)
	}

	if err := q.Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load students"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) Get(c *gin.Context) {
	var student students.Student
	if err := h.DB.First(&student, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}
	c.JSON(http.StatusOK, student)
}

func (h *Handler) Update(c *gin.Context) {
	var student students.Student
	if err := h.DB.First(&student, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}

	var body studentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if taken, field := h.identityTaken(body.Email, body.Username, student.ID); taken {
		c.JSON(http.StatusConflict, gin.H{"error": field + " is already in use"})
		return
	}

	student.FirstName = body.FirstName
	student.LastName = body.LastName
	student.Username = body.Username
	student.Email = body.Email
	student.Phone = body.Phone
	student.Gender = body.Gender
	student.EmergencyContact = body.EmergencyContact
	student.Address = body.Address
	student.Program = body.Program
	student.DancerLevel = body.DancerLevel
	student.Notes = body.Notes
	if body.Status != "" {
		student.Status = body.Status
	}
	if dob, ok := parseDay(body.DateOfBirth); ok {
		student.DateOfBirth = dob
	}
	if body.Password != nil && *body.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*body.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		hp := string(hashed)
		student.Password = &hp
	}

	if err := h.DB.Save(&student).Error; err != nil {
		log.Printf("⚠️ students: updating student %s: %v", student.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update student"})
		return
	}

	c.JSON(http.StatusOK, student)
}

func (h *Handler) Delete(c *gin.Context) {
	res := h.DB.Delete(&students.Student{}, "id = ?", c.Param("id"))
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete student"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student deleted"})
}

// identityTaken reports whether email or username is used by another student.
func (h *Handler) identityTaken(email string, username *string, excludeID string) (bool, string) {
	var existing students.Student
	q := h.DB.Where("email = ?", email)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.First(&existing).Error; err == nil {
		return true, "Email"
	}

	if username != nil && *username != "" {
		q = h.DB.Where("username = ?", *username)
		if excludeID != "" {
			q = q.Where("id <> ?", excludeID)
		}
		if err := q.First(&existing).Error; err == nil {
			return true, "Username"
		}
	}
	return false, ""
}

func parseDay(s *string) (*time.Time, bool) {
	if s == nil || *s == "" {
		return nil, false
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil, false
	}
	return &t, true
}
