package classes

import (
	"net/http"

	"studio-app/internal/domain/classes"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	DB *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{DB: db}
}

type classBody struct {
	Name       string `json:"name" binding:"required"`
	Program    string `json:"program"`
	Level      string `json:"level"`
	Instructor string `json:"instructor"`
	Schedule   string `json:"schedule"`
}

func (h *Handler) Create(c *gin.Context) {
	var body classBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	offering := classes.ClassOffering{
		Name:       body.Name,
		Program:    body.Program,
		Level:      body.Level,
		Instructor: body.Instructor,
		Schedule:   body.Schedule,
	}
	if err := h.DB.Create(&offering).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create class"})
		return
	}
	c.JSON(http.StatusCreated, offering)
}

func (h *Handler) List(c *gin.Context) {
	list := []classes.ClassOffering{}
	q := h.DB.Order("name")
	if program := c.Query("program"); program != "" {
		q = q.Where("program = ?", program)
	}
	if err := q.Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load classes"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) Get(c *gin.Context) {
	var offering classes.ClassOffering
	if err := h.DB.First(&offering, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Class not found"})
		return
	}
	c.JSON(http.StatusOK, offering)
}

func (h *Handler) Update(c *gin.Context) {
	var offering classes.ClassOffering
	if err := h.DB.First(&offering, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Class not found"})
		return
	}

	var body classBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	offering.Name = body.Name
	offering.Program = body.Program
	offering.Level = body.Level
	offering.Instructor = body.Instructor
	offering.Schedule = body.Schedule

	if err := h.DB.Save(&offering).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update class"})
		return
	}
	c.JSON(http.StatusOK, offering)
}

func (h *Handler) Delete(c *gin.Context) {
	res := h.DB.Delete(&classes.ClassOffering{}, "id = ?", c.Param("id"))
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete class"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Class not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Class deleted"})
}
