package admin

import (
	"net/http"
	"time"

	"studio-app/internal/domain/billing"
	"studio-app/internal/domain/plans"
	"studio-app/internal/domain/students"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Handler struct {
	DB *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{DB: db}
}

// Stats aggregates the dashboard numbers: headcounts, revenue and plan
// distribution. Revenue sums are computed in Go from decimal amounts rather
// than in SQL so sqlite and postgres agree.
func (h *Handler) Stats(c *gin.Context) {
	var totalStudents, activeStudents, activeSubscriptions int64
	h.DB.Model(&students.Student{}).Count(&totalStudents)
	h.DB.Model(&students.Student{}).Where("status = ?", "Active").Count(&activeStudents)
	h.DB.Model(&students.Student{}).Where("subscription_status = ?", "active").Count(&activeSubscriptions)

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var monthPayments []billing.Payment
	h.DB.Where("payment_date >= ?", monthStart).Find(&monthPayments)
	monthRevenue := decimal.Zero
	for _, p := range monthPayments {
		monthRevenue = monthRevenue.Add(p.AmountPaid)
	}

	var allPayments []billing.Payment
	h.DB.Find(&allPayments)
	totalRevenue := decimal.Zero
	for _, p := range allPayments {
		totalRevenue = totalRevenue.Add(p.AmountPaid)
	}

	type planCount struct {
		PlanName string `json:"planName"`
		Count    int64  `json:"count"`
	}
	planCounts := []planCount{}

	var allPlans []plans.MembershipPlan
	h.DB.Find(&allPlans)
	for _, p := range allPlans {
		var n int64
		h.DB.Model(&students.Student{}).Where("membership_plan_id = ?", p.ID).Count(&n)
		planCounts = append(planCounts, planCount{PlanName: p.Name, Count: n})
	}

	c.JSON(http.StatusOK, gin.H{
		"totalStudents":       totalStudents,
		"activeStudents":      activeStudents,
		"activeSubscriptions": activeSubscriptions,
		"monthRevenue":        monthRevenue,
		"totalRevenue":        totalRevenue,
		"studentsPerPlan":     planCounts,
	})
}

// StudentDetail returns one student with their full billing history.
func (h *Handler) StudentDetail(c *gin.Context) {
	var student students.Student
	if err := h.DB.Preload("MembershipPlan").First(&student, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}

	payments := []billing.Payment{}
	h.DB.Where("student_id = ?", student.ID).Order("payment_date DESC").Find(&payments)

	invoices := []billing.Invoice{}
	h.DB.Where("student_id = ?", student.ID).Order("issue_date DESC").Find(&invoices)

	c.JSON(http.StatusOK, gin.H{
		"student":  student,
		"payments": payments,
		"invoices": invoices,
	})
}
