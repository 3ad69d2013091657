package billing

import (
	"log"
	"net/http"

	"studio-app/internal/domain/billing"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListPayments(c *gin.Context) {
	studentID := c.Query("studentId")
	if studentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "studentId is required"})
		return
	}

	payments := []billing.Payment{}
	if err := h.DB.
		Where("student_id = ?", studentID).
		Order("payment_date DESC, created_at DESC").
		Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payments"})
		return
	}

	c.JSON(http.StatusOK, payments)
}

func (h *Handler) ListInvoices(c *gin.Context) {
	studentID := c.Query("studentId")
	if studentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "studentId is required"})
		return
	}

	invoices := []billing.Invoice{}
	if err := h.DB.
		Where("student_id = ?", studentID).
		Order("issue_date DESC, created_at DESC").
		Find(&invoices).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load invoices"})
		return
	}

	c.JSON(http.StatusOK, invoices)
}

// InvoicePDF redirects to the provider-hosted PDF for a local invoice.
func (h *Handler) InvoicePDF(c *gin.Context) {
	var inv billing.Invoice
	if err := h.DB.First(&inv, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		return
	}
	if inv.StripeInvoiceID == nil || *inv.StripeInvoiceID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice has no Stripe counterpart"})
		return
	}

	url, err := h.Provider.InvoicePDFURL(*inv.StripeInvoiceID)
	if err != nil {
		log.Printf("⚠️ billing: fetching invoice PDF for %s: %v", inv.ID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not reach Stripe"})
		return
	}
	if url == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "No PDF available for this invoice"})
		return
	}

	c.Redirect(http.StatusSeeOther, url)
}
