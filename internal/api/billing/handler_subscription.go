package billing

import (
	"errors"
	"log"
	"net/http"

	"studio-app/internal/domain/plans"
	"studio-app/internal/domain/students"
	"studio-app/internal/infra/stripeclient"

	"github.com/gin-gonic/gin"
)

type createSubscriptionBody struct {
	StudentID        string `json:"studentId" binding:"required"`
	MembershipPlanID string `json:"membershipPlanId" binding:"required"`
	PaymentMethodID  string `json:"paymentMethodId"`
}

// CreateSubscription provisions a provider subscription for a student. The
// customer is reused when the student already has one and it still exists on
// the provider side; otherwise a fresh customer is created first.
//
// The subscription starts incomplete; the returned client secret lets the
// frontend confirm the first payment. Local fields are reconciled from the
// created subscription immediately rather than waiting for the webhook.
func (h *Handler) CreateSubscription(c *gin.Context) {
	var body createSubscriptionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var student students.Student
	if err := h.DB.First(&student, "id = ?", body.StudentID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}

	var plan plans.MembershipPlan
	if err := h.DB.First(&plan, "id = ?", body.MembershipPlanID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Membership plan not found"})
		return
	}
	if plan.StripePriceID == nil || *plan.StripePriceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Membership plan is not linked to a Stripe price"})
		return
	}

	customerID, err := h.ensureCustomer(&student)
	if err != nil {
		log.Printf("⚠️ billing: ensuring customer for student %s: %v", student.ID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not create Stripe customer"})
		return
	}

	if body.PaymentMethodID != "" {
		if err := h.Provider.AttachPaymentMethod(customerID, body.PaymentMethodID); err != nil {
			log.Printf("⚠️ billing: attaching payment method for student %s: %v", student.ID, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Could not attach payment method"})
			return
		}
	}

	snap, err := h.Provider.CreateSubscription(customerID, *plan.StripePriceID)
	if err != nil {
		log.Printf("⚠️ billing: creating subscription for student %s: %v", student.ID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not create subscription"})
		return
	}

	if err := h.Engine.ApplySubscriptionSnapshot(&student, snap); err != nil {
		log.Printf("⚠️ billing: reconciling new subscription %s: %v", snap.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Subscription created but could not be saved locally"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"subscription": snap,
		"clientSecret": snap.ClientSecret,
		"student":      student,
	})
}

// ensureCustomer returns the student's provider customer id, creating a new
// customer when none exists or the stored one was deleted provider-side.
func (h *Handler) ensureCustomer(student *students.Student) (string, error) {
	if student.StripeCustomerID != nil && *student.StripeCustomerID != "" {
		ref, err := h.Provider.RetrieveCustomer(*student.StripeCustomerID)
		if err != nil {
			return "", err
		}
		if ref != nil {
			return ref.ID, nil
		}
		log.Printf("billing: stored customer %s no longer exists; creating a new one", *student.StripeCustomerID)
	}

	ref, err := h.Provider.CreateCustomer(student.FirstName+" "+student.LastName, student.Email)
	if err != nil {
		return "", err
	}

	student.StripeCustomerID = &ref.ID
	if err := h.DB.Save(student).Error; err != nil {
		return "", err
	}
	return ref.ID, nil
}

// GetStudentSubscription reads the live subscription, reconciles local state
// from it, and returns it. A provider-side resource_missing clears the stale
// local linkage so the student can subscribe again.
func (h *Handler) GetStudentSubscription(c *gin.Context) {
	var student students.Student
	if err := h.DB.First(&student, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}

	if student.StripeSubscriptionID == nil || *student.StripeSubscriptionID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student has no subscription"})
		return
	}

	snap, err := h.Provider.RetrieveSubscription(*student.StripeSubscriptionID)
	if err != nil {
		if errors.Is(err, stripeclient.ErrSubscriptionNotFound) {
			h.clearSubscription(&student)
			c.JSON(http.StatusNotFound, gin.H{"error": "Subscription no longer exists"})
			return
		}
		log.Printf("⚠️ billing: retrieving subscription for student %s: %v", student.ID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not reach Stripe"})
		return
	}

	if err := h.Engine.ApplySubscriptionSnapshot(&student, snap); err != nil {
		log.Printf("⚠️ billing: reconciling subscription %s: %v", snap.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update local subscription state"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subscription": snap,
		"status":       stripeclient.NormalizeSubscriptionStatus(snap.Status),
		"student":      student,
	})
}

func (h *Handler) clearSubscription(student *students.Student) {
	student.StripeSubscriptionID = nil
	student.SubscriptionStatus = "canceled"
	student.MembershipStartDate = nil
	student.MembershipRenewalDate = nil
	if err := h.DB.Save(student).Error; err != nil {
		log.Printf("⚠️ billing: clearing subscription for student %s: %v", student.ID, err)
	}
}

type subscriptionActionBody struct {
	StudentID        string `json:"studentId" binding:"required"`
	MembershipPlanID string `json:"membershipPlanId"`
}

// ChangePlan swaps the subscription to a different plan's price. Stripe
// prorates; the webhook stream carries the resulting invoice.
func (h *Handler) ChangePlan(c *gin.Context) {
	subscriptionID := c.Param("id")

	var body subscriptionActionBody
	if err := c.ShouldBindJSON(&body); err != nil || body.MembershipPlanID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	student, ok := h.studentOwningSubscription(c, body.StudentID, subscriptionID)
	if !ok {
		return
	}

	var plan plans.MembershipPlan
	if err := h.DB.First(&plan, "id = ?", body.MembershipPlanID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Membership plan not found"})
		return
	}
	if plan.StripePriceID == nil || *plan.StripePriceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Membership plan is not linked to a Stripe price"})
		return
	}

	snap, err := h.Provider.UpdateSubscription(subscriptionID, *plan.StripePriceID)
	if err != nil {
		log.Printf("⚠️ billing: changing plan on subscription %s: %v", subscriptionID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not change plan"})
		return
	}

	if err := h.Engine.ApplySubscriptionSnapshot(student, snap); err != nil {
		log.Printf("⚠️ billing: reconciling subscription %s after plan change: %v", snap.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Plan changed but could not be saved locally"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscription": snap, "student": student})
}

// CancelSubscription sets cancel-at-period-end. The student keeps access
// until the period closes; the deletion webhook flips the final status.
func (h *Handler) CancelSubscription(c *gin.Context) {
	subscriptionID := c.Param("id")

	var body subscriptionActionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	student, ok := h.studentOwningSubscription(c, body.StudentID, subscriptionID)
	if !ok {
		return
	}

	snap, err := h.Provider.CancelSubscription(subscriptionID)
	if err != nil {
		if errors.Is(err, stripeclient.ErrSubscriptionNotFound) {
			h.clearSubscription(student)
			c.JSON(http.StatusNotFound, gin.H{"error": "Subscription no longer exists"})
			return
		}
		log.Printf("⚠️ billing: canceling subscription %s: %v", subscriptionID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not cancel subscription"})
		return
	}

	if err := h.Engine.ApplySubscriptionSnapshot(student, snap); err != nil {
		log.Printf("⚠️ billing: reconciling subscription %s after cancel: %v", snap.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cancellation accepted but could not be saved locally"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":           "Subscription will cancel at the end of the current period",
		"cancelAtPeriodEnd": snap.CancelAtPeriodEnd,
		"subscription":      snap,
	})
}

func (h *Handler) studentOwningSubscription(c *gin.Context, studentID, subscriptionID string) (*students.Student, bool) {
	var student students.Student
	if err := h.DB.First(&student, "id = ?", studentID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return nil, false
	}
	if student.StripeSubscriptionID == nil || *student.StripeSubscriptionID != subscriptionID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Subscription does not belong to this student"})
		return nil, false
	}
	return &student, true
}
