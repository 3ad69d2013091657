package public

import (
	"log"
	"net/http"

	"studio-app/internal/domain/staff"
	"studio-app/internal/domain/studios"
	"studio-app/internal/infra/stripeclient"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Provider covers the provisioning the public signup flow needs.
type Provider interface {
	CreateCustomer(name, email string) (*stripeclient.CustomerRef, error)
	CreateSubscription(customerID, priceID string) (*stripeclient.SubscriptionSnapshot, error)
}

type Handler struct {
	DB       *gorm.DB
	Provider Provider
}

func NewHandler(db *gorm.DB, provider Provider) *Handler {
	return &Handler{DB: db, Provider: provider}
}

type registerStudioBody struct {
	StudioName string `json:"studioName" binding:"required"`
	Admin      struct {
		FirstName string `json:"firstName" binding:"required"`
		LastName  string `json:"lastName" binding:"required"`
		Username  string `json:"username" binding:"required"`
		Email     string `json:"email" binding:"required,email"`
		Password  string `json:"password" binding:"required"`
	} `json:"admin" binding:"required"`

	// Optional: subscribe the studio to a platform plan at signup.
	PlanPriceID string `json:"planPriceId"`
}

// RegisterStudio is the unauthenticated signup flow: studio, admin account
// and Stripe customer in one request. Stripe provisioning is best effort so
// a provider outage never blocks a signup.
func (h *Handler) RegisterStudio(c *gin.Context) {
	var body registerStudioBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var existing studios.Studio
	if err := h.DB.Where("name = ?", body.StudioName).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "A studio with this name already exists"})
		return
	}

	var existingMember staff.Member
	if err := h.DB.Where("username = ? OR email = ?", body.Admin.Username, body.Admin.Email).
		First(&existingMember).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Username or email is already in use"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(body.Admin.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}
	hashedStr := string(hashed)

	studio := studios.Studio{Name: body.StudioName}
	member := staff.Member{
		Username:  body.Admin.Username,
		Email:     body.Admin.Email,
		FirstName: body.Admin.FirstName,
		LastName:  body.Admin.LastName,
		Password:  &hashedStr,
		Role:      "admin",
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&studio).Error; err != nil {
			return err
		}
		member.StudioID = &studio.ID
		return tx.Create(&member).Error
	})
	if err != nil {
		log.Printf("⚠️ public: registering studio %q: %v", body.StudioName, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register studio"})
		return
	}

	h.provisionStripe(&studio, &member, body.PlanPriceID)

	c.JSON(http.StatusCreated, gin.H{
		"studio": studio,
		"admin":  member,
	})
}

func (h *Handler) provisionStripe(studio *studios.Studio, admin *staff.Member, planPriceID string) {
	if h.Provider == nil {
		return
	}

	ref, err := h.Provider.CreateCustomer(studio.Name, admin.Email)
	if err != nil {
		log.Printf("⚠️ public: creating Stripe customer for studio %s: %v", studio.ID, err)
		return
	}
	studio.StripeCustomerID = &ref.ID

	if planPriceID != "" {
		snap, err := h.Provider.CreateSubscription(ref.ID, planPriceID)
		if err != nil {
			log.Printf("⚠️ public: subscribing studio %s to plan: %v", studio.ID, err)
		} else {
			studio.StripeSubscriptionID = &snap.ID
		}
	}

	if err := h.DB.Save(studio).Error; err != nil {
		log.Printf("⚠️ public: saving Stripe ids for studio %s: %v", studio.ID, err)
	}
}
