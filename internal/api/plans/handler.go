package plans

import (
	"log"
	"net/http"

	"studio-app/internal/domain/plans"
	"studio-app/internal/infra/stripeclient"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Provider covers the catalog operations plans need on the payment side.
type Provider interface {
	CreateProduct(name, description string) (string, error)
	CreatePrice(productID string, monthlyPrice decimal.Decimal, currency string) (string, error)
	ListRecurringPrices() ([]stripeclient.PriceInfo, error)
}

type Handler struct {
	DB       *gorm.DB
	Provider Provider
}

func NewHandler(db *gorm.DB, provider Provider) *Handler {
	return &Handler{DB: db, Provider: provider}
}

type planBody struct {
	Name           string          `json:"name" binding:"required"`
	Description    string          `json:"description"`
	MonthlyPrice   decimal.Decimal `json:"monthlyPrice"`
	ClassesPerWeek int             `json:"classesPerWeek"`
	DurationMonths *int            `json:"durationMonths"`
}

// Create stores the plan and provisions the matching Stripe product and
// price. Provisioning is best effort: a provider outage leaves the plan
// unlinked, and a later update or sync can attach the price.
func (h *Handler) Create(c *gin.Context) {
	var body planBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var existing plans.MembershipPlan
	if err := h.DB.Where("name = ?", body.Name).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "A plan with this name already exists"})
		return
	}

	plan := plans.MembershipPlan{
		Name:           body.Name,
		Description:    body.Description,
		MonthlyPrice:   body.MonthlyPrice,
		ClassesPerWeek: body.ClassesPerWeek,
		DurationMonths: body.DurationMonths,
	}

	h.provisionStripe(&plan)

	if err := h.DB.Create(&plan).Error; err != nil {
		log.Printf("⚠️ plans: creating plan %q: %v", body.Name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create plan"})
		return
	}

	c.JSON(http.StatusCreated, plan)
}

func (h *Handler) provisionStripe(plan *plans.MembershipPlan) {
	if h.Provider == nil || plan.MonthlyPrice.IsZero() {
		return
	}

	productID, err := h.Provider.CreateProduct(plan.Name, plan.Description)
	if err != nil {
		log.Printf("⚠️ plans: creating Stripe product for %q: %v", plan.Name, err)
		return
	}
	priceID, err := h.Provider.CreatePrice(productID, plan.MonthlyPrice, "eur")
	if err != nil {
		log.Printf("⚠️ plans: creating Stripe price for %q: %v", plan.Name, err)
		return
	}

	plan.StripeProductID = &productID
	plan.StripePriceID = &priceID
}

func (h *Handler) List(c *gin.Context) {
	list := []plans.MembershipPlan{}
	if err := h.DB.Order("monthly_price").Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plans"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) Get(c *gin.Context) {
	var plan plans.MembershipPlan
	if err := h.DB.First(&plan, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *Handler) Update(c *gin.Context) {
	var plan plans.MembershipPlan
	if err := h.DB.First(&plan, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return
	}

	var body planBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	priceChanged := !plan.MonthlyPrice.Equal(body.MonthlyPrice)

	plan.Name = body.Name
	plan.Description = body.Description
	plan.MonthlyPrice = body.MonthlyPrice
	plan.ClassesPerWeek = body.ClassesPerWeek
	plan.DurationMonths = body.DurationMonths

	// Stripe prices are immutable; a price change needs a fresh price object.
	// Existing subscriptions keep the old price until they change plan.
	if priceChanged && h.Provider != nil && plan.StripeProductID != nil {
		priceID, err := h.Provider.CreatePrice(*plan.StripeProductID, plan.MonthlyPrice, "eur")
		if err != nil {
			log.Printf("⚠️ plans: creating replacement Stripe price for %q: %v", plan.Name, err)
		} else {
			plan.StripePriceID = &priceID
		}
	}
	if plan.StripeProductID == nil {
		h.provisionStripe(&plan)
	}

	if err := h.DB.Save(&plan).Error; err != nil {
		log.Printf("⚠️ plans: updating plan %s: %v", plan.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update plan"})
		return
	}

	c.JSON(http.StatusOK, plan)
}

func (h *Handler) Delete(c *gin.Context) {
	res := h.DB.Delete(&plans.MembershipPlan{}, "id = ?", c.Param("id"))
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete plan"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Plan deleted"})
}

// SyncFromStripe pulls the provider's recurring price catalog and links or
// creates local plans so every active price has a local counterpart.
func (h *Handler) SyncFromStripe(c *gin.Context) {
	prices, err := h.Provider.ListRecurringPrices()
	if err != nil {
		log.Printf("⚠️ plans: listing Stripe prices: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not fetch Stripe prices"})
		return
	}

	created, linked := 0, 0
	for _, p := range prices {
		if p.Interval != "month" {
			continue
		}

		var plan plans.MembershipPlan
		err := h.DB.Where("stripe_price_id = ?", p.PriceID).First(&plan).Error
		if err == nil {
			continue
		}

		// Match by name first so renaming a product in Stripe does not
		// spawn a duplicate plan.
		if err := h.DB.Where("name = ?", p.ProductName).First(&plan).Error; err == nil {
			plan.StripeProductID = &p.ProductID
			priceID := p.PriceID
			plan.StripePriceID = &priceID
			plan.MonthlyPrice = p.UnitAmount
			if err := h.DB.Save(&plan).Error; err != nil {
				log.Printf("⚠️ plans: linking plan %q to price %s: %v", plan.Name, p.PriceID, err)
				continue
			}
			linked++
			continue
		}

		priceID := p.PriceID
		productID := p.ProductID
		plan = plans.MembershipPlan{
			Name:            p.ProductName,
			MonthlyPrice:    p.UnitAmount,
			StripeProductID: &productID,
			StripePriceID:   &priceID,
		}
		if err := h.DB.Create(&plan).Error; err != nil {
			log.Printf("⚠️ plans: creating plan from price %s: %v", p.PriceID, err)
			continue
		}
		created++
	}

	c.JSON(http.StatusOK, gin.H{"message": "Sync complete", "created": created, "linked": linked})
}
