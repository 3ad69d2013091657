package stripewebhook

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"studio-app/internal/domain/studios"
	"studio-app/internal/infra/stripeclient"
	"studio-app/internal/reconcile"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	"gorm.io/gorm"
)

const maxWebhookBodyBytes = 65536

// Verifier checks a raw webhook payload against its signature header.
type Verifier interface {
	VerifyWebhookSignature(payload []byte, sigHeader string) (stripe.Event, error)
}

type Handler struct {
	DB       *gorm.DB
	Verifier Verifier
	Engine   *reconcile.Engine
}

func NewHandler(db *gorm.DB, verifier Verifier, engine *reconcile.Engine) *Handler {
	return &Handler{DB: db, Verifier: verifier, Engine: engine}
}

// Handle is the single webhook endpoint. Signature verification runs against
// the exact bytes received, before any JSON parsing. Once the signature is
// good the provider always gets a 200: a failure on our side is our problem
// to log and repair, and a non-2xx would only trigger pointless redeliveries.
func (h *Handler) Handle(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Printf("⚠️ webhook: reading request body failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read request body"})
		return
	}

	sig := c.GetHeader("Stripe-Signature")
	if sig == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing Stripe-Signature header"})
		return
	}

	event, err := h.Verifier.VerifyWebhookSignature(payload, sig)
	if err != nil {
		log.Printf("⚠️ webhook: signature verification failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook signature"})
		return
	}

	log.Printf("🔔 webhook: received %s (%s)", event.Type, event.ID)

	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		h.handleSubscriptionEvent(event)
	case "invoice.payment_succeeded":
		h.handleInvoicePaid(event)
	case "invoice.payment_failed":
		h.handleInvoicePaymentFailed(event)
	case "account.updated":
		h.handleAccountUpdated(event)
	default:
		log.Printf("webhook: ignoring unhandled event type %s", event.Type)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *Handler) handleSubscriptionEvent(event stripe.Event) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		log.Printf("⚠️ webhook: parsing subscription from %s: %v", event.Type, err)
		return
	}
	if err := h.Engine.ApplySubscriptionEvent(stripeclient.NewSubscriptionSnapshot(&sub)); err != nil {
		log.Printf("⚠️ webhook: applying %s: %v", event.Type, err)
	}
}

func (h *Handler) handleInvoicePaid(event stripe.Event) {
	var inv stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		log.Printf("⚠️ webhook: parsing invoice from %s: %v", event.Type, err)
		return
	}
	if err := h.Engine.ApplyInvoicePaid(stripeclient.NewInvoiceSnapshot(&inv)); err != nil {
		log.Printf("⚠️ webhook: applying %s: %v", event.Type, err)
	}
}

func (h *Handler) handleInvoicePaymentFailed(event stripe.Event) {
	var inv stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		log.Printf("⚠️ webhook: parsing invoice from %s: %v", event.Type, err)
		return
	}
	if err := h.Engine.ApplyInvoicePaymentFailed(stripeclient.NewInvoiceSnapshot(&inv)); err != nil {
		log.Printf("⚠️ webhook: applying %s: %v", event.Type, err)
	}
}

// handleAccountUpdated keeps a studio's onboarding flags current for studios
// running on their own connected Stripe account.
func (h *Handler) handleAccountUpdated(event stripe.Event) {
	var acct stripe.Account
	if err := json.Unmarshal(event.Data.Raw, &acct); err != nil {
		log.Printf("⚠️ webhook: parsing account from %s: %v", event.Type, err)
		return
	}

	var studio studios.Studio
	if err := h.DB.Where("stripe_account_id = ?", acct.ID).First(&studio).Error; err != nil {
		log.Printf("webhook: account.updated for unknown account %s; ignoring", acct.ID)
		return
	}

	studio.ChargesEnabled = acct.ChargesEnabled
	studio.DetailsSubmitted = acct.DetailsSubmitted
	if err := h.DB.Save(&studio).Error; err != nil {
		log.Printf("⚠️ webhook: updating studio %s from account.updated: %v", studio.ID, err)
		return
	}
	log.Printf("webhook: studio %s account flags refreshed (charges=%t details=%t)", studio.ID, acct.ChargesEnabled, acct.DetailsSubmitted)
}
