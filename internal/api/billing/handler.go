package billing

import (
	"studio-app/internal/infra/stripeclient"
	"studio-app/internal/reconcile"

	"gorm.io/gorm"
)

// Provider is the slice of the payment client the billing endpoints use.
type Provider interface {
	CreateCustomer(name, email string) (*stripeclient.CustomerRef, error)
	RetrieveCustomer(customerID string) (*stripeclient.CustomerRef, error)
	AttachPaymentMethod(customerID, paymentMethodID string) error
	CreateSubscription(customerID, priceID string) (*stripeclient.SubscriptionSnapshot, error)
	UpdateSubscription(subscriptionID, newPriceID string) (*stripeclient.SubscriptionSnapshot, error)
	CancelSubscription(subscriptionID string) (*stripeclient.SubscriptionSnapshot, error)
	RetrieveSubscription(subscriptionID string) (*stripeclient.SubscriptionSnapshot, error)
	InvoicePDFURL(invoiceID string) (string, error)
}

type Handler struct {
	DB       *gorm.DB
	Provider Provider
	Engine   *reconcile.Engine
}

func NewHandler(db *gorm.DB, provider Provider, engine *reconcile.Engine) *Handler {
	return &Handler{DB: db, Provider: provider, Engine: engine}
}
