package stripeclient

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
	"github.com/stripe/stripe-go/v75/webhook"
)

// ErrSubscriptionNotFound reports the provider's resource_missing code:
// the subscription is gone, not temporarily unreachable.
var ErrSubscriptionNotFound = errors.New("stripe: subscription not found")

// Client wraps the Stripe API behind typed snapshots. It is constructed once
// and passed in explicitly; no package-level stripe.Key is set anywhere.
type Client struct {
	api           *client.API
	accountID     string
	webhookSecret string
}

func New(secretKey, webhookSecret string) *Client {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Client{api: api, webhookSecret: webhookSecret}
}

// ForAccount returns a shallow copy whose requests carry the connected
// account header, for studios with their own Stripe account.
func (c *Client) ForAccount(accountID string) *Client {
	cp := *c
	cp.accountID = accountID
	return &cp
}

func (c *Client) scope(p *stripe.Params) {
	if c.accountID != "" {
		p.SetStripeAccount(c.accountID)
	}
}

func (c *Client) CreateCustomer(name, email string) (*CustomerRef, error) {
	params := &stripe.CustomerParams{
		Name:  stripe.String(name),
		Email: stripe.String(email),
	}
	c.scope(&params.Params)

	cus, err := c.api.Customers.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create customer: %w", err)
	}
	return NewCustomerRef(cus), nil
}

// RetrieveCustomer returns nil (no error) when the customer no longer exists
// or was deleted, so callers can fall back to creating a fresh one.
func (c *Client) RetrieveCustomer(customerID string) (*CustomerRef, error) {
	params := &stripe.CustomerParams{}
	c.scope(&params.Params)

	cus, err := c.api.Customers.Get(customerID, params)
	if err != nil {
		if isResourceMissing(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stripe: retrieve customer %s: %w", customerID, err)
	}
	if cus == nil || cus.Deleted {
		return nil, nil
	}
	return NewCustomerRef(cus), nil
}

func (c *Client) AttachPaymentMethod(customerID, paymentMethodID string) error {
	attach := &stripe.PaymentMethodAttachParams{Customer: stripe.String(customerID)}
	c.scope(&attach.Params)
	if _, err := c.api.PaymentMethods.Attach(paymentMethodID, attach); err != nil {
		return fmt.Errorf("stripe: attach payment method: %w", err)
	}

	update := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	c.scope(&update.Params)
	if _, err := c.api.Customers.Update(customerID, update); err != nil {
		return fmt.Errorf("stripe: set default payment method: %w", err)
	}
	return nil
}

func (c *Client) CreateSubscription(customerID, priceID string) (*SubscriptionSnapshot, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
	}
	params.AddExpand("latest_invoice.payment_intent")
	c.scope(&params.Params)

	sub, err := c.api.Subscriptions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create subscription: %w", err)
	}
	return NewSubscriptionSnapshot(sub), nil
}

// UpdateSubscription swaps the subscription's single line item to the new
// price; Stripe prorates the difference.
func (c *Client) UpdateSubscription(subscriptionID, newPriceID string) (*SubscriptionSnapshot, error) {
	getParams := &stripe.SubscriptionParams{}
	c.scope(&getParams.Params)
	sub, err := c.api.Subscriptions.Get(subscriptionID, getParams)
	if err != nil {
		if isResourceMissing(err) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("stripe: retrieve subscription %s: %w", subscriptionID, err)
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil, fmt.Errorf("stripe: subscription %s has no line item", subscriptionID)
	}

	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:    stripe.String(sub.Items.Data[0].ID),
				Price: stripe.String(newPriceID),
			},
		},
		ProrationBehavior: stripe.String("create_prorations"),
	}
	c.scope(&params.Params)

	updated, err := c.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: update subscription %s: %w", subscriptionID, err)
	}
	return NewSubscriptionSnapshot(updated), nil
}

// CancelSubscription marks cancel-at-period-end; the subscription stays live
// until the period closes and the deletion webhook reports the final status.
func (c *Client) CancelSubscription(subscriptionID string) (*SubscriptionSnapshot, error) {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	c.scope(&params.Params)

	sub, err := c.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		if isResourceMissing(err) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("stripe: cancel subscription %s: %w", subscriptionID, err)
	}
	return NewSubscriptionSnapshot(sub), nil
}

func (c *Client) RetrieveSubscription(subscriptionID string) (*SubscriptionSnapshot, error) {
	params := &stripe.SubscriptionParams{}
	c.scope(&params.Params)

	sub, err := c.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		if isResourceMissing(err) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("stripe: retrieve subscription %s: %w", subscriptionID, err)
	}
	return NewSubscriptionSnapshot(sub), nil
}

// VerifyWebhookSignature checks the signature against the exact bytes
// received. A failure is terminal for the request; callers must not retry.
func (c *Client) VerifyWebhookSignature(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(
		payload,
		sigHeader,
		c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
}

func (c *Client) CreateProduct(name, description string) (string, error) {
	params := &stripe.ProductParams{Name: stripe.String(name)}
	if description != "" {
		params.Description = stripe.String(description)
	}
	c.scope(&params.Params)

	prod, err := c.api.Products.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: create product %q: %w", name, err)
	}
	return prod.ID, nil
}

func (c *Client) CreatePrice(productID string, monthlyPrice decimal.Decimal, currency string) (string, error) {
	params := &stripe.PriceParams{
		Product:    stripe.String(productID),
		UnitAmount: stripe.Int64(monthlyPrice.Shift(2).Round(0).IntPart()),
		Currency:   stripe.String(currency),
		Recurring: &stripe.PriceRecurringParams{
			Interval: stripe.String("month"),
		},
	}
	c.scope(&params.Params)

	price, err := c.api.Prices.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: create price for product %s: %w", productID, err)
	}
	return price.ID, nil
}

// ListRecurringPrices returns all active recurring prices with their product
// expanded, for syncing local plans against the provider catalog.
func (c *Client) ListRecurringPrices() ([]PriceInfo, error) {
	params := &stripe.PriceListParams{}
	params.Active = stripe.Bool(true)
	params.Type = stripe.String("recurring")
	params.AddExpand("data.product")
	if c.accountID != "" {
		params.SetStripeAccount(c.accountID)
	}

	it := c.api.Prices.List(params)

	var prices []PriceInfo
	for it.Next() {
		p := it.Price()
		if !p.Active || p.Recurring == nil || p.Product == nil || !p.Product.Active {
			continue
		}
		prices = append(prices, NewPriceInfo(p))
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("stripe: list prices: %w", err)
	}
	return prices, nil
}

// InvoicePDFURL returns "" when the invoice or its PDF does not exist.
func (c *Client) InvoicePDFURL(invoiceID string) (string, error) {
	params := &stripe.InvoiceParams{}
	c.scope(&params.Params)

	inv, err := c.api.Invoices.Get(invoiceID, params)
	if err != nil {
		if isResourceMissing(err) {
			return "", nil
		}
		return "", fmt.Errorf("stripe: retrieve invoice %s: %w", invoiceID, err)
	}
	if inv == nil {
		return "", nil
	}
	return inv.InvoicePDF, nil
}

func isResourceMissing(err error) bool {
	var stripeErr *stripe.Error
	return errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing
}
