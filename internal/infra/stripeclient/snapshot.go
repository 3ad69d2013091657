package stripeclient

import (
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v75"
)

// The snapshot types are the only shapes the rest of the codebase sees.
// Mapping happens here, once, with every provider field treated as
// untrusted: absent or non-positive timestamps become nil, never garbage.

type CustomerRef struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

func NewCustomerRef(cus *stripe.Customer) *CustomerRef {
	if cus == nil {
		return nil
	}
	return &CustomerRef{ID: cus.ID, Email: cus.Email, Name: cus.Name}
}

type SubscriptionSnapshot struct {
	ID         string `json:"id"`
	CustomerID string `json:"stripeCustomerId"`
	Status     string `json:"status"`
	PriceID    string `json:"priceId,omitempty"`
	Quantity   int64  `json:"quantity,omitempty"`

	CurrentPeriodStart *int64 `json:"current_period_start"`
	CurrentPeriodEnd   *int64 `json:"current_period_end"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`

	// Set when the subscription was created with an expanded latest invoice;
	// the frontend needs it to confirm the first payment.
	ClientSecret string `json:"clientSecret,omitempty"`

	Metadata map[string]string `json:"-"`
}

func NewSubscriptionSnapshot(sub *stripe.Subscription) *SubscriptionSnapshot {
	if sub == nil {
		return nil
	}

	snap := &SubscriptionSnapshot{
		ID:                 sub.ID,
		Status:             string(sub.Status),
		CurrentPeriodStart: unixOrNil(sub.CurrentPeriodStart),
		CurrentPeriodEnd:   unixOrNil(sub.CurrentPeriodEnd),
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		Metadata:           sub.Metadata,
	}

	if sub.Customer != nil {
		snap.CustomerID = sub.Customer.ID
	}

	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		snap.Quantity = item.Quantity
		if item.Price != nil {
			snap.PriceID = item.Price.ID
		}
	}

	if sub.LatestInvoice != nil && sub.LatestInvoice.PaymentIntent != nil {
		snap.ClientSecret = sub.LatestInvoice.PaymentIntent.ClientSecret
	}

	return snap
}

type InvoiceLine struct {
	ID          string
	Description string
	Quantity    int64
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
}

type InvoiceSnapshot struct {
	ID              string
	Number          string
	CustomerID      string
	SubscriptionID  string
	PaymentIntentID string
	PriceID         string

	Paid    bool
	Status  string
	Created int64
	DueDate *int64
	PaidAt  *int64

	Lines []InvoiceLine

	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	Total      decimal.Decimal
	AmountPaid decimal.Decimal
	AmountDue  decimal.Decimal
}

func NewInvoiceSnapshot(inv *stripe.Invoice) *InvoiceSnapshot {
	if inv == nil {
		return nil
	}

	snap := &InvoiceSnapshot{
		ID:         inv.ID,
		Number:     inv.Number,
		Paid:       inv.Paid,
		Status:     string(inv.Status),
		Created:    inv.Created,
		DueDate:    unixOrNil(inv.DueDate),
		Subtotal:   cents(inv.Subtotal),
		Tax:        cents(inv.Tax),
		Total:      cents(inv.Total),
		AmountPaid: cents(inv.AmountPaid),
		AmountDue:  cents(inv.AmountDue),
	}

	if inv.Customer != nil {
		snap.CustomerID = inv.Customer.ID
	}
	if inv.Subscription != nil {
		snap.SubscriptionID = inv.Subscription.ID
	}
	if inv.PaymentIntent != nil {
		snap.PaymentIntentID = inv.PaymentIntent.ID
	}
	if inv.StatusTransitions != nil {
		snap.PaidAt = unixOrNil(inv.StatusTransitions.PaidAt)
	}

	if inv.Lines != nil {
		for _, line := range inv.Lines.Data {
			if line == nil {
				continue
			}
			snap.Lines = append(snap.Lines, newInvoiceLine(line))
			if snap.PriceID == "" && line.Price != nil {
				snap.PriceID = line.Price.ID
			}
		}
	}

	return snap
}

func newInvoiceLine(line *stripe.InvoiceLineItem) InvoiceLine {
	qty := line.Quantity
	if qty <= 0 {
		qty = 1
	}

	amount := cents(line.Amount)

	// Prefer the explicit unit price; fall back to amount/quantity.
	var unit decimal.Decimal
	if line.Price != nil && line.Price.UnitAmountDecimal != 0 {
		unit = decimal.NewFromFloat(line.Price.UnitAmountDecimal).Shift(-2)
	} else {
		unit = amount.Div(decimal.NewFromInt(qty))
	}

	desc := line.Description
	if desc == "" {
		desc = "N/A"
	}

	return InvoiceLine{
		ID:          line.ID,
		Description: desc,
		Quantity:    qty,
		UnitPrice:   unit,
		Amount:      amount,
	}
}

type PriceInfo struct {
	PriceID     string
	ProductID   string
	ProductName string
	UnitAmount  decimal.Decimal
	Currency    string
	Interval    string
	Metadata    map[string]string
}

func NewPriceInfo(p *stripe.Price) PriceInfo {
	info := PriceInfo{
		PriceID:    p.ID,
		UnitAmount: cents(p.UnitAmount),
		Currency:   string(p.Currency),
		Metadata:   p.Metadata,
	}
	if p.Product != nil {
		info.ProductID = p.Product.ID
		info.ProductName = p.Product.Name
	}
	if p.Recurring != nil {
		info.Interval = string(p.Recurring.Interval)
	}
	return info
}

func unixOrNil(ts int64) *int64 {
	if ts <= 0 {
		return nil
	}
	return &ts
}

func cents(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}
