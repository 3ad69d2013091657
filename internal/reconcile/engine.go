package reconcile

import (
	"fmt"
	"log"
	"strings"
	"time"

	"studio-app/internal/domain/billing"
	"studio-app/internal/domain/plans"
	"studio-app/internal/domain/students"
	"studio-app/internal/infra/stripeclient"

	"gorm.io/gorm"
)

// SubscriptionRetriever is the slice of the provider client the engine needs
// to refresh period dates after an invoice settles.
type SubscriptionRetriever interface {
	RetrieveSubscription(subscriptionID string) (*stripeclient.SubscriptionSnapshot, error)
}

// Engine maps provider snapshots onto local billing records. Every apply is
// written to be idempotent: replaying the same snapshot leaves the stored
// state unchanged, which is what makes duplicate webhook deliveries harmless.
type Engine struct {
	db       *gorm.DB
	provider SubscriptionRetriever
}

func New(db *gorm.DB, provider SubscriptionRetriever) *Engine {
	return &Engine{db: db, provider: provider}
}

// ApplySubscriptionSnapshot refreshes a student's billing fields from a
// subscription snapshot and persists the student.
//
// A price id with no local plan mapping leaves the existing plan fields
// untouched; that is a catalog problem, not a reason to fail the operation.
// Period dates are only trusted while the subscription is active, and each
// missing timestamp nulls its date rather than propagating garbage.
func (e *Engine) ApplySubscriptionSnapshot(student *students.Student, snap *stripeclient.SubscriptionSnapshot) error {
	if snap == nil || snap.ID == "" {
		return fmt.Errorf("reconcile: empty subscription snapshot")
	}

	student.StripeSubscriptionID = &snap.ID
	student.SubscriptionStatus = snap.Status

	if snap.PriceID != "" {
		var plan plans.MembershipPlan
		if err := e.db.Where("stripe_price_id = ?", snap.PriceID).First(&plan).Error; err == nil {
			student.MembershipPlanID = &plan.ID
			student.MembershipPlanName = &plan.Name
		} else {
			log.Printf("⚠️ reconcile: no local plan for stripe price %s (subscription %s); keeping existing plan fields", snap.PriceID, snap.ID)
		}
	}

	if snap.Status == "active" {
		student.MembershipStartDate = unixDate(snap.CurrentPeriodStart)
		student.MembershipRenewalDate = unixDate(snap.CurrentPeriodEnd)
	}

	if err := e.db.Save(student).Error; err != nil {
		return fmt.Errorf("reconcile: save student %s: %w", student.ID, err)
	}
	return nil
}

// ApplySubscriptionEvent handles webhook-delivered subscription snapshots
// (created/updated/deleted all look the same; "deleted" is just a status).
// An unmatched customer is logged and acknowledged, never an error — the
// provider would retry forever otherwise.
func (e *Engine) ApplySubscriptionEvent(snap *stripeclient.SubscriptionSnapshot) error {
	if snap == nil || snap.ID == "" {
		return fmt.Errorf("reconcile: empty subscription snapshot")
	}

	student, ok := e.findStudentForSubscription(snap)
	if !ok {
		log.Printf("⚠️ reconcile: subscription %s event for unknown customer %s; ignoring", snap.ID, snap.CustomerID)
		return nil
	}
	return e.ApplySubscriptionSnapshot(student, snap)
}

func (e *Engine) findStudentForSubscription(snap *stripeclient.SubscriptionSnapshot) (*students.Student, bool) {
	var student students.Student
	if snap.CustomerID != "" {
		if err := e.db.Where("stripe_customer_id = ?", snap.CustomerID).First(&student).Error; err == nil {
			return &student, true
		}
	}
	if err := e.db.Where("stripe_subscription_id = ?", snap.ID).First(&student).Error; err == nil {
		return &student, true
	}
	return nil, false
}

// ApplyInvoicePaid mirrors a settled provider invoice into local history:
// an Invoice row, a Payment row when the invoice actually charged something,
// and a period-date refresh from the owning subscription — an invoice-paid
// event is the most reliable moment to catch date drift.
func (e *Engine) ApplyInvoicePaid(snap *stripeclient.InvoiceSnapshot) error {
	if snap == nil {
		return fmt.Errorf("reconcile: empty invoice snapshot")
	}
	if snap.CustomerID == "" {
		log.Printf("⚠️ reconcile: invoice %s paid but has no customer id", snap.ID)
		return nil
	}

	var student students.Student
	if err := e.db.Where("stripe_customer_id = ?", snap.CustomerID).First(&student).Error; err != nil {
		log.Printf("⚠️ reconcile: no student for stripe customer %s (invoice %s); ignoring", snap.CustomerID, snap.ID)
		return nil
	}

	localPlan := e.planForInvoice(snap)

	if !e.invoiceAlreadyRecorded(snap.ID) {
		localInvoice, err := e.recordInvoice(&student, snap, localPlan)
		if err != nil {
			return err
		}
		if snap.Paid && snap.PaymentIntentID != "" {
			if err := e.recordPayment(&student, snap, localPlan, localInvoice); err != nil {
				return err
			}
		}
	} else {
		log.Printf("reconcile: invoice %s already recorded; skipping duplicate delivery", snap.ID)
	}

	if snap.SubscriptionID != "" && e.provider != nil {
		sub, err := e.provider.RetrieveSubscription(snap.SubscriptionID)
		if err != nil {
			log.Printf("⚠️ reconcile: could not refresh subscription %s after invoice %s: %v", snap.SubscriptionID, snap.ID, err)
			return nil
		}
		if err := e.ApplySubscriptionSnapshot(&student, sub); err != nil {
			return err
		}
	}

	return nil
}

// ApplyInvoicePaymentFailed only logs; the subsequent subscription.updated
// event carries the past_due status that actually changes local state.
func (e *Engine) ApplyInvoicePaymentFailed(snap *stripeclient.InvoiceSnapshot) error {
	if snap == nil {
		return nil
	}
	log.Printf("⚠️ reconcile: invoice payment failed: invoice=%s customer=%s", snap.ID, snap.CustomerID)
	return nil
}

func (e *Engine) planForInvoice(snap *stripeclient.InvoiceSnapshot) *plans.MembershipPlan {
	if snap.SubscriptionID == "" || snap.PriceID == "" {
		return nil
	}
	var plan plans.MembershipPlan
	if err := e.db.Where("stripe_price_id = ?", snap.PriceID).First(&plan).Error; err != nil {
		log.Printf("⚠️ reconcile: no local plan for stripe price %s (invoice %s)", snap.PriceID, snap.ID)
		return nil
	}
	return &plan
}

func (e *Engine) invoiceAlreadyRecorded(stripeInvoiceID string) bool {
	if stripeInvoiceID == "" {
		return false
	}
	var existing billing.Invoice
	return e.db.Where("stripe_invoice_id = ?", stripeInvoiceID).First(&existing).Error == nil
}

func (e *Engine) recordInvoice(student *students.Student, snap *stripeclient.InvoiceSnapshot, localPlan *plans.MembershipPlan) (*billing.Invoice, error) {
	items := make([]billing.InvoiceItem, 0, len(snap.Lines))
	for _, line := range snap.Lines {
		items = append(items, billing.InvoiceItem{
			ID:          line.ID,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Amount:      line.Amount,
		})
	}

	number := snap.Number
	if number == "" {
		number = fallbackInvoiceNumber(snap.ID)
	}

	issueDate := unixDay(snap.Created)
	dueDate := issueDate
	if snap.DueDate != nil {
		dueDate = unixDay(*snap.DueDate)
	}

	status := snap.Status
	if snap.Paid {
		status = billing.InvoiceStatusPaid
	} else if status == "" {
		status = billing.InvoiceStatusSent
	}

	inv := billing.Invoice{
		StudentID:     student.ID,
		InvoiceNumber: number,
		IssueDate:     issueDate,
		DueDate:       dueDate,
		Items:         items,
		Subtotal:      snap.Subtotal,
		TaxAmount:     snap.Tax,
		TotalAmount:   snap.Total,
		AmountPaid:    snap.AmountPaid,
		AmountDue:     snap.AmountDue,
		Status:        status,
		Notes:         fmt.Sprintf("Stripe Invoice ID: %s", snap.ID),
	}
	if snap.ID != "" {
		inv.StripeInvoiceID = &snap.ID
	}
	if localPlan != nil {
		inv.MembershipPlanID = &localPlan.ID
		inv.MembershipPlanName = &localPlan.Name
	}

	if err := e.db.Create(&inv).Error; err != nil {
		return nil, fmt.Errorf("reconcile: save invoice for student %s: %w", student.ID, err)
	}
	log.Printf("reconcile: saved local invoice %s for stripe invoice %s", inv.ID, snap.ID)
	return &inv, nil
}

func (e *Engine) recordPayment(student *students.Student, snap *stripeclient.InvoiceSnapshot, localPlan *plans.MembershipPlan, inv *billing.Invoice) error {
	paidAt := snap.Created
	if snap.PaidAt != nil {
		paidAt = *snap.PaidAt
	}

	method := billing.PaymentMethodCard
	if snap.SubscriptionID != "" {
		method = billing.PaymentMethodSubscription
	}

	payment := billing.Payment{
		StudentID:     student.ID,
		AmountPaid:    snap.AmountPaid,
		PaymentDate:   unixDay(paidAt),
		PaymentMethod: method,
		TransactionID: snap.PaymentIntentID,
		InvoiceID:     &inv.ID,
		Notes:         fmt.Sprintf("Payment for Stripe Invoice: %s", snap.ID),
	}
	if localPlan != nil {
		payment.MembershipPlanID = &localPlan.ID
		payment.MembershipPlanName = &localPlan.Name
	}

	if err := e.db.Create(&payment).Error; err != nil {
		return fmt.Errorf("reconcile: save payment for invoice %s: %w", inv.ID, err)
	}
	log.Printf("reconcile: saved local payment for local invoice %s", inv.ID)
	return nil
}

func fallbackInvoiceNumber(stripeInvoiceID string) string {
	id := stripeInvoiceID
	if len(id) > 12 {
		id = id[:12]
	}
	return "STRIPE-" + strings.ToUpper(id)
}

// unixDate truncates a provider timestamp to a UTC calendar day; nil in,
// nil out.
func unixDate(ts *int64) *time.Time {
	if ts == nil {
		return nil
	}
	d := unixDay(*ts)
	return &d
}

func unixDay(ts int64) time.Time {
	t := time.Unix(ts, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
