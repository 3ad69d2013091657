package reconcile

import (
	"errors"
	"testing"
	"time"

	"studio-app/database"
	"studio-app/internal/domain/billing"
	"studio-app/internal/domain/plans"
	"studio-app/internal/domain/students"
	"studio-app/internal/infra/stripeclient"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	return db
}

type fakeRetriever struct {
	snap *stripeclient.SubscriptionSnapshot
	err  error

	calls int
}

func (f *fakeRetriever) RetrieveSubscription(id string) (*stripeclient.SubscriptionSnapshot, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

func seedStudent(t *testing.T, db *gorm.DB, customerID string) *students.Student {
	t.Helper()

	s := &students.Student{
		FirstName: "Maya",
		LastName:  "Lefèvre",
		Email:     "maya@example.com",
	}
	if customerID != "" {
		s.StripeCustomerID = &customerID
	}
	require.NoError(t, db.Create(s).Error)
	return s
}

func seedPlan(t *testing.T, db *gorm.DB, name, priceID string) *plans.MembershipPlan {
	t.Helper()

	p := &plans.MembershipPlan{
		Name:         name,
		MonthlyPrice: decimal.NewFromFloat(75.50),
	}
	if priceID != "" {
		p.StripePriceID = &priceID
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func i64(v int64) *int64 { return &v }

func TestApplySubscriptionSnapshot_ActiveSetsPlanAndDates(t *testing.T) {
	db := setupTestDB(t)
	engine := New(db, nil)

	plan := seedPlan(t, db, "Unlimited", "price_123")
	student := seedStudent(t, db, "cus_1")

	start := time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	snap := &stripeclient.SubscriptionSnapshot{
		ID:                 "sub_1",
		CustomerID:         "cus_1",
		Status:             "active",
		PriceID:            "price_123",
		CurrentPeriodStart: i64(start.Unix()),
		CurrentPeriodEnd:   i64(end.Unix()),
	}
	require.NoError(t, engine.ApplySubscriptionSnapshot(student, snap))

	var got students.Student
	require.NoError(t, db.First(&got, "id = ?", student.ID).Error)
	assert.Equal(t, "sub_1", *got.StripeSubscriptionID)
	assert.Equal(t, "active", got.SubscriptionStatus)
	assert.Equal(t, plan.ID, *got.MembershipPlanID)
	assert.Equal(t, "Unlimited", *got.MembershipPlanName)
	require.NotNil(t, got.MembershipStartDate)
	require.NotNil(t, got.MembershipRenewalDate)
	assert.Equal(t, "2026-03-01", got.MembershipStartDate.Format("2006-01-02"))
	assert.Equal(t, "2026-04-01", got.MembershipRenewalDate.Format("2006-01-02"))
}

func TestApplySubscriptionSnapshot_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	engine := New(db, nil)

	seedPlan(t, db, "Unlimited", "price_123")
	student := seedStudent(t, db, "cus_1")

	snap := &stripeclient.SubscriptionSnapshot{
		ID:                 "sub_1",
		CustomerID:         "cus_1",
		Status:             "active",
		PriceID:            "price_123",
		CurrentPeriodStart: i64(1767225600),
		CurrentPeriodEnd:   i64(1769904000),
	}

	require.NoError(t, engine.ApplySubscriptionSnapshot(student, snap))
	var first students.Student
	require.NoError(t, db.First(&first, "id = ?", student.ID).Error)

	require.NoError(t, engine.ApplySubscriptionSnapshot(&first, snap))
	var second students.Student
	require.NoError(t, db.First(&second, "id = ?", student.ID).Error)

	assert.Equal(t, first.SubscriptionStatus, second.SubscriptionStatus)
	assert.Equal(t, *first.StripeSubscriptionID, *second.StripeSubscriptionID)
	assert.Equal(t, first.MembershipStartDate.Unix(), second.MembershipStartDate.Unix())
	assert.Equal(t, first.MembershipRenewalDate.Unix(), second.MembershipRenewalDate.Unix())
}

func TestApplySubscriptionSnapshot_MissingPeriodNullsDates(t *testing.T) {
	db := setupTestDB(t)
	engine := New(db, nil)

	student := seedStudent(t, db, "cus_1")

	snap := &stripeclient.SubscriptionSnapshot{
		ID:         "sub_1",
		CustomerID: "cus_1",
		Status:     "active",
	}
	require.NoError(t, engine.ApplySubscriptionSnapshot(student, snap))

	var got students.Student
	require.NoError(t, db.First(&got, "id = ?", student.ID).Error)
	assert.Nil(t, got.MembershipStartDate)
	assert.Nil(t, got.MembershipRenewalDate)
}

func TestApplySubscriptionSnapshot_NonActiveKeepsExistingDates(t *testing.T) {
	db := setupTestDB(t)
	engine := New(db, nil)

	student := seedStudent(t, db, "cus_1")
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	student.MembershipStartDate = &start
	require.NoError(t, db.Save(student).Error)

	snap := &stripeclient.SubscriptionSnapshot{
		ID:         "sub_1",
		CustomerID: "cus_1",
		Status:     "past_due",
	}
	require.NoError(t, engine.ApplySubscriptionSnapshot(student, snap))

	var got students.Student
	require.NoError(t, db.First(&got, "id = ?", student.ID).Error)
	assert.Equal(t, "past_due", got.SubscriptionStatus)
	require.NotNil(t, got.MembershipStartDate)
	assert.Equal(t, start.Unix(), got.MembershipStartDate.Unix())
}

func TestApplySubscriptionSnapshot_UnknownPriceKeepsPlanFields(t *testing.T) {
	db := setupTestDB(t)
	engine := New(db, nil)

	plan := seedPlan(t, db, "Unlimited", "price_known")
	student := seedStudent(t, db, "cus_1")
	student.MembershipPlanID = &plan.ID
	student.MembershipPlanName = &plan.Name
	require.NoError(t, db.Save(student).Error)

	snap := &stripeclient.SubscriptionSnapshot{
		ID:         "sub_1",
		CustomerID: "cus_1",
		Status:     "active",
		PriceID:    "price_unmapped",
	}
	require.NoError(t, engine.ApplySubscriptionSnapshot(student, snap))

	var got students.Student
	require.NoError(t, db.First(&got, "id = ?", student.ID).Error)
	assert.Equal(t, plan.ID, *got.MembershipPlanID)
	assert.Equal(t, "Unlimited", *got.MembershipPlanName)
	assert.Equal(t, "active", got.SubscriptionStatus)
}

func TestApplySubscriptionEvent_UnknownCustomerIsNoOp(t *testing.T) {
	db := setupTestDB(t)
	engine := New(db, nil)

	seedStudent(t, db, "cus_other")

	snap := &stripeclient.SubscriptionSnapshot{
		ID:         "sub_1",
		CustomerID: "cus_unknown",
		Status:     "active",
	}
	require.NoError(t, engine.ApplySubscriptionEvent(snap))

	var count int64
	db.Model(&students.Student{}).Where("stripe_subscription_id = ?", "sub_1").Count(&count)
	assert.Zero(t, count)
}

func TestApplySubscriptionEvent_FallsBackToSubscriptionID(t *testing.T) {
	db := setupTestDB(t)
	engine := New(db, nil)

	student := seedStudent(t, db, "")
	subID := "sub_1"
	student.StripeSubscriptionID = &subID
	require.NoError(t, db.Save(student).Error)

	snap := &stripeclient.SubscriptionSnapshot{
		ID:     "sub_1",
		Status: "canceled",
	}
	require.NoError(t, engine.ApplySubscriptionEvent(snap))

	var got students.Student
	require.NoError(t, db.First(&got, "id = ?", student.ID).Error)
	assert.Equal(t, "canceled", got.SubscriptionStatus)
}

func invoiceSnap() *stripeclient.InvoiceSnapshot {
	return &stripeclient.InvoiceSnapshot{
		ID:              "in_1",
		Number:          "INV-0001",
		CustomerID:      "cus_1",
		SubscriptionID:  "sub_1",
		PaymentIntentID: "pi_1",
		PriceID:         "price_123",
		Paid:            true,
		Status:          "paid",
		Created:         time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC).Unix(),
		Lines: []stripeclient.InvoiceLine{
			{
				ID:          "il_1",
				Description: "Unlimited membership",
				Quantity:    1,
				UnitPrice:   decimal.NewFromFloat(75.50),
				Amount:      decimal.NewFromFloat(75.50),
			},
		},
		Subtotal:   decimal.NewFromFloat(75.50),
		Total:      decimal.NewFromFloat(75.50),
		AmountPaid: decimal.NewFromFloat(75.50),
		AmountDue:  decimal.Zero,
	}
}

func TestApplyInvoicePaid_CreatesInvoiceAndPayment(t *testing.T) {
	db := setupTestDB(t)

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	retriever := &fakeRetriever{snap: &stripeclient.SubscriptionSnapshot{
		ID:                 "sub_1",
		CustomerID:         "cus_1",
		Status:             "active",
		PriceID:            "price_123",
		CurrentPeriodStart: i64(start.Unix()),
		CurrentPeriodEnd:   i64(end.Unix()),
	}}
	engine := New(db, retriever)

	plan := seedPlan(t, db, "Unlimited", "price_123")
	student := seedStudent(t, db, "cus_1")

	require.NoError(t, engine.ApplyInvoicePaid(invoiceSnap()))

	var inv billing.Invoice
	require.NoError(t, db.First(&inv, "stripe_invoice_id = ?", "in_1").Error)
	assert.Equal(t, student.ID, inv.StudentID)
	assert.Equal(t, "INV-0001", inv.InvoiceNumber)
	assert.Equal(t, billing.InvoiceStatusPaid, inv.Status)
	assert.Equal(t, plan.ID, *inv.MembershipPlanID)
	require.Len(t, inv.Items, 1)
	assert.True(t, inv.Items[0].Amount.Equal(decimal.NewFromFloat(75.50)))

	var payment billing.Payment
	require.NoError(t, db.First(&payment, "transaction_id = ?", "pi_1").Error)
	assert.Equal(t, student.ID, payment.StudentID)
	assert.Equal(t, billing.PaymentMethodSubscription, payment.PaymentMethod)
	assert.True(t, payment.AmountPaid.Equal(decimal.NewFromFloat(75.50)))
	assert.Equal(t, inv.ID, *payment.InvoiceID)

	// The invoice event also refreshed the period dates.
	assert.Equal(t, 1, retriever.calls)
	var got students.Student
	require.NoError(t, db.First(&got, "id = ?", student.ID).Error)
	require.NotNil(t, got.MembershipRenewalDate)
	assert.Equal(t, "2026-04-01", got.MembershipRenewalDate.Format("2006-01-02"))
}

func TestApplyInvoicePaid_DuplicateDeliveryDoesNotDuplicateRows(t *testing.T) {
	db := setupTestDB(t)
	retriever := &fakeRetriever{snap: &stripeclient.SubscriptionSnapshot{
		ID:         "sub_1",
		CustomerID: "cus_1",
		Status:     "active",
		PriceID:    "price_123",
	}}
	engine := New(db, retriever)

	seedPlan(t, db, "Unlimited", "price_123")
	seedStudent(t, db, "cus_1")

	require.NoError(t, engine.ApplyInvoicePaid(invoiceSnap()))
	require.NoError(t, engine.ApplyInvoicePaid(invoiceSnap()))

	var invoices int64
	db.Model(&billing.Invoice{}).Count(&invoices)
	assert.Equal(t, int64(1), invoices)

	var payments int64
	db.Model(&billing.Payment{}).Count(&payments)
	assert.Equal(t, int64(1), payments)

	// Redelivery still refreshes from the subscription.
	assert.Equal(t, 2, retriever.calls)
}

func TestApplyInvoicePaid_UnknownCustomerIsNoOp(t *testing.T) {
	db := setupTestDB(t)
	retriever := &fakeRetriever{}
	engine := New(db, retriever)

	snap := invoiceSnap()
	snap.CustomerID = "cus_unknown"
	require.NoError(t, engine.ApplyInvoicePaid(snap))

	var invoices int64
	db.Model(&billing.Invoice{}).Count(&invoices)
	assert.Zero(t, invoices)
	assert.Zero(t, retriever.calls)
}

func TestApplyInvoicePaid_NoPaymentIntentSkipsPayment(t *testing.T) {
	db := setupTestDB(t)
	engine := New(db, &fakeRetriever{snap: &stripeclient.SubscriptionSnapshot{
		ID: "sub_1", CustomerID: "cus_1", Status: "active",
	}})

	seedStudent(t, db, "cus_1")

	snap := invoiceSnap()
	snap.PaymentIntentID = ""
	require.NoError(t, engine.ApplyInvoicePaid(snap))

	var invoices int64
	db.Model(&billing.Invoice{}).Count(&invoices)
	assert.Equal(t, int64(1), invoices)

	var payments int64
	db.Model(&billing.Payment{}).Count(&payments)
	assert.Zero(t, payments)
}

func TestApplyInvoicePaid_PaymentDateFallsBackToCreated(t *testing.T) {
	db := setupTestDB(t)
	engine := New(db, &fakeRetriever{snap: &stripeclient.SubscriptionSnapshot{
		ID: "sub_1", CustomerID: "cus_1", Status: "active",
	}})

	seedStudent(t, db, "cus_1")

	snap := invoiceSnap()
	snap.PaidAt = nil
	require.NoError(t, engine.ApplyInvoicePaid(snap))

	var payment billing.Payment
	require.NoError(t, db.First(&payment, "transaction_id = ?", "pi_1").Error)
	assert.Equal(t, "2026-03-01", payment.PaymentDate.Format("2006-01-02"))
}

func TestApplyInvoicePaid_RetrieveFailureStillRecordsInvoice(t *testing.T) {
	db := setupTestDB(t)
	engine := New(db, &fakeRetriever{err: errors.New("stripe is down")})

	seedStudent(t, db, "cus_1")

	require.NoError(t, engine.ApplyInvoicePaid(invoiceSnap()))

	var invoices int64
	db.Model(&billing.Invoice{}).Count(&invoices)
	assert.Equal(t, int64(1), invoices)
}

func TestApplyInvoicePaid_MissingNumberGetsFallback(t *testing.T) {
	db := setupTestDB(t)
	engine := New(db, &fakeRetriever{snap: &stripeclient.SubscriptionSnapshot{
		ID: "sub_1", CustomerID: "cus_1", Status: "active",
	}})

	seedStudent(t, db, "cus_1")

	snap := invoiceSnap()
	snap.Number = ""
	require.NoError(t, engine.ApplyInvoicePaid(snap))

	var inv billing.Invoice
	require.NoError(t, db.First(&inv, "stripe_invoice_id = ?", "in_1").Error)
	assert.Equal(t, "STRIPE-IN_1", inv.InvoiceNumber)
}
