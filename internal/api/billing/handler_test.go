package billing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"studio-app/database"
	"studio-app/internal/domain/plans"
	"studio-app/internal/domain/students"
	"studio-app/internal/infra/stripeclient"
	"studio-app/internal/reconcile"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeProvider struct {
	customers        map[string]*stripeclient.CustomerRef
	subscription     *stripeclient.SubscriptionSnapshot
	retrieveErr      error
	createdCustomers int
	canceled         bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{customers: map[string]*stripeclient.CustomerRef{}}
}

func (f *fakeProvider) CreateCustomer(name, email string) (*stripeclient.CustomerRef, error) {
	f.createdCustomers++
	ref := &stripeclient.CustomerRef{ID: "cus_new", Name: name, Email: email}
	f.customers[ref.ID] = ref
	return ref, nil
}

func (f *fakeProvider) RetrieveCustomer(id string) (*stripeclient.CustomerRef, error) {
	return f.customers[id], nil
}

func (f *fakeProvider) AttachPaymentMethod(customerID, paymentMethodID string) error {
	return nil
}

func (f *fakeProvider) CreateSubscription(customerID, priceID string) (*stripeclient.SubscriptionSnapshot, error) {
	f.subscription = &stripeclient.SubscriptionSnapshot{
		ID:           "sub_1",
		CustomerID:   customerID,
		Status:       "incomplete",
		PriceID:      priceID,
		ClientSecret: "pi_secret",
	}
	return f.subscription, nil
}

func (f *fakeProvider) UpdateSubscription(subscriptionID, newPriceID string) (*stripeclient.SubscriptionSnapshot, error) {
	f.subscription = &stripeclient.SubscriptionSnapshot{
		ID:      subscriptionID,
		Status:  "active",
		PriceID: newPriceID,
	}
	return f.subscription, nil
}

func (f *fakeProvider) CancelSubscription(subscriptionID string) (*stripeclient.SubscriptionSnapshot, error) {
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	f.canceled = true
	return &stripeclient.SubscriptionSnapshot{
		ID:                subscriptionID,
		Status:            "active",
		CancelAtPeriodEnd: true,
	}, nil
}

func (f *fakeProvider) RetrieveSubscription(subscriptionID string) (*stripeclient.SubscriptionSnapshot, error) {
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	if f.subscription != nil {
		return f.subscription, nil
	}
	return &stripeclient.SubscriptionSnapshot{ID: subscriptionID, Status: "active"}, nil
}

func (f *fakeProvider) InvoicePDFURL(invoiceID string) (string, error) {
	return "https://pay.stripe.com/invoice/pdf", nil
}

func setupBilling(t *testing.T) (*gin.Engine, *gorm.DB, *fakeProvider) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	provider := newFakeProvider()
	h := NewHandler(db, provider, reconcile.New(db, provider))

	r := gin.New()
	r.POST("/stripe/subscriptions", h.CreateSubscription)
	r.PATCH("/stripe/subscriptions/:id", h.ChangePlan)
	r.DELETE("/stripe/subscriptions/:id", h.CancelSubscription)
	r.GET("/students/:id/subscription", h.GetStudentSubscription)
	r.GET("/stripe/payments", h.ListPayments)
	r.GET("/stripe/invoices", h.ListInvoices)
	return r, db, provider
}

func seedStudentAndPlan(t *testing.T, db *gorm.DB) (*students.Student, *plans.MembershipPlan) {
	t.Helper()

	priceID := "price_123"
	plan := &plans.MembershipPlan{
		Name:          "Unlimited",
		MonthlyPrice:  decimal.NewFromFloat(75.50),
		StripePriceID: &priceID,
	}
	require.NoError(t, db.Create(plan).Error)

	student := &students.Student{
		FirstName: "Maya", LastName: "L", Email: "maya@example.com",
	}
	require.NoError(t, db.Create(student).Error)
	return student, plan
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateSubscription_NewCustomer(t *testing.T) {
	r, db, provider := setupBilling(t)
	student, plan := seedStudentAndPlan(t, db)

	w := doJSON(r, "POST", "/stripe/subscriptions",
		`{"studentId":"`+student.ID+`","membershipPlanId":"`+plan.ID+`"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		ClientSecret string `json:"clientSecret"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "pi_secret", resp.ClientSecret)

	assert.Equal(t, 1, provider.createdCustomers)

	var got students.Student
	require.NoError(t, db.First(&got, "id = ?", student.ID).Error)
	require.NotNil(t, got.StripeCustomerID)
	assert.Equal(t, "cus_new", *got.StripeCustomerID)
	require.NotNil(t, got.StripeSubscriptionID)
	assert.Equal(t, "sub_1", *got.StripeSubscriptionID)
	assert.Equal(t, "incomplete", got.SubscriptionStatus)
}

func TestCreateSubscription_ReusesLiveCustomer(t *testing.T) {
	r, db, provider := setupBilling(t)
	student, plan := seedStudentAndPlan(t, db)

	cus := "cus_existing"
	provider.customers[cus] = &stripeclient.CustomerRef{ID: cus}
	student.StripeCustomerID = &cus
	require.NoError(t, db.Save(student).Error)

	w := doJSON(r, "POST", "/stripe/subscriptions",
		`{"studentId":"`+student.ID+`","membershipPlanId":"`+plan.ID+`"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Zero(t, provider.createdCustomers)
}

func TestCreateSubscription_UnlinkedPlanRejected(t *testing.T) {
	r, db, _ := setupBilling(t)

	plan := &plans.MembershipPlan{Name: "Offline only", MonthlyPrice: decimal.NewFromInt(40)}
	require.NoError(t, db.Create(plan).Error)
	student := &students.Student{FirstName: "Maya", LastName: "L", Email: "maya@example.com"}
	require.NoError(t, db.Create(student).Error)

	w := doJSON(r, "POST", "/stripe/subscriptions",
		`{"studentId":"`+student.ID+`","membershipPlanId":"`+plan.ID+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetStudentSubscription_NoSubscription(t *testing.T) {
	r, db, _ := setupBilling(t)
	student, _ := seedStudentAndPlan(t, db)

	w := doJSON(r, "GET", "/students/"+student.ID+"/subscription", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetStudentSubscription_GoneOnProviderClearsLocalState(t *testing.T) {
	r, db, provider := setupBilling(t)
	student, _ := seedStudentAndPlan(t, db)

	sub := "sub_gone"
	student.StripeSubscriptionID = &sub
	student.SubscriptionStatus = "active"
	require.NoError(t, db.Save(student).Error)
	provider.retrieveErr = stripeclient.ErrSubscriptionNotFound

	w := doJSON(r, "GET", "/students/"+student.ID+"/subscription", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	var got students.Student
	require.NoError(t, db.First(&got, "id = ?", student.ID).Error)
	assert.Nil(t, got.StripeSubscriptionID)
	assert.Equal(t, "canceled", got.SubscriptionStatus)
}

func TestCancelSubscription_OwnershipEnforced(t *testing.T) {
	r, db, provider := setupBilling(t)
	student, _ := seedStudentAndPlan(t, db)

	sub := "sub_1"
	student.StripeSubscriptionID = &sub
	require.NoError(t, db.Save(student).Error)

	w := doJSON(r, "DELETE", "/stripe/subscriptions/sub_other",
		`{"studentId":"`+student.ID+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, provider.canceled)
}

func TestCancelSubscription_MarksCancelAtPeriodEnd(t *testing.T) {
	r, db, provider := setupBilling(t)
	student, _ := seedStudentAndPlan(t, db)

	sub := "sub_1"
	student.StripeSubscriptionID = &sub
	require.NoError(t, db.Save(student).Error)

	w := doJSON(r, "DELETE", "/stripe/subscriptions/sub_1",
		`{"studentId":"`+student.ID+`"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, provider.canceled)

	// Still active locally until the deletion webhook arrives.
	var got students.Student
	require.NoError(t, db.First(&got, "id = ?", student.ID).Error)
	assert.Equal(t, "active", got.SubscriptionStatus)
}

func TestListPaymentsAndInvoices_EmptyForUnknownStudent(t *testing.T) {
	r, _, _ := setupBilling(t)

	w := doJSON(r, "GET", "/stripe/payments?studentId=ghost", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))

	w = doJSON(r, "GET", "/stripe/invoices?studentId=ghost", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}
