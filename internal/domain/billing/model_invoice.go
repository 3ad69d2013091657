package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	InvoiceStatusSent    = "Sent"
	InvoiceStatusPaid    = "Paid"
	InvoiceStatusOverdue = "Overdue"
	InvoiceStatusVoid    = "Void"
)

type InvoiceItem struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Amount      decimal.Decimal `json:"amount"`
}

// Invoice mirrors a provider invoice at the moment it was reported paid.
// Rows are append-only history; there is no update path.
type Invoice struct {
	ID                 string          `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID          string          `gorm:"type:uuid;index;not null" json:"studentId"`
	MembershipPlanID   *string         `gorm:"type:uuid" json:"membershipPlanId,omitempty"`
	MembershipPlanName *string         `gorm:"size:100" json:"membershipPlanName,omitempty"`
	InvoiceNumber      string          `gorm:"size:100" json:"invoiceNumber"`
	IssueDate          time.Time       `gorm:"type:date" json:"issueDate"`
	DueDate            time.Time       `gorm:"type:date" json:"dueDate"`
	Items              []InvoiceItem   `gorm:"serializer:json" json:"items"`
	Subtotal           decimal.Decimal `gorm:"type:numeric(10,2)" json:"subtotal"`
	TaxAmount          decimal.Decimal `gorm:"type:numeric(10,2)" json:"taxAmount"`
	TotalAmount        decimal.Decimal `gorm:"type:numeric(10,2)" json:"totalAmount"`
	AmountPaid         decimal.Decimal `gorm:"type:numeric(10,2)" json:"amountPaid"`
	AmountDue          decimal.Decimal `gorm:"type:numeric(10,2)" json:"amountDue"`
	Status             string          `gorm:"size:30;default:'Sent'" json:"status"`
	Notes              string          `gorm:"type:text" json:"notes,omitempty"`

	// Unique so a redelivered invoice.payment_succeeded cannot duplicate rows.
	StripeInvoiceID *string `gorm:"column:stripe_invoice_id;uniqueIndex:idx_invoices_stripe_invoice_id" json:"stripeInvoiceId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}
