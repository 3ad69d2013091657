package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	PaymentMethodSubscription = "Stripe Subscription"
	PaymentMethodCard         = "Credit Card"
)

// Payment is append-only history, one row per settled charge.
type Payment struct {
	ID                 string          `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID          string          `gorm:"type:uuid;index;not null" json:"studentId"`
	MembershipPlanID   *string         `gorm:"type:uuid" json:"membershipPlanId,omitempty"`
	MembershipPlanName *string         `gorm:"size:100" json:"membershipPlanName,omitempty"`
	AmountPaid         decimal.Decimal `gorm:"type:numeric(10,2)" json:"amountPaid"`
	PaymentDate        time.Time       `gorm:"type:date" json:"paymentDate"`
	PaymentMethod      string          `gorm:"size:50" json:"paymentMethod"`
	TransactionID      string          `gorm:"size:255" json:"transactionId"`
	InvoiceID          *string         `gorm:"type:uuid" json:"invoiceId,omitempty"`
	Notes              string          `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
