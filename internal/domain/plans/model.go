package plans

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MembershipPlan struct {
	ID             string          `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string          `gorm:"size:100;not null;uniqueIndex:idx_membership_plans_name" json:"name"`
	Description    string          `gorm:"type:text" json:"description,omitempty"`
	MonthlyPrice   decimal.Decimal `gorm:"type:numeric(10,2)" json:"monthlyPrice"`
	ClassesPerWeek int             `json:"classesPerWeek"`
	DurationMonths *int            `json:"durationMonths,omitempty"`

	// Links this plan to the provider's price object. Null until the plan has
	// been provisioned in Stripe.
	StripeProductID *string `gorm:"column:stripe_product_id" json:"stripeProductId,omitempty"`
	StripePriceID   *string `gorm:"column:stripe_price_id;uniqueIndex:idx_membership_plans_stripe_price_id" json:"stripePriceId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *MembershipPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
