package studios

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Studio is the tenant record. StripeAccountID points at the connected
// account used for fund routing; the onboarding flags are refreshed by
// account.updated webhooks.
type Studio struct {
	ID   string `gorm:"type:uuid;primaryKey" json:"id"`
	Name string `gorm:"size:255;not null;uniqueIndex:idx_studios_name" json:"name"`

	StripeCustomerID     *string `gorm:"column:stripe_customer_id" json:"stripeCustomerId,omitempty"`
	StripeSubscriptionID *string `gorm:"column:stripe_subscription_id" json:"stripeSubscriptionId,omitempty"`
	StripeAccountID      *string `gorm:"column:stripe_account_id;uniqueIndex:idx_studios_stripe_account_id" json:"stripeAccountId,omitempty"`

	ChargesEnabled   bool `gorm:"default:false" json:"chargesEnabled"`
	DetailsSubmitted bool `gorm:"default:false" json:"detailsSubmitted"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Studio) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
