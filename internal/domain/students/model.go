package students

import (
	"time"

	"studio-app/internal/domain/plans"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EmergencyContact struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
}

type Student struct {
	ID          string     `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName   string     `gorm:"size:100;not null" json:"firstName"`
	LastName    string     `gorm:"size:100;not null" json:"lastName"`
	Username    *string    `gorm:"size:100;uniqueIndex:idx_students_username" json:"username,omitempty"`
	Email       string     `gorm:"size:255;not null;uniqueIndex:idx_students_email" json:"email"`
	Password    *string    `gorm:"size:255" json:"-"`
	Phone       string     `gorm:"size:30" json:"phone,omitempty"`
	DateOfBirth *time.Time `gorm:"type:date" json:"dateOfBirth,omitempty"`
	Gender      string     `gorm:"size:50" json:"gender,omitempty"`

	EmergencyContact *EmergencyContact `gorm:"serializer:json" json:"emergencyContact,omitempty"`
	Address          *Address          `gorm:"serializer:json" json:"address,omitempty"`

	Program     *string `gorm:"size:100" json:"program,omitempty"`
	DancerLevel *string `gorm:"size:100" json:"dancerLevel,omitempty"`
	Status      string  `gorm:"size:50;default:'Active'" json:"status"`
	Notes       string  `gorm:"type:text" json:"notes,omitempty"`

	// Billing fields kept in sync with the provider by the reconcile engine.
	// StripeCustomerID is set once and never reused across students.
	StripeCustomerID     *string `gorm:"column:stripe_customer_id;uniqueIndex:idx_students_stripe_customer_id" json:"stripeCustomerId,omitempty"`
	StripeSubscriptionID *string `gorm:"column:stripe_subscription_id;uniqueIndex:idx_students_stripe_subscription_id" json:"stripeSubscriptionId,omitempty"`
	SubscriptionStatus   string  `gorm:"size:30;default:'none'" json:"subscriptionStatus"`

	// MembershipPlanID and MembershipPlanName change together or not at all.
	MembershipPlanID   *string               `gorm:"type:uuid" json:"membershipPlanId,omitempty"`
	MembershipPlan     *plans.MembershipPlan `gorm:"foreignKey:MembershipPlanID" json:"-"`
	MembershipPlanName *string               `gorm:"size:100" json:"membershipPlanName,omitempty"`

	// Current billing period, day precision. Only meaningful while the
	// subscription is active; stale values may persist for other statuses.
	MembershipStartDate   *time.Time `gorm:"type:date" json:"membershipStartDate,omitempty"`
	MembershipRenewalDate *time.Time `gorm:"type:date" json:"membershipRenewalDate,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Student) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
