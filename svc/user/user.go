// Package user defines the account record and its persistence. The user row
// is also the local cache of billing state: plan, subscription status and
// the provider's customer/subscription ids live here and are mutated by the
// billing reconciler.
package user

import (
	"time"

	"github.com/google/uuid"
)

// Plan is the subscription tier gating feature limits.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPlus Plan = "plus"
	PlanPro  Plan = "pro"
)

// Valid reports whether p is a known tier.
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanPlus, PlanPro:
		return true
	}
	return false
}

// IsPaid reports whether p is a paying tier.
func (p Plan) IsPaid() bool {
	return p == PlanPlus || p == PlanPro
}

// SubscriptionStatus mirrors the payment provider's view of the
// subscription. The provider is the source of truth; this is a cache.
type SubscriptionStatus string

const (
	StatusNone          SubscriptionStatus = "none"
	StatusActive        SubscriptionStatus = "active"
	StatusPastDue       SubscriptionStatus = "past_due"
	StatusCanceled      SubscriptionStatus = "canceled"
	StatusUncollectible SubscriptionStatus = "uncollectible"
)

// User is an account row.
type User struct {
	ID                   uuid.UUID
	Email                string
	Username             string
	PasswordHash         string
	Plan                 Plan
	SubscriptionStatus   SubscriptionStatus
	StripeCustomerID     string
	StripeSubscriptionID string
	EmailVerified        bool
	VerificationToken    string
	VerificationExpires  *time.Time
	CreatedAt            time.Time
}

// PasswordResetToken is a single-use reset row; at most one active row per
// user (prior rows are deleted on issuance).
type PasswordResetToken struct {
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
}

// Expired reports whether the reset token is past its expiry.
func (t PasswordResetToken) Expired() bool {
	return time.Now().After(t.ExpiresAt)
}
