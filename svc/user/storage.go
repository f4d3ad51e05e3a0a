package user

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Storage is the persistence contract for accounts and reset tokens. The
// billing-related mutators are keyed the way webhook events identify users:
// by our user id (checkout metadata), the provider customer id, or the
// provider subscription id.
type Storage interface {
	Create(ctx context.Context, u *User) error
	ByID(ctx context.Context, id uuid.UUID) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	ByStripeCustomerID(ctx context.Context, customerID string) (*User, error)
	ByStripeSubscriptionID(ctx context.Context, subscriptionID string) (*User, error)

	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	VerifyEmail(ctx context.Context, token string) (*User, error)

	// Billing state mutators. Each is a single-row UPDATE, atomic per row;
	// concurrent webhook deliveries are last-write-wins by design.
	SetCheckoutCompleted(ctx context.Context, id uuid.UUID, plan Plan, customerID, subscriptionID string) error
	SetSubscriptionCreated(ctx context.Context, customerID, subscriptionID string, status SubscriptionStatus) error
	SetSubscriptionState(ctx context.Context, subscriptionID string, plan Plan, status SubscriptionStatus) (bool, error)

	ReplaceResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	ResetTokenByHash(ctx context.Context, tokenHash string) (*PasswordResetToken, error)
	DeleteResetToken(ctx context.Context, tokenHash string) error
}
