package user

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStorage is an in-process Storage for tests and local development
// without Postgres. All methods are safe for concurrent use.
type MemStorage struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*User
	tokens map[string]*PasswordResetToken
}

// NewMemStorage creates an empty in-memory storage.
func NewMemStorage() *MemStorage {
	return &MemStorage{
		users:  make(map[uuid.UUID]*User),
		tokens: make(map[string]*PasswordResetToken),
	}
}

func (m *MemStorage) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicateEmail
		}
		if strings.EqualFold(existing.Username, u.Username) {
			return ErrDuplicateUsername
		}
	}

	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MemStorage) ByID(_ context.Context, id uuid.UUID) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemStorage) ByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.findLocked(func(u *User) bool { return strings.EqualFold(u.Email, email) })
}

func (m *MemStorage) ByStripeCustomerID(_ context.Context, customerID string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.findLocked(func(u *User) bool { return u.StripeCustomerID == customerID })
}

func (m *MemStorage) ByStripeSubscriptionID(_ context.Context, subscriptionID string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.findLocked(func(u *User) bool { return u.StripeSubscriptionID == subscriptionID })
}

func (m *MemStorage) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *MemStorage) VerifyEmail(_ context.Context, token string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.VerificationToken == "" || u.VerificationToken != token {
			continue
		}
		if u.VerificationExpires != nil && u.VerificationExpires.Before(time.Now()) {
			return nil, ErrTokenNotFound
		}
		u.EmailVerified = true
		u.VerificationToken = ""
		u.VerificationExpires = nil
		cp := *u
		return &cp, nil
	}
	return nil, ErrTokenNotFound
}

func (m *MemStorage) SetCheckoutCompleted(_ context.Context, id uuid.UUID, plan Plan, customerID, subscriptionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Plan = plan
	u.SubscriptionStatus = StatusActive
	u.StripeCustomerID = customerID
	u.StripeSubscriptionID = subscriptionID
	return nil
}

func (m *MemStorage) SetSubscriptionCreated(_ context.Context, customerID, subscriptionID string, status SubscriptionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := m.findLocked(func(u *User) bool { return u.StripeCustomerID == customerID })
	if err != nil {
		return err
	}
	m.users[u.ID].StripeSubscriptionID = subscriptionID
	m.users[u.ID].SubscriptionStatus = status
	return nil
}

func (m *MemStorage) SetSubscriptionState(_ context.Context, subscriptionID string, plan Plan, status SubscriptionStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := m.findLocked(func(u *User) bool { return u.StripeSubscriptionID == subscriptionID })
	if err != nil {
		return false, nil
	}
	m.users[u.ID].Plan = plan
	m.users[u.ID].SubscriptionStatus = status
	return true, nil
}

func (m *MemStorage) ReplaceResetToken(_ context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for hash, t := range m.tokens {
		if t.UserID == userID {
			delete(m.tokens, hash)
		}
	}
	m.tokens[tokenHash] = &PasswordResetToken{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	}
	return nil
}

func (m *MemStorage) ResetTokenByHash(_ context.Context, tokenHash string) (*PasswordResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tokens[tokenHash]
	if !ok {
		return nil, ErrTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemStorage) DeleteResetToken(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tokens, tokenHash)
	return nil
}

func (m *MemStorage) findLocked(match func(*User) bool) (*User, error) {
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}
