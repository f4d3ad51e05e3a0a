package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wavsocial/wavscan/pkg/pg"
)

// PgStorage implements Storage on a pgx connection pool. Connections are
// checked out per query and returned by the pool on every path.
type PgStorage struct {
	pool *pgxpool.Pool
}

// NewPgStorage wraps the shared pool.
func NewPgStorage(pool *pgxpool.Pool) *PgStorage {
	return &PgStorage{pool: pool}
}

const userColumns = `id, email, username, password_hash, plan, subscription_status,
	stripe_customer_id, stripe_subscription_id, email_verified,
	verification_token, verification_expires, created_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Plan, &u.SubscriptionStatus,
		&u.StripeCustomerID, &u.StripeSubscriptionID, &u.EmailVerified,
		&u.VerificationToken, &u.VerificationExpires, &u.CreatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (s *PgStorage) Create(ctx context.Context, u *User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, username, password_hash, plan, subscription_status,
			email_verified, verification_token, verification_expires, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID, u.Email, u.Username, u.PasswordHash, u.Plan, u.SubscriptionStatus,
		u.EmailVerified, u.VerificationToken, u.VerificationExpires, u.CreatedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			if strings.Contains(pg.ConstraintName(err), "username") {
				return ErrDuplicateUsername
			}
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PgStorage) ByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *PgStorage) ByEmail(ctx context.Context, email string) (*User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

func (s *PgStorage) ByStripeCustomerID(ctx context.Context, customerID string) (*User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE stripe_customer_id = $1`, customerID)
	return scanUser(row)
}

func (s *PgStorage) ByStripeSubscriptionID(ctx context.Context, subscriptionID string) (*User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE stripe_subscription_id = $1`, subscriptionID)
	return scanUser(row)
}

func (s *PgStorage) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// VerifyEmail flips email_verified and clears the token in one statement so
// a token can only be consumed once.
func (s *PgStorage) VerifyEmail(ctx context.Context, token string) (*User, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE users
		SET email_verified = TRUE, verification_token = '', verification_expires = NULL
		WHERE verification_token = $1 AND verification_token <> ''
			AND verification_expires > now()
		RETURNING `+userColumns, token)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *PgStorage) SetCheckoutCompleted(ctx context.Context, id uuid.UUID, plan Plan, customerID, subscriptionID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET plan = $2, subscription_status = $3, stripe_customer_id = $4, stripe_subscription_id = $5
		WHERE id = $1`,
		id, plan, StatusActive, customerID, subscriptionID,
	)
	if err != nil {
		return fmt.Errorf("set checkout completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStorage) SetSubscriptionCreated(ctx context.Context, customerID, subscriptionID string, status SubscriptionStatus) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET stripe_subscription_id = $2, subscription_status = $3
		WHERE stripe_customer_id = $1`,
		customerID, subscriptionID, status,
	)
	if err != nil {
		return fmt.Errorf("set subscription created: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetSubscriptionState updates the cached plan/status for whoever holds the
// subscription id. The bool reports whether a row matched; a miss is not an
// error because webhook ordering can race row persistence.
func (s *PgStorage) SetSubscriptionState(ctx context.Context, subscriptionID string, plan Plan, status SubscriptionStatus) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET plan = $2, subscription_status = $3
		WHERE stripe_subscription_id = $1`,
		subscriptionID, plan, status,
	)
	if err != nil {
		return false, fmt.Errorf("set subscription state: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PgStorage) ReplaceResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reset token tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM password_reset_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete prior reset tokens: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO password_reset_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)`,
		userID, tokenHash, expiresAt,
	); err != nil {
		return fmt.Errorf("insert reset token: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *PgStorage) ResetTokenByHash(ctx context.Context, tokenHash string) (*PasswordResetToken, error) {
	var t PasswordResetToken
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, token_hash, expires_at
		FROM password_reset_tokens WHERE token_hash = $1`, tokenHash,
	).Scan(&t.UserID, &t.TokenHash, &t.ExpiresAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("select reset token: %w", err)
	}
	return &t, nil
}

func (s *PgStorage) DeleteResetToken(ctx context.Context, tokenHash string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM password_reset_tokens WHERE token_hash = $1`, tokenHash); err != nil {
		return fmt.Errorf("delete reset token: %w", err)
	}
	return nil
}
