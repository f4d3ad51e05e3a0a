package feedback

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStorage persists feedback in the feedback table.
type PgStorage struct {
	pool *pgxpool.Pool
}

// NewPgStorage creates a PgStorage over the pool.
func NewPgStorage(pool *pgxpool.Pool) *PgStorage {
	return &PgStorage{pool: pool}
}

func (s *PgStorage) Insert(ctx context.Context, fb *Feedback) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO feedback (id, user_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		fb.ID, fb.UserID, fb.Rating, fb.Comment, fb.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}
