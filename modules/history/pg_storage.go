package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStorage persists scans in the scan_history table.
type PgStorage struct {
	pool *pgxpool.Pool
}

// NewPgStorage creates a PgStorage over the pool.
func NewPgStorage(pool *pgxpool.Pool) *PgStorage {
	return &PgStorage{pool: pool}
}

func (s *PgStorage) Insert(ctx context.Context, scan *Scan) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scan_history (id, user_id, query, platform, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		scan.ID, scan.UserID, scan.Query, scan.Platform, scan.Result, scan.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}
	return nil
}

func (s *PgStorage) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Scan, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, query, platform, result, created_at
		FROM scan_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	defer rows.Close()

	var scans []Scan
	for rows.Next() {
		var sc Scan
		if err := rows.Scan(&sc.ID, &sc.UserID, &sc.Query, &sc.Platform, &sc.Result, &sc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		scans = append(scans, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	return scans, nil
}

func (s *PgStorage) CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM scan_history
		WHERE user_id = $1 AND created_at >= $2`,
		userID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count scans: %w", err)
	}
	return count, nil
}
