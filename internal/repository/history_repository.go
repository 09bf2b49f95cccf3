package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/solsentinel/pixelterm/internal/models"
)

// HistoryRepository persists an audit row per accepted generation. The
// gatekeeper itself never reads from here; this exists for billing disputes
// and abuse review.
type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Log(ctx context.Context, userID, requestID, prompt, status string) error {
	const query = `
INSERT INTO generations (user_id, request_id, prompt, status)
VALUES (?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, userID, requestID, prompt, status); err != nil {
		return fmt.Errorf("insert generation: %w", err)
	}
	return nil
}

// RecentForUser lists the newest generations for a user, newest first.
func (r *HistoryRepository) RecentForUser(ctx context.Context, userID string, limit int) ([]models.GenerationLog, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
SELECT id, user_id, request_id, prompt, status, created_at
FROM generations
WHERE user_id = ?
ORDER BY created_at DESC
LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("select generations: %w", err)
	}
	defer rows.Close()

	var logs []models.GenerationLog
	for rows.Next() {
		var entry models.GenerationLog
		var createdAt time.Time
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.RequestID, &entry.Prompt, &entry.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		entry.CreatedAt = createdAt
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate generations: %w", err)
	}
	return logs, nil
}
