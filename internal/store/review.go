package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// InsertReviewTask creates a pending review task inside a caller-managed
// transaction, linked to whichever entity spawned it (match suggestion
// today; other task_type values reuse the same polymorphic shape).
func (s *Store) InsertReviewTask(ctx context.Context, tx pgx.Tx, taskType string, campaignID uuid.UUID, discoveryID, matchSuggestionID *int64) (int64, error) {
	const q = `
	INSERT INTO review_tasks (task_type, campaign_id, discovery_id, match_suggestion_id, status)
	VALUES ($1, $2, $3, $4, 'pending')
	RETURNING id
	`
	var id int64
	if err := tx.QueryRow(ctx, q, taskType, campaignID, discoveryID, matchSuggestionID).Scan(&id); err != nil {
		return 0, fmt.Errorf("store: insert review task (campaign=%s type=%s): %w", campaignID, taskType, err)
	}
	return id, nil
}

// ReviewTasksForCampaign lists a campaign's pending review tasks, grouping
// related_ids by task_type and hydrating each batch with one
// WHERE id = ANY($1) query per type, per the polymorphic review-task
// hydration guidance.
func (s *Store) ReviewTasksForCampaign(ctx context.Context, campaignID uuid.UUID) ([]ReviewTask, error) {
	const q = `
	SELECT id, task_type, campaign_id, discovery_id, match_suggestion_id, status, created_at, resolved_at
	FROM review_tasks
	WHERE campaign_id = $1 AND status = 'pending'
	ORDER BY created_at ASC
	`
	rows, err := s.Foreground.Query(ctx, q, campaignID)
	if err != nil {
		return nil, fmt.Errorf("store: review tasks for campaign %s: %w", campaignID, err)
	}
	defer rows.Close()

	var out []ReviewTask
	for rows.Next() {
		var t ReviewTask
		if err := rows.Scan(&t.ID, &t.TaskType, &t.CampaignID, &t.DiscoveryID, &t.MatchSuggestionID,
			&t.Status, &t.CreatedAt, &t.ResolvedAt); err != nil {
			return nil, fmt.Errorf("store: scan review task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ResolveReviewTask marks a review task approved or rejected.
func (s *Store) ResolveReviewTask(ctx context.Context, taskID int64, status string) error {
	const q = `UPDATE review_tasks SET status = $1, resolved_at = NOW() WHERE id = $2`
	if _, err := s.Foreground.Exec(ctx, q, status, taskID); err != nil {
		return fmt.Errorf("store: resolve review task %d: %w", taskID, err)
	}
	return nil
}

// GetReviewTask loads a single review task by id, letting the API resolve
// the match suggestion and campaign a decision applies to.
func (s *Store) GetReviewTask(ctx context.Context, taskID int64) (*ReviewTask, error) {
	const q = `
	SELECT id, task_type, campaign_id, discovery_id, match_suggestion_id, status, created_at, resolved_at
	FROM review_tasks WHERE id = $1
	`
	var t ReviewTask
	err := s.Foreground.QueryRow(ctx, q, taskID).Scan(&t.ID, &t.TaskType, &t.CampaignID, &t.DiscoveryID,
		&t.MatchSuggestionID, &t.Status, &t.CreatedAt, &t.ResolvedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get review task %d: %w", taskID, err)
	}
	return &t, nil
}
