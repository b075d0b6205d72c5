package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WithTx runs fn inside a single background-pool transaction, committing on
// a nil return and rolling back otherwise. The match creator (C6) uses this
// to make its quota-check/insert/mark sequence atomic, per spec.md §4.6.
func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Background.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit transaction: %w", err)
	}
	return nil
}

// IncrementMatchCountTx is IncrementMatchCount scoped to a caller-managed
// transaction, so the quota check and the match insert it gates are atomic.
func (s *Store) IncrementMatchCountTx(ctx context.Context, tx pgx.Tx, campaignID uuid.UUID, freeWeeklyAllowance int) (bool, error) {
	const q = `
	UPDATE campaigns
	SET matches_created_this_week = matches_created_this_week + 1, updated_at = NOW()
	WHERE campaign_id = $1
	AND (plan_tier != 'free' OR $2 <= 0 OR matches_created_this_week < $2)
	RETURNING campaign_id
	`
	var id uuid.UUID
	err := tx.QueryRow(ctx, q, campaignID, freeWeeklyAllowance).Scan(&id)
	if err == nil {
		return true, nil
	}
	if err == pgx.ErrNoRows {
		return false, nil
	}
	return false, fmt.Errorf("store: increment match count (tx) for campaign %s: %w", campaignID, err)
}

// MarkMatchCreatedTx is MarkMatchCreated scoped to a caller-managed
// transaction.
func (s *Store) MarkMatchCreatedTx(ctx context.Context, tx pgx.Tx, discoveryID, matchSuggestionID int64) error {
	const q = `
	UPDATE campaign_media_discoveries
	SET match_created = TRUE, match_suggestion_id = $1, match_created_at = NOW(), updated_at = NOW()
	WHERE id = $2
	`
	if _, err := tx.Exec(ctx, q, matchSuggestionID, discoveryID); err != nil {
		return fmt.Errorf("store: mark match created (tx) for discovery %d: %w", discoveryID, err)
	}
	return nil
}

// MarkReviewTaskCreatedTx is MarkReviewTaskCreated scoped to a
// caller-managed transaction.
func (s *Store) MarkReviewTaskCreatedTx(ctx context.Context, tx pgx.Tx, discoveryID, reviewTaskID int64) error {
	const q = `
	UPDATE campaign_media_discoveries
	SET review_task_created = TRUE, review_task_id = $1, updated_at = NOW()
	WHERE id = $2
	`
	if _, err := tx.Exec(ctx, q, reviewTaskID, discoveryID); err != nil {
		return fmt.Errorf("store: mark review task created (tx) for discovery %d: %w", discoveryID, err)
	}
	return nil
}
