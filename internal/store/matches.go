package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// InsertMatchSuggestion creates a pending_client_review match suggestion
// for a vetted discovery, carrying the best-episode pick (if any) and the
// vetting snapshot at the moment the match was created.
func (s *Store) InsertMatchSuggestion(ctx context.Context, tx pgx.Tx, campaignID uuid.UUID, mediaID int64, bestEpisodeID *int64, similarityScore *float64, vettingScore *int) (int64, error) {
	const q = `
	INSERT INTO match_suggestions (campaign_id, media_id, best_episode_id, similarity_score, vetting_score, status)
	VALUES ($1, $2, $3, $4, $5, 'pending_client_review')
	RETURNING id
	`
	var id int64
	if err := tx.QueryRow(ctx, q, campaignID, mediaID, bestEpisodeID, similarityScore, vettingScore).Scan(&id); err != nil {
		return 0, fmt.Errorf("store: insert match suggestion (campaign=%s media=%d): %w", campaignID, mediaID, err)
	}
	return id, nil
}

// UpdateMatchStatus transitions a match suggestion's review status
// (approved/rejected) from the API's review-task resolution endpoint.
func (s *Store) UpdateMatchStatus(ctx context.Context, matchID int64, status string) error {
	const q = `UPDATE match_suggestions SET status = $1, updated_at = NOW() WHERE id = $2`
	if _, err := s.Foreground.Exec(ctx, q, status, matchID); err != nil {
		return fmt.Errorf("store: update match %d status: %w", matchID, err)
	}
	return nil
}
