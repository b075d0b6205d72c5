package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// StartAutoDiscoveryRun inserts a running auto_discovery_runs row for a
// campaign, the controller's state-machine entry into "running".
func (s *Store) StartAutoDiscoveryRun(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	const q = `
	INSERT INTO auto_discovery_runs (campaign_id, status)
	VALUES ($1, 'running')
	RETURNING id
	`
	var id int64
	if err := s.Background.QueryRow(ctx, q, campaignID).Scan(&id); err != nil {
		return 0, fmt.Errorf("store: start auto discovery run for campaign %s: %w", campaignID, err)
	}
	return id, nil
}

// HeartbeatAutoDiscoveryRun refreshes a running run's heartbeat so the
// stuck-run recovery sweep doesn't reclaim it mid-flight.
func (s *Store) HeartbeatAutoDiscoveryRun(ctx context.Context, runID int64, keywordsProcessed, mediaDiscovered int) error {
	const q = `
	UPDATE auto_discovery_runs
	SET heartbeat_at = NOW(), keywords_processed = $1, media_discovered = $2
	WHERE id = $3
	`
	if _, err := s.Background.Exec(ctx, q, keywordsProcessed, mediaDiscovered, runID); err != nil {
		return fmt.Errorf("store: heartbeat auto discovery run %d: %w", runID, err)
	}
	return nil
}

// FinishAutoDiscoveryRun transitions a run to a terminal status
// (completed/paused/error), matching spec.md §4.8's state machine.
func (s *Store) FinishAutoDiscoveryRun(ctx context.Context, runID int64, status string, errMsg *string) error {
	const q = `
	UPDATE auto_discovery_runs
	SET status = $1, error = $2, finished_at = NOW()
	WHERE id = $3
	`
	if _, err := s.Background.Exec(ctx, q, status, errMsg, runID); err != nil {
		return fmt.Errorf("store: finish auto discovery run %d: %w", runID, err)
	}
	return nil
}

// LatestAutoDiscoveryRun returns a campaign's most recently started
// auto-discovery run, for surfacing progress/outcome to the API, or nil
// if the campaign has never had one.
func (s *Store) LatestAutoDiscoveryRun(ctx context.Context, campaignID uuid.UUID) (*AutoDiscoveryRun, error) {
	const q = `
	SELECT id, campaign_id, status, keywords_processed, media_discovered,
	       started_at, heartbeat_at, finished_at, error
	FROM auto_discovery_runs
	WHERE campaign_id = $1
	ORDER BY started_at DESC
	LIMIT 1
	`
	var r AutoDiscoveryRun
	err := s.Foreground.QueryRow(ctx, q, campaignID).Scan(&r.ID, &r.CampaignID, &r.Status,
		&r.KeywordsProcessed, &r.MediaDiscovered, &r.StartedAt, &r.HeartbeatAt, &r.FinishedAt, &r.Error)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: latest auto discovery run for campaign %s: %w", campaignID, err)
	}
	return &r, nil
}

// RecoverStuckAutoDiscoveryRuns marks runs still "running" with a
// heartbeat older than stuckMinutes as "error", which frees their
// campaigns for CampaignsReadyForAutoDiscovery (it skips only campaigns
// with a running run). Runs already in "error" whose finished_at is older
// than errorAgeMinutes get a fresh finished_at. It returns how many rows
// it touched — the controller's crash/stuck recovery pass.
func (s *Store) RecoverStuckAutoDiscoveryRuns(ctx context.Context, stuckMinutes, errorAgeMinutes int) (int, error) {
	const q = `
	UPDATE auto_discovery_runs
	SET status = 'error', error = COALESCE(error, 'recovered: stale heartbeat'), finished_at = NOW()
	WHERE (status = 'running' AND heartbeat_at < NOW() - ($1 || ' minutes')::interval)
	OR (status = 'error' AND finished_at < NOW() - ($2 || ' minutes')::interval)
	RETURNING id
	`
	rows, err := s.Background.Query(ctx, q, fmt.Sprint(stuckMinutes), fmt.Sprint(errorAgeMinutes))
	if err != nil {
		return 0, fmt.Errorf("store: recover stuck auto discovery runs: %w", err)
	}
	defer rows.Close()
	count := 0
	for rows.Next() {
		count++
	}
	return count, rows.Err()
}
