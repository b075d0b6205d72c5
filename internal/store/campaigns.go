package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetCampaign loads a campaign's vetting/match inputs: ideal podcast
// description, questionnaire responses, embedding, and plan tier.
func (s *Store) GetCampaign(ctx context.Context, campaignID uuid.UUID) (*Campaign, error) {
	const q = `
	SELECT campaign_id, name, plan_tier, ideal_podcast_description, questionnaire_responses,
	       auto_discovery_enabled, auto_discovery_keywords, matches_created_this_week,
	       auto_discovery_runs_this_week, quota_window_started_at, embedding, created_at, updated_at
	FROM campaigns WHERE campaign_id = $1
	`
	var c Campaign
	err := s.Foreground.QueryRow(ctx, q, campaignID).Scan(
		&c.ID, &c.Name, &c.PlanTier, &c.IdealPodcastDescription, &c.QuestionnaireResponses,
		&c.AutoDiscoveryEnabled, &c.AutoDiscoveryKeywords, &c.MatchesCreatedThisWeek,
		&c.AutoDiscoveryRunsThisWeek, &c.QuotaWindowStartedAt, &c.Embedding, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get campaign %s: %w", campaignID, err)
	}
	return &c, nil
}

// IncrementMatchCount atomically bumps matches_created_this_week and
// reports whether the increment was allowed. Paid plans have no cap; free
// plans are capped by the caller-supplied weekly allowance (0 disables the
// cap check entirely, used by plans without a configured limit).
func (s *Store) IncrementMatchCount(ctx context.Context, campaignID uuid.UUID, freeWeeklyAllowance int) (bool, error) {
	const q = `
	UPDATE campaigns
	SET matches_created_this_week = matches_created_this_week + 1, updated_at = NOW()
	WHERE campaign_id = $1
	AND (plan_tier != 'free' OR $2 <= 0 OR matches_created_this_week < $2)
	RETURNING campaign_id
	`
	var id uuid.UUID
	err := s.Foreground.QueryRow(ctx, q, campaignID, freeWeeklyAllowance).Scan(&id)
	if err == nil {
		return true, nil
	}
	if err == pgx.ErrNoRows {
		return false, nil
	}
	return false, fmt.Errorf("store: increment match count for campaign %s: %w", campaignID, err)
}

// ResetWeeklyCounters zeroes matches_created_this_week and
// auto_discovery_runs_this_week for every campaign whose quota window
// started more than 7 days ago, advancing the window to now.
func (s *Store) ResetWeeklyCounters(ctx context.Context) (int, error) {
	const q = `
	UPDATE campaigns
	SET matches_created_this_week = 0, auto_discovery_runs_this_week = 0,
	    quota_window_started_at = NOW(), updated_at = NOW()
	WHERE quota_window_started_at < NOW() - INTERVAL '7 days'
	RETURNING campaign_id
	`
	rows, err := s.Background.Query(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("store: reset weekly counters: %w", err)
	}
	defer rows.Close()
	count := 0
	for rows.Next() {
		count++
	}
	return count, rows.Err()
}

// UpdateAutoDiscoverySettings lets the client toggle auto-discovery and
// replace its keyword list, the operator-facing counterpart to the
// controller's own internal state-machine transitions.
func (s *Store) UpdateAutoDiscoverySettings(ctx context.Context, campaignID uuid.UUID, enabled bool, keywords []string) error {
	const q = `
	UPDATE campaigns
	SET auto_discovery_enabled = $1, auto_discovery_keywords = $2, updated_at = NOW()
	WHERE campaign_id = $3
	`
	if _, err := s.Foreground.Exec(ctx, q, enabled, keywords, campaignID); err != nil {
		return fmt.Errorf("store: update auto-discovery settings for campaign %s: %w", campaignID, err)
	}
	return nil
}

// CampaignsReadyForAutoDiscovery returns auto-discovery-enabled campaigns
// not currently running, ordered paid-then-least-recently-run-then-newest,
// mirroring the original's get_campaigns_ready_for_auto_discovery ordering.
func (s *Store) CampaignsReadyForAutoDiscovery(ctx context.Context, limit int) ([]Campaign, error) {
	const q = `
	SELECT c.campaign_id, c.name, c.plan_tier, c.ideal_podcast_description, c.auto_discovery_enabled,
	       c.auto_discovery_keywords, c.matches_created_this_week, c.auto_discovery_runs_this_week,
	       c.quota_window_started_at, c.created_at, c.updated_at
	FROM campaigns c
	WHERE c.auto_discovery_enabled = TRUE
	AND NOT EXISTS (
		SELECT 1 FROM auto_discovery_runs r
		WHERE r.campaign_id = c.campaign_id AND r.status = 'running'
	)
	ORDER BY (c.plan_tier != 'free') DESC, c.updated_at ASC, c.created_at DESC
	LIMIT $1
	`
	rows, err := s.Background.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("store: campaigns ready for auto discovery: %w", err)
	}
	defer rows.Close()

	var out []Campaign
	for rows.Next() {
		var c Campaign
		if err := rows.Scan(&c.ID, &c.Name, &c.PlanTier, &c.IdealPodcastDescription, &c.AutoDiscoveryEnabled,
			&c.AutoDiscoveryKeywords, &c.MatchesCreatedThisWeek, &c.AutoDiscoveryRunsThisWeek,
			&c.QuotaWindowStartedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan campaign ready for auto discovery: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
