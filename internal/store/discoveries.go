package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/patrhick1/pgl-pipeline/internal/logging"
)

// CreateOrGetDiscovery inserts a campaign_media_discoveries row, or
// refreshes discovery_keyword on an existing (campaign_id, media_id) pair.
// isNew reports whether this call actually inserted a new row (xmax = 0 is
// Postgres's own tell for "this tuple was never updated"), which the
// discovery fetcher uses to decide whether to publish MediaDiscovered.
func (s *Store) CreateOrGetDiscovery(ctx context.Context, campaignID uuid.UUID, mediaID int64, keyword string) (d *Discovery, isNew bool, err error) {
	const q = `
	INSERT INTO campaign_media_discoveries (campaign_id, media_id, discovery_keyword)
	VALUES ($1, $2, $3)
	ON CONFLICT (campaign_id, media_id)
	DO UPDATE SET updated_at = NOW(), discovery_keyword = EXCLUDED.discovery_keyword
	RETURNING id, campaign_id, media_id, discovery_keyword, enrichment_status,
	          vetting_status, match_created, review_task_created, discovered_at, updated_at,
	          (xmax = 0) AS is_new
	`
	row := s.Foreground.QueryRow(ctx, q, campaignID, mediaID, keyword)
	d = &Discovery{}
	if scanErr := row.Scan(&d.ID, &d.CampaignID, &d.MediaID, &d.DiscoveryKeyword, &d.EnrichmentStatus,
		&d.VettingStatus, &d.MatchCreated, &d.ReviewTaskCreated, &d.DiscoveredAt, &d.UpdatedAt, &isNew); scanErr != nil {
		return nil, false, fmt.Errorf("store: create or get discovery (campaign=%s media=%d): %w", campaignID, mediaID, scanErr)
	}
	return d, isNew, nil
}

// DiscoveriesNeedingEnrichment returns discoveries whose media still needs
// an enrichment pass (unenriched timestamp or missing quality score).
func (s *Store) DiscoveriesNeedingEnrichment(ctx context.Context, limit int) ([]Discovery, error) {
	const q = `
	SELECT cmd.id, cmd.campaign_id, cmd.media_id, cmd.discovery_keyword, cmd.enrichment_status,
	       cmd.vetting_status, cmd.match_created, cmd.review_task_created, cmd.discovered_at, cmd.updated_at,
	       m.name
	FROM campaign_media_discoveries cmd
	JOIN media m ON cmd.media_id = m.media_id
	WHERE cmd.enrichment_status = 'pending'
	AND (m.last_enriched_timestamp IS NULL OR m.quality_score IS NULL)
	ORDER BY cmd.discovered_at ASC
	LIMIT $1
	`
	rows, err := s.Background.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("store: discoveries needing enrichment: %w", err)
	}
	defer rows.Close()

	var out []Discovery
	for rows.Next() {
		var d Discovery
		if err := rows.Scan(&d.ID, &d.CampaignID, &d.MediaID, &d.DiscoveryKeyword, &d.EnrichmentStatus,
			&d.VettingStatus, &d.MatchCreated, &d.ReviewTaskCreated, &d.DiscoveredAt, &d.UpdatedAt, &d.MediaName); err != nil {
			return nil, fmt.Errorf("store: scan discovery needing enrichment: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateEnrichmentStatus records the outcome of an enrichment attempt.
func (s *Store) UpdateEnrichmentStatus(ctx context.Context, discoveryID int64, status EnrichmentStatus, errMsg *string) error {
	const q = `
	UPDATE campaign_media_discoveries
	SET enrichment_status = $1,
	    enrichment_completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE enrichment_completed_at END,
	    enrichment_error = $2,
	    updated_at = NOW()
	WHERE id = $3
	`
	if _, err := s.Background.Exec(ctx, q, status, errMsg, discoveryID); err != nil {
		return fmt.Errorf("store: update enrichment status for discovery %d: %w", discoveryID, err)
	}
	logging.Debug().Int64("discovery_id", discoveryID).Str("status", string(status)).Msg("enrichment status updated")
	return nil
}

// UpdateVettingStatus records a vetting status transition without results
// (used for failure paths that don't have a score to attach).
func (s *Store) UpdateVettingStatus(ctx context.Context, discoveryID int64, status VettingStatus, errMsg *string) error {
	const q = `
	UPDATE campaign_media_discoveries
	SET vetting_status = $1, vetting_error = $2, updated_at = NOW()
	WHERE id = $3
	`
	if _, err := s.Background.Exec(ctx, q, status, errMsg, discoveryID); err != nil {
		return fmt.Errorf("store: update vetting status for discovery %d: %w", discoveryID, err)
	}
	return nil
}

// AcquireVettingBatch atomically claims up to limit discoveries ready for
// vetting, marking them in_progress with a processing lock sentinel so no
// other concurrent worker claims the same rows. Only podcasts with
// sufficiently confident host names (needed for email personalization) and
// at least one episode are eligible.
func (s *Store) AcquireVettingBatch(ctx context.Context, limit int) ([]Discovery, error) {
	const q = `
	WITH candidates AS (
		SELECT cmd.id
		FROM campaign_media_discoveries cmd
		JOIN media m ON cmd.media_id = m.media_id
		JOIN campaigns c ON cmd.campaign_id = c.campaign_id
		WHERE cmd.enrichment_status = 'completed'
		AND cmd.vetting_status = 'pending'
		AND m.ai_description IS NOT NULL
		AND c.ideal_podcast_description IS NOT NULL
		AND m.host_names IS NOT NULL
		AND array_length(m.host_names, 1) > 0
		AND m.host_names_confidence >= 0.8
		AND (cmd.vetting_error IS NULL OR cmd.vetting_error NOT LIKE 'PROCESSING:%')
		AND EXISTS (SELECT 1 FROM episodes e WHERE e.media_id = m.media_id LIMIT 1)
		ORDER BY cmd.enrichment_completed_at ASC
		LIMIT $1
		FOR UPDATE OF cmd SKIP LOCKED
	)
	UPDATE campaign_media_discoveries
	SET vetting_status = 'in_progress', vetting_error = $2, updated_at = NOW()
	FROM candidates
	WHERE campaign_media_discoveries.id = candidates.id
	RETURNING campaign_media_discoveries.id, campaign_media_discoveries.campaign_id,
	          campaign_media_discoveries.media_id, campaign_media_discoveries.discovery_keyword,
	          campaign_media_discoveries.enrichment_status, campaign_media_discoveries.vetting_status,
	          campaign_media_discoveries.match_created, campaign_media_discoveries.review_task_created,
	          campaign_media_discoveries.discovered_at, campaign_media_discoveries.updated_at,
	          (SELECT name FROM media WHERE media_id = campaign_media_discoveries.media_id),
	          (SELECT ai_description FROM media WHERE media_id = campaign_media_discoveries.media_id),
	          (SELECT host_names FROM media WHERE media_id = campaign_media_discoveries.media_id),
	          (SELECT host_names_confidence FROM media WHERE media_id = campaign_media_discoveries.media_id),
	          (SELECT ideal_podcast_description FROM campaigns WHERE campaign_id = campaign_media_discoveries.campaign_id)
	`
	lock := lockID("VETTING")

	tx, err := s.Background.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: begin acquire vetting batch tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, q, limit, lock)
	if err != nil {
		return nil, fmt.Errorf("store: acquire vetting batch: %w", err)
	}

	var out []Discovery
	for rows.Next() {
		var d Discovery
		if err := rows.Scan(&d.ID, &d.CampaignID, &d.MediaID, &d.DiscoveryKeyword, &d.EnrichmentStatus,
			&d.VettingStatus, &d.MatchCreated, &d.ReviewTaskCreated, &d.DiscoveredAt, &d.UpdatedAt,
			&d.MediaName, &d.AIDescription, &d.HostNames, &d.HostNamesConfidence, &d.IdealPodcastDescription); err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: scan vetting batch row: %w", err)
		}
		out = append(out, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate vetting batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("store: commit acquire vetting batch tx: %w", err)
	}
	logging.Info().Int("claimed", len(out)).Msg("acquired vetting work batch")
	return out, nil
}

// AcquireAIDescriptionBatch atomically claims discoveries whose media needs
// an AI-generated description before vetting can proceed, locking them the
// same way AcquireVettingBatch does but keyed off enrichment_error.
func (s *Store) AcquireAIDescriptionBatch(ctx context.Context, limit int) ([]Discovery, error) {
	const q = `
	WITH candidates AS (
		SELECT cmd.id, cmd.media_id, cmd.campaign_id
		FROM campaign_media_discoveries cmd
		JOIN media m ON cmd.media_id = m.media_id
		JOIN campaigns c ON cmd.campaign_id = c.campaign_id
		WHERE cmd.enrichment_status = 'completed'
		AND cmd.vetting_status = 'pending'
		AND (m.ai_description IS NULL OR m.ai_description = '')
		AND m.total_episodes > 0
		AND (cmd.enrichment_error IS NULL OR cmd.enrichment_error NOT LIKE 'PROCESSING:%')
		ORDER BY cmd.enrichment_completed_at ASC
		LIMIT $1
		FOR UPDATE OF cmd SKIP LOCKED
	)
	UPDATE campaign_media_discoveries
	SET enrichment_error = $2, updated_at = NOW()
	FROM candidates
	WHERE campaign_media_discoveries.id = candidates.id
	RETURNING campaign_media_discoveries.id, campaign_media_discoveries.campaign_id,
	          campaign_media_discoveries.media_id, campaign_media_discoveries.discovery_keyword,
	          campaign_media_discoveries.enrichment_status, campaign_media_discoveries.vetting_status,
	          campaign_media_discoveries.match_created, campaign_media_discoveries.review_task_created,
	          campaign_media_discoveries.discovered_at, campaign_media_discoveries.updated_at,
	          (SELECT name FROM media WHERE media_id = candidates.media_id),
	          (SELECT description FROM media WHERE media_id = candidates.media_id),
	          (SELECT total_episodes FROM media WHERE media_id = candidates.media_id),
	          (SELECT ideal_podcast_description FROM campaigns WHERE campaign_id = candidates.campaign_id)
	`
	lock := lockID("AI_DESC")

	tx, err := s.Background.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: begin acquire ai description batch tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, q, limit, lock)
	if err != nil {
		return nil, fmt.Errorf("store: acquire ai description batch: %w", err)
	}

	var out []Discovery
	for rows.Next() {
		var d Discovery
		if err := rows.Scan(&d.ID, &d.CampaignID, &d.MediaID, &d.DiscoveryKeyword, &d.EnrichmentStatus,
			&d.VettingStatus, &d.MatchCreated, &d.ReviewTaskCreated, &d.DiscoveredAt, &d.UpdatedAt,
			&d.MediaName, &d.MediaDescription, &d.TotalEpisodes, &d.IdealPodcastDescription); err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: scan ai description batch row: %w", err)
		}
		out = append(out, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate ai description batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("store: commit acquire ai description batch tx: %w", err)
	}
	logging.Info().Int("claimed", len(out)).Msg("acquired ai description work batch")
	return out, nil
}

// ReleaseAIDescriptionLock clears the processing lock after an AI
// description attempt finishes, recording a failure marker on failure.
func (s *Store) ReleaseAIDescriptionLock(ctx context.Context, discoveryID int64, success bool) error {
	const q = `
	UPDATE campaign_media_discoveries
	SET enrichment_error = CASE WHEN $2 THEN NULL ELSE CONCAT('Failed at ', NOW()::text) END,
	    updated_at = NOW()
	WHERE id = $1 AND enrichment_error LIKE 'PROCESSING:%'
	`
	if _, err := s.Background.Exec(ctx, q, discoveryID, success); err != nil {
		return fmt.Errorf("store: release ai description lock for discovery %d: %w", discoveryID, err)
	}
	return nil
}

// CleanupStaleAIDescriptionLocks clears enrichment_error AI_DESC lock
// sentinels older than staleMinutes, returning how many rows were cleared.
// Uses the background pool since it is invoked from scheduled sweeps.
func (s *Store) CleanupStaleAIDescriptionLocks(ctx context.Context, staleMinutes int) (int, error) {
	const q = `
	UPDATE campaign_media_discoveries
	SET enrichment_error = NULL, updated_at = NOW()
	WHERE enrichment_error LIKE 'PROCESSING:AI_DESC:%'
	AND (
		SUBSTRING(enrichment_error FROM 'PROCESSING:AI_DESC:[^:]+:(.+)$')::timestamptz
		< NOW() - ($1 || ' minutes')::interval
		OR updated_at < NOW() - ($1 || ' minutes')::interval
	)
	RETURNING id
	`
	rows, err := s.Background.Query(ctx, q, fmt.Sprint(staleMinutes))
	if err != nil {
		return 0, fmt.Errorf("store: cleanup stale ai description locks: %w", err)
	}
	defer rows.Close()
	count := 0
	for rows.Next() {
		count++
	}
	if count > 0 {
		logging.Info().Int("count", count).Msg("cleaned up stale ai description locks")
	}
	return count, rows.Err()
}

// CleanupStaleVettingLocks clears vetting_error VETTING lock sentinels
// older than staleMinutes and reverts their vetting_status back to
// pending so the work can be re-acquired.
func (s *Store) CleanupStaleVettingLocks(ctx context.Context, staleMinutes int) (int, error) {
	const q = `
	UPDATE campaign_media_discoveries
	SET vetting_error = NULL,
	    vetting_status = CASE WHEN vetting_status = 'in_progress' THEN 'pending' ELSE vetting_status END,
	    updated_at = NOW()
	WHERE vetting_error LIKE 'PROCESSING:VETTING:%'
	AND updated_at < NOW() - ($1 || ' minutes')::interval
	RETURNING id
	`
	rows, err := s.Background.Query(ctx, q, fmt.Sprint(staleMinutes))
	if err != nil {
		return 0, fmt.Errorf("store: cleanup stale vetting locks: %w", err)
	}
	defer rows.Close()
	count := 0
	for rows.Next() {
		count++
	}
	if count > 0 {
		logging.Info().Int("count", count).Msg("cleaned up stale vetting locks")
	}
	return count, rows.Err()
}

// UpdateVettingResults persists the weighted vetting score, reasoning, and
// the full criteria-scores breakdown for a completed vetting pass.
func (s *Store) UpdateVettingResults(ctx context.Context, discoveryID int64, score int, reasoning string, criteriaMet map[string]any, topicMatch string, criteriaScores []VettingCriterionScore, expertiseMatched []string) error {
	const q = `
	UPDATE campaign_media_discoveries
	SET vetting_status = 'completed',
	    vetting_score = $1,
	    vetting_reasoning = $2,
	    vetting_criteria_met = $3::jsonb,
	    topic_match_analysis = $4,
	    vetting_criteria_scores = $5::jsonb,
	    client_expertise_matched = $6,
	    vetting_error = NULL,
	    vetted_at = NOW(),
	    updated_at = NOW()
	WHERE id = $7
	`
	if _, err := s.Background.Exec(ctx, q, score, reasoning, criteriaMet, topicMatch, criteriaScores, expertiseMatched, discoveryID); err != nil {
		return fmt.Errorf("store: update vetting results for discovery %d: %w", discoveryID, err)
	}
	logging.Info().Int64("discovery_id", discoveryID).Int("score", score).Msg("vetting results recorded")
	return nil
}

// DiscoveriesReadyForMatch returns vetted discoveries above minScore that
// have not yet had a match created, best score first.
func (s *Store) DiscoveriesReadyForMatch(ctx context.Context, minScore, limit int) ([]Discovery, error) {
	const q = `
	SELECT cmd.id, cmd.campaign_id, cmd.media_id, cmd.discovery_keyword, cmd.enrichment_status,
	       cmd.vetting_status, cmd.vetting_score, cmd.match_created, cmd.review_task_created,
	       cmd.discovered_at, cmd.updated_at, m.name
	FROM campaign_media_discoveries cmd
	JOIN media m ON cmd.media_id = m.media_id
	WHERE cmd.vetting_status = 'completed'
	AND cmd.vetting_score >= $1
	AND cmd.match_created = FALSE
	ORDER BY cmd.vetting_score DESC, cmd.vetted_at ASC
	LIMIT $2
	`
	rows, err := s.Background.Query(ctx, q, minScore, limit)
	if err != nil {
		return nil, fmt.Errorf("store: discoveries ready for match: %w", err)
	}
	defer rows.Close()

	var out []Discovery
	for rows.Next() {
		var d Discovery
		if err := rows.Scan(&d.ID, &d.CampaignID, &d.MediaID, &d.DiscoveryKeyword, &d.EnrichmentStatus,
			&d.VettingStatus, &d.VettingScore, &d.MatchCreated, &d.ReviewTaskCreated,
			&d.DiscoveredAt, &d.UpdatedAt, &d.MediaName); err != nil {
			return nil, fmt.Errorf("store: scan discovery ready for match: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// MarkMatchCreated records that a match suggestion now exists for a
// discovery, so it is excluded from future DiscoveriesReadyForMatch scans.
func (s *Store) MarkMatchCreated(ctx context.Context, discoveryID, matchSuggestionID int64) error {
	const q = `
	UPDATE campaign_media_discoveries
	SET match_created = TRUE, match_suggestion_id = $1, match_created_at = NOW(), updated_at = NOW()
	WHERE id = $2
	`
	if _, err := s.Background.Exec(ctx, q, matchSuggestionID, discoveryID); err != nil {
		return fmt.Errorf("store: mark match created for discovery %d: %w", discoveryID, err)
	}
	return nil
}

// MarkReviewTaskCreated records the review task spawned from a newly
// created match, so the API's review queue can resolve back to it.
func (s *Store) MarkReviewTaskCreated(ctx context.Context, discoveryID, reviewTaskID int64) error {
	const q = `
	UPDATE campaign_media_discoveries
	SET review_task_created = TRUE, review_task_id = $1, updated_at = NOW()
	WHERE id = $2
	`
	if _, err := s.Background.Exec(ctx, q, reviewTaskID, discoveryID); err != nil {
		return fmt.Errorf("store: mark review task created for discovery %d: %w", discoveryID, err)
	}
	return nil
}

// GetDiscoveryByCampaignAndMedia looks up a single discovery row, returning
// pgx.ErrNoRows wrapped when none exists.
func (s *Store) GetDiscoveryByCampaignAndMedia(ctx context.Context, campaignID uuid.UUID, mediaID int64) (*Discovery, error) {
	const q = `
	SELECT id, campaign_id, media_id, discovery_keyword, enrichment_status, vetting_status,
	       vetting_score, match_created, review_task_created, discovered_at, updated_at
	FROM campaign_media_discoveries
	WHERE campaign_id = $1 AND media_id = $2
	`
	var d Discovery
	err := s.Foreground.QueryRow(ctx, q, campaignID, mediaID).Scan(
		&d.ID, &d.CampaignID, &d.MediaID, &d.DiscoveryKeyword, &d.EnrichmentStatus, &d.VettingStatus,
		&d.VettingScore, &d.MatchCreated, &d.ReviewTaskCreated, &d.DiscoveredAt, &d.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get discovery (campaign=%s media=%d): %w", campaignID, mediaID, err)
	}
	return &d, nil
}

// DiscoveryStatusFilter narrows DiscoveriesForCampaign to a lifecycle
// stage for the campaign's discovery-status endpoint.
type DiscoveryStatusFilter string

const (
	StatusFilterNone       DiscoveryStatusFilter = ""
	StatusFilterEnrichment DiscoveryStatusFilter = "enrichment"
	StatusFilterVetting    DiscoveryStatusFilter = "vetting"
	StatusFilterReady      DiscoveryStatusFilter = "ready"
	StatusFilterApproved   DiscoveryStatusFilter = "approved"
)

// DiscoveriesForCampaign lists a campaign's discoveries, optionally
// filtered by lifecycle stage, paginated newest/highest-scored first.
func (s *Store) DiscoveriesForCampaign(ctx context.Context, campaignID uuid.UUID, filter DiscoveryStatusFilter, limit, offset int) ([]Discovery, error) {
	q := `
	SELECT cmd.id, cmd.campaign_id, cmd.media_id, cmd.discovery_keyword, cmd.enrichment_status,
	       cmd.vetting_status, cmd.vetting_score, cmd.match_created, cmd.review_task_created,
	       cmd.discovered_at, cmd.updated_at, m.name, m.description
	FROM campaign_media_discoveries cmd
	JOIN media m ON cmd.media_id = m.media_id
	WHERE cmd.campaign_id = $1
	`
	switch filter {
	case StatusFilterEnrichment:
		q += " AND cmd.enrichment_status != 'completed'"
	case StatusFilterVetting:
		q += " AND cmd.enrichment_status = 'completed' AND cmd.vetting_status != 'completed'"
	case StatusFilterReady:
		q += " AND cmd.vetting_status = 'completed' AND cmd.vetting_score >= 50"
	case StatusFilterApproved:
		q += " AND cmd.review_status = 'approved'"
	}
	q += " ORDER BY cmd.vetting_score DESC NULLS LAST, cmd.discovered_at DESC LIMIT $2 OFFSET $3"

	rows, err := s.Foreground.Query(ctx, q, campaignID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: discoveries for campaign %s: %w", campaignID, err)
	}
	defer rows.Close()

	var out []Discovery
	for rows.Next() {
		var d Discovery
		if err := rows.Scan(&d.ID, &d.CampaignID, &d.MediaID, &d.DiscoveryKeyword, &d.EnrichmentStatus,
			&d.VettingStatus, &d.VettingScore, &d.MatchCreated, &d.ReviewTaskCreated,
			&d.DiscoveredAt, &d.UpdatedAt, &d.MediaName, &d.MediaDescription); err != nil {
			return nil, fmt.Errorf("store: scan campaign discovery: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ResetForRevet clears a discovery's vetting outcome so it is picked up by
// AcquireVettingBatch again. Mirrors the operator escape hatch the original
// revet_failed_discoveries/trigger_single_vetting scripts provided: a
// rejected-by-AI discovery is not auto-revisitable, but an operator can
// force one back into the queue explicitly.
func (s *Store) ResetForRevet(ctx context.Context, discoveryID int64) error {
	const q = `
	UPDATE campaign_media_discoveries
	SET vetting_status = 'pending',
	    vetting_score = NULL,
	    vetting_reasoning = NULL,
	    vetting_criteria_met = NULL,
	    vetting_error = NULL,
	    vetted_at = NULL,
	    updated_at = NOW()
	WHERE id = $1
	`
	if _, err := s.Foreground.Exec(ctx, q, discoveryID); err != nil {
		return fmt.Errorf("store: reset discovery %d for revet: %w", discoveryID, err)
	}
	logging.Info().Int64("discovery_id", discoveryID).Msg("discovery reset for revet")
	return nil
}

// AdvanceStuckEnrichmentStatuses completes discoveries whose media finished
// enrichment (media.last_enriched_timestamp is set) but whose own
// enrichment_status never advanced past pending/in_progress — a worker
// crash or a missed status write between the enrichment orchestrator
// updating media and updating the discoveries row. Only rows untouched
// for staleMinutes are eligible, so an enrichment pass genuinely still
// running isn't mistaken for stuck.
func (s *Store) AdvanceStuckEnrichmentStatuses(ctx context.Context, staleMinutes, limit int) (int, error) {
	const q = `
	WITH stuck AS (
		SELECT cmd.id
		FROM campaign_media_discoveries cmd
		JOIN media m ON cmd.media_id = m.media_id
		WHERE cmd.enrichment_status IN ('pending', 'in_progress')
		AND m.last_enriched_timestamp IS NOT NULL
		AND cmd.updated_at < NOW() - ($1 || ' minutes')::interval
		LIMIT $2
	)
	UPDATE campaign_media_discoveries cmd
	SET enrichment_status = 'completed', enrichment_completed_at = NOW(), updated_at = NOW()
	FROM stuck
	WHERE cmd.id = stuck.id
	RETURNING cmd.id
	`
	rows, err := s.Background.Query(ctx, q, fmt.Sprint(staleMinutes), limit)
	if err != nil {
		return 0, fmt.Errorf("store: advance stuck enrichment statuses: %w", err)
	}
	defer rows.Close()
	count := 0
	for rows.Next() {
		count++
	}
	if count > 0 {
		logging.Info().Int("count", count).Msg("advanced stuck enrichment statuses")
	}
	return count, rows.Err()
}

// ResetRetryableFailedVetting reverts discoveries whose vetting failed with
// an apparently transient error — a timeout or a generic upstream
// failure rather than a durable data problem — back to pending so the
// vetting orchestrator retries them, provided the prerequisite data
// (media's AI description, the campaign's ideal podcast description)
// is still present and the failure is old enough that a concurrent
// retry isn't already underway.
func (s *Store) ResetRetryableFailedVetting(ctx context.Context, staleHours, limit int) (int, error) {
	const q = `
	WITH retryable AS (
		SELECT cmd.id
		FROM campaign_media_discoveries cmd
		JOIN media m ON cmd.media_id = m.media_id
		JOIN campaigns c ON cmd.campaign_id = c.campaign_id
		WHERE cmd.vetting_status = 'failed'
		AND cmd.enrichment_status = 'completed'
		AND m.ai_description IS NOT NULL
		AND c.ideal_podcast_description IS NOT NULL
		AND cmd.vetted_at < NOW() - ($1 || ' hours')::interval
		AND (
			cmd.vetting_reasoning ILIKE '%failed to produce results%'
			OR cmd.vetting_reasoning ILIKE '%timeout%'
			OR cmd.vetting_reasoning ILIKE '%error%'
		)
		LIMIT $2
	)
	UPDATE campaign_media_discoveries cmd
	SET vetting_status = 'pending',
	    vetting_error = NULL,
	    vetting_score = NULL,
	    vetting_reasoning = NULL,
	    updated_at = NOW()
	FROM retryable
	WHERE cmd.id = retryable.id
	RETURNING cmd.id
	`
	rows, err := s.Background.Query(ctx, q, fmt.Sprint(staleHours), limit)
	if err != nil {
		return 0, fmt.Errorf("store: reset retryable failed vetting: %w", err)
	}
	defer rows.Close()
	count := 0
	for rows.Next() {
		count++
	}
	if count > 0 {
		logging.Info().Int("count", count).Msg("reset failed vetting for retry")
	}
	return count, rows.Err()
}
