package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// FindMediaByRSS looks up media by its canonical RSS feed URL, the
// discovery fetcher's first canonicalization key.
func (s *Store) FindMediaByRSS(ctx context.Context, rssURL string) (*Media, error) {
	const q = `
	SELECT media_id, name, description, rss_url, itunes_id, image_url, total_episodes,
	       host_names, host_names_confidence, ai_description, created_at, updated_at
	FROM media WHERE rss_url = $1
	`
	return scanOneMedia(s.Foreground.QueryRow(ctx, q, rssURL))
}

// FindMediaByItunesID looks up media by Apple Podcasts catalog id, the
// discovery fetcher's second canonicalization key when RSS is unavailable.
func (s *Store) FindMediaByItunesID(ctx context.Context, itunesID string) (*Media, error) {
	const q = `
	SELECT media_id, name, description, rss_url, itunes_id, image_url, total_episodes,
	       host_names, host_names_confidence, ai_description, created_at, updated_at
	FROM media WHERE itunes_id = $1
	`
	return scanOneMedia(s.Foreground.QueryRow(ctx, q, itunesID))
}

func scanOneMedia(row pgx.Row) (*Media, error) {
	var m Media
	err := row.Scan(&m.ID, &m.Name, &m.Description, &m.RSSURL, &m.ItunesID, &m.ImageURL, &m.TotalEpisodes,
		&m.HostNames, &m.HostNamesConfidence, &m.AIDescription, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: find media: %w", err)
	}
	return &m, nil
}

// UpsertMedia inserts a new media row, or merges richer fields into an
// existing one when existingID is non-nil (the discovery fetcher's
// canonicalization step already resolved the match by RSS or iTunes id
// before calling this). RSS URL still carries a partial unique index as a
// race-safety net for two concurrent discovery runs inserting the same new
// feed at once.
func (s *Store) UpsertMedia(ctx context.Context, existingID *int64, m Media) (*Media, error) {
	if existingID != nil {
		const q = `
		UPDATE media SET
			name = CASE WHEN name = '' THEN $1 ELSE name END,
			rss_url = COALESCE(rss_url, $2),
			itunes_id = COALESCE(itunes_id, $3),
			image_url = COALESCE(image_url, $4),
			updated_at = NOW()
		WHERE media_id = $5
		RETURNING media_id, name, description, rss_url, itunes_id, image_url, total_episodes,
		          host_names, host_names_confidence, ai_description, created_at, updated_at
		`
		out, err := scanOneMedia(s.Foreground.QueryRow(ctx, q, m.Name, m.RSSURL, m.ItunesID, m.ImageURL, *existingID))
		if err != nil {
			return nil, fmt.Errorf("store: merge media %d: %w", *existingID, err)
		}
		return out, nil
	}

	const q = `
	INSERT INTO media (name, description, rss_url, itunes_id, image_url)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (rss_url) WHERE rss_url IS NOT NULL
	DO UPDATE SET
		name = CASE WHEN media.name = '' THEN EXCLUDED.name ELSE media.name END,
		itunes_id = COALESCE(media.itunes_id, EXCLUDED.itunes_id),
		image_url = COALESCE(media.image_url, EXCLUDED.image_url),
		updated_at = NOW()
	RETURNING media_id, name, description, rss_url, itunes_id, image_url, total_episodes,
	          host_names, host_names_confidence, ai_description, created_at, updated_at
	`
	row := s.Foreground.QueryRow(ctx, q, m.Name, m.Description, m.RSSURL, m.ItunesID, m.ImageURL)
	out, err := scanOneMedia(row)
	if err != nil {
		return nil, fmt.Errorf("store: upsert media %q: %w", m.Name, err)
	}
	return out, nil
}

// UpdateMediaProfile persists the enrichment pass's hydrated profile
// fields: host names + confidence, AI-generated description, episode count.
func (s *Store) UpdateMediaProfile(ctx context.Context, mediaID int64, hostNames []string, hostNamesConfidence *float64, totalEpisodes int) error {
	const q = `
	UPDATE media
	SET host_names = $1, host_names_confidence = $2, total_episodes = $3,
	    last_enriched_timestamp = NOW(), updated_at = NOW()
	WHERE media_id = $4
	`
	if _, err := s.Background.Exec(ctx, q, hostNames, hostNamesConfidence, totalEpisodes, mediaID); err != nil {
		return fmt.Errorf("store: update media profile for %d: %w", mediaID, err)
	}
	return nil
}

// UpdateMediaAIDescription persists the enrichment pass's generated
// description, used as a gate by AcquireVettingBatch.
func (s *Store) UpdateMediaAIDescription(ctx context.Context, mediaID int64, description string) error {
	const q = `UPDATE media SET ai_description = $1, updated_at = NOW() WHERE media_id = $2`
	if _, err := s.Background.Exec(ctx, q, description, mediaID); err != nil {
		return fmt.Errorf("store: update media ai description for %d: %w", mediaID, err)
	}
	return nil
}

// UpdateMediaQualityScore persists the enrichment pass's deterministic
// quality score, computed only once ≥3 transcribed episodes exist.
func (s *Store) UpdateMediaQualityScore(ctx context.Context, mediaID int64, score float64) error {
	const q = `UPDATE media SET quality_score = $1, updated_at = NOW() WHERE media_id = $2`
	if _, err := s.Background.Exec(ctx, q, score, mediaID); err != nil {
		return fmt.Errorf("store: update media quality score for %d: %w", mediaID, err)
	}
	return nil
}

// GetMedia loads a single media row by id, with its compiled summaries and
// quality score for vetting/match use.
func (s *Store) GetMedia(ctx context.Context, mediaID int64) (*Media, error) {
	const q = `
	SELECT media_id, name, description, rss_url, itunes_id, image_url, total_episodes,
	       host_names, host_names_confidence, ai_description, episode_summaries_compiled,
	       quality_score, embedding, last_enriched_timestamp, created_at, updated_at
	FROM media WHERE media_id = $1
	`
	var m Media
	err := s.Foreground.QueryRow(ctx, q, mediaID).Scan(
		&m.ID, &m.Name, &m.Description, &m.RSSURL, &m.ItunesID, &m.ImageURL, &m.TotalEpisodes,
		&m.HostNames, &m.HostNamesConfidence, &m.AIDescription, &m.EpisodeSummariesCompiled,
		&m.QualityScore, &m.Embedding, &m.LastEnrichedTimestamp, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get media %d: %w", mediaID, err)
	}
	return &m, nil
}
