package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ListRecentEpisodes returns up to limit episodes for a media, newest first.
func (s *Store) ListRecentEpisodes(ctx context.Context, mediaID int64, limit int) ([]Episode, error) {
	const q = `
	SELECT episode_id, media_id, title, publish_date, episode_summary, ai_episode_summary,
	       audio_url, transcript_status, embedding, created_at
	FROM episodes
	WHERE media_id = $1
	ORDER BY publish_date DESC NULLS LAST
	LIMIT $2
	`
	rows, err := s.Background.Query(ctx, q, mediaID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list recent episodes for media %d: %w", mediaID, err)
	}
	defer rows.Close()

	var out []Episode
	for rows.Next() {
		var e Episode
		if err := rows.Scan(&e.ID, &e.MediaID, &e.Title, &e.PublishDate, &e.EpisodeSummary,
			&e.AIEpisodeSummary, &e.AudioURL, &e.TranscriptStatus, &e.Embedding, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan episode: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UntranscribedEpisodes returns up to limit of a media's most recent
// episodes that still need a transcript, newest first — the enrichment
// orchestrator's candidate pool for its "up to 3 of the top-5 recent" rule.
func (s *Store) UntranscribedEpisodes(ctx context.Context, mediaID int64, limit int) ([]Episode, error) {
	const q = `
	SELECT episode_id, media_id, title, publish_date, audio_url, transcript_status, created_at
	FROM episodes
	WHERE media_id = $1 AND transcript_status != 'completed' AND audio_url IS NOT NULL
	ORDER BY publish_date DESC NULLS LAST
	LIMIT $2
	`
	rows, err := s.Background.Query(ctx, q, mediaID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: untranscribed episodes for media %d: %w", mediaID, err)
	}
	defer rows.Close()

	var out []Episode
	for rows.Next() {
		var e Episode
		if err := rows.Scan(&e.ID, &e.MediaID, &e.Title, &e.PublishDate, &e.AudioURL, &e.TranscriptStatus, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan untranscribed episode: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListEpisodesWithEmbeddings returns up to limit episodes for a media that
// have an embedding, newest first — the candidate pool for match creation's
// best-episode cosine-similarity search.
func (s *Store) ListEpisodesWithEmbeddings(ctx context.Context, mediaID int64, limit int) ([]Episode, error) {
	const q = `
	SELECT episode_id, media_id, title, publish_date, embedding
	FROM episodes
	WHERE media_id = $1 AND embedding IS NOT NULL
	ORDER BY publish_date DESC NULLS LAST
	LIMIT $2
	`
	rows, err := s.Background.Query(ctx, q, mediaID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list embedded episodes for media %d: %w", mediaID, err)
	}
	defer rows.Close()

	var out []Episode
	for rows.Next() {
		var e Episode
		if err := rows.Scan(&e.ID, &e.MediaID, &e.Title, &e.PublishDate, &e.Embedding); err != nil {
			return nil, fmt.Errorf("store: scan embedded episode: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpsertEpisode inserts an episode, matched on (media_id, title) since the
// directory adapters don't expose a stable episode id. Returns the row's id.
func (s *Store) UpsertEpisode(ctx context.Context, e Episode) (int64, error) {
	const q = `
	INSERT INTO episodes (media_id, title, publish_date, episode_summary, audio_url)
	SELECT $1, $2, $3, $4, $5
	WHERE NOT EXISTS (SELECT 1 FROM episodes WHERE media_id = $1 AND title = $2)
	RETURNING episode_id
	`
	var id int64
	err := s.Background.QueryRow(ctx, q, e.MediaID, e.Title, e.PublishDate, e.EpisodeSummary, e.AudioURL).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != pgx.ErrNoRows {
		return 0, fmt.Errorf("store: upsert episode %q for media %d: %w", e.Title, e.MediaID, err)
	}

	const existing = `SELECT episode_id FROM episodes WHERE media_id = $1 AND title = $2`
	if err := s.Background.QueryRow(ctx, existing, e.MediaID, e.Title).Scan(&id); err != nil {
		return 0, fmt.Errorf("store: fetch existing episode %q for media %d: %w", e.Title, e.MediaID, err)
	}
	return id, nil
}

// UpdateEpisodeTranscript persists a transcription's output: the raw
// transcript lives with the transcription provider, so only the derived
// summary and transcript_status are stored here.
func (s *Store) UpdateEpisodeTranscript(ctx context.Context, episodeID int64, aiSummary string) error {
	const q = `
	UPDATE episodes SET ai_episode_summary = $1, transcript_status = 'completed' WHERE episode_id = $2
	`
	if _, err := s.Background.Exec(ctx, q, aiSummary, episodeID); err != nil {
		return fmt.Errorf("store: update episode transcript for %d: %w", episodeID, err)
	}
	return nil
}

// CountTranscribedEpisodes reports how many of a media's episodes have a
// completed transcript — the enrichment orchestrator's quality-score gate.
func (s *Store) CountTranscribedEpisodes(ctx context.Context, mediaID int64) (int, error) {
	const q = `SELECT count(*) FROM episodes WHERE media_id = $1 AND transcript_status = 'completed'`
	var n int
	if err := s.Background.QueryRow(ctx, q, mediaID).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count transcribed episodes for media %d: %w", mediaID, err)
	}
	return n, nil
}

// UpdateEpisodeSummariesCompiled concatenates a media's episode summaries
// (AI summary preferred, falling back to the raw one), newest first, into
// media.episode_summaries_compiled for use as vetting/enrichment context.
func (s *Store) UpdateEpisodeSummariesCompiled(ctx context.Context, mediaID int64) (bool, error) {
	const q = `
	WITH episode_summaries AS (
		SELECT media_id, string_agg(COALESCE(ai_episode_summary, episode_summary, ''), E'\n\n---\n\n' ORDER BY publish_date DESC) AS compiled
		FROM episodes
		WHERE media_id = $1
		AND (ai_episode_summary IS NOT NULL OR episode_summary IS NOT NULL)
		GROUP BY media_id
	)
	UPDATE media m
	SET episode_summaries_compiled = es.compiled, updated_at = NOW()
	FROM episode_summaries es
	WHERE m.media_id = es.media_id
	RETURNING m.media_id
	`
	var updated int64
	err := s.Background.QueryRow(ctx, q, mediaID).Scan(&updated)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("store: compile episode summaries for media %d: %w", mediaID, err)
	}
	return true, nil
}

// BulkUpdateEpisodeSummariesCompiled applies UpdateEpisodeSummariesCompiled's
// aggregation across every media id in one statement, returning the number
// of media rows updated.
func (s *Store) BulkUpdateEpisodeSummariesCompiled(ctx context.Context, mediaIDs []int64) (int, error) {
	const q = `
	WITH episode_summaries AS (
		SELECT media_id, string_agg(COALESCE(ai_episode_summary, episode_summary, ''), E'\n\n---\n\n' ORDER BY publish_date DESC) AS compiled
		FROM episodes
		WHERE media_id = ANY($1)
		AND (ai_episode_summary IS NOT NULL OR episode_summary IS NOT NULL)
		GROUP BY media_id
	)
	UPDATE media m
	SET episode_summaries_compiled = es.compiled, updated_at = NOW()
	FROM episode_summaries es
	WHERE m.media_id = es.media_id
	`
	tag, err := s.Background.Exec(ctx, q, mediaIDs)
	if err != nil {
		return 0, fmt.Errorf("store: bulk compile episode summaries: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// MediaNeedingSummaryCompilation returns up to limit media ids that have
// at least one AI-summarized episode but no compiled summary yet,
// ordered by transcribed-episode count so the most complete media
// compile first.
func (s *Store) MediaNeedingSummaryCompilation(ctx context.Context, limit int) ([]int64, error) {
	const q = `
	SELECT m.media_id
	FROM media m
	JOIN episodes e ON m.media_id = e.media_id
	WHERE e.ai_episode_summary IS NOT NULL
	AND (m.episode_summaries_compiled IS NULL OR m.episode_summaries_compiled = '')
	GROUP BY m.media_id
	HAVING COUNT(e.episode_id) > 0
	ORDER BY COUNT(e.episode_id) DESC
	LIMIT $1
	`
	rows, err := s.Background.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("store: media needing summary compilation: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan media needing summary compilation: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
