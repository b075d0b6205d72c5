//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/patrhick1/pgl-pipeline/internal/config"
)

func parseUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("pgl_test"),
		postgres.WithUsername("pgl"),
		postgres.WithPassword("pgl"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := config.StoreConfig{ForegroundDSN: dsn, BackgroundDSN: dsn}
	s, err := Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	require.NoError(t, s.Migrate(dsn))
	return s
}

func seedCampaignAndMedia(t *testing.T, ctx context.Context, s *Store) (campaignID string, mediaID int64) {
	t.Helper()
	row := s.Foreground.QueryRow(ctx, `
		INSERT INTO campaigns (name, ideal_podcast_description)
		VALUES ('acme launch', 'a show about developer tools')
		RETURNING campaign_id`)
	require.NoError(t, row.Scan(&campaignID))

	row = s.Foreground.QueryRow(ctx, `
		INSERT INTO media (name, description, total_episodes, ai_description, host_names, host_names_confidence)
		VALUES ('The Dev Show', 'a podcast', 5, 'great show about tools', ARRAY['Jane Doe'], 0.95)
		RETURNING media_id`)
	require.NoError(t, row.Scan(&mediaID))

	_, err := s.Foreground.Exec(ctx, `INSERT INTO episodes (media_id, title) VALUES ($1, 'Episode 1')`, mediaID)
	require.NoError(t, err)

	return campaignID, mediaID
}

func TestCreateOrGetDiscoveryIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	campaignID, mediaID := seedCampaignAndMedia(t, ctx, s)

	first, firstNew, err := s.CreateOrGetDiscovery(ctx, parseUUID(t, campaignID), mediaID, "devtools")
	require.NoError(t, err)
	require.True(t, firstNew)

	second, secondNew, err := s.CreateOrGetDiscovery(ctx, parseUUID(t, campaignID), mediaID, "devtools-updated")
	require.NoError(t, err)
	require.False(t, secondNew)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "devtools-updated", second.DiscoveryKeyword)
}

func TestAcquireVettingBatchClaimsEligibleDiscoveryOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	campaignID, mediaID := seedCampaignAndMedia(t, ctx, s)

	d, _, err := s.CreateOrGetDiscovery(ctx, parseUUID(t, campaignID), mediaID, "devtools")
	require.NoError(t, err)
	require.NoError(t, s.UpdateEnrichmentStatus(ctx, d.ID, EnrichmentCompleted, nil))

	batch, err := s.AcquireVettingBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	require.Equal(t, d.ID, batch[0].ID)
	require.Equal(t, VettingInProgress, batch[0].VettingStatus)

	// A second acquisition must not see the same row again: it is locked.
	second, err := s.AcquireVettingBatch(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, second)
}

func TestCleanupStaleVettingLocksReturnsRowToPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	campaignID, mediaID := seedCampaignAndMedia(t, ctx, s)

	d, _, err := s.CreateOrGetDiscovery(ctx, parseUUID(t, campaignID), mediaID, "devtools")
	require.NoError(t, err)
	require.NoError(t, s.UpdateEnrichmentStatus(ctx, d.ID, EnrichmentCompleted, nil))

	batch, err := s.AcquireVettingBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)

	// Force the lock to look stale by backdating updated_at directly.
	_, err = s.Foreground.Exec(ctx, `UPDATE campaign_media_discoveries SET updated_at = NOW() - interval '2 hours' WHERE id = $1`, d.ID)
	require.NoError(t, err)

	cleaned, err := s.CleanupStaleVettingLocks(ctx, 60)
	require.NoError(t, err)
	require.Equal(t, 1, cleaned)

	again, err := s.AcquireVettingBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, again, 1)
}

func TestDiscoveriesReadyForMatchRespectsThreshold(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	campaignID, mediaID := seedCampaignAndMedia(t, ctx, s)

	d, _, err := s.CreateOrGetDiscovery(ctx, parseUUID(t, campaignID), mediaID, "devtools")
	require.NoError(t, err)
	require.NoError(t, s.UpdateVettingResults(ctx, d.ID, 40, "below threshold", map[string]any{}, "", nil, nil))

	below, err := s.DiscoveriesReadyForMatch(ctx, 50, 10)
	require.NoError(t, err)
	require.Empty(t, below)

	require.NoError(t, s.UpdateVettingResults(ctx, d.ID, 75, "strong fit", map[string]any{}, "", nil, nil))

	above, err := s.DiscoveriesReadyForMatch(ctx, 50, 10)
	require.NoError(t, err)
	require.Len(t, above, 1)
	require.Equal(t, d.ID, above[0].ID)
}
