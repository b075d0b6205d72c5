package store

import (
	"time"

	"github.com/google/uuid"
)

// EnrichmentStatus tracks a discovery's progress through media enrichment.
type EnrichmentStatus string

const (
	EnrichmentPending   EnrichmentStatus = "pending"
	EnrichmentCompleted EnrichmentStatus = "completed"
	EnrichmentFailed    EnrichmentStatus = "failed"
)

// VettingStatus tracks a discovery's progress through vetting.
type VettingStatus string

const (
	VettingPending    VettingStatus = "pending"
	VettingInProgress VettingStatus = "in_progress"
	VettingCompleted  VettingStatus = "completed"
	VettingFailed     VettingStatus = "failed"
)

// Discovery is a campaign_media_discoveries row plus the media/campaign
// fields the vetting and match stages need alongside it.
type Discovery struct {
	ID                      int64
	CampaignID              uuid.UUID
	MediaID                 int64
	DiscoveryKeyword        string
	EnrichmentStatus        EnrichmentStatus
	EnrichmentCompletedAt   *time.Time
	EnrichmentError         *string
	VettingStatus           VettingStatus
	VettingScore            *int
	VettingReasoning        *string
	VettingCriteriaMet      map[string]any
	TopicMatchAnalysis      *string
	VettingCriteriaScores   []VettingCriterionScore
	ClientExpertiseMatched  []string
	VettingError            *string
	VettedAt                *time.Time
	MatchCreated            bool
	MatchSuggestionID       *int64
	MatchCreatedAt          *time.Time
	ReviewTaskCreated       bool
	ReviewTaskID            *int64
	ReviewStatus            *string
	DiscoveredAt            time.Time
	UpdatedAt               time.Time

	// Hydrated join fields, populated only by the read paths that need them.
	MediaName               string
	MediaDescription        string
	TotalEpisodes           int
	AIDescription           *string
	HostNames               []string
	HostNamesConfidence     *float64
	IdealPodcastDescription *string
	QuestionnaireResponses  map[string]any
}

// VettingCriterionScore is one line item of a weighted vetting checklist
// evaluation: score_i and weight_i feed the final weighted-average score.
type VettingCriterionScore struct {
	Criterion string  `json:"criterion"`
	Score     float64 `json:"score"`
	Weight    float64 `json:"weight"`
	Reasoning string  `json:"reasoning,omitempty"`
}

// Media is a podcast inventory row. HostNamesConfidence and Embedding are
// nullable because they're only populated once enrichment runs.
type Media struct {
	ID                        int64
	Name                      string
	Description               string
	RSSURL                    *string
	ItunesID                  *string
	ImageURL                  *string
	TotalEpisodes             int
	HostNames                 []string
	HostNamesConfidence       *float64
	AIDescription             *string
	EpisodeSummariesCompiled  *string
	QualityScore              *float64
	Embedding                 []float32
	LastEnrichedTimestamp     *time.Time
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// Episode is one episodes row.
type Episode struct {
	ID               int64
	MediaID          int64
	Title            string
	PublishDate      *time.Time
	EpisodeSummary   *string
	AIEpisodeSummary *string
	AudioURL         *string
	TranscriptStatus string
	Embedding        []float32
	CreatedAt        time.Time
}

// Campaign is a campaigns row plus the fields the discovery/vetting/match
// stages read from it.
type Campaign struct {
	ID                         uuid.UUID
	Name                       string
	PlanTier                   string
	IdealPodcastDescription    *string
	QuestionnaireResponses     map[string]any
	AutoDiscoveryEnabled       bool
	AutoDiscoveryKeywords      []string
	MatchesCreatedThisWeek     int
	AutoDiscoveryRunsThisWeek  int
	QuotaWindowStartedAt       time.Time
	Embedding                  []float32
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
}

// MatchSuggestion is a match_suggestions row.
type MatchSuggestion struct {
	ID              int64
	CampaignID      uuid.UUID
	MediaID         int64
	BestEpisodeID   *int64
	SimilarityScore *float64
	VettingScore    *int
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ReviewTask is a review_tasks row.
type ReviewTask struct {
	ID                int64
	TaskType          string
	CampaignID        uuid.UUID
	DiscoveryID       *int64
	MatchSuggestionID *int64
	Status            string
	CreatedAt         time.Time
	ResolvedAt        *time.Time
}

// AutoDiscoveryRun is an auto_discovery_runs row tracking one controller
// pass over a campaign's auto-discovery keywords.
type AutoDiscoveryRun struct {
	ID                int64
	CampaignID        uuid.UUID
	Status            string
	KeywordsProcessed int
	MediaDiscovered   int
	StartedAt         time.Time
	HeartbeatAt       time.Time
	FinishedAt        *time.Time
	Error             *string
}
