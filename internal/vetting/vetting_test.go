package vetting

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/patrhick1/pgl-pipeline/internal/llm"
	"github.com/patrhick1/pgl-pipeline/internal/store"
)

func TestFinalWeightedScoreMatchesReferenceFormula(t *testing.T) {
	checklist := []ChecklistCriterion{
		{Criterion: "topic fit", Weight: 5},
		{Criterion: "audience fit", Weight: 3},
		{Criterion: "production quality", Weight: 1},
	}
	scores := []CriterionScore{
		{Criterion: "topic fit", Score: 90},
		{Criterion: "audience fit", Score: 60},
		{Criterion: "production quality", Score: 40},
	}

	got := finalWeightedScore(scores, checklist)

	// (90*5 + 60*3 + 40*1) / (5+3+1) = 670/9 = 74.44... -> rounds to 74
	if got != 74 {
		t.Fatalf("expected 74, got %d", got)
	}
}

func TestFinalWeightedScoreDefaultsUnknownCriterionWeightToOne(t *testing.T) {
	checklist := []ChecklistCriterion{{Criterion: "topic fit", Weight: 5}}
	scores := []CriterionScore{
		{Criterion: "topic fit", Score: 100},
		{Criterion: "a criterion the checklist never named", Score: 0},
	}

	// (100*5 + 0*1) / (5+1) = 500/6 = 83.33 -> 83
	if got := finalWeightedScore(scores, checklist); got != 83 {
		t.Fatalf("expected 83, got %d", got)
	}
}

func TestFinalWeightedScoreClampsToRange(t *testing.T) {
	if got := finalWeightedScore(nil, nil); got != 0 {
		t.Fatalf("expected 0 for no scores, got %d", got)
	}
	if got := finalWeightedScore([]CriterionScore{{Criterion: "x", Score: 150}}, nil); got != 100 {
		t.Fatalf("expected 150 to clamp to 100, got %d", got)
	}
	if got := finalWeightedScore([]CriterionScore{{Criterion: "x", Score: -20}}, nil); got != 0 {
		t.Fatalf("expected -20 to clamp to 0, got %d", got)
	}
}

type fakeVettingLLM struct {
	checklistJSON json.RawMessage
	analysisJSON  json.RawMessage
	schemaCalls   int
}

func (f *fakeVettingLLM) SchemaCall(ctx context.Context, req llm.SchemaRequest) (json.RawMessage, error) {
	f.schemaCalls++
	if req.Purpose == "vetting_checklist_generation" {
		return f.checklistJSON, nil
	}
	return f.analysisJSON, nil
}

func (f *fakeVettingLLM) TextCall(ctx context.Context, req llm.TextRequest) (string, error) {
	return "", nil
}

func TestAgentVetProducesWeightedScore(t *testing.T) {
	fake := &fakeVettingLLM{
		checklistJSON: json.RawMessage(`{"checklist":[{"criterion":"topic fit","reasoning":"r","weight":5}]}`),
		analysisJSON:  json.RawMessage(`{"scores":[{"criterion":"topic fit","score":80,"justification":"j"}],"final_summary":"good fit","topic_match_analysis":"strong overlap"}`),
	}
	agent := NewAgent(fake)

	profile := ClientProfile{IdealPodcastDescription: "B2B SaaS growth show"}
	result, err := agent.Vet(context.Background(), profile, "evidence block")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Score != 80 {
		t.Fatalf("expected score 80, got %d", result.Score)
	}
	if result.Reasoning != "good fit" {
		t.Fatalf("unexpected reasoning: %q", result.Reasoning)
	}
	if fake.schemaCalls != 2 {
		t.Fatalf("expected exactly 2 schema calls (checklist + scoring), got %d", fake.schemaCalls)
	}
}

func TestAgentVetRejectsInsufficientClientData(t *testing.T) {
	agent := NewAgent(&fakeVettingLLM{})
	_, err := agent.Vet(context.Background(), ClientProfile{}, "evidence")
	if err != ErrInsufficientClientData {
		t.Fatalf("expected ErrInsufficientClientData, got %v", err)
	}
}

func TestEvidenceIncludesMediaAndEpisodes(t *testing.T) {
	media := &store.Media{Name: "The Growth Show", Description: "About growth", HostNames: []string{"Jane Doe"}}
	episodes := []store.Episode{
		{Title: "Episode 1", EpisodeSummary: strPtr("summary one")},
	}

	evidence := Evidence(media, episodes)
	if !contains(evidence, "The Growth Show") || !contains(evidence, "Episode 1") || !contains(evidence, "summary one") {
		t.Fatalf("evidence missing expected content: %s", evidence)
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && (func() bool {
		for i := 0; i+len(needle) <= len(haystack); i++ {
			if haystack[i:i+len(needle)] == needle {
				return true
			}
		}
		return false
	})()
}
