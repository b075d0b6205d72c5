// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

// Package vetting implements the Vetting Agent (C5): a pure function of a
// campaign's client profile plus a media's evidence that produces a 0-100
// weighted fit score via two schema-bound LLM calls. It never touches the
// store directly — the caller persists the result.
package vetting

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/patrhick1/pgl-pipeline/internal/llm"
	"github.com/patrhick1/pgl-pipeline/internal/store"
)

// ChecklistCriterion is one line item of the LLM-generated vetting
// checklist: what to evaluate, why, and how much it matters.
type ChecklistCriterion struct {
	Criterion string `json:"criterion"`
	Reasoning string `json:"reasoning"`
	Weight    int    `json:"weight"`
}

// CriterionScore is the scoring pass's per-criterion verdict.
type CriterionScore struct {
	Criterion     string `json:"criterion"`
	Score         int    `json:"score"`
	Justification string `json:"justification"`
}

// Result is the Vetting Agent's complete output, ready for the orchestrator
// to persist via store.UpdateVettingResults.
type Result struct {
	Score                  int
	Reasoning              string
	TopicMatchAnalysis     string
	Checklist              []ChecklistCriterion
	CriteriaScores         []CriterionScore
	ClientExpertiseMatched []string
}

// ErrInsufficientClientData is returned when a campaign has neither an
// ideal podcast description nor any expertise topics to vet against.
var ErrInsufficientClientData = fmt.Errorf("vetting: campaign lacks both ideal_podcast_description and expertise topics")

type checklistResponse struct {
	Checklist []ChecklistCriterion `json:"checklist"`
}

type analysisResponse struct {
	Scores             []CriterionScore `json:"scores"`
	FinalSummary       string           `json:"final_summary"`
	TopicMatchAnalysis string           `json:"topic_match_analysis"`
}

var checklistSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"checklist": {
			"type": "array",
			"minItems": 7,
			"maxItems": 10,
			"items": {
				"type": "object",
				"properties": {
					"criterion": {"type": "string"},
					"reasoning": {"type": "string"},
					"weight": {"type": "integer", "minimum": 1, "maximum": 5}
				},
				"required": ["criterion", "reasoning", "weight"]
			}
		}
	},
	"required": ["checklist"]
}`)

var analysisSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"scores": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"criterion": {"type": "string"},
					"score": {"type": "integer", "minimum": 0, "maximum": 100},
					"justification": {"type": "string"}
				},
				"required": ["criterion", "score", "justification"]
			}
		},
		"final_summary": {"type": "string"},
		"topic_match_analysis": {"type": "string"}
	},
	"required": ["scores", "final_summary", "topic_match_analysis"]
}`)

// Agent is the Vetting Agent.
type Agent struct {
	LLM         llm.Client
	RetryPolicy llm.RetryPolicy
}

// NewAgent builds an Agent with the default retry policy.
func NewAgent(client llm.Client) *Agent {
	return &Agent{LLM: client, RetryPolicy: llm.DefaultRetryPolicy()}
}

// Vet produces a complete vetting Result for one (campaign, media) pair.
// evidence is the pre-gathered podcast evidence block (see Evidence).
func (a *Agent) Vet(ctx context.Context, profile ClientProfile, evidence string) (*Result, error) {
	if !profile.HasSufficientData() {
		return nil, ErrInsufficientClientData
	}

	checklist, err := a.generateChecklist(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("generate checklist: %w", err)
	}

	analysis, err := a.score(ctx, checklist, evidence, profile)
	if err != nil {
		return nil, fmt.Errorf("score evidence: %w", err)
	}

	expertise := profile.ExpertiseTopics
	if len(expertise) > 10 {
		expertise = expertise[:10]
	}

	return &Result{
		Score:                  finalWeightedScore(analysis.Scores, checklist),
		Reasoning:              analysis.FinalSummary,
		TopicMatchAnalysis:     analysis.TopicMatchAnalysis,
		Checklist:              checklist,
		CriteriaScores:         analysis.Scores,
		ClientExpertiseMatched: expertise,
	}, nil
}

func (a *Agent) generateChecklist(ctx context.Context, profile ClientProfile) ([]ChecklistCriterion, error) {
	var out checklistResponse
	err := llm.CallWithRetry(ctx, a.RetryPolicy, func(ctx context.Context) error {
		raw, callErr := a.LLM.SchemaCall(ctx, llm.SchemaRequest{
			Purpose:      "vetting_checklist_generation",
			SystemPrompt: "Create a prioritized checklist of 7-10 specific, measurable criteria to evaluate potential podcasts for this client, each weighted 1 (least important) to 5 (most important).",
			UserPrompt:   checklistPrompt(profile),
			Schema:       checklistSchema,
		})
		if callErr != nil {
			return callErr
		}
		return json.Unmarshal(raw, &out)
	})
	if err != nil {
		return nil, err
	}
	return out.Checklist, nil
}

func checklistPrompt(p ClientProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ideal Podcast Description: %s\n", p.IdealPodcastDescription)
	fmt.Fprintf(&b, "Expertise Topics: %s\n", strings.Join(capped(p.ExpertiseTopics, 10), ", "))
	fmt.Fprintf(&b, "Suggested Discussion Topics: %s\n", strings.Join(capped(p.SuggestedTopics, 10), ", "))
	fmt.Fprintf(&b, "Key Messages: %s\n", strings.Join(capped(p.KeyMessages, 3), "; "))
	fmt.Fprintf(&b, "Content Themes: %s\n", strings.Join(capped(p.ContentThemes, 5), ", "))
	fmt.Fprintf(&b, "Audience Requirements: %v\n", p.AudienceRequirements)
	fmt.Fprintf(&b, "Previous Show Types: %s\n", strings.Join(capped(p.PreviousShowTypes, 5), ", "))
	fmt.Fprintf(&b, "Items to Promote: %s\n", strings.Join(capped(p.PromotionItems, 2), "; "))
	return b.String()
}

func (a *Agent) score(ctx context.Context, checklist []ChecklistCriterion, evidence string, profile ClientProfile) (*analysisResponse, error) {
	checklistJSON, err := json.Marshal(checklist)
	if err != nil {
		return nil, fmt.Errorf("marshal checklist: %w", err)
	}

	prompt := fmt.Sprintf(`Client's Expertise Areas:
- Primary Expertise: %s
- Suggested Topics: %s
- Content Themes: %s

Vetting Checklist:
%s

Podcast Evidence:
---
%s
---`,
		strings.Join(capped(profile.ExpertiseTopics, 10), ", "),
		strings.Join(capped(profile.SuggestedTopics, 10), ", "),
		strings.Join(capped(profile.ContentThemes, 5), ", "),
		string(checklistJSON),
		evidence,
	)

	var out analysisResponse
	err = llm.CallWithRetry(ctx, a.RetryPolicy, func(ctx context.Context) error {
		raw, callErr := a.LLM.SchemaCall(ctx, llm.SchemaRequest{
			Purpose: "vetting_scoring",
			SystemPrompt: "Score this podcast against each checklist criterion from 0 (no fit) to 100 (perfect fit): " +
				"0-20 no alignment, 21-40 minimal, 41-60 moderate, 61-80 strong, 81-100 excellent. " +
				"Justify each score with specific evidence, then provide a topic match analysis and a final summary.",
			UserPrompt: prompt,
			Schema:     analysisSchema,
		})
		if callErr != nil {
			return callErr
		}
		return json.Unmarshal(raw, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// finalWeightedScore implements spec.md §4.5 step 5's exact formula:
// round(Σ score_i·weight_i / Σ weight_i), clamped to [0,100]. Any scored
// criterion absent from the checklist (the LLM renamed or invented one)
// falls back to a default weight of 1, matching checklist_map.get(c, 1)
// in the original.
func finalWeightedScore(scores []CriterionScore, checklist []ChecklistCriterion) int {
	weights := make(map[string]int, len(checklist))
	for _, c := range checklist {
		weights[c.Criterion] = c.Weight
	}

	var totalScore, totalWeight float64
	for _, s := range scores {
		weight, ok := weights[s.Criterion]
		if !ok {
			weight = 1
		}
		totalScore += float64(s.Score * weight)
		totalWeight += float64(weight)
	}
	if totalWeight == 0 {
		return 0
	}

	final := int(math.Round(totalScore / totalWeight))
	if final < 0 {
		return 0
	}
	if final > 100 {
		return 100
	}
	return final
}

func capped(in []string, n int) []string {
	if len(in) <= n {
		return in
	}
	return in[:n]
}

// Evidence builds the structured text block the scoring prompt evaluates
// against: media overview, up to 5 recent episodes, and their aggregate
// summary text. Episode theme/keyword frequency analysis from the original
// agent is not reproduced here since episodes in this schema carry only a
// summary field, not extracted themes/keywords.
func Evidence(media *store.Media, episodes []store.Episode) string {
	var b strings.Builder
	b.WriteString("=== PODCAST OVERVIEW ===\n")
	fmt.Fprintf(&b, "Podcast Name: %s\n", media.Name)
	fmt.Fprintf(&b, "Description: %s\n", media.Description)
	fmt.Fprintf(&b, "AI-Generated Description: %s\n", derefOrEmpty(media.AIDescription))
	fmt.Fprintf(&b, "Host(s): %s\n", strings.Join(media.HostNames, ", "))
	fmt.Fprintf(&b, "Total Episodes: %d\n", media.TotalEpisodes)
	if media.QualityScore != nil {
		fmt.Fprintf(&b, "Quality Score: %.2f\n", *media.QualityScore)
	}

	if len(episodes) > 0 {
		b.WriteString("\n=== RECENT EPISODES ===\n")
		limit := len(episodes)
		if limit > 5 {
			limit = 5
		}
		for i, ep := range episodes[:limit] {
			fmt.Fprintf(&b, "\nEpisode %d:\n", i+1)
			fmt.Fprintf(&b, "- Title: %s\n", ep.Title)
			if ep.PublishDate != nil {
				fmt.Fprintf(&b, "- Published: %s\n", ep.PublishDate.Format("2006-01-02"))
			}
			summary := derefOrEmpty(ep.AIEpisodeSummary)
			if summary == "" {
				summary = derefOrEmpty(ep.EpisodeSummary)
			}
			fmt.Fprintf(&b, "- Summary: %s\n", summary)
		}
	}

	return b.String()
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
