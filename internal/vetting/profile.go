// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

package vetting

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/patrhick1/pgl-pipeline/internal/store"
)

// ClientProfile is the campaign-side input to vetting: the client's ideal
// podcast description plus whatever expertise/audience signals the intake
// questionnaire captured.
type ClientProfile struct {
	IdealPodcastDescription string
	ExpertiseTopics         []string
	SuggestedTopics         []string
	KeyMessages             []string
	ContentThemes           []string
	AudienceRequirements    map[string]string
	PreviousShowTypes       []string
	PromotionItems          []string
}

var topicSplitter = regexp.MustCompile(`\d+\.\s*|\n|,`)

// ExtractClientProfile pulls every field the vetting checklist/scoring
// prompts need out of a campaign's free-form questionnaire_responses blob,
// deduplicating and dropping empties the way the original vetting agent
// does.
func ExtractClientProfile(c *store.Campaign) ClientProfile {
	p := ClientProfile{AudienceRequirements: map[string]string{}}
	if c.IdealPodcastDescription != nil {
		p.IdealPodcastDescription = *c.IdealPodcastDescription
	}

	q := c.QuestionnaireResponses
	if q == nil {
		return p
	}

	if bio, ok := asMap(q["professionalBio"]); ok {
		p.ExpertiseTopics = append(p.ExpertiseTopics, splitCommaList(bio["expertiseTopics"])...)
	}

	if suggested, ok := asMap(q["suggestedTopics"]); ok {
		if topics, ok := suggested["topics"].(string); ok && topics != "" {
			for _, t := range topicSplitter.Split(topics, -1) {
				if trimmed := strings.TrimSpace(t); trimmed != "" {
					p.SuggestedTopics = append(p.SuggestedTopics, trimmed)
				}
			}
		} else {
			p.SuggestedTopics = append(p.SuggestedTopics, splitCommaList(suggested["topics"])...)
		}
		if stories, ok := suggested["keyStoriesOrMessages"].(string); ok && stories != "" {
			p.KeyMessages = append(p.KeyMessages, stories)
		}
	}

	if social, ok := asMap(q["social_enrichment"]); ok {
		p.ExpertiseTopics = append(p.ExpertiseTopics, splitCommaList(social["expertise_topics"])...)
		p.KeyMessages = append(p.KeyMessages, splitCommaList(social["key_messages"])...)
		p.ContentThemes = append(p.ContentThemes, splitCommaList(social["content_themes"])...)
	}

	if glance, ok := asMap(q["atAGlanceStats"]); ok {
		p.AudienceRequirements["email_subscribers"] = fmt.Sprint(glance["emailSubscribers"])
		p.AudienceRequirements["years_experience"] = fmt.Sprint(glance["yearsOfExperience"])
		p.AudienceRequirements["keynote_engagements"] = fmt.Sprint(glance["keynoteEngagements"])
	}

	if mediaExp, ok := asMap(q["mediaExperience"]); ok {
		if shows, ok := mediaExp["previousAppearances"].([]any); ok {
			for _, s := range shows {
				if show, ok := asMap(s); ok {
					if name, ok := show["showName"].(string); ok && name != "" {
						p.PreviousShowTypes = append(p.PreviousShowTypes, name)
					}
				}
			}
		}
	}

	if promo, ok := asMap(q["promotionPrefs"]); ok {
		if items, ok := promo["itemsToPromote"].(string); ok && items != "" {
			p.PromotionItems = append(p.PromotionItems, items)
		}
	}

	p.ExpertiseTopics = dedupeNonEmpty(p.ExpertiseTopics)
	p.SuggestedTopics = dedupeNonEmpty(p.SuggestedTopics)
	p.ContentThemes = dedupeNonEmpty(p.ContentThemes)
	p.KeyMessages = dropEmpty(p.KeyMessages)

	return p
}

// HasSufficientData matches the original agent's minimum bar: an ideal
// podcast description or at least one expertise topic.
func (p ClientProfile) HasSufficientData() bool {
	return p.IdealPodcastDescription != "" || len(p.ExpertiseTopics) > 0
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func splitCommaList(v any) []string {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return val
	case string:
		if val == "" {
			return nil
		}
		parts := strings.Split(val, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	default:
		return nil
	}
}

func dedupeNonEmpty(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func dropEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
