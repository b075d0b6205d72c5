package vetting

import (
	"testing"

	"github.com/patrhick1/pgl-pipeline/internal/store"
)

func strPtr(s string) *string { return &s }

func TestExtractClientProfileParsesQuestionnaire(t *testing.T) {
	c := &store.Campaign{
		IdealPodcastDescription: strPtr("A show about B2B SaaS growth"),
		QuestionnaireResponses: map[string]any{
			"professionalBio": map[string]any{
				"expertiseTopics": "SaaS, Growth, Marketing",
			},
			"suggestedTopics": map[string]any{
				"topics":               "1. Pricing strategy\n2. Churn reduction",
				"keyStoriesOrMessages": "Grew ARR from 1M to 10M",
			},
			"atAGlanceStats": map[string]any{
				"emailSubscribers": "5000",
			},
			"promotionPrefs": map[string]any{
				"itemsToPromote": "New book launch",
			},
		},
	}

	p := ExtractClientProfile(c)

	if p.IdealPodcastDescription != "A show about B2B SaaS growth" {
		t.Fatalf("unexpected description: %q", p.IdealPodcastDescription)
	}
	if len(p.ExpertiseTopics) != 3 {
		t.Fatalf("expected 3 expertise topics, got %v", p.ExpertiseTopics)
	}
	if len(p.SuggestedTopics) != 2 {
		t.Fatalf("expected 2 suggested topics, got %v", p.SuggestedTopics)
	}
	if len(p.KeyMessages) != 1 {
		t.Fatalf("expected 1 key message, got %v", p.KeyMessages)
	}
	if p.AudienceRequirements["email_subscribers"] != "5000" {
		t.Fatalf("expected email subscribers captured, got %v", p.AudienceRequirements)
	}
	if len(p.PromotionItems) != 1 || p.PromotionItems[0] != "New book launch" {
		t.Fatalf("unexpected promotion items: %v", p.PromotionItems)
	}
}

func TestExtractClientProfileHandlesMissingQuestionnaire(t *testing.T) {
	c := &store.Campaign{IdealPodcastDescription: strPtr("desc")}
	p := ExtractClientProfile(c)
	if p.IdealPodcastDescription != "desc" {
		t.Fatalf("unexpected description: %q", p.IdealPodcastDescription)
	}
	if len(p.ExpertiseTopics) != 0 {
		t.Fatalf("expected no expertise topics, got %v", p.ExpertiseTopics)
	}
}

func TestHasSufficientData(t *testing.T) {
	empty := ClientProfile{}
	if empty.HasSufficientData() {
		t.Fatal("expected empty profile to be insufficient")
	}
	withDescription := ClientProfile{IdealPodcastDescription: "x"}
	if !withDescription.HasSufficientData() {
		t.Fatal("expected description alone to be sufficient")
	}
	withExpertise := ClientProfile{ExpertiseTopics: []string{"saas"}}
	if !withExpertise.HasSufficientData() {
		t.Fatal("expected expertise topics alone to be sufficient")
	}
}

func TestDedupeNonEmpty(t *testing.T) {
	got := dedupeNonEmpty([]string{"a", "", "a", "b"})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected dedupe result: %v", got)
	}
}
