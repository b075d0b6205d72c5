package discovery

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/patrhick1/pgl-pipeline/internal/llm"
)

type fakeLLMClient struct {
	schemaResponse json.RawMessage
	schemaErr      error
	calls          int
}

func (f *fakeLLMClient) SchemaCall(ctx context.Context, req llm.SchemaRequest) (json.RawMessage, error) {
	f.calls++
	if f.schemaErr != nil {
		return nil, f.schemaErr
	}
	return f.schemaResponse, nil
}

func (f *fakeLLMClient) TextCall(ctx context.Context, req llm.TextRequest) (string, error) {
	return "", nil
}

func TestMapKeywordToTaxonomiesFiltersToAllowedIDs(t *testing.T) {
	fake := &fakeLLMClient{schemaResponse: json.RawMessage(`{"taxonomy_ids":["tech","bogus","business"]}`)}
	f := &Fetcher{LLM: fake}

	got, err := f.mapKeywordToTaxonomies(context.Background(), "startups", "listennotes", []string{"tech", "business"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "tech" || got[1] != "business" {
		t.Fatalf("expected [tech business], got %v", got)
	}
	if fake.calls != 1 {
		t.Fatalf("expected exactly one LLM call, got %d", fake.calls)
	}
}

func TestMapKeywordToTaxonomiesSkipsWhenAdapterHasNone(t *testing.T) {
	fake := &fakeLLMClient{}
	f := &Fetcher{LLM: fake}

	got, err := f.mapKeywordToTaxonomies(context.Background(), "startups", "listennotes", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil result for an adapter with no taxonomies, got %v", got)
	}
	if fake.calls != 0 {
		t.Fatalf("expected no LLM call when there are no taxonomies to map against, got %d", fake.calls)
	}
}

func TestMapKeywordToTaxonomiesReturnsNoneWhenLLMRejectsAll(t *testing.T) {
	fake := &fakeLLMClient{schemaResponse: json.RawMessage(`{"taxonomy_ids":[]}`)}
	f := &Fetcher{LLM: fake}

	got, err := f.mapKeywordToTaxonomies(context.Background(), "unrelated", "listennotes", []string{"tech"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected an empty mapping, got %v", got)
	}
}

func TestNilIfEmpty(t *testing.T) {
	if nilIfEmpty("") != nil {
		t.Fatal("expected nil for empty string")
	}
	got := nilIfEmpty("abc")
	if got == nil || *got != "abc" {
		t.Fatalf("expected pointer to \"abc\", got %v", got)
	}
}
