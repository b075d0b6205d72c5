// PGL Pipeline - Podcast Outreach Campaign Automation
// Copyright 2026 The PGL Pipeline Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/patrhick1/pgl-pipeline

// Package eventbus provides an in-process publish/subscribe bus carrying
// the pipeline's domain events between stages (discovery, enrichment,
// transcription, vetting, match creation, and the client-facing review
// decisions), plus an optional durable NATS JetStream mirror for
// multi-instance deployments.
package eventbus

import (
	"time"

	"github.com/goccy/go-json"
)

// Type identifies one of the pipeline's domain event kinds.
type Type string

const (
	MediaDiscovered       Type = "media_discovered"
	EpisodesFetched       Type = "episodes_fetched"
	EnrichmentCompleted   Type = "enrichment_completed"
	QualityScoreUpdated   Type = "quality_score_updated"
	EpisodeTranscribed    Type = "episode_transcribed"
	TranscriptionFailed   Type = "transcription_failed"
	MatchCreated          Type = "match_created"
	VettingCompleted      Type = "vetting_completed"
	MatchApproved         Type = "match_approved"
	MatchRejected         Type = "match_rejected"
	AutoDiscoveryComplete Type = "auto_discovery_completed"
)

// Event is the canonical event envelope published on the bus. Every
// domain occurrence the pipeline cares about is wrapped in one of
// these regardless of which stage produced it.
type Event struct {
	EventType  Type           `json:"event_type"`
	EntityID   string         `json:"entity_id"`
	EntityType string         `json:"entity_type"` // media, episode, match, campaign
	Data       map[string]any `json:"data"`
	Timestamp  time.Time      `json:"timestamp"`
	Source     string         `json:"source"`
}

// New builds an Event with its timestamp set, defaulting Source to
// "system" when the caller doesn't name one.
func New(eventType Type, entityType, entityID string, data map[string]any, source string) Event {
	if source == "" {
		source = "system"
	}
	if data == nil {
		data = map[string]any{}
	}
	return Event{
		EventType:  eventType,
		EntityID:   entityID,
		EntityType: entityType,
		Data:       data,
		Timestamp:  time.Now().UTC(),
		Source:     source,
	}
}

// Validate checks the fields every consumer depends on being present.
func (e Event) Validate() error {
	if e.EventType == "" {
		return &ValidationError{Field: "event_type", Message: "required"}
	}
	if e.EntityType == "" {
		return &ValidationError{Field: "entity_type", Message: "required"}
	}
	if e.EntityID == "" {
		return &ValidationError{Field: "entity_id", Message: "required"}
	}
	return nil
}

// Topic returns the routing key used for the bus's gochannel subject and
// the JetStream subject of the optional NATS mirror. It's keyed on the
// event type alone (not entity_type) since gochannel has no wildcard
// subscriptions — a handler that wants every event for an entity type
// filters EntityType itself after receiving it.
//
// Format: pipeline.<event_type>
func (e Event) Topic() string {
	return "pipeline." + string(e.EventType)
}

// Marshal serializes the event for transport over the NATS mirror.
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Unmarshal deserializes an event from transport bytes.
func Unmarshal(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

// ValidationError reports a missing or malformed Event field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
