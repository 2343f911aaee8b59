// SPDX-FileCopyrightText: 2026 Aizu Analytics, Inc.
// SPDX-License-Identifier: Apache-2.0

package model

// EventType enumerates the kinds of events accepted by the pipeline.
type EventType string

const (
	TypePageview      EventType = "pageview"
	TypeCustom        EventType = "custom"
	TypeIdentify      EventType = "identify"
	TypeGroupIdentify EventType = "group_identify"
)

// System property keys injected by the pipeline. They do not count against
// the caller-supplied property cap.
const (
	EventNameKey = "event_name"
	UserIDKey    = "$user_id"
	GroupIDKey   = "group_id"
	EmailKey     = "$email"
	FullNameKey  = "$full_name"
)

// MaxBatchSize is the hard cap on events per delivery request. Larger flushes
// are split into consecutive same-order sub-batches.
const MaxBatchSize = 1000

// Properties is an abstract json object attached to an event.
type Properties map[string]any

// Event is the unit moving through the pipeline. Once enqueued it is never
// mutated; sanitization happens strictly before construction.
type Event struct {
	// Type identifies which tracking call produced the event.
	Type EventType `json:"type"`

	// APIKey is the publishable key of the pipeline instance that captured
	// the event.
	APIKey string `json:"api_key"`

	// Href is the page URL the event was captured on, if any.
	Href string `json:"href,omitempty"`

	// AnonymousID and SessionID are snapshots of the identity state at
	// capture time.
	AnonymousID string `json:"anonymous_id"`
	SessionID   string `json:"session_id"`

	// Properties holds the sanitized payload.
	Properties Properties `json:"properties"`

	// Timestamp is the capture instant in epoch milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// Split partitions events into consecutive sub-batches of at most max events,
// preserving relative order. A nil or empty input yields no batches.
func Split(events []Event, max int) [][]Event {
	if max < 1 || len(events) == 0 {
		return nil
	}
	batches := make([][]Event, 0, (len(events)+max-1)/max)
	for len(events) > max {
		batches = append(batches, events[:max:max])
		events = events[max:]
	}
	return append(batches, events)
}
