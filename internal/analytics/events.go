package analytics

import "time"

type EventType string

const (
	EventLookup    EventType = "lookup"
	EventLookupAll EventType = "lookup_all"
	EventMutation  EventType = "mutation"
)

// LookupEvent records a single synonym lookup.
type LookupEvent struct {
	Type         EventType `json:"type"`
	Word         string    `json:"word,omitempty"`
	SynonymCount int       `json:"synonym_count"`
	CacheHit     bool      `json:"cache_hit"`
	LatencyMs    int64     `json:"latency_ms"`
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id"`
}

// MutationEvent records a dictionary write: a pair add, a chain add, or a
// clear.
type MutationEvent struct {
	Type      EventType `json:"type"`
	Op        string    `json:"op"`
	WordCount int       `json:"word_count"`
	Outcomes  []string  `json:"outcomes,omitempty"`
	Words     int       `json:"dictionary_words"`
	Groups    int       `json:"dictionary_groups"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}
