package analytics

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func feed(t *testing.T, agg *Aggregator, event any) {
	t.Helper()
	value, err := json.Marshal(event)
	if err != nil {
		t.Fatal(err)
	}
	if err := HandleEvent(agg)(context.Background(), []byte("analytics"), value); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
}

func TestAggregatorCounts(t *testing.T) {
	agg := NewAggregator()

	feed(t, agg, LookupEvent{
		Type: EventLookup, Word: "big", SynonymCount: 2,
		CacheHit: true, LatencyMs: 3, Timestamp: time.Now().UTC(),
	})
	feed(t, agg, LookupEvent{
		Type: EventLookup, Word: "big", SynonymCount: 2,
		LatencyMs: 7, Timestamp: time.Now().UTC(),
	})
	feed(t, agg, LookupEvent{
		Type: EventLookup, Word: "missing", SynonymCount: 0,
		LatencyMs: 1, Timestamp: time.Now().UTC(),
	})
	feed(t, agg, MutationEvent{
		Type: EventMutation, Op: "add", WordCount: 2,
		Timestamp: time.Now().UTC(),
	})

	stats := agg.Stats()
	if stats.TotalLookups != 3 {
		t.Errorf("TotalLookups = %d, want 3", stats.TotalLookups)
	}
	if stats.TotalMutations != 1 {
		t.Errorf("TotalMutations = %d, want 1", stats.TotalMutations)
	}
	if stats.CacheHits != 1 || stats.CacheMisses != 2 {
		t.Errorf("cache hits/misses = %d/%d, want 1/2", stats.CacheHits, stats.CacheMisses)
	}
	if stats.EmptyLookups != 1 {
		t.Errorf("EmptyLookups = %d, want 1", stats.EmptyLookups)
	}
	if len(stats.TopWords) == 0 || stats.TopWords[0].Word != "big" || stats.TopWords[0].Count != 2 {
		t.Errorf("TopWords = %v, want big leading with count 2", stats.TopWords)
	}
	if len(stats.EmptyLookupWords) != 1 || stats.EmptyLookupWords[0].Word != "missing" {
		t.Errorf("EmptyLookupWords = %v, want [missing]", stats.EmptyLookupWords)
	}
}

func TestHandleEventIgnoresGarbage(t *testing.T) {
	agg := NewAggregator()
	if err := HandleEvent(agg)(context.Background(), nil, []byte("{not json")); err != nil {
		t.Fatalf("HandleEvent returned error for garbage, want nil: %v", err)
	}
	if err := HandleEvent(agg)(context.Background(), nil, []byte(`{"type":"unknown"}`)); err != nil {
		t.Fatalf("HandleEvent returned error for unknown type, want nil: %v", err)
	}
	if got := agg.Stats().TotalLookups; got != 0 {
		t.Fatalf("TotalLookups = %d, want 0", got)
	}
}
