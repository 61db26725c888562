package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lexgrid/synonymd/pkg/kafka"
)

// AggregatedStats is the JSON payload served by the analytics endpoint.
type AggregatedStats struct {
	TotalLookups     int64       `json:"total_lookups"`
	TotalMutations   int64       `json:"total_mutations"`
	CacheHits        int64       `json:"cache_hits"`
	CacheMisses      int64       `json:"cache_misses"`
	EmptyLookups     int64       `json:"empty_lookups"`
	AvgLatencyMs     float64     `json:"avg_latency_ms"`
	P50LatencyMs     int64       `json:"p50_latency_ms"`
	P95LatencyMs     int64       `json:"p95_latency_ms"`
	P99LatencyMs     int64       `json:"p99_latency_ms"`
	TopWords         []WordCount `json:"top_words"`
	EmptyLookupWords []WordCount `json:"empty_lookup_words"`
	LookupsPerMinute float64     `json:"lookups_per_minute"`
}

type WordCount struct {
	Word  string `json:"word"`
	Count int64  `json:"count"`
}

// Aggregator consumes analytics events from Kafka and keeps running
// counters, latency percentiles, and most-looked-up words.
type Aggregator struct {
	mu             sync.RWMutex
	totalLookups   atomic.Int64
	totalMutations atomic.Int64
	cacheHits      atomic.Int64
	cacheMisses    atomic.Int64
	emptyLookups   atomic.Int64
	latencies      []int64
	wordCounts     map[string]int64
	emptyWords     map[string]int64
	startTime      time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:  make([]int64, 0, 10000),
		wordCounts: make(map[string]int64),
		emptyWords: make(map[string]int64),
		startTime:  time.Now(),
		logger:     slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent returns a kafka.MessageHandler feeding the aggregator. Events
// are dispatched on their "type" field; unknown payloads are logged and
// dropped rather than failing the consumer loop.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		var envelope struct {
			Type EventType `json:"type"`
		}
		if err := json.Unmarshal(value, &envelope); err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		switch envelope.Type {
		case EventLookup, EventLookupAll:
			event, err := kafka.DecodeJSON[LookupEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode lookup event", "error", err)
				return nil
			}
			agg.recordLookup(event)
		case EventMutation:
			event, err := kafka.DecodeJSON[MutationEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode mutation event", "error", err)
				return nil
			}
			agg.recordMutation(event)
		default:
			agg.logger.Warn("unknown analytics event type", "type", envelope.Type)
		}
		return nil
	}
}

func (a *Aggregator) recordLookup(event LookupEvent) {
	a.totalLookups.Add(1)

	if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}
	if event.SynonymCount == 0 {
		a.emptyLookups.Add(1)
	}

	a.mu.Lock()
	a.latencies = append(a.latencies, event.LatencyMs)
	if event.Word != "" {
		a.wordCounts[event.Word]++
		if event.SynonymCount == 0 {
			a.emptyWords[event.Word]++
		}
	}
	a.mu.Unlock()
}

func (a *Aggregator) recordMutation(event MutationEvent) {
	a.totalMutations.Add(1)
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalLookups:   a.totalLookups.Load(),
		TotalMutations: a.totalMutations.Load(),
		CacheHits:      a.cacheHits.Load(),
		CacheMisses:    a.cacheMisses.Load(),
		EmptyLookups:   a.emptyLookups.Load(),
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopWords = topN(a.wordCounts, 10)
	stats.EmptyLookupWords = topN(a.emptyWords, 10)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.LookupsPerMinute = float64(stats.TotalLookups) / elapsed
	}

	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []WordCount {
	result := make([]WordCount, 0, len(counts))
	for word, count := range counts {
		result = append(result, WordCount{Word: word, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
