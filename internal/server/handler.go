// Package server exposes the synonym dictionary over HTTP. It is a thin
// translation layer: parse parameters, call the index, map validation
// failures to 400s, and write JSON.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lexgrid/synonymd/internal/analytics"
	"github.com/lexgrid/synonymd/internal/cache"
	"github.com/lexgrid/synonymd/internal/synonym"
	apperrors "github.com/lexgrid/synonymd/pkg/errors"
	"github.com/lexgrid/synonymd/pkg/logger"
	"github.com/lexgrid/synonymd/pkg/metrics"
	"github.com/lexgrid/synonymd/pkg/middleware"
)

// AddRequest is the body of POST /api/v1/synonyms.
type AddRequest struct {
	Words []string `json:"words"`
}

// GetResponse is the body of GET /api/v1/synonyms.
type GetResponse struct {
	Word     string   `json:"word"`
	Synonyms []string `json:"synonyms"`
}

// GroupsResponse is the body of GET /api/v1/synonyms/groups.
type GroupsResponse struct {
	Groups [][]string `json:"groups"`
	Count  int        `json:"count"`
}

// Handler serves the synonym API. The cache, collector, and metrics are all
// optional; a nil field simply disables that concern.
type Handler struct {
	index     *synonym.Index
	cache     *cache.LookupCache
	collector *analytics.Collector
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func New(index *synonym.Index, lookupCache *cache.LookupCache, collector *analytics.Collector, m *metrics.Metrics) *Handler {
	return &Handler{
		index:     index,
		cache:     lookupCache,
		collector: collector,
		metrics:   m,
		logger:    logger.WithComponent("synonym-handler"),
	}
}

// Add handles POST /api/v1/synonyms. Two words add a pair; more words chain
// consecutive pairs. Success is 204; validation failures are 400 with the
// index's error message.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "request body must be JSON with a 'words' array")
		return
	}

	outcomes, err := h.index.Add(req.Words...)
	if err != nil {
		if h.metrics != nil {
			h.metrics.MutationsTotal.WithLabelValues("rejected").Inc()
		}
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}

	h.invalidateCache(r)
	if h.metrics != nil {
		for _, outcome := range outcomes {
			h.metrics.MutationsTotal.WithLabelValues(string(outcome)).Inc()
		}
		h.metrics.GroupSize.Observe(float64(len(h.index.Get(req.Words[0])) + 1))
		h.metrics.DictionaryWords.Set(float64(h.index.Len()))
		h.metrics.DictionaryGroups.Set(float64(h.index.GroupCount()))
	}

	log.Info("synonyms added",
		"word_count", len(req.Words),
		"outcomes", outcomes,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.track(analytics.MutationEvent{
		Type:      analytics.EventMutation,
		Op:        "add",
		WordCount: len(req.Words),
		Outcomes:  outcomeStrings(outcomes),
		Words:     h.index.Len(),
		Groups:    h.index.GroupCount(),
		LatencyMs: time.Since(start).Milliseconds(),
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(ctx),
	})

	w.WriteHeader(http.StatusNoContent)
}

// Get handles GET /api/v1/synonyms?word=w.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	word := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("word")))
	if word == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'word' is required")
		return
	}

	var synonyms []string
	cacheHit := false
	if h.cache != nil {
		synonyms, cacheHit = h.cache.GetOrCompute(ctx, word, func() []string {
			return h.index.Get(word)
		})
	} else {
		synonyms = h.index.Get(word)
	}

	if h.metrics != nil {
		result := "found"
		if len(synonyms) == 0 {
			result = "empty"
		}
		h.metrics.LookupsTotal.WithLabelValues(result).Inc()
		if h.cache != nil {
			if cacheHit {
				h.metrics.CacheHitsTotal.Inc()
			} else {
				h.metrics.CacheMissesTotal.Inc()
			}
		}
	}
	h.track(analytics.LookupEvent{
		Type:         analytics.EventLookup,
		Word:         word,
		SynonymCount: len(synonyms),
		CacheHit:     cacheHit,
		LatencyMs:    time.Since(start).Milliseconds(),
		Timestamp:    time.Now().UTC(),
		RequestID:    middleware.GetRequestID(ctx),
	})

	h.writeJSON(w, http.StatusOK, GetResponse{Word: word, Synonyms: synonyms})
}

// Groups handles GET /api/v1/synonyms/groups, dumping the full partition.
func (h *Handler) Groups(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	groups := h.index.GetAll()

	h.track(analytics.LookupEvent{
		Type:         analytics.EventLookupAll,
		SynonymCount: len(groups),
		LatencyMs:    time.Since(start).Milliseconds(),
		Timestamp:    time.Now().UTC(),
		RequestID:    middleware.GetRequestID(ctx),
	})

	h.writeJSON(w, http.StatusOK, GroupsResponse{Groups: groups, Count: len(groups)})
}

// Clear handles DELETE /api/v1/synonyms, emptying the dictionary.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	h.index.Clear()
	h.invalidateCache(r)

	if h.metrics != nil {
		h.metrics.MutationsTotal.WithLabelValues("clear").Inc()
		h.metrics.DictionaryWords.Set(0)
		h.metrics.DictionaryGroups.Set(0)
	}

	log.Info("dictionary cleared", "latency_ms", time.Since(start).Milliseconds())
	h.track(analytics.MutationEvent{
		Type:      analytics.EventMutation,
		Op:        "clear",
		LatencyMs: time.Since(start).Milliseconds(),
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(ctx),
	})

	w.WriteHeader(http.StatusNoContent)
}

// invalidateCache flushes cached lookups after a mutation. A failed flush is
// logged but does not fail the write; entries age out via the TTL.
func (h *Handler) invalidateCache(r *http.Request) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
	}
}

func (h *Handler) track(event any) {
	if h.collector != nil {
		h.collector.Track(event)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func outcomeStrings(outcomes []synonym.Outcome) []string {
	out := make([]string, len(outcomes))
	for i, o := range outcomes {
		out[i] = string(o)
	}
	return out
}
