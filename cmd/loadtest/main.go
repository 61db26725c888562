// Command loadtest hammers a running synonymd instance with a mixed
// add/lookup workload from many workers. Because merging is commutative and
// associative, any run must leave every chained word pool in a single group;
// the tool verifies that at the end in addition to reporting latencies.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	WriteRatio  float64
	WordCount   int
}

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	latencies     []time.Duration
	latenciesMu   sync.Mutex
	statusCodes   map[int]*atomic.Int64
	statusCodesMu sync.Mutex
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]*atomic.Int64),
	}
}

func (s *Stats) RecordRequest(duration time.Duration, statusCode int, err error) {
	s.totalRequests.Add(1)

	if err != nil {
		s.errorCount.Add(1)
		return
	}

	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}

	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, duration)
	s.latenciesMu.Unlock()

	s.statusCodesMu.Lock()
	if _, ok := s.statusCodes[statusCode]; !ok {
		s.statusCodes[statusCode] = &atomic.Int64{}
	}
	s.statusCodes[statusCode].Add(1)
	s.statusCodesMu.Unlock()
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the synonym service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	writeRatio := flag.Float64("writes", 0.2, "fraction of requests that add synonym pairs")
	wordCount := flag.Int("words", 512, "size of the word pool")
	flag.Parse()

	cfg := Config{
		BaseURL:     *baseURL,
		Concurrency: *concurrency,
		Duration:    *duration,
		WriteRatio:  *writeRatio,
		WordCount:   *wordCount,
	}

	fmt.Println("=== Synonym Service Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Write ratio: %.0f%%\n", cfg.WriteRatio*100)
	fmt.Printf("Word pool:   %d\n", cfg.WordCount)
	fmt.Println()

	words := makeWords(cfg.WordCount)
	stats := runLoadTest(cfg, words)
	printReport(stats, cfg.Duration)
	verifyConvergence(cfg, words)
}

func runLoadTest(cfg Config, words []string) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")

	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(workerID)))

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				var (
					req *http.Request
					err error
				)
				if rng.Float64() < cfg.WriteRatio {
					w1 := words[rng.Intn(len(words))]
					w2 := words[rng.Intn(len(words))]
					for w1 == w2 {
						w2 = words[rng.Intn(len(words))]
					}
					body, _ := json.Marshal(map[string][]string{"words": {w1, w2}})
					req, err = http.NewRequestWithContext(ctx, http.MethodPost,
						cfg.BaseURL+"/api/v1/synonyms", bytes.NewReader(body))
					if err == nil {
						req.Header.Set("Content-Type", "application/json")
					}
				} else {
					word := words[rng.Intn(len(words))]
					req, err = http.NewRequestWithContext(ctx, http.MethodGet,
						fmt.Sprintf("%s/api/v1/synonyms?word=%s", cfg.BaseURL, url.QueryEscape(word)), nil)
				}
				if err != nil {
					stats.RecordRequest(0, 0, err)
					continue
				}

				start := time.Now()
				resp, err := client.Do(req)
				duration := time.Since(start)

				if err != nil {
					stats.RecordRequest(duration, 0, err)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()

				stats.RecordRequest(duration, resp.StatusCode, nil)
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

// verifyConvergence chains the entire word pool into one group and checks
// that a lookup of the first word sees every other word, regardless of what
// partition the random writes left behind.
func verifyConvergence(cfg Config, words []string) {
	client := &http.Client{Timeout: 30 * time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	body, _ := json.Marshal(map[string][]string{"words": words})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		cfg.BaseURL+"/api/v1/synonyms", bytes.NewReader(body))
	if err != nil {
		fmt.Printf("convergence check skipped: %v\n", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("convergence check skipped: %v\n", err)
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	getResp, err := client.Get(fmt.Sprintf("%s/api/v1/synonyms?word=%s", cfg.BaseURL, url.QueryEscape(words[0])))
	if err != nil {
		fmt.Printf("convergence check skipped: %v\n", err)
		return
	}
	defer getResp.Body.Close()
	var payload struct {
		Synonyms []string `json:"synonyms"`
	}
	if err := json.NewDecoder(getResp.Body).Decode(&payload); err != nil {
		fmt.Printf("convergence check skipped: %v\n", err)
		return
	}

	fmt.Println()
	if len(payload.Synonyms) == len(words)-1 {
		fmt.Printf("Convergence OK: %q sees all %d other words\n", words[0], len(words)-1)
	} else {
		fmt.Printf("CONVERGENCE FAILED: %q sees %d of %d words\n", words[0], len(payload.Synonyms), len(words)-1)
		os.Exit(1)
	}
}

func makeWords(n int) []string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	seen := make(map[string]struct{}, n)
	words := make([]string, 0, n)
	for len(words) < n {
		b := make([]byte, 12)
		for i := range b {
			b[i] = letters[rng.Intn(len(letters))]
		}
		w := string(b)
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	return words
}

func printReport(stats *Stats, duration time.Duration) {
	total := stats.totalRequests.Load()
	success := stats.successCount.Load()
	errors := stats.errorCount.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", success)
	fmt.Printf("Errors:          %d\n", errors)

	if total > 0 {
		errorRate := float64(errors) / float64(total) * 100
		fmt.Printf("Error Rate:      %.2f%%\n", errorRate)
		rps := float64(total) / duration.Seconds()
		fmt.Printf("Requests/sec:    %.2f\n", rps)
	}

	stats.latenciesMu.Lock()
	latencies := make([]time.Duration, len(stats.latencies))
	copy(latencies, stats.latencies)
	stats.latenciesMu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool {
			return latencies[i] < latencies[j]
		})

		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		fmt.Println()
		fmt.Println("=== Latency ===")
		fmt.Printf("Min:    %s\n", latencies[0])
		fmt.Printf("Avg:    %s\n", avg)
		fmt.Printf("P50:    %s\n", percentile(latencies, 50))
		fmt.Printf("P90:    %s\n", percentile(latencies, 90))
		fmt.Printf("P95:    %s\n", percentile(latencies, 95))
		fmt.Printf("P99:    %s\n", percentile(latencies, 99))
		fmt.Printf("Max:    %s\n", latencies[len(latencies)-1])
	}

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	stats.statusCodesMu.Lock()
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		count := stats.statusCodes[code].Load()
		fmt.Printf("  %d: %d\n", code, count)
	}
	stats.statusCodesMu.Unlock()

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
