// Command loadtest drives a mixed autocomplete and search workload against a
// running search service and reports latency per operation.
//
// Usage:
//
//	go run ./cmd/loadtest [-url http://localhost:8080] [-concurrency 10] [-duration 30s]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"maps"
	"math"
	"net/http"
	"net/url"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Keywords    []string
	Platforms   []string
}

// Request is one planned call against the search service.
type Request struct {
	Operation string
	Path      string
}

// Stats records outcomes for a single operation.
type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	latencies     []time.Duration
	statusCodes   map[int]int64
	mu            sync.Mutex
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 10000),
		statusCodes: make(map[int]int64),
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

	s.mu.Lock()
	s.latencies = append(s.latencies, duration)
	s.statusCodes[statusCode]++
	s.mu.Unlock()
}

// Report is keyed by operation name.
type Report map[string]*Stats

var operations = []string{"autocomplete", "search", "substring", "platform"}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	flag.Parse()

	cfg := Config{
		BaseURL:     *baseURL,
		Concurrency: *concurrency,
		Duration:    *duration,
		Keywords: []string{
			"mo", "mobile", "mobile legends", "val", "valorant",
			"gen", "genshin", "steam", "play", "roblox",
			"diamonds", "skin", "points", "card", "pass",
		},
		Platforms: []string{"Mobile", "PC", "Console"},
	}

	fmt.Println("=== Storefront Search Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Keywords:    %d unique\n", len(cfg.Keywords))
	fmt.Println()

	report := runLoadTest(cfg)
	if !printReport(report, cfg.Duration) {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

// plan returns the n-th request of the workload. Operations rotate fastest so
// every keyword is exercised by every operation.
func plan(cfg Config, n int) Request {
	op := operations[n%len(operations)]
	keyword := cfg.Keywords[(n/len(operations))%len(cfg.Keywords)]
	q := url.Values{}
	q.Set("q", keyword)
	q.Set("limit", "10")

	switch op {
	case "autocomplete":
		return Request{Operation: op, Path: "/api/v1/autocomplete?" + q.Encode()}
	case "substring":
		return Request{Operation: op, Path: "/api/v1/search/substring?" + q.Encode()}
	case "platform":
		platform := cfg.Platforms[n%len(cfg.Platforms)]
		return Request{Operation: op, Path: "/api/v1/platforms/" + url.PathEscape(platform) + "/items?" + q.Encode()}
	default:
		return Request{Operation: op, Path: "/api/v1/search?" + q.Encode()}
	}
}

func runLoadTest(cfg Config) Report {
	report := make(Report, len(operations))
	for _, op := range operations {
		report[op] = NewStats()
	}
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

	var g errgroup.Group
	fmt.Print("Running")

	for w := range cfg.Concurrency {
		g.Go(func() error {
			for n := w; ctx.Err() == nil; n += cfg.Concurrency {
				req := plan(cfg, n)
				status, elapsed, err := call(ctx, client, cfg.BaseURL+req.Path)
				if ctx.Err() != nil {
					return nil
				}
				report[req.Operation].RecordRequest(elapsed, status, err)
			}
			return nil
		})
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

	_ = g.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return report
}

func call(ctx context.Context, client *http.Client, rawURL string) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("creating request: %w", err)
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, time.Since(start), err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode, time.Since(start), nil
}

// printReport writes the summary and reports whether any request completed.
func printReport(report Report, duration time.Duration) bool {
	var total int64
	for _, op := range operations {
		s := report[op]
		n := s.totalRequests.Load()
		total += n

		fmt.Printf("=== %s ===\n", op)
		fmt.Printf("Requests:     %d (ok %d, errors %d)\n", n, s.successCount.Load(), s.errorCount.Load())
		if n > 0 {
			fmt.Printf("Error Rate:   %.2f%%\n", float64(s.errorCount.Load())/float64(n)*100)
			fmt.Printf("Requests/sec: %.2f\n", float64(n)/duration.Seconds())
		}

		s.mu.Lock()
		latencies := slices.Clone(s.latencies)
		codes := make(map[int]int64, len(s.statusCodes))
		for code, count := range s.statusCodes {
			codes[code] = count
		}
		s.mu.Unlock()

		if len(latencies) > 0 {
			slices.Sort(latencies)
			fmt.Printf("Latency:      min %s  avg %s  p50 %s  p95 %s  p99 %s  max %s\n",
				latencies[0],
				mean(latencies),
				percentile(latencies, 50),
				percentile(latencies, 95),
				percentile(latencies, 99),
				latencies[len(latencies)-1],
			)
		}
		for _, code := range slices.Sorted(maps.Keys(codes)) {
			fmt.Printf("  %d: %d\n", code, codes[code])
		}
		fmt.Println()
	}
	fmt.Printf("Total Requests: %d\n", total)
	return total > 0
}

func mean(latencies []time.Duration) time.Duration {
	if len(latencies) == 0 {
		return 0
	}
	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	return sum / time.Duration(len(latencies))
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
