// Package analytics publishes per-request analysis events and aggregates
// them into service-level statistics in the analytics service.
package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/kafka"
)

const maxLatencySamples = 10000

// AggregatedStats is the snapshot served by GET /api/v1/analytics.
type AggregatedStats struct {
	TotalAnalyses      int64            `json:"total_analyses"`
	Succeeded          int64            `json:"succeeded"`
	Failed             int64            `json:"failed"`
	CacheHits          int64            `json:"cache_hits"`
	CacheMisses        int64            `json:"cache_misses"`
	CacheHitRate       float64          `json:"cache_hit_rate"`
	CommentsClassified int64            `json:"comments_classified"`
	Positive           int64            `json:"positive"`
	Negative           int64            `json:"negative"`
	PositiveRatio      float64          `json:"positive_ratio"`
	ErrorsByKind       map[string]int64 `json:"errors_by_kind"`
	AvgLatencyMs       float64          `json:"avg_latency_ms"`
	P50LatencyMs       int64            `json:"p50_latency_ms"`
	P95LatencyMs       int64            `json:"p95_latency_ms"`
	P99LatencyMs       int64            `json:"p99_latency_ms"`
	TopVideos          []VideoCount     `json:"top_videos"`
	AnalysesPerMinute  float64          `json:"analyses_per_minute"`
}

type VideoCount struct {
	VideoID string `json:"video_id"`
	Count   int64  `json:"count"`
}

// Aggregator folds AnalysisEvents into running totals. It is safe for
// concurrent use.
type Aggregator struct {
	mu           sync.RWMutex
	stats        AggregatedStats
	errorsByKind map[string]int64
	latencies    []int64
	next         int
	videoCounts  map[string]int64
	startTime    time.Time

	logger *slog.Logger
}

// NewAggregator creates an empty Aggregator. Events arrive through Record,
// usually via a Kafka consumer built with HandleEvent.
func NewAggregator() *Aggregator {
	return &Aggregator{
		errorsByKind: make(map[string]int64),
		latencies:    make([]int64, 0, 1024),
		videoCounts:  make(map[string]int64),
		startTime:    time.Now(),
		logger:       slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent decodes Kafka messages into the aggregator. Undecodable
// messages are logged and skipped so they do not block the partition.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[AnalysisEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode analysis event", "key", string(key), "error", err)
			return nil
		}
		agg.Record(event)
		return nil
	}
}

// Record adds one event to the totals.
func (a *Aggregator) Record(event AnalysisEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.TotalAnalyses++
	if !event.Succeeded() {
		a.stats.Failed++
		a.errorsByKind[event.ErrorKind]++
	} else {
		a.stats.Succeeded++
		if event.Cached {
			a.stats.CacheHits++
		} else {
			a.stats.CacheMisses++
		}
		a.stats.Positive += int64(event.Positive)
		a.stats.Negative += int64(event.Negative)
		a.stats.CommentsClassified += int64(event.Total)
		if event.VideoID != "" {
			a.videoCounts[event.VideoID]++
		}
	}

	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.next] = event.LatencyMs
		a.next = (a.next + 1) % maxLatencySamples
	}
}

// Stats returns a consistent snapshot of the current totals.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := a.stats
	stats.ErrorsByKind = make(map[string]int64, len(a.errorsByKind))
	for k, v := range a.errorsByKind {
		stats.ErrorsByKind[k] = v
	}
	if lookups := stats.CacheHits + stats.CacheMisses; lookups > 0 {
		stats.CacheHitRate = float64(stats.CacheHits) / float64(lookups)
	}
	if classified := stats.Positive + stats.Negative; classified > 0 {
		stats.PositiveRatio = float64(stats.Positive) / float64(classified)
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
	stats.TopVideos = topN(a.videoCounts, 10)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.AnalysesPerMinute = float64(stats.TotalAnalyses) / elapsed
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

func topN(counts map[string]int64, n int) []VideoCount {
	result := make([]VideoCount, 0, len(counts))
	for id, count := range counts {
		result = append(result, VideoCount{VideoID: id, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].VideoID < result[j].VideoID
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
