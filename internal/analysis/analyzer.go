// Package analysis turns a YouTube video URL into a positive/negative tally of
// its comments and serves that over HTTP.
package analysis

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/history"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/sentiment"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/internal/youtube"
	apperrors "github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/tracing"
)

const historyTimeout = 2 * time.Second

// Fetcher returns the top-level comment texts of a video.
type Fetcher interface {
	Comments(ctx context.Context, videoID string) ([]string, error)
}

// Classifier counts positive and negative texts.
type Classifier interface {
	Start(ctx context.Context)
	Available() bool
	Classify(ctx context.Context, batch []string) (sentiment.Tally, error)
}

// Tracker receives one event per analysis.
type Tracker interface {
	Track(event analytics.AnalysisEvent)
}

// Recorder persists completed analyses.
type Recorder interface {
	Record(ctx context.Context, r history.Record) (int64, error)
}

// Result is the tally for one video.
type Result struct {
	VideoID  string `json:"video_id"`
	Positive int    `json:"positive"`
	Negative int    `json:"negative"`
	Total    int    `json:"total"`
	Cached   bool   `json:"-"`
}

// Deps wires an Analyzer. Fetcher and Classifier are required; the rest may
// be nil.
type Deps struct {
	Fetcher    Fetcher
	Classifier Classifier
	Cache      *ResultCache
	Tracker    Tracker
	Recorder   Recorder
	Metrics    *metrics.Metrics
}

type Analyzer struct {
	deps Deps
}

func NewAnalyzer(deps Deps) *Analyzer {
	if deps.Cache == nil {
		deps.Cache = NewResultCache(nil, 0, deps.Metrics)
	}
	return &Analyzer{deps: deps}
}

// Analyze resolves rawURL to a video, fetches its comments and classifies
// them. The model is checked before any comments are fetched so an
// unavailable service does not spend API quota.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string) (Result, error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "analyze", logger.RequestID(ctx))
	defer span.Finish(logger.FromContext(ctx))

	result, err := a.analyze(ctx, rawURL)
	span.RecordError(err)
	span.SetAttr("video_id", result.VideoID)
	span.SetAttr("cached", result.Cached)

	a.report(ctx, result, err, time.Since(start))
	return result, err
}

func (a *Analyzer) analyze(ctx context.Context, rawURL string) (Result, error) {
	videoID, err := youtube.ExtractVideoID(rawURL)
	if err != nil {
		return Result{}, err
	}

	a.deps.Classifier.Start(ctx)
	if !a.deps.Classifier.Available() {
		return Result{VideoID: videoID}, apperrors.ErrModelUnavailable
	}

	result, cached, err := a.deps.Cache.GetOrCompute(ctx, videoID, func() (Result, error) {
		return a.compute(ctx, videoID)
	})
	if err != nil {
		return Result{VideoID: videoID}, err
	}
	result.Cached = cached
	return result, nil
}

func (a *Analyzer) compute(ctx context.Context, videoID string) (Result, error) {
	fetchCtx, fetchSpan := tracing.StartChildSpan(ctx, "fetch_comments")
	comments, err := a.deps.Fetcher.Comments(fetchCtx, videoID)
	fetchSpan.SetAttr("comments", len(comments))
	fetchSpan.RecordError(err)
	fetchSpan.End()
	if err != nil {
		return Result{}, err
	}

	classifyCtx, classifySpan := tracing.StartChildSpan(ctx, "classify")
	tally, err := a.deps.Classifier.Classify(classifyCtx, comments)
	classifySpan.RecordError(err)
	classifySpan.End()
	if err != nil {
		return Result{}, err
	}

	return Result{
		VideoID:  videoID,
		Positive: tally.Positive,
		Negative: tally.Negative,
		Total:    tally.Total(),
	}, nil
}

func (a *Analyzer) report(ctx context.Context, result Result, err error, elapsed time.Duration) {
	kind := apperrors.Kind(err)
	if a.deps.Metrics != nil {
		a.deps.Metrics.AnalysesTotal.WithLabelValues(kind).Inc()
	}

	requestID := logger.RequestID(ctx)
	if a.deps.Tracker != nil {
		event := analytics.AnalysisEvent{
			VideoID:   result.VideoID,
			Positive:  result.Positive,
			Negative:  result.Negative,
			Total:     result.Total,
			Cached:    result.Cached,
			LatencyMs: elapsed.Milliseconds(),
			RequestID: requestID,
			Timestamp: time.Now().UTC(),
		}
		if err != nil {
			event.ErrorKind = kind
		}
		a.deps.Tracker.Track(event)
	}

	if err != nil || a.deps.Recorder == nil {
		return
	}
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
	defer cancel()
	if _, recErr := a.deps.Recorder.Record(recCtx, history.Record{
		VideoID:   result.VideoID,
		Positive:  result.Positive,
		Negative:  result.Negative,
		Total:     result.Total,
		RequestID: requestID,
	}); recErr != nil {
		logger.FromContext(ctx).Warn("recording analysis failed",
			"component", "analyzer",
			"video_id", result.VideoID,
			"error", recErr,
		)
	}
}
