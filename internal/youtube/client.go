// Package youtube fetches top-level video comments from the YouTube Data API.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/resilience"
)

const maxPageSize = 100

// Config controls the API client.
type Config struct {
	APIKey       string
	Endpoint     string
	MaxComments  int
	FetchTimeout time.Duration
	// HTTPClient replaces the default transport; the API key is not sent
	// when it is set.
	HTTPClient *http.Client
	Retry      resilience.RetryConfig
	Breaker    resilience.CircuitBreakerConfig
}

// Client lists comment threads for a video.
type Client struct {
	service *yt.Service
	cfg     Config
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewClient builds the API service. m may be nil.
func NewClient(ctx context.Context, cfg Config, m *metrics.Metrics) (*Client, error) {
	if cfg.MaxComments <= 0 {
		cfg.MaxComments = maxPageSize
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	var opts []option.ClientOption
	switch {
	case cfg.HTTPClient != nil:
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	default:
		return nil, errors.New("youtube api key is not configured")
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	service, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating youtube service: %w", err)
	}

	breakerCfg := cfg.Breaker
	breakerCfg.IsFailure = func(err error) bool {
		return errors.Is(err, apperrors.ErrUpstream) || errors.Is(err, apperrors.ErrTimeout)
	}
	return &Client{
		service: service,
		cfg:     cfg,
		breaker: resilience.NewCircuitBreaker("youtube", breakerCfg),
		metrics: m,
		logger:  slog.Default().With("component", "youtube-client"),
	}, nil
}

// Comments returns up to MaxComments top-level comment texts for videoID,
// most relevant first.
func (c *Client) Comments(ctx context.Context, videoID string) ([]string, error) {
	start := time.Now()
	var comments []string
	err := resilience.Retry(ctx, "youtube-comments", c.retryConfig(), func() error {
		return c.breaker.Execute(func() error {
			var err error
			comments, err = c.fetch(ctx, videoID)
			return err
		})
	})
	if c.metrics != nil {
		c.metrics.CommentFetchLatency.Observe(time.Since(start).Seconds())
		c.metrics.CircuitBreakerState.WithLabelValues("youtube").Set(float64(c.breaker.GetState()))
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Warn("youtube circuit open, skipping fetch",
			"video_id", videoID,
			"consecutive_failures", c.breaker.Failures(),
		)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUpstream, err)
	}
	if err != nil {
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.CommentsFetched.Observe(float64(len(comments)))
	}
	c.logger.Debug("comments fetched", "video_id", videoID, "count", len(comments), "duration", time.Since(start))
	return comments, nil
}

func (c *Client) retryConfig() resilience.RetryConfig {
	cfg := c.cfg.Retry
	cfg.Retryable = func(err error) bool {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code < 500 {
			return false
		}
		return errors.Is(err, apperrors.ErrUpstream) || errors.Is(err, apperrors.ErrTimeout)
	}
	return cfg
}

func (c *Client) fetch(ctx context.Context, videoID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	comments := make([]string, 0, min(c.cfg.MaxComments, maxPageSize))
	pageToken := ""
	for len(comments) < c.cfg.MaxComments {
		call := c.service.CommentThreads.List([]string{"snippet"}).
			VideoId(videoID).
			MaxResults(int64(min(c.cfg.MaxComments-len(comments), maxPageSize))).
			TextFormat("plainText").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, mapError(ctx, err)
		}
		for _, item := range resp.Items {
			if item.Snippet == nil || item.Snippet.TopLevelComment == nil || item.Snippet.TopLevelComment.Snippet == nil {
				continue
			}
			comments = append(comments, item.Snippet.TopLevelComment.Snippet.TextDisplay)
			if len(comments) == c.cfg.MaxComments {
				break
			}
		}
		if resp.NextPageToken == "" || len(resp.Items) == 0 {
			break
		}
		pageToken = resp.NextPageToken
	}
	return comments, nil
}

// mapError translates API failures into the service's error kinds. The
// underlying error is kept in the chain for logging.
func mapError(ctx context.Context, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		for _, item := range gerr.Errors {
			switch item.Reason {
			case "commentsDisabled":
				return fmt.Errorf("%w: %w", apperrors.ErrCommentsDisabled, err)
			case "videoNotFound":
				return fmt.Errorf("%w: %w", apperrors.ErrVideoNotFound, err)
			}
		}
		if gerr.Code == http.StatusNotFound {
			return fmt.Errorf("%w: %w", apperrors.ErrVideoNotFound, err)
		}
		return fmt.Errorf("%w: youtube api returned %d: %w", apperrors.ErrUpstream, gerr.Code, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: fetching comments: %w", apperrors.ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", apperrors.ErrUpstream, err)
}
