package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/comment-sentiment/pkg/kafka"
)

type recordingPublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (p *recordingPublisher) PublishBatch(ctx context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, append([]kafka.Event(nil), events...))
	return p.err
}

func (p *recordingPublisher) events() []kafka.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var all []kafka.Event
	for _, b := range p.batches {
		all = append(all, b...)
	}
	return all
}

func TestCollectorFlushesOnBatchSize(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, CollectorConfig{BatchSize: 2, FlushInterval: time.Hour})
	c.Start(context.Background())

	c.Track(AnalysisEvent{VideoID: "aaaaaaaaaaa"})
	c.Track(AnalysisEvent{VideoID: "bbbbbbbbbbb"})
	require.Eventually(t, func() bool { return len(pub.events()) == 2 }, time.Second, 5*time.Millisecond)

	got := pub.events()
	assert.Equal(t, "aaaaaaaaaaa", got[0].Key)
	assert.Equal(t, AnalysisEvent{VideoID: "bbbbbbbbbbb"}, got[1].Value)
	c.Close()
}

func TestCollectorFlushesOnInterval(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, CollectorConfig{BatchSize: 100, FlushInterval: 10 * time.Millisecond})
	c.Start(context.Background())
	defer c.Close()

	c.Track(AnalysisEvent{VideoID: "aaaaaaaaaaa"})
	require.Eventually(t, func() bool { return len(pub.events()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestCollectorCloseFlushesPending(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, CollectorConfig{BatchSize: 100, FlushInterval: time.Hour})
	c.Start(context.Background())
	for i := 0; i < 5; i++ {
		c.Track(AnalysisEvent{VideoID: "aaaaaaaaaaa"})
	}
	c.Close()
	assert.Len(t, pub.events(), 5)

	// tracking after close is a no-op rather than a panic
	c.Track(AnalysisEvent{VideoID: "late"})
	c.Close()
}

func TestCollectorDropsWhenFull(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, CollectorConfig{BufferSize: 2})
	// loop not started, so the buffer never drains
	c.Track(AnalysisEvent{})
	c.Track(AnalysisEvent{})
	c.Track(AnalysisEvent{})
	assert.Equal(t, int64(1), c.Dropped())
}

func TestCollectorSurvivesPublishErrors(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	c := NewCollector(pub, CollectorConfig{BatchSize: 1, FlushInterval: time.Hour})
	c.Start(context.Background())
	c.Track(AnalysisEvent{VideoID: "aaaaaaaaaaa"})
	c.Track(AnalysisEvent{VideoID: "bbbbbbbbbbb"})
	c.Close()
	assert.Len(t, pub.events(), 2)
}
