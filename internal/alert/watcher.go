// Package alert keeps a watchlist of students whose attendance has dropped below the
// defaulter threshold. It is fed by attendance.marked events.
package alert

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"

	"classroll/internal/attendance"
	"classroll/internal/metrics"
	"classroll/internal/queue"
)

// WatchlistKey is the Redis hash holding flagged students.
const WatchlistKey = "attendance:watchlist"

// Sink stores the watchlist.
type Sink interface {
	Flag(ctx context.Context, studentID string, s attendance.Stats) error
	Clear(ctx context.Context, studentID string) error
	Size(ctx context.Context) (int, error)
}

// StatsSource is satisfied by attendance.Ledger.
type StatsSource interface {
	Stats(ctx context.Context, s attendance.Scope) (attendance.Stats, error)
}

// Watcher re-evaluates a student every time one of their marks changes.
type Watcher struct {
	stats     StatsSource
	sink      Sink
	threshold float64
}

func NewWatcher(stats StatsSource, sink Sink, threshold float64) *Watcher {
	if threshold <= 0 {
		threshold = attendance.DefaultThreshold
	}
	return &Watcher{stats: stats, sink: sink, threshold: threshold}
}

// Run consumes q until ctx is done or the queue closes.
func (w *Watcher) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	for msg := range messages {
		if msg.Type != attendance.MarkedEventType {
			continue
		}
		var evt attendance.MarkedEvent
		if err := json.Unmarshal(msg.Body, &evt); err != nil {
			log.Printf("decode %s failed: %v", msg.Type, err)
			continue
		}
		if err := w.Handle(ctx, evt); err != nil {
			log.Printf("watchlist update for student %s failed: %v", evt.StudentID, err)
		}
	}
	return ctx.Err()
}

// Handle flags the student when below the threshold and clears them otherwise.
func (w *Watcher) Handle(ctx context.Context, evt attendance.MarkedEvent) error {
	st, err := w.stats.Stats(ctx, attendance.Scope{StudentID: evt.StudentID})
	if err != nil {
		return err
	}
	if st.Total > 0 && st.Percentage < w.threshold {
		err = w.sink.Flag(ctx, evt.StudentID, st)
	} else {
		err = w.sink.Clear(ctx, evt.StudentID)
	}
	if err != nil {
		return err
	}
	if n, err := w.sink.Size(ctx); err == nil {
		metrics.WatchlistSize.Set(float64(n))
	}
	return nil
}

// RedisSink stores the watchlist as a hash of student id to JSON stats.
type RedisSink struct {
	client *redis.Client
	key    string
}

func NewRedisSink(client *redis.Client) *RedisSink {
	return &RedisSink{client: client, key: WatchlistKey}
}

func (s *RedisSink) Flag(ctx context.Context, studentID string, st attendance.Stats) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.key, studentID, b).Err()
}

func (s *RedisSink) Clear(ctx context.Context, studentID string) error {
	return s.client.HDel(ctx, s.key, studentID).Err()
}

func (s *RedisSink) Size(ctx context.Context) (int, error) {
	n, err := s.client.HLen(ctx, s.key).Result()
	return int(n), err
}

// MemorySink is an in-process Sink for development and tests.
type MemorySink struct {
	mu      sync.Mutex
	flagged map[string]attendance.Stats
}

func NewMemorySink() *MemorySink {
	return &MemorySink{flagged: make(map[string]attendance.Stats)}
}

func (s *MemorySink) Flag(_ context.Context, studentID string, st attendance.Stats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flagged[studentID] = st
	return nil
}

func (s *MemorySink) Clear(_ context.Context, studentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flagged, studentID)
	return nil
}

func (s *MemorySink) Size(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.flagged), nil
}

// Get returns the stats a student was flagged with.
func (s *MemorySink) Get(studentID string) (attendance.Stats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.flagged[studentID]
	return st, ok
}
