package app

import (
	"context"
	"sync"
	"time"

	"prepmaster-service/internal/domain"
)

// Feed is the in-memory live analytics view of one test. It fans snapshots
// out to subscribers after every recorded result.
type Feed struct {
	testID      string
	subject     string
	now         func() time.Time
	mu          sync.RWMutex
	seeded      bool
	holds       int
	acc         *accumulator
	subscribers map[chan domain.TestSnapshot]struct{}
}

// NewFeed is exported for infrastructure layers that need to create feeds.
func NewFeed(testID string) *Feed {
	return newFeedWithClock(testID, time.Now)
}

// NewFeedWithClock is test-only for deterministic timestamps.
func NewFeedWithClock(testID string, now func() time.Time) *Feed {
	return newFeedWithClock(testID, now)
}

func newFeedWithClock(testID string, now func() time.Time) *Feed {
	return &Feed{
		testID:      testID,
		now:         now,
		acc:         newAccumulator(),
		subscribers: make(map[chan domain.TestSnapshot]struct{}),
	}
}

// seed folds in results that were stored before the feed existed. Results
// already recorded are skipped, so seed and record may race freely.
func (f *Feed) seed(subject string, results []domain.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seeded {
		return
	}
	f.seeded = true
	f.subject = subject
	for _, r := range results {
		f.acc.add(subject, r)
	}
	f.broadcastLocked()
}

func (f *Feed) isSeeded() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.seeded
}

// Record folds a freshly stored result into the feed and notifies
// subscribers. Results already seen are ignored.
func (f *Feed) Record(subject string, r domain.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subject == "" {
		f.subject = subject
	}
	if f.acc.add(subject, r) {
		f.broadcastLocked()
	}
}

// Snapshot returns the current view.
func (f *Feed) Snapshot() domain.TestSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.snapshotLocked()
}

// Acquire reserves the feed for a watcher that is about to subscribe.
// FeedRepository implementations call it under their own lock so a feed
// is never dropped between lookup and subscription.
func (f *Feed) Acquire() {
	f.mu.Lock()
	f.holds++
	f.mu.Unlock()
}

// Release gives back one hold and reports whether the feed is now idle.
func (f *Feed) Release() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.holds > 0 {
		f.holds--
	}
	return f.holds == 0
}

// IsIdle reports whether no watcher holds the feed.
func (f *Feed) IsIdle() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.holds == 0
}

func (f *Feed) subscribe() (<-chan domain.TestSnapshot, func()) {
	ch := make(chan domain.TestSnapshot, 8)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	// The channel is empty and broadcasts need the lock, so this cannot block.
	ch <- f.snapshotLocked()
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

func (f *Feed) broadcastLocked() {
	snap := f.snapshotLocked()
	for ch := range f.subscribers {
		select {
		case ch <- snap:
		default:
			// Slow subscriber: drop its oldest snapshot so the newest always lands.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (f *Feed) snapshotLocked() domain.TestSnapshot {
	return domain.TestSnapshot{
		TestID:        f.testID,
		Submissions:   f.acc.results,
		AverageScore:  f.acc.average(),
		TopicAverages: f.acc.topicAverages(),
		UpdatedAt:     f.now(),
	}
}

// SubscribeFeed returns a channel of live snapshots for a test. Admin only.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Service) SubscribeFeed(ctx context.Context, caller Caller, testID string) (<-chan domain.TestSnapshot, func(), error) {
	if !caller.IsAdmin() {
		return nil, nil, domain.ErrForbidden
	}
	test, err := s.tests.GetTest(ctx, testID)
	if err != nil {
		return nil, nil, err
	}

	feed := s.feeds.Acquire(testID)
	if !feed.isSeeded() {
		results, err := s.results.ListResults(ctx, ResultFilter{TestIDs: []string{testID}})
		if err != nil {
			s.feeds.Release(testID)
			return nil, nil, err
		}
		feed.seed(test.Subject, results)
	}

	ch, unsubscribe := feed.subscribe()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			unsubscribe()
			s.feeds.Release(testID)
		})
	}, nil
}

// publishToFeed pushes a fresh result to live subscribers, if any.
func (s *Service) publishToFeed(ctx context.Context, subject string, r domain.Result) {
	if s.feeds == nil {
		return
	}
	s.feeds.Publish(ctx, subject, r)
}
