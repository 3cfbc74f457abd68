package memory

import (
	"context"
	"sync"

	"prepmaster-service/internal/app"
	"prepmaster-service/internal/domain"
)

// FeedStore keeps live feeds for this process only.
type FeedStore struct {
	mu    sync.RWMutex
	feeds map[string]*app.Feed
}

func NewFeedStore() *FeedStore {
	return &FeedStore{
		feeds: make(map[string]*app.Feed),
	}
}

func (s *FeedStore) Acquire(testID string) *app.Feed {
	s.mu.Lock()
	defer s.mu.Unlock()
	feed, ok := s.feeds[testID]
	if !ok {
		feed = app.NewFeed(testID)
		s.feeds[testID] = feed
	}
	feed.Acquire()
	return feed
}

func (s *FeedStore) Release(testID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	feed, ok := s.feeds[testID]
	if !ok {
		return false
	}
	if feed.Release() {
		delete(s.feeds, testID)
		return true
	}
	return false
}

func (s *FeedStore) Get(testID string) (*app.Feed, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	feed, ok := s.feeds[testID]
	return feed, ok
}

func (s *FeedStore) Publish(_ context.Context, subject string, r domain.Result) {
	if feed, ok := s.Get(r.TestID); ok {
		feed.Record(subject, r)
	}
}

// TestIDs lists the tests that currently have a feed.
func (s *FeedStore) TestIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.feeds))
	for id := range s.feeds {
		ids = append(ids, id)
	}
	return ids
}
