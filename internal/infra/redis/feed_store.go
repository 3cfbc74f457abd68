package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"prepmaster-service/internal/app"
	"prepmaster-service/internal/domain"
	"prepmaster-service/internal/infra/memory"
)

const feedChannel = "prepmaster:feed:results"

type feedMessage struct {
	Subject string        `json:"subject"`
	Result  domain.Result `json:"result"`
}

// FeedStore shares live feeds across instances. Feeds and their subscribers
// live in this process; results:feed:{testID} marks that some instance is
// watching a test, and stored results for marked tests are fanned out on
// feedChannel so every instance records them. Run must be running for
// results from other instances to arrive.
type FeedStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
	local  *memory.FeedStore
}

func NewFeedStore(client *redis.Client, ttl time.Duration, log *zap.Logger) *FeedStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &FeedStore{
		client: client,
		ttl:    ttl,
		log:    log,
		local:  memory.NewFeedStore(),
	}
}

func (s *FeedStore) Acquire(testID string) *app.Feed {
	feed := s.local.Acquire(testID)
	s.touch(context.Background(), testID)
	return feed
}

func (s *FeedStore) Release(testID string) bool {
	if !s.local.Release(testID) {
		return false
	}
	// Another instance may still watch the test; its refresh loop sets the
	// marker again within half a TTL.
	if err := s.client.Del(context.Background(), s.key(testID)).Err(); err != nil {
		s.log.Warn("clear feed marker", zap.String("test_id", testID), zap.Error(err))
	}
	return true
}

func (s *FeedStore) Get(testID string) (*app.Feed, bool) {
	return s.local.Get(testID)
}

// Publish records the result locally, then fans it out when any instance
// watches the test.
func (s *FeedStore) Publish(ctx context.Context, subject string, r domain.Result) {
	s.local.Publish(ctx, subject, r)
	if _, ok := s.local.Get(r.TestID); ok {
		s.touch(ctx, r.TestID)
	}

	watched, err := s.client.Exists(ctx, s.key(r.TestID)).Result()
	if err != nil {
		s.log.Warn("check feed marker", zap.String("test_id", r.TestID), zap.Error(err))
		return
	}
	if watched == 0 {
		return
	}
	payload, err := json.Marshal(feedMessage{Subject: subject, Result: r})
	if err != nil {
		s.log.Error("encode feed message", zap.String("result_id", r.ID), zap.Error(err))
		return
	}
	if err := s.client.Publish(ctx, feedChannel, payload).Err(); err != nil {
		s.log.Warn("publish feed message", zap.String("result_id", r.ID), zap.Error(err))
	}
}

// Run receives results published by other instances and keeps the markers of
// local feeds alive. It returns when ctx is done.
func (s *FeedStore) Run(ctx context.Context) error {
	sub := s.client.Subscribe(ctx, feedChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(s.refreshInterval())
	defer ticker.Stop()
	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			s.deliver(msg.Payload)
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *FeedStore) deliver(payload string) {
	var msg feedMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		s.log.Warn("decode feed message", zap.Error(err))
		return
	}
	// Own messages come back too; the feed ignores results it has seen.
	if feed, ok := s.local.Get(msg.Result.TestID); ok {
		feed.Record(msg.Subject, msg.Result)
	}
}

func (s *FeedStore) refresh(ctx context.Context) {
	for _, testID := range s.local.TestIDs() {
		s.touch(ctx, testID)
	}
}

func (s *FeedStore) touch(ctx context.Context, testID string) {
	if err := s.client.Set(ctx, s.key(testID), "1", s.ttl).Err(); err != nil {
		s.log.Warn("set feed marker", zap.String("test_id", testID), zap.Error(err))
	}
}

func (s *FeedStore) refreshInterval() time.Duration {
	if s.ttl <= 0 {
		return time.Minute
	}
	return s.ttl / 2
}

func (s *FeedStore) key(testID string) string {
	return "results:feed:" + testID
}

var _ app.FeedRepository = (*FeedStore)(nil)
