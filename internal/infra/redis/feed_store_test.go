package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"prepmaster-service/internal/domain"
)

func TestFeedStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewFeedStore(newClient(mr), time.Minute, nil)

	_ = store.Acquire("test-1")
	if !mr.Exists("results:feed:test-1") {
		t.Fatalf("expected redis key to be set")
	}

	store.Release("test-1")
	if mr.Exists("results:feed:test-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("test-1"); ok {
		t.Fatalf("expected feed dropped")
	}
}

func TestFeedStoreKeepsMarkerAliveWhileWatched(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewFeedStore(newClient(mr), 10*time.Minute, nil)
	_ = store.Acquire("t1")

	mr.FastForward(6 * time.Minute)
	store.refresh(context.Background())
	mr.FastForward(6 * time.Minute)
	if !mr.Exists("results:feed:t1") {
		t.Fatalf("expected refreshed marker to outlive the original ttl")
	}

	mr.FastForward(6 * time.Minute)
	store.Publish(context.Background(), "Maths", domain.Result{ID: "r1", TestID: "t1"})
	mr.FastForward(6 * time.Minute)
	if !mr.Exists("results:feed:t1") {
		t.Fatalf("expected publish to refresh the marker")
	}
}

func TestFeedStoreFansOutAcrossInstances(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	submitter := NewFeedStore(newClient(mr), time.Minute, nil)
	watcher := NewFeedStore(newClient(mr), time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()
	waitFor(t, func() bool { return mr.PubSubNumSub(feedChannel)[feedChannel] == 1 })

	feed := watcher.Acquire("t1")
	submitter.Publish(ctx, "Maths", domain.Result{ID: "r1", TestID: "t1", PercentageScore: 75})
	waitFor(t, func() bool { return feed.Snapshot().Submissions == 1 })

	if snap := feed.Snapshot(); snap.AverageScore != 75 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if _, ok := submitter.Get("t1"); ok {
		t.Fatalf("expected no local feed on the submitting instance")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop after cancel")
	}
}

func TestFeedStoreSkipsFanOutForUnwatchedTests(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewFeedStore(newClient(mr), time.Minute, nil)
	store.Publish(context.Background(), "Maths", domain.Result{ID: "r1", TestID: "t1"})
	if mr.Exists("results:feed:t1") {
		t.Fatalf("expected no marker for an unwatched test")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
