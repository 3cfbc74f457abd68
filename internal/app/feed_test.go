package app

import (
	"fmt"
	"testing"
	"time"

	"prepmaster-service/internal/domain"
)

func feedResult(id, student string, pct float64) domain.Result {
	return domain.Result{
		ID:              id,
		StudentID:       student,
		TestID:          "test-1",
		PercentageScore: pct,
		ChapterWiseAnalysis: []domain.ChapterAnalysis{
			{Topic: "Algebra", PercentageScore: pct},
		},
	}
}

func TestFeedSeedAndRecordDeduplicate(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	feed := NewFeedWithClock("test-1", func() time.Time { return at })

	feed.Record("Maths", feedResult("r1", "s1", 80))
	feed.seed("Maths", []domain.Result{feedResult("r1", "s1", 80), feedResult("r2", "s2", 40)})
	feed.Record("Maths", feedResult("r2", "s2", 40))

	snap := feed.Snapshot()
	if snap.Submissions != 2 || snap.AverageScore != 60 {
		t.Fatalf("expected 2 submissions averaging 60, got %+v", snap)
	}
	if len(snap.TopicAverages) != 1 || snap.TopicAverages[0].TotalStudents != 2 {
		t.Fatalf("unexpected topic averages %+v", snap.TopicAverages)
	}
	if !snap.UpdatedAt.Equal(at) {
		t.Fatalf("expected injected clock, got %v", snap.UpdatedAt)
	}
}

func TestFeedSlowSubscriberKeepsNewest(t *testing.T) {
	feed := NewFeed("test-1")
	ch, cancel := feed.subscribe()
	defer cancel()

	for i := 0; i < 20; i++ {
		feed.Record("Maths", feedResult(string(rune('a'+i)), "s1", 50))
	}

	var last domain.TestSnapshot
	for len(ch) > 0 {
		last = <-ch
	}
	if last.Submissions != 20 {
		t.Fatalf("expected newest snapshot to survive, got %d submissions", last.Submissions)
	}
}

func TestFeedCancelClosesChannel(t *testing.T) {
	feed := NewFeed("test-1")
	ch, cancel := feed.subscribe()
	<-ch

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
}

func TestFeedHoldsTrackIdleness(t *testing.T) {
	feed := NewFeed("test-1")
	if !feed.IsIdle() {
		t.Fatalf("expected new feed idle")
	}
	feed.Acquire()
	feed.Acquire()
	if feed.Release() {
		t.Fatalf("expected feed still held after first release")
	}
	if !feed.Release() || !feed.IsIdle() {
		t.Fatalf("expected feed idle after last release")
	}
	if !feed.Release() {
		t.Fatalf("expected extra release to keep the feed idle")
	}
}

func TestFeedInitialSnapshotIsQueuedOnSubscribe(t *testing.T) {
	feed := NewFeed("test-1")
	feed.Record("Maths", feedResult("r1", "s1", 60))

	ch, cancel := feed.subscribe()
	defer cancel()
	if len(ch) != 1 {
		t.Fatalf("expected initial snapshot queued before subscribe returns, got %d", len(ch))
	}
	if snap := <-ch; snap.Submissions != 1 {
		t.Fatalf("unexpected initial snapshot %+v", snap)
	}
}

func TestFeedRecordsWhileSubscribersChurn(t *testing.T) {
	feed := NewFeed("test-1")
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			feed.Record("Maths", feedResult(fmt.Sprintf("r%d", i), "s1", 50))
		}
	}()
	for i := 0; i < 50; i++ {
		_, cancel := feed.subscribe()
		cancel()
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("recording stalled while subscribers came and went")
	}
	if got := feed.Snapshot().Submissions; got != 200 {
		t.Fatalf("expected 200 submissions, got %d", got)
	}
}
